package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/p-n-ai/ssc-tutor/internal/tutor"
)

const rootMessage = "AP SSC Class 10 AI Tutor Backend - Ready!"

// Error kinds returned in the "error" field of failure responses.
const (
	kindInvalidChapter   = "invalid_chapter_for_subject"
	kindGenerationFailed = "generation_failed"
	kindInvalidRequest   = "invalid_request"
	kindMethodNotAllowed = "method_not_allowed"
	kindNotReady         = "not_ready"
)

type errorResponse struct {
	Detail string `json:"detail"`
	Error  string `json:"error"`
}

type subjectResponse struct {
	Name     string   `json:"name"`
	Chapters []string `json:"chapters"`
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": rootMessage})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "healthy",
		"model":    s.engine.Model(),
		"models":   s.engine.Models(),
		"chapters": s.engine.Catalog().Table(),
	})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	failed := map[string]string{}
	for name, check := range s.checks {
		if err := check.HealthCheck(ctx); err != nil {
			slog.Warn("readiness check failed", "dependency", name, "error", err)
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not ready",
			"error":  kindNotReady,
			"failed": failed,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleSubjects(w http.ResponseWriter, _ *http.Request) {
	catalog := s.engine.Catalog()
	subjects := []subjectResponse{}
	for _, name := range catalog.Subjects() {
		subjects = append(subjects, subjectResponse{Name: name, Chapters: catalog.Chapters(name)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"subjects": subjects})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeRequestError(w, err)
		return
	}
	q, err := decodeQuestion(body)
	if err != nil {
		writeRequestError(w, err)
		return
	}

	ans, err := s.engine.Ask(r.Context(), q)
	if err != nil {
		status, resp := errorFor(err)
		writeJSON(w, status, resp)
		return
	}
	writeJSON(w, http.StatusOK, ans)
}

func (s *Server) handleAskGet(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Allow", http.MethodPost)
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{
		Detail: "Method Not Allowed. Use POST.",
		Error:  kindMethodNotAllowed,
	})
}

// errorFor maps an engine error to its status code and response body.
func errorFor(err error) (int, errorResponse) {
	var genErr *tutor.GenerationError
	switch {
	case errors.Is(err, tutor.ErrInvalidChapterForSubject):
		return http.StatusBadRequest, errorResponse{Detail: "Invalid chapter for subject", Error: kindInvalidChapter}
	case errors.As(err, &genErr):
		return http.StatusInternalServerError, errorResponse{
			Detail: "Error generating response: " + genErr.Err.Error(),
			Error:  kindGenerationFailed,
		}
	default:
		return http.StatusInternalServerError, errorResponse{Detail: err.Error(), Error: kindGenerationFailed}
	}
}

func writeRequestError(w http.ResponseWriter, err error) {
	status := http.StatusUnprocessableEntity
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		status = http.StatusRequestEntityTooLarge
	}
	writeJSON(w, status, errorResponse{Detail: err.Error(), Error: kindInvalidRequest})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}
