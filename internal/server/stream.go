package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/ssc-tutor/internal/tutor"
)

// Frame types sent on /api/ask/stream.
const (
	frameChunk  = "chunk"
	frameAnswer = "answer"
	frameError  = "error"
)

// streamFrame is one server message. A stream is zero or more chunk
// frames followed by exactly one answer or error frame.
type streamFrame struct {
	Type    string      `json:"type"`
	Content string      `json:"content,omitempty"`
	Answer  string      `json:"answer,omitempty"`
	Meta    *tutor.Meta `json:"meta,omitempty"`
	Error   string      `json:"error,omitempty"`
	Detail  string      `json:"detail,omitempty"`
}

// handleAskStream reads one ask request from the websocket and streams the
// answer back.
func (s *Server) handleAskStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns(s.origins),
	})
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxBodyBytes)

	ctx := r.Context()
	_, body, err := conn.Read(ctx)
	if err != nil {
		slog.Debug("websocket read failed", "error", err)
		return
	}

	q, err := decodeQuestion(body)
	if err != nil {
		s.writeFrame(ctx, conn, streamFrame{Type: frameError, Error: kindInvalidRequest, Detail: err.Error()})
		conn.Close(websocket.StatusPolicyViolation, "invalid request")
		return
	}

	ans, err := s.engine.AskStream(ctx, q, func(chunk string) error {
		return wsjson.Write(ctx, conn, streamFrame{Type: frameChunk, Content: chunk})
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || websocket.CloseStatus(err) != -1 {
			return
		}
		_, resp := errorFor(err)
		s.writeFrame(ctx, conn, streamFrame{Type: frameError, Error: resp.Error, Detail: resp.Detail})
		conn.Close(websocket.StatusNormalClosure, "")
		return
	}

	s.writeFrame(ctx, conn, streamFrame{Type: frameAnswer, Answer: ans.Answer, Meta: &ans.Meta})
	conn.Close(websocket.StatusNormalClosure, "")
}

func (s *Server) writeFrame(ctx context.Context, conn *websocket.Conn, f streamFrame) {
	if err := wsjson.Write(ctx, conn, f); err != nil {
		slog.Debug("websocket write failed", "type", f.Type, "error", err)
	}
}

// originPatterns converts CORS origins to the host patterns websocket.Accept
// matches against.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, o)
	}
	return patterns
}
