// Package server exposes the tutor over HTTP and websocket.
package server

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/rs/cors"

	"github.com/p-n-ai/ssc-tutor/internal/tutor"
)

const readyTimeout = 2 * time.Second

// HealthChecker is an optional dependency checked by /readyz.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Config holds the server dependencies.
type Config struct {
	Engine         *tutor.Engine
	AllowedOrigins []string                 // "*" allows any origin; empty allows same-origin only
	Checks         map[string]HealthChecker // name -> dependency
}

// Server routes requests to the tutor engine.
type Server struct {
	engine  *tutor.Engine
	origins []string
	checks  map[string]HealthChecker
}

// New creates a Server.
func New(cfg Config) *Server {
	return &Server{
		engine:  cfg.Engine,
		origins: cfg.AllowedOrigins,
		checks:  cfg.Checks,
	}
}

// Handler returns the root handler with CORS and request logging applied.
func (s *Server) Handler() http.Handler {
	return requestLogger(cors.New(corsOptions(s.origins)).Handler(s.routes()))
}

// corsOptions builds the CORS policy. A "*" entry echoes the request origin
// back, since browsers reject a literal "*" on credentialed requests. An
// empty list admits no cross-origin caller, matching websocket.Accept.
func corsOptions(origins []string) cors.Options {
	opts := cors.Options{
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}
	switch {
	case slices.Contains(origins, "*"):
		opts.AllowOriginFunc = func(string) bool { return true }
	case len(origins) == 0:
		opts.AllowOriginFunc = func(string) bool { return false }
		opts.AllowCredentials = false
	default:
		opts.AllowedOrigins = origins
	}
	return opts
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.HandleFunc("GET /api/subjects", s.handleSubjects)
	mux.HandleFunc("POST /api/ask", s.handleAsk)
	mux.HandleFunc("GET /api/ask", s.handleAskGet)
	mux.HandleFunc("GET /api/ask/stream", s.handleAskStream)
	return mux
}
