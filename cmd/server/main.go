package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/p-n-ai/ssc-tutor/internal/ai"
	"github.com/p-n-ai/ssc-tutor/internal/curriculum"
	"github.com/p-n-ai/ssc-tutor/internal/platform/cache"
	"github.com/p-n-ai/ssc-tutor/internal/platform/config"
	"github.com/p-n-ai/ssc-tutor/internal/platform/database"
	"github.com/p-n-ai/ssc-tutor/internal/prompt"
	"github.com/p-n-ai/ssc-tutor/internal/server"
	"github.com/p-n-ai/ssc-tutor/internal/tutor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Log, os.Stdout))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err, "missing", errors.Is(err, config.ErrMissingConfiguration))
		os.Exit(1)
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	catalog, err := curriculum.Load(cfg.CurriculumPath)
	if err != nil {
		slog.Error("failed to load curriculum", "error", err)
		os.Exit(1)
	}

	provider, closeProvider, err := newProvider(ctx, cfg.AI)
	if err != nil {
		slog.Error("failed to create AI provider", "error", err)
		os.Exit(1)
	}
	defer closeProvider()

	checks := map[string]server.HealthChecker{}
	engineCfg := tutor.EngineConfig{
		Provider: provider,
		Catalog:  catalog,
		Builder:  prompt.NewBuilder(prompt.DefaultTemplates()),
		Model:    cfg.AI.Model,
		Options: ai.Options{
			Temperature:     cfg.AI.Temperature,
			MaxOutputTokens: cfg.AI.MaxOutputTokens,
			TopP:            cfg.AI.TopP,
		},
		Timeout: cfg.AI.Timeout,
	}

	// Database and cache only feed analytics; the service runs without them.
	if cfg.Database.URL != "" {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err == nil {
			err = db.Migrate(ctx)
			if err != nil {
				db.Close()
			}
		}
		if err != nil {
			slog.Warn("database unavailable, event log disabled", "error", err)
		} else {
			defer db.Close()
			engineCfg.Events = tutor.NewPostgresEventLogger(db.Pool)
			checks["database"] = db
			slog.Info("event log enabled")
		}
	}
	if cfg.Cache.URL != "" {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			slog.Warn("cache unavailable, usage kept in memory", "error", err)
		} else {
			defer c.Close()
			engineCfg.Usage = c.NewUsageCounter()
			checks["cache"] = c
		}
	}

	srv := server.New(server.Config{
		Engine:         tutor.NewEngine(engineCfg),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Checks:         checks,
	})

	// Generation has no deadline of its own unless TUTOR_AI_TIMEOUT is set,
	// so the write timeout is well above a typical answer.
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      srv.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting",
			"addr", httpSrv.Addr,
			"provider", cfg.AI.Provider,
			"model", cfg.AI.Model,
			"subjects", len(catalog.Subjects()),
		)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// newLogger builds the process logger from the log settings.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// newProvider creates the configured generation provider and its cleanup.
func newProvider(ctx context.Context, cfg config.AIConfig) (ai.Provider, func(), error) {
	switch cfg.Provider {
	case config.ProviderGoogle:
		p, err := ai.NewGoogleProvider(ctx, cfg.APIKey(), ai.WithGoogleModel(cfg.Model))
		if err != nil {
			return nil, nil, err
		}
		return p, func() { p.Close() }, nil
	case config.ProviderOpenAI:
		p := ai.NewOpenAIProvider(cfg.APIKey(),
			ai.WithBaseURL(cfg.OpenAIBaseURL),
			ai.WithOpenAIModel(cfg.Model),
		)
		return p, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}
