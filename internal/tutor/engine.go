// Package tutor answers student questions: it checks the chapter against the
// catalog, builds the prompt, and makes exactly one provider call.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/p-n-ai/ssc-tutor/internal/ai"
	"github.com/p-n-ai/ssc-tutor/internal/curriculum"
	"github.com/p-n-ai/ssc-tutor/internal/prompt"
)

// FallbackAnswer is returned in place of an empty provider response.
const FallbackAnswer = "Sorry, I could not generate an answer right now. Please try rephrasing your question."

// ErrInvalidChapterForSubject is returned when the chapter is not listed
// under the requested subject. The provider is never called in that case.
var ErrInvalidChapterForSubject = errors.New("invalid chapter for subject")

// GenerationError wraps a provider failure. Its message carries the
// provider's own message.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return "error generating response: " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Question is one student request.
type Question struct {
	ClassLevel string `json:"class_level"`
	Subject    string `json:"subject"`
	Chapter    string `json:"chapter"`
	Question   string `json:"question"`
	Language   string `json:"language,omitempty"`
}

// Meta echoes the request fields an answer was produced for.
type Meta struct {
	Subject    string `json:"subject"`
	Chapter    string `json:"chapter"`
	ClassLevel string `json:"class_level"`
	Language   string `json:"language,omitempty"`
}

// Answer is the successful result of Ask.
type Answer struct {
	Answer string `json:"answer"`
	Meta   Meta   `json:"meta"`
}

// EngineConfig holds dependencies for the tutor engine.
type EngineConfig struct {
	Provider ai.Provider
	Catalog  *curriculum.Catalog
	Builder  *prompt.Builder
	Model    string
	Options  ai.Options
	Timeout  time.Duration    // per provider call; 0 means none
	Usage    ai.UsageRecorder // defaults to in-memory
	Events   EventLogger      // defaults to NopEventLogger
}

// Engine is the request core shared by the HTTP and websocket handlers.
// It holds no per-request state and is safe for concurrent use.
type Engine struct {
	provider ai.Provider
	catalog  *curriculum.Catalog
	builder  *prompt.Builder
	model    string
	options  ai.Options
	timeout  time.Duration
	usage    ai.UsageRecorder
	events   EventLogger
}

// NewEngine creates a new tutor engine.
func NewEngine(cfg EngineConfig) *Engine {
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = curriculum.Default()
	}
	builder := cfg.Builder
	if builder == nil {
		builder = prompt.NewBuilder(prompt.DefaultTemplates())
	}
	usage := cfg.Usage
	if usage == nil {
		usage = ai.NewInMemoryUsage()
	}
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	return &Engine{
		provider: cfg.Provider,
		catalog:  catalog,
		builder:  builder,
		model:    cfg.Model,
		options:  cfg.Options,
		timeout:  cfg.Timeout,
		usage:    usage,
		events:   events,
	}
}

// Catalog returns the chapter catalog the engine validates against.
func (e *Engine) Catalog() *curriculum.Catalog {
	return e.catalog
}

// Model returns the configured model name.
func (e *Engine) Model() string {
	return e.model
}

// Models lists the models the provider offers.
func (e *Engine) Models() []ai.ModelInfo {
	return e.provider.Models()
}

// Ask validates the question, calls the provider once, and returns the
// trimmed answer or FallbackAnswer when the provider produced no text.
func (e *Engine) Ask(ctx context.Context, q Question) (Answer, error) {
	started := time.Now()

	req, err := e.prepare(ctx, q)
	if err != nil {
		return Answer{}, err
	}

	callCtx, cancel := e.callContext(ctx)
	defer cancel()

	resp, err := e.provider.Generate(callCtx, req)
	if err != nil {
		return Answer{}, e.failed(ctx, q, req, err, started)
	}

	return e.answered(ctx, q, req, resp, started), nil
}

// AskStream is Ask with the provider output delivered through emit as it
// arrives. The returned Answer holds the full trimmed text. An error from
// emit stops the stream and is returned as is.
func (e *Engine) AskStream(ctx context.Context, q Question, emit func(chunk string) error) (Answer, error) {
	started := time.Now()

	req, err := e.prepare(ctx, q)
	if err != nil {
		return Answer{}, err
	}

	callCtx, cancel := e.callContext(ctx)
	defer cancel()

	ch, err := e.provider.StreamGenerate(callCtx, req)
	if err != nil {
		return Answer{}, e.failed(ctx, q, req, err, started)
	}

	var sb strings.Builder
	for chunk := range ch {
		if chunk.Error != nil {
			return Answer{}, e.failed(ctx, q, req, chunk.Error, started)
		}
		if chunk.Done {
			break
		}
		if chunk.Content == "" {
			continue
		}
		sb.WriteString(chunk.Content)
		if err := emit(chunk.Content); err != nil {
			return Answer{}, err
		}
	}
	if err := callCtx.Err(); err != nil {
		return Answer{}, e.failed(ctx, q, req, err, started)
	}

	resp := ai.GenerateResponse{Content: sb.String(), Model: req.Model}
	return e.answered(ctx, q, req, resp, started), nil
}

// prepare checks the chapter and builds the provider request.
func (e *Engine) prepare(ctx context.Context, q Question) (ai.GenerateRequest, error) {
	if !e.catalog.IsValid(q.Subject, q.Chapter) {
		slog.Info("chapter rejected", "subject", q.Subject, "chapter", q.Chapter)
		e.logEvent(ctx, Event{
			EventType: EventRejected,
			Subject:   q.Subject,
			Chapter:   q.Chapter,
		})
		return ai.GenerateRequest{}, fmt.Errorf("%w: chapter %q is not part of %s",
			ErrInvalidChapterForSubject, q.Chapter, q.Subject)
	}

	chapterContext, _ := e.catalog.Context(q.Subject, q.Chapter)
	text := e.builder.Build(prompt.Input{
		ClassLevel: q.ClassLevel,
		Subject:    q.Subject,
		Chapter:    q.Chapter,
		Question:   q.Question,
		Language:   q.Language,
		Context:    chapterContext,
	})

	return ai.GenerateRequest{
		Prompt:  text,
		Model:   e.model,
		Options: e.options,
	}, nil
}

// callContext derives the context for one provider call. It is always
// cancelable so a stream abandoned by the caller releases its producer.
func (e *Engine) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}

func (e *Engine) answered(ctx context.Context, q Question, req ai.GenerateRequest, resp ai.GenerateResponse, started time.Time) Answer {
	text := strings.TrimSpace(resp.Content)
	fallback := text == ""
	if fallback {
		text = FallbackAnswer
	}

	if err := e.usage.Record(ctx, q.Subject, resp.TotalTokens()); err != nil {
		slog.Warn("failed to record usage", "subject", q.Subject, "error", err)
	}

	hash := prompt.Fingerprint(req.Prompt)
	slog.Info("question answered",
		"subject", q.Subject,
		"chapter", q.Chapter,
		"model", resp.Model,
		"prompt_hash", hash,
		"fallback", fallback,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	e.logEvent(ctx, Event{
		EventType: EventAnswered,
		Subject:   q.Subject,
		Chapter:   q.Chapter,
		Data: map[string]any{
			"prompt_hash":   hash,
			"model":         resp.Model,
			"input_tokens":  resp.InputTokens,
			"output_tokens": resp.OutputTokens,
			"fallback":      fallback,
			"duration_ms":   time.Since(started).Milliseconds(),
		},
	})

	return Answer{
		Answer: text,
		Meta: Meta{
			Subject:    q.Subject,
			Chapter:    q.Chapter,
			ClassLevel: q.ClassLevel,
			Language:   q.Language,
		},
	}
}

func (e *Engine) failed(ctx context.Context, q Question, req ai.GenerateRequest, err error, started time.Time) error {
	slog.Error("generation failed",
		"subject", q.Subject,
		"chapter", q.Chapter,
		"error", err,
	)
	e.logEvent(ctx, Event{
		EventType: EventFailed,
		Subject:   q.Subject,
		Chapter:   q.Chapter,
		Data: map[string]any{
			"prompt_hash": prompt.Fingerprint(req.Prompt),
			"error":       err.Error(),
			"duration_ms": time.Since(started).Milliseconds(),
		},
	})
	return &GenerationError{Err: err}
}

func (e *Engine) logEvent(ctx context.Context, event Event) {
	if err := e.events.LogEvent(context.WithoutCancel(ctx), event); err != nil {
		slog.Warn("failed to log event", "type", event.EventType, "error", err)
	}
}
