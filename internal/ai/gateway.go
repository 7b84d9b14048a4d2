// Package ai provides a provider-agnostic text-generation gateway.
package ai

import "context"

// Options are the sampling settings sent with every generation call.
// Temperature and TopP are always sent, zero included; MaxOutputTokens is
// sent when positive.
type Options struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"max_output_tokens"`
	TopP            float64 `json:"top_p"`
}

// GenerateRequest is a single prompt plus generation options.
type GenerateRequest struct {
	Prompt  string  `json:"prompt"`
	Model   string  `json:"model,omitempty"`
	Options Options `json:"options"`
}

// GenerateResponse is the output of one generation call. Content may be
// empty when the provider produced no text.
type GenerateResponse struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// TotalTokens returns the sum of input and output tokens.
func (r GenerateResponse) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}

// StreamChunk represents a streaming response chunk. The final chunk has
// Done set; a chunk carrying Error ends the stream.
type StreamChunk struct {
	Content string
	Done    bool
	Error   error
}

// ModelInfo describes an available model.
type ModelInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MaxTokens   int    `json:"max_tokens"`
	Description string `json:"description"`
}

// Provider is the interface all generation backends implement.
type Provider interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
	StreamGenerate(ctx context.Context, req GenerateRequest) (<-chan StreamChunk, error)
	Models() []ModelInfo
	HealthCheck(ctx context.Context) error
}
