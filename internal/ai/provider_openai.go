package ai

import (
	"context"
	"fmt"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIProvider implements Provider for OpenAI and OpenAI-compatible APIs
// (DeepSeek, OpenRouter, Ollama, etc.) via a configurable base URL.
type OpenAIProvider struct {
	client       openai.Client
	defaultModel string
	name         string
}

// OpenAIOption configures an OpenAIProvider.
type OpenAIOption func(*openaiSettings)

type openaiSettings struct {
	model      string
	name       string
	clientOpts []option.RequestOption
}

// WithBaseURL sets the base URL for the OpenAI-compatible API.
func WithBaseURL(url string) OpenAIOption {
	return func(s *openaiSettings) {
		if url != "" {
			s.clientOpts = append(s.clientOpts, option.WithBaseURL(url))
		}
	}
}

// WithOpenAIModel sets the model used when a request names none.
func WithOpenAIModel(model string) OpenAIOption {
	return func(s *openaiSettings) {
		s.model = model
	}
}

// WithProviderName sets the name used in logs and error messages, e.g. "ollama".
func WithProviderName(name string) OpenAIOption {
	return func(s *openaiSettings) {
		s.name = name
	}
}

// NewOpenAIProvider creates a new OpenAI-compatible provider. The SDK's
// automatic retries are disabled: every request is a single attempt.
func NewOpenAIProvider(apiKey string, opts ...OpenAIOption) *OpenAIProvider {
	s := openaiSettings{model: defaultOpenAIModel, name: "openai"}
	for _, opt := range opts {
		opt(&s)
	}

	clientOpts := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, s.clientOpts...)

	return &OpenAIProvider{
		client:       openai.NewClient(clientOpts...),
		defaultModel: s.model,
		name:         s.name,
	}
}

// Name returns the provider name used in logs.
func (p *OpenAIProvider) Name() string {
	return p.name
}

// openaiRequest is the request body for the chat completions API.
type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature"`
	TopP        float64         `json:"top_p"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// openaiResponse is the response from the chat completions API.
type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (p *OpenAIProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	model := p.modelName(req.Model)

	oaiReq := openaiRequest{
		Model:       model,
		Messages:    []openaiMessage{{Role: "user", Content: req.Prompt}},
		Temperature: req.Options.Temperature,
		TopP:        req.Options.TopP,
	}
	if req.Options.MaxOutputTokens > 0 {
		oaiReq.MaxTokens = req.Options.MaxOutputTokens
	}

	var oaiResp openaiResponse
	if err := p.client.Post(ctx, "chat/completions", oaiReq, &oaiResp); err != nil {
		return GenerateResponse{}, fmt.Errorf("%s chat completion: %w", p.name, err)
	}

	resp := GenerateResponse{
		Model:        oaiResp.Model,
		InputTokens:  oaiResp.Usage.PromptTokens,
		OutputTokens: oaiResp.Usage.CompletionTokens,
	}
	if resp.Model == "" {
		resp.Model = model
	}
	if len(oaiResp.Choices) > 0 {
		resp.Content = oaiResp.Choices[0].Message.Content
	}
	return resp, nil
}

func (p *OpenAIProvider) StreamGenerate(ctx context.Context, req GenerateRequest) (<-chan StreamChunk, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(p.modelName(req.Model)),
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(req.Prompt)},
		Temperature: openai.Float(req.Options.Temperature),
		TopP:        openai.Float(req.Options.TopP),
	}
	if req.Options.MaxOutputTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.Options.MaxOutputTokens))
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	ch := make(chan StreamChunk)
	send := func(c StreamChunk) bool {
		select {
		case ch <- c:
			return true
		case <-ctx.Done():
			return false
		}
	}
	go func() {
		defer close(ch)
		defer stream.Close()
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			if !send(StreamChunk{Content: chunk.Choices[0].Delta.Content}) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			send(StreamChunk{Error: fmt.Errorf("%s chat completion stream: %w", p.name, err)})
			return
		}
		send(StreamChunk{Done: true})
	}()
	return ch, nil
}

func (p *OpenAIProvider) Models() []ModelInfo {
	return []ModelInfo{
		{ID: "gpt-4o", Name: "GPT-4o", MaxTokens: 128000, Description: "Most capable OpenAI model"},
		{ID: "gpt-4o-mini", Name: "GPT-4o Mini", MaxTokens: 128000, Description: "Fast, affordable OpenAI model"},
	}
}

func (p *OpenAIProvider) modelName(requested string) string {
	if requested != "" {
		return requested
	}
	return p.defaultModel
}

func (p *OpenAIProvider) HealthCheck(ctx context.Context) error {
	var out struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := p.client.Get(ctx, "models", nil, &out); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}
