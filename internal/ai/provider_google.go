package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GoogleProvider implements Provider for Google Gemini through the
// generative-ai-go SDK.
type GoogleProvider struct {
	client       *genai.Client
	defaultModel string
}

// GoogleOption configures a GoogleProvider.
type GoogleOption func(*googleSettings)

type googleSettings struct {
	model      string
	clientOpts []option.ClientOption
}

// WithGoogleModel sets the model used when a request names none.
func WithGoogleModel(model string) GoogleOption {
	return func(s *googleSettings) {
		s.model = model
	}
}

// WithGoogleClientOptions passes extra options to the SDK client, such as
// an endpoint or HTTP client.
func WithGoogleClientOptions(opts ...option.ClientOption) GoogleOption {
	return func(s *googleSettings) {
		s.clientOpts = append(s.clientOpts, opts...)
	}
}

// NewGoogleProvider creates a Gemini provider. Close releases the client.
func NewGoogleProvider(ctx context.Context, apiKey string, opts ...GoogleOption) (*GoogleProvider, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is empty")
	}

	s := googleSettings{model: defaultGeminiModel}
	for _, opt := range opts {
		opt(&s)
	}

	clientOpts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, s.clientOpts...)
	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GoogleProvider{client: client, defaultModel: s.model}, nil
}

// Close releases the underlying SDK client.
func (p *GoogleProvider) Close() error {
	return p.client.Close()
}

func (p *GoogleProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	model := p.modelName(req.Model)
	m := p.client.GenerativeModel(model)
	applyGeminiOptions(m, req.Options)

	resp, err := m.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return GenerateResponse{}, fmt.Errorf("gemini generate: %w", err)
	}

	in, out := geminiUsage(resp)
	return GenerateResponse{
		Content:      geminiText(resp),
		Model:        model,
		InputTokens:  in,
		OutputTokens: out,
	}, nil
}

func (p *GoogleProvider) StreamGenerate(ctx context.Context, req GenerateRequest) (<-chan StreamChunk, error) {
	m := p.client.GenerativeModel(p.modelName(req.Model))
	applyGeminiOptions(m, req.Options)

	it := m.GenerateContentStream(ctx, genai.Text(req.Prompt))
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
		for {
			resp, err := it.Next()
			if errors.Is(err, iterator.Done) {
				send(StreamChunk{Done: true})
				return
			}
			if err != nil {
				send(StreamChunk{Error: fmt.Errorf("gemini stream: %w", err)})
				return
			}
			if text := geminiText(resp); text != "" && !send(StreamChunk{Content: text}) {
				return
			}
		}
	}()
	return ch, nil
}

func (p *GoogleProvider) Models() []ModelInfo {
	return []ModelInfo{
		{ID: "gemini-2.5-pro", Name: "Gemini 2.5 Pro", MaxTokens: 1048576, Description: "Most capable Google model"},
		{ID: "gemini-2.5-flash", Name: "Gemini 2.5 Flash", MaxTokens: 1048576, Description: "Fast, affordable Google model"},
	}
}

func (p *GoogleProvider) HealthCheck(ctx context.Context) error {
	if _, err := p.client.GenerativeModel(p.defaultModel).Info(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

func (p *GoogleProvider) modelName(requested string) string {
	if requested != "" {
		return requested
	}
	return p.defaultModel
}

// applyGeminiOptions copies the sampling options onto the model. A zero
// temperature is sent as is; only MaxOutputTokens is optional.
func applyGeminiOptions(m *genai.GenerativeModel, o Options) {
	m.SetTemperature(float32(o.Temperature))
	m.SetTopP(float32(o.TopP))
	if o.MaxOutputTokens > 0 {
		m.SetMaxOutputTokens(int32(o.MaxOutputTokens))
	}
}

// geminiText concatenates the text parts of the first candidate.
func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}

func geminiUsage(resp *genai.GenerateContentResponse) (input, output int) {
	if resp == nil || resp.UsageMetadata == nil {
		return 0, 0
	}
	return int(resp.UsageMetadata.PromptTokenCount), int(resp.UsageMetadata.CandidatesTokenCount)
}
