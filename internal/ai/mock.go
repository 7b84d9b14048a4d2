package ai

import (
	"context"
	"sync"
)

// MockProvider is a test double for generation providers.
type MockProvider struct {
	Response string
	Chunks   []string // streamed instead of Response when set
	Err      error

	mu          sync.Mutex
	calls       int
	lastRequest *GenerateRequest
}

// NewMockProvider creates a MockProvider that returns the given response.
func NewMockProvider(response string) *MockProvider {
	return &MockProvider{Response: response}
}

func (m *MockProvider) Generate(_ context.Context, req GenerateRequest) (GenerateResponse, error) {
	m.record(req)
	if m.Err != nil {
		return GenerateResponse{}, m.Err
	}
	return GenerateResponse{
		Content:      m.Response,
		Model:        "mock",
		InputTokens:  10,
		OutputTokens: len(m.Response),
	}, nil
}

func (m *MockProvider) StreamGenerate(_ context.Context, req GenerateRequest) (<-chan StreamChunk, error) {
	m.record(req)
	if m.Err != nil {
		return nil, m.Err
	}

	chunks := m.Chunks
	if chunks == nil {
		chunks = []string{m.Response}
	}
	ch := make(chan StreamChunk, len(chunks)+1)
	go func() {
		defer close(ch)
		for _, c := range chunks {
			ch <- StreamChunk{Content: c}
		}
		ch <- StreamChunk{Done: true}
	}()
	return ch, nil
}

func (m *MockProvider) Models() []ModelInfo {
	return []ModelInfo{
		{ID: "mock", Name: "Mock Model", MaxTokens: 4096, Description: "Test mock"},
	}
}

func (m *MockProvider) HealthCheck(_ context.Context) error {
	return m.Err
}

// Calls returns how many generation calls were made.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastRequest returns the most recent request, or nil before any call.
func (m *MockProvider) LastRequest() *GenerateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRequest
}

func (m *MockProvider) record(req GenerateRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastRequest = &req
}
