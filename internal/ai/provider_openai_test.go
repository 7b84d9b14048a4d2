package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestOpenAIProvider_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}

		var req openaiRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Model != "gpt-4o" {
			t.Errorf("model = %q, want %q", req.Model, "gpt-4o")
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" || req.Messages[0].Content != "hello" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		if req.MaxTokens != 256 {
			t.Errorf("max_tokens = %d, want 256", req.MaxTokens)
		}
		if req.Temperature != 0.7 {
			t.Errorf("temperature = %v, want 0.7", req.Temperature)
		}
		if req.TopP != 0.9 {
			t.Errorf("top_p = %v, want 0.9", req.TopP)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"model": "gpt-4o",
			"choices": [{"message": {"role": "assistant", "content": "Hi there!"}}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5}
		}`))
	}))
	defer server.Close()

	provider := NewOpenAIProvider("test-key", WithBaseURL(server.URL))

	resp, err := provider.Generate(context.Background(), GenerateRequest{
		Prompt:  "hello",
		Model:   "gpt-4o",
		Options: Options{Temperature: 0.7, MaxOutputTokens: 256, TopP: 0.9},
	})

	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if resp.Content != "Hi there!" {
		t.Errorf("content = %q, want %q", resp.Content, "Hi there!")
	}
	if resp.InputTokens != 10 {
		t.Errorf("input_tokens = %d, want 10", resp.InputTokens)
	}
	if resp.OutputTokens != 5 {
		t.Errorf("output_tokens = %d, want 5", resp.OutputTokens)
	}
}

func TestOpenAIProvider_Generate_DefaultModel(t *testing.T) {
	var gotModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openaiRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotModel = req.Model
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	provider := NewOpenAIProvider("test-key", WithBaseURL(server.URL), WithOpenAIModel("llama3"))

	resp, err := provider.Generate(context.Background(), GenerateRequest{Prompt: "hello"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if gotModel != "llama3" {
		t.Errorf("model = %q, want llama3", gotModel)
	}
	if resp.Content != "" {
		t.Errorf("content = %q, want empty when no choices are returned", resp.Content)
	}
	if resp.Model != "llama3" {
		t.Errorf("resp.Model = %q, want llama3", resp.Model)
	}
}

func TestOpenAIProvider_Generate_APIErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "rate limited", "type": "rate_limit"}}`))
	}))
	defer server.Close()

	provider := NewOpenAIProvider("test-key", WithBaseURL(server.URL))

	_, err := provider.Generate(context.Background(), GenerateRequest{Prompt: "hello"})
	if err == nil {
		t.Fatal("Generate() should return error on API error")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error = %q, want the upstream status in the message", err.Error())
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("upstream called %d times, want exactly 1", got)
	}
}

func TestOpenAIProvider_Generate_ZeroTemperatureSent(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices": [{"message": {"content": "ok"}}]}`))
	}))
	defer server.Close()

	provider := NewOpenAIProvider("test-key", WithBaseURL(server.URL))
	_, err := provider.Generate(context.Background(), GenerateRequest{
		Prompt:  "hello",
		Options: Options{Temperature: 0, MaxOutputTokens: 10, TopP: 0.9},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	temp, ok := body["temperature"]
	if !ok {
		t.Fatalf("temperature missing from request body: %v", body)
	}
	if temp != float64(0) {
		t.Errorf("temperature = %v, want 0", temp)
	}
}

func TestOpenAIProvider_StreamGenerate(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&body)

		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"HCF is ", "the highest ", "common factor."} {
			fmt.Fprintf(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"gpt-4o-mini\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", part)
			w.(http.Flusher).Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	provider := NewOpenAIProvider("test-key", WithBaseURL(server.URL))

	ch, err := provider.StreamGenerate(context.Background(), GenerateRequest{
		Prompt:  "What is HCF?",
		Options: Options{Temperature: 0, MaxOutputTokens: 64, TopP: 0.9},
	})
	if err != nil {
		t.Fatalf("StreamGenerate() error = %v", err)
	}

	var chunks []string
	var done bool
	for c := range ch {
		if c.Error != nil {
			t.Fatalf("stream error = %v", c.Error)
		}
		if c.Done {
			done = true
			continue
		}
		chunks = append(chunks, c.Content)
	}
	if len(chunks) != 3 {
		t.Errorf("chunks = %q, want 3 separate chunks", chunks)
	}
	if strings.Join(chunks, "") != "HCF is the highest common factor." {
		t.Errorf("content = %q", strings.Join(chunks, ""))
	}
	if !done {
		t.Error("stream should end with a Done chunk")
	}
	if body["stream"] != true {
		t.Errorf("stream = %v, want true", body["stream"])
	}
	if temp, ok := body["temperature"]; !ok || temp != float64(0) {
		t.Errorf("temperature = %v (present %v), want 0", temp, ok)
	}
}

func TestOpenAIProvider_StreamGenerate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "invalid api key"}}`))
	}))
	defer server.Close()

	provider := NewOpenAIProvider("bad-key", WithBaseURL(server.URL))

	ch, err := provider.StreamGenerate(context.Background(), GenerateRequest{Prompt: "hello"})
	if err != nil {
		t.Fatalf("StreamGenerate() error = %v", err)
	}

	var streamErr error
	for c := range ch {
		if c.Error != nil {
			streamErr = c.Error
		}
		if c.Done {
			t.Error("failed stream should not report Done")
		}
	}
	if streamErr == nil {
		t.Fatal("expected an error chunk")
	}
	if !strings.Contains(streamErr.Error(), "401") {
		t.Errorf("error = %q, want the upstream status", streamErr.Error())
	}
}

func TestOpenAIProvider_HealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    bool
	}{
		{"healthy", http.StatusOK, false},
		{"unhealthy", http.StatusUnauthorized, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if !strings.HasSuffix(r.URL.Path, "/models") {
					t.Errorf("unexpected path: %s", r.URL.Path)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(`{"data": []}`))
			}))
			defer server.Close()

			provider := NewOpenAIProvider("test-key", WithBaseURL(server.URL))
			err := provider.HealthCheck(context.Background())

			if (err != nil) != tt.wantErr {
				t.Errorf("HealthCheck() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOpenAIProvider_ProviderNameInErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": {"message": "model not loaded"}}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider("", WithBaseURL(server.URL), WithProviderName("ollama"))
	if p.Name() != "ollama" {
		t.Errorf("Name() = %q, want ollama", p.Name())
	}

	_, err := p.Generate(context.Background(), GenerateRequest{Prompt: "hello"})
	if err == nil || !strings.HasPrefix(err.Error(), "ollama chat completion") {
		t.Errorf("error = %v, want it prefixed with the provider name", err)
	}
}

func TestOpenAIProvider_Models(t *testing.T) {
	models := NewOpenAIProvider("test-key").Models()
	if len(models) == 0 {
		t.Fatal("Models() returned empty list")
	}
}
