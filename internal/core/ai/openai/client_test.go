package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"video-recipe-generator/internal/core/ai/provider"
	"video-recipe-generator/internal/core/ai/queue"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(provider.Config{APIKey: "sk-test", BaseURL: srv.URL}, queue.NewManager(map[string]int{queue.ProviderLLM: 1}))
}

func TestGenerateSuccess(t *testing.T) {
	var got map[string]interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "gpt-4o-mini-2024",
			"choices": [{"message": {"role": "assistant", "content": "[]"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 2, "total_tokens": 12}
		}`))
	})

	resp, err := client.Generate(context.Background(), &provider.Request{
		Model:       "gpt-4o-mini",
		Messages:    []provider.Message{{Role: provider.RoleUser, Content: "hi"}},
		MaxTokens:   1000,
		Temperature: provider.Float(0),
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if resp.Content != "[]" || resp.FinishReason != "stop" || resp.Usage.TotalTokens != 12 {
		t.Errorf("response = %+v", resp)
	}
	if resp.Model != "gpt-4o-mini-2024" {
		t.Errorf("model = %q", resp.Model)
	}
	if temp, ok := got["temperature"]; !ok || temp.(float64) != 0 {
		t.Errorf("temperature 0 must be sent, body = %v", got)
	}
}

func TestGenerateClassifiesErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "rate limit", status: 429, body: `{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`, want: provider.ErrRateLimited},
		{name: "quota", status: 429, body: `{"error":{"message":"You exceeded your current quota","type":"insufficient_quota","code":"insufficient_quota"}}`, want: provider.ErrQuotaExhausted},
		{name: "bad key", status: 401, body: `{"error":{"message":"Incorrect API key provided","code":"invalid_api_key"}}`, want: provider.ErrInvalidCredentials},
		{name: "server error", status: 502, body: `bad gateway`, want: provider.ErrUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := client.Generate(context.Background(), &provider.Request{Model: "m"})
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestGenerateNoChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})
	_, err := client.Generate(context.Background(), &provider.Request{Model: "m"})
	if !errors.Is(err, provider.ErrUpstream) {
		t.Fatalf("error = %v, want upstream error", err)
	}
}

func TestGenerateCanceled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent")
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Generate(ctx, &provider.Request{Model: "m"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}
