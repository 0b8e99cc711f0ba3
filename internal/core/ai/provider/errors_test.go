package provider

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestClassifyHTTPError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		code    string
		message string
		want    error
	}{
		{name: "429", status: 429, message: "Rate limit reached for gpt-4o-mini", want: ErrRateLimited},
		{name: "429 quota code", status: 429, code: "insufficient_quota", message: "You exceeded your current quota", want: ErrQuotaExhausted},
		{name: "quota text", status: 403, message: "quota exceeded", want: ErrQuotaExhausted},
		{name: "401", status: 401, message: "Incorrect API key provided", want: ErrInvalidCredentials},
		{name: "500", status: 500, message: "server error", want: ErrUpstream},
		{name: "400", status: 400, message: "bad request", want: ErrUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ClassifyHTTPError(tt.status, tt.code, tt.message, nil)
			if !errors.Is(err, tt.want) {
				t.Fatalf("kind = %s, want %v", err.Kind, tt.want)
			}
			if err.StatusCode != tt.status {
				t.Errorf("status = %d", err.StatusCode)
			}
		})
	}
}

func TestRateLimitedMessageAndRetryAfter(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "20")

	err := ClassifyHTTPError(http.StatusTooManyRequests, "", "slow down", header)
	if err.RetryAfter != 20*time.Second {
		t.Errorf("retry after = %v", err.RetryAfter)
	}
	if !strings.Contains(err.Error(), "Try again in a few minutes") {
		t.Errorf("message = %q", err.Error())
	}
	if !err.Retryable() {
		t.Error("rate limited error should be retryable")
	}
	if strings.Contains(err.Error(), "slow down") {
		t.Error("upstream detail leaked into message")
	}
}

func TestProviderErrorWrapped(t *testing.T) {
	err := fmt.Errorf("recipe stage: %w", ClassifyHTTPError(401, "", "bad key", nil))
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatal("wrapped error should match ErrInvalidCredentials")
	}
	if errors.Is(err, ErrRateLimited) {
		t.Fatal("wrapped error should not match ErrRateLimited")
	}
	var pErr *ProviderError
	if !errors.As(err, &pErr) || pErr.Retryable() {
		t.Fatalf("unexpected provider error: %+v", pErr)
	}
}

func TestNewTransportError(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := NewTransportError(cause)
	if !errors.Is(err, ErrUpstream) || !errors.Is(err, cause) {
		t.Fatalf("transport error = %v", err)
	}
}
