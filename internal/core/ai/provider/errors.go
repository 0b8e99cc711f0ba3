package provider

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Kind 供應商錯誤分類
type Kind string

const (
	KindRateLimited        Kind = "rate_limited"
	KindQuotaExhausted     Kind = "quota_exhausted"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindUpstream           Kind = "upstream_error"
)

// 供 errors.Is 比對的哨兵錯誤
var (
	ErrRateLimited        = errors.New("provider rate limit reached")
	ErrQuotaExhausted     = errors.New("provider quota exhausted")
	ErrInvalidCredentials = errors.New("invalid provider credentials")
	ErrUpstream           = errors.New("provider upstream error")
)

// ProviderError 已分類的供應商錯誤，Message 可直接給使用者看
type ProviderError struct {
	Kind       Kind
	StatusCode int
	Message    string
	// Detail 上游原始錯誤訊息，只寫入日誌
	Detail     string
	RetryAfter time.Duration
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is 讓 errors.Is(err, ErrRateLimited) 等比對成立
func (e *ProviderError) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return e.Kind == KindRateLimited
	case ErrQuotaExhausted:
		return e.Kind == KindQuotaExhausted
	case ErrInvalidCredentials:
		return e.Kind == KindInvalidCredentials
	case ErrUpstream:
		return e.Kind == KindUpstream
	}
	return false
}

// Retryable 呼叫端稍後重試是否有意義
func (e *ProviderError) Retryable() bool {
	return e.Kind == KindRateLimited || (e.Kind == KindUpstream && e.StatusCode >= 500)
}

// ClassifyHTTPError 依狀態碼與上游錯誤內容分類
func ClassifyHTTPError(status int, code, message string, header http.Header) *ProviderError {
	lower := strings.ToLower(message + " " + code)

	switch {
	case status == http.StatusTooManyRequests && (code == "insufficient_quota" || strings.Contains(lower, "quota")):
		return &ProviderError{
			Kind:       KindQuotaExhausted,
			StatusCode: status,
			Message:    "Provider quota exhausted. Check your account.",
			Detail:     message,
		}
	case status == http.StatusTooManyRequests || strings.Contains(lower, "rate limit"):
		return &ProviderError{
			Kind:       KindRateLimited,
			StatusCode: status,
			Message:    "Provider rate limit reached. Try again in a few minutes.",
			Detail:     message,
			RetryAfter: parseRetryAfter(header),
		}
	case strings.Contains(lower, "quota"):
		return &ProviderError{
			Kind:       KindQuotaExhausted,
			StatusCode: status,
			Message:    "Provider quota exhausted. Check your account.",
			Detail:     message,
		}
	case status == http.StatusUnauthorized:
		return &ProviderError{
			Kind:       KindInvalidCredentials,
			StatusCode: status,
			Message:    "Invalid provider API key.",
			Detail:     message,
		}
	}

	return &ProviderError{
		Kind:       KindUpstream,
		StatusCode: status,
		Message:    "Provider request failed.",
		Detail:     message,
	}
}

// NewTransportError 網路層失敗一律歸為上游錯誤
func NewTransportError(err error) *ProviderError {
	return &ProviderError{
		Kind:    KindUpstream,
		Message: "Provider unreachable.",
		Detail:  err.Error(),
		Err:     err,
	}
}

func parseRetryAfter(header http.Header) time.Duration {
	if header == nil {
		return 0
	}
	raw := strings.TrimSpace(header.Get("Retry-After"))
	if raw == "" {
		return 0
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(raw); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
