// Package auth 透過外部驗證服務確認呼叫者的 bearer token
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"video-recipe-generator/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrInvalidToken token 無效或已過期
var ErrInvalidToken = errors.New("invalid token")

// Identity 已驗證的呼叫者；Token 用於代表使用者呼叫後端
type Identity struct {
	ID    string `json:"id"`
	Token string `json:"-"`
}

// Verifier token 驗證介面
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// HTTPVerifier 呼叫驗證服務的 GET /verify
type HTTPVerifier struct {
	client *resty.Client
}

// NewHTTPVerifier 創建驗證客戶端
func NewHTTPVerifier(baseURL string, timeout time.Duration) *HTTPVerifier {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout)
	return &HTTPVerifier{client: client}
}

// Verify 驗證 token。無效時回傳 ErrInvalidToken，其他錯誤代表驗證服務不可用
func (v *HTTPVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrInvalidToken
	}

	resp, err := v.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		Get("/verify")
	if err != nil {
		return nil, fmt.Errorf("auth service unreachable: %w", err)
	}

	switch {
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
		return nil, ErrInvalidToken
	case resp.StatusCode() != http.StatusOK:
		common.LogError("Auth service returned error status",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("response", common.Truncate(resp.String(), 256)),
		)
		return nil, fmt.Errorf("auth service returned status %d", resp.StatusCode())
	}

	var result struct {
		Valid bool `json:"valid"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	if err := common.ParseJSONBytes(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse auth response: %w", err)
	}
	if !result.Valid || result.User.ID == "" {
		return nil, ErrInvalidToken
	}

	return &Identity{ID: result.User.ID, Token: token}, nil
}

var _ Verifier = (*HTTPVerifier)(nil)
