// Package backend 呼叫食譜儲存服務
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"video-recipe-generator/internal/core/recipe"
	"video-recipe-generator/internal/infrastructure/auth"
	"video-recipe-generator/internal/pkg/common"

	"github.com/avast/retry-go/v4"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrMissingID 儲存成功但回應中沒有 id
var ErrMissingID = errors.New("backend response has no recipe id")

// SaveRequest 一次儲存所需的內容
type SaveRequest struct {
	Recipe       *recipe.GeneratedRecipe
	ThumbnailURL string
	SourceURL    string
	Owner        auth.Identity
}

// savePayload 食譜欄位攤平於最上層
type savePayload struct {
	*recipe.GeneratedRecipe
	ThumbnailURL   string `json:"thumbnailUrl,omitempty"`
	DownloadedFrom string `json:"downloadedFrom"`
	UserID         string `json:"userId"`
}

// Client 食譜後端客戶端
type Client struct {
	client *resty.Client
}

// NewClient 創建後端客戶端
func NewClient(baseURL string, timeout time.Duration) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)
	return &Client{client: client}
}

// Save 以呼叫者身分儲存食譜並回傳後端配發的 id
func (c *Client) Save(ctx context.Context, req SaveRequest) (string, error) {
	if req.Recipe == nil {
		return "", fmt.Errorf("recipe is required")
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(req.Owner.Token).
		SetBody(savePayload{
			GeneratedRecipe: req.Recipe,
			ThumbnailURL:    req.ThumbnailURL,
			DownloadedFrom:  req.SourceURL,
			UserID:          req.Owner.ID,
		}).
		Post("/api/recipes")
	if err != nil {
		return "", fmt.Errorf("failed to send recipe to backend: %w", err)
	}

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		common.LogError("Backend rejected recipe",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("response", common.Truncate(resp.String(), 256)),
		)
		return "", fmt.Errorf("failed to save recipe: %s", resp.Status())
	}

	var result struct {
		ID   interface{} `json:"id"`
		Data *struct {
			ID interface{} `json:"id"`
		} `json:"data"`
	}
	if err := common.ParseJSONBytes(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("failed to parse backend response: %w", err)
	}

	raw := result.ID
	if raw == nil && result.Data != nil {
		raw = result.Data.ID
	}
	id := formatID(raw)
	if id == "" {
		return "", ErrMissingID
	}
	return id, nil
}

// WaitReady 啟動時等待後端可連線，任何 HTTP 回應都視為可用
func (c *Client) WaitReady(ctx context.Context, attempts uint, delay time.Duration) error {
	return retry.Do(
		func() error {
			_, err := c.client.R().SetContext(ctx).Get("/")
			return err
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			common.LogWarn("Backend not ready yet",
				zap.Uint("attempt", n+1),
				zap.Error(err),
			)
		}),
	)
}

func formatID(v interface{}) string {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}
