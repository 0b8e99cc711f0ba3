// Package openai 相容 OpenAI chat completions 協定的客戶端
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"video-recipe-generator/internal/core/ai/provider"
	"video-recipe-generator/internal/core/ai/queue"
	"video-recipe-generator/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const providerName = "openai"

// chatResponse chat completions 回應
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage provider.Usage `json:"usage"`
}

// apiError 上游錯誤格式
type apiError struct {
	Error struct {
		Message string      `json:"message"`
		Type    string      `json:"type"`
		Code    interface{} `json:"code"`
	} `json:"error"`
}

// Client chat completions 客戶端
type Client struct {
	client *resty.Client
	queue  *queue.Manager
}

// NewClient 創建客戶端；queue 可為 nil
func NewClient(cfg provider.Config, q *queue.Manager) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)

	return &Client{client: client, queue: q}
}

// Generate 送出一次 chat completion，回傳第一個 choice
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	release, err := c.queue.Acquire(ctx, queue.ProviderLLM)
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		Post("/chat/completions")
	if err != nil {
		common.LogAICall(providerName, req.Model, time.Since(start), err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, provider.NewTransportError(err)
	}

	if resp.StatusCode() != http.StatusOK {
		pErr := classify(resp)
		common.LogAICall(providerName, req.Model, time.Since(start), pErr)
		common.LogError("AI service returned error status",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("model", req.Model),
			zap.String("kind", string(pErr.Kind)),
			zap.String("detail", common.Truncate(pErr.Detail, 512)),
		)
		return nil, pErr
	}

	var result chatResponse
	if err := common.ParseJSONBytes(resp.Body(), &result); err != nil {
		return nil, &provider.ProviderError{
			Kind:       provider.KindUpstream,
			StatusCode: resp.StatusCode(),
			Message:    "Provider returned an unreadable response.",
			Detail:     common.Truncate(resp.String(), 512),
			Err:        err,
		}
	}
	if len(result.Choices) == 0 {
		return nil, &provider.ProviderError{
			Kind:       provider.KindUpstream,
			StatusCode: resp.StatusCode(),
			Message:    "Provider returned no choices.",
		}
	}

	common.LogAICall(providerName, req.Model, time.Since(start), nil)

	model := result.Model
	if model == "" {
		model = req.Model
	}
	return &provider.Response{
		Model:        model,
		Content:      result.Choices[0].Message.Content,
		FinishReason: result.Choices[0].FinishReason,
		Usage:        result.Usage,
	}, nil
}

// Close 關閉客戶端
func (c *Client) Close() error {
	c.client.GetClient().CloseIdleConnections()
	return nil
}

func classify(resp *resty.Response) *provider.ProviderError {
	var body apiError
	message := resp.String()
	code := ""
	if err := common.ParseJSONBytes(resp.Body(), &body); err == nil && body.Error.Message != "" {
		message = body.Error.Message
		if body.Error.Code != nil {
			code = fmt.Sprint(body.Error.Code)
		} else {
			code = body.Error.Type
		}
	}
	return provider.ClassifyHTTPError(resp.StatusCode(), code, message, resp.Header())
}

var _ provider.Provider = (*Client)(nil)
