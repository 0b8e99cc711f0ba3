package recipe

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"video-recipe-generator/internal/api/middleware"
	"video-recipe-generator/internal/api/response"
	"video-recipe-generator/internal/core/ai/provider"
	"video-recipe-generator/internal/infrastructure/auth"
	"video-recipe-generator/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PipelineRunner 執行影片到食譜的流程
type PipelineRunner interface {
	Run(ctx context.Context, url string, caller auth.Identity) (string, error)
}

// GenerateRequest POST /recipe 請求
type GenerateRequest struct {
	URL *string `json:"url"`
}

// GenerateResult 成功時的 result 欄位
type GenerateResult struct {
	RecipeID string `json:"recipeId"`
}

// Handler 食譜生成處理程序
type Handler struct {
	pipeline PipelineRunner
}

// NewHandler 創建新的食譜處理程序
func NewHandler(pipeline PipelineRunner) *Handler {
	return &Handler{pipeline: pipeline}
}

// HandleGenerate 從影片網址生成並儲存食譜
func (h *Handler) HandleGenerate(c *gin.Context) {
	requestID := requestid.Get(c)

	identity := middleware.IdentityFrom(c)
	if identity == nil {
		response.Error(c, common.ErrUnauthorized)
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.Error(c, common.ErrBodyTooLarge)
			return
		}
		response.Error(c, common.ErrInvalidRequest)
		return
	}

	var req GenerateRequest
	if err := common.ParseJSONBytes(body, &req); err != nil {
		common.LogWarn("請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		response.Error(c, common.ErrInvalidRequest)
		return
	}
	if req.URL == nil || strings.TrimSpace(*req.URL) == "" {
		response.Error(c, common.ErrMissingURL)
		return
	}
	videoURL := strings.TrimSpace(*req.URL)
	if !isHTTPURL(videoURL) {
		response.Error(c, common.ErrInvalidRequest)
		return
	}

	common.LogInfo("開始處理食譜生成請求",
		zap.String("request_id", requestID),
		zap.String("url", videoURL),
		zap.String("caller_id", identity.ID),
	)

	ctx := common.WithRequestID(c.Request.Context(), requestID)
	recipeID, err := h.pipeline.Run(ctx, videoURL, *identity)
	if err != nil {
		// 詳細原因只寫入日誌
		common.LogError("食譜生成失敗",
			zap.Error(err),
			zap.String("request_id", requestID),
			zap.String("url", videoURL),
			zap.Bool("retryable", retryable(err)),
		)
		if errors.Is(err, context.DeadlineExceeded) {
			response.Error(c, common.ErrGatewayTimeout.WithErr(err))
			return
		}
		response.Error(c, common.ErrInternalError.WithErr(err))
		return
	}

	response.Result(c, "Recipe generated successfully!", GenerateResult{RecipeID: recipeID})
}

// retryable 供應商暫時性錯誤（限流、連線）稍後重送可能成功
func retryable(err error) bool {
	var pErr *provider.ProviderError
	return errors.As(err, &pErr) && pErr.Retryable()
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
