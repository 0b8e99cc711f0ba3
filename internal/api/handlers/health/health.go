package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"video-recipe-generator/internal/core/ai/queue"
	"video-recipe-generator/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger 可被探測的依賴（快取）
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatsReporter 可回報統計的快取（記憶體快取）
type StatsReporter interface {
	GetStats() map[string]interface{}
}

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime"`
	Queue     []queue.Status         `json:"queue,omitempty"`
	Cache     map[string]interface{} `json:"cache,omitempty"`
}

// Handler 健康檢查處理程序
type Handler struct {
	version string
	cache   Pinger
	queue   *queue.Manager
}

// NewHandler 創建健康檢查處理程序；cache 與 q 可為 nil
func NewHandler(version string, cache Pinger, q *queue.Manager) *Handler {
	return &Handler{version: version, cache: cache, queue: q}
}

// HealthCheck 回報執行期資訊與各供應商的併發狀態
func (h *Handler) HealthCheck(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	resp := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
	}
	if h.queue != nil {
		resp.Queue = h.queue.GetQueueStatus()
	}
	if stats, ok := h.cache.(StatsReporter); ok {
		resp.Cache = stats.GetStats()
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)

	c.JSON(http.StatusOK, resp)
}

// ReadinessCheck 快取無法連線時回 503
func (h *Handler) ReadinessCheck(c *gin.Context) {
	if h.cache != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.cache.Ping(ctx); err != nil {
			common.LogWarn("就緒檢查失敗", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
				"code":   common.ErrCodeServiceUnavailable,
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// LivenessCheck 存活檢查處理器
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
