package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"video-recipe-generator/internal/api/response"
	"video-recipe-generator/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// sweepThreshold 記錄數超過此值時順便清掉過期指紋
const sweepThreshold = 1024

type deduplicator struct {
	mu       sync.Mutex
	window   time.Duration
	requests map[string]time.Time
}

// Deduplication 同一呼叫者在 window 內重送相同內容時回 429。需放在 BearerAuth 之後
func Deduplication(window time.Duration) gin.HandlerFunc {
	d := &deduplicator{
		window:   window,
		requests: make(map[string]time.Time),
	}

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost || c.Request.Body == nil {
			c.Next()
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
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		// 生成請求指紋
		callerID := ""
		if identity := IdentityFrom(c); identity != nil {
			callerID = identity.ID
		}
		fingerprint := callerID + ":" + c.Request.URL.Path + ":" + common.HashString(string(body))

		if d.seen(fingerprint, time.Now()) {
			common.LogWarn("Duplicate request rejected",
				zap.String("caller_id", callerID),
				zap.String("path", c.Request.URL.Path),
			)
			response.Error(c, common.ErrTooManyRequests)
			return
		}

		c.Next()
	}
}

// seen 檢查並記錄指紋
func (d *deduplicator) seen(fingerprint string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.requests[fingerprint]; ok && now.Sub(last) <= d.window {
		return true
	}
	d.requests[fingerprint] = now

	if len(d.requests) > sweepThreshold {
		for k, t := range d.requests {
			if now.Sub(t) > d.window {
				delete(d.requests, k)
			}
		}
	}
	return false
}
