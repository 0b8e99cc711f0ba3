package api

import (
	"errors"
	"time"

	"video-recipe-generator/internal/api/handlers/health"
	recipeHandler "video-recipe-generator/internal/api/handlers/recipe"
	"video-recipe-generator/internal/api/middleware"
	"video-recipe-generator/internal/api/response"
	"video-recipe-generator/internal/core/ai/queue"
	"video-recipe-generator/internal/infrastructure/auth"
	"video-recipe-generator/internal/infrastructure/config"
	"video-recipe-generator/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependencies 路由需要的協作者
type Dependencies struct {
	Pipeline recipeHandler.PipelineRunner
	Verifier auth.Verifier
	// Cache 就緒檢查用，可為 nil
	Cache health.Pinger
	Queue *queue.Manager
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) (*gin.Engine, error) {
	if deps.Pipeline == nil || deps.Verifier == nil {
		return nil, errors.New("pipeline and verifier are required")
	}

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.NoRoute(func(c *gin.Context) {
		response.Error(c, common.ErrNotFound)
	})
	router.NoMethod(func(c *gin.Context) {
		response.Error(c, common.ErrMethodNotAllowed)
	})

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New()) // 自動生成請求 ID
	router.Use(middleware.Logger())

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))

	// 健康檢查路由
	healthHandler := health.NewHandler(cfg.App.Version, deps.Cache, deps.Queue)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	// 食譜生成：逾時 -> 限流 -> 驗證 -> 去重 -> handler
	chain := []gin.HandlerFunc{middleware.Timeout(cfg.Server.RequestTimeout)}
	if cfg.RateLimit.Enabled {
		chain = append(chain, middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	chain = append(chain, middleware.BearerAuth(deps.Verifier))
	if cfg.DedupWindow > 0 {
		chain = append(chain, middleware.Deduplication(cfg.DedupWindow))
	}
	chain = append(chain, recipeHandler.NewHandler(deps.Pipeline).HandleGenerate)
	router.POST("/recipe", chain...)

	common.LogInfo("Router setup completed successfully",
		zap.Duration("request_timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Duration("dedup_window", cfg.DedupWindow),
	)

	return router, nil
}
