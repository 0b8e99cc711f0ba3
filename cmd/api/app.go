package main

import (
	"context"
	"fmt"

	"video-recipe-generator/internal/core/ai/openai"
	"video-recipe-generator/internal/core/ai/provider"
	"video-recipe-generator/internal/core/ai/queue"
	"video-recipe-generator/internal/core/ai/transcribe"
	"video-recipe-generator/internal/core/audio"
	"video-recipe-generator/internal/core/pipeline"
	"video-recipe-generator/internal/core/process"
	"video-recipe-generator/internal/core/recipe"
	"video-recipe-generator/internal/core/video"
	"video-recipe-generator/internal/infrastructure/auth"
	"video-recipe-generator/internal/infrastructure/backend"
	"video-recipe-generator/internal/infrastructure/cache"
	"video-recipe-generator/internal/infrastructure/config"
	"video-recipe-generator/internal/pkg/common"

	"go.uber.org/zap"
)

// app 組裝完成的服務元件
type app struct {
	cfg          *config.Config
	orchestrator *pipeline.Orchestrator
	verifier     auth.Verifier
	store        cache.Store
	queue        *queue.Manager
	backend      *backend.Client
	llm          provider.Provider
}

// newApp 依設定建立所有協作者；onState 可為 nil
func newApp(ctx context.Context, cfg *config.Config, onState func(pipeline.State)) (*app, error) {
	a := &app{cfg: cfg}

	common.LogInfo("載入設定",
		zap.String("openai_api_key", config.MaskAPIKey(cfg.OpenAI.APIKey)),
		zap.String("openai_base_url", cfg.OpenAI.BaseURL),
		zap.String("recipe_model", cfg.OpenAI.RecipeModel),
		zap.String("extractor_mode", cfg.Helpers.ExtractorMode),
	)

	store, err := newStore(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}
	a.store = store

	a.queue = queue.NewManager(map[string]int{
		queue.ProviderSpeech: cfg.Queue.SpeechConcurrency,
		queue.ProviderLLM:    cfg.Queue.LLMConcurrency,
	})

	var verifier auth.Verifier = auth.NewHTTPVerifier(cfg.Auth.URL, cfg.Auth.Timeout)
	if a.store != nil && cfg.Auth.CacheTTL > 0 {
		verifier = auth.NewCachedVerifier(verifier, a.store, cfg.Auth.CacheTTL)
	}
	a.verifier = verifier

	providerCfg := provider.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Timeout: cfg.OpenAI.Timeout,
	}
	a.llm = openai.NewClient(providerCfg, a.queue)
	a.backend = backend.NewClient(cfg.Backend.URL, cfg.Backend.Timeout)

	runner := process.NewExecRunner("")

	var extractor audio.Extractor
	switch cfg.Helpers.ExtractorMode {
	case config.ExtractorModeFFmpeg:
		extractor = audio.NewFFmpegExtractor(runner, cfg.Helpers.FFmpegPath, cfg.Helpers.AudioDir)
	default:
		extractor = audio.NewScriptExtractor(runner, cfg.Helpers.ExtractorCommand, cfg.Helpers.ExtractorArgs)
	}

	a.orchestrator = pipeline.NewOrchestrator(pipeline.Stages{
		Fetcher:     video.NewFetcher(runner, cfg.Helpers.DownloaderCommand, cfg.Helpers.DownloaderArgs),
		Extractor:   extractor,
		Transcriber: transcribe.NewTranscriber(providerCfg, cfg.OpenAI.TranscriptionModel, a.queue),
		Ingredients: recipe.NewIngredientService(a.llm, recipe.GenerationOptions{
			Model:       cfg.OpenAI.IngredientModel,
			MaxTokens:   cfg.OpenAI.IngredientMaxTokens,
			Temperature: cfg.OpenAI.IngredientTemperature,
		}),
		Generator: recipe.NewRecipeService(a.llm, recipe.GenerationOptions{
			Model:       cfg.OpenAI.RecipeModel,
			MaxTokens:   cfg.OpenAI.RecipeMaxTokens,
			Temperature: cfg.OpenAI.RecipeTemperature,
		}),
		Persister: a.backend,
	}, pipeline.Options{
		KeepFiles: cfg.Helpers.KeepFiles,
		OnState:   onState,
	})

	return a, nil
}

// newStore 依設定選擇 Redis 或記憶體快取；關閉時回傳 nil
func newStore(ctx context.Context, cfg config.CacheConfig) (cache.Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.RedisAddr == "" {
		return cache.NewManager(cfg.MaxSize, cfg.CleanupInterval), nil
	}

	store, err := cache.NewRedisStore(ctx, cache.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Prefix:   "video-recipe:",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis cache: %w", err)
	}
	common.LogInfo("快取管理員已初始化",
		zap.String("backend", cache.BackendRedis),
		zap.String("addr", cfg.RedisAddr),
	)
	return store, nil
}

// Close 釋放外部連線
func (a *app) Close() {
	if a.llm != nil {
		if err := a.llm.Close(); err != nil {
			common.LogWarn("Failed to close provider client", zap.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			common.LogWarn("Failed to close cache", zap.Error(err))
		}
	}
}
