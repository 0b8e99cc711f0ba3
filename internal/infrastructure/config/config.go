package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 音訊擷取模式
const (
	ExtractorModeScript = "script"
	ExtractorModeFFmpeg = "ffmpeg"
)

// Config 應用配置
type Config struct {
	App         AppConfig       `mapstructure:"app"`
	Server      ServerConfig    `mapstructure:"server"`
	OpenAI      OpenAIConfig    `mapstructure:"openai"`
	Helpers     HelpersConfig   `mapstructure:"helpers"`
	Backend     BackendConfig   `mapstructure:"backend"`
	Auth        AuthConfig      `mapstructure:"auth"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Queue       QueueConfig     `mapstructure:"queue"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	DedupWindow time.Duration   `mapstructure:"dedup_window"`
	LogLevel    string          `mapstructure:"log_level"`
	LogFile     string          `mapstructure:"log_file"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
}

// OpenAIConfig 語音轉文字與語言模型供應商配置
type OpenAIConfig struct {
	APIKey                string        `mapstructure:"api_key"`
	BaseURL               string        `mapstructure:"base_url"`
	Timeout               time.Duration `mapstructure:"timeout"`
	TranscriptionModel    string        `mapstructure:"transcription_model"`
	IngredientModel       string        `mapstructure:"ingredient_model"`
	RecipeModel           string        `mapstructure:"recipe_model"`
	IngredientMaxTokens   int           `mapstructure:"ingredient_max_tokens"`
	RecipeMaxTokens       int           `mapstructure:"recipe_max_tokens"`
	IngredientTemperature float64       `mapstructure:"ingredient_temperature"`
	RecipeTemperature     float64       `mapstructure:"recipe_temperature"`
}

// HelpersConfig 外部輔助程式設定
type HelpersConfig struct {
	DownloaderCommand string   `mapstructure:"downloader_command"`
	DownloaderArgs    []string `mapstructure:"downloader_args"`
	ExtractorMode     string   `mapstructure:"extractor_mode"`
	ExtractorCommand  string   `mapstructure:"extractor_command"`
	ExtractorArgs     []string `mapstructure:"extractor_args"`
	FFmpegPath        string   `mapstructure:"ffmpeg_path"`
	AudioDir          string   `mapstructure:"audio_dir"`
	KeepFiles         bool     `mapstructure:"keep_files"`
}

// BackendConfig 食譜儲存後端設定
type BackendConfig struct {
	URL          string        `mapstructure:"url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	WaitAttempts uint          `mapstructure:"wait_attempts"`
}

// AuthConfig token 驗證服務設定
type AuthConfig struct {
	URL      string        `mapstructure:"url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	MaxSize         int           `mapstructure:"max_size"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// QueueConfig 各供應商的併發上限
type QueueConfig struct {
	SpeechConcurrency int `mapstructure:"speech_concurrency"`
	LLMConcurrency    int `mapstructure:"llm_concurrency"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LoadConfig 載入設定；configFile 為空時只讀 .env 與環境變數
func LoadConfig(configFile string) (*Config, error) {
	// .env 不存在時忽略，直接使用環境變數
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return Load(v)
}

// Load 使用指定的 viper 實例解析設定
func Load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定環境變量
	bindings := map[string]string{
		"openai.api_key":             "OPENAI_API_KEY",
		"openai.base_url":            "OPENAI_BASE_URL",
		"openai.recipe_model":        "OPENAI_RECIPE_MODEL",
		"openai.ingredient_model":    "OPENAI_INGREDIENT_MODEL",
		"openai.transcription_model": "OPENAI_TRANSCRIPTION_MODEL",
		"server.port":                "PORT",
		"helpers.downloader_command": "DOWNLOADER_COMMAND",
		"helpers.extractor_command":  "EXTRACTOR_COMMAND",
		"helpers.extractor_mode":     "EXTRACTOR_MODE",
		"backend.url":                "BACKEND_URL",
		"auth.url":                   "AUTH_URL",
		"cache.redis_addr":           "REDIS_ADDR",
		"rate_limit.enabled":         "RATE_LIMIT_ENABLED",
		"dedup_window":               "DEDUP_WINDOW",
		"log_level":                  "LOG_LEVEL",
		"log_file":                   "LOG_FILE",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// MaskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "video-recipe-generator")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")

	// 伺服器設定
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "6m")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "5m")
	v.SetDefault("server.max_body_bytes", 1<<20)

	// 供應商設定
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.timeout", "120s")
	v.SetDefault("openai.transcription_model", "whisper-1")
	v.SetDefault("openai.ingredient_model", "gpt-4o-mini")
	v.SetDefault("openai.recipe_model", "gpt-4o-mini")
	v.SetDefault("openai.ingredient_max_tokens", 1000)
	v.SetDefault("openai.recipe_max_tokens", 2000)
	v.SetDefault("openai.ingredient_temperature", 0.0)
	v.SetDefault("openai.recipe_temperature", 0.1)

	// 輔助程式設定
	v.SetDefault("helpers.downloader_command", "python3")
	v.SetDefault("helpers.downloader_args", []string{"-u", "scripts/downloader.py"})
	v.SetDefault("helpers.extractor_mode", ExtractorModeScript)
	v.SetDefault("helpers.extractor_command", "python3")
	v.SetDefault("helpers.extractor_args", []string{"-u", "scripts/extractor.py"})
	v.SetDefault("helpers.ffmpeg_path", "ffmpeg")
	v.SetDefault("helpers.audio_dir", "files/audio")
	v.SetDefault("helpers.keep_files", false)

	// 後端與驗證服務
	v.SetDefault("backend.url", "http://backend:8000")
	v.SetDefault("backend.timeout", "30s")
	v.SetDefault("backend.wait_attempts", 10)
	v.SetDefault("auth.url", "http://auth-service:8000")
	v.SetDefault("auth.timeout", "10s")
	v.SetDefault("auth.cache_ttl", "5m")

	// 快取設定
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.cleanup_interval", "10m")

	// 併發上限
	v.SetDefault("queue.speech_concurrency", 4)
	v.SetDefault("queue.llm_concurrency", 8)

	// 限流設定
	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.requests", 30)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("dedup_window", "0s")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 {
		return fmt.Errorf("server port is required")
	}
	if config.Server.RequestTimeout <= 0 {
		return fmt.Errorf("invalid server request timeout")
	}
	if strings.TrimSpace(config.OpenAI.APIKey) == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if config.Helpers.DownloaderCommand == "" {
		return fmt.Errorf("downloader command is required")
	}

	switch config.Helpers.ExtractorMode {
	case ExtractorModeScript:
		if config.Helpers.ExtractorCommand == "" {
			return fmt.Errorf("extractor command is required in %q mode", ExtractorModeScript)
		}
	case ExtractorModeFFmpeg:
		if config.Helpers.FFmpegPath == "" {
			return fmt.Errorf("ffmpeg path is required in %q mode", ExtractorModeFFmpeg)
		}
	default:
		return fmt.Errorf("unknown extractor mode %q", config.Helpers.ExtractorMode)
	}

	// 驗證快取設定
	if config.Cache.Enabled && config.Cache.RedisAddr == "" {
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	// 驗證併發上限
	if config.Queue.SpeechConcurrency <= 0 || config.Queue.LLMConcurrency <= 0 {
		return fmt.Errorf("invalid queue concurrency")
	}

	if config.RateLimit.Enabled && (config.RateLimit.Requests <= 0 || config.RateLimit.Window <= 0) {
		return fmt.Errorf("invalid rate limit")
	}

	return nil
}
