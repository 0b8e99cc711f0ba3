package main

import (
	"fmt"

	"video-recipe-generator/internal/infrastructure/config"
	"video-recipe-generator/internal/pkg/common"

	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "video-recipe-generator",
	Short: "Turn cooking videos into structured recipes",
	Long: `Downloads a short cooking video, transcribes its audio and asks a
language model to write a structured recipe, which is then saved to the
recipe backend on behalf of the caller.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (yaml/json/toml); environment variables still apply",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)",
	)

	rootCmd.AddCommand(versionCmd)
}

// loadConfig 載入設定並初始化 logger
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	if err := common.InitLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}
