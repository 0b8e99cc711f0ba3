package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"video-recipe-generator/internal/api"
	"video-recipe-generator/internal/pkg/common"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	servePort       int
	shutdownTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server exposing POST /recipe.

The server provides:
  - POST /recipe - generate and save a recipe from a video URL
  - /health      - runtime and provider queue status
  - /ready       - readiness check (includes cache status)
  - /live        - liveness check`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		defer common.Sync()
		if servePort > 0 {
			cfg.Server.Port = servePort
		}

		a, err := newApp(ctx, cfg, nil)
		if err != nil {
			common.LogError("Failed to initialize services", zap.Error(err))
			return err
		}
		defer a.Close()

		// 後端尚未啟動時先等待，失敗只記錄，由每個請求自行回報
		if cfg.Backend.WaitAttempts > 0 {
			if err := a.backend.WaitReady(ctx, cfg.Backend.WaitAttempts, 2*time.Second); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				common.LogWarn("Backend is not reachable, continuing anyway",
					zap.String("backend_url", cfg.Backend.URL),
					zap.Error(err),
				)
			}
		}

		router, err := api.SetupRouter(cfg, api.Dependencies{
			Pipeline: a.orchestrator,
			Verifier: a.verifier,
			Cache:    a.store,
			Queue:    a.queue,
		})
		if err != nil {
			common.LogError("Failed to setup router", zap.Error(err))
			return err
		}

		srv := &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		}

		errCh := make(chan error, 1)
		go func() {
			common.LogInfo("啟動應用",
				zap.String("version", Version),
				zap.String("env", cfg.App.Env),
				zap.Int("port", cfg.Server.Port),
				zap.Bool("debug", cfg.App.Debug),
			)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err, ok := <-errCh:
			if ok {
				common.LogError("Failed to start server", zap.Error(err))
				return err
			}
			return nil
		case <-ctx.Done():
		}

		common.LogInfo("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			common.LogError("Server forced to shutdown", zap.Error(err))
			return err
		}

		common.LogInfo("Server exited")
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (overrides PORT)")
	serveCmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 30*time.Second, "grace period for in-flight requests")

	rootCmd.AddCommand(serveCmd)
}
