package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"video-recipe-generator/internal/core/pipeline"
	"video-recipe-generator/internal/infrastructure/auth"
	"video-recipe-generator/internal/pkg/common"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	generateToken string
	generateUser  string
	generateKeep  bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <url>",
	Short: "Run the pipeline once for a video URL",
	Long: `Run the full pipeline once from the terminal and print the saved recipe id.

The token is sent to the backend as the owner's credential. When --user is
omitted the token is verified first to resolve the owner id.

Examples:
  video-recipe-generator generate https://www.tiktok.com/@chef/video/123 --token $TOKEN
  video-recipe-generator generate <url> --token $TOKEN --user 42 --keep-files`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		url := strings.TrimSpace(args[0])

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		defer common.Sync()
		if generateKeep {
			cfg.Helpers.KeepFiles = true
		}

		a, err := newApp(ctx, cfg, func(s pipeline.State) {
			fmt.Fprintf(cmd.ErrOrStderr(), "-> %s\n", s)
		})
		if err != nil {
			return err
		}
		defer a.Close()

		caller, err := resolveCaller(ctx, a.verifier, generateToken, generateUser)
		if err != nil {
			return err
		}

		ctx = common.WithRequestID(ctx, common.GenerateUUID())
		id, err := a.orchestrator.Run(ctx, url, caller)
		if err != nil {
			var stageErr *pipeline.StageError
			if errors.As(err, &stageErr) {
				common.LogError("生成失敗", zap.Error(err))
				return errors.New(stageErr.Message)
			}
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

// resolveCaller 指定 --user 時直接使用，否則透過驗證服務取得身分
func resolveCaller(ctx context.Context, verifier auth.Verifier, token, user string) (auth.Identity, error) {
	if token == "" {
		return auth.Identity{}, errors.New("--token is required")
	}
	if user != "" {
		return auth.Identity{ID: user, Token: token}, nil
	}
	identity, err := verifier.Verify(ctx, token)
	if err != nil {
		return auth.Identity{}, fmt.Errorf("token verification failed: %w", err)
	}
	return *identity, nil
}

func init() {
	generateCmd.Flags().StringVar(&generateToken, "token", "", "caller bearer token")
	generateCmd.Flags().StringVar(&generateUser, "user", "", "owner id; skips token verification")
	generateCmd.Flags().BoolVar(&generateKeep, "keep-files", false, "keep downloaded video and audio files")

	rootCmd.AddCommand(generateCmd)
}
