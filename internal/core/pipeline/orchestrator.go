// Package pipeline 依序執行影片到食譜的各個階段
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"video-recipe-generator/internal/core/ai/transcribe"
	"video-recipe-generator/internal/core/recipe"
	"video-recipe-generator/internal/core/video"
	"video-recipe-generator/internal/infrastructure/auth"
	"video-recipe-generator/internal/infrastructure/backend"
	"video-recipe-generator/internal/pkg/common"

	"go.uber.org/zap"
)

// State 流程狀態
type State string

const (
	StateDownloading           State = "downloading"
	StateExtractingAudio       State = "extracting_audio"
	StateTranscribing          State = "transcribing"
	StateExtractingIngredients State = "extracting_ingredients"
	StateGeneratingRecipe      State = "generating_recipe"
	StatePersisting            State = "persisting"
	StateDone                  State = "done"
	StateFailed                State = "failed"
	StateCanceled              State = "canceled"
)

// VideoFetcher 下載階段
type VideoFetcher interface {
	Fetch(ctx context.Context, url string) (*video.Info, error)
}

// AudioExtractor 音訊擷取階段
type AudioExtractor interface {
	Extract(ctx context.Context, videoPath string) (string, error)
}

// Transcriber 轉錄階段
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*transcribe.Transcript, error)
}

// IngredientExtractor 食材擷取階段，失敗時回傳 nil 清單
type IngredientExtractor interface {
	ExtractIngredients(ctx context.Context, transcript string, src recipe.Source) ([]recipe.ProvisionalIngredient, error)
}

// RecipeGenerator 食譜生成階段
type RecipeGenerator interface {
	GenerateRecipe(ctx context.Context, transcript string, src recipe.Source, ingredients []recipe.ProvisionalIngredient) (*recipe.Generation, error)
}

// Persister 儲存協作者
type Persister interface {
	Save(ctx context.Context, req backend.SaveRequest) (string, error)
}

// Stages 各階段的實作
type Stages struct {
	Fetcher     VideoFetcher
	Extractor   AudioExtractor
	Transcriber Transcriber
	Ingredients IngredientExtractor
	Generator   RecipeGenerator
	Persister   Persister
}

// Options 流程選項
type Options struct {
	// KeepFiles 保留下載的影片與音訊檔
	KeepFiles bool
	// OnState 狀態轉換時呼叫，可為 nil
	OnState func(State)
}

// Orchestrator 流程編排器，可同時服務多個請求
type Orchestrator struct {
	stages Stages
	opts   Options
}

// NewOrchestrator 創建編排器
func NewOrchestrator(stages Stages, opts Options) *Orchestrator {
	return &Orchestrator{stages: stages, opts: opts}
}

// run 單次執行的狀態
type run struct {
	o         *Orchestrator
	url       string
	requestID string
	state     State
	files     []string
	start     time.Time
}

// Run 執行完整流程並回傳後端配發的食譜 id。
// 階段失敗回傳 *StageError；ctx 結束回傳包住 ErrCanceled 的錯誤
func (o *Orchestrator) Run(ctx context.Context, url string, caller auth.Identity) (string, error) {
	r := &run{o: o, url: url, requestID: common.RequestIDFromContext(ctx), start: time.Now()}
	defer r.cleanup()

	id, err := r.execute(ctx, caller)
	if err != nil {
		var stageErr *StageError
		if errors.As(err, &stageErr) {
			r.enter(StateFailed)
			common.LogError("Recipe pipeline failed",
				zap.String("request_id", r.requestID),
				zap.String("url", url),
				zap.String("stage", string(stageErr.Stage)),
				zap.String("message", stageErr.Message),
				zap.Error(stageErr.Err),
			)
		} else {
			r.enter(StateCanceled)
			common.LogWarn("Recipe pipeline canceled",
				zap.String("request_id", r.requestID),
				zap.String("url", url),
				zap.Error(err),
			)
		}
		return "", err
	}

	r.enter(StateDone)
	common.LogInfo("Recipe pipeline finished",
		zap.String("request_id", r.requestID),
		zap.String("url", url),
		zap.String("recipe_id", id),
		zap.Duration("duration", time.Since(r.start)),
	)
	return id, nil
}

func (r *run) execute(ctx context.Context, caller auth.Identity) (string, error) {
	s := r.o.stages

	// 1. 下載影片
	r.enter(StateDownloading)
	info, err := s.Fetcher.Fetch(ctx, r.url)
	if err != nil {
		return "", r.fail(ctx, MsgDownloadFailed, err)
	}
	if info.Status == common.StatusError {
		return "", r.fail(ctx, MsgDownloadFailed, fmt.Errorf("%w: %s", video.ErrUnavailable, info.Message))
	}
	r.track(info.FilePath)

	// 2. 擷取音訊
	r.enter(StateExtractingAudio)
	audioPath, err := s.Extractor.Extract(ctx, info.FilePath)
	if err != nil {
		return "", r.fail(ctx, MsgExtractFailed, err)
	}
	r.track(audioPath)

	// 3. 轉錄
	r.enter(StateTranscribing)
	transcript, err := s.Transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return "", r.fail(ctx, MsgTranscribeFailed, err)
	}
	if transcript.Status == common.StatusError {
		var cause error = errors.New("transcription reported an error")
		if transcript.Err != nil {
			cause = transcript.Err
		}
		return "", r.fail(ctx, MsgTranscribeFailed, cause)
	}
	if strings.TrimSpace(transcript.Text) == "" {
		return "", r.fail(ctx, MsgTranscribeFailed, ErrEmptyTranscript)
	}

	src := recipe.Source{}
	if info.Metadata != nil {
		src.Description = info.Metadata.Description
		src.Comments = info.Metadata.Comments
	}

	// 4. 擷取食材，失敗時以 nil 繼續
	r.enter(StateExtractingIngredients)
	ingredients, err := s.Ingredients.ExtractIngredients(ctx, transcript.Text, src)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", canceled(r.state, ctxErr)
		}
		common.LogWarn("Ingredient extraction failed",
			zap.String("request_id", r.requestID),
			zap.Error(err),
		)
		ingredients = nil
	}
	if ingredients == nil {
		common.LogWarn("Generating recipe without extracted ingredients",
			zap.String("request_id", r.requestID),
			zap.String("url", r.url),
		)
	}

	// 5. 生成食譜
	r.enter(StateGeneratingRecipe)
	generation, err := s.Generator.GenerateRecipe(ctx, transcript.Text, src, ingredients)
	if err != nil {
		return "", r.fail(ctx, MsgGenerateFailed, err)
	}
	common.LogInfo("Recipe generated",
		zap.String("request_id", r.requestID),
		zap.String("model", generation.Metadata.Model),
		zap.Int("total_tokens", generation.Metadata.Usage.TotalTokens),
		zap.String("finish_reason", generation.Metadata.FinishReason),
	)

	// 6. 儲存
	r.enter(StatePersisting)
	if err := ctx.Err(); err != nil {
		return "", canceled(r.state, err)
	}
	thumbnail := ""
	if info.Metadata != nil {
		thumbnail = info.Metadata.ThumbnailURL
	}
	id, err := s.Persister.Save(ctx, backend.SaveRequest{
		Recipe:       generation.Recipe,
		ThumbnailURL: thumbnail,
		SourceURL:    r.url,
		Owner:        caller,
	})
	if err != nil {
		return "", r.fail(ctx, MsgSaveFailed, err)
	}
	return id, nil
}

// fail ctx 已結束時改回報取消
func (r *run) fail(ctx context.Context, message string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return canceled(r.state, ctxErr)
	}
	return &StageError{Stage: r.state, Message: message, Err: err}
}

func (r *run) enter(state State) {
	r.state = state
	common.LogDebug("Pipeline state",
		zap.String("request_id", r.requestID),
		zap.String("state", string(state)),
	)
	if r.o.opts.OnState != nil {
		r.o.opts.OnState(state)
	}
}

func (r *run) track(path string) {
	if path != "" {
		r.files = append(r.files, path)
	}
}

func (r *run) cleanup() {
	if r.o.opts.KeepFiles {
		return
	}
	for _, path := range r.files {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			common.LogWarn("Failed to remove working file",
				zap.String("path", path),
				zap.Error(err),
			)
		}
	}
}
