// Package audio 從影片檔分離出音訊檔
package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"video-recipe-generator/internal/core/process"
	"video-recipe-generator/internal/pkg/common"

	"go.uber.org/zap"
)

// 擷取程式在 stdout 中包住檔案路徑的標記
const (
	StartMarker = "%SFP"
	EndMarker   = "%EFP"
)

var (
	ErrMissingMarker = errors.New("audio path markers not found")
	ErrMarkerOrder   = errors.New("end marker precedes start marker")
	ErrEmptyPath     = errors.New("audio path is empty")
	ErrMultiplePaths = errors.New("more than one audio path emitted")
)

// Extractor 音訊擷取介面
type Extractor interface {
	Extract(ctx context.Context, videoPath string) (string, error)
}

// ExtractionError 音訊擷取失敗
type ExtractionError struct {
	VideoPath string
	Err       error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("audio extraction failed for %s: %v", e.VideoPath, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// ParseAudioPath 從輸出中取出唯一一組標記之間的路徑
func ParseAudioPath(stdout string) (string, error) {
	start := strings.Index(stdout, StartMarker)
	end := strings.Index(stdout, EndMarker)
	if start < 0 || end < 0 {
		return "", ErrMissingMarker
	}
	if end < start {
		return "", ErrMarkerOrder
	}

	path := strings.TrimSpace(stdout[start+len(StartMarker) : end])
	if path == "" {
		return "", ErrEmptyPath
	}

	rest := stdout[end+len(EndMarker):]
	if strings.Contains(rest, StartMarker) || strings.Contains(rest, EndMarker) {
		return "", ErrMultiplePaths
	}
	return path, nil
}

// ScriptExtractor 呼叫外部擷取程式，路徑以 %SFP...%EFP 回傳
type ScriptExtractor struct {
	runner  process.Runner
	command string
	args    []string
}

// NewScriptExtractor 創建腳本擷取器
func NewScriptExtractor(runner process.Runner, command string, args []string) *ScriptExtractor {
	return &ScriptExtractor{
		runner:  runner,
		command: command,
		args:    append([]string(nil), args...),
	}
}

// Extract 執行擷取程式並解析音訊路徑
func (e *ScriptExtractor) Extract(ctx context.Context, videoPath string) (string, error) {
	args := append(append([]string(nil), e.args...), videoPath)

	out, err := e.runner.Run(ctx, e.command, args...)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &ExtractionError{VideoPath: videoPath, Err: err}
	}

	path, err := ParseAudioPath(out.Stdout)
	if err != nil {
		common.LogDebug("extractor output rejected",
			zap.String("video_path", videoPath),
			zap.String("stdout", common.Truncate(out.Stdout, 512)),
		)
		return "", &ExtractionError{VideoPath: videoPath, Err: err}
	}
	return path, nil
}

// FFmpegExtractor 直接用 ffmpeg 轉出 16kHz 單聲道 WAV
type FFmpegExtractor struct {
	runner   process.Runner
	ffmpeg   string
	audioDir string
}

// NewFFmpegExtractor 創建 ffmpeg 擷取器
func NewFFmpegExtractor(runner process.Runner, ffmpegPath, audioDir string) *FFmpegExtractor {
	return &FFmpegExtractor{runner: runner, ffmpeg: ffmpegPath, audioDir: audioDir}
}

// Extract 轉檔到 audioDir 下以 uuid 命名的檔案
func (e *FFmpegExtractor) Extract(ctx context.Context, videoPath string) (string, error) {
	if err := os.MkdirAll(e.audioDir, 0o755); err != nil {
		return "", &ExtractionError{VideoPath: videoPath, Err: err}
	}

	out := filepath.Join(e.audioDir, common.GenerateUUID()+".wav")
	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-i", videoPath,
		"-vn", "-ac", "1", "-ar", "16000",
		"-c:a", "pcm_s16le",
		out,
	}

	if _, err := e.runner.Run(ctx, e.ffmpeg, args...); err != nil {
		_ = os.Remove(out)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &ExtractionError{VideoPath: videoPath, Err: err}
	}
	return out, nil
}

var (
	_ Extractor = (*ScriptExtractor)(nil)
	_ Extractor = (*FFmpegExtractor)(nil)
)
