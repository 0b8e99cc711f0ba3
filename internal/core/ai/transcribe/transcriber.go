// Package transcribe 將音訊檔上傳至語音轉文字服務
package transcribe

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"video-recipe-generator/internal/core/ai/provider"
	"video-recipe-generator/internal/core/ai/queue"
	"video-recipe-generator/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const providerName = "speech"

// TranscriptionError 語音服務回應非 2xx 或連線失敗
type TranscriptionError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TranscriptionError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("transcription request failed: %v", e.Err)
	case e.StatusCode > 0:
		return fmt.Sprintf("transcription failed with status %d: %s", e.StatusCode, common.Truncate(e.Body, 512))
	default:
		return "transcription failed: " + common.Truncate(e.Body, 512)
	}
}

func (e *TranscriptionError) Unwrap() error {
	return e.Err
}

// Transcript 轉錄結果。Status 為 error 時 Err 帶有原因
type Transcript struct {
	Status common.Status       `json:"status"`
	Text   string              `json:"text,omitempty"`
	Err    *TranscriptionError `json:"-"`
}

// Transcriber 語音轉文字客戶端
type Transcriber struct {
	client *resty.Client
	model  string
	queue  *queue.Manager
}

// NewTranscriber 創建轉錄器；queue 可為 nil
func NewTranscriber(cfg provider.Config, model string, q *queue.Manager) *Transcriber {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetAuthToken(cfg.APIKey).
		SetTimeout(timeout)

	return &Transcriber{client: client, model: model, queue: q}
}

// Transcribe 上傳音訊並取回原始轉錄文字。只有 ctx 結束時回傳 error
func (t *Transcriber) Transcribe(ctx context.Context, audioPath string) (*Transcript, error) {
	release, err := t.queue.Acquire(ctx, queue.ProviderSpeech)
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	resp, err := t.client.R().
		SetContext(ctx).
		SetFile("file", audioPath).
		SetFormData(map[string]string{"model": t.model}).
		Post("/audio/transcriptions")
	if err != nil {
		common.LogAICall(providerName, t.model, time.Since(start), err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return failed(&TranscriptionError{Err: err}), nil
	}

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		tErr := &TranscriptionError{StatusCode: resp.StatusCode(), Body: resp.String()}
		common.LogAICall(providerName, t.model, time.Since(start), tErr)
		return failed(tErr), nil
	}

	var result struct {
		Text *string `json:"text"`
	}
	if err := common.ParseJSONBytes(resp.Body(), &result); err != nil || result.Text == nil {
		tErr := &TranscriptionError{StatusCode: resp.StatusCode(), Body: "response has no text field"}
		common.LogAICall(providerName, t.model, time.Since(start), tErr)
		return failed(tErr), nil
	}

	common.LogAICall(providerName, t.model, time.Since(start), nil)
	common.LogDebug("Transcription received",
		zap.String("audio_path", audioPath),
		zap.Int("text_length", len(*result.Text)),
	)
	return &Transcript{Status: common.StatusSuccess, Text: *result.Text}, nil
}

func failed(err *TranscriptionError) *Transcript {
	return &Transcript{Status: common.StatusError, Err: err}
}
