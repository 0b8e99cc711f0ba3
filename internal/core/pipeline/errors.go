package pipeline

import (
	"errors"
	"fmt"
)

// 各階段失敗時對外的訊息
const (
	MsgDownloadFailed   = "Video downloading failed"
	MsgExtractFailed    = "Audio extracting failed"
	MsgTranscribeFailed = "Audio transcription failed"
	MsgGenerateFailed   = "Recipe generation failed"
	MsgSaveFailed       = "Recipe saving failed"
)

var (
	// ErrCanceled 流程因 ctx 結束而中止，與階段失敗分開處理
	ErrCanceled = errors.New("pipeline canceled")
	// ErrEmptyTranscript 語音服務成功回應但沒有任何文字（例如純音樂影片）
	ErrEmptyTranscript = errors.New("transcript is empty")
)

// StageError 第一個失敗的階段與原因
type StageError struct {
	Stage   State
	Message string
	Err     error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func canceled(stage State, err error) error {
	return fmt.Errorf("%w during %s: %w", ErrCanceled, stage, err)
}
