// Package video 透過外部下載程式取得影片檔與其中繼資料
package video

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"video-recipe-generator/internal/core/process"
	"video-recipe-generator/internal/pkg/common"

	"go.uber.org/zap"
)

// Comment 平台留言
type Comment struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

// Metadata 影片中繼資料
type Metadata struct {
	Description  string    `json:"description"`
	ExternalID   string    `json:"externalId"`
	Comments     []Comment `json:"comments"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
}

// Info 下載結果。Status 為 error 時只有 Message 有值
type Info struct {
	Status   common.Status `json:"status"`
	FilePath string        `json:"filePath,omitempty"`
	Metadata *Metadata     `json:"metadata,omitempty"`
	Message  string        `json:"message,omitempty"`
}

// ErrUnavailable 下載程式回報影片無法取得（私人、已刪除等）
var ErrUnavailable = errors.New("video unavailable")

// FetchError 下載階段的硬性失敗（程式失敗或輸出格式錯誤）
type FetchError struct {
	URL    string
	Reason string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("video fetch failed for %s: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("video fetch failed for %s: %s", e.URL, e.Reason)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// downloaderPayload 下載程式輸出的 JSON（yt-dlp info 的子集）
type downloaderPayload struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	ID           string `json:"id"`
	DisplayID    string `json:"display_id"`
	Description  string `json:"description"`
	Thumbnail    string `json:"thumbnail"`
	ThumbnailURL string `json:"thumbnail_url"`
	Filepath     string `json:"filepath"`
	Comments     []struct {
		Author string `json:"author"`
		Text   string `json:"text"`
	} `json:"comments"`
}

// Fetcher 影片下載器
type Fetcher struct {
	runner  process.Runner
	command string
	args    []string
}

// NewFetcher 創建影片下載器；args 會放在 URL 之前
func NewFetcher(runner process.Runner, command string, args []string) *Fetcher {
	return &Fetcher{
		runner:  runner,
		command: command,
		args:    append([]string(nil), args...),
	}
}

// Fetch 下載影片並解析中繼資料
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Info, error) {
	args := append(append([]string(nil), f.args...), url)

	out, err := f.runner.Run(ctx, f.command, args...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &FetchError{URL: url, Reason: "downloader failed", Err: err}
	}

	var payload downloaderPayload
	if err := common.ParseJSON(strings.TrimSpace(out.Stdout), &payload); err != nil {
		common.LogDebug("downloader output is not valid JSON",
			zap.String("url", url),
			zap.String("stdout", common.Truncate(out.Stdout, 512)),
		)
		return nil, &FetchError{URL: url, Reason: "malformed downloader output", Err: err}
	}

	if common.ParseStatus(payload.Status) == common.StatusError {
		common.LogWarn("video unavailable",
			zap.String("url", url),
			zap.String("message", payload.Message),
		)
		return &Info{Status: common.StatusError, Message: payload.Message}, nil
	}

	if strings.TrimSpace(payload.Filepath) == "" {
		return nil, &FetchError{URL: url, Reason: "downloader output has no filepath"}
	}

	return &Info{
		Status:   common.StatusSuccess,
		FilePath: payload.Filepath,
		Metadata: extractMetadata(&payload),
	}, nil
}

// extractMetadata 純投影，不做任何推斷
func extractMetadata(p *downloaderPayload) *Metadata {
	comments := make([]Comment, 0, len(p.Comments))
	for _, c := range p.Comments {
		comments = append(comments, Comment{Author: c.Author, Text: c.Text})
	}

	id := p.DisplayID
	if id == "" {
		id = p.ID
	}
	thumbnail := p.Thumbnail
	if thumbnail == "" {
		thumbnail = p.ThumbnailURL
	}

	return &Metadata{
		Description:  p.Description,
		ExternalID:   id,
		Comments:     comments,
		ThumbnailURL: thumbnail,
	}
}

// FormatComments 將留言攤平成提示詞可用的文字
func FormatComments(comments []Comment) string {
	if len(comments) == 0 {
		return ""
	}
	lines := make([]string, 0, len(comments))
	for _, c := range comments {
		text := strings.TrimSpace(c.Text)
		if text == "" {
			continue
		}
		if c.Author != "" {
			lines = append(lines, fmt.Sprintf("- %s: %s", c.Author, text))
		} else {
			lines = append(lines, "- "+text)
		}
	}
	return strings.Join(lines, "\n")
}
