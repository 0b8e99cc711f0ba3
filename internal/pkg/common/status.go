package common

import "strings"

// Status 階段回報的業務結果
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// ParseStatus 不分大小寫解析狀態，空值視為成功
func ParseStatus(raw string) Status {
	if strings.EqualFold(strings.TrimSpace(raw), string(StatusError)) {
		return StatusError
	}
	return StatusSuccess
}
