package recipe

import "fmt"

// ParseError 模型回應無法解析或不符合 schema
type ParseError struct {
	Stage   string
	Content string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s response: %v", e.Stage, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// GenerationError 食譜階段無法產生結構化食譜，不可繼續
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("recipe generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
