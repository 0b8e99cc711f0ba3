// Package schema 以 JSON Schema 驗證模型輸出
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validator 已編譯的 schema，可併發使用
type Validator struct {
	name   string
	schema *jsonschema.Schema
}

// Compile 編譯 schema 文件
func Compile(name string, raw []byte) (*Validator, error) {
	resource := name + ".json"

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(resource, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("failed to load %s schema: %w", name, err)
	}
	compiled, err := compiler.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s schema: %w", name, err)
	}
	return &Validator{name: name, schema: compiled}, nil
}

// MustCompile 同 Compile，失敗時 panic。僅用於套件層級的常數 schema
func MustCompile(name string, raw []byte) *Validator {
	v, err := Compile(name, raw)
	if err != nil {
		panic(err)
	}
	return v
}

// Validate 驗證已解析的文件
func (v *Validator) Validate(doc any) error {
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("%s does not match schema: %w", v.name, err)
	}
	return nil
}

// ValidateJSON 解析並驗證原始 JSON
func (v *Validator) ValidateJSON(raw []byte) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to decode %s for validation: %w", v.name, err)
	}
	return v.Validate(doc)
}
