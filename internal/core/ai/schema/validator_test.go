package schema

import (
	"strings"
	"testing"
)

const pointSchema = `{
	"type": "object",
	"required": ["x", "y"],
	"properties": {
		"x": {"type": "number"},
		"y": {"type": "number"}
	}
}`

func TestValidateJSON(t *testing.T) {
	v := MustCompile("point", []byte(pointSchema))

	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{name: "valid", doc: `{"x": 1, "y": 2.5}`},
		{name: "missing field", doc: `{"x": 1}`, wantErr: "point does not match schema"},
		{name: "wrong type", doc: `{"x": "1", "y": 2}`, wantErr: "point does not match schema"},
		{name: "not json", doc: `x=1`, wantErr: "failed to decode point"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateJSON([]byte(tt.doc))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestCompileInvalidSchema(t *testing.T) {
	if _, err := Compile("broken", []byte(`{"type": 12}`)); err == nil {
		t.Fatal("expected compile error")
	}
}
