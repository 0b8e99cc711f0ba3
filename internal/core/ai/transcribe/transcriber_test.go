package transcribe

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"video-recipe-generator/internal/core/ai/provider"
	"video-recipe-generator/internal/pkg/common"
)

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "a.wav")
	if err := os.WriteFile(path, []byte("RIFF-fake-audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTranscriber(t *testing.T, handler http.HandlerFunc) *Transcriber {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewTranscriber(provider.Config{APIKey: "sk-test", BaseURL: srv.URL}, "whisper-1", nil)
}

func TestTranscribeSuccess(t *testing.T) {
	audio := writeAudio(t)
	tr := newTranscriber(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		if r.FormValue("model") != "whisper-1" {
			t.Errorf("model = %q", r.FormValue("model"))
		}
		f, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if header.Filename != "a.wav" || string(data) != "RIFF-fake-audio" {
			t.Errorf("file = %s %q", header.Filename, data)
		}
		_, _ = w.Write([]byte(`{"text":"  mix flour and water "}`))
	})

	got, err := tr.Transcribe(context.Background(), audio)
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if got.Status != common.StatusSuccess {
		t.Fatalf("status = %q, err = %v", got.Status, got.Err)
	}
	if got.Text != "  mix flour and water " {
		t.Errorf("text = %q, want untouched transcript", got.Text)
	}
}

func TestTranscribeUpstreamError(t *testing.T) {
	tr := newTranscriber(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid file format."}}`))
	})

	got, err := tr.Transcribe(context.Background(), writeAudio(t))
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if got.Status != common.StatusError || got.Err == nil {
		t.Fatalf("transcript = %+v, want error status", got)
	}
	if got.Err.StatusCode != http.StatusBadRequest {
		t.Errorf("status code = %d", got.Err.StatusCode)
	}
	if got.Text != "" {
		t.Errorf("text = %q", got.Text)
	}
}

func TestTranscribeMissingText(t *testing.T) {
	tr := newTranscriber(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"language":"it"}`))
	})
	got, err := tr.Transcribe(context.Background(), writeAudio(t))
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if got.Status != common.StatusError {
		t.Fatalf("status = %q, want error", got.Status)
	}
}

func TestTranscribeNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	tr := NewTranscriber(provider.Config{APIKey: "k", BaseURL: url}, "whisper-1", nil)
	got, err := tr.Transcribe(context.Background(), writeAudio(t))
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if got.Status != common.StatusError || got.Err == nil || got.Err.Err == nil {
		t.Fatalf("transcript = %+v, want network error", got)
	}
}

func TestTranscribeCanceled(t *testing.T) {
	tr := newTranscriber(t, func(w http.ResponseWriter, r *http.Request) {})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tr.Transcribe(ctx, writeAudio(t))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}
