package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"video-recipe-generator/internal/core/recipe"
	"video-recipe-generator/internal/infrastructure/auth"
)

func testRecipe() *recipe.GeneratedRecipe {
	return &recipe.GeneratedRecipe{
		Title:         "Bread",
		DefaultServes: 2,
		Ingredients:   []recipe.Ingredient{{Name: "flour", Quantity: 200, Unit: "g"}},
		Method:        []recipe.Step{{Text: "Mix", StepNumber: 1}},
		Tags:          []string{"easy"},
	}
}

func TestSave(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/recipes" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 42}`))
	}))
	defer srv.Close()

	id, err := NewClient(srv.URL, time.Second).Save(context.Background(), SaveRequest{
		Recipe:       testRecipe(),
		ThumbnailURL: "https://cdn/t.jpg",
		SourceURL:    "https://video/1",
		Owner:        auth.Identity{ID: "user-1", Token: "tok"},
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if id != "42" {
		t.Errorf("id = %q, want 42", id)
	}

	for key, want := range map[string]interface{}{
		"title":          "Bread",
		"thumbnailUrl":   "https://cdn/t.jpg",
		"downloadedFrom": "https://video/1",
		"userId":         "user-1",
		"defaultServes":  float64(2),
	} {
		if body[key] != want {
			t.Errorf("body[%s] = %v, want %v", key, body[key], want)
		}
	}
	if _, ok := body["method"].([]interface{}); !ok {
		t.Errorf("method missing from body: %v", body)
	}
}

func TestSaveFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "server error", status: 500, body: `{}`},
		{name: "no id", status: 200, body: `{"ok":true}`, wantErr: ErrMissingID},
		{name: "not json", status: 200, body: `created`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, time.Second).Save(context.Background(), SaveRequest{Recipe: testRecipe()})
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveNestedID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"id":"abc"}}`))
	}))
	defer srv.Close()

	id, err := NewClient(srv.URL, time.Second).Save(context.Background(), SaveRequest{Recipe: testRecipe()})
	if err != nil || id != "abc" {
		t.Fatalf("Save() = %q, %v", id, err)
	}
}

func TestWaitReady(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	if err := NewClient(srv.URL, time.Second).WaitReady(context.Background(), 3, time.Millisecond); err != nil {
		t.Fatalf("WaitReady() error = %v", err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Errorf("hits = %d, want 1", atomic.LoadInt32(&hits))
	}
}

func TestWaitReadyGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	if err := NewClient(url, 100*time.Millisecond).WaitReady(context.Background(), 2, time.Millisecond); err == nil {
		t.Fatal("expected error for unreachable backend")
	}
}
