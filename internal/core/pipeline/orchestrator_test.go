package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"video-recipe-generator/internal/core/ai/provider"
	"video-recipe-generator/internal/core/ai/transcribe"
	"video-recipe-generator/internal/core/audio"
	"video-recipe-generator/internal/core/process"
	"video-recipe-generator/internal/core/recipe"
	"video-recipe-generator/internal/core/video"
	"video-recipe-generator/internal/infrastructure/auth"
	"video-recipe-generator/internal/infrastructure/backend"
	"video-recipe-generator/internal/pkg/common"
)

type fakeFetcher struct {
	info  *video.Info
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(context.Context, string) (*video.Info, error) {
	f.calls++
	return f.info, f.err
}

type fakeExtractor struct {
	path  string
	err   error
	calls int
}

func (f *fakeExtractor) Extract(context.Context, string) (string, error) {
	f.calls++
	return f.path, f.err
}

type fakeTranscriber struct {
	transcript *transcribe.Transcript
	err        error
	calls      int
}

func (f *fakeTranscriber) Transcribe(context.Context, string) (*transcribe.Transcript, error) {
	f.calls++
	return f.transcript, f.err
}

type fakeIngredients struct {
	ingredients []recipe.ProvisionalIngredient
	err         error
	calls       int
}

func (f *fakeIngredients) ExtractIngredients(context.Context, string, recipe.Source) ([]recipe.ProvisionalIngredient, error) {
	f.calls++
	return f.ingredients, f.err
}

type fakeGenerator struct {
	generation  *recipe.Generation
	err         error
	calls       int
	transcript  string
	ingredients []recipe.ProvisionalIngredient
}

func (f *fakeGenerator) GenerateRecipe(_ context.Context, transcript string, _ recipe.Source, ingredients []recipe.ProvisionalIngredient) (*recipe.Generation, error) {
	f.calls++
	f.transcript = transcript
	f.ingredients = ingredients
	return f.generation, f.err
}

type fakePersister struct {
	id    string
	err   error
	calls int
	req   backend.SaveRequest
}

func (f *fakePersister) Save(_ context.Context, req backend.SaveRequest) (string, error) {
	f.calls++
	f.req = req
	return f.id, f.err
}

type fixture struct {
	fetcher     *fakeFetcher
	extractor   *fakeExtractor
	transcriber *fakeTranscriber
	ingredients *fakeIngredients
	generator   *fakeGenerator
	persister   *fakePersister
	states      []State
}

func newFixture() *fixture {
	qty := "200g"
	return &fixture{
		fetcher: &fakeFetcher{info: &video.Info{
			Status:   common.StatusSuccess,
			FilePath: "/tmp/v.mp4",
			Metadata: &video.Metadata{Description: "bread", ExternalID: "v", Comments: []video.Comment{}, ThumbnailURL: "https://cdn/t.jpg"},
		}},
		extractor:   &fakeExtractor{path: "/tmp/a.wav"},
		transcriber: &fakeTranscriber{transcript: &transcribe.Transcript{Status: common.StatusSuccess, Text: "mix flour and water"}},
		ingredients: &fakeIngredients{ingredients: []recipe.ProvisionalIngredient{{Name: "flour", QuantityText: &qty}}},
		generator: &fakeGenerator{generation: &recipe.Generation{
			Recipe: &recipe.GeneratedRecipe{
				Title:         "Bread",
				DefaultServes: 2,
				Ingredients:   []recipe.Ingredient{{Name: "flour", Quantity: 200, Unit: "g"}},
				Method:        []recipe.Step{{Text: "Mix", StepNumber: 1}},
				Tags:          []string{"easy"},
			},
		}},
		persister: &fakePersister{id: "42"},
	}
}

func (f *fixture) orchestrator() *Orchestrator {
	return NewOrchestrator(Stages{
		Fetcher:     f.fetcher,
		Extractor:   f.extractor,
		Transcriber: f.transcriber,
		Ingredients: f.ingredients,
		Generator:   f.generator,
		Persister:   f.persister,
	}, Options{KeepFiles: true, OnState: func(s State) { f.states = append(f.states, s) }})
}

var caller = auth.Identity{ID: "user-1", Token: "tok"}

func TestRunSuccess(t *testing.T) {
	f := newFixture()

	id, err := f.orchestrator().Run(context.Background(), "https://video/1", caller)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if id != "42" {
		t.Errorf("id = %q, want 42", id)
	}
	if f.persister.calls != 1 {
		t.Errorf("persist calls = %d, want 1", f.persister.calls)
	}

	req := f.persister.req
	if req.ThumbnailURL != "https://cdn/t.jpg" || req.SourceURL != "https://video/1" || req.Owner != caller {
		t.Errorf("save request = %+v", req)
	}
	if f.generator.transcript != "mix flour and water" || len(f.generator.ingredients) != 1 {
		t.Errorf("generator inputs = %q %+v", f.generator.transcript, f.generator.ingredients)
	}

	want := []State{StateDownloading, StateExtractingAudio, StateTranscribing, StateExtractingIngredients, StateGeneratingRecipe, StatePersisting, StateDone}
	if len(f.states) != len(want) {
		t.Fatalf("states = %v", f.states)
	}
	for i := range want {
		if f.states[i] != want[i] {
			t.Fatalf("states = %v, want %v", f.states, want)
		}
	}
}

func TestRunContinuesWithoutIngredients(t *testing.T) {
	f := newFixture()
	f.ingredients.ingredients = nil

	if _, err := f.orchestrator().Run(context.Background(), "https://video/1", caller); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if f.generator.calls != 1 || f.generator.ingredients != nil {
		t.Errorf("generator calls = %d, ingredients = %v", f.generator.calls, f.generator.ingredients)
	}
}

func TestRunStageFailures(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(f *fixture)
		wantStage State
		wantMsg   string
		// 額外檢查
		check func(t *testing.T, f *fixture)
	}{
		{
			name: "downloader exits 1",
			mutate: func(f *fixture) {
				f.fetcher.info = nil
				f.fetcher.err = &video.FetchError{URL: "u", Reason: "downloader failed", Err: &process.ProcessError{Command: "python3", ExitCode: 1}}
			},
			wantStage: StateDownloading,
			wantMsg:   MsgDownloadFailed,
			check: func(t *testing.T, f *fixture) {
				if f.extractor.calls != 0 {
					t.Error("extractor should not run")
				}
			},
		},
		{
			name: "video unavailable",
			mutate: func(f *fixture) {
				f.fetcher.info = &video.Info{Status: common.StatusError, Message: "Private video"}
			},
			wantStage: StateDownloading,
			wantMsg:   MsgDownloadFailed,
			check: func(t *testing.T, f *fixture) {
				if f.extractor.calls != 0 {
					t.Error("extractor should not run")
				}
			},
		},
		{
			name: "audio markers missing",
			mutate: func(f *fixture) {
				f.extractor.err = &audio.ExtractionError{VideoPath: "/tmp/v.mp4", Err: audio.ErrMissingMarker}
			},
			wantStage: StateExtractingAudio,
			wantMsg:   MsgExtractFailed,
			check: func(t *testing.T, f *fixture) {
				if f.transcriber.calls != 0 {
					t.Error("transcriber should not run")
				}
			},
		},
		{
			name: "transcription error status",
			mutate: func(f *fixture) {
				f.transcriber.transcript = &transcribe.Transcript{Status: common.StatusError, Err: &transcribe.TranscriptionError{StatusCode: 400}}
			},
			wantStage: StateTranscribing,
			wantMsg:   MsgTranscribeFailed,
			check: func(t *testing.T, f *fixture) {
				if f.ingredients.calls != 0 || f.generator.calls != 0 {
					t.Error("language model stages should not run")
				}
			},
		},
		{
			name: "transcript empty",
			mutate: func(f *fixture) {
				f.transcriber.transcript = &transcribe.Transcript{Status: common.StatusSuccess, Text: "  \n "}
			},
			wantStage: StateTranscribing,
			wantMsg:   MsgTranscribeFailed,
			check: func(t *testing.T, f *fixture) {
				if f.ingredients.calls != 0 || f.generator.calls != 0 {
					t.Error("language model stages should not run")
				}
			},
		},
		{
			name: "recipe rate limited",
			mutate: func(f *fixture) {
				f.generator.generation = nil
				f.generator.err = provider.ClassifyHTTPError(429, "", "Rate limit reached", nil)
			},
			wantStage: StateGeneratingRecipe,
			wantMsg:   MsgGenerateFailed,
		},
		{
			name: "recipe unparseable",
			mutate: func(f *fixture) {
				f.generator.generation = nil
				f.generator.err = &recipe.GenerationError{Err: &recipe.ParseError{Stage: "recipe", Err: errors.New("bad json")}}
			},
			wantStage: StateGeneratingRecipe,
			wantMsg:   MsgGenerateFailed,
		},
		{
			name: "save fails",
			mutate: func(f *fixture) {
				f.persister.err = errors.New("failed to save recipe: 500")
			},
			wantStage: StatePersisting,
			wantMsg:   MsgSaveFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.mutate(f)

			id, err := f.orchestrator().Run(context.Background(), "https://video/1", caller)
			if id != "" {
				t.Errorf("id = %q, want empty", id)
			}
			var stageErr *StageError
			if !errors.As(err, &stageErr) {
				t.Fatalf("error = %v, want *StageError", err)
			}
			if stageErr.Stage != tt.wantStage || stageErr.Message != tt.wantMsg {
				t.Errorf("stage error = %s / %q", stageErr.Stage, stageErr.Message)
			}
			if tt.wantStage != StatePersisting && f.persister.calls != 0 {
				t.Errorf("persist calls = %d, want 0", f.persister.calls)
			}
			if f.states[len(f.states)-1] != StateFailed {
				t.Errorf("final state = %s", f.states[len(f.states)-1])
			}
			if tt.check != nil {
				tt.check(t, f)
			}
		})
	}
}

func TestRunKeepsTypedGeneratorError(t *testing.T) {
	f := newFixture()
	f.generator.generation = nil
	f.generator.err = provider.ClassifyHTTPError(429, "", "Rate limit reached", nil)

	_, err := f.orchestrator().Run(context.Background(), "https://video/1", caller)
	if !errors.Is(err, provider.ErrRateLimited) {
		t.Fatalf("error = %v, want rate limited", err)
	}
	if !strings.Contains(err.Error(), "Try again in a few minutes") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestRunCanceled(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	f.extractor.err = context.Canceled
	f.fetcher.err = nil

	orch := NewOrchestrator(Stages{
		Fetcher:     &cancelingFetcher{fakeFetcher: f.fetcher, cancel: cancel},
		Extractor:   f.extractor,
		Transcriber: f.transcriber,
		Ingredients: f.ingredients,
		Generator:   f.generator,
		Persister:   f.persister,
	}, Options{KeepFiles: true})

	_, err := orch.Run(ctx, "https://video/1", caller)
	if !errors.Is(err, ErrCanceled) || !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want ErrCanceled", err)
	}
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		t.Fatalf("cancellation must not be reported as a stage failure: %v", err)
	}
	if f.transcriber.calls != 0 || f.persister.calls != 0 {
		t.Error("later stages should not run after cancellation")
	}
}

type cancelingFetcher struct {
	*fakeFetcher
	cancel context.CancelFunc
}

func (c *cancelingFetcher) Fetch(ctx context.Context, url string) (*video.Info, error) {
	info, err := c.fakeFetcher.Fetch(ctx, url)
	c.cancel()
	return info, err
}

func TestRunRemovesWorkingFiles(t *testing.T) {
	dir := t.TempDir()
	videoPath := filepath.Join(dir, "v.mp4")
	audioPath := filepath.Join(dir, "a.wav")
	for _, p := range []string{videoPath, audioPath} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	f := newFixture()
	f.fetcher.info.FilePath = videoPath
	f.extractor.path = audioPath
	f.persister.err = errors.New("down")

	orch := NewOrchestrator(Stages{
		Fetcher:     f.fetcher,
		Extractor:   f.extractor,
		Transcriber: f.transcriber,
		Ingredients: f.ingredients,
		Generator:   f.generator,
		Persister:   f.persister,
	}, Options{})

	if _, err := orch.Run(context.Background(), "https://video/1", caller); err == nil {
		t.Fatal("expected error")
	}
	for _, p := range []string{videoPath, audioPath} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("%s should be removed, stat err = %v", p, err)
		}
	}
}

func TestRunUnavailableVideoKeepsReason(t *testing.T) {
	f := newFixture()
	f.fetcher.info = &video.Info{Status: common.StatusError, Message: "Private video"}

	_, err := f.orchestrator().Run(context.Background(), "https://video/1", caller)
	if !errors.Is(err, video.ErrUnavailable) {
		t.Fatalf("error = %v, want video.ErrUnavailable", err)
	}
	if !strings.Contains(err.Error(), "Private video") {
		t.Errorf("error = %q, want downloader message", err.Error())
	}
}

func TestRunEmptyTranscriptSkipsModel(t *testing.T) {
	f := newFixture()
	f.transcriber.transcript = &transcribe.Transcript{Status: common.StatusSuccess, Text: ""}

	id, err := f.orchestrator().Run(context.Background(), "https://video/1", caller)
	if id != "" || !errors.Is(err, ErrEmptyTranscript) {
		t.Fatalf("Run() = %q, %v; want ErrEmptyTranscript", id, err)
	}
	if f.generator.calls != 0 || f.persister.calls != 0 {
		t.Errorf("generator calls = %d, persist calls = %d, want 0", f.generator.calls, f.persister.calls)
	}
}
