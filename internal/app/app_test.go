package app_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gramfix/internal/app"
	"gramfix/internal/config"
	"gramfix/internal/dictfile"
	"gramfix/internal/generator"
	"gramfix/internal/generator/mock"
	"gramfix/internal/platform/logger"
	kit "gramfix/internal/platform/testkit"
)

const dictionary = `she 500000000
go 200000000
goes 60000000
to 12000000000
school 150000000
every 300000000
day 400000000
is 9000000000
great 300000000
`

type staticWords []string

func (w staticWords) All(context.Context) ([]string, error) { return w, nil }

type failingWords struct{}

func (failingWords) All(context.Context) ([]string, error) { return nil, errors.New("redis down") }

func quiet() app.Option {
	l := logger.New(logger.Options{Level: "disabled", Writer: io.Discard})
	return app.WithLogger(&l)
}

// testConfig returns an offline config: echo backend, local dictionary, no metrics.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dict.txt")
	if err := os.WriteFile(path, []byte(dictionary), 0o600); err != nil {
		t.Fatalf("write dictionary: %v", err)
	}
	cfg := config.DefaultConfig()
	cfg.Dictionary.Path = path
	cfg.Dictionary.Fetch = false
	cfg.Generator.Backend = "echo"
	cfg.Metrics.Enabled = false
	cfg.Server.Addr = "127.0.0.1:0"
	return cfg
}

func newApp(t *testing.T, cfg *config.Config, opts ...app.Option) *app.App {
	t.Helper()
	a, err := app.New(context.Background(), cfg, append([]app.Option{quiet()}, opts...)...)
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })
	return a
}

func TestNew_Offline(t *testing.T) {
	a := newApp(t, testConfig(t))
	if a.Corrector().WordCount() != 9 {
		t.Fatalf("WordCount = %d, want 9", a.Corrector().WordCount())
	}
	out, err := a.SmokeCheck(context.Background())
	if err != nil {
		t.Fatalf("SmokeCheck: %v", err)
	}
	if out != "She go school every day" {
		t.Fatalf("smoke output = %q", out)
	}
}

func TestNew_CustomWords(t *testing.T) {
	a := newApp(t, testConfig(t), app.WithWordSource(staticWords{"GramFix"}))
	res, err := a.Pipeline().Correct(context.Background(), "gramfx is great")
	if err != nil {
		t.Fatalf("Correct: %v", err)
	}
	if res.CorrectedText != "Gramfix is great" {
		t.Fatalf("CorrectedText = %q", res.CorrectedText)
	}
}

func TestNew_WordSourceFailureIsNotFatal(t *testing.T) {
	a := newApp(t, testConfig(t), app.WithWordSource(failingWords{}))
	if a.Corrector().WordCount() != 9 {
		t.Fatalf("WordCount = %d", a.Corrector().WordCount())
	}
}

func TestNew_UnreachableRedisIsNotFatal(t *testing.T) {
	cfg := testConfig(t)
	cfg.CustomWords.Enabled = true
	cfg.CustomWords.Addr = "127.0.0.1:1"
	newApp(t, cfg)
}

func TestNew_ProfileReachesBackend(t *testing.T) {
	cfg := testConfig(t)
	p, _ := generator.LookupProfile("t5-fix")
	cfg.Generator.PromptPrefix = p.PromptPrefix
	cfg.Decoding = p.Decoding

	m := &mock.Generator{Output: "he doesn't have money"}
	a := newApp(t, cfg, app.WithBackend(m))
	res, err := a.Pipeline().Correct(context.Background(), "he dont has money")
	if err != nil {
		t.Fatalf("Correct: %v", err)
	}
	if res.CorrectedText != "He doesn't have money" {
		t.Fatalf("CorrectedText = %q", res.CorrectedText)
	}
	call, _ := m.LastCall()
	if call.Prompt != "fix: he dont has money" {
		t.Fatalf("prompt = %q", call.Prompt)
	}
	if call.Config.Strategy != generator.Sampling || call.Config.TopK != 50 {
		t.Fatalf("decoding = %+v", call.Config)
	}
}

func TestNew_FetchesMissingDictionary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, dictionary)
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.Dictionary.Path = filepath.Join(t.TempDir(), "fetched.txt")
	cfg.Dictionary.URL = srv.URL
	cfg.Dictionary.Fetch = true
	d := &dictfile.Downloader{Client: srv.Client(), Attempts: 1, Delay: time.Millisecond}

	a := newApp(t, cfg, app.WithDownloader(d))
	if a.Corrector().WordCount() != 9 {
		t.Fatalf("WordCount = %d", a.Corrector().WordCount())
	}
}

func TestNew_MissingDictionary(t *testing.T) {
	cfg := testConfig(t)
	cfg.Dictionary.Path = filepath.Join(t.TempDir(), "absent.txt")
	_, err := app.New(context.Background(), cfg, quiet())
	if err == nil {
		t.Fatal("expected error")
	}
	kit.MustContain(t, err.Error(), "init spell corrector")
}

func TestNew_MetricsEndpoint(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Enabled = true
	a := newApp(t, cfg)
	h := a.Server().Handler()

	req := httptest.NewRequest(http.MethodPost, "/spellcheck", strings.NewReader(`{"text":"she go school"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /spellcheck = %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d", rec.Code)
	}
	kit.MustContain(t, rec.Body.String(), "gramfix_corrections")
	kit.MustContain(t, rec.Body.String(), "gramfix_stage_duration")
}

func TestNewBackend(t *testing.T) {
	cases := []struct {
		name    string
		cfg     config.GeneratorConfig
		wantErr bool
	}{
		{"echo", config.GeneratorConfig{Backend: "echo"}, false},
		{"hf", config.GeneratorConfig{Backend: "hf", Model: "prithivida/grammar_error_correcter_v1", Timeout: time.Second}, false},
		{"hf without model", config.GeneratorConfig{Backend: "hf"}, true},
		{"openai", config.GeneratorConfig{Backend: "openai", Model: "gpt-4o-mini", Token: "sk-test"}, false},
		{"openai without key", config.GeneratorConfig{Backend: "openai", Model: "gpt-4o-mini"}, true},
		{"unknown", config.GeneratorConfig{Backend: "onnx"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g, err := app.NewBackend(tc.cfg)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil || g == nil {
				t.Fatalf("NewBackend: %v", err)
			}
		})
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	a := newApp(t, testConfig(t))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
