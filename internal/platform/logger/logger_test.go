package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	kit "gramfix/internal/platform/testkit"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"trace", "trace"},
		{"debug", "debug"},
		{"info", "info"},
		{"warn", "warn"},
		{"warning", "warn"},
		{"error", "error"},
		{"fatal", "fatal"},
		{"panic", "panic"},
		{"off", "disabled"},
		{"", "info"},
		{"  nonsense ", "info"},
	}
	for _, c := range cases {
		if got := ParseLevel(c.in).String(); got != c.want {
			t.Fatalf("ParseLevel(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNew_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{
		Level:        "debug",
		Format:       "json",
		Service:      "gramfix-test",
		Component:    "unit",
		Writer:       &buf,
		StaticFields: map[string]string{"build": "test"},
	})
	log.Debug().Str("k", "v").Msg("hello")

	out := buf.String()
	kit.MustContain(t, out, `"service":"gramfix-test"`)
	kit.MustContain(t, out, `"component":"unit"`)
	kit.MustContain(t, out, `"build":"test"`)
	kit.MustContain(t, out, `"k":"v"`)
	kit.MustContain(t, out, `"message":"hello"`)
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "warn", Format: "json", Writer: &buf})
	log.Info().Msg("dropped")
	log.Warn().Msg("kept")
	if strings.Contains(buf.String(), "dropped") {
		t.Fatalf("info line should be filtered at warn level: %s", buf.String())
	}
	kit.MustContain(t, buf.String(), "kept")
}

func TestWithRequest(t *testing.T) {
	ctx := WithRequest(context.Background(), "req-123")
	if got := RequestID(ctx); got != "req-123" {
		t.Fatalf("RequestID = %q, want req-123", got)
	}
	if got := RequestID(WithRequest(context.Background(), "")); got != "" {
		t.Fatalf("empty id should not be stored, got %q", got)
	}
	// exercise only, the root logger may already be initialised elsewhere
	C(ctx).Debug().Msg("ctx")
	Named("api").Debug().Msg("named")
}
