package generator_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gramfix/internal/generator"
	"gramfix/internal/generator/mock"
)

func beam() generator.DecodingConfig {
	p, _ := generator.LookupProfile(generator.DefaultProfile)
	return p.Decoding
}

func TestDecodingConfig_Validate(t *testing.T) {
	sampling := generator.DecodingConfig{MaxNewTokens: 128, Strategy: generator.Sampling, TopK: 50, TopP: 0.95}
	cases := []struct {
		name string
		mut  func(*generator.DecodingConfig)
		base generator.DecodingConfig
		ok   bool
	}{
		{"beam default", func(*generator.DecodingConfig) {}, beam(), true},
		{"sampling default", func(*generator.DecodingConfig) {}, sampling, true},
		{"zero tokens", func(c *generator.DecodingConfig) { c.MaxNewTokens = 0 }, beam(), false},
		{"too many tokens", func(c *generator.DecodingConfig) { c.MaxNewTokens = 5000 }, beam(), false},
		{"no beams", func(c *generator.DecodingConfig) { c.NumBeams = 0 }, beam(), false},
		{"top_p zero", func(c *generator.DecodingConfig) { c.TopP = 0 }, sampling, false},
		{"top_p above one", func(c *generator.DecodingConfig) { c.TopP = 1.5 }, sampling, false},
		{"negative top_k", func(c *generator.DecodingConfig) { c.TopK = -1 }, sampling, false},
		{"negative penalty", func(c *generator.DecodingConfig) { c.RepetitionPenalty = -1 }, beam(), false},
		{"unknown strategy", func(c *generator.DecodingConfig) { c.Strategy = "greedy" }, beam(), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.base
			tc.mut(&cfg)
			err := cfg.Validate()
			if tc.ok && err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if !tc.ok && !errors.Is(err, generator.ErrInvalidDecoding) {
				t.Fatalf("Validate err = %v, want ErrInvalidDecoding", err)
			}
		})
	}
}

func TestParseStrategy(t *testing.T) {
	for in, want := range map[string]generator.Strategy{
		"beam_search": generator.BeamSearch,
		"Beam":        generator.BeamSearch,
		"sampling":    generator.Sampling,
		" sample ":    generator.Sampling,
	} {
		got, err := generator.ParseStrategy(in)
		if err != nil || got != want {
			t.Fatalf("ParseStrategy(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := generator.ParseStrategy("greedy"); err == nil {
		t.Fatalf("expected error for unknown strategy")
	}
}

func TestGrammar_PrefixAndConfig(t *testing.T) {
	m := &mock.Generator{Output: "  She goes to school every day.  "}
	g, err := generator.NewGrammar(m, "fix: ", beam())
	if err != nil {
		t.Fatalf("NewGrammar: %v", err)
	}
	got, err := g.Correct(context.Background(), "she go school every day")
	if err != nil {
		t.Fatalf("Correct: %v", err)
	}
	if got != "She goes to school every day." {
		t.Fatalf("Correct = %q", got)
	}
	call, ok := m.LastCall()
	if !ok || call.Prompt != "fix: she go school every day" {
		t.Fatalf("prompt = %q", call.Prompt)
	}
	if call.Config != beam() {
		t.Fatalf("config = %+v, want %+v", call.Config, beam())
	}
	if g.Name() != "grammar" || g.Prefix() != "fix: " {
		t.Fatalf("Name/Prefix = %q/%q", g.Name(), g.Prefix())
	}
}

func TestGrammar_EmptyOutputFallsBack(t *testing.T) {
	m := &mock.Generator{Output: "   "}
	g, _ := generator.NewGrammar(m, "", beam())
	got, err := g.Apply(context.Background(), "he dont has money")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got != "he dont has money" {
		t.Fatalf("Apply = %q, want the input back", got)
	}
}

func TestGrammar_SingleAttemptOnError(t *testing.T) {
	boom := errors.New("backend down")
	m := &mock.Generator{Err: boom}
	g, _ := generator.NewGrammar(m, "", beam())
	if _, err := g.Correct(context.Background(), "x"); !errors.Is(err, boom) {
		t.Fatalf("Correct err = %v, want backend error", err)
	}
	if m.CallCount() != 1 {
		t.Fatalf("backend called %d times, want 1", m.CallCount())
	}
}

func TestNewGrammar_Rejects(t *testing.T) {
	if _, err := generator.NewGrammar(nil, "", beam()); err == nil {
		t.Fatalf("expected error for nil backend")
	}
	if _, err := generator.NewGrammar(&mock.Generator{}, "", generator.DecodingConfig{}); err == nil {
		t.Fatalf("expected error for invalid decoding config")
	}
}

func TestEcho(t *testing.T) {
	got, err := generator.Echo{Prefix: "fix: "}.Generate(context.Background(), "fix: text", beam())
	if err != nil || got != "text" {
		t.Fatalf("Echo = %q, %v", got, err)
	}
}

func TestFunc(t *testing.T) {
	f := generator.Func(func(_ context.Context, prompt string, _ generator.DecodingConfig) (string, error) {
		return prompt + "!", nil
	})
	if got, _ := f.Generate(context.Background(), "hi", beam()); got != "hi!" {
		t.Fatalf("Func = %q", got)
	}
}

func TestLimit_SerializesCalls(t *testing.T) {
	var inFlight, peak atomic.Int32
	slow := generator.Func(func(ctx context.Context, prompt string, _ generator.DecodingConfig) (string, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return prompt, nil
	})

	g := generator.Limit(slow, 1)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := g.Generate(context.Background(), "x", beam()); err != nil {
				t.Errorf("Generate: %v", err)
			}
		}()
	}
	wg.Wait()
	if peak.Load() != 1 {
		t.Fatalf("peak concurrency = %d, want 1", peak.Load())
	}
}

func TestLimit_ContextCancelledWhileWaiting(t *testing.T) {
	release := make(chan struct{})
	blocking := generator.Func(func(ctx context.Context, prompt string, _ generator.DecodingConfig) (string, error) {
		<-release
		return prompt, nil
	})
	g := generator.Limit(blocking, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = g.Generate(context.Background(), "first", beam())
	}()
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := g.Generate(ctx, "second", beam()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("waiting caller err = %v, want deadline exceeded", err)
	}
	close(release)
	<-done
}

func TestLimit_Unlimited(t *testing.T) {
	m := &mock.Generator{}
	if generator.Limit(m, 0) != generator.Generator(m) {
		t.Fatalf("Limit(n<=0) should return the backend unchanged")
	}
}

func TestProfiles(t *testing.T) {
	names := generator.ProfileNames()
	if len(names) != 3 {
		t.Fatalf("ProfileNames = %v", names)
	}
	for _, n := range names {
		p, ok := generator.LookupProfile(n)
		if !ok || p.Name != n {
			t.Fatalf("LookupProfile(%q) = %+v, %v", n, p, ok)
		}
		if err := p.Decoding.Validate(); err != nil {
			t.Fatalf("profile %s: %v", n, err)
		}
	}

	bart, _ := generator.LookupProfile("bart-gec")
	if bart.PromptPrefix != "" || bart.Decoding.NumBeams != 4 || bart.Decoding.MaxNewTokens != 80 || !bart.Decoding.EarlyStopping {
		t.Fatalf("bart-gec = %+v", bart)
	}
	t5, _ := generator.LookupProfile("t5-fix")
	if t5.PromptPrefix != "fix: " || t5.Decoding.Strategy != generator.Sampling {
		t.Fatalf("t5-fix = %+v", t5)
	}
	alt, _ := generator.LookupProfile("t5-fix-spell-first")
	if alt.StageOrder != "spell_then_grammar" || alt.Decoding.RepetitionPenalty != 2.5 {
		t.Fatalf("t5-fix-spell-first = %+v", alt)
	}
	if _, ok := generator.LookupProfile("nope"); ok {
		t.Fatalf("unknown profile found")
	}
}
