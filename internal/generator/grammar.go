package generator

import (
	"context"
	"fmt"
	"strings"
)

// Grammar is the generative correction stage: it prepends the model's prompt
// prefix, calls the backend once and falls back to the input when the model
// returns nothing.
type Grammar struct {
	gen    Generator
	prefix string
	cfg    DecodingConfig
}

// NewGrammar validates cfg and binds it to gen. The prefix belongs to the
// model, so it is fixed here rather than passed per request.
func NewGrammar(gen Generator, prefix string, cfg DecodingConfig) (*Grammar, error) {
	if gen == nil {
		return nil, fmt.Errorf("generator: nil backend")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Grammar{gen: gen, prefix: prefix, cfg: cfg}, nil
}

// Correct runs a single generation for text. There are no retries.
func (g *Grammar) Correct(ctx context.Context, text string) (string, error) {
	out, err := g.gen.Generate(ctx, g.prefix+text, g.cfg)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return text, nil
	}
	return out, nil
}

// Config returns the decoding policy.
func (g *Grammar) Config() DecodingConfig { return g.cfg }

// Prefix returns the prompt prefix.
func (g *Grammar) Prefix() string { return g.prefix }

// Name identifies the grammar model as a pipeline stage.
func (g *Grammar) Name() string { return "grammar" }

// Apply runs Correct as a pipeline stage.
func (g *Grammar) Apply(ctx context.Context, text string) (string, error) {
	return g.Correct(ctx, text)
}
