// Package generator drives the learned grammar-correction model. Backends
// implement Generator; Grammar turns one into a correction stage.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Strategy selects how the model decodes its output.
type Strategy string

const (
	// BeamSearch keeps NumBeams hypotheses and is deterministic for a fixed
	// input and model.
	BeamSearch Strategy = "beam_search"
	// Sampling draws from the top-k / top-p filtered distribution and is not
	// deterministic.
	Sampling Strategy = "sampling"
)

var (
	// ErrInvalidDecoding is wrapped by every DecodingConfig validation failure.
	ErrInvalidDecoding = errors.New("generator: invalid decoding config")
	// ErrUnavailable is wrapped by backends when the model is loading,
	// overloaded or rate limited.
	ErrUnavailable = errors.New("generator: model unavailable")
)

// ParseStrategy accepts the canonical names plus "beam" and "sample".
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "beam_search", "beam", "beamsearch":
		return BeamSearch, nil
	case "sampling", "sample":
		return Sampling, nil
	default:
		return "", fmt.Errorf("%w: unknown strategy %q", ErrInvalidDecoding, s)
	}
}

// DecodingConfig is the fixed decoding policy of a loaded model.
type DecodingConfig struct {
	MaxNewTokens      int      `mapstructure:"max_new_tokens" yaml:"max_new_tokens" json:"max_new_tokens"`
	Strategy          Strategy `mapstructure:"strategy" yaml:"strategy" json:"strategy"`
	NumBeams          int      `mapstructure:"num_beams" yaml:"num_beams,omitempty" json:"num_beams,omitempty"`
	EarlyStopping     bool     `mapstructure:"early_stopping" yaml:"early_stopping,omitempty" json:"early_stopping,omitempty"`
	TopK              int      `mapstructure:"top_k" yaml:"top_k,omitempty" json:"top_k,omitempty"`
	TopP              float64  `mapstructure:"top_p" yaml:"top_p,omitempty" json:"top_p,omitempty"`
	RepetitionPenalty float64  `mapstructure:"repetition_penalty" yaml:"repetition_penalty,omitempty" json:"repetition_penalty,omitempty"`
}

// Validate checks the fields that matter for the selected strategy.
func (c DecodingConfig) Validate() error {
	if c.MaxNewTokens < 1 || c.MaxNewTokens > 1024 {
		return fmt.Errorf("%w: max_new_tokens must be in [1, 1024], got %d", ErrInvalidDecoding, c.MaxNewTokens)
	}
	if c.RepetitionPenalty < 0 {
		return fmt.Errorf("%w: repetition_penalty must not be negative", ErrInvalidDecoding)
	}
	switch c.Strategy {
	case BeamSearch:
		if c.NumBeams < 1 {
			return fmt.Errorf("%w: num_beams must be at least 1", ErrInvalidDecoding)
		}
	case Sampling:
		if c.TopK < 0 {
			return fmt.Errorf("%w: top_k must not be negative", ErrInvalidDecoding)
		}
		if c.TopP <= 0 || c.TopP > 1 {
			return fmt.Errorf("%w: top_p must be in (0, 1], got %g", ErrInvalidDecoding, c.TopP)
		}
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidDecoding, c.Strategy)
	}
	return nil
}

// Generator produces text from a prompt under a decoding policy.
type Generator interface {
	Generate(ctx context.Context, prompt string, cfg DecodingConfig) (string, error)
}

// Func adapts a plain function to Generator.
type Func func(ctx context.Context, prompt string, cfg DecodingConfig) (string, error)

// Generate implements Generator.
func (f Func) Generate(ctx context.Context, prompt string, cfg DecodingConfig) (string, error) {
	return f(ctx, prompt, cfg)
}

// Echo returns the prompt unchanged, minus prefix. It stands in for a model
// during offline development.
type Echo struct {
	Prefix string
}

// Generate implements Generator.
func (e Echo) Generate(ctx context.Context, prompt string, _ DecodingConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return strings.TrimPrefix(prompt, e.Prefix), nil
}
