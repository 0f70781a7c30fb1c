// Package pipeline composes the grammar and spelling stages into a single
// correction call: trim, two stages in the configured order, fallback on
// empty stage output, then normalization of the final text.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"gramfix/internal/generator"
	perr "gramfix/internal/platform/errors"
	"gramfix/internal/platform/logger"
)

// StageOrder selects which stage runs first.
type StageOrder string

const (
	// GrammarThenSpell runs the generative model first, then the dictionary.
	GrammarThenSpell StageOrder = "grammar_then_spell"
	// SpellThenGrammar runs the dictionary first. Retained alternate, not the default.
	SpellThenGrammar StageOrder = "spell_then_grammar"
)

// ParseStageOrder accepts the canonical names; empty means GrammarThenSpell.
func ParseStageOrder(s string) (StageOrder, error) {
	switch StageOrder(strings.ToLower(strings.TrimSpace(s))) {
	case GrammarThenSpell, "":
		return GrammarThenSpell, nil
	case SpellThenGrammar:
		return SpellThenGrammar, nil
	default:
		return "", fmt.Errorf("pipeline: unknown stage order %q", s)
	}
}

// Stage transforms text. Implementations must be safe for concurrent use.
type Stage interface {
	Name() string
	Apply(ctx context.Context, text string) (string, error)
}

// Metrics receives pipeline measurements.
type Metrics interface {
	RecordStage(ctx context.Context, stage string, d time.Duration)
	RecordFallback(ctx context.Context, stage string)
	RecordCorrection(ctx context.Context, status string)
}

// Result is the only externally visible success output.
type Result struct {
	CorrectedText string `json:"correctedText"`
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger replaces the component logger.
func WithLogger(l *logger.Logger) Option { return func(p *Pipeline) { p.log = l } }

// WithMetrics records stage latency, fallbacks and outcomes on m.
func WithMetrics(m Metrics) Option { return func(p *Pipeline) { p.metrics = m } }

type role struct {
	stage Stage
	code  perr.ErrorCode
}

// Pipeline is immutable after New and safe for concurrent Correct calls.
type Pipeline struct {
	order   StageOrder
	first   role
	second  role
	log     *logger.Logger
	metrics Metrics
}

// New builds a pipeline. Failures of grammar are reported as generation
// errors and failures of spell as dictionary errors, whatever the order. A
// backend that reports generator.ErrUnavailable yields an unavailable error.
func New(order StageOrder, grammar, spell Stage, opts ...Option) (*Pipeline, error) {
	if grammar == nil || spell == nil {
		return nil, fmt.Errorf("pipeline: both stages are required")
	}
	g := role{stage: grammar, code: perr.ErrorCodeGeneration}
	s := role{stage: spell, code: perr.ErrorCodeDictionary}

	p := &Pipeline{order: order, metrics: noopMetrics{}}
	switch order {
	case GrammarThenSpell:
		p.first, p.second = g, s
	case SpellThenGrammar:
		p.first, p.second = s, g
	default:
		return nil, fmt.Errorf("pipeline: unknown stage order %q", order)
	}
	for _, o := range opts {
		o(p)
	}
	if p.log == nil {
		p.log = logger.Named("pipeline")
	}
	return p, nil
}

// Order returns the configured stage order.
func (p *Pipeline) Order() StageOrder { return p.order }

// Correct runs one correction. Text that is empty after trimming fails with
// perr.ErrEmptyInput. Any stage failure, panics included, aborts the call with
// a server-side error; there are no partial results.
func (p *Pipeline) Correct(ctx context.Context, raw string) (Result, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		p.metrics.RecordCorrection(ctx, "empty_input")
		return Result{}, perr.ErrEmptyInput
	}

	intermediate, err := p.run(ctx, p.first, text)
	if err != nil {
		return Result{}, p.fail(ctx, text, err)
	}
	candidate, err := p.run(ctx, p.second, intermediate)
	if err != nil {
		return Result{}, p.fail(ctx, text, err)
	}

	out := Capitalize(strings.TrimSpace(candidate))
	p.metrics.RecordCorrection(ctx, "ok")
	p.logFor(ctx).Debug().Str("input", text).Str("output", out).Msg("corrected")
	return Result{CorrectedText: out}, nil
}

// run applies one stage and replaces empty output with its input.
func (p *Pipeline) run(ctx context.Context, r role, in string) (out string, err error) {
	name := r.stage.Name()
	log := p.logFor(ctx)
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Str("stage", name).
				Interface("panic", rec).
				Str("stack", string(debug.Stack())).
				Msg("stage panicked")
			err = perr.WithOp(perr.PanicErrf("%s stage panicked: %v", name, rec), name)
		}
		p.metrics.RecordStage(ctx, name, time.Since(start))
	}()

	out, err = r.stage.Apply(ctx, in)
	if errors.Is(err, generator.ErrUnavailable) {
		return "", perr.WithOp(perr.Wrapf(err, perr.ErrorCodeUnavailable, "%s stage unavailable", name), name)
	}
	if err != nil {
		return "", perr.WithOp(perr.Wrapf(err, r.code, "%s stage failed", name), name)
	}
	if strings.TrimSpace(out) == "" {
		p.metrics.RecordFallback(ctx, name)
		log.Warn().Str("stage", name).Msg("stage returned empty output, keeping its input")
		return in, nil
	}
	log.Debug().Str("stage", name).Dur("elapsed", time.Since(start)).Msg("stage done")
	return out, nil
}

func (p *Pipeline) fail(ctx context.Context, input string, err error) error {
	p.metrics.RecordCorrection(ctx, "error")
	evt := p.logFor(ctx).Error().Err(err).Str("input", input)
	if e, ok := perr.As(err); ok {
		evt = evt.Str("code", e.Code().String()).Str("stage", e.Op())
	}
	evt.Msg("correction failed")
	return err
}

func (p *Pipeline) logFor(ctx context.Context) *logger.Logger {
	if id := logger.RequestID(ctx); id != "" {
		l := p.log.With().Str("request_id", id).Logger()
		return &l
	}
	return p.log
}

// Capitalize upper-cases the first character of s and leaves the rest untouched.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError && size <= 1 {
		return s
	}
	upper := unicode.ToUpper(r)
	if upper == r {
		return s
	}
	return string(upper) + s[size:]
}

type noopMetrics struct{}

func (noopMetrics) RecordStage(context.Context, string, time.Duration) {}
func (noopMetrics) RecordFallback(context.Context, string)             {}
func (noopMetrics) RecordCorrection(context.Context, string)           {}
