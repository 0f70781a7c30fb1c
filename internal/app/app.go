// Package app wires the correction service together.
//
// New loads every resource once (dictionary file, custom words, generator
// backend, metrics) and assembles the pipeline and the HTTP server. Nothing
// is reloaded while the process runs. Tests inject doubles through options.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gramfix/internal/config"
	"gramfix/internal/corrector"
	"gramfix/internal/customdict"
	"gramfix/internal/dictfile"
	"gramfix/internal/generator"
	"gramfix/internal/generator/hf"
	"gramfix/internal/generator/openai"
	"gramfix/internal/observe"
	"gramfix/internal/pipeline"
	"gramfix/internal/platform/logger"
	"gramfix/internal/server"
)

// SmokeText is corrected once at startup to exercise both stages.
const SmokeText = "she go school every day"

// App owns the loaded resources and the server built on them.
type App struct {
	cfg     *config.Config
	log     *logger.Logger
	version string

	downloader *dictfile.Downloader
	words      corrector.WordSource
	backend    generator.Generator

	provider *observe.Provider
	spell    *corrector.SpellCorrector
	grammar  *generator.Grammar
	pipeline *pipeline.Pipeline
	server   *server.Server

	// closers run in reverse order during Shutdown.
	closers  []func(context.Context) error
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithBackend injects a generator instead of building one from config.
func WithBackend(g generator.Generator) Option { return func(a *App) { a.backend = g } }

// WithWordSource injects custom words instead of connecting to Redis.
func WithWordSource(ws corrector.WordSource) Option { return func(a *App) { a.words = ws } }

// WithDownloader replaces the dictionary downloader.
func WithDownloader(d *dictfile.Downloader) Option { return func(a *App) { a.downloader = d } }

// WithVersion sets the version reported in telemetry.
func WithVersion(v string) Option { return func(a *App) { a.version = v } }

// WithLogger replaces the component logger.
func WithLogger(l *logger.Logger) Option { return func(a *App) { a.log = l } }

// New loads all resources and assembles the pipeline and server. On error
// everything opened so far is closed again.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}
	if a.log == nil {
		a.log = logger.Named("app")
	}
	if a.downloader == nil {
		a.downloader = dictfile.NewDownloader()
	}

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"metrics", a.initMetrics},
		{"dictionary", a.initDictionary},
		{"custom words", a.initWords},
		{"spell corrector", a.initCorrector},
		{"generator", a.initGenerator},
		{"pipeline", a.initPipeline},
	}
	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			_ = a.Shutdown(context.Background())
			return nil, fmt.Errorf("app: init %s: %w", s.name, err)
		}
	}
	a.initServer()
	return a, nil
}

func (a *App) initMetrics(ctx context.Context) error {
	if !a.cfg.Metrics.Enabled {
		return nil
	}
	p, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "gramfix", ServiceVersion: a.version})
	if err != nil {
		return err
	}
	a.provider = p
	a.closers = append(a.closers, p.Shutdown)
	return nil
}

func (a *App) initDictionary(ctx context.Context) error {
	d := a.cfg.Dictionary
	if !d.Fetch {
		return nil
	}
	if _, err := a.downloader.Ensure(ctx, d.Path, d.URL); err != nil {
		return err
	}
	if d.BigramPath != "" && d.BigramURL != "" {
		if _, err := a.downloader.Ensure(ctx, d.BigramPath, d.BigramURL); err != nil {
			return err
		}
	}
	return nil
}

// initWords connects to the custom word set. The set is optional: when Redis
// cannot be reached the service starts with the base dictionary only.
func (a *App) initWords(ctx context.Context) error {
	if a.words != nil || !a.cfg.CustomWords.Enabled {
		return nil
	}
	cd, err := customdict.Open(ctx, a.cfg.CustomWords.Options())
	if err != nil {
		a.log.Warn().Err(err).Msg("custom words disabled")
		return nil
	}
	a.words = cd
	a.closers = append(a.closers, func(context.Context) error { return cd.Close() })
	return nil
}

func (a *App) initCorrector(ctx context.Context) error {
	sc, err := corrector.NewSpellCorrector(ctx, a.cfg.Dictionary.Corrector(), a.cfg.Dictionary.Path, a.words)
	if err != nil {
		return err
	}
	a.spell = sc
	return nil
}

func (a *App) initGenerator(context.Context) error {
	backend := a.backend
	if backend == nil {
		b, err := NewBackend(a.cfg.Generator)
		if err != nil {
			return err
		}
		backend = b
	}
	backend = generator.Limit(backend, a.cfg.Generator.Concurrency)

	g, err := generator.NewGrammar(backend, a.cfg.Generator.PromptPrefix, a.cfg.Decoding)
	if err != nil {
		return err
	}
	a.grammar = g
	a.log.Info().
		Str("profile", a.cfg.Generator.Profile).
		Str("backend", a.cfg.Generator.Backend).
		Str("model", a.cfg.Generator.Model).
		Str("strategy", string(a.cfg.Decoding.Strategy)).
		Int("max_new_tokens", a.cfg.Decoding.MaxNewTokens).
		Msg("grammar model ready")
	return nil
}

func (a *App) initPipeline(context.Context) error {
	var opts []pipeline.Option
	if a.provider != nil {
		opts = append(opts, pipeline.WithMetrics(a.provider.Metrics()))
	}
	p, err := pipeline.New(a.cfg.StageOrder(), a.grammar, a.spell, opts...)
	if err != nil {
		return err
	}
	a.pipeline = p
	return nil
}

func (a *App) initServer() {
	s := a.cfg.Server
	var opts []server.Option
	if a.provider != nil {
		opts = append(opts, server.WithMetrics(a.provider.Metrics(), a.provider.Handler(), a.cfg.Metrics.Path))
	}
	a.server = server.New(server.Options{
		Addr:            s.Addr,
		ReadTimeout:     s.ReadTimeout,
		WriteTimeout:    s.WriteTimeout,
		ShutdownTimeout: s.ShutdownTimeout,
		MaxBodyBytes:    s.MaxBodyBytes,
		CORSOrigins:     s.CORSOrigins,
		SlowRequest:     5 * time.Second,
	}, a.pipeline, opts...)
}

// NewBackend builds the generator named by cfg.Backend.
func NewBackend(cfg config.GeneratorConfig) (generator.Generator, error) {
	switch cfg.Backend {
	case "echo":
		return generator.Echo{Prefix: cfg.PromptPrefix}, nil
	case "hf", "":
		opts := []hf.Option{hf.WithToken(cfg.Token)}
		if cfg.BaseURL != "" {
			opts = append(opts, hf.WithBaseURL(cfg.BaseURL))
		}
		if cfg.Timeout > 0 {
			opts = append(opts, hf.WithTimeout(cfg.Timeout))
		}
		return hf.New(cfg.Model, opts...)
	case "openai":
		var opts []openai.Option
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		if cfg.Timeout > 0 {
			opts = append(opts, openai.WithTimeout(cfg.Timeout))
		}
		return openai.New(cfg.Token, cfg.Model, opts...)
	default:
		return nil, fmt.Errorf("unknown generator backend %q", cfg.Backend)
	}
}

// Pipeline returns the assembled correction pipeline.
func (a *App) Pipeline() *pipeline.Pipeline { return a.pipeline }

// Corrector returns the dictionary corrector.
func (a *App) Corrector() *corrector.SpellCorrector { return a.spell }

// Server returns the HTTP server.
func (a *App) Server() *server.Server { return a.server }

// SmokeCheck corrects SmokeText once and logs the outcome.
func (a *App) SmokeCheck(ctx context.Context) (string, error) {
	start := time.Now()
	res, err := a.pipeline.Correct(ctx, SmokeText)
	if err != nil {
		a.log.Error().Err(err).Str("input", SmokeText).Msg("smoke check failed")
		return "", err
	}
	a.log.Info().
		Str("input", SmokeText).
		Str("output", res.CorrectedText).
		Dur("elapsed", time.Since(start)).
		Msg("smoke check")
	return res.CorrectedText, nil
}

// Run performs the optional smoke check and serves until ctx is done. A failed
// smoke check does not stop the service.
func (a *App) Run(ctx context.Context) error {
	if a.cfg.Server.SmokeCheck {
		_, _ = a.SmokeCheck(ctx)
	}
	return a.server.Run(ctx)
}

// Shutdown releases resources in reverse order of acquisition.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	a.stopOnce.Do(func() {
		for i := len(a.closers) - 1; i >= 0; i-- {
			if err := a.closers[i](ctx); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}
