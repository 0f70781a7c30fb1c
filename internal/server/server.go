// Package server is the HTTP boundary of the correction service: a chi
// router in front of the pipeline with request ids, access logging, panic
// recovery, CORS and optional Prometheus metrics.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"gramfix/internal/observe"
	"gramfix/internal/pipeline"
	"gramfix/internal/platform/logger"
)

// Corrector runs one correction.
type Corrector interface {
	Correct(ctx context.Context, text string) (pipeline.Result, error)
}

// Options configures the listener and the request surface.
type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
	CORSOrigins     []string
	// SlowRequest marks requests taking at least this long as warn, 0 disables.
	SlowRequest time.Duration
}

// Option adds optional collaborators.
type Option func(*Server)

// WithMetrics records request latency on m and serves h at path.
func WithMetrics(m *observe.Metrics, h http.Handler, path string) Option {
	return func(s *Server) {
		s.metrics, s.metricsHandler, s.metricsPath = m, h, path
	}
}

// WithLogger replaces the component logger.
func WithLogger(l *logger.Logger) Option { return func(s *Server) { s.log = l } }

// Server is a thin wrapper over chi and http.Server.
type Server struct {
	opt       Options
	corrector Corrector
	log       *logger.Logger

	metrics        *observe.Metrics
	metricsHandler http.Handler
	metricsPath    string

	mux *chi.Mux
	srv *http.Server
}

// New builds the router. corrector must not be nil.
func New(opt Options, corrector Corrector, opts ...Option) *Server {
	if opt.ShutdownTimeout <= 0 {
		opt.ShutdownTimeout = 15 * time.Second
	}
	if len(opt.CORSOrigins) == 0 {
		opt.CORSOrigins = []string{"*"}
	}
	s := &Server{opt: opt, corrector: corrector}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = logger.Named("http")
	}
	s.mux = s.routes()
	s.srv = &http.Server{
		Addr:              opt.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       opt.ReadTimeout,
		WriteTimeout:      opt.WriteTimeout,
	}
	return s
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(requestContext)
	r.Use(accessLog(s.log, s.opt.SlowRequest))
	r.Use(recoverJSON(s.log))
	if s.metrics != nil {
		r.Use(observe.Middleware(s.metrics, routePattern))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opt.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)
	r.Post("/spellcheck", s.handleCorrect)
	r.Post("/api/v1/correct", s.handleCorrect)
	if s.metricsHandler != nil {
		path := s.metricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, s.metricsHandler)
	}
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
	})
	return r
}

// routePattern labels metrics with the matched chi route, not the raw path.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		return rc.RoutePattern()
	}
	return ""
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.mux }

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.opt.Addr }

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opt.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully within the shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", ln.Addr().String()).Msg("http listening")
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("http shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opt.ShutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
