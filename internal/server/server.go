// Package server is the viewer's HTTP side: static assets, the live scene
// as JSON or PNG, session status, Prometheus metrics and a /stop endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/primdiff/internal/config"
	"github.com/roach88/primdiff/internal/metrics"
	"github.com/roach88/primdiff/internal/primitive"
	"github.com/roach88/primdiff/internal/render"
	"github.com/roach88/primdiff/internal/scene"
	"github.com/roach88/primdiff/internal/session"
)

// SceneSource is what the viewer shows. *session.Session implements it.
type SceneSource interface {
	Snapshot() []*scene.Object
	Info() session.Info
	Types() []primitive.Type
}

// Server serves the viewer.
type Server struct {
	cfg      config.ServerConfig
	source   SceneSource
	logger   *slog.Logger
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	root     string
	resp     responder

	handler  http.Handler
	stop     chan struct{}
	stopOnce sync.Once
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics instruments API handlers with m and serves g on /metrics.
func WithMetrics(m *metrics.Metrics, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = g
	}
}

// WithStaticRoot reads static paths relative to root instead of the
// working directory. URLs keep the configured path as prefix.
func WithStaticRoot(root string) Option {
	return func(s *Server) { s.root = root }
}

// New builds the router. Static paths that do not exist are skipped with a
// warning so the API stays usable without assets.
func New(cfg config.ServerConfig, source SceneSource, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		source:   source,
		logger:   slog.Default(),
		gatherer: prometheus.DefaultGatherer,
		root:     ".",
		resp:     responder{indent: cfg.IndentResponses},
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	if s.cfg.LogRequests {
		r.Use(s.logRequests)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		s.resp.notFound(w, req.URL.Path)
	})

	r.Get("/stop", func(w http.ResponseWriter, _ *http.Request) {
		s.resp.ok(w, nil)
		s.Stop()
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/scene", s.instrument("/api/scene", s.handleScene))
		r.Get("/scene.png", s.instrument("/api/scene.png", s.handleScenePNG))
		r.Get("/session", s.instrument("/api/session", s.handleSession))
		r.Get("/types", s.instrument("/api/types", s.handleTypes))
	})

	for _, path := range s.cfg.StaticPaths {
		if err := s.mountStatics(r, s.root, path); err != nil {
			s.logger.Warn("static path skipped", "path", path, "error", err)
		}
	}

	if s.cfg.LogRoutes {
		_ = chi.Walk(r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
			s.logger.Info("mapped route", "method", method, "route", route)
			return nil
		})
	}
	return r
}

func (s *Server) instrument(endpoint string, h http.HandlerFunc) http.HandlerFunc {
	if s.metrics == nil {
		return h
	}
	return s.metrics.InstrumentHandler(endpoint, h).ServeHTTP
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request", "status", ww.Status(), "method", r.Method, "url", r.URL.String())
	})
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Stop asks ListenAndServe to shut down. Safe to call more than once.
func (s *Server) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Stopped is closed once Stop has been called.
func (s *Server) Stopped() <-chan struct{} {
	return s.stop
}

// Serve serves on ln until ctx is cancelled or /stop is requested, then
// shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info("server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	case <-s.stop:
	}

	s.logger.Info("stopping server", "addr", ln.Addr().String())
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// sceneBody is the /api/scene response.
type sceneBody struct {
	Session session.Info    `json:"session"`
	Objects []*scene.Object `json:"objects"`
}

func (s *Server) handleScene(w http.ResponseWriter, _ *http.Request) {
	objs := s.source.Snapshot()
	if objs == nil {
		objs = []*scene.Object{}
	}
	s.resp.ok(w, sceneBody{Session: s.source.Info(), Objects: objs})
}

func (s *Server) handleScenePNG(w http.ResponseWriter, r *http.Request) {
	opts := render.DefaultOptions()
	for name, dst := range map[string]*int{"width": &opts.Width, "height": &opts.Height} {
		v := r.URL.Query().Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 4096 {
			s.resp.badRequest(w, fmt.Sprintf("invalid %s %q", name, v))
			return
		}
		*dst = n
	}

	w.Header().Set("Content-Type", "image/png")
	if err := render.PNG(w, s.source.Snapshot(), opts); err != nil {
		s.logger.Error("render failed", "error", err)
		w.Header().Del("Content-Type")
		s.resp.internalError(w, err)
	}
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	s.resp.ok(w, s.source.Info())
}

// typeBody mirrors what the browser viewer fetches to build its type table.
type typeBody struct {
	ID           int32  `json:"id"`
	Name         string `json:"name"`
	ElementCount int    `json:"elementCount"`
	MessageSize  int    `json:"messageSize"`
}

func (s *Server) handleTypes(w http.ResponseWriter, _ *http.Request) {
	types := s.source.Types()
	body := make([]typeBody, len(types))
	for i, t := range types {
		body[i] = typeBody{ID: int32(t.ID), Name: t.Name, ElementCount: t.ElementCount, MessageSize: t.MessageSize}
	}
	s.resp.ok(w, body)
}
