// Package server provides the movies HTTP server.
package server

import (
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"git.cscs.ch/openchami/chamicore-movies/internal/auth"
	"git.cscs.ch/openchami/chamicore-movies/internal/config"
	"git.cscs.ch/openchami/chamicore-movies/internal/events"
	"git.cscs.ch/openchami/chamicore-movies/internal/httputil"
	"git.cscs.ch/openchami/chamicore-movies/internal/metrics"
	"git.cscs.ch/openchami/chamicore-movies/internal/store"
	"git.cscs.ch/openchami/chamicore-movies/pkg/types"
)

const serviceName = "chamicore-movies"

// Server wraps HTTP routes and dependencies.
type Server struct {
	store     store.Store
	cfg       config.Config
	version   string
	commit    string
	buildDate string

	verifier  *auth.Verifier
	publisher events.Publisher
	observer  *metrics.Observer
	now       func() time.Time

	ready  atomic.Bool
	router chi.Router
}

// Option configures server construction.
type Option func(*Server)

// WithVerifier sets the bearer token verifier. Without it one is built
// from the config.
func WithVerifier(v *auth.Verifier) Option {
	return func(s *Server) {
		s.verifier = v
	}
}

// WithPublisher sets the lifecycle event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(s *Server) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithMetrics sets the Prometheus observer used for request metrics and,
// when no separate metrics listener is configured, the /metrics route.
func WithMetrics(o *metrics.Observer) Option {
	return func(s *Server) {
		s.observer = o
	}
}

// WithClock overrides the clock used to timestamp events.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// New constructs a movies API server.
func New(st store.Store, cfg config.Config, version, commit, buildDate string, opts ...Option) (*Server, error) {
	if st == nil {
		return nil, errors.New("store is required")
	}
	s := &Server{
		store:     st,
		cfg:       cfg,
		version:   version,
		commit:    commit,
		buildDate: buildDate,
		publisher: events.NoopPublisher{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.verifier == nil {
		v, err := auth.NewVerifier(auth.Config{
			Secret:  []byte(cfg.JWTSecret),
			Issuer:  cfg.JWTIssuer,
			DevMode: cfg.DevMode,
		})
		if err != nil {
			return nil, err
		}
		s.verifier = v
	}
	s.ready.Store(true)
	s.router = s.buildRouter()
	return s, nil
}

// Router returns the configured router.
func (s *Server) Router() chi.Router {
	return s.router
}

// SetReady flips the readiness probe; main clears it when draining.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	if s.cfg.MetricsEnabled && s.observer != nil {
		r.Use(s.observer.Middleware)
	}
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLogger(log.Logger))
	r.Use(httputil.Recoverer)
	r.Use(httputil.SecureHeaders)
	r.Use(httputil.BodyLimit(int64(s.cfg.MaxBodyBytes)))
	r.Use(httputil.ContentType)
	r.Use(httputil.APIVersion(types.APIVersion))
	r.Use(httputil.CacheControl)

	r.Group(func(r chi.Router) {
		r.Method(http.MethodGet, "/health", httputil.HealthHandler())
		r.Method(http.MethodGet, "/readiness", httputil.ReadinessHandler(func() error {
			if !s.ready.Load() {
				return errors.New("server is shutting down")
			}
			return nil
		}))
		r.Method(http.MethodGet, "/version", httputil.VersionHandler(serviceName, s.version, s.commit, s.buildDate))
		if s.cfg.MetricsEnabled && s.observer != nil && s.cfg.PrometheusAddr == "" {
			r.Method(http.MethodGet, "/metrics", s.observer.Handler())
		}
	})

	r.Route("/movies/v1/movies", func(r chi.Router) {
		// {id} also accepts a slug on GET.
		r.Get("/{id}", s.handleGetMovie)

		r.Group(func(r chi.Router) {
			r.Use(s.verifier.Middleware)

			r.Post("/", s.handleCreateMovie)
			r.Put("/{id}", s.handleUpdateMovie)
			r.With(auth.RequireAdmin).Get("/", s.handleListMovies)
			r.With(auth.RequireAdmin).Delete("/{id}", s.handleDeleteMovie)
		})
	})

	return r
}
