// Command chamicore-movies serves the in-memory movie catalogue over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"git.cscs.ch/openchami/chamicore-movies/internal/config"
	"git.cscs.ch/openchami/chamicore-movies/internal/events"
	"git.cscs.ch/openchami/chamicore-movies/internal/metrics"
	"git.cscs.ch/openchami/chamicore-movies/internal/seed"
	"git.cscs.ch/openchami/chamicore-movies/internal/server"
	"git.cscs.ch/openchami/chamicore-movies/internal/store"
	"git.cscs.ch/openchami/chamicore-movies/internal/validation"
)

// version is set at build time via -ldflags.
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.DevMode {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Str("service", "movies").Str("version", version).Logger()
	}

	logger := log.With().Str("component", "main").Logger()
	logger.Info().
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Msg("starting chamicore-movies")

	if cfg.DevMode {
		logger.Warn().Msg("DEV MODE ENABLED: authentication is bypassed; do not use in production")
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("chamicore-movies stopped with error")
	}
	logger.Info().Msg("server stopped gracefully")
}

func run(cfg config.Config, logger zerolog.Logger) error {
	var storeOpts []store.Option
	storeOpts = append(storeOpts, store.WithLogger(log.Logger))

	var observer *metrics.Observer
	if cfg.MetricsEnabled {
		observer = metrics.NewObserver()
		storeOpts = append(storeOpts, store.WithObserver(observer))
	}

	st := store.NewMemoryStore(validation.NewMovieValidator(), storeOpts...)

	if cfg.SeedFile != "" {
		if _, err := seed.LoadFile(st, cfg.SeedFile, log.Logger); err != nil {
			return fmt.Errorf("loading seed catalogue: %w", err)
		}
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.NATSURL != "" {
		p, err := events.NewNATSPublisher(events.NATSConfig{
			URL:    cfg.NATSURL,
			Name:   "chamicore-movies",
			Stream: events.StreamConfig{Name: cfg.NATSStream},
			Logger: log.Logger,
		})
		if err != nil {
			return fmt.Errorf("creating event publisher: %w", err)
		}
		publisher = p
	} else {
		logger.Info().Msg("CHAMICORE_NATS_URL not set; lifecycle events are disabled")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close event publisher")
		}
	}()

	opts := []server.Option{server.WithPublisher(publisher)}
	if observer != nil {
		opts = append(opts, server.WithMetrics(observer))
	}
	srv, err := server.New(st, cfg, version, commit, buildDate, opts...)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	servers := []*http.Server{newHTTPServer(cfg.ListenAddr, srv.Router())}
	if observer != nil && cfg.PrometheusAddr != "" {
		mux := chi.NewRouter()
		mux.Method(http.MethodGet, "/metrics", observer.Handler())
		servers = append(servers, newHTTPServer(cfg.PrometheusAddr, mux))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	for _, hs := range servers {
		g.Go(func() error {
			logger.Info().Str("addr", hs.Addr).Msg("HTTP server listening")
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serving %s: %w", hs.Addr, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			logger.Info().Msg("received shutdown signal")
		}
		srv.SetReady(false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		var errs []error
		for _, hs := range servers {
			if err := hs.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("shutting down %s: %w", hs.Addr, err))
			}
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
