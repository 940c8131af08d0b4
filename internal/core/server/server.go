package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-shakir/trends-weights/internal/core/config"
	"github.com/mohammed-shakir/trends-weights/internal/core/health"
	middleware "github.com/mohammed-shakir/trends-weights/internal/core/middleware"
	"github.com/mohammed-shakir/trends-weights/internal/core/router"
)

// Deps is what the HTTP surface serves. Metrics defaults to the
// default Prometheus registry; Ready entries implementing health.Checker
// gate /readyz.
type Deps struct {
	API     *router.API
	Metrics http.Handler
	Ready   map[string]any
}

func NewHandler(logger *slog.Logger, d Deps) http.Handler {
	if d.Metrics == nil {
		d.Metrics = promhttp.Handler()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(2*time.Second, d.Ready))
	r.Method(http.MethodGet, "/metrics", d.Metrics)

	r.Route("/api", func(r chi.Router) {
		r.Get("/categories", d.API.Categories())
		r.Get("/weights", d.API.Weights())
		r.Get("/weights/detailed", d.API.DetailedWeights())
		r.Get("/hourly", d.API.Hourly())
		r.Get("/weekly", d.API.Weekly())
		r.Get("/top", d.API.Top())
		r.Get("/related", d.API.Related())
	})
	return r
}

// Run serves until ctx is done, then shuts down gracefully.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, d Deps) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(logger, d),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// cold requests pay one throttled upstream call per batch
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
