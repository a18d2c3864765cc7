package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/harborline/backoffice/config"
	httpx "github.com/harborline/backoffice/internal/http"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	DB       *sql.DB
	Redis    redis.UniversalClient
	// Gatherer backs /metrics. Optional.
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// NewHTTPServer builds the server; it does not start listening.
func NewHTTPServer(cfg *HTTPServerConfig) (*http.Server, error) {
	if cfg == nil || cfg.Config == nil || cfg.Services == nil {
		return nil, errors.New("http server config is required")
	}
	if cfg.Services.Auth == nil {
		return nil, errors.New("auth service is required to serve HTTP")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	svc := cfg.Services
	appCfg := cfg.Config

	router := httpx.NewRouter(httpx.RouterServices{
		Auth:         svc.Auth,
		Shipments:    svc.Shipments,
		Admin:        svc.Admin,
		Guard:        svc.Guard,
		Gatherer:     cfg.Gatherer,
		Metrics:      svc.Metrics,
		HealthChecks: healthChecks(cfg.DB, cfg.Redis),
		CookieDomain: appCfg.HTTP.CookieDomain,
		Logger:       logger,
	})
	logger.Info("http routes registered", "guarded_operations", len(router.Operations()))

	return &http.Server{
		Addr:              appCfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: appCfg.HTTP.ReadHeaderTimeout,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}, nil
}

func healthChecks(db *sql.DB, client redis.UniversalClient) map[string]httpx.HealthCheck {
	checks := map[string]httpx.HealthCheck{}
	if db != nil {
		checks["postgres"] = db.PingContext
	}
	if client != nil {
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}
	return checks
}

// Serve runs srv until ctx is cancelled, then shuts it down within shutdownTimeout.
func Serve(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		logger.Info("HTTP server stopped")
		return nil
	})

	return g.Wait()
}
