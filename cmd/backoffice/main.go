package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/harborline/backoffice/config"
	"github.com/harborline/backoffice/internal/bootstrap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		slog.ErrorContext(ctx, "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
	logger := bootstrap.InitLogger(os.Stdout, cfg.Observability)

	if err := run(ctx, logger, &cfg); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		stop()
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logStartupInfo(ctx, logger, cfg)

	db, redisClient, err := initInfrastructure(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close database failed", "error", cerr)
		}
	}()
	defer func() {
		if cerr := redisClient.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close redis failed", "error", cerr)
		}
	}()

	if cfg.Postgres.RunMigrationsOnStart {
		if err = bootstrap.RunMigrations(ctx, db, logger); err != nil {
			return err
		}
	} else {
		logger.InfoContext(ctx, "skipping database migrations on startup", "reason", "disabled via config")
	}

	identity, err := bootstrap.BuildIdentity(ctx, bootstrap.IdentityConfig{Auth: cfg.Auth, Logger: logger})
	if err != nil {
		return err
	}

	var (
		registerer prometheus.Registerer
		gatherer   prometheus.Gatherer
	)
	if cfg.Observability.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		registerer, gatherer = reg, reg
	}

	services, err := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config:      cfg,
		DB:          db,
		RedisClient: redisClient,
		Identity:    identity,
		Registerer:  registerer,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	srv, err := bootstrap.NewHTTPServer(&bootstrap.HTTPServerConfig{
		Config:   cfg,
		Services: services,
		DB:       db,
		Redis:    redisClient,
		Gatherer: gatherer,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	return bootstrap.Serve(ctx, srv, cfg.HTTP.ShutdownTimeout, logger)
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting backoffice service",
		"db_host", cfg.Postgres.Host,
		"db_port", cfg.Postgres.Port,
		"db_name", cfg.Postgres.Name,
		"issuer", cfg.Auth.OAuth.IssuerURL,
		"metrics_enabled", cfg.Observability.MetricsEnabled,
		"dev", cfg.IsDev)
}

// initInfrastructure connects shared dependencies used by the service runtime.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel/cluster support flexible.
func initInfrastructure(
	ctx context.Context,
	cfg *config.AppConfig,
	logger *slog.Logger,
) (*sql.DB, redis.UniversalClient, error) {
	dbCfg := bootstrap.DatabaseConfig{DBConfig: cfg.Postgres, RedisConfig: cfg.Redis, Logger: logger}

	db, err := bootstrap.ConnectDB(ctx, dbCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect db: %w", err)
	}

	redisClient, err := bootstrap.ConnectRedis(ctx, dbCfg)
	if err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", errors.Join(err, fmt.Errorf("close database: %w", cerr)))
		}
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}

	return db, redisClient, nil
}
