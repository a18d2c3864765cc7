package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/harborline/backoffice/config"
	"github.com/harborline/backoffice/internal/bootstrap"
)

// connectInfra opens the database and Redis connections the admin service needs.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel/cluster support flexible.
func connectInfra(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) (*sql.DB, redis.UniversalClient, error) {
	dbCfg := bootstrap.DatabaseConfig{DBConfig: cfg.Postgres, RedisConfig: cfg.Redis, Logger: logger}

	db, err := bootstrap.ConnectDB(ctx, dbCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect db: %w", err)
	}

	redisClient, err := bootstrap.ConnectRedis(ctx, dbCfg)
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close db: %w", closeErr))
		}
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	return db, redisClient, nil
}

func closeInfra(db *sql.DB, redisClient redis.UniversalClient) error {
	var errs []error
	if db != nil {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close db: %w", err))
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}
