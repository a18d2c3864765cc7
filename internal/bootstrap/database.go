package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx database/sql driver
	"github.com/redis/go-redis/v9"

	"github.com/harborline/backoffice/config"
	"github.com/harborline/backoffice/internal/migrate"
)

// DatabaseConfig contains configuration for database connections.
type DatabaseConfig struct {
	DBConfig    config.DBConfig
	RedisConfig config.RedisConfig
	Logger      *slog.Logger
}

// postgresDSN builds the pgx URL; url.URL escapes special characters in credentials.
func postgresDSN(c config.DBConfig) string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	q := u.Query()
	q.Set("sslmode", c.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// ConnectDB opens and pings the PostgreSQL pool.
func ConnectDB(ctx context.Context, cfg DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", postgresDSN(cfg.DBConfig))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Sessions live in Redis, so the pool only serves user upserts and shipment reads.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(time.Minute)

	if pingErr := pingWithTimeout(ctx, db.PingContext); pingErr != nil {
		if closeErr := db.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close database connection: %w", closeErr))
		}
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}

	if cfg.Logger != nil {
		cfg.Logger.InfoContext(ctx, "database connected",
			"host", cfg.DBConfig.Host,
			"port", cfg.DBConfig.Port,
			"database", cfg.DBConfig.Name,
		)
	}
	return db, nil
}

func pingWithTimeout(ctx context.Context, ping func(context.Context) error) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return ping(pingCtx)
}

// ConnectRedis connects to a direct, sentinel or cluster Redis deployment and pings it.
//
//nolint:ireturn // returning redis.UniversalClient lets us pick single, sentinel, or cluster clients at runtime.
func ConnectRedis(ctx context.Context, cfg DatabaseConfig) (redis.UniversalClient, error) {
	client, desc, err := newRedisClient(cfg.RedisConfig)
	if err != nil {
		return nil, err
	}

	if pingErr := pingWithTimeout(ctx, func(c context.Context) error { return client.Ping(c).Err() }); pingErr != nil {
		if closeErr := client.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close redis client: %w", closeErr))
		}
		return nil, fmt.Errorf("ping redis %s: %w", desc, pingErr)
	}

	if cfg.Logger != nil {
		cfg.Logger.InfoContext(ctx, "redis connected", "addr", desc, "db", cfg.RedisConfig.DB)
	}
	return client, nil
}

// newRedisClient returns the client and a credential-free description for logs.
//
//nolint:ireturn // returning redis.UniversalClient keeps client selection flexible.
func newRedisClient(cfg config.RedisConfig) (redis.UniversalClient, string, error) {
	switch {
	case cfg.UseCluster:
		opts, err := clusterOptions(cfg)
		if err != nil {
			return nil, "", err
		}
		return redis.NewClusterClient(opts), "cluster:" + strings.Join(opts.Addrs, ","), nil

	case cfg.UseSentinel:
		if len(cfg.SentinelNodes) == 0 {
			return nil, "", errors.New("redis sentinel configuration requires at least one sentinel node")
		}
		return redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:       cfg.SentinelMasterName,
			SentinelAddrs:    cfg.SentinelNodes,
			Password:         cfg.Password,
			SentinelPassword: cfg.SentinelPassword,
			DB:               cfg.DB,
		}), "sentinel:" + cfg.SentinelMasterName, nil

	default:
		opts, err := directOptions(cfg)
		if err != nil {
			return nil, "", err
		}
		return redis.NewClient(opts), opts.Addr, nil
	}
}

func directOptions(cfg config.RedisConfig) (*redis.Options, error) {
	uri := strings.TrimSpace(cfg.URI)
	if uri == "" {
		return nil, errors.New("redis direct configuration requires a URI")
	}
	if !isRedisURL(uri) {
		return &redis.Options{Addr: uri, Password: cfg.Password, DB: cfg.DB}, nil
	}
	opts, err := redis.ParseURL(uri)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opts.Password == "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	return opts, nil
}

// clusterOptions uses REDIS_CLUSTER_NODES, falling back to the address in REDIS_URI.
func clusterOptions(cfg config.RedisConfig) (*redis.ClusterOptions, error) {
	opts := &redis.ClusterOptions{Addrs: cfg.ClusterNodes, Password: cfg.Password}
	if len(opts.Addrs) > 0 {
		return opts, nil
	}

	uri := strings.TrimSpace(cfg.URI)
	switch {
	case uri == "":
		return nil, errors.New("redis cluster configuration requires at least one address")
	case !isRedisURL(uri):
		opts.Addrs = []string{uri}
	default:
		parsed, err := redis.ParseURL(uri)
		if err != nil {
			return nil, fmt.Errorf("parse redis cluster url: %w", err)
		}
		opts.Addrs = []string{parsed.Addr}
		opts.Username = parsed.Username
		opts.TLSConfig = parsed.TLSConfig
		if parsed.Password != "" {
			opts.Password = parsed.Password
		}
	}
	return opts, nil
}

func isRedisURL(value string) bool {
	return strings.HasPrefix(value, "redis://") || strings.HasPrefix(value, "rediss://")
}

// RunMigrations applies the pending schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if err := migrate.Run(ctx, db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	if logger != nil {
		logger.InfoContext(ctx, "database migrations completed")
	}

	return nil
}
