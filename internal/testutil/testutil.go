// Package testutil provides database, Redis and clock helpers for back-office tests.
package testutil

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/harborline/backoffice/internal/migrate"

	// Import pgx driver for database/sql compatibility in tests.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

// TestDBConfig holds configuration for test database.
type TestDBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// DefaultTestDBConfig returns default test database configuration.
// Defaults to port 55432 (local test DB from docker-compose test profile).
// CI/CD environments should set TEST_DB_PORT=5432 explicitly.
func DefaultTestDBConfig() TestDBConfig {
	return TestDBConfig{
		Host:     getEnvOrDefault("TEST_DB_HOST", "localhost"),
		Port:     getEnvOrDefault("TEST_DB_PORT", "55432"),
		User:     getEnvOrDefault("TEST_DB_USER", "backoffice"),
		Password: getEnvOrDefault("TEST_DB_PASSWORD", "backoffice"),
		DBName:   getEnvOrDefault("TEST_DB_NAME", "backoffice"),
	}
}

// DSN renders the config as a pgx connection URL.
func (c TestDBConfig) DSN() string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, c.Port),
		Path:   "/" + c.DBName,
	}
	q := u.Query()
	q.Set("sslmode", getEnvOrDefault("DB_SSL_MODE", "disable"))
	u.RawQuery = q.Encode()
	return u.String()
}

// TestingTB is an interface that covers both *testing.T and *testing.B.
type TestingTB interface {
	Helper()
	Skip(args ...any)
	Skipf(format string, args ...any)
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Logf(format string, args ...any)
	Cleanup(func())
}

// unavailable skips the test, or fails it when the dependency is required by env.
func unavailable(t TestingTB, required bool, what string, err error) {
	t.Helper()
	if required {
		t.Fatalf("%s not available: %v", what, err)
	}
	t.Skipf("%s not available: %v", what, err)
}

// WithAutoDB runs fn against a migrated database. With TEST_DB_EPHEMERAL set each test
// gets its own schema; otherwise the shared database is wiped before and after fn.
func WithAutoDB(t TestingTB, fn func(*sql.DB)) {
	t.Helper()
	base := openProbedDB(t, DefaultTestDBConfig().DSN())
	if envBool("TEST_DB_EPHEMERAL") {
		fn(ephemeralSchemaDB(t, base))
		return
	}

	t.Cleanup(func() {
		truncate(t, base)
		closeAndLog(t, "test DB", base)
	})
	migrateOrFail(t, base)
	truncate(t, base)
	fn(base)
}

func openProbedDB(t TestingTB, dsn string) *sql.DB {
	t.Helper()
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		unavailable(t, requireDB(), "test database", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if pingErr := db.PingContext(ctx); pingErr != nil {
		closeAndLog(t, "probe DB", db)
		unavailable(t, requireDB(), "test database", pingErr)
	}
	return db
}

func migrateOrFail(t TestingTB, db *sql.DB) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := migrate.Run(ctx, db); err != nil {
		t.Fatal("Failed to run migrations:", err)
	}
}

// truncate removes all rows written by tests.
func truncate(t TestingTB, db *sql.DB) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, "TRUNCATE shipments, users"); err != nil {
		t.Fatalf("Failed to clean up test tables: %v", err)
	}
}

// ephemeralSchemaDB creates a unique schema, points a new handle at it and drops it on cleanup.
func ephemeralSchemaDB(t TestingTB, admin *sql.DB) *sql.DB {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	schema := "t_" + randomHex(4)
	if _, err := admin.ExecContext(ctx, "CREATE SCHEMA "+schema); err != nil {
		closeAndLog(t, "admin DB", admin)
		t.Fatalf("Failed to create schema %s: %v", schema, err)
	}

	u, err := url.Parse(DefaultTestDBConfig().DSN())
	if err != nil {
		t.Fatal("Failed to parse DSN:", err)
	}
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()

	db, err := sql.Open("pgx", u.String())
	if err != nil {
		t.Fatal("Failed to open schema-scoped DB:", err)
	}
	t.Cleanup(func() {
		cctx, ccancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer ccancel()
		closeAndLog(t, "schema DB", db)
		if _, dropErr := admin.ExecContext(cctx, "DROP SCHEMA IF EXISTS "+schema+" CASCADE"); dropErr != nil {
			t.Logf("warning: failed to drop schema %s: %v", schema, dropErr)
		}
		closeAndLog(t, "admin DB", admin)
	})

	migrateOrFail(t, db)
	t.Logf("Using ephemeral schema: %s", schema)
	return db
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return hex.EncodeToString(b)
}

func closeAndLog(t TestingTB, name string, closer interface{ Close() error }) {
	if err := closer.Close(); err != nil {
		t.Logf("warning: failed to close %s: %v", name, err)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envBool parses common truthy values from env vars.
func envBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}

func requireDB() bool    { return envBool("TEST_REQUIRE_DB") || envBool("TEST_REQUIRE_INFRA") }
func requireRedis() bool { return envBool("TEST_REQUIRE_REDIS") || envBool("TEST_REQUIRE_INFRA") }

// TestTime returns a fixed time for testing.
func TestTime() time.Time {
	return time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
}

// Clock is a settable clock for tests.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a Clock starting at start.
func NewClock(start time.Time) *Clock { return &Clock{now: start} }

// Now returns the current test time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// redisCandidates lists where a test Redis may be listening. REDIS_ADDR wins when set.
func redisCandidates() []string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return []string{addr}
	}
	return []string{"localhost:56379", "redis:6379", "localhost:6379"}
}

// SetupTestRedis returns a client on a flushed database reserved for this test.
// TEST_REDIS_DB pins the database index; otherwise one of 1..15 is claimed with a lock key in DB 0.
// Tests are skipped when no Redis answers.
func SetupTestRedis(t TestingTB) *redis.Client {
	t.Helper()

	var (
		addr    string
		lastErr error
	)
	for _, candidate := range redisCandidates() {
		if lastErr = pingRedis(candidate, 0); lastErr == nil {
			addr = candidate
			break
		}
	}
	if addr == "" {
		unavailable(t, requireRedis(), "test redis", lastErr)
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: reserveRedisDB(t, addr)})
	t.Cleanup(func() { closeAndLog(t, "redis client", client) })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("flush test redis: %v", err)
	}
	return client
}

func pingRedis(addr string, db int) error {
	c := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	defer func() { _ = c.Close() }()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return c.Ping(ctx).Err()
}

func reserveRedisDB(t TestingTB, addr string) int {
	if v := os.Getenv("TEST_REDIS_DB"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			return i
		}
		t.Logf("invalid TEST_REDIS_DB=%q, falling back to auto-select", v)
	}

	meta := redis.NewClient(&redis.Options{Addr: addr})
	defer closeAndLog(t, "redis meta client", meta)

	owner := fmt.Sprintf("%d:%s", os.Getpid(), randomHex(4))
	for i := 1; i <= 15; i++ {
		lockKey := fmt.Sprintf("backoffice:testutil:db_lock:%d", i)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		ok, err := meta.SetNX(ctx, lockKey, owner, 30*time.Minute).Result()
		cancel()
		if err != nil || !ok {
			continue
		}
		t.Cleanup(func() {
			c := redis.NewClient(&redis.Options{Addr: addr})
			defer closeAndLog(t, "redis cleanup client", c)
			cctx, ccancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer ccancel()
			if delErr := c.Del(cctx, lockKey).Err(); delErr != nil {
				t.Logf("warning: failed to release redis db lock %s: %v", lockKey, delErr)
			}
		})
		return i
	}

	t.Logf("falling back to Redis DB=1 for tests at %s", addr)
	return 1
}
