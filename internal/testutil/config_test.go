package testutil

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestDefaultTestDBConfig(t *testing.T) {
	t.Run("defaults to local test database port 55432", func(t *testing.T) {
		for _, k := range []string{"TEST_DB_HOST", "TEST_DB_PORT", "TEST_DB_USER", "TEST_DB_PASSWORD", "TEST_DB_NAME"} {
			t.Setenv(k, "")
			os.Unsetenv(k)
		}

		cfg := DefaultTestDBConfig()

		if cfg.Host != "localhost" || cfg.Port != "55432" {
			t.Errorf("expected localhost:55432, got %s:%s", cfg.Host, cfg.Port)
		}
		if cfg.User != "backoffice" || cfg.Password != "backoffice" || cfg.DBName != "backoffice" {
			t.Errorf("unexpected credentials: %+v", cfg)
		}
	})

	t.Run("respects TEST_DB_PORT environment variable", func(t *testing.T) {
		t.Setenv("TEST_DB_HOST", "postgres")
		t.Setenv("TEST_DB_PORT", "5432")

		cfg := DefaultTestDBConfig()

		if cfg.Host != "postgres" || cfg.Port != "5432" {
			t.Errorf("expected postgres:5432, got %s:%s", cfg.Host, cfg.Port)
		}
	})
}

func TestDSNEscapesCredentials(t *testing.T) {
	t.Setenv("DB_SSL_MODE", "")
	cfg := TestDBConfig{Host: "db", Port: "5432", User: "ops", Password: "p@ss/word", DBName: "backoffice"}
	dsn := cfg.DSN()
	if !strings.HasPrefix(dsn, "postgres://ops:p%40ss%2Fword@db:5432/backoffice") {
		t.Errorf("unexpected DSN %q", dsn)
	}
	if !strings.Contains(dsn, "sslmode=disable") {
		t.Errorf("expected sslmode=disable in %q", dsn)
	}
}

func TestClock(t *testing.T) {
	c := NewClock(TestTime())
	c.Advance(time.Minute)
	if !c.Now().Equal(TestTime().Add(time.Minute)) {
		t.Fatalf("unexpected clock time %v", c.Now())
	}
	c.Set(TestTime())
	if !c.Now().Equal(TestTime()) {
		t.Fatalf("unexpected clock time %v", c.Now())
	}
}
