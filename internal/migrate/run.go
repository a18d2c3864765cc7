// Package migrate applies the embedded SQL schema migrations.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// lockKey is the pg_advisory_lock key held while migrating, so replicas that start
// together apply each version once.
const lockKey int64 = 0x6261636b6f6666 // "backoff"

const createLedger = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Run applies every embedded migration that schema_migrations does not list yet,
// in lexical order, each in its own transaction. It is safe to call on every start.
func Run(ctx context.Context, db *sql.DB) error {
	logger := slog.Default().With("component", "migrations")

	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire migration connection: %w", err)
	}
	defer conn.Close()

	if _, err = conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, lockKey); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		// The caller's ctx may already be done; the unlock must still reach the server.
		if _, unlockErr := conn.ExecContext(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock($1)`, lockKey); unlockErr != nil {
			logger.WarnContext(ctx, "release migration lock", "error", unlockErr)
		}
	}()

	if _, err = conn.ExecContext(ctx, createLedger); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	versions, err := Versions()
	if err != nil {
		return err
	}
	applied, err := appliedVersions(ctx, conn)
	if err != nil {
		return err
	}
	for _, v := range Pending(versions, applied) {
		logger.InfoContext(ctx, "applying migration", "version", v)
		if err = apply(ctx, conn, v); err != nil {
			return err
		}
	}
	return nil
}

// Versions lists the embedded migration versions (file names without .sql), sorted.
func Versions() ([]string, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".sql"); ok && !e.IsDir() {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out, nil
}

// Pending returns the versions not in applied, keeping their order.
func Pending(versions []string, applied map[string]bool) []string {
	var out []string
	for _, v := range versions {
		if !applied[v] {
			out = append(out, v)
		}
	}
	return out
}

func appliedVersions(ctx context.Context, conn *sql.Conn) (map[string]bool, error) {
	rows, err := conn.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()

	applied := map[string]bool{}
	for rows.Next() {
		var v string
		if err = rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan applied migration: %w", err)
		}
		applied[v] = true
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	return applied, nil
}

func apply(ctx context.Context, conn *sql.Conn, version string) (err error) {
	body, err := migrationsFS.ReadFile("migrations/" + version + ".sql")
	if err != nil {
		return fmt.Errorf("read migration %s: %w", version, err)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", version, err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = errors.Join(err, fmt.Errorf("rollback migration %s: %w", version, rbErr))
		}
	}()

	if _, err = tx.ExecContext(ctx, string(body)); err != nil {
		return fmt.Errorf("exec migration %s: %w", version, err)
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
		return fmt.Errorf("record migration %s: %w", version, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", version, err)
	}
	return nil
}
