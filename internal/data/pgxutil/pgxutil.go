// Package pgxutil bridges database/sql handles opened with the pgx stdlib driver to native pgx connections.
package pgxutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// WithPgxConn acquires a *pgx.Conn via the stdlib bridge and executes fn with it.
func WithPgxConn(ctx context.Context, db *sql.DB, fn func(*pgx.Conn) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get conn from pool: %w", err)
	}
	defer func() { _ = conn.Close() }()

	return conn.Raw(func(dc any) error {
		std, ok := dc.(*stdlib.Conn)
		if !ok {
			return errors.New("unexpected driver connection type; expected *stdlib.Conn")
		}
		return fn(std.Conn())
	})
}

// CollectOne runs query on db and scans exactly one row into T by column name.
func CollectOne[T any](ctx context.Context, db *sql.DB, query string, args ...any) (T, error) {
	var out T
	err := WithPgxConn(ctx, db, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[T])
		return err
	})
	return out, err
}

// CollectAll runs query on db and scans every row into T by column name.
func CollectAll[T any](ctx context.Context, db *sql.DB, query string, args ...any) ([]T, error) {
	var out []T
	err := WithPgxConn(ctx, db, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, pgx.RowToStructByName[T])
		return err
	})
	return out, err
}
