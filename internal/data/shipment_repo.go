package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/harborline/backoffice/internal/data/database"
	"github.com/harborline/backoffice/internal/data/pgxutil"
	"github.com/harborline/backoffice/internal/domain/model"
	apperrors "github.com/harborline/backoffice/internal/errors"
	"github.com/harborline/backoffice/internal/ports"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const shipmentColumns = `id, bol_number, organization, carrier, status, shipped_at, created_at`

var shipmentColumnList = strings.Split(strings.ReplaceAll(shipmentColumns, " ", ""), ",")

// ShipmentRepo reads the shipment history table.
type ShipmentRepo struct {
	DB *sql.DB
}

// NewShipmentRepo creates a new ShipmentRepo.
func NewShipmentRepo(db *sql.DB) *ShipmentRepo {
	return &ShipmentRepo{DB: db}
}

var _ ports.ShipmentRepository = (*ShipmentRepo)(nil)

// List returns shipments newest first. An empty filter organization lists all organizations.
func (r *ShipmentRepo) List(ctx context.Context, filter model.ShipmentFilter) ([]model.Shipment, error) {
	query, args := buildShipmentListQuery(filter.Normalize())
	rows, err := pgxutil.CollectAll[model.Shipment](ctx, r.DB, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list shipments: %w", apperrors.MapDBError(err))
	}
	return rows, nil
}

func buildShipmentListQuery(f model.ShipmentFilter) (string, []any) {
	return database.BuildListQuery(database.NewListQueryOptions("shipments",
		database.WithColumns(shipmentColumnList...),
		database.WithConditionIf(f.Organization != "",
			database.WhereCond("organization", database.Equal, f.Organization)),
		database.WithConditionIf(f.Status != "",
			database.WhereCond("status", database.Equal, string(f.Status))),
		database.WithOrderBy("created_at", "DESC"),
		database.WithOrderBy("id", ""),
		database.WithLimit(f.Limit),
		database.WithOffset(f.Offset),
	))
}

// GetByID returns one shipment or ErrShipmentNotFound.
func (r *ShipmentRepo) GetByID(ctx context.Context, id string) (model.Shipment, error) {
	s, err := pgxutil.CollectOne[model.Shipment](ctx, r.DB,
		`SELECT `+shipmentColumns+` FROM shipments WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
			return model.Shipment{}, ErrShipmentNotFound
		}
		return model.Shipment{}, fmt.Errorf("get shipment: %w", apperrors.MapDBError(err))
	}
	return s, nil
}

// Delete removes a shipment and reports whether a row existed.
func (r *ShipmentRepo) Delete(ctx context.Context, id string) (bool, error) {
	var affected int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, err := conn.Exec(ctx, `DELETE FROM shipments WHERE id = $1`, id)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		return nil
	})
	if err != nil {
		if isInvalidUUID(err) {
			return false, nil
		}
		return false, fmt.Errorf("delete shipment: %w", apperrors.MapDBError(err))
	}
	return affected > 0, nil
}

// isInvalidUUID reports a malformed id literal, which can never match a row.
func isInvalidUUID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.InvalidTextRepresentation
}
