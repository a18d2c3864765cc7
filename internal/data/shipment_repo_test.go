package data

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/harborline/backoffice/internal/domain/model"
	"github.com/harborline/backoffice/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildShipmentListQuery(t *testing.T) {
	q, args := buildShipmentListQuery(model.ShipmentFilter{Organization: "Acme", Status: "delivered"}.Normalize())
	cols := `"id", "bol_number", "organization", "carrier", "status", "shipped_at", "created_at"`
	assert.Equal(t,
		`SELECT `+cols+` FROM "shipments" WHERE "organization" = $1 AND "status" = $2 ORDER BY "created_at" DESC, "id" LIMIT $3 OFFSET $4`,
		q)
	assert.Equal(t, []any{"Acme", "delivered", 50, 0}, args)

	q, args = buildShipmentListQuery(model.ShipmentFilter{Limit: 10, Offset: 20}.Normalize())
	assert.Equal(t, `SELECT `+cols+` FROM "shipments" ORDER BY "created_at" DESC, "id" LIMIT $1 OFFSET $2`, q)
	assert.Equal(t, []any{10, 20}, args)
}

func seedShipment(t *testing.T, db *sql.DB, bol, org string, createdAt time.Time) string {
	t.Helper()
	var id string
	err := db.QueryRowContext(context.Background(),
		`INSERT INTO shipments (bol_number, organization, carrier, status, created_at)
		 VALUES ($1, $2, 'Maersk', 'in_transit', $3) RETURNING id`, bol, org, createdAt).Scan(&id)
	require.NoError(t, err)
	return id
}

func TestShipmentRepo_ListGetDelete(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewShipmentRepo(db)
		base := testutil.TestTime()

		acme1 := seedShipment(t, db, "BOL-1", "Acme", base)
		seedShipment(t, db, "BOL-2", "Acme", base.Add(time.Hour))
		other := seedShipment(t, db, "BOL-3", "Globex", base.Add(2*time.Hour))

		all, err := repo.List(ctx, model.ShipmentFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "BOL-3", all[0].BOLNumber)

		acme, err := repo.List(ctx, model.ShipmentFilter{Organization: "Acme"})
		require.NoError(t, err)
		require.Len(t, acme, 2)
		for _, s := range acme {
			assert.Equal(t, "Acme", s.Organization)
		}

		got, err := repo.GetByID(ctx, acme1)
		require.NoError(t, err)
		assert.Equal(t, model.ShipmentStatusInTransit, got.Status)

		_, err = repo.GetByID(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, ErrShipmentNotFound)

		deleted, err := repo.Delete(ctx, other)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = repo.Delete(ctx, other)
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}
