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

func TestUserRepo_UpsertByEmail(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		clock := testutil.NewClock(testutil.TestTime())
		repo := NewUserRepoWithTimeProvider(db, clock)

		first, err := repo.UpsertByEmail(ctx, model.UpsertUserInput{
			Email: "Dana@Harborline.example", Subject: "sub-1", DisplayName: "Dana",
		})
		require.NoError(t, err)
		assert.Equal(t, "dana@harborline.example", first.Email)
		assert.WithinDuration(t, testutil.TestTime(), first.LastLoginAt, time.Second)

		clock.Advance(time.Hour)
		second, err := repo.UpsertByEmail(ctx, model.UpsertUserInput{Email: "dana@harborline.example", Subject: "sub-1"})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, "Dana", second.DisplayName, "empty display name keeps the stored one")
		assert.True(t, second.LastLoginAt.After(first.LastLoginAt))

		got, err := repo.GetByEmail(ctx, "DANA@harborline.example")
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)

		_, err = repo.GetByEmail(ctx, "nobody@harborline.example")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestUserRepo_RequiresEmail(t *testing.T) {
	repo := NewUserRepo(nil)
	_, err := repo.UpsertByEmail(context.Background(), model.UpsertUserInput{Email: "  "})
	assert.ErrorIs(t, err, ErrEmailRequired)
}
