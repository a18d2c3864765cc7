package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/harborline/backoffice/internal/data/pgxutil"
	"github.com/harborline/backoffice/internal/domain/model"
	apperrors "github.com/harborline/backoffice/internal/errors"
	"github.com/harborline/backoffice/internal/ports"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, email, subject, display_name, last_login_at, created_at, updated_at`

// UserRepo stores local user records keyed by verified email.
type UserRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewUserRepo creates a new UserRepo with real time provider.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db, timeProvider: systemClock{}}
}

// NewUserRepoWithTimeProvider creates a UserRepo with a custom time provider (useful for tests).
func NewUserRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *UserRepo {
	return &UserRepo{DB: db, timeProvider: tp}
}

var _ ports.UserRepository = (*UserRepo)(nil)

// UpsertByEmail inserts the user or refreshes subject, display name and last login.
// Email matching is case-insensitive.
func (r *UserRepo) UpsertByEmail(ctx context.Context, in model.UpsertUserInput) (model.User, error) {
	email := normalizeEmail(in.Email)
	if email == "" {
		return model.User{}, ErrEmailRequired
	}
	loginAt := in.LoginAt
	if loginAt.IsZero() {
		loginAt = r.timeProvider.Now()
	}
	loginAt = loginAt.UTC()

	u, err := pgxutil.CollectOne[model.User](ctx, r.DB, `
		INSERT INTO users (email, subject, display_name, last_login_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4, $4)
		ON CONFLICT (lower(email)) DO UPDATE SET
			subject = EXCLUDED.subject,
			display_name = CASE WHEN EXCLUDED.display_name = '' THEN users.display_name ELSE EXCLUDED.display_name END,
			last_login_at = EXCLUDED.last_login_at,
			updated_at = EXCLUDED.updated_at
		RETURNING `+userColumns,
		email, strings.TrimSpace(in.Subject), strings.TrimSpace(in.DisplayName), loginAt,
	)
	if err != nil {
		return model.User{}, fmt.Errorf("upsert user: %w", apperrors.MapDBError(err))
	}
	return u, nil
}

// GetByEmail looks a user up by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return model.User{}, ErrEmailRequired
	}
	u, err := pgxutil.CollectOne[model.User](ctx, r.DB,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = $1`, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("get user by email: %w", apperrors.MapDBError(err))
	}
	return u, nil
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
