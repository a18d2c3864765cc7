package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapDBError(t *testing.T) {
	plain := errors.New("boom")
	tests := []struct {
		name      string
		err       error
		wantCode  ErrorCode
		wantField string
	}{
		{name: "deadline exceeded", err: context.DeadlineExceeded, wantCode: ErrCodeTimeout},
		{name: "canceled", err: fmt.Errorf("query: %w", context.Canceled), wantCode: ErrCodeCanceled},
		{name: "no rows", err: pgx.ErrNoRows, wantCode: ErrCodeNotFound},
		{
			name:      "unique by column",
			err:       &pgconn.PgError{Code: pgerrcode.UniqueViolation, ColumnName: "email"},
			wantCode:  ErrCodeConflict,
			wantField: "email",
		},
		{
			name:      "unique by detail",
			err:       &pgconn.PgError{Code: pgerrcode.UniqueViolation, Detail: "Key (bol_number)=(X1) already exists."},
			wantCode:  ErrCodeConflict,
			wantField: "bol_number",
		},
		{
			name:      "unique by constraint",
			err:       &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"},
			wantCode:  ErrCodeConflict,
			wantField: "email",
		},
		{name: "foreign key", err: &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, TableName: "shipments"}, wantCode: ErrCodeForeignKey},
		{name: "not null", err: &pgconn.PgError{Code: pgerrcode.NotNullViolation, ColumnName: "carrier"}, wantCode: ErrCodeValidation, wantField: "carrier"},
		{name: "connection failure", err: &pgconn.PgError{Code: pgerrcode.ConnectionFailure}, wantCode: ErrCodeUnavailable},
		{name: "other pg error", err: &pgconn.PgError{Code: pgerrcode.DivisionByZero}, wantCode: ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapDBError(tt.err)
			assert.Equal(t, tt.wantCode, GetCode(got))
			assert.Equal(t, tt.wantField, GetField(got))
			assert.ErrorIs(t, got, tt.err)
		})
	}

	assert.NoError(t, MapDBError(nil))
	assert.Same(t, plain, MapDBError(plain))
}
