package errors

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// reKeyField extracts field name from unique violation detail: "Key (field)=(value) already exists.".
var reKeyField = regexp.MustCompile(`Key \(([^)]+)\)=`)

// MapDBError maps database errors to AppError instances.
// pgx.ErrNoRows becomes NotFound, constraint violations become Conflict/ForeignKey/Validation
// and context errors become Timeout/Canceled. Anything else is returned unchanged.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &AppError{Code: ErrCodeTimeout, Message: "Request timed out. Please try again.", Cause: err}
	case errors.Is(err, context.Canceled):
		return &AppError{Code: ErrCodeCanceled, Message: "Request was canceled.", Cause: err}
	case errors.Is(err, pgx.ErrNoRows):
		return &AppError{Code: ErrCodeNotFound, Message: "Resource not found", Cause: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapPgError(pgErr)
	}
	return err
}

func mapPgError(pgErr *pgconn.PgError) error {
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return &AppError{
			Code:    ErrCodeConflict,
			Message: "This value already exists.",
			Field:   uniqueField(pgErr),
			Cause:   pgErr,
		}
	case pgerrcode.ForeignKeyViolation:
		return &AppError{
			Code:    ErrCodeForeignKey,
			Message: "Cannot complete operation because a referenced " + tableLabel(pgErr.TableName) + " is involved.",
			Cause:   pgErr,
		}
	case pgerrcode.CheckViolation:
		return &AppError{Code: ErrCodeValidation, Message: "This field has an invalid value.", Field: pgErr.ColumnName, Cause: pgErr}
	case pgerrcode.NotNullViolation:
		return &AppError{Code: ErrCodeValidation, Message: "This field is required.", Field: pgErr.ColumnName, Cause: pgErr}
	case pgerrcode.ConnectionException, pgerrcode.ConnectionFailure, pgerrcode.CannotConnectNow:
		return &AppError{Code: ErrCodeUnavailable, Message: "Database unavailable.", Cause: pgErr}
	default:
		return &AppError{Code: ErrCodeInternal, Message: "A database error occurred. Please try again.", Cause: pgErr}
	}
}

// uniqueField prefers column metadata, then the Detail message, then the constraint name
// ("users_email_key" -> "email").
func uniqueField(pgErr *pgconn.PgError) string {
	if pgErr.ColumnName != "" {
		return pgErr.ColumnName
	}
	if m := reKeyField.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
		return m[1]
	}
	parts := strings.Split(pgErr.ConstraintName, "_")
	if len(parts) == 3 {
		return parts[1]
	}
	return ""
}

func tableLabel(table string) string {
	switch strings.ToLower(strings.TrimSpace(table)) {
	case "users":
		return "user"
	case "shipments":
		return "shipment"
	case "":
		return "record"
	default:
		return strings.ReplaceAll(table, "_", " ")
	}
}
