package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("root")
	err := Wrap(cause, ErrCodeInternal, "failed")
	assert.Equal(t, "failed: root", err.Error())
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, "missing", (&AppError{Code: ErrCodeNotFound, Message: "missing"}).Error())
	assert.NoError(t, Wrap(nil, ErrCodeInternal, "x"))
}

func TestClassification(t *testing.T) {
	notFound := fmt.Errorf("get shipment: %w", &AppError{Code: ErrCodeNotFound, Message: "gone"})
	assert.True(t, IsNotFound(notFound))
	assert.False(t, IsConflict(notFound))
	assert.False(t, IsTransient(notFound))

	conflict := &AppError{Code: ErrCodeConflict, Field: "email"}
	assert.True(t, IsConflict(conflict))
	assert.Equal(t, "email", GetField(conflict))

	assert.True(t, IsTransient(MapDBError(context.DeadlineExceeded)))
	assert.True(t, IsTransient(Wrap(errors.New("dial tcp"), ErrCodeUnavailable, "database unavailable")))
	assert.False(t, IsTransient(MapDBError(context.Canceled)))

	assert.Equal(t, ErrorCode(""), GetCode(errors.New("plain")))
	assert.Empty(t, GetField(errors.New("plain")))
}
