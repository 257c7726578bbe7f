package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedErrors_MatchSentinels(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"config", NewConfigError("DATABASE_URL", "is required"), ErrConfig},
		{"validation", InvalidInputError("email", "Invalid email format"), ErrInvalidInput},
		{"persistence", Persistence(errors.New("duplicate key")), ErrPersistence},
		{"unreachable", Unreachable(errors.New("dial tcp: refused")), ErrUnreachable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.True(t, Is(wrapped, tt.target))
		})
	}
}

func TestPersistenceError_UnwrapsCause(t *testing.T) {
	err := Persistence(fmt.Errorf("insert: %w", context.DeadlineExceeded))

	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	var perr *PersistenceError
	assert.True(t, As(err, &perr))
	assert.Contains(t, perr.Error(), "persistence failure")
}

func TestPersistence_NilCause(t *testing.T) {
	assert.NoError(t, Persistence(nil))
}

func TestValidationError_Fields(t *testing.T) {
	err := InvalidInputError("phone", "phone is required")

	var verr *ValidationError
	assert.True(t, As(err, &verr))
	assert.Equal(t, "phone", verr.Field)
	assert.Equal(t, "phone is required", verr.Reason)
	assert.Equal(t, "phone: phone is required", err.Error())
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(fmt.Errorf("acquire: %w", ErrPoolExhausted)))
	assert.True(t, IsTransient(ErrConnectTimeout))
	assert.False(t, IsTransient(Persistence(errors.New("boom"))))
	assert.False(t, IsTransient(InvalidInputError("email", "bad")))
}

func TestUnreachable_Detail(t *testing.T) {
	err := Unreachable(nil)
	assert.Equal(t, "backend unreachable", err.Error())

	err = Unreachable(errors.New("timeout"))
	assert.Equal(t, "backend unreachable: timeout", err.Error())
}
