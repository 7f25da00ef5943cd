package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"validation", Validation("Minimum withdrawal amount is $%s", "15"), ErrValidation},
		{"not found", NotFound("Wallet not found"), ErrNotFound},
		{"state conflict", StateConflict("Withdrawal request already processed"), ErrStateConflict},
		{"insufficient", InsufficientBalance("Insufficient balance"), ErrInsufficientBalance},
		{"persistence", Persistence(errors.New("driver: bad connection"), "failed to create investment"), ErrPersistence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.kind)
			for _, other := range []error{ErrValidation, ErrNotFound, ErrStateConflict, ErrInsufficientBalance, ErrPersistence} {
				if other != tt.kind {
					assert.NotErrorIs(t, tt.err, other)
				}
			}
		})
	}
}

func TestWrappedTypedErrorKeepsKind(t *testing.T) {
	err := fmt.Errorf("failed to settle: %w", StateConflict("Withdrawal request already processed"))
	assert.ErrorIs(t, err, ErrStateConflict)
	assert.Equal(t, "Withdrawal request already processed", MessageOf(err))
}

func TestPersistence(t *testing.T) {
	cause := errors.New("driver: bad connection")
	err := Persistence(cause, "failed to create investment")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to create investment: driver: bad connection", err.Error())
	assert.Equal(t, "failed to create investment", MessageOf(err))

	typed := NotFound("Plan not found")
	assert.Same(t, typed, Persistence(typed, "ignored"))
	assert.Nil(t, Persistence(nil, "ignored"))
}

func TestMessageOf_Untyped(t *testing.T) {
	assert.Equal(t, "Internal server error", MessageOf(errors.New("boom")))
}
