package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesByKind(t *testing.T) {
	err := New(KindConcurrencyTimeout, "gate.Acquire", "waited too long", nil)
	wrapped := fmt.Errorf("process message: %w", err)

	assert.True(t, errors.Is(wrapped, ErrConcurrencyTimeout))
	assert.False(t, errors.Is(wrapped, ErrQueueOverflow))
	assert.Equal(t, KindConcurrencyTimeout, KindOf(wrapped))
}

func TestErrorUnwrapExposesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Upstream("ledger.CreateOrder", "ledger unavailable", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "UPSTREAM_UNAVAILABLE")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}
