package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		allowed  bool
	}{
		{StatusPendingPayment, StatusCreated, true},
		{StatusPendingPayment, StatusCancelled, true},
		{StatusPendingPayment, StatusPacking, false},
		{StatusCreated, StatusPacking, true},
		{StatusCreated, StatusCancelled, true},
		{StatusPacking, StatusSent, true},
		{StatusSent, StatusCompleted, true},
		{StatusSent, StatusCancelled, false},
		{StatusCompleted, StatusPendingPayment, false},
		{StatusCancelled, StatusCreated, false},
		{StatusCreated, StatusCreated, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusPendingPayment.Terminal())
	assert.False(t, StatusSent.Terminal())
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus("packing")
	assert.NoError(t, err)
	assert.Equal(t, StatusPacking, st)

	_, err = ParseStatus("paid")
	assert.Error(t, err)
}
