package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStatuses = []OrderStatus{
	StatusPending, StatusConfirmed, StatusPreparing, StatusReady, StatusServed, StatusCancelled,
}

func TestValidateTransition_Table(t *testing.T) {
	allowed := map[[2]OrderStatus]bool{
		{StatusPending, StatusConfirmed}:   true,
		{StatusPending, StatusCancelled}:   true,
		{StatusConfirmed, StatusPreparing}: true,
		{StatusConfirmed, StatusCancelled}: true,
		{StatusPreparing, StatusReady}:     true,
		{StatusPreparing, StatusCancelled}: true,
		{StatusReady, StatusServed}:        true,
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			err := ValidateTransition(from, to)
			if allowed[[2]OrderStatus{from, to}] {
				assert.NoError(t, err, "%s -> %s", from, to)
				continue
			}

			var invalid *InvalidTransitionError
			require.True(t, errors.As(err, &invalid), "%s -> %s should fail", from, to)
			assert.Equal(t, from, invalid.Current)
			assert.Equal(t, to, invalid.Requested)
			assert.NotEmpty(t, invalid.Reason)
		}
	}
}

func TestValidateTransition_Reasons(t *testing.T) {
	tests := []struct {
		name     string
		from, to OrderStatus
		reason   string
	}{
		{"served back to pending", StatusServed, StatusPending, "order is served and can no longer change"},
		{"cancel ready order", StatusReady, StatusCancelled, "order has reached the customer; issue a refund instead"},
		{"same status", StatusPreparing, StatusPreparing, "order is already preparing"},
		{"unknown target", StatusPending, OrderStatus("completed"), "unknown status"},
		{"skip ahead", StatusConfirmed, StatusServed, "transition is not part of the order lifecycle"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTransition(tt.from, tt.to)
			var invalid *InvalidTransitionError
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, tt.reason, invalid.Reason)
		})
	}
}

func TestOrderStatus_Predicates(t *testing.T) {
	assert.True(t, StatusServed.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusReady.Terminal())

	assert.True(t, StatusConfirmed.NeedsKitchen())
	assert.True(t, StatusPreparing.NeedsKitchen())
	assert.False(t, StatusReady.NeedsKitchen())
	assert.False(t, StatusPending.NeedsKitchen())

	assert.False(t, OrderStatus("completed").Valid())
}
