package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		allowed  bool
	}{
		{OrderStatusPending, OrderStatusPaid, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusDelivered, false},
		{OrderStatusPaid, OrderStatusBooked, true},
		{OrderStatusBooked, OrderStatusInbound, true},
		{OrderStatusInbound, OrderStatusProcessing, true},
		{OrderStatusInbound, OrderStatusReadyToShip, false},
		{OrderStatusProcessing, OrderStatusReadyToShip, true},
		{OrderStatusProcessing, OrderStatusReturnRequested, true},
		{OrderStatusReadyToShip, OrderStatusDelivered, true},
		{OrderStatusReturnRequested, OrderStatusReturned, true},
		{OrderStatusReturnRequested, OrderStatusProcessing, true},
		// Terminal states allow nothing.
		{OrderStatusDelivered, OrderStatusReturnRequested, false},
		{OrderStatusCancelled, OrderStatusPending, false},
		{OrderStatusReturned, OrderStatusProcessing, false},
		// Unknown targets are never allowed.
		{OrderStatusPending, OrderStatus("BOGUS"), false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	assert.True(t, OrderStatusDelivered.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.True(t, OrderStatusReturned.IsTerminal())
	assert.False(t, OrderStatusProcessing.IsTerminal())
	assert.False(t, OrderStatusPending.IsTerminal())
}

func TestExtraChargeStatusValid(t *testing.T) {
	assert.True(t, ExtraChargePendingManager.IsValid())
	assert.True(t, ExtraChargeNone.IsValid())
	assert.False(t, ExtraChargeStatus("NOPE").IsValid())
}
