package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{OrderStatusPending, OrderStatusPreparing, true},
		{OrderStatusPreparing, OrderStatusReady, true},
		{OrderStatusReady, OrderStatusCompleted, true},
		{OrderStatusPending, OrderStatusReady, true},
		{OrderStatusReady, OrderStatusPreparing, false},
		{OrderStatusCompleted, OrderStatusPending, false},
		{OrderStatusCompleted, OrderStatusCompleted, false},
		{OrderStatusPreparing, OrderStatusCancelled, true},
		{OrderStatusCancelled, OrderStatusPreparing, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestParseOrderType(t *testing.T) {
	typ, ok := ParseOrderType("Take Away")
	assert.True(t, ok)
	assert.Equal(t, OrderTypeTakeaway, typ)

	typ, ok = ParseOrderType("dine-in")
	assert.True(t, ok)
	assert.Equal(t, OrderTypeDineIn, typ)

	_, ok = ParseOrderType("teleport")
	assert.False(t, ok)
}

func TestOrderTotals(t *testing.T) {
	o := &Order{Items: []LineItem{
		{Name: "Burger", Quantity: 2, UnitPrice: 550},
		{Name: "Fries", Quantity: 1, UnitPrice: 250},
	}}
	assert.Equal(t, 1350.0, o.CalculateTotal())
	assert.Equal(t, "2x Burger, 1x Fries", o.ItemSummary())
}
