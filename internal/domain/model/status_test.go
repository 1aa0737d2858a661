package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCartStatus_Transitions(t *testing.T) {
	assert.True(t, CartStatusPending.CanTransitionTo(CartStatusActive))
	assert.True(t, CartStatusActive.CanTransitionTo(CartStatusDeleted))
	assert.True(t, CartStatusActive.CanTransitionTo(CartStatusActive))

	assert.False(t, CartStatusActive.CanTransitionTo(CartStatusPending))
	assert.False(t, CartStatusDeleted.CanTransitionTo(CartStatusActive))
	assert.False(t, CartStatus("Archived").Valid())
	assert.False(t, CartStatus("Archived").CanTransitionTo(CartStatus("Archived")))

	assert.True(t, CartStatusPending.Open())
	assert.False(t, CartStatusDeleted.Open())
}

func TestOrderStatus_Transitions(t *testing.T) {
	assert.True(t, OrderStatusPending.CanTransitionTo(OrderStatusPaid))
	assert.True(t, OrderStatusPaid.CanTransitionTo(OrderStatusShipped))
	assert.True(t, OrderStatusPaid.CanTransitionTo(OrderStatusCancelled))

	assert.False(t, OrderStatusShipped.CanTransitionTo(OrderStatusPending))
	assert.False(t, OrderStatusCancelled.CanTransitionTo(OrderStatusPaid))
	assert.False(t, OrderStatusPending.CanTransitionTo(OrderStatusShipped))
}

func TestPaymentStatus_Transitions(t *testing.T) {
	assert.True(t, PaymentStatusPending.CanTransitionTo(PaymentStatusPaid))
	assert.True(t, PaymentStatusPaid.CanTransitionTo(PaymentStatusCancel))
	assert.False(t, PaymentStatusCancel.CanTransitionTo(PaymentStatusPending))
	assert.False(t, PaymentStatus("Refunded").Valid())
}

func TestCart_OwnedBy(t *testing.T) {
	uid := int64(42)
	assert.True(t, Cart{UserID: &uid}.OwnedBy(42))
	assert.False(t, Cart{UserID: &uid}.OwnedBy(7))
	assert.True(t, Cart{}.OwnedBy(7))
}

func TestSumItems(t *testing.T) {
	items := []CartItem{
		{Quantity: 2, Price: decimal.RequireFromString("10.00")},
		{Quantity: 1, Price: decimal.RequireFromString("5.00")},
		{Quantity: 3, Price: decimal.RequireFromString("0.10")},
	}
	assert.True(t, SumItems(items).Equal(decimal.RequireFromString("25.30")))
	assert.True(t, SumItems(nil).IsZero())
}
