package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatusTransitions(t *testing.T) {
	allowed := map[OrderStatus][]OrderStatus{
		OrderStatusPending: {OrderStatusPaid, OrderStatusCancelled},
		OrderStatusPaid:    {OrderStatusShipped, OrderStatusCancelled},
		OrderStatusShipped: {OrderStatusDelivered},
	}

	statuses := []OrderStatus{
		OrderStatusPending,
		OrderStatusPaid,
		OrderStatusShipped,
		OrderStatusDelivered,
		OrderStatusCancelled,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			want := false
			for _, next := range allowed[from] {
				if next == to {
					want = true
				}
			}
			assert.Equalf(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	assert.True(t, OrderStatusDelivered.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatusPending.IsTerminal())
	assert.False(t, OrderStatusPaid.IsTerminal())
	assert.False(t, OrderStatusShipped.IsTerminal())
}

func TestOrderStatusIsValid(t *testing.T) {
	assert.True(t, OrderStatusPending.IsValid())
	assert.False(t, OrderStatus("UNKNOWN").IsValid())
	assert.False(t, OrderStatus("").IsValid())
}

func TestTransitionRejectsIllegalEdge(t *testing.T) {
	order := &Order{Status: OrderStatusPending}

	err := order.Transition(OrderStatusShipped)
	require.Error(t, err)

	var transitionErr *IllegalTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, OrderStatusPending, transitionErr.From)
	assert.Equal(t, OrderStatusShipped, transitionErr.To)
	assert.Equal(t, OrderStatusPending, order.Status, "failed transition must not mutate the order")
}

func TestTransitionWalksHappyPath(t *testing.T) {
	order := &Order{Status: OrderStatusPending}

	require.NoError(t, order.Transition(OrderStatusPaid))
	require.NoError(t, order.Transition(OrderStatusShipped))
	require.NoError(t, order.Transition(OrderStatusDelivered))
	assert.Equal(t, OrderStatusDelivered, order.Status)

	require.Error(t, order.Transition(OrderStatusCancelled))
}

func TestApplyPaymentStatusCascades(t *testing.T) {
	order := &Order{Status: OrderStatusPending, PaymentStatus: PaymentStatusPending}

	cascaded := order.ApplyPaymentStatus(PaymentStatusPaid)
	assert.True(t, cascaded)
	assert.Equal(t, OrderStatusPaid, order.Status)
	assert.Equal(t, PaymentStatusPaid, order.PaymentStatus)
}

func TestApplyPaymentStatusNoCascade(t *testing.T) {
	cases := []struct {
		name          string
		orderStatus   OrderStatus
		paymentStatus PaymentStatus
	}{
		{"failed payment leaves pending order", OrderStatusPending, PaymentStatusFailed},
		{"refund leaves cancelled order", OrderStatusCancelled, PaymentStatusRefunded},
		{"paid payment on shipped order", OrderStatusShipped, PaymentStatusPaid},
		{"pending payment on pending order", OrderStatusPending, PaymentStatusPending},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := &Order{Status: tc.orderStatus, PaymentStatus: PaymentStatusPending}

			cascaded := order.ApplyPaymentStatus(tc.paymentStatus)
			assert.False(t, cascaded)
			assert.Equal(t, tc.orderStatus, order.Status)
			assert.Equal(t, tc.paymentStatus, order.PaymentStatus)
		})
	}
}

func TestCanBeCancelled(t *testing.T) {
	assert.True(t, (&Order{Status: OrderStatusPending}).CanBeCancelled())
	assert.True(t, (&Order{Status: OrderStatusPaid}).CanBeCancelled())
	assert.False(t, (&Order{Status: OrderStatusShipped}).CanBeCancelled())
	assert.False(t, (&Order{Status: OrderStatusDelivered}).CanBeCancelled())
	assert.False(t, (&Order{Status: OrderStatusCancelled}).CanBeCancelled())
}

func TestOrderTotals(t *testing.T) {
	order := &Order{
		Items: []OrderItem{
			{Quantity: 2, UnitPrice: decimal.RequireFromString("10.50")},
			{Quantity: 1, UnitPrice: decimal.RequireFromString("4.99")},
		},
	}

	assert.Equal(t, 2, order.ItemCount())
	assert.Equal(t, int32(3), order.TotalQuantity())
	assert.True(t, order.Items[0].Subtotal().Equal(decimal.RequireFromString("21.00")))
}
