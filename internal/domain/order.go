package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// orderTransitions is the full edge set of the order status machine.
// DELIVERED and CANCELLED have no outgoing edges.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:      {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:   {OrderStatusDelivered},
	OrderStatusDelivered: {},
	OrderStatusCancelled: {},
}

func (s OrderStatus) IsValid() bool {
	_, ok := orderTransitions[s]
	return ok
}

func (s OrderStatus) IsTerminal() bool {
	edges, ok := orderTransitions[s]
	return ok && len(edges) == 0
}

func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, next := range orderTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

func (s OrderStatus) String() string {
	return string(s)
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

type Order struct {
	ID              int64           `db:"id" json:"id"`
	UserID          int64           `db:"user_id" json:"user_id"`
	OrderNumber     string          `db:"order_number" json:"order_number"`
	Status          OrderStatus     `db:"status" json:"status"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"total_amount"`
	ShippingAddress json.RawMessage `db:"shipping_address" json:"shipping_address"`
	PaymentMethod   string          `db:"payment_method" json:"payment_method"`
	PaymentStatus   PaymentStatus   `db:"payment_status" json:"payment_status"`
	Notes           string          `db:"notes" json:"notes"`
	Items           []OrderItem     `json:"items"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// OrderItem freezes the unit price at order time; it is never re-read
// from the catalog afterwards.
type OrderItem struct {
	ID                 int64           `db:"id" json:"id"`
	OrderID            int64           `db:"order_id" json:"order_id"`
	ProductID          int64           `db:"product_id" json:"product_id"`
	ProductName        string          `db:"product_name" json:"product_name"`
	Quantity           int32           `db:"quantity" json:"quantity"`
	UnitPrice          decimal.Decimal `db:"unit_price" json:"unit_price"`
	SelectedAttributes string          `db:"selected_attributes" json:"selected_attributes"`
}

func (i *OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt32(i.Quantity))
}

func (o *Order) CanBeCancelled() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusPaid
}

func (o *Order) CanBeShipped() bool {
	return o.Status == OrderStatusPaid
}

func (o *Order) CanBeDelivered() bool {
	return o.Status == OrderStatusShipped
}

func (o *Order) ItemCount() int {
	return len(o.Items)
}

func (o *Order) TotalQuantity() int32 {
	var total int32
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}

// Transition moves the order along the status machine, rejecting any
// edge that is not in orderTransitions.
func (o *Order) Transition(target OrderStatus) error {
	if !o.Status.CanTransitionTo(target) {
		return &IllegalTransitionError{From: o.Status, To: target}
	}
	o.Status = target
	return nil
}

// ApplyPaymentStatus records the new payment status and applies the
// cascade rule: payment PAID on a PENDING order advances the order
// status to PAID as well. Reports whether the order status cascaded.
// FAILED and REFUNDED deliberately leave the order status alone.
func (o *Order) ApplyPaymentStatus(status PaymentStatus) bool {
	o.PaymentStatus = status
	if status == PaymentStatusPaid && o.Status == OrderStatusPending {
		o.Status = OrderStatusPaid
		return true
	}
	return false
}
