package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderEventItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int32 `json:"quantity"`
}

type OrderCreatedEvent struct {
	EventID     string           `json:"event_id"`
	OrderID     int64            `json:"order_id"`
	OrderNumber string           `json:"order_number"`
	UserID      int64            `json:"user_id"`
	TotalAmount decimal.Decimal  `json:"total_amount"`
	Items       []OrderEventItem `json:"items"`
	CreatedAt   time.Time        `json:"created_at"`
}

type OrderCancelledEvent struct {
	EventID     string           `json:"event_id"`
	OrderID     int64            `json:"order_id"`
	UserID      int64            `json:"user_id"`
	Items       []OrderEventItem `json:"items"`
	CancelledAt time.Time        `json:"cancelled_at"`
}

type OrderStatusChangedEvent struct {
	EventID string `json:"event_id"`
	OrderID int64  `json:"order_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}

type PaymentStatusChangedEvent struct {
	EventID       string `json:"event_id"`
	OrderID       int64  `json:"order_id"`
	PaymentStatus string `json:"payment_status"`
	OrderStatus   string `json:"order_status"`
}

type UserRegisteredEvent struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
}
