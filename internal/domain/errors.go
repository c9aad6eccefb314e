package domain

import "fmt"

// IllegalTransitionError names both ends of the rejected status edge.
type IllegalTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal order status transition from %s to %s", e.From, e.To)
}

// InsufficientStockError carries the stock level observed when the
// adjustment was rejected.
type InsufficientStockError struct {
	ProductID int64
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}
