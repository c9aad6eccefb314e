package service

import "errors"

var (
	ErrEmptyCart             = errors.New("cart is empty")
	ErrCartUnavailable       = errors.New("cart contains unavailable items")
	ErrUserInactive          = errors.New("user is not active")
	ErrOrderNumbersExhausted = errors.New("order number attempts exhausted")
)
