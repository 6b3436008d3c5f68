package models

import "errors"

// Error validasi lokal. Semuanya sinkron: dilaporkan langsung ke pemanggil
// dan tidak pernah masuk antrian sync.
var (
	ErrItemUnavailable   = errors.New("menu item is not available")
	ErrOrderLocked       = errors.New("order is billed/paid and can no longer be modified")
	ErrEmptyOrder        = errors.New("order has no lines with quantity > 0")
	ErrNegativeQuantity  = errors.New("quantity must not be negative")
	ErrChannelMismatch   = errors.New("order channel is fixed at creation")
	ErrInvalidTransition = errors.New("operation not allowed in current order status")
	ErrOrderNotFound     = errors.New("order not found")
	ErrMenuNotFound      = errors.New("menu item not found")
	ErrPinRequired       = errors.New("manager PIN required for this discount")
	ErrPinInvalid        = errors.New("manager PIN is invalid")
)
