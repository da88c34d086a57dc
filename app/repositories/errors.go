package repositories

import "errors"

var (
	// ErrPersistence wraps any failure of the local store.
	ErrPersistence = errors.New("local store failure")
	// ErrLineNotFound is returned when a cart line id does not exist.
	ErrLineNotFound = errors.New("cart line not found")
	// ErrEmptyOrder is returned when an order is recorded without lines.
	ErrEmptyOrder = errors.New("order has no lines")
)
