package core

import "errors"

// Sentinel errors returned by the stock engine and the workflow services.
// Callers classify with errors.Is; every failure leaves the database untouched
// (the enclosing transaction is rolled back).
var (
	// ErrInvalidQuantity means a non-positive quantity was supplied.
	ErrInvalidQuantity = errors.New("quantity must be positive")

	// ErrInsufficientStock means the operation would drive on-hand quantity
	// negative at a location that does not allow negative stock.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInsufficientAvailableStock means a reservation was requested for more
	// than quantity - reserved_quantity.
	ErrInsufficientAvailableStock = errors.New("insufficient available stock")

	// ErrOverRelease means a release was requested for more than is reserved.
	ErrOverRelease = errors.New("release exceeds reserved quantity")

	// ErrOverReceipt means a receipt was requested for more than quantity_pending.
	ErrOverReceipt = errors.New("receipt exceeds pending quantity")

	// ErrInvalidStateTransition means a workflow action was attempted from a
	// state that does not permit it.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrAlreadyResolved means the alert was resolved earlier; resolution is one-way.
	ErrAlreadyResolved = errors.New("alert already resolved")

	// ErrNotFound means the referenced row does not exist (or is soft-deleted).
	ErrNotFound = errors.New("not found")
)
