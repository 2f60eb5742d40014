package services

import "errors"

var (
	// ErrInvalidAction is returned for redirect-URL actions other than
	// "return" and "notify", before any network call is made.
	ErrInvalidAction = errors.New("invalid redirect action")

	ErrNoRemoteResource = errors.New("transaction has no remote resource")
	ErrNoOrder          = errors.New("transaction is not attached to an order")

	// Shipping failures, each distinct and surfaced to the caller.
	ErrShipOrderNotFound    = errors.New("remote order not found at the psp")
	ErrShipAlreadyCompleted = errors.New("remote order is already completed")
	ErrShipNotPaid          = errors.New("remote order is not paid or authorized")
	ErrShipRejected         = errors.New("the psp rejected the shipment")
)
