package domain

import "errors"

var (
	// ErrEmptyBasket is returned when checkout is attempted with no basket entries
	ErrEmptyBasket = errors.New("basket is empty")

	// ErrInvalidAmount is returned when a non-positive amount is requested from the gateway
	ErrInvalidAmount = errors.New("invoice amount must be positive")

	// ErrGatewayUnavailable is returned when the payment backend cannot be reached or is unconfigured
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrItemNotFound is returned when an item identifier is unknown to the catalog
	ErrItemNotFound = errors.New("item not found")
)
