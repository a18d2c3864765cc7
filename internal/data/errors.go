package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrShipmentNotFound = errors.New("shipment not found")
	ErrEmailRequired    = errors.New("email is required")
)
