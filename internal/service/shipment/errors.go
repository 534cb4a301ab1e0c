package shipment

import "errors"

// Sentinel errors for the shipment service layer.
var (
	ErrNotFound  = errors.New("shipment not found")
	ErrInvalidID = errors.New("invalid shipment id")
)
