package roster

import "errors"

// Sentinel errors for the roster service layer.
var (
	ErrNotFound       = errors.New("mitra not found")
	ErrDuplicatePhone = errors.New("phone number already belongs to another mitra")
	ErrInvalidID      = errors.New("invalid mitra id")
)
