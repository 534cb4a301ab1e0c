package loader

import "errors"

// Sentinel errors for the loader service layer.
var (
	ErrUnknownDataset = errors.New("unknown dataset")
	ErrEmptyPayload   = errors.New("records must be a non-empty array of objects")
)
