package reconcile

import "errors"

// Sentinel errors for the reconciliation engine.
var (
	ErrEmptyDataset   = errors.New("dataset is empty")
	ErrAlreadyRunning = errors.New("reconciliation already running")
)
