package cohort

import "errors"

// Sentinel errors for the cohort engine.
var (
	ErrUnknownGranularity = errors.New("unknown granularity")
	ErrInvalidPeriod      = errors.New("invalid period")
)
