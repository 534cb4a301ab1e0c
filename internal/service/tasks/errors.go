package tasks

import "errors"

var (
	ErrInvalidGroupBy = errors.New("invalid groupBy")
	ErrUserRequired   = errors.New("user is required")
)
