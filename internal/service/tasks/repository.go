package tasks

import (
	"context"
	"time"

	"github.com/ignite/courier-ops/internal/domain"
)

// Repository defines the data access contract for task records.
// Implementations must be safe for concurrent use.
type Repository interface {
	// List returns every task matching the filter. Tasks without a parsed
	// date are excluded whenever a date bound is set.
	List(ctx context.Context, f Filter) ([]domain.Task, error)
}

// Filter narrows the tasks an aggregation reads. Bounds are inclusive; an
// empty Users matches everyone.
type Filter struct {
	From  *time.Time
	To    *time.Time
	Users []string
}
