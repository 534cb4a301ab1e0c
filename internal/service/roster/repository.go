package roster

import (
	"context"
	"time"

	"github.com/ignite/courier-ops/internal/domain"
)

// Repository defines the data access contract for the mitra roster.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns a single mitra. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.Mitra, error)

	// List returns mitras matching the filter and the total match count.
	List(ctx context.Context, f ListFilter) ([]domain.Mitra, int, error)

	// CountByStatus counts mitras per status whose cohort date
	// (registration, else creation) falls in the filter's range.
	CountByStatus(ctx context.Context, f DashboardFilter) (map[string]int, error)

	// PhoneTaken reports whether another mitra (ID != exceptID) already uses
	// phone, ignoring case.
	PhoneTaken(ctx context.Context, phone, exceptID string) (bool, error)

	// Update applies the non-nil fields and returns the updated row.
	// Returns ErrNotFound or ErrDuplicatePhone.
	Update(ctx context.Context, id string, f UpdateFields) (*domain.Mitra, error)

	// Delete removes one mitra and returns it. Returns ErrNotFound if missing.
	Delete(ctx context.Context, id string) (*domain.Mitra, error)

	// DeleteMany removes the given ids and returns how many existed.
	DeleteMany(ctx context.Context, ids []string) (int, error)
}

// ListFilter controls pagination, search and ordering for roster lists.
// SortBy is a column name already checked against the allowed set.
type ListFilter struct {
	Search   string
	SortBy   string
	SortDesc bool
	Limit    int
	Offset   int
}

// DashboardFilter bounds the dashboard to a cohort date range. Nil bounds
// are open.
type DashboardFilter struct {
	From *time.Time
	To   *time.Time
}

// UpdateFields holds the mutable fields for a mitra update.
// Nil fields are not applied. RegisteredAt is set together with
// RegisteredAtRaw; a raw value that does not parse stores a NULL date.
type UpdateFields struct {
	FullName        *string
	PhoneNumber     *string
	Status          *string
	City            *string
	RegisteredAtRaw *string
	RegisteredAt    *time.Time
}
