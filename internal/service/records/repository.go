package records

import (
	"context"

	"github.com/ignite/courier-ops/internal/domain"
)

// Repository defines the data access contract for the plain datasets.
// Implementations must be safe for concurrent use.
type Repository interface {
	// ListOrders returns orders matching the filter and the total match count.
	ListOrders(ctx context.Context, f OrderFilter) ([]domain.Order, int, error)

	// OrderStats counts orders with and without derived charges.
	OrderStats(ctx context.Context) (*OrderStats, error)

	// ListMeasurements returns measurements matching the filter.
	ListMeasurements(ctx context.Context, f MeasurementFilter) ([]domain.Measurement, int, error)

	// ListPhoneMessages returns one page of phone messages.
	ListPhoneMessages(ctx context.Context, limit, offset int) ([]domain.PhoneMessage, int, error)

	// Count returns the row count of a dataset table.
	Count(ctx context.Context, ds domain.Dataset) (int, error)

	// DeleteAll empties a dataset table and returns how many rows it had.
	DeleteAll(ctx context.Context, ds domain.Dataset) (int, error)
}

// OrderFilter controls pagination and filtering for order lists.
// Search matches order code and client name; Client is exact.
type OrderFilter struct {
	Search string
	Client string
	Limit  int
	Offset int
}

// MeasurementFilter controls pagination and filtering for measurement
// lists. Hub and Driver are case-insensitive substrings.
type MeasurementFilter struct {
	Hub    string
	Driver string
	Limit  int
	Offset int
}

// OrderStats summarizes the orders table.
type OrderStats struct {
	Total          int `json:"total"`
	WithCharges    int `json:"with_charges"`
	WithoutCharges int `json:"without_charges"`
}
