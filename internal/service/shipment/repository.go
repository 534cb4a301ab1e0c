package shipment

import (
	"context"

	"github.com/ignite/courier-ops/internal/domain"
)

// Repository defines the data access contract for shipments.
// Implementations must be safe for concurrent use.
type Repository interface {
	// List returns shipments matching the filter, in upload order, and the
	// total match count.
	List(ctx context.Context, f ListFilter) ([]domain.Shipment, int, error)

	// Stats returns the row count and distinct value counts.
	Stats(ctx context.Context) (*domain.ShipmentStats, error)

	// Filters returns the distinct clients, projects, hubs and weeks,
	// sorted, excluding the "-" sentinel.
	Filters(ctx context.Context) (*domain.ShipmentFilters, error)

	// Update applies the non-nil fields and returns the updated row.
	// Returns ErrNotFound if it doesn't exist.
	Update(ctx context.Context, id string, u UpdateFields) (*domain.Shipment, error)

	// Delete removes one shipment. Returns ErrNotFound if it doesn't exist.
	Delete(ctx context.Context, id string) error

	// DeleteMany removes every listed shipment and returns how many existed.
	DeleteMany(ctx context.Context, ids []string) (int, error)
}

// ListFilter controls pagination and filtering for shipment lists. Search
// matches order code, client, project, hub and mitra name; the other
// filters are exact.
type ListFilter struct {
	Search  string
	Client  string
	Project string
	Hub     string
	Mitra   string
	Week    string
	Limit   int
	Offset  int
}

// UpdateFields holds the mutable fields for a shipment update.
// DeliveryMonth and DeliveryYear are set whenever DeliveryDate is; a date
// that does not parse stores zeros.
type UpdateFields struct {
	domain.ShipmentUpdate
	DeliveryMonth *int
	DeliveryYear  *int
}
