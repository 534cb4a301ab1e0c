package reconcile

import (
	"context"

	"github.com/ignite/courier-ops/internal/domain"
)

// Reference is the part of a measurement row the engine reads.
type Reference struct {
	OrderKey   string
	Weight     float64
	DistanceKm float64
}

// Primary is the part of an order row the engine reads.
type Primary struct {
	ID       string
	OrderKey string
}

// ChargeUpdate sets the derived columns of one order.
type ChargeUpdate struct {
	ID      string
	Charges domain.ChargeTier
}

// Repository defines the data access contract for reconciliation.
type Repository interface {
	// CountPrimary returns the number of order rows.
	CountPrimary(ctx context.Context) (int, error)

	// CountReference returns the number of measurement rows.
	CountReference(ctx context.Context) (int, error)

	// References returns every measurement row in upload order.
	References(ctx context.Context) ([]Reference, error)

	// PrimaryPage returns up to limit orders with ID greater than afterID,
	// ordered by ID. An empty afterID starts from the beginning.
	PrimaryPage(ctx context.Context, afterID string, limit int) ([]Primary, error)

	// ApplyCharges writes the derived columns in one statement and returns
	// how many rows actually changed. Rows whose values already match are
	// not counted.
	ApplyCharges(ctx context.Context, updates []ChargeUpdate) (int, error)
}

// Transactor is implemented by repositories that can run a function inside
// one database transaction. fn receives a Repository bound to the
// transaction; returning an error rolls it back.
type Transactor interface {
	InTx(ctx context.Context, fn func(Repository) error) error
}
