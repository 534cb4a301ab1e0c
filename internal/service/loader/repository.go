package loader

import "context"

// Table describes where a dataset's rows go.
type Table struct {
	Name    string
	Columns []string
	// KeyColumn is the natural key column, "" when the dataset has none.
	KeyColumn string
	// KeyFold compares natural keys case-insensitively.
	KeyFold bool
}

// Row is one insertable record. Values align with Table.Columns.
type Row struct {
	Index  int // 1-based position in the uploaded payload
	Key    string
	Values []any
}

// RowFailure is a row the store refused without failing the batch.
type RowFailure struct {
	Row    int    `json:"row"`
	Key    string `json:"key,omitempty"`
	Reason string `json:"reason"`
}

// BatchOutcome reports what happened to one batch.
type BatchOutcome struct {
	Inserted int
	Failures []RowFailure
}

// Repository defines the data access contract for bulk loading.
type Repository interface {
	// Clear deletes every row of the table.
	Clear(ctx context.Context, t Table) error

	// ExistingKeys returns the subset of keys already stored. With
	// t.KeyFold the comparison ignores case and returned keys are lowercase.
	ExistingKeys(ctx context.Context, t Table, keys []string) ([]string, error)

	// InsertBatch inserts rows without stopping at the first bad row:
	// uniqueness and data errors are returned as failures. A non-nil error
	// means the batch hit an infrastructure problem.
	InsertBatch(ctx context.Context, t Table, rows []Row) (BatchOutcome, error)
}
