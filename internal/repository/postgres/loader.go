package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ignite/courier-ops/internal/service/loader"
	"github.com/lib/pq"
)

// LoaderRepo implements loader.Repository against PostgreSQL.
type LoaderRepo struct{ db *sql.DB }

// NewLoaderRepo creates a Postgres-backed bulk loading repository.
func NewLoaderRepo(db *sql.DB) *LoaderRepo { return &LoaderRepo{db: db} }

func (r *LoaderRepo) Clear(ctx context.Context, t loader.Table) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM "+pq.QuoteIdentifier(t.Name)); err != nil {
		return fmt.Errorf("clear %s: %w", t.Name, err)
	}
	return nil
}

func (r *LoaderRepo) ExistingKeys(ctx context.Context, t loader.Table, keys []string) ([]string, error) {
	if t.KeyColumn == "" || len(keys) == 0 {
		return nil, nil
	}
	col := pq.QuoteIdentifier(t.KeyColumn)
	if t.KeyFold {
		col = "lower(" + col + ")"
		folded := make([]string, len(keys))
		for i, k := range keys {
			folded[i] = strings.ToLower(k)
		}
		keys = folded
	}

	q := fmt.Sprintf(`SELECT DISTINCT %s FROM %s WHERE %s = ANY($1)`, col, pq.QuoteIdentifier(t.Name), col)
	rows, err := r.db.QueryContext(ctx, q, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("existing keys in %s: %w", t.Name, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// maxBindParams is the PostgreSQL limit on parameters per statement.
const maxBindParams = 65535

// duplicateReason reports a row skipped by ON CONFLICT DO NOTHING.
const duplicateReason = "unique_violation: duplicate key"

func quotedColumns(t loader.Table) string {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = pq.QuoteIdentifier(c)
	}
	return strings.Join(cols, ", ")
}

func insertSQL(t loader.Table) string {
	marks := make([]string, len(t.Columns))
	for i := range t.Columns {
		marks[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pq.QuoteIdentifier(t.Name), quotedColumns(t), strings.Join(marks, ", "))
}

// multiInsertSQL builds one INSERT for every row. Rows that hit a unique
// constraint are skipped; the ids of the stored rows come back. The first
// column of every table is its id.
func multiInsertSQL(t loader.Table, rows []loader.Row) (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", pq.QuoteIdentifier(t.Name), quotedColumns(t))
	args := make([]any, 0, len(rows)*len(t.Columns))
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j, v := range row.Values {
			if j > 0 {
				b.WriteString(", ")
			}
			args = append(args, v)
			fmt.Fprintf(&b, "$%d", len(args))
		}
		b.WriteByte(')')
	}
	fmt.Fprintf(&b, " ON CONFLICT DO NOTHING RETURNING %s", pq.QuoteIdentifier(t.Columns[0]))
	return b.String(), args
}

// InsertBatch inserts the batch in one transaction. Each chunk is tried
// as a single multi-row statement; a data error in a chunk rolls it back
// and retries its rows with a savepoint each, so a bad row is reported
// while the rest of the batch still commits.
func (r *LoaderRepo) InsertBatch(ctx context.Context, t loader.Table, rows []loader.Row) (loader.BatchOutcome, error) {
	var out loader.BatchOutcome
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return out, fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()

	size := max(1, maxBindParams/max(1, len(t.Columns)))
	for start := 0; start < len(rows); start += size {
		part, err := insertChunk(ctx, tx, t, rows[start:min(start+size, len(rows))])
		if err != nil {
			return loader.BatchOutcome{}, err
		}
		out.Inserted += part.Inserted
		out.Failures = append(out.Failures, part.Failures...)
	}

	if err := tx.Commit(); err != nil {
		return loader.BatchOutcome{}, fmt.Errorf("commit batch: %w", err)
	}
	return out, nil
}

func insertChunk(ctx context.Context, tx *sql.Tx, t loader.Table, rows []loader.Row) (loader.BatchOutcome, error) {
	if _, err := tx.ExecContext(ctx, "SAVEPOINT batch_sp"); err != nil {
		return loader.BatchOutcome{}, fmt.Errorf("savepoint at row %d: %w", rows[0].Index, err)
	}
	q, args := multiInsertSQL(t, rows)
	stored, err := queryIDs(ctx, tx, q, args)
	if err != nil {
		if !isRowError(err) {
			return loader.BatchOutcome{}, fmt.Errorf("insert rows %d-%d into %s: %w",
				rows[0].Index, rows[len(rows)-1].Index, t.Name, err)
		}
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT batch_sp"); rbErr != nil {
			return loader.BatchOutcome{}, fmt.Errorf("rollback chunk at row %d: %w", rows[0].Index, rbErr)
		}
		return insertEach(ctx, tx, t, rows)
	}
	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT batch_sp"); err != nil {
		return loader.BatchOutcome{}, fmt.Errorf("release savepoint at row %d: %w", rows[0].Index, err)
	}

	var out loader.BatchOutcome
	for _, row := range rows {
		if stored[fmt.Sprint(row.Values[0])] {
			out.Inserted++
			continue
		}
		out.Failures = append(out.Failures, loader.RowFailure{Row: row.Index, Key: row.Key, Reason: duplicateReason})
	}
	return out, nil
}

func queryIDs(ctx context.Context, tx *sql.Tx, q string, args []any) (map[string]bool, error) {
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// insertEach inserts rows one by one, each under its own savepoint. A row
// that violates a constraint or carries bad data is rolled back and
// reported.
func insertEach(ctx context.Context, tx *sql.Tx, t loader.Table, rows []loader.Row) (loader.BatchOutcome, error) {
	var out loader.BatchOutcome
	q := insertSQL(t)
	for _, row := range rows {
		if _, err := tx.ExecContext(ctx, "SAVEPOINT row_sp"); err != nil {
			return loader.BatchOutcome{}, fmt.Errorf("savepoint at row %d: %w", row.Index, err)
		}
		if _, err := tx.ExecContext(ctx, q, row.Values...); err != nil {
			if !isRowError(err) {
				return loader.BatchOutcome{}, fmt.Errorf("insert row %d into %s: %w", row.Index, t.Name, err)
			}
			if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT row_sp"); rbErr != nil {
				return loader.BatchOutcome{}, fmt.Errorf("rollback row %d: %w", row.Index, rbErr)
			}
			out.Failures = append(out.Failures, loader.RowFailure{Row: row.Index, Key: row.Key, Reason: rowErrorReason(err)})
			continue
		}
		if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT row_sp"); err != nil {
			return loader.BatchOutcome{}, fmt.Errorf("release savepoint at row %d: %w", row.Index, err)
		}
		out.Inserted++
	}
	return out, nil
}
