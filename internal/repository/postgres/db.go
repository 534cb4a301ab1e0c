package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ignite/courier-ops/internal/domain"
	"github.com/lib/pq"
)

// dbtx is satisfied by *sql.DB, *sql.Tx and *sql.Conn.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PoolOptions tunes the connection pool.
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string, opts PoolOptions) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// datasetTables maps datasets to their tables.
var datasetTables = map[domain.Dataset]string{
	domain.DatasetOrders:        "orders",
	domain.DatasetMeasurements:  "measurements",
	domain.DatasetShipments:     "shipments",
	domain.DatasetMitras:        "mitras",
	domain.DatasetPhoneMessages: "phone_messages",
	domain.DatasetTasks:         "tasks",
}

func tableFor(ds domain.Dataset) (string, error) {
	t, ok := datasetTables[ds]
	if !ok {
		return "", fmt.Errorf("no table for dataset %q", ds)
	}
	return t, nil
}

// likePattern builds a case-insensitive substring pattern for ILIKE.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func decodeAttributes(raw []byte) domain.Attributes {
	if len(raw) == 0 {
		return nil
	}
	var a domain.Attributes
	if err := json.Unmarshal(raw, &a); err != nil || len(a) == 0 {
		return nil
	}
	return a
}

// isUniqueViolation reports a SQLSTATE 23505 error.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// isRowError reports errors caused by one row's data: integrity
// constraint violations (class 23) and data exceptions (class 22).
func isRowError(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	class := pqErr.Code.Class()
	return class == "23" || class == "22"
}

func rowErrorReason(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Sprintf("%s: %s", pqErr.Code.Name(), pqErr.Message)
	}
	return err.Error()
}

// whereBuilder accumulates AND-ed conditions with positional arguments.
type whereBuilder struct {
	conds []string
	args  []any
}

// add appends cond, replacing each "?" with the next placeholder.
func (w *whereBuilder) add(cond string, args ...any) {
	for _, a := range args {
		w.args = append(w.args, a)
		cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", len(w.args)), 1)
	}
	w.conds = append(w.conds, cond)
}

func (w *whereBuilder) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// next returns the next free placeholder number.
func (w *whereBuilder) next() int { return len(w.args) + 1 }
