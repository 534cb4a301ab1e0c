package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/courier-ops/internal/service/cohort"
)

// CohortRepo implements cohort.Repository against PostgreSQL.
type CohortRepo struct{ db *sql.DB }

// NewCohortRepo creates a Postgres-backed cohort repository.
func NewCohortRepo(db *sql.DB) *CohortRepo { return &CohortRepo{db: db} }

// EachEvent streams shipments row by row. The period filter uses the
// month and year derived at upload time.
func (r *CohortRepo) EachEvent(ctx context.Context, f cohort.EventFilter, fn func(cohort.Event) error) error {
	w := &whereBuilder{}
	w.add("mitra_name <> '-'")
	w.add("delivery_date <> '-'")
	if f.Year != 0 {
		w.add("delivery_year = ?", f.Year)
	}
	if f.Month != 0 {
		w.add("delivery_month = ?", int(f.Month))
	}
	if f.Week != "" {
		w.add("weekly = ?", f.Week)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT mitra_name, delivery_date, weekly, order_code, hub, client_name, project_name
		FROM shipments`+w.sql()+`
		ORDER BY seq`, w.args...)
	if err != nil {
		return fmt.Errorf("scan shipments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e cohort.Event
		if err := rows.Scan(&e.EntityName, &e.DeliveryDate, &e.Week, &e.OrderCode, &e.Hub, &e.ClientName, &e.ProjectName); err != nil {
			return fmt.Errorf("scan shipment: %w", err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r *CohortRepo) Roster(ctx context.Context) ([]cohort.RosterEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT full_name, status, COALESCE(registered_at, created_at)
		FROM mitras
		ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	defer rows.Close()

	var out []cohort.RosterEntry
	for rows.Next() {
		var e cohort.RosterEntry
		if err := rows.Scan(&e.Name, &e.Status, &e.Date); err != nil {
			return nil, fmt.Errorf("scan roster entry: %w", err)
		}
		e.Date = e.Date.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
