package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/courier-ops/internal/service/reconcile"
	"github.com/lib/pq"
)

const zeroUUID = "00000000-0000-0000-0000-000000000000"

// ReconcileRepo implements reconcile.Repository and reconcile.Transactor
// against PostgreSQL.
type ReconcileRepo struct {
	db   *sql.DB
	exec dbtx
}

// NewReconcileRepo creates a Postgres-backed reconciliation repository.
func NewReconcileRepo(db *sql.DB) *ReconcileRepo { return &ReconcileRepo{db: db, exec: db} }

func (r *ReconcileRepo) count(ctx context.Context, table string) (int, error) {
	var n int
	if err := r.exec.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func (r *ReconcileRepo) CountPrimary(ctx context.Context) (int, error) {
	return r.count(ctx, "orders")
}

func (r *ReconcileRepo) CountReference(ctx context.Context) (int, error) {
	return r.count(ctx, "measurements")
}

func (r *ReconcileRepo) References(ctx context.Context) ([]reconcile.Reference, error) {
	rows, err := r.exec.QueryContext(ctx, `
		SELECT order_no, weight, distance_km
		FROM measurements
		ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("load measurements: %w", err)
	}
	defer rows.Close()

	var out []reconcile.Reference
	for rows.Next() {
		var ref reconcile.Reference
		if err := rows.Scan(&ref.OrderKey, &ref.Weight, &ref.DistanceKm); err != nil {
			return nil, fmt.Errorf("scan measurement: %w", err)
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

func (r *ReconcileRepo) PrimaryPage(ctx context.Context, afterID string, limit int) ([]reconcile.Primary, error) {
	if afterID == "" {
		afterID = zeroUUID
	}
	rows, err := r.exec.QueryContext(ctx, `
		SELECT id, order_code
		FROM orders
		WHERE id > $1::uuid
		ORDER BY id
		LIMIT $2
	`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("page orders after %s: %w", afterID, err)
	}
	defer rows.Close()

	var out []reconcile.Primary
	for rows.Next() {
		var p reconcile.Primary
		if err := rows.Scan(&p.ID, &p.OrderKey); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ApplyCharges writes one page of derived values with a single UNNEST
// update. Rows whose seven columns already hold the same values are
// excluded, so RowsAffected counts real changes only.
func (r *ReconcileRepo) ApplyCharges(ctx context.Context, updates []reconcile.ChargeUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, nil
	}
	n := len(updates)
	ids := make([]string, n)
	bands := make([]string, n)
	downW := make([]int64, n)
	upW := make([]int64, n)
	fractions := make([]float64, n)
	surcharges := make([]int64, n)
	downD := make([]int64, n)
	upD := make([]int64, n)
	for i, u := range updates {
		ids[i] = u.ID
		bands[i] = u.Charges.WeightBand
		downW[i] = int64(u.Charges.RoundDownWeight)
		upW[i] = int64(u.Charges.RoundUpWeight)
		fractions[i] = u.Charges.WeightFraction
		surcharges[i] = u.Charges.OverweightSurcharge
		downD[i] = int64(u.Charges.RoundDownDistance)
		upD[i] = int64(u.Charges.RoundUpDistance)
	}

	res, err := r.exec.ExecContext(ctx, `
		UPDATE orders AS o
		SET weight_band = v.weight_band,
		    round_down_weight = v.round_down_weight,
		    round_up_weight = v.round_up_weight,
		    weight_fraction = v.weight_fraction,
		    overweight_surcharge = v.overweight_surcharge,
		    round_down_distance = v.round_down_distance,
		    round_up_distance = v.round_up_distance,
		    reconciled_at = NOW()
		FROM (
			SELECT UNNEST($1::uuid[]) AS id,
			       UNNEST($2::text[]) AS weight_band,
			       UNNEST($3::int[]) AS round_down_weight,
			       UNNEST($4::int[]) AS round_up_weight,
			       UNNEST($5::numeric[]) AS weight_fraction,
			       UNNEST($6::bigint[]) AS overweight_surcharge,
			       UNNEST($7::int[]) AS round_down_distance,
			       UNNEST($8::int[]) AS round_up_distance
		) AS v
		WHERE o.id = v.id
		  AND (o.weight_band, o.round_down_weight, o.round_up_weight, o.weight_fraction,
		       o.overweight_surcharge, o.round_down_distance, o.round_up_distance)
		      IS DISTINCT FROM
		      (v.weight_band, v.round_down_weight, v.round_up_weight, v.weight_fraction,
		       v.overweight_surcharge, v.round_down_distance, v.round_up_distance)
	`, pq.Array(ids), pq.Array(bands), pq.Array(downW), pq.Array(upW),
		pq.Array(fractions), pq.Array(surcharges), pq.Array(downD), pq.Array(upD))
	if err != nil {
		return 0, fmt.Errorf("apply charges to %d orders: %w", n, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(affected), nil
}

// InTx runs fn against a repository bound to one transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (r *ReconcileRepo) InTx(ctx context.Context, fn func(reconcile.Repository) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reconcile tx: %w", err)
	}
	if err := fn(&ReconcileRepo{db: r.db, exec: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reconcile tx: %w", err)
	}
	return nil
}
