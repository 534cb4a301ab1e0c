package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/courier-ops/internal/domain"
	"github.com/ignite/courier-ops/internal/service/records"
	"github.com/lib/pq"
)

// RecordsRepo implements records.Repository against PostgreSQL.
type RecordsRepo struct{ db *sql.DB }

// NewRecordsRepo creates a Postgres-backed records repository.
func NewRecordsRepo(db *sql.DB) *RecordsRepo { return &RecordsRepo{db: db} }

func (r *RecordsRepo) ListOrders(ctx context.Context, f records.OrderFilter) ([]domain.Order, int, error) {
	w := &whereBuilder{}
	if f.Search != "" {
		p := likePattern(f.Search)
		w.add("(order_code ILIKE ? OR client_name ILIKE ?)", p, p)
	}
	if f.Client != "" {
		w.add("client_name = ?", f.Client)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	n := w.next()
	q := fmt.Sprintf(`
		SELECT id, order_code, client_name, weight_band, round_down_weight, round_up_weight,
		       weight_fraction, overweight_surcharge, round_down_distance, round_up_distance,
		       attributes, created_at
		FROM orders%s
		ORDER BY seq LIMIT $%d OFFSET $%d`, w.sql(), n, n+1)
	rows, err := r.db.QueryContext(ctx, q, append(w.args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		var o domain.Order
		var band sql.NullString
		var downW, upW, downD, upD, surcharge sql.NullInt64
		var fraction sql.NullFloat64
		var attrs []byte
		if err := rows.Scan(&o.ID, &o.OrderCode, &o.ClientName, &band, &downW, &upW,
			&fraction, &surcharge, &downD, &upD, &attrs, &o.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		if band.Valid {
			o.Charges = &domain.ChargeTier{
				WeightBand:          band.String,
				RoundDownWeight:     int(downW.Int64),
				RoundUpWeight:       int(upW.Int64),
				WeightFraction:      fraction.Float64,
				OverweightSurcharge: surcharge.Int64,
				RoundDownDistance:   int(downD.Int64),
				RoundUpDistance:     int(upD.Int64),
			}
		}
		o.Attributes = decodeAttributes(attrs)
		out = append(out, o)
	}
	return out, total, rows.Err()
}

func (r *RecordsRepo) OrderStats(ctx context.Context) (*records.OrderStats, error) {
	s := &records.OrderStats{}
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE weight_band IS NOT NULL),
		       COUNT(*) FILTER (WHERE weight_band IS NULL)
		FROM orders
	`).Scan(&s.Total, &s.WithCharges, &s.WithoutCharges)
	if err != nil {
		return nil, fmt.Errorf("order stats: %w", err)
	}
	return s, nil
}

func (r *RecordsRepo) ListMeasurements(ctx context.Context, f records.MeasurementFilter) ([]domain.Measurement, int, error) {
	w := &whereBuilder{}
	if f.Hub != "" {
		w.add("hub_name ILIKE ?", likePattern(f.Hub))
	}
	if f.Driver != "" {
		w.add("driver_name ILIKE ?", likePattern(f.Driver))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM measurements`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count measurements: %w", err)
	}

	n := w.next()
	q := fmt.Sprintf(`
		SELECT id, order_no, hub_name, driver_name, weight, distance_km, attributes, created_at
		FROM measurements%s
		ORDER BY seq LIMIT $%d OFFSET $%d`, w.sql(), n, n+1)
	rows, err := r.db.QueryContext(ctx, q, append(w.args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list measurements: %w", err)
	}
	defer rows.Close()

	var out []domain.Measurement
	for rows.Next() {
		var m domain.Measurement
		var attrs []byte
		if err := rows.Scan(&m.ID, &m.OrderNo, &m.HubName, &m.DriverName, &m.Weight, &m.DistanceKm,
			&attrs, &m.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan measurement: %w", err)
		}
		m.Attributes = decodeAttributes(attrs)
		out = append(out, m)
	}
	return out, total, rows.Err()
}

func (r *RecordsRepo) ListPhoneMessages(ctx context.Context, limit, offset int) ([]domain.PhoneMessage, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM phone_messages`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count phone messages: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, phone, message, attributes, created_at
		FROM phone_messages
		ORDER BY seq LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list phone messages: %w", err)
	}
	defer rows.Close()

	var out []domain.PhoneMessage
	for rows.Next() {
		var p domain.PhoneMessage
		var attrs []byte
		if err := rows.Scan(&p.ID, &p.Phone, &p.Message, &attrs, &p.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan phone message: %w", err)
		}
		p.Attributes = decodeAttributes(attrs)
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *RecordsRepo) Count(ctx context.Context, ds domain.Dataset) (int, error) {
	t, err := tableFor(ds)
	if err != nil {
		return 0, err
	}
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+pq.QuoteIdentifier(t)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", t, err)
	}
	return n, nil
}

func (r *RecordsRepo) DeleteAll(ctx context.Context, ds domain.Dataset) (int, error) {
	t, err := tableFor(ds)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM `+pq.QuoteIdentifier(t))
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", t, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
