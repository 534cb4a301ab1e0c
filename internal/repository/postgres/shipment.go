package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ignite/courier-ops/internal/domain"
	"github.com/ignite/courier-ops/internal/service/shipment"
	"github.com/lib/pq"
)

const shipmentColumns = `id, order_code, client_name, project_name, hub, mitra_name, delivery_date,
		       COALESCE(delivery_month, 0), COALESCE(delivery_year, 0), weekly, attributes, created_at`

// ShipmentRepo implements shipment.Repository against PostgreSQL.
type ShipmentRepo struct{ db *sql.DB }

// NewShipmentRepo creates a Postgres-backed shipment repository.
func NewShipmentRepo(db *sql.DB) *ShipmentRepo { return &ShipmentRepo{db: db} }

func scanShipment(s rowScanner) (*domain.Shipment, error) {
	var sh domain.Shipment
	var attrs []byte
	if err := s.Scan(&sh.ID, &sh.OrderCode, &sh.ClientName, &sh.ProjectName, &sh.Hub, &sh.MitraName,
		&sh.DeliveryDate, &sh.DeliveryMonth, &sh.DeliveryYear, &sh.Weekly, &attrs, &sh.CreatedAt); err != nil {
		return nil, err
	}
	sh.Attributes = decodeAttributes(attrs)
	return &sh, nil
}

func (r *ShipmentRepo) List(ctx context.Context, f shipment.ListFilter) ([]domain.Shipment, int, error) {
	w := &whereBuilder{}
	if f.Search != "" {
		p := likePattern(f.Search)
		w.add("(order_code ILIKE ? OR client_name ILIKE ? OR project_name ILIKE ? OR hub ILIKE ? OR mitra_name ILIKE ?)",
			p, p, p, p, p)
	}
	if f.Client != "" {
		w.add("client_name = ?", f.Client)
	}
	if f.Project != "" {
		w.add("project_name = ?", f.Project)
	}
	if f.Hub != "" {
		w.add("hub = ?", f.Hub)
	}
	if f.Mitra != "" {
		w.add("mitra_name = ?", f.Mitra)
	}
	if f.Week != "" {
		w.add("weekly = ?", f.Week)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM shipments`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count shipments: %w", err)
	}

	n := w.next()
	q := fmt.Sprintf(`SELECT %s FROM shipments%s ORDER BY seq LIMIT $%d OFFSET $%d`,
		shipmentColumns, w.sql(), n, n+1)
	rows, err := r.db.QueryContext(ctx, q, append(w.args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list shipments: %w", err)
	}
	defer rows.Close()

	var out []domain.Shipment
	for rows.Next() {
		sh, err := scanShipment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan shipment: %w", err)
		}
		out = append(out, *sh)
	}
	return out, total, rows.Err()
}

func (r *ShipmentRepo) Stats(ctx context.Context) (*domain.ShipmentStats, error) {
	s := &domain.ShipmentStats{}
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(DISTINCT client_name)  FILTER (WHERE client_name <> '-'),
		       COUNT(DISTINCT project_name) FILTER (WHERE project_name <> '-'),
		       COUNT(DISTINCT hub)          FILTER (WHERE hub <> '-'),
		       COUNT(DISTINCT mitra_name)   FILTER (WHERE mitra_name <> '-'),
		       COUNT(DISTINCT weekly)       FILTER (WHERE weekly <> '-')
		FROM shipments
	`).Scan(&s.Total, &s.UniqueClients, &s.UniqueProjects, &s.UniqueHubs, &s.UniqueMitras, &s.UniqueWeeks)
	if err != nil {
		return nil, fmt.Errorf("shipment stats: %w", err)
	}
	return s, nil
}

func (r *ShipmentRepo) Filters(ctx context.Context) (*domain.ShipmentFilters, error) {
	f := &domain.ShipmentFilters{}
	for _, c := range []struct {
		col string
		dst *[]string
	}{
		{"client_name", &f.Clients},
		{"project_name", &f.Projects},
		{"hub", &f.Hubs},
		{"weekly", &f.Weeks},
	} {
		vals, err := r.distinct(ctx, c.col)
		if err != nil {
			return nil, err
		}
		*c.dst = vals
	}
	return f, nil
}

func (r *ShipmentRepo) distinct(ctx context.Context, col string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT DISTINCT %[1]s FROM shipments WHERE %[1]s <> '-' ORDER BY %[1]s`, col))
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", col, err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan %s: %w", col, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *ShipmentRepo) Update(ctx context.Context, id string, u shipment.UpdateFields) (*domain.Shipment, error) {
	sets := []string{}
	args := []any{}
	add := func(col string, val any) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if u.OrderCode != nil {
		add("order_code", *u.OrderCode)
	}
	if u.ClientName != nil {
		add("client_name", *u.ClientName)
	}
	if u.ProjectName != nil {
		add("project_name", *u.ProjectName)
	}
	if u.Hub != nil {
		add("hub", *u.Hub)
	}
	if u.MitraName != nil {
		add("mitra_name", *u.MitraName)
	}
	if u.DeliveryDate != nil {
		add("delivery_date", *u.DeliveryDate)
	}
	if u.DeliveryMonth != nil {
		add("delivery_month", nullInt(*u.DeliveryMonth))
	}
	if u.DeliveryYear != nil {
		add("delivery_year", nullInt(*u.DeliveryYear))
	}
	if u.Weekly != nil {
		add("weekly", *u.Weekly)
	}

	var sh *domain.Shipment
	var err error
	if len(sets) == 0 {
		sh, err = scanShipment(r.db.QueryRowContext(ctx,
			`SELECT `+shipmentColumns+` FROM shipments WHERE id = $1`, id))
	} else {
		args = append(args, id)
		q := fmt.Sprintf(`UPDATE shipments SET %s WHERE id = $%d RETURNING %s`,
			strings.Join(sets, ", "), len(args), shipmentColumns)
		sh, err = scanShipment(r.db.QueryRowContext(ctx, q, args...))
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shipment.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update shipment: %w", err)
	}
	return sh, nil
}

func (r *ShipmentRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM shipments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete shipment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return shipment.ErrNotFound
	}
	return nil
}

func (r *ShipmentRepo) DeleteMany(ctx context.Context, ids []string) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM shipments WHERE id = ANY($1::uuid[])`, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("delete shipments: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// nullInt stores zero as NULL.
func nullInt(v int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: v != 0}
}
