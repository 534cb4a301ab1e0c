package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ignite/courier-ops/internal/domain"
	"github.com/ignite/courier-ops/internal/service/roster"
	"github.com/lib/pq"
)

const mitraColumns = `id, full_name, phone_number, status, city, registered_at_raw,
		       registered_at, attributes, created_at, updated_at`

// MitraRepo implements roster.Repository against PostgreSQL.
type MitraRepo struct{ db *sql.DB }

// NewMitraRepo creates a Postgres-backed roster repository.
func NewMitraRepo(db *sql.DB) *MitraRepo { return &MitraRepo{db: db} }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMitra(s rowScanner) (*domain.Mitra, error) {
	var m domain.Mitra
	var registered sql.NullTime
	var attrs []byte
	if err := s.Scan(&m.ID, &m.FullName, &m.PhoneNumber, &m.Status, &m.City, &m.RegisteredAtRaw,
		&registered, &attrs, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	if registered.Valid {
		t := registered.Time.UTC()
		m.RegisteredAt = &t
	}
	m.Attributes = decodeAttributes(attrs)
	return &m, nil
}

func (r *MitraRepo) Get(ctx context.Context, id string) (*domain.Mitra, error) {
	m, err := scanMitra(r.db.QueryRowContext(ctx,
		`SELECT `+mitraColumns+` FROM mitras WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, roster.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get mitra: %w", err)
	}
	return m, nil
}

func (r *MitraRepo) List(ctx context.Context, f roster.ListFilter) ([]domain.Mitra, int, error) {
	w := &whereBuilder{}
	if f.Search != "" {
		w.add("(full_name ILIKE ? OR phone_number ILIKE ? OR city ILIKE ? OR status ILIKE ?)",
			likePattern(f.Search), likePattern(f.Search), likePattern(f.Search), likePattern(f.Search))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM mitras`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count mitras: %w", err)
	}

	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}
	sortBy := f.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	n := w.next()
	q := fmt.Sprintf(`SELECT %s FROM mitras%s ORDER BY %s %s NULLS LAST, seq LIMIT $%d OFFSET $%d`,
		mitraColumns, w.sql(), pq.QuoteIdentifier(sortBy), dir, n, n+1)
	rows, err := r.db.QueryContext(ctx, q, append(w.args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list mitras: %w", err)
	}
	defer rows.Close()

	var out []domain.Mitra
	for rows.Next() {
		m, err := scanMitra(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan mitra: %w", err)
		}
		out = append(out, *m)
	}
	return out, total, rows.Err()
}

func (r *MitraRepo) CountByStatus(ctx context.Context, f roster.DashboardFilter) (map[string]int, error) {
	w := &whereBuilder{}
	if f.From != nil {
		w.add("COALESCE(registered_at, created_at) >= ?", *f.From)
	}
	if f.To != nil {
		w.add("COALESCE(registered_at, created_at) <= ?", *f.To)
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM mitras`+w.sql()+` GROUP BY status`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("count mitras by status: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		out[status] = n
	}
	return out, rows.Err()
}

func (r *MitraRepo) PhoneTaken(ctx context.Context, phone, exceptID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM mitras WHERE lower(phone_number) = lower($1) AND id <> $2)`,
		phone, exceptID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check phone: %w", err)
	}
	return exists, nil
}

func (r *MitraRepo) Update(ctx context.Context, id string, u roster.UpdateFields) (*domain.Mitra, error) {
	sets := []string{}
	args := []any{}
	add := func(col string, val any) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if u.FullName != nil {
		add("full_name", *u.FullName)
	}
	if u.PhoneNumber != nil {
		add("phone_number", *u.PhoneNumber)
	}
	if u.Status != nil {
		add("status", *u.Status)
	}
	if u.City != nil {
		add("city", *u.City)
	}
	if u.RegisteredAtRaw != nil {
		add("registered_at_raw", *u.RegisteredAtRaw)
		if u.RegisteredAt != nil {
			add("registered_at", *u.RegisteredAt)
		} else {
			add("registered_at", nil)
		}
	}
	if len(sets) == 0 {
		return r.Get(ctx, id)
	}

	args = append(args, id)
	q := fmt.Sprintf(`UPDATE mitras SET %s, updated_at = NOW() WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), mitraColumns)
	m, err := scanMitra(r.db.QueryRowContext(ctx, q, args...))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, roster.ErrNotFound
	case isUniqueViolation(err):
		return nil, roster.ErrDuplicatePhone
	case err != nil:
		return nil, fmt.Errorf("update mitra: %w", err)
	}
	return m, nil
}

func (r *MitraRepo) Delete(ctx context.Context, id string) (*domain.Mitra, error) {
	m, err := scanMitra(r.db.QueryRowContext(ctx,
		`DELETE FROM mitras WHERE id = $1 RETURNING `+mitraColumns, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, roster.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete mitra: %w", err)
	}
	return m, nil
}

func (r *MitraRepo) DeleteMany(ctx context.Context, ids []string) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM mitras WHERE id = ANY($1::uuid[])`, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("delete mitras: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
