package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/courier-ops/internal/domain"
	"github.com/ignite/courier-ops/internal/service/tasks"
	"github.com/lib/pq"
)

// TaskRepo implements tasks.Repository against PostgreSQL.
type TaskRepo struct{ db *sql.DB }

// NewTaskRepo creates a Postgres-backed task repository.
func NewTaskRepo(db *sql.DB) *TaskRepo { return &TaskRepo{db: db} }

func (r *TaskRepo) List(ctx context.Context, f tasks.Filter) ([]domain.Task, error) {
	w := &whereBuilder{}
	if f.From != nil {
		w.add("task_date >= ?", *f.From)
	}
	if f.To != nil {
		w.add("task_date <= ?", *f.To)
	}
	if len(f.Users) > 0 {
		w.add("user_name = ANY(?)", pq.Array(f.Users))
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_name, project_name, city, final_status, reply_record,
		       task_date_raw, task_date, attributes, created_at
		FROM tasks`+w.sql()+` ORDER BY seq`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []domain.Task
	for rows.Next() {
		var t domain.Task
		var date sql.NullTime
		var attrs []byte
		if err := rows.Scan(&t.ID, &t.User, &t.Project, &t.City, &t.FinalStatus, &t.ReplyRecord,
			&t.DateRaw, &date, &attrs, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		if date.Valid {
			d := date.Time
			t.Date = &d
		}
		t.Attributes = decodeAttributes(attrs)
		out = append(out, t)
	}
	return out, rows.Err()
}
