package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/ignite/courier-ops/internal/apperr"
	"github.com/ignite/courier-ops/internal/pkg/httputil"
	"github.com/ignite/courier-ops/internal/report"
	"github.com/ignite/courier-ops/internal/service/tasks"
)

// taskFilter reads startDate, endDate (end of day inclusive) and users,
// which may repeat or hold a comma-separated list.
func taskFilter(r *http.Request) (tasks.Filter, error) {
	q := r.URL.Query()
	var issues []apperr.FieldError
	from, fe := parseBound(q.Get("startDate"), "startDate", false)
	if fe != nil {
		issues = append(issues, *fe)
	}
	to, fe := parseBound(q.Get("endDate"), "endDate", true)
	if fe != nil {
		issues = append(issues, *fe)
	}
	if len(issues) > 0 {
		return tasks.Filter{}, apperr.Validation("invalid date range", issues)
	}

	var users []string
	for _, v := range q["users"] {
		users = append(users, strings.Split(v, ",")...)
	}
	return tasks.Filter{From: from, To: to, Users: users}, nil
}

// TaskPerformance tallies tasks per user.
//
//	GET /api/tasks/analytics?startDate&endDate&users
func (h *Handlers) TaskPerformance(w http.ResponseWriter, r *http.Request) {
	f, err := taskFilter(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	p, err := h.tasks.Performance(r.Context(), f)
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, fmt.Sprintf("%d task(s) across %d user(s)", p.Summary.Total, p.TotalUsers), p)
}

// TaskUserPerformance tallies one user's tasks.
//
//	GET /api/tasks/analytics/users/{user}?startDate&endDate
func (h *Handlers) TaskUserPerformance(w http.ResponseWriter, r *http.Request) {
	f, err := taskFilter(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	u, err := h.tasks.User(r.Context(), chi.URLParam(r, "user"), f)
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, fmt.Sprintf("%d task(s)", u.TotalTasks), u)
}

// TaskSummary counts tasks per user, project or city.
//
//	GET /api/tasks/analytics/summary?groupBy&startDate&endDate
func (h *Handlers) TaskSummary(w http.ResponseWriter, r *http.Request) {
	g, err := tasks.ParseGroupBy(r.URL.Query().Get("groupBy"))
	if err != nil {
		respondError(w, r, apperr.Validation(err.Error(),
			[]apperr.FieldError{{Field: "groupBy", Issue: "must be user, project or city"}}))
		return
	}
	f, err := taskFilter(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	groups, err := h.tasks.Summary(r.Context(), g, f)
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, fmt.Sprintf("%d %s group(s)", len(groups), g), map[string]any{
		"groupBy": g,
		"groups":  groups,
	})
}

// TaskReport streams the task performance workbook.
//
//	GET /api/reports/tasks.xlsx?startDate&endDate&users
func (h *Handlers) TaskReport(w http.ResponseWriter, r *http.Request) {
	f, err := taskFilter(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	p, err := h.tasks.Performance(r.Context(), f)
	if err != nil {
		respondError(w, r, err)
		return
	}
	q := r.URL.Query()
	period := ""
	if from, to := q.Get("startDate"), q.Get("endDate"); from != "" || to != "" {
		period = strings.TrimSpace(from + " - " + to)
	}
	wb, err := report.TaskPerformanceWorkbook(p, period)
	if err != nil {
		respondError(w, r, apperr.Infrastructure("could not build report", err))
		return
	}
	data, err := report.Bytes(wb)
	if err != nil {
		respondError(w, r, apperr.Infrastructure("could not build report", err))
		return
	}
	h.sendWorkbook(w, r, "tasks", data)
}
