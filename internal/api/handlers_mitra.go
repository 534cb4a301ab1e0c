package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ignite/courier-ops/internal/apperr"
	"github.com/ignite/courier-ops/internal/datanorm"
	"github.com/ignite/courier-ops/internal/domain"
	"github.com/ignite/courier-ops/internal/pkg/httputil"
	"github.com/ignite/courier-ops/internal/service/roster"
)

// BulkDeleteRequest names the rows to remove.
type BulkDeleteRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=5000"`
}

// ListMitras returns one page of the roster.
//
//	GET /api/mitras?page&limit&search&sortBy&sortOrder
func (h *Handlers) ListMitras(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r, 100, roster.MaxListLimit)
	q := r.URL.Query()
	list, total, err := h.roster.List(r.Context(), roster.ListInput{
		Search:    strings.TrimSpace(q.Get("search")),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
		Limit:     p.Limit,
		Offset:    p.Offset,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, fmt.Sprintf("%d mitra(s)", total), NewPaginatedResponse(list, p, total))
}

func parseBound(q, field string, endOfDay bool) (*time.Time, *apperr.FieldError) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, nil
	}
	t, ok := datanorm.ParseDate(q)
	if !ok {
		return nil, &apperr.FieldError{Field: field, Issue: "unrecognized date"}
	}
	if endOfDay && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// MitraDashboard returns the status histogram, optionally bounded by a
// registration date range.
//
//	GET /api/mitras/dashboard?from&to
func (h *Handlers) MitraDashboard(w http.ResponseWriter, r *http.Request) {
	var issues []apperr.FieldError
	from, fe := parseBound(r.URL.Query().Get("from"), "from", false)
	if fe != nil {
		issues = append(issues, *fe)
	}
	to, fe := parseBound(r.URL.Query().Get("to"), "to", true)
	if fe != nil {
		issues = append(issues, *fe)
	}
	if len(issues) > 0 {
		respondError(w, r, apperr.Validation("invalid date range", issues))
		return
	}

	d, err := h.roster.Dashboard(r.Context(), roster.DashboardFilter{From: from, To: to})
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, fmt.Sprintf("%d mitra(s) in dashboard statuses", d.Total), d)
}

// UpdateMitra edits one roster entry.
//
//	PUT /api/mitras/{id}
func (h *Handlers) UpdateMitra(w http.ResponseWriter, r *http.Request) {
	var req domain.MitraUpdate
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	m, err := h.roster.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, "mitra updated", m)
}

// DeleteMitra removes one roster entry.
//
//	DELETE /api/mitras/{id}
func (h *Handlers) DeleteMitra(w http.ResponseWriter, r *http.Request) {
	m, err := h.roster.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, "mitra deleted", m)
}

// BulkDeleteMitras removes several roster entries.
//
//	POST /api/mitras/bulk-delete
func (h *Handlers) BulkDeleteMitras(w http.ResponseWriter, r *http.Request) {
	var req BulkDeleteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	n, err := h.roster.DeleteMany(r.Context(), req.IDs)
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, fmt.Sprintf("%d mitra(s) deleted", n), map[string]int{"requested": len(req.IDs), "deleted": n})
}
