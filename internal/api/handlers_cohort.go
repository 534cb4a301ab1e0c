package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ignite/courier-ops/internal/apperr"
	"github.com/ignite/courier-ops/internal/pkg/httputil"
	"github.com/ignite/courier-ops/internal/report"
	"github.com/ignite/courier-ops/internal/service/cohort"
)

// CohortStats returns per-period activity, inactivity and retention.
//
//	GET /api/cohorts/monthly
//	GET /api/cohorts/weekly
func (h *Handlers) CohortStats(g cohort.Granularity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := h.cohorts.ActivePeriods(r.Context(), g)
		if err != nil {
			respondError(w, r, err)
			return
		}
		httputil.OK(w, fmt.Sprintf("%d period(s)", len(stats)), stats)
	}
}

// CohortActive lists the deliveries of riders active in one period.
//
//	GET /api/cohorts/active?month&year&week
func (h *Handlers) CohortActive(w http.ResponseWriter, r *http.Request) {
	h.cohortDetails(w, r, h.cohorts.ActiveDetails)
}

// CohortInactive lists riders active in the previous period but not in
// the selected one, with their last delivery.
//
//	GET /api/cohorts/inactive?month&year&week
func (h *Handlers) CohortInactive(w http.ResponseWriter, r *http.Request) {
	h.cohortDetails(w, r, h.cohorts.InactiveDetails)
}

func (h *Handlers) cohortDetails(w http.ResponseWriter, r *http.Request, fn func(context.Context, cohort.Query) (*cohort.DetailReport, error)) {
	q := r.URL.Query()
	query, err := cohort.ParseQuery(q.Get("month"), q.Get("year"), q.Get("week"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	rep, err := fn(r.Context(), query)
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, fmt.Sprintf("%d record(s) for %s", rep.TotalRecords, rep.Period), rep)
}

// CohortReport renders cohort statistics as a workbook and archives it.
//
//	GET /api/reports/cohorts/{granularity}.xlsx
func (h *Handlers) CohortReport(w http.ResponseWriter, r *http.Request) {
	g, err := cohort.ParseGranularity(chi.URLParam(r, "granularity"))
	if err != nil {
		respondError(w, r, apperr.NotFound(err.Error(), err))
		return
	}
	stats, err := h.cohorts.ActivePeriods(r.Context(), g)
	if err != nil {
		respondError(w, r, err)
		return
	}
	f, err := report.CohortWorkbook(stats, g)
	if err != nil {
		respondError(w, r, apperr.Infrastructure("could not build report", err))
		return
	}
	data, err := report.Bytes(f)
	if err != nil {
		respondError(w, r, apperr.Infrastructure("could not build report", err))
		return
	}
	kind := "cohort-monthly"
	if g == cohort.Weekly {
		kind = "cohort-weekly"
	}
	h.sendWorkbook(w, r, kind, data)
}
