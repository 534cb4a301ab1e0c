package api

import (
	"net/http"

	"github.com/ignite/courier-ops/internal/apperr"
	"github.com/ignite/courier-ops/internal/pkg/httputil"
	"github.com/ignite/courier-ops/internal/report"
	"github.com/ignite/courier-ops/internal/service/reconcile"
)

func (h *Handlers) runReconcile(r *http.Request) (*reconcile.Report, error) {
	ctx, cancel, err := h.requestContext(r)
	if err != nil {
		return nil, err
	}
	defer cancel()

	rep, err := h.reconciler.Reconcile(ctx)
	switch {
	case reconcile.IsBusy(err):
		reconcileRuns.WithLabelValues("busy").Inc()
	case err != nil:
		reconcileRuns.WithLabelValues("error").Inc()
	case rep.Partial:
		reconcileRuns.WithLabelValues("partial").Inc()
	default:
		reconcileRuns.WithLabelValues("complete").Inc()
	}
	if err != nil {
		return nil, err
	}
	reconcileUpdated.Add(float64(rep.TotalUpdated))
	return rep, nil
}

// Reconcile matches orders with measurements and writes charge tiers.
//
//	POST /api/reconcile
func (h *Handlers) Reconcile(w http.ResponseWriter, r *http.Request) {
	rep, err := h.runReconcile(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if rep.Partial {
		httputil.OKWithWarning(w, "reconciliation stopped at deadline", rep, map[string]any{
			"message": "deadline reached; remaining orders were not checked",
			"partial": true,
		})
		return
	}
	httputil.OK(w, "reconciliation complete", rep)
}

// ReconcileReport runs a reconciliation and returns the result as a
// workbook. A copy is archived when an archive is configured.
//
//	POST /api/reports/reconcile.xlsx
func (h *Handlers) ReconcileReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.runReconcile(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	f, err := report.ReconcileWorkbook(rep)
	if err != nil {
		respondError(w, r, apperr.Infrastructure("could not build report", err))
		return
	}
	data, err := report.Bytes(f)
	if err != nil {
		respondError(w, r, apperr.Infrastructure("could not build report", err))
		return
	}
	h.sendWorkbook(w, r, "reconcile", data)
}
