package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ignite/courier-ops/internal/pkg/httputil"
	"github.com/ignite/courier-ops/internal/service/cohort"
	"github.com/ignite/courier-ops/internal/service/loader"
	"github.com/ignite/courier-ops/internal/service/reconcile"
	"github.com/ignite/courier-ops/internal/service/records"
	"github.com/ignite/courier-ops/internal/service/roster"
	"github.com/ignite/courier-ops/internal/service/shipment"
	"github.com/ignite/courier-ops/internal/service/tasks"
	"github.com/ignite/courier-ops/internal/storage"
)

// Reconciler runs one reconciliation.
type Reconciler interface {
	Reconcile(ctx context.Context) (*reconcile.Report, error)
}

// Deps carries the services the handlers call. Archive and Health may be
// nil.
type Deps struct {
	Loader     *loader.Service
	Reconciler Reconciler
	Cohorts    *cohort.Engine
	Roster     *roster.Service
	Shipments  *shipment.Service
	Records    *records.Service
	Tasks      *tasks.Service
	Archive    storage.Archive
	Health     *HealthChecker
	MaxTimeout time.Duration
}

// Handlers contains all HTTP handlers
type Handlers struct {
	loader     *loader.Service
	reconciler Reconciler
	cohorts    *cohort.Engine
	roster     *roster.Service
	shipments  *shipment.Service
	records    *records.Service
	tasks      *tasks.Service
	archive    storage.Archive
	health     *HealthChecker
	maxTimeout time.Duration
	now        func() time.Time
}

// NewHandlers creates a new Handlers instance
func NewHandlers(d Deps) *Handlers {
	if d.MaxTimeout <= 0 {
		d.MaxTimeout = 5 * time.Minute
	}
	return &Handlers{
		loader:     d.Loader,
		reconciler: d.Reconciler,
		cohorts:    d.Cohorts,
		roster:     d.Roster,
		shipments:  d.Shipments,
		records:    d.Records,
		tasks:      d.Tasks,
		archive:    d.Archive,
		health:     d.Health,
		maxTimeout: d.MaxTimeout,
		now:        time.Now,
	}
}

// HealthCheck reports liveness plus dependency checks when configured.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		h.health.HandleHealth(w, r)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
