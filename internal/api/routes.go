package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ignite/courier-ops/internal/config"
	"github.com/ignite/courier-ops/internal/domain"
	"github.com/ignite/courier-ops/internal/pkg/httputil"
	"github.com/ignite/courier-ops/internal/service/cohort"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var defaultOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers, cfg config.ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(Metrics)
	if cfg.MaxBodyMB > 0 {
		r.Use(middleware.RequestSize(int64(cfg.MaxBodyMB) << 20))
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = defaultOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept", "Content-Type",
			HeaderUploadSession, HeaderReplaceData, HeaderRequestTimeout,
		},
		ExposedHeaders: []string{HeaderUploadSession, HeaderReportKey, "Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/health", h.HealthCheck)
	if h.health != nil {
		r.Get("/health/live", h.health.HandleLiveness)
		r.Get("/health/ready", h.health.HandleReadiness)
	}
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/reconcile", h.Reconcile)

		r.Route("/cohorts", func(r chi.Router) {
			r.Get("/monthly", h.CohortStats(cohort.Monthly))
			r.Get("/weekly", h.CohortStats(cohort.Weekly))
			r.Get("/active", h.CohortActive)
			r.Get("/inactive", h.CohortInactive)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/", h.ListReports)
			r.Get("/cohorts/{granularity}.xlsx", h.CohortReport)
			r.Post("/reconcile.xlsx", h.ReconcileReport)
			r.Get("/tasks.xlsx", h.TaskReport)
			r.Get("/archive/*", h.DownloadReport)
		})

		// Uploads are registered per dataset so they never shadow the
		// CRUD routes below.
		for _, ds := range domain.Datasets {
			r.Post("/"+string(ds)+"/upload", h.Upload(ds))
			r.Post("/"+string(ds)+"/reset", h.ResetSessions(ds))
		}
		r.Post("/phone-messages/upload-xlsx", h.UploadPhoneXLSX)

		r.Get("/orders", h.ListOrders)
		r.Get("/orders/stats", h.OrderStats)
		r.Delete("/orders", h.ClearDataset(domain.DatasetOrders))

		r.Get("/measurements", h.ListMeasurements)
		r.Get("/measurements/info", h.MeasurementsInfo)
		r.Delete("/measurements", h.ClearDataset(domain.DatasetMeasurements))

		r.Get("/phone-messages", h.ListPhoneMessages)
		r.Delete("/phone-messages", h.ClearDataset(domain.DatasetPhoneMessages))

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/analytics", h.TaskPerformance)
			r.Get("/analytics/summary", h.TaskSummary)
			r.Get("/analytics/users/{user}", h.TaskUserPerformance)
			r.Delete("/", h.ClearDataset(domain.DatasetTasks))
		})

		r.Route("/shipments", func(r chi.Router) {
			r.Get("/", h.ListShipments)
			r.Get("/stats", h.ShipmentStats)
			r.Get("/filters", h.ShipmentFilters)
			r.Post("/bulk-delete", h.BulkDeleteShipments)
			r.Put("/{id}", h.UpdateShipment)
			r.Delete("/{id}", h.DeleteShipment)
		})

		r.Route("/mitras", func(r chi.Router) {
			r.Get("/", h.ListMitras)
			r.Get("/dashboard", h.MitraDashboard)
			r.Post("/bulk-delete", h.BulkDeleteMitras)
			r.Put("/{id}", h.UpdateMitra)
			r.Delete("/{id}", h.DeleteMitra)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.NotFound(w, "route not found")
	})

	return r
}
