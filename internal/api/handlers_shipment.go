package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/ignite/courier-ops/internal/domain"
	"github.com/ignite/courier-ops/internal/pkg/httputil"
	"github.com/ignite/courier-ops/internal/service/shipment"
)

// ListShipments returns one page of shipments in upload order.
//
//	GET /api/shipments?page&limit&search&client&project&hub&mitra&week
func (h *Handlers) ListShipments(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r, 100, shipment.MaxListLimit)
	q := r.URL.Query()
	list, total, err := h.shipments.List(r.Context(), shipment.ListFilter{
		Search:  strings.TrimSpace(q.Get("search")),
		Client:  q.Get("client"),
		Project: q.Get("project"),
		Hub:     q.Get("hub"),
		Mitra:   q.Get("mitra"),
		Week:    q.Get("week"),
		Limit:   p.Limit,
		Offset:  p.Offset,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, fmt.Sprintf("%d shipment(s)", total), NewPaginatedResponse(list, p, total))
}

// ShipmentStats returns the row count and distinct value counts.
//
//	GET /api/shipments/stats
func (h *Handlers) ShipmentStats(w http.ResponseWriter, r *http.Request) {
	s, err := h.shipments.Stats(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, "shipment stats", s)
}

// ShipmentFilters returns the distinct filter values.
//
//	GET /api/shipments/filters
func (h *Handlers) ShipmentFilters(w http.ResponseWriter, r *http.Request) {
	f, err := h.shipments.Filters(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, "shipment filters", f)
}

// UpdateShipment edits one shipment.
//
//	PUT /api/shipments/{id}
func (h *Handlers) UpdateShipment(w http.ResponseWriter, r *http.Request) {
	var req domain.ShipmentUpdate
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	s, err := h.shipments.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, "shipment updated", s)
}

// DeleteShipment removes one shipment.
//
//	DELETE /api/shipments/{id}
func (h *Handlers) DeleteShipment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.shipments.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, "shipment deleted", map[string]string{"id": id})
}

// BulkDeleteShipments removes several shipments.
//
//	POST /api/shipments/bulk-delete
func (h *Handlers) BulkDeleteShipments(w http.ResponseWriter, r *http.Request) {
	var req BulkDeleteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	n, err := h.shipments.DeleteMany(r.Context(), req.IDs)
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, fmt.Sprintf("%d shipment(s) deleted", n), map[string]int{"requested": len(req.IDs), "deleted": n})
}
