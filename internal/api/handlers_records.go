package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ignite/courier-ops/internal/domain"
	"github.com/ignite/courier-ops/internal/pkg/httputil"
	"github.com/ignite/courier-ops/internal/service/records"
)

// ListOrders returns one page of orders with their charge tiers.
//
//	GET /api/orders?page&limit&search&client
func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r, 100, records.MaxListLimit)
	q := r.URL.Query()
	list, total, err := h.records.ListOrders(r.Context(), records.OrderFilter{
		Search: strings.TrimSpace(q.Get("search")),
		Client: q.Get("client"),
		Limit:  p.Limit,
		Offset: p.Offset,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, fmt.Sprintf("%d order(s)", total), NewPaginatedResponse(list, p, total))
}

// OrderStats counts orders with and without charge tiers.
//
//	GET /api/orders/stats
func (h *Handlers) OrderStats(w http.ResponseWriter, r *http.Request) {
	s, err := h.records.OrderStats(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, "order stats", s)
}

// ListMeasurements returns one page of measurements.
//
//	GET /api/measurements?page&limit&hub&driver
func (h *Handlers) ListMeasurements(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r, 100, records.MaxListLimit)
	q := r.URL.Query()
	list, total, err := h.records.ListMeasurements(r.Context(), records.MeasurementFilter{
		Hub:    strings.TrimSpace(q.Get("hub")),
		Driver: strings.TrimSpace(q.Get("driver")),
		Limit:  p.Limit,
		Offset: p.Offset,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, fmt.Sprintf("%d measurement(s)", total), NewPaginatedResponse(list, p, total))
}

// MeasurementsInfo reports whether both reconciliation inputs are loaded.
//
//	GET /api/measurements/info
func (h *Handlers) MeasurementsInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.records.Info(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, "reconciliation inputs", info)
}

// ListPhoneMessages returns one page of the phone message list.
//
//	GET /api/phone-messages?page&limit
func (h *Handlers) ListPhoneMessages(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r, 100, records.MaxListLimit)
	list, total, err := h.records.ListPhoneMessages(r.Context(), p.Limit, p.Offset)
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, fmt.Sprintf("%d message(s)", total), NewPaginatedResponse(list, p, total))
}

// ClearDataset deletes every row of a dataset and its upload sessions.
//
//	DELETE /api/orders, /api/measurements, /api/phone-messages
func (h *Handlers) ClearDataset(ds domain.Dataset) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := h.records.Clear(r.Context(), ds)
		if err != nil {
			respondError(w, r, err)
			return
		}
		httputil.OK(w, fmt.Sprintf("%d %s row(s) deleted", res.Deleted, ds), res)
	}
}
