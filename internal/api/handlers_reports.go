package api

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/ignite/courier-ops/internal/apperr"
	"github.com/ignite/courier-ops/internal/pkg/httputil"
	"github.com/ignite/courier-ops/internal/pkg/logger"
	"github.com/ignite/courier-ops/internal/report"
	"github.com/ignite/courier-ops/internal/storage"
)

// sendWorkbook archives data under a fresh key, then streams it. An
// archive failure is logged and does not fail the download.
func (h *Handlers) sendWorkbook(w http.ResponseWriter, r *http.Request, kind string, data []byte) {
	key := storage.ReportKey(kind, h.now())
	if h.archive != nil {
		if err := h.archive.Put(r.Context(), key, report.ContentType, data); err != nil {
			logger.Warn("report archive failed", "key", key, "error", err)
		} else {
			w.Header().Set(HeaderReportKey, key)
		}
	}
	writeWorkbook(w, path.Base(key), data)
}

func writeWorkbook(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logger.Warn("report write failed", "file", filename, "error", err)
	}
}

// ListReports lists archived workbooks, newest first.
//
//	GET /api/reports?prefix=reconcile/
func (h *Handlers) ListReports(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		httputil.OK(w, "report archive disabled", []storage.Object{})
		return
	}
	objs, err := h.archive.List(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		respondError(w, r, apperr.Infrastructure("report archive unavailable", err))
		return
	}
	if objs == nil {
		objs = []storage.Object{}
	}
	httputil.OK(w, fmt.Sprintf("%d report(s)", len(objs)), objs)
}

// DownloadReport streams one archived workbook.
//
//	GET /api/reports/archive/*
func (h *Handlers) DownloadReport(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if h.archive == nil || key == "" {
		respondError(w, r, apperr.NotFound("report not found", storage.ErrNotFound))
		return
	}
	data, err := h.archive.Get(r.Context(), key)
	if errors.Is(err, storage.ErrNotFound) {
		respondError(w, r, apperr.NotFound("report not found", err))
		return
	}
	if err != nil {
		respondError(w, r, apperr.Infrastructure("report archive unavailable", err))
		return
	}
	writeWorkbook(w, path.Base(key), data)
}
