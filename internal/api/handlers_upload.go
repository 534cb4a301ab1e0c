package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ignite/courier-ops/internal/apperr"
	"github.com/ignite/courier-ops/internal/datanorm"
	"github.com/ignite/courier-ops/internal/domain"
	"github.com/ignite/courier-ops/internal/pkg/httputil"
	"github.com/ignite/courier-ops/internal/pkg/logger"
	"github.com/ignite/courier-ops/internal/report"
	"github.com/ignite/courier-ops/internal/service/loader"
)

const maxXLSXBytes = 32 << 20

// uploadRecords accepts a bare JSON array, or an object wrapping it under
// "records" or "data".
func uploadRecords(r *http.Request) ([]any, error) {
	var body any
	if err := decodeJSON(r, &body); err != nil {
		return nil, err
	}
	switch v := body.(type) {
	case []any:
		return v, nil
	case map[string]any:
		for _, k := range []string{"records", "data"} {
			if recs, ok := v[k].([]any); ok {
				return recs, nil
			}
		}
	}
	return nil, apperr.Validation(loader.ErrEmptyPayload.Error(), nil)
}

func loadMode(r *http.Request) domain.LoadMode {
	if v, _ := strconv.ParseBool(strings.TrimSpace(r.Header.Get(HeaderReplaceData))); v {
		return domain.ModeReplace
	}
	return domain.ModeAppend
}

// Upload loads one chunk of a dataset.
//
//	POST /api/{dataset}/upload
func (h *Handlers) Upload(ds domain.Dataset) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs, err := uploadRecords(r)
		if err != nil {
			respondError(w, r, err)
			return
		}
		h.load(w, r, ds, loader.LoadRequest{
			Records:      recs,
			Mode:         loadMode(r),
			SessionToken: strings.TrimSpace(r.Header.Get(HeaderUploadSession)),
		})
	}
}

func (h *Handlers) load(w http.ResponseWriter, r *http.Request, ds domain.Dataset, req loader.LoadRequest) {
	ctx, cancel, err := h.requestContext(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer cancel()

	res, err := h.loader.Load(ctx, ds, req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	recordsLoaded.WithLabelValues(string(ds), "inserted").Add(float64(res.Inserted))
	recordsLoaded.WithLabelValues(string(ds), "failed").Add(float64(res.Failed))

	w.Header().Set(HeaderUploadSession, res.SessionToken)
	// a nil *WarningBlock must not reach the envelope as a typed nil
	if warning := res.Warning(); warning != nil {
		httputil.Created(w, "records uploaded with warnings", res, warning)
		return
	}
	httputil.Created(w, "records uploaded", res, nil)
}

// ResetSessions clears the session named by X-Upload-Session, or all
// sessions of the dataset.
//
//	POST /api/{dataset}/reset
func (h *Handlers) ResetSessions(ds domain.Dataset) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(r.Header.Get(HeaderUploadSession))
		n, err := h.loader.Reset(r.Context(), ds, token)
		if err != nil {
			respondError(w, r, err)
			return
		}
		httputil.OK(w, "upload session reset", map[string]any{"dataset": ds, "sessions_reset": n})
	}
}

// UploadPhoneXLSX replaces the phone message list from a spreadsheet with
// phone and message columns.
//
//	POST /api/phone-messages/upload-xlsx
func (h *Handlers) UploadPhoneXLSX(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxXLSXBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, apperr.Validation("multipart field \"file\" with an xlsx workbook is required", nil))
		return
	}
	defer file.Close()

	recs, err := report.ParseRecords(file, datanorm.FieldPhone, datanorm.FieldMessage)
	if err != nil {
		var missing *report.MissingColumnsError
		switch {
		case errors.As(err, &missing):
			respondError(w, r, apperr.Validation(missing.Error(), missing.Fields))
		case errors.Is(err, report.ErrEmptyWorkbook):
			respondError(w, r, apperr.Validation(err.Error(), nil))
		default:
			logger.Warn("xlsx upload unreadable", "error", err)
			respondError(w, r, apperr.Validation("file is not a readable xlsx workbook", nil))
		}
		return
	}

	h.load(w, r, domain.DatasetPhoneMessages, loader.LoadRequest{
		Records:      recs,
		Mode:         domain.ModeReplace,
		SessionToken: strings.TrimSpace(r.Header.Get(HeaderUploadSession)),
	})
}
