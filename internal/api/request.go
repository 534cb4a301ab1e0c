package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ignite/courier-ops/internal/apperr"
)

// Request headers.
const (
	HeaderRequestTimeout = "X-Request-Timeout"
	HeaderUploadSession  = "X-Upload-Session"
	HeaderReplaceData    = "X-Replace-Data"
	HeaderReportKey      = "X-Report-Key"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// requestContext bounds the request by X-Request-Timeout (Go duration
// syntax, e.g. "90s"), capped at the configured maximum. Without the
// header the maximum applies.
func (h *Handlers) requestContext(r *http.Request) (context.Context, context.CancelFunc, error) {
	timeout := h.maxTimeout
	if raw := strings.TrimSpace(r.Header.Get(HeaderRequestTimeout)); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return nil, nil, apperr.Validation("invalid "+HeaderRequestTimeout+" header",
				[]apperr.FieldError{{Field: HeaderRequestTimeout, Issue: "must be a positive Go duration such as 30s"}})
		}
		timeout = min(d, h.maxTimeout)
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	return ctx, cancel, nil
}

// decodeJSON reads a JSON body into dst and runs struct validation.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is required", nil)
		}
		return apperr.Validation("invalid JSON: "+err.Error(), nil)
	}
	if reflect.Indirect(reflect.ValueOf(dst)).Kind() != reflect.Struct {
		return nil
	}
	if err := validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

// validationError converts validator errors into field errors.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation("invalid request body", nil)
	}
	issues := make([]apperr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		issues = append(issues, apperr.FieldError{Field: fe.Field(), Issue: describeTag(fe)})
	}
	return apperr.Validation("invalid request body", issues)
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "uuid", "uuid4":
		return "must be a UUID"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
