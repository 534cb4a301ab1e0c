package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ignite/courier-ops/internal/datanorm"
	"github.com/xuri/excelize/v2"
)

// ErrEmptyWorkbook is returned for workbooks without a header row.
var ErrEmptyWorkbook = errors.New("workbook has no rows")

// MissingColumnsError lists required fields no header maps to.
type MissingColumnsError struct {
	Fields []datanorm.CanonicalField
}

func (e *MissingColumnsError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = string(f)
	}
	return "missing required columns: " + strings.Join(names, ", ")
}

// ParseRecords reads the first sheet of an xlsx upload. The first row is
// the header; headers are mapped to canonical keys and blank rows are
// dropped.
func ParseRecords(r io.Reader, required ...datanorm.CanonicalField) ([]any, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyWorkbook
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyWorkbook
	}

	mapping := datanorm.MapColumns(rows[0])
	var missing []datanorm.CanonicalField
	for _, field := range required {
		if !mapping.Has(field) {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Fields: missing}
	}

	records := make([]any, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if rec := mapping.Record(row); rec != nil {
			records = append(records, rec)
		}
	}
	return records, nil
}
