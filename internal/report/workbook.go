package report

import (
	"fmt"
	"strings"

	"github.com/ignite/courier-ops/internal/service/cohort"
	"github.com/ignite/courier-ops/internal/service/reconcile"
	"github.com/ignite/courier-ops/internal/service/tasks"
	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type of generated workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	sheetCohorts   = "Cohorts"
	sheetRiders    = "Riders"
	sheetSummary   = "Summary"
	sheetUnmatched = "Unmatched"
	sheetUsers     = "Users"
	sheetTop       = "Top Performers"
	sheetAttention = "Needs Attention"
)

// Success-rate thresholds for the task performance highlight sheets.
const (
	topPerformerRate = 70.0
	attentionRate    = 50.0
)

// sheetWriter appends rows to one sheet.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
	err   error
}

func newSheet(f *excelize.File, name string, first bool) *sheetWriter {
	w := &sheetWriter{f: f, sheet: name}
	if first {
		w.err = f.SetSheetName("Sheet1", name)
	} else {
		_, w.err = f.NewSheet(name)
	}
	return w
}

func (w *sheetWriter) append(values ...any) {
	if w.err != nil {
		return
	}
	w.row++
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetSheetRow(w.sheet, cell, &values); err != nil {
		w.err = fmt.Errorf("write %s row %d: %w", w.sheet, w.row, err)
	}
}

func (w *sheetWriter) header(style int, values ...any) {
	w.append(values...)
	if w.err != nil || style == 0 {
		return
	}
	last, err := excelize.CoordinatesToCellName(len(values), w.row)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetCellStyle(w.sheet, "A1", last, style)
}

func headerStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
}

func rate(p *float64) any {
	if p == nil {
		return ""
	}
	return *p
}

// CohortWorkbook renders period statistics: one summary row per period and
// a rider sheet listing active and inactive riders per period.
func CohortWorkbook(stats []cohort.PeriodStats, g cohort.Granularity) (*excelize.File, error) {
	f := excelize.NewFile()
	style, err := headerStyle(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	summary := newSheet(f, sheetCohorts, true)
	cols := []any{"Month", "Year", "Active", "Inactive", "Total Unique", "Retention %", "Churn %", "Getting Value"}
	if g == cohort.Weekly {
		cols = append([]any{"Week"}, cols...)
		cols = append(cols, "Roster Total")
	}
	summary.header(style, cols...)
	for _, s := range stats {
		row := []any{s.Month, s.Year, s.ActiveCount, s.InactiveCount, s.TotalUniqueRiders,
			rate(s.RetentionRate), rate(s.ChurnRate), s.GettingValue}
		if g == cohort.Weekly {
			row = append([]any{s.Week}, row...)
			row = append(row, s.Total)
		}
		summary.append(row...)
	}

	riders := newSheet(f, sheetRiders, false)
	riders.header(style, "Period", "Rider", "State")
	for _, s := range stats {
		label := strings.TrimSpace(s.Month + " " + s.Year)
		if s.Week != "" {
			label = s.Week + " - " + label
		}
		for _, name := range s.ActiveRiders {
			riders.append(label, name, "active")
		}
		for _, name := range s.InactiveRiders {
			riders.append(label, name, "inactive")
		}
	}

	for _, w := range []*sheetWriter{summary, riders} {
		if w.err != nil {
			f.Close()
			return nil, w.err
		}
	}
	return f, nil
}

// ReconcileWorkbook renders a reconciliation report: headline figures and
// the listed unmatched keys side by side.
func ReconcileWorkbook(r *reconcile.Report) (*excelize.File, error) {
	f := excelize.NewFile()
	style, err := headerStyle(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	summary := newSheet(f, sheetSummary, true)
	summary.header(style, "Metric", "Value")
	summary.append("Started at", r.StartedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	summary.append("Total checked", r.TotalChecked)
	summary.append("Total updated", r.TotalUpdated)
	summary.append("Matched", r.MatchedRecords)
	summary.append("Unmatched orders", r.UnmatchedPrimaryCount)
	summary.append("Unmatched measurements", r.UnmatchedReferenceCount)
	summary.append("Measurement rows", r.ReferenceRecords)
	summary.append("Pages", r.Pages)
	summary.append("Duration (ms)", r.DurationMs)
	summary.append("Partial", r.Partial)

	unmatched := newSheet(f, sheetUnmatched, false)
	unmatched.header(style, "Order code without measurement", "Measurement without order")
	n := max(len(r.UnmatchedPrimaryKeys), len(r.UnmatchedReferenceKeys))
	for i := 0; i < n; i++ {
		var a, b string
		if i < len(r.UnmatchedPrimaryKeys) {
			a = r.UnmatchedPrimaryKeys[i]
		}
		if i < len(r.UnmatchedReferenceKeys) {
			b = r.UnmatchedReferenceKeys[i]
		}
		unmatched.append(a, b)
	}

	for _, w := range []*sheetWriter{summary, unmatched} {
		if w.err != nil {
			f.Close()
			return nil, w.err
		}
	}
	return f, nil
}

// TaskPerformanceWorkbook renders task analytics: overall figures, one row
// per user, and the users above and below the success-rate thresholds.
// period labels the date range on the summary sheet.
func TaskPerformanceWorkbook(p *tasks.Performance, period string) (*excelize.File, error) {
	f := excelize.NewFile()
	style, err := headerStyle(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	if period == "" {
		period = "All time"
	}

	overall := 0.0
	if p.Summary.Total > 0 {
		overall = float64(p.Summary.Eligible) / float64(p.Summary.Total) * 100
	}
	summary := newSheet(f, sheetSummary, true)
	summary.header(style, "Metric", "Value")
	summary.append("Report period", period)
	summary.append("Total tasks", p.Summary.Total)
	summary.append("Users", p.TotalUsers)
	summary.append("Average tasks per user", p.Summary.AvgTasksPerUser)
	summary.append("Eligible", p.Summary.Eligible)
	summary.append("Not eligible", p.Summary.NotEligible)
	summary.append("Overall success %", overall)

	users := newSheet(f, sheetUsers, false)
	users.header(style, "User", "Total Tasks", "Eligible", "Not Eligible", "Invited", "Changed Mind",
		"No Response", "Success %", "Conversion %", "Projects", "Cities")
	for _, u := range p.Users {
		users.append(u.UserName, u.TotalTasks, u.Eligible, u.NotEligible, u.Invited, u.ChangedMind,
			u.NoResponse, u.SuccessRate, u.ConversionRate, strings.Join(u.Projects, ", "), strings.Join(u.Cities, ", "))
	}

	top := newSheet(f, sheetTop, false)
	top.header(style, "User", "Total Tasks", "Eligible", "Success %")
	attention := newSheet(f, sheetAttention, false)
	attention.header(style, "User", "Total Tasks", "Eligible", "Success %")
	for _, u := range p.Users {
		if u.TotalTasks == 0 {
			continue
		}
		switch {
		case u.SuccessRate >= topPerformerRate:
			top.append(u.UserName, u.TotalTasks, u.Eligible, u.SuccessRate)
		case u.SuccessRate < attentionRate:
			attention.append(u.UserName, u.TotalTasks, u.Eligible, u.SuccessRate)
		}
	}

	for _, w := range []*sheetWriter{summary, users, top, attention} {
		if w.err != nil {
			f.Close()
			return nil, w.err
		}
	}
	return f, nil
}

// Bytes serializes and closes the workbook.
func Bytes(f *excelize.File) ([]byte, error) {
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
