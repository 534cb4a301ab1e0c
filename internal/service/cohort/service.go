package cohort

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ignite/courier-ops/internal/apperr"
	"github.com/ignite/courier-ops/internal/datanorm"
	"github.com/ignite/courier-ops/internal/pkg/logger"
)

// Engine computes cohort statistics from the shipment and roster tables.
type Engine struct {
	repo Repository
}

// NewEngine creates a new cohort engine.
func NewEngine(repo Repository) *Engine {
	return &Engine{repo: repo}
}

// ActivePeriods buckets every delivery and compares consecutive periods.
// The weekly view also folds the roster status histogram in.
func (e *Engine) ActivePeriods(ctx context.Context, g Granularity) ([]PeriodStats, error) {
	if g != Monthly && g != Weekly {
		return nil, apperr.Validation("granularity must be monthly or weekly", nil)
	}

	b := NewBuckets(g)
	err := e.repo.EachEvent(ctx, EventFilter{}, func(ev Event) error {
		b.AddEvent(ev)
		return nil
	})
	if err != nil {
		return nil, storageError(ctx, "reading shipments", err)
	}

	if g == Weekly {
		roster, err := e.repo.Roster(ctx)
		if err != nil {
			return nil, storageError(ctx, "reading roster", err)
		}
		for _, r := range roster {
			b.AddRosterEntry(r)
		}
	}

	stats := Stats(b.Sorted())
	logger.Info("cohort periods computed", "granularity", string(g), "periods", len(stats), "skipped_events", b.Skipped())
	return stats, nil
}

// Query selects one period for the detail views.
type Query struct {
	Year  int
	Month time.Month
	Week  string
}

// Key returns the period key the query selects.
func (q Query) Key() PeriodKey {
	return PeriodKey{Year: q.Year, Month: q.Month, Week: q.Week}
}

// ParseQuery validates the month, year and optional week parameters.
// month accepts an English name or 1-12.
func ParseQuery(month, year, week string) (Query, error) {
	var issues []apperr.FieldError
	var q Query

	if strings.TrimSpace(month) == "" {
		issues = append(issues, apperr.FieldError{Field: "month", Issue: "required"})
	} else if m, ok := datanorm.ParseMonth(month); ok {
		q.Month = m
	} else {
		issues = append(issues, apperr.FieldError{Field: "month", Issue: "must be a month name or 1-12"})
	}

	if strings.TrimSpace(year) == "" {
		issues = append(issues, apperr.FieldError{Field: "year", Issue: "required"})
	} else if y, err := strconv.Atoi(strings.TrimSpace(year)); err == nil && y > 0 {
		q.Year = y
	} else {
		issues = append(issues, apperr.FieldError{Field: "year", Issue: "must be a positive integer"})
	}

	if len(issues) > 0 {
		return Query{}, &apperr.Error{
			Kind:    apperr.KindValidation,
			Message: "invalid period: month and year are required",
			Details: issues,
			Err:     ErrInvalidPeriod,
		}
	}
	q.Week = strings.TrimSpace(week)
	return q, nil
}

// DetailRow is one rider line of a detail view.
type DetailRow struct {
	MitraName    string `json:"mitra_name"`
	DeliveryDate string `json:"delivery_date"`
	OrderCode    string `json:"order_code"`
	Hub          string `json:"hub"`
	ClientName   string `json:"client_name"`
	ProjectName  string `json:"project_name"`
	Weekly       string `json:"weekly"`
}

// DetailReport is the result of a detail view.
type DetailReport struct {
	Period         string      `json:"period"`
	PreviousPeriod string      `json:"previousPeriod,omitempty"`
	TotalRecords   int         `json:"totalRecords"`
	Rows           []DetailRow `json:"rows"`
}

type datedEvent struct {
	Event
	date time.Time
}

func rowOf(ev Event) DetailRow {
	return DetailRow{
		MitraName:    ev.EntityName,
		DeliveryDate: ev.DeliveryDate,
		OrderCode:    datanorm.OrSentinel(ev.OrderCode),
		Hub:          datanorm.OrSentinel(ev.Hub),
		ClientName:   datanorm.OrSentinel(ev.ClientName),
		ProjectName:  datanorm.OrSentinel(ev.ProjectName),
		Weekly:       datanorm.OrSentinel(ev.Week),
	}
}

// scan streams the events of one period, re-checking the filter.
func (e *Engine) scan(ctx context.Context, f EventFilter, fn func(datedEvent)) error {
	return e.repo.EachEvent(ctx, f, func(ev Event) error {
		if datanorm.IsBlank(ev.EntityName) {
			return nil
		}
		d, ok := datanorm.ParseDeliveryDate(ev.DeliveryDate)
		if !ok {
			return nil
		}
		if f.Year != 0 && d.Year() != f.Year {
			return nil
		}
		if f.Month != 0 && d.Month() != f.Month {
			return nil
		}
		if f.Week != "" && ev.Week != f.Week {
			return nil
		}
		fn(datedEvent{Event: ev, date: d})
		return nil
	})
}

// ActiveDetails lists every delivery of the selected period, sorted by
// rider name then delivery date.
func (e *Engine) ActiveDetails(ctx context.Context, q Query) (*DetailReport, error) {
	var events []datedEvent
	err := e.scan(ctx, EventFilter(q), func(ev datedEvent) {
		events = append(events, ev)
	})
	if err != nil {
		return nil, storageError(ctx, "reading shipments", err)
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].EntityName != events[j].EntityName {
			return events[i].EntityName < events[j].EntityName
		}
		return events[i].date.Before(events[j].date)
	})

	rep := &DetailReport{Period: q.Key().Label(), Rows: make([]DetailRow, 0, len(events))}
	for _, ev := range events {
		rep.Rows = append(rep.Rows, rowOf(ev.Event))
	}
	rep.TotalRecords = len(rep.Rows)
	return rep, nil
}

// InactiveDetails lists the riders active in the period before q but not
// in q, each with their latest delivery of that previous period.
//
// Without a week the previous period is the previous calendar month. With a
// week it is the week that precedes q in the weekly series; when q is the
// first week (or unknown) the report is empty.
func (e *Engine) InactiveDetails(ctx context.Context, q Query) (*DetailReport, error) {
	rep := &DetailReport{Period: q.Key().Label(), Rows: []DetailRow{}}

	var current *Period
	var prevKey PeriodKey
	if q.Week != "" {
		b := NewBuckets(Weekly)
		err := e.repo.EachEvent(ctx, EventFilter{}, func(ev Event) error {
			b.AddEvent(ev)
			return nil
		})
		if err != nil {
			return nil, storageError(ctx, "reading shipments", err)
		}
		sorted := b.Sorted()
		cur, idx := Find(sorted, q.Key())
		if idx <= 0 {
			return rep, nil
		}
		current = cur
		prevKey = sorted[idx-1].Key
	} else {
		current = newPeriod(q.Key())
		err := e.scan(ctx, EventFilter(q), func(ev datedEvent) {
			current.Entities.Add(ev.EntityName)
		})
		if err != nil {
			return nil, storageError(ctx, "reading shipments", err)
		}
		prevKey = PeriodKey{Year: q.Year, Month: q.Month - 1}
		if prevKey.Month == 0 {
			prevKey.Month = time.December
			prevKey.Year--
		}
	}
	rep.PreviousPeriod = prevKey.Label()

	previous := newPeriod(prevKey)
	latest := make(map[string]datedEvent)
	err := e.scan(ctx, EventFilter(prevKey), func(ev datedEvent) {
		previous.Entities.Add(ev.EntityName)
		key := datanorm.NormalizeName(ev.EntityName)
		if last, ok := latest[key]; !ok || !ev.date.Before(last.date) {
			latest[key] = ev
		}
	})
	if err != nil {
		return nil, storageError(ctx, "reading shipments", err)
	}

	for _, name := range InactiveEntities(current, previous) {
		last := latest[datanorm.NormalizeName(name)]
		row := rowOf(last.Event)
		row.MitraName = name
		rep.Rows = append(rep.Rows, row)
	}
	rep.TotalRecords = len(rep.Rows)
	return rep, nil
}

// storageError classifies a failed scan: a caller deadline becomes a
// timeout, anything else an infrastructure error.
func storageError(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return apperr.Timeout("cohort query timed out", fmt.Errorf("%s: %w", op, err))
	}
	return apperr.Infrastructure("storage error while "+op, fmt.Errorf("%s: %w", op, err))
}
