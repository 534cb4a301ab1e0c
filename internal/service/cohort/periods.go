package cohort

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ignite/courier-ops/internal/datanorm"
	"github.com/ignite/courier-ops/internal/domain"
)

// Granularity selects how events are bucketed.
type Granularity string

const (
	Monthly Granularity = "month"
	Weekly  Granularity = "month_week"
)

// ParseGranularity accepts "monthly"/"month" and "weekly"/"week"/"month_week".
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "monthly", "month":
		return Monthly, nil
	case "weekly", "week", "month_week":
		return Weekly, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownGranularity, s)
}

// PeriodKey identifies one bucket. Week is empty for monthly buckets and is
// otherwise the week label exactly as uploaded.
type PeriodKey struct {
	Year  int
	Month time.Month
	Week  string
}

// MonthName returns the English month name.
func (k PeriodKey) MonthName() string {
	if k.Month < time.January || k.Month > time.December {
		return ""
	}
	return datanorm.MonthNames[k.Month]
}

// Label renders the key for messages: "week 2 - March 2024" or "March 2024".
func (k PeriodKey) Label() string {
	if k.Week != "" {
		return fmt.Sprintf("%s - %s %d", k.Week, k.MonthName(), k.Year)
	}
	return fmt.Sprintf("%s %d", k.MonthName(), k.Year)
}

// before orders keys by year, month, week number, then label.
func (k PeriodKey) before(o PeriodKey) bool {
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	if k.Month != o.Month {
		return k.Month < o.Month
	}
	wk, wo := datanorm.WeekNumber(k.Week), datanorm.WeekNumber(o.Week)
	if wk != wo {
		return wk < wo
	}
	return k.Week < o.Week
}

// Period is one bucket: the distinct riders active in it and the status
// histogram of roster entries registered in it.
type Period struct {
	Key          PeriodKey
	Entities     *datanorm.NameSet
	StatusCounts map[string]int
	Total        int
}

func newPeriod(k PeriodKey) *Period {
	return &Period{Key: k, Entities: datanorm.NewNameSet(), StatusCounts: make(map[string]int)}
}

// Size returns the number of distinct active riders; 0 for a nil period.
func (p *Period) Size() int {
	if p == nil {
		return 0
	}
	return p.Entities.Len()
}

type monthKey struct {
	year  int
	month time.Month
}

// Buckets accumulates events and roster entries into periods.
type Buckets struct {
	granularity Granularity
	periods     map[PeriodKey]*Period
	byMonth     map[monthKey][]*Period
	skipped     int
}

// NewBuckets returns an empty accumulator.
func NewBuckets(g Granularity) *Buckets {
	return &Buckets{
		granularity: g,
		periods:     make(map[PeriodKey]*Period),
		byMonth:     make(map[monthKey][]*Period),
	}
}

func (b *Buckets) period(k PeriodKey) *Period {
	if p, ok := b.periods[k]; ok {
		return p
	}
	p := newPeriod(k)
	b.periods[k] = p
	mk := monthKey{k.Year, k.Month}
	b.byMonth[mk] = append(b.byMonth[mk], p)
	return p
}

// AddEvent records one delivery. Events with a blank rider name, an
// unparseable delivery date, or (weekly) a blank week label are skipped,
// and AddEvent reports false.
func (b *Buckets) AddEvent(e Event) bool {
	if datanorm.IsBlank(e.EntityName) {
		b.skipped++
		return false
	}
	d, ok := datanorm.ParseDeliveryDate(e.DeliveryDate)
	if !ok {
		b.skipped++
		return false
	}
	k := PeriodKey{Year: d.Year(), Month: d.Month()}
	if b.granularity == Weekly {
		if datanorm.IsBlank(e.Week) {
			b.skipped++
			return false
		}
		k.Week = e.Week
	}
	b.period(k).Entities.Add(e.EntityName)
	return true
}

// AddRosterEntry folds one roster entry into the status histogram.
//
// Weekly: the entry goes to the week of its (year, month) whose day range
// (n-1)*7+1 .. n*7 contains its day, else to the earliest week of that month.
// When the month has no week yet, "week ceil(day/7)" is created.
func (b *Buckets) AddRosterEntry(r RosterEntry) {
	if r.Date.IsZero() {
		return
	}
	status := strings.TrimSpace(r.Status)
	if status == "" {
		status = string(domain.StatusUnknown)
	}

	year, month, day := r.Date.Date()
	target := PeriodKey{Year: year, Month: month}
	if b.granularity == Weekly {
		target.Week = b.weekFor(year, month, day)
	}

	p := b.period(target)
	p.StatusCounts[status]++
	p.Total++
}

func (b *Buckets) weekFor(year int, month time.Month, day int) string {
	weeks := append([]*Period(nil), b.byMonth[monthKey{year, month}]...)
	if len(weeks) == 0 {
		return "week " + strconv.Itoa((day+6)/7)
	}
	sort.SliceStable(weeks, func(i, j int) bool { return weeks[i].Key.before(weeks[j].Key) })
	for _, p := range weeks {
		// a month spans at most five weeks
		n := datanorm.WeekNumber(p.Key.Week)
		if n < 1 || n > 5 {
			continue
		}
		if day >= (n-1)*7+1 && day <= n*7 {
			return p.Key.Week
		}
	}
	return weeks[0].Key.Week
}

// Skipped returns how many events were excluded.
func (b *Buckets) Skipped() int { return b.skipped }

// Sorted returns the periods in chronological order.
func (b *Buckets) Sorted() []*Period {
	out := make([]*Period, 0, len(b.periods))
	for _, p := range b.periods {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.before(out[j].Key) })
	return out
}

// Find returns the period with key k and its index in sorted, or -1.
func Find(sorted []*Period, k PeriodKey) (*Period, int) {
	for i, p := range sorted {
		if p.Key == k {
			return p, i
		}
	}
	return nil, -1
}

// InactiveEntities returns the riders of previous that are absent from
// current, using previous's spelling and order.
func InactiveEntities(current, previous *Period) []string {
	if previous == nil {
		return []string{}
	}
	var cur *datanorm.NameSet
	if current != nil {
		cur = current.Entities
	}
	return previous.Entities.Difference(cur)
}

// RetentionRate is the share of previous's riders also active in current,
// as a percentage. It is nil when previous is empty.
func RetentionRate(current, previous *Period) *float64 {
	prev := previous.Size()
	if prev == 0 {
		return nil
	}
	retained := 0
	if current != nil {
		retained = previous.Entities.IntersectionLen(current.Entities)
	}
	r := float64(retained) / float64(prev) * 100
	return &r
}

// ChurnRate is the share of previous's riders absent from current, as a
// percentage. It is nil when previous is empty or nobody churned.
func ChurnRate(current, previous *Period) *float64 {
	prev := previous.Size()
	if prev == 0 {
		return nil
	}
	inactive := len(InactiveEntities(current, previous))
	if inactive == 0 {
		return nil
	}
	r := float64(inactive) / float64(prev) * 100
	return &r
}

// GettingValue is a dashboard heuristic for net headcount:
// previous active riders, minus riders who went inactive, plus roster
// entries registered in this period with status Active, floored at zero.
// It is not an exact identity: a newly registered Active rider who also
// delivered is counted once by the roster and not by the rider sets.
func GettingValue(current, previous *Period) int {
	v := previous.Size() - len(InactiveEntities(current, previous))
	if current != nil {
		v += current.StatusCounts[string(domain.StatusActive)]
	}
	if v < 0 {
		return 0
	}
	return v
}

// PeriodStats is the API view of one period compared with the one before.
type PeriodStats struct {
	Week              string         `json:"week,omitempty"`
	Month             string         `json:"month"`
	Year              string         `json:"year"`
	ActiveCount       int            `json:"activeCount"`
	ActiveRiders      []string       `json:"activeRiders"`
	InactiveCount     int            `json:"inactiveCount"`
	InactiveRiders    []string       `json:"inactiveRiders"`
	TotalUniqueRiders int            `json:"totalUniqueRiders"`
	RetentionRate     *float64       `json:"retentionRate"`
	ChurnRate         *float64       `json:"churnRate"`
	StatusCounts      map[string]int `json:"statusCounts"`
	Total             int            `json:"total"`
	GettingValue      int            `json:"gettingValue"`
}

// Stats compares each period with the one before it. The first period has
// no inactive riders and nil rates.
func Stats(sorted []*Period) []PeriodStats {
	out := make([]PeriodStats, 0, len(sorted))
	for i, cur := range sorted {
		var prev *Period
		if i > 0 {
			prev = sorted[i-1]
		}
		inactive := InactiveEntities(cur, prev)
		out = append(out, PeriodStats{
			Week:              cur.Key.Week,
			Month:             cur.Key.MonthName(),
			Year:              strconv.Itoa(cur.Key.Year),
			ActiveCount:       cur.Size(),
			ActiveRiders:      cur.Entities.Display(),
			InactiveCount:     len(inactive),
			InactiveRiders:    inactive,
			TotalUniqueRiders: cur.Size() + len(inactive),
			RetentionRate:     RetentionRate(cur, prev),
			ChurnRate:         ChurnRate(cur, prev),
			StatusCounts:      cur.StatusCounts,
			Total:             cur.Total,
			GettingValue:      GettingValue(cur, prev),
		})
	}
	return out
}
