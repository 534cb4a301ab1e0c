package cohort

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ignite/courier-ops/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRepo is an in-memory repository for testing. It ignores the filter
// hint and returns everything, so the engine's own filtering is exercised.
type mockRepo struct {
	mu      sync.RWMutex
	events  []Event
	roster  []RosterEntry
	scans   int
	scanErr error
}

func (m *mockRepo) EachEvent(ctx context.Context, _ EventFilter, fn func(Event) error) error {
	m.mu.Lock()
	m.scans++
	m.mu.Unlock()
	if m.scanErr != nil {
		return m.scanErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.events {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.EntityName == "-" || e.DeliveryDate == "-" {
			continue
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockRepo) Roster(context.Context) ([]RosterEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.roster, nil
}

func (m *mockRepo) add(name, date, week, order string) {
	m.events = append(m.events, Event{
		EntityName: name, DeliveryDate: date, Week: week,
		OrderCode: order, Hub: "JKT-01", ClientName: "Sayur", ProjectName: "Fresh",
	})
}

func seeded() *mockRepo {
	m := &mockRepo{}
	m.add("Budi", "02/01/2024", "Week 1", "O1")
	m.add("Sari", "03/01/2024", "Week 1", "O2")
	m.add("Sari", "09/01/2024", "Week 2", "O3")
	m.add("budi", "28/01/2024", "Week 4", "O4")
	m.add("Sari", "05/02/2024", "Week 1", "O5")
	m.add("Sari", "06/02/2024", "Week 1", "O6")
	m.add("Joko", "bad date", "Week 1", "O7")
	return m
}

func TestActivePeriods_Monthly(t *testing.T) {
	e := NewEngine(seeded())
	stats, err := e.ActivePeriods(context.Background(), Monthly)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "January", stats[0].Month)
	assert.Empty(t, stats[0].Week)
	assert.Equal(t, []string{"Budi", "Sari"}, stats[0].ActiveRiders)
	assert.Equal(t, []string{"Sari"}, stats[1].ActiveRiders)
	assert.Equal(t, []string{"Budi"}, stats[1].InactiveRiders)
	assert.InDelta(t, 50.0, *stats[1].RetentionRate, 1e-9)
	assert.InDelta(t, 50.0, *stats[1].ChurnRate, 1e-9)
}

func TestActivePeriods_WeeklyFoldsRoster(t *testing.T) {
	repo := seeded()
	repo.roster = []RosterEntry{
		{Name: "Budi", Status: "Active", Date: time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)},
		{Name: "Rina", Status: "Active", Date: time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)},
	}
	stats, err := NewEngine(repo).ActivePeriods(context.Background(), Weekly)
	require.NoError(t, err)

	var labels []string
	for _, s := range stats {
		labels = append(labels, s.Week+" "+s.Month)
	}
	assert.Equal(t, []string{"Week 1 January", "Week 2 January", "Week 4 January", "Week 1 February", "week 3 March"}, labels)

	w2 := stats[1]
	assert.Equal(t, map[string]int{"Active": 1}, w2.StatusCounts)
	assert.Equal(t, []string{"Budi"}, w2.InactiveRiders)
	// previous 2 - inactive 1 + active registrations 1
	assert.Equal(t, 2, w2.GettingValue)

	march := stats[4]
	assert.Equal(t, 0, march.ActiveCount)
	assert.Equal(t, 1, march.Total)
}

func TestActivePeriods_StorageErrors(t *testing.T) {
	repo := &mockRepo{scanErr: errors.New("connection refused")}
	_, err := NewEngine(repo).ActivePeriods(context.Background(), Monthly)
	assert.Equal(t, apperr.KindInfrastructure, apperr.KindOf(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewEngine(seeded()).ActivePeriods(ctx, Weekly)
	assert.Equal(t, apperr.KindTimeout, apperr.KindOf(err))

	_, err = NewEngine(seeded()).ActivePeriods(context.Background(), Granularity("daily"))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestParseQuery(t *testing.T) {
	q, err := ParseQuery("March", "2024", " Week 2 ")
	require.NoError(t, err)
	assert.Equal(t, Query{Year: 2024, Month: time.March, Week: "Week 2"}, q)

	q, err = ParseQuery("12", "2023", "")
	require.NoError(t, err)
	assert.Equal(t, time.December, q.Month)

	_, err = ParseQuery("", "", "")
	require.Error(t, err)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidation, ae.Kind)
	assert.Len(t, ae.Details, 2)

	_, err = ParseQuery("Smarch", "20x4", "")
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestActiveDetails(t *testing.T) {
	e := NewEngine(seeded())
	rep, err := e.ActiveDetails(context.Background(), Query{Year: 2024, Month: time.January})
	require.NoError(t, err)
	assert.Equal(t, "January 2024", rep.Period)
	require.Equal(t, 4, rep.TotalRecords)

	var orders []string
	for _, r := range rep.Rows {
		orders = append(orders, r.OrderCode)
	}
	assert.Equal(t, []string{"O1", "O2", "O3", "O4"}, orders)

	rep, err = e.ActiveDetails(context.Background(), Query{Year: 2024, Month: time.January, Week: "Week 1"})
	require.NoError(t, err)
	assert.Equal(t, 2, rep.TotalRecords)
	assert.Equal(t, "Week 1 - January 2024", rep.Period)
}

func TestInactiveDetails_Monthly(t *testing.T) {
	e := NewEngine(seeded())
	rep, err := e.InactiveDetails(context.Background(), Query{Year: 2024, Month: time.February})
	require.NoError(t, err)
	assert.Equal(t, "January 2024", rep.PreviousPeriod)
	require.Len(t, rep.Rows, 1)

	row := rep.Rows[0]
	assert.Equal(t, "Budi", row.MitraName)
	assert.Equal(t, "28/01/2024", row.DeliveryDate)
	assert.Equal(t, "O4", row.OrderCode)
	assert.Equal(t, "Week 4", row.Weekly)
}

func TestInactiveDetails_MonthWrapsYear(t *testing.T) {
	repo := &mockRepo{}
	repo.add("Ani", "15/12/2023", "Week 3", "D1")
	rep, err := NewEngine(repo).InactiveDetails(context.Background(), Query{Year: 2024, Month: time.January})
	require.NoError(t, err)
	assert.Equal(t, "December 2023", rep.PreviousPeriod)
	require.Len(t, rep.Rows, 1)
	assert.Equal(t, "Ani", rep.Rows[0].MitraName)
}

func TestInactiveDetails_Weekly(t *testing.T) {
	e := NewEngine(seeded())

	rep, err := e.InactiveDetails(context.Background(), Query{Year: 2024, Month: time.January, Week: "Week 2"})
	require.NoError(t, err)
	assert.Equal(t, "Week 1 - January 2024", rep.PreviousPeriod)
	require.Len(t, rep.Rows, 1)
	assert.Equal(t, "Budi", rep.Rows[0].MitraName)
	assert.Equal(t, "O1", rep.Rows[0].OrderCode)

	// The first week has nothing to compare against.
	rep, err = e.InactiveDetails(context.Background(), Query{Year: 2024, Month: time.January, Week: "Week 1"})
	require.NoError(t, err)
	assert.Empty(t, rep.Rows)
	assert.Empty(t, rep.PreviousPeriod)

	rep, err = e.InactiveDetails(context.Background(), Query{Year: 2024, Month: time.January, Week: "Week 9"})
	require.NoError(t, err)
	assert.Empty(t, rep.Rows)
}
