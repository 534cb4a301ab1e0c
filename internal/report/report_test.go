package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/ignite/courier-ops/internal/datanorm"
	"github.com/ignite/courier-ops/internal/service/cohort"
	"github.com/ignite/courier-ops/internal/service/reconcile"
	"github.com/ignite/courier-ops/internal/service/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func reopen(t *testing.T, f *excelize.File) *excelize.File {
	t.Helper()
	data, err := Bytes(f)
	require.NoError(t, err)
	out, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { out.Close() })
	return out
}

func TestCohortWorkbook_Monthly(t *testing.T) {
	retention, churn := 50.0, 50.0
	stats := []cohort.PeriodStats{
		{Month: "February", Year: "2024", ActiveCount: 2, ActiveRiders: []string{"Budi", "Sari"}, TotalUniqueRiders: 2},
		{Month: "March", Year: "2024", ActiveCount: 1, ActiveRiders: []string{"Budi"},
			InactiveCount: 1, InactiveRiders: []string{"Sari"}, TotalUniqueRiders: 2,
			RetentionRate: &retention, ChurnRate: &churn},
	}

	f, err := CohortWorkbook(stats, cohort.Monthly)
	require.NoError(t, err)
	wb := reopen(t, f)

	assert.Equal(t, []string{"Cohorts", "Riders"}, wb.GetSheetList())
	rows, err := wb.GetRows("Cohorts")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Month", rows[0][0])
	assert.Equal(t, []string{"February", "2024", "2", "0", "2"}, rows[1][:5])
	assert.Equal(t, "50", rows[2][5])

	riders, err := wb.GetRows("Riders")
	require.NoError(t, err)
	require.Len(t, riders, 5)
	assert.Equal(t, []string{"March 2024", "Sari", "inactive"}, riders[4])
}

func TestCohortWorkbook_WeeklyAddsColumns(t *testing.T) {
	stats := []cohort.PeriodStats{{Week: "week 1", Month: "March", Year: "2024", Total: 7}}

	f, err := CohortWorkbook(stats, cohort.Weekly)
	require.NoError(t, err)
	wb := reopen(t, f)

	rows, err := wb.GetRows("Cohorts")
	require.NoError(t, err)
	assert.Equal(t, "Week", rows[0][0])
	assert.Equal(t, "Roster Total", rows[0][len(rows[0])-1])
	assert.Equal(t, "week 1", rows[1][0])
	assert.Equal(t, "7", rows[1][len(rows[1])-1])
}

func TestReconcileWorkbook(t *testing.T) {
	r := &reconcile.Report{
		TotalChecked:            2,
		MatchedRecords:          1,
		UnmatchedPrimaryCount:   1,
		UnmatchedReferenceCount: 2,
		UnmatchedPrimaryKeys:    []string{"A3"},
		UnmatchedReferenceKeys:  []string{"A2", "A9"},
		StartedAt:               time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
	}

	f, err := ReconcileWorkbook(r)
	require.NoError(t, err)
	wb := reopen(t, f)

	summary, err := wb.GetRows("Summary")
	require.NoError(t, err)
	assert.Equal(t, []string{"Started at", "2024-03-01 08:00:00 UTC"}, summary[1])
	assert.Equal(t, []string{"Matched", "1"}, summary[4])

	unmatched, err := wb.GetRows("Unmatched")
	require.NoError(t, err)
	require.Len(t, unmatched, 3)
	assert.Equal(t, []string{"A3", "A2"}, unmatched[1])
	assert.Equal(t, []string{"", "A9"}, unmatched[2])
}

func workbookBytes(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	data, err := Bytes(f)
	require.NoError(t, err)
	return data
}

func TestTaskPerformanceWorkbook(t *testing.T) {
	p := &tasks.Performance{
		Users: []tasks.UserPerformance{
			{UserName: "Rina", TotalTasks: 4, Eligible: 3, SuccessRate: 75, Projects: []string{"Lazada", "Sayurbox"}},
			{UserName: "Dewi", TotalTasks: 2, Eligible: 1, SuccessRate: 50},
			{UserName: "Agus", TotalTasks: 2, SuccessRate: 0},
		},
		Summary:    tasks.Summary{Total: 8, Eligible: 4, NotEligible: 2, AvgTasksPerUser: 3},
		TotalUsers: 3,
	}

	f, err := TaskPerformanceWorkbook(p, "")
	require.NoError(t, err)
	wb := reopen(t, f)

	assert.Equal(t, []string{"Summary", "Users", "Top Performers", "Needs Attention"}, wb.GetSheetList())

	summary, err := wb.GetRows("Summary")
	require.NoError(t, err)
	assert.Equal(t, []string{"Report period", "All time"}, summary[1])
	assert.Equal(t, []string{"Overall success %", "50"}, summary[7])

	users, err := wb.GetRows("Users")
	require.NoError(t, err)
	require.Len(t, users, 4)
	assert.Equal(t, "Lazada, Sayurbox", users[1][9])

	top, err := wb.GetRows("Top Performers")
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "Rina", top[1][0])

	attention, err := wb.GetRows("Needs Attention")
	require.NoError(t, err)
	require.Len(t, attention, 2)
	assert.Equal(t, "Agus", attention[1][0])
}

func TestParseRecords(t *testing.T) {
	data := workbookBytes(t, [][]any{
		{"Phone", "Pesan", "Note"},
		{"0811", "hello", "x"},
		{"", "", ""},
		{"0812", "hi", ""},
	})

	recs, err := ParseRecords(bytes.NewReader(data), datanorm.FieldPhone, datanorm.FieldMessage)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	first := recs[0].(map[string]any)
	assert.Equal(t, "0811", first["phone"])
	assert.Equal(t, "hello", first["message"])
	assert.Equal(t, "x", first["note"])
}

func TestParseRecords_MissingColumns(t *testing.T) {
	data := workbookBytes(t, [][]any{{"Phone"}, {"0811"}})

	_, err := ParseRecords(bytes.NewReader(data), datanorm.FieldPhone, datanorm.FieldMessage)
	var missing *MissingColumnsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []datanorm.CanonicalField{datanorm.FieldMessage}, missing.Fields)
}

func TestParseRecords_NotAWorkbook(t *testing.T) {
	_, err := ParseRecords(bytes.NewReader([]byte("phone,message\n")))
	assert.Error(t, err)
}
