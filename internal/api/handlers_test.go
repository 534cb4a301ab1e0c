package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ignite/courier-ops/internal/apperr"
	"github.com/ignite/courier-ops/internal/config"
	"github.com/ignite/courier-ops/internal/domain"
	"github.com/ignite/courier-ops/internal/report"
	"github.com/ignite/courier-ops/internal/service/cohort"
	"github.com/ignite/courier-ops/internal/service/loader"
	"github.com/ignite/courier-ops/internal/service/reconcile"
	"github.com/ignite/courier-ops/internal/service/records"
	"github.com/ignite/courier-ops/internal/service/roster"
	"github.com/ignite/courier-ops/internal/service/shipment"
	"github.com/ignite/courier-ops/internal/service/tasks"
	"github.com/ignite/courier-ops/internal/session"
	"github.com/ignite/courier-ops/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const (
	mitraA = "11111111-1111-1111-1111-111111111111"
	mitraB = "22222222-2222-2222-2222-222222222222"
	shipID = "33333333-3333-3333-3333-333333333333"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeLoaderRepo struct {
	mu       sync.Mutex
	rows     map[string][]loader.Row
	cleared  []string
	existing []string
}

func (f *fakeLoaderRepo) Clear(_ context.Context, t loader.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, t.Name)
	delete(f.rows, t.Name)
	return nil
}

func (f *fakeLoaderRepo) ExistingKeys(_ context.Context, _ loader.Table, keys []string) ([]string, error) {
	var out []string
	for _, k := range keys {
		for _, e := range f.existing {
			if k == e {
				out = append(out, k)
			}
		}
	}
	return out, nil
}

func (f *fakeLoaderRepo) InsertBatch(_ context.Context, t loader.Table, rows []loader.Row) (loader.BatchOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[t.Name] = append(f.rows[t.Name], rows...)
	return loader.BatchOutcome{Inserted: len(rows)}, nil
}

type fakeReconciler struct {
	rep *reconcile.Report
	err error
}

func (f *fakeReconciler) Reconcile(ctx context.Context) (*reconcile.Report, error) {
	return f.rep, f.err
}

type fakeCohortRepo struct {
	events []cohort.Event
}

func (f *fakeCohortRepo) EachEvent(_ context.Context, _ cohort.EventFilter, fn func(cohort.Event) error) error {
	for _, ev := range f.events {
		if err := fn(ev); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeCohortRepo) Roster(context.Context) ([]cohort.RosterEntry, error) { return nil, nil }

type fakeRosterRepo struct {
	mitras map[string]*domain.Mitra
	counts map[string]int
}

func (f *fakeRosterRepo) Get(_ context.Context, id string) (*domain.Mitra, error) {
	m, ok := f.mitras[id]
	if !ok {
		return nil, roster.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeRosterRepo) List(_ context.Context, fl roster.ListFilter) ([]domain.Mitra, int, error) {
	var out []domain.Mitra
	for _, m := range f.mitras {
		if fl.Search == "" || strings.Contains(strings.ToLower(m.FullName), strings.ToLower(fl.Search)) {
			out = append(out, *m)
		}
	}
	return out, len(out), nil
}

func (f *fakeRosterRepo) CountByStatus(context.Context, roster.DashboardFilter) (map[string]int, error) {
	return f.counts, nil
}

func (f *fakeRosterRepo) PhoneTaken(_ context.Context, phone, exceptID string) (bool, error) {
	for id, m := range f.mitras {
		if id != exceptID && strings.EqualFold(m.PhoneNumber, phone) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRosterRepo) Update(_ context.Context, id string, u roster.UpdateFields) (*domain.Mitra, error) {
	m, ok := f.mitras[id]
	if !ok {
		return nil, roster.ErrNotFound
	}
	if u.FullName != nil {
		m.FullName = *u.FullName
	}
	if u.PhoneNumber != nil {
		m.PhoneNumber = *u.PhoneNumber
	}
	cp := *m
	return &cp, nil
}

func (f *fakeRosterRepo) Delete(_ context.Context, id string) (*domain.Mitra, error) {
	m, ok := f.mitras[id]
	if !ok {
		return nil, roster.ErrNotFound
	}
	delete(f.mitras, id)
	return m, nil
}

func (f *fakeRosterRepo) DeleteMany(_ context.Context, ids []string) (int, error) {
	n := 0
	for _, id := range ids {
		if _, ok := f.mitras[id]; ok {
			delete(f.mitras, id)
			n++
		}
	}
	return n, nil
}

type fakeShipmentRepo struct {
	shipments map[string]*domain.Shipment
	lastList  shipment.ListFilter
}

func (f *fakeShipmentRepo) List(_ context.Context, fl shipment.ListFilter) ([]domain.Shipment, int, error) {
	f.lastList = fl
	var out []domain.Shipment
	for _, s := range f.shipments {
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (f *fakeShipmentRepo) Stats(context.Context) (*domain.ShipmentStats, error) {
	return &domain.ShipmentStats{Total: len(f.shipments)}, nil
}

func (f *fakeShipmentRepo) Filters(context.Context) (*domain.ShipmentFilters, error) {
	return &domain.ShipmentFilters{}, nil
}

func (f *fakeShipmentRepo) Update(_ context.Context, id string, u shipment.UpdateFields) (*domain.Shipment, error) {
	s, ok := f.shipments[id]
	if !ok {
		return nil, shipment.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeShipmentRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.shipments[id]; !ok {
		return shipment.ErrNotFound
	}
	delete(f.shipments, id)
	return nil
}

func (f *fakeShipmentRepo) DeleteMany(_ context.Context, ids []string) (int, error) {
	n := 0
	for _, id := range ids {
		if _, ok := f.shipments[id]; ok {
			delete(f.shipments, id)
			n++
		}
	}
	return n, nil
}

type fakeTaskRepo struct {
	tasks []domain.Task
	last  tasks.Filter
}

func (f *fakeTaskRepo) List(_ context.Context, fl tasks.Filter) ([]domain.Task, error) {
	f.last = fl
	return f.tasks, nil
}

type fakeRecordsRepo struct {
	counts  map[domain.Dataset]int
	deleted []domain.Dataset
}

func (f *fakeRecordsRepo) ListOrders(context.Context, records.OrderFilter) ([]domain.Order, int, error) {
	return nil, 0, nil
}

func (f *fakeRecordsRepo) OrderStats(context.Context) (*records.OrderStats, error) {
	return &records.OrderStats{Total: f.counts[domain.DatasetOrders]}, nil
}

func (f *fakeRecordsRepo) ListMeasurements(context.Context, records.MeasurementFilter) ([]domain.Measurement, int, error) {
	return nil, 0, nil
}

func (f *fakeRecordsRepo) ListPhoneMessages(context.Context, int, int) ([]domain.PhoneMessage, int, error) {
	return nil, 0, nil
}

func (f *fakeRecordsRepo) Count(_ context.Context, ds domain.Dataset) (int, error) {
	return f.counts[ds], nil
}

func (f *fakeRecordsRepo) DeleteAll(_ context.Context, ds domain.Dataset) (int, error) {
	f.deleted = append(f.deleted, ds)
	n := f.counts[ds]
	f.counts[ds] = 0
	return n, nil
}

// ---------------------------------------------------------------------------
// Harness
// ---------------------------------------------------------------------------

type testEnv struct {
	router     http.Handler
	loaderRepo *fakeLoaderRepo
	reconciler *fakeReconciler
	roster     *fakeRosterRepo
	shipments  *fakeShipmentRepo
	records    *fakeRecordsRepo
	tasks      *fakeTaskRepo
	archive    *storage.LocalArchive
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	sessions := session.NewMemoryStore(time.Hour)
	archive, err := storage.NewLocalArchive(t.TempDir())
	require.NoError(t, err)

	env := &testEnv{
		loaderRepo: &fakeLoaderRepo{rows: make(map[string][]loader.Row)},
		reconciler: &fakeReconciler{rep: &reconcile.Report{TotalChecked: 3, TotalUpdated: 2, MatchedRecords: 2}},
		roster: &fakeRosterRepo{
			mitras: map[string]*domain.Mitra{
				mitraA: {ID: mitraA, FullName: "Budi Santoso", PhoneNumber: "0811", Status: "Active"},
				mitraB: {ID: mitraB, FullName: "Siti Aminah", PhoneNumber: "0812", Status: "New"},
			},
			counts: map[string]int{"Active": 3, "New": 1, "Legacy": 9},
		},
		shipments: &fakeShipmentRepo{shipments: map[string]*domain.Shipment{
			shipID: {ID: shipID, OrderCode: "SHP-1", MitraName: "Budi Santoso"},
		}},
		records: &fakeRecordsRepo{counts: map[domain.Dataset]int{
			domain.DatasetOrders:       4,
			domain.DatasetMeasurements: 0,
		}},
		tasks: &fakeTaskRepo{tasks: []domain.Task{
			{User: "Rina", Project: "Sayurbox", City: "Jakarta", FinalStatus: "Eligible", ReplyRecord: "Invited"},
			{User: "Rina", Project: "Sayurbox", City: "Bandung", FinalStatus: "Not Eligible"},
			{User: "Dewi", Project: "Lazada", City: "Jakarta", FinalStatus: "Eligible"},
		}},
		archive: archive,
	}

	cohorts := cohort.NewEngine(&fakeCohortRepo{events: []cohort.Event{
		{EntityName: "Budi", DeliveryDate: "05/01/2024", Week: "W1"},
		{EntityName: "Siti", DeliveryDate: "06/01/2024", Week: "W1"},
		{EntityName: "Budi", DeliveryDate: "03/02/2024", Week: "W1"},
	}})

	h := NewHandlers(Deps{
		Loader:     loader.NewService(env.loaderRepo, sessions),
		Reconciler: env.reconciler,
		Cohorts:    cohorts,
		Roster:     roster.NewService(env.roster),
		Shipments:  shipment.NewService(env.shipments),
		Records:    records.NewService(env.records, sessions),
		Tasks:      tasks.NewService(env.tasks),
		Archive:    archive,
		MaxTimeout: time.Minute,
	})
	h.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }
	env.router = SetupRoutes(h, config.ServerConfig{})
	return env
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Warning json.RawMessage `json:"warning"`
	Error   *struct {
		Code    string          `json:"code"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func do(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

func TestHealthCheck(t *testing.T) {
	env := setupTestEnv(t)
	rec, _ := do(t, env.router, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestHealthChecker_NoDependencies(t *testing.T) {
	hc := NewHealthChecker(nil, nil, nil)
	rec := httptest.NewRecorder()
	hc.HandleReadiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ready":true`)
}

func TestHealthChecker_ArchiveReachable(t *testing.T) {
	archive, err := storage.NewLocalArchive(t.TempDir())
	require.NoError(t, err)
	hc := NewHealthChecker(nil, nil, archive)
	checks := hc.runAllChecks(context.Background())
	assert.Equal(t, "up", checks["archive"].Status)
	assert.Equal(t, "healthy", determineOverallStatus(checks))
}

func TestHealthChecker_DatabaseDownIsUnhealthy(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	hc := NewHealthChecker(db, nil, nil)
	rec := httptest.NewRecorder()
	hc.HandleReadiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"unhealthy"`)
}

func TestDetermineOverallStatus(t *testing.T) {
	assert.Equal(t, "degraded", determineOverallStatus(map[string]ComponentCheck{
		"database": {Status: "up"},
		"redis":    {Status: "down", Message: "check failed: timeout"},
	}))
	assert.Equal(t, "healthy", determineOverallStatus(map[string]ComponentCheck{
		"database": {Status: "down", Message: notConfigured},
		"redis":    {Status: "down", Message: notConfigured},
	}))
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTestEnv(t)
	do(t, env.router, httptest.NewRequest(http.MethodGet, "/health", nil))
	rec, _ := do(t, env.router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "courier_http_requests_total")
}

// ---------------------------------------------------------------------------
// Uploads
// ---------------------------------------------------------------------------

func TestUpload_AppendIssuesSessionToken(t *testing.T) {
	env := setupTestEnv(t)
	rec, body := do(t, env.router, jsonRequest(http.MethodPost, "/api/orders/upload",
		`[{"order_code":"A1","client_name":"Acme"},{"order_code":"A2"}]`))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, body.Success)
	assert.NotEmpty(t, rec.Header().Get(HeaderUploadSession))
	assert.Empty(t, body.Warning)

	var res loader.LoadResult
	require.NoError(t, json.Unmarshal(body.Data, &res))
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, domain.ModeAppend, res.Mode)
	assert.Empty(t, env.loaderRepo.cleared)
}

func TestUpload_ReplaceClearsOncePerSession(t *testing.T) {
	env := setupTestEnv(t)

	req := jsonRequest(http.MethodPost, "/api/orders/upload", `{"records":[{"order_code":"A1"}]}`)
	req.Header.Set(HeaderReplaceData, "true")
	rec, _ := do(t, env.router, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	token := rec.Header().Get(HeaderUploadSession)

	req = jsonRequest(http.MethodPost, "/api/orders/upload", `[{"order_code":"A2"}]`)
	req.Header.Set(HeaderReplaceData, "true")
	req.Header.Set(HeaderUploadSession, token)
	rec, _ = do(t, env.router, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, []string{"orders"}, env.loaderRepo.cleared)
	assert.Len(t, env.loaderRepo.rows["orders"], 2)
}

func TestUpload_DuplicateWarning(t *testing.T) {
	env := setupTestEnv(t)
	env.loaderRepo.existing = []string{"A1"}

	rec, body := do(t, env.router, jsonRequest(http.MethodPost, "/api/orders/upload", `[{"order_code":"A1"}]`))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotEmpty(t, body.Warning)

	var w loader.WarningBlock
	require.NoError(t, json.Unmarshal(body.Warning, &w))
	assert.Equal(t, 1, w.DuplicateCount)
}

func TestUpload_ValidationError(t *testing.T) {
	env := setupTestEnv(t)

	rec, body := do(t, env.router, jsonRequest(http.MethodPost, "/api/orders/upload", `[{"client_name":"Acme"}]`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, body.Error)
	assert.Equal(t, "validation_error", body.Error.Code)
	assert.Contains(t, string(body.Error.Details), "order_code")

	rec, _ = do(t, env.router, jsonRequest(http.MethodPost, "/api/orders/upload", `[]`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, env.router, jsonRequest(http.MethodPost, "/api/orders/upload", `{not json`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpload_UnknownSession(t *testing.T) {
	env := setupTestEnv(t)
	req := jsonRequest(http.MethodPost, "/api/orders/upload", `[{"order_code":"A1"}]`)
	req.Header.Set(HeaderUploadSession, "missing-token")
	rec, _ := do(t, env.router, req)
	assert.GreaterOrEqual(t, rec.Code, 400)
	assert.Less(t, rec.Code, 500)
}

func TestUpload_InvalidTimeoutHeader(t *testing.T) {
	env := setupTestEnv(t)
	req := jsonRequest(http.MethodPost, "/api/orders/upload", `[{"order_code":"A1"}]`)
	req.Header.Set(HeaderRequestTimeout, "soon")
	rec, body := do(t, env.router, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, string(body.Error.Details), HeaderRequestTimeout)
}

func TestResetSessions(t *testing.T) {
	env := setupTestEnv(t)
	rec, _ := do(t, env.router, jsonRequest(http.MethodPost, "/api/orders/upload", `[{"order_code":"A1"}]`))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, body := do(t, env.router, httptest.NewRequest(http.MethodPost, "/api/orders/reset", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(body.Data), `"sessions_reset":1`)
}

func TestUploadPhoneXLSX(t *testing.T) {
	env := setupTestEnv(t)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Phone", "Message"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"08123", "hello"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"08124", "bye"}))
	xlsx, err := f.WriteToBuffer()
	require.NoError(t, err)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "phones.xlsx")
	require.NoError(t, err)
	_, err = part.Write(xlsx.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/phone-messages/upload-xlsx", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec, _ := do(t, env.router, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"phone_messages"}, env.loaderRepo.cleared)
	assert.Len(t, env.loaderRepo.rows["phone_messages"], 2)
}

func TestUploadPhoneXLSX_MissingFile(t *testing.T) {
	env := setupTestEnv(t)
	rec, _ := do(t, env.router, jsonRequest(http.MethodPost, "/api/phone-messages/upload-xlsx", `{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ---------------------------------------------------------------------------
// Reconciliation
// ---------------------------------------------------------------------------

func TestReconcile(t *testing.T) {
	env := setupTestEnv(t)
	rec, body := do(t, env.router, httptest.NewRequest(http.MethodPost, "/api/reconcile", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var rep reconcile.Report
	require.NoError(t, json.Unmarshal(body.Data, &rep))
	assert.Equal(t, 2, rep.TotalUpdated)
	assert.Empty(t, body.Warning)
}

func TestReconcile_PartialCarriesWarning(t *testing.T) {
	env := setupTestEnv(t)
	env.reconciler.rep = &reconcile.Report{TotalChecked: 1, Partial: true}

	rec, body := do(t, env.router, httptest.NewRequest(http.MethodPost, "/api/reconcile", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(body.Warning), `"partial":true`)
}

func TestReconcile_Busy(t *testing.T) {
	env := setupTestEnv(t)
	env.reconciler.err = apperr.Conflict("a reconciliation run is already in progress", reconcile.ErrAlreadyRunning)

	rec, body := do(t, env.router, httptest.NewRequest(http.MethodPost, "/api/reconcile", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", body.Error.Code)
}

func TestReconcile_InfrastructureErrorIsSanitized(t *testing.T) {
	env := setupTestEnv(t)
	env.reconciler.err = errors.New("pq: password authentication failed for user courier")

	rec, body := do(t, env.router, httptest.NewRequest(http.MethodPost, "/api/reconcile", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, body.Message, "password")
}

func TestReconcileReport_ArchivesWorkbook(t *testing.T) {
	env := setupTestEnv(t)
	rec, _ := do(t, env.router, httptest.NewRequest(http.MethodPost, "/api/reports/reconcile.xlsx", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	key := rec.Header().Get(HeaderReportKey)
	assert.Equal(t, "reconcile/2024/03/reconcile-20240301T100000Z.xlsx", key)

	stored, err := env.archive.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, rec.Body.Bytes(), stored)

	rec, body := do(t, env.router, httptest.NewRequest(http.MethodGet, "/api/reports?prefix=reconcile/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(body.Data), key)

	rec, _ = do(t, env.router, httptest.NewRequest(http.MethodGet, "/api/reports/archive/"+key, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, stored, rec.Body.Bytes())
}

func TestDownloadReport_NotFound(t *testing.T) {
	env := setupTestEnv(t)
	rec, _ := do(t, env.router, httptest.NewRequest(http.MethodGet, "/api/reports/archive/reconcile/none.xlsx", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ---------------------------------------------------------------------------
// Cohorts
// ---------------------------------------------------------------------------

func TestCohortStats_Monthly(t *testing.T) {
	env := setupTestEnv(t)
	rec, body := do(t, env.router, httptest.NewRequest(http.MethodGet, "/api/cohorts/monthly", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats []cohort.PeriodStats
	require.NoError(t, json.Unmarshal(body.Data, &stats))
	require.Len(t, stats, 2)
	assert.Equal(t, 2, stats[0].ActiveCount)
	assert.Equal(t, 1, stats[1].ActiveCount)
	assert.Equal(t, 1, stats[1].InactiveCount)
}

func TestCohortActive_RequiresPeriod(t *testing.T) {
	env := setupTestEnv(t)
	rec, body := do(t, env.router, httptest.NewRequest(http.MethodGet, "/api/cohorts/active?year=2024", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, string(body.Error.Details), "month")
}

func TestCohortInactive(t *testing.T) {
	env := setupTestEnv(t)
	rec, body := do(t, env.router, httptest.NewRequest(http.MethodGet, "/api/cohorts/inactive?month=February&year=2024", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var rep cohort.DetailReport
	require.NoError(t, json.Unmarshal(body.Data, &rep))
	require.Len(t, rep.Rows, 1)
	assert.Equal(t, "Siti", rep.Rows[0].MitraName)
}

func TestCohortReport(t *testing.T) {
	env := setupTestEnv(t)
	rec, _ := do(t, env.router, httptest.NewRequest(http.MethodGet, "/api/reports/cohorts/weekly.xlsx", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get(HeaderReportKey), "cohort-weekly/"))

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Cohorts")

	rec, _ = do(t, env.router, httptest.NewRequest(http.MethodGet, "/api/reports/cohorts/yearly.xlsx", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ---------------------------------------------------------------------------
// Roster
// ---------------------------------------------------------------------------

func TestListMitras(t *testing.T) {
	env := setupTestEnv(t)
	rec, body := do(t, env.router, httptest.NewRequest(http.MethodGet, "/api/mitras?search=budi&limit=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var page struct {
		Items      []domain.Mitra `json:"items"`
		Pagination PaginationMeta `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, mitraA, page.Items[0].ID)
	assert.Equal(t, 10, page.Pagination.Limit)
	assert.Equal(t, 1, page.Pagination.Total)
}

func TestListMitras_BadSort(t *testing.T) {
	env := setupTestEnv(t)
	rec, _ := do(t, env.router, httptest.NewRequest(http.MethodGet, "/api/mitras?sortBy=password", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMitraDashboard(t *testing.T) {
	env := setupTestEnv(t)
	rec, body := do(t, env.router, httptest.NewRequest(http.MethodGet, "/api/mitras/dashboard", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var d roster.Dashboard
	require.NoError(t, json.Unmarshal(body.Data, &d))
	assert.Equal(t, 4, d.Total)
	require.Len(t, d.Statuses, len(domain.DashboardStatuses))
	assert.Equal(t, 75.0, d.Statuses[0].Percentage)

	rec, _ = do(t, env.router, httptest.NewRequest(http.MethodGet, "/api/mitras/dashboard?from=not-a-date", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateMitra(t *testing.T) {
	env := setupTestEnv(t)

	rec, body := do(t, env.router, jsonRequest(http.MethodPut, "/api/mitras/"+mitraA, `{"full_name":"Budi S."}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, string(body.Data), "Budi S.")

	rec, _ = do(t, env.router, jsonRequest(http.MethodPut, "/api/mitras/"+mitraA, `{"phone_number":"0812"}`))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = do(t, env.router, jsonRequest(http.MethodPut, "/api/mitras/44444444-4444-4444-4444-444444444444", `{"city":"Bandung"}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, env.router, jsonRequest(http.MethodPut, "/api/mitras/"+mitraA, `{"full_name":""}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteMitra(t *testing.T) {
	env := setupTestEnv(t)
	rec, _ := do(t, env.router, httptest.NewRequest(http.MethodDelete, "/api/mitras/"+mitraB, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, env.roster.mitras, mitraB)

	rec, _ = do(t, env.router, httptest.NewRequest(http.MethodDelete, "/api/mitras/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBulkDeleteMitras(t *testing.T) {
	env := setupTestEnv(t)
	rec, body := do(t, env.router, jsonRequest(http.MethodPost, "/api/mitras/bulk-delete",
		`{"ids":["`+mitraA+`","`+mitraB+`"]}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, string(body.Data), `"deleted":2`)

	rec, body = do(t, env.router, jsonRequest(http.MethodPost, "/api/mitras/bulk-delete", `{"ids":[]}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, string(body.Error.Details), "ids")
}

// ---------------------------------------------------------------------------
// Shipments and plain datasets
// ---------------------------------------------------------------------------

func TestListShipments_PassesFilters(t *testing.T) {
	env := setupTestEnv(t)
	rec, _ := do(t, env.router, httptest.NewRequest(http.MethodGet, "/api/shipments?hub=North&week=W2&page=2&limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "North", env.shipments.lastList.Hub)
	assert.Equal(t, "W2", env.shipments.lastList.Week)
	assert.Equal(t, 5, env.shipments.lastList.Offset)
}

func TestShipmentStatsAndFilters(t *testing.T) {
	env := setupTestEnv(t)
	rec, body := do(t, env.router, httptest.NewRequest(http.MethodGet, "/api/shipments/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(body.Data), `"total":1`)

	rec, _ = do(t, env.router, httptest.NewRequest(http.MethodGet, "/api/shipments/filters", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteShipment(t *testing.T) {
	env := setupTestEnv(t)
	rec, _ := do(t, env.router, httptest.NewRequest(http.MethodDelete, "/api/shipments/"+shipID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, env.router, httptest.NewRequest(http.MethodDelete, "/api/shipments/"+shipID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBulkDeleteShipments(t *testing.T) {
	env := setupTestEnv(t)
	rec, body := do(t, env.router, jsonRequest(http.MethodPost, "/api/shipments/bulk-delete",
		`{"ids":["`+shipID+`","55555555-5555-5555-5555-555555555555"]}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, string(body.Data), `"requested":2`)
	assert.Contains(t, string(body.Data), `"deleted":1`)
	assert.Empty(t, env.shipments.shipments)

	rec, _ = do(t, env.router, jsonRequest(http.MethodPost, "/api/shipments/bulk-delete", `{"ids":["nope"]}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ---------------------------------------------------------------------------
// Task analytics
// ---------------------------------------------------------------------------

func TestTaskPerformance(t *testing.T) {
	env := setupTestEnv(t)
	rec, body := do(t, env.router, httptest.NewRequest(http.MethodGet,
		"/api/tasks/analytics?startDate=2024-03-01&endDate=2024-03-31&users=Rina,Dewi&users=Agus", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var p tasks.Performance
	require.NoError(t, json.Unmarshal(body.Data, &p))
	assert.Equal(t, 2, p.TotalUsers)
	assert.Equal(t, "Rina", p.Users[0].UserName)
	assert.Equal(t, 50.0, p.Users[0].SuccessRate)
	assert.Equal(t, 2, p.Summary.Eligible)

	assert.Equal(t, []string{"Rina", "Dewi", "Agus"}, env.tasks.last.Users)
	require.NotNil(t, env.tasks.last.To)
	assert.Equal(t, time.Date(2024, 3, 31, 23, 59, 59, 999999999, time.UTC), env.tasks.last.To.UTC())

	rec, _ = do(t, env.router, httptest.NewRequest(http.MethodGet, "/api/tasks/analytics?startDate=soon", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaskUserPerformance(t *testing.T) {
	env := setupTestEnv(t)
	rec, body := do(t, env.router, httptest.NewRequest(http.MethodGet, "/api/tasks/analytics/users/Rina", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"Rina"}, env.tasks.last.Users)

	var u tasks.UserPerformance
	require.NoError(t, json.Unmarshal(body.Data, &u))
	assert.Equal(t, "Rina", u.UserName)
}

func TestTaskSummary(t *testing.T) {
	env := setupTestEnv(t)
	rec, body := do(t, env.router, httptest.NewRequest(http.MethodGet, "/api/tasks/analytics/summary?groupBy=city", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out struct {
		GroupBy string                      `json:"groupBy"`
		Groups  map[string]tasks.GroupCount `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &out))
	assert.Equal(t, "city", out.GroupBy)
	assert.Equal(t, tasks.GroupCount{Count: 2, Eligible: 2}, out.Groups["Jakarta"])

	rec, _ = do(t, env.router, httptest.NewRequest(http.MethodGet, "/api/tasks/analytics/summary?groupBy=hub", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaskReport(t *testing.T) {
	env := setupTestEnv(t)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/tasks.xlsx", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, report.ContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, "tasks/2024/03/tasks-20240301T100000Z.xlsx", rec.Header().Get(HeaderReportKey))

	wb, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer wb.Close()
	assert.Contains(t, wb.GetSheetList(), "Users")
}

func TestClearTasks(t *testing.T) {
	env := setupTestEnv(t)
	rec, _ := do(t, env.router, httptest.NewRequest(http.MethodDelete, "/api/tasks", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []domain.Dataset{domain.DatasetTasks}, env.records.deleted)
}

func TestMeasurementsInfo(t *testing.T) {
	env := setupTestEnv(t)
	rec, body := do(t, env.router, httptest.NewRequest(http.MethodGet, "/api/measurements/info", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var info records.ReconcileInfo
	require.NoError(t, json.Unmarshal(body.Data, &info))
	assert.Equal(t, 4, info.Orders)
	assert.False(t, info.Ready)
}

func TestClearOrders(t *testing.T) {
	env := setupTestEnv(t)
	rec, body := do(t, env.router, httptest.NewRequest(http.MethodDelete, "/api/orders", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []domain.Dataset{domain.DatasetOrders}, env.records.deleted)
	assert.Contains(t, string(body.Data), `"deleted":4`)
}

func TestListEndpointsReturnEmptyPages(t *testing.T) {
	env := setupTestEnv(t)
	for _, target := range []string{"/api/orders", "/api/measurements?hub=x", "/api/phone-messages"} {
		rec, body := do(t, env.router, httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusOK, rec.Code, target)
		assert.Contains(t, string(body.Data), `"items":[]`, target)
	}
}

func TestUnknownRoute(t *testing.T) {
	env := setupTestEnv(t)
	rec, body := do(t, env.router, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", body.Error.Code)
}
