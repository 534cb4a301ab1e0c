package records

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ignite/courier-ops/internal/apperr"
	"github.com/ignite/courier-ops/internal/domain"
	"github.com/ignite/courier-ops/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRepo is an in-memory repository for testing.
type mockRepo struct {
	mu       sync.RWMutex
	counts   map[domain.Dataset]int
	lastOrd  OrderFilter
	lastMeas MeasurementFilter
	err      error
}

func newMockRepo() *mockRepo {
	return &mockRepo{counts: make(map[domain.Dataset]int)}
}

func (m *mockRepo) ListOrders(_ context.Context, f OrderFilter) ([]domain.Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastOrd = f
	return []domain.Order{{OrderCode: "A1"}}, m.counts[domain.DatasetOrders], m.err
}

func (m *mockRepo) OrderStats(context.Context) (*OrderStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := m.counts[domain.DatasetOrders]
	return &OrderStats{Total: n, WithoutCharges: n}, m.err
}

func (m *mockRepo) ListMeasurements(_ context.Context, f MeasurementFilter) ([]domain.Measurement, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastMeas = f
	return nil, 0, m.err
}

func (m *mockRepo) ListPhoneMessages(_ context.Context, limit, offset int) ([]domain.PhoneMessage, int, error) {
	return nil, 0, m.err
}

func (m *mockRepo) Count(_ context.Context, ds domain.Dataset) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counts[ds], m.err
}

func (m *mockRepo) DeleteAll(_ context.Context, ds domain.Dataset) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.counts[ds]
	m.counts[ds] = 0
	return n, m.err
}

func TestListOrders_NormalizesFilter(t *testing.T) {
	repo := newMockRepo()
	repo.counts[domain.DatasetOrders] = 1
	rows, total, err := NewService(repo, nil).ListOrders(context.Background(), OrderFilter{Search: " A1 ", Limit: 20000})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "A1", repo.lastOrd.Search)
	assert.Equal(t, MaxListLimit, repo.lastOrd.Limit)
}

func TestListMeasurements_TrimsFilters(t *testing.T) {
	repo := newMockRepo()
	_, _, err := NewService(repo, nil).ListMeasurements(context.Background(), MeasurementFilter{Hub: " jkt ", Driver: "budi", Limit: 50, Offset: 100})
	require.NoError(t, err)
	assert.Equal(t, MeasurementFilter{Hub: "jkt", Driver: "budi", Limit: 50, Offset: 100}, repo.lastMeas)
}

func TestInfo(t *testing.T) {
	repo := newMockRepo()
	repo.counts[domain.DatasetOrders] = 3
	info, err := NewService(repo, nil).Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &ReconcileInfo{Orders: 3}, info)

	repo.counts[domain.DatasetMeasurements] = 2
	info, err = NewService(repo, nil).Info(context.Background())
	require.NoError(t, err)
	assert.True(t, info.Ready)
}

func TestClear_DropsSessions(t *testing.T) {
	repo := newMockRepo()
	repo.counts[domain.DatasetMeasurements] = 7
	sessions := session.NewMemoryStore(time.Hour)
	ctx := context.Background()
	_, err := sessions.Create(ctx, domain.DatasetMeasurements)
	require.NoError(t, err)
	_, err = sessions.Create(ctx, domain.DatasetOrders)
	require.NoError(t, err)

	res, err := NewService(repo, sessions).Clear(ctx, domain.DatasetMeasurements)
	require.NoError(t, err)
	assert.Equal(t, 7, res.Deleted)
	assert.Equal(t, 1, res.SessionsCleared)

	_, err = NewService(repo, nil).Clear(ctx, domain.Dataset("bogus"))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestErrorsAreInfrastructure(t *testing.T) {
	repo := newMockRepo()
	repo.err = errors.New("db down")
	svc := NewService(repo, nil)

	_, err := svc.Info(context.Background())
	assert.Equal(t, apperr.KindInfrastructure, apperr.KindOf(err))
	_, err = svc.Clear(context.Background(), domain.DatasetOrders)
	assert.Equal(t, apperr.KindInfrastructure, apperr.KindOf(err))
	_, _, err = svc.ListPhoneMessages(context.Background(), 10, 0)
	assert.Equal(t, apperr.KindInfrastructure, apperr.KindOf(err))
}
