package records

import (
	"context"
	"fmt"
	"strings"

	"github.com/ignite/courier-ops/internal/apperr"
	"github.com/ignite/courier-ops/internal/domain"
	"github.com/ignite/courier-ops/internal/pkg/logger"
	"github.com/ignite/courier-ops/internal/session"
)

// MaxListLimit caps one page of any plain dataset.
const MaxListLimit = 10000

// Service implements the plain dataset operations. It is safe for
// concurrent use.
type Service struct {
	repo     Repository
	sessions session.Store
}

// NewService creates a records service. sessions may be nil, in which case
// clearing a dataset leaves upload sessions alone.
func NewService(repo Repository, sessions session.Store) *Service {
	return &Service{repo: repo, sessions: sessions}
}

func clamp(limit, offset int) (int, int) {
	if limit < 1 || limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// ListOrders returns one page of orders.
func (s *Service) ListOrders(ctx context.Context, f OrderFilter) ([]domain.Order, int, error) {
	f.Limit, f.Offset = clamp(f.Limit, f.Offset)
	f.Search = strings.TrimSpace(f.Search)
	rows, total, err := s.repo.ListOrders(ctx, f)
	if err != nil {
		return nil, 0, apperr.Infrastructure("storage error while listing orders", err)
	}
	return rows, total, nil
}

// OrderStats counts orders with and without derived charges.
func (s *Service) OrderStats(ctx context.Context) (*OrderStats, error) {
	st, err := s.repo.OrderStats(ctx)
	if err != nil {
		return nil, apperr.Infrastructure("storage error while counting orders", err)
	}
	return st, nil
}

// ListMeasurements returns one page of measurements.
func (s *Service) ListMeasurements(ctx context.Context, f MeasurementFilter) ([]domain.Measurement, int, error) {
	f.Limit, f.Offset = clamp(f.Limit, f.Offset)
	f.Hub, f.Driver = strings.TrimSpace(f.Hub), strings.TrimSpace(f.Driver)
	rows, total, err := s.repo.ListMeasurements(ctx, f)
	if err != nil {
		return nil, 0, apperr.Infrastructure("storage error while listing measurements", err)
	}
	return rows, total, nil
}

// ListPhoneMessages returns one page of phone messages.
func (s *Service) ListPhoneMessages(ctx context.Context, limit, offset int) ([]domain.PhoneMessage, int, error) {
	limit, offset = clamp(limit, offset)
	rows, total, err := s.repo.ListPhoneMessages(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperr.Infrastructure("storage error while listing phone messages", err)
	}
	return rows, total, nil
}

// ReconcileInfo reports whether both reconciliation inputs are present.
type ReconcileInfo struct {
	Orders       int  `json:"orders"`
	Measurements int  `json:"measurements"`
	Ready        bool `json:"ready"`
}

// Info counts both sides of the reconciliation.
func (s *Service) Info(ctx context.Context) (*ReconcileInfo, error) {
	orders, err := s.repo.Count(ctx, domain.DatasetOrders)
	if err != nil {
		return nil, apperr.Infrastructure("storage error while counting orders", err)
	}
	measurements, err := s.repo.Count(ctx, domain.DatasetMeasurements)
	if err != nil {
		return nil, apperr.Infrastructure("storage error while counting measurements", err)
	}
	return &ReconcileInfo{
		Orders:       orders,
		Measurements: measurements,
		Ready:        orders > 0 && measurements > 0,
	}, nil
}

// ClearResult reports a dataset wipe.
type ClearResult struct {
	Dataset         domain.Dataset `json:"dataset"`
	Deleted         int            `json:"deleted"`
	SessionsCleared int            `json:"sessions_cleared"`
}

// Clear empties a dataset and drops its upload sessions, so the next
// REPLACE upload starts fresh.
func (s *Service) Clear(ctx context.Context, ds domain.Dataset) (*ClearResult, error) {
	if !ds.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("unknown dataset %q", ds), nil)
	}
	n, err := s.repo.DeleteAll(ctx, ds)
	if err != nil {
		return nil, apperr.Infrastructure("storage error while clearing "+string(ds), err)
	}
	res := &ClearResult{Dataset: ds, Deleted: n}
	if s.sessions != nil {
		cleared, err := s.sessions.ResetAll(ctx, ds)
		if err != nil {
			logger.Warn("clearing upload sessions failed", "dataset", string(ds), "error", err)
		}
		res.SessionsCleared = cleared
	}
	logger.Info("dataset cleared", "dataset", string(ds), "deleted", n, "sessions", res.SessionsCleared)
	return res, nil
}
