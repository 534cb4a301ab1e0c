package shipment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/ignite/courier-ops/internal/apperr"
	"github.com/ignite/courier-ops/internal/datanorm"
	"github.com/ignite/courier-ops/internal/domain"
	"github.com/ignite/courier-ops/internal/pkg/logger"
)

// MaxListLimit caps one shipment page.
const MaxListLimit = 10000

// Service implements shipment business logic. It is safe for concurrent use.
type Service struct {
	repo Repository
}

// NewService creates a shipment service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns one page of shipments.
func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.Shipment, int, error) {
	if f.Limit < 1 || f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	f.Search = strings.TrimSpace(f.Search)

	rows, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, 0, apperr.Infrastructure("storage error while listing shipments", err)
	}
	return rows, total, nil
}

// Stats returns the row count and distinct value counts.
func (s *Service) Stats(ctx context.Context) (*domain.ShipmentStats, error) {
	st, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, apperr.Infrastructure("storage error while computing shipment stats", err)
	}
	return st, nil
}

// Filters returns the distinct values usable as list filters.
func (s *Service) Filters(ctx context.Context) (*domain.ShipmentFilters, error) {
	f, err := s.repo.Filters(ctx)
	if err != nil {
		return nil, apperr.Infrastructure("storage error while loading shipment filters", err)
	}
	return f, nil
}

// Update edits one shipment. Empty strings are stored as "-", and a new
// delivery date also refreshes the derived month and year.
func (s *Service) Update(ctx context.Context, id string, u domain.ShipmentUpdate) (*domain.Shipment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, &apperr.Error{Kind: apperr.KindValidation, Message: "invalid shipment id", Err: ErrInvalidID}
	}

	for _, f := range []**string{&u.OrderCode, &u.ClientName, &u.ProjectName, &u.Hub, &u.MitraName, &u.DeliveryDate, &u.Weekly} {
		if *f != nil {
			v := datanorm.OrSentinel(strings.TrimSpace(**f))
			*f = &v
		}
	}

	fields := UpdateFields{ShipmentUpdate: u}
	if u.DeliveryDate != nil {
		var month, year int
		if d, ok := datanorm.ParseDeliveryDate(*u.DeliveryDate); ok {
			month, year = int(d.Month()), d.Year()
		}
		fields.DeliveryMonth, fields.DeliveryYear = &month, &year
	}

	sh, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("shipment not found", err)
		}
		return nil, apperr.Infrastructure("storage error while updating shipment", fmt.Errorf("update %s: %w", id, err))
	}
	logger.Info("shipment updated", "id", id)
	return sh, nil
}

// Delete removes one shipment.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return &apperr.Error{Kind: apperr.KindValidation, Message: "invalid shipment id", Err: ErrInvalidID}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFound("shipment not found", err)
		}
		return apperr.Infrastructure("storage error while deleting shipment", fmt.Errorf("delete %s: %w", id, err))
	}
	logger.Info("shipment deleted", "id", id)
	return nil
}

// DeleteMany removes every listed shipment and returns how many were
// deleted. Ids that no longer exist are not an error.
func (s *Service) DeleteMany(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, apperr.Validation("ids must be a non-empty array", nil)
	}
	var issues []apperr.FieldError
	for i, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			issues = append(issues, apperr.FieldError{Row: i + 1, Field: "ids", Issue: "invalid id"})
		}
	}
	if len(issues) > 0 {
		return 0, apperr.Validation("invalid shipment ids", issues)
	}

	n, err := s.repo.DeleteMany(ctx, ids)
	if err != nil {
		return 0, apperr.Infrastructure("storage error while deleting shipments", err)
	}
	logger.Info("shipments bulk deleted", "requested", len(ids), "deleted", n)
	return n, nil
}
