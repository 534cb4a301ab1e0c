package roster

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/ignite/courier-ops/internal/apperr"
	"github.com/ignite/courier-ops/internal/datanorm"
	"github.com/ignite/courier-ops/internal/domain"
	"github.com/ignite/courier-ops/internal/pkg/logger"
)

// MaxListLimit caps one roster page.
const MaxListLimit = 5000

// sortColumns maps accepted sortBy values to columns.
var sortColumns = map[string]string{
	"":              "created_at",
	"createdAt":     "created_at",
	"created_at":    "created_at",
	"fullName":      "full_name",
	"full_name":     "full_name",
	"phoneNumber":   "phone_number",
	"phone_number":  "phone_number",
	"status":        "status",
	"mitraStatus":   "status",
	"city":          "city",
	"registeredAt":  "registered_at",
	"registered_at": "registered_at",
}

// Service implements roster business logic. It is safe for concurrent use.
type Service struct {
	repo Repository
}

// NewService creates a roster service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListInput is the raw list query.
type ListInput struct {
	Search    string
	SortBy    string
	SortOrder string
	Limit     int
	Offset    int
}

// List returns one page of mitras. Search matches name, phone, city and
// status case-insensitively. The default order is newest first.
func (s *Service) List(ctx context.Context, in ListInput) ([]domain.Mitra, int, error) {
	col, ok := sortColumns[in.SortBy]
	if !ok {
		return nil, 0, apperr.Validation("unsupported sortBy", []apperr.FieldError{{Field: "sortBy", Issue: "unsupported column " + in.SortBy}})
	}
	limit := in.Limit
	if limit < 1 || limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := in.Offset
	if offset < 0 {
		offset = 0
	}

	rows, total, err := s.repo.List(ctx, ListFilter{
		Search:   strings.TrimSpace(in.Search),
		SortBy:   col,
		SortDesc: !strings.EqualFold(in.SortOrder, "asc"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, 0, apperr.Infrastructure("storage error while listing mitras", err)
	}
	return rows, total, nil
}

// Dashboard is the roster status histogram.
type Dashboard struct {
	Total    int                  `json:"total"`
	Statuses []domain.StatusCount `json:"statuses"`
	Counts   map[string]int       `json:"counts"`
}

// Dashboard counts mitras per dashboard status. Statuses outside the fixed
// list are not counted in the total. Percentages have two decimals.
func (s *Service) Dashboard(ctx context.Context, f DashboardFilter) (*Dashboard, error) {
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, apperr.Validation("invalid date range", []apperr.FieldError{{Field: "to", Issue: "must not be before from"}})
	}
	counts, err := s.repo.CountByStatus(ctx, f)
	if err != nil {
		return nil, apperr.Infrastructure("storage error while counting mitras", err)
	}

	d := &Dashboard{Counts: make(map[string]int, len(domain.DashboardStatuses))}
	for _, st := range domain.DashboardStatuses {
		n := counts[string(st)]
		d.Counts[string(st)] = n
		d.Total += n
	}
	for _, st := range domain.DashboardStatuses {
		n := d.Counts[string(st)]
		var pct float64
		if d.Total > 0 {
			pct = math.Round(float64(n)/float64(d.Total)*10000) / 100
		}
		d.Statuses = append(d.Statuses, domain.StatusCount{Status: string(st), Count: n, Percentage: pct})
	}
	return d, nil
}

// Update edits one mitra. A changed phone number that another mitra
// already uses is a conflict.
func (s *Service) Update(ctx context.Context, id string, u domain.MitraUpdate) (*domain.Mitra, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "updating mitra")
	}

	fields := UpdateFields{FullName: u.FullName, Status: u.Status, City: u.City}
	if u.PhoneNumber != nil {
		phone := strings.TrimSpace(*u.PhoneNumber)
		if !strings.EqualFold(phone, existing.PhoneNumber) {
			taken, err := s.repo.PhoneTaken(ctx, phone, id)
			if err != nil {
				return nil, apperr.Infrastructure("storage error while updating mitra", err)
			}
			if taken {
				return nil, &apperr.Error{
					Kind:    apperr.KindConflict,
					Message: "duplicate data found in field: phone_number",
					Details: map[string]any{"duplicate_fields": []string{"phone_number"}},
					Err:     ErrDuplicatePhone,
				}
			}
		}
		fields.PhoneNumber = &phone
	}
	if u.RegisteredAt != nil {
		raw := strings.TrimSpace(*u.RegisteredAt)
		fields.RegisteredAtRaw = &raw
		if t, ok := datanorm.ParseDate(raw); ok {
			fields.RegisteredAt = &t
		}
	}

	m, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		return nil, mapRepoError(err, "updating mitra")
	}
	logger.Info("mitra updated", "id", id, "phone", m.PhoneNumber)
	return m, nil
}

// Delete removes one mitra and returns the deleted row.
func (s *Service) Delete(ctx context.Context, id string) (*domain.Mitra, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	m, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "deleting mitra")
	}
	logger.Info("mitra deleted", "id", id)
	return m, nil
}

// DeleteMany removes every listed mitra and returns how many were deleted.
func (s *Service) DeleteMany(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, apperr.Validation("ids must be a non-empty array", nil)
	}
	var issues []apperr.FieldError
	for i, id := range ids {
		if checkID(id) != nil {
			issues = append(issues, apperr.FieldError{Row: i + 1, Field: "ids", Issue: "invalid id"})
		}
	}
	if len(issues) > 0 {
		return 0, apperr.Validation("invalid mitra ids", issues)
	}

	n, err := s.repo.DeleteMany(ctx, ids)
	if err != nil {
		return 0, apperr.Infrastructure("storage error while deleting mitras", err)
	}
	logger.Info("mitras bulk deleted", "requested", len(ids), "deleted", n)
	return n, nil
}

func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return &apperr.Error{Kind: apperr.KindValidation, Message: "invalid mitra id", Err: ErrInvalidID}
	}
	return nil
}

func mapRepoError(err error, op string) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return apperr.NotFound("mitra not found", err)
	case errors.Is(err, ErrDuplicatePhone):
		return &apperr.Error{
			Kind:    apperr.KindConflict,
			Message: "duplicate data found in field: phone_number",
			Details: map[string]any{"duplicate_fields": []string{"phone_number"}},
			Err:     err,
		}
	}
	return apperr.Infrastructure("storage error while "+op, fmt.Errorf("%s: %w", op, err))
}
