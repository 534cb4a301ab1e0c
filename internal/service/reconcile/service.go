package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ignite/courier-ops/internal/apperr"
	"github.com/ignite/courier-ops/internal/domain"
	"github.com/ignite/courier-ops/internal/pkg/distlock"
	"github.com/ignite/courier-ops/internal/pkg/logger"
)

// Report summarizes one reconciliation run. Key lists are capped at the
// display limit; counts are always exact.
type Report struct {
	TotalChecked            int       `json:"totalChecked"`
	TotalUpdated            int       `json:"totalUpdated"`
	MatchedRecords          int       `json:"matchedRecords"`
	UnmatchedPrimaryCount   int       `json:"unmatchedPrimaryCount"`
	UnmatchedReferenceCount int       `json:"unmatchedReferenceCount"`
	UnmatchedPrimaryKeys    []string  `json:"unmatchedPrimaryKeys"`
	UnmatchedReferenceKeys  []string  `json:"unmatchedReferenceKeys"`
	ReferenceRecords        int       `json:"referenceRecords"`
	Pages                   int       `json:"pages"`
	DurationMs              int64     `json:"durationMs"`
	Partial                 bool      `json:"partial"`
	StartedAt               time.Time `json:"startedAt"`
}

// Option customizes an Engine.
type Option func(*Engine)

// WithParams overrides the charge tier constants.
func WithParams(p Params) Option { return func(e *Engine) { e.params = p } }

// WithPageSize sets how many orders are read and updated per page.
func WithPageSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.pageSize = n
		}
	}
}

// WithDisplayLimit caps the unmatched key lists of a report.
func WithDisplayLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.displayLimit = n
		}
	}
}

// WithTransaction wraps each run in one transaction when the repository
// supports it.
func WithTransaction(enabled bool) Option { return func(e *Engine) { e.useTx = enabled } }

// WithLock guards runs with a distributed lock so that only one instance
// reconciles at a time.
func WithLock(l distlock.DistLock) Option { return func(e *Engine) { e.lock = l } }

// Engine implements the Reconciliation Engine. It is safe for concurrent
// use; with a lock configured, concurrent runs are rejected.
type Engine struct {
	repo         Repository
	params       Params
	pageSize     int
	displayLimit int
	useTx        bool
	lock         distlock.DistLock
	now          func() time.Time
}

// NewEngine creates an engine with page size 500 and display limit 50.
func NewEngine(repo Repository, opts ...Option) *Engine {
	e := &Engine{
		repo:         repo,
		params:       DefaultParams(),
		pageSize:     500,
		displayLimit: 50,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Params returns the charge tier constants in use.
func (e *Engine) Params() Params { return e.params }

// Charges computes the derived columns for one matched measurement.
func (e *Engine) Charges(ref Reference) domain.ChargeTier {
	w := e.params.Weight(ref.Weight)
	d := e.params.Distance(ref.DistanceKm)
	return domain.ChargeTier{
		WeightBand:          w.Band,
		RoundDownWeight:     w.RoundDown,
		RoundUpWeight:       w.RoundUp,
		WeightFraction:      w.Fraction,
		OverweightSurcharge: w.Surcharge,
		RoundDownDistance:   d.RoundDown,
		RoundUpDistance:     d.RoundUp,
	}
}

// run holds the state of one reconciliation pass.
type run struct {
	refs      map[string]Reference
	refOrder  []string
	processed map[string]struct{}
	report    *Report
}

// Reconcile matches every order against the measurement snapshot taken at
// the start of the run. When ctx expires between pages, the run stops and
// returns a partial report instead of an error.
func (e *Engine) Reconcile(ctx context.Context) (*Report, error) {
	start := e.now()

	if e.lock != nil {
		ok, err := e.lock.Acquire(ctx)
		if err != nil {
			return nil, apperr.Infrastructure("lock service unavailable", err)
		}
		if !ok {
			return nil, apperr.Conflict("a reconciliation run is already in progress", ErrAlreadyRunning)
		}
		defer func() {
			if err := e.lock.Release(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("releasing reconcile lock failed", "error", err)
			}
		}()
	}

	if err := e.checkPreconditions(ctx); err != nil {
		return nil, err
	}

	refs, err := e.repo.References(ctx)
	if err != nil {
		return nil, apperr.Infrastructure("storage error while loading measurements", fmt.Errorf("load references: %w", err))
	}

	r := &run{
		refs:      make(map[string]Reference, len(refs)),
		processed: make(map[string]struct{}),
		report: &Report{
			UnmatchedPrimaryKeys:   []string{},
			UnmatchedReferenceKeys: []string{},
			ReferenceRecords:       len(refs),
			StartedAt:              start.UTC(),
		},
	}
	for _, ref := range refs {
		if ref.OrderKey == "" {
			continue
		}
		if _, seen := r.refs[ref.OrderKey]; !seen {
			r.refOrder = append(r.refOrder, ref.OrderKey)
		}
		r.refs[ref.OrderKey] = ref
	}

	tx, canTx := e.repo.(Transactor)
	if e.useTx && canTx {
		err = tx.InTx(context.WithoutCancel(ctx), func(repo Repository) error {
			return e.pages(ctx, repo, r)
		})
	} else {
		err = e.pages(ctx, e.repo, r)
	}
	if err != nil {
		return nil, err
	}

	for _, key := range r.refOrder {
		if _, ok := r.processed[key]; ok {
			continue
		}
		r.report.UnmatchedReferenceCount++
		if len(r.report.UnmatchedReferenceKeys) < e.displayLimit {
			r.report.UnmatchedReferenceKeys = append(r.report.UnmatchedReferenceKeys, key)
		}
	}

	r.report.DurationMs = e.now().Sub(start).Milliseconds()
	logger.Info("reconciliation finished",
		"checked", r.report.TotalChecked,
		"matched", r.report.MatchedRecords,
		"updated", r.report.TotalUpdated,
		"unmatched_primary", r.report.UnmatchedPrimaryCount,
		"unmatched_reference", r.report.UnmatchedReferenceCount,
		"pages", r.report.Pages,
		"partial", r.report.Partial,
		"duration_ms", r.report.DurationMs,
	)
	return r.report, nil
}

func (e *Engine) checkPreconditions(ctx context.Context) error {
	primary, err := e.repo.CountPrimary(ctx)
	if err != nil {
		return apperr.Infrastructure("storage error while counting orders", err)
	}
	reference, err := e.repo.CountReference(ctx)
	if err != nil {
		return apperr.Infrastructure("storage error while counting measurements", err)
	}

	var empty []string
	if primary == 0 {
		empty = append(empty, "primary")
	}
	if reference == 0 {
		empty = append(empty, "reference")
	}
	switch len(empty) {
	case 0:
		return nil
	case 2:
		return &apperr.Error{
			Kind:    apperr.KindPreconditionFailed,
			Message: "both primary (orders) and reference (measurements) datasets are empty",
			Details: map[string]any{"empty": empty},
			Err:     ErrEmptyDataset,
		}
	}
	name := map[string]string{"primary": "orders", "reference": "measurements"}[empty[0]]
	return &apperr.Error{
		Kind:    apperr.KindPreconditionFailed,
		Message: fmt.Sprintf("%s (%s) dataset is empty", empty[0], name),
		Details: map[string]any{"empty": empty},
		Err:     ErrEmptyDataset,
	}
}

// pages walks the orders in keyset order. Each page's reads and its bulk
// update run on a context detached from cancellation, so a page that has
// started always finishes.
func (e *Engine) pages(ctx context.Context, repo Repository, r *run) error {
	pageCtx := context.WithoutCancel(ctx)
	afterID := ""
	for {
		if ctx.Err() != nil {
			r.report.Partial = true
			logger.Warn("reconciliation deadline reached", "pages_done", r.report.Pages)
			return nil
		}

		page, err := repo.PrimaryPage(pageCtx, afterID, e.pageSize)
		if err != nil {
			return apperr.Infrastructure("storage error while reading orders",
				fmt.Errorf("read page %d: %w", r.report.Pages+1, err))
		}
		if len(page) == 0 {
			return nil
		}

		updates := make([]ChargeUpdate, 0, len(page))
		for _, p := range page {
			r.report.TotalChecked++
			if p.OrderKey == "" {
				continue
			}
			r.processed[p.OrderKey] = struct{}{}

			ref, ok := r.refs[p.OrderKey]
			if !ok {
				r.report.UnmatchedPrimaryCount++
				if len(r.report.UnmatchedPrimaryKeys) < e.displayLimit {
					r.report.UnmatchedPrimaryKeys = append(r.report.UnmatchedPrimaryKeys, p.OrderKey)
				}
				continue
			}
			r.report.MatchedRecords++
			updates = append(updates, ChargeUpdate{ID: p.ID, Charges: e.Charges(ref)})
		}

		if len(updates) > 0 {
			n, err := repo.ApplyCharges(pageCtx, updates)
			if err != nil {
				return apperr.Infrastructure("storage error while updating orders",
					fmt.Errorf("apply page %d (%d updates): %w", r.report.Pages+1, len(updates), err))
			}
			r.report.TotalUpdated += n
		}

		r.report.Pages++
		afterID = page[len(page)-1].ID
		if len(page) < e.pageSize {
			return nil
		}
	}
}

// IsBusy reports whether err means another run holds the lock.
func IsBusy(err error) bool {
	return errors.Is(err, ErrAlreadyRunning)
}
