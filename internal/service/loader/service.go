package loader

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ignite/courier-ops/internal/apperr"
	"github.com/ignite/courier-ops/internal/datanorm"
	"github.com/ignite/courier-ops/internal/domain"
	"github.com/ignite/courier-ops/internal/pkg/logger"
	"github.com/ignite/courier-ops/internal/session"
)

// maxReported caps warning and failure lists in a result; counts stay exact.
const maxReported = 1000

// Warning kinds.
const (
	WarnDuplicateInPayload = "duplicate_in_payload"
	WarnExistsInStore      = "exists_in_store"
)

// Warning flags a record that was still attempted.
type Warning struct {
	Kind     string `json:"kind"`
	Row      int    `json:"row"`
	FirstRow int    `json:"first_row,omitempty"`
	Key      string `json:"key"`
}

// LoadRequest is one uploaded chunk.
type LoadRequest struct {
	Records      []any
	Mode         domain.LoadMode
	SessionToken string
}

// BatchReport is the per-batch breakdown of a load.
type BatchReport struct {
	Batch    int `json:"batch"`
	Size     int `json:"size"`
	Inserted int `json:"inserted"`
	Failed   int `json:"failed"`
}

// LoadResult summarizes one chunk.
type LoadResult struct {
	Dataset      domain.Dataset  `json:"dataset"`
	Mode         domain.LoadMode `json:"mode"`
	SessionToken string          `json:"session_token"`
	Replaced     bool            `json:"replaced"`
	Received     int             `json:"received"`
	Inserted     int             `json:"inserted"`
	Failed       int             `json:"failed"`
	Skipped      int             `json:"skipped"`
	Batches      []BatchReport   `json:"batches"`
	SessionTotal int             `json:"session_total"`
	DurationMs   int64           `json:"duration_ms"`
	Partial      bool            `json:"partial"`

	Warnings       []Warning    `json:"-"`
	WarningCount   int          `json:"-"`
	Failures       []RowFailure `json:"-"`
	DuplicateCount int          `json:"-"`
}

// WarningBlock is the sibling "warning" object of a successful upload.
type WarningBlock struct {
	Message        string       `json:"message"`
	DuplicateCount int          `json:"duplicate_count"`
	Duplicates     []Warning    `json:"duplicates,omitempty"`
	FailedCount    int          `json:"failed_count"`
	Failures       []RowFailure `json:"failures,omitempty"`
	Partial        bool         `json:"partial,omitempty"`
}

// Warning returns the warning block, or nil when the chunk loaded cleanly.
func (r *LoadResult) Warning() *WarningBlock {
	if r.WarningCount == 0 && r.Failed == 0 && !r.Partial {
		return nil
	}
	var parts []string
	if r.WarningCount > 0 {
		parts = append(parts, fmt.Sprintf("%d duplicate key(s) detected", r.WarningCount))
	}
	if r.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d record(s) were not inserted", r.Failed))
	}
	if r.Partial {
		parts = append(parts, fmt.Sprintf("deadline reached, %d record(s) not attempted", r.Skipped))
	}
	return &WarningBlock{
		Message:        strings.Join(parts, "; "),
		DuplicateCount: r.WarningCount,
		Duplicates:     r.Warnings,
		FailedCount:    r.Failed,
		Failures:       r.Failures,
		Partial:        r.Partial,
	}
}

// Option customizes a Service.
type Option func(*Service)

// WithBatchSize overrides a dataset's batch size.
func WithBatchSize(ds domain.Dataset, n int) Option {
	return func(s *Service) {
		if d, ok := s.datasets[ds]; ok && n > 0 {
			d.BatchSize = n
		}
	}
}

// Service implements the Batch Loader. It is safe for concurrent use.
type Service struct {
	repo     Repository
	sessions session.Store
	datasets map[domain.Dataset]*Dataset
	now      func() time.Time
}

// NewService creates a loader backed by the given repository and session store.
func NewService(repo Repository, sessions session.Store, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		sessions: sessions,
		datasets: DefaultDatasets(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dataset returns the definition of ds.
func (s *Service) Dataset(ds domain.Dataset) (*Dataset, error) {
	d, ok := s.datasets[ds]
	if !ok {
		return nil, apperr.NotFound(fmt.Sprintf("unknown dataset %q", ds), ErrUnknownDataset)
	}
	return d, nil
}

// Load validates and inserts one chunk. Validation problems are returned as
// a Validation error listing every bad row. Row-level insert failures and
// duplicate keys are reported in the result, not as errors.
func (s *Service) Load(ctx context.Context, ds domain.Dataset, req LoadRequest) (*LoadResult, error) {
	start := s.now()
	d, err := s.Dataset(ds)
	if err != nil {
		return nil, err
	}
	if req.Mode == "" {
		req.Mode = domain.ModeAppend
	}

	rows, err := d.prepare(req.Records)
	if err != nil {
		return nil, err
	}

	if ctx.Err() != nil {
		return nil, apperr.Timeout("deadline exceeded before upload started", ctx.Err())
	}

	sess, err := s.openSession(ctx, ds, req.SessionToken)
	if err != nil {
		return nil, err
	}

	result := &LoadResult{
		Dataset:      ds,
		Mode:         req.Mode,
		SessionToken: sess.Token,
		Received:     len(rows),
		Batches:      []BatchReport{},
	}

	if req.Mode == domain.ModeReplace && !sess.Initialized {
		if err := s.repo.Clear(ctx, d.Table); err != nil {
			return nil, apperr.Infrastructure("storage error while clearing dataset", fmt.Errorf("clear %s: %w", d.Table.Name, err))
		}
		if err := s.sessions.MarkInitialized(ctx, ds, sess.Token); err != nil {
			return nil, sessionError(err, sess.Token)
		}
		result.Replaced = true
		logger.Info("dataset cleared for replace upload", "dataset", ds, "session", sess.Token)
	}

	if err := s.collectWarnings(ctx, d, rows, result); err != nil {
		return nil, err
	}

	if err := s.insert(ctx, d, rows, result); err != nil {
		return nil, err
	}

	total, err := s.sessions.AddProcessed(context.WithoutCancel(ctx), ds, sess.Token, result.Inserted)
	if err != nil {
		return nil, sessionError(err, sess.Token)
	}
	result.SessionTotal = total
	result.DurationMs = s.now().Sub(start).Milliseconds()

	logger.Info("upload chunk loaded",
		"dataset", ds,
		"mode", req.Mode,
		"received", result.Received,
		"inserted", result.Inserted,
		"failed", result.Failed,
		"duplicates", result.WarningCount,
		"partial", result.Partial,
		"session_total", total,
	)
	return result, nil
}

// Reset clears the initialized flag of one session, or drops every session
// of the dataset when token is empty. It returns how many sessions were
// affected.
func (s *Service) Reset(ctx context.Context, ds domain.Dataset, token string) (int, error) {
	if _, err := s.Dataset(ds); err != nil {
		return 0, err
	}
	if token == "" {
		n, err := s.sessions.ResetAll(ctx, ds)
		if err != nil {
			return 0, apperr.Infrastructure("session store unavailable", err)
		}
		return n, nil
	}
	if err := s.sessions.Reset(ctx, ds, token); err != nil {
		return 0, sessionError(err, token)
	}
	return 1, nil
}

func (s *Service) openSession(ctx context.Context, ds domain.Dataset, token string) (*session.Session, error) {
	if token == "" {
		sess, err := s.sessions.Create(ctx, ds)
		if err != nil {
			return nil, apperr.Infrastructure("session store unavailable", err)
		}
		return sess, nil
	}
	sess, err := s.sessions.Get(ctx, ds, token)
	if err != nil {
		return nil, sessionError(err, token)
	}
	return sess, nil
}

func sessionError(err error, token string) error {
	if errors.Is(err, session.ErrNotFound) {
		return apperr.Validation("unknown or expired upload session", map[string]string{"session": token})
	}
	return apperr.Infrastructure("session store unavailable", err)
}

// prepare canonicalizes and validates every record, collecting all errors.
func (d *Dataset) prepare(records []any) ([]Row, error) {
	if len(records) == 0 {
		return nil, apperr.Validation(ErrEmptyPayload.Error(), nil)
	}

	var problems []apperr.FieldError
	rows := make([]Row, 0, len(records))
	for i, raw := range records {
		idx := i + 1
		obj, ok := raw.(map[string]any)
		if !ok {
			problems = append(problems, apperr.FieldError{Row: idx, Issue: "record must be an object"})
			continue
		}
		rec := d.canonicalize(obj)
		missing := false
		for _, f := range d.Required {
			if datanorm.ToString(rec[string(f)]) == "" {
				problems = append(problems, apperr.FieldError{Row: idx, Field: string(f), Issue: "required field is missing"})
				missing = true
			}
		}
		if missing {
			continue
		}
		row := Row{Index: idx, Values: d.build(rec)}
		if d.Table.KeyColumn != "" {
			row.Key = datanorm.ToString(rec[d.Table.KeyColumn])
		}
		rows = append(rows, row)
	}

	if len(problems) > 0 {
		return nil, apperr.Validation(fmt.Sprintf("%d validation error(s) in upload", len(problems)), problems)
	}
	return rows, nil
}

// canonicalize maps raw keys onto the dataset's fields. When several raw
// keys land on one field, a key already spelled as that field beats an
// alias; otherwise the first non-empty value in sorted key order is kept.
func (d *Dataset) canonicalize(obj map[string]any) map[string]any {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rec := make(map[string]any, len(obj))
	exact := make(map[string]bool, len(obj))
	for _, k := range keys {
		ck := datanorm.CanonicalKeyFor(k, d.Fields)
		// nil allowed set yields the plain snake_case spelling
		isExact := datanorm.CanonicalKeyFor(k, nil) == ck
		prev, seen := rec[ck]
		switch {
		case !seen:
		case exact[ck]:
			continue
		case isExact:
		case datanorm.ToString(prev) != "":
			continue
		}
		rec[ck] = obj[k]
		exact[ck] = isExact
	}
	return rec
}

func (d *Dataset) foldKey(k string) string {
	if d.Table.KeyFold {
		return strings.ToLower(k)
	}
	return k
}

// collectWarnings flags payload duplicates (every occurrence after the
// first) and keys that already exist in storage.
func (s *Service) collectWarnings(ctx context.Context, d *Dataset, rows []Row, result *LoadResult) error {
	if d.Table.KeyColumn == "" {
		return nil
	}

	firstSeen := make(map[string]int, len(rows))
	var keys []string
	for _, r := range rows {
		if r.Key == "" {
			continue
		}
		k := d.foldKey(r.Key)
		if first, ok := firstSeen[k]; ok {
			result.addWarning(Warning{Kind: WarnDuplicateInPayload, Row: r.Index, FirstRow: first, Key: r.Key})
			continue
		}
		firstSeen[k] = r.Index
		keys = append(keys, r.Key)
	}

	if len(keys) == 0 {
		return nil
	}
	existing, err := s.repo.ExistingKeys(ctx, d.Table, keys)
	if err != nil {
		return apperr.Infrastructure("storage error while checking existing keys", err)
	}
	if len(existing) == 0 {
		return nil
	}
	stored := make(map[string]bool, len(existing))
	for _, k := range existing {
		stored[d.foldKey(k)] = true
	}
	for _, r := range rows {
		k := d.foldKey(r.Key)
		if r.Key != "" && stored[k] && firstSeen[k] == r.Index {
			result.addWarning(Warning{Kind: WarnExistsInStore, Row: r.Index, Key: r.Key})
		}
	}
	return nil
}

func (r *LoadResult) addWarning(w Warning) {
	r.WarningCount++
	if w.Kind == WarnDuplicateInPayload {
		r.DuplicateCount++
	}
	if len(r.Warnings) < maxReported {
		r.Warnings = append(r.Warnings, w)
	}
}

// insert writes rows batch by batch. Once ctx is done no new batch starts;
// the batch in flight runs on a context detached from cancellation so it
// commits or rolls back as a whole.
func (s *Service) insert(ctx context.Context, d *Dataset, rows []Row, result *LoadResult) error {
	size := d.BatchSize
	if size <= 0 {
		size = 500
	}
	batchCtx := context.WithoutCancel(ctx)

	for start, n := 0, 1; start < len(rows); start, n = start+size, n+1 {
		if ctx.Err() != nil {
			result.Partial = true
			result.Skipped = len(rows) - start
			logger.Warn("upload deadline reached", "dataset", d.Name, "batch", n, "skipped", result.Skipped)
			return nil
		}
		end := min(start+size, len(rows))
		batch := rows[start:end]

		outcome, err := s.repo.InsertBatch(batchCtx, d.Table, batch)
		if err != nil {
			return apperr.Infrastructure(
				fmt.Sprintf("storage error while inserting batch %d", n),
				fmt.Errorf("insert %s batch %d (rows %d-%d): %w", d.Table.Name, n, batch[0].Index, batch[len(batch)-1].Index, err),
			)
		}

		failed := len(batch) - outcome.Inserted
		result.Inserted += outcome.Inserted
		result.Failed += failed
		for _, f := range outcome.Failures {
			if len(result.Failures) < maxReported {
				result.Failures = append(result.Failures, f)
			}
		}
		result.Batches = append(result.Batches, BatchReport{Batch: n, Size: len(batch), Inserted: outcome.Inserted, Failed: failed})

		if failed > 0 {
			logger.Warn("batch partially inserted", "dataset", d.Name, "batch", n, "inserted", outcome.Inserted, "failed", failed)
		}
	}
	return nil
}
