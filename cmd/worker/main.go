package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/courier-ops/internal/app"
	"github.com/ignite/courier-ops/internal/config"
	"github.com/ignite/courier-ops/internal/pkg/logger"
	"github.com/ignite/courier-ops/internal/report"
	"github.com/ignite/courier-ops/internal/service/reconcile"
	"github.com/ignite/courier-ops/internal/storage"
)

// reconciler is the part of the engine the worker drives.
type reconciler interface {
	Reconcile(ctx context.Context) (*reconcile.Report, error)
}

// runOnce performs one reconciliation and archives its workbook. A run
// skipped because another instance holds the lock is not an error.
func runOnce(ctx context.Context, eng reconciler, archive storage.Archive, now time.Time, timeout time.Duration) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rep, err := eng.Reconcile(runCtx)
	if reconcile.IsBusy(err) {
		logger.Info("reconciliation skipped, another run holds the lock")
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reconcile: %w", err)
	}
	logger.Info("scheduled reconciliation finished",
		"checked", rep.TotalChecked,
		"updated", rep.TotalUpdated,
		"unmatched_primary", rep.UnmatchedPrimaryCount,
		"unmatched_reference", rep.UnmatchedReferenceCount,
		"partial", rep.Partial,
	)

	if archive == nil {
		return "", nil
	}
	f, err := report.ReconcileWorkbook(rep)
	if err != nil {
		return "", fmt.Errorf("build workbook: %w", err)
	}
	data, err := report.Bytes(f)
	if err != nil {
		return "", fmt.Errorf("build workbook: %w", err)
	}
	key := storage.ReportKey("reconcile", now)
	if err := archive.Put(ctx, key, report.ContentType, data); err != nil {
		return "", fmt.Errorf("archive %s: %w", key, err)
	}
	logger.Info("reconciliation report archived", "key", key)
	return key, nil
}

// loop runs a reconciliation every interval until ctx is cancelled.
func loop(ctx context.Context, interval time.Duration, run func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run(ctx)
		}
	}
}

func main() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.yaml"
	}
	cfg, err := config.LoadFromEnv(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(logger.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		RedactPII:  cfg.Logging.RedactPII == nil || *cfg.Logging.RedactPII,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	initCtx, initCancel := context.WithTimeout(ctx, 30*time.Second)
	a, err := app.New(initCtx, cfg)
	initCancel()
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	run := func(ctx context.Context) {
		if _, err := runOnce(ctx, a.Reconcile, a.Archive, time.Now(), cfg.Server.MaxTimeout()); err != nil {
			logger.Error("scheduled reconciliation failed", "error", err)
		}
	}

	interval := cfg.Reconcile.Interval()
	if interval <= 0 {
		logger.Info("reconcile interval not set, running once")
		run(ctx)
		return
	}
	logger.Info("reconcile worker started", "interval", interval.String())
	loop(ctx, interval, run)
	logger.Info("reconcile worker stopped")
}
