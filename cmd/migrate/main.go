package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ignite/courier-ops/internal/config"
	"github.com/ignite/courier-ops/internal/pkg/logger"
	"github.com/ignite/courier-ops/internal/repository/postgres"
)

const createLedger = `CREATE TABLE IF NOT EXISTS schema_migrations (
	name       TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// migrationFiles returns the .sql files of dir in lexical order.
func migrationFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func applied(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	defer rows.Close()
	done := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		done[name] = true
	}
	return done, rows.Err()
}

// migrate applies every pending file in its own transaction and records it
// in schema_migrations. It stops at the first failure.
func migrate(ctx context.Context, db *sql.DB, dir string) (int, error) {
	if _, err := db.ExecContext(ctx, createLedger); err != nil {
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}
	done, err := applied(ctx, db)
	if err != nil {
		return 0, err
	}
	files, err := migrationFiles(dir)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, f := range files {
		if done[f] {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, f))
		if err != nil {
			return n, fmt.Errorf("read %s: %w", f, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return n, fmt.Errorf("begin %s: %w", f, err)
		}
		if _, err := tx.ExecContext(ctx, string(data)); err != nil {
			tx.Rollback()
			return n, fmt.Errorf("apply %s: %w", f, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, f); err != nil {
			tx.Rollback()
			return n, fmt.Errorf("record %s: %w", f, err)
		}
		if err := tx.Commit(); err != nil {
			return n, fmt.Errorf("commit %s: %w", f, err)
		}
		logger.Info("migration applied", "file", f)
		n++
	}
	return n, nil
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file")
	dirFlag := flag.String("dir", "", "migrations directory (overrides config)")
	listOnly := flag.Bool("list", false, "list applied migrations and exit")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(logger.Options{Level: cfg.Logging.Level, RedactPII: true})

	dir := cfg.Database.MigrationsDir
	if *dirFlag != "" {
		dir = *dirFlag
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	db, err := postgres.Open(ctx, cfg.Database.URL, postgres.PoolOptions{MaxOpenConns: 2})
	if err != nil {
		logger.Error("connect failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if *listOnly {
		done, err := applied(ctx, db)
		if err != nil {
			logger.Error("list failed", "error", err)
			os.Exit(1)
		}
		names := make([]string, 0, len(done))
		for name := range done {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Println(" ", name)
		}
		fmt.Printf("Total: %d applied\n", len(names))
		return
	}

	n, err := migrate(ctx, db, dir)
	if err != nil {
		logger.Error("migration failed", "applied", n, "error", err)
		os.Exit(1)
	}
	logger.Info("migrations complete", "applied", n, "dir", dir)
}
