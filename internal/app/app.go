// Package app assembles the services, stores and clients the server and
// the worker share.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/ignite/courier-ops/internal/api"
	"github.com/ignite/courier-ops/internal/config"
	"github.com/ignite/courier-ops/internal/domain"
	"github.com/ignite/courier-ops/internal/pkg/distlock"
	"github.com/ignite/courier-ops/internal/pkg/logger"
	"github.com/ignite/courier-ops/internal/repository/postgres"
	"github.com/ignite/courier-ops/internal/service/cohort"
	"github.com/ignite/courier-ops/internal/service/loader"
	"github.com/ignite/courier-ops/internal/service/reconcile"
	"github.com/ignite/courier-ops/internal/service/records"
	"github.com/ignite/courier-ops/internal/service/roster"
	"github.com/ignite/courier-ops/internal/service/shipment"
	"github.com/ignite/courier-ops/internal/service/tasks"
	"github.com/ignite/courier-ops/internal/session"
	"github.com/ignite/courier-ops/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const reconcileLockKey = "reconcile"

// App holds every wired component.
type App struct {
	Config    *config.Config
	DB        *sql.DB
	Redis     *redis.Client
	Sessions  session.Store
	Archive   storage.Archive
	Loader    *loader.Service
	Reconcile *reconcile.Engine
	Cohorts   *cohort.Engine
	Roster    *roster.Service
	Shipments *shipment.Service
	Records   *records.Service
	Tasks     *tasks.Service
}

// New connects to Postgres (required), Redis (optional) and the report
// archive, then builds the services.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("database url is required")
	}
	db, err := postgres.Open(ctx, cfg.Database.URL, postgres.PoolOptions{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Minute,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("postgres connected", "max_open_conns", cfg.Database.MaxOpenConns)

	a := &App{Config: cfg, DB: db}
	a.Redis = connectRedis(ctx, cfg.Redis.URL)

	a.Sessions, err = newSessionStore(ctx, cfg, a.Redis)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Archive, err = storage.New(ctx, cfg.Storage)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("report archive: %w", err)
	}

	var loaderOpts []loader.Option
	for _, ds := range domain.Datasets {
		if n := cfg.Upload.BatchSize(string(ds), 0); n > 0 {
			loaderOpts = append(loaderOpts, loader.WithBatchSize(ds, n))
		}
	}
	a.Loader = loader.NewService(postgres.NewLoaderRepo(db), a.Sessions, loaderOpts...)

	lock := distlock.NewLock(a.Redis, db, reconcileLockKey, cfg.Reconcile.LockTTL())
	a.Reconcile = reconcile.NewEngine(postgres.NewReconcileRepo(db),
		reconcile.WithParams(reconcileParams(cfg.Reconcile)),
		reconcile.WithPageSize(cfg.Reconcile.PageSize),
		reconcile.WithDisplayLimit(cfg.Reconcile.DisplayLimit),
		reconcile.WithTransaction(cfg.Reconcile.UseTransaction),
		reconcile.WithLock(lock),
	)

	a.Cohorts = cohort.NewEngine(postgres.NewCohortRepo(db))
	a.Roster = roster.NewService(postgres.NewMitraRepo(db))
	a.Shipments = shipment.NewService(postgres.NewShipmentRepo(db))
	a.Records = records.NewService(postgres.NewRecordsRepo(db), a.Sessions)
	a.Tasks = tasks.NewService(postgres.NewTaskRepo(db))
	return a, nil
}

// Handlers builds the HTTP handlers over the wired services.
func (a *App) Handlers() *api.Handlers {
	return api.NewHandlers(api.Deps{
		Loader:     a.Loader,
		Reconciler: a.Reconcile,
		Cohorts:    a.Cohorts,
		Roster:     a.Roster,
		Shipments:  a.Shipments,
		Records:    a.Records,
		Tasks:      a.Tasks,
		Archive:    a.Archive,
		Health:     api.NewHealthChecker(a.DB, a.Redis, a.Archive),
		MaxTimeout: a.Config.Server.MaxTimeout(),
	})
}

// Close releases the database and Redis connections.
func (a *App) Close() {
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

// connectRedis returns nil when Redis is not configured or unreachable;
// callers then fall back to Postgres advisory locks.
func connectRedis(ctx context.Context, url string) *redis.Client {
	if url == "" {
		return nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		logger.Warn("invalid redis url, continuing without redis", "error", err)
		return nil
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, continuing without redis", "addr", opts.Addr, "error", err)
		client.Close()
		return nil
	}
	logger.Info("redis connected", "addr", opts.Addr)
	return client
}

// newSessionStore picks the upload session backend. A redis backend
// without a live client degrades to the in-memory store, which only works
// for a single instance.
func newSessionStore(ctx context.Context, cfg *config.Config, rdb *redis.Client) (session.Store, error) {
	ttl := cfg.Upload.SessionTTL()
	switch cfg.Upload.SessionBackend {
	case "redis", "":
		if rdb != nil {
			return session.NewRedisStore(rdb, ttl), nil
		}
		logger.Warn("redis session backend unavailable, using in-memory sessions")
		return session.NewMemoryStore(ttl), nil
	case "dynamodb":
		if cfg.Storage.DynamoDBTable == "" {
			return nil, fmt.Errorf("session backend dynamodb requires storage.dynamodb_table")
		}
		awsCfg, err := storage.LoadAWSConfig(ctx, cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("aws config: %w", err)
		}
		return session.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.Storage.DynamoDBTable, ttl), nil
	case "memory":
		return session.NewMemoryStore(ttl), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Upload.SessionBackend)
	}
}

func reconcileParams(c config.ReconcileConfig) reconcile.Params {
	p := reconcile.DefaultParams()
	if c.WeightThreshold > 0 {
		p.WeightThreshold = decimal.NewFromFloat(c.WeightThreshold)
	}
	if c.BaseWeight > 0 {
		p.BaseWeight = int64(c.BaseWeight)
	}
	if c.ChargePerKg > 0 {
		p.ChargePerKg = int64(c.ChargePerKg)
	}
	if c.DistanceThreshold > 0 {
		p.DistanceThreshold = decimal.NewFromFloat(c.DistanceThreshold)
	}
	return p
}
