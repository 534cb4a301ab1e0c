package api

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/ignite/courier-ops/internal/pkg/httputil"
	"github.com/ignite/courier-ops/internal/storage"
	"github.com/redis/go-redis/v9"
)

// HealthStatus represents the overall health of the system.
type HealthStatus struct {
	Status string                    `json:"status"` // "healthy", "degraded", "unhealthy"
	Uptime string                    `json:"uptime"`
	Checks map[string]ComponentCheck `json:"checks"`
}

// ComponentCheck represents the health of a single component.
type ComponentCheck struct {
	Status  string `json:"status"` // "up", "down", "degraded"
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

const notConfigured = "not configured"

// dependency is one health check. A failing dependency reports failStatus; a
// dependency slower than slow reports "degraded".
type dependency struct {
	name       string
	timeout    time.Duration
	slow       time.Duration
	failStatus string
	run        func(ctx context.Context) error // nil when the dependency is absent
}

// HealthChecker checks the database, Redis and the report archive. The
// database is the only dependency whose loss makes the service unhealthy.
type HealthChecker struct {
	deps      []dependency
	startTime time.Time
}

// NewHealthChecker creates a HealthChecker. Nil dependencies report "not
// configured" and do not affect the overall status.
func NewHealthChecker(db *sql.DB, redisClient *redis.Client, archive storage.Archive) *HealthChecker {
	hc := &HealthChecker{startTime: time.Now()}

	dbDep := dependency{name: "database", timeout: 3 * time.Second, slow: time.Second, failStatus: "down"}
	if db != nil {
		dbDep.run = db.PingContext
	}
	redisDep := dependency{name: "redis", timeout: 2 * time.Second, slow: 500 * time.Millisecond, failStatus: "down"}
	if redisClient != nil {
		redisDep.run = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	archiveDep := dependency{name: "archive", timeout: 3 * time.Second, failStatus: "degraded"}
	if archive != nil {
		archiveDep.run = func(ctx context.Context) error {
			_, err := archive.List(ctx, "health/")
			return err
		}
	}

	hc.deps = []dependency{dbDep, redisDep, archiveDep}
	return hc
}

// HandleHealth reports every check. It always answers 200.
//
//	GET /health
func (hc *HealthChecker) HandleHealth(w http.ResponseWriter, r *http.Request) {
	checks := hc.runAllChecks(r.Context())
	httputil.JSON(w, http.StatusOK, HealthStatus{
		Status: determineOverallStatus(checks),
		Uptime: time.Since(hc.startTime).Round(time.Second).String(),
		Checks: checks,
	})
}

// HandleLiveness always returns 200 while the process is running.
//
//	GET /health/live
func (hc *HealthChecker) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]any{
		"status": "alive",
		"uptime": time.Since(hc.startTime).Round(time.Second).String(),
	})
}

// HandleReadiness answers 503 while the service is unhealthy.
//
//	GET /health/ready
func (hc *HealthChecker) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	checks := hc.runAllChecks(r.Context())
	overall := determineOverallStatus(checks)

	code := http.StatusOK
	if overall == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	httputil.JSON(w, code, map[string]any{
		"ready":  code == http.StatusOK,
		"status": overall,
		"checks": checks,
	})
}

func (hc *HealthChecker) runAllChecks(ctx context.Context) map[string]ComponentCheck {
	type result struct {
		name  string
		check ComponentCheck
	}
	ch := make(chan result, len(hc.deps))
	for _, p := range hc.deps {
		go func() { ch <- result{p.name, p.check(ctx)} }()
	}

	checks := make(map[string]ComponentCheck, len(hc.deps))
	for range hc.deps {
		r := <-ch
		checks[r.name] = r.check
	}
	return checks
}

func (p dependency) check(ctx context.Context) ComponentCheck {
	if p.run == nil {
		return ComponentCheck{Status: "down", Message: notConfigured}
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	err := p.run(ctx)
	latency := time.Since(start)

	switch {
	case err != nil:
		return ComponentCheck{Status: p.failStatus, Latency: latency.String(), Message: fmt.Sprintf("check failed: %v", err)}
	case p.slow > 0 && latency > p.slow:
		return ComponentCheck{Status: "degraded", Latency: latency.String(), Message: fmt.Sprintf("slow response (%s)", latency)}
	}
	return ComponentCheck{Status: "up", Latency: latency.String()}
}

// determineOverallStatus is "unhealthy" when a configured database is down,
// "degraded" when any other configured check is not up, else "healthy".
func determineOverallStatus(checks map[string]ComponentCheck) string {
	overall := "healthy"
	for name, c := range checks {
		if c.Status == "up" || c.Message == notConfigured {
			continue
		}
		if name == "database" && c.Status == "down" {
			return "unhealthy"
		}
		overall = "degraded"
	}
	return overall
}
