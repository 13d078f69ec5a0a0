package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"hermes/pkg/logger"
)

// Handler provides health check endpoints. ClickHouse is optional; a nil
// connection is simply skipped.
type Handler struct {
	log         *logger.Logger
	postgres    *sqlx.DB
	clickhouse  driver.Conn
	redis       *redis.Client
	startTime   time.Time
	serviceName string
	version     string
}

// New creates a health check handler.
func New(postgres *sqlx.DB, clickhouse driver.Conn, redisClient *redis.Client, serviceName, version string) *Handler {
	return &Handler{
		log:         logger.Get().With("component", "health"),
		postgres:    postgres,
		clickhouse:  clickhouse,
		redis:       redisClient,
		startTime:   time.Now(),
		serviceName: serviceName,
		version:     version,
	}
}

// Status is the overall health report.
type Status struct {
	Status    string                     `json:"status"` // healthy, degraded, unhealthy
	Service   string                     `json:"service"`
	Version   string                     `json:"version"`
	Uptime    string                     `json:"uptime"`
	Timestamp string                     `json:"timestamp"`
	Checks    map[string]ComponentHealth `json:"checks"`
}

// ComponentHealth reports one dependency.
type ComponentHealth struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time,omitempty"`
	Error        string `json:"error,omitempty"`
}

// HandleLiveness returns 200 OK while the process is running.
func (h *Handler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
}

// HandleReadiness checks every dependency and fails hard when any is down.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks, healthy, total := h.runChecks(ctx)

	status := h.buildStatus(checks)
	statusCode := http.StatusOK
	if healthy < total {
		status.Status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
		h.log.Warnw("Readiness check failed", "checks", checks)
	}

	writeJSON(w, statusCode, status)
}

// HandleHealth reports per-dependency detail; degraded still returns 200.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	checks, healthy, total := h.runChecks(ctx)

	status := h.buildStatus(checks)
	statusCode := http.StatusOK
	if healthy == 0 {
		status.Status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	} else if healthy < total {
		status.Status = "degraded"
	}

	writeJSON(w, statusCode, status)
}

func (h *Handler) buildStatus(checks map[string]ComponentHealth) Status {
	return Status{
		Status:    "healthy",
		Service:   h.serviceName,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).String(),
		Timestamp: time.Now().Format(time.RFC3339),
		Checks:    checks,
	}
}

func (h *Handler) runChecks(ctx context.Context) (checks map[string]ComponentHealth, healthy, total int) {
	checks = make(map[string]ComponentHealth)

	run := func(name string, check func(context.Context) error) {
		total++
		start := time.Now()
		err := check(ctx)
		component := ComponentHealth{
			Status:       "healthy",
			ResponseTime: time.Since(start).String(),
		}
		if err != nil {
			component.Status = "unhealthy"
			component.Error = err.Error()
		} else {
			healthy++
		}
		checks[name] = component
	}

	if h.postgres != nil {
		run("postgres", h.postgres.PingContext)
	}
	if h.redis != nil {
		run("redis", func(ctx context.Context) error { return h.redis.Ping(ctx).Err() })
	}
	if h.clickhouse != nil {
		run("clickhouse", h.clickhouse.Ping)
	}

	return checks, healthy, total
}

func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}
