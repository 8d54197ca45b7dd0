package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/peerlend/loan-engine/pkg/response"
)

const (
	serviceName  = "loan-engine"
	probeTimeout = 5 * time.Second
)

type HealthHandler struct {
	db    *sqlx.DB
	redis *redis.Client
}

func NewHealthHandler(db *sqlx.DB, redis *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

type healthReport struct {
	Service   string            `json:"service"`
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Health reports process liveness only.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.Success(w, healthReport{
		Service:   serviceName,
		Status:    "ok",
		Timestamp: time.Now().UTC(),
	})
}

// Ready probes the loan store and the idempotency-key store; the engine
// cannot take payments without both.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	report := healthReport{
		Service:   serviceName,
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Checks:    map[string]string{},
	}

	if err := h.db.PingContext(ctx); err != nil {
		report.Status = "degraded"
		report.Checks["postgres"] = "failed: " + err.Error()
	} else {
		report.Checks["postgres"] = "ok"
	}

	if err := h.redis.Ping(ctx).Err(); err != nil {
		report.Status = "degraded"
		report.Checks["redis"] = "failed: " + err.Error()
	} else {
		report.Checks["redis"] = "ok"
	}

	if report.Status != "ok" {
		response.JSON(w, http.StatusServiceUnavailable, report)
		return
	}

	response.Success(w, report)
}
