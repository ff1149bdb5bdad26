package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/wonny/propdesk/internal/calendar"
	"github.com/wonny/propdesk/internal/scheduler"
	"github.com/wonny/propdesk/pkg/logger"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

const readinessTimeout = 2 * time.Second

// Pinger is satisfied by *redis.Client
type Pinger interface {
	Enabled() bool
	Ping(ctx context.Context) error
}

// JobReporter is satisfied by *scheduler.Scheduler
type JobReporter interface {
	GetJobStats() map[string]scheduler.JobStats
}

// HealthHandler handles liveness and readiness probes
type HealthHandler struct {
	redis        Pinger
	calendars    *calendar.Store
	jobs         JobReporter
	kafkaEnabled bool
	logger       *logger.Logger
	now          func() time.Time
}

// NewHealthHandler creates a new health handler. redis may be nil.
func NewHealthHandler(redis Pinger, calendars *calendar.Store, kafkaEnabled bool, log *logger.Logger) *HealthHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &HealthHandler{
		redis:        redis,
		calendars:    calendars,
		kafkaEnabled: kafkaEnabled,
		logger:       log,
		now:          time.Now,
	}
}

// WithJobs adds the scheduled job statistics to the health report
func (h *HealthHandler) WithJobs(jobs JobReporter) *HealthHandler {
	h.jobs = jobs
	return h
}

// Health reports the service and its dependencies
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	services := map[string]string{
		"analyzer": "available",
		"redis":    h.redisStatus(r.Context()),
		"calendar": h.calendarStatus(),
		"kafka":    "disabled",
	}
	if h.kafkaEnabled {
		services["kafka"] = "enabled"
	}

	body := map[string]interface{}{
		"status":    "OK",
		"timestamp": h.now().UTC().Format(time.RFC3339),
		"version":   Version,
		"services":  services,
	}
	if h.jobs != nil {
		body["jobs"] = h.jobs.GetJobStats()
	}

	respondJSON(w, http.StatusOK, body)
}

// Ready fails while a required dependency is unavailable
// GET /health/ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.calendars == nil || h.calendars.Current() == nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "calendar not loaded",
		})
		return
	}

	if status := h.redisStatus(r.Context()); status == "error" {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "redis unavailable",
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status":    "ready",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

// Live always answers while the process serves requests
// GET /health/live
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (h *HealthHandler) redisStatus(ctx context.Context) string {
	if h.redis == nil || !h.redis.Enabled() {
		return "disabled"
	}

	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()

	if err := h.redis.Ping(ctx); err != nil {
		h.logger.WithError(err).Warn("Redis ping failed")
		return "error"
	}
	return "ok"
}

func (h *HealthHandler) calendarStatus() string {
	if h.calendars == nil {
		return "disabled"
	}
	cal := h.calendars.Current()
	if cal == nil {
		return "not loaded"
	}
	return fmt.Sprintf("%d events (%s)", cal.Len(), cal.Source())
}
