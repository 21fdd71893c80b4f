package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-scheduler/internal/models"
	"github.com/noah-isme/academy-scheduler/internal/service"
	"github.com/noah-isme/academy-scheduler/pkg/response"
)

const readyTimeout = 2 * time.Second

type engineHealthSource interface {
	GetHealthStatus() models.EngineHealth
}

// Pinger reports dependency readiness, e.g. the database pool or Redis.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics      *service.MetricsService
	health       engineHealthSource
	dependencies map[string]Pinger
}

// NewMetricsHandler constructs a metrics handler. health may be nil; dependencies
// are checked by name on /ready.
func NewMetricsHandler(metrics *service.MetricsService, health engineHealthSource, dependencies map[string]Pinger) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, health: health, dependencies: dependencies}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for liveness usage.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready fails while any dependency is unreachable.
func (h *MetricsHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()
	failures := gin.H{}
	for name, dep := range h.dependencies {
		if dep == nil {
			continue
		}
		if err := dep.PingContext(ctx); err != nil {
			failures[name] = err.Error()
		}
	}
	if len(failures) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "failures": failures})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// EngineHealth godoc
// @Summary Scheduling engine health
// @Description Healthy at a success rate of 95% or more with an unsaturated queue, degraded from 80%, otherwise unhealthy.
// @Tags Scheduling
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /scheduling/health [get]
func (h *MetricsHandler) EngineHealth(c *gin.Context) {
	if h.health == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	status := h.health.GetHealthStatus()
	code := http.StatusOK
	if status.Status == models.HealthUnhealthy {
		code = http.StatusServiceUnavailable
	}
	response.JSON(c, code, status)
}
