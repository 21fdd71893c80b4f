package service

import (
	"time"

	"github.com/noah-isme/academy-scheduler/internal/models"
)

const (
	healthyRate         = 0.95
	degradedRate        = 0.80
	queueSaturationRate = 0.80
)

type engineStatsSource interface {
	Stats() EngineStats
}

// HealthService derives operational health from engine counters and queue load.
type HealthService struct {
	source engineStatsSource
	now    func() time.Time
}

// NewHealthService constructs a HealthService.
func NewHealthService(source engineStatsSource) *HealthService {
	return &HealthService{source: source, now: time.Now}
}

// GetHealthStatus is healthy when at least 95% of processed requests succeeded and the
// queue is below 80% of its buffer. A saturated queue or a success rate of at least 80%
// is degraded; anything lower is unhealthy. No traffic counts as healthy.
func (s *HealthService) GetHealthStatus() models.EngineHealth {
	var stats EngineStats
	if s.source != nil {
		stats = s.source.Stats()
	}
	rate := 1.0
	if stats.Processed > 0 {
		rate = float64(stats.Processed-stats.Failed) / float64(stats.Processed)
	}
	saturated := stats.QueueCapacity > 0 && float64(stats.QueueDepth) >= queueSaturationRate*float64(stats.QueueCapacity)

	status := models.HealthUnhealthy
	switch {
	case rate >= healthyRate && !saturated:
		status = models.HealthHealthy
	case rate >= degradedRate:
		status = models.HealthDegraded
	}
	return models.EngineHealth{
		Status:        status,
		SuccessRate:   rate,
		QueueDepth:    stats.QueueDepth,
		QueueCapacity: stats.QueueCapacity,
		InFlight:      stats.InFlight,
		Processed:     stats.Processed,
		Failed:        stats.Failed,
		CheckedAt:     s.now().UTC(),
	}
}
