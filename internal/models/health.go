package models

import "time"

// HealthState is the coarse engine status.
type HealthState string

const (
	HealthHealthy   HealthState = "healthy"
	HealthDegraded  HealthState = "degraded"
	HealthUnhealthy HealthState = "unhealthy"
)

// EngineHealth is consumed by operational monitoring.
type EngineHealth struct {
	Status        HealthState `json:"status"`
	SuccessRate   float64     `json:"successRate"`
	QueueDepth    int         `json:"queueDepth"`
	QueueCapacity int         `json:"queueCapacity"`
	InFlight      int         `json:"inFlight"`
	Processed     uint64      `json:"processed"`
	Failed        uint64      `json:"failed"`
	CheckedAt     time.Time   `json:"checkedAt"`
}
