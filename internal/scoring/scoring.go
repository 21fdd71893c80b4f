// Package scoring holds the pure compatibility functions shared by the scheduling,
// optimization and make-up engines. Every score is in [0,1].
package scoring

import (
	"math"
	"strings"

	"github.com/noah-isme/academy-scheduler/internal/models"
)

// Fixed scores used by the per-dimension functions.
const (
	SameCourseTypeScore    = 0.9
	FallbackContentScore   = 0.5
	PreferredDayScore      = 0.8
	BaselineScheduleScore  = 0.6
	SameTeacherScore       = 1.0
	PreferredTeacherScore  = 0.9
	AvoidedTeacherScore    = 0.2
	FlexibleTeacherScore   = 0.7
	InflexibleTeacherScore = 0.4
	OnlineLocationScore    = 0.8
	InPersonLocationScore  = 0.7
	DefaultTimingScore     = 0.7
	classSizeDecayPerSeat  = 0.2
	classSizeFloor         = 0.1
)

// SimilarityFunc resolves content similarity between two courses.
type SimilarityFunc func(originalCourseID, candidateCourseID string) (float64, error)

// ContentScore returns 0.9 for the same course type, otherwise the delegated similarity.
// When the delegate fails the fallback 0.5 is returned together with the error so the
// caller can report degraded quality.
func ContentScore(originalType, candidateType, originalCourseID, candidateCourseID string, similarity SimilarityFunc) (float64, error) {
	if originalType != "" && strings.EqualFold(originalType, candidateType) {
		return SameCourseTypeScore, nil
	}
	if similarity == nil {
		return FallbackContentScore, nil
	}
	value, err := similarity(originalCourseID, candidateCourseID)
	if err != nil {
		return FallbackContentScore, err
	}
	return Clamp01(value), nil
}

// ScheduleScore is 0.8 when any teacher slot falls on a preferred day.
func ScheduleScore(prefs models.StudentSchedulePreferences, teacherSlots []models.TimeSlot) float64 {
	for _, slot := range teacherSlots {
		if prefs.PrefersDay(slot.DayOfWeek) {
			return PreferredDayScore
		}
	}
	return BaselineScheduleScore
}

// TeacherScore grades the candidate teacher against the original one and the student's lists.
func TeacherScore(originalTeacherID, candidateTeacherID string, prefs models.StudentSchedulePreferences) float64 {
	switch {
	case candidateTeacherID != "" && candidateTeacherID == originalTeacherID:
		return SameTeacherScore
	case prefs.IsPreferredTeacher(candidateTeacherID):
		return PreferredTeacherScore
	case prefs.IsAvoidedTeacher(candidateTeacherID):
		return AvoidedTeacherScore
	case prefs.Flexible():
		return FlexibleTeacherScore
	default:
		return InflexibleTeacherScore
	}
}

// ClassSizeScore is 1.0 inside the band and loses 0.2 per student outside it, floor 0.1.
func ClassSizeScore(enrollment int, band models.SizeRange) float64 {
	var distance int
	switch {
	case enrollment < band.Min:
		distance = band.Min - enrollment
	case band.Max > 0 && enrollment > band.Max:
		distance = enrollment - band.Max
	default:
		return 1.0
	}
	return math.Max(classSizeFloor, 1.0-classSizeDecayPerSeat*float64(distance))
}

// LocationScore favours online classes. In-person is a flat baseline.
func LocationScore(slot models.TimeSlot) float64 {
	if slot.IsOnline() {
		return OnlineLocationScore
	}
	return InPersonLocationScore
}

// TimingScore is a constant until per-student rating history is wired into make-up scoring.
func TimingScore() float64 {
	return DefaultTimingScore
}

// AvailabilityScore is available/capacity.
func AvailabilityScore(available, capacity int) float64 {
	if capacity <= 0 {
		return 0
	}
	return Clamp01(float64(available) / float64(capacity))
}

// Tier maps a score onto a recommendation strength.
func Tier(score float64, t TierThresholds) models.RecommendationStrength {
	switch {
	case score >= t.Excellent:
		return models.StrengthExcellent
	case score >= t.High:
		return models.StrengthHigh
	case score >= t.Medium:
		return models.StrengthMedium
	default:
		return models.StrengthLow
	}
}

// Clamp01 bounds v to [0,1]. NaN becomes 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Mean returns 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev is the population standard deviation.
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	var acc float64
	for _, v := range values {
		acc += (v - mean) * (v - mean)
	}
	return math.Sqrt(acc / float64(len(values)))
}
