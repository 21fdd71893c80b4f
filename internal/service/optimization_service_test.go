package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-scheduler/internal/models"
	appErrors "github.com/noah-isme/academy-scheduler/pkg/errors"
)

func twoTeacherConstraints() models.OptimizationConstraints {
	return models.OptimizationConstraints{
		Teachers:         []models.Teacher{mathTeacher("t1"), mathTeacher("t2")},
		AlternativeCount: -1,
	}
}

func stackedDecisions() []models.SchedulingDecision {
	return []models.SchedulingDecision{
		decision("a", "t1", []string{"s1"}, hourSlot(at(3, 10), 4, 1, models.LocationOnline), models.PriorityMedium),
		decision("b", "t1", []string{"s2"}, hourSlot(at(3, 11), 4, 1, models.LocationOnline), models.PriorityMedium),
	}
}

func classByID(classes []models.ScheduledClass, id string) models.ScheduledClass {
	for _, class := range classes {
		if class.ID == id {
			return class
		}
	}
	return models.ScheduledClass{}
}

func TestOptimizeBalancesTeacherWorkload(t *testing.T) {
	svc := NewOptimizationService(fixedConfig{cfg: testEngineConfig()}, nil, nil, nil, nil, nil)

	solution, err := svc.Optimize(context.Background(), stackedDecisions(), twoTeacherConstraints())
	require.NoError(t, err)
	assert.Equal(t, models.StrategyBase, solution.Strategy)
	assert.Equal(t, "t1", classByID(solution.ScheduledClasses, "a").TeacherID)
	assert.Equal(t, "t2", classByID(solution.ScheduledClasses, "b").TeacherID)
	assert.Equal(t, map[string]int{"t1": 60, "t2": 60}, solution.TeacherWorkloads)
	assert.InDelta(t, 100.0, solution.Metrics.Balance, 1e-9)
	assert.InDelta(t, 25.0, solution.Metrics.Utilization, 1e-9)
	assert.InDelta(t, 60.0, solution.Metrics.Satisfaction, 1e-9)
	assert.Empty(t, solution.UnresolvedConflicts)
	assert.InDelta(t, 0.9, solution.ConfidenceScore, 1e-9)
	assert.Empty(t, solution.AlternativeSolutions)
}

func TestOptimizeIsIdempotent(t *testing.T) {
	svc := NewOptimizationService(fixedConfig{cfg: testEngineConfig()}, nil, nil, nil, nil, nil)
	constraints := twoTeacherConstraints()

	first, err := svc.Optimize(context.Background(), stackedDecisions(), constraints)
	require.NoError(t, err)

	again := make([]models.SchedulingDecision, 0, len(first.ScheduledClasses))
	for _, class := range first.ScheduledClasses {
		again = append(again, models.SchedulingDecision{Class: class, Priority: models.PriorityMedium})
	}
	second, err := svc.Optimize(context.Background(), again, constraints)
	require.NoError(t, err)
	assert.InDelta(t, first.ConfidenceScore, second.ConfidenceScore, 1e-9)
	assert.Equal(t, first.TeacherWorkloads, second.TeacherWorkloads)
}

func TestOptimizeRetimesTowardsBetterRatedSlots(t *testing.T) {
	svc := NewOptimizationService(fixedConfig{cfg: testEngineConfig()}, nil, nil, nil, nil, nil)
	constraints := twoTeacherConstraints()
	constraints.CandidateSlots = []models.TimeSlot{hourSlot(at(3, 14), 4, 0, models.LocationOnline)}
	constraints.Ratings = []models.PerformanceRating{{StudentID: "s1", DayOfWeek: 2, Hour: 14, Rating: 5}}

	solution, err := svc.Optimize(context.Background(), stackedDecisions(), constraints)
	require.NoError(t, err)
	moved := classByID(solution.ScheduledClasses, "a")
	assertInstant(t, at(3, 14), moved.TimeSlot.StartTime)
	assert.Contains(t, moved.Rationale, "base optimization moved class")
	assertInstant(t, at(3, 11), classByID(solution.ScheduledClasses, "b").TimeSlot.StartTime)
	assert.InDelta(t, 80.0, solution.Metrics.Satisfaction, 1e-9)
}

func TestOptimizeKeepsLockedDecisions(t *testing.T) {
	svc := NewOptimizationService(fixedConfig{cfg: testEngineConfig()}, nil, nil, nil, nil, nil)
	locked := decision("existing", "t1", []string{"s9"}, hourSlot(at(3, 10), 4, 1, models.LocationOnline), models.PriorityLow)
	locked.Locked = true
	decisions := []models.SchedulingDecision{
		locked,
		decision("a", "t1", []string{"s1"}, hourSlot(at(3, 10), 4, 1, models.LocationOnline), models.PriorityMedium),
	}

	solution, err := svc.Optimize(context.Background(), decisions, twoTeacherConstraints())
	require.NoError(t, err)
	require.Len(t, solution.ScheduledClasses, 1)
	assert.Equal(t, "t2", solution.ScheduledClasses[0].TeacherID)
	assert.Empty(t, solution.UnresolvedConflicts)
}

func TestOptimizeRequiresUnlockedDecision(t *testing.T) {
	svc := NewOptimizationService(fixedConfig{cfg: testEngineConfig()}, nil, nil, nil, nil, nil)
	locked := decision("existing", "t1", []string{"s9"}, hourSlot(at(3, 10), 4, 1, models.LocationOnline), models.PriorityLow)
	locked.Locked = true

	_, err := svc.Optimize(context.Background(), []models.SchedulingDecision{locked}, twoTeacherConstraints())
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

func TestOptimizeProducesAlternatives(t *testing.T) {
	svc := NewOptimizationService(fixedConfig{cfg: testEngineConfig()}, nil, nil, nil, nil, nil)

	constraints := twoTeacherConstraints()
	constraints.AlternativeCount = 2
	solution, err := svc.Optimize(context.Background(), stackedDecisions(), constraints)
	require.NoError(t, err)
	require.Len(t, solution.AlternativeSolutions, 2)
	strategies := []string{solution.AlternativeSolutions[0].Strategy, solution.AlternativeSolutions[1].Strategy}
	assert.ElementsMatch(t, []string{models.StrategyTimeFocused, models.StrategyResourceFocused}, strategies)
	for _, alt := range solution.AlternativeSolutions {
		assert.Empty(t, alt.AlternativeSolutions)
	}

	constraints.AlternativeCount = 0
	solution, err = svc.Optimize(context.Background(), stackedDecisions(), constraints)
	require.NoError(t, err)
	assert.Len(t, solution.AlternativeSolutions, 3)
}

func TestOptimizeFlagsUnassignableClass(t *testing.T) {
	svc := NewOptimizationService(fixedConfig{cfg: testEngineConfig()}, nil, nil, nil, nil, nil)
	constraints := twoTeacherConstraints()
	constraints.MaxClassSize = 1
	decisions := []models.SchedulingDecision{
		decision("big", "t1", []string{"s1", "s2"}, hourSlot(at(3, 10), 4, 2, models.LocationOnline), models.PriorityMedium),
	}

	solution, err := svc.Optimize(context.Background(), decisions, constraints)
	require.NoError(t, err)
	require.NotEmpty(t, solution.UnresolvedConflicts)
	assert.Equal(t, models.ConflictConstraintViolation, solution.UnresolvedConflicts[0].Type)
	assert.InDelta(t, 0.7, solution.ConfidenceScore, 1e-9)
}
