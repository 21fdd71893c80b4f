package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-scheduler/internal/dto"
	"github.com/noah-isme/academy-scheduler/internal/models"
	appErrors "github.com/noah-isme/academy-scheduler/pkg/errors"
)

func TestScheduleRejectsOversizedGroup(t *testing.T) {
	f := newSchedulingFixture(testEngineConfig(), []models.Teacher{mathTeacher("t1")}, nil)
	ids := make([]string, 10)
	for i := range ids {
		ids[i] = fmt.Sprintf("s%02d", i)
	}

	result, err := f.svc.Schedule(context.Background(), dto.ScheduleRequest{StudentIDs: ids, CourseID: "course-math"})
	require.Error(t, err)
	assert.Nil(t, result)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "Cannot schedule more than 9 students per class", appErr.Message)
}

func TestScheduleRejectsUnknownCourseAndStudents(t *testing.T) {
	f := newSchedulingFixture(testEngineConfig(), []models.Teacher{mathTeacher("t1")}, nil)

	_, err := f.svc.Schedule(context.Background(), dto.ScheduleRequest{StudentIDs: []string{"s1"}, CourseID: "course-unknown"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	f.svc.repos.Students = studentRepoStub{missing: map[string]bool{"s2": true}}
	_, err = f.svc.Schedule(context.Background(), dto.ScheduleRequest{StudentIDs: []string{"s1", "s2"}, CourseID: "course-math"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "students not found: s2")

	_, err = f.svc.Schedule(context.Background(), dto.ScheduleRequest{StudentIDs: []string{"s1", "s1"}, CourseID: "course-math"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate student id s1")
}

func TestScheduleGroupPlacesEarliestTopSlot(t *testing.T) {
	f := newSchedulingFixture(testEngineConfig(), []models.Teacher{mathTeacher("t1")}, nil)

	result, err := f.svc.Schedule(context.Background(), dto.ScheduleRequest{StudentIDs: []string{"s1", "s2"}, CourseID: "course-math"})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Success)
	assert.Equal(t, models.StateCompleted, result.State)
	require.Len(t, result.ScheduledClasses, 1)
	class := result.ScheduledClasses[0]
	assert.Equal(t, "t1", class.TeacherID)
	assert.Equal(t, models.ClassTypeGroup, class.ClassType)
	assertInstant(t, at(2, 9), class.TimeSlot.StartTime)
	assert.Equal(t, 9, class.TimeSlot.Capacity.Max)
	assert.ElementsMatch(t, []string{"s1", "s2"}, class.StudentIDs)
	assert.Contains(t, class.Rationale, "average course progress 40%")
	assert.Empty(t, result.UnresolvedConflicts)

	require.Len(t, result.Recommendations, runnerUpsPerClass)
	assert.Equal(t, models.RecommendationAlternativeTimeSlot, result.Recommendations[0].Type)
	assert.Equal(t, "t1", result.Recommendations[0].TeacherID)
	assertInstant(t, at(2, 10), result.Recommendations[0].TimeSlot.StartTime)
	assert.Equal(t, 2, result.Metrics.StudentsProcessed)
	assert.Equal(t, 1, result.Metrics.ClassesScheduled)

	stored, err := f.svc.GetResult(context.Background(), result.RequestID)
	require.NoError(t, err)
	assert.Equal(t, result.RequestID, stored.RequestID)
}

func TestScheduleAvoidsBusyStudentAndKeepsContinuity(t *testing.T) {
	existing := models.ScheduledClass{
		ID:         "existing-1",
		CourseID:   "course-other",
		TeacherID:  "t9",
		StudentIDs: []string{"s1"},
		TimeSlot:   hourSlot(at(2, 9), 4, 1, models.LocationOnline),
		Status:     models.ClassStatusScheduled,
	}
	classes := &classStoreStub{studentClasses: []models.ScheduledClass{existing}}
	f := newSchedulingFixture(testEngineConfig(), []models.Teacher{mathTeacher("t1")}, classes)

	result, err := f.svc.Schedule(context.Background(), dto.ScheduleRequest{StudentIDs: []string{"s1"}, CourseID: "course-math"})
	require.NoError(t, err)
	require.Len(t, result.ScheduledClasses, 1)

	class := result.ScheduledClasses[0]
	assert.Equal(t, models.ClassTypeIndividual, class.ClassType)
	assertInstant(t, at(2, 10), class.TimeSlot.StartTime)
	assert.Equal(t, 1, class.TimeSlot.Capacity.Max)
	assert.Empty(t, result.UnresolvedConflicts)
}

func TestScheduleWithoutTeacherReportsCriticalViolation(t *testing.T) {
	f := newSchedulingFixture(testEngineConfig(), nil, nil)

	result, err := f.svc.Schedule(context.Background(), dto.ScheduleRequest{StudentIDs: []string{"s1"}, CourseID: "course-math"})
	require.NoError(t, err)
	assert.Equal(t, models.StateCompleted, result.State)
	assert.False(t, result.Success)
	assert.Empty(t, result.ScheduledClasses)
	require.Len(t, result.UnresolvedConflicts, 1)
	assert.Equal(t, models.ConflictConstraintViolation, result.UnresolvedConflicts[0].Type)
	assert.Equal(t, models.SeverityCritical, result.UnresolvedConflicts[0].Severity)
}

func TestScheduleSnapshotFailureBecomesFailedResult(t *testing.T) {
	f := newSchedulingFixture(testEngineConfig(), nil, nil)
	f.svc.repos.Teachers = teacherRepoStub{err: errors.New("connection reset")}

	result, err := f.svc.Schedule(context.Background(), dto.ScheduleRequest{StudentIDs: []string{"s1"}, CourseID: "course-math"})
	require.NoError(t, err)
	assert.Equal(t, models.StateFailed, result.State)
	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, models.ErrorCategoryDataAccess, result.Error.Category)
	assert.Contains(t, result.Error.Message, "connection reset")

	stats := f.svc.Stats()
	assert.Equal(t, uint64(1), stats.Processed)
	assert.Equal(t, uint64(1), stats.Failed)
}

func TestScheduleRunsOptimizationWhenEnabled(t *testing.T) {
	cfg := testEngineConfig()
	cfg.EnableOptimization = true
	f := newSchedulingFixture(cfg, []models.Teacher{mathTeacher("t1"), mathTeacher("t2")}, nil)
	f.svc.optimizer = NewOptimizationService(fixedConfig{cfg: cfg}, nil, nil, nil, nil, nil)

	result, err := f.svc.Schedule(context.Background(), dto.ScheduleRequest{StudentIDs: []string{"s1", "s2"}, CourseID: "course-math"})
	require.NoError(t, err)
	assert.Equal(t, models.StateCompleted, result.State)
	assert.True(t, result.Success)
	require.NotNil(t, result.Optimization)
	assert.Len(t, result.Optimization.AlternativeSolutions, cfg.AlternativeSolutions)
	require.Len(t, result.ScheduledClasses, 1)
	assert.Equal(t, result.Optimization.ScheduledClasses, result.ScheduledClasses)
	assert.Empty(t, result.UnresolvedConflicts)
	assert.GreaterOrEqual(t, result.Optimization.ConfidenceScore, 0.0)
	assert.LessOrEqual(t, result.Optimization.ConfidenceScore, 1.0)
}

func TestScheduleCancelledRequestReturnsFailedResult(t *testing.T) {
	f := newSchedulingFixture(testEngineConfig(), []models.Teacher{mathTeacher("t1")}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := f.svc.Schedule(ctx, dto.ScheduleRequest{StudentIDs: []string{"s1"}, CourseID: "course-math"})
	require.NoError(t, err)
	assert.Equal(t, models.StateFailed, result.State)
	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, models.ErrorCategoryCancelled, result.Error.Category)

	stored, err := f.svc.GetResult(context.Background(), result.RequestID)
	require.NoError(t, err)
	assert.Equal(t, models.StateFailed, stored.State)
	assert.Equal(t, uint64(1), f.svc.Stats().Failed)
}

func TestScheduleReportsStudentOverlapLeftByRelaxedPlacement(t *testing.T) {
	cfg := testEngineConfig()
	cfg.HorizonDays = 1
	cfg.WorkingHourEnd = 11
	existing := models.ScheduledClass{
		ID:         "existing-1",
		CourseID:   "course-other",
		TeacherID:  "t9",
		StudentIDs: []string{"s1"},
		TimeSlot:   hourSlot(at(2, 9).Add(30*time.Minute), 4, 1, models.LocationOnline),
		Status:     models.ClassStatusScheduled,
	}
	classes := &classStoreStub{studentClasses: []models.ScheduledClass{existing}}
	f := newSchedulingFixture(cfg, []models.Teacher{mathTeacher("t1")}, classes)

	result, err := f.svc.Schedule(context.Background(), dto.ScheduleRequest{StudentIDs: []string{"s1"}, CourseID: "course-math"})
	require.NoError(t, err)
	assert.Equal(t, models.StateCompleted, result.State)
	assert.True(t, result.Success)
	require.Len(t, result.ScheduledClasses, 1)
	assert.Contains(t, result.ScheduledClasses[0].Rationale, "no conflict-free slot was available")

	require.Len(t, result.UnresolvedConflicts, 1)
	overlap := result.UnresolvedConflicts[0]
	assert.Equal(t, models.ConflictTimeOverlap, overlap.Type)
	assert.Equal(t, models.SeverityHigh, overlap.Severity)
	assert.Equal(t, "s1", overlap.ResourceID)
	assert.Contains(t, overlap.ClassIDs, "existing-1")
	assert.False(t, overlap.Resolved)
	assert.Equal(t, 1, result.Metrics.UnresolvedConflicts)
}

func TestGetResultUnknownRequest(t *testing.T) {
	f := newSchedulingFixture(testEngineConfig(), nil, nil)

	_, err := f.svc.GetResult(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}

func TestCommitRetriesRejectedClassAtRunnerUp(t *testing.T) {
	classes := &classStoreStub{commit: func(call int, class *models.ScheduledClass) models.CommitOutcome {
		if call == 1 {
			return models.CommitOutcome{RejectedDueToConflict: true, Reason: "slot taken"}
		}
		return models.CommitOutcome{Accepted: true}
	}}
	f := newSchedulingFixture(testEngineConfig(), []models.Teacher{mathTeacher("t1")}, classes)
	result, err := f.svc.Schedule(context.Background(), dto.ScheduleRequest{StudentIDs: []string{"s1", "s2"}, CourseID: "course-math"})
	require.NoError(t, err)

	committed, err := f.svc.Commit(context.Background(), result.RequestID)
	require.NoError(t, err)
	assert.True(t, committed.Committed)
	assert.True(t, committed.Success)
	assert.Nil(t, committed.Error)
	require.Len(t, committed.ScheduledClasses, 1)
	assertInstant(t, at(2, 10), committed.ScheduledClasses[0].TimeSlot.StartTime)
	assert.Contains(t, committed.ScheduledClasses[0].Rationale, "relocated to resolve constraint_violation")

	require.Len(t, classes.committed, 1)
	assertInstant(t, at(2, 10), classes.committed[0].TimeSlot.StartTime)

	var retried *models.SchedulingConflict
	for i := range committed.Conflicts {
		if committed.Conflicts[i].Type == models.ConflictConstraintViolation {
			retried = &committed.Conflicts[i]
		}
	}
	require.NotNil(t, retried)
	assert.True(t, retried.Resolved)

	again, err := f.svc.Commit(context.Background(), result.RequestID)
	require.NoError(t, err)
	assert.True(t, again.Committed)
	assert.Equal(t, 2, classes.calls)
}

func TestCommitSecondRejectionIsCritical(t *testing.T) {
	classes := &classStoreStub{commit: func(call int, class *models.ScheduledClass) models.CommitOutcome {
		return models.CommitOutcome{RejectedDueToConflict: true, Reason: "slot taken"}
	}}
	f := newSchedulingFixture(testEngineConfig(), []models.Teacher{mathTeacher("t1")}, classes)
	result, err := f.svc.Schedule(context.Background(), dto.ScheduleRequest{StudentIDs: []string{"s1", "s2"}, CourseID: "course-math"})
	require.NoError(t, err)

	committed, err := f.svc.Commit(context.Background(), result.RequestID)
	require.NoError(t, err)
	assert.False(t, committed.Committed)
	assert.False(t, committed.Success)
	require.NotNil(t, committed.Error)
	assert.Equal(t, models.ErrorCategoryCommit, committed.Error.Category)
	assert.Contains(t, committed.Error.Message, appErrors.ErrCommitConflict.Message)
	require.Len(t, committed.UnresolvedConflicts, 1)
	assert.Equal(t, models.SeverityCritical, committed.UnresolvedConflicts[0].Severity)
	assert.Equal(t, 2, classes.calls)
	assert.Empty(t, classes.committed)
}

func TestCommitRefusesCriticalUnresolvedResult(t *testing.T) {
	f := newSchedulingFixture(testEngineConfig(), nil, nil)
	result, err := f.svc.Schedule(context.Background(), dto.ScheduleRequest{StudentIDs: []string{"s1"}, CourseID: "course-math"})
	require.NoError(t, err)

	_, err = f.svc.Commit(context.Background(), result.RequestID)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict.Code))
}
