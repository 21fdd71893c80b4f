package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/academy-scheduler/internal/models"
	"github.com/noah-isme/academy-scheduler/pkg/jobs"
)

// monday0700 is Monday 2 March 2026, 07:00 UTC.
var monday0700 = time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)

func at(day, hour int) time.Time {
	return time.Date(2026, 3, day, hour, 0, 0, 0, time.UTC)
}

func hourSlot(start time.Time, max, enrolled int, location string) models.TimeSlot {
	return models.TimeSlot{
		ID:        "slot-" + start.Format("20060102T1504"),
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		DayOfWeek: start.Weekday(),
		Capacity:  models.SlotCapacity{Max: max, Min: 1, CurrentEnrollment: enrolled},
		Location:  location,
	}
}

type fixedConfig struct {
	cfg EngineConfig
}

func (f fixedConfig) Current() EngineConfig {
	return f.cfg.Clone()
}

func testEngineConfig() EngineConfig {
	return DefaultEngineConfig()
}

type courseRepoStub struct {
	courses map[string]models.Course
}

func (s courseRepoStub) FindByID(ctx context.Context, id string) (*models.Course, error) {
	course, ok := s.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &course, nil
}

type studentRepoStub struct {
	missing map[string]bool
}

func (s studentRepoStub) ListByIDs(ctx context.Context, ids []string) ([]models.Student, error) {
	var out []models.Student
	for _, id := range ids {
		if s.missing[id] {
			continue
		}
		out = append(out, models.Student{ID: id, Active: true})
	}
	return out, nil
}

type teacherRepoStub struct {
	teachers []models.Teacher
	err      error
}

func (s teacherRepoStub) ListBySpecialization(ctx context.Context, courseType string) ([]models.Teacher, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Teacher
	for _, t := range s.teachers {
		if t.HasSpecialization(courseType) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s teacherRepoStub) ListByIDs(ctx context.Context, ids []string) ([]models.Teacher, error) {
	var out []models.Teacher
	for _, t := range s.teachers {
		if containsID(ids, t.ID) {
			out = append(out, t)
		}
	}
	return out, nil
}

type teacherPrefStub struct {
	prefs map[string]models.TeacherPreference
}

func (s teacherPrefStub) ListByTeachers(ctx context.Context, ids []string) (map[string]models.TeacherPreference, error) {
	out := make(map[string]models.TeacherPreference)
	for _, id := range ids {
		if pref, ok := s.prefs[id]; ok {
			out[id] = pref
		}
	}
	return out, nil
}

type progressStub struct{}

func (progressStub) ListByStudents(ctx context.Context, ids []string, courseID string) ([]models.StudentProgress, error) {
	out := make([]models.StudentProgress, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.StudentProgress{StudentID: id, CourseID: courseID, ProgressPercentage: 40})
	}
	return out, nil
}

type studentPrefStub struct {
	prefs map[string]models.StudentSchedulePreferences
	err   error
}

func (s studentPrefStub) ListByStudents(ctx context.Context, ids []string) (map[string]models.StudentSchedulePreferences, error) {
	out := make(map[string]models.StudentSchedulePreferences)
	for _, id := range ids {
		if p, ok := s.prefs[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (s studentPrefStub) GetByStudent(ctx context.Context, id string) (*models.StudentSchedulePreferences, error) {
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.prefs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &p, nil
}

type classStoreStub struct {
	mu             sync.Mutex
	byID           map[string]models.ScheduledClass
	studentClasses []models.ScheduledClass
	teacherClasses []models.ScheduledClass
	open           []models.ScheduledClass
	commit         func(call int, class *models.ScheduledClass) models.CommitOutcome
	calls          int
	committed      []models.ScheduledClass
}

func (s *classStoreStub) FindByID(ctx context.Context, id string) (*models.ScheduledClass, error) {
	class, ok := s.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &class, nil
}

func (s *classStoreStub) ListByStudents(ctx context.Context, ids []string, from, to time.Time) ([]models.ScheduledClass, error) {
	return s.studentClasses, nil
}

func (s *classStoreStub) ListByTeachers(ctx context.Context, ids []string, from, to time.Time) ([]models.ScheduledClass, error) {
	return s.teacherClasses, nil
}

func (s *classStoreStub) ListOpenByCourseType(ctx context.Context, courseType string, from, to time.Time) ([]models.ScheduledClass, error) {
	var out []models.ScheduledClass
	for _, class := range s.open {
		if class.CourseType == courseType {
			out = append(out, class)
		}
	}
	return out, nil
}

func (s *classStoreStub) Commit(ctx context.Context, class *models.ScheduledClass) (models.CommitOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	outcome := models.CommitOutcome{Accepted: true}
	if s.commit != nil {
		outcome = s.commit(s.calls, class)
	}
	if outcome.Accepted {
		s.committed = append(s.committed, *class)
	}
	return outcome, nil
}

type similarityStub struct {
	scores map[string]float64
	err    error
}

func (s similarityStub) Similarity(ctx context.Context, a, b string) (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.scores[a+"|"+b], nil
}

type queueStub struct {
	jobs     []jobs.Job
	err      error
	capacity int
}

func (q *queueStub) TryEnqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *queueStub) Depth() int    { return len(q.jobs) }
func (q *queueStub) Capacity() int { return q.capacity }

func mathTeacher(id string) models.Teacher {
	return models.Teacher{ID: id, FullName: "Teacher " + id, Specializations: []string{"math"}, Active: true}
}

type schedulingFixture struct {
	svc     *SchedulingService
	classes *classStoreStub
	queue   *queueStub
}

func newSchedulingFixture(cfg EngineConfig, teachers []models.Teacher, classes *classStoreStub) schedulingFixture {
	if classes == nil {
		classes = &classStoreStub{}
	}
	repos := SchedulingRepositories{
		Students: studentRepoStub{},
		Courses: courseRepoStub{courses: map[string]models.Course{
			"course-math": {ID: "course-math", Name: "Algebra", CourseType: "math", DifficultyLevel: 2, DurationMinutes: 60},
		}},
		Teachers:           teacherRepoStub{teachers: teachers},
		TeacherPreferences: teacherPrefStub{},
		Progress:           progressStub{},
		Preferences:        studentPrefStub{},
		Classes:            classes,
	}
	svc := NewSchedulingService(repos, fixedConfig{cfg: cfg}, nil, nil, nil, nil, nil, nil, SchedulingServiceConfig{})
	svc.now = func() time.Time { return monday0700 }
	return schedulingFixture{svc: svc, classes: classes}
}

func assertInstant(t *testing.T, expected, actual time.Time) {
	t.Helper()
	assert.Truef(t, expected.Equal(actual), "expected %s, got %s", expected, actual)
}
