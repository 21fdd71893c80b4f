package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-scheduler/internal/models"
	"github.com/noah-isme/academy-scheduler/internal/scoring"
	appErrors "github.com/noah-isme/academy-scheduler/pkg/errors"
	applog "github.com/noah-isme/academy-scheduler/pkg/logger"
)

const (
	benefitThreshold       = 0.8
	considerationThreshold = 0.6
)

type makeUpClassReader interface {
	FindByID(ctx context.Context, id string) (*models.ScheduledClass, error)
	ListOpenByCourseType(ctx context.Context, courseType string, from, to time.Time) ([]models.ScheduledClass, error)
}

type makeUpPreferenceReader interface {
	GetByStudent(ctx context.Context, studentID string) (*models.StudentSchedulePreferences, error)
}

// MakeUpService ranks replacement classes for a postponed class.
type MakeUpService struct {
	classes     makeUpClassReader
	courses     schedulingCourseReader
	preferences makeUpPreferenceReader
	content     similarityScorer
	config      engineConfigSource
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
}

// NewMakeUpService constructs the make-up engine. preferences and content may be nil.
func NewMakeUpService(classes makeUpClassReader, courses schedulingCourseReader, preferences makeUpPreferenceReader, content similarityScorer, config engineConfigSource, metrics *MetricsService, logger *zap.Logger) *MakeUpService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MakeUpService{
		classes:     classes,
		courses:     courses,
		preferences: preferences,
		content:     content,
		config:      config,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

type scoredCandidate struct {
	class  models.ScheduledClass
	scores scoring.Scores
	total  float64
}

// GenerateSuggestions scores every open class of the postponed class's course type,
// drops candidates under the thresholds, applies per-teacher and per-day caps in
// score order and returns at most the configured number of suggestions.
func (s *MakeUpService) GenerateSuggestions(ctx context.Context, req models.MakeUpSuggestionRequest) ([]models.DetailedMakeUpSuggestion, error) {
	if req.StudentID == "" || req.PostponedClassID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "studentId and postponedClassId are required")
	}
	cfg := s.config.Current()

	original, err := s.classes.FindByID(ctx, req.PostponedClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "postponed class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load postponed class")
	}
	courseType := original.CourseType
	if courseType == "" {
		course, err := s.courses.FindByID(ctx, original.CourseID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "course of postponed class not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
		}
		courseType = course.CourseType
	}

	prefs := s.resolvePreferences(ctx, req)
	now := s.now()
	from := now.Add(time.Duration(prefs.NoticeHours()) * time.Hour)
	if req.WindowStart != nil && req.WindowStart.After(from) {
		from = *req.WindowStart
	}
	to := now.AddDate(0, 0, cfg.MakeUpWindowDays)
	if req.WindowEnd != nil {
		to = *req.WindowEnd
	}
	if !to.After(from) {
		s.metrics.ObserveSuggestions(0)
		return []models.DetailedMakeUpSuggestion{}, nil
	}

	open, err := s.classes.ListOpenByCourseType(ctx, courseType, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load candidate classes")
	}
	candidates := filterMakeUpCandidates(open, original, req, from, to)

	teacherSlots := make(map[string][]models.TimeSlot)
	for _, c := range candidates {
		teacherSlots[c.TeacherID] = append(teacherSlots[c.TeacherID], c.TimeSlot)
	}

	similarity := s.similarityFunc(ctx)
	var scored []scoredCandidate
	for _, candidate := range candidates {
		content, err := scoring.ContentScore(courseType, candidate.CourseType, original.CourseID, candidate.CourseID, similarity)
		if err != nil {
			s.metrics.RecordDegraded("content")
			s.logger.Warn("degraded",
				zap.String("dimension", "content"),
				zap.String("class_id", candidate.ID),
				zap.Float64("fallback", content),
				zap.Error(err),
			)
		}
		scores := scoring.Scores{
			Content:      content,
			Schedule:     scoring.ScheduleScore(prefs, teacherSlots[candidate.TeacherID]),
			Teacher:      scoring.TeacherScore(original.TeacherID, candidate.TeacherID, prefs),
			ClassSize:    scoring.ClassSizeScore(candidate.TimeSlot.Capacity.CurrentEnrollment+1, *prefs.PreferredClassSizeRange),
			Location:     scoring.LocationScore(candidate.TimeSlot),
			Timing:       scoring.TimingScore(),
			Availability: scoring.AvailabilityScore(candidate.TimeSlot.AvailableSpots(), candidate.TimeSlot.Capacity.Max),
		}
		total := cfg.MakeUpWeights.Composite(scores)
		if total < cfg.MakeUpThresholds.Overall || scores.Content < cfg.MakeUpThresholds.Content || scores.Schedule < cfg.MakeUpThresholds.Schedule {
			continue
		}
		scored = append(scored, scoredCandidate{class: candidate, scores: scores, total: total})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.total != b.total {
			return a.total > b.total
		}
		if !a.class.TimeSlot.StartTime.Equal(b.class.TimeSlot.StartTime) {
			return a.class.TimeSlot.StartTime.Before(b.class.TimeSlot.StartTime)
		}
		return a.class.ID < b.class.ID
	})

	limit := cfg.MaxSuggestions
	if req.MaxSuggestions > 0 {
		limit = req.MaxSuggestions
	}
	loc := cfg.Location()
	perTeacher := make(map[string]int)
	perDay := make(map[string]int)
	suggestions := make([]models.DetailedMakeUpSuggestion, 0, limit)
	for _, candidate := range scored {
		if len(suggestions) >= limit {
			break
		}
		day := candidate.class.TimeSlot.StartTime.In(loc).Format("2006-01-02")
		if perTeacher[candidate.class.TeacherID] >= cfg.MaxSuggestionsPerTeacher || perDay[day] >= cfg.MaxSuggestionsPerDay {
			continue
		}
		perTeacher[candidate.class.TeacherID]++
		perDay[day]++
		suggestions = append(suggestions, buildSuggestion(candidate, cfg.TierThresholds))
	}

	s.metrics.ObserveSuggestions(len(suggestions))
	applog.FromContext(ctx, s.logger).Info("make-up suggestions generated",
		zap.String("student_id", req.StudentID),
		zap.String("postponed_class_id", req.PostponedClassID),
		zap.Int("candidates", len(candidates)),
		zap.Int("suggestions", len(suggestions)),
	)
	return suggestions, nil
}

// resolvePreferences prefers explicit preferences, then stored ones, then defaults.
func (s *MakeUpService) resolvePreferences(ctx context.Context, req models.MakeUpSuggestionRequest) models.StudentSchedulePreferences {
	if req.Preferences != nil {
		return req.Preferences.WithDefaults()
	}
	if s.preferences != nil {
		stored, err := s.preferences.GetByStudent(ctx, req.StudentID)
		switch {
		case err == nil && stored != nil:
			return stored.WithDefaults()
		case err != nil && !errors.Is(err, sql.ErrNoRows):
			s.logger.Warn("degraded", zap.String("dimension", "preferences"), zap.String("student_id", req.StudentID), zap.Error(err))
			s.metrics.RecordDegraded("preferences")
		}
	}
	return models.DefaultStudentSchedulePreferences()
}

func (s *MakeUpService) similarityFunc(ctx context.Context) scoring.SimilarityFunc {
	if s.content == nil {
		return nil
	}
	return func(a, b string) (float64, error) {
		return s.content.Similarity(ctx, a, b)
	}
}

func filterMakeUpCandidates(open []models.ScheduledClass, original *models.ScheduledClass, req models.MakeUpSuggestionRequest, from, to time.Time) []models.ScheduledClass {
	excludedClasses := make(map[string]bool, len(req.ExcludedClassIDs))
	for _, id := range req.ExcludedClassIDs {
		excludedClasses[id] = true
	}
	excludedTeachers := make(map[string]bool, len(req.ExcludedTeacherIDs))
	for _, id := range req.ExcludedTeacherIDs {
		excludedTeachers[id] = true
	}
	var out []models.ScheduledClass
	for _, c := range open {
		switch {
		case c.ID == original.ID,
			c.Status != models.ClassStatusScheduled,
			c.TimeSlot.AvailableSpots() <= 0,
			c.TimeSlot.StartTime.Before(from),
			c.TimeSlot.StartTime.After(to),
			c.HasStudent(req.StudentID),
			excludedClasses[c.ID],
			excludedTeachers[c.TeacherID]:
			continue
		}
		out = append(out, c)
	}
	return out
}

func buildSuggestion(candidate scoredCandidate, tiers scoring.TierThresholds) models.DetailedMakeUpSuggestion {
	scores := candidate.scores
	benefits, considerations := describeScores(scores)
	return models.DetailedMakeUpSuggestion{
		ClassID:                   candidate.class.ID,
		TeacherID:                 candidate.class.TeacherID,
		CourseID:                  candidate.class.CourseID,
		TimeSlot:                  candidate.class.TimeSlot,
		ContentCompatibility:      scores.Content,
		ScheduleCompatibility:     scores.Schedule,
		TeacherCompatibility:      scores.Teacher,
		ClassSizeCompatibility:    scores.ClassSize,
		LocationCompatibility:     scores.Location,
		TimingCompatibility:       scores.Timing,
		AvailabilityScore:         scores.Availability,
		OverallCompatibilityScore: candidate.total,
		RecommendationStrength:    scoring.Tier(candidate.total, tiers),
		Benefits:                  benefits,
		Considerations:            considerations,
	}
}

type scoreText struct {
	value         float64
	benefit       string
	consideration string
}

func describeScores(s scoring.Scores) ([]string, []string) {
	dimensions := []scoreText{
		{s.Content, "covers the same content as the postponed class", "content differs from the postponed class"},
		{s.Schedule, "teacher teaches on your preferred days", "teacher rarely teaches on your preferred days"},
		{s.Teacher, "familiar or preferred teacher", "teacher is not on your preferred list"},
		{s.ClassSize, "class size matches your preference", "class size is outside your preferred range"},
		{s.Location, "convenient location", "location may be less convenient"},
		{s.Timing, "good time of day for learning", "time of day may be less effective"},
		{s.Availability, "plenty of open seats", "only a few seats left"},
	}
	benefits := []string{}
	considerations := []string{}
	for _, d := range dimensions {
		switch {
		case d.value > benefitThreshold:
			benefits = append(benefits, d.benefit)
		case d.value < considerationThreshold:
			considerations = append(considerations, d.consideration)
		}
	}
	return benefits, considerations
}
