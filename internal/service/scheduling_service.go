package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/academy-scheduler/internal/dto"
	"github.com/noah-isme/academy-scheduler/internal/models"
	"github.com/noah-isme/academy-scheduler/internal/scoring"
	appErrors "github.com/noah-isme/academy-scheduler/pkg/errors"
	"github.com/noah-isme/academy-scheduler/pkg/jobs"
	applog "github.com/noah-isme/academy-scheduler/pkg/logger"
)

const (
	recommendationPriorityTimeSlot     = 3
	recommendationPriorityClass        = 2
	recommendationPrioritySimilarClass = 1
	runnerUpsPerClass                  = 3
)

type schedulingStudentReader interface {
	ListByIDs(ctx context.Context, ids []string) ([]models.Student, error)
}

type schedulingCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type schedulingTeacherReader interface {
	ListBySpecialization(ctx context.Context, courseType string) ([]models.Teacher, error)
}

type studentProgressReader interface {
	ListByStudents(ctx context.Context, studentIDs []string, courseID string) ([]models.StudentProgress, error)
}

type studentPreferenceReader interface {
	ListByStudents(ctx context.Context, studentIDs []string) (map[string]models.StudentSchedulePreferences, error)
}

type scheduleClassStore interface {
	ListByStudents(ctx context.Context, studentIDs []string, from, to time.Time) ([]models.ScheduledClass, error)
	ListByTeachers(ctx context.Context, teacherIDs []string, from, to time.Time) ([]models.ScheduledClass, error)
	ListOpenByCourseType(ctx context.Context, courseType string, from, to time.Time) ([]models.ScheduledClass, error)
	Commit(ctx context.Context, class *models.ScheduledClass) (models.CommitOutcome, error)
}

type similarityScorer interface {
	Similarity(ctx context.Context, courseA, courseB string) (float64, error)
}

type scheduleOptimizer interface {
	Optimize(ctx context.Context, decisions []models.SchedulingDecision, constraints models.OptimizationConstraints) (*models.OptimizationSolution, error)
}

type scheduleQueue interface {
	TryEnqueue(job jobs.Job) error
	Depth() int
	Capacity() int
}

// SchedulingRepositories groups the read snapshots and the commit boundary.
type SchedulingRepositories struct {
	Students           schedulingStudentReader
	Courses            schedulingCourseReader
	Teachers           schedulingTeacherReader
	TeacherPreferences teacherPreferenceLookup
	Progress           studentProgressReader
	Preferences        studentPreferenceReader
	Classes            scheduleClassStore
}

// SchedulingServiceConfig tunes request handling outside the hot-swappable engine config.
type SchedulingServiceConfig struct {
	RequestTimeout time.Duration
	ResultTTL      time.Duration
}

// SchedulingService turns scheduling requests into conflict-checked class assignments.
type SchedulingService struct {
	repos     SchedulingRepositories
	config    engineConfigSource
	content   similarityScorer
	optimizer scheduleOptimizer
	queue     scheduleQueue
	detector  *ConflictDetector
	resolver  *ConflictResolver
	results   *resultStore
	inflight  *inFlightRegistry
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	timeout   time.Duration
	now       func() time.Time
}

// NewSchedulingService wires the processor. content, optimizer and cache may be nil.
func NewSchedulingService(
	repos SchedulingRepositories,
	config engineConfigSource,
	content similarityScorer,
	optimizer scheduleOptimizer,
	cache resultCache,
	validate *validator.Validate,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg SchedulingServiceConfig,
) *SchedulingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	return &SchedulingService{
		repos:     repos,
		config:    config,
		content:   content,
		optimizer: optimizer,
		detector:  NewConflictDetector(),
		resolver:  NewConflictResolver(),
		results:   newResultStore(cfg.ResultTTL, cache, logger),
		inflight:  newInFlightRegistry(),
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		timeout:   cfg.RequestTimeout,
		now:       time.Now,
	}
}

// UseQueue enables asynchronous scheduling through q.
func (s *SchedulingService) UseQueue(q scheduleQueue) {
	s.queue = q
}

// QueueDepth reports queued plus running async jobs.
func (s *SchedulingService) QueueDepth() int {
	if s == nil || s.queue == nil {
		return 0
	}
	return s.queue.Depth()
}

// Schedule validates req and processes it synchronously. Only validation failures are
// returned as errors; every later failure is reported inside a failed result.
func (s *SchedulingService) Schedule(ctx context.Context, req dto.ScheduleRequest) (*models.SchedulingResult, error) {
	cfg := s.config.Current()
	request, course, err := s.validate(ctx, cfg, req)
	if err != nil {
		s.metrics.RecordScheduling("rejected", 0)
		return nil, err
	}
	return s.process(ctx, cfg, request, course, false), nil
}

// GetResult returns a stored result, or a placeholder when the request is still queued or running.
func (s *SchedulingService) GetResult(ctx context.Context, requestID string) (*models.SchedulingResult, error) {
	if state, ok := s.inflight.State(requestID); ok {
		return &models.SchedulingResult{RequestID: requestID, State: state}, nil
	}
	result, ok := s.results.Get(ctx, requestID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "scheduling result not found")
	}
	return &result, nil
}

func (s *SchedulingService) validate(ctx context.Context, cfg EngineConfig, req dto.ScheduleRequest) (models.SchedulingRequest, *models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.SchedulingRequest{}, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scheduling request")
	}
	request := req.ToModel(s.now())
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if len(request.StudentIDs) == 0 {
		return request, nil, appErrors.Clone(appErrors.ErrValidation, "at least one student is required")
	}
	if len(request.StudentIDs) > cfg.MaxStudentsPerClass {
		return request, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("Cannot schedule more than %d students per class", cfg.MaxStudentsPerClass))
	}
	seen := make(map[string]bool, len(request.StudentIDs))
	for _, id := range request.StudentIDs {
		if seen[id] {
			return request, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate student id %s", id))
		}
		seen[id] = true
	}
	if c := request.Constraints; c != nil && c.EarliestStart != nil && c.LatestEnd != nil && !c.LatestEnd.After(*c.EarliestStart) {
		return request, nil, appErrors.Clone(appErrors.ErrValidation, "latestEnd must be after earliestStart")
	}

	course, err := s.repos.Courses.FindByID(ctx, request.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return request, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("course %s not found", request.CourseID))
		}
		return request, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	students, err := s.repos.Students.ListByIDs(ctx, request.StudentIDs)
	if err != nil {
		return request, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	found := make(map[string]bool, len(students))
	for _, student := range students {
		found[student.ID] = true
	}
	var missing []string
	for _, id := range request.StudentIDs {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return request, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("students not found: %s", strings.Join(missing, ", ")))
	}
	return request, course, nil
}

type schedulingSnapshot struct {
	progress       []models.StudentProgress
	preferences    map[string]models.StudentSchedulePreferences
	teachers       []models.Teacher
	teacherPrefs   map[string]models.TeacherPreference
	studentClasses []models.ScheduledClass
	teacherClasses []models.ScheduledClass
	openClasses    []models.ScheduledClass
}

// gather reads every snapshot the request needs. Reads run concurrently and share the
// request deadline; the first failure cancels the rest.
func (s *SchedulingService) gather(ctx context.Context, cfg EngineConfig, request models.SchedulingRequest, course *models.Course) (*schedulingSnapshot, error) {
	snap := &schedulingSnapshot{}
	from := s.now()
	to := from.AddDate(0, 0, cfg.HorizonDays)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.timed("progress", func() (err error) {
			snap.progress, err = s.repos.Progress.ListByStudents(gctx, request.StudentIDs, course.ID)
			return err
		})
	})
	g.Go(func() error {
		return s.timed("preferences", func() (err error) {
			snap.preferences, err = s.repos.Preferences.ListByStudents(gctx, request.StudentIDs)
			return err
		})
	})
	g.Go(func() error {
		return s.timed("teachers", func() (err error) {
			snap.teachers, err = s.repos.Teachers.ListBySpecialization(gctx, course.CourseType)
			return err
		})
	})
	g.Go(func() error {
		return s.timed("student_classes", func() (err error) {
			snap.studentClasses, err = s.repos.Classes.ListByStudents(gctx, request.StudentIDs, from, to)
			return err
		})
	})
	g.Go(func() error {
		return s.timed("open_classes", func() (err error) {
			snap.openClasses, err = s.repos.Classes.ListOpenByCourseType(gctx, course.CourseType, from, to)
			return err
		})
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(snap.teachers) == 0 {
		return snap, nil
	}
	teacherIDs := make([]string, 0, len(snap.teachers))
	for _, teacher := range snap.teachers {
		teacherIDs = append(teacherIDs, teacher.ID)
	}
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.timed("teacher_preferences", func() (err error) {
			snap.teacherPrefs, err = s.repos.TeacherPreferences.ListByTeachers(gctx, teacherIDs)
			return err
		})
	})
	g.Go(func() error {
		return s.timed("teacher_classes", func() (err error) {
			snap.teacherClasses, err = s.repos.Classes.ListByTeachers(gctx, teacherIDs, from, to)
			return err
		})
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *SchedulingService) timed(label string, read func() error) error {
	start := time.Now()
	err := read()
	s.metrics.ObserveSnapshot(label, time.Since(start))
	if err != nil {
		return fmt.Errorf("read %s snapshot: %w", label, err)
	}
	return nil
}

// process runs a validated request through generation, conflict handling, optimization
// and recommendation. It never returns an error; failures become a failed result.
// With retryTransient set, a data-access failure puts the request back to idle
// instead of publishing the failed result, so a queue retry can pick it up.
func (s *SchedulingService) process(ctx context.Context, cfg EngineConfig, request models.SchedulingRequest, course *models.Course, retryTransient bool) (result *models.SchedulingResult) {
	start := time.Now()
	parent := ctx
	log := applog.FromContext(ctx, s.logger)
	result = &models.SchedulingResult{
		RequestID:           request.ID,
		State:               models.StateProcessing,
		ScheduledClasses:    []models.ScheduledClass{},
		Conflicts:           []models.SchedulingConflict{},
		UnresolvedConflicts: []models.SchedulingConflict{},
		Recommendations:     []models.SchedulingRecommendation{},
	}
	s.inflight.Transition(request.ID, models.StateProcessing)
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("scheduling panicked", zap.String("request_id", request.ID), zap.Any("panic", rec))
			s.fail(result, models.ErrorCategoryAlgorithm, fmt.Sprintf("internal scheduling error: %v", rec))
		}
		elapsed := time.Since(start)
		result.Metrics.ProcessingTimeMs = elapsed.Milliseconds()
		result.Metrics.StudentsProcessed = len(request.StudentIDs)
		result.CompletedAt = s.now().UTC()
		if retryTransient && transientFailure(parent, result) {
			s.inflight.Transition(request.ID, models.StateIdle)
			s.metrics.RecordScheduling("retrying", elapsed)
			log.Warn("scheduling attempt failed, awaiting retry", zap.String("request_id", request.ID), zap.String("error", result.Error.Message), zap.Duration("elapsed", elapsed))
			return
		}
		// Stored before the in-flight entry clears so GetResult never misses a finished request.
		s.results.Save(context.WithoutCancel(parent), *result)
		s.inflight.Transition(request.ID, result.State)
		s.metrics.RecordScheduling(string(result.State), elapsed)
		fields := []zap.Field{
			zap.String("request_id", request.ID),
			zap.String("state", string(result.State)),
			zap.Bool("success", result.Success),
			zap.Int("classes", len(result.ScheduledClasses)),
			zap.Int("unresolved", len(result.UnresolvedConflicts)),
			zap.Duration("elapsed", elapsed),
		}
		if result.Error != nil {
			fields = append(fields, zap.String("error_category", string(result.Error.Category)), zap.String("error", result.Error.Message))
			log.Warn("scheduling request failed", fields...)
			return
		}
		log.Info("scheduling request completed", fields...)
	}()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	snap, err := s.gather(ctx, cfg, request, course)
	if err != nil {
		s.fail(result, failureCategory(ctx, err), err.Error())
		return result
	}

	planner, err := s.newPlanner(cfg, request, course, snap)
	if err != nil {
		s.fail(result, models.ErrorCategoryAlgorithm, err.Error())
		return result
	}

	classType := resolveClassType(request)
	decisions, runnerUps, generationConflicts := s.generate(planner, request, course, classType, snap)

	locked := lockedDecisions(snap.studentClasses, snap.teacherClasses)
	batch := append(append([]models.SchedulingDecision(nil), locked...), decisions...)
	newIDs := make(map[string]bool, len(decisions))
	for _, dec := range decisions {
		newIDs[dec.Class.ID] = true
	}

	detected := filterConflicts(s.detector.Detect(batch), newIDs)
	resolved, _ := s.resolver.Resolve(batch, detected, planner)
	unresolved := filterConflicts(s.detector.Detect(batch), newIDs)
	markResolved(detected, resolved)
	for _, conflict := range detected {
		outcome := "unresolved"
		if conflict.Resolved {
			outcome = "resolved"
		}
		s.metrics.RecordConflict(string(conflict.Type), outcome)
	}

	classes := classesOf(batch, newIDs)
	if err := ctx.Err(); err != nil {
		s.fail(result, models.ErrorCategoryCancelled, err.Error())
		return result
	}

	if cfg.EnableOptimization && s.optimizer != nil && len(classes) > 0 {
		solution, err := s.optimizer.Optimize(ctx, batch, models.OptimizationConstraints{
			Teachers:           snap.teachers,
			TeacherPreferences: snap.teacherPrefs,
			CandidateSlots:     planner.slots,
			Courses:            map[string]models.Course{course.ID: *course},
			MaxClassSize:       maxClassSize(request),
			AlternativeCount:   cfg.AlternativeSolutions,
		})
		if err != nil {
			s.fail(result, failureCategory(ctx, err), err.Error())
			return result
		}
		result.Optimization = solution
		classes = solution.ScheduledClasses
		optimized := append(append([]models.SchedulingDecision(nil), locked...), decisionsOf(classes, request.Priority)...)
		unresolved = filterConflicts(s.detector.Detect(optimized), newIDs)
	}

	result.ScheduledClasses = classes
	result.Conflicts = append(detected, generationConflicts...)
	result.UnresolvedConflicts = append(unresolved, generationConflicts...)
	result.Recommendations = s.recommend(ctx, cfg, request, course, classes, runnerUps, snap.openClasses)

	resolvedCount := len(detected) - len(unresolved)
	if resolvedCount < 0 {
		resolvedCount = 0
	}
	result.Metrics.ClassesScheduled = len(classes)
	result.Metrics.ConflictsDetected = len(result.Conflicts)
	result.Metrics.ConflictsResolved = resolvedCount
	result.Metrics.UnresolvedConflicts = len(result.UnresolvedConflicts)
	result.Metrics.ResourceUtilization = resourceUtilization(classes)

	result.State = models.StateCompleted
	result.Success = !result.HasCriticalUnresolved()
	return result
}

func (s *SchedulingService) fail(result *models.SchedulingResult, category models.ErrorCategory, message string) {
	result.State = models.StateFailed
	result.Success = false
	result.Error = &models.SchedulingError{Category: category, Message: message}
}

// transientFailure reports a snapshot read failure that a later attempt may not hit.
func transientFailure(ctx context.Context, result *models.SchedulingResult) bool {
	return result.State == models.StateFailed && result.Error != nil &&
		result.Error.Category == models.ErrorCategoryDataAccess && ctx.Err() == nil
}

func failureCategory(ctx context.Context, err error) models.ErrorCategory {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return models.ErrorCategoryCancelled
	}
	if appErrors.HasCode(err, appErrors.ErrAlgorithm.Code) {
		return models.ErrorCategoryAlgorithm
	}
	return models.ErrorCategoryDataAccess
}

func (s *SchedulingService) newPlanner(cfg EngineConfig, request models.SchedulingRequest, course *models.Course, snap *schedulingSnapshot) (*slotPlanner, error) {
	planner := newSlotPlanner(cfg, course.DurationMinutes)
	planner.constraints = request.Constraints
	planner.preferred = request.PreferredTimeSlots
	for id, prefs := range snap.preferences {
		planner.prefs[id] = prefs
	}
	for _, teacher := range snap.teachers {
		if !teacher.HasSpecialization(course.CourseType) {
			continue
		}
		planner.teachers = append(planner.teachers, teacher)
		var pref *models.TeacherPreference
		if p, ok := snap.teacherPrefs[teacher.ID]; ok {
			pref = &p
		}
		planner.availability[teacher.ID] = buildTeacherAvailability(pref, planner.loc)
	}
	seen := make(map[string]bool)
	for _, class := range append(append([]models.ScheduledClass(nil), snap.studentClasses...), snap.teacherClasses...) {
		if seen[class.ID] || class.Status != models.ClassStatusScheduled {
			continue
		}
		seen[class.ID] = true
		if avail := planner.availability[class.TeacherID]; avail != nil {
			avail.Reserve(class.TimeSlot)
		}
		for _, id := range class.StudentIDs {
			planner.studentBusy[id] = append(planner.studentBusy[id], class.TimeSlot)
		}
	}
	if _, err := planner.EnumerateSlots(s.now()); err != nil {
		return nil, err
	}
	return planner, nil
}

// generate places one class per planning unit. Group requests form a single unit;
// individual requests form one unit per student in ID order.
func (s *SchedulingService) generate(planner *slotPlanner, request models.SchedulingRequest, course *models.Course, classType models.ClassType, snap *schedulingSnapshot) ([]models.SchedulingDecision, map[string][]ScoredSlot, []models.SchedulingConflict) {
	var units []planningUnit
	if classType == models.ClassTypeIndividual {
		ids := append([]string(nil), request.StudentIDs...)
		sort.Strings(ids)
		for _, id := range ids {
			units = append(units, planningUnit{StudentIDs: []string{id}, Priority: request.Priority})
		}
	} else {
		units = append(units, planningUnit{StudentIDs: append([]string(nil), request.StudentIDs...), Priority: request.Priority})
	}

	progress := averageProgress(snap.progress)
	var decisions []models.SchedulingDecision
	var conflicts []models.SchedulingConflict
	runnerUps := make(map[string][]ScoredSlot)
	for _, unit := range units {
		best, runners := planner.Best(unit, classType, false)
		relaxed := false
		if best == nil {
			best, runners = planner.Best(unit, classType, true)
			relaxed = true
		}
		if best == nil {
			conflicts = append(conflicts, newConflict(
				models.ConflictConstraintViolation,
				models.SeverityCritical,
				course.ID,
				[]string{},
				fmt.Sprintf("no eligible teacher and slot for students %s in course %s", strings.Join(unit.StudentIDs, ", "), course.ID),
				models.ConflictResolution{Strategy: "relax_constraints", Description: "widen the time window or teacher constraints", AutoResolvable: false},
			))
			continue
		}
		rationale := best.Rationale
		if relaxed {
			rationale += "; no conflict-free slot was available"
		}
		if progress >= 0 {
			rationale += fmt.Sprintf("; average course progress %.0f%%", progress)
		}
		class := models.ScheduledClass{
			ID:              uuid.NewString(),
			CourseID:        course.ID,
			CourseType:      course.CourseType,
			TeacherID:       best.TeacherID,
			StudentIDs:      append([]string(nil), unit.StudentIDs...),
			TimeSlot:        best.Slot,
			ClassType:       classType,
			Status:          models.ClassStatusScheduled,
			ConfidenceScore: scoring.Clamp01(best.Score),
			Rationale:       rationale,
		}
		planner.Reserve(class.TeacherID, class.StudentIDs, class.TimeSlot)
		decisions = append(decisions, models.SchedulingDecision{Class: class, Priority: request.Priority})
		if len(runners) > runnerUpsPerClass {
			runners = runners[:runnerUpsPerClass]
		}
		runnerUps[class.ID] = runners
	}
	return decisions, runnerUps, conflicts
}

func resolveClassType(request models.SchedulingRequest) models.ClassType {
	if request.Constraints != nil && request.Constraints.ClassType != "" {
		return request.Constraints.ClassType
	}
	if len(request.StudentIDs) == 1 {
		return models.ClassTypeIndividual
	}
	return models.ClassTypeGroup
}

func maxClassSize(request models.SchedulingRequest) int {
	if request.Constraints == nil {
		return 0
	}
	return request.Constraints.MaxClassSize
}

// averageProgress returns the mean progress percentage or -1 without snapshots.
func averageProgress(progress []models.StudentProgress) float64 {
	if len(progress) == 0 {
		return -1
	}
	values := make([]float64, 0, len(progress))
	for _, p := range progress {
		values = append(values, p.ProgressPercentage)
	}
	return scoring.Mean(values)
}

func lockedDecisions(groups ...[]models.ScheduledClass) []models.SchedulingDecision {
	seen := make(map[string]bool)
	var out []models.SchedulingDecision
	for _, classes := range groups {
		for _, class := range classes {
			if seen[class.ID] {
				continue
			}
			seen[class.ID] = true
			out = append(out, models.SchedulingDecision{Class: class, Priority: models.PriorityMedium, Locked: true})
		}
	}
	return out
}

func decisionsOf(classes []models.ScheduledClass, priority models.SchedulingPriority) []models.SchedulingDecision {
	out := make([]models.SchedulingDecision, 0, len(classes))
	for _, class := range classes {
		out = append(out, models.SchedulingDecision{Class: class, Priority: priority})
	}
	return out
}

func classesOf(decisions []models.SchedulingDecision, ids map[string]bool) []models.ScheduledClass {
	out := make([]models.ScheduledClass, 0, len(ids))
	for _, dec := range decisions {
		if ids[dec.Class.ID] {
			out = append(out, dec.Class)
		}
	}
	return out
}

// filterConflicts keeps conflicts that involve at least one class from this request.
func filterConflicts(conflicts []models.SchedulingConflict, ids map[string]bool) []models.SchedulingConflict {
	out := make([]models.SchedulingConflict, 0, len(conflicts))
	for _, conflict := range conflicts {
		if touchesAny(conflict, ids) {
			out = append(out, conflict)
		}
	}
	return out
}

func markResolved(conflicts, resolved []models.SchedulingConflict) {
	done := make(map[string]bool, len(resolved))
	for _, c := range resolved {
		done[c.ID] = true
	}
	for i := range conflicts {
		conflicts[i].Resolved = done[conflicts[i].ID]
	}
}

func resourceUtilization(classes []models.ScheduledClass) float64 {
	var enrolled, capacity int
	for _, class := range classes {
		if class.TimeSlot.Capacity.Max <= 0 {
			continue
		}
		enrolled += len(class.StudentIDs)
		capacity += class.TimeSlot.Capacity.Max
	}
	if capacity == 0 {
		return 0
	}
	return scoring.Clamp01(float64(enrolled) / float64(capacity))
}

// recommend lists runner-up slots, existing classes with open seats and content-similar
// classes, ranked by priority then confidence.
func (s *SchedulingService) recommend(ctx context.Context, cfg EngineConfig, request models.SchedulingRequest, course *models.Course, classes []models.ScheduledClass, runnerUps map[string][]ScoredSlot, open []models.ScheduledClass) []models.SchedulingRecommendation {
	recs := []models.SchedulingRecommendation{}
	for _, class := range classes {
		for _, runner := range runnerUps[class.ID] {
			slot := runner.Slot
			rec := models.SchedulingRecommendation{
				ID:              uuid.NewString(),
				Type:            models.RecommendationAlternativeTimeSlot,
				ConfidenceScore: scoring.Clamp01(runner.Score),
				Benefits:        slotBenefits(runner.Scores),
				Drawbacks:       []string{},
				Complexity:      models.ComplexityLow,
				Priority:        recommendationPriorityTimeSlot,
				ClassID:         class.ID,
				TeacherID:       runner.TeacherID,
				TimeSlot:        &slot,
			}
			if runner.Score < class.ConfidenceScore {
				rec.Drawbacks = append(rec.Drawbacks, "lower composite score than the selected slot")
			}
			recs = append(recs, rec)
		}
	}

	size := len(request.StudentIDs)
	for _, candidate := range open {
		if candidate.Status != models.ClassStatusScheduled || candidate.TimeSlot.AvailableSpots() < size || hasAnyStudent(candidate, request.StudentIDs) {
			continue
		}
		availability := scoring.AvailabilityScore(candidate.TimeSlot.AvailableSpots(), candidate.TimeSlot.Capacity.Max)
		slot := candidate.TimeSlot
		if candidate.CourseID == course.ID {
			recs = append(recs, models.SchedulingRecommendation{
				ID:              uuid.NewString(),
				Type:            models.RecommendationAlternativeClass,
				ConfidenceScore: scoring.Mean([]float64{scoring.SameCourseTypeScore, availability}),
				Benefits:        []string{fmt.Sprintf("joins an existing class with %d open seats", candidate.TimeSlot.AvailableSpots())},
				Drawbacks:       []string{"class already has enrolled students"},
				Complexity:      models.ComplexityMedium,
				Priority:        recommendationPriorityClass,
				ClassID:         candidate.ID,
				TeacherID:       candidate.TeacherID,
				TimeSlot:        &slot,
			})
			continue
		}
		similarity, err := s.similarity(ctx, course.ID, candidate.CourseID)
		if err != nil || similarity < cfg.ContentSimilarityThreshold {
			continue
		}
		recs = append(recs, models.SchedulingRecommendation{
			ID:              uuid.NewString(),
			Type:            models.RecommendationContentSimilarClass,
			ConfidenceScore: scoring.Clamp01(similarity),
			Benefits:        []string{fmt.Sprintf("covers similar content (similarity %.2f)", similarity)},
			Drawbacks:       []string{"different course than requested"},
			Complexity:      models.ComplexityHigh,
			Priority:        recommendationPrioritySimilarClass,
			ClassID:         candidate.ID,
			TeacherID:       candidate.TeacherID,
			TimeSlot:        &slot,
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Priority != recs[j].Priority {
			return recs[i].Priority > recs[j].Priority
		}
		return recs[i].ConfidenceScore > recs[j].ConfidenceScore
	})
	if len(recs) > cfg.MaxRecommendations {
		recs = recs[:cfg.MaxRecommendations]
	}
	return recs
}

func (s *SchedulingService) similarity(ctx context.Context, a, b string) (float64, error) {
	if s.content == nil {
		return 0, errors.New("content similarity unavailable")
	}
	score, err := s.content.Similarity(ctx, a, b)
	if err != nil {
		s.metrics.RecordDegraded("content")
		s.logger.Warn("degraded", zap.String("dimension", "content"), zap.String("course_a", a), zap.String("course_b", b), zap.Error(err))
		return 0, err
	}
	return score, nil
}

func slotBenefits(scores scoring.SlotScores) []string {
	benefits := []string{}
	if scores.ResourceUtilization > 0.8 {
		benefits = append(benefits, "efficient use of teacher time")
	}
	if scores.StudentPreference > 0.8 {
		benefits = append(benefits, "matches student preferred days and times")
	}
	if scores.ScheduleContinuity > 0.8 {
		benefits = append(benefits, "fits next to existing classes")
	}
	return benefits
}

func hasAnyStudent(class models.ScheduledClass, studentIDs []string) bool {
	for _, id := range studentIDs {
		if class.HasStudent(id) {
			return true
		}
	}
	return false
}
