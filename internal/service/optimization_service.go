package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-scheduler/internal/models"
	"github.com/noah-isme/academy-scheduler/internal/scoring"
	appErrors "github.com/noah-isme/academy-scheduler/pkg/errors"
)

const (
	defaultTimingRating = 3.0
	maxTimingRating     = 5.0
	ratingReadLimit     = 5000

	baseConfidence        = 70.0
	conflictFreeBonus     = 20.0
	highMetricBonus       = 5.0
	highMetricThreshold   = 80.0
	maxConfidencePercent  = 100.0
	percentScale          = 100.0
	satisfactionPerRating = percentScale / maxTimingRating
)

// alternativeStrategies lists the variant strategies in tie-break order.
var alternativeStrategies = []string{
	models.StrategyTimeFocused,
	models.StrategyResourceFocused,
	models.StrategyBalanceFocused,
}

type engineConfigSource interface {
	Current() EngineConfig
}

type ratingReader interface {
	ListByStudents(ctx context.Context, studentIDs []string, limit int) ([]models.PerformanceRating, error)
}

type teacherLookup interface {
	ListByIDs(ctx context.Context, ids []string) ([]models.Teacher, error)
}

type teacherPreferenceLookup interface {
	ListByTeachers(ctx context.Context, teacherIDs []string) (map[string]models.TeacherPreference, error)
}

// OptimizationService post-processes a conflict-resolved schedule. It balances teacher
// workload greedily, moves classes to time buckets with better historical ratings and
// produces alternative variants. The result is a heuristic, not a global optimum.
type OptimizationService struct {
	config   engineConfigSource
	ratings  ratingReader
	teachers teacherLookup
	prefs    teacherPreferenceLookup
	detector *ConflictDetector
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewOptimizationService constructs the optimizer. Every reader may be nil when callers
// supply complete constraints.
func NewOptimizationService(config engineConfigSource, ratings ratingReader, teachers teacherLookup, prefs teacherPreferenceLookup, metrics *MetricsService, logger *zap.Logger) *OptimizationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OptimizationService{
		config:   config,
		ratings:  ratings,
		teachers: teachers,
		prefs:    prefs,
		detector: NewConflictDetector(),
		metrics:  metrics,
		logger:   logger,
	}
}

// Optimize returns the improved base solution with its sibling alternatives. The input
// assignment is scored as a baseline and wins when the optimized variant scores lower,
// so re-optimizing a conflict-free solution never lowers its confidence.
func (s *OptimizationService) Optimize(ctx context.Context, decisions []models.SchedulingDecision, constraints models.OptimizationConstraints) (solution *models.OptimizationSolution, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			solution = nil
			err = appErrors.Wrap(fmt.Errorf("%v", rec), appErrors.ErrAlgorithm.Code, appErrors.ErrAlgorithm.Status, "optimization failed")
		}
	}()

	cfg := DefaultEngineConfig()
	if s.config != nil {
		cfg = s.config.Current()
	}
	run, err := s.prepare(ctx, cfg, decisions, constraints)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base := run.solve(models.StrategyBase)
	input := run.originalClasses()
	baseline := run.evaluate(models.StrategyBase, input, run.audit(input, run.order(models.StrategyBase)))
	if baseline.ConfidenceScore > base.ConfidenceScore+scoreEpsilon {
		base = baseline
	}

	count := constraints.AlternativeCount
	if count == 0 {
		count = cfg.AlternativeSolutions
	}
	if count < 0 {
		count = 0
	}
	if count > len(alternativeStrategies) {
		count = len(alternativeStrategies)
	}
	alternatives := make([]models.OptimizationSolution, 0, count)
	for _, strategy := range alternativeStrategies[:count] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		alternatives = append(alternatives, run.solve(strategy))
	}
	sort.SliceStable(alternatives, func(i, j int) bool {
		return alternatives[i].ConfidenceScore > alternatives[j].ConfidenceScore+scoreEpsilon
	})
	if len(alternatives) > 0 {
		base.AlternativeSolutions = alternatives
	}

	s.metrics.ObserveOptimization(base.ConfidenceScore)
	s.logger.Info("optimization completed",
		zap.Int("classes", len(base.ScheduledClasses)),
		zap.Int("unresolved", len(base.UnresolvedConflicts)),
		zap.Float64("confidence", base.ConfidenceScore),
		zap.Int("alternatives", len(alternatives)),
	)
	return &base, nil
}

func (s *OptimizationService) prepare(ctx context.Context, cfg EngineConfig, decisions []models.SchedulingDecision, constraints models.OptimizationConstraints) (*optimizationRun, error) {
	run := &optimizationRun{
		cfg:          cfg,
		loc:          cfg.Location(),
		detector:     s.detector,
		maxClassSize: constraints.MaxClassSize,
		prefs:        constraints.TeacherPreferences,
		buckets:      make(map[string]map[timingBucket]*bucketStat),
	}
	teacherIDs := make(map[string]bool)
	studentIDs := make(map[string]bool)
	for _, dec := range decisions {
		if dec.Class.TeacherID != "" {
			teacherIDs[dec.Class.TeacherID] = true
		}
		if dec.Locked {
			run.locked = append(run.locked, dec)
			continue
		}
		for _, id := range dec.Class.StudentIDs {
			studentIDs[id] = true
		}
		run.open = append(run.open, plannedClass{decision: dec, composition: composeClass(dec, constraints.Courses)})
	}
	if len(run.open) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one unlocked decision is required")
	}

	teachers := constraints.Teachers
	if len(teachers) == 0 && s.teachers != nil && len(teacherIDs) > 0 {
		loaded, err := s.teachers.ListByIDs(ctx, keysOf(teacherIDs))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
		}
		teachers = loaded
	}
	run.teachers = append([]models.Teacher(nil), teachers...)
	sort.Slice(run.teachers, func(i, j int) bool { return run.teachers[i].ID < run.teachers[j].ID })

	if len(run.prefs) == 0 && s.prefs != nil && len(run.teachers) > 0 {
		ids := make([]string, 0, len(run.teachers))
		for _, t := range run.teachers {
			ids = append(ids, t.ID)
		}
		prefs, err := s.prefs.ListByTeachers(ctx, ids)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher preferences")
		}
		run.prefs = prefs
	}

	ratings := constraints.Ratings
	if len(ratings) == 0 && s.ratings != nil && len(studentIDs) > 0 {
		loaded, err := s.ratings.ListByStudents(ctx, keysOf(studentIDs), ratingReadLimit)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load performance ratings")
		}
		ratings = loaded
	}
	for _, rating := range ratings {
		run.addRating(rating)
	}

	run.candidates = append([]models.TimeSlot(nil), constraints.CandidateSlots...)
	sort.SliceStable(run.candidates, func(i, j int) bool { return run.candidates[i].StartTime.Before(run.candidates[j].StartTime) })
	return run, nil
}

// composeClass derives the assignment unit for a decision.
func composeClass(dec models.SchedulingDecision, courses map[string]models.Course) models.ClassComposition {
	class := dec.Class
	comp := models.ClassComposition{
		ClassID:             class.ID,
		StudentIDs:          append([]string(nil), class.StudentIDs...),
		ContentFocus:        class.CourseType,
		ClassType:           class.ClassType,
		RecommendedDuration: int(class.TimeSlot.Duration().Minutes()),
		SchedulingPriority:  dec.Priority,
		TeacherRequirements: models.TeacherRequirements{MinClassCapacity: len(class.StudentIDs)},
	}
	if course, ok := courses[class.CourseID]; ok {
		comp.DifficultyLevel = course.DifficultyLevel
		if comp.ContentFocus == "" {
			comp.ContentFocus = course.CourseType
		}
		if comp.RecommendedDuration <= 0 {
			comp.RecommendedDuration = course.DurationMinutes
		}
	}
	if comp.ContentFocus != "" {
		comp.TeacherRequirements.RequiredSpecializations = []string{comp.ContentFocus}
	}
	return comp
}

type timingBucket struct {
	Day  time.Weekday
	Hour int
}

type bucketStat struct {
	sum   float64
	count int
}

type plannedClass struct {
	decision    models.SchedulingDecision
	composition models.ClassComposition
}

type optimizationRun struct {
	cfg          EngineConfig
	loc          *time.Location
	detector     *ConflictDetector
	maxClassSize int
	open         []plannedClass
	locked       []models.SchedulingDecision
	teachers     []models.Teacher
	prefs        map[string]models.TeacherPreference
	buckets      map[string]map[timingBucket]*bucketStat
	candidates   []models.TimeSlot
}

func (r *optimizationRun) addRating(rating models.PerformanceRating) {
	if rating.DayOfWeek < 0 || rating.DayOfWeek > 6 || rating.Hour < 0 || rating.Hour > 23 {
		return
	}
	byBucket := r.buckets[rating.StudentID]
	if byBucket == nil {
		byBucket = make(map[timingBucket]*bucketStat)
		r.buckets[rating.StudentID] = byBucket
	}
	key := timingBucket{Day: time.Weekday(rating.DayOfWeek), Hour: rating.Hour}
	stat := byBucket[key]
	if stat == nil {
		stat = &bucketStat{}
		byBucket[key] = stat
	}
	stat.sum += rating.Rating
	stat.count++
}

// timingScore is the mean over students of their bucket average at the slot, on a 1..5 scale.
func (r *optimizationRun) timingScore(studentIDs []string, slot models.TimeSlot) float64 {
	if len(studentIDs) == 0 {
		return defaultTimingRating
	}
	local := slot.StartTime.In(r.loc)
	key := timingBucket{Day: local.Weekday(), Hour: local.Hour()}
	values := make([]float64, 0, len(studentIDs))
	for _, id := range studentIDs {
		if stat := r.buckets[id][key]; stat != nil && stat.count > 0 {
			values = append(values, stat.sum/float64(stat.count))
			continue
		}
		values = append(values, defaultTimingRating)
	}
	return scoring.Mean(values)
}

func (r *optimizationRun) originalClasses() []models.ScheduledClass {
	classes := make([]models.ScheduledClass, len(r.open))
	for i, planned := range r.open {
		classes[i] = cloneClass(planned.decision.Class)
	}
	return classes
}

// order returns class indices in the processing order of strategy. The base key is
// priority desc, difficulty desc, first student asc, class ID asc.
func (r *optimizationRun) order(strategy string) []int {
	idx := make([]int, len(r.open))
	for i := range idx {
		idx[i] = i
	}
	baseLess := func(a, b plannedClass) bool {
		if a.composition.SchedulingPriority.Rank() != b.composition.SchedulingPriority.Rank() {
			return a.composition.SchedulingPriority.Rank() > b.composition.SchedulingPriority.Rank()
		}
		if a.composition.DifficultyLevel != b.composition.DifficultyLevel {
			return a.composition.DifficultyLevel > b.composition.DifficultyLevel
		}
		if fa, fb := firstStudent(a.composition.StudentIDs), firstStudent(b.composition.StudentIDs); fa != fb {
			return fa < fb
		}
		return a.composition.ClassID < b.composition.ClassID
	}
	sort.SliceStable(idx, func(i, j int) bool {
		a, b := r.open[idx[i]], r.open[idx[j]]
		switch strategy {
		case models.StrategyBalanceFocused:
			if a.composition.RecommendedDuration != b.composition.RecommendedDuration {
				return a.composition.RecommendedDuration > b.composition.RecommendedDuration
			}
		case models.StrategyResourceFocused:
			if len(a.composition.StudentIDs) != len(b.composition.StudentIDs) {
				return len(a.composition.StudentIDs) > len(b.composition.StudentIDs)
			}
		}
		return baseLess(a, b)
	})
	return idx
}

func (r *optimizationRun) solve(strategy string) models.OptimizationSolution {
	classes := r.originalClasses()
	order := r.order(strategy)
	var violations []models.SchedulingConflict
	switch strategy {
	case models.StrategyTimeFocused:
		r.retime(classes, order)
		violations = r.balance(classes, order, strategy)
	case models.StrategyResourceFocused:
		violations = r.balance(classes, order, strategy)
	default:
		violations = r.balance(classes, order, strategy)
		r.retime(classes, order)
	}
	for i := range classes {
		original := r.open[i].decision.Class
		if classes[i].TeacherID != original.TeacherID || classes[i].TimeSlot.Key() != original.TimeSlot.Key() {
			classes[i].Rationale = fmt.Sprintf("%s optimization moved class from teacher %s at %s", strategy, original.TeacherID, original.TimeSlot.Key())
		}
	}
	return r.evaluate(strategy, classes, violations)
}

func (r *optimizationRun) newAvailability() map[string]*teacherAvailability {
	out := make(map[string]*teacherAvailability, len(r.teachers))
	for _, teacher := range r.teachers {
		var pref *models.TeacherPreference
		if p, ok := r.prefs[teacher.ID]; ok {
			pref = &p
		}
		out[teacher.ID] = buildTeacherAvailability(pref, r.loc)
	}
	for _, dec := range r.locked {
		if avail := out[dec.Class.TeacherID]; avail != nil && isActiveDecision(dec) {
			avail.Reserve(dec.Class.TimeSlot)
		}
	}
	return out
}

func (r *optimizationRun) teacherCapacity(teacher models.Teacher) int {
	if teacher.MaxStudentsPerClass > 0 {
		return teacher.MaxStudentsPerClass
	}
	return r.cfg.MaxStudentsPerClass
}

func (r *optimizationRun) eligible(teacher models.Teacher, comp models.ClassComposition, slot models.TimeSlot, avail *teacherAvailability) bool {
	size := len(comp.StudentIDs)
	if !teacher.Active || !teacher.FitsClassSize(size) {
		return false
	}
	if r.maxClassSize > 0 && size > r.maxClassSize {
		return false
	}
	if r.teacherCapacity(teacher) < comp.TeacherRequirements.MinClassCapacity {
		return false
	}
	if !teacher.HasAllSpecializations(comp.TeacherRequirements.RequiredSpecializations) {
		return false
	}
	return avail == nil || avail.CanTeach(slot)
}

// balance assigns each class, in order, to the eligible teacher with the fewest
// accumulated minutes. Greedy and order dependent.
func (r *optimizationRun) balance(classes []models.ScheduledClass, order []int, strategy string) []models.SchedulingConflict {
	if len(r.teachers) == 0 {
		return nil
	}
	avail := r.newAvailability()
	minutes := make(map[string]int, len(r.teachers))
	var violations []models.SchedulingConflict

	for _, idx := range order {
		class := &classes[idx]
		comp := r.open[idx].composition
		duration := int(class.TimeSlot.Duration().Minutes())

		var chosen *models.Teacher
		for i := range r.teachers {
			teacher := &r.teachers[i]
			if !r.eligible(*teacher, comp, class.TimeSlot, avail[teacher.ID]) {
				continue
			}
			if chosen == nil || r.preferTeacher(*teacher, *chosen, class.TeacherID, minutes, strategy) {
				chosen = teacher
			}
		}
		if chosen == nil {
			violations = append(violations, teacherConstraintViolation(class.ID))
			if a := avail[class.TeacherID]; a != nil {
				a.Reserve(class.TimeSlot)
			}
			minutes[class.TeacherID] += duration
			continue
		}
		class.TeacherID = chosen.ID
		avail[chosen.ID].Reserve(class.TimeSlot)
		minutes[chosen.ID] += duration
	}
	return violations
}

// audit reports classes whose current teacher breaks a hard constraint.
func (r *optimizationRun) audit(classes []models.ScheduledClass, order []int) []models.SchedulingConflict {
	if len(r.teachers) == 0 {
		return nil
	}
	byID := make(map[string]models.Teacher, len(r.teachers))
	for _, teacher := range r.teachers {
		byID[teacher.ID] = teacher
	}
	avail := r.newAvailability()
	var violations []models.SchedulingConflict
	for _, idx := range order {
		class := classes[idx]
		teacher, ok := byID[class.TeacherID]
		a := avail[class.TeacherID]
		if !ok || !r.eligible(teacher, r.open[idx].composition, class.TimeSlot, nil) ||
			a.IsBlocked(class.TimeSlot) || !a.WithinLoad(class.TimeSlot) {
			violations = append(violations, teacherConstraintViolation(class.ID))
		}
		if a != nil {
			a.Reserve(class.TimeSlot)
		}
	}
	return violations
}

func teacherConstraintViolation(classID string) models.SchedulingConflict {
	return newConflict(
		models.ConflictConstraintViolation,
		models.SeverityHigh,
		classID,
		[]string{classID},
		fmt.Sprintf("no teacher satisfies class size, specialization and availability for class %s", classID),
		models.ConflictResolution{Strategy: "manual_assignment", Description: "assign a teacher manually or relax constraints", AutoResolvable: false},
	)
}

func (r *optimizationRun) preferTeacher(candidate, current models.Teacher, assigned string, minutes map[string]int, strategy string) bool {
	if strategy == models.StrategyResourceFocused {
		if cc, cur := r.teacherCapacity(candidate), r.teacherCapacity(current); cc != cur {
			return cc < cur
		}
	}
	if minutes[candidate.ID] != minutes[current.ID] {
		return minutes[candidate.ID] < minutes[current.ID]
	}
	if (candidate.ID == assigned) != (current.ID == assigned) {
		return candidate.ID == assigned
	}
	return candidate.ID < current.ID
}

// retime moves each class to the candidate slot with a strictly better timing score that
// is free for its teacher and students.
func (r *optimizationRun) retime(classes []models.ScheduledClass, order []int) {
	if len(r.candidates) == 0 {
		return
	}
	avail := r.newAvailability()
	studentBusy := make(map[string][]models.TimeSlot)
	for _, dec := range r.locked {
		if !isActiveDecision(dec) {
			continue
		}
		for _, id := range dec.Class.StudentIDs {
			studentBusy[id] = append(studentBusy[id], dec.Class.TimeSlot)
		}
	}
	for _, class := range classes {
		if a := avail[class.TeacherID]; a != nil {
			a.Reserve(class.TimeSlot)
		}
		for _, id := range class.StudentIDs {
			studentBusy[id] = append(studentBusy[id], class.TimeSlot)
		}
	}

	for _, idx := range order {
		class := &classes[idx]
		teacherAvail := avail[class.TeacherID]
		if teacherAvail != nil {
			teacherAvail.Release(class.TimeSlot)
		}
		releaseStudents(studentBusy, class.StudentIDs, class.TimeSlot)

		best := class.TimeSlot
		bestScore := r.timingScore(class.StudentIDs, class.TimeSlot)
		duration := class.TimeSlot.Duration()
		for _, candidate := range r.candidates {
			slot := movedSlot(class.TimeSlot, candidate, duration)
			if slot.Key() == class.TimeSlot.Key() {
				continue
			}
			if teacherAvail != nil && !teacherAvail.CanTeach(slot) {
				continue
			}
			if studentsBusy(studentBusy, class.StudentIDs, slot) {
				continue
			}
			if score := r.timingScore(class.StudentIDs, slot); score > bestScore+scoreEpsilon {
				best, bestScore = slot, score
			}
		}
		class.TimeSlot = best
		if teacherAvail != nil {
			teacherAvail.Reserve(best)
		}
		for _, id := range class.StudentIDs {
			studentBusy[id] = append(studentBusy[id], best)
		}
	}
}

func movedSlot(current, candidate models.TimeSlot, duration time.Duration) models.TimeSlot {
	slot := current
	slot.ID = candidate.ID
	slot.StartTime = candidate.StartTime
	slot.EndTime = candidate.StartTime.Add(duration)
	slot.DayOfWeek = candidate.StartTime.Weekday()
	if candidate.Location != "" {
		slot.Location = candidate.Location
	}
	return slot
}

func releaseStudents(busy map[string][]models.TimeSlot, studentIDs []string, slot models.TimeSlot) {
	for _, id := range studentIDs {
		slots := busy[id]
		for i, s := range slots {
			if s.Key() == slot.Key() && s.EndTime.Equal(slot.EndTime) {
				busy[id] = append(slots[:i], slots[i+1:]...)
				break
			}
		}
	}
}

func studentsBusy(busy map[string][]models.TimeSlot, studentIDs []string, slot models.TimeSlot) bool {
	for _, id := range studentIDs {
		for _, s := range busy[id] {
			if s.Overlaps(slot) {
				return true
			}
		}
	}
	return false
}

func (r *optimizationRun) evaluate(strategy string, classes []models.ScheduledClass, violations []models.SchedulingConflict) models.OptimizationSolution {
	openIDs := make(map[string]bool, len(classes))
	all := make([]models.SchedulingDecision, 0, len(classes)+len(r.locked))
	all = append(all, r.locked...)
	for i, class := range classes {
		openIDs[class.ID] = true
		all = append(all, models.SchedulingDecision{Class: class, Priority: r.open[i].decision.Priority})
	}
	unresolved := append([]models.SchedulingConflict(nil), violations...)
	for _, conflict := range r.detector.Detect(all) {
		if touchesAny(conflict, openIDs) {
			unresolved = append(unresolved, conflict)
		}
	}
	sortConflicts(unresolved)

	workloads := make(map[string]int)
	for _, teacher := range r.teachers {
		workloads[teacher.ID] = 0
	}
	for _, class := range classes {
		if class.TeacherID != "" {
			workloads[class.TeacherID] += int(class.TimeSlot.Duration().Minutes())
		}
	}

	metrics := models.OptimizationMetrics{
		Utilization:  r.utilization(classes),
		Satisfaction: r.satisfaction(classes),
		Efficiency:   r.efficiency(classes),
		Conflict:     conflictMetric(len(unresolved), len(classes)),
		Balance:      balanceMetric(workloads),
	}
	return models.OptimizationSolution{
		Strategy:            strategy,
		ScheduledClasses:    classes,
		UnresolvedConflicts: unresolved,
		Metrics:             metrics,
		ConfidenceScore:     solutionConfidence(metrics, len(unresolved)),
		TeacherWorkloads:    workloads,
	}
}

func (r *optimizationRun) utilization(classes []models.ScheduledClass) float64 {
	var enrolled, capacity int
	for _, class := range classes {
		enrolled += len(class.StudentIDs)
		seats := class.TimeSlot.Capacity.Max
		if seats <= 0 {
			seats = r.cfg.MaxStudentsPerClass
		}
		capacity += seats
	}
	if capacity == 0 {
		return 0
	}
	return clampPercent(percentScale * float64(enrolled) / float64(capacity))
}

func (r *optimizationRun) satisfaction(classes []models.ScheduledClass) float64 {
	if len(classes) == 0 {
		return 0
	}
	values := make([]float64, 0, len(classes))
	for _, class := range classes {
		values = append(values, r.timingScore(class.StudentIDs, class.TimeSlot))
	}
	return clampPercent(scoring.Mean(values) * satisfactionPerRating)
}

// efficiency is the mean compactness of each teacher day: busy minutes over the span
// from first start to last end. Idle gaps between classes lower it.
func (r *optimizationRun) efficiency(classes []models.ScheduledClass) float64 {
	type dayKey struct {
		teacher string
		day     string
	}
	days := make(map[dayKey][]models.TimeSlot)
	for _, class := range classes {
		key := dayKey{teacher: class.TeacherID, day: class.TimeSlot.StartTime.In(r.loc).Format("2006-01-02")}
		days[key] = append(days[key], class.TimeSlot)
	}
	if len(days) == 0 {
		return percentScale
	}
	var values []float64
	for _, slots := range days {
		first, last := slots[0].StartTime, slots[0].EndTime
		var busy time.Duration
		for _, slot := range slots {
			if slot.StartTime.Before(first) {
				first = slot.StartTime
			}
			if slot.EndTime.After(last) {
				last = slot.EndTime
			}
			busy += slot.Duration()
		}
		span := last.Sub(first)
		if span <= 0 {
			values = append(values, 1)
			continue
		}
		values = append(values, math.Min(1, busy.Hours()/span.Hours()))
	}
	return clampPercent(scoring.Mean(values) * percentScale)
}

func conflictMetric(unresolved, classes int) float64 {
	if classes == 0 {
		return percentScale
	}
	return clampPercent(percentScale - percentScale*float64(unresolved)/float64(classes))
}

// balanceMetric is 100 − 100·(stddev/mean) over teacher minutes; zero mean scores 100.
func balanceMetric(workloads map[string]int) float64 {
	values := make([]float64, 0, len(workloads))
	for _, minutes := range workloads {
		values = append(values, float64(minutes))
	}
	mean := scoring.Mean(values)
	if mean == 0 {
		return percentScale
	}
	return clampPercent(percentScale - percentScale*(scoring.StdDev(values)/mean))
}

func solutionConfidence(metrics models.OptimizationMetrics, unresolved int) float64 {
	confidence := baseConfidence
	if unresolved == 0 {
		confidence += conflictFreeBonus
	}
	if metrics.Utilization > highMetricThreshold {
		confidence += highMetricBonus
	}
	if metrics.Satisfaction > highMetricThreshold {
		confidence += highMetricBonus
	}
	return math.Min(confidence, maxConfidencePercent) / percentScale
}

func clampPercent(v float64) float64 {
	return math.Max(0, math.Min(percentScale, v))
}

func touchesAny(conflict models.SchedulingConflict, ids map[string]bool) bool {
	for _, id := range conflict.ClassIDs {
		if ids[id] {
			return true
		}
	}
	return false
}

func cloneClass(class models.ScheduledClass) models.ScheduledClass {
	out := class
	out.StudentIDs = append([]string(nil), class.StudentIDs...)
	return out
}

func firstStudent(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	first := ids[0]
	for _, id := range ids[1:] {
		if id < first {
			first = id
		}
	}
	return first
}

func keysOf(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
