package service

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/noah-isme/academy-scheduler/internal/models"
	"github.com/noah-isme/academy-scheduler/internal/scoring"
	"github.com/noah-isme/academy-scheduler/pkg/config"
)

const scoreEpsilon = 1e-9

// ScoredSlot is a candidate slot with its composite score.
type ScoredSlot struct {
	Slot      models.TimeSlot
	TeacherID string
	Score     float64
	Scores    scoring.SlotScores
	Rationale string
}

// --- Teacher availability ---

type teacherAvailability struct {
	MaxLoadPerDay  int
	MaxLoadPerWeek int
	loc            *time.Location
	blocked        map[time.Weekday]map[int]bool
	busy           []models.TimeSlot
	perDay         map[string]int
	weekly         map[string]int
}

func newTeacherAvailability(loc *time.Location) *teacherAvailability {
	if loc == nil {
		loc = time.UTC
	}
	return &teacherAvailability{
		loc:     loc,
		blocked: make(map[time.Weekday]map[int]bool),
		perDay:  make(map[string]int),
		weekly:  make(map[string]int),
	}
}

// buildTeacherAvailability applies load limits and unavailable windows from pref.
func buildTeacherAvailability(pref *models.TeacherPreference, loc *time.Location) *teacherAvailability {
	availability := newTeacherAvailability(loc)
	if pref == nil {
		return availability
	}
	availability.MaxLoadPerDay = pref.MaxLoadPerDay
	availability.MaxLoadPerWeek = pref.MaxLoadPerWeek
	for _, window := range pref.UnavailableSlots() {
		day, ok := config.ParseWeekday(window.DayOfWeek)
		if !ok {
			continue
		}
		for _, hour := range expandHourRange(window.TimeRange) {
			availability.Block(day, hour)
		}
	}
	return availability
}

func (t *teacherAvailability) Block(day time.Weekday, hour int) {
	if t.blocked[day] == nil {
		t.blocked[day] = make(map[int]bool)
	}
	t.blocked[day][hour] = true
}

// IsBlocked reports whether any hour the slot touches is an unavailable window.
func (t *teacherAvailability) IsBlocked(slot models.TimeSlot) bool {
	start := slot.StartTime.In(t.loc)
	end := slot.EndTime.In(t.loc)
	hours := t.blocked[start.Weekday()]
	if len(hours) == 0 {
		return false
	}
	for cursor := start.Truncate(time.Hour); cursor.Before(end); cursor = cursor.Add(time.Hour) {
		if hours[cursor.Hour()] {
			return true
		}
	}
	return false
}

// IsFree reports whether no reserved slot overlaps.
func (t *teacherAvailability) IsFree(slot models.TimeSlot) bool {
	for _, busy := range t.busy {
		if busy.Overlaps(slot) {
			return false
		}
	}
	return true
}

// WithinLoad reports whether one more class fits the day and week limits.
func (t *teacherAvailability) WithinLoad(slot models.TimeSlot) bool {
	day, week := t.keys(slot)
	if t.MaxLoadPerDay > 0 && t.perDay[day] >= t.MaxLoadPerDay {
		return false
	}
	if t.MaxLoadPerWeek > 0 && t.weekly[week] >= t.MaxLoadPerWeek {
		return false
	}
	return true
}

func (t *teacherAvailability) CanTeach(slot models.TimeSlot) bool {
	return !t.IsBlocked(slot) && t.IsFree(slot) && t.WithinLoad(slot)
}

func (t *teacherAvailability) Reserve(slot models.TimeSlot) {
	day, week := t.keys(slot)
	t.busy = append(t.busy, slot)
	t.perDay[day]++
	t.weekly[week]++
}

func (t *teacherAvailability) Release(slot models.TimeSlot) {
	for i, busy := range t.busy {
		if busy.Key() == slot.Key() && busy.EndTime.Equal(slot.EndTime) {
			t.busy = append(t.busy[:i], t.busy[i+1:]...)
			break
		}
	}
	day, week := t.keys(slot)
	if t.perDay[day] > 0 {
		t.perDay[day]--
	}
	if t.weekly[week] > 0 {
		t.weekly[week]--
	}
}

// DayLoad returns reserved classes on the slot's calendar day.
func (t *teacherAvailability) DayLoad(slot models.TimeSlot) int {
	day, _ := t.keys(slot)
	return t.perDay[day]
}

// SameDay returns reserved slots on the slot's calendar day.
func (t *teacherAvailability) SameDay(slot models.TimeSlot) []models.TimeSlot {
	day, _ := t.keys(slot)
	var out []models.TimeSlot
	for _, busy := range t.busy {
		if busy.StartTime.In(t.loc).Format("2006-01-02") == day {
			out = append(out, busy)
		}
	}
	return out
}

func (t *teacherAvailability) keys(slot models.TimeSlot) (string, string) {
	start := slot.StartTime.In(t.loc)
	year, week := start.ISOWeek()
	return start.Format("2006-01-02"), fmt.Sprintf("%d-W%02d", year, week)
}

func (t *teacherAvailability) clone() *teacherAvailability {
	out := newTeacherAvailability(t.loc)
	out.MaxLoadPerDay = t.MaxLoadPerDay
	out.MaxLoadPerWeek = t.MaxLoadPerWeek
	for day, hours := range t.blocked {
		for hour := range hours {
			out.Block(day, hour)
		}
	}
	out.busy = append(out.busy, t.busy...)
	for k, v := range t.perDay {
		out.perDay[k] = v
	}
	for k, v := range t.weekly {
		out.weekly[k] = v
	}
	return out
}

// expandHourRange parses "9-12" as hours 9, 10, 11 and "14" as hour 14.
func expandHourRange(raw string) []int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.Contains(raw, "-") {
		parts := strings.SplitN(raw, "-", 2)
		start, errStart := strconv.Atoi(strings.TrimSpace(parts[0]))
		end, errEnd := strconv.Atoi(strings.TrimSpace(parts[1]))
		if errStart != nil || errEnd != nil || start < 0 || end > 24 || end <= start {
			return nil
		}
		hours := make([]int, 0, end-start)
		for h := start; h < end; h++ {
			hours = append(hours, h)
		}
		return hours
	}
	hour, err := strconv.Atoi(raw)
	if err != nil || hour < 0 || hour > 23 {
		return nil
	}
	return []int{hour}
}

// --- Slot planner ---

// planningUnit is one class to place: all students of a group class or a single student.
type planningUnit struct {
	StudentIDs []string
	Priority   models.SchedulingPriority
}

// slotPlanner enumerates working-hour slots and scores (slot, teacher) pairs for one request.
type slotPlanner struct {
	cfg          EngineConfig
	loc          *time.Location
	duration     time.Duration
	teachers     []models.Teacher
	availability map[string]*teacherAvailability
	studentBusy  map[string][]models.TimeSlot
	prefs        map[string]models.StudentSchedulePreferences
	preferred    []models.TimeSlot
	constraints  *models.SchedulingConstraints
	slots        []models.TimeSlot
}

func newSlotPlanner(cfg EngineConfig, durationMinutes int) *slotPlanner {
	if durationMinutes <= 0 {
		durationMinutes = cfg.DefaultClassMinutes
	}
	return &slotPlanner{
		cfg:          cfg,
		loc:          cfg.Location(),
		duration:     time.Duration(durationMinutes) * time.Minute,
		availability: make(map[string]*teacherAvailability),
		studentBusy:  make(map[string][]models.TimeSlot),
		prefs:        make(map[string]models.StudentSchedulePreferences),
	}
}

var rruleWeekdays = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

// EnumerateSlots lists hourly slots on working days inside [now, now+horizon) that end
// by the end of the working day. Request preferred slots are merged in.
func (p *slotPlanner) EnumerateSlots(now time.Time) ([]models.TimeSlot, error) {
	local := now.In(p.loc)
	start := local.Truncate(time.Hour)
	if start.Before(local) {
		start = start.Add(time.Hour)
	}
	until := start.AddDate(0, 0, p.cfg.HorizonDays)

	var byDay []rrule.Weekday
	for _, day := range p.cfg.WorkingDays {
		byDay = append(byDay, rruleWeekdays[day])
	}
	lastStart := float64(p.cfg.WorkingHourEnd) - p.duration.Hours()
	var byHour []int
	for h := p.cfg.WorkingHourStart; float64(h) <= lastStart; h++ {
		byHour = append(byHour, h)
	}
	if len(byHour) == 0 {
		return nil, fmt.Errorf("class duration %s does not fit working hours %d-%d", p.duration, p.cfg.WorkingHourStart, p.cfg.WorkingHourEnd)
	}

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Dtstart:   start,
		Until:     until,
		Byweekday: byDay,
		Byhour:    byHour,
		Byminute:  []int{0},
		Bysecond:  []int{0},
	})
	if err != nil {
		return nil, fmt.Errorf("build slot recurrence: %w", err)
	}

	seen := make(map[string]bool)
	var slots []models.TimeSlot
	for _, occurrence := range rule.Between(start, until, true) {
		slot := p.newSlot(occurrence)
		if !p.withinConstraints(slot) || seen[slot.Key()] {
			continue
		}
		seen[slot.Key()] = true
		slots = append(slots, slot)
	}
	for _, pref := range p.preferred {
		if pref.StartTime.Before(now) {
			continue
		}
		slot := p.newSlot(pref.StartTime.In(p.loc))
		if !pref.EndTime.IsZero() && pref.EndTime.After(pref.StartTime) {
			slot.EndTime = pref.EndTime
		}
		if pref.Location != "" {
			slot.Location = pref.Location
		}
		if !p.withinConstraints(slot) || seen[slot.Key()] {
			continue
		}
		seen[slot.Key()] = true
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].StartTime.Before(slots[j].StartTime) })
	p.slots = slots
	return slots, nil
}

func (p *slotPlanner) newSlot(start time.Time) models.TimeSlot {
	return models.TimeSlot{
		ID:        "slot-" + start.UTC().Format("20060102T1504"),
		StartTime: start,
		EndTime:   start.Add(p.duration),
		DayOfWeek: start.Weekday(),
		Location:  p.cfg.DefaultLocation,
	}
}

func (p *slotPlanner) withinConstraints(slot models.TimeSlot) bool {
	if p.constraints == nil {
		return true
	}
	if p.constraints.EarliestStart != nil && slot.StartTime.Before(*p.constraints.EarliestStart) {
		return false
	}
	if p.constraints.LatestEnd != nil && slot.EndTime.After(*p.constraints.LatestEnd) {
		return false
	}
	return true
}

// eligibleTeachers filters teachers by activity, class size and request constraints.
func (p *slotPlanner) eligibleTeachers(unit planningUnit) []models.Teacher {
	var out []models.Teacher
	for _, teacher := range p.teachers {
		if !teacher.Active || !teacher.FitsClassSize(len(unit.StudentIDs)) {
			continue
		}
		if p.constraints != nil {
			if containsID(p.constraints.ExcludedTeacherIDs, teacher.ID) {
				continue
			}
			if !teacher.HasAllSpecializations(p.constraints.RequiredSpecializations) {
				continue
			}
		}
		out = append(out, teacher)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (p *slotPlanner) capacityFor(teacher models.Teacher, classType models.ClassType) int {
	if classType == models.ClassTypeIndividual {
		return 1
	}
	capacity := p.cfg.MaxStudentsPerClass
	if teacher.MaxStudentsPerClass > 0 && teacher.MaxStudentsPerClass < capacity {
		capacity = teacher.MaxStudentsPerClass
	}
	if p.constraints != nil && p.constraints.MaxClassSize > 0 && p.constraints.MaxClassSize < capacity {
		capacity = p.constraints.MaxClassSize
	}
	return capacity
}

func (p *slotPlanner) studentsFree(studentIDs []string, slot models.TimeSlot) bool {
	for _, id := range studentIDs {
		for _, busy := range p.studentBusy[id] {
			if busy.Overlaps(slot) {
				return false
			}
		}
	}
	return true
}

// Score rates placing unit with teacher at slot.
func (p *slotPlanner) Score(unit planningUnit, teacher models.Teacher, slot models.TimeSlot, capacity int) ScoredSlot {
	scores := scoring.SlotScores{
		ResourceUtilization: p.utilizationScore(unit, teacher, slot, capacity),
		StudentPreference:   p.preferenceScore(unit, teacher, slot),
		ScheduleContinuity:  p.continuityScore(unit, teacher, slot),
	}
	total := p.cfg.SlotWeights.Composite(scores)
	return ScoredSlot{
		Slot:      slot,
		TeacherID: teacher.ID,
		Score:     total,
		Scores:    scores,
		Rationale: fmt.Sprintf("teacher %s at %s: utilization %.2f, preference %.2f, continuity %.2f",
			teacher.ID, slot.StartTime.In(p.loc).Format("Mon 15:04"), scores.ResourceUtilization, scores.StudentPreference, scores.ScheduleContinuity),
	}
}

// utilizationScore blends seat fill with the teacher's remaining capacity that day.
func (p *slotPlanner) utilizationScore(unit planningUnit, teacher models.Teacher, slot models.TimeSlot, capacity int) float64 {
	fill := 1.0
	if capacity > 0 {
		fill = scoring.Clamp01(float64(len(unit.StudentIDs)) / float64(capacity))
	}
	headroom := 1.0
	if avail := p.availability[teacher.ID]; avail != nil {
		dayCapacity := avail.MaxLoadPerDay
		if dayCapacity <= 0 {
			dayCapacity = p.cfg.WorkingHourEnd - p.cfg.WorkingHourStart
		}
		if dayCapacity > 0 {
			headroom = scoring.Clamp01(1 - float64(avail.DayLoad(slot))/float64(dayCapacity))
		}
	}
	return 0.5*fill + 0.5*headroom
}

// preferenceScore averages per-student day/time fit; matching a requested slot scores 1.
func (p *slotPlanner) preferenceScore(unit planningUnit, teacher models.Teacher, slot models.TimeSlot) float64 {
	for _, pref := range p.preferred {
		if pref.StartTime.Equal(slot.StartTime) {
			return 1
		}
	}
	local := slot.StartTime.In(p.loc)
	var values []float64
	for _, id := range unit.StudentIDs {
		prefs, ok := p.prefs[id]
		if !ok {
			prefs = models.DefaultStudentSchedulePreferences()
		}
		prefs = prefs.WithDefaults()
		dayFit := prefs.PrefersDay(local.Weekday())
		timeFit := false
		for _, window := range prefs.PreferredTimes {
			if window.Contains(local.Hour()) {
				timeFit = true
				break
			}
		}
		value := 0.2
		switch {
		case dayFit && timeFit:
			value = 1.0
		case dayFit || timeFit:
			value = 0.6
		}
		if prefs.IsAvoidedTeacher(teacher.ID) {
			value *= 0.5
		} else if prefs.IsPreferredTeacher(teacher.ID) {
			value = math.Min(1, value+0.15)
		}
		values = append(values, value)
	}
	score := scoring.Mean(values)
	if p.constraints != nil && containsID(p.constraints.PreferredTeacherIDs, teacher.ID) {
		score = math.Min(1, score+0.15)
	}
	return score
}

// continuityScore rewards slots adjacent to the teacher's or students' classes that day.
func (p *slotPlanner) continuityScore(unit planningUnit, teacher models.Teacher, slot models.TimeSlot) float64 {
	var sameDay []models.TimeSlot
	if avail := p.availability[teacher.ID]; avail != nil {
		sameDay = append(sameDay, avail.SameDay(slot)...)
	}
	day := slot.StartTime.In(p.loc).Format("2006-01-02")
	for _, id := range unit.StudentIDs {
		for _, busy := range p.studentBusy[id] {
			if busy.StartTime.In(p.loc).Format("2006-01-02") == day {
				sameDay = append(sameDay, busy)
			}
		}
	}
	if len(sameDay) == 0 {
		return 0.6
	}
	minGap := math.MaxFloat64
	for _, other := range sameDay {
		var gap time.Duration
		switch {
		case !other.EndTime.After(slot.StartTime):
			gap = slot.StartTime.Sub(other.EndTime)
		case !slot.EndTime.After(other.StartTime):
			gap = other.StartTime.Sub(slot.EndTime)
		}
		minGap = math.Min(minGap, gap.Hours())
	}
	return math.Max(0.3, 1-0.15*minGap)
}

// Best returns the highest scoring feasible (slot, teacher) pair and the runner-ups with
// distinct start times. Ties prefer the earlier start, then the lower teacher ID.
func (p *slotPlanner) Best(unit planningUnit, classType models.ClassType, relaxed bool) (*ScoredSlot, []ScoredSlot) {
	teachers := p.eligibleTeachers(unit)
	var best *ScoredSlot
	bestByStart := make(map[string]ScoredSlot)
	for _, slot := range p.slots {
		if !relaxed && !p.studentsFree(unit.StudentIDs, slot) {
			continue
		}
		for _, teacher := range teachers {
			avail := p.availability[teacher.ID]
			if avail != nil && avail.IsBlocked(slot) {
				continue
			}
			if !relaxed && avail != nil && !avail.CanTeach(slot) {
				continue
			}
			capacity := p.capacityFor(teacher, classType)
			candidate := slot
			candidate.Capacity = models.SlotCapacity{Max: capacity, Min: 1, CurrentEnrollment: len(unit.StudentIDs)}
			scored := p.Score(unit, teacher, candidate, capacity)
			if best == nil || scored.Score > best.Score+scoreEpsilon {
				copied := scored
				best = &copied
			}
			if prev, ok := bestByStart[slot.Key()]; !ok || scored.Score > prev.Score+scoreEpsilon {
				bestByStart[slot.Key()] = scored
			}
		}
	}
	if best == nil {
		return nil, nil
	}
	runnerUps := make([]ScoredSlot, 0, len(bestByStart))
	for key, scored := range bestByStart {
		if key == best.Slot.Key() {
			continue
		}
		runnerUps = append(runnerUps, scored)
	}
	sortScored(runnerUps)
	return best, runnerUps
}

// Alternatives re-scores every enumerated slot for a fixed teacher, excluding blocked windows.
func (p *slotPlanner) Alternatives(dec models.SchedulingDecision) []ScoredSlot {
	var teacher *models.Teacher
	for i := range p.teachers {
		if p.teachers[i].ID == dec.Class.TeacherID {
			teacher = &p.teachers[i]
			break
		}
	}
	if teacher == nil {
		return nil
	}
	unit := planningUnit{StudentIDs: dec.Class.StudentIDs, Priority: dec.Priority}
	avail := p.availability[teacher.ID]
	var out []ScoredSlot
	for _, slot := range p.slots {
		if slot.Key() == dec.Class.TimeSlot.Key() {
			continue
		}
		if avail != nil && (avail.IsBlocked(slot) || !avail.WithinLoad(slot)) {
			continue
		}
		candidate := slot
		candidate.Capacity = dec.Class.TimeSlot.Capacity
		out = append(out, p.Score(unit, *teacher, candidate, candidate.Capacity.Max))
	}
	sortScored(out)
	return out
}

// Reserve books the slot for the teacher and students so later units avoid it.
func (p *slotPlanner) Reserve(teacherID string, studentIDs []string, slot models.TimeSlot) {
	if avail := p.availability[teacherID]; avail != nil {
		avail.Reserve(slot)
	}
	for _, id := range studentIDs {
		p.studentBusy[id] = append(p.studentBusy[id], slot)
	}
}

func sortScored(items []ScoredSlot) {
	sort.SliceStable(items, func(i, j int) bool {
		if math.Abs(items[i].Score-items[j].Score) > scoreEpsilon {
			return items[i].Score > items[j].Score
		}
		if !items[i].Slot.StartTime.Equal(items[j].Slot.StartTime) {
			return items[i].Slot.StartTime.Before(items[j].Slot.StartTime)
		}
		return items[i].TeacherID < items[j].TeacherID
	})
}

func containsID(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
