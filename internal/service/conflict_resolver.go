package service

import (
	"fmt"

	"github.com/noah-isme/academy-scheduler/internal/models"
)

// SlotSearch supplies re-scored alternative slots for a decision, best first.
type SlotSearch interface {
	Alternatives(dec models.SchedulingDecision) []ScoredSlot
}

// SlotSearchFunc adapts a function to SlotSearch.
type SlotSearchFunc func(dec models.SchedulingDecision) []ScoredSlot

func (f SlotSearchFunc) Alternatives(dec models.SchedulingDecision) []ScoredSlot {
	return f(dec)
}

// ConflictResolver relocates the lowest priority class of each auto-resolvable conflict.
type ConflictResolver struct{}

// NewConflictResolver constructs a resolver.
func NewConflictResolver() *ConflictResolver {
	return &ConflictResolver{}
}

// Resolve makes a single pass over conflicts and mutates decisions in place. A conflict is
// resolved when one of its unlocked classes moves to a slot that clashes with no other
// active decision. Conflicts without an auto-resolvable strategy, without an unlocked
// member or without a free slot are returned unresolved.
func (r *ConflictResolver) Resolve(decisions []models.SchedulingDecision, conflicts []models.SchedulingConflict, search SlotSearch) (resolved, unresolved []models.SchedulingConflict) {
	byID := make(map[string]int, len(decisions))
	for i, dec := range decisions {
		byID[dec.Class.ID] = i
	}

	for _, conflict := range conflicts {
		if conflict.Resolved {
			resolved = append(resolved, conflict)
			continue
		}
		if !conflictHolds(conflict, decisions, byID) {
			conflict.Resolved = true
			resolved = append(resolved, conflict)
			continue
		}
		if !conflict.AutoResolvable() || search == nil {
			unresolved = append(unresolved, conflict)
			continue
		}
		victim := pickVictim(conflict, decisions, byID)
		if victim < 0 {
			unresolved = append(unresolved, conflict)
			continue
		}
		if !relocate(victim, decisions, search, conflict.Type) {
			unresolved = append(unresolved, conflict)
			continue
		}
		conflict.Resolved = true
		resolved = append(resolved, conflict)
	}
	return resolved, unresolved
}

// pickVictim returns the unlocked member with the lowest priority, then lowest
// confidence, then lowest class ID. -1 when every member is locked.
func pickVictim(conflict models.SchedulingConflict, decisions []models.SchedulingDecision, byID map[string]int) int {
	victim := -1
	for _, id := range conflict.ClassIDs {
		idx, ok := byID[id]
		if !ok || decisions[idx].Locked {
			continue
		}
		if victim < 0 || lessVictim(decisions[idx], decisions[victim]) {
			victim = idx
		}
	}
	return victim
}

func lessVictim(a, b models.SchedulingDecision) bool {
	if a.Priority.Rank() != b.Priority.Rank() {
		return a.Priority.Rank() < b.Priority.Rank()
	}
	if a.Class.ConfidenceScore != b.Class.ConfidenceScore {
		return a.Class.ConfidenceScore < b.Class.ConfidenceScore
	}
	return a.Class.ID < b.Class.ID
}

func relocate(victim int, decisions []models.SchedulingDecision, search SlotSearch, reason models.ConflictType) bool {
	dec := decisions[victim]
	for _, candidate := range search.Alternatives(dec) {
		if candidate.Slot.Key() == dec.Class.TimeSlot.Key() {
			continue
		}
		slot := candidate.Slot
		slot.Capacity = dec.Class.TimeSlot.Capacity
		teacherID := dec.Class.TeacherID
		if candidate.TeacherID != "" {
			teacherID = candidate.TeacherID
		}
		if slotOccupied(victim, teacherID, slot, decisions) {
			continue
		}
		decisions[victim].Class.TeacherID = teacherID
		decisions[victim].Class.TimeSlot = slot
		decisions[victim].Class.ConfidenceScore = candidate.Score
		decisions[victim].Class.Rationale = fmt.Sprintf("%s; relocated to resolve %s", candidate.Rationale, reason)
		return true
	}
	return false
}

// slotOccupied reports whether another active decision shares the teacher or one of the
// victim's students at an overlapping time.
func slotOccupied(victim int, teacherID string, slot models.TimeSlot, decisions []models.SchedulingDecision) bool {
	class := decisions[victim].Class
	for i, other := range decisions {
		if i == victim || !isActiveDecision(other) || !other.Class.TimeSlot.Overlaps(slot) {
			continue
		}
		if teacherID != "" && other.Class.TeacherID == teacherID {
			return true
		}
		for _, studentID := range class.StudentIDs {
			if other.Class.HasStudent(studentID) {
				return true
			}
		}
	}
	return false
}

// conflictHolds re-checks a conflict against the current decisions; an earlier relocation
// may already have cleared it.
func conflictHolds(conflict models.SchedulingConflict, decisions []models.SchedulingDecision, byID map[string]int) bool {
	var members []models.ScheduledClass
	for _, id := range conflict.ClassIDs {
		if idx, ok := byID[id]; ok && isActiveDecision(decisions[idx]) {
			members = append(members, decisions[idx].Class)
		}
	}
	switch conflict.Type {
	case models.ConflictTeacherDoubleBooking:
		return sharesStart(members, func(c models.ScheduledClass) bool { return c.TeacherID == conflict.ResourceID })
	case models.ConflictStudentDoubleBooking:
		return sharesStart(members, func(c models.ScheduledClass) bool { return c.HasStudent(conflict.ResourceID) })
	case models.ConflictTimeOverlap:
		if len(members) != 2 || !members[0].TimeSlot.Overlaps(members[1].TimeSlot) {
			return false
		}
		sameTeacher := members[0].TeacherID == conflict.ResourceID && members[1].TeacherID == conflict.ResourceID
		return sameTeacher || (members[0].HasStudent(conflict.ResourceID) && members[1].HasStudent(conflict.ResourceID))
	case models.ConflictCapacityExceeded:
		return len(members) == 1 && members[0].TimeSlot.Capacity.Max > 0 && len(members[0].StudentIDs) > members[0].TimeSlot.Capacity.Max
	default:
		return true
	}
}

func sharesStart(members []models.ScheduledClass, match func(models.ScheduledClass) bool) bool {
	counts := make(map[string]int)
	for _, c := range members {
		if !match(c) {
			continue
		}
		counts[c.TimeSlot.Key()]++
		if counts[c.TimeSlot.Key()] > 1 {
			return true
		}
	}
	return false
}
