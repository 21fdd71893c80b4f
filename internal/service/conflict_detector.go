package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/academy-scheduler/internal/models"
)

// ConflictDetector finds double bookings, overlaps and capacity violations in a batch of decisions.
type ConflictDetector struct{}

// NewConflictDetector constructs a detector.
func NewConflictDetector() *ConflictDetector {
	return &ConflictDetector{}
}

// Detect groups decisions by (teacher, slot start) and (student, slot start). Every group
// with more than one member is a critical double booking. Pairs sharing a teacher or a
// student that overlap without sharing a start are high severity time overlaps, one per
// shared resource. Output order is deterministic.
func (d *ConflictDetector) Detect(decisions []models.SchedulingDecision) []models.SchedulingConflict {
	var conflicts []models.SchedulingConflict

	teacherGroups := make(map[string][]int)
	studentGroups := make(map[string][]int)
	for i, dec := range decisions {
		if !isActiveDecision(dec) {
			continue
		}
		key := dec.Class.TimeSlot.Key()
		if dec.Class.TeacherID != "" {
			teacherGroups[dec.Class.TeacherID+"|"+key] = append(teacherGroups[dec.Class.TeacherID+"|"+key], i)
		}
		for _, studentID := range dec.Class.StudentIDs {
			studentGroups[studentID+"|"+key] = append(studentGroups[studentID+"|"+key], i)
		}
	}

	for key, members := range teacherGroups {
		if len(members) < 2 {
			continue
		}
		teacherID := strings.SplitN(key, "|", 2)[0]
		conflicts = append(conflicts, newConflict(
			models.ConflictTeacherDoubleBooking,
			models.SeverityCritical,
			teacherID,
			classIDs(decisions, members),
			fmt.Sprintf("teacher %s is booked for %d classes starting %s", teacherID, len(members), strings.SplitN(key, "|", 2)[1]),
			models.ConflictResolution{Strategy: "reschedule", Description: "move the lower priority class to a free slot", AutoResolvable: true},
		))
	}

	for key, members := range studentGroups {
		if len(members) < 2 {
			continue
		}
		studentID := strings.SplitN(key, "|", 2)[0]
		conflicts = append(conflicts, newConflict(
			models.ConflictStudentDoubleBooking,
			models.SeverityCritical,
			studentID,
			classIDs(decisions, members),
			fmt.Sprintf("student %s is booked for %d classes starting %s", studentID, len(members), strings.SplitN(key, "|", 2)[1]),
			models.ConflictResolution{Strategy: "reschedule", Description: "move the lower priority class to a free slot", AutoResolvable: true},
		))
	}

	for i := 0; i < len(decisions); i++ {
		if !isActiveDecision(decisions[i]) {
			continue
		}
		a := decisions[i].Class
		for j := i + 1; j < len(decisions); j++ {
			if !isActiveDecision(decisions[j]) {
				continue
			}
			b := decisions[j].Class
			if a.TimeSlot.Key() == b.TimeSlot.Key() || !a.TimeSlot.Overlaps(b.TimeSlot) {
				continue
			}
			if a.TeacherID != "" && a.TeacherID == b.TeacherID {
				conflicts = append(conflicts, newConflict(
					models.ConflictTimeOverlap,
					models.SeverityHigh,
					a.TeacherID,
					sortedIDs(a.ID, b.ID),
					fmt.Sprintf("classes %s and %s of teacher %s overlap", a.ID, b.ID, a.TeacherID),
					models.ConflictResolution{Strategy: "reschedule", Description: "shift one class outside the overlapping window", AutoResolvable: true},
				))
			}
			for _, studentID := range a.StudentIDs {
				if !b.HasStudent(studentID) {
					continue
				}
				conflicts = append(conflicts, newConflict(
					models.ConflictTimeOverlap,
					models.SeverityHigh,
					studentID,
					sortedIDs(a.ID, b.ID),
					fmt.Sprintf("classes %s and %s of student %s overlap", a.ID, b.ID, studentID),
					models.ConflictResolution{Strategy: "reschedule", Description: "shift one class outside the overlapping window", AutoResolvable: true},
				))
			}
		}
	}

	for _, dec := range decisions {
		c := dec.Class
		if isActiveDecision(dec) && c.TimeSlot.Capacity.Max > 0 && len(c.StudentIDs) > c.TimeSlot.Capacity.Max {
			conflicts = append(conflicts, newConflict(
				models.ConflictCapacityExceeded,
				models.SeverityHigh,
				c.ID,
				[]string{c.ID},
				fmt.Sprintf("class %s has %d students for %d seats", c.ID, len(c.StudentIDs), c.TimeSlot.Capacity.Max),
				models.ConflictResolution{Strategy: "split_class", Description: "split the class into smaller groups", AutoResolvable: false},
			))
		}
	}

	sortConflicts(conflicts)
	return conflicts
}

func isActiveDecision(dec models.SchedulingDecision) bool {
	return dec.Class.Status == "" || dec.Class.Status == models.ClassStatusScheduled
}

func newConflict(kind models.ConflictType, severity models.ConflictSeverity, resourceID string, ids []string, description string, resolution models.ConflictResolution) models.SchedulingConflict {
	affected := append([]string{resourceID}, ids...)
	return models.SchedulingConflict{
		ID:                uuid.NewString(),
		Type:              kind,
		Severity:          severity,
		AffectedEntityIDs: affected,
		ClassIDs:          ids,
		ResourceID:        resourceID,
		Description:       description,
		Resolutions:       []models.ConflictResolution{resolution},
	}
}

func classIDs(decisions []models.SchedulingDecision, members []int) []string {
	ids := make([]string, 0, len(members))
	for _, idx := range members {
		ids = append(ids, decisions[idx].Class.ID)
	}
	sort.Strings(ids)
	return ids
}

func sortedIDs(ids ...string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}

func sortConflicts(conflicts []models.SchedulingConflict) {
	sort.SliceStable(conflicts, func(i, j int) bool {
		a, b := conflicts[i], conflicts[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.ResourceID != b.ResourceID {
			return a.ResourceID < b.ResourceID
		}
		return strings.Join(a.ClassIDs, ",") < strings.Join(b.ClassIDs, ",")
	})
}
