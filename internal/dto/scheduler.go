package dto

import (
	"time"

	"github.com/noah-isme/academy-scheduler/internal/models"
)

// TimeSlotInput is a caller supplied preferred window.
type TimeSlotInput struct {
	StartTime   time.Time `json:"startTime" validate:"required"`
	EndTime     time.Time `json:"endTime" validate:"required,gtfield=StartTime"`
	Location    string    `json:"location"`
	MaxCapacity int       `json:"maxCapacity" validate:"omitempty,min=1"`
}

// ScheduleRequest is the payload for POST /scheduling/requests.
type ScheduleRequest struct {
	ID                 string                        `json:"id" validate:"omitempty,uuid4"`
	Type               string                        `json:"type" validate:"omitempty,oneof=auto_schedule reschedule conflict_resolution optimization content_sync manual_override"`
	Priority           string                        `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	StudentIDs         []string                      `json:"studentIds" validate:"required,dive,required"`
	CourseID           string                        `json:"courseId" validate:"required"`
	PreferredTimeSlots []TimeSlotInput               `json:"preferredTimeSlots" validate:"omitempty,dive"`
	Constraints        *models.SchedulingConstraints `json:"constraints"`
}

// ToModel converts the payload into an immutable engine request.
func (r ScheduleRequest) ToModel(now time.Time) models.SchedulingRequest {
	req := models.SchedulingRequest{
		ID:          r.ID,
		Type:        models.SchedulingRequestType(r.Type),
		Priority:    models.SchedulingPriority(r.Priority),
		StudentIDs:  append([]string(nil), r.StudentIDs...),
		CourseID:    r.CourseID,
		Constraints: r.Constraints,
		RequestedAt: now.UTC(),
	}
	if req.Type == "" {
		req.Type = models.RequestAutoSchedule
	}
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}
	for _, slot := range r.PreferredTimeSlots {
		req.PreferredTimeSlots = append(req.PreferredTimeSlots, models.TimeSlot{
			StartTime: slot.StartTime,
			EndTime:   slot.EndTime,
			DayOfWeek: slot.StartTime.Weekday(),
			Location:  slot.Location,
			Capacity:  models.SlotCapacity{Max: slot.MaxCapacity},
		})
	}
	return req
}

// AsyncScheduleResponse acknowledges a queued request.
type AsyncScheduleResponse struct {
	RequestID string                 `json:"requestId"`
	State     models.ProcessingState `json:"state"`
}

// OptimizeRequest is the payload for POST /scheduling/optimize. Missing teacher and
// rating snapshots are loaded from the store.
type OptimizeRequest struct {
	Decisions   []models.SchedulingDecision    `json:"decisions" validate:"required,min=1"`
	Constraints models.OptimizationConstraints `json:"constraints"`
}

// MakeUpRequest is the payload for POST /makeup/suggestions.
type MakeUpRequest struct {
	StudentID          string                             `json:"studentId" validate:"required"`
	PostponedClassID   string                             `json:"postponedClassId" validate:"required"`
	WindowStart        *time.Time                         `json:"windowStart"`
	WindowEnd          *time.Time                         `json:"windowEnd"`
	ExcludedClassIDs   []string                           `json:"excludedClassIds"`
	ExcludedTeacherIDs []string                           `json:"excludedTeacherIds"`
	Preferences        *models.StudentSchedulePreferences `json:"preferences"`
	MaxSuggestions     int                                `json:"maxSuggestions" validate:"omitempty,min=1,max=50"`
}

// ToModel converts the payload.
func (r MakeUpRequest) ToModel() models.MakeUpSuggestionRequest {
	return models.MakeUpSuggestionRequest{
		StudentID:          r.StudentID,
		PostponedClassID:   r.PostponedClassID,
		WindowStart:        r.WindowStart,
		WindowEnd:          r.WindowEnd,
		ExcludedClassIDs:   r.ExcludedClassIDs,
		ExcludedTeacherIDs: r.ExcludedTeacherIDs,
		Preferences:        r.Preferences,
		MaxSuggestions:     r.MaxSuggestions,
	}
}
