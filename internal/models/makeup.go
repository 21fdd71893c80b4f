package models

import "time"

// HourWindow is a [StartHour, EndHour) range on any day.
type HourWindow struct {
	StartHour int `json:"startHour"`
	EndHour   int `json:"endHour"`
}

// Contains reports whether hour falls inside the window.
func (w HourWindow) Contains(hour int) bool {
	return hour >= w.StartHour && hour < w.EndHour
}

// SizeRange is an inclusive enrollment band.
type SizeRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// StudentSchedulePreferences drive make-up scoring. Absent fields are filled by WithDefaults.
type StudentSchedulePreferences struct {
	PreferredDays              []time.Weekday `json:"preferredDays,omitempty"`
	PreferredTimes             []HourWindow   `json:"preferredTimes,omitempty"`
	PreferredTeachers          []string       `json:"preferredTeachers,omitempty"`
	AvoidedTeachers            []string       `json:"avoidedTeachers,omitempty"`
	PreferredClassSizeRange    *SizeRange     `json:"preferredClassSizeRange,omitempty"`
	AdvanceNoticeRequiredHours *int           `json:"advanceNoticeRequiredHours,omitempty"`
	FlexibleWithTeacher        *bool          `json:"flexibleWithTeacher,omitempty"`
	PreferOnline               bool           `json:"preferOnline"`
}

// DefaultStudentSchedulePreferences: weekdays, 09-18, 1..6 students, 24h notice, flexible.
func DefaultStudentSchedulePreferences() StudentSchedulePreferences {
	notice := 24
	flexible := true
	return StudentSchedulePreferences{
		PreferredDays:              []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		PreferredTimes:             []HourWindow{{StartHour: 9, EndHour: 18}},
		PreferredClassSizeRange:    &SizeRange{Min: 1, Max: 6},
		AdvanceNoticeRequiredHours: &notice,
		FlexibleWithTeacher:        &flexible,
	}
}

// WithDefaults returns a copy with every absent field taken from the defaults.
func (p StudentSchedulePreferences) WithDefaults() StudentSchedulePreferences {
	d := DefaultStudentSchedulePreferences()
	out := p
	if len(out.PreferredDays) == 0 {
		out.PreferredDays = d.PreferredDays
	}
	if len(out.PreferredTimes) == 0 {
		out.PreferredTimes = d.PreferredTimes
	}
	if out.PreferredClassSizeRange == nil {
		out.PreferredClassSizeRange = d.PreferredClassSizeRange
	}
	if out.AdvanceNoticeRequiredHours == nil {
		out.AdvanceNoticeRequiredHours = d.AdvanceNoticeRequiredHours
	}
	if out.FlexibleWithTeacher == nil {
		out.FlexibleWithTeacher = d.FlexibleWithTeacher
	}
	return out
}

// PrefersDay reports whether day is one of the preferred days.
func (p StudentSchedulePreferences) PrefersDay(day time.Weekday) bool {
	for _, d := range p.PreferredDays {
		if d == day {
			return true
		}
	}
	return false
}

// IsPreferredTeacher reports an explicit preference.
func (p StudentSchedulePreferences) IsPreferredTeacher(id string) bool {
	return containsString(p.PreferredTeachers, id)
}

// IsAvoidedTeacher reports an explicit avoidance.
func (p StudentSchedulePreferences) IsAvoidedTeacher(id string) bool {
	return containsString(p.AvoidedTeachers, id)
}

// Flexible dereferences FlexibleWithTeacher, defaulting to true.
func (p StudentSchedulePreferences) Flexible() bool {
	if p.FlexibleWithTeacher == nil {
		return true
	}
	return *p.FlexibleWithTeacher
}

// NoticeHours dereferences AdvanceNoticeRequiredHours, defaulting to 24.
func (p StudentSchedulePreferences) NoticeHours() int {
	if p.AdvanceNoticeRequiredHours == nil {
		return 24
	}
	return *p.AdvanceNoticeRequiredHours
}

// MakeUpSuggestionRequest asks for replacement classes for a postponed class.
type MakeUpSuggestionRequest struct {
	StudentID          string                      `json:"studentId"`
	PostponedClassID   string                      `json:"postponedClassId"`
	WindowStart        *time.Time                  `json:"windowStart,omitempty"`
	WindowEnd          *time.Time                  `json:"windowEnd,omitempty"`
	ExcludedClassIDs   []string                    `json:"excludedClassIds,omitempty"`
	ExcludedTeacherIDs []string                    `json:"excludedTeacherIds,omitempty"`
	Preferences        *StudentSchedulePreferences `json:"preferences,omitempty"`
	MaxSuggestions     int                         `json:"maxSuggestions,omitempty"`
}

// RecommendationStrength is a qualitative tier derived from the overall score.
type RecommendationStrength string

const (
	StrengthLow       RecommendationStrength = "low"
	StrengthMedium    RecommendationStrength = "medium"
	StrengthHigh      RecommendationStrength = "high"
	StrengthExcellent RecommendationStrength = "excellent"
)

// DetailedMakeUpSuggestion is immutable once returned.
type DetailedMakeUpSuggestion struct {
	ClassID                   string                 `json:"classId"`
	TeacherID                 string                 `json:"teacherId"`
	CourseID                  string                 `json:"courseId"`
	TimeSlot                  TimeSlot               `json:"timeSlot"`
	ContentCompatibility      float64                `json:"contentCompatibility"`
	ScheduleCompatibility     float64                `json:"scheduleCompatibility"`
	TeacherCompatibility      float64                `json:"teacherCompatibility"`
	ClassSizeCompatibility    float64                `json:"classSizeCompatibility"`
	LocationCompatibility     float64                `json:"locationCompatibility"`
	TimingCompatibility       float64                `json:"timingCompatibility"`
	AvailabilityScore         float64                `json:"availabilityScore"`
	OverallCompatibilityScore float64                `json:"overallCompatibilityScore"`
	RecommendationStrength    RecommendationStrength `json:"recommendationStrength"`
	Benefits                  []string               `json:"benefits"`
	Considerations            []string               `json:"considerations"`
}

func containsString(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
