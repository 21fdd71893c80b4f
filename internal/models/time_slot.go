package models

import (
	"strings"
	"time"
)

// SlotCapacity bounds enrollment for a time slot.
type SlotCapacity struct {
	Max               int `json:"max"`
	Min               int `json:"min"`
	CurrentEnrollment int `json:"currentEnrollment"`
}

// TimeSlot is a concrete teaching window. Enrollment is only changed by the commit path.
type TimeSlot struct {
	ID        string       `json:"id"`
	StartTime time.Time    `json:"startTime"`
	EndTime   time.Time    `json:"endTime"`
	DayOfWeek time.Weekday `json:"dayOfWeek"`
	Capacity  SlotCapacity `json:"capacity"`
	Location  string       `json:"location"`
}

// LocationOnline marks virtual classes.
const LocationOnline = "online"

// Key identifies the slot by its start instant.
func (t TimeSlot) Key() string {
	return t.StartTime.UTC().Format(time.RFC3339)
}

// Duration returns the slot length.
func (t TimeSlot) Duration() time.Duration {
	return t.EndTime.Sub(t.StartTime)
}

// Overlaps reports whether the two half-open windows intersect.
func (t TimeSlot) Overlaps(other TimeSlot) bool {
	return t.StartTime.Before(other.EndTime) && other.StartTime.Before(t.EndTime)
}

// AvailableSpots returns the remaining capacity, never negative.
func (t TimeSlot) AvailableSpots() int {
	spots := t.Capacity.Max - t.Capacity.CurrentEnrollment
	if spots < 0 {
		return 0
	}
	return spots
}

// IsOnline reports whether the slot is held online.
func (t TimeSlot) IsOnline() bool {
	return strings.EqualFold(strings.TrimSpace(t.Location), LocationOnline)
}

// CalendarDay returns the slot's date in its own location.
func (t TimeSlot) CalendarDay() string {
	return t.StartTime.Format("2006-01-02")
}
