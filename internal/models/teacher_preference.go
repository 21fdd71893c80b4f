package models

import (
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// TeacherUnavailableSlot blocks an hour range on a weekday, e.g. {"day_of_week":"MONDAY","time_range":"9-12"}.
// The range is inclusive of the start hour and exclusive of the end hour.
type TeacherUnavailableSlot struct {
	DayOfWeek string `json:"day_of_week"`
	TimeRange string `json:"time_range"`
}

// TeacherPreference stores load limits and unavailable windows for a teacher.
type TeacherPreference struct {
	ID             string         `db:"id" json:"id"`
	TeacherID      string         `db:"teacher_id" json:"teacher_id"`
	MaxLoadPerDay  int            `db:"max_load_per_day" json:"max_load_per_day"`
	MaxLoadPerWeek int            `db:"max_load_per_week" json:"max_load_per_week"`
	Unavailable    types.JSONText `db:"unavailable" json:"unavailable"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// UnavailableSlots decodes the stored windows. Malformed payloads yield no windows.
func (p *TeacherPreference) UnavailableSlots() []TeacherUnavailableSlot {
	if p == nil || len(p.Unavailable) == 0 {
		return nil
	}
	var windows []TeacherUnavailableSlot
	if err := json.Unmarshal(p.Unavailable, &windows); err != nil {
		return nil
	}
	return windows
}
