package models

import "time"

// PerformanceRating is a historical 1..5 rating of a class a student attended.
type PerformanceRating struct {
	StudentID  string    `db:"student_id" json:"studentId"`
	ClassID    string    `db:"class_id" json:"classId"`
	DayOfWeek  int       `db:"day_of_week" json:"dayOfWeek"`
	Hour       int       `db:"hour" json:"hour"`
	Rating     float64   `db:"rating" json:"rating"`
	RecordedAt time.Time `db:"recorded_at" json:"recordedAt"`
}
