package models

import "time"

// Student is the read snapshot of a learner.
type Student struct {
	ID        string    `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Email     string    `db:"email" json:"email"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StudentProgress is a per-course progress snapshot fed into scoring.
type StudentProgress struct {
	StudentID          string             `json:"studentId"`
	CourseID           string             `json:"courseId"`
	ProgressPercentage float64            `json:"progressPercentage"`
	CompletedContent   []string           `json:"completedContent"`
	UnlearnedContent   []string           `json:"unlearnedContent"`
	LearningPace       string             `json:"learningPace"`
	PerformanceMetrics map[string]float64 `json:"performanceMetrics,omitempty"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}
