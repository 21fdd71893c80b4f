package models

// Course describes what is taught. CourseType groups interchangeable courses for make-up matching.
type Course struct {
	ID              string `db:"id" json:"id"`
	Name            string `db:"name" json:"name"`
	CourseType      string `db:"course_type" json:"course_type"`
	DifficultyLevel int    `db:"difficulty_level" json:"difficulty_level"`
	DurationMinutes int    `db:"duration_minutes" json:"duration_minutes"`
}
