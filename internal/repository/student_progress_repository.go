package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"

	"github.com/noah-isme/academy-scheduler/internal/models"
)

type studentProgressRow struct {
	StudentID          string         `db:"student_id"`
	CourseID           string         `db:"course_id"`
	ProgressPercentage float64        `db:"progress_percentage"`
	CompletedContent   pq.StringArray `db:"completed_content"`
	UnlearnedContent   pq.StringArray `db:"unlearned_content"`
	LearningPace       string         `db:"learning_pace"`
	PerformanceMetrics types.JSONText `db:"performance_metrics"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

func (row studentProgressRow) toModel() models.StudentProgress {
	progress := models.StudentProgress{
		StudentID:          row.StudentID,
		CourseID:           row.CourseID,
		ProgressPercentage: row.ProgressPercentage,
		CompletedContent:   []string(row.CompletedContent),
		UnlearnedContent:   []string(row.UnlearnedContent),
		LearningPace:       row.LearningPace,
		UpdatedAt:          row.UpdatedAt,
	}
	if len(row.PerformanceMetrics) > 0 {
		_ = json.Unmarshal(row.PerformanceMetrics, &progress.PerformanceMetrics)
	}
	return progress
}

// StudentProgressRepository reads progress snapshots maintained by the aggregation job.
type StudentProgressRepository struct {
	db *sqlx.DB
}

// NewStudentProgressRepository constructs the repository.
func NewStudentProgressRepository(db *sqlx.DB) *StudentProgressRepository {
	return &StudentProgressRepository{db: db}
}

// ListByStudents returns progress rows for the students in the given course.
func (r *StudentProgressRepository) ListByStudents(ctx context.Context, studentIDs []string, courseID string) ([]models.StudentProgress, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT student_id, course_id, progress_percentage, completed_content, unlearned_content, learning_pace, performance_metrics, updated_at
FROM student_progress WHERE student_id = ANY($1) AND course_id = $2 ORDER BY student_id ASC`
	var rows []studentProgressRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(studentIDs), courseID); err != nil {
		return nil, fmt.Errorf("list student progress: %w", err)
	}
	result := make([]models.StudentProgress, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toModel())
	}
	return result, nil
}
