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

type studentPreferenceRow struct {
	StudentID   string         `db:"student_id"`
	Preferences types.JSONText `db:"preferences"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

// StudentPreferenceRepository reads stored schedule preferences.
type StudentPreferenceRepository struct {
	db *sqlx.DB
}

// NewStudentPreferenceRepository constructs the repository.
func NewStudentPreferenceRepository(db *sqlx.DB) *StudentPreferenceRepository {
	return &StudentPreferenceRepository{db: db}
}

// GetByStudent returns sql.ErrNoRows when the student never stored preferences.
func (r *StudentPreferenceRepository) GetByStudent(ctx context.Context, studentID string) (*models.StudentSchedulePreferences, error) {
	const query = `SELECT student_id, preferences, updated_at FROM student_schedule_preferences WHERE student_id = $1`
	var row studentPreferenceRow
	if err := r.db.GetContext(ctx, &row, query, studentID); err != nil {
		return nil, err
	}
	var prefs models.StudentSchedulePreferences
	if err := json.Unmarshal(row.Preferences, &prefs); err != nil {
		return nil, fmt.Errorf("decode preferences for %s: %w", studentID, err)
	}
	return &prefs, nil
}

// ListByStudents returns stored preferences keyed by student ID.
func (r *StudentPreferenceRepository) ListByStudents(ctx context.Context, studentIDs []string) (map[string]models.StudentSchedulePreferences, error) {
	result := make(map[string]models.StudentSchedulePreferences, len(studentIDs))
	if len(studentIDs) == 0 {
		return result, nil
	}
	const query = `SELECT student_id, preferences, updated_at FROM student_schedule_preferences WHERE student_id = ANY($1)`
	var rows []studentPreferenceRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(studentIDs)); err != nil {
		return nil, fmt.Errorf("list student preferences: %w", err)
	}
	for _, row := range rows {
		var prefs models.StudentSchedulePreferences
		if err := json.Unmarshal(row.Preferences, &prefs); err != nil {
			continue
		}
		result[row.StudentID] = prefs
	}
	return result, nil
}
