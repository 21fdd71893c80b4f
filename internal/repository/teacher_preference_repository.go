package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/academy-scheduler/internal/models"
)

// TeacherPreferenceRepository reads teacher load limits and unavailable windows.
type TeacherPreferenceRepository struct {
	db *sqlx.DB
}

// NewTeacherPreferenceRepository constructs the repository.
func NewTeacherPreferenceRepository(db *sqlx.DB) *TeacherPreferenceRepository {
	return &TeacherPreferenceRepository{db: db}
}

// ListByTeachers returns preferences keyed by teacher ID. Teachers without a row are absent.
func (r *TeacherPreferenceRepository) ListByTeachers(ctx context.Context, teacherIDs []string) (map[string]models.TeacherPreference, error) {
	result := make(map[string]models.TeacherPreference, len(teacherIDs))
	if len(teacherIDs) == 0 {
		return result, nil
	}
	const query = `SELECT id, teacher_id, max_load_per_day, max_load_per_week, unavailable, created_at, updated_at FROM teacher_preferences WHERE teacher_id = ANY($1)`
	var prefs []models.TeacherPreference
	if err := r.db.SelectContext(ctx, &prefs, query, pq.Array(teacherIDs)); err != nil {
		return nil, fmt.Errorf("list teacher preferences: %w", err)
	}
	for _, pref := range prefs {
		result[pref.TeacherID] = pref
	}
	return result, nil
}
