package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudentRepositoryListByIDs(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	mock.ExpectQuery("FROM students WHERE id = ANY").
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "email", "active", "created_at", "updated_at"}).
			AddRow("s1", "Student One", "s1@academy.test", true, now, now))

	students, err := repo.ListByIDs(context.Background(), []string{"s1", "s2"})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "s1", students[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentPreferenceRepositoryGetByStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentPreferenceRepository(db)

	mock.ExpectQuery("FROM student_schedule_preferences WHERE student_id = ").
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "preferences", "updated_at"}).
			AddRow("s1", []byte(`{"preferredTeachers":["t3"],"preferOnline":true}`), time.Now()))

	prefs, err := repo.GetByStudent(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"t3"}, prefs.PreferredTeachers)
	assert.True(t, prefs.PreferOnline)
	assert.Nil(t, prefs.PreferredClassSizeRange)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentPreferenceRepositoryListSkipsMalformedRows(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentPreferenceRepository(db)

	now := time.Now()
	mock.ExpectQuery("FROM student_schedule_preferences WHERE student_id = ANY").
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "preferences", "updated_at"}).
			AddRow("s1", []byte(`{"preferOnline":true}`), now).
			AddRow("s2", []byte(`not json`), now))

	prefs, err := repo.ListByStudents(context.Background(), []string{"s1", "s2"})
	require.NoError(t, err)
	assert.Len(t, prefs, 1)
	assert.True(t, prefs["s1"].PreferOnline)
}

func TestStudentProgressRepositoryListByStudents(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentProgressRepository(db)

	mock.ExpectQuery("FROM student_progress WHERE student_id = ANY").
		WithArgs(sqlmock.AnyArg(), "course-math").
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "course_id", "progress_percentage", "completed_content", "unlearned_content", "learning_pace", "performance_metrics", "updated_at"}).
			AddRow("s1", "course-math", 42.5, "{fractions}", "{algebra,geometry}", "fast", nil, time.Now()))

	progress, err := repo.ListByStudents(context.Background(), []string{"s1"}, "course-math")
	require.NoError(t, err)
	require.Len(t, progress, 1)
	assert.InDelta(t, 42.5, progress[0].ProgressPercentage, 1e-9)
	assert.Equal(t, []string{"algebra", "geometry"}, progress[0].UnlearnedContent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSimilarityRepositoryScore(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSimilarityRepository(db)

	mock.ExpectQuery("SELECT score FROM course_similarity").
		WithArgs("course-a", "course-b").
		WillReturnRows(sqlmock.NewRows([]string{"score"}).AddRow(0.75))
	mock.ExpectQuery("SELECT score FROM course_similarity").
		WithArgs("course-a", "course-z").
		WillReturnRows(sqlmock.NewRows([]string{"score"}))

	score, err := repo.Score(context.Background(), "course-a", "course-b")
	require.NoError(t, err)
	assert.InDelta(t, 0.75, score, 1e-9)

	_, err = repo.Score(context.Background(), "course-a", "course-z")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRatingRepositoryCapsLimit(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRatingRepository(db)

	mock.ExpectQuery("FROM class_performance_ratings").
		WithArgs(sqlmock.AnyArg(), DefaultRatingLimit).
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "class_id", "day_of_week", "hour", "rating", "recorded_at"}).
			AddRow("s1", "class-1", 2, 14, 4.5, time.Now()))

	ratings, err := repo.ListByStudents(context.Background(), []string{"s1"}, 100000)
	require.NoError(t, err)
	require.Len(t, ratings, 1)
	assert.Equal(t, 14, ratings[0].Hour)
	assert.NoError(t, mock.ExpectationsWereMet())
}
