package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var teacherRowColumns = []string{"id", "full_name", "email", "specializations", "max_students_per_class", "active", "created_at", "updated_at"}

func TestTeacherRepositoryListBySpecialization(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM teachers WHERE active = TRUE AND $1 = ANY(specializations) ORDER BY id ASC")).
		WithArgs("math").
		WillReturnRows(sqlmock.NewRows(teacherRowColumns).
			AddRow("t1", "Teacher A", "a@academy.test", "{math,physics}", 6, true, now, now))

	teachers, err := repo.ListBySpecialization(context.Background(), "math")
	require.NoError(t, err)
	require.Len(t, teachers, 1)
	assert.True(t, teachers[0].HasSpecialization("physics"))
	assert.Equal(t, 6, teachers[0].MaxStudentsPerClass)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryListByIDsSkipsEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	teachers, err := repo.ListByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, teachers)
	assert.NoError(t, mock.ExpectationsWereMet())
}
