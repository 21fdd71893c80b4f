package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-scheduler/internal/models"
)

func TestConfigurationRepositoryGet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewConfigurationRepository(db)

	mock.ExpectQuery("SELECT key, value").
		WithArgs(models.EngineConfigurationKey).
		WillReturnRows(sqlmock.NewRows(configurationColumns).
			AddRow(models.EngineConfigurationKey, `{"maxStudentsPerClass":6}`, "JSON", "engine", "admin-1", time.Now()))

	cfg, err := repo.Get(context.Background(), models.EngineConfigurationKey)
	require.NoError(t, err)
	assert.Equal(t, `{"maxStudentsPerClass":6}`, cfg.Value)
	require.NotNil(t, cfg.UpdatedBy)
	assert.Equal(t, "admin-1", *cfg.UpdatedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigurationRepositoryGetMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewConfigurationRepository(db)

	mock.ExpectQuery("SELECT key, value").WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), models.EngineConfigurationKey)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

var configurationColumns = []string{"key", "value", "type", "description", "updated_by", "updated_at"}

func TestConfigurationRepositoryUpsertFirstWrite(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewConfigurationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT key, value.* FOR UPDATE").
		WithArgs(models.EngineConfigurationKey).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO configurations").
		WithArgs(models.EngineConfigurationKey, "{}", "JSON", sqlmock.AnyArg(), "admin-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	updatedBy := "admin-1"
	cfg := &models.Configuration{
		Key:       models.EngineConfigurationKey,
		Value:     "{}",
		Type:      models.ConfigurationTypeJSON,
		UpdatedBy: &updatedBy,
	}
	require.NoError(t, repo.Upsert(context.Background(), cfg))
	assert.False(t, cfg.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigurationRepositoryUpsertArchivesPrevious(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewConfigurationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT key, value.* FOR UPDATE").
		WithArgs(models.EngineConfigurationKey).
		WillReturnRows(sqlmock.NewRows(configurationColumns).
			AddRow(models.EngineConfigurationKey, `{"maxStudentsPerClass":9}`, "JSON", nil, "admin-0", time.Now()))
	mock.ExpectExec("INSERT INTO configuration_history").
		WithArgs(models.EngineConfigurationKey, `{"maxStudentsPerClass":9}`, "admin-0").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec("INSERT INTO configurations").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	cfg := &models.Configuration{Key: models.EngineConfigurationKey, Value: `{"maxStudentsPerClass":6}`, Type: models.ConfigurationTypeJSON}
	require.NoError(t, repo.Upsert(context.Background(), cfg))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigurationRepositoryUpsertRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewConfigurationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT key, value.* FOR UPDATE").WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO configurations").WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := repo.Upsert(context.Background(), &models.Configuration{Key: models.EngineConfigurationKey, Value: "{}"})
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigurationRepositoryHistory(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewConfigurationRepository(db)

	replaced := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, key, value, updated_by, replaced_at FROM configuration_history").
		WithArgs(models.EngineConfigurationKey, DefaultRevisionLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id", "key", "value", "updated_by", "replaced_at"}).
			AddRow(2, models.EngineConfigurationKey, `{"b":1}`, "admin-1", replaced).
			AddRow(1, models.EngineConfigurationKey, `{"a":1}`, nil, replaced.Add(-time.Hour)))

	revisions, err := repo.History(context.Background(), models.EngineConfigurationKey, 0)
	require.NoError(t, err)
	require.Len(t, revisions, 2)
	assert.Equal(t, int64(2), revisions[0].ID)
	require.NotNil(t, revisions[0].UpdatedBy)
	assert.Nil(t, revisions[1].UpdatedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}
