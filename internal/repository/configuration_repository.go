package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academy-scheduler/internal/models"
)

// DefaultRevisionLimit bounds configuration history reads.
const DefaultRevisionLimit = 20

// ConfigurationRepository persists keyed configuration documents, such as the engine
// configuration, and keeps every superseded value in configuration_history.
type ConfigurationRepository struct {
	db *sqlx.DB
}

// NewConfigurationRepository constructs the repository.
func NewConfigurationRepository(db *sqlx.DB) *ConfigurationRepository {
	return &ConfigurationRepository{db: db}
}

// Get fetches a single configuration by key. A missing key yields sql.ErrNoRows.
func (r *ConfigurationRepository) Get(ctx context.Context, key string) (*models.Configuration, error) {
	const query = `SELECT key, value, type, description, updated_by, updated_at FROM configurations WHERE key = $1`
	var cfg models.Configuration
	if err := r.db.GetContext(ctx, &cfg, query, key); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Upsert replaces the value for cfg.Key. The previous value, when any, is archived
// in the same transaction.
func (r *ConfigurationRepository) Upsert(ctx context.Context, cfg *models.Configuration) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin configuration upsert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var previous models.Configuration
	err = tx.GetContext(ctx, &previous,
		`SELECT key, value, type, description, updated_by, updated_at FROM configurations WHERE key = $1 FOR UPDATE`, cfg.Key)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("lock configuration %s: %w", cfg.Key, err)
	default:
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO configuration_history (key, value, updated_by, replaced_at) VALUES ($1, $2, $3, NOW())`,
			previous.Key, previous.Value, previous.UpdatedBy); err != nil {
			return fmt.Errorf("archive configuration %s: %w", cfg.Key, err)
		}
	}

	cfg.UpdatedAt = time.Now().UTC()
	if _, err := tx.NamedExecContext(ctx, `INSERT INTO configurations (key, value, type, description, updated_by, updated_at)
VALUES (:key, :value, :type, :description, :updated_by, :updated_at)
ON CONFLICT (key)
DO UPDATE SET value = EXCLUDED.value, type = EXCLUDED.type, description = EXCLUDED.description,
              updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`, cfg); err != nil {
		return fmt.Errorf("upsert configuration %s: %w", cfg.Key, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit configuration %s: %w", cfg.Key, err)
	}
	return nil
}

// History lists superseded values for key, newest first.
func (r *ConfigurationRepository) History(ctx context.Context, key string, limit int) ([]models.ConfigurationRevision, error) {
	if limit <= 0 || limit > 100 {
		limit = DefaultRevisionLimit
	}
	const query = `SELECT id, key, value, updated_by, replaced_at FROM configuration_history
WHERE key = $1 ORDER BY replaced_at DESC, id DESC LIMIT $2`
	var revisions []models.ConfigurationRevision
	if err := r.db.SelectContext(ctx, &revisions, query, key, limit); err != nil {
		return nil, fmt.Errorf("list configuration history: %w", err)
	}
	return revisions, nil
}
