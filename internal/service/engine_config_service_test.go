package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-scheduler/internal/dto"
	"github.com/noah-isme/academy-scheduler/internal/models"
	"github.com/noah-isme/academy-scheduler/internal/scoring"
	"github.com/noah-isme/academy-scheduler/pkg/config"
	appErrors "github.com/noah-isme/academy-scheduler/pkg/errors"
)

type configStoreStub struct {
	record    *models.Configuration
	upserted  []models.Configuration
	upsertErr error
	history   []models.ConfigurationRevision
	limit     int
}

func (s *configStoreStub) Get(ctx context.Context, key string) (*models.Configuration, error) {
	if s.record == nil || s.record.Key != key {
		return nil, sql.ErrNoRows
	}
	return s.record, nil
}

func (s *configStoreStub) Upsert(ctx context.Context, cfg *models.Configuration) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.upserted = append(s.upserted, *cfg)
	return nil
}

func (s *configStoreStub) History(ctx context.Context, key string, limit int) ([]models.ConfigurationRevision, error) {
	s.limit = limit
	return s.history, nil
}

func intPtr(v int) *int { return &v }

func TestUpdateConfigurationAppliesAndPersists(t *testing.T) {
	store := &configStoreStub{}
	svc, err := NewEngineConfigService(DefaultEngineConfig(), store, nil)
	require.NoError(t, err)

	next, err := svc.UpdateConfiguration(context.Background(), dto.EngineConfigPatch{
		MaxStudentsPerClass: intPtr(6),
		WorkingHourEnd:      intPtr(20),
	}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, 6, next.MaxStudentsPerClass)
	assert.Equal(t, 20, next.WorkingHourEnd)
	assert.Equal(t, 6, svc.Current().MaxStudentsPerClass)

	require.Len(t, store.upserted, 1)
	record := store.upserted[0]
	assert.Equal(t, models.EngineConfigurationKey, record.Key)
	require.NotNil(t, record.UpdatedBy)
	assert.Equal(t, "admin-1", *record.UpdatedBy)
	var stored EngineConfig
	require.NoError(t, json.Unmarshal([]byte(record.Value), &stored))
	assert.Equal(t, 6, stored.MaxStudentsPerClass)
}

func TestUpdateConfigurationRejectsInvalidWeights(t *testing.T) {
	store := &configStoreStub{}
	svc, err := NewEngineConfigService(DefaultEngineConfig(), store, nil)
	require.NoError(t, err)

	bad := scoring.Weights{Content: 0.5, Schedule: 0.6}
	_, err = svc.UpdateConfiguration(context.Background(), dto.EngineConfigPatch{MakeUpWeights: &bad}, "admin-1")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConfiguration.Code))
	assert.Contains(t, err.Error(), "must sum to 1.0")

	assert.Equal(t, scoring.DefaultMakeUpWeights(), svc.Current().MakeUpWeights)
	assert.Empty(t, store.upserted)
}

func TestUpdateConfigurationRejectsEmptyPatch(t *testing.T) {
	svc, err := NewEngineConfigService(DefaultEngineConfig(), nil, nil)
	require.NoError(t, err)

	_, err = svc.UpdateConfiguration(context.Background(), dto.EngineConfigPatch{}, "")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConfiguration.Code))
}

func TestUpdateConfigurationKeepsPriorOnStoreFailure(t *testing.T) {
	store := &configStoreStub{upsertErr: errors.New("db down")}
	svc, err := NewEngineConfigService(DefaultEngineConfig(), store, nil)
	require.NoError(t, err)

	_, err = svc.UpdateConfiguration(context.Background(), dto.EngineConfigPatch{MaxStudentsPerClass: intPtr(4)}, "admin-1")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInternal.Code))
	assert.Equal(t, 9, svc.Current().MaxStudentsPerClass)
}

func TestEngineConfigValidation(t *testing.T) {
	cases := map[string]func(*EngineConfig){
		"duplicate day":   func(c *EngineConfig) { c.WorkingDays = []time.Weekday{time.Monday, time.Monday} },
		"no days":         func(c *EngineConfig) { c.WorkingDays = nil },
		"inverted hours":  func(c *EngineConfig) { c.WorkingHourStart, c.WorkingHourEnd = 18, 9 },
		"zero class size": func(c *EngineConfig) { c.MaxStudentsPerClass = 0 },
		"tiers": func(c *EngineConfig) {
			c.TierThresholds = scoring.TierThresholds{Excellent: 0.5, High: 0.7, Medium: 0.6}
		},
		"threshold range": func(c *EngineConfig) { c.MakeUpThresholds.Overall = 1.2 },
		"timezone":        func(c *EngineConfig) { c.Timezone = "Mars/Olympus" },
		"alternatives":    func(c *EngineConfig) { c.AlternativeSolutions = 9 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultEngineConfig()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, DefaultEngineConfig().Validate())
}

func TestNewEngineConfigServiceRejectsInvalidInitial(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.HorizonDays = 0
	_, err := NewEngineConfigService(cfg, nil, nil)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConfiguration.Code))
}

func TestEngineConfigLoadUsesStoredValue(t *testing.T) {
	stored := DefaultEngineConfig()
	stored.MaxSuggestions = 4
	payload, err := json.Marshal(stored)
	require.NoError(t, err)
	store := &configStoreStub{record: &models.Configuration{Key: models.EngineConfigurationKey, Value: string(payload)}}

	svc, err := NewEngineConfigService(DefaultEngineConfig(), store, nil)
	require.NoError(t, err)
	require.NoError(t, svc.Load(context.Background()))
	assert.Equal(t, 4, svc.Current().MaxSuggestions)
}

func TestEngineConfigLoadRejectsInvalidStoredValue(t *testing.T) {
	store := &configStoreStub{record: &models.Configuration{Key: models.EngineConfigurationKey, Value: `{"maxStudentsPerClass":0}`}}
	svc, err := NewEngineConfigService(DefaultEngineConfig(), store, nil)
	require.NoError(t, err)

	err = svc.Load(context.Background())
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConfiguration.Code))
	assert.Equal(t, 9, svc.Current().MaxStudentsPerClass)
}

func TestEngineConfigFromSettings(t *testing.T) {
	cfg := EngineConfigFromSettings(config.SchedulerConfig{
		MaxStudentsPerClass: 5,
		WorkingDays:         []time.Weekday{time.Saturday},
		WorkingHourStart:    8,
		WorkingHourEnd:      12,
		Timezone:            "UTC",
	}, config.MakeUpConfig{MaxPerDay: 1})

	assert.Equal(t, 5, cfg.MaxStudentsPerClass)
	assert.Equal(t, []time.Weekday{time.Saturday}, cfg.WorkingDays)
	assert.Equal(t, 8, cfg.WorkingHourStart)
	assert.Equal(t, 12, cfg.WorkingHourEnd)
	assert.Equal(t, 1, cfg.MaxSuggestionsPerDay)
	assert.Equal(t, 10, cfg.MaxSuggestions)
	assert.NoError(t, cfg.Validate())
}

func TestEngineConfigSnapshotsAreIsolated(t *testing.T) {
	svc, err := NewEngineConfigService(DefaultEngineConfig(), nil, nil)
	require.NoError(t, err)

	snapshot := svc.Current()
	snapshot.WorkingDays[0] = time.Sunday
	assert.Equal(t, time.Monday, svc.Current().WorkingDays[0])
}

func TestEngineConfigHistory(t *testing.T) {
	store := &configStoreStub{history: []models.ConfigurationRevision{{ID: 3, Key: models.EngineConfigurationKey, Value: "{}"}}}
	svc, err := NewEngineConfigService(DefaultEngineConfig(), store, nil)
	require.NoError(t, err)

	revisions, err := svc.History(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, revisions, 1)
	assert.Equal(t, 5, store.limit)

	store.history = nil
	revisions, err = svc.History(context.Background(), 0)
	require.NoError(t, err)
	assert.NotNil(t, revisions)
	assert.Empty(t, revisions)

	detached, err := NewEngineConfigService(DefaultEngineConfig(), nil, nil)
	require.NoError(t, err)
	revisions, err = detached.History(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, revisions)
}
