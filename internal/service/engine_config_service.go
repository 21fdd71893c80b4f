package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-scheduler/internal/dto"
	"github.com/noah-isme/academy-scheduler/internal/models"
	"github.com/noah-isme/academy-scheduler/internal/scoring"
	"github.com/noah-isme/academy-scheduler/pkg/config"
	appErrors "github.com/noah-isme/academy-scheduler/pkg/errors"
)

// MakeUpThresholds are the minimum scores a make-up candidate must reach.
type MakeUpThresholds struct {
	Overall  float64 `json:"overall"`
	Content  float64 `json:"content"`
	Schedule float64 `json:"schedule"`
}

// EngineConfig is an immutable configuration snapshot. Updates build a new value.
type EngineConfig struct {
	MaxStudentsPerClass        int                    `json:"maxStudentsPerClass"`
	WorkingDays                []time.Weekday         `json:"workingDays"`
	WorkingHourStart           int                    `json:"workingHourStart"`
	WorkingHourEnd             int                    `json:"workingHourEnd"`
	HorizonDays                int                    `json:"horizonDays"`
	Timezone                   string                 `json:"timezone"`
	DefaultLocation            string                 `json:"defaultLocation"`
	DefaultClassMinutes        int                    `json:"defaultClassMinutes"`
	SlotWeights                scoring.SlotWeights    `json:"slotWeights"`
	MakeUpWeights              scoring.Weights        `json:"makeUpWeights"`
	TierThresholds             scoring.TierThresholds `json:"tierThresholds"`
	MakeUpThresholds           MakeUpThresholds       `json:"makeUpThresholds"`
	MaxSuggestions             int                    `json:"maxSuggestions"`
	MaxSuggestionsPerTeacher   int                    `json:"maxSuggestionsPerTeacher"`
	MaxSuggestionsPerDay       int                    `json:"maxSuggestionsPerDay"`
	MakeUpWindowDays           int                    `json:"makeUpWindowDays"`
	MaxRecommendations         int                    `json:"maxRecommendations"`
	EnableOptimization         bool                   `json:"enableOptimization"`
	AlternativeSolutions       int                    `json:"alternativeSolutions"`
	ContentSimilarityThreshold float64                `json:"contentSimilarityThreshold"`
}

// DefaultEngineConfig returns the built-in engine defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxStudentsPerClass:        9,
		WorkingDays:                []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		WorkingHourStart:           9,
		WorkingHourEnd:             18,
		HorizonDays:                14,
		Timezone:                   "UTC",
		DefaultLocation:            models.LocationOnline,
		DefaultClassMinutes:        60,
		SlotWeights:                scoring.DefaultSlotWeights(),
		MakeUpWeights:              scoring.DefaultMakeUpWeights(),
		TierThresholds:             scoring.DefaultTierThresholds(),
		MakeUpThresholds:           MakeUpThresholds{Overall: 0.4, Content: 0.3, Schedule: 0.2},
		MaxSuggestions:             10,
		MaxSuggestionsPerTeacher:   2,
		MaxSuggestionsPerDay:       3,
		MakeUpWindowDays:           14,
		MaxRecommendations:         10,
		AlternativeSolutions:       3,
		ContentSimilarityThreshold: 0.7,
	}
}

// EngineConfigFromSettings overlays process settings onto the defaults. Zero values keep defaults.
func EngineConfigFromSettings(sched config.SchedulerConfig, makeup config.MakeUpConfig) EngineConfig {
	cfg := DefaultEngineConfig()
	if sched.MaxStudentsPerClass > 0 {
		cfg.MaxStudentsPerClass = sched.MaxStudentsPerClass
	}
	if len(sched.WorkingDays) > 0 {
		cfg.WorkingDays = append([]time.Weekday(nil), sched.WorkingDays...)
	}
	if sched.WorkingHourEnd > sched.WorkingHourStart {
		cfg.WorkingHourStart = sched.WorkingHourStart
		cfg.WorkingHourEnd = sched.WorkingHourEnd
	}
	if sched.HorizonDays > 0 {
		cfg.HorizonDays = sched.HorizonDays
	}
	if sched.Timezone != "" {
		cfg.Timezone = sched.Timezone
	}
	if sched.DefaultLocation != "" {
		cfg.DefaultLocation = sched.DefaultLocation
	}
	cfg.EnableOptimization = sched.EnableOptimization
	if sched.AlternativeSolutions > 0 {
		cfg.AlternativeSolutions = sched.AlternativeSolutions
	}
	if sched.MaxRecommendations > 0 {
		cfg.MaxRecommendations = sched.MaxRecommendations
	}
	if makeup.MaxSuggestions > 0 {
		cfg.MaxSuggestions = makeup.MaxSuggestions
	}
	if makeup.MaxPerTeacher > 0 {
		cfg.MaxSuggestionsPerTeacher = makeup.MaxPerTeacher
	}
	if makeup.MaxPerDay > 0 {
		cfg.MaxSuggestionsPerDay = makeup.MaxPerDay
	}
	if makeup.WindowDays > 0 {
		cfg.MakeUpWindowDays = makeup.WindowDays
	}
	return cfg
}

// Clone deep copies slice fields.
func (c EngineConfig) Clone() EngineConfig {
	out := c
	out.WorkingDays = append([]time.Weekday(nil), c.WorkingDays...)
	return out
}

// Location resolves the configured timezone, falling back to UTC.
func (c EngineConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate checks every invariant the engines rely on.
func (c EngineConfig) Validate() error {
	if err := c.SlotWeights.Validate(); err != nil {
		return err
	}
	if err := c.MakeUpWeights.Validate(); err != nil {
		return err
	}
	if err := c.TierThresholds.Validate(); err != nil {
		return err
	}
	for name, v := range map[string]float64{
		"makeUpThresholds.overall":   c.MakeUpThresholds.Overall,
		"makeUpThresholds.content":   c.MakeUpThresholds.Content,
		"makeUpThresholds.schedule":  c.MakeUpThresholds.Schedule,
		"contentSimilarityThreshold": c.ContentSimilarityThreshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be within [0,1]", name)
		}
	}
	if c.MaxStudentsPerClass < 1 {
		return errors.New("maxStudentsPerClass must be at least 1")
	}
	if len(c.WorkingDays) == 0 {
		return errors.New("workingDays must contain at least one day")
	}
	seen := make(map[time.Weekday]bool, len(c.WorkingDays))
	for _, d := range c.WorkingDays {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("invalid working day %d", d)
		}
		if seen[d] {
			return fmt.Errorf("duplicate working day %s", d)
		}
		seen[d] = true
	}
	if c.WorkingHourStart < 0 || c.WorkingHourEnd > 24 || c.WorkingHourStart >= c.WorkingHourEnd {
		return fmt.Errorf("working hours must satisfy 0 <= start < end <= 24, got %d-%d", c.WorkingHourStart, c.WorkingHourEnd)
	}
	if c.HorizonDays < 1 || c.HorizonDays > 90 {
		return errors.New("horizonDays must be within 1..90")
	}
	if c.DefaultClassMinutes < 15 || c.DefaultClassMinutes > 240 {
		return errors.New("defaultClassMinutes must be within 15..240")
	}
	if c.MaxSuggestions < 1 || c.MaxSuggestionsPerTeacher < 1 || c.MaxSuggestionsPerDay < 1 {
		return errors.New("suggestion caps must be at least 1")
	}
	if c.MakeUpWindowDays < 1 {
		return errors.New("makeUpWindowDays must be at least 1")
	}
	if c.MaxRecommendations < 1 {
		return errors.New("maxRecommendations must be at least 1")
	}
	if c.AlternativeSolutions < 0 || c.AlternativeSolutions > len(alternativeStrategies) {
		return fmt.Errorf("alternativeSolutions must be within 0..%d", len(alternativeStrategies))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("unknown timezone %q", c.Timezone)
	}
	return nil
}

// Apply returns a copy with the patch's non-nil fields applied.
func (c EngineConfig) Apply(patch dto.EngineConfigPatch) EngineConfig {
	out := c.Clone()
	if patch.MaxStudentsPerClass != nil {
		out.MaxStudentsPerClass = *patch.MaxStudentsPerClass
	}
	if patch.WorkingDays != nil {
		out.WorkingDays = append([]time.Weekday(nil), patch.WorkingDays...)
	}
	if patch.WorkingHourStart != nil {
		out.WorkingHourStart = *patch.WorkingHourStart
	}
	if patch.WorkingHourEnd != nil {
		out.WorkingHourEnd = *patch.WorkingHourEnd
	}
	if patch.HorizonDays != nil {
		out.HorizonDays = *patch.HorizonDays
	}
	if patch.SlotWeights != nil {
		out.SlotWeights = *patch.SlotWeights
	}
	if patch.MakeUpWeights != nil {
		out.MakeUpWeights = *patch.MakeUpWeights
	}
	if patch.TierThresholds != nil {
		out.TierThresholds = *patch.TierThresholds
	}
	if t := patch.MakeUpThresholds; t != nil {
		if t.Overall != nil {
			out.MakeUpThresholds.Overall = *t.Overall
		}
		if t.Content != nil {
			out.MakeUpThresholds.Content = *t.Content
		}
		if t.Schedule != nil {
			out.MakeUpThresholds.Schedule = *t.Schedule
		}
	}
	if patch.MaxSuggestions != nil {
		out.MaxSuggestions = *patch.MaxSuggestions
	}
	if patch.MaxSuggestionsPerTeacher != nil {
		out.MaxSuggestionsPerTeacher = *patch.MaxSuggestionsPerTeacher
	}
	if patch.MaxSuggestionsPerDay != nil {
		out.MaxSuggestionsPerDay = *patch.MaxSuggestionsPerDay
	}
	if patch.MaxRecommendations != nil {
		out.MaxRecommendations = *patch.MaxRecommendations
	}
	if patch.EnableOptimization != nil {
		out.EnableOptimization = *patch.EnableOptimization
	}
	if patch.AlternativeSolutions != nil {
		out.AlternativeSolutions = *patch.AlternativeSolutions
	}
	if patch.ContentSimilarityThreshold != nil {
		out.ContentSimilarityThreshold = *patch.ContentSimilarityThreshold
	}
	return out
}

type engineConfigStore interface {
	Get(ctx context.Context, key string) (*models.Configuration, error)
	Upsert(ctx context.Context, cfg *models.Configuration) error
	History(ctx context.Context, key string, limit int) ([]models.ConfigurationRevision, error)
}

// EngineConfigService holds the active engine configuration. Readers take a snapshot
// per request so an update never changes a request mid-flight.
type EngineConfigService struct {
	current atomic.Pointer[EngineConfig]
	store   engineConfigStore
	logger  *zap.Logger
	mu      sync.Mutex
}

// NewEngineConfigService validates initial and makes it active. store may be nil.
func NewEngineConfigService(initial EngineConfig, store engineConfigStore, logger *zap.Logger) (*EngineConfigService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := initial.Validate(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status, err.Error())
	}
	svc := &EngineConfigService{store: store, logger: logger}
	cfg := initial.Clone()
	svc.current.Store(&cfg)
	return svc, nil
}

// Current returns the active configuration snapshot.
func (s *EngineConfigService) Current() EngineConfig {
	return s.current.Load().Clone()
}

// Load replaces the active configuration with the persisted one when present and valid.
func (s *EngineConfigService) Load(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	record, err := s.store.Get(ctx, models.EngineConfigurationKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load engine configuration")
	}
	next := s.Current()
	if err := json.Unmarshal([]byte(record.Value), &next); err != nil {
		return appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status, "stored engine configuration is malformed")
	}
	if err := next.Validate(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status, "stored engine configuration is invalid: "+err.Error())
	}
	s.mu.Lock()
	s.current.Store(&next)
	s.mu.Unlock()
	s.logger.Info("engine configuration loaded", zap.Time("updated_at", record.UpdatedAt))
	return nil
}

// UpdateConfiguration validates the patched configuration and swaps it in. On any
// failure the prior configuration stays active.
func (s *EngineConfigService) UpdateConfiguration(ctx context.Context, patch dto.EngineConfigPatch, updatedBy string) (EngineConfig, error) {
	if patch.IsEmpty() {
		return EngineConfig{}, appErrors.Clone(appErrors.ErrConfiguration, "configuration patch is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Load().Apply(patch)
	if err := next.Validate(); err != nil {
		return EngineConfig{}, appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status, err.Error())
	}

	if s.store != nil {
		payload, err := json.Marshal(next)
		if err != nil {
			return EngineConfig{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode engine configuration")
		}
		description := "scheduling engine configuration"
		record := &models.Configuration{
			Key:         models.EngineConfigurationKey,
			Value:       string(payload),
			Type:        models.ConfigurationTypeJSON,
			Description: &description,
		}
		if updatedBy != "" {
			record.UpdatedBy = &updatedBy
		}
		if err := s.store.Upsert(ctx, record); err != nil {
			return EngineConfig{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist engine configuration")
		}
	}

	s.current.Store(&next)
	s.logger.Info("engine configuration updated", zap.String("updated_by", updatedBy))
	return next.Clone(), nil
}

// History lists superseded engine configurations, newest first.
func (s *EngineConfigService) History(ctx context.Context, limit int) ([]models.ConfigurationRevision, error) {
	if s.store == nil {
		return []models.ConfigurationRevision{}, nil
	}
	revisions, err := s.store.History(ctx, models.EngineConfigurationKey, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load configuration history")
	}
	if revisions == nil {
		revisions = []models.ConfigurationRevision{}
	}
	return revisions, nil
}
