package dto

import (
	"time"

	"github.com/noah-isme/academy-scheduler/internal/scoring"
)

// MakeUpThresholdsPatch overrides minimum make-up scores.
type MakeUpThresholdsPatch struct {
	Overall  *float64 `json:"overall" yaml:"overall"`
	Content  *float64 `json:"content" yaml:"content"`
	Schedule *float64 `json:"schedule" yaml:"schedule"`
}

// EngineConfigPatch is a partial engine configuration. Nil fields keep their current value.
type EngineConfigPatch struct {
	MaxStudentsPerClass        *int                    `json:"maxStudentsPerClass" yaml:"maxStudentsPerClass"`
	WorkingDays                []time.Weekday          `json:"workingDays" yaml:"workingDays"`
	WorkingHourStart           *int                    `json:"workingHourStart" yaml:"workingHourStart"`
	WorkingHourEnd             *int                    `json:"workingHourEnd" yaml:"workingHourEnd"`
	HorizonDays                *int                    `json:"horizonDays" yaml:"horizonDays"`
	SlotWeights                *scoring.SlotWeights    `json:"slotWeights" yaml:"slotWeights"`
	MakeUpWeights              *scoring.Weights        `json:"makeUpWeights" yaml:"makeUpWeights"`
	TierThresholds             *scoring.TierThresholds `json:"tierThresholds" yaml:"tierThresholds"`
	MakeUpThresholds           *MakeUpThresholdsPatch  `json:"makeUpThresholds" yaml:"makeUpThresholds"`
	MaxSuggestions             *int                    `json:"maxSuggestions" yaml:"maxSuggestions"`
	MaxSuggestionsPerTeacher   *int                    `json:"maxSuggestionsPerTeacher" yaml:"maxSuggestionsPerTeacher"`
	MaxSuggestionsPerDay       *int                    `json:"maxSuggestionsPerDay" yaml:"maxSuggestionsPerDay"`
	MaxRecommendations         *int                    `json:"maxRecommendations" yaml:"maxRecommendations"`
	EnableOptimization         *bool                   `json:"enableOptimization" yaml:"enableOptimization"`
	AlternativeSolutions       *int                    `json:"alternativeSolutions" yaml:"alternativeSolutions"`
	ContentSimilarityThreshold *float64                `json:"contentSimilarityThreshold" yaml:"contentSimilarityThreshold"`
}

// IsEmpty reports whether the patch changes nothing.
func (p EngineConfigPatch) IsEmpty() bool {
	return p.MaxStudentsPerClass == nil && p.WorkingDays == nil && p.WorkingHourStart == nil &&
		p.WorkingHourEnd == nil && p.HorizonDays == nil && p.SlotWeights == nil && p.MakeUpWeights == nil &&
		p.TierThresholds == nil && p.MakeUpThresholds == nil && p.MaxSuggestions == nil &&
		p.MaxSuggestionsPerTeacher == nil && p.MaxSuggestionsPerDay == nil && p.MaxRecommendations == nil &&
		p.EnableOptimization == nil && p.AlternativeSolutions == nil && p.ContentSimilarityThreshold == nil
}
