package scoring

import (
	"fmt"
	"math"
)

// WeightEpsilon is the tolerance for weight vectors summing to one.
const WeightEpsilon = 1e-6

// Scores are the seven per-dimension compatibility values.
type Scores struct {
	Content      float64 `json:"content"`
	Schedule     float64 `json:"schedule"`
	Teacher      float64 `json:"teacher"`
	ClassSize    float64 `json:"classSize"`
	Location     float64 `json:"location"`
	Timing       float64 `json:"timing"`
	Availability float64 `json:"availability"`
}

// Weights combine Scores into a composite.
type Weights struct {
	Content      float64 `json:"content" yaml:"content"`
	Schedule     float64 `json:"schedule" yaml:"schedule"`
	Teacher      float64 `json:"teacher" yaml:"teacher"`
	ClassSize    float64 `json:"classSize" yaml:"classSize"`
	Location     float64 `json:"location" yaml:"location"`
	Timing       float64 `json:"timing" yaml:"timing"`
	Availability float64 `json:"availability" yaml:"availability"`
}

// DefaultMakeUpWeights: content 0.30, schedule 0.25, teacher 0.20, size 0.10, location 0.08, timing 0.05, availability 0.02.
func DefaultMakeUpWeights() Weights {
	return Weights{
		Content:      0.30,
		Schedule:     0.25,
		Teacher:      0.20,
		ClassSize:    0.10,
		Location:     0.08,
		Timing:       0.05,
		Availability: 0.02,
	}
}

func (w Weights) values() []float64 {
	return []float64{w.Content, w.Schedule, w.Teacher, w.ClassSize, w.Location, w.Timing, w.Availability}
}

// Sum adds all weights.
func (w Weights) Sum() float64 {
	var sum float64
	for _, v := range w.values() {
		sum += v
	}
	return sum
}

// Validate rejects negative weights and sums away from 1.
func (w Weights) Validate() error {
	return validateVector("make-up weights", w.values())
}

// Composite is Σ weight·score clamped to [0,1].
func (w Weights) Composite(s Scores) float64 {
	return Clamp01(w.Content*s.Content +
		w.Schedule*s.Schedule +
		w.Teacher*s.Teacher +
		w.ClassSize*s.ClassSize +
		w.Location*s.Location +
		w.Timing*s.Timing +
		w.Availability*s.Availability)
}

// SlotScores are the processor's slot selection dimensions.
type SlotScores struct {
	ResourceUtilization float64 `json:"resourceUtilization"`
	StudentPreference   float64 `json:"studentPreference"`
	ScheduleContinuity  float64 `json:"scheduleContinuity"`
}

// SlotWeights weight SlotScores.
type SlotWeights struct {
	ResourceUtilization float64 `json:"resourceUtilization" yaml:"resourceUtilization"`
	StudentPreference   float64 `json:"studentPreference" yaml:"studentPreference"`
	ScheduleContinuity  float64 `json:"scheduleContinuity" yaml:"scheduleContinuity"`
}

// DefaultSlotWeights are 0.40/0.35/0.25.
func DefaultSlotWeights() SlotWeights {
	return SlotWeights{ResourceUtilization: 0.40, StudentPreference: 0.35, ScheduleContinuity: 0.25}
}

// Sum adds all weights.
func (w SlotWeights) Sum() float64 {
	return w.ResourceUtilization + w.StudentPreference + w.ScheduleContinuity
}

// Validate rejects negative weights and sums away from 1.
func (w SlotWeights) Validate() error {
	return validateVector("slot weights", []float64{w.ResourceUtilization, w.StudentPreference, w.ScheduleContinuity})
}

// Composite is Σ weight·score clamped to [0,1].
func (w SlotWeights) Composite(s SlotScores) float64 {
	return Clamp01(w.ResourceUtilization*s.ResourceUtilization +
		w.StudentPreference*s.StudentPreference +
		w.ScheduleContinuity*s.ScheduleContinuity)
}

// TierThresholds are lower bounds for each strength tier.
type TierThresholds struct {
	Excellent float64 `json:"excellent" yaml:"excellent"`
	High      float64 `json:"high" yaml:"high"`
	Medium    float64 `json:"medium" yaml:"medium"`
}

// DefaultTierThresholds are 0.85/0.70/0.55.
func DefaultTierThresholds() TierThresholds {
	return TierThresholds{Excellent: 0.85, High: 0.70, Medium: 0.55}
}

// Validate requires 0 < medium < high < excellent <= 1.
func (t TierThresholds) Validate() error {
	if !(t.Medium > 0 && t.Medium < t.High && t.High < t.Excellent && t.Excellent <= 1) {
		return fmt.Errorf("tier thresholds must satisfy 0 < medium < high < excellent <= 1, got %.2f/%.2f/%.2f", t.Medium, t.High, t.Excellent)
	}
	return nil
}

func validateVector(name string, values []float64) error {
	var sum float64
	for _, v := range values {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%s must be non-negative", name)
		}
		sum += v
	}
	if math.Abs(sum-1.0) > WeightEpsilon {
		return fmt.Errorf("%s must sum to 1.0, got %.6f", name, sum)
	}
	return nil
}
