package models

// TeacherRequirements are hard constraints a composition imposes on its teacher.
type TeacherRequirements struct {
	RequiredSpecializations []string `json:"requiredSpecializations,omitempty"`
	MinClassCapacity        int      `json:"minClassCapacity"`
}

// ClassComposition is a grouping of students waiting for a teacher and a slot.
type ClassComposition struct {
	ClassID             string              `json:"classId"`
	StudentIDs          []string            `json:"studentIds"`
	ContentFocus        string              `json:"contentFocus"`
	ClassType           ClassType           `json:"classType"`
	RecommendedDuration int                 `json:"recommendedDuration"`
	DifficultyLevel     int                 `json:"difficultyLevel"`
	SchedulingPriority  SchedulingPriority  `json:"schedulingPriority"`
	TeacherRequirements TeacherRequirements `json:"teacherRequirements"`
}

// Optimization strategies.
const (
	StrategyBase            = "base"
	StrategyTimeFocused     = "time_focused"
	StrategyResourceFocused = "resource_focused"
	StrategyBalanceFocused  = "balance_focused"
)

// OptimizationConstraints carry the snapshots the optimizer works on.
type OptimizationConstraints struct {
	Teachers           []Teacher                    `json:"teachers"`
	TeacherPreferences map[string]TeacherPreference `json:"teacherPreferences,omitempty"`
	CandidateSlots     []TimeSlot                   `json:"candidateSlots,omitempty"`
	Ratings            []PerformanceRating          `json:"ratings,omitempty"`
	Courses            map[string]Course            `json:"courses,omitempty"`
	MaxClassSize       int                          `json:"maxClassSize,omitempty"`
	AlternativeCount   int                          `json:"alternativeCount"`
}

// OptimizationMetrics are percentages in [0,100].
type OptimizationMetrics struct {
	Utilization  float64 `json:"utilization"`
	Satisfaction float64 `json:"satisfaction"`
	Efficiency   float64 `json:"efficiency"`
	Conflict     float64 `json:"conflict"`
	Balance      float64 `json:"balance"`
}

// OptimizationSolution is a snapshot. Alternatives are siblings and carry no alternatives of their own.
type OptimizationSolution struct {
	Strategy             string                 `json:"strategy"`
	ScheduledClasses     []ScheduledClass       `json:"scheduledClasses"`
	UnresolvedConflicts  []SchedulingConflict   `json:"unresolvedConflicts"`
	Metrics              OptimizationMetrics    `json:"metrics"`
	ConfidenceScore      float64                `json:"confidenceScore"`
	TeacherWorkloads     map[string]int         `json:"teacherWorkloads"`
	AlternativeSolutions []OptimizationSolution `json:"alternativeSolutions,omitempty"`
}
