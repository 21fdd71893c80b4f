package models

import "time"

// SchedulingRequestType enumerates the request kinds accepted by the engine.
type SchedulingRequestType string

const (
	RequestAutoSchedule       SchedulingRequestType = "auto_schedule"
	RequestReschedule         SchedulingRequestType = "reschedule"
	RequestConflictResolution SchedulingRequestType = "conflict_resolution"
	RequestOptimization       SchedulingRequestType = "optimization"
	RequestContentSync        SchedulingRequestType = "content_sync"
	RequestManualOverride     SchedulingRequestType = "manual_override"
)

// SchedulingPriority orders requests and decisions.
type SchedulingPriority string

const (
	PriorityLow    SchedulingPriority = "low"
	PriorityMedium SchedulingPriority = "medium"
	PriorityHigh   SchedulingPriority = "high"
	PriorityUrgent SchedulingPriority = "urgent"
)

// Rank maps the priority onto 1..4. Unknown values rank as medium.
func (p SchedulingPriority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityHigh:
		return 3
	case PriorityUrgent:
		return 4
	default:
		return 2
	}
}

// ClassType distinguishes one-to-one from group classes.
type ClassType string

const (
	ClassTypeIndividual ClassType = "individual"
	ClassTypeGroup      ClassType = "group"
)

// ClassStatus tracks the class lifecycle. Completed and cancelled are terminal.
type ClassStatus string

const (
	ClassStatusScheduled ClassStatus = "scheduled"
	ClassStatusCancelled ClassStatus = "cancelled"
	ClassStatusCompleted ClassStatus = "completed"
)

// SchedulingConstraints are optional request level hard constraints.
type SchedulingConstraints struct {
	ClassType               ClassType  `json:"classType,omitempty"`
	MaxClassSize            int        `json:"maxClassSize,omitempty"`
	PreferredTeacherIDs     []string   `json:"preferredTeacherIds,omitempty"`
	ExcludedTeacherIDs      []string   `json:"excludedTeacherIds,omitempty"`
	RequiredSpecializations []string   `json:"requiredSpecializations,omitempty"`
	EarliestStart           *time.Time `json:"earliestStart,omitempty"`
	LatestEnd               *time.Time `json:"latestEnd,omitempty"`
}

// SchedulingRequest is immutable once created and owned by the caller.
type SchedulingRequest struct {
	ID                 string                 `json:"id"`
	Type               SchedulingRequestType  `json:"type"`
	Priority           SchedulingPriority     `json:"priority"`
	StudentIDs         []string               `json:"studentIds"`
	CourseID           string                 `json:"courseId"`
	PreferredTimeSlots []TimeSlot             `json:"preferredTimeSlots,omitempty"`
	Constraints        *SchedulingConstraints `json:"constraints,omitempty"`
	RequestedAt        time.Time              `json:"requestedAt"`
}

// ScheduledClass is a concrete class assignment.
type ScheduledClass struct {
	ID              string      `json:"id"`
	CourseID        string      `json:"courseId"`
	CourseType      string      `json:"courseType,omitempty"`
	TeacherID       string      `json:"teacherId"`
	StudentIDs      []string    `json:"studentIds"`
	TimeSlot        TimeSlot    `json:"timeSlot"`
	ClassType       ClassType   `json:"classType"`
	Status          ClassStatus `json:"status"`
	ConfidenceScore float64     `json:"confidenceScore"`
	Rationale       string      `json:"rationale,omitempty"`
	Version         int         `json:"version"`
}

// HasStudent reports whether studentID attends the class.
func (c ScheduledClass) HasStudent(studentID string) bool {
	for _, id := range c.StudentIDs {
		if id == studentID {
			return true
		}
	}
	return false
}

// SchedulingDecision is a tentative assignment inside one request. Locked decisions
// mirror committed classes and are never moved.
type SchedulingDecision struct {
	Class    ScheduledClass     `json:"class"`
	Priority SchedulingPriority `json:"priority"`
	Locked   bool               `json:"locked"`
}

// ConflictType enumerates detectable conflicts.
type ConflictType string

const (
	ConflictTimeOverlap          ConflictType = "time_overlap"
	ConflictTeacherDoubleBooking ConflictType = "teacher_double_booking"
	ConflictStudentDoubleBooking ConflictType = "student_double_booking"
	ConflictCapacityExceeded     ConflictType = "capacity_exceeded"
	ConflictRoomConflict         ConflictType = "room_conflict"
	ConflictConstraintViolation  ConflictType = "constraint_violation"
)

// ConflictSeverity grades conflicts.
type ConflictSeverity string

const (
	SeverityLow      ConflictSeverity = "low"
	SeverityMedium   ConflictSeverity = "medium"
	SeverityHigh     ConflictSeverity = "high"
	SeverityCritical ConflictSeverity = "critical"
)

// Rank maps severity onto 1..4.
func (s ConflictSeverity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	default:
		return 1
	}
}

// ConflictResolution describes a candidate fix.
type ConflictResolution struct {
	Strategy       string `json:"strategy"`
	Description    string `json:"description"`
	AutoResolvable bool   `json:"autoResolvable"`
}

// SchedulingConflict is produced by detection and consumed by resolution.
type SchedulingConflict struct {
	ID                string               `json:"id"`
	Type              ConflictType         `json:"type"`
	Severity          ConflictSeverity     `json:"severity"`
	AffectedEntityIDs []string             `json:"affectedEntityIds"`
	ClassIDs          []string             `json:"classIds"`
	ResourceID        string               `json:"resourceId"`
	Description       string               `json:"description"`
	Resolutions       []ConflictResolution `json:"resolutions"`
	Resolved          bool                 `json:"resolved"`
}

// AutoResolvable reports whether any proposed resolution can be applied automatically.
func (c SchedulingConflict) AutoResolvable() bool {
	for _, r := range c.Resolutions {
		if r.AutoResolvable {
			return true
		}
	}
	return false
}

// RecommendationType enumerates recommendation kinds.
type RecommendationType string

const (
	RecommendationAlternativeClass    RecommendationType = "alternative_class"
	RecommendationAlternativeTimeSlot RecommendationType = "alternative_time_slot"
	RecommendationContentSimilarClass RecommendationType = "content_similar_class"
)

// Complexity grades how disruptive a recommendation is.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// SchedulingRecommendation is output only.
type SchedulingRecommendation struct {
	ID              string             `json:"id"`
	Type            RecommendationType `json:"type"`
	ConfidenceScore float64            `json:"confidenceScore"`
	Benefits        []string           `json:"benefits"`
	Drawbacks       []string           `json:"drawbacks"`
	Complexity      Complexity         `json:"complexity"`
	Priority        int                `json:"priority"`
	ClassID         string             `json:"classId,omitempty"`
	TeacherID       string             `json:"teacherId,omitempty"`
	TimeSlot        *TimeSlot          `json:"timeSlot,omitempty"`
}

// SchedulingMetrics summarises one processed request.
type SchedulingMetrics struct {
	ProcessingTimeMs    int64   `json:"processingTimeMs"`
	StudentsProcessed   int     `json:"studentsProcessed"`
	ClassesScheduled    int     `json:"classesScheduled"`
	ConflictsDetected   int     `json:"conflictsDetected"`
	ConflictsResolved   int     `json:"conflictsResolved"`
	UnresolvedConflicts int     `json:"unresolvedConflicts"`
	ResourceUtilization float64 `json:"resourceUtilization"`
}

// ProcessingState is the per-request state machine.
type ProcessingState string

const (
	StateIdle       ProcessingState = "idle"
	StateProcessing ProcessingState = "processing"
	StateCompleted  ProcessingState = "completed"
	StateFailed     ProcessingState = "failed"
)

// ErrorCategory classifies failures reported inside a result.
type ErrorCategory string

const (
	ErrorCategoryValidation ErrorCategory = "validation"
	ErrorCategoryAlgorithm  ErrorCategory = "algorithm"
	ErrorCategoryDataAccess ErrorCategory = "data_access"
	ErrorCategoryCancelled  ErrorCategory = "cancelled"
	ErrorCategoryCommit     ErrorCategory = "commit"
)

// SchedulingError is the structured failure carried by a result.
type SchedulingError struct {
	Category ErrorCategory `json:"category"`
	Message  string        `json:"message"`
}

// SchedulingResult is always returned once a request passes validation.
type SchedulingResult struct {
	RequestID           string                     `json:"requestId"`
	Success             bool                       `json:"success"`
	State               ProcessingState            `json:"state"`
	ScheduledClasses    []ScheduledClass           `json:"scheduledClasses"`
	Conflicts           []SchedulingConflict       `json:"conflicts"`
	UnresolvedConflicts []SchedulingConflict       `json:"unresolvedConflicts"`
	Recommendations     []SchedulingRecommendation `json:"recommendations"`
	Metrics             SchedulingMetrics          `json:"metrics"`
	Optimization        *OptimizationSolution      `json:"optimization,omitempty"`
	Error               *SchedulingError           `json:"error,omitempty"`
	Committed           bool                       `json:"committed"`
	CompletedAt         time.Time                  `json:"completedAt"`
}

// HasCriticalUnresolved reports whether a critical conflict survived resolution.
func (r *SchedulingResult) HasCriticalUnresolved() bool {
	for _, c := range r.UnresolvedConflicts {
		if c.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// CommitOutcome is the storage verdict for one class.
type CommitOutcome struct {
	Accepted              bool   `json:"accepted"`
	RejectedDueToConflict bool   `json:"rejectedDueToConflict"`
	Reason                string `json:"reason,omitempty"`
}
