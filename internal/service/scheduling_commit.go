package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-scheduler/internal/models"
	appErrors "github.com/noah-isme/academy-scheduler/pkg/errors"
	applog "github.com/noah-isme/academy-scheduler/pkg/logger"
)

// Commit persists a stored result by request ID.
func (s *SchedulingService) Commit(ctx context.Context, requestID string) (*models.SchedulingResult, error) {
	result, err := s.GetResult(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := s.CommitResult(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// CommitResult writes every class through the storage boundary, the only write path of
// the engine. A rejected class becomes a constraint violation, is relocated once to a
// runner-up slot and retried. A second rejection is surfaced as a critical unresolved
// conflict and the result is marked unsuccessful.
func (s *SchedulingService) CommitResult(ctx context.Context, result *models.SchedulingResult) error {
	if result == nil || result.State != models.StateCompleted {
		return appErrors.Clone(appErrors.ErrValidation, "only completed scheduling results can be committed")
	}
	if result.Committed {
		return nil
	}
	if result.HasCriticalUnresolved() {
		return appErrors.Clone(appErrors.ErrConflict, "scheduling result has critical unresolved conflicts")
	}

	decisions := decisionsOf(result.ScheduledClasses, models.PriorityMedium)
	var rejected []string
	for i := range decisions {
		class := &decisions[i].Class
		outcome, err := s.repos.Classes.Commit(ctx, class)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit scheduled class")
		}
		if outcome.Accepted {
			s.metrics.RecordCommit("accepted")
			continue
		}
		s.metrics.RecordCommit("rejected")

		conflict := commitConflict(*class, outcome.Reason)
		rejectedKey := class.TimeSlot.Key()
		search := SlotSearchFunc(func(dec models.SchedulingDecision) []ScoredSlot {
			return commitAlternatives(result.Recommendations, dec.Class.ID, rejectedKey)
		})
		if resolved, _ := s.resolver.Resolve(decisions, []models.SchedulingConflict{conflict}, search); len(resolved) == 1 {
			retry, err := s.repos.Classes.Commit(ctx, class)
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit relocated class")
			}
			if retry.Accepted {
				s.metrics.RecordCommit("retried")
				conflict.Resolved = true
				result.Conflicts = append(result.Conflicts, conflict)
				continue
			}
			s.metrics.RecordCommit("rejected")
			conflict.Description = fmt.Sprintf("%s; retry at %s rejected: %s", conflict.Description, class.TimeSlot.Key(), retry.Reason)
		}
		result.Conflicts = append(result.Conflicts, conflict)
		conflict.Severity = models.SeverityCritical
		result.UnresolvedConflicts = append(result.UnresolvedConflicts, conflict)
		rejected = append(rejected, class.ID)
	}

	result.ScheduledClasses = make([]models.ScheduledClass, 0, len(decisions))
	for _, dec := range decisions {
		result.ScheduledClasses = append(result.ScheduledClasses, dec.Class)
	}
	result.Metrics.ConflictsDetected = len(result.Conflicts)
	result.Metrics.UnresolvedConflicts = len(result.UnresolvedConflicts)
	result.Committed = len(rejected) == 0
	result.Success = !result.HasCriticalUnresolved()
	if len(rejected) > 0 {
		result.Error = &models.SchedulingError{
			Category: models.ErrorCategoryCommit,
			Message:  fmt.Sprintf("%s: %s", appErrors.ErrCommitConflict.Message, strings.Join(rejected, ", ")),
		}
		applog.FromContext(ctx, s.logger).Warn("schedule commit rejected", zap.String("request_id", result.RequestID), zap.Strings("class_ids", rejected))
	} else {
		applog.FromContext(ctx, s.logger).Info("schedule committed", zap.String("request_id", result.RequestID), zap.Int("classes", len(decisions)))
	}
	s.results.Save(ctx, *result)
	return nil
}

func commitConflict(class models.ScheduledClass, reason string) models.SchedulingConflict {
	if reason == "" {
		reason = "storage rejected the class"
	}
	return newConflict(
		models.ConflictConstraintViolation,
		models.SeverityHigh,
		class.TeacherID,
		[]string{class.ID},
		fmt.Sprintf("commit of class %s at %s rejected: %s", class.ID, class.TimeSlot.Key(), reason),
		models.ConflictResolution{Strategy: "reschedule", Description: "retry once at a runner-up slot", AutoResolvable: true},
	)
}

// commitAlternatives turns the runner-up slot recommendations of a class into search candidates.
func commitAlternatives(recs []models.SchedulingRecommendation, classID, excludedKey string) []ScoredSlot {
	var out []ScoredSlot
	for _, rec := range recs {
		if rec.Type != models.RecommendationAlternativeTimeSlot || rec.ClassID != classID || rec.TimeSlot == nil {
			continue
		}
		if rec.TimeSlot.Key() == excludedKey {
			continue
		}
		out = append(out, ScoredSlot{
			Slot:      *rec.TimeSlot,
			TeacherID: rec.TeacherID,
			Score:     rec.ConfidenceScore,
			Rationale: "runner-up slot after commit rejection",
		})
	}
	sortScored(out)
	return out
}
