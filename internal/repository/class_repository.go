package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/academy-scheduler/internal/models"
)

const classSelect = `SELECT c.id, c.course_id, co.course_type, c.teacher_id, c.class_type, c.status,
       c.start_time, c.end_time, c.location, c.capacity_max, c.capacity_min, c.current_enrollment,
       c.confidence_score, c.rationale, c.version,
       COALESCE(array_agg(cs.student_id ORDER BY cs.student_id) FILTER (WHERE cs.student_id IS NOT NULL), '{}') AS student_ids
FROM scheduled_classes c
JOIN courses co ON co.id = c.course_id
LEFT JOIN class_students cs ON cs.class_id = c.id`

const classGroupBy = ` GROUP BY c.id, co.course_type`

type classRow struct {
	ID                string         `db:"id"`
	CourseID          string         `db:"course_id"`
	CourseType        string         `db:"course_type"`
	TeacherID         string         `db:"teacher_id"`
	ClassType         string         `db:"class_type"`
	Status            string         `db:"status"`
	StartTime         time.Time      `db:"start_time"`
	EndTime           time.Time      `db:"end_time"`
	Location          string         `db:"location"`
	CapacityMax       int            `db:"capacity_max"`
	CapacityMin       int            `db:"capacity_min"`
	CurrentEnrollment int            `db:"current_enrollment"`
	ConfidenceScore   float64        `db:"confidence_score"`
	Rationale         string         `db:"rationale"`
	Version           int            `db:"version"`
	StudentIDs        pq.StringArray `db:"student_ids"`
}

func (row classRow) toModel() models.ScheduledClass {
	return models.ScheduledClass{
		ID:         row.ID,
		CourseID:   row.CourseID,
		CourseType: row.CourseType,
		TeacherID:  row.TeacherID,
		StudentIDs: []string(row.StudentIDs),
		TimeSlot: models.TimeSlot{
			ID:        row.ID,
			StartTime: row.StartTime,
			EndTime:   row.EndTime,
			DayOfWeek: row.StartTime.Weekday(),
			Location:  row.Location,
			Capacity: models.SlotCapacity{
				Max:               row.CapacityMax,
				Min:               row.CapacityMin,
				CurrentEnrollment: row.CurrentEnrollment,
			},
		},
		ClassType:       models.ClassType(row.ClassType),
		Status:          models.ClassStatus(row.Status),
		ConfidenceScore: row.ConfidenceScore,
		Rationale:       row.Rationale,
		Version:         row.Version,
	}
}

func toClassModels(rows []classRow) []models.ScheduledClass {
	result := make([]models.ScheduledClass, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toModel())
	}
	return result
}

// ClassRepository reads scheduled classes and owns the commit boundary.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// FindByID returns sql.ErrNoRows when the class is unknown.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.ScheduledClass, error) {
	query := classSelect + ` WHERE c.id = $1` + classGroupBy
	var row classRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	class := row.toModel()
	return &class, nil
}

// ListByStudents returns scheduled classes any of the students attend inside [from, to).
func (r *ClassRepository) ListByStudents(ctx context.Context, studentIDs []string, from, to time.Time) ([]models.ScheduledClass, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	query := classSelect + ` WHERE c.status = 'scheduled' AND c.start_time >= $2 AND c.start_time < $3
  AND c.id IN (SELECT class_id FROM class_students WHERE student_id = ANY($1))` + classGroupBy + ` ORDER BY c.start_time ASC, c.id ASC`
	var rows []classRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(studentIDs), from, to); err != nil {
		return nil, fmt.Errorf("list classes by students: %w", err)
	}
	return toClassModels(rows), nil
}

// ListByTeachers returns scheduled classes of the teachers inside [from, to).
func (r *ClassRepository) ListByTeachers(ctx context.Context, teacherIDs []string, from, to time.Time) ([]models.ScheduledClass, error) {
	if len(teacherIDs) == 0 {
		return nil, nil
	}
	query := classSelect + ` WHERE c.status = 'scheduled' AND c.teacher_id = ANY($1) AND c.start_time >= $2 AND c.start_time < $3` +
		classGroupBy + ` ORDER BY c.start_time ASC, c.id ASC`
	var rows []classRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(teacherIDs), from, to); err != nil {
		return nil, fmt.Errorf("list classes by teachers: %w", err)
	}
	return toClassModels(rows), nil
}

// ListOpenByCourseType returns scheduled classes of the course type with free seats inside [from, to].
func (r *ClassRepository) ListOpenByCourseType(ctx context.Context, courseType string, from, to time.Time) ([]models.ScheduledClass, error) {
	query := classSelect + ` WHERE c.status = 'scheduled' AND co.course_type = $1 AND c.start_time >= $2 AND c.start_time <= $3
  AND c.current_enrollment < c.capacity_max` + classGroupBy + ` ORDER BY c.start_time ASC, c.id ASC`
	var rows []classRow
	if err := r.db.SelectContext(ctx, &rows, query, courseType, from, to); err != nil {
		return nil, fmt.Errorf("list open classes: %w", err)
	}
	return toClassModels(rows), nil
}

// Commit persists one class under an optimistic check. A class with Version 0 is inserted;
// otherwise the stored version must match. The teacher and every student must be free for
// the slot. Violations reject the commit without error.
func (r *ClassRepository) Commit(ctx context.Context, class *models.ScheduledClass) (outcome models.CommitOutcome, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.CommitOutcome{}, fmt.Errorf("begin class commit: %w", err)
	}
	defer func() {
		if err != nil || !outcome.Accepted {
			_ = tx.Rollback()
		}
	}()

	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	slot := class.TimeSlot

	const teacherBusy = `SELECT id FROM scheduled_classes
WHERE teacher_id = $1 AND id <> $2 AND status = 'scheduled' AND start_time < $4 AND end_time > $3
LIMIT 1 FOR UPDATE`
	var clash string
	err = tx.GetContext(ctx, &clash, teacherBusy, class.TeacherID, class.ID, slot.StartTime, slot.EndTime)
	switch {
	case err == nil:
		return models.CommitOutcome{RejectedDueToConflict: true, Reason: fmt.Sprintf("teacher %s already teaches class %s in this slot", class.TeacherID, clash)}, nil
	case !errors.Is(err, sql.ErrNoRows):
		return models.CommitOutcome{}, fmt.Errorf("check teacher slot: %w", err)
	}

	const studentBusy = `SELECT cs.student_id FROM class_students cs
JOIN scheduled_classes c ON c.id = cs.class_id
WHERE cs.student_id = ANY($1) AND c.id <> $2 AND c.status = 'scheduled' AND c.start_time < $4 AND c.end_time > $3
LIMIT 1`
	err = tx.GetContext(ctx, &clash, studentBusy, pq.Array(class.StudentIDs), class.ID, slot.StartTime, slot.EndTime)
	switch {
	case err == nil:
		return models.CommitOutcome{RejectedDueToConflict: true, Reason: fmt.Sprintf("student %s already attends a class in this slot", clash)}, nil
	case !errors.Is(err, sql.ErrNoRows):
		return models.CommitOutcome{}, fmt.Errorf("check student slot: %w", err)
	}
	err = nil

	enrollment := slot.Capacity.CurrentEnrollment
	if enrollment < len(class.StudentIDs) {
		enrollment = len(class.StudentIDs)
	}
	if slot.Capacity.Max > 0 && enrollment > slot.Capacity.Max {
		return models.CommitOutcome{RejectedDueToConflict: true, Reason: "enrollment exceeds slot capacity"}, nil
	}

	var res sql.Result
	if class.Version == 0 {
		const insert = `INSERT INTO scheduled_classes (id, course_id, teacher_id, class_type, status, start_time, end_time, location,
  capacity_max, capacity_min, current_enrollment, confidence_score, rationale, version, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 1, NOW(), NOW())
ON CONFLICT (id) DO NOTHING`
		res, err = tx.ExecContext(ctx, insert, class.ID, class.CourseID, class.TeacherID, string(class.ClassType), string(class.Status),
			slot.StartTime, slot.EndTime, slot.Location, slot.Capacity.Max, slot.Capacity.Min, enrollment, class.ConfidenceScore, class.Rationale)
	} else {
		const update = `UPDATE scheduled_classes SET teacher_id = $2, start_time = $3, end_time = $4, location = $5,
  current_enrollment = $6, confidence_score = $7, rationale = $8, version = version + 1, updated_at = NOW()
WHERE id = $1 AND version = $9`
		res, err = tx.ExecContext(ctx, update, class.ID, class.TeacherID, slot.StartTime, slot.EndTime, slot.Location,
			enrollment, class.ConfidenceScore, class.Rationale, class.Version)
	}
	if err != nil {
		return models.CommitOutcome{}, fmt.Errorf("write scheduled class: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.CommitOutcome{}, fmt.Errorf("write scheduled class rows: %w", err)
	}
	if affected == 0 {
		return models.CommitOutcome{RejectedDueToConflict: true, Reason: "class was modified concurrently"}, nil
	}

	const enroll = `INSERT INTO class_students (class_id, student_id) SELECT $1, UNNEST($2::text[]) ON CONFLICT DO NOTHING`
	if _, err = tx.ExecContext(ctx, enroll, class.ID, pq.Array(class.StudentIDs)); err != nil {
		return models.CommitOutcome{}, fmt.Errorf("enroll students: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return models.CommitOutcome{}, fmt.Errorf("commit scheduled class: %w", err)
	}
	class.Version++
	class.TimeSlot.Capacity.CurrentEnrollment = enrollment
	return models.CommitOutcome{Accepted: true}, nil
}
