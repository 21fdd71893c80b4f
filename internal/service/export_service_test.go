package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-scheduler/internal/models"
	appErrors "github.com/noah-isme/academy-scheduler/pkg/errors"
	"github.com/noah-isme/academy-scheduler/pkg/export"
)

type resultSourceStub struct {
	result *models.SchedulingResult
	err    error
}

func (s resultSourceStub) GetResult(ctx context.Context, requestID string) (*models.SchedulingResult, error) {
	return s.result, s.err
}

func completedResult() *models.SchedulingResult {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	return &models.SchedulingResult{
		RequestID: "req-1",
		Success:   true,
		State:     models.StateCompleted,
		ScheduledClasses: []models.ScheduledClass{{
			ID:         "class-1",
			CourseID:   "course-1",
			TeacherID:  "teacher-1",
			StudentIDs: []string{"s1", "s2"},
			TimeSlot:   models.TimeSlot{StartTime: start, EndTime: start.Add(time.Hour), Location: models.LocationOnline},
			Status:     models.ClassStatusScheduled,
		}},
	}
}

func TestExportServiceCSV(t *testing.T) {
	svc := NewExportService(resultSourceStub{result: completedResult()}, zap.NewNop(), export.NewCSVExporter(), export.NewPDFExporter())

	doc, err := svc.Export(context.Background(), "req-1", ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "timetable_req-1.csv", doc.Filename)
	assert.Equal(t, "text/csv", doc.ContentType)

	lines := strings.Split(strings.TrimSpace(string(doc.Body)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Class ID,Course ID,Teacher ID"))
	assert.Contains(t, lines[1], "class-1,course-1,teacher-1,s1 s2,2026-03-02T10:00:00Z")
}

func TestExportServicePDF(t *testing.T) {
	svc := NewExportService(resultSourceStub{result: completedResult()}, nil, nil, nil)

	doc, err := svc.Export(context.Background(), "req-1", "PDF")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.True(t, strings.HasPrefix(string(doc.Body), "%PDF"))
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc := NewExportService(resultSourceStub{result: completedResult()}, nil, nil, nil)

	_, err := svc.Export(context.Background(), "req-1", "xlsx")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

func TestExportServiceRejectsInFlightResult(t *testing.T) {
	svc := NewExportService(resultSourceStub{result: &models.SchedulingResult{RequestID: "req-2", State: models.StateProcessing}}, nil, nil, nil)

	_, err := svc.Export(context.Background(), "req-2", ExportFormatCSV)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict.Code))
}

func TestExportServicePropagatesNotFound(t *testing.T) {
	svc := NewExportService(resultSourceStub{err: appErrors.Clone(appErrors.ErrNotFound, "scheduling result not found")}, nil, nil, nil)

	_, err := svc.Export(context.Background(), "missing", ExportFormatCSV)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}

func TestTimetableOrdersByStartThenID(t *testing.T) {
	result := completedResult()
	early := result.ScheduledClasses[0]
	early.ID = "class-0"
	early.TimeSlot.StartTime = early.TimeSlot.StartTime.Add(-2 * time.Hour)
	tie := result.ScheduledClasses[0]
	tie.ID = "class-0b"
	result.ScheduledClasses = append(result.ScheduledClasses, tie, early)
	result.UnresolvedConflicts = []models.SchedulingConflict{{
		Type:        models.ConflictCapacityExceeded,
		Severity:    models.SeverityHigh,
		Description: "class over capacity",
	}}

	table := timetable(result)

	require.Len(t, table.Rows, 3)
	assert.Equal(t, []string{"class-0", "class-0b", "class-1"}, []string{table.Rows[0][0], table.Rows[1][0], table.Rows[2][0]})
	assert.Contains(t, table.Notes, "Unresolved high capacity_exceeded: class over capacity")
}
