package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-scheduler/internal/models"
	appErrors "github.com/noah-isme/academy-scheduler/pkg/errors"
	"github.com/noah-isme/academy-scheduler/pkg/export"
)

// ExportFormat selects the rendered document type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type schedulingResultSource interface {
	GetResult(ctx context.Context, requestID string) (*models.SchedulingResult, error)
}

type tableRenderer interface {
	Render(table export.Table) ([]byte, error)
}

// ExportDocument is a rendered scheduling result ready to stream.
type ExportDocument struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders stored scheduling results as CSV or PDF timetables.
type ExportService struct {
	results schedulingResultSource
	csv     tableRenderer
	pdf     tableRenderer
	logger  *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(results schedulingResultSource, logger *zap.Logger, csv, pdf tableRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{results: results, csv: csv, pdf: pdf, logger: logger}
}

// Export renders the stored result for requestID in the requested format.
func (s *ExportService) Export(ctx context.Context, requestID string, format ExportFormat) (*ExportDocument, error) {
	format = ExportFormat(strings.ToLower(strings.TrimSpace(string(format))))
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	result, err := s.results.GetResult(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if result.State != models.StateCompleted && result.State != models.StateFailed {
		return nil, appErrors.Clone(appErrors.ErrConflict, "scheduling request is still processing")
	}

	table := timetable(result)
	var body []byte
	switch format {
	case ExportFormatPDF:
		body, err = s.pdf.Render(table)
	default:
		body, err = s.csv.Render(table)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	s.logger.Info("scheduling result exported",
		zap.String("request_id", result.RequestID),
		zap.String("format", string(format)),
		zap.Int("rows", len(table.Rows)),
	)
	return &ExportDocument{
		Filename:    fmt.Sprintf("timetable_%s.%s", sanitizeFilename(result.RequestID), format),
		ContentType: contentTypeFor(format),
		Body:        body,
	}, nil
}

var timetableColumns = []export.Column{
	{Header: "Class ID", Weight: 2},
	{Header: "Course ID", Weight: 1.5},
	{Header: "Teacher ID", Weight: 1.5},
	{Header: "Students", Weight: 3},
	{Header: "Start", Weight: 2},
	{Header: "End", Weight: 2},
	{Header: "Location", Weight: 1.5},
	{Header: "Status", Weight: 1},
	{Header: "Confidence", Weight: 1},
}

// timetable orders classes by start time, then class ID.
func timetable(result *models.SchedulingResult) export.Table {
	classes := append([]models.ScheduledClass(nil), result.ScheduledClasses...)
	sort.SliceStable(classes, func(i, j int) bool {
		if !classes[i].TimeSlot.StartTime.Equal(classes[j].TimeSlot.StartTime) {
			return classes[i].TimeSlot.StartTime.Before(classes[j].TimeSlot.StartTime)
		}
		return classes[i].ID < classes[j].ID
	})
	rows := make([][]string, 0, len(classes))
	for _, class := range classes {
		rows = append(rows, []string{
			class.ID,
			class.CourseID,
			class.TeacherID,
			strings.Join(class.StudentIDs, " "),
			class.TimeSlot.StartTime.Format(time.RFC3339),
			class.TimeSlot.EndTime.Format(time.RFC3339),
			class.TimeSlot.Location,
			string(class.Status),
			fmt.Sprintf("%.2f", class.ConfidenceScore),
		})
	}

	notes := []string{
		fmt.Sprintf("Classes scheduled: %d, students processed: %d, resource utilization: %.0f%%",
			result.Metrics.ClassesScheduled, result.Metrics.StudentsProcessed, result.Metrics.ResourceUtilization*100),
		fmt.Sprintf("Committed: %t", result.Committed),
	}
	if len(result.UnresolvedConflicts) == 0 {
		notes = append(notes, "No unresolved conflicts")
	}
	for _, conflict := range result.UnresolvedConflicts {
		notes = append(notes, fmt.Sprintf("Unresolved %s %s: %s", conflict.Severity, conflict.Type, conflict.Description))
	}
	return export.Table{
		Title:   fmt.Sprintf("Timetable %s", result.RequestID),
		Columns: timetableColumns,
		Rows:    rows,
		Notes:   notes,
	}
}

func contentTypeFor(format ExportFormat) string {
	if format == ExportFormatPDF {
		return "application/pdf"
	}
	return "text/csv"
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
