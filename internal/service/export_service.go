package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academic-insights/internal/models"
	appErrors "github.com/noah-isme/academic-insights/pkg/errors"
	"github.com/noah-isme/academic-insights/pkg/export"
)

// ReportFormat selects the rendered file type.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

type studentFetcher interface {
	FetchStudent(ctx context.Context, studentID string) (*models.Student, error)
}

type csvRenderer interface {
	RenderReport(report export.Report) ([]byte, error)
}

type pdfRenderer interface {
	Render(report export.Report) ([]byte, error)
}

// ReportFile is a rendered report ready to download.
type ReportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders a student's performance as a CSV or PDF report.
type ExportService struct {
	performance *PerformanceService
	students    studentFetcher
	csv         csvRenderer
	pdf         pdfRenderer
	logger      *zap.Logger
	now         func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(performance *PerformanceService, students studentFetcher, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{performance: performance, students: students, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// Report computes a fresh performance snapshot and renders it. A stale snapshot is never
// exported.
func (s *ExportService) Report(ctx context.Context, session *Session, studentID string, format ReportFormat) (*ReportFile, error) {
	if format != ReportFormatCSV && format != ReportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported report format %q", format))
	}
	perf, err := s.performance.Performance(ctx, session, studentID)
	if err != nil {
		return nil, err
	}

	name := studentID
	student, err := s.students.FetchStudent(ctx, studentID)
	switch {
	case err == nil && student.FullName() != "":
		name = student.FullName()
	case err != nil && appErrors.Is(err, appErrors.ErrNotFound):
		return nil, err
	case err != nil:
		s.logger.Warn("student lookup failed, using id in report", zap.String("student_id", studentID), zap.Error(err))
	}

	report := buildReport(name, perf, s.performance.Grades(studentID))
	filename := fmt.Sprintf("performance_%s_%s.%s", sanitizeFilename(studentID), s.now().UTC().Format("20060102_150405"), format)

	var body []byte
	contentType := "text/csv"
	if format == ReportFormatPDF {
		contentType = "application/pdf"
		body, err = s.pdf.Render(report)
	} else {
		body, err = s.csv.RenderReport(report)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	return &ReportFile{Filename: filename, ContentType: contentType, Body: body}, nil
}

func buildReport(studentName string, perf *models.Performance, grades []models.GradeRecord) export.Report {
	summary := perf.Summary
	level := "n/a"
	if summary.Level != nil {
		level = string(*summary.Level)
	}
	report := export.Report{
		Title: "Performance report",
		Fields: []export.Field{
			{Label: "Student", Value: studentName},
			{Label: "Generated at", Value: perf.GeneratedAt.Format(time.RFC3339)},
			{Label: "Global average", Value: formatAverage(summary.GlobalAverage)},
			{Label: "Level", Value: level},
			{Label: "Trend", Value: string(perf.Trend)},
			{Label: "Best subject", Value: derefOr(summary.BestSubject, "n/a")},
			{Label: "Weakest subject", Value: derefOr(summary.WeakestSubject, "n/a")},
			{Label: "Grades", Value: fmt.Sprintf("%d", summary.TotalGrades)},
			{Label: "Risk threshold", Value: fmt.Sprintf("%.2f", perf.Threshold)},
		},
	}

	subjects := export.Dataset{Headers: []string{"Subject", "Average", "Grades"}}
	for _, entry := range summary.PerSubject {
		subjects.Rows = append(subjects.Rows, map[string]string{
			"Subject": entry.SubjectName,
			"Average": formatAverage(entry.Average),
			"Grades":  fmt.Sprintf("%d", entry.SampleCount),
		})
	}
	risks := export.Dataset{Headers: []string{"Subject", "Average", "Priority", "Recommended difficulty"}}
	for _, risk := range perf.Risks {
		risks.Rows = append(risks.Rows, map[string]string{
			"Subject":                risk.SubjectName,
			"Average":                fmt.Sprintf("%.2f", risk.Average),
			"Priority":               fmt.Sprintf("%d", risk.Priority),
			"Recommended difficulty": risk.RecommendedDifficulty.String(),
		})
	}
	gradeRows := export.Dataset{Headers: []string{"Date", "Subject", "Type", "Value", "State"}}
	for _, g := range grades {
		gradeRows.Rows = append(gradeRows.Rows, map[string]string{
			"Date":    g.Date.Format("2006-01-02"),
			"Subject": g.SubjectName,
			"Type":    string(g.EvaluationType),
			"Value":   fmt.Sprintf("%.2f", g.Value),
			"State":   string(g.State),
		})
	}

	report.Sections = []export.Section{
		{Title: "Subjects", Data: subjects},
		{Title: "At-risk subjects", Data: risks},
		{Title: "Grades", Data: gradeRows},
	}
	return report
}

// Missing averages print as n/a so no data is never shown as a zero.
func formatAverage(avg *float64) string {
	if avg == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *avg)
}

func derefOr(ptr *string, fallback string) string {
	if ptr == nil {
		return fallback
	}
	return *ptr
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_", `"`, "")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
