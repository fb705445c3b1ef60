package service

import (
	"context"

	"github.com/noah-isme/academic-insights/internal/models"
)

// AcademicAPI is the data-access boundary to the academic REST API. Implementations return
// *errors.Error values carrying the validation, not found, conflict and transient codes.
type AcademicAPI interface {
	FetchGrades(ctx context.Context, studentID string) ([]models.GradeRecord, error)
	FetchSubjects(ctx context.Context) ([]models.Subject, error)
	FetchStudent(ctx context.Context, studentID string) (*models.Student, error)
	SubmitGrade(ctx context.Context, submission models.GradeSubmission) (*models.GradeRecord, error)
	SubmitBulkGrades(ctx context.Context, submissions []models.GradeSubmission) (*models.BulkResult, error)
	ValidateGrade(ctx context.Context, id string) (*models.GradeRecord, error)
	FetchGrade(ctx context.Context, id string) (*models.GradeRecord, error)
	FetchExerciseCatalog(ctx context.Context, subjectID string) ([]models.Exercise, error)
	FetchNotifications(ctx context.Context) ([]models.Notification, error)
	FetchUnreadNotifications(ctx context.Context) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context) error
	SendSuggestionFeedback(ctx context.Context, suggestionID string, useful bool) error
}
