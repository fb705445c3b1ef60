package dto

import (
	"time"

	"github.com/noah-isme/academic-insights/internal/models"
)

// FeedbackRequest captures POST /suggestions/{id}/feedback payload.
type FeedbackRequest struct {
	Useful *bool `json:"useful" binding:"required"`
}

// SuggestionListResponse wraps ranked suggestions for a student.
type SuggestionListResponse struct {
	StudentID string              `json:"student_id"`
	Items     []models.Suggestion `json:"items"`
}

// NotificationListResponse is the reconciled notification view of a session.
type NotificationListResponse struct {
	Items       []models.Notification `json:"items"`
	UnreadCount int                   `json:"unread_count"`
	RefreshedAt *time.Time            `json:"refreshed_at,omitempty"`
}
