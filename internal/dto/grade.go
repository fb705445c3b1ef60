package dto

import "github.com/noah-isme/academic-insights/internal/models"

// BulkGradesRequest captures POST /grades/bulk payload.
type BulkGradesRequest struct {
	Grades []models.GradeSubmission `json:"grades" binding:"required"`
}

// BulkGradesResponse reports each input row as accepted or rejected.
type BulkGradesResponse struct {
	Accepted []models.BulkAccepted  `json:"accepted"`
	Rejected []models.BulkRejection `json:"rejected"`
	Total    int                    `json:"total"`
}
