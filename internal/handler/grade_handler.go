package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-insights/internal/dto"
	"github.com/noah-isme/academic-insights/internal/models"
	appErrors "github.com/noah-isme/academic-insights/pkg/errors"
	"github.com/noah-isme/academic-insights/pkg/response"
)

type gradeWorkflow interface {
	Submit(ctx context.Context, submission models.GradeSubmission) (*models.GradeRecord, error)
	SubmitBulk(ctx context.Context, rows []models.GradeSubmission) (*models.BulkResult, error)
	Validate(ctx context.Context, id string) (*models.GradeRecord, error)
}

// GradeHandler exposes grade entry and validation.
type GradeHandler struct {
	grades gradeWorkflow
}

// NewGradeHandler constructs the handler.
func NewGradeHandler(grades gradeWorkflow) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// Submit godoc
// @Summary Enter a grade
// @Description Creates a pending grade.
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body models.GradeSubmission true "Grade"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /grades [post]
func (h *GradeHandler) Submit(c *gin.Context) {
	ctx, _, ok := callerContext(c)
	if !ok {
		return
	}
	var req models.GradeSubmission
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload"))
		return
	}
	record, err := h.grades.Submit(ctx, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// SubmitBulk godoc
// @Summary Enter grades in bulk
// @Description Every row is reported as accepted or rejected with its input index.
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body dto.BulkGradesRequest true "Grades"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /grades/bulk [post]
func (h *GradeHandler) SubmitBulk(c *gin.Context) {
	ctx, _, ok := callerContext(c)
	if !ok {
		return
	}
	var req dto.BulkGradesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk payload"))
		return
	}
	result, err := h.grades.SubmitBulk(ctx, req.Grades)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.BulkGradesResponse{
		Accepted: result.Accepted,
		Rejected: result.Rejected,
		Total:    len(req.Grades),
	})
}

// Validate godoc
// @Summary Validate a grade
// @Description Moves a pending grade to validated. Validating twice succeeds.
// @Tags Grades
// @Produce json
// @Param id path string true "Grade ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /grades/{id}/validate [post]
func (h *GradeHandler) Validate(c *gin.Context) {
	ctx, _, ok := callerContext(c)
	if !ok {
		return
	}
	record, err := h.grades.Validate(ctx, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record)
}
