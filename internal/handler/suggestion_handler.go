package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-insights/internal/dto"
	"github.com/noah-isme/academic-insights/internal/models"
	"github.com/noah-isme/academic-insights/internal/service"
	appErrors "github.com/noah-isme/academic-insights/pkg/errors"
	"github.com/noah-isme/academic-insights/pkg/response"
)

type suggestionProvider interface {
	Suggestions(ctx context.Context, session *service.Session, studentID string, nb int) ([]models.Suggestion, error)
	Feedback(ctx context.Context, userID, suggestionID string, useful bool) (*models.SuggestionFeedback, error)
}

// SuggestionHandler serves ranked remediation exercises and collects feedback on them.
type SuggestionHandler struct {
	sessions    sessionLookup
	suggestions suggestionProvider
}

// NewSuggestionHandler constructs the handler.
func NewSuggestionHandler(sessions sessionLookup, suggestions suggestionProvider) *SuggestionHandler {
	return &SuggestionHandler{sessions: sessions, suggestions: suggestions}
}

// List godoc
// @Summary Exercise suggestions for a student
// @Tags Suggestions
// @Produce json
// @Param id path string true "Student ID"
// @Param nb query int false "Maximum number of suggestions, defaults to the session setting"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 428 {object} response.Envelope
// @Router /students/{id}/suggestions [get]
func (h *SuggestionHandler) List(c *gin.Context) {
	nb := 0
	if raw := strings.TrimSpace(c.Query("nb")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "nb must be a positive integer"))
			return
		}
		nb = parsed
	}
	session, ctx, ok := openSession(c, h.sessions)
	if !ok {
		return
	}
	studentID := c.Param("id")
	items, err := h.suggestions.Suggestions(ctx, session, studentID, nb)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.SuggestionListResponse{StudentID: studentID, Items: items}, map[string]interface{}{"count": len(items)})
}

// Feedback godoc
// @Summary Rate a suggestion
// @Tags Suggestions
// @Accept json
// @Produce json
// @Param id path string true "Suggestion ID"
// @Param payload body dto.FeedbackRequest true "Feedback"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /suggestions/{id}/feedback [post]
func (h *SuggestionHandler) Feedback(c *gin.Context) {
	ctx, principal, ok := callerContext(c)
	if !ok {
		return
	}
	var req dto.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "useful is required"))
		return
	}
	feedback, err := h.suggestions.Feedback(ctx, principal.UserID, c.Param("id"), *req.Useful)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, feedback)
}
