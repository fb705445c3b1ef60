package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-insights/internal/models"
	"github.com/noah-isme/academic-insights/internal/service"
	"github.com/noah-isme/academic-insights/pkg/response"
)

type performanceProvider interface {
	Performance(ctx context.Context, session *service.Session, studentID string) (*models.Performance, error)
}

// PerformanceHandler serves the aggregated performance of a student.
type PerformanceHandler struct {
	sessions    sessionLookup
	performance performanceProvider
}

// NewPerformanceHandler constructs the handler.
func NewPerformanceHandler(sessions sessionLookup, performance performanceProvider) *PerformanceHandler {
	return &PerformanceHandler{sessions: sessions, performance: performance}
}

// Get godoc
// @Summary Student performance
// @Description Averages per subject, level, trend and subjects at risk. When the grades cannot
// @Description be loaded the last snapshot is returned with a DATA_UNAVAILABLE error and meta.stale.
// @Tags Performance
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 428 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /students/{id}/performance [get]
func (h *PerformanceHandler) Get(c *gin.Context) {
	session, ctx, ok := openSession(c, h.sessions)
	if !ok {
		return
	}
	perf, err := h.performance.Performance(ctx, session, c.Param("id"))
	if err != nil {
		if perf != nil {
			response.ErrorWithData(c, err, perf, map[string]interface{}{"stale": true})
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, perf, map[string]interface{}{"stale": false})
}
