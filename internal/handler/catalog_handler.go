package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-insights/internal/models"
	"github.com/noah-isme/academic-insights/pkg/response"
)

type catalogProvider interface {
	Subjects(ctx context.Context) ([]models.Subject, error)
	Exercises(ctx context.Context, subjectID string) ([]models.Exercise, error)
	Invalidate(ctx context.Context) error
}

// CatalogHandler exposes the cached subject list and exercise bank.
type CatalogHandler struct {
	catalog catalogProvider
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(catalog catalogProvider) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// Subjects godoc
// @Summary List subjects
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /subjects [get]
func (h *CatalogHandler) Subjects(c *gin.Context) {
	ctx, _, ok := callerContext(c)
	if !ok {
		return
	}
	subjects, err := h.catalog.Subjects(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects)
}

// Exercises godoc
// @Summary List the exercises of a subject
// @Tags Catalog
// @Produce json
// @Param id path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Router /subjects/{id}/exercises [get]
func (h *CatalogHandler) Exercises(c *gin.Context) {
	ctx, _, ok := callerContext(c)
	if !ok {
		return
	}
	exercises, err := h.catalog.Exercises(ctx, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exercises)
}

// Invalidate godoc
// @Summary Drop cached subjects and exercises
// @Tags Catalog
// @Success 204
// @Router /catalog/cache [delete]
func (h *CatalogHandler) Invalidate(c *gin.Context) {
	if err := h.catalog.Invalidate(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
