package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-insights/internal/service"
	"github.com/noah-isme/academic-insights/pkg/response"
)

type reportRenderer interface {
	Report(ctx context.Context, session *service.Session, studentID string, format service.ReportFormat) (*service.ReportFile, error)
}

// ExportHandler streams performance reports.
type ExportHandler struct {
	sessions sessionLookup
	reports  reportRenderer
}

// NewExportHandler constructs the handler.
func NewExportHandler(sessions sessionLookup, reports reportRenderer) *ExportHandler {
	return &ExportHandler{sessions: sessions, reports: reports}
}

// CSV godoc
// @Summary Performance report as CSV
// @Tags Reports
// @Produce text/csv
// @Param id path string true "Student ID"
// @Success 200 {file} file
// @Failure 503 {object} response.Envelope
// @Router /students/{id}/report.csv [get]
func (h *ExportHandler) CSV(c *gin.Context) {
	h.render(c, service.ReportFormatCSV)
}

// PDF godoc
// @Summary Performance report as PDF
// @Tags Reports
// @Produce application/pdf
// @Param id path string true "Student ID"
// @Success 200 {file} file
// @Failure 503 {object} response.Envelope
// @Router /students/{id}/report.pdf [get]
func (h *ExportHandler) PDF(c *gin.Context) {
	h.render(c, service.ReportFormatPDF)
}

func (h *ExportHandler) render(c *gin.Context, format service.ReportFormat) {
	session, ctx, ok := openSession(c, h.sessions)
	if !ok {
		return
	}
	file, err := h.reports.Report(ctx, session, c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
