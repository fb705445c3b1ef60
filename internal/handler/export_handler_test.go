package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-insights/internal/service"
	appErrors "github.com/noah-isme/academic-insights/pkg/errors"
)

type reportStub struct {
	format service.ReportFormat
	err    error
}

func (s *reportStub) Report(ctx context.Context, session *service.Session, studentID string, format service.ReportFormat) (*service.ReportFile, error) {
	s.format = format
	if s.err != nil {
		return nil, s.err
	}
	return &service.ReportFile{Filename: "performance_" + studentID + "." + string(format), ContentType: "text/csv", Body: []byte("Student,7\n")}, nil
}

func TestExportHandlerStreamsAttachment(t *testing.T) {
	sessions, _ := openedSessions(t, nil)
	stub := &reportStub{}
	handler := NewExportHandler(sessions, stub)

	c, w := authed(http.MethodGet, "/students/7/report.csv", nil)
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	handler.CSV(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ReportFormatCSV, stub.format)
	assert.Equal(t, `attachment; filename="performance_7.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "Student,7\n", w.Body.String())
}

func TestExportHandlerPropagatesErrors(t *testing.T) {
	sessions, _ := openedSessions(t, nil)
	stub := &reportStub{err: appErrors.Clone(appErrors.ErrDataUnavailable, "data unavailable")}
	handler := NewExportHandler(sessions, stub)

	c, w := authed(http.MethodGet, "/students/7/report.pdf", nil)
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	handler.PDF(c)

	assert.Equal(t, service.ReportFormatPDF, stub.format)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
