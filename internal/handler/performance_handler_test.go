package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-insights/internal/models"
	"github.com/noah-isme/academic-insights/internal/service"
	"github.com/noah-isme/academic-insights/internal/upstream"
	appErrors "github.com/noah-isme/academic-insights/pkg/errors"
)

type performanceStub struct {
	perf  *models.Performance
	err   error
	token string
}

func (s *performanceStub) Performance(ctx context.Context, session *service.Session, studentID string) (*models.Performance, error) {
	s.token = upstream.TokenFrom(ctx)
	return s.perf, s.err
}

func TestPerformanceHandlerReturnsSnapshot(t *testing.T) {
	sessions, _ := openedSessions(t, nil)
	stub := &performanceStub{perf: &models.Performance{StudentID: "7", Threshold: 10}}
	handler := NewPerformanceHandler(sessions, stub)

	c, w := authed(http.MethodGet, "/students/7/performance", nil)
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	handler.Get(c)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, false, env.Meta["stale"])
	var perf models.Performance
	require.NoError(t, json.Unmarshal(env.Data, &perf))
	assert.Equal(t, "7", perf.StudentID)
	assert.Equal(t, "tok", stub.token)
}

func TestPerformanceHandlerKeepsStaleSnapshotOnOutage(t *testing.T) {
	sessions, _ := openedSessions(t, nil)
	stub := &performanceStub{
		perf: &models.Performance{StudentID: "7", Stale: true},
		err:  appErrors.Clone(appErrors.ErrDataUnavailable, "data unavailable"),
	}
	handler := NewPerformanceHandler(sessions, stub)

	c, w := authed(http.MethodGet, "/students/7/performance", nil)
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	handler.Get(c)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, "DATA_UNAVAILABLE", env.Error.Code)
	assert.Equal(t, true, env.Meta["stale"])
	var perf models.Performance
	require.NoError(t, json.Unmarshal(env.Data, &perf))
	assert.True(t, perf.Stale)
}

func TestPerformanceHandlerWithoutSnapshot(t *testing.T) {
	sessions, _ := openedSessions(t, nil)
	stub := &performanceStub{err: appErrors.Clone(appErrors.ErrDataUnavailable, "data unavailable")}
	handler := NewPerformanceHandler(sessions, stub)

	c, w := authed(http.MethodGet, "/students/7/performance", nil)
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	handler.Get(c)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	env := decodeEnvelope(t, w)
	assert.Empty(t, env.Data)
}

func TestPerformanceHandlerRequiresSession(t *testing.T) {
	handler := NewPerformanceHandler(newSessionService(), &performanceStub{})

	c, w := authed(http.MethodGet, "/students/7/performance", nil)
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	handler.Get(c)

	assert.Equal(t, http.StatusPreconditionRequired, w.Code)
}
