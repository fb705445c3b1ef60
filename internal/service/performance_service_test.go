package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-insights/internal/models"
	appErrors "github.com/noah-isme/academic-insights/pkg/errors"
)

func openSession(t *testing.T, sessions *SessionService) *Session {
	t.Helper()
	session, err := sessions.Open(context.Background(), teacherPrincipal("tok"))
	require.NoError(t, err)
	return session
}

func newPerformanceFixture(t *testing.T) (*PerformanceService, *academicStub, *SessionService, *Session) {
	t.Helper()
	api := &academicStub{grades: map[string][]models.GradeRecord{"stu-1": exampleGrades()}}
	sessions := newSessions(nil, api)
	return NewPerformanceService(api, nil, TrendOptions{}, nil, nil), api, sessions, openSession(t, sessions)
}

func TestPerformanceExample(t *testing.T) {
	svc, _, _, session := newPerformanceFixture(t)

	perf, err := svc.Performance(context.Background(), session, "stu-1")
	require.NoError(t, err)
	assert.False(t, perf.Stale)
	assert.Equal(t, 12.0, *perf.Summary.GlobalAverage)
	assert.Equal(t, models.TrendDeclining, perf.Trend)
	assert.Equal(t, 10.0, perf.Threshold)
	require.Len(t, perf.Risks, 1)
	assert.Equal(t, "Physics", perf.Risks[0].SubjectName)
	assert.Equal(t, 20, perf.Risks[0].Priority)
	assert.Equal(t, "stu-1", session.Viewed())
	assert.Len(t, svc.Grades("stu-1"), 3)
}

func TestPerformanceFollowsSessionThreshold(t *testing.T) {
	svc, _, sessions, session := newPerformanceFixture(t)
	threshold := 15.0
	_, err := sessions.UpdateSettings(context.Background(), session.UserID, SettingsUpdateRequest{RiskThreshold: &threshold})
	require.NoError(t, err)

	perf, err := svc.Performance(context.Background(), session, "stu-1")
	require.NoError(t, err)
	require.Len(t, perf.Risks, 2)
	assert.Equal(t, "Physics", perf.Risks[0].SubjectName)
	assert.Equal(t, "Math", perf.Risks[1].SubjectName)
}

func TestPerformanceFallsBackToStaleSnapshot(t *testing.T) {
	svc, api, _, session := newPerformanceFixture(t)
	fresh, err := svc.Performance(context.Background(), session, "stu-1")
	require.NoError(t, err)

	api.gradesErr = appErrors.ErrTransient
	stale, err := svc.Performance(context.Background(), session, "stu-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDataUnavailable))
	require.NotNil(t, stale)
	assert.True(t, stale.Stale)
	assert.Equal(t, fresh.GeneratedAt, stale.GeneratedAt)
	assert.Equal(t, *fresh.Summary.GlobalAverage, *stale.Summary.GlobalAverage)

	again, _ := svc.Performance(context.Background(), session, "stu-1")
	require.NotNil(t, again)
	assert.True(t, again.Stale)
}

func TestPerformanceUnavailableWithoutSnapshot(t *testing.T) {
	svc, api, _, session := newPerformanceFixture(t)
	api.gradesErr = appErrors.ErrTransient

	perf, err := svc.Performance(context.Background(), session, "stu-1")
	assert.Nil(t, perf)
	assert.True(t, appErrors.Is(err, appErrors.ErrDataUnavailable))
}

func TestPerformanceMalformedGradesAreUnavailable(t *testing.T) {
	svc, api, _, session := newPerformanceFixture(t)
	api.grades["stu-2"] = []models.GradeRecord{grade("bad", "math", "Math", 25, day(0))}

	perf, err := svc.Performance(context.Background(), session, "stu-2")
	assert.Nil(t, perf)
	assert.True(t, appErrors.Is(err, appErrors.ErrDataUnavailable))
}

func TestPerformancePassesNotFoundThrough(t *testing.T) {
	svc, api, _, session := newPerformanceFixture(t)
	api.gradesErr = appErrors.ErrNotFound

	_, err := svc.Performance(context.Background(), session, "nobody")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	_, err = svc.Performance(context.Background(), session, " ")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestPerformanceNoGrades(t *testing.T) {
	svc, _, _, session := newPerformanceFixture(t)

	perf, err := svc.Performance(context.Background(), session, "stu-empty")
	require.NoError(t, err)
	assert.Nil(t, perf.Summary.GlobalAverage)
	assert.Empty(t, perf.Risks)
	assert.Equal(t, models.TrendStable, perf.Trend)
}

func TestPerformanceReleaseForgetsViewedStudent(t *testing.T) {
	svc, _, sessions, session := newPerformanceFixture(t)
	sessions.OnClose(svc.Release)

	_, err := svc.Performance(context.Background(), session, "stu-1")
	require.NoError(t, err)
	require.Len(t, svc.Grades("stu-1"), 3)

	require.NoError(t, sessions.Close(context.Background(), session.UserID))
	assert.Empty(t, svc.Grades("stu-1"))
}

func TestPerformanceReleasedWhileFetchingKeepsNothing(t *testing.T) {
	svc, api, sessions, session := newPerformanceFixture(t)
	sessions.OnClose(svc.Release)
	api.gradesGate = make(chan struct{})
	api.gradesSeen = make(chan string, 1)

	done := make(chan *models.Performance, 1)
	go func() {
		perf, err := svc.Performance(context.Background(), session, "stu-1")
		assert.NoError(t, err)
		done <- perf
	}()

	assert.Equal(t, "stu-1", <-api.gradesSeen)
	require.NoError(t, sessions.Close(context.Background(), session.UserID))
	close(api.gradesGate)

	perf := <-done
	require.NotNil(t, perf)
	assert.Equal(t, 12.0, *perf.Summary.GlobalAverage)
	assert.Empty(t, svc.Grades("stu-1"))
	assert.Nil(t, session.snapshot("stu-1"))
}

func TestPerformanceOvertakenResultIsNotStored(t *testing.T) {
	svc, api, _, session := newPerformanceFixture(t)
	api.grades["stu-2"] = []models.GradeRecord{grade("late", "math", "Math", 9, day(0))}
	gate := make(chan struct{})
	api.gradesGate = gate
	api.gradesSeen = make(chan string, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		perf, err := svc.Performance(context.Background(), session, "stu-2")
		assert.NoError(t, err)
		assert.Equal(t, 9.0, *perf.Summary.GlobalAverage)
	}()
	assert.Equal(t, "stu-2", <-api.gradesSeen)

	api.mu.Lock()
	api.gradesGate, api.gradesSeen = nil, nil
	api.mu.Unlock()
	_, err := svc.Performance(context.Background(), session, "stu-1")
	require.NoError(t, err)

	close(gate)
	<-done
	assert.Empty(t, svc.Grades("stu-2"))
	assert.Nil(t, session.snapshot("stu-2"))
	assert.Len(t, svc.Grades("stu-1"), 3)
}
