package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-insights/internal/models"
	"github.com/noah-isme/academic-insights/internal/upstream"
	appErrors "github.com/noah-isme/academic-insights/pkg/errors"
)

// academicStub plays the academic API for service tests. Successful reads mark the stored
// notifications read the way the server does.
type academicStub struct {
	mu sync.Mutex

	grades      map[string][]models.GradeRecord
	gradesErr   error
	gradeCalls  int
	gradesGate  chan struct{}
	gradesSeen  chan string
	student     *models.Student
	studentErr  error
	exercises   map[string][]models.Exercise
	catalogErr  error
	catalogHits int

	notifications []models.Notification
	fetchErr      error
	fetchCalls    int
	fetchTokens   []string
	markErr       error
	markAllErr    error
	markCalls     []string
	markAllCalls  int
	markGate      chan struct{}

	feedback    []bool
	feedbackIDs []string
	feedbackErr error
}

func (s *academicStub) FetchGrades(_ context.Context, studentID string) ([]models.GradeRecord, error) {
	s.mu.Lock()
	gate, seen := s.gradesGate, s.gradesSeen
	s.mu.Unlock()
	if seen != nil {
		seen <- studentID
	}
	if gate != nil {
		<-gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gradeCalls++
	if s.gradesErr != nil {
		return nil, s.gradesErr
	}
	return append([]models.GradeRecord(nil), s.grades[studentID]...), nil
}

func (s *academicStub) FetchStudent(_ context.Context, studentID string) (*models.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.studentErr != nil {
		return nil, s.studentErr
	}
	if s.student == nil {
		return &models.Student{ID: studentID}, nil
	}
	return s.student, nil
}

func (s *academicStub) Exercises(_ context.Context, subjectID string) ([]models.Exercise, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalogHits++
	if s.catalogErr != nil {
		return nil, s.catalogErr
	}
	return append([]models.Exercise(nil), s.exercises[subjectID]...), nil
}

func (s *academicStub) FetchExerciseCatalog(ctx context.Context, subjectID string) ([]models.Exercise, error) {
	return s.Exercises(ctx, subjectID)
}

func (s *academicStub) FetchSubjects(context.Context) ([]models.Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalogHits++
	if s.catalogErr != nil {
		return nil, s.catalogErr
	}
	return []models.Subject{{ID: "math", Name: "Math", Coefficient: 4}, {ID: "phys", Name: "Physics", Coefficient: 3}}, nil
}

func (s *academicStub) FetchNotifications(ctx context.Context) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchCalls++
	s.fetchTokens = append(s.fetchTokens, upstream.TokenFrom(ctx))
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return append([]models.Notification(nil), s.notifications...), nil
}

func (s *academicStub) FetchUnreadNotifications(ctx context.Context) ([]models.Notification, error) {
	all, err := s.FetchNotifications(ctx)
	if err != nil {
		return nil, err
	}
	return unreadOf(all), nil
}

func (s *academicStub) MarkNotificationRead(_ context.Context, id string) error {
	if s.markGate != nil {
		<-s.markGate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markCalls = append(s.markCalls, id)
	if s.markErr != nil {
		return s.markErr
	}
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			s.notifications[i] = s.notifications[i].MarkRead(time.Now())
		}
	}
	return nil
}

func (s *academicStub) MarkAllNotificationsRead(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markAllCalls++
	if s.markAllErr != nil {
		return s.markAllErr
	}
	for i := range s.notifications {
		s.notifications[i] = s.notifications[i].MarkRead(time.Now())
	}
	return nil
}

func (s *academicStub) SendSuggestionFeedback(ctx context.Context, suggestionID string, useful bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.feedbackErr != nil {
		return s.feedbackErr
	}
	s.feedbackIDs = append(s.feedbackIDs, suggestionID)
	s.feedback = append(s.feedback, useful)
	return nil
}

func (s *academicStub) setNotifications(list ...models.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = list
}

type settingsRepoStub struct {
	stored  map[string]models.Settings
	getErr  error
	saveErr error
	saves   int
}

func (r *settingsRepoStub) Get(_ context.Context, userID string) (*models.Settings, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	settings, ok := r.stored[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &settings, nil
}

func (r *settingsRepoStub) Upsert(_ context.Context, settings *models.Settings) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	if r.stored == nil {
		r.stored = map[string]models.Settings{}
	}
	r.stored[settings.UserID] = *settings
	r.saves++
	return nil
}

func teacherPrincipal(token string) models.Principal {
	return models.Principal{UserID: "42", Role: models.RoleTeacher, Token: token}
}

func newSessions(repo SettingsRepository, api notificationAPI) *SessionService {
	return NewSessionService(repo, api, SessionDefaults{RiskThreshold: 10, SuggestionCount: 5, MaxSuggestions: 20}, nil, nil, nil)
}

func TestSessionOpenUsesDefaults(t *testing.T) {
	api := &academicStub{}
	sessions := newSessions(nil, api)

	session, err := sessions.Open(context.Background(), teacherPrincipal("tok-1"))
	require.NoError(t, err)

	settings := session.Settings()
	assert.Equal(t, 10.0, settings.RiskThreshold)
	assert.Equal(t, 5, settings.SuggestionCount)
	assert.Equal(t, "fr", settings.Language)
	assert.True(t, settings.SuggestionAlerts)
	assert.Equal(t, models.RoleTeacher, session.Role())
	assert.Equal(t, 1, api.fetchCalls)
	assert.Equal(t, []string{"tok-1"}, api.fetchTokens)
}

func TestSessionOpenIsPerUser(t *testing.T) {
	sessions := newSessions(nil, &academicStub{})

	first, err := sessions.Open(context.Background(), teacherPrincipal("tok-1"))
	require.NoError(t, err)
	second, err := sessions.Open(context.Background(), teacherPrincipal("tok-2"))
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, "tok-2", upstream.TokenFrom(second.Context(context.Background())))
	assert.Len(t, sessions.Sessions(), 1)
}

func TestSessionOpenSurvivesNotificationFailure(t *testing.T) {
	sessions := newSessions(nil, &academicStub{fetchErr: appErrors.ErrTransient})

	session, err := sessions.Open(context.Background(), teacherPrincipal("tok"))
	require.NoError(t, err)
	assert.Empty(t, session.Notifications.List())
	assert.True(t, session.Notifications.RefreshedAt().IsZero())
}

func TestSessionOpenRequiresUser(t *testing.T) {
	sessions := newSessions(nil, &academicStub{})
	_, err := sessions.Open(context.Background(), models.Principal{})
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestSessionLoadsStoredSettings(t *testing.T) {
	repo := &settingsRepoStub{stored: map[string]models.Settings{
		"42": {UserID: "42", RiskThreshold: 12, SuggestionCount: 3, Theme: "dark", Language: "en"},
	}}
	sessions := newSessions(repo, &academicStub{})

	session, err := sessions.Open(context.Background(), teacherPrincipal("tok"))
	require.NoError(t, err)
	assert.Equal(t, 12.0, session.Settings().RiskThreshold)
	assert.Equal(t, "dark", session.Settings().Theme)
}

func TestSessionOpenFailsWhenSettingsUnreadable(t *testing.T) {
	sessions := newSessions(&settingsRepoStub{getErr: errors.New("connection refused")}, &academicStub{})

	_, err := sessions.Open(context.Background(), teacherPrincipal("tok"))
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
	_, err = sessions.Get("42")
	assert.True(t, appErrors.Is(err, appErrors.ErrSessionRequired))
}

func TestSessionUpdateSettingsPersists(t *testing.T) {
	repo := &settingsRepoStub{}
	sessions := newSessions(repo, &academicStub{})
	_, err := sessions.Open(context.Background(), teacherPrincipal("tok"))
	require.NoError(t, err)

	threshold := 12.5
	theme := "dark"
	updated, err := sessions.UpdateSettings(context.Background(), "42", SettingsUpdateRequest{RiskThreshold: &threshold, Theme: &theme})
	require.NoError(t, err)
	assert.Equal(t, 12.5, updated.RiskThreshold)
	assert.Equal(t, "dark", updated.Theme)
	assert.Equal(t, 5, updated.SuggestionCount)
	assert.Equal(t, 1, repo.saves)
	assert.Equal(t, 12.5, repo.stored["42"].RiskThreshold)

	session, err := sessions.Get("42")
	require.NoError(t, err)
	assert.Equal(t, 12.5, session.Settings().RiskThreshold)
}

func TestSessionUpdateSettingsValidates(t *testing.T) {
	repo := &settingsRepoStub{}
	sessions := newSessions(repo, &academicStub{})
	_, err := sessions.Open(context.Background(), teacherPrincipal("tok"))
	require.NoError(t, err)

	neon := "neon"
	above := 25.0
	tooMany := 21
	for name, req := range map[string]SettingsUpdateRequest{
		"theme":     {Theme: &neon},
		"threshold": {RiskThreshold: &above},
		"count":     {SuggestionCount: &tooMany},
	} {
		_, err := sessions.UpdateSettings(context.Background(), "42", req)
		assert.True(t, appErrors.Is(err, appErrors.ErrValidation), name)
	}
	assert.Zero(t, repo.saves)
}

func TestSessionUpdateSettingsKeepsMemoryOnSaveFailure(t *testing.T) {
	repo := &settingsRepoStub{saveErr: errors.New("disk full")}
	sessions := newSessions(repo, &academicStub{})
	session, err := sessions.Open(context.Background(), teacherPrincipal("tok"))
	require.NoError(t, err)

	threshold := 14.0
	_, err = sessions.UpdateSettings(context.Background(), "42", SettingsUpdateRequest{RiskThreshold: &threshold})
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
	assert.Equal(t, 10.0, session.Settings().RiskThreshold)
}

func TestSessionClose(t *testing.T) {
	sessions := newSessions(nil, &academicStub{})
	_, err := sessions.Open(context.Background(), teacherPrincipal("tok"))
	require.NoError(t, err)

	require.NoError(t, sessions.Close(context.Background(), "42"))
	_, err = sessions.Get("42")
	assert.True(t, appErrors.Is(err, appErrors.ErrSessionRequired))
	require.NoError(t, sessions.Close(context.Background(), "42"))

	_, err = sessions.UpdateSettings(context.Background(), "42", SettingsUpdateRequest{})
	assert.True(t, appErrors.Is(err, appErrors.ErrSessionRequired))
}

func TestSessionCloseRunsHooks(t *testing.T) {
	sessions := newSessions(nil, &academicStub{})
	var closed []string
	sessions.OnClose(func(s *Session) { closed = append(closed, s.UserID) })

	_, err := sessions.Open(context.Background(), teacherPrincipal("tok"))
	require.NoError(t, err)
	require.NoError(t, sessions.Close(context.Background(), "42"))
	require.NoError(t, sessions.Close(context.Background(), "42"))
	assert.Equal(t, []string{"42"}, closed)
}
