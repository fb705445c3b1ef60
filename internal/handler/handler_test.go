package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-insights/internal/middleware"
	"github.com/noah-isme/academic-insights/internal/models"
	"github.com/noah-isme/academic-insights/internal/service"
)

type notificationAPIStub struct {
	mu       sync.Mutex
	list     []models.Notification
	markErr  error
	marked   []string
	fetchErr error
}

func (s *notificationAPIStub) FetchNotifications(ctx context.Context) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return append([]models.Notification(nil), s.list...), nil
}

func (s *notificationAPIStub) FetchUnreadNotifications(ctx context.Context) ([]models.Notification, error) {
	list, err := s.FetchNotifications(ctx)
	if err != nil {
		return nil, err
	}
	unread := make([]models.Notification, 0, len(list))
	for _, n := range list {
		if !n.IsRead() {
			unread = append(unread, n)
		}
	}
	return unread, nil
}

func (s *notificationAPIStub) MarkNotificationRead(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return s.markErr
	}
	s.marked = append(s.marked, id)
	return nil
}

func (s *notificationAPIStub) MarkAllNotificationsRead(ctx context.Context) error {
	return s.MarkNotificationRead(ctx, "*")
}

var teacher = &models.Principal{UserID: "42", Role: models.RoleTeacher, Token: "tok"}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func authed(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	c, w := newGinContext(method, path, body)
	c.Set(middleware.ContextUserKey, teacher)
	return c, w
}

// openedSessions returns a session service with the teacher's session already open.
func openedSessions(t *testing.T, api *notificationAPIStub) (*service.SessionService, *service.Session) {
	t.Helper()
	if api == nil {
		api = &notificationAPIStub{}
	}
	sessions := service.NewSessionService(nil, api, service.SessionDefaults{RiskThreshold: 10, SuggestionCount: 5, MaxSuggestions: 20}, nil, nil, nil)
	session, err := sessions.Open(context.Background(), *teacher)
	require.NoError(t, err)
	return sessions, session
}

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}
