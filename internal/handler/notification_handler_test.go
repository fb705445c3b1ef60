package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-insights/internal/dto"
	"github.com/noah-isme/academic-insights/internal/models"
	"github.com/noah-isme/academic-insights/internal/service"
	appErrors "github.com/noah-isme/academic-insights/pkg/errors"
)

func sampleNotifications() []models.Notification {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return []models.Notification{
		{ID: "1", Type: models.NotificationAlert, Title: "Risk", CreatedAt: base, State: models.Unread},
		{ID: "2", Type: models.NotificationSuggestion, Title: "Exercise", CreatedAt: base.Add(time.Hour), State: models.Unread},
		{ID: "3", Type: models.NotificationInfo, Title: "Info", CreatedAt: base.Add(2 * time.Hour), State: models.Read},
	}
}

func TestNotificationHandlerListAppliesPreferences(t *testing.T) {
	api := &notificationAPIStub{list: sampleNotifications()}
	sessions, _ := openedSessions(t, api)
	handler := NewNotificationHandler(sessions)

	off := false
	_, err := sessions.UpdateSettings(context.Background(), "42", service.SettingsUpdateRequest{SuggestionAlerts: &off})
	require.NoError(t, err)

	c, w := authed(http.MethodGet, "/notifications", nil)
	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.NotificationListResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &resp))
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "3", resp.Items[0].ID)
	assert.Equal(t, "1", resp.Items[1].ID)
	assert.Equal(t, 1, resp.UnreadCount)
	assert.NotNil(t, resp.RefreshedAt)
}

func TestNotificationHandlerMarkReadShowsInList(t *testing.T) {
	api := &notificationAPIStub{list: sampleNotifications()}
	sessions, _ := openedSessions(t, api)
	handler := NewNotificationHandler(sessions)

	c, w := authed(http.MethodPost, "/notifications/1/read", nil)
	c.Params = gin.Params{{Key: "id", Value: "1"}}
	handler.MarkRead(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"1"}, api.marked)

	// The server still reports it unread; the confirmed local read wins.
	c, w = authed(http.MethodGet, "/notifications/unread", nil)
	handler.Unread(c)
	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.NotificationListResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "2", resp.Items[0].ID)
}

func TestNotificationHandlerMarkReadFailure(t *testing.T) {
	api := &notificationAPIStub{list: sampleNotifications(), markErr: appErrors.Clone(appErrors.ErrTransient, "down")}
	sessions, session := openedSessions(t, api)
	handler := NewNotificationHandler(sessions)

	c, w := authed(http.MethodPost, "/notifications/1/read", nil)
	c.Params = gin.Params{{Key: "id", Value: "1"}}
	handler.MarkRead(c)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	for _, n := range session.Notifications.List() {
		if n.ID == "1" {
			assert.False(t, n.IsRead())
		}
	}
}

func TestNotificationHandlerListFallsBackWhenUpstreamFails(t *testing.T) {
	api := &notificationAPIStub{list: sampleNotifications()}
	sessions, _ := openedSessions(t, api)
	handler := NewNotificationHandler(sessions)
	api.fetchErr = appErrors.Clone(appErrors.ErrTransient, "down")

	c, w := authed(http.MethodGet, "/notifications", nil)
	handler.List(c)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, true, env.Meta["stale"])
	var resp dto.NotificationListResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Len(t, resp.Items, 3)
}
