package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-insights/internal/dto"
	"github.com/noah-isme/academic-insights/internal/models"
	"github.com/noah-isme/academic-insights/internal/service"
	"github.com/noah-isme/academic-insights/pkg/response"
)

// NotificationHandler serves the session's notifications with optimistic reads applied.
type NotificationHandler struct {
	sessions sessionLookup
}

// NewNotificationHandler constructs the handler.
func NewNotificationHandler(sessions sessionLookup) *NotificationHandler {
	return &NotificationHandler{sessions: sessions}
}

// List godoc
// @Summary List notifications
// @Description Refreshes from the academic API. If that fails the last known list is returned with meta.stale.
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 428 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	session, ctx, ok := openSession(c, h.sessions)
	if !ok {
		return
	}
	list, err := session.Notifications.Refresh(ctx)
	if err != nil {
		response.ErrorWithData(c, err, h.view(session, session.Notifications.List()), map[string]interface{}{"stale": true})
		return
	}
	response.JSON(c, http.StatusOK, h.view(session, list), map[string]interface{}{"stale": false})
}

// Unread godoc
// @Summary List unread notifications
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 428 {object} response.Envelope
// @Router /notifications/unread [get]
func (h *NotificationHandler) Unread(c *gin.Context) {
	session, ctx, ok := openSession(c, h.sessions)
	if !ok {
		return
	}
	list, err := session.Notifications.RefreshUnread(ctx)
	if err != nil {
		response.ErrorWithData(c, err, h.view(session, session.Notifications.Unread()), map[string]interface{}{"stale": true})
		return
	}
	response.JSON(c, http.StatusOK, h.view(session, list), map[string]interface{}{"stale": false})
}

// MarkRead godoc
// @Summary Mark a notification read
// @Tags Notifications
// @Param id path string true "Notification ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	session, ctx, ok := openSession(c, h.sessions)
	if !ok {
		return
	}
	if err := session.Notifications.MarkRead(ctx, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MarkAllRead godoc
// @Summary Mark every notification read
// @Tags Notifications
// @Success 204
// @Router /notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	session, ctx, ok := openSession(c, h.sessions)
	if !ok {
		return
	}
	if err := session.Notifications.MarkAllRead(ctx); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *NotificationHandler) view(session *service.Session, list []models.Notification) dto.NotificationListResponse {
	items := service.FilterByPreferences(list, session.Settings())
	unread := 0
	for _, n := range items {
		if !n.IsRead() {
			unread++
		}
	}
	resp := dto.NotificationListResponse{Items: items, UnreadCount: unread}
	if at := session.Notifications.RefreshedAt(); !at.IsZero() {
		resp.RefreshedAt = &at
	}
	return resp
}
