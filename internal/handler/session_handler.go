package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-insights/internal/models"
	"github.com/noah-isme/academic-insights/internal/service"
	appErrors "github.com/noah-isme/academic-insights/pkg/errors"
	"github.com/noah-isme/academic-insights/pkg/response"
)

type sessionManager interface {
	sessionLookup
	Open(ctx context.Context, principal models.Principal) (*service.Session, error)
	UpdateSettings(ctx context.Context, userID string, req service.SettingsUpdateRequest) (*models.Settings, error)
	Close(ctx context.Context, userID string) error
}

// SessionHandler opens and closes per-user sessions and manages their settings.
type SessionHandler struct {
	sessions sessionManager
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(sessions sessionManager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Open godoc
// @Summary Open a session
// @Description Loads the caller's settings and notifications. Opening twice returns the open session.
// @Tags Session
// @Produce json
// @Success 201 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /session [post]
func (h *SessionHandler) Open(c *gin.Context) {
	ctx, principal, ok := callerContext(c)
	if !ok {
		return
	}
	session, err := h.sessions.Open(ctx, *principal)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session.Info())
}

// Close godoc
// @Summary Close the session
// @Tags Session
// @Success 204
// @Router /session [delete]
func (h *SessionHandler) Close(c *gin.Context) {
	ctx, principal, ok := callerContext(c)
	if !ok {
		return
	}
	if err := h.sessions.Close(ctx, principal.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Settings godoc
// @Summary Current session settings
// @Tags Session
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 428 {object} response.Envelope
// @Router /session/settings [get]
func (h *SessionHandler) Settings(c *gin.Context) {
	session, _, ok := openSession(c, h.sessions)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, session.Settings())
}

// UpdateSettings godoc
// @Summary Update session settings
// @Tags Session
// @Accept json
// @Produce json
// @Param payload body service.SettingsUpdateRequest true "Settings changes"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /session/settings [put]
func (h *SessionHandler) UpdateSettings(c *gin.Context) {
	ctx, principal, ok := callerContext(c)
	if !ok {
		return
	}
	var req service.SettingsUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid settings payload"))
		return
	}
	settings, err := h.sessions.UpdateSettings(ctx, principal.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings)
}
