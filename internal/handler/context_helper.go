package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-insights/internal/middleware"
	"github.com/noah-isme/academic-insights/internal/models"
	"github.com/noah-isme/academic-insights/internal/service"
	"github.com/noah-isme/academic-insights/internal/upstream"
	appErrors "github.com/noah-isme/academic-insights/pkg/errors"
	"github.com/noah-isme/academic-insights/pkg/response"
)

type sessionLookup interface {
	Get(userID string) (*service.Session, error)
}

// callerContext returns the request context carrying the caller's token for upstream calls.
// It writes the error response itself when the request is unauthenticated.
func callerContext(c *gin.Context) (context.Context, *models.Principal, bool) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, nil, false
	}
	return upstream.WithToken(c.Request.Context(), principal.Token), principal, true
}

// openSession resolves the caller's session, refreshing its credentials.
func openSession(c *gin.Context, sessions sessionLookup) (*service.Session, context.Context, bool) {
	ctx, principal, ok := callerContext(c)
	if !ok {
		return nil, nil, false
	}
	session, err := sessions.Get(principal.UserID)
	if err != nil {
		response.Error(c, err)
		return nil, nil, false
	}
	session.Touch(*principal)
	return session, ctx, true
}
