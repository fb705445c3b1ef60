package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-insights/internal/models"
	appErrors "github.com/noah-isme/academic-insights/pkg/errors"
	"github.com/noah-isme/academic-insights/pkg/response"
)

// RequireRoles admits callers holding one of roles. Tokens without a recognised role claim
// pass through and the academic API decides; a known role outside roles is refused.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		principal, ok := PrincipalFrom(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if !principal.Role.Valid() {
			c.Next()
			return
		}
		if _, ok := allowed[principal.Role]; ok {
			c.Next()
			return
		}

		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role "+string(principal.Role)+" may not perform this action"))
		c.Abort()
	}
}
