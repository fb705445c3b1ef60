package service

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-insights/internal/models"
	appErrors "github.com/noah-isme/academic-insights/pkg/errors"
)

// AuthConfig defines how access tokens issued by the academic API are checked.
type AuthConfig struct {
	AccessTokenSecret string
}

// AuthService validates access tokens. Tokens are issued and refreshed by the academic API;
// the gateway only verifies them and forwards them.
type AuthService struct {
	logger *zap.Logger
	config AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{logger: logger, config: config}
}

// ValidateToken parses and validates an access token returning the caller.
func (s *AuthService) ValidateToken(tokenString string) (*models.Principal, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if claims.TokenType != "" && claims.TokenType != "access" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "access token required")
	}
	userID := strings.TrimSpace(string(claims.UserID))
	if userID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token has no user")
	}
	role := models.UserRole(strings.ToLower(string(claims.Role)))
	if role != "" && !role.Valid() {
		s.logger.Debug("ignoring unknown role claim", zap.String("role", string(claims.Role)))
		role = ""
	}

	return &models.Principal{UserID: userID, Role: role, Token: tokenString}, nil
}
