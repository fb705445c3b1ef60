package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/academic-insights/internal/models"
	"github.com/noah-isme/academic-insights/internal/service"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func newAuthRouter(roles ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	auth := service.NewAuthService(nil, service.AuthConfig{AccessTokenSecret: testSecret})
	router := gin.New()
	router.Use(JWT(auth))
	router.POST("/grades", RequireRoles(roles...), func(c *gin.Context) {
		principal, _ := PrincipalFrom(c)
		c.String(http.StatusOK, principal.UserID)
	})
	return router
}

func perform(router *gin.Engine, token string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/grades", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestJWTRejectsMissingHeader(t *testing.T) {
	recorder := perform(newAuthRouter(models.RoleTeacher), "")
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestJWTAcceptsNumericUserID(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"user_id":    42,
		"token_type": "access",
		"role":       "professeur",
		"exp":        time.Now().Add(time.Hour).Unix(),
	})
	recorder := perform(newAuthRouter(models.RoleTeacher, models.RoleAdmin), token)
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", recorder.Code, recorder.Body.String())
	}
	if recorder.Body.String() != "42" {
		t.Fatalf("unexpected principal: %s", recorder.Body.String())
	}
}

func TestRequireRolesRefusesStudents(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"user_id": "7",
		"role":    "etudiant",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	recorder := perform(newAuthRouter(models.RoleTeacher, models.RoleAdmin), token)
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestRequireRolesDefersWithoutRoleClaim(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"user_id": "7",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	recorder := perform(newAuthRouter(models.RoleTeacher), token)
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestJWTRejectsRefreshTokens(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"user_id":    "7",
		"token_type": "refresh",
		"exp":        time.Now().Add(time.Hour).Unix(),
	})
	recorder := perform(newAuthRouter(models.RoleTeacher), token)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}
