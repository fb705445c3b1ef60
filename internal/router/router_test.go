package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-insights/internal/handler"
	"github.com/noah-isme/academic-insights/internal/service"
	"github.com/noah-isme/academic-insights/internal/upstream"
	"github.com/noah-isme/academic-insights/pkg/config"
)

const secret = "router-secret"

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Env: config.EnvProduction, APIPrefix: "/api/v1"}
	metrics := service.NewMetricsService()
	auth := service.NewAuthService(nil, service.AuthConfig{AccessTokenSecret: secret})

	// Nothing listens here; routes that reach the academic API fail as unavailable.
	api := upstream.New("http://127.0.0.1:1", 200*time.Millisecond, metrics, nil)
	sessions := service.NewSessionService(nil, api, service.SessionDefaults{RiskThreshold: 10, SuggestionCount: 5, MaxSuggestions: 20}, nil, metrics, nil)
	store := service.NewGradeStore()
	grades := service.NewGradeWorkflowService(api, store, nil, metrics, nil)

	return New(cfg, zap.NewNop(), auth, metrics, Handlers{
		Session:      handler.NewSessionHandler(sessions),
		Performance:  handler.NewPerformanceHandler(sessions, service.NewPerformanceService(api, store, service.TrendOptions{}, metrics, nil)),
		Grade:        handler.NewGradeHandler(grades),
		Notification: handler.NewNotificationHandler(sessions),
		Catalog:      handler.NewCatalogHandler(service.NewCatalogService(api, nil, nil)),
		Metrics:      handler.NewMetricsHandler(metrics, nil),
	})
}

func bearer(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	claims["exp"] = time.Now().Add(time.Hour).Unix()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return "Bearer " + token
}

func serve(engine *gin.Engine, method, path, auth string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	engine.ServeHTTP(w, req)
	return w
}

func TestHealthIsPublic(t *testing.T) {
	engine := newTestEngine(t)
	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/ready", "").Code)
}

func TestAPIRequiresToken(t *testing.T) {
	engine := newTestEngine(t)
	assert.Equal(t, http.StatusUnauthorized, serve(engine, http.MethodGet, "/api/v1/notifications", "").Code)
}

func TestStatefulRoutesRequireSession(t *testing.T) {
	engine := newTestEngine(t)
	auth := bearer(t, jwt.MapClaims{"user_id": 7, "role": "etudiant"})

	w := serve(engine, http.MethodGet, "/api/v1/students/7/performance", auth)
	assert.Equal(t, http.StatusPreconditionRequired, w.Code)

	w = serve(engine, http.MethodPost, "/api/v1/session", auth)
	require.Equal(t, http.StatusCreated, w.Code)

	w = serve(engine, http.MethodGet, "/api/v1/students/7/performance", auth)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "DATA_UNAVAILABLE")
}

func TestStudentsCannotEnterGrades(t *testing.T) {
	engine := newTestEngine(t)
	auth := bearer(t, jwt.MapClaims{"user_id": 7, "role": "etudiant"})

	w := serve(engine, http.MethodPost, "/api/v1/grades/5/validate", auth)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCatalogCacheIsAdminOnly(t *testing.T) {
	engine := newTestEngine(t)

	teacher := bearer(t, jwt.MapClaims{"user_id": 3, "role": "professeur"})
	assert.Equal(t, http.StatusForbidden, serve(engine, http.MethodDelete, "/api/v1/catalog/cache", teacher).Code)

	admin := bearer(t, jwt.MapClaims{"user_id": 1, "role": "admin"})
	assert.Equal(t, http.StatusNoContent, serve(engine, http.MethodDelete, "/api/v1/catalog/cache", admin).Code)
}
