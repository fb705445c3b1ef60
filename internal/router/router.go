package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-insights/internal/handler"
	"github.com/noah-isme/academic-insights/internal/middleware"
	"github.com/noah-isme/academic-insights/internal/models"
	"github.com/noah-isme/academic-insights/internal/service"
	"github.com/noah-isme/academic-insights/pkg/config"
	"github.com/noah-isme/academic-insights/pkg/logger"
	corsmiddleware "github.com/noah-isme/academic-insights/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/academic-insights/pkg/middleware/requestid"
)

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Session      *handler.SessionHandler
	Performance  *handler.PerformanceHandler
	Suggestion   *handler.SuggestionHandler
	Grade        *handler.GradeHandler
	Notification *handler.NotificationHandler
	Export       *handler.ExportHandler
	Catalog      *handler.CatalogHandler
	Metrics      *handler.MetricsHandler
}

// New builds the gin engine with the middleware chain and every route.
func New(cfg *config.Config, logr *zap.Logger, auth *service.AuthService, metrics *service.MetricsService, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(auth))

	api.POST("/session", h.Session.Open)
	api.DELETE("/session", h.Session.Close)
	api.GET("/session/settings", h.Session.Settings)
	api.PUT("/session/settings", h.Session.UpdateSettings)

	api.GET("/students/:id/performance", h.Performance.Get)
	api.GET("/students/:id/suggestions", h.Suggestion.List)
	api.GET("/students/:id/report.csv", h.Export.CSV)
	api.GET("/students/:id/report.pdf", h.Export.PDF)
	api.POST("/suggestions/:id/feedback", h.Suggestion.Feedback)

	api.GET("/subjects", h.Catalog.Subjects)
	api.GET("/subjects/:id/exercises", h.Catalog.Exercises)

	staff := middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin)
	api.POST("/grades", staff, h.Grade.Submit)
	api.POST("/grades/bulk", staff, h.Grade.SubmitBulk)
	api.POST("/grades/:id/validate", staff, h.Grade.Validate)

	api.GET("/notifications", h.Notification.List)
	api.GET("/notifications/unread", h.Notification.Unread)
	api.POST("/notifications/read-all", h.Notification.MarkAllRead)
	api.POST("/notifications/:id/read", h.Notification.MarkRead)

	admin := middleware.RequireRoles(models.RoleAdmin)
	api.DELETE("/catalog/cache", admin, h.Catalog.Invalidate)
	api.GET("/metrics/summary", admin, h.Metrics.Summary)

	return r
}
