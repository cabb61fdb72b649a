package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/ctos-api/internal/handler"
	internalmiddleware "github.com/noah-isme/ctos-api/internal/middleware"
	"github.com/noah-isme/ctos-api/internal/models"
	"github.com/noah-isme/ctos-api/internal/policy"
	"github.com/noah-isme/ctos-api/internal/service"
	"github.com/noah-isme/ctos-api/pkg/config"
	"github.com/noah-isme/ctos-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/ctos-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/ctos-api/pkg/middleware/requestid"
)

type routeHandlers struct {
	auth      *handler.AuthHandler
	session   *handler.SessionHandler
	documents *handler.DocumentHandler
	sites     *handler.SiteHandler
	community *handler.CommunityHandler
	reports   *handler.ReportHandler
	users     *handler.UserHandler
	metrics   *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, tokens internalmiddleware.TokenValidator, audit internalmiddleware.AuditRecorder, metrics *service.MetricsService, h routeHandlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.WithResponseMeta())
	if cfg.Metrics.Enabled {
		r.Use(internalmiddleware.Metrics(metrics))
		r.GET("/metrics", h.metrics.Prometheus)
	}

	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", h.auth.Login)
	auth.POST("/refresh", h.auth.Refresh)

	// Signed links carry their own authorization.
	public := api.Group("", internalmiddleware.OptionalJWT(tokens))
	public.GET("/documents/files/:token", h.documents.File)
	public.GET("/export/:token", h.reports.Download)

	secured := api.Group("", internalmiddleware.JWT(tokens))
	secured.POST("/auth/logout", h.auth.Logout)
	secured.GET("/auth/me", h.auth.Me)

	me := secured.Group("/me")
	me.GET("/navigation", h.session.Navigation)
	me.POST("/role", h.session.SwitchRole)

	documents := secured.Group("/documents", internalmiddleware.RequireCapability(policy.CapViewDocuments))
	documents.GET("", h.documents.List)
	documents.GET("/stats", h.documents.Stats)
	documents.GET("/completeness", h.documents.Completeness)
	documents.GET("/sections", h.documents.Sections)
	documents.GET("/:id", h.documents.Get)
	documents.GET("/:id/download", h.documents.DownloadLink)
	documents.POST("", internalmiddleware.RequireCapability(policy.CapUploadDocument), h.documents.Upload)
	documents.POST("/:id/certify", internalmiddleware.RequireCapability(policy.CapCertifyDocument), h.documents.Certify)
	documents.DELETE("/:id", internalmiddleware.RequireCapability(policy.CapDeleteDocument), h.documents.Delete)

	// Coordinators may read their own site; the service enforces that scope.
	sites := secured.Group("/sites")
	sites.GET("", internalmiddleware.RequireCapability(policy.CapViewSitesOverview), h.sites.Overview)
	sites.GET("/:id", h.sites.Get)

	community := secured.Group("/community")
	community.GET("/questions", h.community.List)
	community.GET("/questions/:id", h.community.Get)
	community.POST("/questions", h.community.Ask)
	community.POST("/questions/:id/answers", h.community.Answer)
	community.POST("/questions/:id/upvote", h.community.Upvote)
	community.POST("/answers/:id/accept", h.community.AcceptAnswer)

	reports := secured.Group("/reports", internalmiddleware.RequireCapability(policy.CapViewReports))
	reports.GET("/summary", h.reports.Summary)
	reports.POST("/exports", internalmiddleware.RequireCapability(policy.CapExportReports), h.reports.CreateExport)
	reports.GET("/exports", h.reports.ListExports)
	reports.GET("/exports/:id", h.reports.ExportStatus)

	admin := secured.Group("/admin", internalmiddleware.RequireCapability(policy.CapManageAdmin))
	admin.GET("/users", internalmiddleware.Audit(audit, models.AuditActionRead, "user", logr), h.users.List)
	admin.GET("/users/:id", internalmiddleware.Audit(audit, models.AuditActionRead, "user", logr), h.users.Get)
	admin.POST("/users", h.users.Create)
	admin.PUT("/users/:id", h.users.Update)
	admin.DELETE("/users/:id", h.users.Delete)
	admin.GET("/audit", internalmiddleware.Audit(audit, models.AuditActionRead, "audit_log", logr), h.users.AuditTrail)

	secured.GET("/metrics/summary", internalmiddleware.RequireCapability(policy.CapManageAdmin), h.metrics.Summary)

	return r
}
