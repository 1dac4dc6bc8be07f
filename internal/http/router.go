package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/verdelo/carbonledger-backend/internal/http/handlers"
	httpMW "github.com/verdelo/carbonledger-backend/internal/http/middleware"
	"github.com/verdelo/carbonledger-backend/internal/observability"
	"github.com/verdelo/carbonledger-backend/internal/pkg/logger"
	"github.com/verdelo/carbonledger-backend/internal/ratelimit"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	Limiter     ratelimit.Limiter
	CORSOrigins []string

	AuthHandler        *httpH.AuthHandler
	AuthMiddleware     *httpMW.AuthMiddleware
	CompanyHandler     *httpH.CompanyHandler
	IntegrationHandler *httpH.IntegrationHandler
	DashboardHandler   *httpH.DashboardHandler
	ReportHandler      *httpH.ReportHandler
	InsightHandler     *httpH.InsightHandler
	MethodologyHandler *httpH.MethodologyHandler

	// DevHandler is nil outside dev environments, leaving its routes
	// unregistered.
	DevHandler *httpH.DevHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("carbonledger"))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.CORS(cfg.CORSOrigins))
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}
	if cfg.Metrics != nil {
		r.Use(httpMW.Metrics(cfg.Metrics))
	}

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/", cfg.HealthHandler.Root)
		r.GET("/health", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/auth/login", cfg.AuthHandler.Login)
		}

		// Methodology (public)
		if cfg.MethodologyHandler != nil {
			api.GET("/methodology", cfg.MethodologyHandler.Get)
		}

		// Shared report link (public)
		if cfg.ReportHandler != nil {
			api.GET("/r/:share_token", cfg.ReportHandler.GetPublic)
		}

		// Dev only
		if cfg.DevHandler != nil {
			api.POST("/auth/dev-seed", cfg.DevHandler.Seed)
			api.GET("/auth/dev-db-check", cfg.DevHandler.DBCheck)
		}
	}

	protected := api.Group("/")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}
		if cfg.Limiter != nil && cfg.Log != nil {
			protected.Use(httpMW.RateLimit(cfg.Log, cfg.Limiter))
		}

		// Auth (protected)
		if cfg.AuthHandler != nil {
			protected.GET("/auth/me", cfg.AuthHandler.Me)
		}

		// Company profile + preferences
		if cfg.CompanyHandler != nil {
			protected.GET("/company", cfg.CompanyHandler.Get)
			protected.PUT("/company", cfg.CompanyHandler.UpdateProfile)
			protected.PUT("/company/preferences", cfg.CompanyHandler.UpdatePreferences)
			protected.GET("/onboarding", cfg.CompanyHandler.GetOnboarding)
			protected.PUT("/onboarding", cfg.CompanyHandler.UpdateOnboarding)
		}

		// Integrations (read)
		if cfg.IntegrationHandler != nil {
			protected.GET("/integrations", cfg.IntegrationHandler.List)
			protected.GET("/integrations/:provider/sample-csv", cfg.IntegrationHandler.SampleCSV)
		}

		// Dashboard (read)
		if cfg.DashboardHandler != nil {
			protected.GET("/dashboard", cfg.DashboardHandler.Get)
		}

		// Insights
		if cfg.InsightHandler != nil {
			protected.GET("/insights", cfg.InsightHandler.List)
		}

		// Reports
		if cfg.ReportHandler != nil {
			protected.GET("/reports", cfg.ReportHandler.List)
			protected.POST("/reports", cfg.ReportHandler.Create)
			protected.GET("/reports/:id", cfg.ReportHandler.Get)
			protected.POST("/reports/:id/publish", cfg.ReportHandler.Publish)
			protected.GET("/reports/:id/chart", cfg.ReportHandler.Chart)
		}
	}

	// Writes that mutate activity data are closed to demo sandbox users.
	nonDemo := protected.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			nonDemo.Use(cfg.AuthMiddleware.RequireNonDemo())
		}

		if cfg.IntegrationHandler != nil {
			nonDemo.POST("/integrations/sync", cfg.IntegrationHandler.SyncAll)
			nonDemo.POST("/integrations/:provider/sync", cfg.IntegrationHandler.Sync)
			nonDemo.POST("/integrations/:provider/estimate", cfg.IntegrationHandler.Estimate)
			// The manual endpoints ride the :provider wildcard because gin
			// rejects a static "manual" segment next to it; the handlers
			// 404 any other provider value.
			nonDemo.POST("/integrations/:provider/activity", cfg.IntegrationHandler.CreateManualActivity)
			nonDemo.POST("/integrations/:provider/upload", cfg.IntegrationHandler.UploadCSV)
		}

		if cfg.DashboardHandler != nil {
			nonDemo.POST("/dashboard/recompute", cfg.DashboardHandler.Recompute)
		}

		if cfg.CompanyHandler != nil {
			nonDemo.DELETE("/company/data", cfg.CompanyHandler.DeleteData)
		}
	}

	return r
}
