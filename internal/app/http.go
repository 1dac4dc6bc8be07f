package app

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/verdelo/carbonledger-backend/internal/http"
	httpH "github.com/verdelo/carbonledger-backend/internal/http/handlers"
	httpMW "github.com/verdelo/carbonledger-backend/internal/http/middleware"
	"github.com/verdelo/carbonledger-backend/internal/observability"
	"github.com/verdelo/carbonledger-backend/internal/pkg/logger"
	"github.com/verdelo/carbonledger-backend/internal/ratelimit"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health      *httpH.HealthHandler
	Auth        *httpH.AuthHandler
	Company     *httpH.CompanyHandler
	Integration *httpH.IntegrationHandler
	Dashboard   *httpH.DashboardHandler
	Report      *httpH.ReportHandler
	Insight     *httpH.InsightHandler
	Methodology *httpH.MethodologyHandler
	Dev         *httpH.DevHandler
}

func wireHandlers(db *gorm.DB, log *logger.Logger, cfg Config, services Services) Handlers {
	log.Info("Wiring handlers...")
	handlers := Handlers{
		Health:      httpH.NewHealthHandler(db),
		Auth:        httpH.NewAuthHandler(services.Auth),
		Company:     httpH.NewCompanyHandler(services.Company),
		Integration: httpH.NewIntegrationHandler(services.Integration, services.Idempotency),
		Dashboard:   httpH.NewDashboardHandler(services.Dashboard, services.Idempotency),
		Report:      httpH.NewReportHandler(services.Report),
		Insight:     httpH.NewInsightHandler(services.Insight),
		Methodology: httpH.NewMethodologyHandler(),
	}
	if cfg.IsDev() {
		handlers.Dev = httpH.NewDevHandler(db, services.Seeder)
	}
	return handlers
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireRouter(log *logger.Logger, cfg Config, metrics *observability.Metrics, limiter ratelimit.Limiter, handlers Handlers, middleware Middleware) *gin.Engine {
	return http.NewRouter(http.RouterConfig{
		Log:         log,
		Metrics:     metrics,
		Limiter:     limiter,
		CORSOrigins: cfg.CORSOrigins,

		HealthHandler:      handlers.Health,
		AuthHandler:        handlers.Auth,
		AuthMiddleware:     middleware.Auth,
		CompanyHandler:     handlers.Company,
		IntegrationHandler: handlers.Integration,
		DashboardHandler:   handlers.Dashboard,
		ReportHandler:      handlers.Report,
		InsightHandler:     handlers.Insight,
		MethodologyHandler: handlers.Methodology,
		DevHandler:         handlers.Dev,
	})
}
