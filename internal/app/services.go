package app

import (
	"gorm.io/gorm"

	"github.com/verdelo/carbonledger-backend/internal/clients/gcs"
	"github.com/verdelo/carbonledger-backend/internal/clients/sendgrid"
	"github.com/verdelo/carbonledger-backend/internal/emissions"
	"github.com/verdelo/carbonledger-backend/internal/pkg/logger"
	"github.com/verdelo/carbonledger-backend/internal/seed"
	"github.com/verdelo/carbonledger-backend/internal/services"
)

type Services struct {
	Auth        services.AuthService
	Company     services.CompanyService
	Integration services.IntegrationService
	Dashboard   services.DashboardService
	Report      services.ReportService
	Insight     services.InsightService
	Chart       services.ChartService
	Email       services.EmailService
	Audit       services.AuditService
	Idempotency services.IdempotencyService

	Engine *emissions.Engine
	Seeder *seed.Seeder
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos) (Services, error) {
	log.Info("Wiring services...")

	// Engine first: the mutation-path services all end a write by
	// handing the affected company to it.
	resolver := emissions.NewResolver(r.Factor, log)
	lifecycle := emissions.NewLifecycle(r.Activity, r.Estimate, resolver, log)
	aggregator := emissions.NewAggregator(r.Estimate, r.Summary, log)
	engine := emissions.NewEngine(db, lifecycle, aggregator, r.Summary, log)

	// Object storage and mail are optional facilities: without their env
	// the services degrade (no chart artifact, no CSV archive, no
	// notification mail) rather than refusing to boot.
	var bucket gcs.BucketService
	if b, err := gcs.NewBucketService(log); err != nil {
		log.Warn("object storage unavailable, report charts disabled", "error", err)
	} else {
		bucket = b
	}

	auditService := services.NewAuditService(db, log, r.Audit)
	idempotencyService := services.NewIdempotencyService(db, log, r.Idempotency)
	authService := services.NewAuthService(db, log, r.User, r.Company, cfg.JWTSecretKey, cfg.AccessTokenTTL)
	companyService := services.NewCompanyService(db, log, r.Company, r.Connection, r.Activity, r.Estimate, r.Summary, r.Report)
	integrationService := services.NewIntegrationService(db, log, r.Company, r.Connection, r.Activity, engine, auditService, bucket)
	dashboardService := services.NewDashboardService(db, log, r.Company, r.Connection, r.Activity, engine, auditService)
	insightService := services.NewInsightService(log, r.Company)
	chartService := services.NewChartService(log)

	mailClient, err := sendgrid.NewFromEnv(log)
	if err != nil {
		return Services{}, err
	}
	emailService := services.NewEmailService(log, mailClient)

	reportService := services.NewReportService(db, log, r.Company, r.Report, r.User, engine, chartService, bucket, emailService)

	seeder := seed.New(db, log, r.User, r.Company, r.Factor, r.Activity, r.Report, authService, engine, cfg.Environment)

	return Services{
		Auth:        authService,
		Company:     companyService,
		Integration: integrationService,
		Dashboard:   dashboardService,
		Report:      reportService,
		Insight:     insightService,
		Chart:       chartService,
		Email:       emailService,
		Audit:       auditService,
		Idempotency: idempotencyService,
		Engine:      engine,
		Seeder:      seeder,
	}, nil
}
