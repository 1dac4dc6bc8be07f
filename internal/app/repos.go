package app

import (
	"gorm.io/gorm"

	"github.com/verdelo/carbonledger-backend/internal/data/repos"
	"github.com/verdelo/carbonledger-backend/internal/pkg/logger"
)

type Repos struct {
	User        repos.UserRepo
	Company     repos.CompanyRepo
	Connection  repos.ConnectionRepo
	Activity    repos.ActivityRepo
	Factor      repos.FactorRepo
	Estimate    repos.EstimateRepo
	Summary     repos.SummaryRepo
	Report      repos.ReportRepo
	Audit       repos.AuditRepo
	Idempotency repos.IdempotencyRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:        repos.NewUserRepo(db, log),
		Company:     repos.NewCompanyRepo(db, log),
		Connection:  repos.NewConnectionRepo(db, log),
		Activity:    repos.NewActivityRepo(db, log),
		Factor:      repos.NewFactorRepo(db, log),
		Estimate:    repos.NewEstimateRepo(db, log),
		Summary:     repos.NewSummaryRepo(db, log),
		Report:      repos.NewReportRepo(db, log),
		Audit:       repos.NewAuditRepo(db, log),
		Idempotency: repos.NewIdempotencyRepo(db, log),
	}
}
