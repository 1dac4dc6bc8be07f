package repos

import (
	"github.com/verdelo/carbonledger-backend/internal/data/repos/carbon"
	"github.com/verdelo/carbonledger-backend/internal/data/repos/company"
	"github.com/verdelo/carbonledger-backend/internal/data/repos/ops"
	"github.com/verdelo/carbonledger-backend/internal/data/repos/reporting"
	"github.com/verdelo/carbonledger-backend/internal/data/repos/user"
	"github.com/verdelo/carbonledger-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

type UserRepo = user.UserRepo

type CompanyRepo = company.CompanyRepo
type ConnectionRepo = company.ConnectionRepo

type ActivityRepo = carbon.ActivityRepo
type FactorRepo = carbon.FactorRepo
type EstimateRepo = carbon.EstimateRepo
type SummaryRepo = carbon.SummaryRepo

type ReportRepo = reporting.ReportRepo

type AuditRepo = ops.AuditRepo
type IdempotencyRepo = ops.IdempotencyRepo

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }

func NewCompanyRepo(db *gorm.DB, baseLog *logger.Logger) CompanyRepo {
	return company.NewCompanyRepo(db, baseLog)
}
func NewConnectionRepo(db *gorm.DB, baseLog *logger.Logger) ConnectionRepo {
	return company.NewConnectionRepo(db, baseLog)
}

func NewActivityRepo(db *gorm.DB, baseLog *logger.Logger) ActivityRepo {
	return carbon.NewActivityRepo(db, baseLog)
}
func NewFactorRepo(db *gorm.DB, baseLog *logger.Logger) FactorRepo {
	return carbon.NewFactorRepo(db, baseLog)
}
func NewEstimateRepo(db *gorm.DB, baseLog *logger.Logger) EstimateRepo {
	return carbon.NewEstimateRepo(db, baseLog)
}
func NewSummaryRepo(db *gorm.DB, baseLog *logger.Logger) SummaryRepo {
	return carbon.NewSummaryRepo(db, baseLog)
}

func NewReportRepo(db *gorm.DB, baseLog *logger.Logger) ReportRepo {
	return reporting.NewReportRepo(db, baseLog)
}

func NewAuditRepo(db *gorm.DB, baseLog *logger.Logger) AuditRepo {
	return ops.NewAuditRepo(db, baseLog)
}
func NewIdempotencyRepo(db *gorm.DB, baseLog *logger.Logger) IdempotencyRepo {
	return ops.NewIdempotencyRepo(db, baseLog)
}
