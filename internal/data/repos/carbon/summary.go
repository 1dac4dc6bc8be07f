package carbon

import (
	"context"

	"github.com/google/uuid"
	types "github.com/verdelo/carbonledger-backend/internal/domain"
	"github.com/verdelo/carbonledger-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

type SummaryRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.EmissionsSummary) ([]*types.EmissionsSummary, error)
	ListByCompanyYear(ctx context.Context, tx *gorm.DB, companyID uuid.UUID, reportingYear int) ([]*types.EmissionsSummary, error)
	ListByCompanyYearAndType(ctx context.Context, tx *gorm.DB, companyID uuid.UUID, reportingYear int, periodType string) ([]*types.EmissionsSummary, error)
	DeleteByCompanyYear(ctx context.Context, tx *gorm.DB, companyID uuid.UUID, reportingYear int) (int64, error)
	DeleteByCompany(ctx context.Context, tx *gorm.DB, companyID uuid.UUID) error
}

type summaryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSummaryRepo(db *gorm.DB, baseLog *logger.Logger) SummaryRepo {
	repoLog := baseLog.With("repo", "SummaryRepo")
	return &summaryRepo{db: db, log: repoLog}
}

func (r *summaryRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.EmissionsSummary) ([]*types.EmissionsSummary, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(rows) == 0 {
		return []*types.EmissionsSummary{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}

	return rows, nil
}

func (r *summaryRepo) ListByCompanyYear(ctx context.Context, tx *gorm.DB, companyID uuid.UUID, reportingYear int) ([]*types.EmissionsSummary, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.EmissionsSummary
	if err := transaction.WithContext(ctx).
		Where("company_id = ? AND reporting_year = ?", companyID, reportingYear).
		Order("period_type ASC, period_value ASC, scope ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *summaryRepo) ListByCompanyYearAndType(ctx context.Context, tx *gorm.DB, companyID uuid.UUID, reportingYear int, periodType string) ([]*types.EmissionsSummary, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.EmissionsSummary
	if err := transaction.WithContext(ctx).
		Where("company_id = ? AND reporting_year = ? AND period_type = ?", companyID, reportingYear, periodType).
		Order("period_value ASC, scope ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *summaryRepo) DeleteByCompanyYear(ctx context.Context, tx *gorm.DB, companyID uuid.UUID, reportingYear int) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	res := transaction.WithContext(ctx).
		Where("company_id = ? AND reporting_year = ?", companyID, reportingYear).
		Delete(&types.EmissionsSummary{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *summaryRepo) DeleteByCompany(ctx context.Context, tx *gorm.DB, companyID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("company_id = ?", companyID).
		Delete(&types.EmissionsSummary{}).Error
}
