package reporting

import (
	"context"

	"github.com/google/uuid"
	types "github.com/verdelo/carbonledger-backend/internal/domain"
	"github.com/verdelo/carbonledger-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

type ReportRepo interface {
	Create(ctx context.Context, tx *gorm.DB, reports []*types.Report) ([]*types.Report, error)
	GetByID(ctx context.Context, tx *gorm.DB, reportID uuid.UUID) (*types.Report, error)
	GetByShareToken(ctx context.Context, tx *gorm.DB, shareToken string) (*types.Report, error)
	ListByCompany(ctx context.Context, tx *gorm.DB, companyID uuid.UUID, year *int) ([]*types.Report, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, reportID uuid.UUID, updates map[string]interface{}) error
	DeleteByCompany(ctx context.Context, tx *gorm.DB, companyID uuid.UUID) error
}

type reportRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReportRepo(db *gorm.DB, baseLog *logger.Logger) ReportRepo {
	repoLog := baseLog.With("repo", "ReportRepo")
	return &reportRepo{db: db, log: repoLog}
}

func (r *reportRepo) Create(ctx context.Context, tx *gorm.DB, reports []*types.Report) ([]*types.Report, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(reports) == 0 {
		return []*types.Report{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&reports).Error; err != nil {
		return nil, err
	}

	return reports, nil
}

func (r *reportRepo) GetByID(ctx context.Context, tx *gorm.DB, reportID uuid.UUID) (*types.Report, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var rep types.Report
	if err := transaction.WithContext(ctx).
		Where("id = ?", reportID).
		Limit(1).
		Find(&rep).Error; err != nil {
		return nil, err
	}
	if rep.ID == uuid.Nil {
		return nil, nil
	}
	return &rep, nil
}

func (r *reportRepo) GetByShareToken(ctx context.Context, tx *gorm.DB, shareToken string) (*types.Report, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var rep types.Report
	if err := transaction.WithContext(ctx).
		Where("shareable_token = ?", shareToken).
		Limit(1).
		Find(&rep).Error; err != nil {
		return nil, err
	}
	if rep.ID == uuid.Nil {
		return nil, nil
	}
	return &rep, nil
}

func (r *reportRepo) ListByCompany(ctx context.Context, tx *gorm.DB, companyID uuid.UUID, year *int) ([]*types.Report, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	query := transaction.WithContext(ctx).Where("company_id = ?", companyID)
	if year != nil {
		query = query.Where("reporting_year = ?", *year)
	}

	var results []*types.Report
	if err := query.Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *reportRepo) UpdateFields(ctx context.Context, tx *gorm.DB, reportID uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Report{}).
		Where("id = ?", reportID).
		Updates(updates).Error
}

func (r *reportRepo) DeleteByCompany(ctx context.Context, tx *gorm.DB, companyID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("company_id = ?", companyID).
		Delete(&types.Report{}).Error
}
