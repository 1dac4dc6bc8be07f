package company

import (
	"context"

	"github.com/google/uuid"
	types "github.com/verdelo/carbonledger-backend/internal/domain"
	"github.com/verdelo/carbonledger-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

type CompanyRepo interface {
	Create(ctx context.Context, tx *gorm.DB, companies []*types.Company) ([]*types.Company, error)
	GetByID(ctx context.Context, tx *gorm.DB, companyID uuid.UUID) (*types.Company, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, companyID uuid.UUID, updates map[string]interface{}) error
	Count(ctx context.Context, tx *gorm.DB) (int64, error)
}

type companyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCompanyRepo(db *gorm.DB, baseLog *logger.Logger) CompanyRepo {
	repoLog := baseLog.With("repo", "CompanyRepo")
	return &companyRepo{db: db, log: repoLog}
}

func (cr *companyRepo) Create(ctx context.Context, tx *gorm.DB, companies []*types.Company) ([]*types.Company, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	if len(companies) == 0 {
		return []*types.Company{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&companies).Error; err != nil {
		return nil, err
	}

	return companies, nil
}

func (cr *companyRepo) GetByID(ctx context.Context, tx *gorm.DB, companyID uuid.UUID) (*types.Company, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var c types.Company
	if err := transaction.WithContext(ctx).
		Where("id = ?", companyID).
		Limit(1).
		Find(&c).Error; err != nil {
		return nil, err
	}
	if c.ID == uuid.Nil {
		return nil, nil
	}
	return &c, nil
}

func (cr *companyRepo) UpdateFields(ctx context.Context, tx *gorm.DB, companyID uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Company{}).
		Where("id = ?", companyID).
		Updates(updates).Error
}

func (cr *companyRepo) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Company{}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
