package carbon

import (
	"context"
	"time"

	"github.com/google/uuid"
	types "github.com/verdelo/carbonledger-backend/internal/domain"
	"github.com/verdelo/carbonledger-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

type FactorRepo interface {
	Create(ctx context.Context, tx *gorm.DB, factors []*types.EmissionFactor) ([]*types.EmissionFactor, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.EmissionFactor, error)
	ListCandidates(ctx context.Context, tx *gorm.DB, activityType, unit string, scope int, scope3Category *string, periodStart, periodEnd time.Time) ([]*types.EmissionFactor, error)
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.EmissionFactor, error)
	Count(ctx context.Context, tx *gorm.DB) (int64, error)
}

type factorRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFactorRepo(db *gorm.DB, baseLog *logger.Logger) FactorRepo {
	repoLog := baseLog.With("repo", "FactorRepo")
	return &factorRepo{db: db, log: repoLog}
}

func (r *factorRepo) Create(ctx context.Context, tx *gorm.DB, factors []*types.EmissionFactor) ([]*types.EmissionFactor, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(factors) == 0 {
		return []*types.EmissionFactor{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&factors).Error; err != nil {
		return nil, err
	}

	return factors, nil
}

func (r *factorRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.EmissionFactor, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.EmissionFactor
	if len(ids) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ListCandidates returns every factor matching the signature whose
// validity window overlaps [periodStart, periodEnd]. A nil
// scope3Category only matches factors with no category; the caller
// ranks the candidates, the query does not order them.
func (r *factorRepo) ListCandidates(ctx context.Context, tx *gorm.DB, activityType, unit string, scope int, scope3Category *string, periodStart, periodEnd time.Time) ([]*types.EmissionFactor, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	q := transaction.WithContext(ctx).
		Where("activity_type = ? AND unit = ? AND scope = ?", activityType, unit, scope).
		Where("(valid_from IS NULL OR valid_from <= ?)", periodEnd).
		Where("(valid_to IS NULL OR valid_to >= ?)", periodStart)

	if scope3Category == nil {
		q = q.Where("scope_3_category IS NULL")
	} else {
		q = q.Where("scope_3_category = ?", *scope3Category)
	}

	var results []*types.EmissionFactor
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *factorRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.EmissionFactor, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.EmissionFactor
	if err := transaction.WithContext(ctx).
		Order("activity_type ASC, unit ASC, scope ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *factorRepo) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.EmissionFactor{}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
