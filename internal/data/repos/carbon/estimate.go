package carbon

import (
	"context"
	"time"

	"github.com/google/uuid"
	types "github.com/verdelo/carbonledger-backend/internal/domain"
	"github.com/verdelo/carbonledger-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

type EstimateRepo interface {
	Create(ctx context.Context, tx *gorm.DB, estimates []*types.EmissionEstimate) ([]*types.EmissionEstimate, error)
	ExistingActivityRecordIDs(ctx context.Context, tx *gorm.DB, activityRecordIDs []uuid.UUID) (map[uuid.UUID]bool, error)
	ListByCompanyYear(ctx context.Context, tx *gorm.DB, companyID uuid.UUID, yearStart, yearEnd time.Time) ([]*types.EmissionEstimate, error)
	DeleteByActivityRecordIDs(ctx context.Context, tx *gorm.DB, activityRecordIDs []uuid.UUID) (int64, error)
	DeleteByCompany(ctx context.Context, tx *gorm.DB, companyID uuid.UUID) (int64, error)
}

type estimateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEstimateRepo(db *gorm.DB, baseLog *logger.Logger) EstimateRepo {
	repoLog := baseLog.With("repo", "EstimateRepo")
	return &estimateRepo{db: db, log: repoLog}
}

func (r *estimateRepo) Create(ctx context.Context, tx *gorm.DB, estimates []*types.EmissionEstimate) ([]*types.EmissionEstimate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(estimates) == 0 {
		return []*types.EmissionEstimate{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&estimates).Error; err != nil {
		return nil, err
	}

	return estimates, nil
}

// ExistingActivityRecordIDs reports which of the given activity records
// already carry an estimate, so incremental runs can skip them.
func (r *estimateRepo) ExistingActivityRecordIDs(ctx context.Context, tx *gorm.DB, activityRecordIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	existing := make(map[uuid.UUID]bool, len(activityRecordIDs))
	if len(activityRecordIDs) == 0 {
		return existing, nil
	}

	var ids []uuid.UUID
	if err := transaction.WithContext(ctx).
		Model(&types.EmissionEstimate{}).
		Where("activity_record_id IN ?", activityRecordIDs).
		Pluck("activity_record_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		existing[id] = true
	}
	return existing, nil
}

// ListByCompanyYear returns estimates whose period lies fully inside
// [yearStart, yearEnd]. Estimates spanning a year boundary are excluded.
func (r *estimateRepo) ListByCompanyYear(ctx context.Context, tx *gorm.DB, companyID uuid.UUID, yearStart, yearEnd time.Time) ([]*types.EmissionEstimate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.EmissionEstimate
	if err := transaction.WithContext(ctx).
		Where("company_id = ? AND period_start >= ? AND period_end <= ?", companyID, yearStart, yearEnd).
		Order("period_start ASC, created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *estimateRepo) DeleteByActivityRecordIDs(ctx context.Context, tx *gorm.DB, activityRecordIDs []uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(activityRecordIDs) == 0 {
		return 0, nil
	}

	res := transaction.WithContext(ctx).
		Where("activity_record_id IN ?", activityRecordIDs).
		Delete(&types.EmissionEstimate{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *estimateRepo) DeleteByCompany(ctx context.Context, tx *gorm.DB, companyID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	res := transaction.WithContext(ctx).
		Where("company_id = ?", companyID).
		Delete(&types.EmissionEstimate{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
