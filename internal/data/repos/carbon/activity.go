package carbon

import (
	"context"
	"time"

	"github.com/google/uuid"
	types "github.com/verdelo/carbonledger-backend/internal/domain"
	"github.com/verdelo/carbonledger-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

type ActivityRepo interface {
	Create(ctx context.Context, tx *gorm.DB, records []*types.ActivityRecord) ([]*types.ActivityRecord, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.ActivityRecord, error)
	ListByCompany(ctx context.Context, tx *gorm.DB, companyID uuid.UUID) ([]*types.ActivityRecord, error)
	ListByCompanyWindow(ctx context.Context, tx *gorm.DB, companyID uuid.UUID, start, end *time.Time) ([]*types.ActivityRecord, error)
	ExistsByConnectionPeriod(ctx context.Context, tx *gorm.DB, companyID, connectionID uuid.UUID, periodStart, periodEnd time.Time) (bool, error)
	CountByQuality(ctx context.Context, tx *gorm.DB, companyID uuid.UUID) (map[string]int64, error)
	DeleteByCompany(ctx context.Context, tx *gorm.DB, companyID uuid.UUID) error
}

type activityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActivityRepo(db *gorm.DB, baseLog *logger.Logger) ActivityRepo {
	repoLog := baseLog.With("repo", "ActivityRepo")
	return &activityRepo{db: db, log: repoLog}
}

func (r *activityRepo) Create(ctx context.Context, tx *gorm.DB, records []*types.ActivityRecord) ([]*types.ActivityRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(records) == 0 {
		return []*types.ActivityRecord{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

func (r *activityRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.ActivityRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ActivityRecord
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

func (r *activityRepo) ListByCompany(ctx context.Context, tx *gorm.DB, companyID uuid.UUID) ([]*types.ActivityRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ActivityRecord
	if err := transaction.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("period_start ASC, created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ListByCompanyWindow returns records whose period intersects the
// window. Either bound may be nil to leave that side open; touching at
// an endpoint counts as intersecting.
func (r *activityRepo) ListByCompanyWindow(ctx context.Context, tx *gorm.DB, companyID uuid.UUID, start, end *time.Time) ([]*types.ActivityRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	q := transaction.WithContext(ctx).
		Where("company_id = ?", companyID)
	if start != nil {
		q = q.Where("period_end >= ?", *start)
	}
	if end != nil {
		q = q.Where("period_start <= ?", *end)
	}

	var results []*types.ActivityRecord
	if err := q.
		Order("period_start ASC, created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *activityRepo) ExistsByConnectionPeriod(ctx context.Context, tx *gorm.DB, companyID, connectionID uuid.UUID, periodStart, periodEnd time.Time) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.ActivityRecord{}).
		Where("company_id = ? AND data_source_connection_id = ? AND period_start = ? AND period_end = ?", companyID, connectionID, periodStart, periodEnd).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *activityRepo) CountByQuality(ctx context.Context, tx *gorm.DB, companyID uuid.UUID) (map[string]int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var rows []struct {
		DataQuality string
		Count       int64
	}
	if err := transaction.WithContext(ctx).
		Model(&types.ActivityRecord{}).
		Select("data_quality, COUNT(*) AS count").
		Where("company_id = ?", companyID).
		Group("data_quality").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.DataQuality] = row.Count
	}
	return counts, nil
}

func (r *activityRepo) DeleteByCompany(ctx context.Context, tx *gorm.DB, companyID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("company_id = ?", companyID).
		Delete(&types.ActivityRecord{}).Error
}
