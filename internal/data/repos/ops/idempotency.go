package ops

import (
	"context"

	"github.com/google/uuid"
	types "github.com/verdelo/carbonledger-backend/internal/domain"
	"github.com/verdelo/carbonledger-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

type IdempotencyRepo interface {
	Create(ctx context.Context, tx *gorm.DB, record *types.IdempotencyKey) (*types.IdempotencyKey, error)
	Get(ctx context.Context, tx *gorm.DB, companyID uuid.UUID, endpoint, key string) (*types.IdempotencyKey, error)
}

type idempotencyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIdempotencyRepo(db *gorm.DB, baseLog *logger.Logger) IdempotencyRepo {
	repoLog := baseLog.With("repo", "IdempotencyRepo")
	return &idempotencyRepo{db: db, log: repoLog}
}

func (r *idempotencyRepo) Create(ctx context.Context, tx *gorm.DB, record *types.IdempotencyKey) (*types.IdempotencyKey, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (r *idempotencyRepo) Get(ctx context.Context, tx *gorm.DB, companyID uuid.UUID, endpoint, key string) (*types.IdempotencyKey, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var rec types.IdempotencyKey
	if err := transaction.WithContext(ctx).
		Where("company_id = ? AND endpoint = ? AND idempotency_key = ?", companyID, endpoint, key).
		Limit(1).
		Find(&rec).Error; err != nil {
		return nil, err
	}
	if rec.ID == uuid.Nil {
		return nil, nil
	}
	return &rec, nil
}
