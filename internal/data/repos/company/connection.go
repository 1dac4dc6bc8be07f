package company

import (
	"context"

	"github.com/google/uuid"
	types "github.com/verdelo/carbonledger-backend/internal/domain"
	"github.com/verdelo/carbonledger-backend/internal/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ConnectionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, conns []*types.DataSourceConnection) ([]*types.DataSourceConnection, error)
	Upsert(ctx context.Context, tx *gorm.DB, conn *types.DataSourceConnection) (*types.DataSourceConnection, error)
	GetByCompany(ctx context.Context, tx *gorm.DB, companyID uuid.UUID) ([]*types.DataSourceConnection, error)
	GetByCompanyAndSource(ctx context.Context, tx *gorm.DB, companyID uuid.UUID, sourceType string) (*types.DataSourceConnection, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, connectionID uuid.UUID, updates map[string]interface{}) error
	DeleteByCompany(ctx context.Context, tx *gorm.DB, companyID uuid.UUID) error
}

type connectionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConnectionRepo(db *gorm.DB, baseLog *logger.Logger) ConnectionRepo {
	repoLog := baseLog.With("repo", "ConnectionRepo")
	return &connectionRepo{db: db, log: repoLog}
}

func (cr *connectionRepo) Create(ctx context.Context, tx *gorm.DB, conns []*types.DataSourceConnection) ([]*types.DataSourceConnection, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	if len(conns) == 0 {
		return []*types.DataSourceConnection{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&conns).Error; err != nil {
		return nil, err
	}

	return conns, nil
}

// Upsert keys on (company_id, source_type) so repeated syncs update the
// existing row instead of inserting a duplicate.
func (cr *connectionRepo) Upsert(ctx context.Context, tx *gorm.DB, conn *types.DataSourceConnection) (*types.DataSourceConnection, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "company_id"}, {Name: "source_type"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status",
				"last_synced_at",
				"updated_at",
			}),
		}).
		Create(conn).Error; err != nil {
		return nil, err
	}
	return conn, nil
}

func (cr *connectionRepo) GetByCompany(ctx context.Context, tx *gorm.DB, companyID uuid.UUID) ([]*types.DataSourceConnection, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var results []*types.DataSourceConnection
	if err := transaction.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("source_type ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *connectionRepo) GetByCompanyAndSource(ctx context.Context, tx *gorm.DB, companyID uuid.UUID, sourceType string) (*types.DataSourceConnection, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var c types.DataSourceConnection
	if err := transaction.WithContext(ctx).
		Where("company_id = ? AND source_type = ?", companyID, sourceType).
		Limit(1).
		Find(&c).Error; err != nil {
		return nil, err
	}
	if c.ID == uuid.Nil {
		return nil, nil
	}
	return &c, nil
}

func (cr *connectionRepo) UpdateFields(ctx context.Context, tx *gorm.DB, connectionID uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.DataSourceConnection{}).
		Where("id = ?", connectionID).
		Updates(updates).Error
}

func (cr *connectionRepo) DeleteByCompany(ctx context.Context, tx *gorm.DB, companyID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	return transaction.WithContext(ctx).
		Where("company_id = ?", companyID).
		Delete(&types.DataSourceConnection{}).Error
}
