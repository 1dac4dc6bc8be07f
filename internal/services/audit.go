package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/verdelo/carbonledger-backend/internal/data/repos"
	types "github.com/verdelo/carbonledger-backend/internal/domain"
	"github.com/verdelo/carbonledger-backend/internal/pkg/ctxutil"
	"github.com/verdelo/carbonledger-backend/internal/pkg/logger"
)

type AuditService interface {
	LogAction(ctx context.Context, tx *gorm.DB, userID, companyID uuid.UUID, action, entityType string, entityID *uuid.UUID) error
	ListByCompany(ctx context.Context, companyID uuid.UUID, limit int) ([]*types.AuditLog, error)
}

type auditService struct {
	db        *gorm.DB
	log       *logger.Logger
	auditRepo repos.AuditRepo
}

func NewAuditService(db *gorm.DB, log *logger.Logger, auditRepo repos.AuditRepo) AuditService {
	serviceLog := log.With("service", "AuditService")
	return &auditService{
		db:        db,
		log:       serviceLog,
		auditRepo: auditRepo,
	}
}

func (s *auditService) LogAction(ctx context.Context, tx *gorm.DB, userID, companyID uuid.UUID, action, entityType string, entityID *uuid.UUID) error {
	ctx = ctxutil.Default(ctx)

	entry := &types.AuditLog{
		ID:         uuid.New(),
		UserID:     userID,
		CompanyID:  companyID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
	}
	if _, err := s.auditRepo.Create(ctx, tx, []*types.AuditLog{entry}); err != nil {
		// Audit writes never fail a mutation that already succeeded.
		s.log.Warn("Failed to write audit log", "action", action, "company_id", companyID, "error", err)
		return err
	}
	return nil
}

func (s *auditService) ListByCompany(ctx context.Context, companyID uuid.UUID, limit int) ([]*types.AuditLog, error) {
	ctx = ctxutil.Default(ctx)
	return s.auditRepo.ListByCompany(ctx, nil, companyID, limit)
}
