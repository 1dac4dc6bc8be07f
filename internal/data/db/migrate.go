package db

import (
	types "github.com/verdelo/carbonledger-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// =========================
		// Tenancy + identity
		// =========================
		&types.Company{},
		&types.User{},
		&types.DataSourceConnection{},

		// =========================
		// Carbon core
		// =========================
		&types.ActivityRecord{},
		&types.EmissionFactor{},
		&types.EmissionEstimate{},
		&types.EmissionsSummary{},

		// =========================
		// Reporting + ops
		// =========================
		&types.Report{},
		&types.AuditLog{},
		&types.IdempotencyKey{},
	)
}
