package emissions

import (
	"hash/fnv"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// companyLockKey hashes the company UUID into the signed 64-bit key
// space Postgres advisory locks use.
func companyLockKey(companyID uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write(companyID[:])
	return int64(h.Sum64())
}

// acquireCompanyLock serializes compute runs per company with a
// transaction-scoped advisory lock, so two concurrent recomputes cannot
// interleave their delete-then-insert phases. The lock releases with
// the transaction. On non-Postgres drivers this is a no-op; sqlite
// serializes writers on its own.
func acquireCompanyLock(tx *gorm.DB, companyID uuid.UUID) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.Exec("SELECT pg_advisory_xact_lock(?)", companyLockKey(companyID)).Error
}
