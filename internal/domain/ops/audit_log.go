package ops

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog records who did what to which entity. Writes are best-effort
// and never fail the action they describe.
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	CompanyID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"company_id"`
	Action     string     `gorm:"not null" json:"action"`
	EntityType string     `gorm:"not null" json:"entity_type"`
	EntityID   *uuid.UUID `gorm:"type:uuid" json:"entity_id,omitempty"`
	CreatedAt  time.Time  `gorm:"not null" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_log" }
