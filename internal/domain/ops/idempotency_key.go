package ops

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// IdempotencyKey stores the outcome of a mutating request so a retry
// with the same key replays the stored response instead of re-running
// the side effect. RequestHash guards against key reuse with a
// different payload.
type IdempotencyKey struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID      uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uq_idempotency_key" json:"company_id"`
	UserID         *uuid.UUID     `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Endpoint       string         `gorm:"not null;uniqueIndex:uq_idempotency_key" json:"endpoint"`
	IdempotencyKey string         `gorm:"not null;uniqueIndex:uq_idempotency_key" json:"idempotency_key"`
	RequestHash    *string        `json:"request_hash,omitempty"`
	ResponseStatus int            `gorm:"not null" json:"response_status"`
	ResponseBody   datatypes.JSON `gorm:"type:jsonb" json:"response_body,omitempty"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
}

func (IdempotencyKey) TableName() string { return "idempotency_key" }
