package tenant

import (
	"time"

	"github.com/google/uuid"
)

// DataSourceConnection tracks the link state between a company and one
// upstream provider (cloud billing export, utility feed, and so on).
type DataSourceConnection struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID            uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uq_company_source_type" json:"company_id"`
	SourceType           string     `gorm:"not null;uniqueIndex:uq_company_source_type" json:"source_type"`
	DisplayName          string     `gorm:"not null" json:"display_name"`
	Status               string     `gorm:"not null" json:"status"`
	CredentialsEncrypted *string    `json:"-"`
	LastSyncedAt         *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt            time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"not null" json:"updated_at"`
}

func (DataSourceConnection) TableName() string { return "data_source_connection" }

const (
	ConnectionConnected    = "connected"
	ConnectionAIEstimated  = "ai_estimated"
	ConnectionNotConnected = "not_connected"
	ConnectionManual       = "manual"
)
