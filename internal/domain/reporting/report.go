package reporting

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Report is a point-in-time disclosure snapshot for one reporting year.
// ContentSnapshot freezes the payload at generation time so later
// recomputes never change a report a customer already shared.
type Report struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID           uuid.UUID       `gorm:"type:uuid;not null;index" json:"company_id"`
	CreatedByUserID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"created_by_user_id"`
	Title               string          `gorm:"not null" json:"title"`
	CompanyNameSnapshot *string         `json:"company_name_snapshot,omitempty"`
	ReportingYear       int             `gorm:"not null" json:"reporting_year"`
	TotalKgCO2e         decimal.Decimal `gorm:"column:total_kg_co2e;type:numeric(18,6);not null" json:"total_kg_co2e"`
	Status              string          `gorm:"not null" json:"status"`
	ShareableToken      *string         `gorm:"uniqueIndex" json:"-"`
	ChartObjectKey      *string         `gorm:"column:chart_object_key" json:"chart_object_key,omitempty"`
	ContentSnapshot     datatypes.JSON  `gorm:"type:jsonb" json:"content_snapshot,omitempty"`
	GeneratedAt         *time.Time      `json:"generated_at,omitempty"`
	PublishedAt         *time.Time      `json:"published_at,omitempty"`
	CreatedAt           time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"not null" json:"updated_at"`
	DeletedAt           gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (Report) TableName() string { return "report" }

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)
