package carbon

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ActivityRecord is one observation of business activity over a period:
// "we did Quantity Unit of ActivityType between PeriodStart and
// PeriodEnd". Records are immutable once created; corrections arrive as
// new records, and the engine derives everything else from them.
type ActivityRecord struct {
	ID                     uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID              uuid.UUID        `gorm:"type:uuid;not null;index" json:"company_id"`
	DataSourceConnectionID *uuid.UUID       `gorm:"type:uuid;index" json:"data_source_connection_id,omitempty"`
	Scope                  int              `gorm:"not null" json:"scope"`
	Scope3Category         *string          `gorm:"column:scope_3_category" json:"scope_3_category,omitempty"`
	ActivityType           string           `gorm:"not null" json:"activity_type"`
	Quantity               decimal.Decimal  `gorm:"type:numeric(18,6);not null" json:"quantity"`
	Unit                   string           `gorm:"not null" json:"unit"`
	PeriodStart            time.Time        `gorm:"type:date;not null;index" json:"period_start"`
	PeriodEnd              time.Time        `gorm:"type:date;not null;index" json:"period_end"`
	DataQuality            string           `gorm:"not null" json:"data_quality"`
	Assumptions            *string          `json:"assumptions,omitempty"`
	ConfidenceScore        *decimal.Decimal `gorm:"type:numeric(5,2)" json:"confidence_score,omitempty"`
	Metadata               datatypes.JSON   `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	CreatedAt              time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt              time.Time        `gorm:"not null" json:"updated_at"`
}

func (ActivityRecord) TableName() string { return "activity_record" }

// Data quality tiers, ordered from strongest to weakest provenance.
const (
	QualityMeasured  = "measured"
	QualityEstimated = "estimated"
	QualityManual    = "manual"
)

const (
	Scope1 = 1
	Scope2 = 2
	Scope3 = 3
)

// Scope3Categories are the scope-3 sub-categories the engine supports.
var Scope3Categories = []string{
	"cloud",
	"travel",
	"remote_work",
	"commuting",
	"purchased_services",
}
