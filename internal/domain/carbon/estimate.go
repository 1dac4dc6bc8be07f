package carbon

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EmissionEstimate is the derived emission for one activity record:
// activity x factor = emissions, with both inputs copied onto the row so
// the figure stays auditable after factors change. At most one estimate
// exists per activity record; recomputation replaces it rather than
// stacking a second row. DataQuality, Assumptions, and ConfidenceScore
// come from the activity record, never from the factor.
type EmissionEstimate struct {
	ID               uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID        uuid.UUID        `gorm:"type:uuid;not null;index" json:"company_id"`
	ActivityRecordID uuid.UUID        `gorm:"type:uuid;not null;index" json:"activity_record_id"`
	EmissionFactorID uuid.UUID        `gorm:"type:uuid;not null;index" json:"emission_factor_id"`
	Scope            int              `gorm:"not null" json:"scope"`
	Scope3Category   *string          `gorm:"column:scope_3_category" json:"scope_3_category,omitempty"`
	ActivityQuantity decimal.Decimal  `gorm:"type:numeric(18,6);not null" json:"activity_quantity"`
	FactorValue      decimal.Decimal  `gorm:"type:numeric(18,6);not null" json:"factor_value"`
	EmissionsKgCO2e  decimal.Decimal  `gorm:"column:emissions_kg_co2e;type:numeric(18,6);not null" json:"emissions_kg_co2e"`
	DataQuality      string           `gorm:"not null" json:"data_quality"`
	Assumptions      *string          `json:"assumptions,omitempty"`
	ConfidenceScore  *decimal.Decimal `gorm:"type:numeric(5,2)" json:"confidence_score,omitempty"`
	PeriodStart      time.Time        `gorm:"type:date;not null;index" json:"period_start"`
	PeriodEnd        time.Time        `gorm:"type:date;not null;index" json:"period_end"`
	CreatedAt        time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"not null" json:"updated_at"`
}

func (EmissionEstimate) TableName() string { return "emission_estimate" }
