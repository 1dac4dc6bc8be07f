package carbon

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EmissionFactor converts activity quantities into kg CO2e. A factor
// matches an activity on (ActivityType, Unit, Scope, Scope3Category) and
// applies while its validity window overlaps the activity's period; a
// nil bound is open-ended on that side. Reference data only, never
// derived from tenant rows.
type EmissionFactor struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name           string          `gorm:"not null" json:"name"`
	ActivityType   string          `gorm:"not null;index:idx_factor_signature" json:"activity_type"`
	FactorValue    decimal.Decimal `gorm:"type:numeric(18,6);not null" json:"factor_value"`
	Unit           string          `gorm:"not null;index:idx_factor_signature" json:"unit"`
	Scope          int             `gorm:"not null;index:idx_factor_signature" json:"scope"`
	Scope3Category *string         `gorm:"column:scope_3_category;index:idx_factor_signature" json:"scope_3_category,omitempty"`
	SourceCitation *string         `json:"source_citation,omitempty"`
	Region         *string         `json:"region,omitempty"`
	ValidFrom      *time.Time      `gorm:"type:date" json:"valid_from,omitempty"`
	ValidTo        *time.Time      `gorm:"type:date" json:"valid_to,omitempty"`
	CreatedAt      time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null" json:"updated_at"`
}

func (EmissionFactor) TableName() string { return "emission_factor" }
