package carbon

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EmissionsSummary is one pre-aggregated bucket of estimates for a
// company and reporting year, keyed by (PeriodType, PeriodValue, Scope,
// Scope3Category). It is a materialized view, not a ledger: the
// aggregator deletes and rebuilds every bucket of a (company, year)
// pair on each refresh, so rows are never edited in place.
type EmissionsSummary struct {
	ID                 uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID          uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:uq_summary_period_scope" json:"company_id"`
	ReportingYear      int              `gorm:"not null;uniqueIndex:uq_summary_period_scope" json:"reporting_year"`
	PeriodType         string           `gorm:"not null;uniqueIndex:uq_summary_period_scope" json:"period_type"`
	PeriodValue        string           `gorm:"not null;uniqueIndex:uq_summary_period_scope" json:"period_value"`
	Scope              int              `gorm:"not null;uniqueIndex:uq_summary_period_scope" json:"scope"`
	Scope3Category     *string          `gorm:"column:scope_3_category;uniqueIndex:uq_summary_period_scope" json:"scope_3_category,omitempty"`
	TotalKgCO2e        decimal.Decimal  `gorm:"column:total_kg_co2e;type:numeric(18,6);not null" json:"total_kg_co2e"`
	MeasuredKgCO2e     decimal.Decimal  `gorm:"column:measured_kg_co2e;type:numeric(18,6);not null" json:"measured_kg_co2e"`
	EstimatedKgCO2e    decimal.Decimal  `gorm:"column:estimated_kg_co2e;type:numeric(18,6);not null" json:"estimated_kg_co2e"`
	ManualKgCO2e       decimal.Decimal  `gorm:"column:manual_kg_co2e;type:numeric(18,6);not null" json:"manual_kg_co2e"`
	ConfidenceScoreAvg *decimal.Decimal `gorm:"type:numeric(5,2)" json:"confidence_score_avg,omitempty"`
	CreatedAt          time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time        `gorm:"not null" json:"updated_at"`
}

func (EmissionsSummary) TableName() string { return "emissions_summary" }

const (
	PeriodAnnual  = "annual"
	PeriodMonthly = "monthly"
)
