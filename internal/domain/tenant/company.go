package tenant

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Company is a tenant. Every activity record, estimate, and summary hangs
// off exactly one company, and the engine serializes work per company.
type Company struct {
	ID                    uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name                  string         `gorm:"not null" json:"name"`
	Industry              *string        `json:"industry,omitempty"`
	EmployeeCount         *int           `json:"employee_count,omitempty"`
	HQLocation            *string        `json:"hq_location,omitempty"`
	ReportingYear         int            `gorm:"not null" json:"reporting_year"`
	EmailNotifications    bool           `gorm:"not null;default:true" json:"email_notifications"`
	MonthlySummaryReports bool           `gorm:"not null;default:true" json:"monthly_summary_reports"`
	UnitSystem            string         `gorm:"not null;default:'metric_tco2e'" json:"unit_system"`
	OnboardingState       datatypes.JSON `gorm:"type:jsonb" json:"onboarding_state,omitempty"`
	Plan                  string         `gorm:"not null;default:'demo'" json:"plan"`
	BillingStatus         string         `gorm:"not null;default:'inactive'" json:"billing_status"`
	SubscriptionStatus    string         `gorm:"not null;default:'inactive'" json:"subscription_status"`
	StripeCustomerID      *string        `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID  *string        `json:"stripe_subscription_id,omitempty"`
	CurrentPeriodEnd      *time.Time     `json:"current_period_end,omitempty"`
	CreatedAt             time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt             time.Time      `gorm:"not null" json:"updated_at"`
}

func (Company) TableName() string { return "company" }

const (
	PlanDemo = "demo"
	PlanPaid = "paid"
)
