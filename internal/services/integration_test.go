package services

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	types "github.com/verdelo/carbonledger-backend/internal/domain"
	apperrors "github.com/verdelo/carbonledger-backend/internal/pkg/errors"
)

func validManualInput() ManualActivityInput {
	return ManualActivityInput{
		Scope:        1,
		ActivityType: "fleet_fuel_liters",
		Quantity:     decimal.NewFromInt(250),
		Unit:         "liters",
		PeriodStart:  "2025-02-01",
		PeriodEnd:    "2025-02-28",
	}
}

func TestBuildManualActivityRejectsInvalidInput(t *testing.T) {
	svc := &integrationService{}
	companyID := uuid.New()

	tests := []struct {
		name   string
		mutate func(*ManualActivityInput)
	}{
		{"scope out of range", func(in *ManualActivityInput) { in.Scope = 4 }},
		{"missing activity_type", func(in *ManualActivityInput) { in.ActivityType = " " }},
		{"missing unit", func(in *ManualActivityInput) { in.Unit = "" }},
		{"negative quantity", func(in *ManualActivityInput) { in.Quantity = decimal.NewFromInt(-800) }},
		{"bad period_start", func(in *ManualActivityInput) { in.PeriodStart = "02/01/2025" }},
		{"bad period_end", func(in *ManualActivityInput) { in.PeriodEnd = "" }},
		{"reversed period", func(in *ManualActivityInput) { in.PeriodStart, in.PeriodEnd = in.PeriodEnd, in.PeriodStart }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			input := validManualInput()
			tc.mutate(&input)

			_, err := svc.buildManualActivity(companyID, input)
			if !errors.Is(err, apperrors.ErrInvalidArgument) {
				t.Fatalf("err = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestBuildManualActivityDefaultsQualityToManual(t *testing.T) {
	svc := &integrationService{}
	companyID := uuid.New()

	record, err := svc.buildManualActivity(companyID, validManualInput())
	if err != nil {
		t.Fatalf("buildManualActivity: %v", err)
	}
	if record.CompanyID != companyID {
		t.Errorf("CompanyID = %s, want %s", record.CompanyID, companyID)
	}
	if record.DataQuality != types.QualityManual {
		t.Errorf("DataQuality = %q, want %q", record.DataQuality, types.QualityManual)
	}
	if record.Quantity.String() != "250" {
		t.Errorf("Quantity = %s, want 250", record.Quantity)
	}
}
