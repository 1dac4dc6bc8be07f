package emissions

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	types "github.com/verdelo/carbonledger-backend/internal/domain"
)

func TestCalculateRoundsHalfEvenToSixPlaces(t *testing.T) {
	cases := []struct {
		name     string
		quantity string
		factor   string
		want     string
	}{
		{"cloud compute benchmark", "800", "0.00005", "0.040000"},
		{"exact product keeps scale", "10000.0", "0.00005", "0.500000"},
		{"tie with even digit stays", "0.5", "0.000005", "0.000002"},
		{"tie with odd digit rounds up", "1.5", "0.000005", "0.000008"},
		{"above tie rounds up", "0.76", "0.000005", "0.000004"},
		{"zero quantity", "0", "0.00005", "0.000000"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			quantity := decimal.RequireFromString(tc.quantity)
			factor := decimal.RequireFromString(tc.factor)

			got := calculate(quantity, factor)
			if got.StringFixed(6) != tc.want {
				t.Fatalf("calculate(%s, %s) = %s, want %s", tc.quantity, tc.factor, got.StringFixed(6), tc.want)
			}
		})
	}
}

func TestBuildEstimateCopiesProvenanceFromRecord(t *testing.T) {
	assumptions := "metered by the provider"
	confidence := decimal.RequireFromString("95.0")
	category := "cloud"

	record := &types.ActivityRecord{
		ID:              uuid.New(),
		CompanyID:       uuid.New(),
		Scope:           3,
		Scope3Category:  &category,
		ActivityType:    "cloud_compute_hours",
		Quantity:        decimal.RequireFromString("800"),
		Unit:            "hours",
		PeriodStart:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:       time.Date(2025, 1, 28, 0, 0, 0, 0, time.UTC),
		DataQuality:     types.QualityEstimated,
		Assumptions:     &assumptions,
		ConfidenceScore: &confidence,
	}
	factor := &types.EmissionFactor{
		ID:           uuid.New(),
		Name:         "Cloud Compute (generic)",
		ActivityType: "cloud_compute_hours",
		FactorValue:  decimal.RequireFromString("0.00005"),
		Unit:         "hours",
		Scope:        3,
	}

	est := buildEstimate(record, factor)

	if est.CompanyID != record.CompanyID {
		t.Fatalf("CompanyID = %s, want %s", est.CompanyID, record.CompanyID)
	}
	if est.ActivityRecordID != record.ID {
		t.Fatalf("ActivityRecordID = %s, want %s", est.ActivityRecordID, record.ID)
	}
	if est.EmissionFactorID != factor.ID {
		t.Fatalf("EmissionFactorID = %s, want %s", est.EmissionFactorID, factor.ID)
	}
	if est.EmissionsKgCO2e.StringFixed(6) != "0.040000" {
		t.Fatalf("EmissionsKgCO2e = %s, want 0.040000", est.EmissionsKgCO2e.StringFixed(6))
	}
	if !est.ActivityQuantity.Equal(record.Quantity) {
		t.Fatalf("ActivityQuantity = %s, want %s", est.ActivityQuantity, record.Quantity)
	}
	if !est.FactorValue.Equal(factor.FactorValue) {
		t.Fatalf("FactorValue = %s, want %s", est.FactorValue, factor.FactorValue)
	}

	// Provenance comes from the record, not the factor.
	if est.DataQuality != types.QualityEstimated {
		t.Fatalf("DataQuality = %s, want %s", est.DataQuality, types.QualityEstimated)
	}
	if est.Assumptions == nil || *est.Assumptions != assumptions {
		t.Fatalf("Assumptions = %v, want %q", est.Assumptions, assumptions)
	}
	if est.ConfidenceScore == nil || !est.ConfidenceScore.Equal(confidence) {
		t.Fatalf("ConfidenceScore = %v, want %s", est.ConfidenceScore, confidence)
	}
	if est.Scope3Category == nil || *est.Scope3Category != category {
		t.Fatalf("Scope3Category = %v, want %q", est.Scope3Category, category)
	}
	if !est.PeriodStart.Equal(record.PeriodStart) || !est.PeriodEnd.Equal(record.PeriodEnd) {
		t.Fatalf("period = %s..%s, want %s..%s", est.PeriodStart, est.PeriodEnd, record.PeriodStart, record.PeriodEnd)
	}
}
