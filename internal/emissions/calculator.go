package emissions

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	types "github.com/verdelo/carbonledger-backend/internal/domain"
)

// emissionsScale is the decimal precision emissions figures are stored
// at. Rounding happens exactly once, here, with banker's rounding.
const emissionsScale = 6

// calculate computes quantity x factor value rounded half-even to six
// decimal places. Inputs stay exact decimals end to end.
func calculate(quantity, factorValue decimal.Decimal) decimal.Decimal {
	return quantity.Mul(factorValue).RoundBank(emissionsScale)
}

// buildEstimate combines one activity record with its resolved factor.
// Provenance fields (data quality, assumptions, confidence, period)
// come from the record, never from the factor, so the estimate always
// reflects the activity's own declared quality.
func buildEstimate(record *types.ActivityRecord, factor *types.EmissionFactor) *types.EmissionEstimate {
	return &types.EmissionEstimate{
		ID:               uuid.New(),
		CompanyID:        record.CompanyID,
		ActivityRecordID: record.ID,
		EmissionFactorID: factor.ID,
		Scope:            record.Scope,
		Scope3Category:   record.Scope3Category,
		ActivityQuantity: record.Quantity,
		FactorValue:      factor.FactorValue,
		EmissionsKgCO2e:  calculate(record.Quantity, factor.FactorValue),
		DataQuality:      record.DataQuality,
		Assumptions:      record.Assumptions,
		ConfidenceScore:  record.ConfidenceScore,
		PeriodStart:      record.PeriodStart,
		PeriodEnd:        record.PeriodEnd,
	}
}
