package emissions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/verdelo/carbonledger-backend/internal/data/repos"
	"github.com/verdelo/carbonledger-backend/internal/data/repos/testutil"
	types "github.com/verdelo/carbonledger-backend/internal/domain"
	"gorm.io/gorm"
)

// Engine tests commit real transactions, so they use a signature no
// other test shares and clean up after themselves.
const engineTestActivityType = "fleet_fuel_liters"

func newEngine(t *testing.T, db *gorm.DB) *Engine {
	t.Helper()
	logg := testutil.Logger(t)

	activities := repos.NewActivityRepo(db, logg)
	factors := repos.NewFactorRepo(db, logg)
	estimates := repos.NewEstimateRepo(db, logg)
	summaries := repos.NewSummaryRepo(db, logg)

	resolver := NewResolver(factors, logg)
	lifecycle := NewLifecycle(activities, estimates, resolver, logg)
	aggregator := NewAggregator(estimates, summaries, logg)

	return NewEngine(db, lifecycle, aggregator, summaries, logg)
}

func cleanupEngineRows(t *testing.T, db *gorm.DB, companyID uuid.UUID, factorIDs []uuid.UUID) {
	t.Helper()
	t.Cleanup(func() {
		db.Where("company_id = ?", companyID).Delete(&types.EmissionsSummary{})
		db.Where("company_id = ?", companyID).Delete(&types.EmissionEstimate{})
		db.Where("company_id = ?", companyID).Delete(&types.ActivityRecord{})
		if len(factorIDs) > 0 {
			db.Where("id IN ?", factorIDs).Delete(&types.EmissionFactor{})
		}
	})
}

func TestEngineRecomputeEndToEnd(t *testing.T) {
	db := testutil.DB(t)
	logg := testutil.Logger(t)
	ctx := context.Background()
	engine := newEngine(t, db)

	activities := repos.NewActivityRepo(db, logg)
	factors := repos.NewFactorRepo(db, logg)

	companyID := uuid.New()

	factor := &types.EmissionFactor{
		ID:           uuid.New(),
		Name:         "Fleet Fuel (diesel)",
		ActivityType: engineTestActivityType,
		FactorValue:  decimal.RequireFromString("2.68"),
		Unit:         "liters",
		Scope:        1,
	}
	if _, err := factors.Create(ctx, nil, []*types.EmissionFactor{factor}); err != nil {
		t.Fatalf("Create factor: %v", err)
	}
	cleanupEngineRows(t, db, companyID, []uuid.UUID{factor.ID})

	newRecord := func(quantity string, start, end time.Time) *types.ActivityRecord {
		return &types.ActivityRecord{
			ID:           uuid.New(),
			CompanyID:    companyID,
			Scope:        1,
			ActivityType: engineTestActivityType,
			Quantity:     decimal.RequireFromString(quantity),
			Unit:         "liters",
			PeriodStart:  start,
			PeriodEnd:    end,
			DataQuality:  types.QualityManual,
		}
	}
	records := []*types.ActivityRecord{
		newRecord("100", date(2025, time.January, 1), date(2025, time.January, 31)),
		newRecord("50", date(2025, time.February, 1), date(2025, time.February, 28)),
		newRecord("75", date(2024, time.November, 1), date(2024, time.November, 30)),
	}
	if _, err := activities.Create(ctx, nil, records); err != nil {
		t.Fatalf("Create activities: %v", err)
	}

	result, err := engine.Recompute(ctx, companyID, 2025, nil, nil, ModeIncremental)
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if result.EstimatesCreated != 3 {
		t.Fatalf("EstimatesCreated = %d, want 3", result.EstimatesCreated)
	}
	if len(result.YearsRefreshed) != 2 || result.YearsRefreshed[0] != 2024 || result.YearsRefreshed[1] != 2025 {
		t.Fatalf("YearsRefreshed = %v, want [2024 2025]", result.YearsRefreshed)
	}

	annual, err := engine.AnnualTotals(ctx, companyID, 2025)
	if err != nil {
		t.Fatalf("AnnualTotals: %v", err)
	}
	if len(annual) != 1 {
		t.Fatalf("annual rows = %d, want 1", len(annual))
	}
	// 100*2.68 + 50*2.68 = 402
	if annual[0].TotalKgCO2e.StringFixed(6) != "402.000000" {
		t.Fatalf("2025 total = %s, want 402.000000", annual[0].TotalKgCO2e.StringFixed(6))
	}

	monthly, err := engine.MonthlyBreakdown(ctx, companyID, 2025)
	if err != nil {
		t.Fatalf("MonthlyBreakdown: %v", err)
	}
	if len(monthly) != 2 {
		t.Fatalf("monthly rows = %d, want 2", len(monthly))
	}
	if monthly[0].PeriodValue != "2025-01" || monthly[1].PeriodValue != "2025-02" {
		t.Fatalf("monthly order = %s, %s", monthly[0].PeriodValue, monthly[1].PeriodValue)
	}

	prevYear, err := engine.AnnualTotals(ctx, companyID, 2024)
	if err != nil {
		t.Fatalf("AnnualTotals 2024: %v", err)
	}
	if len(prevYear) != 1 || prevYear[0].TotalKgCO2e.StringFixed(6) != "201.000000" {
		t.Fatalf("2024 totals wrong: %+v", prevYear)
	}
}

func TestEngineRecomputeIncrementalRerunIsNoOp(t *testing.T) {
	db := testutil.DB(t)
	logg := testutil.Logger(t)
	ctx := context.Background()
	engine := newEngine(t, db)

	activities := repos.NewActivityRepo(db, logg)
	factors := repos.NewFactorRepo(db, logg)

	companyID := uuid.New()
	factor := &types.EmissionFactor{
		ID:           uuid.New(),
		Name:         "Fleet Fuel (diesel)",
		ActivityType: engineTestActivityType,
		FactorValue:  decimal.RequireFromString("2.68"),
		Unit:         "liters",
		Scope:        1,
	}
	if _, err := factors.Create(ctx, nil, []*types.EmissionFactor{factor}); err != nil {
		t.Fatalf("Create factor: %v", err)
	}
	cleanupEngineRows(t, db, companyID, []uuid.UUID{factor.ID})

	record := &types.ActivityRecord{
		ID:           uuid.New(),
		CompanyID:    companyID,
		Scope:        1,
		ActivityType: engineTestActivityType,
		Quantity:     decimal.RequireFromString("10"),
		Unit:         "liters",
		PeriodStart:  date(2025, time.May, 1),
		PeriodEnd:    date(2025, time.May, 31),
		DataQuality:  types.QualityManual,
	}
	if _, err := activities.Create(ctx, nil, []*types.ActivityRecord{record}); err != nil {
		t.Fatalf("Create activity: %v", err)
	}

	first, err := engine.Recompute(ctx, companyID, 2025, nil, nil, ModeIncremental)
	if err != nil {
		t.Fatalf("first Recompute: %v", err)
	}
	if first.EstimatesCreated != 1 {
		t.Fatalf("first EstimatesCreated = %d, want 1", first.EstimatesCreated)
	}

	second, err := engine.Recompute(ctx, companyID, 2025, nil, nil, ModeIncremental)
	if err != nil {
		t.Fatalf("second Recompute: %v", err)
	}
	if second.EstimatesCreated != 0 {
		t.Fatalf("second EstimatesCreated = %d, want 0", second.EstimatesCreated)
	}
	if second.SummariesRefreshed == 0 {
		t.Fatalf("rerun must still refresh summaries")
	}
}

func TestEngineRecomputeReplaceKeepsTotalsStable(t *testing.T) {
	db := testutil.DB(t)
	logg := testutil.Logger(t)
	ctx := context.Background()
	engine := newEngine(t, db)

	activities := repos.NewActivityRepo(db, logg)
	factors := repos.NewFactorRepo(db, logg)

	companyID := uuid.New()
	factor := &types.EmissionFactor{
		ID:           uuid.New(),
		Name:         "Fleet Fuel (diesel)",
		ActivityType: engineTestActivityType,
		FactorValue:  decimal.RequireFromString("2.68"),
		Unit:         "liters",
		Scope:        1,
	}
	if _, err := factors.Create(ctx, nil, []*types.EmissionFactor{factor}); err != nil {
		t.Fatalf("Create factor: %v", err)
	}
	cleanupEngineRows(t, db, companyID, []uuid.UUID{factor.ID})

	record := &types.ActivityRecord{
		ID:           uuid.New(),
		CompanyID:    companyID,
		Scope:        1,
		ActivityType: engineTestActivityType,
		Quantity:     decimal.RequireFromString("100"),
		Unit:         "liters",
		PeriodStart:  date(2025, time.July, 1),
		PeriodEnd:    date(2025, time.July, 31),
		DataQuality:  types.QualityManual,
	}
	if _, err := activities.Create(ctx, nil, []*types.ActivityRecord{record}); err != nil {
		t.Fatalf("Create activity: %v", err)
	}

	first, err := engine.Recompute(ctx, companyID, 2025, nil, nil, ModeReplace)
	if err != nil {
		t.Fatalf("first Recompute: %v", err)
	}
	second, err := engine.Recompute(ctx, companyID, 2025, nil, nil, ModeReplace)
	if err != nil {
		t.Fatalf("second Recompute: %v", err)
	}
	if first.EstimatesCreated != second.EstimatesCreated {
		t.Fatalf("replace runs created different counts: %d vs %d", first.EstimatesCreated, second.EstimatesCreated)
	}

	annual, err := engine.AnnualTotals(ctx, companyID, 2025)
	if err != nil {
		t.Fatalf("AnnualTotals: %v", err)
	}
	if len(annual) != 1 || annual[0].TotalKgCO2e.StringFixed(6) != "268.000000" {
		t.Fatalf("totals after double replace: %+v", annual)
	}
}
