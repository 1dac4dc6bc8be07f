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
)

func testEstimate(companyID uuid.UUID, mutate func(*types.EmissionEstimate)) *types.EmissionEstimate {
	est := &types.EmissionEstimate{
		ID:               uuid.New(),
		CompanyID:        companyID,
		ActivityRecordID: uuid.New(),
		EmissionFactorID: uuid.New(),
		Scope:            3,
		Scope3Category:   strPtr("cloud"),
		ActivityQuantity: decimal.RequireFromString("800"),
		FactorValue:      decimal.RequireFromString("0.00005"),
		EmissionsKgCO2e:  decimal.RequireFromString("0.040000"),
		DataQuality:      types.QualityEstimated,
		PeriodStart:      date(2025, time.January, 1),
		PeriodEnd:        date(2025, time.January, 31),
	}
	if mutate != nil {
		mutate(est)
	}
	return est
}

func findRow(rows []*types.EmissionsSummary, periodType, periodValue string, scope int, category *string) *types.EmissionsSummary {
	for _, row := range rows {
		if row.PeriodType != periodType || row.PeriodValue != periodValue || row.Scope != scope {
			continue
		}
		if (row.Scope3Category == nil) != (category == nil) {
			continue
		}
		if category != nil && *row.Scope3Category != *category {
			continue
		}
		return row
	}
	return nil
}

func TestBuildSummaryRowsAnnualAndMonthlyBuckets(t *testing.T) {
	companyID := uuid.New()
	estimates := []*types.EmissionEstimate{
		testEstimate(companyID, func(e *types.EmissionEstimate) {
			e.EmissionsKgCO2e = decimal.RequireFromString("40")
			e.PeriodStart = date(2025, time.January, 1)
			e.PeriodEnd = date(2025, time.January, 31)
		}),
		testEstimate(companyID, func(e *types.EmissionEstimate) {
			e.EmissionsKgCO2e = decimal.RequireFromString("45")
			e.PeriodStart = date(2025, time.February, 1)
			e.PeriodEnd = date(2025, time.February, 28)
		}),
	}

	rows := buildSummaryRows(companyID, 2025, estimates)

	annual := findRow(rows, types.PeriodAnnual, "2025", 3, strPtr("cloud"))
	if annual == nil {
		t.Fatalf("missing annual bucket")
	}
	if annual.TotalKgCO2e.StringFixed(6) != "85.000000" {
		t.Fatalf("annual total = %s, want 85.000000", annual.TotalKgCO2e.StringFixed(6))
	}

	jan := findRow(rows, types.PeriodMonthly, "2025-01", 3, strPtr("cloud"))
	feb := findRow(rows, types.PeriodMonthly, "2025-02", 3, strPtr("cloud"))
	if jan == nil || feb == nil {
		t.Fatalf("missing monthly buckets")
	}
	if jan.TotalKgCO2e.StringFixed(6) != "40.000000" {
		t.Fatalf("january total = %s, want 40.000000", jan.TotalKgCO2e.StringFixed(6))
	}
	if feb.TotalKgCO2e.StringFixed(6) != "45.000000" {
		t.Fatalf("february total = %s, want 45.000000", feb.TotalKgCO2e.StringFixed(6))
	}

	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3 (one annual, two monthly)", len(rows))
	}
}

func TestBuildSummaryRowsMultiMonthPeriodGoesToStartMonth(t *testing.T) {
	companyID := uuid.New()
	estimates := []*types.EmissionEstimate{
		testEstimate(companyID, func(e *types.EmissionEstimate) {
			e.PeriodStart = date(2025, time.January, 1)
			e.PeriodEnd = date(2025, time.December, 31)
		}),
	}

	rows := buildSummaryRows(companyID, 2025, estimates)

	if row := findRow(rows, types.PeriodMonthly, "2025-01", 3, strPtr("cloud")); row == nil {
		t.Fatalf("year-long estimate should land in its start month")
	}
	for _, row := range rows {
		if row.PeriodType == types.PeriodMonthly && row.PeriodValue != "2025-01" {
			t.Fatalf("unexpected monthly bucket %s, emissions must not be pro-rated", row.PeriodValue)
		}
	}
}

func TestBuildSummaryRowsQualityPartitionsSumToTotal(t *testing.T) {
	companyID := uuid.New()
	estimates := []*types.EmissionEstimate{
		testEstimate(companyID, func(e *types.EmissionEstimate) {
			e.EmissionsKgCO2e = decimal.RequireFromString("10.5")
			e.DataQuality = types.QualityMeasured
		}),
		testEstimate(companyID, func(e *types.EmissionEstimate) {
			e.EmissionsKgCO2e = decimal.RequireFromString("20.25")
			e.DataQuality = types.QualityEstimated
		}),
		testEstimate(companyID, func(e *types.EmissionEstimate) {
			e.EmissionsKgCO2e = decimal.RequireFromString("5.25")
			e.DataQuality = types.QualityManual
		}),
	}

	rows := buildSummaryRows(companyID, 2025, estimates)

	annual := findRow(rows, types.PeriodAnnual, "2025", 3, strPtr("cloud"))
	if annual == nil {
		t.Fatalf("missing annual bucket")
	}
	if annual.MeasuredKgCO2e.StringFixed(6) != "10.500000" ||
		annual.EstimatedKgCO2e.StringFixed(6) != "20.250000" ||
		annual.ManualKgCO2e.StringFixed(6) != "5.250000" {
		t.Fatalf("partitions = %s/%s/%s", annual.MeasuredKgCO2e, annual.EstimatedKgCO2e, annual.ManualKgCO2e)
	}

	partitionSum := annual.MeasuredKgCO2e.Add(annual.EstimatedKgCO2e).Add(annual.ManualKgCO2e)
	if !partitionSum.Equal(annual.TotalKgCO2e) {
		t.Fatalf("partitions sum to %s, total is %s", partitionSum, annual.TotalKgCO2e)
	}
}

func TestBuildSummaryRowsConfidenceAverage(t *testing.T) {
	companyID := uuid.New()
	conf90 := decimal.RequireFromString("90")
	conf80 := decimal.RequireFromString("80")
	estimates := []*types.EmissionEstimate{
		testEstimate(companyID, func(e *types.EmissionEstimate) { e.ConfidenceScore = &conf90 }),
		testEstimate(companyID, func(e *types.EmissionEstimate) { e.ConfidenceScore = &conf80 }),
		testEstimate(companyID, func(e *types.EmissionEstimate) { e.ConfidenceScore = nil }),
	}

	rows := buildSummaryRows(companyID, 2025, estimates)

	annual := findRow(rows, types.PeriodAnnual, "2025", 3, strPtr("cloud"))
	if annual == nil {
		t.Fatalf("missing annual bucket")
	}
	if annual.ConfidenceScoreAvg == nil {
		t.Fatalf("ConfidenceScoreAvg is nil, want 85.00")
	}
	if annual.ConfidenceScoreAvg.StringFixed(2) != "85.00" {
		t.Fatalf("ConfidenceScoreAvg = %s, want 85.00", annual.ConfidenceScoreAvg.StringFixed(2))
	}
}

func TestBuildSummaryRowsNoConfidenceYieldsNil(t *testing.T) {
	companyID := uuid.New()
	estimates := []*types.EmissionEstimate{
		testEstimate(companyID, func(e *types.EmissionEstimate) { e.ConfidenceScore = nil }),
	}

	rows := buildSummaryRows(companyID, 2025, estimates)

	annual := findRow(rows, types.PeriodAnnual, "2025", 3, strPtr("cloud"))
	if annual == nil {
		t.Fatalf("missing annual bucket")
	}
	if annual.ConfidenceScoreAvg != nil {
		t.Fatalf("ConfidenceScoreAvg = %s, want nil", annual.ConfidenceScoreAvg)
	}
}

func TestBuildSummaryRowsSeparatesScopesAndCategories(t *testing.T) {
	companyID := uuid.New()
	estimates := []*types.EmissionEstimate{
		testEstimate(companyID, nil),
		testEstimate(companyID, func(e *types.EmissionEstimate) {
			e.Scope3Category = strPtr("travel")
		}),
		testEstimate(companyID, func(e *types.EmissionEstimate) {
			e.Scope = 2
			e.Scope3Category = nil
		}),
	}

	rows := buildSummaryRows(companyID, 2025, estimates)

	if findRow(rows, types.PeriodAnnual, "2025", 3, strPtr("cloud")) == nil {
		t.Fatalf("missing scope 3 cloud bucket")
	}
	if findRow(rows, types.PeriodAnnual, "2025", 3, strPtr("travel")) == nil {
		t.Fatalf("missing scope 3 travel bucket")
	}
	if findRow(rows, types.PeriodAnnual, "2025", 2, nil) == nil {
		t.Fatalf("missing scope 2 bucket")
	}
}

func TestRefreshSummariesRebuildsFromScratch(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	logg := testutil.Logger(t)
	ctx := context.Background()

	estimateRepo := repos.NewEstimateRepo(db, logg)
	summaryRepo := repos.NewSummaryRepo(db, logg)
	aggregator := NewAggregator(estimateRepo, summaryRepo, logg)

	companyID := uuid.New()
	est := testEstimate(companyID, nil)
	if _, err := estimateRepo.Create(ctx, tx, []*types.EmissionEstimate{est}); err != nil {
		t.Fatalf("Create estimate: %v", err)
	}

	rows, err := aggregator.RefreshSummaries(ctx, tx, companyID, 2025)
	if err != nil {
		t.Fatalf("RefreshSummaries: %v", err)
	}
	if rows != 2 {
		t.Fatalf("rows = %d, want 2 (annual + monthly)", rows)
	}

	// Delete the estimate and refresh again: the stale buckets must go.
	if _, err := estimateRepo.DeleteByActivityRecordIDs(ctx, tx, []uuid.UUID{est.ActivityRecordID}); err != nil {
		t.Fatalf("Delete estimate: %v", err)
	}
	rows, err = aggregator.RefreshSummaries(ctx, tx, companyID, 2025)
	if err != nil {
		t.Fatalf("RefreshSummaries after delete: %v", err)
	}
	if rows != 0 {
		t.Fatalf("rows = %d, want 0 after estimates removed", rows)
	}

	remaining, err := summaryRepo.ListByCompanyYear(ctx, tx, companyID, 2025)
	if err != nil {
		t.Fatalf("ListByCompanyYear: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("stale summary rows survived the rebuild: %d", len(remaining))
	}
}

func TestRefreshSummariesExcludesEstimatesSpanningYears(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	logg := testutil.Logger(t)
	ctx := context.Background()

	estimateRepo := repos.NewEstimateRepo(db, logg)
	summaryRepo := repos.NewSummaryRepo(db, logg)
	aggregator := NewAggregator(estimateRepo, summaryRepo, logg)

	companyID := uuid.New()
	spanning := testEstimate(companyID, func(e *types.EmissionEstimate) {
		e.PeriodStart = date(2024, time.December, 1)
		e.PeriodEnd = date(2025, time.January, 31)
	})
	inside := testEstimate(companyID, nil)
	if _, err := estimateRepo.Create(ctx, tx, []*types.EmissionEstimate{spanning, inside}); err != nil {
		t.Fatalf("Create estimates: %v", err)
	}

	if _, err := aggregator.RefreshSummaries(ctx, tx, companyID, 2025); err != nil {
		t.Fatalf("RefreshSummaries: %v", err)
	}

	rows, err := summaryRepo.ListByCompanyYearAndType(ctx, tx, companyID, 2025, types.PeriodAnnual)
	if err != nil {
		t.Fatalf("ListByCompanyYearAndType: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("annual rows = %d, want 1", len(rows))
	}
	if rows[0].TotalKgCO2e.StringFixed(6) != "0.040000" {
		t.Fatalf("total = %s, want only the inside-year estimate", rows[0].TotalKgCO2e.StringFixed(6))
	}
}
