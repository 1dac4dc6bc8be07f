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

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func datePtr(year int, month time.Month, day int) *time.Time {
	d := date(year, month, day)
	return &d
}

func strPtr(s string) *string { return &s }

func testFactor(mutate func(*types.EmissionFactor)) *types.EmissionFactor {
	f := &types.EmissionFactor{
		ID:           uuid.New(),
		Name:         "Cloud Compute (generic)",
		ActivityType: "cloud_compute_hours",
		FactorValue:  decimal.RequireFromString("0.00005"),
		Unit:         "hours",
		Scope:        3,
	}
	if mutate != nil {
		mutate(f)
	}
	return f
}

func TestPickBestFactorPrefersOpenEndedValidTo(t *testing.T) {
	bounded := testFactor(func(f *types.EmissionFactor) {
		f.ValidFrom = datePtr(2025, time.January, 1)
		f.ValidTo = datePtr(2030, time.December, 31)
	})
	openEnded := testFactor(func(f *types.EmissionFactor) {
		f.ValidFrom = datePtr(2020, time.January, 1)
	})

	got := pickBestFactor([]*types.EmissionFactor{bounded, openEnded})
	if got.ID != openEnded.ID {
		t.Fatalf("picked bounded factor over open-ended one")
	}
}

func TestPickBestFactorPrefersLatestValidTo(t *testing.T) {
	older := testFactor(func(f *types.EmissionFactor) {
		f.ValidTo = datePtr(2024, time.December, 31)
	})
	newer := testFactor(func(f *types.EmissionFactor) {
		f.ValidTo = datePtr(2025, time.December, 31)
	})

	got := pickBestFactor([]*types.EmissionFactor{older, newer})
	if got.ID != newer.ID {
		t.Fatalf("picked older valid_to over newer one")
	}
}

func TestPickBestFactorBreaksTiesOnValidFrom(t *testing.T) {
	older := testFactor(func(f *types.EmissionFactor) {
		f.ValidFrom = datePtr(2023, time.January, 1)
	})
	newer := testFactor(func(f *types.EmissionFactor) {
		f.ValidFrom = datePtr(2024, time.January, 1)
	})
	unbounded := testFactor(nil)

	got := pickBestFactor([]*types.EmissionFactor{unbounded, older, newer})
	if got.ID != newer.ID {
		t.Fatalf("picked %s, want the factor with the latest valid_from", got.ID)
	}
}

func TestPickBestFactorIsDeterministicOnFullTies(t *testing.T) {
	a := testFactor(nil)
	b := testFactor(nil)

	first := pickBestFactor([]*types.EmissionFactor{a, b})
	second := pickBestFactor([]*types.EmissionFactor{b, a})
	if first.ID != second.ID {
		t.Fatalf("winner depends on candidate order: %s vs %s", first.ID, second.ID)
	}
}

func TestResolveMatchesSignatureAndOverlap(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	logg := testutil.Logger(t)
	ctx := context.Background()

	factorRepo := repos.NewFactorRepo(db, logg)
	resolver := NewResolver(factorRepo, logg)

	cloudCat := strPtr("cloud")
	matching := testFactor(func(f *types.EmissionFactor) {
		f.Scope3Category = cloudCat
	})
	wrongUnit := testFactor(func(f *types.EmissionFactor) {
		f.Scope3Category = cloudCat
		f.Unit = "minutes"
	})
	expired := testFactor(func(f *types.EmissionFactor) {
		f.Scope3Category = cloudCat
		f.ValidTo = datePtr(2024, time.December, 31)
	})
	categoryless := testFactor(nil)

	if _, err := factorRepo.Create(ctx, tx, []*types.EmissionFactor{matching, wrongUnit, expired, categoryless}); err != nil {
		t.Fatalf("Create factors: %v", err)
	}

	record := &types.ActivityRecord{
		ID:             uuid.New(),
		CompanyID:      uuid.New(),
		Scope:          3,
		Scope3Category: cloudCat,
		ActivityType:   "cloud_compute_hours",
		Quantity:       decimal.RequireFromString("800"),
		Unit:           "hours",
		PeriodStart:    date(2025, time.January, 1),
		PeriodEnd:      date(2025, time.January, 28),
		DataQuality:    types.QualityEstimated,
	}

	got, err := resolver.Resolve(ctx, tx, record)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got == nil {
		t.Fatalf("Resolve returned nil, want factor %s", matching.ID)
	}
	if got.ID != matching.ID {
		t.Fatalf("Resolve picked %s, want %s", got.ID, matching.ID)
	}
}

func TestResolveCategoryRulesPerScope(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	logg := testutil.Logger(t)
	ctx := context.Background()

	factorRepo := repos.NewFactorRepo(db, logg)
	resolver := NewResolver(factorRepo, logg)

	withCategory := testFactor(func(f *types.EmissionFactor) {
		f.ActivityType = "office_electricity_kwh"
		f.Unit = "kWh"
		f.Scope = 2
		f.Scope3Category = strPtr("cloud")
	})
	categoryless := testFactor(func(f *types.EmissionFactor) {
		f.ActivityType = "office_electricity_kwh"
		f.Unit = "kWh"
		f.Scope = 2
	})
	if _, err := factorRepo.Create(ctx, tx, []*types.EmissionFactor{withCategory, categoryless}); err != nil {
		t.Fatalf("Create factors: %v", err)
	}

	record := &types.ActivityRecord{
		ID:           uuid.New(),
		CompanyID:    uuid.New(),
		Scope:        2,
		ActivityType: "office_electricity_kwh",
		Quantity:     decimal.RequireFromString("1200"),
		Unit:         "kWh",
		PeriodStart:  date(2025, time.March, 1),
		PeriodEnd:    date(2025, time.March, 31),
		DataQuality:  types.QualityMeasured,
	}

	got, err := resolver.Resolve(ctx, tx, record)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got == nil || got.ID != categoryless.ID {
		t.Fatalf("scope 2 record must only match category-less factors")
	}

	// A category-less scope 3 record must not match a categorized factor.
	scope3Record := &types.ActivityRecord{
		ID:           uuid.New(),
		CompanyID:    uuid.New(),
		Scope:        3,
		ActivityType: "cloud_compute_hours",
		Quantity:     decimal.RequireFromString("10"),
		Unit:         "hours",
		PeriodStart:  date(2025, time.March, 1),
		PeriodEnd:    date(2025, time.March, 31),
		DataQuality:  types.QualityManual,
	}
	cloudOnly := testFactor(func(f *types.EmissionFactor) {
		f.Scope3Category = strPtr("cloud")
	})
	if _, err := factorRepo.Create(ctx, tx, []*types.EmissionFactor{cloudOnly}); err != nil {
		t.Fatalf("Create factor: %v", err)
	}

	got, err = resolver.Resolve(ctx, tx, scope3Record)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != nil {
		t.Fatalf("category-less scope 3 record matched categorized factor %s", got.ID)
	}
}

func TestResolveReturnsNilWhenNothingMatches(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	logg := testutil.Logger(t)
	ctx := context.Background()

	resolver := NewResolver(repos.NewFactorRepo(db, logg), logg)

	record := &types.ActivityRecord{
		ID:           uuid.New(),
		CompanyID:    uuid.New(),
		Scope:        1,
		ActivityType: "diesel_liters",
		Quantity:     decimal.RequireFromString("50"),
		Unit:         "liters",
		PeriodStart:  date(2025, time.June, 1),
		PeriodEnd:    date(2025, time.June, 30),
		DataQuality:  types.QualityManual,
	}

	got, err := resolver.Resolve(ctx, tx, record)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != nil {
		t.Fatalf("Resolve = %v, want nil for unmatched record", got.ID)
	}
}
