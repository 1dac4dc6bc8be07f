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

type lifecycleFixture struct {
	activities repos.ActivityRepo
	factors    repos.FactorRepo
	estimates  repos.EstimateRepo
	lifecycle  *Lifecycle
}

func newLifecycleFixture(t *testing.T, db *gorm.DB) *lifecycleFixture {
	t.Helper()
	logg := testutil.Logger(t)

	activities := repos.NewActivityRepo(db, logg)
	factors := repos.NewFactorRepo(db, logg)
	estimates := repos.NewEstimateRepo(db, logg)
	resolver := NewResolver(factors, logg)

	return &lifecycleFixture{
		activities: activities,
		factors:    factors,
		estimates:  estimates,
		lifecycle:  NewLifecycle(activities, estimates, resolver, logg),
	}
}

func testActivity(companyID uuid.UUID, mutate func(*types.ActivityRecord)) *types.ActivityRecord {
	rec := &types.ActivityRecord{
		ID:             uuid.New(),
		CompanyID:      companyID,
		Scope:          3,
		Scope3Category: strPtr("cloud"),
		ActivityType:   "cloud_compute_hours",
		Quantity:       decimal.RequireFromString("800"),
		Unit:           "hours",
		PeriodStart:    date(2025, time.January, 1),
		PeriodEnd:      date(2025, time.January, 28),
		DataQuality:    types.QualityEstimated,
	}
	if mutate != nil {
		mutate(rec)
	}
	return rec
}

func cloudFactor() *types.EmissionFactor {
	return &types.EmissionFactor{
		ID:             uuid.New(),
		Name:           "Cloud Compute (generic)",
		ActivityType:   "cloud_compute_hours",
		FactorValue:    decimal.RequireFromString("0.00005"),
		Unit:           "hours",
		Scope:          3,
		Scope3Category: strPtr("cloud"),
	}
}

func TestEnsureEstimateIncrementalIsCreateOnce(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	fx := newLifecycleFixture(t, db)
	ctx := context.Background()

	if _, err := fx.factors.Create(ctx, tx, []*types.EmissionFactor{cloudFactor()}); err != nil {
		t.Fatalf("Create factor: %v", err)
	}

	companyID := uuid.New()
	rec := testActivity(companyID, nil)
	if _, err := fx.activities.Create(ctx, tx, []*types.ActivityRecord{rec}); err != nil {
		t.Fatalf("Create activity: %v", err)
	}

	first, err := fx.lifecycle.EnsureEstimate(ctx, tx, rec, ModeIncremental)
	if err != nil {
		t.Fatalf("EnsureEstimate: %v", err)
	}
	if first == nil {
		t.Fatalf("first incremental run created nothing")
	}
	if first.EmissionsKgCO2e.StringFixed(6) != "0.040000" {
		t.Fatalf("emissions = %s, want 0.040000", first.EmissionsKgCO2e.StringFixed(6))
	}

	second, err := fx.lifecycle.EnsureEstimate(ctx, tx, rec, ModeIncremental)
	if err != nil {
		t.Fatalf("EnsureEstimate second run: %v", err)
	}
	if second != nil {
		t.Fatalf("second incremental run created a duplicate estimate %s", second.ID)
	}

	existing, err := fx.estimates.ExistingActivityRecordIDs(ctx, tx, []uuid.UUID{rec.ID})
	if err != nil {
		t.Fatalf("ExistingActivityRecordIDs: %v", err)
	}
	if !existing[rec.ID] {
		t.Fatalf("record lost its estimate")
	}
}

func TestEnsureEstimateReplaceSwapsTheRow(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	fx := newLifecycleFixture(t, db)
	ctx := context.Background()

	if _, err := fx.factors.Create(ctx, tx, []*types.EmissionFactor{cloudFactor()}); err != nil {
		t.Fatalf("Create factor: %v", err)
	}

	rec := testActivity(uuid.New(), nil)
	if _, err := fx.activities.Create(ctx, tx, []*types.ActivityRecord{rec}); err != nil {
		t.Fatalf("Create activity: %v", err)
	}

	first, err := fx.lifecycle.EnsureEstimate(ctx, tx, rec, ModeIncremental)
	if err != nil || first == nil {
		t.Fatalf("seed estimate: %v", err)
	}

	replaced, err := fx.lifecycle.EnsureEstimate(ctx, tx, rec, ModeReplace)
	if err != nil {
		t.Fatalf("EnsureEstimate replace: %v", err)
	}
	if replaced == nil {
		t.Fatalf("replace run created nothing")
	}
	if replaced.ID == first.ID {
		t.Fatalf("replace reused the old row instead of recreating it")
	}
	if !replaced.EmissionsKgCO2e.Equal(first.EmissionsKgCO2e) {
		t.Fatalf("replace changed the value: %s vs %s", replaced.EmissionsKgCO2e, first.EmissionsKgCO2e)
	}

	yearStart := date(2025, time.January, 1)
	yearEnd := date(2025, time.December, 31)
	all, err := fx.estimates.ListByCompanyYear(ctx, tx, rec.CompanyID, yearStart, yearEnd)
	if err != nil {
		t.Fatalf("ListByCompanyYear: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("estimates = %d, want exactly one per record", len(all))
	}
}

func TestEnsureEstimateReplaceDeletionPersistsWhenFactorGone(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	fx := newLifecycleFixture(t, db)
	ctx := context.Background()

	// No factor for this signature: the record's old estimate must not
	// survive a replace run.
	rec := testActivity(uuid.New(), func(r *types.ActivityRecord) {
		r.ActivityType = "orphaned_activity"
	})
	if _, err := fx.activities.Create(ctx, tx, []*types.ActivityRecord{rec}); err != nil {
		t.Fatalf("Create activity: %v", err)
	}

	stale := &types.EmissionEstimate{
		ID:               uuid.New(),
		CompanyID:        rec.CompanyID,
		ActivityRecordID: rec.ID,
		EmissionFactorID: uuid.New(),
		Scope:            rec.Scope,
		Scope3Category:   rec.Scope3Category,
		ActivityQuantity: rec.Quantity,
		FactorValue:      decimal.RequireFromString("0.001"),
		EmissionsKgCO2e:  decimal.RequireFromString("0.8"),
		DataQuality:      rec.DataQuality,
		PeriodStart:      rec.PeriodStart,
		PeriodEnd:        rec.PeriodEnd,
	}
	if _, err := fx.estimates.Create(ctx, tx, []*types.EmissionEstimate{stale}); err != nil {
		t.Fatalf("Create stale estimate: %v", err)
	}

	got, err := fx.lifecycle.EnsureEstimate(ctx, tx, rec, ModeReplace)
	if err != nil {
		t.Fatalf("EnsureEstimate: %v", err)
	}
	if got != nil {
		t.Fatalf("resolved a factor that should not exist")
	}

	existing, err := fx.estimates.ExistingActivityRecordIDs(ctx, tx, []uuid.UUID{rec.ID})
	if err != nil {
		t.Fatalf("ExistingActivityRecordIDs: %v", err)
	}
	if existing[rec.ID] {
		t.Fatalf("stale estimate survived a replace run with no matching factor")
	}
}

func TestComputeForCompanyCountsAndWindow(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	fx := newLifecycleFixture(t, db)
	ctx := context.Background()

	if _, err := fx.factors.Create(ctx, tx, []*types.EmissionFactor{cloudFactor()}); err != nil {
		t.Fatalf("Create factor: %v", err)
	}

	companyID := uuid.New()
	january := testActivity(companyID, nil)
	june := testActivity(companyID, func(r *types.ActivityRecord) {
		r.PeriodStart = date(2025, time.June, 1)
		r.PeriodEnd = date(2025, time.June, 30)
	})
	unmatched := testActivity(companyID, func(r *types.ActivityRecord) {
		r.ActivityType = "office_paper_kg"
		r.Unit = "kg"
	})
	if _, err := fx.activities.Create(ctx, tx, []*types.ActivityRecord{january, june, unmatched}); err != nil {
		t.Fatalf("Create activities: %v", err)
	}

	// Window covering only January: one estimate, unmatched and June
	// stay untouched.
	start := date(2025, time.January, 1)
	end := date(2025, time.January, 31)
	created, err := fx.lifecycle.ComputeForCompany(ctx, tx, companyID, &start, &end, ModeIncremental)
	if err != nil {
		t.Fatalf("ComputeForCompany: %v", err)
	}
	if created != 1 {
		t.Fatalf("created = %d, want 1 for the January window", created)
	}

	// Whole-company run picks up June; January is covered, the
	// unmatched record is skipped without an error.
	created, err = fx.lifecycle.ComputeForCompany(ctx, tx, companyID, nil, nil, ModeIncremental)
	if err != nil {
		t.Fatalf("ComputeForCompany full: %v", err)
	}
	if created != 1 {
		t.Fatalf("created = %d, want 1 for the remaining June record", created)
	}

	// Re-running incrementally is a no-op.
	created, err = fx.lifecycle.ComputeForCompany(ctx, tx, companyID, nil, nil, ModeIncremental)
	if err != nil {
		t.Fatalf("ComputeForCompany rerun: %v", err)
	}
	if created != 0 {
		t.Fatalf("created = %d, want 0 on an already-covered set", created)
	}
}

func TestComputeForCompanyReplaceIsIdempotent(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	fx := newLifecycleFixture(t, db)
	ctx := context.Background()

	if _, err := fx.factors.Create(ctx, tx, []*types.EmissionFactor{cloudFactor()}); err != nil {
		t.Fatalf("Create factor: %v", err)
	}

	companyID := uuid.New()
	records := []*types.ActivityRecord{
		testActivity(companyID, nil),
		testActivity(companyID, func(r *types.ActivityRecord) {
			r.Quantity = decimal.RequireFromString("10000.0")
			r.PeriodStart = date(2025, time.March, 1)
			r.PeriodEnd = date(2025, time.March, 31)
		}),
	}
	if _, err := fx.activities.Create(ctx, tx, records); err != nil {
		t.Fatalf("Create activities: %v", err)
	}

	firstCreated, err := fx.lifecycle.ComputeForCompany(ctx, tx, companyID, nil, nil, ModeReplace)
	if err != nil {
		t.Fatalf("first replace: %v", err)
	}
	yearStart, yearEnd := date(2025, time.January, 1), date(2025, time.December, 31)
	firstSet, err := fx.estimates.ListByCompanyYear(ctx, tx, companyID, yearStart, yearEnd)
	if err != nil {
		t.Fatalf("ListByCompanyYear: %v", err)
	}

	secondCreated, err := fx.lifecycle.ComputeForCompany(ctx, tx, companyID, nil, nil, ModeReplace)
	if err != nil {
		t.Fatalf("second replace: %v", err)
	}
	secondSet, err := fx.estimates.ListByCompanyYear(ctx, tx, companyID, yearStart, yearEnd)
	if err != nil {
		t.Fatalf("ListByCompanyYear: %v", err)
	}

	if firstCreated != secondCreated {
		t.Fatalf("created counts differ: %d vs %d", firstCreated, secondCreated)
	}
	if len(firstSet) != len(secondSet) {
		t.Fatalf("estimate sets differ in size: %d vs %d", len(firstSet), len(secondSet))
	}
	for i := range firstSet {
		if !firstSet[i].EmissionsKgCO2e.Equal(secondSet[i].EmissionsKgCO2e) {
			t.Fatalf("emissions differ at %d: %s vs %s", i, firstSet[i].EmissionsKgCO2e, secondSet[i].EmissionsKgCO2e)
		}
		if firstSet[i].ID == secondSet[i].ID {
			t.Fatalf("replace must recreate rows, found reused id %s", firstSet[i].ID)
		}
	}
}
