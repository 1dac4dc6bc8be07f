package emissions

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	types "github.com/verdelo/carbonledger-backend/internal/domain"
	"github.com/verdelo/carbonledger-backend/internal/data/repos"
	"github.com/verdelo/carbonledger-backend/internal/observability"
	"github.com/verdelo/carbonledger-backend/internal/pkg/ctxutil"
	"github.com/verdelo/carbonledger-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

// Engine is the compute orchestrator: one Recompute call runs the
// estimate batch and the summary refreshes in a single transaction, so
// readers never observe estimates without matching summaries.
type Engine struct {
	db         *gorm.DB
	lifecycle  *Lifecycle
	aggregator *Aggregator
	summaries  repos.SummaryRepo
	log        *logger.Logger
}

// Result reports what one Recompute run changed.
type Result struct {
	EstimatesCreated   int   `json:"estimates_created"`
	SummariesRefreshed int   `json:"summaries_refreshed"`
	YearsRefreshed     []int `json:"years_refreshed"`
}

func NewEngine(db *gorm.DB, lifecycle *Lifecycle, aggregator *Aggregator, summaries repos.SummaryRepo, baseLog *logger.Logger) *Engine {
	return &Engine{
		db:         db,
		lifecycle:  lifecycle,
		aggregator: aggregator,
		summaries:  summaries,
		log:        baseLog.With("component", "EmissionsEngine"),
	}
}

// Recompute computes estimates for the company's records in the window
// (both bounds optional) and refreshes summaries once per distinct year
// touched. The reporting year always refreshes, even when the batch
// created nothing, so purges and replaces propagate to the summaries.
// Everything runs in one transaction under a per-company advisory lock.
func (e *Engine) Recompute(ctx context.Context, companyID uuid.UUID, reportingYear int, periodStart, periodEnd *time.Time, mode Mode) (*Result, error) {
	ctx = ctxutil.Default(ctx)

	var result *Result
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = e.RecomputeInTx(ctx, tx, companyID, reportingYear, periodStart, periodEnd, mode)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RecomputeInTx is Recompute for callers that already hold a transaction,
// so activity inserts and the recompute they trigger commit together.
func (e *Engine) RecomputeInTx(ctx context.Context, tx *gorm.DB, companyID uuid.UUID, reportingYear int, periodStart, periodEnd *time.Time, mode Mode) (*Result, error) {
	ctx = ctxutil.Default(ctx)
	start := time.Now()

	if err := acquireCompanyLock(tx, companyID); err != nil {
		return nil, err
	}

	result := &Result{}
	created, err := e.lifecycle.ComputeForCompany(ctx, tx, companyID, periodStart, periodEnd, mode)
	if err != nil {
		return nil, err
	}
	result.EstimatesCreated = created

	years, err := e.yearsTouched(ctx, tx, companyID, reportingYear, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	for _, year := range years {
		rows, err := e.aggregator.RefreshSummaries(ctx, tx, companyID, year)
		if err != nil {
			return nil, err
		}
		result.SummariesRefreshed += rows
	}
	result.YearsRefreshed = years

	observability.Current().ObserveRecompute(string(mode), result.EstimatesCreated, result.SummariesRefreshed, time.Since(start))
	e.log.Info("recompute finished",
		"company_id", companyID,
		"mode", string(mode),
		"estimates_created", result.EstimatesCreated,
		"years_refreshed", result.YearsRefreshed,
	)
	return result, nil
}

// yearsTouched is the reporting year plus the period_start year of
// every record in the window, deduplicated and sorted.
func (e *Engine) yearsTouched(ctx context.Context, tx *gorm.DB, companyID uuid.UUID, reportingYear int, periodStart, periodEnd *time.Time) ([]int, error) {
	records, err := e.lifecycle.activities.ListByCompanyWindow(ctx, tx, companyID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}

	seen := map[int]bool{reportingYear: true}
	for _, rec := range records {
		seen[rec.PeriodStart.Year()] = true
	}

	years := make([]int, 0, len(seen))
	for year := range seen {
		years = append(years, year)
	}
	sort.Ints(years)
	return years, nil
}

// AnnualTotals returns the annual summary buckets for (company, year),
// one row per (scope, category) pair.
func (e *Engine) AnnualTotals(ctx context.Context, companyID uuid.UUID, reportingYear int) ([]*types.EmissionsSummary, error) {
	return e.AnnualTotalsTx(ctx, nil, companyID, reportingYear)
}

// AnnualTotalsTx is AnnualTotals inside a caller-held transaction, for
// reads that must see summaries refreshed earlier in the same transaction.
func (e *Engine) AnnualTotalsTx(ctx context.Context, tx *gorm.DB, companyID uuid.UUID, reportingYear int) ([]*types.EmissionsSummary, error) {
	ctx = ctxutil.Default(ctx)
	return e.summaries.ListByCompanyYearAndType(ctx, tx, companyID, reportingYear, types.PeriodAnnual)
}

// MonthlyBreakdown returns the monthly summary buckets for
// (company, year) ordered by month then scope.
func (e *Engine) MonthlyBreakdown(ctx context.Context, companyID uuid.UUID, reportingYear int) ([]*types.EmissionsSummary, error) {
	return e.MonthlyBreakdownTx(ctx, nil, companyID, reportingYear)
}

// MonthlyBreakdownTx is MonthlyBreakdown inside a caller-held transaction.
func (e *Engine) MonthlyBreakdownTx(ctx context.Context, tx *gorm.DB, companyID uuid.UUID, reportingYear int) ([]*types.EmissionsSummary, error) {
	ctx = ctxutil.Default(ctx)
	return e.summaries.ListByCompanyYearAndType(ctx, tx, companyID, reportingYear, types.PeriodMonthly)
}
