package emissions

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	types "github.com/verdelo/carbonledger-backend/internal/domain"
	"github.com/verdelo/carbonledger-backend/internal/data/repos"
	"github.com/verdelo/carbonledger-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

// confidenceScale is the decimal precision of the stored confidence
// average.
const confidenceScale = 2

// Aggregator rebuilds the emissions_summary rows for one company and
// reporting year. The table is a materialized view over the estimates:
// every refresh deletes the year's rows and recreates them from
// scratch, never editing in place.
type Aggregator struct {
	estimates repos.EstimateRepo
	summaries repos.SummaryRepo
	log       *logger.Logger
}

func NewAggregator(estimates repos.EstimateRepo, summaries repos.SummaryRepo, baseLog *logger.Logger) *Aggregator {
	return &Aggregator{
		estimates: estimates,
		summaries: summaries,
		log:       baseLog.With("component", "SummaryAggregator"),
	}
}

// RefreshSummaries rebuilds every summary bucket for (company, year)
// and returns the number of rows written. Estimates only contribute
// when their period lies fully inside the year; a year with no
// estimates still gets its stale rows deleted and yields zero rows.
// Callers are expected to run this inside the same transaction as the
// estimate changes that made it necessary.
func (a *Aggregator) RefreshSummaries(ctx context.Context, tx *gorm.DB, companyID uuid.UUID, reportingYear int) (int, error) {
	if _, err := a.summaries.DeleteByCompanyYear(ctx, tx, companyID, reportingYear); err != nil {
		return 0, err
	}

	yearStart := time.Date(reportingYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := time.Date(reportingYear, time.December, 31, 0, 0, 0, 0, time.UTC)

	estimates, err := a.estimates.ListByCompanyYear(ctx, tx, companyID, yearStart, yearEnd)
	if err != nil {
		return 0, err
	}

	rows := buildSummaryRows(companyID, reportingYear, estimates)
	if _, err := a.summaries.Create(ctx, tx, rows); err != nil {
		return 0, err
	}

	a.log.Info("refreshed summaries",
		"company_id", companyID,
		"reporting_year", reportingYear,
		"estimates", len(estimates),
		"rows", len(rows),
	)
	return len(rows), nil
}

type bucketKey struct {
	periodType  string
	periodValue string
	scope       int
	category    string
	hasCategory bool
}

type bucketAccum struct {
	total     decimal.Decimal
	measured  decimal.Decimal
	estimated decimal.Decimal
	manual    decimal.Decimal
	confSum   decimal.Decimal
	confCount int
}

// buildSummaryRows folds estimates into annual and monthly buckets
// keyed by (period, scope, category). An estimate lands in the annual
// bucket of the reporting year and the monthly bucket of its
// period_start month; multi-month periods are attributed whole to the
// start month, never pro-rated. Sums are exact; the confidence average
// is the only value rounded, half-even to two decimals over the
// estimates that carry a score.
func buildSummaryRows(companyID uuid.UUID, reportingYear int, estimates []*types.EmissionEstimate) []*types.EmissionsSummary {
	buckets := map[bucketKey]*bucketAccum{}

	add := func(key bucketKey, est *types.EmissionEstimate) {
		acc, ok := buckets[key]
		if !ok {
			acc = &bucketAccum{}
			buckets[key] = acc
		}
		acc.total = acc.total.Add(est.EmissionsKgCO2e)
		switch est.DataQuality {
		case types.QualityMeasured:
			acc.measured = acc.measured.Add(est.EmissionsKgCO2e)
		case types.QualityEstimated:
			acc.estimated = acc.estimated.Add(est.EmissionsKgCO2e)
		case types.QualityManual:
			acc.manual = acc.manual.Add(est.EmissionsKgCO2e)
		}
		if est.ConfidenceScore != nil {
			acc.confSum = acc.confSum.Add(*est.ConfidenceScore)
			acc.confCount++
		}
	}

	annualValue := time.Date(reportingYear, time.January, 1, 0, 0, 0, 0, time.UTC).Format("2006")
	for _, est := range estimates {
		category := ""
		hasCategory := false
		if est.Scope3Category != nil {
			category = *est.Scope3Category
			hasCategory = true
		}

		add(bucketKey{
			periodType:  types.PeriodAnnual,
			periodValue: annualValue,
			scope:       est.Scope,
			category:    category,
			hasCategory: hasCategory,
		}, est)
		add(bucketKey{
			periodType:  types.PeriodMonthly,
			periodValue: est.PeriodStart.Format("2006-01"),
			scope:       est.Scope,
			category:    category,
			hasCategory: hasCategory,
		}, est)
	}

	rows := make([]*types.EmissionsSummary, 0, len(buckets))
	for key, acc := range buckets {
		row := &types.EmissionsSummary{
			ID:              uuid.New(),
			CompanyID:       companyID,
			ReportingYear:   reportingYear,
			PeriodType:      key.periodType,
			PeriodValue:     key.periodValue,
			Scope:           key.scope,
			TotalKgCO2e:     acc.total,
			MeasuredKgCO2e:  acc.measured,
			EstimatedKgCO2e: acc.estimated,
			ManualKgCO2e:    acc.manual,
		}
		if key.hasCategory {
			category := key.category
			row.Scope3Category = &category
		}
		if acc.confCount > 0 {
			avg := acc.confSum.Div(decimal.NewFromInt(int64(acc.confCount))).RoundBank(confidenceScale)
			row.ConfidenceScoreAvg = &avg
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].PeriodType != rows[j].PeriodType {
			return rows[i].PeriodType < rows[j].PeriodType
		}
		if rows[i].PeriodValue != rows[j].PeriodValue {
			return rows[i].PeriodValue < rows[j].PeriodValue
		}
		if rows[i].Scope != rows[j].Scope {
			return rows[i].Scope < rows[j].Scope
		}
		return categoryString(rows[i].Scope3Category) < categoryString(rows[j].Scope3Category)
	})
	return rows
}

func categoryString(category *string) string {
	if category == nil {
		return ""
	}
	return *category
}
