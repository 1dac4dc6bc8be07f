package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/verdelo/carbonledger-backend/internal/data/repos"
	types "github.com/verdelo/carbonledger-backend/internal/domain"
	"github.com/verdelo/carbonledger-backend/internal/emissions"
	"github.com/verdelo/carbonledger-backend/internal/pkg/ctxutil"
	apperrors "github.com/verdelo/carbonledger-backend/internal/pkg/errors"
	"github.com/verdelo/carbonledger-backend/internal/pkg/logger"
)

// CompanyStats is the header block of the dashboard.
type CompanyStats struct {
	Employees           int `json:"employees"`
	CloudProvidersCount int `json:"cloud_providers_count"`
	ReportingYear       int `json:"reporting_year"`
}

// ScopeTotal is one annual summary bucket surfaced to the UI.
type ScopeTotal struct {
	Scope              int              `json:"scope"`
	Scope3Category     *string          `json:"scope_3_category"`
	TotalKgCO2e        decimal.Decimal  `json:"total_kg_co2e"`
	MeasuredKgCO2e     decimal.Decimal  `json:"measured_kg_co2e"`
	EstimatedKgCO2e    decimal.Decimal  `json:"estimated_kg_co2e"`
	ManualKgCO2e       decimal.Decimal  `json:"manual_kg_co2e"`
	ConfidenceScoreAvg *decimal.Decimal `json:"confidence_score_avg"`
}

// Scope3CategoryTotal is the per-category slice of scope 3.
type Scope3CategoryTotal struct {
	Category    string          `json:"category"`
	TotalKgCO2e decimal.Decimal `json:"total_kg_co2e"`
}

// AnnualTotals rolls the year up by scope and category.
type AnnualTotals struct {
	TotalCO2e        decimal.Decimal       `json:"total_co2e"`
	Scope1           decimal.Decimal       `json:"scope_1"`
	Scope2           decimal.Decimal       `json:"scope_2"`
	Scope3           decimal.Decimal       `json:"scope_3"`
	ScopeTotals      []ScopeTotal          `json:"scope_totals"`
	Scope3ByCategory []Scope3CategoryTotal `json:"scope3_by_category"`
}

// DataQualityStats summarizes where the company's numbers come from.
type DataQualityStats struct {
	OverallConfidence       *decimal.Decimal `json:"overall_confidence"`
	ConnectedSourcesCount   int64            `json:"connected_sources_count"`
	AIEstimatedSourcesCount int64            `json:"ai_estimated_sources_count"`
	ManualEntriesCount      int64            `json:"manual_entries_count"`
}

// DataLineage partitions emissions and record counts by quality tier.
type DataLineage struct {
	MeasuredKgCO2e  decimal.Decimal `json:"measured_kg_co2e"`
	EstimatedKgCO2e decimal.Decimal `json:"estimated_kg_co2e"`
	ManualKgCO2e    decimal.Decimal `json:"manual_kg_co2e"`
	MeasuredCount   int64           `json:"measured_count"`
	EstimatedCount  int64           `json:"estimated_count"`
	ManualCount     int64           `json:"manual_count"`
}

// MonthlyTrendPoint is one month of the trend chart, split by scope.
type MonthlyTrendPoint struct {
	Month  string          `json:"month"`
	Scope1 decimal.Decimal `json:"scope_1"`
	Scope2 decimal.Decimal `json:"scope_2"`
	Scope3 decimal.Decimal `json:"scope_3"`
	Total  decimal.Decimal `json:"total"`
}

// Dashboard is the full dashboard payload.
type Dashboard struct {
	CompanyStats CompanyStats        `json:"company_stats"`
	AnnualTotals AnnualTotals        `json:"annual_totals"`
	DataQuality  DataQualityStats    `json:"data_quality"`
	MonthlyTrend []MonthlyTrendPoint `json:"monthly_trend"`
	DataLineage  DataLineage         `json:"data_lineage"`
}

type DashboardService interface {
	GetDashboard(ctx context.Context, year int) (*Dashboard, error)
	Recompute(ctx context.Context, year int) (*emissions.Result, error)
}

type dashboardService struct {
	db             *gorm.DB
	log            *logger.Logger
	companyRepo    repos.CompanyRepo
	connectionRepo repos.ConnectionRepo
	activityRepo   repos.ActivityRepo
	engine         *emissions.Engine
	auditService   AuditService
}

func NewDashboardService(db *gorm.DB, log *logger.Logger, companyRepo repos.CompanyRepo, connectionRepo repos.ConnectionRepo, activityRepo repos.ActivityRepo, engine *emissions.Engine, auditService AuditService) DashboardService {
	serviceLog := log.With("service", "DashboardService")
	return &dashboardService{
		db:             db,
		log:            serviceLog,
		companyRepo:    companyRepo,
		connectionRepo: connectionRepo,
		activityRepo:   activityRepo,
		engine:         engine,
		auditService:   auditService,
	}
}

func (s *dashboardService) GetDashboard(ctx context.Context, year int) (*Dashboard, error) {
	ctx = ctxutil.Default(ctx)
	rd, err := requireRequestData(ctx)
	if err != nil {
		return nil, err
	}

	company, err := s.companyRepo.GetByID(ctx, nil, rd.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("error fetching company: %w", err)
	}
	if company == nil {
		return nil, fmt.Errorf("company not found: %w", apperrors.ErrNotFound)
	}

	connections, err := s.connectionRepo.GetByCompany(ctx, nil, rd.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("error fetching connections: %w", err)
	}
	cloudCount := 0
	for _, conn := range connections {
		if _, ok := cloudProviders[conn.SourceType]; ok {
			cloudCount++
		}
	}

	employees := 0
	if company.EmployeeCount != nil {
		employees = *company.EmployeeCount
	}

	annualRows, err := s.engine.AnnualTotals(ctx, rd.CompanyID, year)
	if err != nil {
		return nil, fmt.Errorf("error fetching annual totals: %w", err)
	}
	annual := buildAnnualTotals(annualRows)

	qualityCounts, err := s.activityRepo.CountByQuality(ctx, nil, rd.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("error counting activity quality: %w", err)
	}

	monthlyRows, err := s.engine.MonthlyBreakdown(ctx, rd.CompanyID, year)
	if err != nil {
		return nil, fmt.Errorf("error fetching monthly breakdown: %w", err)
	}

	dashboard := &Dashboard{
		CompanyStats: CompanyStats{
			Employees:           employees,
			CloudProvidersCount: cloudCount,
			ReportingYear:       year,
		},
		AnnualTotals: annual,
		DataQuality: DataQualityStats{
			OverallConfidence:       overallConfidence(annual.ScopeTotals),
			ConnectedSourcesCount:   qualityCounts[types.QualityMeasured],
			AIEstimatedSourcesCount: qualityCounts[types.QualityEstimated],
			ManualEntriesCount:      qualityCounts[types.QualityManual],
		},
		MonthlyTrend: buildMonthlyTrend(monthlyRows),
		DataLineage:  buildDataLineage(annual.ScopeTotals, qualityCounts),
	}
	return dashboard, nil
}

// Recompute rebuilds every estimate from scratch and refreshes the year.
func (s *dashboardService) Recompute(ctx context.Context, year int) (*emissions.Result, error) {
	ctx = ctxutil.Default(ctx)
	rd, err := requireRequestData(ctx)
	if err != nil {
		return nil, err
	}

	var result *emissions.Result
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = s.engine.RecomputeInTx(ctx, tx, rd.CompanyID, year, nil, nil, emissions.ModeReplace)
		if err != nil {
			return fmt.Errorf("error recomputing emissions: %w", err)
		}
		_ = s.auditService.LogAction(ctx, tx, rd.UserID, rd.CompanyID, "emissions_recomputed", "company", &rd.CompanyID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func buildAnnualTotals(rows []*types.EmissionsSummary) AnnualTotals {
	annual := AnnualTotals{
		ScopeTotals:      []ScopeTotal{},
		Scope3ByCategory: []Scope3CategoryTotal{},
	}
	byCategory := map[string]decimal.Decimal{}

	for _, row := range rows {
		annual.TotalCO2e = annual.TotalCO2e.Add(row.TotalKgCO2e)
		switch row.Scope {
		case types.Scope1:
			annual.Scope1 = annual.Scope1.Add(row.TotalKgCO2e)
		case types.Scope2:
			annual.Scope2 = annual.Scope2.Add(row.TotalKgCO2e)
		case types.Scope3:
			annual.Scope3 = annual.Scope3.Add(row.TotalKgCO2e)
			if row.Scope3Category != nil {
				byCategory[*row.Scope3Category] = byCategory[*row.Scope3Category].Add(row.TotalKgCO2e)
			}
		}

		annual.ScopeTotals = append(annual.ScopeTotals, ScopeTotal{
			Scope:              row.Scope,
			Scope3Category:     row.Scope3Category,
			TotalKgCO2e:        row.TotalKgCO2e,
			MeasuredKgCO2e:     row.MeasuredKgCO2e,
			EstimatedKgCO2e:    row.EstimatedKgCO2e,
			ManualKgCO2e:       row.ManualKgCO2e,
			ConfidenceScoreAvg: row.ConfidenceScoreAvg,
		})
	}

	categories := make([]string, 0, len(byCategory))
	for category := range byCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	for _, category := range categories {
		annual.Scope3ByCategory = append(annual.Scope3ByCategory, Scope3CategoryTotal{
			Category:    category,
			TotalKgCO2e: byCategory[category],
		})
	}
	return annual
}

// overallConfidence averages the per-bucket confidence figures, two places.
func overallConfidence(totals []ScopeTotal) *decimal.Decimal {
	sum := decimal.Zero
	count := 0
	for _, t := range totals {
		if t.ConfidenceScoreAvg != nil {
			sum = sum.Add(*t.ConfidenceScoreAvg)
			count++
		}
	}
	if count == 0 {
		return nil
	}
	avg := sum.Div(decimal.NewFromInt(int64(count))).RoundBank(2)
	return &avg
}

func buildDataLineage(totals []ScopeTotal, qualityCounts map[string]int64) DataLineage {
	lineage := DataLineage{
		MeasuredCount:  qualityCounts[types.QualityMeasured],
		EstimatedCount: qualityCounts[types.QualityEstimated],
		ManualCount:    qualityCounts[types.QualityManual],
	}
	for _, t := range totals {
		lineage.MeasuredKgCO2e = lineage.MeasuredKgCO2e.Add(t.MeasuredKgCO2e)
		lineage.EstimatedKgCO2e = lineage.EstimatedKgCO2e.Add(t.EstimatedKgCO2e)
		lineage.ManualKgCO2e = lineage.ManualKgCO2e.Add(t.ManualKgCO2e)
	}
	return lineage
}

// buildMonthlyTrend folds monthly summary rows into one point per month.
// Rows arrive ordered by period value, so months come out sorted.
func buildMonthlyTrend(rows []*types.EmissionsSummary) []MonthlyTrendPoint {
	points := []MonthlyTrendPoint{}
	index := map[string]int{}

	for _, row := range rows {
		i, ok := index[row.PeriodValue]
		if !ok {
			points = append(points, MonthlyTrendPoint{Month: row.PeriodValue})
			i = len(points) - 1
			index[row.PeriodValue] = i
		}
		switch row.Scope {
		case types.Scope1:
			points[i].Scope1 = points[i].Scope1.Add(row.TotalKgCO2e)
		case types.Scope2:
			points[i].Scope2 = points[i].Scope2.Add(row.TotalKgCO2e)
		case types.Scope3:
			points[i].Scope3 = points[i].Scope3.Add(row.TotalKgCO2e)
		}
		points[i].Total = points[i].Total.Add(row.TotalKgCO2e)
	}
	return points
}
