package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/verdelo/carbonledger-backend/internal/clients/gcs"
	"github.com/verdelo/carbonledger-backend/internal/data/repos"
	types "github.com/verdelo/carbonledger-backend/internal/domain"
	"github.com/verdelo/carbonledger-backend/internal/emissions"
	"github.com/verdelo/carbonledger-backend/internal/pkg/ctxutil"
	apperrors "github.com/verdelo/carbonledger-backend/internal/pkg/errors"
	"github.com/verdelo/carbonledger-backend/internal/pkg/logger"
)

// FactorCitation names one emission-factor source in a report.
type FactorCitation struct {
	Source   string `json:"source"`
	URLOrRef string `json:"url_or_ref"`
}

// ReportSnapshot is the frozen content of a report. It is stored as JSON on
// the report row so later recomputes never alter published numbers.
type ReportSnapshot struct {
	ExecutiveSummary        string                     `json:"executive_summary"`
	Scope1KgCO2e            decimal.Decimal            `json:"scope_1_kg_co2e"`
	Scope2KgCO2e            decimal.Decimal            `json:"scope_2_kg_co2e"`
	Scope3KgCO2e            decimal.Decimal            `json:"scope_3_kg_co2e"`
	Scope3Breakdown         map[string]decimal.Decimal `json:"scope_3_breakdown"`
	MethodologyNotes        string                     `json:"methodology_notes"`
	AssumptionsLimitations  string                     `json:"assumptions_limitations"`
	EmissionFactorCitations []FactorCitation           `json:"emission_factor_citations"`
	MonthlyBreakdown        []MonthlyTrendPoint        `json:"monthly_breakdown"`
}

// PublicReport is the read-only payload behind a share link.
type PublicReport struct {
	CompanyName      string                     `json:"company_name"`
	ReportingYear    int                        `json:"reporting_year"`
	TotalCO2e        decimal.Decimal            `json:"total_co2e"`
	ExecutiveSummary string                     `json:"executive_summary"`
	ScopeBreakdown   map[string]decimal.Decimal `json:"scope_breakdown"`
	Scope3Breakdown  map[string]decimal.Decimal `json:"scope_3_breakdown"`
}

// PublishResult is the response body of a publish call.
type PublishResult struct {
	Status         string `json:"status"`
	ShareableToken string `json:"shareable_token"`
}

type ReportService interface {
	List(ctx context.Context, year *int) ([]*types.Report, error)
	Create(ctx context.Context, title string, reportingYear int) (*types.Report, error)
	Get(ctx context.Context, reportID uuid.UUID) (*types.Report, error)
	Publish(ctx context.Context, reportID uuid.UUID) (*PublishResult, error)
	GetPublic(ctx context.Context, shareToken string) (*PublicReport, error)
	Chart(ctx context.Context, reportID uuid.UUID) ([]byte, *types.Report, error)
	ChartURL(report *types.Report) *string
}

type reportService struct {
	db           *gorm.DB
	log          *logger.Logger
	companyRepo  repos.CompanyRepo
	reportRepo   repos.ReportRepo
	engine       *emissions.Engine
	chartService ChartService
	bucket       gcs.BucketService
	emailService EmailService
	userRepo     repos.UserRepo
}

// NewReportService wires report generation. bucket may be nil when object
// storage is not configured; charts are then skipped.
func NewReportService(db *gorm.DB, log *logger.Logger, companyRepo repos.CompanyRepo, reportRepo repos.ReportRepo, userRepo repos.UserRepo, engine *emissions.Engine, chartService ChartService, bucket gcs.BucketService, emailService EmailService) ReportService {
	serviceLog := log.With("service", "ReportService")
	return &reportService{
		db:           db,
		log:          serviceLog,
		companyRepo:  companyRepo,
		reportRepo:   reportRepo,
		userRepo:     userRepo,
		engine:       engine,
		chartService: chartService,
		bucket:       bucket,
		emailService: emailService,
	}
}

func (s *reportService) List(ctx context.Context, year *int) ([]*types.Report, error) {
	ctx = ctxutil.Default(ctx)
	rd, err := requireRequestData(ctx)
	if err != nil {
		return nil, err
	}
	return s.reportRepo.ListByCompany(ctx, nil, rd.CompanyID, year)
}

// Create recomputes from scratch, then freezes the year into a draft report.
func (s *reportService) Create(ctx context.Context, title string, reportingYear int) (*types.Report, error) {
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

	var report *types.Report
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.engine.RecomputeInTx(ctx, tx, rd.CompanyID, reportingYear, nil, nil, emissions.ModeReplace); err != nil {
			return fmt.Errorf("error recomputing emissions: %w", err)
		}

		annualRows, err := s.engine.AnnualTotalsTx(ctx, tx, rd.CompanyID, reportingYear)
		if err != nil {
			return fmt.Errorf("error fetching annual totals: %w", err)
		}
		monthlyRows, err := s.engine.MonthlyBreakdownTx(ctx, tx, rd.CompanyID, reportingYear)
		if err != nil {
			return fmt.Errorf("error fetching monthly breakdown: %w", err)
		}

		snapshot, total := buildReportSnapshot(company.Name, reportingYear, annualRows, monthlyRows)
		snapshotJSON, err := json.Marshal(snapshot)
		if err != nil {
			return fmt.Errorf("error encoding report snapshot: %w", err)
		}

		now := time.Now()
		report = &types.Report{
			ID:                  uuid.New(),
			CompanyID:           rd.CompanyID,
			CreatedByUserID:     rd.UserID,
			Title:               title,
			CompanyNameSnapshot: &company.Name,
			ReportingYear:       reportingYear,
			TotalKgCO2e:         total,
			Status:              types.ReportDraft,
			ContentSnapshot:     datatypes.JSON(snapshotJSON),
			GeneratedAt:         &now,
		}
		if _, err := s.reportRepo.Create(ctx, tx, []*types.Report{report}); err != nil {
			return fmt.Errorf("error creating report: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.attachChart(ctx, report)

	s.log.Info("Report created", "report_id", report.ID, "company_id", rd.CompanyID, "reporting_year", reportingYear)
	return report, nil
}

// attachChart renders and uploads the monthly chart after the report row is
// committed. Chart problems degrade the report, never fail it.
func (s *reportService) attachChart(ctx context.Context, report *types.Report) {
	if s.bucket == nil || s.chartService == nil {
		return
	}

	var snapshot ReportSnapshot
	if err := json.Unmarshal(report.ContentSnapshot, &snapshot); err != nil {
		s.log.Warn("Could not decode snapshot for chart", "report_id", report.ID, "error", err)
		return
	}

	companyName := ""
	if report.CompanyNameSnapshot != nil {
		companyName = *report.CompanyNameSnapshot
	}
	png, err := s.chartService.RenderMonthlyTrend(companyName, report.ReportingYear, snapshot.MonthlyBreakdown)
	if err != nil {
		s.log.Warn("Could not render report chart", "report_id", report.ID, "error", err)
		return
	}

	key := fmt.Sprintf("report_chart/%s/%d.png", report.ID, time.Now().UnixNano())
	if err := s.bucket.UploadFile(ctx, key, bytes.NewReader(png)); err != nil {
		s.log.Warn("Could not upload report chart", "report_id", report.ID, "error", err)
		return
	}

	if err := s.reportRepo.UpdateFields(ctx, nil, report.ID, map[string]interface{}{
		"chart_object_key": key,
		"updated_at":       time.Now(),
	}); err != nil {
		s.log.Warn("Could not store chart key", "report_id", report.ID, "error", err)
		return
	}
	report.ChartObjectKey = &key
}

func (s *reportService) Get(ctx context.Context, reportID uuid.UUID) (*types.Report, error) {
	ctx = ctxutil.Default(ctx)
	rd, err := requireRequestData(ctx)
	if err != nil {
		return nil, err
	}

	report, err := s.reportRepo.GetByID(ctx, nil, reportID)
	if err != nil {
		return nil, fmt.Errorf("error fetching report: %w", err)
	}
	if report == nil || report.CompanyID != rd.CompanyID {
		return nil, fmt.Errorf("report not found: %w", apperrors.ErrNotFound)
	}
	return report, nil
}

func (s *reportService) Publish(ctx context.Context, reportID uuid.UUID) (*PublishResult, error) {
	ctx = ctxutil.Default(ctx)
	rd, err := requireRequestData(ctx)
	if err != nil {
		return nil, err
	}

	report, err := s.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.Status == types.ReportPublished {
		return nil, fmt.Errorf("report already published: %w", apperrors.ErrInvalidArgument)
	}

	token, err := newShareToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.reportRepo.UpdateFields(ctx, nil, reportID, map[string]interface{}{
		"status":          types.ReportPublished,
		"shareable_token": token,
		"published_at":    now,
		"updated_at":      now,
	}); err != nil {
		return nil, fmt.Errorf("error publishing report: %w", err)
	}

	s.notifyPublished(ctx, rd, report)

	s.log.Info("Report published", "report_id", reportID, "company_id", rd.CompanyID)
	return &PublishResult{Status: "published", ShareableToken: token}, nil
}

// notifyPublished emails the publisher when the company opted in.
func (s *reportService) notifyPublished(ctx context.Context, rd *ctxutil.RequestData, report *types.Report) {
	if s.emailService == nil {
		return
	}
	company, err := s.companyRepo.GetByID(ctx, nil, rd.CompanyID)
	if err != nil || company == nil || !company.EmailNotifications {
		return
	}
	subject := fmt.Sprintf("Your %d carbon report is live", report.ReportingYear)
	body := fmt.Sprintf("The report %q has been published and can now be shared with its link.", report.Title)
	if err := s.emailService.Send(ctx, rd.Email, subject, body); err != nil {
		s.log.Warn("Could not send publish notification", "report_id", report.ID, "error", err)
	}
}

func (s *reportService) GetPublic(ctx context.Context, shareToken string) (*PublicReport, error) {
	ctx = ctxutil.Default(ctx)

	report, err := s.reportRepo.GetByShareToken(ctx, nil, shareToken)
	if err != nil {
		return nil, fmt.Errorf("error fetching report: %w", err)
	}
	if report == nil || report.Status != types.ReportPublished {
		return nil, fmt.Errorf("report not found: %w", apperrors.ErrNotFound)
	}

	var snapshot ReportSnapshot
	if len(report.ContentSnapshot) > 0 {
		if err := json.Unmarshal(report.ContentSnapshot, &snapshot); err != nil {
			return nil, fmt.Errorf("error decoding report snapshot: %w", err)
		}
	}

	companyName := "Unknown"
	if report.CompanyNameSnapshot != nil {
		companyName = *report.CompanyNameSnapshot
	}
	scope3Breakdown := snapshot.Scope3Breakdown
	if scope3Breakdown == nil {
		scope3Breakdown = map[string]decimal.Decimal{}
	}

	return &PublicReport{
		CompanyName:      companyName,
		ReportingYear:    report.ReportingYear,
		TotalCO2e:        report.TotalKgCO2e,
		ExecutiveSummary: snapshot.ExecutiveSummary,
		ScopeBreakdown: map[string]decimal.Decimal{
			"scope_1": snapshot.Scope1KgCO2e,
			"scope_2": snapshot.Scope2KgCO2e,
			"scope_3": snapshot.Scope3KgCO2e,
		},
		Scope3Breakdown: scope3Breakdown,
	}, nil
}

// Chart renders the monthly trend chart for a report from its frozen
// snapshot, so the download always matches the numbers in the report.
func (s *reportService) Chart(ctx context.Context, reportID uuid.UUID) ([]byte, *types.Report, error) {
	ctx = ctxutil.Default(ctx)

	report, err := s.Get(ctx, reportID)
	if err != nil {
		return nil, nil, err
	}
	if s.chartService == nil {
		return nil, nil, fmt.Errorf("chart rendering is not available")
	}

	var snapshot ReportSnapshot
	if len(report.ContentSnapshot) > 0 {
		if err := json.Unmarshal(report.ContentSnapshot, &snapshot); err != nil {
			return nil, nil, fmt.Errorf("error decoding report snapshot: %w", err)
		}
	}

	companyName := ""
	if report.CompanyNameSnapshot != nil {
		companyName = *report.CompanyNameSnapshot
	}
	png, err := s.chartService.RenderMonthlyTrend(companyName, report.ReportingYear, snapshot.MonthlyBreakdown)
	if err != nil {
		return nil, nil, fmt.Errorf("error rendering report chart: %w", err)
	}
	return png, report, nil
}

// ChartURL resolves the stored chart key to a public URL, nil when absent.
func (s *reportService) ChartURL(report *types.Report) *string {
	if s.bucket == nil || report == nil || report.ChartObjectKey == nil {
		return nil
	}
	url := s.bucket.GetPublicURL(*report.ChartObjectKey)
	return &url
}

func buildReportSnapshot(companyName string, reportingYear int, annualRows, monthlyRows []*types.EmissionsSummary) (*ReportSnapshot, decimal.Decimal) {
	total := decimal.Zero
	scope1 := decimal.Zero
	scope2 := decimal.Zero
	scope3 := decimal.Zero
	scope3Breakdown := map[string]decimal.Decimal{}

	for _, row := range annualRows {
		total = total.Add(row.TotalKgCO2e)
		switch row.Scope {
		case types.Scope1:
			scope1 = scope1.Add(row.TotalKgCO2e)
		case types.Scope2:
			scope2 = scope2.Add(row.TotalKgCO2e)
		case types.Scope3:
			scope3 = scope3.Add(row.TotalKgCO2e)
			if row.Scope3Category != nil {
				scope3Breakdown[*row.Scope3Category] = scope3Breakdown[*row.Scope3Category].Add(row.TotalKgCO2e)
			}
		}
	}

	executiveSummary := fmt.Sprintf(
		"This carbon disclosure report presents %s's greenhouse gas (GHG) emissions for %d.\n"+
			"Total annual emissions: %s kg CO₂e (%s tCO₂e).\n\n"+
			"Scope 1 (direct emissions): %s kg CO₂e\n"+
			"Scope 2 (indirect emissions from purchased energy): %s kg CO₂e\n"+
			"Scope 3 (other indirect emissions): %s kg CO₂e\n\n"+
			"This report follows the GHG Protocol Corporate Standard and is suitable for enterprise procurement and vendor onboarding processes.",
		companyName, reportingYear,
		total.StringFixed(2), total.Div(decimal.NewFromInt(1000)).RoundBank(2).StringFixed(2),
		scope1.StringFixed(2), scope2.StringFixed(2), scope3.StringFixed(2),
	)

	snapshot := &ReportSnapshot{
		ExecutiveSummary: executiveSummary,
		Scope1KgCO2e:     scope1,
		Scope2KgCO2e:     scope2,
		Scope3KgCO2e:     scope3,
		Scope3Breakdown:  scope3Breakdown,
		MethodologyNotes: "Emissions calculated using activity data multiplied by emission factors. " +
			"Activity data sources include connected cloud providers, AI-estimated values, and manual entries. " +
			"Each estimate tracks data quality (measured/estimated/manual), assumptions, and confidence scores.",
		AssumptionsLimitations: "Emission factors are sourced from recognized databases (EPA, DEFRA, provider-specific factors). " +
			"Scope 3 coverage is limited to cloud services, travel, remote work, commuting, and purchased services. " +
			"Some estimates may be based on industry benchmarks.",
		EmissionFactorCitations: []FactorCitation{
			{Source: "EPA", URLOrRef: "EPA Emission Factors Hub"},
			{Source: "DEFRA", URLOrRef: "UK Government Conversion Factors"},
			{Source: "Cloud Providers", URLOrRef: "AWS/GCP/Azure sustainability reports"},
		},
		MonthlyBreakdown: buildMonthlyTrend(monthlyRows),
	}
	return snapshot, total
}

// newShareToken mints a 32-byte URL-safe token.
func newShareToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("error generating share token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
