package services

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/verdelo/carbonledger-backend/internal/clients/gcs"
	"github.com/verdelo/carbonledger-backend/internal/data/repos"
	types "github.com/verdelo/carbonledger-backend/internal/domain"
	"github.com/verdelo/carbonledger-backend/internal/emissions"
	"github.com/verdelo/carbonledger-backend/internal/observability"
	"github.com/verdelo/carbonledger-backend/internal/pkg/ctxutil"
	apperrors "github.com/verdelo/carbonledger-backend/internal/pkg/errors"
	"github.com/verdelo/carbonledger-backend/internal/pkg/logger"
)

// cloudProviders are the connections every company gets by default.
var cloudProviders = map[string]string{
	"aws":   "AWS",
	"gcp":   "GCP",
	"azure": "Azure",
}

// SyncResult is the response body of a provider sync.
type SyncResult struct {
	Status            string `json:"status"`
	ActivitiesCreated int    `json:"activities_created"`
}

// EstimateResult is the response body of a provider AI estimate.
type EstimateResult struct {
	Status          string `json:"status"`
	ActivityCreated bool   `json:"activity_created"`
}

// ManualActivityInput is one user-entered activity observation. Dates are
// YYYY-MM-DD strings, parsed and validated here.
type ManualActivityInput struct {
	Scope           int              `json:"scope"`
	Scope3Category  *string          `json:"scope_3_category"`
	ActivityType    string           `json:"activity_type"`
	Quantity        decimal.Decimal  `json:"quantity"`
	Unit            string           `json:"unit"`
	PeriodStart     string           `json:"period_start"`
	PeriodEnd       string           `json:"period_end"`
	DataQuality     string           `json:"data_quality"`
	Assumptions     *string          `json:"assumptions"`
	ConfidenceScore *decimal.Decimal `json:"confidence_score"`
}

// CSVUploadResult reports a bulk upload: rows inserted plus per-row errors.
type CSVUploadResult struct {
	Inserted int           `json:"inserted"`
	Errors   []CSVRowError `json:"errors"`
}

type IntegrationService interface {
	List(ctx context.Context) ([]*types.DataSourceConnection, error)
	Sync(ctx context.Context, provider string) (*SyncResult, error)
	SyncAll(ctx context.Context) (map[string]*SyncResult, error)
	Estimate(ctx context.Context, provider string) (*EstimateResult, error)
	CreateManualActivity(ctx context.Context, input ManualActivityInput) (*types.ActivityRecord, error)
	UploadCSV(ctx context.Context, content []byte) (*CSVUploadResult, error)
}

type integrationService struct {
	db             *gorm.DB
	log            *logger.Logger
	companyRepo    repos.CompanyRepo
	connectionRepo repos.ConnectionRepo
	activityRepo   repos.ActivityRepo
	engine         *emissions.Engine
	auditService   AuditService
	bucket         gcs.BucketService
}

// NewIntegrationService wires provider sync and manual ingestion. bucket may
// be nil; uploaded CSV files are then not archived.
func NewIntegrationService(db *gorm.DB, log *logger.Logger, companyRepo repos.CompanyRepo, connectionRepo repos.ConnectionRepo, activityRepo repos.ActivityRepo, engine *emissions.Engine, auditService AuditService, bucket gcs.BucketService) IntegrationService {
	serviceLog := log.With("service", "IntegrationService")
	return &integrationService{
		db:             db,
		log:            serviceLog,
		companyRepo:    companyRepo,
		connectionRepo: connectionRepo,
		activityRepo:   activityRepo,
		engine:         engine,
		auditService:   auditService,
		bucket:         bucket,
	}
}

// List returns the company's connections, materializing the default cloud
// providers on first read so the UI always has something to show.
func (s *integrationService) List(ctx context.Context) ([]*types.DataSourceConnection, error) {
	ctx = ctxutil.Default(ctx)
	rd, err := requireRequestData(ctx)
	if err != nil {
		return nil, err
	}

	connections, err := s.connectionRepo.GetByCompany(ctx, nil, rd.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("error fetching connections: %w", err)
	}

	existing := make(map[string]bool, len(connections))
	for _, conn := range connections {
		existing[conn.SourceType] = true
	}

	var missing []*types.DataSourceConnection
	for sourceType, displayName := range cloudProviders {
		if existing[sourceType] {
			continue
		}
		missing = append(missing, &types.DataSourceConnection{
			ID:          uuid.New(),
			CompanyID:   rd.CompanyID,
			SourceType:  sourceType,
			DisplayName: displayName,
			Status:      types.ConnectionNotConnected,
		})
	}
	if len(missing) > 0 {
		if _, err := s.connectionRepo.Create(ctx, nil, missing); err != nil {
			return nil, fmt.Errorf("error creating default connections: %w", err)
		}
		connections = append(connections, missing...)
		sort.Slice(connections, func(i, j int) bool {
			return connections[i].SourceType < connections[j].SourceType
		})
	}

	return connections, nil
}

// Sync pulls usage from the provider (mocked as one year of cloud usage),
// records it as measured activities once per reporting year, and recomputes.
func (s *integrationService) Sync(ctx context.Context, provider string) (*SyncResult, error) {
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

	// The provider call happens before the transaction opens so a slow
	// upstream never holds row locks.
	usage, err := fetchProviderUsage(ctx, provider, company.ReportingYear)
	if err != nil {
		return nil, fmt.Errorf("error fetching %s usage: %w", provider, err)
	}

	return s.syncProvider(ctx, rd, company, provider, usage)
}

// SyncAll syncs every default provider. Provider fetches run concurrently;
// database writes stay sequential, one transaction per provider.
func (s *integrationService) SyncAll(ctx context.Context) (map[string]*SyncResult, error) {
	ctx = ctxutil.Default(ctx)
	rd, err := requireRequestData(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.List(ctx); err != nil {
		return nil, err
	}

	company, err := s.companyRepo.GetByID(ctx, nil, rd.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("error fetching company: %w", err)
	}
	if company == nil {
		return nil, fmt.Errorf("company not found: %w", apperrors.ErrNotFound)
	}

	providers := make([]string, 0, len(cloudProviders))
	for provider := range cloudProviders {
		providers = append(providers, provider)
	}
	sort.Strings(providers)

	var mu sync.Mutex
	usageByProvider := make(map[string][]providerUsageLine, len(providers))
	g, gctx := errgroup.WithContext(ctx)
	for _, provider := range providers {
		g.Go(func() error {
			usage, err := fetchProviderUsage(gctx, provider, company.ReportingYear)
			if err != nil {
				return fmt.Errorf("error fetching %s usage: %w", provider, err)
			}
			mu.Lock()
			usageByProvider[provider] = usage
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make(map[string]*SyncResult, len(providers))
	for _, provider := range providers {
		res, err := s.syncProvider(ctx, rd, company, provider, usageByProvider[provider])
		if err != nil {
			return nil, fmt.Errorf("error syncing %s: %w", provider, err)
		}
		results[provider] = res
	}
	return results, nil
}

func (s *integrationService) syncProvider(ctx context.Context, rd *ctxutil.RequestData, company *types.Company, provider string, usage []providerUsageLine) (*SyncResult, error) {
	year := company.ReportingYear

	var result *SyncResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		conn, err := s.connectionRepo.GetByCompanyAndSource(ctx, tx, rd.CompanyID, provider)
		if err != nil {
			return fmt.Errorf("error fetching connection: %w", err)
		}
		if conn == nil {
			return fmt.Errorf("integration not found: %w", apperrors.ErrNotFound)
		}

		// Syncing is how a user "connects" in the mock flow.
		if conn.Status != types.ConnectionConnected {
			if err := s.connectionRepo.UpdateFields(ctx, tx, conn.ID, map[string]interface{}{
				"status":     types.ConnectionConnected,
				"updated_at": time.Now(),
			}); err != nil {
				return fmt.Errorf("error updating connection status: %w", err)
			}
		}

		yearStart, yearEnd := reportingYearBounds(year)
		created := 0
		hasActivities, err := s.activityRepo.ExistsByConnectionPeriod(ctx, tx, rd.CompanyID, conn.ID, yearStart, yearEnd)
		if err != nil {
			return fmt.Errorf("error checking synced activities: %w", err)
		}
		if !hasActivities {
			records := buildUsageActivities(rd.CompanyID, conn.ID, usage, yearStart, yearEnd)
			if _, err := s.activityRepo.Create(ctx, tx, records); err != nil {
				return fmt.Errorf("error creating synced activities: %w", err)
			}
			if err := s.connectionRepo.UpdateFields(ctx, tx, conn.ID, map[string]interface{}{
				"last_synced_at": time.Now(),
				"updated_at":     time.Now(),
			}); err != nil {
				return fmt.Errorf("error stamping sync time: %w", err)
			}
			created = len(records)
		}

		if _, err := s.engine.RecomputeInTx(ctx, tx, rd.CompanyID, year, &yearStart, &yearEnd, emissions.ModeIncremental); err != nil {
			return fmt.Errorf("error recomputing emissions: %w", err)
		}

		_ = s.auditService.LogAction(ctx, tx, rd.UserID, rd.CompanyID, "integration_synced", "data_source_connection", &conn.ID)

		result = &SyncResult{Status: "synced", ActivitiesCreated: created}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Integration synced", "provider", provider, "company_id", rd.CompanyID, "activities_created", result.ActivitiesCreated)
	return result, nil
}

// Estimate marks the provider connection as AI-estimated and books one
// benchmark-derived activity for the reporting year.
func (s *integrationService) Estimate(ctx context.Context, provider string) (*EstimateResult, error) {
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
	year := company.ReportingYear

	var result *EstimateResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		conn, err := s.ensureConnection(ctx, tx, rd.CompanyID, provider, types.ConnectionAIEstimated)
		if err != nil {
			return err
		}
		if conn.Status != types.ConnectionAIEstimated {
			if err := s.connectionRepo.UpdateFields(ctx, tx, conn.ID, map[string]interface{}{
				"status":     types.ConnectionAIEstimated,
				"updated_at": time.Now(),
			}); err != nil {
				return fmt.Errorf("error updating connection status: %w", err)
			}
		}

		yearStart, yearEnd := reportingYearBounds(year)
		assumptions := "AI estimated based on company size and industry benchmarks"
		confidence := decimal.NewFromInt(70)
		category := "cloud"
		record := &types.ActivityRecord{
			ID:                     uuid.New(),
			CompanyID:              rd.CompanyID,
			DataSourceConnectionID: &conn.ID,
			Scope:                  types.Scope3,
			Scope3Category:         &category,
			ActivityType:           "cloud_compute_hours",
			Quantity:               decimal.NewFromInt(8000),
			Unit:                   "hours",
			PeriodStart:            yearStart,
			PeriodEnd:              yearEnd,
			DataQuality:            types.QualityEstimated,
			Assumptions:            &assumptions,
			ConfidenceScore:        &confidence,
		}
		if _, err := s.activityRepo.Create(ctx, tx, []*types.ActivityRecord{record}); err != nil {
			return fmt.Errorf("error creating estimated activity: %w", err)
		}

		if _, err := s.engine.RecomputeInTx(ctx, tx, rd.CompanyID, year, &yearStart, &yearEnd, emissions.ModeIncremental); err != nil {
			return fmt.Errorf("error recomputing emissions: %w", err)
		}

		_ = s.auditService.LogAction(ctx, tx, rd.UserID, rd.CompanyID, "integration_estimated", "data_source_connection", &conn.ID)

		result = &EstimateResult{Status: "estimated", ActivityCreated: true}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Integration estimated", "provider", provider, "company_id", rd.CompanyID)
	return result, nil
}

// CreateManualActivity books one user-entered observation and recomputes
// across the full history, since a manual entry may land in any period.
func (s *integrationService) CreateManualActivity(ctx context.Context, input ManualActivityInput) (*types.ActivityRecord, error) {
	ctx = ctxutil.Default(ctx)
	rd, err := requireRequestData(ctx)
	if err != nil {
		return nil, err
	}

	record, err := s.buildManualActivity(rd.CompanyID, input)
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

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.activityRepo.Create(ctx, tx, []*types.ActivityRecord{record}); err != nil {
			return fmt.Errorf("error creating activity record: %w", err)
		}
		if _, err := s.engine.RecomputeInTx(ctx, tx, rd.CompanyID, company.ReportingYear, nil, nil, emissions.ModeIncremental); err != nil {
			return fmt.Errorf("error recomputing emissions: %w", err)
		}
		_ = s.auditService.LogAction(ctx, tx, rd.UserID, rd.CompanyID, "manual_activity_created", "activity_record", &record.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Manual activity created", "company_id", rd.CompanyID, "activity_type", record.ActivityType)
	return record, nil
}

// UploadCSV inserts the valid rows of a bulk upload and recomputes once.
// Row errors come back alongside the insert count; they never fail the call.
func (s *integrationService) UploadCSV(ctx context.Context, content []byte) (*CSVUploadResult, error) {
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

	rows, rowErrors := ParseActivityRows(content)
	result := &CSVUploadResult{Errors: rowErrors}
	if result.Errors == nil {
		result.Errors = []CSVRowError{}
	}
	if len(rows) == 0 {
		return result, nil
	}

	records := make([]*types.ActivityRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, &types.ActivityRecord{
			ID:              uuid.New(),
			CompanyID:       rd.CompanyID,
			Scope:           row.Scope,
			Scope3Category:  row.Scope3Category,
			ActivityType:    row.ActivityType,
			Quantity:        row.Quantity,
			Unit:            row.Unit,
			PeriodStart:     row.PeriodStart,
			PeriodEnd:       row.PeriodEnd,
			DataQuality:     row.DataQuality,
			Assumptions:     row.Assumptions,
			ConfidenceScore: row.ConfidenceScore,
		})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.activityRepo.Create(ctx, tx, records); err != nil {
			return fmt.Errorf("error creating activity records: %w", err)
		}
		if _, err := s.engine.RecomputeInTx(ctx, tx, rd.CompanyID, company.ReportingYear, nil, nil, emissions.ModeIncremental); err != nil {
			return fmt.Errorf("error recomputing emissions: %w", err)
		}
		_ = s.auditService.LogAction(ctx, tx, rd.UserID, rd.CompanyID, "manual_csv_uploaded", "activity_record", nil)
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Inserted = len(records)
	s.archiveCSV(ctx, rd.CompanyID, content)
	observability.Current().ObserveCSVUpload(result.Inserted, len(result.Errors))
	s.log.Info("CSV upload processed", "company_id", rd.CompanyID, "inserted", result.Inserted, "row_errors", len(result.Errors))
	return result, nil
}

func (s *integrationService) ensureConnection(ctx context.Context, tx *gorm.DB, companyID uuid.UUID, provider, status string) (*types.DataSourceConnection, error) {
	conn, err := s.connectionRepo.GetByCompanyAndSource(ctx, tx, companyID, provider)
	if err != nil {
		return nil, fmt.Errorf("error fetching connection: %w", err)
	}
	if conn != nil {
		return conn, nil
	}

	displayName, ok := cloudProviders[provider]
	if !ok {
		displayName = strings.ToUpper(provider)
	}
	conn = &types.DataSourceConnection{
		ID:          uuid.New(),
		CompanyID:   companyID,
		SourceType:  provider,
		DisplayName: displayName,
		Status:      status,
	}
	if _, err := s.connectionRepo.Create(ctx, tx, []*types.DataSourceConnection{conn}); err != nil {
		return nil, fmt.Errorf("error creating connection: %w", err)
	}
	return conn, nil
}

func (s *integrationService) buildManualActivity(companyID uuid.UUID, input ManualActivityInput) (*types.ActivityRecord, error) {
	if input.Scope != 1 && input.Scope != 2 && input.Scope != 3 {
		return nil, fmt.Errorf("scope must be 1, 2, or 3: %w", apperrors.ErrInvalidArgument)
	}
	if strings.TrimSpace(input.ActivityType) == "" {
		return nil, fmt.Errorf("activity_type is required: %w", apperrors.ErrInvalidArgument)
	}
	if strings.TrimSpace(input.Unit) == "" {
		return nil, fmt.Errorf("unit is required: %w", apperrors.ErrInvalidArgument)
	}
	if input.Quantity.IsNegative() {
		return nil, fmt.Errorf("quantity must not be negative: %w", apperrors.ErrInvalidArgument)
	}

	periodStart, err := time.Parse("2006-01-02", input.PeriodStart)
	if err != nil {
		return nil, fmt.Errorf("period_start must be a YYYY-MM-DD date: %w", apperrors.ErrInvalidArgument)
	}
	periodEnd, err := time.Parse("2006-01-02", input.PeriodEnd)
	if err != nil {
		return nil, fmt.Errorf("period_end must be a YYYY-MM-DD date: %w", apperrors.ErrInvalidArgument)
	}
	if periodEnd.Before(periodStart) {
		return nil, fmt.Errorf("period_end must not be before period_start: %w", apperrors.ErrInvalidArgument)
	}

	quality := input.DataQuality
	if quality == "" {
		quality = types.QualityManual
	}

	return &types.ActivityRecord{
		ID:              uuid.New(),
		CompanyID:       companyID,
		Scope:           input.Scope,
		Scope3Category:  input.Scope3Category,
		ActivityType:    strings.TrimSpace(input.ActivityType),
		Quantity:        input.Quantity,
		Unit:            strings.TrimSpace(input.Unit),
		PeriodStart:     periodStart,
		PeriodEnd:       periodEnd,
		DataQuality:     quality,
		Assumptions:     input.Assumptions,
		ConfidenceScore: input.ConfidenceScore,
	}, nil
}

// providerUsageLine is one metered quantity from a provider usage API.
type providerUsageLine struct {
	activityType string
	quantity     decimal.Decimal
	unit         string
}

// fetchProviderUsage stands in for the provider billing/usage API. Every
// provider currently reports the same mock shape: a year of compute hours
// and storage.
func fetchProviderUsage(ctx context.Context, provider string, year int) ([]providerUsageLine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []providerUsageLine{
		{activityType: "cloud_compute_hours", quantity: decimal.NewFromInt(10000), unit: "hours"},
		{activityType: "cloud_storage_gb_months", quantity: decimal.NewFromInt(5000), unit: "GB-months"},
	}, nil
}

func buildUsageActivities(companyID, connectionID uuid.UUID, usage []providerUsageLine, periodStart, periodEnd time.Time) []*types.ActivityRecord {
	assumptions := "Mock data from provider API"
	records := make([]*types.ActivityRecord, 0, len(usage))
	for _, line := range usage {
		confidence := decimal.NewFromInt(95)
		category := "cloud"
		records = append(records, &types.ActivityRecord{
			ID:                     uuid.New(),
			CompanyID:              companyID,
			DataSourceConnectionID: &connectionID,
			Scope:                  types.Scope3,
			Scope3Category:         &category,
			ActivityType:           line.activityType,
			Quantity:               line.quantity,
			Unit:                   line.unit,
			PeriodStart:            periodStart,
			PeriodEnd:              periodEnd,
			DataQuality:            types.QualityMeasured,
			Assumptions:            &assumptions,
			ConfidenceScore:        &confidence,
		})
	}
	return records
}

// reportingYearBounds returns Jan 1 and Dec 31 of the year, UTC.
func reportingYearBounds(year int) (time.Time, time.Time) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	return start, end
}

// requireRequestData pulls the authed identity every mutation needs.
// archiveCSV keeps the raw upload for provenance. Archive failures only
// warn; the rows are already committed.
func (s *integrationService) archiveCSV(ctx context.Context, companyID uuid.UUID, content []byte) {
	if s.bucket == nil {
		return
	}
	key := fmt.Sprintf("csv_uploads/%s/%d.csv", companyID, time.Now().UnixNano())
	if err := s.bucket.UploadFile(ctx, key, bytes.NewReader(content)); err != nil {
		s.log.Warn("Could not archive uploaded CSV", "company_id", companyID, "error", err)
		return
	}
	s.log.Debug("Archived uploaded CSV", "company_id", companyID, "key", key)
}

func requireRequestData(ctx context.Context) (*ctxutil.RequestData, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil || rd.CompanyID == uuid.Nil {
		return nil, fmt.Errorf("request data not set in context: %w", apperrors.ErrUnauthorized)
	}
	return rd, nil
}
