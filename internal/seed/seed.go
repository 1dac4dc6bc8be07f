// Package seed provisions the local development dataset: the emission
// factor catalog, a demo company and user, and a year of activity data.
package seed

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/verdelo/carbonledger-backend/internal/data/repos"
	types "github.com/verdelo/carbonledger-backend/internal/domain"
	"github.com/verdelo/carbonledger-backend/internal/emissions"
	"github.com/verdelo/carbonledger-backend/internal/pkg/ctxutil"
	"github.com/verdelo/carbonledger-backend/internal/pkg/logger"
	"github.com/verdelo/carbonledger-backend/internal/services"
)

const (
	factorCatalogEnv = "FACTOR_CATALOG_YAML"

	// DemoEmail and DemoPassword are the dev login Run creates.
	DemoEmail    = "test@carbonly.com"
	DemoPassword = "password123"

	sandboxEmail      = "demo@carbonly.com"
	sandboxPassword   = "demo1234"
	sandboxShareToken = "demo-share-token"
)

//go:embed factors.yaml
var factorCatalogFS embed.FS

type yamlFactorCatalog struct {
	Catalog string       `yaml:"catalog"`
	Factors []yamlFactor `yaml:"factors"`
}

type yamlFactor struct {
	Name           string `yaml:"name"`
	ActivityType   string `yaml:"activity_type"`
	FactorValue    string `yaml:"factor_value"`
	Unit           string `yaml:"unit"`
	Scope          int    `yaml:"scope"`
	Scope3Category string `yaml:"scope_3_category"`
	SourceCitation string `yaml:"source_citation"`
	Region         string `yaml:"region"`
	ValidFrom      string `yaml:"valid_from"`
	ValidTo        string `yaml:"valid_to"`
}

// LoadFactorCatalog reads the embedded factor catalog, or the file named
// by FACTOR_CATALOG_YAML when set.
func LoadFactorCatalog() ([]*types.EmissionFactor, error) {
	data, err := readFactorCatalog()
	if err != nil {
		return nil, fmt.Errorf("error reading factor catalog: %w", err)
	}

	var catalog yamlFactorCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("error parsing factor catalog: %w", err)
	}
	if strings.TrimSpace(catalog.Catalog) != "emission_factors" {
		return nil, fmt.Errorf("unexpected catalog: %s", catalog.Catalog)
	}
	if len(catalog.Factors) == 0 {
		return nil, fmt.Errorf("factor catalog is empty")
	}

	factors := make([]*types.EmissionFactor, 0, len(catalog.Factors))
	for i, entry := range catalog.Factors {
		factor, err := buildFactor(entry)
		if err != nil {
			return nil, fmt.Errorf("factor catalog entry %d (%s): %w", i+1, entry.Name, err)
		}
		factors = append(factors, factor)
	}
	return factors, nil
}

func readFactorCatalog() ([]byte, error) {
	if path := strings.TrimSpace(os.Getenv(factorCatalogEnv)); path != "" {
		return os.ReadFile(path)
	}
	return factorCatalogFS.ReadFile("factors.yaml")
}

func buildFactor(entry yamlFactor) (*types.EmissionFactor, error) {
	if strings.TrimSpace(entry.Name) == "" {
		return nil, fmt.Errorf("name is required")
	}
	if strings.TrimSpace(entry.ActivityType) == "" {
		return nil, fmt.Errorf("activity_type is required")
	}
	if strings.TrimSpace(entry.Unit) == "" {
		return nil, fmt.Errorf("unit is required")
	}
	if entry.Scope < 1 || entry.Scope > 3 {
		return nil, fmt.Errorf("scope must be 1, 2, or 3")
	}

	value, err := decimal.NewFromString(strings.TrimSpace(entry.FactorValue))
	if err != nil {
		return nil, fmt.Errorf("factor_value must be a number: %w", err)
	}

	factor := &types.EmissionFactor{
		ID:             uuid.New(),
		Name:           entry.Name,
		ActivityType:   entry.ActivityType,
		FactorValue:    value,
		Unit:           entry.Unit,
		Scope:          entry.Scope,
		Scope3Category: optionalYAMLString(entry.Scope3Category),
		SourceCitation: optionalYAMLString(entry.SourceCitation),
		Region:         optionalYAMLString(entry.Region),
	}

	if factor.ValidFrom, err = optionalYAMLDate(entry.ValidFrom); err != nil {
		return nil, fmt.Errorf("valid_from: %w", err)
	}
	if factor.ValidTo, err = optionalYAMLDate(entry.ValidTo); err != nil {
		return nil, fmt.Errorf("valid_to: %w", err)
	}
	return factor, nil
}

func optionalYAMLString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func optionalYAMLDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("must be a YYYY-MM-DD date")
	}
	return &t, nil
}

// Seeder writes the development dataset inside one transaction.
type Seeder struct {
	db           *gorm.DB
	log          *logger.Logger
	userRepo     repos.UserRepo
	companyRepo  repos.CompanyRepo
	factorRepo   repos.FactorRepo
	activityRepo repos.ActivityRepo
	reportRepo   repos.ReportRepo
	authService  services.AuthService
	engine       *emissions.Engine
	environment  string
}

func New(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo, companyRepo repos.CompanyRepo, factorRepo repos.FactorRepo, activityRepo repos.ActivityRepo, reportRepo repos.ReportRepo, authService services.AuthService, engine *emissions.Engine, environment string) *Seeder {
	return &Seeder{
		db:           db,
		log:          log.With("component", "Seeder"),
		userRepo:     userRepo,
		companyRepo:  companyRepo,
		factorRepo:   factorRepo,
		activityRepo: activityRepo,
		reportRepo:   reportRepo,
		authService:  authService,
		engine:       engine,
		environment:  environment,
	}
}

// Run is idempotent: factors seed only when the table is empty, the demo
// user is reused when present, and activities seed only when the company
// has none.
func (s *Seeder) Run(ctx context.Context) error {
	ctx = ctxutil.Default(ctx)

	if s.environment == "production" {
		return fmt.Errorf("refusing to seed data in production environment")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.seedFactors(ctx, tx); err != nil {
			return err
		}

		company, err := s.ensureDemoCompany(ctx, tx)
		if err != nil {
			return err
		}

		seeded, err := s.seedActivities(ctx, tx, company)
		if err != nil {
			return err
		}
		if !seeded {
			s.log.Info("Activity data already present, skipping", "company_id", company.ID)
		}

		if _, err := s.engine.RecomputeInTx(ctx, tx, company.ID, company.ReportingYear, nil, nil, emissions.ModeReplace); err != nil {
			return fmt.Errorf("error recomputing seeded data: %w", err)
		}

		if err := s.ensureDemoSandbox(ctx, tx); err != nil {
			return err
		}

		s.log.Info("Seed complete", "email", DemoEmail, "company_id", company.ID)
		return nil
	})
}

// ensureDemoSandbox provisions the shared read-only demo account. Its user
// carries is_demo, which the API uses to reject writes.
func (s *Seeder) ensureDemoSandbox(ctx context.Context, tx *gorm.DB) error {
	user, err := s.userRepo.GetByEmail(ctx, tx, sandboxEmail)
	if err != nil {
		return fmt.Errorf("error fetching sandbox user: %w", err)
	}
	if user != nil {
		return nil
	}

	onboarding, err := json.Marshal(map[string]bool{
		"connect_aws":         true,
		"upload_csv":          true,
		"add_manual_activity": true,
		"create_report":       true,
	})
	if err != nil {
		return fmt.Errorf("error encoding onboarding state: %w", err)
	}

	industry := "SaaS"
	employees := 42
	hq := "Remote"
	company := &types.Company{
		ID:                    uuid.New(),
		Name:                  "Carbonly Demo Co.",
		Industry:              &industry,
		EmployeeCount:         &employees,
		HQLocation:            &hq,
		ReportingYear:         2025,
		EmailNotifications:    false,
		MonthlySummaryReports: false,
		UnitSystem:            "metric_tco2e",
		OnboardingState:       datatypes.JSON(onboarding),
		Plan:                  types.PlanDemo,
	}
	if _, err := s.companyRepo.Create(ctx, tx, []*types.Company{company}); err != nil {
		return fmt.Errorf("error creating sandbox company: %w", err)
	}

	hash, err := s.authService.HashPassword(sandboxPassword)
	if err != nil {
		return fmt.Errorf("error hashing sandbox password: %w", err)
	}
	fullName := "Demo User"
	sandboxUser := &types.User{
		ID:           uuid.New(),
		Email:        sandboxEmail,
		PasswordHash: &hash,
		FullName:     &fullName,
		CompanyID:    company.ID,
		IsActive:     true,
		IsDemo:       true,
	}
	if _, err := s.userRepo.Create(ctx, tx, []*types.User{sandboxUser}); err != nil {
		return fmt.Errorf("error creating sandbox user: %w", err)
	}

	companyName := company.Name
	token := sandboxShareToken
	now := time.Now()
	report := &types.Report{
		ID:                  uuid.New(),
		CompanyID:           company.ID,
		CreatedByUserID:     sandboxUser.ID,
		Title:               "Demo Carbon Disclosure",
		CompanyNameSnapshot: &companyName,
		ReportingYear:       company.ReportingYear,
		TotalKgCO2e:         decimal.Zero,
		Status:              types.ReportPublished,
		ShareableToken:      &token,
		ContentSnapshot:     datatypes.JSON([]byte("{}")),
		GeneratedAt:         &now,
		PublishedAt:         &now,
	}
	if _, err := s.reportRepo.Create(ctx, tx, []*types.Report{report}); err != nil {
		return fmt.Errorf("error creating sandbox report: %w", err)
	}

	s.log.Info("Created demo sandbox", "email", sandboxEmail)
	return nil
}

func (s *Seeder) seedFactors(ctx context.Context, tx *gorm.DB) error {
	count, err := s.factorRepo.Count(ctx, tx)
	if err != nil {
		return fmt.Errorf("error counting emission factors: %w", err)
	}
	if count > 0 {
		return nil
	}

	factors, err := LoadFactorCatalog()
	if err != nil {
		return err
	}
	if _, err := s.factorRepo.Create(ctx, tx, factors); err != nil {
		return fmt.Errorf("error seeding emission factors: %w", err)
	}
	s.log.Info("Seeded emission factors", "count", len(factors))
	return nil
}

func (s *Seeder) ensureDemoCompany(ctx context.Context, tx *gorm.DB) (*types.Company, error) {
	user, err := s.userRepo.GetByEmail(ctx, tx, DemoEmail)
	if err != nil {
		return nil, fmt.Errorf("error fetching demo user: %w", err)
	}
	if user != nil {
		s.log.Info("Demo user already exists", "email", DemoEmail)
		company, err := s.companyRepo.GetByID(ctx, tx, user.CompanyID)
		if err != nil {
			return nil, fmt.Errorf("error fetching demo company: %w", err)
		}
		if company == nil {
			return nil, fmt.Errorf("demo user exists but company not found")
		}
		return company, nil
	}

	onboarding, err := json.Marshal(map[string]bool{
		"connect_aws":         false,
		"upload_csv":          false,
		"add_manual_activity": false,
		"create_report":       false,
	})
	if err != nil {
		return nil, fmt.Errorf("error encoding onboarding state: %w", err)
	}

	industry := "B2B SaaS"
	employees := 85
	hq := "San Francisco, CA"
	company := &types.Company{
		ID:                    uuid.New(),
		Name:                  "Carbonly Demo Co",
		Industry:              &industry,
		EmployeeCount:         &employees,
		HQLocation:            &hq,
		ReportingYear:         2025,
		EmailNotifications:    true,
		MonthlySummaryReports: true,
		UnitSystem:            "metric_tco2e",
		OnboardingState:       datatypes.JSON(onboarding),
		Plan:                  types.PlanDemo,
	}
	if _, err := s.companyRepo.Create(ctx, tx, []*types.Company{company}); err != nil {
		return nil, fmt.Errorf("error creating demo company: %w", err)
	}

	hash, err := s.authService.HashPassword(DemoPassword)
	if err != nil {
		return nil, fmt.Errorf("error hashing demo password: %w", err)
	}
	fullName := "Demo User"
	demoUser := &types.User{
		ID:           uuid.New(),
		Email:        DemoEmail,
		PasswordHash: &hash,
		FullName:     &fullName,
		CompanyID:    company.ID,
		IsActive:     true,
	}
	if _, err := s.userRepo.Create(ctx, tx, []*types.User{demoUser}); err != nil {
		return nil, fmt.Errorf("error creating demo user: %w", err)
	}

	s.log.Info("Created demo company and user", "email", DemoEmail)
	return company, nil
}

// seedActivities writes twelve months of cloud compute and storage usage
// with a gentle upward trend so charts have a shape.
func (s *Seeder) seedActivities(ctx context.Context, tx *gorm.DB, company *types.Company) (bool, error) {
	existing, err := s.activityRepo.ListByCompany(ctx, tx, company.ID)
	if err != nil {
		return false, fmt.Errorf("error listing activity records: %w", err)
	}
	if len(existing) > 0 {
		return false, nil
	}

	year := company.ReportingYear
	assumptions := "Seeded demo data"
	confidence := decimal.NewFromFloat(75.0)
	category := "cloud"

	records := make([]*types.ActivityRecord, 0, 24)
	for month := 1; month <= 12; month++ {
		periodStart := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		periodEnd := time.Date(year, time.Month(month), 28, 0, 0, 0, 0, time.UTC)

		records = append(records, &types.ActivityRecord{
			ID:              uuid.New(),
			CompanyID:       company.ID,
			Scope:           types.Scope3,
			Scope3Category:  &category,
			ActivityType:    "cloud_compute_hours",
			Quantity:        decimal.NewFromInt(800).Add(decimal.NewFromInt(int64(month * 10))),
			Unit:            "hours",
			PeriodStart:     periodStart,
			PeriodEnd:       periodEnd,
			DataQuality:     types.QualityEstimated,
			Assumptions:     &assumptions,
			ConfidenceScore: &confidence,
		})
		records = append(records, &types.ActivityRecord{
			ID:              uuid.New(),
			CompanyID:       company.ID,
			Scope:           types.Scope3,
			Scope3Category:  &category,
			ActivityType:    "cloud_storage_gb_months",
			Quantity:        decimal.NewFromInt(500).Add(decimal.NewFromInt(int64(month * 5))),
			Unit:            "GB-months",
			PeriodStart:     periodStart,
			PeriodEnd:       periodEnd,
			DataQuality:     types.QualityEstimated,
			Assumptions:     &assumptions,
			ConfidenceScore: &confidence,
		})
	}

	if _, err := s.activityRepo.Create(ctx, tx, records); err != nil {
		return false, fmt.Errorf("error seeding activity records: %w", err)
	}
	s.log.Info("Seeded activity records", "count", len(records), "year", year)
	return true, nil
}
