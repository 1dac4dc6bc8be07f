package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/verdelo/carbonledger-backend/internal/data/repos"
	types "github.com/verdelo/carbonledger-backend/internal/domain"
	"github.com/verdelo/carbonledger-backend/internal/pkg/ctxutil"
	apperrors "github.com/verdelo/carbonledger-backend/internal/pkg/errors"
	"github.com/verdelo/carbonledger-backend/internal/pkg/logger"
)

// CompanyProfileUpdate carries the editable profile fields. Nil means leave
// the current value alone.
type CompanyProfileUpdate struct {
	Name          *string `json:"name"`
	Industry      *string `json:"industry"`
	EmployeeCount *int    `json:"employee_count"`
	HQLocation    *string `json:"hq_location"`
	ReportingYear *int    `json:"reporting_year"`
}

// CompanyPreferencesUpdate carries the notification and unit preferences.
type CompanyPreferencesUpdate struct {
	EmailNotifications    *bool   `json:"email_notifications"`
	MonthlySummaryReports *bool   `json:"monthly_summary_reports"`
	UnitSystem            *string `json:"unit_system"`
}

// OnboardingState tracks the four setup steps the app walks new companies
// through. Missing keys read as not done.
type OnboardingState struct {
	ConnectAWS        bool `json:"connect_aws"`
	UploadCSV         bool `json:"upload_csv"`
	AddManualActivity bool `json:"add_manual_activity"`
	CreateReport      bool `json:"create_report"`
}

// OnboardingUpdate carries partial step updates. Nil leaves a step alone.
type OnboardingUpdate struct {
	ConnectAWS        *bool `json:"connect_aws"`
	UploadCSV         *bool `json:"upload_csv"`
	AddManualActivity *bool `json:"add_manual_activity"`
	CreateReport      *bool `json:"create_report"`
}

// Onboarding is the read shape for both the GET and PUT endpoints.
type Onboarding struct {
	Completed bool            `json:"completed"`
	State     OnboardingState `json:"state"`
}

type CompanyService interface {
	Get(ctx context.Context, companyID uuid.UUID) (*types.Company, error)
	UpdateProfile(ctx context.Context, companyID uuid.UUID, update CompanyProfileUpdate) (*types.Company, error)
	UpdatePreferences(ctx context.Context, companyID uuid.UUID, update CompanyPreferencesUpdate) (*types.Company, error)
	GetOnboarding(ctx context.Context, companyID uuid.UUID) (*Onboarding, error)
	UpdateOnboarding(ctx context.Context, companyID uuid.UUID, update OnboardingUpdate) (*Onboarding, error)
	PurgeData(ctx context.Context, companyID uuid.UUID) error
}

type companyService struct {
	db             *gorm.DB
	log            *logger.Logger
	companyRepo    repos.CompanyRepo
	connectionRepo repos.ConnectionRepo
	activityRepo   repos.ActivityRepo
	estimateRepo   repos.EstimateRepo
	summaryRepo    repos.SummaryRepo
	reportRepo     repos.ReportRepo
}

func NewCompanyService(db *gorm.DB, log *logger.Logger, companyRepo repos.CompanyRepo, connectionRepo repos.ConnectionRepo, activityRepo repos.ActivityRepo, estimateRepo repos.EstimateRepo, summaryRepo repos.SummaryRepo, reportRepo repos.ReportRepo) CompanyService {
	serviceLog := log.With("service", "CompanyService")
	return &companyService{
		db:             db,
		log:            serviceLog,
		companyRepo:    companyRepo,
		connectionRepo: connectionRepo,
		activityRepo:   activityRepo,
		estimateRepo:   estimateRepo,
		summaryRepo:    summaryRepo,
		reportRepo:     reportRepo,
	}
}

func (s *companyService) Get(ctx context.Context, companyID uuid.UUID) (*types.Company, error) {
	ctx = ctxutil.Default(ctx)
	company, err := s.companyRepo.GetByID(ctx, nil, companyID)
	if err != nil {
		return nil, fmt.Errorf("error fetching company: %w", err)
	}
	if company == nil {
		return nil, fmt.Errorf("company not found: %w", apperrors.ErrNotFound)
	}
	return company, nil
}

func (s *companyService) UpdateProfile(ctx context.Context, companyID uuid.UUID, update CompanyProfileUpdate) (*types.Company, error) {
	ctx = ctxutil.Default(ctx)

	updates := map[string]interface{}{}
	if update.Name != nil {
		updates["name"] = *update.Name
	}
	if update.Industry != nil {
		updates["industry"] = *update.Industry
	}
	if update.EmployeeCount != nil {
		updates["employee_count"] = *update.EmployeeCount
	}
	if update.HQLocation != nil {
		updates["hq_location"] = *update.HQLocation
	}
	if update.ReportingYear != nil {
		updates["reporting_year"] = *update.ReportingYear
	}
	return s.applyUpdates(ctx, companyID, updates)
}

func (s *companyService) UpdatePreferences(ctx context.Context, companyID uuid.UUID, update CompanyPreferencesUpdate) (*types.Company, error) {
	ctx = ctxutil.Default(ctx)

	updates := map[string]interface{}{}
	if update.EmailNotifications != nil {
		updates["email_notifications"] = *update.EmailNotifications
	}
	if update.MonthlySummaryReports != nil {
		updates["monthly_summary_reports"] = *update.MonthlySummaryReports
	}
	if update.UnitSystem != nil {
		updates["unit_system"] = *update.UnitSystem
	}
	return s.applyUpdates(ctx, companyID, updates)
}

func (s *companyService) applyUpdates(ctx context.Context, companyID uuid.UUID, updates map[string]interface{}) (*types.Company, error) {
	if len(updates) > 0 {
		updates["updated_at"] = time.Now()
		if err := s.companyRepo.UpdateFields(ctx, nil, companyID, updates); err != nil {
			return nil, fmt.Errorf("error updating company: %w", err)
		}
	}

	company, err := s.companyRepo.GetByID(ctx, nil, companyID)
	if err != nil {
		return nil, fmt.Errorf("error fetching company: %w", err)
	}
	if company == nil {
		return nil, fmt.Errorf("company not found: %w", apperrors.ErrNotFound)
	}
	return company, nil
}

func (s *companyService) GetOnboarding(ctx context.Context, companyID uuid.UUID) (*Onboarding, error) {
	ctx = ctxutil.Default(ctx)
	company, err := s.companyRepo.GetByID(ctx, nil, companyID)
	if err != nil {
		return nil, fmt.Errorf("error fetching company: %w", err)
	}
	if company == nil {
		return nil, fmt.Errorf("company not found: %w", apperrors.ErrNotFound)
	}
	state := normalizeOnboarding(company.OnboardingState)
	return &Onboarding{Completed: onboardingComplete(state), State: state}, nil
}

func (s *companyService) UpdateOnboarding(ctx context.Context, companyID uuid.UUID, update OnboardingUpdate) (*Onboarding, error) {
	ctx = ctxutil.Default(ctx)
	company, err := s.companyRepo.GetByID(ctx, nil, companyID)
	if err != nil {
		return nil, fmt.Errorf("error fetching company: %w", err)
	}
	if company == nil {
		return nil, fmt.Errorf("company not found: %w", apperrors.ErrNotFound)
	}

	state := normalizeOnboarding(company.OnboardingState)
	if update.ConnectAWS != nil {
		state.ConnectAWS = *update.ConnectAWS
	}
	if update.UploadCSV != nil {
		state.UploadCSV = *update.UploadCSV
	}
	if update.AddManualActivity != nil {
		state.AddManualActivity = *update.AddManualActivity
	}
	if update.CreateReport != nil {
		state.CreateReport = *update.CreateReport
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("error encoding onboarding state: %w", err)
	}
	updates := map[string]interface{}{
		"onboarding_state": datatypes.JSON(raw),
		"updated_at":       time.Now(),
	}
	if err := s.companyRepo.UpdateFields(ctx, nil, companyID, updates); err != nil {
		return nil, fmt.Errorf("error updating onboarding state: %w", err)
	}

	return &Onboarding{Completed: onboardingComplete(state), State: state}, nil
}

// normalizeOnboarding tolerates missing or malformed stored state; any key
// it cannot read counts as not done.
func normalizeOnboarding(raw datatypes.JSON) OnboardingState {
	var state OnboardingState
	if len(raw) == 0 {
		return state
	}
	_ = json.Unmarshal(raw, &state)
	return state
}

func onboardingComplete(state OnboardingState) bool {
	return state.ConnectAWS && state.UploadCSV && state.AddManualActivity && state.CreateReport
}

// PurgeData deletes every carbon record the company owns. Child tables go
// first so the deletes hold under foreign keys.
func (s *companyService) PurgeData(ctx context.Context, companyID uuid.UUID) error {
	ctx = ctxutil.Default(ctx)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.reportRepo.DeleteByCompany(ctx, tx, companyID); err != nil {
			return fmt.Errorf("error deleting reports: %w", err)
		}
		if err := s.summaryRepo.DeleteByCompany(ctx, tx, companyID); err != nil {
			return fmt.Errorf("error deleting summaries: %w", err)
		}
		if _, err := s.estimateRepo.DeleteByCompany(ctx, tx, companyID); err != nil {
			return fmt.Errorf("error deleting estimates: %w", err)
		}
		if err := s.activityRepo.DeleteByCompany(ctx, tx, companyID); err != nil {
			return fmt.Errorf("error deleting activity records: %w", err)
		}
		if err := s.connectionRepo.DeleteByCompany(ctx, tx, companyID); err != nil {
			return fmt.Errorf("error deleting connections: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("Purged company data", "company_id", companyID)
	return nil
}
