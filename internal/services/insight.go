package services

import (
	"context"
	"fmt"

	"github.com/verdelo/carbonledger-backend/internal/data/repos"
	types "github.com/verdelo/carbonledger-backend/internal/domain"
	"github.com/verdelo/carbonledger-backend/internal/pkg/ctxutil"
	apperrors "github.com/verdelo/carbonledger-backend/internal/pkg/errors"
	"github.com/verdelo/carbonledger-backend/internal/pkg/logger"
)

// Insight is one reduction recommendation.
type Insight struct {
	ID                        string   `json:"id"`
	Title                     string   `json:"title"`
	Description               string   `json:"description"`
	ImpactLevel               string   `json:"impact_level"`
	EstimatedReductionPercent *float64 `json:"estimated_reduction_percent"`
	Category                  *string  `json:"category"`
}

// InsightService serves reduction recommendations. The catalog is static
// for now; a data-driven ranking would slot in behind the same interface.
type InsightService interface {
	List(ctx context.Context, year int) ([]Insight, error)
}

type insightService struct {
	log         *logger.Logger
	companyRepo repos.CompanyRepo
}

func NewInsightService(log *logger.Logger, companyRepo repos.CompanyRepo) InsightService {
	serviceLog := log.With("service", "InsightService")
	return &insightService{log: serviceLog, companyRepo: companyRepo}
}

// List gates on the paid plan, then returns the catalog.
func (s *insightService) List(ctx context.Context, year int) ([]Insight, error) {
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
	if company.Plan != types.PlanPaid {
		return nil, fmt.Errorf("insights require a paid plan: %w", apperrors.ErrForbidden)
	}

	return insightCatalog(), nil
}

func insightCatalog() []Insight {
	return []Insight{
		{
			ID:                        "1",
			Title:                     "Optimize cloud resources",
			Description:               "Review and right-size cloud compute instances. Consider reserved instances for predictable workloads.",
			ImpactLevel:               "High",
			EstimatedReductionPercent: floatPtr(15.0),
			Category:                  optionalString("cloud"),
		},
		{
			ID:                        "2",
			Title:                     "Choose renewable-powered regions",
			Description:               "Migrate workloads to cloud regions powered by renewable energy sources.",
			ImpactLevel:               "Medium",
			EstimatedReductionPercent: floatPtr(30.0),
			Category:                  optionalString("cloud"),
		},
		{
			ID:                        "3",
			Title:                     "Maintain remote-first policy",
			Description:               "Continue remote work policies to reduce commuting and office energy consumption.",
			ImpactLevel:               "Medium",
			EstimatedReductionPercent: floatPtr(10.0),
			Category:                  optionalString("remote_work"),
		},
		{
			ID:                        "4",
			Title:                     "Extend hardware lifecycle",
			Description:               "Extend laptop and device replacement cycles from 3 to 4-5 years to reduce Scope 3 emissions.",
			ImpactLevel:               "Low",
			EstimatedReductionPercent: floatPtr(5.0),
			Category:                  optionalString("purchased_services"),
		},
	}
}

func floatPtr(v float64) *float64 { return &v }
