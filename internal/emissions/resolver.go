package emissions

import (
	"context"
	"time"

	types "github.com/verdelo/carbonledger-backend/internal/domain"
	"github.com/verdelo/carbonledger-backend/internal/data/repos"
	"github.com/verdelo/carbonledger-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

// Resolver picks the emission factor for an activity record. A factor
// matches on (activity_type, unit, scope, scope_3_category) and must
// have a validity window overlapping the record's period; scope 1 and 2
// records only ever match category-less factors.
type Resolver struct {
	factors repos.FactorRepo
	log     *logger.Logger
}

func NewResolver(factors repos.FactorRepo, baseLog *logger.Logger) *Resolver {
	return &Resolver{factors: factors, log: baseLog.With("component", "FactorResolver")}
}

// Resolve returns the winning factor for the record, or nil when no
// factor matches. A nil result is not an error: the caller skips the
// record and the gap shows up as missing coverage, not a failed run.
func (r *Resolver) Resolve(ctx context.Context, tx *gorm.DB, record *types.ActivityRecord) (*types.EmissionFactor, error) {
	category := record.Scope3Category
	if record.Scope != types.Scope3 {
		category = nil
	}

	candidates, err := r.factors.ListCandidates(ctx, tx, record.ActivityType, record.Unit, record.Scope, category, record.PeriodStart, record.PeriodEnd)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		r.log.Debug("no factor matched",
			"activity_type", record.ActivityType,
			"unit", record.Unit,
			"scope", record.Scope,
		)
		return nil, nil
	}

	return pickBestFactor(candidates), nil
}

// pickBestFactor ranks candidates by validity recency: an open-ended
// valid_to beats any bounded one, later valid_to beats earlier, then
// later valid_from beats earlier with an absent valid_from ranking
// last. Factor ID breaks exact ties so the winner is stable.
func pickBestFactor(candidates []*types.EmissionFactor) *types.EmissionFactor {
	var best *types.EmissionFactor
	for _, f := range candidates {
		if best == nil || factorBeats(f, best) {
			best = f
		}
	}
	return best
}

func factorBeats(a, b *types.EmissionFactor) bool {
	if c := compareValidTo(a.ValidTo, b.ValidTo); c != 0 {
		return c > 0
	}
	if c := compareValidFrom(a.ValidFrom, b.ValidFrom); c != 0 {
		return c > 0
	}
	return a.ID.String() < b.ID.String()
}

// compareValidTo treats nil as open-ended and ranks it above every
// bounded date.
func compareValidTo(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case a.After(*b):
		return 1
	case b.After(*a):
		return -1
	default:
		return 0
	}
}

// compareValidFrom ranks later start dates first; nil ranks below any
// dated start.
func compareValidFrom(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case a.After(*b):
		return 1
	case b.After(*a):
		return -1
	default:
		return 0
	}
}
