package emissions

import (
	"context"
	"time"

	"github.com/google/uuid"
	types "github.com/verdelo/carbonledger-backend/internal/domain"
	"github.com/verdelo/carbonledger-backend/internal/data/repos"
	"github.com/verdelo/carbonledger-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

// Lifecycle enforces the at-most-one-estimate-per-record rule across
// single records and whole-company batches.
type Lifecycle struct {
	activities repos.ActivityRepo
	estimates  repos.EstimateRepo
	resolver   *Resolver
	log        *logger.Logger
}

func NewLifecycle(activities repos.ActivityRepo, estimates repos.EstimateRepo, resolver *Resolver, baseLog *logger.Logger) *Lifecycle {
	return &Lifecycle{
		activities: activities,
		estimates:  estimates,
		resolver:   resolver,
		log:        baseLog.With("component", "EstimateLifecycle"),
	}
}

// EnsureEstimate makes the estimate set for one record consistent with
// the given mode. In replace mode any existing estimate is deleted
// first; the deletion stands even when no factor resolves afterwards.
// In incremental mode an already-covered record is a no-op and returns
// nil. A nil, nil return means the record has no estimate after the
// call (no factor, or incremental no-op).
func (l *Lifecycle) EnsureEstimate(ctx context.Context, tx *gorm.DB, record *types.ActivityRecord, mode Mode) (*types.EmissionEstimate, error) {
	switch mode {
	case ModeReplace:
		if _, err := l.estimates.DeleteByActivityRecordIDs(ctx, tx, []uuid.UUID{record.ID}); err != nil {
			return nil, err
		}
	default:
		existing, err := l.estimates.ExistingActivityRecordIDs(ctx, tx, []uuid.UUID{record.ID})
		if err != nil {
			return nil, err
		}
		if existing[record.ID] {
			return nil, nil
		}
	}

	factor, err := l.resolver.Resolve(ctx, tx, record)
	if err != nil {
		return nil, err
	}
	if factor == nil {
		return nil, nil
	}

	estimate := buildEstimate(record, factor)
	if _, err := l.estimates.Create(ctx, tx, []*types.EmissionEstimate{estimate}); err != nil {
		return nil, err
	}
	return estimate, nil
}

// ComputeForCompany applies the EnsureEstimate semantics to every
// record of the company whose period intersects the window (both
// bounds optional), but batches the coverage check, delete, and insert
// across all record IDs instead of calling it per record. It returns
// the number of estimates created; records with no matching factor are
// skipped without failing the batch.
func (l *Lifecycle) ComputeForCompany(ctx context.Context, tx *gorm.DB, companyID uuid.UUID, periodStart, periodEnd *time.Time, mode Mode) (int, error) {
	records, err := l.activities.ListByCompanyWindow(ctx, tx, companyID, periodStart, periodEnd)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	recordIDs := make([]uuid.UUID, 0, len(records))
	for _, rec := range records {
		recordIDs = append(recordIDs, rec.ID)
	}

	covered := map[uuid.UUID]bool{}
	if mode == ModeReplace {
		deleted, err := l.estimates.DeleteByActivityRecordIDs(ctx, tx, recordIDs)
		if err != nil {
			return 0, err
		}
		if deleted > 0 {
			l.log.Debug("replaced existing estimates", "company_id", companyID, "deleted", deleted)
		}
	} else {
		covered, err = l.estimates.ExistingActivityRecordIDs(ctx, tx, recordIDs)
		if err != nil {
			return 0, err
		}
	}

	created := make([]*types.EmissionEstimate, 0, len(records))
	for _, rec := range records {
		if covered[rec.ID] {
			continue
		}
		factor, err := l.resolver.Resolve(ctx, tx, rec)
		if err != nil {
			return 0, err
		}
		if factor == nil {
			continue
		}
		created = append(created, buildEstimate(rec, factor))
	}

	if _, err := l.estimates.Create(ctx, tx, created); err != nil {
		return 0, err
	}

	l.log.Info("computed estimates",
		"company_id", companyID,
		"mode", string(mode),
		"records", len(records),
		"created", len(created),
	)
	return len(created), nil
}
