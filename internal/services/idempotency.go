package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/verdelo/carbonledger-backend/internal/data/repos"
	types "github.com/verdelo/carbonledger-backend/internal/domain"
	"github.com/verdelo/carbonledger-backend/internal/pkg/ctxutil"
	apperrors "github.com/verdelo/carbonledger-backend/internal/pkg/errors"
	"github.com/verdelo/carbonledger-backend/internal/pkg/logger"
)

type IdempotencyService interface {
	Lookup(ctx context.Context, companyID uuid.UUID, endpoint, key string, requestPayload interface{}) (*types.IdempotencyKey, error)
	Store(ctx context.Context, tx *gorm.DB, companyID uuid.UUID, userID *uuid.UUID, endpoint, key string, requestPayload, responseBody interface{}, responseStatus int) error
}

type idempotencyService struct {
	db              *gorm.DB
	log             *logger.Logger
	idempotencyRepo repos.IdempotencyRepo
}

func NewIdempotencyService(db *gorm.DB, log *logger.Logger, idempotencyRepo repos.IdempotencyRepo) IdempotencyService {
	serviceLog := log.With("service", "IdempotencyService")
	return &idempotencyService{
		db:              db,
		log:             serviceLog,
		idempotencyRepo: idempotencyRepo,
	}
}

// Lookup returns the stored record for a replayed key, or nil when the key
// is new. A replay whose payload hash differs from the stored one is a
// client bug and surfaces as ErrConflict.
func (s *idempotencyService) Lookup(ctx context.Context, companyID uuid.UUID, endpoint, key string, requestPayload interface{}) (*types.IdempotencyKey, error) {
	ctx = ctxutil.Default(ctx)

	existing, err := s.idempotencyRepo.Get(ctx, nil, companyID, endpoint, key)
	if err != nil {
		return nil, fmt.Errorf("error fetching idempotency record: %w", err)
	}
	if existing == nil {
		return nil, nil
	}

	if existing.RequestHash != nil && requestPayload != nil {
		expected, err := PayloadHash(requestPayload)
		if err != nil {
			return nil, err
		}
		if expected != *existing.RequestHash {
			return nil, fmt.Errorf("idempotency key reused with different payload: %w", apperrors.ErrConflict)
		}
	}

	s.log.Debug("Replaying idempotent response", "endpoint", endpoint, "company_id", companyID)
	return existing, nil
}

func (s *idempotencyService) Store(ctx context.Context, tx *gorm.DB, companyID uuid.UUID, userID *uuid.UUID, endpoint, key string, requestPayload, responseBody interface{}, responseStatus int) error {
	ctx = ctxutil.Default(ctx)

	var requestHash *string
	if requestPayload != nil {
		h, err := PayloadHash(requestPayload)
		if err != nil {
			return err
		}
		requestHash = &h
	}

	body, err := json.Marshal(responseBody)
	if err != nil {
		return fmt.Errorf("error encoding idempotent response: %w", err)
	}

	record := &types.IdempotencyKey{
		ID:             uuid.New(),
		CompanyID:      companyID,
		UserID:         userID,
		Endpoint:       endpoint,
		IdempotencyKey: key,
		RequestHash:    requestHash,
		ResponseStatus: responseStatus,
		ResponseBody:   datatypes.JSON(body),
	}
	if _, err := s.idempotencyRepo.Create(ctx, tx, record); err != nil {
		// A concurrent request with the same key may have won the insert.
		// The stored response is equivalent, so losing the race is fine.
		if isUniqueViolation(err) {
			s.log.Debug("Idempotency record already stored", "endpoint", endpoint, "company_id", companyID)
			return nil
		}
		return fmt.Errorf("error storing idempotency record: %w", err)
	}
	return nil
}

// PayloadHash produces a stable SHA-256 over the canonical JSON encoding of
// the payload. Object keys are sorted by the round-trip through a map.
func PayloadHash(payload interface{}) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("error encoding payload: %w", err)
	}
	var normalized interface{}
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return "", fmt.Errorf("error normalizing payload: %w", err)
	}
	canonical, err := json.Marshal(normalized)
	if err != nil {
		return "", fmt.Errorf("error canonicalizing payload: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
