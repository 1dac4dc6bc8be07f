package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/verdelo/carbonledger-backend/internal/data/repos"
	"github.com/verdelo/carbonledger-backend/internal/data/repos/testutil"
	types "github.com/verdelo/carbonledger-backend/internal/domain"
	apperrors "github.com/verdelo/carbonledger-backend/internal/pkg/errors"
)

func newIdempotencyService(t *testing.T) (IdempotencyService, uuid.UUID) {
	t.Helper()
	db := testutil.DB(t)
	logg := testutil.Logger(t)

	companyID := uuid.New()
	t.Cleanup(func() {
		db.Where("company_id = ?", companyID).Delete(&types.IdempotencyKey{})
	})
	return NewIdempotencyService(db, logg, repos.NewIdempotencyRepo(db, logg)), companyID
}

func TestIdempotencyReplayReturnsStoredResponse(t *testing.T) {
	svc, companyID := newIdempotencyService(t)
	ctx := context.Background()

	endpoint := "POST /api/dashboard/recompute"
	key := uuid.New().String()
	payload := map[string]interface{}{"year": 2025}
	body := map[string]interface{}{"estimates_created": 3}

	userID := uuid.New()
	if err := svc.Store(ctx, nil, companyID, &userID, endpoint, key, payload, body, http.StatusOK); err != nil {
		t.Fatalf("Store: %v", err)
	}

	record, err := svc.Lookup(ctx, companyID, endpoint, key, payload)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if record == nil {
		t.Fatalf("Lookup = nil, want stored record")
	}
	if record.ResponseStatus != http.StatusOK {
		t.Errorf("ResponseStatus = %d, want %d", record.ResponseStatus, http.StatusOK)
	}
	var stored map[string]interface{}
	if err := json.Unmarshal(record.ResponseBody, &stored); err != nil {
		t.Fatalf("decode stored body: %v", err)
	}
	if stored["estimates_created"] != float64(3) {
		t.Errorf("stored body = %v", stored)
	}
}

func TestIdempotencyUnknownKeyIsNil(t *testing.T) {
	svc, companyID := newIdempotencyService(t)

	record, err := svc.Lookup(context.Background(), companyID, "POST /api/dashboard/recompute", uuid.New().String(), nil)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if record != nil {
		t.Fatalf("Lookup = %+v, want nil for unseen key", record)
	}
}

func TestIdempotencyPayloadMismatchConflicts(t *testing.T) {
	svc, companyID := newIdempotencyService(t)
	ctx := context.Background()

	endpoint := "POST /api/integrations/aws/sync"
	key := uuid.New().String()

	userID := uuid.New()
	payload := map[string]interface{}{"provider": "aws"}
	if err := svc.Store(ctx, nil, companyID, &userID, endpoint, key, payload, map[string]string{"status": "ok"}, http.StatusOK); err != nil {
		t.Fatalf("Store: %v", err)
	}

	_, err := svc.Lookup(ctx, companyID, endpoint, key, map[string]interface{}{"provider": "gcp"})
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("Lookup error = %v, want ErrConflict", err)
	}
}

func TestIdempotencyKeysAreScopedPerCompany(t *testing.T) {
	svc, companyID := newIdempotencyService(t)
	ctx := context.Background()

	endpoint := "POST /api/dashboard/recompute"
	key := uuid.New().String()
	userID := uuid.New()
	if err := svc.Store(ctx, nil, companyID, &userID, endpoint, key, nil, map[string]string{"status": "ok"}, http.StatusOK); err != nil {
		t.Fatalf("Store: %v", err)
	}

	record, err := svc.Lookup(ctx, uuid.New(), endpoint, key, nil)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if record != nil {
		t.Fatalf("key from one company replayed for another")
	}
}

func TestPayloadHashIsStableAcrossKeyOrder(t *testing.T) {
	a, err := PayloadHash(map[string]interface{}{"provider": "aws", "year": 2025})
	if err != nil {
		t.Fatalf("PayloadHash: %v", err)
	}
	b, err := PayloadHash(map[string]interface{}{"year": 2025, "provider": "aws"})
	if err != nil {
		t.Fatalf("PayloadHash: %v", err)
	}
	if a != b {
		t.Fatalf("hash differs across key order: %s vs %s", a, b)
	}

	c, err := PayloadHash(map[string]interface{}{"provider": "gcp", "year": 2025})
	if err != nil {
		t.Fatalf("PayloadHash: %v", err)
	}
	if a == c {
		t.Fatalf("different payloads hash equal")
	}
}
