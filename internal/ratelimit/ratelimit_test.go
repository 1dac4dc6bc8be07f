package ratelimit

import (
	"context"
	"testing"
)

func TestTokenBucketAllowsWithinBurst(t *testing.T) {
	limiter := NewTokenBucket(Config{RequestsPerSecond: 1, Burst: 3})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, "company-a")
		if err != nil {
			t.Fatalf("Allow: %v", err)
		}
		if !ok {
			t.Fatalf("request %d should pass within burst", i)
		}
	}

	ok, err := limiter.Allow(ctx, "company-a")
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if ok {
		t.Fatalf("request beyond burst should be denied")
	}
}

func TestTokenBucketKeysAreIndependent(t *testing.T) {
	limiter := NewTokenBucket(Config{RequestsPerSecond: 1, Burst: 1})
	ctx := context.Background()

	if ok, _ := limiter.Allow(ctx, "company-a"); !ok {
		t.Fatalf("first request for company-a should pass")
	}
	if ok, _ := limiter.Allow(ctx, "company-a"); ok {
		t.Fatalf("second request for company-a should be denied")
	}
	if ok, _ := limiter.Allow(ctx, "company-b"); !ok {
		t.Fatalf("company-b must not share company-a's bucket")
	}
}

func TestNewTokenBucketAppliesDefaults(t *testing.T) {
	limiter, ok := NewTokenBucket(Config{}).(*tokenBucket)
	if !ok {
		t.Fatalf("NewTokenBucket should return *tokenBucket")
	}
	if limiter.cfg.RequestsPerSecond != 10 {
		t.Fatalf("RequestsPerSecond = %v, want default 10", limiter.cfg.RequestsPerSecond)
	}
	if limiter.cfg.Burst != 20 {
		t.Fatalf("Burst = %d, want default 20", limiter.cfg.Burst)
	}
}
