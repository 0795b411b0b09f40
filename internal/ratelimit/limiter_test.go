package ratelimit

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func testLimiter() *Limiter {
	cfg := DefaultConfig()
	cfg.BaseDelay = 10 * time.Millisecond
	cfg.MaxDelay = 200 * time.Millisecond
	return New(cfg, nil)
}

func TestAcquireOrdering(t *testing.T) {
	l := testLimiter()
	defer l.Stop()
	ctx := context.Background()

	lease1, err := l.Acquire(ctx, "https://example.com/a")
	if err != nil {
		t.Fatalf("acquire 1: %v", err)
	}
	start := time.Now()
	lease1.Release()

	lease2, err := l.Acquire(ctx, "https://example.com/b")
	if err != nil {
		t.Fatalf("acquire 2: %v", err)
	}
	defer lease2.Release()

	if elapsed := time.Since(start); elapsed < 8*time.Millisecond {
		t.Errorf("expected second acquire to wait roughly the per-host delay, got %v", elapsed)
	}
}

func TestMaxConcurrentBound(t *testing.T) {
	l := testLimiter()
	defer l.Stop()
	ctx := context.Background()

	lease1, _ := l.Acquire(ctx, "https://bound.example.com")
	lease2, _ := l.Acquire(ctx, "https://bound.example.com")
	defer lease1.Release()
	defer lease2.Release()

	ctx2, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	if _, err := l.Acquire(ctx2, "https://bound.example.com"); err == nil {
		t.Error("expected third concurrent acquire to block past max_concurrent=2 and hit context deadline")
	}
}

func TestOnRateLimitedWidensDelay(t *testing.T) {
	l := testLimiter()
	defer l.Stop()
	l.getOrCreate("slow.example.com")

	l.OnResponse("slow.example.com", 429, http.Header{})
	s := l.Stats("slow.example.com")
	if s.Delay <= l.cfg.BaseDelay {
		t.Errorf("expected delay to widen after 429, got %v (base %v)", s.Delay, l.cfg.BaseDelay)
	}
}

func TestOnRateLimitedHonorsRetryAfterSeconds(t *testing.T) {
	l := testLimiter()
	defer l.Stop()
	l.getOrCreate("retry.example.com")

	h := http.Header{}
	h.Set("Retry-After", "1")
	l.OnResponse("retry.example.com", 429, h)
	s := l.Stats("retry.example.com")
	if s.Delay != l.cfg.MaxDelay {
		t.Errorf("expected Retry-After of 1s to override the backoff, capped at max delay %v, got %v", l.cfg.MaxDelay, s.Delay)
	}
}

func TestOnSuccessRecoversTowardBase(t *testing.T) {
	l := testLimiter()
	defer l.Stop()
	l.getOrCreate("recover.example.com")

	l.OnResponse("recover.example.com", 429, http.Header{})
	widened := l.Stats("recover.example.com").Delay

	l.OnResponse("recover.example.com", 200, http.Header{})
	recovered := l.Stats("recover.example.com").Delay
	if recovered >= widened {
		t.Errorf("expected delay to shrink on success: widened=%v recovered=%v", widened, recovered)
	}
}
