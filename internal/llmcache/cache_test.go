package llmcache

import (
	"context"
	"testing"
	"time"
)

func testCache() *Cache {
	return New(nil, "claude-3-7-sonnet", nil)
}

func TestGetMissesBeforeSet(t *testing.T) {
	c := testCache()
	var out string
	if c.Get(context.Background(), NamespaceTranslation, "hello", &out) {
		t.Fatal("expected a miss before any Set")
	}
	stats := c.SessionStats()
	if stats.Misses != 1 || stats.Hits != 0 {
		t.Errorf("expected 1 miss 0 hits, got %+v", stats)
	}
}

func TestSetThenGetHits(t *testing.T) {
	c := testCache()
	ctx := context.Background()
	if err := c.Set(ctx, NamespaceTranslation, "hello", "hallo", 12); err != nil {
		t.Fatalf("set: %v", err)
	}

	var out string
	if !c.Get(ctx, NamespaceTranslation, "hello", &out) {
		t.Fatal("expected a hit after Set")
	}
	if out != "hallo" {
		t.Errorf("expected decoded value 'hallo', got %q", out)
	}

	stats := c.SessionStats()
	if stats.Hits != 1 || stats.TokensSaved != 12 {
		t.Errorf("expected 1 hit and 12 tokens saved, got %+v", stats)
	}
}

func TestDifferentModelsDoNotCollide(t *testing.T) {
	a := New(nil, "model-a", nil)
	b := New(nil, "model-b", nil)
	ctx := context.Background()

	a.Set(ctx, NamespaceJobs, "content", "from-a", 0)

	var out string
	if b.Get(ctx, NamespaceJobs, "content", &out) {
		t.Error("expected a cache miss across different models sharing the fallback map type but different Cache instances")
	}
}

func TestGetOrComputeCachesNonEmptyResult(t *testing.T) {
	c := testCache()
	ctx := context.Background()
	calls := 0
	compute := func() (any, error) {
		calls++
		return []string{"Backend Engineer"}, nil
	}

	var out []string
	if err := c.GetOrCompute(ctx, NamespaceJobs, "page-1", &out, compute, 50); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 || len(out) != 1 {
		t.Fatalf("expected compute called once and result decoded, got calls=%d out=%v", calls, out)
	}

	out = nil
	if err := c.GetOrCompute(ctx, NamespaceJobs, "page-1", &out, compute, 50); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected compute NOT called again on a cache hit, got %d calls", calls)
	}
	if len(out) != 1 {
		t.Errorf("expected cached result decoded, got %v", out)
	}
}

func TestGetOrComputeNeverCachesEmptyResult(t *testing.T) {
	c := testCache()
	ctx := context.Background()
	calls := 0
	compute := func() (any, error) {
		calls++
		return []string{}, nil
	}

	var out []string
	c.GetOrCompute(ctx, NamespaceJobs, "empty-page", &out, compute, 0)
	c.GetOrCompute(ctx, NamespaceJobs, "empty-page", &out, compute, 0)

	if calls != 2 {
		t.Errorf("expected compute called every time for an empty result, got %d calls", calls)
	}
}

func TestCleanupRemovesExpiredFallbackEntries(t *testing.T) {
	c := testCache()
	ctx := context.Background()
	c.Set(ctx, NamespaceJobs, "stale", "value", 0)

	c.mu.Lock()
	for k, e := range c.fallback {
		e.ExpiresAt = time.Now().Add(-time.Minute)
		c.fallback[k] = e
	}
	c.mu.Unlock()

	removed := c.Cleanup(ctx)
	if removed != 1 {
		t.Errorf("expected 1 expired entry removed, got %d", removed)
	}

	var out string
	if c.Get(ctx, NamespaceJobs, "stale", &out) {
		t.Error("expected expired entry to be gone after Cleanup")
	}
}

func TestHitRate(t *testing.T) {
	s := Stats{Hits: 3, Misses: 1}
	if got := s.HitRate(); got != 0.75 {
		t.Errorf("expected hit rate 0.75, got %v", got)
	}
	if (Stats{}).HitRate() != 0 {
		t.Error("expected hit rate 0 with no calls")
	}
}
