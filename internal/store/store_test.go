package store

import (
	"context"
	"path/filepath"
	"testing"

	"jobradar/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobs.db")
	s, err := Open(path, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGetOrCreateSiteIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.GetOrCreateSite(ctx, "acme.com", "Acme")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := s.GetOrCreateSite(ctx, "acme.com", "ignored on reuse")
	if err != nil {
		t.Fatalf("reuse: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("expected same site id, got %d and %d", first.ID, second.ID)
	}
}

func TestAddCareerURLReactivatesOnConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	site, _ := s.GetOrCreateSite(ctx, "acme.com", "Acme")

	u, err := s.AddCareerURL(ctx, site.ID, "https://acme.com/careers", "greenhouse")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := s.MarkURLFailed(ctx, u.ID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	again, err := s.AddCareerURL(ctx, site.ID, "https://acme.com/careers", "")
	if err != nil {
		t.Fatalf("re-add: %v", err)
	}
	if again.ID != u.ID {
		t.Errorf("expected same row on conflict, got new id %d vs %d", again.ID, u.ID)
	}
	if !again.IsActive || again.FailCount != 0 {
		t.Errorf("expected reactivation with reset fail count, got %+v", again)
	}
	if again.Platform != "greenhouse" {
		t.Errorf("expected platform preserved via COALESCE, got %q", again.Platform)
	}
}

func TestMarkURLFailedDeactivatesAfterMaxFailures(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	site, _ := s.GetOrCreateSite(ctx, "acme.com", "Acme")
	u, _ := s.AddCareerURL(ctx, site.ID, "https://acme.com/careers", "")

	var inactive bool
	for i := 0; i < MaxURLFailures; i++ {
		var err error
		inactive, err = s.MarkURLFailed(ctx, u.ID)
		if err != nil {
			t.Fatalf("mark failed: %v", err)
		}
	}
	if !inactive {
		t.Error("expected url to be inactive after MaxURLFailures failures")
	}
}

func TestMarkURLSuccessResetsState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	site, _ := s.GetOrCreateSite(ctx, "acme.com", "Acme")
	u, _ := s.AddCareerURL(ctx, site.ID, "https://acme.com/careers", "")

	_, _ = s.MarkURLFailed(ctx, u.ID)
	if err := s.MarkURLSuccess(ctx, u.ID); err != nil {
		t.Fatalf("mark success: %v", err)
	}

	urls, err := s.GetCareerURLs(ctx, site.ID, false)
	if err != nil {
		t.Fatalf("get urls: %v", err)
	}
	if len(urls) != 1 || !urls[0].IsActive || urls[0].FailCount != 0 {
		t.Errorf("expected reset active url, got %+v", urls)
	}
}

func TestSyncFirstScanInsertsAllAsNew(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	site, _ := s.GetOrCreateSite(ctx, "acme.com", "Acme")

	candidates := []models.JobCandidate{
		{Title: "Software Engineer", Location: "Berlin", Company: "Acme", URL: "https://acme.com/jobs/1"},
		{Title: "Product Manager", Location: "Remote", Company: "Acme", URL: "https://acme.com/jobs/2"},
	}

	result, err := s.Sync(ctx, site.ID, candidates)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !result.FirstScan {
		t.Error("expected FirstScan to be true")
	}
	if len(result.New) != 2 {
		t.Fatalf("expected 2 new jobs, got %d", len(result.New))
	}
	if len(result.Removed) != 0 || len(result.Reactivated) != 0 {
		t.Errorf("expected no removed/reactivated jobs on first scan, got %+v", result)
	}
}

func TestSyncRemovesMissingAndReactivatesReappearing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	site, _ := s.GetOrCreateSite(ctx, "acme.com", "Acme")

	stay := models.JobCandidate{Title: "Backend Engineer", Location: "Berlin", URL: "https://acme.com/1"}
	disappearing := models.JobCandidate{Title: "Frontend Engineer", Location: "Berlin", URL: "https://acme.com/2"}

	if _, err := s.Sync(ctx, site.ID, []models.JobCandidate{stay, disappearing}); err != nil {
		t.Fatalf("first sync: %v", err)
	}

	result, err := s.Sync(ctx, site.ID, []models.JobCandidate{stay})
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if result.FirstScan {
		t.Error("expected FirstScan to be false on second sync")
	}
	if len(result.Removed) != 1 || result.Removed[0].Title != "Frontend Engineer" {
		t.Fatalf("expected Frontend Engineer to be removed, got %+v", result.Removed)
	}

	result, err = s.Sync(ctx, site.ID, []models.JobCandidate{stay, disappearing})
	if err != nil {
		t.Fatalf("third sync: %v", err)
	}
	if len(result.Reactivated) != 1 || result.Reactivated[0].Title != "Frontend Engineer" {
		t.Fatalf("expected Frontend Engineer to be reactivated, got %+v", result.Reactivated)
	}
	if len(result.New) != 0 {
		t.Errorf("expected no new jobs on reactivation sync, got %+v", result.New)
	}
}

func TestSyncDedupesByNormalizedTitleAndLocationNotRawText(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	site, _ := s.GetOrCreateSite(ctx, "acme.com", "Acme")

	if _, err := s.Sync(ctx, site.ID, []models.JobCandidate{
		{Title: "Software Engineer (m/w/d)", Location: "Berlin, Deutschland"},
	}); err != nil {
		t.Fatalf("first sync: %v", err)
	}

	result, err := s.Sync(ctx, site.ID, []models.JobCandidate{
		{Title: "Software Engineer", Location: "Berlin"},
	})
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if len(result.New) != 0 {
		t.Errorf("expected the differently-formatted title/location to match the existing key, got new jobs %+v", result.New)
	}
}

func TestGetActiveJobsReturnsOnlyActiveJobs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	site, _ := s.GetOrCreateSite(ctx, "acme.com", "Acme")

	stay := models.JobCandidate{Title: "Backend Engineer", Location: "Berlin", URL: "https://acme.com/1"}
	gone := models.JobCandidate{Title: "Frontend Engineer", Location: "Berlin", URL: "https://acme.com/2"}

	if _, err := s.Sync(ctx, site.ID, []models.JobCandidate{stay, gone}); err != nil {
		t.Fatalf("first sync: %v", err)
	}
	if _, err := s.Sync(ctx, site.ID, []models.JobCandidate{stay}); err != nil {
		t.Fatalf("second sync: %v", err)
	}

	active, err := s.GetActiveJobs(ctx, site.ID)
	if err != nil {
		t.Fatalf("get active jobs: %v", err)
	}
	if len(active) != 1 || active[0].Title != "Backend Engineer" {
		t.Errorf("expected only the still-active job, got %+v", active)
	}
}

func TestIsCacheSuspiciousFlagsZeroResultAfterManyPriorJobs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	site, _ := s.GetOrCreateSite(ctx, "acme.com", "Acme")

	var candidates []models.JobCandidate
	for i := 0; i < SuspicionThreshold+1; i++ {
		candidates = append(candidates, models.JobCandidate{
			Title:    "Role " + string(rune('a'+i)),
			Location: "",
			URL:      "https://acme.com/" + string(rune('a'+i)),
		})
	}
	if _, err := s.Sync(ctx, site.ID, candidates); err != nil {
		t.Fatalf("seed sync: %v", err)
	}

	suspicious, err := s.IsCacheSuspicious(ctx, site.ID, 0)
	if err != nil {
		t.Fatalf("suspicion check: %v", err)
	}
	if !suspicious {
		t.Error("expected a zero-job result after many prior jobs to be flagged suspicious")
	}

	notSuspicious, err := s.IsCacheSuspicious(ctx, site.ID, 3)
	if err != nil {
		t.Fatalf("suspicion check: %v", err)
	}
	if notSuspicious {
		t.Error("expected a non-zero job count to never be flagged suspicious")
	}
}

func TestGetJobHistoryRecordsAddedAndRemovedEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	site, _ := s.GetOrCreateSite(ctx, "acme.com", "Acme")

	if _, err := s.Sync(ctx, site.ID, []models.JobCandidate{{Title: "Role A", Location: ""}}); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if _, err := s.Sync(ctx, site.ID, nil); err != nil {
		t.Fatalf("sync: %v", err)
	}

	events, err := s.GetJobHistory(ctx, site.ID, 10)
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 history events (added, removed), got %d: %+v", len(events), events)
	}
}

func TestLLMCacheEntryRoundTripsAndExpires(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entry := models.LLMCacheEntry{
		Key: "abc123", Namespace: "jobs", Payload: `{"jobs":[]}`, Model: "test-model", TTLSeconds: 3600,
	}
	if err := s.SetLLMCacheEntry(ctx, entry); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, ok, err := s.GetLLMCacheEntry(ctx, "abc123")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || got.Payload != entry.Payload {
		t.Errorf("expected round-tripped entry, got ok=%v entry=%+v", ok, got)
	}

	_, ok, err = s.GetLLMCacheEntry(ctx, "does-not-exist")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if ok {
		t.Error("expected miss for unknown key")
	}

	expired := models.LLMCacheEntry{Key: "old", Namespace: "jobs", Payload: `{}`, Model: "test-model", TTLSeconds: 0}
	if err := s.SetLLMCacheEntry(ctx, expired); err != nil {
		t.Fatalf("set expired: %v", err)
	}
	if _, ok, _ := s.GetLLMCacheEntry(ctx, "old"); ok {
		t.Error("expected an entry past its TTL not to be served")
	}
}
