package hybrid

import (
	"context"
	"testing"

	"jobradar/internal/atsparsers"
	"jobradar/internal/llm"
	"jobradar/pkg/models"
)

func testExtractor(provider llm.Provider) *Extractor {
	return New(atsparsers.NewRegistry(), provider, nil, nil)
}

func candidate(title, location, url string) models.JobCandidate {
	return models.JobCandidate{Title: title, Location: location, URL: url}
}

func TestExtractPageSchemaOrgTierShortCircuits(t *testing.T) {
	html := []byte(`<html><head>
		<script type="application/ld+json">
		{"@context":"https://schema.org","@type":"JobPosting","title":"Senior Go Engineer","url":"https://acme.com/jobs/1","jobLocation":{"address":{"addressLocality":"Berlin"}}}
		</script>
	</head><body></body></html>`)

	e := testExtractor(llm.Provider{})
	candidates, next, bypass, err := e.ExtractPage(context.Background(), "https://acme.com/careers", "", html)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bypass {
		t.Error("schema.org tier should not set bypassPagination")
	}
	if next != "" {
		t.Errorf("expected no next page url from schema.org tier, got %q", next)
	}
	if len(candidates) != 1 || candidates[0].Title != "Senior Go Engineer" {
		t.Fatalf("expected one schema.org candidate, got %+v", candidates)
	}
}

func TestExtractPagePlatformSpecificBypassesPagination(t *testing.T) {
	html := []byte(`<html><body>
		<div class="job-box"><h3><a href="https://company.jobs.personio.de/job/123">Backend Developer</a></h3><span class="job-box__recruiting-category">Engineering</span></div>
	</body></html>`)

	e := testExtractor(llm.Provider{})
	candidates, _, bypass, err := e.ExtractPage(context.Background(), "https://company.jobs.personio.de", "personio", html)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bypass {
		t.Error("expected an ATS parser match to bypass pagination")
	}
	if len(candidates) == 0 {
		t.Fatal("expected personio parser to find the job")
	}
}

func TestExtractPageFallsBackToLLMWhenNoTierMatches(t *testing.T) {
	html := []byte(`<html><body><p>Nothing structured here, just prose about the company culture.</p></body></html>`)

	provider := llm.Provider{
		CompleteStructured: func(ctx context.Context, prompt string) (llm.JobsResult, error) {
			return llm.JobsResult{
				Jobs: []llm.JobCandidateDTO{
					{Title: "Data Scientist", Location: "Remote", URL: "https://acme.com/jobs/9"},
				},
				NextPageURL: "https://acme.com/careers?page=2",
			}, nil
		},
	}

	e := testExtractor(provider)
	candidates, next, bypass, err := e.ExtractPage(context.Background(), "https://acme.com/careers", "", html)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bypass {
		t.Error("llm tier should not set bypassPagination")
	}
	if len(candidates) != 1 || candidates[0].Title != "Data Scientist" {
		t.Fatalf("expected llm candidate, got %+v", candidates)
	}
	if next != "https://acme.com/careers?page=2" {
		t.Errorf("expected next_page_url propagated, got %q", next)
	}
}

func TestExtractPageWithNoMatchAndNoProviderErrors(t *testing.T) {
	html := []byte(`<html><body><p>Nothing structured here.</p></body></html>`)
	e := testExtractor(llm.Provider{})
	_, _, _, err := e.ExtractPage(context.Background(), "https://acme.com/careers", "", html)
	if err == nil {
		t.Fatal("expected an error when no tier matches and no LLM provider is configured")
	}
}

func TestDedupeKeyPrefersURLOverTitleLocation(t *testing.T) {
	a := candidate("Engineer", "Berlin", "https://acme.com/jobs/1")
	b := candidate("Engineer", "Berlin", "https://acme.com/jobs/2")
	if dedupeKey(a, "https://acme.com/careers") == dedupeKey(b, "https://acme.com/careers") {
		t.Error("expected distinct job URLs to produce distinct dedup keys")
	}
}

func TestDedupeKeyTreatsSelfReferencingURLAsSecondaryKey(t *testing.T) {
	a := candidate("Engineer", "Berlin", "https://acme.com/careers")
	key := dedupeKey(a, "https://acme.com/careers")
	if key != "tl:engineer|berlin" {
		t.Errorf("expected self-referencing url to fall back to title/location key, got %q", key)
	}
}

// TestPaginateFollowsNextPageAndDedupes drives Paginate across two LLM-tier
// pages where the second page repeats one job and adds one new job.
func TestPaginateFollowsNextPageAndDedupes(t *testing.T) {
	responses := map[string]llm.JobsResult{
		"https://acme.com/careers": {
			Jobs:        []llm.JobCandidateDTO{{Title: "Engineer", Location: "Berlin", URL: "https://acme.com/jobs/1"}},
			NextPageURL: "https://acme.com/careers?page=2",
		},
		"https://acme.com/careers?page=2": {
			Jobs: []llm.JobCandidateDTO{
				{Title: "Engineer", Location: "Berlin", URL: "https://acme.com/jobs/1"},
				{Title: "Designer", Location: "Munich", URL: "https://acme.com/jobs/2"},
			},
		},
	}

	provider := llm.Provider{
		CompleteStructured: func(ctx context.Context, prompt string) (llm.JobsResult, error) {
			// page 2's prompt also contains page 1's URL, so the longest
			// matching URL decides which response is returned
			best, bestLen := llm.JobsResult{}, 0
			for url, r := range responses {
				if contains(prompt, url) && len(url) > bestLen {
					best, bestLen = r, len(url)
				}
			}
			return best, nil
		},
	}

	e := testExtractor(provider)
	fetchCalls := 0
	fetch := func(ctx context.Context, pageURL string) ([]byte, error) {
		fetchCalls++
		return []byte("<html><body>prose with no structured markup, url " + pageURL + "</body></html>"), nil
	}

	jobs, err := e.Paginate(context.Background(), "https://acme.com/careers", "", fetch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetchCalls != 2 {
		t.Fatalf("expected exactly 2 page fetches, got %d", fetchCalls)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 deduplicated jobs across both pages, got %+v", jobs)
	}
}

// TestPaginateStopsWhenAllDuplicates exercises the early-termination rule:
// a page whose every job is already in the running set ends the loop even
// though it reports a next_page_url.
func TestPaginateStopsWhenAllDuplicates(t *testing.T) {
	responses := map[string]llm.JobsResult{
		"https://acme.com/careers": {
			Jobs:        []llm.JobCandidateDTO{{Title: "Engineer", Location: "Berlin", URL: "https://acme.com/jobs/1"}},
			NextPageURL: "https://acme.com/careers?page=2",
		},
		"https://acme.com/careers?page=2": {
			Jobs:        []llm.JobCandidateDTO{{Title: "Engineer", Location: "Berlin", URL: "https://acme.com/jobs/1"}},
			NextPageURL: "https://acme.com/careers?page=3",
		},
	}

	provider := llm.Provider{
		CompleteStructured: func(ctx context.Context, prompt string) (llm.JobsResult, error) {
			for url, r := range responses {
				if contains(prompt, url) {
					return r, nil
				}
			}
			return llm.JobsResult{}, nil
		},
	}

	e := testExtractor(provider)
	fetchCalls := 0
	fetch := func(ctx context.Context, pageURL string) ([]byte, error) {
		fetchCalls++
		return []byte("<html><body>prose with no structured markup, url " + pageURL + "</body></html>"), nil
	}

	jobs, err := e.Paginate(context.Background(), "https://acme.com/careers", "", fetch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetchCalls != 2 {
		t.Fatalf("expected pagination to stop after the all-duplicates page, got %d fetches", fetchCalls)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected only the single unique job, got %+v", jobs)
	}
}

func contains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
