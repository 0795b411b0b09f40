package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"jobradar/internal/atsparsers"
	"jobradar/internal/discover"
	"jobradar/internal/extract/hybrid"
	httpfetch "jobradar/internal/fetch/http"
	"jobradar/internal/llm"
	"jobradar/internal/store"
	"jobradar/pkg/models"
)

func TestNormalizeInputURLAddsScheme(t *testing.T) {
	got, err := normalizeInputURL("acme.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "https://acme.com" {
		t.Errorf("expected scheme added, got %q", got)
	}
}

func TestNormalizeInputURLRejectsGarbage(t *testing.T) {
	if _, err := normalizeInputURL("   "); err == nil {
		t.Error("expected error for blank input")
	}
}

func TestBareDomainStripsWWW(t *testing.T) {
	got, err := bareDomain("https://www.acme.com/careers")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "acme.com" {
		t.Errorf("expected acme.com, got %q", got)
	}
}

func TestIsExternalDomainIgnoresWWWDifference(t *testing.T) {
	if isExternalDomain("https://www.acme.com/careers", "acme.com") {
		t.Error("expected www. prefix difference to not count as external")
	}
	if !isExternalDomain("https://boards.greenhouse.io/acme", "acme.com") {
		t.Error("expected a different registrable domain to be external")
	}
}

func TestStripQueryRemovesQueryAndFragment(t *testing.T) {
	got := stripQuery("https://acme.com/careers?q=engineer#top")
	if got != "https://acme.com/careers" {
		t.Errorf("expected query/fragment stripped, got %q", got)
	}
}

func TestCompanyNameFromDomainTitleCases(t *testing.T) {
	got := companyNameFromDomain("my-cool-startup.io")
	if got != "My Cool Startup" {
		t.Errorf("unexpected company name: %q", got)
	}
}

func TestFilterBySourceCompanyKeepsMatchingVariants(t *testing.T) {
	candidates := []models.JobCandidate{
		{Title: "Backend Engineer", Company: "2RSoftware GmbH"},
		{Title: "Sales Rep", Company: "Unrelated Corp"},
	}
	filtered := filterBySourceCompany(candidates, "https://2rsoftware.de")
	if len(filtered) != 1 || filtered[0].Title != "Backend Engineer" {
		t.Errorf("expected only the source-company job to survive, got %+v", filtered)
	}
}

func TestFilterBySourceCompanyKeepsAllWhenNoneMatch(t *testing.T) {
	candidates := []models.JobCandidate{{Title: "Sales Rep", Company: "Totally Unrelated"}}
	filtered := filterBySourceCompany(candidates, "https://2rsoftware.de")
	if len(filtered) != 1 {
		t.Errorf("expected fallback to keep all candidates when no variant matches, got %+v", filtered)
	}
}

func TestApplySearchQueryFilterSkipsSameRegisteredDomain(t *testing.T) {
	candidates := []models.JobCandidate{{Title: "Engineer"}, {Title: "Designer"}}
	filtered := applySearchQueryFilter(candidates, "acme.com", "https://www.acme.com/careers?search=engineer")
	if len(filtered) != 2 {
		t.Errorf("expected no filtering for internal navigation, got %+v", filtered)
	}
}

func TestApplySearchQueryFilterMatchesExternalSearchParam(t *testing.T) {
	candidates := []models.JobCandidate{{Title: "Pilot Instructor"}, {Title: "Accountant"}}
	filtered := applySearchQueryFilter(candidates, "27pilots.com", "https://job.deloitte.com/search?search=27pilots")
	// neither title literally contains "27pilots", so the filter should
	// find zero matches and fall back to keeping everything.
	if len(filtered) != 2 {
		t.Errorf("expected fallback to keep all when the search term matches no title, got %+v", filtered)
	}

	filtered = applySearchQueryFilter(candidates, "27pilots.com", "https://job.deloitte.com/search?search=pilot")
	if len(filtered) != 1 || filtered[0].Title != "Pilot Instructor" {
		t.Errorf("expected only the matching title to survive, got %+v", filtered)
	}
}

func TestLooksBlockedFlagsChallengeStatusCodes(t *testing.T) {
	for _, code := range []int{http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable} {
		if !looksBlocked(&httpfetch.Result{StatusCode: code, Body: make([]byte, 5000)}) {
			t.Errorf("expected status %d to be flagged as blocked regardless of body size", code)
		}
	}
}

func TestLooksBlockedFlagsThinBody(t *testing.T) {
	if !looksBlocked(&httpfetch.Result{StatusCode: http.StatusOK, Body: []byte("<html></html>")}) {
		t.Error("expected a body below MinRenderedBodyLen to be flagged as blocked")
	}
	if looksBlocked(&httpfetch.Result{StatusCode: http.StatusOK, Body: make([]byte, MinRenderedBodyLen)}) {
		t.Error("expected a body at MinRenderedBodyLen to not be flagged as blocked")
	}
}

func TestLooksBlockedFlagsNilResult(t *testing.T) {
	if !looksBlocked(nil) {
		t.Error("expected a nil result (fetch error) to be flagged as blocked")
	}
}

const jobPostingJSONLD = `<script type="application/ld+json">
{"@context":"https://schema.org/","@type":"JobPosting","title":"Platform Engineer",
 "jobLocation":{"@type":"Place","address":{"addressLocality":"Berlin"}},
 "url":"https://example.invalid/jobs/platform-engineer"}
</script>`

func newTestPipeline(t *testing.T, mux *http.ServeMux) (*Pipeline, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	st, err := store.Open(filepath.Join(t.TempDir(), "jobs.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	httpFetcher := httpfetch.New(nil, nil)

	head := func(ctx context.Context, rawURL string) (bool, error) {
		resp, err := httpFetcher.ProbeDomain(ctx, rawURL)
		return resp, err
	}
	get := func(ctx context.Context, rawURL string) ([]byte, int, error) {
		result, err := httpFetcher.Get(ctx, rawURL)
		if err != nil {
			return nil, 0, err
		}
		return result.Body, result.StatusCode, nil
	}
	disc := discover.New(head, get, llm.Provider{}, nil)

	registry := atsparsers.NewRegistry()
	hy := hybrid.New(registry, llm.Provider{}, nil, nil)

	p := New(st, httpFetcher, nil, nil, disc, registry, hy, llm.Provider{}, nil)
	return p, srv
}

func TestScanDiscoversAndExtractsViaHTMLHeuristicAndSchemaOrg(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><a href="/careers">Open Positions</a></body></html>`)
	})
	mux.HandleFunc("/careers", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body>%s</body></html>`, jobPostingJSONLD)
	})
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	p, srv := newTestPipeline(t, mux)

	result, err := p.Scan(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(result.Jobs) != 1 || result.Jobs[0].Title != "Platform Engineer" {
		t.Fatalf("expected the JSON-LD job to be discovered, got %+v", result.Jobs)
	}
	if !result.Sync.FirstScan || len(result.Sync.New) != 1 {
		t.Errorf("expected a first-scan sync adding one job, got %+v", result.Sync)
	}
}

func TestScanUsesCachedCareerURLOnSecondScan(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><a href="/careers">Careers</a></body></html>`)
	})
	mux.HandleFunc("/careers", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body>%s</body></html>`, jobPostingJSONLD)
	})
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	p, srv := newTestPipeline(t, mux)
	ctx := context.Background()

	if _, err := p.Scan(ctx, srv.URL); err != nil {
		t.Fatalf("first scan: %v", err)
	}

	result, err := p.Scan(ctx, srv.URL)
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if result.Sync.FirstScan {
		t.Error("expected second scan to not be a first scan")
	}
	if len(result.Jobs) != 1 {
		t.Errorf("expected the cached career url to still find the job, got %+v", result.Jobs)
	}
}
