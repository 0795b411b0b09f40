package discover

import (
	"context"
	"strings"
	"testing"

	"jobradar/internal/llm"
)

const sitemapXML = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://acme.com/about</loc></url>
  <url><loc>https://acme.com/careers/jobs</loc></url>
  <url><loc>https://acme.com/blog/post-1</loc></url>
</urlset>`

const sitemapIndexXML = `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>https://acme.com/sitemap-pages.xml</loc></sitemap>
  <sitemap><loc>https://acme.com/sitemap-careers.xml</loc></sitemap>
</sitemapindex>`

func newDiscoverer(head HeadProbe, get GetFetch, provider llm.Provider) *Discoverer {
	return New(head, get, provider, nil)
}

func TestDiscoverFindsCareerSubdomain(t *testing.T) {
	head := func(ctx context.Context, rawURL string) (bool, error) {
		return rawURL == "https://jobs.acme.com", nil
	}
	d := newDiscoverer(head, nil, llm.Provider{})

	found, err := d.Discover(context.Background(), "https://www.acme.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found != "https://jobs.acme.com" {
		t.Errorf("expected career subdomain match, got %q", found)
	}
}

func TestSitemapWalkFindsCareerMatchingURL(t *testing.T) {
	get := func(ctx context.Context, rawURL string) ([]byte, int, error) {
		switch {
		case strings.HasSuffix(rawURL, "/robots.txt"):
			return []byte("User-agent: *\n"), 404, nil
		case strings.HasSuffix(rawURL, "/sitemap.xml"):
			return []byte(sitemapXML), 200, nil
		default:
			return nil, 404, nil
		}
	}
	d := newDiscoverer(nil, get, llm.Provider{})

	found, err := d.sitemapWalk(context.Background(), "https://acme.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found != "https://acme.com/careers/jobs" {
		t.Errorf("expected careers url from sitemap, got %q", found)
	}
}

func TestSitemapWalkRecursesIntoIndexPrioritizingCareersSitemap(t *testing.T) {
	get := func(ctx context.Context, rawURL string) ([]byte, int, error) {
		switch rawURL {
		case "https://acme.com/robots.txt":
			return nil, 404, nil
		case "https://acme.com/sitemap.xml":
			return []byte(sitemapIndexXML), 200, nil
		case "https://acme.com/sitemap-careers.xml":
			return []byte(sitemapXML), 200, nil
		case "https://acme.com/sitemap-pages.xml":
			return []byte(`<?xml version="1.0"?><urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9"><url><loc>https://acme.com/home</loc></url></urlset>`), 200, nil
		default:
			return nil, 404, nil
		}
	}
	d := newDiscoverer(nil, get, llm.Provider{})

	found, err := d.sitemapWalk(context.Background(), "https://acme.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found != "https://acme.com/careers/jobs" {
		t.Errorf("expected careers url recovered from nested sitemap, got %q", found)
	}
}

func TestHTMLHeuristicMatchesAnchorHref(t *testing.T) {
	html := `<html><body>
		<a href="/about">About</a>
		<a href="/careers">Open positions</a>
	</body></html>`
	get := func(ctx context.Context, rawURL string) ([]byte, int, error) {
		return []byte(html), 200, nil
	}
	d := newDiscoverer(nil, get, llm.Provider{})

	found, err := d.htmlHeuristic(context.Background(), "https://acme.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found != "https://acme.com/careers" {
		t.Errorf("expected anchor href match, got %q", found)
	}
}

func TestHTMLHeuristicMatchesAnchorText(t *testing.T) {
	html := `<html><body>
		<a href="/misc/42">We're hiring</a>
	</body></html>`
	get := func(ctx context.Context, rawURL string) ([]byte, int, error) {
		return []byte(html), 200, nil
	}
	d := newDiscoverer(nil, get, llm.Provider{})

	found, err := d.htmlHeuristic(context.Background(), "https://acme.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found != "https://acme.com/misc/42" {
		t.Errorf("expected anchor text keyword match, got %q", found)
	}
}

func TestBruteForceReturnsFirstReachablePath(t *testing.T) {
	get := func(ctx context.Context, rawURL string) ([]byte, int, error) {
		if rawURL == "https://acme.com/karriere" {
			return nil, 200, nil
		}
		return nil, 404, nil
	}
	d := newDiscoverer(nil, get, llm.Provider{})

	found, err := d.bruteForce(context.Background(), "https://acme.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found != "https://acme.com/karriere" {
		t.Errorf("expected brute-force hit, got %q", found)
	}
}

func TestLLMFallbackExtractsURLFromResponse(t *testing.T) {
	get := func(ctx context.Context, rawURL string) ([]byte, int, error) {
		if strings.HasSuffix(rawURL, "/sitemap.xml") {
			return nil, 404, nil
		}
		return []byte("<html><body>Welcome to Acme</body></html>"), 200, nil
	}
	provider := llm.Provider{
		Complete: func(ctx context.Context, prompt, system string) (string, error) {
			return "The careers page is at https://acme.com/join-us", nil
		},
	}
	d := newDiscoverer(nil, get, provider)

	found, err := d.llmFallback(context.Background(), "https://acme.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found != "https://acme.com/join-us" {
		t.Errorf("expected llm fallback url, got %q", found)
	}
}

func TestDiscoverRunsStrategiesInOrder(t *testing.T) {
	subdomainCalled := false
	head := func(ctx context.Context, rawURL string) (bool, error) {
		subdomainCalled = true
		return false, nil
	}
	get := func(ctx context.Context, rawURL string) ([]byte, int, error) {
		if strings.HasSuffix(rawURL, "/careers") {
			return nil, 200, nil
		}
		return nil, 404, nil
	}
	d := newDiscoverer(head, get, llm.Provider{})

	found, err := d.Discover(context.Background(), "https://acme.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !subdomainCalled {
		t.Error("expected subdomain probe to run first")
	}
	if found != "https://acme.com/careers" {
		t.Errorf("expected bruteforce match to win when subdomain/sitemap/heuristic fail, got %q", found)
	}
}

func TestSelectBestCareersURLPrefersJobListingSuffix(t *testing.T) {
	urls := []string{"https://acme.com/about/career", "https://acme.com/careers/jobs"}
	best := selectBestCareersURL(urls)
	if best != "https://acme.com/careers/jobs" {
		t.Errorf("expected job-listing-suffix url to win, got %q", best)
	}
}

func TestSelectBestCareersURLBreaksTiesByShorterPath(t *testing.T) {
	urls := []string{"https://acme.com/about/our/company/careers/jobs", "https://acme.com/careers/jobs"}
	best := selectBestCareersURL(urls)
	if best != "https://acme.com/careers/jobs" {
		t.Errorf("expected fewer path segments to win the tie, got %q", best)
	}
}

func TestGenerateUrlVariantsMorphsSingularToPlural(t *testing.T) {
	variants := GenerateUrlVariants("https://acme.com/job.html")
	if !containsStr(variants, "https://acme.com/jobs.html") {
		t.Errorf("expected plural variant, got %v", variants)
	}
}

func TestGenerateUrlVariantsMorphsPluralToSingular(t *testing.T) {
	variants := GenerateUrlVariants("https://acme.com/stellen")
	if !containsStr(variants, "https://acme.com/stelle") {
		t.Errorf("expected singular variant, got %v", variants)
	}
}

func containsStr(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
