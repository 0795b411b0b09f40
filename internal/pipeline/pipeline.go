// Package pipeline implements the Site Pipeline (C13): the end-to-end
// orchestration of one company-website scan, wiring together the Rate
// Limiter, both Fetchers, the URL Discoverer, the Platform Detector, the
// Hybrid Extractor and the Persistence Store.
//
// Grounded on original_source/src/searchers/cache_manager.py's
// CacheManager (search_with_cache / save_to_cache: cache-first try, the
// suspicion-heuristic-gated MarkURLFailed fallback, the post-extraction
// _maybe_extract_company_info side call) and job_filters.py
// (filter_jobs_by_source_company, filter_jobs_by_search_query), with the
// top-level control flow modeled on website.py's WebsiteSearcher.search.
package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/errgroup"

	"jobradar/internal/atsparsers"
	"jobradar/internal/discover"
	"jobradar/internal/extract/hybrid"
	"jobradar/internal/fetch/browser"
	httpfetch "jobradar/internal/fetch/http"
	"jobradar/internal/jobserr"
	"jobradar/internal/llm"
	"jobradar/internal/platform"
	"jobradar/internal/store"
	"jobradar/pkg/models"
)

// MinRenderedBodyLen is the byte threshold below which a plain HTTP fetch
// is considered too thin to be a real listing page (likely a JS shell),
// triggering a Browser Fetcher fallback when one is configured.
const MinRenderedBodyLen = 800

// Pipeline wires every component needed to scan one site end to end.
type Pipeline struct {
	Store      *store.Store
	HTTP       *httpfetch.Fetcher
	Browser    *browser.Manager            // optional; nil disables the JS-rendering/navigation fallback
	Firecrawl  *httpfetch.FirecrawlFetcher // optional; nil disables the scraping-API last-resort fallback
	Discoverer *discover.Discoverer
	Registry   *atsparsers.Registry
	Hybrid     *hybrid.Extractor
	Provider   llm.Provider
	Logger     *logrus.Entry
}

// New builds a Pipeline from its already-constructed dependencies.
func New(st *store.Store, httpFetcher *httpfetch.Fetcher, browserMgr *browser.Manager, firecrawl *httpfetch.FirecrawlFetcher, disc *discover.Discoverer, registry *atsparsers.Registry, hy *hybrid.Extractor, provider llm.Provider, logger *logrus.Entry) *Pipeline {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Pipeline{Store: st, HTTP: httpFetcher, Browser: browserMgr, Firecrawl: firecrawl, Discoverer: disc, Registry: registry, Hybrid: hy, Provider: provider, Logger: logger}
}

// Result is Scan's return value: the final candidate set plus the
// Persistence Store's reconciliation delta.
type Result struct {
	Site models.Site
	Jobs []models.JobCandidate
	Sync models.SyncResult
}

// Scan runs one full site scan per spec §4.13.
func (p *Pipeline) Scan(ctx context.Context, inputURL string) (Result, error) {
	normalized, err := normalizeInputURL(inputURL)
	if err != nil {
		return Result{}, fmt.Errorf("pipeline: normalize %q: %w", inputURL, err)
	}
	domain, err := bareDomain(normalized)
	if err != nil {
		return Result{}, fmt.Errorf("pipeline: extract domain: %w", err)
	}

	if reachable, err := p.HTTP.ProbeDomain(ctx, normalized); err != nil || !reachable {
		if err == nil {
			err = fmt.Errorf("probe returned unreachable")
		}
		return Result{}, fmt.Errorf("pipeline: %s: %w", domain, jobserr.ErrDomainUnreachable)
	}

	companyName := companyNameFromDomain(domain)
	site, err := p.Store.GetOrCreateSite(ctx, domain, companyName)
	if err != nil {
		return Result{}, fmt.Errorf("pipeline: get or create site: %w", err)
	}

	candidates, finalURL, careerURLID, err := p.fromCache(ctx, site, domain, normalized)
	if err != nil {
		p.Logger.WithError(err).WithField("domain", domain).Debug("pipeline: cache-first path unavailable, running discovery")
		candidates, finalURL, err = p.fromDiscovery(ctx, site, domain, normalized)
		if err != nil {
			return Result{}, err
		}
		careerURLID = 0
	}

	candidates = applySearchQueryFilter(candidates, domain, finalURL)

	p.sideEffects(ctx, site, domain, candidates)

	syncResult, err := p.Store.Sync(ctx, site.ID, candidates)
	if err != nil {
		return Result{}, fmt.Errorf("pipeline: sync: %w", err)
	}
	if err := p.Store.UpdateSiteScanned(ctx, site.ID); err != nil {
		p.Logger.WithError(err).Warn("pipeline: failed to update last_scanned_at")
	}
	if careerURLID != 0 {
		if len(candidates) > 0 {
			_ = p.Store.MarkURLSuccess(ctx, careerURLID)
		}
	}

	return Result{Site: site, Jobs: candidates, Sync: syncResult}, nil
}

// fromCache implements spec §4.13 step 3: try every cached career URL in
// turn, gated by the suspicion heuristic on a zero-job result, and apply
// the source-company filter when the working URL is an external board.
func (p *Pipeline) fromCache(ctx context.Context, site models.Site, domain, inputURL string) (candidates []models.JobCandidate, finalURL string, workingURLID int64, err error) {
	careerURLs, err := p.Store.GetCareerURLs(ctx, site.ID, true)
	if err != nil {
		return nil, "", 0, err
	}
	if len(careerURLs) == 0 {
		return nil, "", 0, fmt.Errorf("no cached career urls for %s", domain)
	}

	var all []models.JobCandidate
	var working *models.CareerUrl
	var workingFinalURL string

	for i := range careerURLs {
		cu := careerURLs[i]

		_, landedURL, lerr := p.fetchWithFallback(ctx, cu.URL)
		if lerr != nil || landedURL == "" {
			landedURL = cu.URL
		}

		pageCandidates, perr := p.Hybrid.Paginate(ctx, cu.URL, cu.Platform, p.fetchPage)
		if perr != nil || len(pageCandidates) == 0 {
			if perr == nil {
				suspicious, serr := p.Store.IsCacheSuspicious(ctx, site.ID, 0)
				if serr == nil && !suspicious {
					// too little job history to distrust an empty listing
					working = &cu
					workingFinalURL = landedURL
					continue
				}
				if suspicious {
					p.Logger.WithField("url", cu.URL).Warn("pipeline: cached url returned zero jobs after many prior jobs, treating as failure")
				}
			}
			if _, ferr := p.Store.MarkURLFailed(ctx, cu.ID); ferr != nil {
				p.Logger.WithError(ferr).Warn("pipeline: failed to record cached-url failure")
			}
			continue
		}
		all = append(all, pageCandidates...)
		working = &cu
		workingFinalURL = landedURL
	}

	if working == nil {
		return nil, "", 0, fmt.Errorf("all cached career urls failed for %s", domain)
	}

	if isExternalDomain(workingFinalURL, domain) {
		all = filterBySourceCompany(all, inputURL)
	}

	return all, workingFinalURL, working.ID, nil
}

// fromDiscovery implements spec §4.13 step 4: run the URL Discoverer, then
// extract jobs from the discovered URL and persist site + career URL + jobs.
func (p *Pipeline) fromDiscovery(ctx context.Context, site models.Site, domain, inputURL string) (candidates []models.JobCandidate, finalURL string, err error) {
	careersURL, err := p.Discoverer.Discover(ctx, inputURL)
	if err != nil {
		return nil, "", fmt.Errorf("pipeline: discover careers url: %w", err)
	}

	body, landedURL, ferr := p.fetchWithFallback(ctx, careersURL)
	if ferr != nil {
		return nil, "", fmt.Errorf("pipeline: fetch discovered url %s: %w", careersURL, ferr)
	}
	if landedURL == "" {
		landedURL = careersURL
	}
	plat := platform.Detect(landedURL, string(body))

	found, err := p.Hybrid.Paginate(ctx, landedURL, plat, p.fetchPage)
	if err != nil {
		return nil, "", fmt.Errorf("pipeline: extract from %s: %w", careersURL, err)
	}

	if isExternalDomain(landedURL, domain) {
		found = filterBySourceCompany(found, inputURL)
	}

	cleanURL := stripQuery(careersURL)
	if _, aerr := p.Store.AddCareerURL(ctx, site.ID, cleanURL, plat); aerr != nil {
		p.Logger.WithError(aerr).Warn("pipeline: failed to persist discovered career url")
	}

	return found, landedURL, nil
}

// sideEffects runs translation and company-info extraction concurrently,
// per spec §4.13 step 5: "in parallel with job translation, extract
// company-info ... if the site lacks one".
func (p *Pipeline) sideEffects(ctx context.Context, site models.Site, domain string, candidates []models.JobCandidate) {
	if p.Provider.Translate == nil && p.Provider.Complete == nil {
		return
	}

	g, gctx := errgroup.WithContext(ctx)

	if p.Provider.Translate != nil && len(candidates) > 0 {
		titles := make([]string, len(candidates))
		for i, c := range candidates {
			titles[i] = c.Title
		}
		g.Go(func() error {
			translated, terr := p.Provider.Translate(gctx, titles)
			if terr != nil {
				p.Logger.WithError(terr).Warn("pipeline: title translation failed")
				return nil
			}
			if len(translated) != len(candidates) {
				p.Logger.Warn("pipeline: translation result length mismatch, discarding")
				return nil
			}
			for i := range candidates {
				candidates[i].Signals = mergeTranslation(candidates[i].Signals, translated[i])
			}
			return nil
		})
	}

	if p.Provider.Complete != nil && site.Description == "" {
		g.Go(func() error {
			homepage := "https://" + domain
			html, ferr := p.fetchPage(gctx, homepage)
			if ferr != nil || len(html) == 0 {
				return nil
			}
			cleaned, perr := llm.PreprocessHTML(string(html))
			if perr != nil {
				return nil
			}
			description, cerr := p.Provider.Complete(gctx, llm.ExtractCompanyInfo(homepage, cleaned), llm.SystemPrompt)
			if cerr != nil || strings.TrimSpace(description) == "" {
				return nil
			}
			if serr := p.Store.SetSiteDescription(gctx, site.ID, strings.TrimSpace(description)); serr != nil {
				p.Logger.WithError(serr).Warn("pipeline: failed to persist company description")
			}
			return nil
		})
	}

	_ = g.Wait()
}

// mergeTranslation only records on the candidate's signals that a
// translation was attempted. The translated title itself is dropped:
// JobCandidate has no field for it, and Sync stores jobs with an empty
// title_en.
func mergeTranslation(signals map[string]bool, _ string) map[string]bool {
	if signals == nil {
		signals = map[string]bool{}
	}
	signals["translated"] = true
	return signals
}

// fetchPage retrieves one page's body, discarding the navigated final URL —
// the Fetcher signature Hybrid.Paginate calls per pagination page. Callers
// that need the final URL (the landing fetch in fromCache/fromDiscovery)
// call fetchWithFallback directly.
func (p *Pipeline) fetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	body, _, err := p.fetchWithFallback(ctx, pageURL)
	return body, err
}

// fetchWithFallback retrieves one page's body and the URL it actually
// landed on, trying each backend in turn per spec §4.13: a plain HTTP GET
// first; if the response looks blocked (a block/challenge status code, or
// a body too thin to be real rendered content) and a Browser Fetcher is
// configured, falls back to full navigation (cookie consent, SPA settle,
// CAPTCHA solving, external-ATS iframe fallback) via FetchWithNavigation,
// whose FinalURL is threaded back to the caller for the cross-domain
// filters in Scan; if that's unavailable or still fails and a Firecrawl
// Fetcher is configured, falls back to the Firecrawl scraping API as a
// last resort.
func (p *Pipeline) fetchWithFallback(ctx context.Context, pageURL string) (body []byte, finalURL string, err error) {
	result, httpErr := p.HTTP.Get(ctx, pageURL)
	if httpErr == nil && !looksBlocked(result) {
		return result.Body, result.FinalURL, nil
	}

	if p.Browser != nil {
		nav, berr := p.Browser.FetchWithNavigation(ctx, pageURL, 0)
		if berr == nil {
			nav.Page.Release()
			return []byte(nav.HTML), nav.FinalURL, nil
		}
		p.Logger.WithError(berr).WithField("url", pageURL).
			Debug("pipeline: browser navigation fallback failed, trying next tier")
	}

	if p.Firecrawl != nil {
		fcResult, ferr := p.Firecrawl.Get(pageURL)
		if ferr == nil {
			return fcResult.Body, fcResult.FinalURL, nil
		}
		p.Logger.WithError(ferr).WithField("url", pageURL).Debug("pipeline: firecrawl fallback failed")
	}

	if httpErr != nil {
		return nil, "", httpErr
	}
	return result.Body, result.FinalURL, nil
}

// looksBlocked reports whether an HTTP response is likely a block/challenge
// page rather than real content: a 403/429/503 status, or a body too thin
// to be a rendered listing (MinRenderedBodyLen, the JS-shell-SPA heuristic).
func looksBlocked(result *httpfetch.Result) bool {
	if result == nil {
		return true
	}
	switch result.StatusCode {
	case http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true
	}
	return len(result.Body) < MinRenderedBodyLen
}

// normalizeInputURL adds an https:// scheme to a schemeless input, per
// spec §4.13 step 1.
func normalizeInputURL(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid url")
	}
	return trimmed, nil
}

// bareDomain extracts rawURL's host with a leading "www." stripped.
func bareDomain(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www."), nil
}

// isExternalDomain reports whether target's registrable domain differs
// from siteDomain, ignoring a "www." prefix difference (spec §4.13 step 6
// / step 3's "different registrable domain from input").
func isExternalDomain(target, siteDomain string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	targetDomain, err := publicsuffix.EffectiveTLDPlusOne(strings.TrimPrefix(u.Hostname(), "www."))
	if err != nil {
		targetDomain = strings.TrimPrefix(u.Hostname(), "www.")
	}
	site, err := publicsuffix.EffectiveTLDPlusOne(siteDomain)
	if err != nil {
		site = siteDomain
	}
	return !strings.EqualFold(targetDomain, site)
}

// stripQuery removes query and fragment before a career URL is cached, so
// a filtered search URL (?q=...) is never the cached entry point (spec
// §4.13 step 4, grounded on cache_manager.py's _clean_career_url).
func stripQuery(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

var companyDomainSplit = regexp.MustCompile(`(?i)^(\d+[a-z]?)(.*)$`)

// companyVariants returns morphological variants of a domain's base name
// used for source-company matching (job_filters.py's
// filter_jobs_by_source_company).
func companyVariants(domain string) []string {
	base := domain
	if idx := strings.Index(base, "."); idx > 0 {
		base = base[:idx]
	}
	base = strings.ToLower(base)

	variants := []string{base, strings.ReplaceAll(base, "-", " ")}
	if m := companyDomainSplit.FindStringSubmatch(base); m != nil && m[2] != "" {
		prefix, suffix := m[1], m[2]
		variants = append(variants, prefix+" "+suffix, prefix)
	}
	return variants
}

// filterBySourceCompany keeps only candidates whose title+location+company
// text mentions a variant of the source domain's base name — used when
// navigation lands on a multi-tenant external career portal (spec §4.13
// step 3, job_filters.py's filter_jobs_by_source_company).
func filterBySourceCompany(candidates []models.JobCandidate, sourceURL string) []models.JobCandidate {
	if len(candidates) == 0 {
		return candidates
	}
	u, err := url.Parse(sourceURL)
	if err != nil {
		return candidates
	}
	domain := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	variants := companyVariants(domain)

	var filtered []models.JobCandidate
	for _, c := range candidates {
		text := strings.ToLower(c.Title + " " + c.Location + " " + c.Company)
		for _, v := range variants {
			if v != "" && strings.Contains(text, v) {
				filtered = append(filtered, c)
				break
			}
		}
	}
	if len(filtered) > 0 {
		return filtered
	}
	return candidates
}

var searchParamNames = []string{"search", "q", "query", "keyword", "keywords"}

// applySearchQueryFilter implements spec §4.13 step 6: when finalURL is on
// a different registered domain than siteDomain and carries a
// search/query/keyword parameter, keep only candidates whose title
// contains that term (case-insensitive substring); an empty filter result
// keeps everything. Same-registered-domain navigation (including a
// "www." difference) is never filtered — it's internal navigation, not a
// search (job_filters.py's filter_jobs_by_search_query).
func applySearchQueryFilter(candidates []models.JobCandidate, siteDomain, finalURL string) []models.JobCandidate {
	if finalURL == "" || !isExternalDomain(finalURL, siteDomain) {
		return candidates
	}
	u, err := url.Parse(finalURL)
	if err != nil {
		return candidates
	}
	query := u.Query()
	var term string
	for _, name := range searchParamNames {
		if v := query.Get(name); v != "" {
			term = strings.ToLower(v)
			break
		}
	}
	if term == "" {
		return candidates
	}

	var filtered []models.JobCandidate
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c.Title), term) {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) > 0 {
		return filtered
	}
	return candidates
}

var tldSuffixRe = regexp.MustCompile(`(?i)\.(com|ru|org|net|io|co|tech|de)$`)

// companyNameFromDomain derives a display company name from a bare domain,
// grounded on job_converter.py's extract_company_name.
func companyNameFromDomain(domain string) string {
	name := tldSuffixRe.ReplaceAllString(domain, "")
	parts := strings.FieldsFunc(name, func(r rune) bool { return r == '-' || r == '.' || r == '_' })
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, " ")
}

// The CareerUrl state machine of spec §4.13 — fresh -> active <->
// degraded (fail_count 1..2) -> inactive (fail_count >= 3); success
// anywhere resets to active with counter 0 — is enforced entirely by
// Store.MarkURLFailed/MarkURLSuccess; nothing here re-implements it.
