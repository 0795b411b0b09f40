// Package discover implements the URL Discoverer (C4): locating a
// careers/jobs page from a seed URL by trying, in order, a career-subdomain
// probe, a sitemap walk, an HTML heuristic over the homepage, a
// brute-forced list of alternative paths, and finally an LLM fallback.
// Grounded file-for-file on original_source/src/searchers/url_discovery.py
// (CareerUrlDiscovery).
package discover

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/xmlquery"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"

	"jobradar/internal/llm"
)

// CareerSubdomains is the fixed subdomain probe list (spec.md §4.4).
var CareerSubdomains = []string{
	"jobs", "careers", "karriere", "stellen", "join", "work", "hiring", "career",
}

// CareerPatterns matches a URL path or anchor text against English, German
// and Russian career-page vocabulary.
var CareerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)/career[s]?`),
	regexp.MustCompile(`(?i)/job[s]?`),
	regexp.MustCompile(`(?i)/vacanc(?:y|ies)`),
	regexp.MustCompile(`(?i)/opening[s]?`),
	regexp.MustCompile(`(?i)/work[-_]?with[-_]?us`),
	regexp.MustCompile(`(?i)/join[-_]?us`),
	regexp.MustCompile(`(?i)/join[-_]?our[-_]?team`),
	regexp.MustCompile(`(?i)/hiring`),
	regexp.MustCompile(`(?i)/positions`),
	regexp.MustCompile(`(?i)/people[-_]?(?:and[-_]?)?jobs`),
	regexp.MustCompile(`(?i)/karriere`),
	regexp.MustCompile(`(?i)/stellen`),
	regexp.MustCompile(`(?i)/stellenangebote`),
	regexp.MustCompile(`(?i)/jobangebote`),
	regexp.MustCompile(`(?i)/arbeiten`),
	regexp.MustCompile(`(?i)/bewerben`),
	regexp.MustCompile(`(?i)/offene[-_]?stellen`),
	regexp.MustCompile(`/вакансии`),
	regexp.MustCompile(`/карьера`),
	regexp.MustCompile(`/работа`),
}

var careerKeywords = []string{
	"career", "careers", "jobs", "vacancies", "openings",
	"join us", "work with us", "we're hiring",
	"karriere", "stellen", "stellenangebote", "jobangebote",
	"offene stellen", "arbeiten bei uns", "jetzt bewerben",
	"вакансии", "карьера", "работа у нас", "присоединяйся",
}

const maxSitemapURLs = 300
const maxSitemapURLsForLLM = 100
const maxHomepageChars = 40_000

// HeadProbe reports whether a URL is reachable via a HEAD request,
// supplied by the HTTP Fetcher (C2).
type HeadProbe func(ctx context.Context, rawURL string) (reachable bool, err error)

// GetFetch retrieves a URL's body and status code, supplied by the HTTP
// Fetcher (C2).
type GetFetch func(ctx context.Context, rawURL string) (body []byte, statusCode int, err error)

// Discoverer wires the probe/fetch callbacks and an optional LLM provider
// for the final fallback tier.
type Discoverer struct {
	Head     HeadProbe
	Get      GetFetch
	Provider llm.Provider
	Logger   *logrus.Entry
}

// New builds a Discoverer. provider may be the zero value to disable the
// LLM fallback tier.
func New(head HeadProbe, get GetFetch, provider llm.Provider, logger *logrus.Entry) *Discoverer {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Discoverer{Head: head, Get: get, Provider: provider, Logger: logger}
}

// Discover runs every strategy in order and returns the first hit, or ""
// if none matched.
func (d *Discoverer) Discover(ctx context.Context, seedURL string) (string, error) {
	if found, err := d.discoverSubdomain(ctx, seedURL); err != nil {
		d.Logger.WithError(err).Debug("career subdomain probe failed")
	} else if found != "" {
		return found, nil
	}

	if found, err := d.sitemapWalk(ctx, seedURL); err != nil {
		d.Logger.WithError(err).Debug("sitemap walk failed")
	} else if found != "" {
		return found, nil
	}

	if found, err := d.htmlHeuristic(ctx, seedURL); err != nil {
		d.Logger.WithError(err).Debug("html heuristic failed")
	} else if found != "" {
		return found, nil
	}

	if found, err := d.bruteForce(ctx, seedURL); err != nil {
		d.Logger.WithError(err).Debug("alternative url brute-force failed")
	} else if found != "" {
		return found, nil
	}

	return d.llmFallback(ctx, seedURL)
}

// discoverSubdomain probes scheme://<sub>.<eTLD+1> for each known career
// subdomain, returning the first reachable one.
func (d *Discoverer) discoverSubdomain(ctx context.Context, seedURL string) (string, error) {
	if d.Head == nil {
		return "", nil
	}
	parsed, err := url.Parse(seedURL)
	if err != nil {
		return "", fmt.Errorf("discover: parse seed url: %w", err)
	}
	scheme := parsed.Scheme
	if scheme == "" {
		scheme = "https"
	}

	baseDomain, err := publicsuffix.EffectiveTLDPlusOne(parsed.Hostname())
	if err != nil {
		return "", nil
	}

	for _, sub := range CareerSubdomains {
		candidate := fmt.Sprintf("%s://%s.%s", scheme, sub, baseDomain)
		reachable, err := d.Head(ctx, candidate)
		if err != nil || !reachable {
			continue
		}
		d.Logger.WithField("url", candidate).Debug("found career subdomain")
		return candidate, nil
	}
	return "", nil
}

// sitemapWalk fetches robots.txt for Sitemap: directives, falls back to
// /sitemap.xml and /sitemap_index.xml, recurses into sitemap indexes
// (prioritizing career-matching nested sitemaps), and scores the resulting
// URL set for the best careers-page candidate.
func (d *Discoverer) sitemapWalk(ctx context.Context, seedURL string) (string, error) {
	if d.Get == nil {
		return "", nil
	}
	base := strings.TrimRight(seedURL, "/")

	var sitemapLocations []string
	if body, status, err := d.Get(ctx, base+"/robots.txt"); err == nil && status == 200 {
		for _, line := range strings.Split(string(body), "\n") {
			line = strings.TrimSpace(line)
			if lower := strings.ToLower(line); strings.HasPrefix(lower, "sitemap:") {
				loc := strings.TrimSpace(line[len("sitemap:"):])
				if loc != "" {
					sitemapLocations = append(sitemapLocations, loc)
				}
			}
		}
	}
	for _, loc := range []string{base + "/sitemap.xml", base + "/sitemap_index.xml", base + "/sitemap-index.xml"} {
		if !contains(sitemapLocations, loc) {
			sitemapLocations = append(sitemapLocations, loc)
		}
	}

	var allURLs []string
	for _, loc := range sitemapLocations {
		urls, err := d.parseSitemap(ctx, loc, true)
		if err != nil {
			d.Logger.WithError(err).WithField("sitemap", loc).Debug("sitemap parse failed")
			continue
		}
		allURLs = append(allURLs, urls...)
		if len(allURLs) >= maxSitemapURLs {
			break
		}
	}
	if len(allURLs) > maxSitemapURLs {
		allURLs = allURLs[:maxSitemapURLs]
	}

	var matching []string
	for _, u := range allURLs {
		if matchesCareerPattern(u) {
			matching = append(matching, u)
		}
	}
	if len(matching) > 0 {
		best := selectBestCareersURL(matching)
		d.Logger.WithField("url", best).Debug("found careers url in sitemap")
		return best, nil
	}

	if len(allURLs) > 0 && d.Provider.Complete != nil {
		urls := allURLs
		if len(urls) > maxSitemapURLsForLLM {
			urls = urls[:maxSitemapURLsForLLM]
		}
		prompt := llm.FindCareersFromSitemap(seedURL, urls)
		response, err := d.Provider.Complete(ctx, prompt, llm.SystemPrompt)
		if err != nil {
			return "", nil
		}
		return llm.ExtractURL(response, seedURL), nil
	}

	return "", nil
}

// parseSitemap parses one sitemap document. If it is an index and recurse
// is true, nested career-matching sitemaps are walked first, then the rest.
func (d *Discoverer) parseSitemap(ctx context.Context, sitemapURL string, recurse bool) ([]string, error) {
	body, status, err := d.Get(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}
	if status != 200 || len(body) == 0 {
		return nil, nil
	}
	trimmed := strings.TrimSpace(string(body))
	if !strings.HasPrefix(trimmed, "<?xml") && !strings.HasPrefix(trimmed, "<") {
		return nil, fmt.Errorf("discover: %s did not return xml", sitemapURL)
	}

	doc, err := xmlquery.Parse(strings.NewReader(trimmed))
	if err != nil {
		return nil, fmt.Errorf("discover: parse sitemap xml: %w", err)
	}

	if recurse {
		nested := xmlquery.Find(doc, "//*[local-name()='sitemap']/*[local-name()='loc']")
		if len(nested) > 0 {
			var priority, general []string
			for _, n := range nested {
				loc := strings.TrimSpace(n.InnerText())
				if loc == "" {
					continue
				}
				if matchesSitemapNameHint(loc) {
					priority = append(priority, loc)
				} else {
					general = append(general, loc)
				}
			}
			var urls []string
			for _, loc := range append(priority, general...) {
				nestedURLs, err := d.parseSitemap(ctx, loc, false)
				if err != nil {
					continue
				}
				urls = append(urls, nestedURLs...)
				if len(urls) >= maxSitemapURLs {
					break
				}
			}
			return urls, nil
		}
	}

	var urls []string
	for _, n := range xmlquery.Find(doc, "//*[local-name()='url']/*[local-name()='loc']") {
		if loc := strings.TrimSpace(n.InnerText()); loc != "" {
			urls = append(urls, loc)
		}
	}
	return urls, nil
}

// htmlHeuristic fetches the homepage and returns the first anchor whose
// href or visible text matches a career pattern/keyword.
func (d *Discoverer) htmlHeuristic(ctx context.Context, seedURL string) (string, error) {
	if d.Get == nil {
		return "", nil
	}
	body, status, err := d.Get(ctx, seedURL)
	if err != nil || status != 200 {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("discover: parse homepage html: %w", err)
	}

	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		text := strings.ToLower(strings.TrimSpace(s.Text()))

		if matchesCareerPattern(href) {
			found = resolveURL(seedURL, href)
			return false
		}
		for _, kw := range careerKeywords {
			if strings.Contains(text, kw) {
				found = resolveURL(seedURL, href)
				return false
			}
		}
		return true
	})
	return found, nil
}

// bruteForce tries a fixed list of guessed paths, returning the first that
// responds 200.
func (d *Discoverer) bruteForce(ctx context.Context, seedURL string) (string, error) {
	if d.Get == nil {
		return "", nil
	}
	for _, candidate := range alternativeURLs(seedURL) {
		_, status, err := d.Get(ctx, candidate)
		if err != nil {
			continue
		}
		if status == 200 {
			return candidate, nil
		}
	}
	return "", nil
}

// llmFallback sends the cleaned homepage HTML plus sitemap URLs to the LLM
// as a last resort.
func (d *Discoverer) llmFallback(ctx context.Context, seedURL string) (string, error) {
	if d.Provider.Complete == nil || d.Get == nil {
		return "", nil
	}
	body, status, err := d.Get(ctx, seedURL)
	if err != nil || status != 200 {
		return "", nil
	}
	cleaned, err := llm.PreprocessHTML(string(body))
	if err != nil {
		return "", nil
	}
	// The careers-page finder prompt needs far less context than full job
	// extraction, so it gets its own, tighter ceiling (spec.md §4.4) rather
	// than C8's 80000-char extraction limit.
	if len(cleaned) > maxHomepageChars {
		cleaned = cleaned[:maxHomepageChars]
	}

	sitemapURLs, _ := d.parseSitemap(ctx, strings.TrimRight(seedURL, "/")+"/sitemap.xml", true)
	if len(sitemapURLs) > maxSitemapURLsForLLM {
		sitemapURLs = sitemapURLs[:maxSitemapURLsForLLM]
	}

	prompt := llm.FindCareersPage(seedURL, cleaned, sitemapURLs)
	response, err := d.Provider.Complete(ctx, prompt, llm.SystemPrompt)
	if err != nil {
		return "", nil
	}
	return llm.ExtractURL(response, seedURL), nil
}

// matchesSitemapNameHint is a looser check than matchesCareerPattern,
// used to prioritize nested sitemap-index entries by filename/slug alone
// ("sitemap-careers.xml") rather than full career-page path shape.
func matchesSitemapNameHint(loc string) bool {
	lower := strings.ToLower(loc)
	for _, kw := range []string{"career", "job", "vacanc", "karriere", "stellen"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func matchesCareerPattern(s string) bool {
	for _, re := range CareerPatterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func resolveURL(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

// alternativeURLs generates the ~30 guessed career-page paths (spec.md
// §4.4 step 4).
func alternativeURLs(seedURL string) []string {
	base := strings.TrimRight(seedURL, "/")
	return []string{
		base + "/careers", base + "/careers.html",
		base + "/jobs", base + "/jobs.html",
		base + "/vacancies", base + "/vacancies.html",
		base + "/career", base + "/career.html",
		base + "/join", base + "/team",
		base + "/about/careers", base + "/about-us/careers", base + "/company/careers",
		base + "/en/careers",
		base + "/karriere", base + "/karriere.html",
		base + "/stellen", base + "/stellen.html",
		base + "/stellenangebote", base + "/stellenangebote.html",
		base + "/offene-stellen", base + "/offene-stellen.html",
		base + "/de/karriere", base + "/ueber-uns/karriere", base + "/unternehmen/karriere",
		base + "/jobs-karriere",
		base + "/people-jobs", base + "/people-jobs/offene-stellen", base + "/people-and-jobs",
		base + "/ru/careers", base + "/o-kompanii/vakansii", base + "/company/vacancies",
	}
}

var (
	jobListingEndings = []string{
		"/jobs", "/jobs.html", "/job", "/job.html",
		"/vacancies", "/vacancies.html", "/vacancy", "/vacancy.html",
		"/openings", "/openings.html", "/opening", "/opening.html",
		"/careers", "/careers.html",
		"/stellenangebote", "/stellenangebote.html",
		"/offene-stellen", "/offene-stellen.html",
		"/stellen", "/stellen.html",
		"/вакансии", "/вакансии.html",
	}
	generalCareersEndings = []string{
		"/career", "/career.html",
		"/karriere", "/karriere.html",
		"/people-jobs", "/people-jobs.html",
		"/people-and-jobs", "/people-and-jobs.html",
		"/карьера", "/карьера.html",
		"/работа", "/работа.html",
	}
)

// urlScore is a lexicographically-compared tie-break tuple: lower is
// better, matching _select_best_careers_url's scoring tuple.
type urlScore struct {
	priority int
	index    int
	segments int
	length   int
}

func less(a, b urlScore) bool {
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	if a.index != b.index {
		return a.index < b.index
	}
	if a.segments != b.segments {
		return a.segments < b.segments
	}
	return a.length < b.length
}

func scoreURL(rawURL string) urlScore {
	parsed, err := url.Parse(rawURL)
	path := ""
	if err == nil {
		path = strings.TrimRight(parsed.Path, "/")
	}
	pathNormalized := strings.ReplaceAll(path, ".html", "")
	var segments []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}

	for i, ending := range jobListingEndings {
		endingNormalized := strings.ReplaceAll(ending, ".html", "")
		if strings.HasSuffix(path, ending) || strings.HasSuffix(pathNormalized, endingNormalized) {
			return urlScore{0, i, len(segments), len(rawURL)}
		}
	}
	for i, ending := range generalCareersEndings {
		endingNormalized := strings.ReplaceAll(ending, ".html", "")
		if strings.HasSuffix(path, ending) || strings.HasSuffix(pathNormalized, endingNormalized) {
			return urlScore{1, i, len(segments), len(rawURL)}
		}
	}

	lastSegment := ""
	if len(segments) > 0 {
		lastSegment = segments[len(segments)-1]
	}
	if len(lastSegment) < 30 {
		return urlScore{2, 0, len(segments), len(rawURL)}
	}
	return urlScore{3, 0, len(segments), len(rawURL)}
}

// selectBestCareersURL picks the lowest-scoring URL from a set of
// career-pattern matches.
func selectBestCareersURL(urls []string) string {
	sorted := make([]string, len(urls))
	copy(sorted, urls)
	sort.Slice(sorted, func(i, j int) bool {
		return less(scoreURL(sorted[i]), scoreURL(sorted[j]))
	})
	return sorted[0]
}

var singularToPlural = []struct{ singular, plural string }{
	{"/job.html", "/jobs.html"},
	{"/job", "/jobs"},
	{"/vacancy.html", "/vacancies.html"},
	{"/vacancy", "/vacancies"},
	{"/opening.html", "/openings.html"},
	{"/opening", "/openings"},
	{"/career.html", "/careers.html"},
	{"/career", "/careers"},
	{"/stelle.html", "/stellen.html"},
	{"/stelle", "/stellen"},
}

// GenerateUrlVariants produces singular<->plural morphs of a careers URL
// for internal retry (spec.md §4.4's GenerateUrlVariants).
func GenerateUrlVariants(rawURL string) []string {
	variants := []string{rawURL}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return variants
	}
	path := parsed.Path

	for _, m := range singularToPlural {
		if strings.HasSuffix(path, m.singular) {
			newPath := path[:len(path)-len(m.singular)] + m.plural
			variants = append(variants, fmt.Sprintf("%s://%s%s", parsed.Scheme, parsed.Host, newPath))
			break
		}
	}
	for _, m := range singularToPlural {
		if strings.HasSuffix(path, m.plural) {
			newPath := path[:len(path)-len(m.plural)] + m.singular
			variants = append(variants, fmt.Sprintf("%s://%s%s", parsed.Scheme, parsed.Host, newPath))
			break
		}
	}
	return variants
}
