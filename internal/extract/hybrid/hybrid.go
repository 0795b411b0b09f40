// Package hybrid implements the Hybrid Extractor (C10): per spec.md §4.10,
// extended per SPEC_FULL.md §4.15. For each page it runs an ordered chain
// of extraction strategies — platform-specific ATS parser, Schema.org,
// PDF-filename, the pre-LLM heuristic tier (gender notation, list
// structure, keyword match), and finally the LLM extractor — stopping at
// the first strategy that yields candidates. It also owns the pagination
// loop across pages of one career URL.
package hybrid

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"jobradar/internal/atsparsers"
	"jobradar/internal/extract/heuristic"
	"jobradar/internal/extract/pdfname"
	"jobradar/internal/extract/schemaorg"
	"jobradar/internal/jobserr"
	"jobradar/internal/llm"
	"jobradar/internal/llmcache"
	"jobradar/internal/normalize"
	"jobradar/pkg/models"
)

// MaxPaginationPages bounds the pagination loop (spec.md §4.10).
const MaxPaginationPages = 10

// Fetcher retrieves one page's body given a URL: rendered HTML for a
// regular page, or a raw JSON response body for an API-based platform
// endpoint. Supplied by the Site Pipeline (C13), backed by the HTTP or
// Browser Fetcher.
type Fetcher func(ctx context.Context, pageURL string) (body []byte, err error)

// Extractor wires the ordered strategy chain together. Provider and Cache
// are optional: a zero-value Provider disables the LLM tier entirely, and
// a nil Cache disables caching of LLM calls.
type Extractor struct {
	Registry *atsparsers.Registry
	Provider llm.Provider
	Cache    *llmcache.Cache
	Logger   *logrus.Entry
}

// New builds an Extractor. provider may be the zero value to run without
// an LLM fallback tier (useful in tests or for platforms fully covered by
// the structured tiers).
func New(registry *atsparsers.Registry, provider llm.Provider, cache *llmcache.Cache, logger *logrus.Entry) *Extractor {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Extractor{Registry: registry, Provider: provider, Cache: cache, Logger: logger}
}

// ExtractPage runs the ordered strategy chain against one already-fetched
// page. bypassPagination is true when an ATS parser handled the page: ATS
// parsers return the complete listing, so the pagination loop in Paginate
// must not continue past them regardless of any next_page_url hint.
func (e *Extractor) ExtractPage(ctx context.Context, pageURL, platform string, body []byte) (candidates []models.JobCandidate, nextPageURL string, bypassPagination bool, err error) {
	if platform != "" && e.Registry.Supports(platform) {
		if e.Registry.IsAPIBased(platform) {
			candidates, err = e.Registry.ParseAPIJSON(body, pageURL, platform)
		} else {
			doc, perr := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
			if perr != nil {
				return nil, "", false, fmt.Errorf("hybrid: parse html: %w", perr)
			}
			candidates, err = e.Registry.Parse(doc, pageURL, platform)
		}
		return candidates, "", true, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, "", false, fmt.Errorf("hybrid: parse html: %w", err)
	}

	if found := schemaorg.Extract(doc, pageURL); len(found) > 0 {
		e.Logger.WithField("url", pageURL).Debug("hybrid extractor: schema.org tier matched")
		return found, "", false, nil
	}
	if found := pdfname.Extract(doc, pageURL); len(found) > 0 {
		e.Logger.WithField("url", pageURL).Debug("hybrid extractor: pdf-filename tier matched")
		return found, "", false, nil
	}
	if found := e.heuristicTier(doc, pageURL); len(found) > 0 {
		return found, "", false, nil
	}

	return e.extractWithLLM(ctx, pageURL, string(body))
}

// heuristicTier runs GenderNotation, then ListStructure, then KeywordMatch,
// returning the first non-empty result (SPEC_FULL.md §4.15 order).
func (e *Extractor) heuristicTier(doc *goquery.Document, pageURL string) []models.JobCandidate {
	if found := heuristic.GenderNotation(doc, pageURL); len(found) > 0 {
		e.Logger.WithField("url", pageURL).Debug("hybrid extractor: gender-notation tier matched")
		return found
	}
	if found := heuristic.ListStructure(doc, pageURL); len(found) > 0 {
		e.Logger.WithField("url", pageURL).Debug("hybrid extractor: list-structure tier matched")
		return found
	}
	if found := heuristic.KeywordMatch(doc, pageURL); len(found) > 0 {
		e.Logger.WithField("url", pageURL).Debug("hybrid extractor: keyword-match tier matched")
		return found
	}
	return nil
}

// extractWithLLM is the final tier: preprocess the page, ask the LLM for
// structured jobs (cached per SPEC_FULL.md's C9 wiring), and convert the
// response into candidates.
func (e *Extractor) extractWithLLM(ctx context.Context, pageURL, rawHTML string) ([]models.JobCandidate, string, bool, error) {
	if e.Provider.CompleteStructured == nil {
		return nil, "", false, fmt.Errorf("hybrid: no extraction tier matched and no LLM provider configured: %w", jobserr.ErrParseEmpty)
	}

	cleaned, err := llm.PreprocessHTML(rawHTML)
	if err != nil {
		return nil, "", false, fmt.Errorf("hybrid: preprocess html: %w", err)
	}

	call := func() (any, error) {
		prompt := llm.ExtractJobs(pageURL, cleaned)
		result, err := e.Provider.CompleteStructured(ctx, prompt)
		if err != nil {
			return nil, err
		}
		return result, nil
	}

	var result llm.JobsResult
	if e.Cache != nil {
		err = e.Cache.GetOrCompute(ctx, llmcache.NamespaceJobs, pageURL+"|"+cleaned, &result, call, llmcache.EstimateTokens(cleaned))
	} else {
		var raw any
		raw, err = call()
		if err == nil {
			result = raw.(llm.JobsResult)
		}
	}
	if err != nil {
		return nil, "", false, fmt.Errorf("hybrid: llm extraction: %w", err)
	}

	candidates := make([]models.JobCandidate, 0, len(result.Jobs))
	for _, job := range result.Jobs {
		candidates = append(candidates, models.JobCandidate{
			Title:      job.Title,
			URL:        job.URL,
			Location:   job.Location,
			Department: job.Department,
			Source:     models.ExtractionLLM,
			Confidence: 0.70,
		})
	}
	if len(candidates) == 0 {
		e.Logger.WithField("url", pageURL).Warn("hybrid extractor: llm tier returned no jobs")
	}
	return candidates, result.NextPageURL, false, nil
}

// dedupeKey returns the primary key (job URL, self-reference resolved away)
// or, failing that, the secondary (normalized title, normalized location)
// key for pagination-loop deduplication.
func dedupeKey(c models.JobCandidate, currentPageURL string) string {
	u := strings.TrimRight(c.URL, "/")
	cur := strings.TrimRight(currentPageURL, "/")
	if u != "" && u != cur && !strings.HasPrefix(u, "#") {
		return "url:" + u
	}
	return "tl:" + normalize.CandidateTitle(c.Title) + "|" + strings.ToLower(strings.TrimSpace(c.Location))
}

// Paginate runs ExtractPage across pages starting at careersURL, following
// next_page_url up to MaxPaginationPages, deduplicating against the
// running set and terminating early once a whole page turns out to be
// entirely duplicates (the site has looped back through its pagination
// ring). Hitting the page limit while a next page remains is logged as a
// warning, not treated as an error.
func (e *Extractor) Paginate(ctx context.Context, careersURL, platform string, fetch Fetcher) ([]models.JobCandidate, error) {
	var all []models.JobCandidate
	seen := make(map[string]bool)

	pageURL := careersURL
	for page := 0; page < MaxPaginationPages; page++ {
		body, err := fetch(ctx, pageURL)
		if err != nil {
			return all, fmt.Errorf("hybrid: fetch %s: %w", pageURL, err)
		}

		candidates, nextPageURL, bypassPagination, err := e.ExtractPage(ctx, pageURL, platform, body)
		if err != nil {
			return all, err
		}

		anyNew := false
		for _, c := range candidates {
			key := dedupeKey(c, pageURL)
			if seen[key] {
				continue
			}
			seen[key] = true
			all = append(all, c)
			anyNew = true
		}

		if bypassPagination {
			return all, nil
		}
		if len(candidates) > 0 && !anyNew {
			e.Logger.WithField("url", pageURL).Debug("hybrid extractor: page was entirely duplicates, stopping pagination")
			return all, nil
		}
		if nextPageURL == "" {
			return all, nil
		}

		pageURL = nextPageURL
		if page == MaxPaginationPages-1 {
			e.Logger.WithFields(logrus.Fields{
				"next_url": nextPageURL,
				"limit":    MaxPaginationPages,
			}).Warn("hybrid extractor: hit max pagination pages with a next page still pending")
		}
	}

	return all, nil
}
