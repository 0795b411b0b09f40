package http

import (
	"fmt"

	"github.com/mendableai/firecrawl-go"
	"github.com/sirupsen/logrus"
)

// FirecrawlFetcher is an alternate C2 backend for sites that actively block
// direct connections (Cloudflare challenges, aggressive bot detection):
// instead of dialing out itself it delegates to the Firecrawl scraping API,
// mirroring the teacher's internal/scraper/engines/firecrawl/firecrawl.go
// wiring of the same SDK.
type FirecrawlFetcher struct {
	app     *firecrawl.FirecrawlApp
	formats []string
	logger  *logrus.Entry
}

// NewFirecrawlFetcher builds a FirecrawlFetcher. Returns an error if the SDK
// client itself fails to initialize (bad API URL, not a network failure).
func NewFirecrawlFetcher(apiKey, apiURL string, logger *logrus.Entry) (*FirecrawlFetcher, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	app, err := firecrawl.NewFirecrawlApp(apiKey, apiURL)
	if err != nil {
		return nil, fmt.Errorf("firecrawl fetcher: init: %w", err)
	}
	return &FirecrawlFetcher{app: app, formats: []string{"html"}, logger: logger}, nil
}

// Get fetches rawURL's rendered content through Firecrawl, returning the
// page's HTML (falling back to markdown if HTML is unavailable in the
// response) as a *Result so callers that only care about the body can treat
// it interchangeably with Fetcher.Get.
func (f *FirecrawlFetcher) Get(rawURL string) (*Result, error) {
	params := &firecrawl.ScrapeParams{Formats: f.formats}
	doc, err := f.app.ScrapeURL(rawURL, params)
	if err != nil {
		return nil, fmt.Errorf("firecrawl fetcher: scrape %s: %w", rawURL, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("firecrawl fetcher: empty response for %s", rawURL)
	}

	body := doc.HTML
	if body == "" {
		body = doc.Markdown
	}
	if body == "" {
		return nil, fmt.Errorf("firecrawl fetcher: no content returned for %s", rawURL)
	}

	f.logger.WithField("url", rawURL).Debug("firecrawl fetcher: scraped page")
	return &Result{StatusCode: 200, Body: []byte(body), FinalURL: rawURL}, nil
}
