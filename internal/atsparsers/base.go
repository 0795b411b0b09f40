// Package atsparsers implements the platform-specific structured extractors
// (C6): one parser per ATS, each a pure DOM-in/candidates-out function with
// no I/O of its own. Grounded file-for-file on
// original_source/src/searchers/job_boards/*.py.
package atsparsers

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"jobradar/pkg/models"
)

// Parser is the common contract every platform-specific parser satisfies.
type Parser interface {
	// Platform returns the platform tag this parser handles.
	Platform() string
	// Parse extracts job candidates from a rendered page.
	Parse(doc *goquery.Document, baseURL string) []models.JobCandidate
}

var nonJobPatterns = regexp.MustCompile(`(?i)(initiativbewerbung|initiativ\s*bewerbung|spontanbewerbung|open\s*application|unsolicited\s*application|speculative\s*application|general\s*application|blindbewerbung)`)

// isNonJobEntry mirrors BaseJobBoardParser._is_non_job_entry.
func isNonJobEntry(title string) bool {
	return title != "" && nonJobPatterns.MatchString(title)
}

// filterNonJobs mirrors BaseJobBoardParser.parse_and_filter.
func filterNonJobs(candidates []models.JobCandidate) []models.JobCandidate {
	out := candidates[:0:0]
	for _, c := range candidates {
		if !isNonJobEntry(c.Title) {
			out = append(out, c)
		}
	}
	return out
}

// buildFullURL mirrors BaseJobBoardParser._build_full_url.
func buildFullURL(href, baseURL string) string {
	if href == "" {
		return baseURL
	}
	if strings.HasPrefix(href, "http") {
		return href
	}
	if strings.HasPrefix(href, "/") {
		if u, err := url.Parse(baseURL); err == nil {
			return u.Scheme + "://" + u.Host + href
		}
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return baseURL
	}
	return base.ResolveReference(ref).String()
}

func candidate(title, location, jobURL, department, platform string) models.JobCandidate {
	if location == "" {
		location = "Unknown"
	}
	return models.JobCandidate{
		Title:      strings.TrimSpace(title),
		Location:   location,
		URL:        jobURL,
		Department: department,
		Source:     models.ExtractionJobBoard,
		Platform:   platform,
		Confidence: 0.95,
	}
}
