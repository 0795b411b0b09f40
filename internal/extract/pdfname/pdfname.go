// Package pdfname extracts job titles from PDF/Word flyer links, common on
// smaller German company sites that post a single "Stellenausschreibung"
// document per opening instead of an HTML listing. Grounded on
// original_source/src/extraction/strategies.py's PdfLinkStrategy.
package pdfname

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"jobradar/internal/extract"
	"jobradar/pkg/models"
)

var jobFileExtensions = []string{".pdf", ".doc", ".docx"}

var jobFilenameKeywords = []string{
	"stellenausschreibung", "stellenangebot", "stellenanzeige",
	"jobausschreibung", "jobangebot", "jobanzeige",
	"karriere", "career", "vacancy", "position",
	"job_posting", "job-posting", "jobposting",
}

var stripWords = map[string]bool{
	"stellenausschreibung": true, "stellenangebot": true, "stellenanzeige": true,
	"jobausschreibung": true, "jobangebot": true, "jobanzeige": true,
	"karriere": true, "career": true, "vacancy": true, "position": true,
	"job": true, "posting": true, "job_posting": true, "jobposting": true,
}

var knownAcronyms = map[string]bool{
	"it": true, "hr": true, "qa": true, "pr": true, "vp": true,
	"ceo": true, "cto": true, "cfo": true, "sap": true, "erp": true, "crm": true,
}

var (
	hyphenProtectRe = regexp.MustCompile(`([a-zA-ZäöüÄÖÜß])-([a-zA-ZäöüÄÖÜß])`)
	dateLikeRe      = regexp.MustCompile(`^\d{6,8}$`)
	versionLikeRe   = regexp.MustCompile(`(?i)^v\d+$`)
	prefixLikeRe    = regexp.MustCompile(`^\d+[a-zA-Z]+$`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
)

const hyphenPlaceholder = "\x00HYPHEN\x00"

// Extract finds document links whose filename carries a job-posting
// keyword and derives a title from the filename.
func Extract(doc *goquery.Document, pageURL string) []models.JobCandidate {
	var out []models.JobCandidate
	seen := map[string]bool{}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if href == "" {
			return
		}
		hrefLower := strings.ToLower(href)
		if !hasJobFileExtension(hrefLower) {
			return
		}

		parts := strings.Split(href, "/")
		filename := parts[len(parts)-1]
		filenameLower := strings.ToLower(filename)

		if !containsAny(filenameLower, jobFilenameKeywords) {
			return
		}

		title := titleFromFilename(filename)
		if title == "" {
			return
		}

		normalized := strings.ToLower(title)
		if seen[normalized] {
			return
		}
		seen[normalized] = true

		jobURL := joinURL(pageURL, href)
		signals := map[string]bool{"from_pdf_link": true}
		out = append(out, models.JobCandidate{
			Title:      title,
			URL:        jobURL,
			Location:   "Unknown",
			Source:     models.ExtractionPdfLink,
			Confidence: extract.Confidence(models.ExtractionPdfLink, signals),
			Signals:    signals,
		})
	})

	return out
}

func hasJobFileExtension(lowerHref string) bool {
	for _, ext := range jobFileExtensions {
		if strings.HasSuffix(lowerHref, ext) {
			return true
		}
	}
	return false
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

func titleFromFilename(filename string) string {
	name := filename
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[:idx]
	}

	name = hyphenProtectRe.ReplaceAllString(name, "$1"+hyphenPlaceholder+"$2")
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	name = strings.ReplaceAll(name, hyphenPlaceholder, "-")

	words := strings.Fields(name)
	var filtered []string
	for _, w := range words {
		if dateLikeRe.MatchString(w) {
			continue
		}
		if versionLikeRe.MatchString(w) {
			continue
		}
		if prefixLikeRe.MatchString(w) {
			continue
		}
		if stripWords[strings.ToLower(w)] {
			continue
		}
		lower := strings.ToLower(w)
		if len(w) <= 2 && !knownAcronyms[lower] {
			continue
		}
		filtered = append(filtered, w)
	}

	if len(filtered) == 0 {
		return ""
	}

	capitalized := make([]string, len(filtered))
	for i, part := range filtered {
		capitalized[i] = capitalizePart(part)
	}

	title := strings.Join(capitalized, " ")
	title = whitespaceRe.ReplaceAllString(title, " ")
	return strings.TrimSpace(title)
}

func capitalizePart(part string) string {
	lower := strings.ToLower(part)
	if knownAcronyms[lower] {
		return strings.ToUpper(part)
	}
	if strings.ToUpper(part) == part && len(part) <= 4 {
		return strings.ToUpper(part)
	}
	if strings.Contains(part, "-") {
		sub := strings.Split(part, "-")
		for i, s := range sub {
			sub[i] = capitalizeWord(s)
		}
		return strings.Join(sub, "-")
	}
	return capitalizeWord(part)
}

func capitalizeWord(s string) string {
	lower := strings.ToLower(s)
	if knownAcronyms[lower] {
		return strings.ToUpper(s)
	}
	if strings.ToUpper(s) == s && len(s) <= 4 {
		return strings.ToUpper(s)
	}
	if s == "" {
		return s
	}
	r := []rune(strings.ToLower(s))
	r[0] = []rune(strings.ToUpper(string(r[0])))[0]
	return string(r)
}

func joinURL(base, ref string) string {
	if strings.HasPrefix(ref, "http") {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return base
	}
	return baseURL.ResolveReference(refURL).String()
}
