package llm

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
)

// maxMarkdownChars is the hard ceiling applied after preprocessing,
// independent of the job-section window.
const maxMarkdownChars = 80_000

var removeTagSelectors = "script, style, svg, noscript, head, meta, link, iframe"

var cookieSelectors = []string{
	`[role="dialog"]`,
	`[id*="cookie" i]`, `[id*="consent" i]`, `[class*="cookie" i]`, `[class*="consent" i]`,
	`[id*="gdpr" i]`, `[class*="gdpr" i]`,
	`[id*="CookieBot" i]`, `[class*="CookieBot" i]`,
}

var jobMarkers = []string{
	"job", "career", "position", "stelle", "vacancy", "opening",
	"(m/w/d)", "(m/f/d)", "developer", "engineer", "manager",
}

var jobSectionSelectors = []string{
	`[class*="job" i]`, `[class*="career" i]`, `[class*="position" i]`,
	`[class*="vacancy" i]`, `[class*="opening" i]`, `[id*="job" i]`, `[id*="career" i]`,
}

const (
	minJobSectionChars = 1_000
	maxJobSectionChars = 600_000
)

var (
	tableRowSep   = regexp.MustCompile(`\s+`)
	blankLinesRe  = regexp.MustCompile(`\n{3,}`)
	extraSpaceRe  = regexp.MustCompile(`[ \t]+`)
	emptyLinkRe   = regexp.MustCompile(`\[\s*\]\([^)]+\)`)
)

// PreprocessHTML converts raw page HTML to a compact markdown-like text
// suitable for an LLM prompt: it strips script/style/nav/cookie chrome,
// prefers a narrowed job-section window when one is found, converts tables
// to pipe-separated rows, and truncates to maxMarkdownChars.
func PreprocessHTML(rawHTML string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", err
	}

	doc.Find(removeTagSelectors).Remove()
	for _, sel := range cookieSelectors {
		doc.Find(sel).Remove()
	}

	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		s.RemoveAttr("style")
	})

	stripLowMarkerChrome(doc)
	flattenTables(doc)

	if section := findJobSection(doc); section != nil {
		html, err := goquery.OuterHtml(section)
		if err == nil {
			if out, convErr := convertToMarkdown(html); convErr == nil {
				return truncate(cleanupMarkdown(out)), nil
			}
		}
	}

	fullHTML, err := doc.Html()
	if err != nil {
		return "", err
	}
	markdown, err := convertToMarkdown(fullHTML)
	if err != nil {
		return "", err
	}
	return truncate(cleanupMarkdown(markdown)), nil
}

func convertToMarkdown(html string) (string, error) {
	return htmltomarkdown.ConvertString(html)
}

// stripLowMarkerChrome removes nav/header/footer/aside blocks whose job
// marker density is too low relative to their size to be career content.
func stripLowMarkerChrome(doc *goquery.Document) {
	doc.Find("nav, header, footer, aside").Each(func(_ int, s *goquery.Selection) {
		text := strings.ToLower(s.Text())
		textLen := len(text)

		markersFound := 0
		for _, marker := range jobMarkers {
			if strings.Contains(text, marker) {
				markersFound++
			}
		}

		remove := false
		switch {
		case textLen > 500 && markersFound < 3:
			remove = true
		case textLen > 200 && markersFound < 2:
			remove = true
		case textLen <= 200 && markersFound == 0:
			remove = true
		}
		if remove {
			s.Remove()
		}
	})
}

func flattenTables(doc *goquery.Document) {
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		var rows []string
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			var cells []string
			tr.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, strings.TrimSpace(tableRowSep.ReplaceAllString(cell.Text(), " ")))
			})
			if hasNonEmpty(cells) {
				rows = append(rows, strings.Join(cells, " | "))
			}
		})
		if len(rows) > 0 {
			table.ReplaceWithHtml(strings.Join(rows, "\n") + "\n")
		} else {
			table.Remove()
		}
	})
}

func hasNonEmpty(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return true
		}
	}
	return false
}

// findJobSection returns the smallest element matching a job-related
// selector whose text falls within the size window, preferring a focused
// section over the full page when one exists.
func findJobSection(doc *goquery.Document) *goquery.Selection {
	var best *goquery.Selection
	bestLen := -1

	for _, sel := range jobSectionSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			textLen := len(s.Text())
			if textLen < minJobSectionChars || textLen > maxJobSectionChars {
				return
			}
			if best == nil || textLen < bestLen {
				best = s
				bestLen = textLen
			}
		})
	}

	return best
}

func cleanupMarkdown(markdown string) string {
	markdown = blankLinesRe.ReplaceAllString(markdown, "\n\n")

	lines := strings.Split(markdown, "\n")
	var kept []string
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	markdown = strings.Join(kept, "\n")

	markdown = extraSpaceRe.ReplaceAllString(markdown, " ")
	markdown = emptyLinkRe.ReplaceAllString(markdown, "")

	return strings.TrimSpace(markdown)
}

func truncate(markdown string) string {
	if len(markdown) <= maxMarkdownChars {
		return markdown
	}
	return markdown[:maxMarkdownChars] + "..."
}
