package atsparsers

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"jobradar/pkg/models"
)

// Odoo is detected upstream via meta[name=generator] containing "odoo";
// this parser handles the recruitment module's job listing markup.
type Odoo struct{}

func (Odoo) Platform() string { return "odoo" }

func (Odoo) Parse(doc *goquery.Document, baseURL string) []models.JobCandidate {
	var out []models.JobCandidate

	doc.Find(`.oe_website_jobs, [itemtype*="JobPosting"], .js_jobs_list li, .o_website_jobs_list_item`).Each(func(_ int, s *goquery.Selection) {
		titleElem := firstMatch(s, "h1", "h2", "h3", "a")
		if titleElem == nil {
			return
		}
		linkElem := firstMatch(s, "a")
		href := ""
		if linkElem != nil {
			href, _ = linkElem.Attr("href")
		}
		jobURL := buildFullURL(href, baseURL)

		location := "Unknown"
		if locElem := firstMatch(s, ".oe_jobs_city", `[class*="location"]`, ".fa-map-marker"); locElem != nil {
			loc := strings.TrimSpace(locElem.Parent().Text())
			if loc == "" {
				loc = strings.TrimSpace(locElem.Text())
			}
			if loc != "" {
				location = loc
			}
		}

		title := strings.TrimSpace(titleElem.Text())
		if title != "" {
			out = append(out, candidate(title, location, jobURL, "", "odoo"))
		}
	})

	if len(out) == 0 {
		out = odooLinkFallback(doc, baseURL)
	}

	return filterNonJobs(out)
}

func odooLinkFallback(doc *goquery.Document, baseURL string) []models.JobCandidate {
	var out []models.JobCandidate
	seen := map[string]bool{}
	doc.Find(`a[href*="/jobs/"]`).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		jobURL := buildFullURL(href, baseURL)
		if seen[jobURL] {
			return
		}
		seen[jobURL] = true
		title := strings.TrimSpace(s.Text())
		if title == "" {
			return
		}
		out = append(out, candidate(title, "Unknown", jobURL, "", "odoo"))
	})
	return out
}

// IsOdooGenerator reports whether a meta generator tag identifies Odoo.
func IsOdooGenerator(doc *goquery.Document) bool {
	generator, _ := doc.Find(`meta[name="generator"]`).Attr("content")
	return strings.Contains(strings.ToLower(generator), "odoo")
}
