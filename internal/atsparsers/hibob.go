package atsparsers

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"jobradar/pkg/models"
)

// HiBob renders job listings as <b-virtual-scroll-list-item> custom
// elements with "·"-separated metadata text and no direct per-job link, so
// the job URL is synthesized from a slugified title.
type HiBob struct{}

func (HiBob) Platform() string { return "hibob" }

var hibobSlugNonWord = regexp.MustCompile(`[^a-z0-9]+`)

func hibobSlugify(title string) string {
	slug := strings.ToLower(title)
	slug = hibobSlugNonWord.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

func (HiBob) Parse(doc *goquery.Document, baseURL string) []models.JobCandidate {
	var out []models.JobCandidate

	doc.Find("b-virtual-scroll-list-item, .job-position-item, [class*='positionItem']").Each(func(_ int, s *goquery.Selection) {
		titleElem := firstMatch(s, "h3", "h4", `[class*="title"]`)
		if titleElem == nil {
			return
		}
		title := strings.TrimSpace(titleElem.Text())
		if title == "" {
			return
		}

		department := ""
		location := "Unknown"
		if metaElem := firstMatch(s, `[class*="subtitle"]`, `[class*="meta"]`); metaElem != nil {
			parts := strings.Split(metaElem.Text(), "·")
			for i, p := range parts {
				p = strings.TrimSpace(p)
				if p == "" {
					continue
				}
				if i == 0 {
					department = p
				} else {
					location = p
				}
			}
		}

		jobURL := buildFullURL(fmt.Sprintf("#position/%s", hibobSlugify(title)), baseURL)
		out = append(out, candidate(title, location, jobURL, department, "hibob"))
	})

	return filterNonJobs(out)
}
