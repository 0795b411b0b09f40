package atsparsers

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"jobradar/pkg/models"
)

// HRworks job links carry a ?id= query parameter; location is recovered
// from a sibling span marked with an icomoon-location/icomoon-home icon
// class rather than a dedicated element.
type HRworks struct{}

func (HRworks) Platform() string { return "hrworks" }

func (HRworks) Parse(doc *goquery.Document, baseURL string) []models.JobCandidate {
	var out []models.JobCandidate
	seen := map[string]bool{}

	doc.Find("a.job-offer-content").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if href == "" || !strings.Contains(href, "id=") {
			if u, err := url.Parse(href); err != nil || u.Query().Get("id") == "" {
				return
			}
		}
		jobURL := buildFullURL(href, baseURL)
		if seen[jobURL] {
			return
		}
		seen[jobURL] = true

		titleElem := firstMatch(s, "h2", "h3", `[class*="title"]`)
		if titleElem == nil {
			return
		}
		title := strings.TrimSpace(titleElem.Text())
		if title == "" {
			return
		}

		location := "Unknown"
		s.Find(".margin-top-10").Each(func(_ int, meta *goquery.Selection) {
			meta.Find("span").Each(func(_ int, span *goquery.Selection) {
				cls, _ := span.Attr("class")
				if strings.Contains(cls, "icomoon-location") || strings.Contains(cls, "icomoon-home") {
					if txt := strings.TrimSpace(span.Parent().Text()); txt != "" {
						location = txt
					}
				}
			})
		})

		out = append(out, candidate(title, location, jobURL, "", "hrworks"))
	})

	return filterNonJobs(out)
}
