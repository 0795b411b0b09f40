package atsparsers

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"jobradar/pkg/models"
)

// Lever parses .posting/.posting-card elements.
type Lever struct{}

func (Lever) Platform() string { return "lever" }

func (Lever) Parse(doc *goquery.Document, baseURL string) []models.JobCandidate {
	var out []models.JobCandidate

	doc.Find(".posting, .posting-card").Each(func(_ int, s *goquery.Selection) {
		titleElem := firstMatch(s, ".posting-title", "h5")
		if titleElem == nil {
			return
		}
		locationElem := firstMatch(s, ".location", ".posting-categories")
		linkElem := firstMatch(s, "a.posting-title", "a")

		title := strings.TrimSpace(titleElem.Text())
		href := ""
		if linkElem != nil {
			href, _ = linkElem.Attr("href")
		}
		jobURL := buildFullURL(href, baseURL)

		location := "Unknown"
		if locationElem != nil {
			location = strings.TrimSpace(locationElem.Text())
		}

		if title != "" {
			out = append(out, candidate(title, location, jobURL, "", "lever"))
		}
	})

	return filterNonJobs(out)
}

// firstMatch returns the first descendant matching any of the selectors, in order.
func firstMatch(s *goquery.Selection, selectors ...string) *goquery.Selection {
	for _, sel := range selectors {
		if found := s.Find(sel).First(); found.Length() > 0 {
			return found
		}
	}
	return nil
}
