package atsparsers

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
	"jobradar/pkg/models"
)

// Recruitee is the only API-based platform: its careers widget embeds the
// full offer list as JSON inside a <script> tag, and it also exposes an
// /api/offers/ JSON endpoint the hybrid extractor can call directly.
type Recruitee struct{}

func (Recruitee) Platform() string { return "recruitee" }

var recruiteeEmbeddedJSONRe = regexp.MustCompile(`(?s)window\.__INITIAL_STATE__\s*=\s*(\{.*?\});`)

func (r Recruitee) Parse(doc *goquery.Document, baseURL string) []models.JobCandidate {
	if out := r.parseEmbeddedJSON(doc, baseURL); len(out) > 0 {
		return filterNonJobs(out)
	}
	return filterNonJobs(r.parseLinksOnly(doc, baseURL))
}

func (Recruitee) parseEmbeddedJSON(doc *goquery.Document, baseURL string) []models.JobCandidate {
	var out []models.JobCandidate
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if len(out) > 0 {
			return
		}
		raw := s.Text()
		m := recruiteeEmbeddedJSONRe.FindStringSubmatch(raw)
		if m == nil {
			return
		}
		offers := gjson.Get(m[1], "offers.list")
		if !offers.IsArray() {
			offers = gjson.Get(m[1], "company.offers")
		}
		offers.ForEach(func(_, offer gjson.Result) bool {
			title := offer.Get("title").String()
			if title == "" {
				return true
			}
			slug := offer.Get("slug").String()
			location := offer.Get("city").String()
			if location == "" {
				location = offer.Get("location").String()
			}
			if location == "" {
				location = "Unknown"
			}
			jobURL := baseURL
			if slug != "" {
				jobURL = buildFullURL(fmt.Sprintf("/o/%s", slug), baseURL)
			}
			out = append(out, candidate(title, location, jobURL, offer.Get("department").String(), "recruitee"))
			return true
		})
	})
	return out
}

func (Recruitee) parseLinksOnly(doc *goquery.Document, baseURL string) []models.JobCandidate {
	var out []models.JobCandidate
	seen := map[string]bool{}
	doc.Find(`a[href*="/o/"]`).Each(func(_ int, s *goquery.Selection) {
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
		out = append(out, candidate(title, "Unknown", jobURL, "", "recruitee"))
	})
	return out
}

// ParseAPIJSON parses a Recruitee /api/offers/ response body directly,
// bypassing HTML rendering entirely.
func (Recruitee) ParseAPIJSON(body []byte, baseURL string) []models.JobCandidate {
	var out []models.JobCandidate
	offers := gjson.GetBytes(body, "offers")
	offers.ForEach(func(_, offer gjson.Result) bool {
		title := offer.Get("title").String()
		if title == "" {
			return true
		}
		slug := offer.Get("slug").String()
		location := offer.Get("location").String()
		if location == "" {
			location = offer.Get("city").String()
		}
		if location == "" {
			location = "Unknown"
		}
		jobURL := buildFullURL(fmt.Sprintf("/o/%s", slug), baseURL)
		out = append(out, candidate(title, location, jobURL, offer.Get("department").String(), "recruitee"))
		return true
	})
	return filterNonJobs(out)
}

// APIURL returns the Recruitee offers JSON endpoint for a careers page URL.
func (Recruitee) APIURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/api/offers/"
}
