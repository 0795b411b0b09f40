package atsparsers

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"jobradar/pkg/models"
)

// Deloitte's careers portal mixes several job-link shapes and a German-city
// closed list is used to recover location from ancestor text when no
// dedicated location element exists.
type Deloitte struct{}

func (Deloitte) Platform() string { return "deloitte" }

var deloitteJobLinkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)/job/`),
	regexp.MustCompile(`(?i)/stelle/`),
	regexp.MustCompile(`(?i)/position/`),
	regexp.MustCompile(`(?i)jobdetail`),
}

var deloitteGermanCities = []string{
	"Berlin", "München", "Munich", "Hamburg", "Köln", "Cologne", "Frankfurt",
	"Stuttgart", "Düsseldorf", "Dortmund", "Essen", "Leipzig", "Bremen",
	"Dresden", "Hannover", "Nürnberg", "Nuremberg", "Mannheim",
}

func isDeloitteJobLink(href string) bool {
	for _, pat := range deloitteJobLinkPatterns {
		if pat.MatchString(href) {
			return true
		}
	}
	return false
}

func (Deloitte) Parse(doc *goquery.Document, baseURL string) []models.JobCandidate {
	var out []models.JobCandidate
	seen := map[string]bool{}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if !isDeloitteJobLink(href) {
			return
		}
		jobURL := buildFullURL(href, baseURL)
		if seen[jobURL] {
			return
		}
		seen[jobURL] = true

		title := strings.TrimSpace(s.Text())
		if title == "" {
			return
		}

		location := deloitteFindCity(s)
		out = append(out, candidate(title, location, jobURL, "", "deloitte"))
	})

	return filterNonJobs(out)
}

// deloitteFindCity walks up to 3 ancestor levels looking for a known
// German city name in the element's text.
func deloitteFindCity(s *goquery.Selection) string {
	node := s
	for level := 0; level < 3; level++ {
		text := node.Text()
		for _, city := range deloitteGermanCities {
			if strings.Contains(text, city) {
				return city
			}
		}
		node = node.Parent()
		if node.Length() == 0 {
			break
		}
	}
	return "Unknown"
}

// SearchTermFromURL extracts the ?search= query term used by Deloitte's
// portal to filter its job listing, for use as a relevance signal.
func SearchTermFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Query().Get("search")
}
