package atsparsers

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"jobradar/pkg/models"
)

// Personio parses a[href*="/job/"] link text of the shape
// "Title (all)Employment Type, Full-time·Location·Location".
type Personio struct{}

func (Personio) Platform() string { return "personio" }

var (
	personioTypePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(Permanent employee|Intern / Student|Working student|Freelancer)`),
		regexp.MustCompile(`(?i)(Full-time|Part-time|Teilzeit|Vollzeit)`),
	}
	personioLocRe = regexp.MustCompile(`·\s*([^·]+)`)
	personioAllRe = regexp.MustCompile(`(?i)\s*\(all\)\s*$`)
)

func (Personio) Parse(doc *goquery.Document, baseURL string) []models.JobCandidate {
	var out []models.JobCandidate
	seen := map[string]bool{}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if !strings.Contains(href, "/job/") {
			return
		}
		jobURL := buildFullURL(href, baseURL)
		if seen[jobURL] {
			return
		}
		seen[jobURL] = true

		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}

		title := text
		location := "Unknown"
		for _, pat := range personioTypePatterns {
			loc := pat.FindStringIndex(text)
			if loc == nil {
				continue
			}
			idx := loc[0]
			if idx > 0 {
				title = strings.TrimSpace(text[:idx])
				remainder := strings.TrimSpace(text[idx:])
				if m := personioLocRe.FindStringSubmatch(remainder); m != nil {
					location = strings.TrimSpace(m[1])
				}
			}
			break
		}
		title = personioAllRe.ReplaceAllString(title, "")
		title = strings.TrimSpace(title)

		if title != "" {
			out = append(out, candidate(title, location, jobURL, "", "personio"))
		}
	})

	return filterNonJobs(out)
}
