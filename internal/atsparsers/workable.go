package atsparsers

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
	"jobradar/pkg/models"
)

// Workable tries JSON-LD first, then job-card markup, then bare links.
type Workable struct{}

func (Workable) Platform() string { return "workable" }

var workableJSONLDRe = regexp.MustCompile(`(?s)<script[^>]*type=["']application/ld\+json["'][^>]*>(.*?)</script>`)

func (w Workable) Parse(doc *goquery.Document, baseURL string) []models.JobCandidate {
	if out := w.parseJSONLD(doc, baseURL); len(out) > 0 {
		return filterNonJobs(out)
	}
	if out := w.parseJobCards(doc, baseURL); len(out) > 0 {
		return filterNonJobs(out)
	}
	return filterNonJobs(w.parseLinksOnly(doc, baseURL))
}

func (Workable) parseJSONLD(doc *goquery.Document, baseURL string) []models.JobCandidate {
	var out []models.JobCandidate
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := s.Text()
		if !strings.Contains(raw, "JobPosting") {
			return
		}
		title := gjson.Get(raw, "title").String()
		location := gjson.Get(raw, "jobLocation.address.addressLocality").String()
		jobURL := gjson.Get(raw, "url").String()
		if title == "" {
			return
		}
		if jobURL == "" {
			jobURL = baseURL
		} else {
			jobURL = buildFullURL(jobURL, baseURL)
		}
		if location == "" {
			location = "Unknown"
		}
		out = append(out, candidate(title, location, jobURL, "", "workable"))
	})
	return out
}

func (Workable) parseJobCards(doc *goquery.Document, baseURL string) []models.JobCandidate {
	var out []models.JobCandidate
	doc.Find(`[data-ui="job"], li[class*="job"], div[class*="job-card"]`).Each(func(_ int, s *goquery.Selection) {
		titleElem := firstMatch(s, `[data-ui="job-title"]`, "h3", "h4", "a")
		if titleElem == nil {
			return
		}
		linkElem := firstMatch(s, "a")
		href := ""
		if linkElem != nil {
			href, _ = linkElem.Attr("href")
		}
		jobURL := buildFullURL(href, baseURL)

		title, location, department := parseWorkableText(strings.TrimSpace(titleElem.Text()))
		if locElem := firstMatch(s, `[data-ui="job-location"]`, ".location"); locElem != nil {
			location = strings.TrimSpace(locElem.Text())
		}
		if title != "" {
			if location == "" {
				location = "Unknown"
			}
			out = append(out, candidate(title, location, jobURL, department, "workable"))
		}
	})
	return out
}

func (Workable) parseLinksOnly(doc *goquery.Document, baseURL string) []models.JobCandidate {
	var out []models.JobCandidate
	seen := map[string]bool{}
	doc.Find(`a[href*="/j/"], a[href*="/jobs/"]`).Each(func(_ int, s *goquery.Selection) {
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
		out = append(out, candidate(title, "Unknown", jobURL, "", "workable"))
	})
	return out
}

// parseWorkableText splits delimiter-free "Title Location, Country" text:
// the trailing run of capitalized words becomes the location and the words
// before it the title. When that run is empty or covers every word, the
// whole text is returned as the title. Department is always returned empty.
func parseWorkableText(text string) (title, location, department string) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return "", "", ""
	}

	capRunStart := -1
	for i := len(words) - 1; i >= 0; i-- {
		w := strings.TrimRight(words[i], ",")
		if w == "" {
			continue
		}
		if r := []rune(w); len(r) > 0 && r[0] >= 'A' && r[0] <= 'Z' {
			capRunStart = i
			continue
		}
		break
	}

	if capRunStart <= 0 || capRunStart >= len(words) {
		return text, "", ""
	}

	title = strings.TrimSpace(strings.Join(words[:capRunStart], " "))
	tail := strings.Join(words[capRunStart:], " ")
	parts := strings.SplitN(tail, ",", 2)
	location = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		location += "," + strings.TrimSpace(parts[1])
	}
	return title, location, department
}
