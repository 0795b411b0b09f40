package atsparsers

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"jobradar/pkg/models"
)

// Greenhouse handles two layouts: the new job-boards.greenhouse.io table
// format and the legacy boards.greenhouse.io .opening format.
type Greenhouse struct{}

func (Greenhouse) Platform() string { return "greenhouse" }

var (
	ghNewBadgeRe    = regexp.MustCompile(`(?i)\s*New\s*$`)
	ghNewBadgeBrRe  = regexp.MustCompile(`(?i)\s*\[New\]\s*`)
	ghDashLocRe     = regexp.MustCompile(`(.+?)\s*[-–—]\s*([A-Z][^,]+,\s*[^,]+)$`)
	ghCommaLocRe    = regexp.MustCompile(`(.+?)\s+([A-Z][a-z]+(?:,\s*[A-Z][a-z]+)+(?:,\s*[A-Z][a-z\s]+)?)$`)
)

func ghCleanTitle(title string) string {
	title = ghNewBadgeRe.ReplaceAllString(title, "")
	title = ghNewBadgeBrRe.ReplaceAllString(title, " ")
	return strings.TrimSpace(title)
}

func ghSplitTitleLocation(text string) (string, string) {
	if m := ghDashLocRe.FindStringSubmatch(text); m != nil {
		return ghCleanTitle(m[1]), strings.TrimSpace(m[2])
	}
	if m := ghCommaLocRe.FindStringSubmatch(text); m != nil {
		return ghCleanTitle(m[1]), strings.TrimSpace(m[2])
	}
	return ghCleanTitle(text), ""
}

func (g Greenhouse) Parse(doc *goquery.Document, baseURL string) []models.JobCandidate {
	if out := g.parseNewFormat(doc, baseURL); len(out) > 0 {
		return filterNonJobs(out)
	}
	return filterNonJobs(g.parseLegacyFormat(doc, baseURL))
}

func (Greenhouse) parseNewFormat(doc *goquery.Document, baseURL string) []models.JobCandidate {
	var out []models.JobCandidate
	seen := map[string]bool{}
	currentDepartment := ""

	doc.Find(`section, [class*="section"], div > div`).Each(func(_ int, section *goquery.Selection) {
		if heading := firstMatch(section, "h2", "h3", `[class*="department"]`); heading != nil {
			currentDepartment = strings.TrimSpace(heading.Text())
		}

		section.Find(`a[href*="/jobs/"]`).Each(func(_ int, link *goquery.Selection) {
			href, _ := link.Attr("href")
			if !strings.Contains(href, "/jobs/") {
				return
			}
			jobURL := buildFullURL(href, baseURL)
			if seen[jobURL] {
				return
			}
			seen[jobURL] = true

			children := link.ChildrenFiltered("*")
			var title, location string
			switch children.Length() {
			case 0:
				title, location = ghSplitTitleLocation(strings.TrimSpace(link.Text()))
			case 1:
				title, location = ghSplitTitleLocation(strings.TrimSpace(link.Text()))
			default:
				title = ghCleanTitle(strings.TrimSpace(children.Eq(0).Text()))
				location = strings.TrimSpace(children.Eq(1).Text())
			}

			if title != "" {
				if location == "" {
					location = "Unknown"
				}
				out = append(out, candidate(title, location, jobURL, currentDepartment, "greenhouse"))
			}
		})
	})

	return out
}

func (Greenhouse) parseLegacyFormat(doc *goquery.Document, baseURL string) []models.JobCandidate {
	var out []models.JobCandidate

	doc.Find(`.opening, .job-post, [data-mapped="true"]`).Each(func(_ int, opening *goquery.Selection) {
		titleElem := firstMatch(opening, "a", ".opening-title", ".job-title")
		if titleElem == nil {
			return
		}
		locationElem := firstMatch(opening, ".location", ".job-location")

		title := ghCleanTitle(strings.TrimSpace(titleElem.Text()))
		href, _ := titleElem.Attr("href")
		jobURL := buildFullURL(href, baseURL)

		location := "Unknown"
		if locationElem != nil {
			location = strings.TrimSpace(locationElem.Text())
		}

		if title != "" {
			out = append(out, candidate(title, location, jobURL, "", "greenhouse"))
		}
	})

	return out
}
