// Package platform implements the Platform Detector (C5): identifying the
// ATS embedded in a URL or page, and normalizing the board URL per platform.
//
// Grounded on original_source/src/searchers/job_boards/detector.py.
package platform

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// boardPattern pairs a URL regex with the platform tag it signals.
type boardPattern struct {
	re       *regexp.Regexp
	platform string
}

// ExternalJobBoards is the ordered pattern table from spec §6.
var ExternalJobBoards = []boardPattern{
	{regexp.MustCompile(`(?i)\.jobs\.personio\.(?:de|com)`), "personio"},
	{regexp.MustCompile(`(?i)boards\.greenhouse\.io`), "greenhouse"},
	{regexp.MustCompile(`(?i)jobs\.lever\.co`), "lever"},
	{regexp.MustCompile(`(?i)\.workable\.com`), "workable"},
	{regexp.MustCompile(`(?i)\.breezy\.hr`), "breezy"},
	{regexp.MustCompile(`(?i)\.recruitee\.com`), "recruitee"},
	{regexp.MustCompile(`(?i)\.smartrecruiters\.com`), "smartrecruiters"},
	{regexp.MustCompile(`(?i)\.bamboohr\.com/jobs`), "bamboohr"},
	{regexp.MustCompile(`(?i)\.ashbyhq\.com`), "ashby"},
	{regexp.MustCompile(`(?i)\.factorial\.co/job_posting`), "factorial"},
	{regexp.MustCompile(`(?i)\.pi-asp\.de/bewerber-web`), "pi-asp"},
	{regexp.MustCompile(`(?i)job\.deloitte\.com`), "deloitte"},
	{regexp.MustCompile(`(?i)hrworks\.de`), "hrworks"},
}

var skipURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)/privacy[-_]?policy`),
	regexp.MustCompile(`(?i)/datenschutz`),
	regexp.MustCompile(`(?i)/imprint`),
	regexp.MustCompile(`(?i)/impressum`),
	regexp.MustCompile(`(?i)/terms`),
	regexp.MustCompile(`(?i)/agb`),
	regexp.MustCompile(`(?i)/legal`),
	regexp.MustCompile(`(?i)/cookie`),
	regexp.MustCompile(`(?i)/contact`),
	regexp.MustCompile(`(?i)/kontakt`),
}

// Detect returns the platform tag matched against the URL, falling back to
// an HTML signature check (Recruitee only) when html is non-empty.
func Detect(pageURL string, html string) string {
	for _, bp := range ExternalJobBoards {
		if bp.re.MatchString(pageURL) {
			return bp.platform
		}
	}
	if html != "" && DetectRecruiteeFromHTML(html) {
		return "recruitee"
	}
	return ""
}

// DetectRecruiteeFromHTML looks for Recruitee's self-advertising
// footer/CDN/script signatures, since Recruitee-powered sites can run on a
// custom domain with no URL match.
func DetectRecruiteeFromHTML(html string) bool {
	lower := strings.ToLower(html)
	if strings.Contains(lower, "recruiteecdn.com") || strings.Contains(lower, "recruitee") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			// raw-text fallback already matched above
			return true
		}
		found := false
		doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			href, _ := s.Attr("href")
			text := strings.ToLower(s.Text())
			if strings.Contains(strings.ToLower(href), "recruitee") || strings.Contains(text, "recruitee") {
				found = true
				return false
			}
			return true
		})
		if found {
			return true
		}
		doc.Find("img[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			src, _ := s.Attr("src")
			if strings.Contains(src, "recruiteecdn.com") {
				found = true
				return false
			}
			return true
		})
		return found
	}
	return false
}

func isValidBoardURL(rawURL string) bool {
	for _, p := range skipURLPatterns {
		if p.MatchString(rawURL) {
			return false
		}
	}
	return true
}

var langParamRe = regexp.MustCompile(`(?i)language=([a-z]{2})`)

// NormalizeBoardURL applies the per-platform URL-stripping rules from
// spec §4.5: Greenhouse and Workable keep the company slug, Deloitte keeps
// the full query string, others collapse to bare origin plus an optional
// `?language=` param.
func NormalizeBoardURL(rawURL, platform string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	switch {
	case platform == "greenhouse" || strings.Contains(u.Host, "greenhouse.io"):
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) > 0 && parts[0] != "" {
			return u.Scheme + "://" + u.Host + "/" + parts[0]
		}
		return u.Scheme + "://" + u.Host + "/"

	case platform == "workable" || strings.Contains(u.Host, "workable.com"):
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) > 0 && parts[0] != "" {
			return u.Scheme + "://" + u.Host + "/" + parts[0] + "/"
		}
		return u.Scheme + "://" + u.Host + "/"

	case platform == "deloitte" || strings.Contains(u.Host, "deloitte.com"):
		return rawURL

	default:
		langParam := ""
		if m := langParamRe.FindStringSubmatch(u.RawQuery); m != nil {
			langParam = "?language=" + m[1]
		}
		return u.Scheme + "://" + u.Host + "/" + langParam
	}
}

// FindExternalBoard scans anchors, iframes, data-src attributes, and inline
// scripts for any known external-ATS pattern, returning a normalized board
// URL, or "" if none is found.
func FindExternalBoard(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	type found struct {
		url      string
		platform string
	}
	var matches []found

	match := func(candidate string) {
		for _, bp := range ExternalJobBoards {
			if bp.re.MatchString(candidate) {
				matches = append(matches, found{candidate, bp.platform})
			}
		}
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			match(href)
		}
	})
	doc.Find("iframe[src]").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			match(src)
		}
	})
	doc.Find("[data-src]").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("data-src"); ok {
			match(src)
		}
	})
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		text := s.Text()
		for _, bp := range ExternalJobBoards {
			urlInScriptRe := regexp.MustCompile(`["']?(https?://[^\s"'<>]*` + bp.re.String() + `[^\s"'<>]*)["']?`)
			if m := urlInScriptRe.FindStringSubmatch(text); m != nil {
				matches = append(matches, found{m[1], bp.platform})
			}
		}
	})

	if len(matches) == 0 {
		return ""
	}

	normalizePlatforms := map[string]bool{"greenhouse": true, "personio": true, "workable": true}
	seen := map[string]bool{}
	var best string

	for _, f := range matches {
		if !isValidBoardURL(f.url) {
			continue
		}
		if normalizePlatforms[f.platform] {
			n := NormalizeBoardURL(f.url, f.platform)
			if !seen[n] {
				seen[n] = true
				if best == "" {
					best = n
				}
			}
		} else if best == "" {
			best = f.url
		}
	}
	if best != "" {
		return best
	}
	// all candidates were privacy/legal pages; normalize the first anyway
	return NormalizeBoardURL(matches[0].url, matches[0].platform)
}
