// Package heuristic implements the pre-LLM extraction tier run after
// platform/Schema.org/PDF extraction comes up empty: gender-notation
// detection, repeated-list-structure detection, and keyword matching.
// Grounded on original_source/src/extraction/strategies.py's
// GenderNotationStrategy, ListStructureStrategy and KeywordMatchStrategy.
package heuristic

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"jobradar/internal/extract"
	"jobradar/pkg/models"
)

var genderNotationRe = regexp.MustCompile(`(?i)\((?:m/w/d|w/m/d|m/f/d|f/m/d|m/w/x|m/d/w|w/d/m|d/m/w|gn|d/w/m|w/m/x|m/f/x|f/m/x|all\s*genders?|w/m/divers|m/w/divers|divers)\)`)

var dedupeGenderRe = regexp.MustCompile(`(?i)\([mwfdx/]+\)|[mwfdx]/[mwfdx](/[mwfdx])?\s*$`)

var locationDashRe = regexp.MustCompile(`(?i)-\s*([A-Za-zäöüÄÖÜß]+(?:\s+[A-Za-zäöüÄÖÜß]+)?)\s*$`)
var standortRe = regexp.MustCompile(`(?i)(?:standort|location|ort)[:\s]+([A-Za-zäöüÄÖÜß]+)`)

var commonLocations = map[string]bool{
	"austria": true, "germany": true, "schweiz": true, "switzerland": true,
	"remote": true, "dach": true,
}

// GenderNotation finds text nodes carrying a (m/w/d)-style gender notation,
// a pattern common to German job postings.
func GenderNotation(doc *goquery.Document, baseURL string) []models.JobCandidate {
	var out []models.JobCandidate
	seen := map[string]bool{}

	walkTextNodes(doc.Selection, func(node *html.Node, text string) {
		trimmed := strings.TrimSpace(text)
		if !genderNotationRe.MatchString(trimmed) {
			return
		}
		if len(trimmed) > 150 || len(trimmed) < 8 {
			return
		}
		if genderNotationRe.ReplaceAllString(trimmed, "") == "" {
			return
		}

		normalized := normalizeForDedupe(trimmed)
		if seen[normalized] {
			return
		}
		seen[normalized] = true

		jobURL := findAncestorJobURL(node, baseURL)
		location := findNearbyLocation(node)

		signals := map[string]bool{
			"has_gender_notation": true,
			"has_job_url":          jobURL != baseURL,
			"has_location":         location != "Unknown",
		}
		out = append(out, models.JobCandidate{
			Title:      trimmed,
			URL:        jobURL,
			Location:   location,
			Source:     models.ExtractionGender,
			Confidence: extract.Confidence(models.ExtractionGender, signals),
			Signals:    signals,
		})
	})

	return out
}

func normalizeForDedupe(text string) string {
	normalized := dedupeGenderRe.ReplaceAllString(strings.ToLower(text), "")
	return strings.Join(strings.Fields(normalized), " ")
}

func findAncestorJobURL(node *html.Node, baseURL string) string {
	parent := node.Parent
	for i := 0; i < 8 && parent != nil; i++ {
		if parent.Type == html.ElementNode && parent.Data == "a" {
			if href := attrOf(parent, "href"); href != "" && !strings.HasPrefix(href, "#") && !strings.HasPrefix(href, "javascript:") {
				return joinURL(baseURL, href)
			}
		}
		if href := firstLinkHref(parent); href != "" {
			return joinURL(baseURL, href)
		}
		parent = parent.Parent
	}
	return baseURL
}

func firstLinkHref(n *html.Node) string {
	if n == nil {
		return ""
	}
	var found string
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if found != "" {
			return
		}
		if node.Type == html.ElementNode && node.Data == "a" {
			if href := attrOf(node, "href"); href != "" && !strings.HasPrefix(href, "#") && !strings.HasPrefix(href, "javascript:") {
				found = href
				return
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return found
}

func findNearbyLocation(node *html.Node) string {
	if m := locationDashRe.FindStringSubmatch(strings.TrimSpace(renderText(node))); m != nil {
		loc := strings.TrimSpace(m[1])
		if commonLocations[strings.ToLower(loc)] {
			return titleCase(loc)
		}
	}

	parent := node.Parent
	for i := 0; i < 4 && parent != nil; i++ {
		text := strings.ToLower(renderText(parent))
		if strings.Contains(text, "remote") || strings.Contains(text, "home office") {
			return "Remote"
		}
		if m := standortRe.FindStringSubmatch(text); m != nil {
			return titleCase(m[1])
		}
		parent = parent.Parent
	}

	return "Unknown"
}

// ListStructure detects repeated sibling elements (all <li>, all <div>,
// etc., with similar class sets) as candidate job lists.
func ListStructure(doc *goquery.Document, baseURL string) []models.JobCandidate {
	var out []models.JobCandidate
	seen := map[string]bool{}

	doc.Find("ul, ol, div, section").Each(func(_ int, container *goquery.Selection) {
		items := repeatedChildren(container)
		if len(items) < 2 {
			return
		}
		for _, item := range items {
			c, ok := candidateFromListItem(item, baseURL, seen)
			if ok {
				out = append(out, c)
			}
		}
	})

	return out
}

func repeatedChildren(container *goquery.Selection) []*goquery.Selection {
	var children []*goquery.Selection
	container.Children().Each(func(_ int, c *goquery.Selection) {
		children = append(children, c)
	})
	if len(children) < 2 {
		return nil
	}

	tagName := goquery.NodeName(children[0])
	for _, c := range children {
		if goquery.NodeName(c) != tagName {
			return nil
		}
	}

	classSet := map[string]bool{}
	limit := len(children)
	if limit > 5 {
		limit = 5
	}
	for _, c := range children[:limit] {
		cls, _ := c.Attr("class")
		classSet[cls] = true
	}
	if len(classSet) > 2 {
		return nil
	}

	return children
}

func candidateFromListItem(item *goquery.Selection, baseURL string, seen map[string]bool) (models.JobCandidate, bool) {
	titleElem := item.Find("h1, h2, h3, h4, a").First()
	var title string
	if titleElem.Length() > 0 {
		title = strings.TrimSpace(titleElem.Text())
	} else {
		title = strings.TrimSpace(item.Text())
	}

	likely, signals := extract.IsLikelyJobTitle(title)
	if !likely {
		return models.JobCandidate{}, false
	}

	normalized := normalizeForDedupe(title)
	if seen[normalized] {
		return models.JobCandidate{}, false
	}
	seen[normalized] = true

	jobURL := baseURL
	if link := item.Find("a[href]").First(); link.Length() > 0 {
		if href, ok := link.Attr("href"); ok && href != "" && !strings.HasPrefix(href, "#") && !strings.HasPrefix(href, "javascript:") {
			jobURL = joinURL(baseURL, href)
		}
	}

	signals["has_job_url"] = jobURL != baseURL
	signals["from_list_structure"] = true

	return models.JobCandidate{
		Title:      title,
		URL:        jobURL,
		Location:   "Unknown",
		Source:     models.ExtractionList,
		Confidence: extract.Confidence(models.ExtractionList, signals),
		Signals:    signals,
	}, true
}

// KeywordMatch scans headings and links for job-title-shaped text.
func KeywordMatch(doc *goquery.Document, baseURL string) []models.JobCandidate {
	var out []models.JobCandidate
	seen := map[string]bool{}

	doc.Find("h1, h2, h3, h4, a").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())

		likely, signals := extract.IsLikelyJobTitle(text)
		if !likely {
			return
		}

		normalized := normalizeForDedupe(text)
		if seen[normalized] {
			return
		}
		seen[normalized] = true

		jobURL := baseURL
		if goquery.NodeName(s) == "a" {
			if href, ok := s.Attr("href"); ok && href != "" && !strings.HasPrefix(href, "#") && !strings.HasPrefix(href, "javascript:") {
				jobURL = joinURL(baseURL, href)
			}
		}
		signals["has_job_url"] = jobURL != baseURL

		out = append(out, models.JobCandidate{
			Title:      text,
			URL:        jobURL,
			Location:   "Unknown",
			Source:     models.ExtractionKeyword,
			Confidence: extract.Confidence(models.ExtractionKeyword, signals),
			Signals:    signals,
		})
	})

	return out
}

func walkTextNodes(s *goquery.Selection, fn func(node *html.Node, text string)) {
	for _, n := range s.Nodes {
		walkNode(n, fn)
	}
}

func walkNode(n *html.Node, fn func(node *html.Node, text string)) {
	if n.Type == html.TextNode && strings.TrimSpace(n.Data) != "" {
		fn(n, n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkNode(c, fn)
	}
}

func renderText(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
			sb.WriteString(" ")
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}

func titleCase(s string) string {
	lower := strings.ToLower(s)
	if lower == "" {
		return lower
	}
	r := []rune(lower)
	r[0] = []rune(strings.ToUpper(string(r[0])))[0]
	return string(r)
}

func attrOf(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func joinURL(base, ref string) string {
	if strings.HasPrefix(ref, "http") {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return base
	}
	return baseURL.ResolveReference(refURL).String()
}
