// Package schemaorg extracts jobs from schema.org/JobPosting structured
// data: JSON-LD script tags and itemtype microdata. Grounded on
// original_source/src/extraction/strategies.py's SchemaOrgStrategy.
package schemaorg

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"jobradar/internal/extract"
	"jobradar/pkg/models"
)

// Extract reads a rendered document for JSON-LD and microdata JobPosting
// entries.
func Extract(doc *goquery.Document, baseURL string) []models.JobCandidate {
	var out []models.JobCandidate
	out = append(out, extractJSONLD(doc, baseURL)...)
	out = append(out, extractMicrodata(doc, baseURL)...)
	return out
}

func extractJSONLD(doc *goquery.Document, baseURL string) []models.JobCandidate {
	var out []models.JobCandidate

	doc.Find(`script[type="application/ld+json"], script[type="application/json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}

		var asObject map[string]any
		if err := json.Unmarshal([]byte(raw), &asObject); err == nil {
			out = append(out, fromJSONLDValue(asObject, baseURL)...)
			return
		}

		var asArray []any
		if err := json.Unmarshal([]byte(raw), &asArray); err == nil {
			for _, item := range asArray {
				if obj, ok := item.(map[string]any); ok {
					out = append(out, fromJSONLDValue(obj, baseURL)...)
				}
			}
		}
	})

	return out
}

func fromJSONLDValue(data map[string]any, baseURL string) []models.JobCandidate {
	var out []models.JobCandidate

	if typ, _ := data["@type"].(string); typ == "JobPosting" {
		out = append(out, candidateFromJSONLD(data, baseURL))
		return out
	}

	if graph, ok := data["@graph"].([]any); ok {
		for _, item := range graph {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if typ, _ := obj["@type"].(string); typ == "JobPosting" {
				out = append(out, candidateFromJSONLD(obj, baseURL))
			}
		}
	}

	return out
}

func candidateFromJSONLD(data map[string]any, baseURL string) models.JobCandidate {
	title, _ := data["title"].(string)
	if title == "" {
		title = "Unknown"
	}

	location := "Unknown"
	if loc, ok := data["jobLocation"].(map[string]any); ok {
		switch addr := loc["address"].(type) {
		case map[string]any:
			if locality, ok := addr["addressLocality"].(string); ok && locality != "" {
				location = locality
			}
		case string:
			if addr != "" {
				location = addr
			}
		}
	}

	jobURL, _ := data["url"].(string)
	hasURL := jobURL != ""
	if hasURL && !strings.HasPrefix(jobURL, "http") {
		jobURL = joinURL(baseURL, jobURL)
	}
	if jobURL == "" {
		jobURL = baseURL
	}

	var department, company string
	if industry, ok := data["industry"].(string); ok {
		department = industry
	}
	if org, ok := data["hiringOrganization"].(map[string]any); ok {
		if name, ok := org["name"].(string); ok {
			company = name
		}
	}

	signals := map[string]bool{"schema_org": true, "has_job_url": hasURL}
	return models.JobCandidate{
		Title:      title,
		URL:        jobURL,
		Location:   location,
		Department: department,
		Company:    company,
		Source:     models.ExtractionSchemaOrg,
		Confidence: extract.Confidence(models.ExtractionSchemaOrg, signals),
		Signals:    signals,
	}
}

func extractMicrodata(doc *goquery.Document, baseURL string) []models.JobCandidate {
	var out []models.JobCandidate

	doc.Find(`[itemtype*="JobPosting"]`).Each(func(_ int, item *goquery.Selection) {
		titleElem := item.Find(`[itemprop="title"], [itemprop="name"]`).First()
		if titleElem.Length() == 0 {
			return
		}
		title := strings.TrimSpace(titleElem.Text())
		if title == "" {
			return
		}

		jobURL := baseURL
		if urlElem := item.Find(`[itemprop="url"]`).First(); urlElem.Length() > 0 {
			if href, ok := urlElem.Attr("href"); ok && href != "" {
				jobURL = joinURL(baseURL, href)
			}
		}

		location := "Unknown"
		if locElem := item.Find(`[itemprop="jobLocation"] [itemprop="addressLocality"]`).First(); locElem.Length() > 0 {
			location = strings.TrimSpace(locElem.Text())
		}

		signals := map[string]bool{"microdata": true}
		out = append(out, models.JobCandidate{
			Title:      title,
			URL:        jobURL,
			Location:   location,
			Source:     models.ExtractionSchemaOrg,
			Confidence: extract.Confidence(models.ExtractionSchemaOrg, signals),
			Signals:    signals,
		})
	})

	return out
}

func joinURL(base, ref string) string {
	if ref == "" {
		return base
	}
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
