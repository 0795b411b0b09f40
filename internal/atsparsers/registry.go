package atsparsers

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"jobradar/pkg/models"
)

// Registry dispatches to the Parser registered for a platform tag, mirroring
// JobBoardParserRegistry.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry builds the registry with every platform-specific parser.
func NewRegistry() *Registry {
	r := &Registry{parsers: map[string]Parser{}}
	for _, p := range []Parser{
		Personio{}, Greenhouse{}, Lever{}, Workable{}, Recruitee{}, Odoo{}, HiBob{}, HRworks{}, Deloitte{},
	} {
		r.parsers[p.Platform()] = p
	}
	return r
}

// IsAPIBased reports whether the platform exposes a JSON API the hybrid
// extractor should prefer over HTML parsing. Recruitee is the only one.
func (r *Registry) IsAPIBased(platform string) bool {
	return platform == "recruitee"
}

// GetAPIURL returns the API endpoint for an API-based platform, or "" if
// the platform has none.
func (r *Registry) GetAPIURL(platform, baseURL string) string {
	if platform == "recruitee" {
		return Recruitee{}.APIURL(baseURL)
	}
	return ""
}

// Parse dispatches HTML parsing to the registered parser for platform.
func (r *Registry) Parse(doc *goquery.Document, baseURL, platform string) ([]models.JobCandidate, error) {
	p, ok := r.parsers[platform]
	if !ok {
		return nil, fmt.Errorf("atsparsers: no parser registered for platform %q", platform)
	}
	return p.Parse(doc, baseURL), nil
}

// ParseAPIJSON dispatches API-response parsing for platforms that support it.
func (r *Registry) ParseAPIJSON(body []byte, baseURL, platform string) ([]models.JobCandidate, error) {
	if platform != "recruitee" {
		return nil, fmt.Errorf("atsparsers: platform %q has no API parser", platform)
	}
	return Recruitee{}.ParseAPIJSON(body, baseURL), nil
}

// Supports reports whether a parser is registered for platform.
func (r *Registry) Supports(platform string) bool {
	_, ok := r.parsers[platform]
	return ok
}
