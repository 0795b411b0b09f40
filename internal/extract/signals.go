// Package extract holds the confidence model and job-title heuristics
// shared by every extraction strategy (C7 structured extractors and the
// pre-LLM heuristic tier), grounded on
// original_source/src/extraction/candidate.py.
package extract

import (
	"regexp"
	"strings"

	"jobradar/pkg/models"
)

// SourceConfidence gives each extraction method its base confidence score
// before signal bonuses/penalties are applied.
var SourceConfidence = map[models.ExtractionMethod]float64{
	models.ExtractionSchemaOrg: 0.95,
	models.ExtractionPdfLink:   0.90,
	models.ExtractionGender:    0.85,
	models.ExtractionList:      0.60,
	models.ExtractionKeyword:   0.50,
	models.ExtractionLLM:       0.70,
}

var signalBonuses = map[string]float64{
	"has_gender_notation": 0.15,
	"has_job_url":         0.10,
	"has_location":        0.05,
	"title_has_keywords":  0.10,
	"in_job_container":    0.08,
	"proper_length":       0.05,
	"too_long":            -0.20,
	"too_short":           -0.15,
	"looks_like_nav":      -0.30,
	"has_non_job_words":   -0.25,
}

// Confidence computes a candidate's confidence score from its source and
// the signals that were observed while extracting it.
func Confidence(source models.ExtractionMethod, signals map[string]bool) float64 {
	base := SourceConfidence[source]
	if len(signals) == 0 {
		return base
	}
	score := base
	for signal, present := range signals {
		if present {
			score += signalBonuses[signal]
		}
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

// JobTitleKeywords are words whose presence is a strong positive signal
// that a text span is a job title, in English and German.
var JobTitleKeywords = []string{
	"manager", "developer", "engineer", "consultant", "analyst", "designer",
	"director", "specialist", "coordinator", "assistant", "administrator",
	"architect", "lead", "senior", "junior", "intern", "trainee",
	"head", "chief", "officer", "president", "vice",
	"leiter", "leiterin", "berater", "beraterin", "entwickler", "entwicklerin",
	"ingenieur", "ingenieurin", "fachkraft", "mitarbeiter", "mitarbeiterin",
	"werkstudent", "werkstudentin", "praktikant", "praktikantin",
	"geschäftsführer", "geschäftsführerin", "projektmanager", "projektmanagerin",
	"produktmanager", "produktmanagerin", "teamleiter", "teamleiterin",
	"sachbearbeiter", "sachbearbeiterin", "referent", "referentin",
	"kaufmann", "kauffrau", "techniker", "technikerin",
}

// NonJobWords mark text that is almost certainly chrome, not a job title.
var NonJobWords = []string{
	"impressum", "datenschutz", "privacy", "cookie", "agb", "terms",
	"copyright", "all rights reserved", "alle rechte vorbehalten",
	"kontakt", "contact", "über uns", "about", "home", "startseite",
	"login", "register", "anmelden", "registrieren", "suche", "search",
	"newsletter", "blog", "news", "presse", "press", "mehr erfahren",
	"learn more", "read more", "weiterlesen", "zurück", "back",
	"filter", "sort", "alle", "all", "reset", "clear",
	"download anfordern", "entdecken sie",
	"consent", "storage duration", "pixel tracker", "local storage",
	"persistent", "preferences", "statistics",
	"cross-domain", "necessary", "tracking",
	"data subject", "rights form", "speakup", "do not sell", "share my personal",
	"dokumentenverwaltung", "finanzen & controlling", "finanzen und controlling",
	"geräte- und maschinenverwaltung", "service und wartung",
	"vertrieb und crm", "wohnbau-management", "einkauf, lager",
}

var companyNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\blimited\b`),
	regexp.MustCompile(`(?i)\bgmbh\b`),
	regexp.MustCompile(`\b[A-Z][a-z]+\s+AG\b`),
	regexp.MustCompile(`(?i)\bbv\b`),
	regexp.MustCompile(`(?i)\bbuilding\s+services\b`),
	regexp.MustCompile(`^[A-Z]{2,}\s+International$`),
}

var nonJobTextPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^type:\s*`),
	regexp.MustCompile(`(?i)^maximum storage`),
	regexp.MustCompile(`\.com\d*$`),
	regexp.MustCompile(`^©`),
	regexp.MustCompile(`©`),
	regexp.MustCompile(`^\s*$`),
	regexp.MustCompile(`(?i)^[a-z0-9.-]+\.[a-z]{2,4}$`),
	regexp.MustCompile(`(?i)^(html\s+)?local\s+storage$`),
	regexp.MustCompile(`(?i)^\d+\s*(year|month|day)s?$`),
	regexp.MustCompile(`(?i)^session$`),
}

var genderNotationInTextRe = regexp.MustCompile(`(?i)\([mwfdx/]+\)`)

var navWords = map[string]bool{"home": true, "back": true, "next": true, "previous": true, "menu": true}

var jobTitleKeywordPatterns = compileKeywordPatterns(JobTitleKeywords)

func compileKeywordPatterns(keywords []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(keywords))
	for i, kw := range keywords {
		out[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
	}
	return out
}

// IsLikelyJobTitle mirrors is_likely_job_title: a length, pattern and
// keyword gate that a candidate title must pass before it is trusted.
func IsLikelyJobTitle(text string) (bool, map[string]bool) {
	signals := map[string]bool{}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		signals["empty"] = true
		return false, signals
	}

	lower := strings.ToLower(trimmed)

	if len(trimmed) < 5 {
		signals["too_short"] = true
		return false, signals
	}
	if len(trimmed) > 150 {
		signals["too_long"] = true
		return false, signals
	}
	signals["proper_length"] = 15 < len(trimmed) && len(trimmed) < 100

	for _, pat := range nonJobTextPatterns {
		if pat.MatchString(lower) {
			signals["matches_non_job_pattern"] = true
			return false, signals
		}
	}

	if genderNotationInTextRe.MatchString(lower) {
		signals["has_gender_notation"] = true
	}

	foundKeyword := false
	for _, pat := range jobTitleKeywordPatterns {
		if pat.MatchString(lower) {
			foundKeyword = true
			break
		}
	}
	if foundKeyword {
		signals["title_has_keywords"] = true
	}

	for _, w := range NonJobWords {
		if strings.Contains(lower, w) {
			signals["has_non_job_words"] = true
			return false, signals
		}
	}

	for _, pat := range companyNamePatterns {
		if pat.MatchString(trimmed) {
			signals["looks_like_company_name"] = true
			return false, signals
		}
	}

	if navWords[lower] {
		signals["looks_like_nav"] = true
		return false, signals
	}

	likely := signals["has_gender_notation"] || signals["title_has_keywords"]
	return likely, signals
}
