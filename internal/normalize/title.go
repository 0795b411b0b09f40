// Package normalize implements the two distinct canonicalization schemes
// used across the pipeline: persistence-level dedup keys and extraction-time
// candidate dedup keys. They are kept separate on purpose — merging them
// would change the uniqueness semantics of the Job table.
package normalize

import (
	"regexp"
	"strings"
)

var (
	jobAdvertSuffixRe = regexp.MustCompile(`(?i)\b(job advert|stellenanzeige|apply now|jetzt bewerben)\b.*$`)
	genderParenRe     = regexp.MustCompile(`(?i)\((m/w/d|f/d/m|w/m/d|all genders?|d/f/m)\)`)
	genderBareRe      = regexp.MustCompile(`(?i)\s+(m/w/d|f/d/m|w/m/d)\s*$`)
	salaryAppendixRe  = regexp.MustCompile(`(?i)\s*[–-]\s*(vollzeit|teilzeit)[^.]*\d[\d.,]*\s*[–-]\s*[\d.,]*\s*(euro|eur|\$|usd)[^.]*\.?\s*$`)
	whitespaceRe      = regexp.MustCompile(`\s+`)

	germanPluralSingular = map[string]string{
		"telefonisten":     "telefonist",
		"mitarbeiterinnen": "mitarbeiter",
		"mitarbeiterin":    "mitarbeiter",
		"entwicklerinnen":  "entwickler",
		"berater innen":    "berater",
		"beraterinnen":     "berater",
	}

	countrySuffixes = []string{
		"deutschland", "germany", "österreich", "austria", "schweiz", "switzerland",
		"united kingdom", "uk", "usa", "united states", "italy", "italien", "frankreich", "france",
	}
	employmentModeSuffixes = []string{
		"vollzeit", "teilzeit", "remote", "hybrid", "inkl. home office", "home office",
	}

	companyShapedRe = regexp.MustCompile(`(?i)\b(GmbH|Limited|Ltd\.?|Inc\.?|AG|SE|[A-Z]{2,}\s+International)\b`)

	nonJobPatternsRe = regexp.MustCompile(`(?i)(initiativbewerbung|spontanbewerbung|blindbewerbung|open application|unsolicited application)`)
)

// PersistenceTitle is repository._normalize_string: the persistence-layer
// key used for (site_id, normalized_title, normalized_location) uniqueness.
func PersistenceTitle(title string) string {
	t := strings.ToLower(strings.TrimSpace(title))
	t = jobAdvertSuffixRe.ReplaceAllString(t, "")
	t = genderParenRe.ReplaceAllString(t, "")
	t = genderBareRe.ReplaceAllString(t, "")
	t = salaryAppendixRe.ReplaceAllString(t, "")
	for plural, singular := range germanPluralSingular {
		t = strings.ReplaceAll(t, plural, singular)
	}
	t = whitespaceRe.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}

// PersistenceLocation is repository._normalize_location.
func PersistenceLocation(location string) string {
	l := strings.ToLower(strings.TrimSpace(location))
	for _, suf := range countrySuffixes {
		l = strings.TrimSuffix(l, ","+suf)
		l = strings.TrimSuffix(l, ", "+suf)
		l = strings.TrimSuffix(l, " "+suf)
		l = strings.TrimSuffix(l, suf)
		l = strings.TrimSpace(l)
	}
	for _, suf := range employmentModeSuffixes {
		l = strings.ReplaceAll(l, suf, "")
	}
	l = whitespaceRe.ReplaceAllString(l, " ")
	l = strings.TrimRight(strings.TrimSpace(l), ",")
	return strings.TrimSpace(l)
}

// PersistenceKey returns the Job uniqueness key used by the Persistence
// Store's sync algorithm: (normalized title, normalized location), with
// location dropped from the key entirely when empty.
func PersistenceKey(title, location string) string {
	nt := PersistenceTitle(title)
	nl := PersistenceLocation(location)
	if nl == "" {
		return nt
	}
	return nt + "\x00" + nl
}

// CandidateTitle is JobCandidate.normalized_title: the extraction-time dedup
// key, used only for in-memory pagination dedup, not for persistence.
// Unlike PersistenceTitle it also strips a trailing department/team suffix
// after " - " or " | ", and it leaves "job advert"/"apply now" tails in place.
func CandidateTitle(title string) string {
	t := strings.ToLower(strings.TrimSpace(title))
	t = genderParenRe.ReplaceAllString(t, "")
	t = genderBareRe.ReplaceAllString(t, "")
	t = salaryAppendixRe.ReplaceAllString(t, "")
	// strip a trailing department/team suffix introduced by a " - " or " | " separator
	if idx := strings.LastIndex(t, " - "); idx > 0 {
		t = t[:idx]
	}
	if idx := strings.LastIndex(t, " | "); idx > 0 {
		t = t[:idx]
	}
	for plural, singular := range germanPluralSingular {
		t = strings.ReplaceAll(t, plural, singular)
	}
	t = whitespaceRe.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}

// IsNonJobEntry reports whether a title is a submission channel masquerading
// as a posting (Initiativbewerbung, Open Application, ...), shared by the
// ATS parsers' post-filter and the Job Normalizer.
func IsNonJobEntry(title string) bool {
	return nonJobPatternsRe.MatchString(title)
}

// IsCompanyShapedTitle reports whether a title looks like a company name
// rather than a job title (e.g. "Acme GmbH").
func IsCompanyShapedTitle(title string) bool {
	return companyShapedRe.MatchString(title)
}
