package llm

import (
	"regexp"
	"strings"
)

// germanToEnglish is a pre-compiled, case-insensitive, word-boundary
// anchored morpheme substitution table used when the LLM translation call
// fails or its response fails validation.
var germanToEnglish = []struct {
	pattern *regexp.Regexp
	replace string
}{
	{regexp.MustCompile(`(?i)\bentwickler(in)?\b`), "developer"},
	{regexp.MustCompile(`(?i)\bingenieur(in)?\b`), "engineer"},
	{regexp.MustCompile(`(?i)\bleiter(in)?\b`), "lead"},
	{regexp.MustCompile(`(?i)\bteamleiter(in)?\b`), "team lead"},
	{regexp.MustCompile(`(?i)\bprojektmanager(in)?\b`), "project manager"},
	{regexp.MustCompile(`(?i)\bproduktmanager(in)?\b`), "product manager"},
	{regexp.MustCompile(`(?i)\bberater(in)?\b`), "consultant"},
	{regexp.MustCompile(`(?i)\bmitarbeiter(in)?\b`), "employee"},
	{regexp.MustCompile(`(?i)\bsachbearbeiter(in)?\b`), "clerk"},
	{regexp.MustCompile(`(?i)\breferent(in)?\b`), "officer"},
	{regexp.MustCompile(`(?i)\bwerkstudent(in)?\b`), "working student"},
	{regexp.MustCompile(`(?i)\bpraktikant(in)?\b`), "intern"},
	{regexp.MustCompile(`(?i)\bgeschäftsführer(in)?\b`), "managing director"},
	{regexp.MustCompile(`(?i)\btechniker(in)?\b`), "technician"},
	{regexp.MustCompile(`(?i)\bfachkraft\b`), "specialist"},
	{regexp.MustCompile(`(?i)\bkaufmann\b`), "clerk"},
	{regexp.MustCompile(`(?i)\bkauffrau\b`), "clerk"},
	{regexp.MustCompile(`(?i)\bvertrieb\b`), "sales"},
	{regexp.MustCompile(`(?i)\bverkauf\b`), "sales"},
	{regexp.MustCompile(`(?i)\bpersonal\b`), "HR"},
	{regexp.MustCompile(`(?i)\bbuchhaltung\b`), "accounting"},
	{regexp.MustCompile(`(?i)\bmarketing\b`), "marketing"},
	{regexp.MustCompile(`(?i)\bsenior\b`), "senior"},
	{regexp.MustCompile(`(?i)\bjunior\b`), "junior"},
	{regexp.MustCompile(`(?i)\bvollzeit\b`), "full-time"},
	{regexp.MustCompile(`(?i)\bteilzeit\b`), "part-time"},
}

// DictionaryTranslate applies the morpheme table to each title, leaving
// unmatched words untouched. It is the fallback path: it never fails and
// always returns the same count and order as the input.
func DictionaryTranslate(titles []string) []string {
	out := make([]string, len(titles))
	for i, title := range titles {
		translated := title
		for _, rule := range germanToEnglish {
			translated = rule.pattern.ReplaceAllString(translated, rule.replace)
		}
		out[i] = translated
	}
	return out
}

// garbageRe matches runs of mojibake produced by a mis-decoded non-breaking
// space or similar replacement-character sequences, plus bare "..."
// placeholders a model sometimes emits instead of a real translation.
var garbageRe = regexp.MustCompile(`[\x{FFFD}\x{00A0}?]{2,}|\.\.\.`)

// isWellFormedTranslation rejects output containing non-printable/encoding
// garbage or "..." placeholders, per the translation validation rule.
func isWellFormedTranslation(s string) bool {
	if s == "" {
		return false
	}
	if garbageRe.MatchString(s) {
		return false
	}
	if strings.Contains(s, "{") || strings.Contains(s, "}") {
		return false
	}
	return true
}
