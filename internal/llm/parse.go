package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*([\\s\\S]*?)\\s*```")
	fullURLRe     = regexp.MustCompile(`https?://[^\s<>"'}\])]+`)
	relPathRe     = regexp.MustCompile(`["'](/[a-zA-Z0-9/_-]+)["']`)
)

// ParseJobsResult extracts a JobsResult from raw LLM text, trying (in
// order) a fenced code block, the raw response, a balanced "{"jobs"..."}"
// object scan, and finally a bare JSON array assigned to Jobs. Returns a
// zero-value (empty) JobsResult, never an error, mirroring extract_json's
// contract that ParseEmpty is not a hard failure.
func ParseJobsResult(response string) JobsResult {
	response = strings.TrimSpace(response)
	if response == "" {
		return JobsResult{}
	}

	if m := fencedBlockRe.FindStringSubmatch(response); m != nil {
		if result, ok := decodeJobsResult(m[1]); ok {
			return result
		}
	}

	if result, ok := decodeJobsResult(response); ok {
		return result
	}

	if obj := extractBalancedObject(response); obj != "" {
		if result, ok := decodeJobsResult(obj); ok {
			return result
		}
	}

	if arr := extractArray(response); arr != "" {
		var jobs []JobCandidateDTO
		if err := json.Unmarshal([]byte(arr), &jobs); err == nil {
			return JobsResult{Jobs: jobs}
		}
	}

	return JobsResult{}
}

func decodeJobsResult(text string) (JobsResult, bool) {
	var result JobsResult
	if err := json.Unmarshal([]byte(text), &result); err == nil {
		return result, true
	}
	var jobs []JobCandidateDTO
	if err := json.Unmarshal([]byte(text), &jobs); err == nil {
		return JobsResult{Jobs: jobs}, true
	}
	return JobsResult{}, false
}

// extractBalancedObject finds the first "{"-delimited object whose braces
// balance, starting from a "jobs" key if present.
func extractBalancedObject(response string) string {
	start := strings.Index(response, `{"jobs"`)
	if start == -1 {
		start = strings.Index(response, `{ "jobs"`)
	}
	if start == -1 {
		start = strings.Index(response, "{")
	}
	if start == -1 {
		return ""
	}

	depth := 0
	for i := start; i < len(response); i++ {
		switch response[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}
	return ""
}

func extractArray(response string) string {
	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return response[start : end+1]
}

// ExtractURL pulls the first absolute URL out of an LLM response, falling
// back to a relative path resolved against baseURL.
func ExtractURL(response, baseURL string) string {
	if m := fullURLRe.FindString(response); m != "" {
		return strings.TrimRight(m, ".,;:")
	}
	if m := relPathRe.FindStringSubmatch(response); m != nil {
		return strings.TrimRight(baseURL, "/") + m[1]
	}
	return ""
}

// ParseTranslations extracts a TranslationResult the same tolerant way
// ParseJobsResult does.
func ParseTranslations(response string) TranslationResult {
	response = strings.TrimSpace(response)
	if response == "" {
		return TranslationResult{}
	}
	if m := fencedBlockRe.FindStringSubmatch(response); m != nil {
		response = strings.TrimSpace(m[1])
	}
	var result TranslationResult
	if err := json.Unmarshal([]byte(response), &result); err == nil {
		return result
	}
	return TranslationResult{}
}
