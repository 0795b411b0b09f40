// Package llm implements the LLM adapter (C8): HTML preprocessing, prompt
// templating, structured-output parsing and retry policy around a provider
// capability contract consumed by the hybrid extractor and URL discoverer.
// Grounded on the teacher's internal/llm/{interface,manager,factory}.go and
// providers/claude.go for provider-interface shape and anthropic-sdk-go
// wiring idiom.
package llm

import "context"

// Provider is the capability contract every LLM backend implements.
type Provider struct {
	Complete           func(ctx context.Context, prompt, system string) (string, error)
	CompleteStructured func(ctx context.Context, prompt string) (JobsResult, error)
	Translate          func(ctx context.Context, titles []string) ([]string, error)
}

// JobCandidateDTO is the wire shape the EXTRACT_JOBS prompt is asked to
// return for each job.
type JobCandidateDTO struct {
	Title      string `json:"title"`
	Location   string `json:"location"`
	URL        string `json:"url"`
	Department string `json:"department,omitempty"`
}

// JobsResult is CompleteStructured's return shape: an empty result is
// represented as Jobs: nil, NextPageURL: "" — never as an error.
type JobsResult struct {
	Jobs        []JobCandidateDTO `json:"jobs"`
	NextPageURL string            `json:"next_page_url"`
}

// TranslationResult is the wire shape of TRANSLATE_JOB_TITLES's response.
type TranslationResult struct {
	Translations []string `json:"translations"`
}
