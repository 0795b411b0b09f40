package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sirupsen/logrus"
)

// AnthropicOptions configures an Anthropic-backed Provider.
type AnthropicOptions struct {
	APIKey      string
	Model       string
	MaxTokens   int64
	Temperature float64
	Timeout     time.Duration
}

// NewAnthropicProvider builds a Provider backed by Anthropic's Claude,
// adapted from the teacher's providers/claude.go wiring idiom.
func NewAnthropicProvider(opts AnthropicOptions, logger *logrus.Entry) Provider {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	client := anthropic.NewClient(option.WithAPIKey(opts.APIKey))
	model := anthropic.Model(opts.Model)
	if opts.Model == "" {
		model = anthropic.ModelClaude3_7SonnetLatest
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = 8192
	}

	complete := func(ctx context.Context, prompt, system string) (string, error) {
		if opts.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
			defer cancel()
		}

		params := anthropic.MessageNewParams{
			Model:       model,
			MaxTokens:   maxTokens,
			Temperature: anthropic.Float(opts.Temperature),
			Messages: []anthropic.MessageParam{{
				Content: []anthropic.ContentBlockParamUnion{{
					OfText: &anthropic.TextBlockParam{Text: prompt},
				}},
				Role: anthropic.MessageParamRoleUser,
			}},
		}
		if system != "" {
			params.System = []anthropic.TextBlockParam{{Text: system}}
		}

		resp, err := client.Messages.New(ctx, params)
		if err != nil {
			logger.WithError(err).Warn("anthropic completion call failed")
			return "", fmt.Errorf("anthropic completion: %w", err)
		}
		if len(resp.Content) == 0 {
			return "", fmt.Errorf("anthropic completion: empty response")
		}
		return resp.Content[0].AsText().Text, nil
	}

	structured := func(ctx context.Context, prompt string) (JobsResult, error) {
		return CompleteStructuredWithRetry(ctx, func(ctx context.Context) (JobsResult, error) {
			text, err := complete(ctx, prompt, SystemPrompt)
			if err != nil {
				return JobsResult{}, err
			}
			return ParseJobsResult(text), nil
		})
	}

	translate := func(ctx context.Context, titles []string) ([]string, error) {
		if len(titles) == 0 {
			return nil, nil
		}
		text, err := complete(ctx, TranslateJobTitles(titles), SystemPrompt)
		if err != nil {
			return DictionaryTranslate(titles), nil
		}
		result := ParseTranslations(text)
		translations := result.Translations
		if !isValidTranslation(translations, len(titles)) {
			return DictionaryTranslate(titles), nil
		}
		return translations, nil
	}

	return Provider{
		Complete:           complete,
		CompleteStructured: structured,
		Translate:          translate,
	}
}

func isValidTranslation(translations []string, wantLen int) bool {
	if len(translations) != wantLen {
		return false
	}
	for _, t := range translations {
		if !isWellFormedTranslation(t) {
			return false
		}
	}
	return true
}
