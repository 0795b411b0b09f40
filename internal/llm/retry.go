package llm

import (
	"context"
	"regexp"
	"time"
)

const maxStructuredRetries = 3

var transientPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)rate limit`),
	regexp.MustCompile(`(?i)overloaded`),
	regexp.MustCompile(`(?i)service unavailable`),
	regexp.MustCompile(`\b502\b`),
	regexp.MustCompile(`\b503\b`),
	regexp.MustCompile(`\b504\b`),
}

// IsTransient reports whether an error message matches a known transient
// provider failure (5xx / rate-limit / overloaded), as opposed to a fatal
// error that should bubble up immediately.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, pat := range transientPatterns {
		if pat.MatchString(msg) {
			return true
		}
	}
	return false
}

// CompleteStructuredWithRetry makes at most maxStructuredRetries (3) calls
// in all. A result with zero jobs is retried at once; each transient
// provider error is followed by an exponential wait (2s, then 4s, then 8s,
// the last one also after the final call). A non-transient error is
// returned immediately.
func CompleteStructuredWithRetry(ctx context.Context, call func(ctx context.Context) (JobsResult, error)) (JobsResult, error) {
	backoff := 2 * time.Second
	var lastErr error

	for attempt := 0; attempt < maxStructuredRetries; attempt++ {
		result, err := call(ctx)
		if err == nil {
			if len(result.Jobs) > 0 {
				return result, nil
			}
			lastErr = nil
			continue
		}

		if !IsTransient(err) {
			return JobsResult{}, err
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return JobsResult{}, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	if lastErr != nil {
		return JobsResult{}, lastErr
	}
	return JobsResult{}, nil
}
