package browser

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	api2captcha "github.com/2captcha/2captcha-go"
	"github.com/go-rod/rod"
	"github.com/sirupsen/logrus"
)

// TwoCaptchaSolver implements Solver using the 2captcha service, grounded
// on the teacher's internal/scraper/captcha/solver.go wiring idiom.
type TwoCaptchaSolver struct {
	client          *api2captcha.Client
	enableAutoSolve bool
	logger          *logrus.Entry
}

// NewTwoCaptchaSolver builds a Solver. apiKey is handed to the 2captcha
// client unchecked; an empty key does not turn solving off.
func NewTwoCaptchaSolver(apiKey string, timeout time.Duration, enableAutoSolve bool, logger *logrus.Entry) *TwoCaptchaSolver {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	client := api2captcha.NewClient(apiKey)
	if timeout > 0 {
		client.DefaultTimeout = int(timeout.Seconds())
		client.RecaptchaTimeout = int(timeout.Seconds())
	}
	client.PollingInterval = 5
	return &TwoCaptchaSolver{client: client, enableAutoSolve: enableAutoSolve, logger: logger}
}

func (s *TwoCaptchaSolver) SolveRecaptcha(ctx context.Context, siteKey, pageURL string) (string, error) {
	if !s.enableAutoSolve {
		return "", fmt.Errorf("captcha auto-solve is disabled")
	}
	captcha := api2captcha.ReCaptcha{SiteKey: siteKey, Url: pageURL}
	code, _, err := s.client.Solve(captcha.ToRequest())
	if err != nil {
		return "", fmt.Errorf("2captcha: solve recaptcha: %w", err)
	}
	return code, nil
}

func (s *TwoCaptchaSolver) SolveTurnstile(ctx context.Context, siteKey, pageURL string) (string, error) {
	if !s.enableAutoSolve {
		return "", fmt.Errorf("captcha auto-solve is disabled")
	}
	captcha := api2captcha.CloudflareTurnstile{SiteKey: siteKey, Url: pageURL}
	code, _, err := s.client.Solve(captcha.ToRequest())
	if err != nil {
		return "", fmt.Errorf("2captcha: solve turnstile: %w", err)
	}
	return code, nil
}

func (s *TwoCaptchaSolver) IsHealthy() bool {
	balance, err := s.client.GetBalance()
	if err != nil {
		return false
	}
	return balance >= 0
}

var (
	recaptchaSiteKeyRe  = regexp.MustCompile(`data-sitekey=["']([^"']+)["']`)
	turnstileSiteKeyRe  = regexp.MustCompile(`(?:cf-turnstile|turnstile)[^>]*data-sitekey=["']([^"']+)["']`)
)

// detectChallenge reports a CAPTCHA kind ("recaptcha" | "turnstile") and its
// site key found in html, or ok=false if none is present.
func detectChallenge(html string) (kind, siteKey string, ok bool) {
	lower := strings.ToLower(html)
	if strings.Contains(lower, "turnstile") {
		if m := turnstileSiteKeyRe.FindStringSubmatch(html); len(m) > 1 {
			return "turnstile", m[1], true
		}
	}
	if strings.Contains(lower, "recaptcha") || strings.Contains(lower, "g-recaptcha") {
		if m := recaptchaSiteKeyRe.FindStringSubmatch(html); len(m) > 1 {
			return "recaptcha", m[1], true
		}
	}
	return "", "", false
}

// solveChallenge detects a CAPTCHA on the current page and, when a Solver
// is configured, solves it and injects the token into the page's response
// field so the challenge's own JS can pick it up on its next poll.
func (m *Manager) solveChallenge(ctx context.Context, page *Page, pageURL string) {
	if m.solver == nil {
		return
	}
	html, err := page.rodPage.HTML()
	if err != nil {
		return
	}
	kind, siteKey, ok := detectChallenge(html)
	if !ok {
		return
	}

	var token string
	switch kind {
	case "turnstile":
		token, err = m.solver.SolveTurnstile(ctx, siteKey, pageURL)
	case "recaptcha":
		token, err = m.solver.SolveRecaptcha(ctx, siteKey, pageURL)
	}
	if err != nil {
		m.logger.WithError(err).WithField("kind", kind).Warn("browser: captcha solve failed")
		return
	}

	script := fmt.Sprintf(`() => {
		const els = document.querySelectorAll('textarea[name="g-recaptcha-response"], input[name="cf-turnstile-response"]');
		els.forEach(el => { el.value = %q; el.innerHTML = %q; });
	}`, token, token)
	_ = rod.Try(func() { page.rodPage.MustEval(script) })
}
