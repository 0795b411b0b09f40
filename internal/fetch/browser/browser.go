// Package browser implements the Browser Fetcher (C3): a headless
// Chrome/Chromium wrapper (rod + stealth) offering a simple load-and-return
// operation and a navigation-heuristic operation that clicks through cookie
// consent and into an embedded or external jobs listing, with SPA
// scroll-and-poll content loading and an iframe fallback for external ATS
// pages.
//
// Grounded on the teacher's internal/scraper/engines/headed/{browser,rod}.go
// for the pool/stealth-page/navigate wiring idiom, and on
// original_source/src/browser/*.py for the navigation and cookie-consent
// behavior itself. github.com/2captcha/2captcha-go (teacher dep) is wired in
// as an optional challenge-solving hook, matching the teacher's captcha
// package.
package browser

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/sirupsen/logrus"

	"jobradar/internal/jobserr"
)

// Solver is the capability contract for an optional CAPTCHA-solving
// service, matching the teacher's captcha.CaptchaSolver interface.
type Solver interface {
	SolveRecaptcha(ctx context.Context, siteKey, pageURL string) (string, error)
	SolveTurnstile(ctx context.Context, siteKey, pageURL string) (string, error)
	IsHealthy() bool
}

// Config tunes the pool and navigation timing.
type Config struct {
	Headless     bool
	UserAgent    string
	PoolSize     int
	NavTimeout   time.Duration
	CookieWait   time.Duration
	SettleDelay  time.Duration
	MaxScrolls   int
	ScrollWait   time.Duration
	NewTabWait   time.Duration
	DOMGrowthPct float64
}

// DefaultConfig matches spec.md §4.3's timing (cookie wait 2s, settle
// ~1.5s, navigation acceptance wait 2.5s).
func DefaultConfig() Config {
	return Config{
		Headless:     true,
		PoolSize:     4,
		NavTimeout:   30 * time.Second,
		CookieWait:   2 * time.Second,
		SettleDelay:  1500 * time.Millisecond,
		MaxScrolls:   8,
		ScrollWait:   700 * time.Millisecond,
		NewTabWait:   2500 * time.Millisecond,
		DOMGrowthPct: 0.20,
	}
}

// Manager owns a pool of headless browsers.
type Manager struct {
	cfg      Config
	launcher *launcher.Launcher
	mu       sync.Mutex
	browsers []*rod.Browser
	solver   Solver
	logger   *logrus.Entry
}

// New builds a Manager. solver may be nil to disable CAPTCHA solving.
func New(cfg Config, solver Solver, logger *logrus.Entry) *Manager {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-gpu").
		Set("disable-dev-shm-usage")
	if chromePath := systemChromePath(); chromePath != "" {
		l = l.Bin(chromePath)
	}
	if cfg.UserAgent != "" {
		l = l.Set("user-agent", cfg.UserAgent)
	}
	return &Manager{cfg: cfg, launcher: l, solver: solver, logger: logger}
}

// Page wraps a rod.Page with the Manager that owns its browser, so the
// caller can Release it without reaching back into pool internals.
type Page struct {
	rodPage *rod.Page
	manager *Manager
}

func (m *Manager) acquirePage(ctx context.Context) (*Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, b := range m.browsers {
		if healthy(b) {
			if page, err := m.stealthPage(b); err == nil {
				return &Page{rodPage: page, manager: m}, nil
			}
		}
	}

	if len(m.browsers) >= m.cfg.PoolSize && m.cfg.PoolSize > 0 {
		return nil, fmt.Errorf("browser fetcher: pool exhausted (max %d)", m.cfg.PoolSize)
	}

	controlURL, err := m.launcher.Launch()
	if err != nil {
		return nil, fmt.Errorf("browser fetcher: launch: %w", err)
	}
	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser fetcher: connect: %w", err)
	}
	m.browsers = append(m.browsers, b)

	page, err := m.stealthPage(b)
	if err != nil {
		return nil, fmt.Errorf("browser fetcher: stealth page: %w", err)
	}
	return &Page{rodPage: page, manager: m}, nil
}

func (m *Manager) stealthPage(b *rod.Browser) (*rod.Page, error) {
	page, err := stealth.Page(b)
	if err != nil {
		return nil, err
	}
	_ = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{Width: 1920, Height: 1080, DeviceScaleFactor: 1})
	if m.cfg.UserAgent != "" {
		_ = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: m.cfg.UserAgent})
	}
	return page, nil
}

// Release closes the underlying page.
func (p *Page) Release() {
	if p.rodPage != nil {
		_ = rod.Try(func() { p.rodPage.MustClose() })
	}
}

// Cleanup closes every pooled browser.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.browsers {
		if healthy(b) {
			_ = rod.Try(func() { b.MustClose() })
		}
	}
	m.browsers = nil
	m.launcher.Cleanup()
}

func healthy(b *rod.Browser) bool {
	return rod.Try(func() { b.MustPages() }) == nil
}

// FetchSimple loads url and waits for the page's load event (it does not
// return at domcontentloaded), optionally waits for a selector (bounded at
// 5s), then a fixed settle delay, and returns the rendered HTML.
func (m *Manager) FetchSimple(ctx context.Context, url, waitFor string) (string, error) {
	page, err := m.acquirePage(ctx)
	if err != nil {
		return "", err
	}
	defer page.Release()

	if err := m.navigate(ctx, page, url); err != nil {
		return "", err
	}

	if waitFor != "" {
		waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_ = rod.Try(func() { page.rodPage.Context(waitCtx).MustElement(waitFor) })
		cancel()
	}
	time.Sleep(m.cfg.SettleDelay)

	html, err := page.rodPage.HTML()
	if err != nil {
		return "", fmt.Errorf("browser fetcher: read html: %w", err)
	}
	return html, nil
}

// NavigationResult is FetchWithNavigation's return value. The caller owns
// closing Page via Release once done with it (e.g. for accessibility-tree
// inspection downstream).
type NavigationResult struct {
	HTML     string
	FinalURL string
	Page     *Page
}

// FetchWithNavigation loads url, dismisses cookie consent, attempts to
// click through to an embedded jobs listing (following into an external ATS
// if discovered), lets SPA content settle, and falls back to an iframe's
// HTML if the final DOM still lacks a listing.
func (m *Manager) FetchWithNavigation(ctx context.Context, url string, maxAttempts int) (*NavigationResult, error) {
	if maxAttempts <= 0 {
		maxAttempts = 2
	}
	page, err := m.acquirePage(ctx)
	if err != nil {
		return nil, err
	}

	if err := m.navigate(ctx, page, url); err != nil {
		page.Release()
		return nil, err
	}

	m.solveChallenge(ctx, page, url)
	m.dismissCookieConsent(page)

	currentURL := url
	for attempt := 0; attempt < maxAttempts; attempt++ {
		clicked, newPage, newURL := m.clickJobsLink(ctx, page)
		if !clicked {
			break
		}
		if newPage != nil {
			page.Release()
			page = newPage
		}
		currentURL = newURL
	}

	m.settleSPA(page)

	html, err := page.rodPage.HTML()
	if err != nil {
		page.Release()
		return nil, fmt.Errorf("browser fetcher: read html: %w", err)
	}

	if !looksLikeListing(html) {
		if frameHTML, frameURL, ok := m.externalATSFrame(page); ok {
			return &NavigationResult{HTML: frameHTML, FinalURL: frameURL, Page: page}, nil
		}
	}

	return &NavigationResult{HTML: html, FinalURL: currentURL, Page: page}, nil
}

func (m *Manager) navigate(ctx context.Context, page *Page, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, m.cfg.NavTimeout)
	defer cancel()

	err := rod.Try(func() {
		page.rodPage.Context(navCtx).MustNavigate(url).MustWaitLoad()
	})
	if err != nil {
		if isNetworkUnreachable(err) {
			return fmt.Errorf("browser fetcher: navigate %s: %w", url, jobserr.ErrDomainUnreachable)
		}
		return fmt.Errorf("browser fetcher: navigate %s: %w", url, err)
	}
	return nil
}

// cmpSelectors are generic cookie-consent-dialog container selectors tried
// after the CMP-specific one, per spec.md §4.3.
var cmpSelectors = []string{
	"#cmpbox", "#cmpwrapper", "#onetrust-banner-sdk", "#CybotCookiebotDialog",
	"[class*='cookie-consent']", "[class*='cookie-banner']", "[id*='cookie-consent']",
	"[class*='gdpr']", "[role='dialog']",
}

var acceptAllPatterns = []string{
	"accept all", "accept cookies", "i accept", "agree", "allow all",
	"alle akzeptieren", "alle cookies akzeptieren", "zustimmen", "einverstanden",
	"принять все", "согласен", "согласиться",
}

// dismissCookieConsent waits up to CookieWait for a CMP container; if found,
// clicks the first visible element whose text matches an accept-all
// pattern. It never accepts partial consent and never rejects.
func (m *Manager) dismissCookieConsent(page *Page) {
	deadline := time.Now().Add(m.cfg.CookieWait)
	for _, selector := range cmpSelectors {
		if time.Now().After(deadline) {
			return
		}
		var found bool
		_ = rod.Try(func() {
			el, err := page.rodPage.Timeout(300 * time.Millisecond).Element(selector)
			if err == nil && el != nil {
				found = true
			}
		})
		if !found {
			continue
		}
		if m.clickMatchingText(page, acceptAllPatterns) {
			return
		}
	}
}

func (m *Manager) clickMatchingText(page *Page, patterns []string) bool {
	clicked := false
	_ = rod.Try(func() {
		elements := page.rodPage.MustElements("button, a, [role='button']")
		for _, el := range elements {
			visible, _ := el.Visible()
			if !visible {
				continue
			}
			text := strings.ToLower(strings.TrimSpace(el.MustText()))
			for _, pattern := range patterns {
				if strings.Contains(text, pattern) {
					el.MustClick()
					clicked = true
					return
				}
			}
		}
	})
	return clicked
}

var jobsLinkHrefKeywords = []string{"/jobs", "/careers", "/stellenangebote", "karriere."}
var jobsLinkTextKeywords = []string{
	"current openings", "open positions", "view all jobs", "see all jobs",
	"alle stellen", "offene stellen", "все вакансии",
}
var excludedHrefKeywords = []string{"stellenprofil", "#apply"}

// clickJobsLink searches for a clickable link to an embedded jobs listing
// and clicks it, honoring target=_blank by waiting for a new tab, and
// otherwise accepting the navigation only if the DOM grew materially or we
// landed on a known external ATS domain.
func (m *Manager) clickJobsLink(ctx context.Context, page *Page) (clicked bool, newPage *Page, newURL string) {
	var targetBlank bool
	var el *rod.Element

	rod.Try(func() {
		candidates := page.rodPage.MustElements("a[href]")
		for _, c := range candidates {
			href, _ := c.Attribute("href")
			text := strings.ToLower(strings.TrimSpace(c.MustText()))

			if href != nil && containsAny(*href, excludedHrefKeywords) {
				continue
			}
			if containsJobPathSlug(href) || containsAny(text, jobsLinkTextKeywords) {
				el = c
				target, _ := c.Attribute("target")
				targetBlank = target != nil && *target == "_blank"
				return
			}
		}
	})
	if el == nil {
		return false, nil, ""
	}

	domSizeBefore := domSize(page)

	if targetBlank {
		var tabPage *rod.Page
		wait := page.rodPage.Browser().MustWaitEvent(&proto.TargetTargetCreated{})
		_ = rod.Try(func() { el.MustClick() })
		wait()
		time.Sleep(m.cfg.NewTabWait)
		_ = rod.Try(func() {
			pages := page.rodPage.Browser().MustPages()
			if len(pages) > 0 {
				tabPage = pages[len(pages)-1]
			}
		})
		if tabPage == nil {
			return false, nil, ""
		}
		url := tabPage.MustInfo().URL
		return true, &Page{rodPage: tabPage, manager: m}, url
	}

	_ = rod.Try(func() { el.MustClick() })
	time.Sleep(m.cfg.NewTabWait)

	domSizeAfter := domSize(page)
	finalURL := page.rodPage.MustInfo().URL
	grew := domSizeBefore > 0 && float64(domSizeAfter-domSizeBefore)/float64(domSizeBefore) >= m.cfg.DOMGrowthPct
	if !grew && !isKnownExternalATS(finalURL) {
		return false, nil, ""
	}
	return true, nil, finalURL
}

func containsJobPathSlug(href *string) bool {
	if href == nil {
		return false
	}
	return containsAny(*href, jobsLinkHrefKeywords)
}

func containsAny(haystack string, needles []string) bool {
	lower := strings.ToLower(haystack)
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

var knownExternalATSDomains = []string{
	"personio.de", "personio.com", "lever.co", "greenhouse.io",
	"recruitee.com", "workable.com", "bamboohr.com", "smartrecruiters.com",
}

func isKnownExternalATS(url string) bool {
	return containsAny(url, knownExternalATSDomains)
}

func domSize(page *Page) int {
	var size int
	_ = rod.Try(func() {
		result := page.rodPage.MustEval(`() => document.documentElement.outerHTML.length`)
		size = int(result.Num())
	})
	return size
}

// settleSPA scrolls the page in steps, polling a job-card selector count
// until it stabilizes across two consecutive polls or MaxScrolls is hit,
// then scrolls back to top.
func (m *Manager) settleSPA(page *Page) {
	lastCount := -1
	stableStreak := 0

	for i := 0; i < m.cfg.MaxScrolls; i++ {
		_ = rod.Try(func() {
			page.rodPage.MustEval(`() => window.scrollBy(0, document.body.scrollHeight)`)
		})
		time.Sleep(m.cfg.ScrollWait)

		var count int
		_ = rod.Try(func() {
			result := page.rodPage.MustEval(`() => document.querySelectorAll('article, [class*="job"], li').length`)
			count = int(result.Num())
		})

		if count == lastCount {
			stableStreak++
			if stableStreak >= 2 {
				break
			}
		} else {
			stableStreak = 0
		}
		lastCount = count
	}

	_ = rod.Try(func() { page.rodPage.MustEval(`() => window.scrollTo(0, 0)`) })
}

// looksLikeListing is a cheap heuristic: a handful of repeated job-shaped
// elements suggests the DOM already holds a jobs listing, versus a page
// that needs the iframe fallback.
func looksLikeListing(html string) bool {
	lower := strings.ToLower(html)
	count := strings.Count(lower, "job") + strings.Count(lower, "vacanc") + strings.Count(lower, "stellen")
	return count >= 3
}

// externalATSFrame inspects all frames on the page; if any frame's URL
// matches a known external-ATS pattern, its HTML is returned instead of the
// top-level page's.
func (m *Manager) externalATSFrame(page *Page) (html, frameURL string, ok bool) {
	_ = rod.Try(func() {
		frames := page.rodPage.MustElements("iframe")
		for _, f := range frames {
			src, _ := f.Attribute("src")
			if src == nil || !isKnownExternalATS(*src) {
				continue
			}
			framePage, err := f.Frame()
			if err != nil {
				continue
			}
			frameHTML, err := framePage.HTML()
			if err != nil {
				continue
			}
			html = frameHTML
			frameURL = *src
			ok = true
			return
		}
	})
	return html, frameURL, ok
}

var networkUnreachableTokens = []string{
	"err_name_not_resolved", "err_connection_refused", "err_connection_timed_out",
	"err_internet_disconnected", "err_address_unreachable", "err_network_changed",
}

func isNetworkUnreachable(err error) bool {
	lower := strings.ToLower(err.Error())
	return containsAny(lower, networkUnreachableTokens)
}

func systemChromePath() string {
	if p := os.Getenv("CHROME_BIN"); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if p := os.Getenv("CHROME_PATH"); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range []string{
		"/usr/bin/chromium-browser", "/usr/bin/chromium", "/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable", "/opt/google/chrome/chrome",
	} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
