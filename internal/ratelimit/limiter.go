// Package ratelimit implements the per-host rate limiter (C1): a fixed
// per-host delay plus a bounded number of in-flight requests, widening the
// delay on throttling signals and narrowing it back down on success.
//
// The algorithm follows original_source/src/searchers/rate_limiter.py, not
// the token-bucket + circuit-breaker scheme the rest of this codebase's
// teacher uses elsewhere for similar-looking concerns; the Go idiom
// (per-host map guarded by a mutex, lazily created under a double-checked
// global lock, a ticker-driven cleanup goroutine, logrus field logging) is
// kept from that teacher's internal/scraper/workers/limiter.go.
package ratelimit

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/araddon/dateparse"
	"github.com/sirupsen/logrus"
)

// Config carries the tunables named in spec §4.1.
type Config struct {
	BaseDelay        time.Duration
	MaxConcurrent    int
	MaxDelay         time.Duration
	BackoffMultiplier float64
	RecoveryFactor   float64
	CleanupInterval  time.Duration
	CleanupIdleAfter time.Duration
}

// DefaultConfig matches the spec §4.1 defaults.
func DefaultConfig() Config {
	return Config{
		BaseDelay:         500 * time.Millisecond,
		MaxConcurrent:     2,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
		RecoveryFactor:    0.9,
		CleanupInterval:   5 * time.Minute,
		CleanupIdleAfter:  10 * time.Minute,
	}
}

type hostState struct {
	mu          sync.Mutex
	delay       time.Duration
	lastRequest time.Time
	lastSeen    time.Time
	sem         chan struct{}
	requests    int64
	failures    int64
}

// Limiter is the per-host rate limiter. Zero value is not usable; use New.
type Limiter struct {
	cfg    Config
	logger *logrus.Entry

	mu    sync.Mutex // guards hosts map membership (lazy, double-checked)
	hosts map[string]*hostState

	stopCleanup chan struct{}
}

// New creates a Limiter and starts its background cleanup goroutine.
func New(cfg Config, logger *logrus.Entry) *Limiter {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	l := &Limiter{
		cfg:         cfg,
		logger:      logger.WithField("component", "rate_limiter"),
		hosts:       make(map[string]*hostState),
		stopCleanup: make(chan struct{}),
	}
	go l.cleanupRoutine()
	return l
}

// Lease is returned by Acquire; the caller must call Release exactly once,
// on every exit path (including error/cancellation paths).
type Lease struct {
	host  string
	state *hostState
	l     *Limiter
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return strings.ToLower(rawURL)
	}
	return strings.ToLower(u.Hostname())
}

func (l *Limiter) getOrCreate(host string) *hostState {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.hosts[host]; ok {
		return s
	}
	s := &hostState{
		delay:    l.cfg.BaseDelay,
		sem:      make(chan struct{}, l.cfg.MaxConcurrent),
		lastSeen: time.Now(),
	}
	l.hosts[host] = s
	l.logger.WithField("host", host).Debug("created rate limiter state for host")
	return s
}

// Acquire takes a concurrency slot (blocking if saturated, honoring ctx),
// then sleeps for the remainder of the current per-host delay, then records
// the request. It returns a Lease whose Release must be deferred by the
// caller immediately.
func (l *Limiter) Acquire(ctx context.Context, hostOrURL string) (*Lease, error) {
	host := hostOf(hostOrURL)
	s := l.getOrCreate(host)

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	s.mu.Lock()
	now := time.Now()
	wait := s.delay - now.Sub(s.lastRequest)
	s.mu.Unlock()

	if wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			<-s.sem
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	s.lastRequest = time.Now()
	s.lastSeen = s.lastRequest
	s.requests++
	s.mu.Unlock()

	return &Lease{host: host, state: s, l: l}, nil
}

// Release returns the concurrency slot. Safe to call exactly once.
func (lease *Lease) Release() {
	<-lease.state.sem
}

// OnResponse feeds an HTTP status and header set back into the limiter
// (spec §4.1 Feedback). Call this once per completed request, in addition
// to Release.
func (l *Limiter) OnResponse(host string, statusCode int, headers http.Header) {
	host = strings.ToLower(host)
	s := l.getOrCreate(host)
	switch {
	case statusCode == 429 || statusCode == 503:
		l.onRateLimited(s, headers)
	case statusCode >= 200 && statusCode < 300:
		l.onSuccess(s)
	}
}

func (l *Limiter) onRateLimited(s *hostState, headers http.Header) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures++
	if retryAfter, ok := parseRetryAfter(headers.Get("Retry-After")); ok {
		if retryAfter > l.cfg.MaxDelay {
			retryAfter = l.cfg.MaxDelay
		}
		s.delay = retryAfter
		return
	}
	next := time.Duration(float64(s.delay) * l.cfg.BackoffMultiplier)
	if next > l.cfg.MaxDelay {
		next = l.cfg.MaxDelay
	}
	s.delay = next
}

func (l *Limiter) onSuccess(s *hostState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = time.Duration(float64(s.delay) * l.cfg.RecoveryFactor)
	if s.delay < l.cfg.BaseDelay {
		s.delay = l.cfg.BaseDelay
	}
	// discard the per-host override once within 10% of base
	if float64(s.delay) <= float64(l.cfg.BaseDelay)*1.10 {
		s.delay = l.cfg.BaseDelay
	}
}

// parseRetryAfter accepts an integer-seconds value or an RFC1123 HTTP-date,
// using araddon/dateparse for the date form instead of hand-rolling RFC1123
// parsing (stdlib http.ParseTime only accepts exact formats).
func parseRetryAfter(v string) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, true
	}
	if t, err := dateparse.ParseAny(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

// Stats reports per-host counters, mirroring the teacher's GetDomainStats.
type Stats struct {
	Requests int64
	Failures int64
	Delay    time.Duration
	LastSeen time.Time
}

func (l *Limiter) Stats(host string) Stats {
	host = strings.ToLower(host)
	l.mu.Lock()
	s, ok := l.hosts[host]
	l.mu.Unlock()
	if !ok {
		return Stats{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Requests: s.requests, Failures: s.failures, Delay: s.delay, LastSeen: s.lastSeen}
}

func (l *Limiter) cleanupRoutine() {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCleanup:
			return
		}
	}
}

func (l *Limiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := time.Now().Add(-l.cfg.CleanupIdleAfter)
	removed := 0
	for host, s := range l.hosts {
		s.mu.Lock()
		lastSeen := s.lastSeen
		s.mu.Unlock()
		if lastSeen.Before(cutoff) {
			delete(l.hosts, host)
			removed++
		}
	}
	if removed > 0 {
		l.logger.WithField("removed_count", removed).Info("cleaned up idle rate limiter state")
	}
}

// Stop terminates the cleanup goroutine.
func (l *Limiter) Stop() {
	close(l.stopCleanup)
}
