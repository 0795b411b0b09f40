// Command jobradar runs one batch of site scans: for each input URL it
// discovers (or re-uses) the company's careers page, extracts current job
// postings, reconciles them against the Persistence Store, and optionally
// writes the resulting job list to disk.
//
// Grounded on the teacher's cmd/server/main.go for the config-load →
// logger-setup → dependency-wiring → run shape, adapted from an HTTP/gRPC
// server bootstrap to a one-shot batch-scan CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"jobradar/internal/atsparsers"
	"jobradar/internal/config"
	"jobradar/internal/discover"
	"jobradar/internal/exporter"
	"jobradar/internal/extract/hybrid"
	"jobradar/internal/fetch/browser"
	httpfetch "jobradar/internal/fetch/http"
	"jobradar/internal/llm"
	"jobradar/internal/llmcache"
	"jobradar/internal/logging"
	"jobradar/internal/pipeline"
	"jobradar/internal/ratelimit"
	"jobradar/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	noBrowser := flag.Bool("no-browser", false, "disable the headless-browser fallback fetcher")
	flag.Parse()

	urls := flag.Args()
	if len(urls) == 0 {
		fmt.Fprintln(os.Stderr, "usage: jobradar [flags] <company-url> [company-url...]")
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "jobradar: load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg)

	p, st, err := buildPipeline(cfg, logger, *noBrowser)
	if err != nil {
		logger.WithError(err).Fatal("jobradar: failed to initialize")
	}
	defer st.Close()

	ctx := context.Background()
	failures := 0
	for _, rawURL := range urls {
		entry := logger.WithField("url", rawURL)

		result, err := p.Scan(ctx, rawURL)
		if err != nil {
			entry.WithError(err).Error("jobradar: scan failed")
			failures++
			continue
		}
		entry.WithField("jobs", len(result.Jobs)).
			WithField("new", len(result.Sync.New)).
			WithField("removed", len(result.Sync.Removed)).
			WithField("reactivated", len(result.Sync.Reactivated)).
			Info("jobradar: scan complete")

		if cfg.Jobs.OutputDir == "" {
			continue
		}
		active, err := st.GetActiveJobs(ctx, result.Site.ID)
		if err != nil {
			entry.WithError(err).Warn("jobradar: failed to load active jobs for export")
			continue
		}
		path, err := exporter.Export(cfg.Jobs.OutputDir, cfg.Jobs.OutputFormat, result.Site.Domain, active, logger)
		if err != nil {
			entry.WithError(err).Warn("jobradar: export failed")
			continue
		}
		entry.WithField("path", path).Info("jobradar: exported job list")
	}

	if failures > 0 {
		os.Exit(1)
	}
}

// buildPipeline wires every C1–C13 component from cfg, matching the
// teacher's dependency-construction order in cmd/server/main.go.
func buildPipeline(cfg *config.Config, logger *logrus.Entry, noBrowser bool) (*pipeline.Pipeline, *store.Store, error) {
	st, err := store.Open(cfg.Jobs.DBPath, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	limiter := ratelimit.New(cfg.RateLimitConfig(), logger)
	httpFetcher := httpfetch.New(limiter, logger)

	var browserMgr *browser.Manager
	if !noBrowser {
		var solver browser.Solver
		if cfg.Scraper.Captcha.APIKey != "" {
			solver = browser.NewTwoCaptchaSolver(cfg.Scraper.Captcha.APIKey, cfg.Scraper.Captcha.Timeout, cfg.Scraper.Captcha.EnableAutoSolve, logger)
		}
		browserMgr = browser.New(cfg.BrowserConfig(), solver, logger)
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opt, perr := redis.ParseURL(cfg.Redis.URL)
		if perr == nil {
			opt.Password = cfg.Redis.Password
			if cfg.Redis.DB != 0 {
				opt.DB = cfg.Redis.DB
			}
			redisClient = redis.NewClient(opt)
		} else {
			logger.WithError(perr).Warn("jobradar: invalid redis url, falling back to in-process LLM cache")
		}
	}
	cache := llmcache.New(redisClient, cfg.LLM.Model, logger)

	provider := llm.Provider{}
	if cfg.OpenRouter.APIKey != "" {
		provider = llm.NewAnthropicProvider(llm.AnthropicOptions{
			APIKey:      cfg.OpenRouter.APIKey,
			Model:       cfg.LLM.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		}, logger)
	}

	var firecrawlFetcher *httpfetch.FirecrawlFetcher
	if cfg.Firecrawl.APIKey != "" {
		firecrawlFetcher, err = httpfetch.NewFirecrawlFetcher(cfg.Firecrawl.APIKey, cfg.Firecrawl.APIURL, logger)
		if err != nil {
			logger.WithError(err).Warn("jobradar: failed to initialize firecrawl fetcher, continuing without it")
			firecrawlFetcher = nil
		}
	}

	registry := atsparsers.NewRegistry()
	hy := hybrid.New(registry, provider, cache, logger)

	head := func(ctx context.Context, rawURL string) (bool, error) {
		return httpFetcher.ProbeDomain(ctx, rawURL)
	}
	get := func(ctx context.Context, rawURL string) ([]byte, int, error) {
		result, err := httpFetcher.Get(ctx, rawURL)
		if err != nil {
			return nil, 0, err
		}
		return result.Body, result.StatusCode, nil
	}
	disc := discover.New(head, get, provider, logger)

	p := pipeline.New(st, httpFetcher, browserMgr, firecrawlFetcher, disc, registry, hy, provider, logger)
	return p, st, nil
}
