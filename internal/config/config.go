package config

import (
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"jobradar/internal/fetch/browser"
	"jobradar/internal/ratelimit"
)

// Config represents the application configuration, loaded from an optional
// YAML file and overlaid with environment variables (spec.md §6
// Environment), following the teacher's godotenv+yaml+env-override layering.
type Config struct {
	Jobs struct {
		DBPath         string `yaml:"db_path" default:"./data/jobs.db"`
		DefaultLocation string `yaml:"default_location"`
		DefaultKeywords string `yaml:"default_keywords"`
		OutputFormat   string `yaml:"output_format" default:"json"`
		OutputDir      string `yaml:"output_dir" default:"./output"`
	} `yaml:"jobs"`

	OpenRouter struct {
		APIKey            string `yaml:"api_key"`
		Provider          string `yaml:"provider"`
		ProviderOrder     string `yaml:"provider_order"`
		AllowFallbacks    bool   `yaml:"allow_fallbacks" default:"true"`
		RequireParameters bool   `yaml:"require_parameters"`
	} `yaml:"openrouter"`

	LLM struct {
		Model       string        `yaml:"model" default:"claude-3-7-sonnet-latest"`
		MaxTokens   int64         `yaml:"max_tokens" default:"8192"`
		Temperature float64       `yaml:"temperature" default:"0.1"`
		Timeout     time.Duration `yaml:"timeout" default:"60s"`
	} `yaml:"llm"`

	RateLimit struct {
		BaseDelay         time.Duration `yaml:"base_delay" default:"500ms"`
		MaxConcurrent     int           `yaml:"max_concurrent" default:"2"`
		MaxDelay          time.Duration `yaml:"max_delay" default:"30s"`
		BackoffMultiplier float64       `yaml:"backoff_multiplier" default:"2.0"`
		RecoveryFactor    float64       `yaml:"recovery_factor" default:"0.9"`
		CleanupInterval   time.Duration `yaml:"cleanup_interval" default:"5m"`
		CleanupIdleAfter  time.Duration `yaml:"cleanup_idle_after" default:"10m"`
	} `yaml:"rate_limit"`

	Scraper struct {
		UserAgent      string        `yaml:"user_agent"`
		RequestTimeout time.Duration `yaml:"request_timeout" default:"30s"`
		HeadlessMode   bool          `yaml:"headless_mode" default:"true"`
		PoolSize       int           `yaml:"pool_size" default:"4"`
		Captcha        struct {
			APIKey          string        `yaml:"api_key"`
			Timeout         time.Duration `yaml:"timeout" default:"120s"`
			EnableAutoSolve bool          `yaml:"enable_auto_solve" default:"true"`
		} `yaml:"captcha"`
	} `yaml:"scraper"`

	Redis struct {
		URL      string        `yaml:"url" default:"redis://localhost:6379"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db" default:"0"`
		Timeout  time.Duration `yaml:"timeout" default:"5s"`
	} `yaml:"redis"`

	Firecrawl struct {
		APIKey string `yaml:"api_key"`
		APIURL string `yaml:"api_url"`
	} `yaml:"firecrawl"`

	Logging struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`

		Adapters []struct {
			Name    string                 `yaml:"name"`
			Type    string                 `yaml:"type"`
			Enabled bool                   `yaml:"enabled"`
			Options map[string]interface{} `yaml:"options"`
		} `yaml:"adapters"`
	} `yaml:"logging"`
}

// expandEnvVars expands environment variables in a string using ${VAR} or $VAR syntax.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	s = re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	re2 := regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
	s = re2.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[1:]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	return s
}

// LoadConfig loads configuration from an optional YAML file and environment
// variables, per spec.md §6.
func LoadConfig(configPath string) (*Config, error) {
	_ = godotenv.Load()

	config := &Config{}

	config.Jobs.DBPath = "./data/jobs.db"
	config.Jobs.OutputFormat = "json"
	config.Jobs.OutputDir = "./output"

	config.OpenRouter.AllowFallbacks = true

	config.LLM.Model = "claude-3-7-sonnet-latest"
	config.LLM.MaxTokens = 8192
	config.LLM.Temperature = 0.1
	config.LLM.Timeout = 60 * time.Second

	rl := ratelimit.DefaultConfig()
	config.RateLimit.BaseDelay = rl.BaseDelay
	config.RateLimit.MaxConcurrent = rl.MaxConcurrent
	config.RateLimit.MaxDelay = rl.MaxDelay
	config.RateLimit.BackoffMultiplier = rl.BackoffMultiplier
	config.RateLimit.RecoveryFactor = rl.RecoveryFactor
	config.RateLimit.CleanupInterval = rl.CleanupInterval
	config.RateLimit.CleanupIdleAfter = rl.CleanupIdleAfter

	bc := browser.DefaultConfig()
	config.Scraper.HeadlessMode = bc.Headless
	config.Scraper.PoolSize = bc.PoolSize
	config.Scraper.RequestTimeout = 30 * time.Second
	config.Scraper.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	config.Scraper.Captcha.Timeout = 120 * time.Second
	config.Scraper.Captcha.EnableAutoSolve = true

	config.Redis.URL = "redis://localhost:6379"
	config.Redis.DB = 0
	config.Redis.Timeout = 5 * time.Second

	config.Logging.Level = "info"
	config.Logging.Format = "json"
	config.Logging.Output = "stdout"

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			yamlContent := expandEnvVars(string(data))
			if err := yaml.Unmarshal([]byte(yamlContent), config); err != nil {
				return nil, err
			}
		}
	}

	config.loadFromEnv()

	return config, nil
}

// RateLimitConfig maps the loaded settings onto internal/ratelimit.Config.
func (c *Config) RateLimitConfig() ratelimit.Config {
	return ratelimit.Config{
		BaseDelay:         c.RateLimit.BaseDelay,
		MaxConcurrent:     c.RateLimit.MaxConcurrent,
		MaxDelay:          c.RateLimit.MaxDelay,
		BackoffMultiplier: c.RateLimit.BackoffMultiplier,
		RecoveryFactor:    c.RateLimit.RecoveryFactor,
		CleanupInterval:   c.RateLimit.CleanupInterval,
		CleanupIdleAfter:  c.RateLimit.CleanupIdleAfter,
	}
}

// BrowserConfig maps the loaded settings onto internal/fetch/browser.Config.
func (c *Config) BrowserConfig() browser.Config {
	cfg := browser.DefaultConfig()
	cfg.Headless = c.Scraper.HeadlessMode
	if c.Scraper.PoolSize > 0 {
		cfg.PoolSize = c.Scraper.PoolSize
	}
	if c.Scraper.UserAgent != "" {
		cfg.UserAgent = c.Scraper.UserAgent
	}
	return cfg
}

// loadFromEnv loads configuration from environment variables, overriding
// whatever the YAML file (or the defaults above) set.
func (c *Config) loadFromEnv() {
	if dbPath := os.Getenv("JOBS_DB_PATH"); dbPath != "" {
		c.Jobs.DBPath = dbPath
	}

	if location := os.Getenv("default_location"); location != "" {
		c.Jobs.DefaultLocation = location
	}
	if keywords := os.Getenv("default_keywords"); keywords != "" {
		c.Jobs.DefaultKeywords = keywords
	}
	if format := os.Getenv("output_format"); format != "" {
		c.Jobs.OutputFormat = format
	}
	if dir := os.Getenv("output_dir"); dir != "" {
		c.Jobs.OutputDir = dir
	}

	if apiKey := os.Getenv("openrouter_api_key"); apiKey != "" {
		c.OpenRouter.APIKey = apiKey
	}
	if provider := os.Getenv("openrouter_provider"); provider != "" {
		c.OpenRouter.Provider = provider
	}
	if order := os.Getenv("openrouter_provider_order"); order != "" {
		c.OpenRouter.ProviderOrder = order
	}
	if allow := os.Getenv("openrouter_allow_fallbacks"); allow != "" {
		c.OpenRouter.AllowFallbacks = allow == "true" || allow == "1"
	}
	if require := os.Getenv("openrouter_require_parameters"); require != "" {
		c.OpenRouter.RequireParameters = require == "true" || require == "1"
	}

	// The Anthropic provider falls back to openrouter_api_key/provider when
	// a dedicated LLM_API_KEY isn't set, since spec.md's environment block
	// names only the openrouter_* variables.
	if apiKey := os.Getenv("LLM_API_KEY"); apiKey != "" {
		c.OpenRouter.APIKey = apiKey
	}
	if model := os.Getenv("LLM_MODEL"); model != "" {
		c.LLM.Model = model
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFormat := os.Getenv("LOG_FORMAT"); logFormat != "" {
		c.Logging.Format = logFormat
	}

	if captchaAPIKey := os.Getenv("CAPTCHA_API_KEY"); captchaAPIKey != "" {
		c.Scraper.Captcha.APIKey = captchaAPIKey
	}
	if captchaAPIKey := os.Getenv("2CAPTCHA_API_KEY"); captchaAPIKey != "" {
		c.Scraper.Captcha.APIKey = captchaAPIKey
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.URL = redisURL
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		c.Redis.Password = redisPassword
	}
	if redisDB := os.Getenv("REDIS_DB"); redisDB != "" {
		if db, err := strconv.Atoi(redisDB); err == nil {
			c.Redis.DB = db
		}
	}
	if redisTimeout := os.Getenv("REDIS_TIMEOUT"); redisTimeout != "" {
		if timeout, err := time.ParseDuration(redisTimeout); err == nil {
			c.Redis.Timeout = timeout
		}
	}

	if firecrawlKey := os.Getenv("FIRECRAWL_API_KEY"); firecrawlKey != "" {
		c.Firecrawl.APIKey = firecrawlKey
	}
	if firecrawlURL := os.Getenv("FIRECRAWL_API_URL"); firecrawlURL != "" {
		c.Firecrawl.APIURL = firecrawlURL
	}

	if poolSize := os.Getenv("BROWSER_POOL_SIZE"); poolSize != "" {
		if size, err := strconv.Atoi(poolSize); err == nil {
			c.Scraper.PoolSize = size
		}
	}
	if headless := os.Getenv("BROWSER_HEADLESS"); headless != "" {
		c.Scraper.HeadlessMode = headless == "true" || headless == "1"
	}

	// Handle the Betterstack adapter's enabled flag and its options, kept
	// from the teacher's logging configuration layer.
	if betterstackEnabled := os.Getenv("BETTERSTACK_ENABLED"); betterstackEnabled != "" {
		enabled := betterstackEnabled == "true" || betterstackEnabled == "1"
		for i := range c.Logging.Adapters {
			if c.Logging.Adapters[i].Name == "betterstack" || c.Logging.Adapters[i].Type == "betterstack" {
				c.Logging.Adapters[i].Enabled = enabled
				break
			}
		}
	}
	c.loadLoggingAdapterEnvVars()
}

// loadLoggingAdapterEnvVars loads environment variables for logging adapters.
func (c *Config) loadLoggingAdapterEnvVars() {
	for i := range c.Logging.Adapters {
		adapter := &c.Logging.Adapters[i]

		if adapter.Type != "betterstack" {
			continue
		}

		setOption := func(key, val string) {
			if val == "" {
				return
			}
			if adapter.Options == nil {
				adapter.Options = make(map[string]interface{})
			}
			adapter.Options[key] = val
		}

		setOption("source_token", os.Getenv("BETTERSTACK_SOURCE_TOKEN"))
		setOption("endpoint", os.Getenv("BETTERSTACK_ENDPOINT"))
		setOption("flush_interval", os.Getenv("BETTERSTACK_FLUSH_INTERVAL"))
		setOption("timeout", os.Getenv("BETTERSTACK_TIMEOUT"))
		setOption("user_agent", os.Getenv("BETTERSTACK_USER_AGENT"))

		if batchSize := os.Getenv("BETTERSTACK_BATCH_SIZE"); batchSize != "" {
			if size, err := strconv.Atoi(batchSize); err == nil {
				if adapter.Options == nil {
					adapter.Options = make(map[string]interface{})
				}
				adapter.Options["batch_size"] = size
			}
		}
		if maxRetries := os.Getenv("BETTERSTACK_MAX_RETRIES"); maxRetries != "" {
			if retries, err := strconv.Atoi(maxRetries); err == nil {
				if adapter.Options == nil {
					adapter.Options = make(map[string]interface{})
				}
				adapter.Options["max_retries"] = retries
			}
		}
	}
}
