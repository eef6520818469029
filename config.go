package commentcard

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eringen/commentcard/quota"
	"github.com/eringen/commentcard/render"
)

// Config holds all configuration for a commentcard server.
type Config struct {
	Name string `yaml:"name" json:"name"` // Site name (default "Comment Card")
	URL  string `yaml:"url" json:"url"`   // Public base URL (default "http://localhost:3000")
	Addr string `yaml:"addr" json:"addr"` // Listen address (default ":3000")

	YouTubeAPIKey     string        `yaml:"youtube_api_key" json:"youtube_api_key"`
	FetchTimeout      time.Duration `yaml:"fetch_timeout" json:"fetch_timeout"` // default 10s
	DailyQuota        int64         `yaml:"daily_quota" json:"daily_quota"`     // default 1000
	RedisURL          string        `yaml:"redis_url" json:"redis_url"`         // selects the Redis counter
	QuotaDatabasePath string        `yaml:"quota_db" json:"quota_db"`           // default "data/quota.db"

	CommentCacheTTL time.Duration `yaml:"comment_cache_ttl" json:"comment_cache_ttl"` // default 10min

	ChromePath         string        `yaml:"chrome_path" json:"chrome_path"`
	BrowserConcurrency int64         `yaml:"browser_concurrency" json:"browser_concurrency"` // default 2
	RenderTimeout      time.Duration `yaml:"render_timeout" json:"render_timeout"`           // default 30s
	RenderRateLimit    int           `yaml:"render_rate_limit" json:"render_rate_limit"`     // per IP per minute, default 60

	AnalyticsDisabled      bool   `yaml:"analytics_disabled" json:"analytics_disabled"`
	AnalyticsDatabasePath  string `yaml:"analytics_db" json:"analytics_db"` // default "data/analytics.db"
	AnalyticsRetentionDays int    `yaml:"analytics_retention_days" json:"analytics_retention_days"`

	SessionSecret string `yaml:"session_secret" json:"session_secret"` // random per process when empty
	CookieSecure  bool   `yaml:"cookie_secure" json:"cookie_secure"`
}

func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = "Comment Card"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 10 * time.Second
	}
	if c.DailyQuota <= 0 {
		c.DailyQuota = quota.DefaultLimit
	}
	if c.QuotaDatabasePath == "" {
		c.QuotaDatabasePath = "data/quota.db"
	}
	if c.CommentCacheTTL == 0 {
		c.CommentCacheTTL = 10 * time.Minute
	}
	if c.BrowserConcurrency <= 0 {
		c.BrowserConcurrency = 2
	}
	if c.RenderTimeout <= 0 {
		c.RenderTimeout = 30 * time.Second
	}
	if c.RenderRateLimit <= 0 {
		c.RenderRateLimit = 60
	}
	if c.AnalyticsDatabasePath == "" {
		c.AnalyticsDatabasePath = "data/analytics.db"
	}
	if c.AnalyticsRetentionDays <= 0 {
		c.AnalyticsRetentionDays = 90
	}
}

// browserOptions derives the browser backend settings.
func (c *Config) browserOptions() render.BrowserOptions {
	return render.BrowserOptions{
		ExecPath:    c.ChromePath,
		Concurrency: c.BrowserConcurrency,
		Timeout:     c.RenderTimeout,
	}
}

// LoadConfigFile reads a YAML or JSON config file. The format follows the
// extension; anything else is tried as YAML then JSON.
func LoadConfigFile(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			if jerr := json.Unmarshal(b, &cfg); jerr != nil {
				return cfg, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return cfg, nil
}

// ApplyEnv overlays every environment variable that is set onto c.
// getenv is os.Getenv outside tests.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	var firstErr error
	note := func(key string, err error) {
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", key, err)
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			note(key, err)
			if err == nil {
				*dst = d
			}
		}
	}
	i64 := func(key string, dst *int64) {
		if v := getenv(key); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			note(key, err)
			if err == nil {
				*dst = n
			}
		}
	}
	boolean := func(key string, dst *bool) {
		if v := getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			note(key, err)
			if err == nil {
				*dst = b
			}
		}
	}

	str("SITE_NAME", &c.Name)
	str("SITE_URL", &c.URL)
	str("ADDR", &c.Addr)
	str("YOUTUBE_API_KEY", &c.YouTubeAPIKey)
	dur("FETCH_TIMEOUT", &c.FetchTimeout)
	i64("DAILY_QUOTA", &c.DailyQuota)
	str("REDIS_URL", &c.RedisURL)
	str("QUOTA_DB", &c.QuotaDatabasePath)
	dur("COMMENT_CACHE_TTL", &c.CommentCacheTTL)
	str("CHROME_PATH", &c.ChromePath)
	i64("BROWSER_CONCURRENCY", &c.BrowserConcurrency)
	dur("RENDER_TIMEOUT", &c.RenderTimeout)
	rate := int64(c.RenderRateLimit)
	i64("RENDER_RATE_LIMIT", &rate)
	c.RenderRateLimit = int(rate)
	str("ANALYTICS_DB", &c.AnalyticsDatabasePath)
	boolean("ANALYTICS_DISABLED", &c.AnalyticsDisabled)
	str("SESSION_SECRET", &c.SessionSecret)
	boolean("COOKIE_SECURE", &c.CookieSecure)
	return firstErr
}

// Option configures additional App behavior.
type Option func(*App)

// WithFetcher replaces the YouTube client, typically with a fake in tests.
func WithFetcher(f CommentFetcher) Option {
	return func(a *App) { a.fetcher = f }
}

// WithCounter replaces the quota counter chosen from configuration.
func WithCounter(c quota.Counter) Option {
	return func(a *App) { a.counter = c }
}

// WithBackends replaces the raster and browser render backends. A nil
// argument keeps the default for that slot.
func WithBackends(raster, browser render.Backend) Option {
	return func(a *App) {
		if raster != nil {
			a.Raster = raster
		}
		if browser != nil {
			a.Browser = browser
		}
	}
}

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App after the built-in routes are set up.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
