package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"pricewatch/internal/types"
)

// Config holds all configuration for the application
type Config struct {
	LogLevel string       `mapstructure:"log_level"`
	Scrape   ScrapeConfig `mapstructure:"scrape"`
	Search   SearchConfig `mapstructure:"search"`
	Oracle   OracleConfig `mapstructure:"oracle"`
	Cache    CacheConfig  `mapstructure:"cache"`
	Server   ServerConfig `mapstructure:"server"`
	Batch    BatchConfig  `mapstructure:"batch"`
}

// ScrapeConfig holds rendering and fetching settings
type ScrapeConfig struct {
	RequestDelay       time.Duration `mapstructure:"request_delay"`
	MaxRetries         int           `mapstructure:"max_retries"`
	Timeout            time.Duration `mapstructure:"timeout"`
	ConcurrentSessions int           `mapstructure:"concurrent_sessions"`
	Headless           bool          `mapstructure:"headless"`
	UserAgent          string        `mapstructure:"user_agent"`
	MaxBodyBytes       int64         `mapstructure:"max_body_bytes"`
	RespectRobots      bool          `mapstructure:"respect_robots"`
}

// SearchConfig selects and configures the search providers
type SearchConfig struct {
	Providers     []string `mapstructure:"providers"`
	DuckDuckGoURL string   `mapstructure:"duckduckgo_url"`
	GoogleURL     string   `mapstructure:"google_url"`
	SearXNGURL    string   `mapstructure:"searxng_url"`
}

// OracleConfig holds the barcode database endpoints
type OracleConfig struct {
	UPCItemDBURL         string `mapstructure:"upcitemdb_url"`
	OpenFoodFactsURL     string `mapstructure:"openfoodfacts_url"`
	OpenBeautyFactsURL   string `mapstructure:"openbeautyfacts_url"`
	OpenProductsFactsURL string `mapstructure:"openproductsfacts_url"`
}

// CacheConfig holds search-result cache settings
type CacheConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	Environment    string        `mapstructure:"environment"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// BatchConfig holds batch price check settings
type BatchConfig struct {
	Delay time.Duration `mapstructure:"delay"`
}

var knownProviders = map[string]bool{
	"duckduckgo": true,
	"google":     true,
	"searxng":    true,
}

// Load reads configuration from defaults, an optional pricewatch.yaml and
// PRICEWATCH_ environment variables, in increasing priority. A non-empty
// file path must exist.
func Load(file string) (*Config, error) {
	v := viper.New()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("pricewatch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("PRICEWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	config.Search.Providers = splitList(config.Search.Providers)
	for i, p := range config.Search.Providers {
		config.Search.Providers[i] = strings.ToLower(p)
	}
	config.Server.AllowedOrigins = splitList(config.Server.AllowedOrigins)

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	defaults := types.DefaultConfig()

	v.SetDefault("log_level", "info")

	v.SetDefault("scrape.request_delay", defaults.RequestDelay.String())
	v.SetDefault("scrape.max_retries", defaults.MaxRetries)
	v.SetDefault("scrape.timeout", defaults.Timeout.String())
	v.SetDefault("scrape.concurrent_sessions", defaults.MaxConcurrentRequests)
	v.SetDefault("scrape.headless", defaults.UseHeadlessBrowser)
	v.SetDefault("scrape.user_agent", defaults.UserAgent)
	v.SetDefault("scrape.max_body_bytes", defaults.MaxBodyBytes)
	v.SetDefault("scrape.respect_robots", defaults.RespectRobots)

	v.SetDefault("search.providers", []string{"duckduckgo", "google"})
	v.SetDefault("search.duckduckgo_url", "https://duckduckgo.com/")
	v.SetDefault("search.google_url", "https://www.google.com/search")
	v.SetDefault("search.searxng_url", "")

	v.SetDefault("oracle.upcitemdb_url", "https://api.upcitemdb.com")
	v.SetDefault("oracle.openfoodfacts_url", "https://world.openfoodfacts.org")
	v.SetDefault("oracle.openbeautyfacts_url", "https://world.openbeautyfacts.org")
	v.SetDefault("oracle.openproductsfacts_url", "https://world.openproductsfacts.org")

	v.SetDefault("cache.ttl", "6h")
	v.SetDefault("cache.cleanup_interval", "10m")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.request_timeout", "2m")

	v.SetDefault("batch.delay", "2s")
}

func validate(config *Config) error {
	if config.Scrape.Timeout <= 0 {
		return fmt.Errorf("scrape timeout must be positive, got %v", config.Scrape.Timeout)
	}
	if config.Scrape.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative, got %d", config.Scrape.MaxRetries)
	}
	if config.Scrape.ConcurrentSessions < 1 {
		return fmt.Errorf("concurrent sessions must be at least 1, got %d", config.Scrape.ConcurrentSessions)
	}
	if len(config.Search.Providers) == 0 {
		return errors.New("at least one search provider is required")
	}
	for _, p := range config.Search.Providers {
		if !knownProviders[p] {
			return fmt.Errorf("unknown search provider %q", p)
		}
		if p == "searxng" && config.Search.SearXNGURL == "" {
			return errors.New("searxng provider requires search.searxng_url (set PRICEWATCH_SEARCH_SEARXNG_URL)")
		}
	}
	if config.Server.Port == "" {
		return errors.New("server port is required")
	}
	return nil
}

// ScrapeSettings converts the scrape section into the renderer configuration
func (c *Config) ScrapeSettings() *types.Config {
	return &types.Config{
		RequestDelay:          c.Scrape.RequestDelay,
		MaxRetries:            c.Scrape.MaxRetries,
		Timeout:               c.Scrape.Timeout,
		MaxConcurrentRequests: c.Scrape.ConcurrentSessions,
		UseHeadlessBrowser:    c.Scrape.Headless,
		UserAgent:             c.Scrape.UserAgent,
		MaxBodyBytes:          c.Scrape.MaxBodyBytes,
		RespectRobots:         c.Scrape.RespectRobots,
	}
}

// splitList accepts both YAML lists and comma-separated env values
func splitList(values []string) []string {
	out := []string{}
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
