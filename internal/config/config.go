// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Site       SiteConfig       `mapstructure:"site"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Headless   HeadlessConfig   `mapstructure:"headless"`
	Extract    ExtractConfig    `mapstructure:"extract"`
	CatalogAPI CatalogAPIConfig `mapstructure:"catalog_api"`
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// SiteConfig describes the retail site under validation.
type SiteConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// SearchPath carries one %s slot for the escaped query.
	SearchPath    string   `mapstructure:"search_path"`
	ProductTokens []string `mapstructure:"product_tokens"`
	// DelayMS is the politeness pause between identifiers.
	DelayMS int `mapstructure:"delay_ms"`
}

// HTTPConfig tunes the static fetcher.
type HTTPConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// HeadlessConfig configures the headless rendering fallback.
type HeadlessConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	MaxParallel   int    `mapstructure:"max_parallel"`
	NavTimeoutSec int    `mapstructure:"nav_timeout_seconds"`
	WaitSelector  string `mapstructure:"wait_selector"`
	WaitTimeout   int    `mapstructure:"wait_timeout_seconds"`
}

// ExtractConfig orders the taxonomy strategies and the DOM selector list.
type ExtractConfig struct {
	Strategies   []string `mapstructure:"strategies"`
	DOMSelectors []string `mapstructure:"dom_selectors"`
}

// CatalogAPIConfig points at the optional public catalog lookup API.
type CatalogAPIConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	BaseURL        string   `mapstructure:"base_url"`
	Path           string   `mapstructure:"path"`
	Params         []string `mapstructure:"params"`
	APIKey         string   `mapstructure:"api_key"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	MaxBatchSize   int `mapstructure:"max_batch_size"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("site.base_url", "https://www.lider.cl")
	v.SetDefault("site.search_path", "/busca?Ntt=%s")
	v.SetDefault("site.product_tokens", []string{"-p", "/p/"})
	v.SetDefault("site.delay_ms", 1500)
	v.SetDefault("http.timeout_seconds", 25)
	v.SetDefault("headless.enabled", true)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 35)
	v.SetDefault("headless.wait_selector", `nav[aria-label="breadcrumb"]`)
	v.SetDefault("headless.wait_timeout_seconds", 8)
	v.SetDefault("extract.strategies", []string{
		"jsonld_breadcrumb", "jsonld_product", "microdata", "datalayer", "dom",
	})
	v.SetDefault("catalog_api.enabled", false)
	v.SetDefault("catalog_api.path", "/api/catalog/product")
	v.SetDefault("catalog_api.params", []string{"partNumber", "sku", "ean"})
	v.SetDefault("catalog_api.timeout_seconds", 15)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout_seconds", 60)
	v.SetDefault("server.max_batch_size", 500)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Site.BaseURL == "" {
		return fmt.Errorf("site.base_url must be set")
	}
	if !strings.Contains(c.Site.SearchPath, "%s") {
		return fmt.Errorf("site.search_path must carry one %%s query slot")
	}
	if c.Site.DelayMS < 0 {
		return fmt.Errorf("site.delay_ms must be >= 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.CatalogAPI.Enabled && c.CatalogAPI.BaseURL == "" {
		return fmt.Errorf("catalog_api.base_url must be set when catalog_api is enabled")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// Delay converts the politeness pause into a duration.
func (c Config) Delay() time.Duration {
	return time.Duration(c.Site.DelayMS) * time.Millisecond
}

// HTTPTimeout converts the fetch timeout into a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}
