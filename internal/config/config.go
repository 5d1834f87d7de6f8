// Copyright 2025 Agentic World, LLC (Sherin Thomas)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads scout settings from scout.yaml, SCOUT_* environment
// variables and command line flags, in increasing order of precedence.
package config

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agentberlin/scout"
	"github.com/agentberlin/scout/internal/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. SCOUT_CRAWL_MAX_PAGES
const EnvPrefix = "SCOUT"

// Config is the complete application configuration
type Config struct {
	Crawl      CrawlConfig      `mapstructure:"crawl"`
	Filter     FilterConfig     `mapstructure:"filter"`
	Politeness PolitenessConfig `mapstructure:"politeness"`
	Report     ReportConfig     `mapstructure:"report"`
	Logging    logging.Config   `mapstructure:"logging"`
	Store      StoreConfig      `mapstructure:"store"`

	configFileUsed string
}

// CrawlConfig configures the fetch loop
type CrawlConfig struct {
	Parallelism       int           `mapstructure:"parallelism"`
	MaxPages          int           `mapstructure:"max_pages"`
	MaxBodySize       int           `mapstructure:"max_body_size"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Delay             time.Duration `mapstructure:"delay"`
	UseSitemaps       bool          `mapstructure:"use_sitemaps"`
	TraceHTTP         bool          `mapstructure:"trace_http"`
}

// FilterConfig configures URL admission and page classification
type FilterConfig struct {
	AllowedDomains      []string `mapstructure:"allowed_domains"`
	SubdomainPattern    string   `mapstructure:"subdomain_pattern"`
	ExcludedExtensions  []string `mapstructure:"excluded_extensions"`
	LowValuePaths       []string `mapstructure:"low_value_paths"`
	MaxURLLength        int      `mapstructure:"max_url_length"`
	MinWords            int      `mapstructure:"min_words"`
	MaxWords            int      `mapstructure:"max_words"`
	SimilarityThreshold float64  `mapstructure:"similarity_threshold"`
	TrapWindow          int      `mapstructure:"trap_window"`
	ShingleSize         int      `mapstructure:"shingle_size"`
	SampleModulus       uint64   `mapstructure:"sample_modulus"`
	DetectCharset       bool     `mapstructure:"detect_charset"`
}

// PolitenessConfig configures robots.txt handling
type PolitenessConfig struct {
	UserAgent       string        `mapstructure:"user_agent"`
	Timeout         time.Duration `mapstructure:"timeout"`
	IgnoreRobotsTxt bool          `mapstructure:"ignore_robots_txt"`
}

// ReportConfig configures the end-of-crawl report
type ReportConfig struct {
	Dir             string `mapstructure:"dir"`
	Format          string `mapstructure:"format"`
	TopWords        int    `mapstructure:"top_words"`
	LegacyWordOrder bool   `mapstructure:"legacy_word_order"`
}

// StoreConfig configures report persistence
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// flagKeys maps command line flag names to configuration keys
var flagKeys = map[string]string{
	"parallelism":   "crawl.parallelism",
	"max-pages":     "crawl.max_pages",
	"rate":          "crawl.requests_per_second",
	"delay":         "crawl.delay",
	"sitemaps":      "crawl.use_sitemaps",
	"trace":         "crawl.trace_http",
	"domain":        "filter.allowed_domains",
	"min-words":     "filter.min_words",
	"max-words":     "filter.max_words",
	"threshold":     "filter.similarity_threshold",
	"window":        "filter.trap_window",
	"user-agent":    "politeness.user_agent",
	"ignore-robots": "politeness.ignore_robots_txt",
	"report-dir":    "report.dir",
	"format":        "report.format",
	"top-words":     "report.top_words",
	"legacy-order":  "report.legacy_word_order",
	"log-level":     "logging.level",
	"log-dir":       "logging.dir",
	"store":         "store.enabled",
	"store-dir":     "store.dir",
}

// Load reads the configuration. An empty path searches scout.yaml in ".",
// "./configs" and "$HOME/.scout"; a missing file means defaults. Flags that
// were set on the command line override file and environment values.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if path != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("specified config file does not exist: %s", path)
		}
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("scout")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".scout"))
		}
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		configFileUsed = v.ConfigFileUsed()
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.configFileUsed = configFileUsed

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// setDefaults mirrors scout.NewDefaultConfig so a config file only needs
// the values it changes
func setDefaults(v *viper.Viper) {
	core := scout.NewDefaultConfig()

	v.SetDefault("crawl.parallelism", 4)
	v.SetDefault("crawl.max_pages", 0)
	v.SetDefault("crawl.max_body_size", scout.DefaultMaxBodySize)
	v.SetDefault("crawl.request_timeout", "30s")
	v.SetDefault("crawl.requests_per_second", 0.0)
	v.SetDefault("crawl.delay", "500ms")
	v.SetDefault("crawl.use_sitemaps", false)
	v.SetDefault("crawl.trace_http", false)

	v.SetDefault("filter.allowed_domains", core.AllowedDomains)
	v.SetDefault("filter.subdomain_pattern", core.SubdomainPattern)
	v.SetDefault("filter.excluded_extensions", core.ExcludedExtensions)
	v.SetDefault("filter.low_value_paths", core.LowValuePathPatterns)
	v.SetDefault("filter.max_url_length", core.MaxURLLength)
	v.SetDefault("filter.min_words", core.MinWords)
	v.SetDefault("filter.max_words", core.MaxWords)
	v.SetDefault("filter.similarity_threshold", core.SimilarityThreshold)
	v.SetDefault("filter.trap_window", core.TrapWindow)
	v.SetDefault("filter.shingle_size", core.ShingleSize)
	v.SetDefault("filter.sample_modulus", core.SampleModulus)
	v.SetDefault("filter.detect_charset", core.DetectCharset)

	v.SetDefault("politeness.user_agent", core.UserAgent)
	v.SetDefault("politeness.timeout", core.PolicyTimeout.String())
	v.SetDefault("politeness.ignore_robots_txt", false)

	v.SetDefault("report.dir", ".")
	v.SetDefault("report.format", "text")
	v.SetDefault("report.top_words", core.TopWords)
	v.SetDefault("report.legacy_word_order", false)

	logDefaults := logging.DefaultConfig()
	v.SetDefault("logging.level", logDefaults.Level)
	v.SetDefault("logging.dir", "")
	v.SetDefault("logging.max_size", logDefaults.MaxSize)
	v.SetDefault("logging.max_backups", logDefaults.MaxBackups)
	v.SetDefault("logging.max_age", logDefaults.MaxAge)
	v.SetDefault("logging.compress", logDefaults.Compress)
	v.SetDefault("logging.json", false)
	v.SetDefault("logging.no_color", false)

	v.SetDefault("store.enabled", true)
	v.SetDefault("store.dir", "")
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.Crawl.Parallelism < 1 {
		return fmt.Errorf("crawl.parallelism must be at least 1, got %d", c.Crawl.Parallelism)
	}
	if c.Crawl.MaxPages < 0 {
		return fmt.Errorf("crawl.max_pages must not be negative, got %d", c.Crawl.MaxPages)
	}
	if c.Filter.MinWords < 0 || c.Filter.MaxWords < c.Filter.MinWords {
		return fmt.Errorf("filter word bounds invalid: min %d, max %d", c.Filter.MinWords, c.Filter.MaxWords)
	}
	if c.Filter.SimilarityThreshold <= 0 || c.Filter.SimilarityThreshold > 1 {
		return fmt.Errorf("filter.similarity_threshold must be in (0, 1], got %v", c.Filter.SimilarityThreshold)
	}
	if c.Filter.TrapWindow < 1 {
		return fmt.Errorf("filter.trap_window must be at least 1, got %d", c.Filter.TrapWindow)
	}
	if c.Filter.ShingleSize < 1 {
		return fmt.Errorf("filter.shingle_size must be at least 1, got %d", c.Filter.ShingleSize)
	}
	if c.Filter.MaxURLLength < 0 {
		return fmt.Errorf("filter.max_url_length must not be negative, got %d", c.Filter.MaxURLLength)
	}
	if c.Filter.SampleModulus < 1 {
		return fmt.Errorf("filter.sample_modulus must be at least 1, got %d", c.Filter.SampleModulus)
	}
	switch c.Report.Format {
	case "text", "markdown":
	default:
		return fmt.Errorf("report.format must be text or markdown, got %q", c.Report.Format)
	}
	return nil
}

// ConfigFileUsed returns the path of the loaded config file, or "" if none
func (c *Config) ConfigFileUsed() string {
	return c.configFileUsed
}

// Core builds the session configuration
func (c *Config) Core(logger *zerolog.Logger, client *http.Client) *scout.Config {
	return &scout.Config{
		AllowedDomains:       c.Filter.AllowedDomains,
		SubdomainPattern:     c.Filter.SubdomainPattern,
		ExcludedExtensions:   c.Filter.ExcludedExtensions,
		LowValuePathPatterns: c.Filter.LowValuePaths,
		MaxURLLength:         c.Filter.MaxURLLength,
		MinWords:             c.Filter.MinWords,
		MaxWords:             c.Filter.MaxWords,
		SimilarityThreshold:  c.Filter.SimilarityThreshold,
		TrapWindow:           c.Filter.TrapWindow,
		ShingleSize:          c.Filter.ShingleSize,
		SampleModulus:        c.Filter.SampleModulus,
		UserAgent:            c.Politeness.UserAgent,
		PolicyTimeout:        c.Politeness.Timeout,
		IgnoreRobotsTxt:      c.Politeness.IgnoreRobotsTxt,
		DetectCharset:        c.Filter.DetectCharset,
		TopWords:             c.Report.TopWords,
		LegacyWordOrder:      c.Report.LegacyWordOrder,
		HTTPClient:           client,
		Logger:               logger,
	}
}

// Crawler builds the driver configuration. Delay and rate limits apply to
// every host through a single catch-all LimitRule.
func (c *Config) Crawler() *scout.CrawlerConfig {
	cc := &scout.CrawlerConfig{
		Parallelism:    c.Crawl.Parallelism,
		MaxPages:       c.Crawl.MaxPages,
		MaxBodySize:    c.Crawl.MaxBodySize,
		RequestTimeout: c.Crawl.RequestTimeout,
		UseSitemaps:    c.Crawl.UseSitemaps,
		TraceHTTP:      c.Crawl.TraceHTTP,
	}
	if c.Crawl.Delay > 0 || c.Crawl.RequestsPerSecond > 0 {
		cc.LimitRules = []*scout.LimitRule{{
			DomainGlob:        "*",
			Parallelism:       c.Crawl.Parallelism,
			Delay:             c.Crawl.Delay,
			RequestsPerSecond: c.Crawl.RequestsPerSecond,
		}}
	}
	return cc
}
