// Package config provides configuration loading and validation for the
// transition planner. Values come from an optional JSON file merged with
// environment variables; the environment wins.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds the service configuration. All fields are optional in the
// file; missing values fall back to environment variables and defaults.
type Config struct {
	// Server
	Port        int    `json:"port,omitempty"`         // HTTP listen port
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL; empty selects the in-memory store

	// Search model
	APIKey          string `json:"api_key,omitempty"`           // Gemini API key
	SearchMaxTokens int    `json:"search_max_tokens,omitempty"` // Output-token bound per search call
	MaxAttempts     int    `json:"max_attempts,omitempty"`      // Retry attempts per search call

	// Pipeline behavior
	DefaultDurationWeeks int  `json:"default_duration_weeks,omitempty"` // Milestone duration fallback
	VerifyLinks          bool `json:"verify_links,omitempty"`           // Enable story-link reachability checks
	DayFirstDates        bool `json:"day_first_dates,omitempty"`        // Interpret ambiguous numeric dates day-first
	ScrapeTimeoutSeconds int  `json:"scrape_timeout_seconds,omitempty"` // Bound per detached scrape job
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:                 8080,
		SearchMaxTokens:      8192,
		MaxAttempts:          3,
		DefaultDurationWeeks: 4,
		ScrapeTimeoutSeconds: 300,
	}
}

// LoadConfig loads configuration from a JSON file.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv overlays environment variables on the config. Called after the
// file load so the environment wins.
func (c *Config) FromEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Port = n
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("SEARCH_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.SearchMaxTokens = n
		}
	}
	if v := os.Getenv("VERIFY_LINKS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.VerifyLinks = b
		}
	}
	if v := os.Getenv("DAY_FIRST_DATES"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.DayFirstDates = b
		}
	}
}

// Validate checks that the configuration has usable values.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be in 1-65535, got %d", c.Port)
	}
	if c.SearchMaxTokens < 0 {
		return fmt.Errorf("config error: 'search_max_tokens' must be non-negative")
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("config error: 'max_attempts' must be non-negative")
	}
	if c.DefaultDurationWeeks < 0 {
		return fmt.Errorf("config error: 'default_duration_weeks' must be non-negative")
	}
	return nil
}

// MergeWithDefaults fills zero-valued fields from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.SearchMaxTokens == 0 {
		result.SearchMaxTokens = defaults.SearchMaxTokens
	}
	if result.MaxAttempts == 0 {
		result.MaxAttempts = defaults.MaxAttempts
	}
	if result.DefaultDurationWeeks == 0 {
		result.DefaultDurationWeeks = defaults.DefaultDurationWeeks
	}
	if result.ScrapeTimeoutSeconds == 0 {
		result.ScrapeTimeoutSeconds = defaults.ScrapeTimeoutSeconds
	}

	// Bool fields cannot distinguish unset from false, so they don't merge.

	return result
}
