// Package llm provides the text-search client over the external
// text-generation service, plus shared helpers for cleaning its responses.
package llm

import "time"

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for simple tasks: insight synthesis, resource lookups
	TierLite ModelTier = "lite"
	// TierStandard is for moderate reasoning: story search, gap analysis
	TierStandard ModelTier = "standard"
	// TierAdvanced is for complex reasoning: plan generation
	TierAdvanced ModelTier = "advanced"
)

// Config holds the model and retry configuration for the client
type Config struct {
	Models map[ModelTier]string

	// MaxAttempts bounds the retry loop around each search call. 1 means
	// no retries.
	MaxAttempts int
	// RetryBaseDelay is the first backoff interval; it doubles per attempt.
	RetryBaseDelay time.Duration
}

// DefaultConfig returns the default Gemini configuration
func DefaultConfig() *Config {
	return &Config{
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		MaxAttempts:    3,
		RetryBaseDelay: 500 * time.Millisecond,
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}
