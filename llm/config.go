package llm

import (
	"time"

	"github.com/kbukum/flowkit/resilience"
	"github.com/kbukum/flowkit/validation"
)

// Config holds the settings for an OpenAI-compatible client.
type Config struct {
	// APIKey is sent as a Bearer token. Local servers usually accept any value.
	APIKey string `yaml:"api_key" json:"-" mapstructure:"api_key"`

	// BaseURL overrides the API endpoint (e.g., "http://localhost:11434/v1").
	BaseURL string `yaml:"base_url" json:"base_url" mapstructure:"base_url" validate:"omitempty,url"`

	// Model is the default model (e.g., "gpt-4o-mini").
	Model string `yaml:"model" json:"model" mapstructure:"model" validate:"required"`

	// Temperature is the default sampling temperature.
	Temperature float64 `yaml:"temperature" json:"temperature" mapstructure:"temperature" validate:"gte=0,max=2"`

	// MaxTokens is the default response limit. 0 means provider default.
	MaxTokens int `yaml:"max_tokens" json:"max_tokens" mapstructure:"max_tokens" validate:"gte=0"`

	// Timeout for a single HTTP request. Defaults to 120s.
	Timeout time.Duration `yaml:"timeout" json:"timeout" mapstructure:"timeout"`

	// Retry applies to prompt units built from this config.
	Retry resilience.RetryConfig `yaml:"retry" json:"retry" mapstructure:"retry"`

	// RateLimit throttles calls made by prompt units sharing this config.
	RateLimit resilience.LimiterConfig `yaml:"rate_limit" json:"rate_limit" mapstructure:"rate_limit"`

	// CircuitBreaker stops prompt units from calling a failing endpoint.
	// Zero max_failures disables it.
	CircuitBreaker resilience.BreakerConfig `yaml:"circuit_breaker" json:"circuit_breaker" mapstructure:"circuit_breaker"`
}

// ApplyDefaults sets default values for unset config fields.
func (c *Config) ApplyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 120 * time.Second
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry = resilience.DefaultRetryConfig()
	}
}

// Validate checks the config.
func (c *Config) Validate() error {
	return validation.Validate(c)
}
