package server

import (
	"fmt"

	"github.com/kbukum/flowkit/resilience"
)

// Config holds HTTP server configuration.
type Config struct {
	Host         string                   `yaml:"host" mapstructure:"host"`
	Port         int                      `yaml:"port" mapstructure:"port"`
	ReadTimeout  int                      `yaml:"read_timeout" mapstructure:"read_timeout"`   // seconds
	WriteTimeout int                      `yaml:"write_timeout" mapstructure:"write_timeout"` // seconds
	IdleTimeout  int                      `yaml:"idle_timeout" mapstructure:"idle_timeout"`   // seconds
	MaxBodySize  string                   `yaml:"max_body_size" mapstructure:"max_body_size"` // e.g. "1MB"
	RateLimit    resilience.LimiterConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	// MaxRuns is how many finished runs the in-memory store keeps.
	MaxRuns int `yaml:"max_runs" mapstructure:"max_runs"`
}

// ApplyDefaults sets sensible default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 15
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 120
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "1MB"
	}
	if c.MaxRuns == 0 {
		c.MaxRuns = 1000
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535 (got: %d)", c.Port)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("server.read_timeout must be non-negative (got: %d)", c.ReadTimeout)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("server.write_timeout must be non-negative (got: %d)", c.WriteTimeout)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("server.idle_timeout must be non-negative (got: %d)", c.IdleTimeout)
	}
	if c.MaxRuns < 0 {
		return fmt.Errorf("server.max_runs must be non-negative (got: %d)", c.MaxRuns)
	}
	return nil
}
