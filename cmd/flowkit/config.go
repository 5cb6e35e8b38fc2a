package main

import (
	"fmt"

	"github.com/kbukum/flowkit/config"
	"github.com/kbukum/flowkit/llm"
	"github.com/kbukum/flowkit/observability"
	"github.com/kbukum/flowkit/server"
)

const serviceName = "flowkit"

// AppConfig is the flowkit binary configuration.
type AppConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server  server.Config              `yaml:"server" mapstructure:"server"`
	LLM     llm.Config                 `yaml:"llm" mapstructure:"llm"`
	Tracing observability.TracerConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics observability.MeterConfig  `yaml:"metrics" mapstructure:"metrics"`
	Flows   FlowsConfig                `yaml:"flows" mapstructure:"flows"`
}

// FlowsConfig controls where definitions come from and run limits.
type FlowsConfig struct {
	// Dirs are searched for *.yaml and *.yml definitions by serve.
	Dirs []string `yaml:"dirs" mapstructure:"dirs"`
	// MaxSteps applies to definitions that do not set their own limit.
	MaxSteps int `yaml:"max_steps" mapstructure:"max_steps"`
}

// ApplyDefaults fills unset values.
func (c *AppConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	if c.LLM.Model != "" {
		c.LLM.ApplyDefaults()
	}

	tracing := observability.DefaultTracerConfig(c.Name)
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = tracing.ServiceName
	}
	if c.Tracing.Endpoint == "" {
		c.Tracing.Endpoint = tracing.Endpoint
	}
	if c.Tracing.SampleRate == 0 {
		c.Tracing.SampleRate = tracing.SampleRate
	}
	metrics := observability.DefaultMeterConfig(c.Name)
	if c.Metrics.ServiceName == "" {
		c.Metrics.ServiceName = metrics.ServiceName
	}
	if c.Metrics.Endpoint == "" {
		c.Metrics.Endpoint = metrics.Endpoint
	}
	if c.Metrics.Interval == 0 {
		c.Metrics.Interval = metrics.Interval
	}
	c.Tracing.ServiceVersion, c.Metrics.ServiceVersion = c.Version, c.Version
	c.Tracing.Environment, c.Metrics.Environment = c.Environment, c.Environment

	if len(c.Flows.Dirs) == 0 {
		c.Flows.Dirs = []string{"./flows"}
	}
}

// Validate checks the configuration.
func (c *AppConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if c.LLM.Model != "" {
		if err := c.LLM.Validate(); err != nil {
			return fmt.Errorf("config.llm: %w", err)
		}
	}
	if c.Flows.MaxSteps < 0 {
		return fmt.Errorf("config.flows.max_steps must be non-negative (got: %d)", c.Flows.MaxSteps)
	}
	return nil
}

// loadConfig reads configuration from file, .env and FLOWKIT_* variables.
// A non-empty logLevel overrides the configured one.
func loadConfig(path, logLevel string) (*AppConfig, error) {
	var opts []config.LoaderOption
	if path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}
	cfg := &AppConfig{}
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
