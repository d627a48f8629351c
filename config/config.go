// Package config provides configuration loading and management for Inquiry.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mosaicsci/inquiry/model"
)

// Config represents the complete Inquiry configuration
type Config struct {
	Model    ModelConfig    `yaml:"model"`
	NATS     NATSConfig     `yaml:"nats"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Retry    RetryConfig    `yaml:"retry"`
}

// ModelConfig configures role-to-endpoint routing for the model gateway
type ModelConfig struct {
	// Endpoints maps endpoint names to their connection settings
	Endpoints map[string]model.EndpointConfig `yaml:"endpoints"`
	// Roles maps semantic agent roles to preferred/fallback endpoints
	Roles map[string]model.RoleConfig `yaml:"roles"`
	// DefaultFallback is the endpoint used when a role has no fallback
	DefaultFallback string `yaml:"default_fallback"`
	// Timeout is the per-call budget for standard gateway calls
	Timeout time.Duration `yaml:"timeout"`
}

// NATSConfig configures the NATS connection
type NATSConfig struct {
	// URL is the NATS server URL (empty = use embedded server)
	URL string `yaml:"url"`
	// Embedded indicates whether to use embedded NATS
	Embedded bool `yaml:"embedded"`
	// StoreDir is the JetStream storage directory for the embedded server
	StoreDir string `yaml:"store_dir"`
}

// PipelineConfig tunes the multi-agent stage pipelines
type PipelineConfig struct {
	// Pacing is the delay between consecutive section-writer calls
	Pacing time.Duration `yaml:"pacing"`
	// CaptionConcurrency bounds the caption fan-out
	CaptionConcurrency int `yaml:"caption_concurrency"`
	// RecencyWindow is how many recent stages contribute full output to
	// compiled prompt context
	RecencyWindow int `yaml:"recency_window"`
	// CheckpointInterval is how often in-flight projects are persisted
	CheckpointInterval time.Duration `yaml:"checkpoint_interval"`
}

// RetryConfig tunes the standard retry policy for gateway calls
type RetryConfig struct {
	// MaxAttempts is the total attempt budget including the first call
	MaxAttempts int `yaml:"max_attempts"`
	// BaseDelay is the initial backoff duration
	BaseDelay time.Duration `yaml:"base_delay"`
	// MaxDelay caps locally computed backoff
	MaxDelay time.Duration `yaml:"max_delay"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Endpoints:       nil, // Use the built-in registry defaults
			Roles:           nil,
			DefaultFallback: "",
			Timeout:         60 * time.Second,
		},
		NATS: NATSConfig{
			URL:      "",
			Embedded: true,
			StoreDir: "",
		},
		Pipeline: PipelineConfig{
			Pacing:             2 * time.Second,
			CaptionConcurrency: 3,
			RecencyWindow:      2,
			CheckpointInterval: 60 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts: 5,
			BaseDelay:   2 * time.Second,
			MaxDelay:    2 * time.Minute,
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Model.Timeout <= 0 {
		return fmt.Errorf("model.timeout must be positive")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if c.Pipeline.CaptionConcurrency < 1 {
		return fmt.Errorf("pipeline.caption_concurrency must be at least 1")
	}
	for name, ep := range c.Model.Endpoints {
		if ep.Provider == "" {
			return fmt.Errorf("model.endpoints.%s: provider is required", name)
		}
		if ep.Model == "" {
			return fmt.Errorf("model.endpoints.%s: model is required", name)
		}
	}
	for role, rc := range c.Model.Roles {
		if len(rc.Preferred) == 0 {
			return fmt.Errorf("model.roles.%s: at least one preferred endpoint is required", role)
		}
	}
	return nil
}

// BuildRegistry constructs the model registry from configuration, starting
// from built-in defaults and overlaying configured endpoints and roles.
func (c *Config) BuildRegistry() *model.Registry {
	registry := model.NewDefaultRegistry()
	for name, ep := range c.Model.Endpoints {
		registry.SetEndpoint(name, &ep)
	}
	for role, rc := range c.Model.Roles {
		registry.SetRole(model.Role(role), &rc)
	}
	if c.Model.DefaultFallback != "" {
		registry.SetDefault(c.Model.DefaultFallback)
	}
	return registry
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for
// non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Model
	if len(other.Model.Endpoints) > 0 {
		if c.Model.Endpoints == nil {
			c.Model.Endpoints = make(map[string]model.EndpointConfig)
		}
		for name, ep := range other.Model.Endpoints {
			c.Model.Endpoints[name] = ep
		}
	}
	if len(other.Model.Roles) > 0 {
		if c.Model.Roles == nil {
			c.Model.Roles = make(map[string]model.RoleConfig)
		}
		for role, rc := range other.Model.Roles {
			c.Model.Roles[role] = rc
		}
	}
	if other.Model.DefaultFallback != "" {
		c.Model.DefaultFallback = other.Model.DefaultFallback
	}
	if other.Model.Timeout != 0 {
		c.Model.Timeout = other.Model.Timeout
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
		c.NATS.Embedded = false
	}
	if other.NATS.StoreDir != "" {
		c.NATS.StoreDir = other.NATS.StoreDir
	}

	// Pipeline
	if other.Pipeline.Pacing != 0 {
		c.Pipeline.Pacing = other.Pipeline.Pacing
	}
	if other.Pipeline.CaptionConcurrency != 0 {
		c.Pipeline.CaptionConcurrency = other.Pipeline.CaptionConcurrency
	}
	if other.Pipeline.RecencyWindow != 0 {
		c.Pipeline.RecencyWindow = other.Pipeline.RecencyWindow
	}
	if other.Pipeline.CheckpointInterval != 0 {
		c.Pipeline.CheckpointInterval = other.Pipeline.CheckpointInterval
	}

	// Retry
	if other.Retry.MaxAttempts != 0 {
		c.Retry.MaxAttempts = other.Retry.MaxAttempts
	}
	if other.Retry.BaseDelay != 0 {
		c.Retry.BaseDelay = other.Retry.BaseDelay
	}
	if other.Retry.MaxDelay != 0 {
		c.Retry.MaxDelay = other.Retry.MaxDelay
	}
}
