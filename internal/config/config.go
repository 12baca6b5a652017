// Package config owns the typed pipeline configuration and its hot-reload
// watcher.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the validated pipeline configuration.
type Config struct {
	Version string `yaml:"version"`

	Consensus struct {
		Threshold float64 `yaml:"threshold"`
		MinAgents int     `yaml:"min_agents"`
		MaxAgents int     `yaml:"max_agents"`
	} `yaml:"consensus"`

	Agents struct {
		Overrides    map[string]string  `yaml:"overrides,omitempty"` // stage -> agent
		Models       map[string]string  `yaml:"models,omitempty"`    // agent -> model
		Temperatures map[string]float64 `yaml:"temperatures,omitempty"`
	} `yaml:"agents"`

	Pipeline struct {
		QualityGates         bool   `yaml:"quality_gates"`
		CaptureMode          string `yaml:"capture_mode"` // none, prompts_only, full_io
		StageTimeoutSeconds  int    `yaml:"stage_timeout_seconds"`
		DegradedAfterRetries bool   `yaml:"degraded_after_retries"`
	} `yaml:"pipeline"`

	Ace struct {
		Enabled          bool    `yaml:"enabled"`
		SliceSize        int     `yaml:"slice_size"`
		IncludeNeutral   bool    `yaml:"include_neutral"`
		ReflectThreshold string  `yaml:"reflect_threshold"` // stage name
		ReflectModel     string  `yaml:"reflect_model"`
		ConfidenceFloor  float64 `yaml:"confidence_floor"`
	} `yaml:"ace"`

	Reflex struct {
		Enabled  bool   `yaml:"enabled"`
		Endpoint string `yaml:"endpoint"`
		Model    string `yaml:"model"`
	} `yaml:"reflex"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{Version: "1"}
	cfg.Consensus.Threshold = 0.66
	cfg.Consensus.MinAgents = 2
	cfg.Consensus.MaxAgents = 4
	cfg.Pipeline.QualityGates = true
	cfg.Pipeline.CaptureMode = "prompts_only"
	cfg.Pipeline.StageTimeoutSeconds = 900
	cfg.Pipeline.DegradedAfterRetries = true
	cfg.Ace.Enabled = true
	cfg.Ace.SliceSize = 6
	cfg.Ace.ReflectThreshold = "implement"
	cfg.Ace.ReflectModel = "gpt-5-mini"
	cfg.Ace.ConfidenceFloor = 0.6
	return cfg
}

// Path returns <dir>/.speckit/config.yaml.
func Path(dir string) string {
	return filepath.Join(dir, ".speckit", "config.yaml")
}

// Load reads and validates the config from a repo directory. A missing file
// yields the defaults.
func Load(dir string) (*Config, error) {
	data, err := os.ReadFile(Path(dir))
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates raw YAML config bytes.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to <dir>/.speckit/config.yaml.
func Save(dir string, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	confDir := filepath.Join(dir, ".speckit")
	if err := os.MkdirAll(confDir, 0755); err != nil {
		return fmt.Errorf("failed to create .speckit dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(Path(dir), data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks every numeric range and enum.
func (c *Config) Validate() error {
	if c.Consensus.Threshold < 0 || c.Consensus.Threshold > 1 {
		return fmt.Errorf("consensus.threshold %v out of range [0,1]", c.Consensus.Threshold)
	}
	if c.Consensus.MinAgents < 2 {
		return fmt.Errorf("consensus.min_agents %d must be >= 2", c.Consensus.MinAgents)
	}
	if c.Consensus.MaxAgents < c.Consensus.MinAgents || c.Consensus.MaxAgents > 10 {
		return fmt.Errorf("consensus.max_agents %d must be in [min_agents, 10]", c.Consensus.MaxAgents)
	}
	for agent, temp := range c.Agents.Temperatures {
		if temp < 0 || temp > 2 {
			return fmt.Errorf("agents.temperatures[%s] = %v out of range [0,2]", agent, temp)
		}
	}
	switch c.Pipeline.CaptureMode {
	case "none", "prompts_only", "full_io":
	default:
		return fmt.Errorf("pipeline.capture_mode %q must be none, prompts_only or full_io", c.Pipeline.CaptureMode)
	}
	if c.Pipeline.StageTimeoutSeconds <= 0 {
		return fmt.Errorf("pipeline.stage_timeout_seconds must be positive")
	}
	if c.Ace.SliceSize < 0 {
		return fmt.Errorf("ace.slice_size must not be negative")
	}
	if c.Ace.ConfidenceFloor < 0 || c.Ace.ConfidenceFloor > 1 {
		return fmt.Errorf("ace.confidence_floor %v out of range [0,1]", c.Ace.ConfidenceFloor)
	}
	if c.Reflex.Enabled && c.Reflex.Endpoint == "" {
		return fmt.Errorf("reflex.endpoint is required when reflex is enabled")
	}
	return nil
}
