// Package config loads optional YAML tuning for the pipeline. All values are
// defaults for the corresponding constructor options; code-level functional
// options always win.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents a docgen.yaml configuration file.
type Config struct {
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Drip         DripConfig         `yaml:"drip"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// OrchestratorConfig holds job lifecycle defaults from the config file.
type OrchestratorConfig struct {
	Retention     Duration `yaml:"retention"`
	SweepInterval Duration `yaml:"sweep_interval"`
}

// DripConfig holds drain regime defaults from the config file.
type DripConfig struct {
	NormalChunk           int      `yaml:"normal_chunk"`
	BackpressureChunk     int      `yaml:"backpressure_chunk"`
	FinalizeChunk         int      `yaml:"finalize_chunk"`
	BackpressureThreshold int      `yaml:"backpressure_threshold"`
	FrameInterval         Duration `yaml:"frame_interval"`
}

// LoggingConfig holds logging defaults from the config file.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// Default returns the built-in tuning used when no file is provided.
func Default() *Config {
	return &Config{
		Orchestrator: OrchestratorConfig{
			Retention:     Duration(10 * time.Minute),
			SweepInterval: Duration(5 * time.Minute),
		},
		Drip: DripConfig{
			NormalChunk:           3,
			BackpressureChunk:     10,
			FinalizeChunk:         15,
			BackpressureThreshold: 50,
			FrameInterval:         Duration(16 * time.Millisecond),
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// ApplyDefaults fills unset fields from Default().
func (c *Config) ApplyDefaults() {
	def := Default()
	if c.Orchestrator.Retention == 0 {
		c.Orchestrator.Retention = def.Orchestrator.Retention
	}
	if c.Orchestrator.SweepInterval == 0 {
		c.Orchestrator.SweepInterval = def.Orchestrator.SweepInterval
	}
	if c.Drip.NormalChunk == 0 {
		c.Drip.NormalChunk = def.Drip.NormalChunk
	}
	if c.Drip.BackpressureChunk == 0 {
		c.Drip.BackpressureChunk = def.Drip.BackpressureChunk
	}
	if c.Drip.FinalizeChunk == 0 {
		c.Drip.FinalizeChunk = def.Drip.FinalizeChunk
	}
	if c.Drip.BackpressureThreshold == 0 {
		c.Drip.BackpressureThreshold = def.Drip.BackpressureThreshold
	}
	if c.Drip.FrameInterval == 0 {
		c.Drip.FrameInterval = def.Drip.FrameInterval
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}
}

// Validate rejects tunings that would stall or thrash the drain loop.
func (c *Config) Validate() error {
	if c.Orchestrator.Retention < 0 || c.Orchestrator.SweepInterval < 0 {
		return fmt.Errorf("orchestrator durations must be non-negative")
	}
	d := c.Drip
	if d.NormalChunk < 1 || d.BackpressureChunk < 1 || d.FinalizeChunk < 1 {
		return fmt.Errorf("drip chunk sizes must be at least 1")
	}
	if d.BackpressureThreshold < 1 {
		return fmt.Errorf("drip backpressure threshold must be at least 1")
	}
	return nil
}

// Duration wraps time.Duration with YAML string parsing ("30s", "10m").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// AsDuration returns the wrapped time.Duration.
func (d Duration) AsDuration() time.Duration { return time.Duration(d) }
