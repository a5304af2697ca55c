package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the top-level YAML configuration.
type Config struct {
	// Input is the directory of source CSV/JSON files.
	Input string `yaml:"input"`
	// Output is the directory for normalized tables and reports.
	Output string `yaml:"output"`
	// Dialect selects the SQL flavor of the generated DDL.
	Dialect       string     `yaml:"dialect"`
	ExcludeTables []string   `yaml:"exclude_tables"`
	Thresholds    Thresholds `yaml:"thresholds"`
}

// Thresholds holds the tunable analysis heuristics. Zero values are
// replaced with defaults during validation.
type Thresholds struct {
	// FDTolerance is the minimum fraction of determinant groups with a
	// single dependent value for a functional dependency to hold.
	FDTolerance float64 `yaml:"fd_tolerance"`
	// EntityConfidence is the minimum semantic-entity score for extracting
	// a dimension table.
	EntityConfidence float64 `yaml:"entity_confidence"`
	// MaxKeyArity bounds composite candidate-key search.
	MaxKeyArity int `yaml:"max_key_arity"`
	// FKCoverage is the minimum referential-integrity coverage accepted at
	// validation time.
	FKCoverage float64 `yaml:"fk_coverage"`
	// SampleSize bounds per-column sampling during profiling.
	SampleSize int `yaml:"sample_size"`
}

// Load reads and parses a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration with stock thresholds, used when no
// config file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyEnv()
	_ = cfg.validate()
	return cfg
}

// applyEnv fills in empty fields from environment variables. YAML values
// take precedence; env vars are used only as fallback.
func (c *Config) applyEnv() {
	if c.Input == "" {
		c.Input = os.Getenv("TABNORM_INPUT")
	}
	if c.Output == "" {
		c.Output = os.Getenv("TABNORM_OUTPUT")
	}
	if c.Dialect == "" {
		c.Dialect = os.Getenv("TABNORM_DIALECT")
	}
}

// validate fills defaults and rejects out-of-range thresholds.
func (c *Config) validate() error {
	if c.Input == "" {
		c.Input = "./input_files"
	}
	if c.Output == "" {
		c.Output = "./output"
	}
	if c.Dialect == "" {
		c.Dialect = "oracle"
	}

	t := &c.Thresholds
	if t.FDTolerance == 0 {
		t.FDTolerance = 0.99
	}
	if t.EntityConfidence == 0 {
		t.EntityConfidence = 0.4
	}
	if t.MaxKeyArity == 0 {
		t.MaxKeyArity = 3
	}
	if t.FKCoverage == 0 {
		t.FKCoverage = 0.9
	}
	if t.SampleSize == 0 {
		t.SampleSize = 100
	}

	if t.FDTolerance < 0.5 || t.FDTolerance > 1 {
		return fmt.Errorf("thresholds.fd_tolerance must be in [0.5, 1], got %v", t.FDTolerance)
	}
	if t.EntityConfidence < 0 || t.EntityConfidence > 1 {
		return fmt.Errorf("thresholds.entity_confidence must be in [0, 1], got %v", t.EntityConfidence)
	}
	if t.MaxKeyArity < 1 {
		return fmt.Errorf("thresholds.max_key_arity must be positive, got %d", t.MaxKeyArity)
	}
	if t.FKCoverage < 0 || t.FKCoverage > 1 {
		return fmt.Errorf("thresholds.fk_coverage must be in [0, 1], got %v", t.FKCoverage)
	}
	return nil
}

// ExcludeSet returns a set of excluded table names for O(1) lookup.
func (c *Config) ExcludeSet() map[string]bool {
	set := make(map[string]bool, len(c.ExcludeTables))
	for _, t := range c.ExcludeTables {
		set[t] = true
	}
	return set
}
