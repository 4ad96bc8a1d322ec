package model

import "fmt"

// Config is the complete clipcheck configuration tree.
// Hierarchy (highest to lowest priority): CLI flags, CLIPCHECK_* environment
// variables, ~/.clipcheck/config.yaml, the defaults below.
type Config struct {
	Diversity    DiversityConfig    `yaml:"diversity" mapstructure:"diversity"`
	Recovery     RecoveryConfig     `yaml:"false_negative_recovery" mapstructure:"false_negative_recovery"`
	Verification VerificationConfig `yaml:"rebuttal_verification" mapstructure:"rebuttal_verification"`
	Oracle       OracleConfig       `yaml:"gate_evaluator" mapstructure:"gate_evaluator"`
	Filter       FilterConfig       `yaml:"filter" mapstructure:"filter"`
	Storage      StorageConfig      `yaml:"storage" mapstructure:"storage"`
}

// DiversityConfig bounds topic-balanced selection.
type DiversityConfig struct {
	MinSegments int `yaml:"min_segments" mapstructure:"min_segments"`
	MaxSegments int `yaml:"max_segments" mapstructure:"max_segments"`
	MaxPerTopic int `yaml:"max_per_topic" mapstructure:"max_per_topic"`
}

// RecoveryConfig controls the false-negative scanner.
type RecoveryConfig struct {
	Enabled        bool     `yaml:"enabled" mapstructure:"enabled"`
	MaxRecovery    int      `yaml:"max_recovery" mapstructure:"max_recovery"`
	MinGatesPassed int      `yaml:"min_gates_passed" mapstructure:"min_gates_passed"`
	Keywords       []string `yaml:"keywords,omitempty" mapstructure:"keywords"`
}

// VerificationConfig bounds the rebuttal correction loop.
type VerificationConfig struct {
	MaxIterations int `yaml:"max_iterations" mapstructure:"max_iterations"`
}

// OracleConfig configures the gate evaluator / content rewriter client.
type OracleConfig struct {
	Provider        string  `yaml:"provider" mapstructure:"provider"`
	Model           string  `yaml:"model" mapstructure:"model"`
	MaxRetries      int     `yaml:"max_retries" mapstructure:"max_retries"`
	TimeoutSeconds  int     `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	RateLimit       float64 `yaml:"rate_limit" mapstructure:"rate_limit"` // calls per second, 0 = unlimited
	CacheTTLMinutes int     `yaml:"cache_ttl_minutes" mapstructure:"cache_ttl_minutes"`
}

// FilterConfig configures per-segment gate evaluation.
type FilterConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// StorageConfig selects the durable artifact store backend.
type StorageConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"` // disk, sqlite
	Dir     string `yaml:"dir" mapstructure:"dir"`
	DBPath  string `yaml:"db_path" mapstructure:"db_path"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Diversity: DiversityConfig{
			MinSegments: 5,
			MaxSegments: 10,
			MaxPerTopic: 2,
		},
		Recovery: RecoveryConfig{
			Enabled:        true,
			MaxRecovery:    3,
			MinGatesPassed: 3,
			Keywords: []string{
				"death", "deaths", "died", "vaccine", "cancer", "election",
				"fraud", "miracle cure", "cover-up", "hoax",
			},
		},
		Verification: VerificationConfig{
			MaxIterations: 3,
		},
		Oracle: OracleConfig{
			Provider:        "openai",
			Model:           "gpt-4o-mini",
			MaxRetries:      3,
			TimeoutSeconds:  30,
			RateLimit:       2,
			CacheTTLMinutes: 60,
		},
		Filter: FilterConfig{
			Workers: 4,
		},
		Storage: StorageConfig{
			Backend: "disk",
			Dir:     "./clipcheck-artifacts",
			DBPath:  "./clipcheck-artifacts/artifacts.db",
		},
	}
}

// ConfigurationError reports an invalid configuration value. It is fatal at
// startup; nothing runs with out-of-bounds settings.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Reason)
}

// Validate checks bounds across the whole tree and returns the first
// violation as a ConfigurationError.
func (c *Config) Validate() error {
	if c.Diversity.MinSegments < 0 {
		return &ConfigurationError{Field: "diversity.min_segments", Reason: "must be >= 0"}
	}
	if c.Diversity.MaxSegments < 1 {
		return &ConfigurationError{Field: "diversity.max_segments", Reason: "must be >= 1"}
	}
	if c.Diversity.MaxSegments < c.Diversity.MinSegments {
		return &ConfigurationError{
			Field:  "diversity.max_segments",
			Reason: fmt.Sprintf("must be >= diversity.min_segments (%d)", c.Diversity.MinSegments),
		}
	}
	if c.Diversity.MaxPerTopic < 1 {
		return &ConfigurationError{Field: "diversity.max_per_topic", Reason: "must be >= 1"}
	}
	if c.Recovery.MaxRecovery < 0 {
		return &ConfigurationError{Field: "false_negative_recovery.max_recovery", Reason: "must be >= 0"}
	}
	if c.Recovery.MinGatesPassed < 0 {
		return &ConfigurationError{Field: "false_negative_recovery.min_gates_passed", Reason: "must be >= 0"}
	}
	if c.Verification.MaxIterations < 1 {
		return &ConfigurationError{Field: "rebuttal_verification.max_iterations", Reason: "must be >= 1"}
	}
	if c.Oracle.MaxRetries < 0 {
		return &ConfigurationError{Field: "gate_evaluator.max_retries", Reason: "must be >= 0"}
	}
	if c.Oracle.TimeoutSeconds < 1 {
		return &ConfigurationError{Field: "gate_evaluator.timeout_seconds", Reason: "must be >= 1"}
	}
	if c.Oracle.RateLimit < 0 {
		return &ConfigurationError{Field: "gate_evaluator.rate_limit", Reason: "must be >= 0"}
	}
	if c.Filter.Workers < 1 {
		return &ConfigurationError{Field: "filter.workers", Reason: "must be >= 1"}
	}
	switch c.Storage.Backend {
	case "disk", "sqlite":
	default:
		return &ConfigurationError{Field: "storage.backend", Reason: `must be "disk" or "sqlite"`}
	}
	return nil
}
