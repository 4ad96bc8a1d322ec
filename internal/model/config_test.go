package model

import (
	"errors"
	"strings"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestValidate_MaxBelowMin(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Diversity.MinSegments = 8
	cfg.Diversity.MaxSegments = 5

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for max < min")
	}

	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigurationError, got %T", err)
	}
	if ce.Field != "diversity.max_segments" {
		t.Errorf("field = %q", ce.Field)
	}
	if !strings.Contains(err.Error(), "diversity.max_segments") {
		t.Errorf("error should name the field: %v", err)
	}
}

func TestValidate_Bounds(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero max_per_topic", func(c *Config) { c.Diversity.MaxPerTopic = 0 }},
		{"negative max_recovery", func(c *Config) { c.Recovery.MaxRecovery = -1 }},
		{"zero max_iterations", func(c *Config) { c.Verification.MaxIterations = 0 }},
		{"negative max_retries", func(c *Config) { c.Oracle.MaxRetries = -1 }},
		{"zero timeout", func(c *Config) { c.Oracle.TimeoutSeconds = 0 }},
		{"zero workers", func(c *Config) { c.Filter.Workers = 0 }},
		{"bad backend", func(c *Config) { c.Storage.Backend = "redis" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if cfg.Validate() == nil {
				t.Error("expected validation error")
			}
		})
	}
}
