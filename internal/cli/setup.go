package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/clipcheck/clipcheck/internal/model"
	"github.com/clipcheck/clipcheck/internal/oracle"
	"github.com/clipcheck/clipcheck/internal/store"
)

// loadConfig layers the config file and CLIPCHECK_* environment over the
// built-in defaults and validates the result. Invalid bounds are fatal.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildStore creates the configured artifact store backend.
func buildStore(cfg *model.Config) (store.Store, func(), error) {
	switch cfg.Storage.Backend {
	case "sqlite":
		s, err := store.OpenSQLite(cfg.Storage.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open artifact store: %w", err)
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return store.NewDiskStore(cfg.Storage.Dir), func() {}, nil
	}
}

// buildOracle assembles the live oracle stack: OpenAI client, verdict
// cache, shared rate limiter.
func buildOracle(cfg *model.Config) (oracle.GateEvaluator, oracle.ContentRewriter, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	client, err := oracle.NewOpenAIClient(
		apiKey,
		os.Getenv("OPENAI_BASE_URL"),
		cfg.Oracle.Model,
		time.Duration(cfg.Oracle.TimeoutSeconds)*time.Second,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create oracle client: %w", err)
	}

	cached := oracle.NewCachedEvaluator(client, time.Duration(cfg.Oracle.CacheTTLMinutes)*time.Minute)
	limited := oracle.NewLimitedOracle(cached, client, cfg.Oracle.RateLimit, 2)
	return limited, limited, nil
}

// loadSegments reads a JSON array of candidate segments.
func loadSegments(path string) ([]model.CandidateSegment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read segments: %w", err)
	}
	var segments []model.CandidateSegment
	if err := json.Unmarshal(data, &segments); err != nil {
		return nil, fmt.Errorf("parse segments: %w", err)
	}
	return segments, nil
}

// loadScript reads a unified script JSON file.
func loadScript(path string) (*model.UnifiedScript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	var script model.UnifiedScript
	if err := json.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	return &script, nil
}

// writeJSON writes v as indented JSON to path.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
