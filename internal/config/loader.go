package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if MUSTER_CONFIG is set
//  3. env (prefix MUSTER_)
func Load(ctx context.Context) (*Config, error) {
	_ = ctx // reserved for future remote providers

	base := New()

	k := koanf.New(".")

	if path := os.Getenv("MUSTER_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: MUSTER_TOLERANCE, MUSTER_MIN_SCORE, ...
	// Map env keys like MUSTER_MIN_SCORE -> min_score (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("MUSTER_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "muster_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Tolerance <= 0 {
		return fmt.Errorf("%w: tolerance must be positive, got %g", ErrInvalidConfig, c.Tolerance)
	}
	if c.MaxScore <= c.MinScore {
		return fmt.Errorf("%w: max_score %g must exceed min_score %g", ErrInvalidConfig, c.MaxScore, c.MinScore)
	}
	if c.AggregationWorkers < 1 {
		return fmt.Errorf("%w: aggregation_workers must be at least 1, got %d", ErrInvalidConfig, c.AggregationWorkers)
	}
	if c.PositionTable == "" {
		return fmt.Errorf("%w: position_table must not be empty", ErrInvalidConfig)
	}
	return nil
}
