// Package config holds the explicit configuration records passed into the
// pipeline at construction time. There is no module-level mutable state:
// concurrent pipelines with different thresholds cannot interfere.
package config

import (
	"strings"

	"github.com/spf13/viper"

	"microlens/internal/errors"
)

// Pipeline holds every tunable the decision pipeline consumes.
type Pipeline struct {
	// MinSamples is the minimum epoch count accepted by validation.
	MinSamples int `mapstructure:"min_samples"`

	// ChiSqThreshold is the reduced chi-square acceptance gate for the
	// confirmation fit. The global stage's gate is clamped to exactly this
	// value.
	ChiSqThreshold float64 `mapstructure:"chisq_threshold"`

	// T0MarginFrac widens the accepted t0 window by this fraction of the
	// observed span beyond each end.
	T0MarginFrac float64 `mapstructure:"t0_margin_frac"`

	// U0Max bounds the impact parameter; accepted u0 lies in (0, U0Max].
	U0Max float64 `mapstructure:"u0_max"`

	// TEMin / TEMaxSpanFrac bound the event timescale: accepted tE lies in
	// [TEMin, TEMaxSpanFrac * span].
	TEMin         float64 `mapstructure:"te_min"`
	TEMaxSpanFrac float64 `mapstructure:"te_max_span_frac"`

	// LocalMaxIter / GlobalMaxEvals cap optimizer work so a bad fit is
	// reported as non-convergence rather than hanging.
	LocalMaxIter   int `mapstructure:"local_max_iter"`
	GlobalMaxEvals int `mapstructure:"global_max_evals"`

	// OptimizerSeed seeds the stochastic global stage.
	OptimizerSeed uint64 `mapstructure:"optimizer_seed"`
}

// Server holds the HTTP API settings.
type Server struct {
	Port string `mapstructure:"port"`
}

// Database holds the result-ledger connection settings. URL empty disables
// persistence.
type Database struct {
	URL string `mapstructure:"url"`
}

// Config is the complete application configuration.
type Config struct {
	Pipeline Pipeline `mapstructure:"pipeline"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
}

// DefaultPipeline returns the documented defaults. The u0/tE bounds are
// domain-tuned: events wider than the observing window or weaker than
// u0 ~ 2 are not separable from baseline noise.
func DefaultPipeline() Pipeline {
	return Pipeline{
		MinSamples:     30,
		ChiSqThreshold: 3.0,
		T0MarginFrac:   0.1,
		U0Max:          2.0,
		TEMin:          0.5,
		TEMaxSpanFrac:  3.0,
		LocalMaxIter:   500,
		GlobalMaxEvals: 5000,
		OptimizerSeed:  1,
	}
}

// Validate rejects configurations that would make gating vacuous.
func (p Pipeline) Validate() error {
	if p.MinSamples < 3 {
		return errors.ConfigInvalid("min_samples must be at least 3")
	}
	if p.ChiSqThreshold <= 0 {
		return errors.ConfigInvalid("chisq_threshold must be positive")
	}
	if p.U0Max <= 0 {
		return errors.ConfigInvalid("u0_max must be positive")
	}
	if p.TEMin <= 0 || p.TEMaxSpanFrac <= 0 {
		return errors.ConfigInvalid("tE bounds must be positive")
	}
	if p.LocalMaxIter <= 0 || p.GlobalMaxEvals <= 0 {
		return errors.ConfigInvalid("optimizer iteration caps must be positive")
	}
	return nil
}

// Load reads configuration with viper: defaults, then an optional YAML file,
// then MICROLENS_* environment overrides.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	def := DefaultPipeline()
	v.SetDefault("pipeline.min_samples", def.MinSamples)
	v.SetDefault("pipeline.chisq_threshold", def.ChiSqThreshold)
	v.SetDefault("pipeline.t0_margin_frac", def.T0MarginFrac)
	v.SetDefault("pipeline.u0_max", def.U0Max)
	v.SetDefault("pipeline.te_min", def.TEMin)
	v.SetDefault("pipeline.te_max_span_frac", def.TEMaxSpanFrac)
	v.SetDefault("pipeline.local_max_iter", def.LocalMaxIter)
	v.SetDefault("pipeline.global_max_evals", def.GlobalMaxEvals)
	v.SetDefault("pipeline.optimizer_seed", def.OptimizerSeed)
	v.SetDefault("server.port", "8080")
	v.SetDefault("database.url", "")

	v.SetEnvPrefix("MICROLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(".microlens")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	if err := v.ReadInConfig(); err != nil {
		// a missing file is fine; a present but unreadable one is not,
		// whether it was named explicitly or discovered
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal configuration")
	}
	if err := cfg.Pipeline.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
