// Package config provides viper-backed configuration for the planning core.
//
// Configuration is validated eagerly: Load and LoadFile return a
// *errors.ConfigurationError describing the first invalid field instead of
// deferring failures to the first planning call. Defaults are registered with
// viper so a missing config file yields a fully usable configuration, and
// every key can be overridden through the environment with a PARPLAN_ prefix
// (e.g. PARPLAN_OPTIMIZER_MAX_CONCURRENCY=8).
package config

import (
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/parplan/parplan/errors"
)

// Config is the complete planner configuration.
type Config struct {
	Analyzer  AnalyzerConfig  `mapstructure:"analyzer"`
	Optimizer OptimizerConfig `mapstructure:"optimizer"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// AnalyzerConfig controls the dependency analyzer's detectors and scoring.
type AnalyzerConfig struct {
	// SemanticWeight, TemporalWeight, ResourceWeight, and PatternWeight blend
	// the per-detector scores into a single suggestion confidence. Each must
	// be in [0, 1] and they must not all be zero.
	SemanticWeight float64 `mapstructure:"semantic_weight"`
	TemporalWeight float64 `mapstructure:"temporal_weight"`
	ResourceWeight float64 `mapstructure:"resource_weight"`
	PatternWeight  float64 `mapstructure:"pattern_weight"`

	// AutoCreateThreshold is the minimum blended confidence for a suggestion
	// to be returned as a dependency. Suggestions below it are dropped from
	// the suggestion list but kept in the confidence map for transparency.
	AutoCreateThreshold float64 `mapstructure:"auto_create_threshold"`

	// SimilarityThreshold is the minimum word-overlap similarity for the
	// semantic detector to emit a suggestion.
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`

	// StrengthThreshold is the minimum dependency-strength score for the
	// semantic detector to emit a suggestion.
	StrengthThreshold float64 `mapstructure:"strength_threshold"`

	// TemporalWindow is the maximum creation-time gap between two tasks for
	// the temporal detector to consider them related.
	TemporalWindow time.Duration `mapstructure:"temporal_window"`

	// TemporalMaxDelay caps the minimum delay attached to temporal edges.
	TemporalMaxDelay time.Duration `mapstructure:"temporal_max_delay"`

	// UrgencyThreshold is the minimum mean priority score for the temporal
	// detector to emit a suggestion.
	UrgencyThreshold float64 `mapstructure:"urgency_threshold"`

	// PatternMatchThreshold is the minimum rule confidence for the pattern
	// detector to emit a suggestion.
	PatternMatchThreshold float64 `mapstructure:"pattern_match_threshold"`

	// PatternRulesFile optionally names a YAML file of extra pattern rules
	// loaded on top of the built-in category-pair rules.
	PatternRulesFile string `mapstructure:"pattern_rules_file"`
}

// PoolConfig describes one resource pool available to the optimizer.
type PoolConfig struct {
	// Name identifies the pool (cpu, memory, network, disk, ...).
	Name string `mapstructure:"name"`
	// Capacity is the total units the pool offers. Must be positive.
	Capacity float64 `mapstructure:"capacity"`
	// Shareable is false for pools whose units cannot be time-shared.
	Shareable bool `mapstructure:"shareable"`
	// CostPerUnit is the optional cost of one unit, for upgrade estimates.
	CostPerUnit float64 `mapstructure:"cost_per_unit"`
}

// OptimizerConfig controls the parallel optimizer's strategy and resources.
type OptimizerConfig struct {
	// Strategy selects the grouping strategy: max_parallelism,
	// resource_balanced, dependency_aware, priority_grouped,
	// adaptive_dynamic, or machine_learning.
	Strategy string `mapstructure:"strategy"`

	// MaxConcurrency bounds the size of any execution group. Must be >= 1.
	MaxConcurrency int `mapstructure:"max_concurrency"`

	// TargetUtilization is the headroom factor applied to pool capacities by
	// resource-aware strategies, in (0, 1].
	TargetUtilization float64 `mapstructure:"target_utilization"`

	// LearningRate scales predictive-model weight updates, in (0, 1].
	LearningRate float64 `mapstructure:"learning_rate"`

	// HistoryLimit bounds the execution-history ring. Must be >= 1.
	HistoryLimit int `mapstructure:"history_limit"`

	// Pools lists the resource pools. An empty list uses the defaults
	// (cpu 8, memory 16384, network 4 non-shareable, disk 2 non-shareable).
	Pools []PoolConfig `mapstructure:"pools"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is the log level: DEBUG, INFO, WARN, or ERROR.
	Level string `mapstructure:"level"`
}

// Default returns a Config with the documented default values.
func Default() *Config {
	return &Config{
		Analyzer: AnalyzerConfig{
			SemanticWeight:        0.3,
			TemporalWeight:        0.25,
			ResourceWeight:        0.25,
			PatternWeight:         0.2,
			AutoCreateThreshold:   0.75,
			SimilarityThreshold:   0.6,
			StrengthThreshold:     0.5,
			TemporalWindow:        5 * time.Minute,
			TemporalMaxDelay:      2 * time.Minute,
			UrgencyThreshold:      0.4,
			PatternMatchThreshold: 0.7,
		},
		Optimizer: OptimizerConfig{
			Strategy:          "adaptive_dynamic",
			MaxConcurrency:    4,
			TargetUtilization: 0.85,
			LearningRate:      0.1,
			HistoryLimit:      100,
			Pools: []PoolConfig{
				{Name: "cpu", Capacity: 8, Shareable: true},
				{Name: "memory", Capacity: 16384, Shareable: true},
				{Name: "network", Capacity: 4, Shareable: false},
				{Name: "disk", Capacity: 2, Shareable: false},
			},
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
	}
}

// SetDefaults registers all default values with viper.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("analyzer.semantic_weight", defaults.Analyzer.SemanticWeight)
	v.SetDefault("analyzer.temporal_weight", defaults.Analyzer.TemporalWeight)
	v.SetDefault("analyzer.resource_weight", defaults.Analyzer.ResourceWeight)
	v.SetDefault("analyzer.pattern_weight", defaults.Analyzer.PatternWeight)
	v.SetDefault("analyzer.auto_create_threshold", defaults.Analyzer.AutoCreateThreshold)
	v.SetDefault("analyzer.similarity_threshold", defaults.Analyzer.SimilarityThreshold)
	v.SetDefault("analyzer.strength_threshold", defaults.Analyzer.StrengthThreshold)
	v.SetDefault("analyzer.temporal_window", defaults.Analyzer.TemporalWindow)
	v.SetDefault("analyzer.temporal_max_delay", defaults.Analyzer.TemporalMaxDelay)
	v.SetDefault("analyzer.urgency_threshold", defaults.Analyzer.UrgencyThreshold)
	v.SetDefault("analyzer.pattern_match_threshold", defaults.Analyzer.PatternMatchThreshold)
	v.SetDefault("analyzer.pattern_rules_file", defaults.Analyzer.PatternRulesFile)

	v.SetDefault("optimizer.strategy", defaults.Optimizer.Strategy)
	v.SetDefault("optimizer.max_concurrency", defaults.Optimizer.MaxConcurrency)
	v.SetDefault("optimizer.target_utilization", defaults.Optimizer.TargetUtilization)
	v.SetDefault("optimizer.learning_rate", defaults.Optimizer.LearningRate)
	v.SetDefault("optimizer.history_limit", defaults.Optimizer.HistoryLimit)
	v.SetDefault("optimizer.pools", defaults.Optimizer.Pools)

	v.SetDefault("logging.level", defaults.Logging.Level)
}

// newViper builds a viper instance with defaults and PARPLAN_* env overrides.
func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix("PARPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load builds the configuration from defaults and environment overrides,
// then validates it.
func Load() (*Config, error) {
	return unmarshal(newViper())
}

// LoadFile reads the named config file (YAML, JSON, or TOML by extension) on
// top of defaults and environment overrides, then validates the result.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return unmarshal(v)
}

// Watch re-reads and re-validates the config file whenever it changes,
// invoking onChange with each valid new configuration. Invalid edits are
// reported through onError and the previous configuration stays active.
// The path must previously have been loaded with LoadFile.
func Watch(path string, onChange func(*Config), onError func(error)) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if onError != nil {
			onError(errors.Wrap(err, "failed to read config file"))
		}
		return
	}
	v.OnConfigChange(func(fsnotify.Event) {
		cfg, err := unmarshal(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		if onChange != nil {
			onChange(cfg)
		}
	})
	v.WatchConfig()
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
