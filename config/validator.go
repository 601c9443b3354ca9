package config

import (
	"fmt"

	"github.com/parplan/parplan/errors"
)

// validStrategies are the recognized optimizer strategy names.
func validStrategies() []string {
	return []string{
		"max_parallelism",
		"resource_balanced",
		"dependency_aware",
		"priority_grouped",
		"adaptive_dynamic",
		"machine_learning",
	}
}

// Validate checks every numeric range and enum value, returning a
// *errors.ConfigurationError for the first violation found. Validation runs
// at load time so a bad configuration never reaches a planning component.
func (c *Config) Validate() error {
	if err := c.Analyzer.Validate(); err != nil {
		return err
	}
	if err := c.Optimizer.Validate(); err != nil {
		return err
	}
	return nil
}

// Validate checks the analyzer configuration.
func (a *AnalyzerConfig) Validate() error {
	weights := []struct {
		field string
		value float64
	}{
		{"analyzer.semantic_weight", a.SemanticWeight},
		{"analyzer.temporal_weight", a.TemporalWeight},
		{"analyzer.resource_weight", a.ResourceWeight},
		{"analyzer.pattern_weight", a.PatternWeight},
	}
	sum := 0.0
	for _, w := range weights {
		if w.value < 0 || w.value > 1 {
			return errors.NewConfigurationError(w.field, w.value, "must be in [0, 1]")
		}
		sum += w.value
	}
	if sum == 0 {
		return errors.NewConfigurationError("analyzer", sum, "detector weights must not all be zero")
	}

	thresholds := []struct {
		field string
		value float64
	}{
		{"analyzer.auto_create_threshold", a.AutoCreateThreshold},
		{"analyzer.similarity_threshold", a.SimilarityThreshold},
		{"analyzer.strength_threshold", a.StrengthThreshold},
		{"analyzer.urgency_threshold", a.UrgencyThreshold},
		{"analyzer.pattern_match_threshold", a.PatternMatchThreshold},
	}
	for _, th := range thresholds {
		if th.value < 0 || th.value > 1 {
			return errors.NewConfigurationError(th.field, th.value, "must be in [0, 1]")
		}
	}

	if a.TemporalWindow < 0 {
		return errors.NewConfigurationError("analyzer.temporal_window", a.TemporalWindow, "must not be negative")
	}
	if a.TemporalMaxDelay < 0 {
		return errors.NewConfigurationError("analyzer.temporal_max_delay", a.TemporalMaxDelay, "must not be negative")
	}
	return nil
}

// Validate checks the optimizer configuration.
func (o *OptimizerConfig) Validate() error {
	if o.Strategy != "" && !isValidStrategy(o.Strategy) {
		return errors.NewConfigurationError("optimizer.strategy", o.Strategy,
			fmt.Sprintf("must be one of %v", validStrategies()))
	}
	if o.MaxConcurrency < 1 {
		return errors.NewConfigurationError("optimizer.max_concurrency", o.MaxConcurrency, "must be at least 1")
	}
	if o.TargetUtilization <= 0 || o.TargetUtilization > 1 {
		return errors.NewConfigurationError("optimizer.target_utilization", o.TargetUtilization, "must be in (0, 1]")
	}
	if o.LearningRate <= 0 || o.LearningRate > 1 {
		return errors.NewConfigurationError("optimizer.learning_rate", o.LearningRate, "must be in (0, 1]")
	}
	if o.HistoryLimit < 1 {
		return errors.NewConfigurationError("optimizer.history_limit", o.HistoryLimit, "must be at least 1")
	}
	seen := make(map[string]bool, len(o.Pools))
	for _, pool := range o.Pools {
		if pool.Name == "" {
			return errors.NewConfigurationError("optimizer.pools", pool.Name, "pool name must not be empty")
		}
		if pool.Capacity <= 0 {
			return errors.NewConfigurationError("optimizer.pools."+pool.Name+".capacity", pool.Capacity, "must be positive")
		}
		if seen[pool.Name] {
			return errors.NewConfigurationError("optimizer.pools", pool.Name, "duplicate pool name")
		}
		seen[pool.Name] = true
	}
	return nil
}

func isValidStrategy(s string) bool {
	for _, valid := range validStrategies() {
		if s == valid {
			return true
		}
	}
	return false
}
