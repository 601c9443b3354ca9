package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parplan/parplan/errors"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default configuration invalid: %v", err)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Optimizer.Strategy != "adaptive_dynamic" {
		t.Errorf("default strategy = %s, want adaptive_dynamic", cfg.Optimizer.Strategy)
	}
	if cfg.Optimizer.MaxConcurrency != 4 {
		t.Errorf("default max concurrency = %d, want 4", cfg.Optimizer.MaxConcurrency)
	}
	if cfg.Analyzer.AutoCreateThreshold != 0.75 {
		t.Errorf("default auto-create threshold = %v, want 0.75", cfg.Analyzer.AutoCreateThreshold)
	}
	if len(cfg.Optimizer.Pools) != 4 {
		t.Errorf("default pool count = %d, want 4", len(cfg.Optimizer.Pools))
	}
}

func TestLoadFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parplan.yaml")
	content := `analyzer:
  auto_create_threshold: 0.9
  temporal_window: 10m
optimizer:
  strategy: dependency_aware
  max_concurrency: 8
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Analyzer.AutoCreateThreshold != 0.9 {
		t.Errorf("auto_create_threshold = %v, want 0.9", cfg.Analyzer.AutoCreateThreshold)
	}
	if cfg.Analyzer.TemporalWindow != 10*time.Minute {
		t.Errorf("temporal_window = %s, want 10m", cfg.Analyzer.TemporalWindow)
	}
	if cfg.Optimizer.Strategy != "dependency_aware" {
		t.Errorf("strategy = %s, want dependency_aware", cfg.Optimizer.Strategy)
	}
	if cfg.Optimizer.MaxConcurrency != 8 {
		t.Errorf("max_concurrency = %d, want 8", cfg.Optimizer.MaxConcurrency)
	}
	// Untouched keys keep their defaults.
	if cfg.Optimizer.TargetUtilization != 0.85 {
		t.Errorf("target_utilization = %v, want default 0.85", cfg.Optimizer.TargetUtilization)
	}
}

func TestLoadFileRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"weight above one", "analyzer:\n  semantic_weight: 1.7\n"},
		{"all weights zero", "analyzer:\n  semantic_weight: 0\n  temporal_weight: 0\n  resource_weight: 0\n  pattern_weight: 0\n"},
		{"threshold above one", "analyzer:\n  auto_create_threshold: 2\n"},
		{"zero concurrency", "optimizer:\n  max_concurrency: 0\n"},
		{"utilization above one", "optimizer:\n  target_utilization: 1.5\n"},
		{"unknown strategy", "optimizer:\n  strategy: fastest_first\n"},
		{"zero learning rate", "optimizer:\n  learning_rate: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "parplan.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, err := LoadFile(path)
			if err == nil {
				t.Fatal("invalid configuration accepted")
			}
			var cErr *errors.ConfigurationError
			if !errors.As(err, &cErr) {
				t.Errorf("error type = %T, want *ConfigurationError", err)
			}
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("missing config file accepted")
	}
}

func TestPoolValidation(t *testing.T) {
	cfg := Default()
	cfg.Optimizer.Pools = append(cfg.Optimizer.Pools, PoolConfig{Name: "cpu", Capacity: 2, Shareable: true})
	if err := cfg.Validate(); err == nil {
		t.Error("duplicate pool name accepted")
	}

	cfg = Default()
	cfg.Optimizer.Pools[0].Capacity = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero pool capacity accepted")
	}

	cfg = Default()
	cfg.Optimizer.Pools[0].Name = ""
	if err := cfg.Validate(); err == nil {
		t.Error("empty pool name accepted")
	}
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("PARPLAN_OPTIMIZER_MAX_CONCURRENCY", "16")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Optimizer.MaxConcurrency != 16 {
		t.Errorf("max concurrency = %d, want 16 from the environment", cfg.Optimizer.MaxConcurrency)
	}
}
