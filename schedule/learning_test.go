package schedule

import (
	"fmt"
	"testing"
	"time"

	"github.com/parplan/parplan/config"
	"github.com/parplan/parplan/plan"
)

func record(groupID string, estimated, actual time.Duration, success bool) plan.ExecutionRecord {
	return plan.ExecutionRecord{
		GroupID:           groupID,
		TaskIDs:           []string{"t-" + groupID},
		EstimatedDuration: estimated,
		ActualDuration:    actual,
		Success:           success,
	}
}

func TestHistoryRingEviction(t *testing.T) {
	o := newOptimizer(t, func(cfg *config.OptimizerConfig) { cfg.HistoryLimit = 3 })

	for i := 0; i < 5; i++ {
		o.RecordExecution(record(fmt.Sprintf("g%d", i), time.Hour, time.Hour, true))
	}

	history := o.History()
	if len(history) != 3 {
		t.Fatalf("history length = %d, want 3", len(history))
	}
	if history[0].GroupID != "g2" || history[2].GroupID != "g4" {
		t.Errorf("history = [%s..%s], want oldest g2 and newest g4",
			history[0].GroupID, history[2].GroupID)
	}
}

func TestEfficiencyComputedAndCapped(t *testing.T) {
	tests := []struct {
		name      string
		estimated time.Duration
		actual    time.Duration
		want      float64
	}{
		{"on time", time.Hour, time.Hour, 1},
		{"beat the estimate", 2 * time.Hour, time.Hour, 0.5},
		{"overran, capped at 2", time.Hour, 5 * time.Hour, 2},
		{"no estimate", 0, time.Hour, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOptimizer(t, nil)
			o.RecordExecution(record("g", tt.estimated, tt.actual, true))
			history := o.History()
			if history[0].Efficiency != tt.want {
				t.Errorf("efficiency = %v, want %v", history[0].Efficiency, tt.want)
			}
		})
	}
}

// planAndRecord plans one group so execution records can be attributed to
// model features, then reports the given outcome n times.
func planAndRecord(t *testing.T, o *Optimizer, success bool, actual time.Duration, n int) plan.ExecutionGroup {
	t.Helper()
	tasks := []plan.Task{
		simpleTask("a", plan.PriorityMedium, plan.CategoryImplementation, time.Hour),
	}
	result, err := o.Optimize(tasks, nil, nil)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	g := result.Groups[0]
	for i := 0; i < n; i++ {
		o.RecordExecution(plan.ExecutionRecord{
			GroupID:           g.ID,
			TaskIDs:           g.TaskIDs,
			EstimatedDuration: g.EstimatedDuration,
			ActualDuration:    actual,
			Success:           success,
		})
	}
	return g
}

func TestPredictiveWeightsClampedAtFloor(t *testing.T) {
	o := newOptimizer(t, func(cfg *config.OptimizerConfig) { cfg.LearningRate = 1.0 })
	planAndRecord(t, o, false, time.Hour, 10)

	weights := o.Weights()
	if len(weights) == 0 {
		t.Fatal("no feature weights after recorded executions")
	}
	for feature, w := range weights {
		if w != weightFloor {
			t.Errorf("weight %s = %v, want clamped to %v after repeated failures", feature, w, weightFloor)
		}
	}
}

func TestPredictiveWeightsClampedAtCeiling(t *testing.T) {
	o := newOptimizer(t, func(cfg *config.OptimizerConfig) { cfg.LearningRate = 1.0 })
	// Finishing instantly maxes out performance.
	planAndRecord(t, o, true, time.Nanosecond, 10)

	for feature, w := range o.Weights() {
		if w != weightCeiling {
			t.Errorf("weight %s = %v, want clamped to %v after repeated fast successes", feature, w, weightCeiling)
		}
	}
}

func TestFeaturesAttributedToPlannedGroup(t *testing.T) {
	o := newOptimizer(t, func(cfg *config.OptimizerConfig) { cfg.Strategy = StrategyDependencyAware })
	planAndRecord(t, o, true, time.Hour, 1)

	features := o.Features()
	wantStrategy := "strategy:" + StrategyDependencyAware
	wantCategory := "category:" + plan.CategoryImplementation.String()
	found := map[string]bool{}
	for _, f := range features {
		found[f] = true
	}
	if !found[wantStrategy] || !found[wantCategory] {
		t.Errorf("features = %v, want %s and %s", features, wantStrategy, wantCategory)
	}
}

func TestUnattributedRecordUpdatesNoWeights(t *testing.T) {
	o := newOptimizer(t, nil)
	o.RecordExecution(record("never-planned", time.Hour, time.Hour, true))
	if got := len(o.Weights()); got != 0 {
		t.Errorf("weights after unattributed record = %d, want 0", got)
	}
	if got := len(o.History()); got != 1 {
		t.Errorf("history after unattributed record = %d, want 1 (still recorded)", got)
	}
}

func TestMachineLearningUsesHistoryConfidence(t *testing.T) {
	o := newOptimizer(t, func(cfg *config.OptimizerConfig) { cfg.Strategy = StrategyMachineLearning })

	// Five records referencing task "x" at efficiency 0.5 unlock the ML path
	// and give matching groups confidence 2 - 0.5 = 1 (clamped).
	for i := 0; i < minHistoryForML; i++ {
		o.RecordExecution(plan.ExecutionRecord{
			GroupID:           fmt.Sprintf("h%d", i),
			TaskIDs:           []string{"x"},
			EstimatedDuration: 2 * time.Hour,
			ActualDuration:    time.Hour,
			Success:           true,
		})
	}

	tasks := []plan.Task{
		simpleTask("x", plan.PriorityMedium, plan.CategoryImplementation, time.Hour),
		simpleTask("y", plan.PriorityMedium, plan.CategoryTesting, time.Hour),
	}
	result, err := o.Optimize(tasks, nil, nil)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if result.Strategy != StrategyMachineLearning {
		t.Fatalf("strategy = %s, want machine_learning with %d records", result.Strategy, minHistoryForML)
	}

	var matched, unmatched *plan.ExecutionGroup
	for i := range result.Groups {
		if result.Groups[i].Contains("x") {
			matched = &result.Groups[i]
		} else {
			unmatched = &result.Groups[i]
		}
	}
	if matched == nil || unmatched == nil {
		t.Fatalf("groups = %v, want x and y split by category", groupShapes(result.Groups))
	}
	if matched.Confidence != 1 {
		t.Errorf("matched group confidence = %v, want 1 from history efficiency", matched.Confidence)
	}
	if unmatched.Confidence != sizeDecayConfidence(1) {
		t.Errorf("unmatched group confidence = %v, want size-decay default %v",
			unmatched.Confidence, sizeDecayConfidence(1))
	}
}
