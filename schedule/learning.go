package schedule

import (
	"sort"

	"github.com/parplan/parplan/event"
	"github.com/parplan/parplan/plan"
)

// Predictive-model weight bounds. Weights start at 1 and drift with observed
// performance, never below 0.1 or above 2.
const (
	weightFloor   = 0.1
	weightCeiling = 2.0
	weightInitial = 1.0
)

// RecordExecution feeds an executed group's outcome back into the optimizer:
// the record joins the history ring (oldest evicted at the configured limit)
// and the predictive-model weights for the group's strategy and dominant
// category shift toward the observed performance.
func (o *Optimizer) RecordExecution(record plan.ExecutionRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if record.EstimatedDuration > 0 {
		record.Efficiency = record.ActualDuration.Seconds() / record.EstimatedDuration.Seconds()
	} else {
		record.Efficiency = 1
	}
	if record.Efficiency > 2 {
		record.Efficiency = 2
	}
	if record.RecordedAt.IsZero() {
		record.RecordedAt = o.now()
	}

	o.history = append(o.history, record)
	if len(o.history) > o.cfg.HistoryLimit {
		o.history = o.history[len(o.history)-o.cfg.HistoryLimit:]
	}

	o.updatePredictiveModel(record)

	o.logger.Debug("execution recorded",
		"group", record.GroupID,
		"success", record.Success,
		"efficiency", record.Efficiency,
		"history", len(o.history))
	if o.bus != nil {
		o.bus.Publish(event.NewExecutionRecordedEvent(record.GroupID, record.Success, record.Efficiency))
	}
}

// updatePredictiveModel nudges the feature weights for the record's group.
// Performance above 0.5 raises the weights, below lowers them; a failed run
// counts as 0.2 regardless of timing.
func (o *Optimizer) updatePredictiveModel(record plan.ExecutionRecord) {
	performance := 0.2
	if record.Success {
		performance = 2 - record.Efficiency
		if performance > 1 {
			performance = 1
		}
		if performance < 0 {
			performance = 0
		}
	}

	for _, feature := range o.featuresFor(record) {
		w, ok := o.weights[feature]
		if !ok {
			w = weightInitial
		}
		w += o.cfg.LearningRate * (performance - 0.5)
		if w < weightFloor {
			w = weightFloor
		}
		if w > weightCeiling {
			w = weightCeiling
		}
		o.weights[feature] = w
	}
}

// featuresFor derives the model features of a record from the planned-group
// registry. A record for a group the optimizer never planned has nothing to
// attribute and yields no features.
func (o *Optimizer) featuresFor(record plan.ExecutionRecord) []string {
	pg, ok := o.planned[record.GroupID]
	if !ok {
		return nil
	}
	features := []string{"strategy:" + pg.strategy}
	if pg.category != "" {
		features = append(features, "category:"+pg.category.String())
	}
	return features
}

// History returns a copy of the execution-history ring, oldest first.
func (o *Optimizer) History() []plan.ExecutionRecord {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]plan.ExecutionRecord, len(o.history))
	copy(out, o.history)
	return out
}

// Weights returns a copy of the predictive-model weights, for inspection.
func (o *Optimizer) Weights() map[string]float64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make(map[string]float64, len(o.weights))
	for k, v := range o.weights {
		out[k] = v
	}
	return out
}

// Features returns the sorted feature names the model has weights for.
func (o *Optimizer) Features() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]string, 0, len(o.weights))
	for k := range o.weights {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
