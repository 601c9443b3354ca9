// Package schedule partitions task sets into resource-bounded concurrent
// execution groups.
//
// The Optimizer runs one of six grouping strategies over a task set and its
// dependencies, validates the resulting plan, compares it against alternative
// strategies, and packages everything into a Result with a natural-language
// audit Decision. Execution outcomes reported back through RecordExecution
// feed the machine-learning strategy and the predictive model.
package schedule

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/parplan/parplan/analyze"
	"github.com/parplan/parplan/config"
	"github.com/parplan/parplan/errors"
	"github.com/parplan/parplan/event"
	"github.com/parplan/parplan/logging"
	"github.com/parplan/parplan/plan"
)

// Grouping strategies. The set is closed: strategy dispatch is an explicit
// switch, not a registry.
const (
	StrategyMaxParallelism   = "max_parallelism"
	StrategyResourceBalanced = "resource_balanced"
	StrategyDependencyAware  = "dependency_aware"
	StrategyPriorityGrouped  = "priority_grouped"
	StrategyAdaptiveDynamic  = "adaptive_dynamic"
	StrategyMachineLearning  = "machine_learning"
)

// minHistoryForML is the number of execution records the machine-learning
// strategy needs before it stops falling back to adaptive_dynamic.
const minHistoryForML = 5

// Metrics summarizes one candidate plan.
type Metrics struct {
	// TotalTime is the estimated wall time: the sum of group durations,
	// because groups run sequentially.
	TotalTime time.Duration `json:"total_time"`

	// ParallelizationFactor is 1 when everything fits one group and 0 when
	// every task runs alone, in [0, 1].
	ParallelizationFactor float64 `json:"parallelization_factor"`

	// MeanUtilization is the mean fractional pool usage across groups.
	MeanUtilization float64 `json:"mean_utilization"`
}

// Validation reports whether a plan honors its structural invariants.
type Validation struct {
	// Valid is true when no violations were found.
	Valid bool `json:"valid"`

	// Violations lists every invariant the plan breaks.
	Violations []string `json:"violations,omitempty"`
}

// AlternativePlan is a candidate plan produced by a strategy that was not
// selected, kept for comparison.
type AlternativePlan struct {
	Strategy string                `json:"strategy"`
	Groups   []plan.ExecutionGroup `json:"groups"`
	Metrics  Metrics               `json:"metrics"`
}

// Result is the output of one optimization.
type Result struct {
	// Strategy is the strategy that produced the selected groups. It can
	// differ from the configured strategy when machine_learning fell back or
	// adaptive_dynamic delegated.
	Strategy string `json:"strategy"`

	// Groups is the ordered execution plan. Every input task appears in
	// exactly one group.
	Groups []plan.ExecutionGroup `json:"groups"`

	// Analysis is the dependency analysis the plan was built on, when an
	// analyzer is attached.
	Analysis *analyze.Result `json:"analysis,omitempty"`

	// Contentions lists resource conflicts detected across the task set.
	Contentions []Contention `json:"contentions,omitempty"`

	// Validation reports the plan's structural soundness.
	Validation Validation `json:"validation"`

	// Metrics summarizes the selected plan.
	Metrics Metrics `json:"metrics"`

	// Alternatives holds up to two plans from other strategies.
	Alternatives []AlternativePlan `json:"alternatives,omitempty"`

	// Confidence estimates how likely the plan is sound, in [0, 1].
	Confidence float64 `json:"confidence"`

	// Decision is the audit record for this optimization.
	Decision plan.Decision `json:"decision"`
}

// plannedGroup remembers what produced a group, so a later execution record
// can be attributed to the right predictive-model features.
type plannedGroup struct {
	strategy string
	category plan.Category
}

// Optimizer partitions tasks into concurrent execution groups.
// All state is guarded by one mutex; every operation is synchronous.
type Optimizer struct {
	mu       sync.Mutex
	cfg      config.OptimizerConfig
	pools    map[string]plan.ResourcePool
	analyzer *analyze.Analyzer
	history  []plan.ExecutionRecord
	weights  map[string]float64
	planned  map[string]plannedGroup

	logger *logging.Logger
	bus    *event.Bus
	now    func() time.Time
	newID  func() string
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *Optimizer) {
		if l != nil {
			o.logger = l.WithComponent("optimizer")
		}
	}
}

// WithBus sets the event bus plans and execution records are published to.
func WithBus(b *event.Bus) Option {
	return func(o *Optimizer) { o.bus = b }
}

// WithAnalyzer attaches a dependency analyzer. When set, Optimize merges the
// analyzer's suggested edges into the dependency set before grouping.
func WithAnalyzer(a *analyze.Analyzer) Option {
	return func(o *Optimizer) { o.analyzer = a }
}

// WithClock injects the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(o *Optimizer) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator injects the group/decision id source, for deterministic
// tests.
func WithIDGenerator(gen func() string) Option {
	return func(o *Optimizer) {
		if gen != nil {
			o.newID = gen
		}
	}
}

// New creates an Optimizer. The configuration is validated eagerly; an empty
// pool list takes the defaults and an empty strategy means adaptive_dynamic.
func New(cfg config.OptimizerConfig, opts ...Option) (*Optimizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyAdaptiveDynamic
	}
	if len(cfg.Pools) == 0 {
		cfg.Pools = config.Default().Optimizer.Pools
	}

	o := &Optimizer{
		cfg:     cfg,
		pools:   poolsFromConfig(cfg.Pools),
		weights: make(map[string]float64),
		planned: make(map[string]plannedGroup),
		logger:  logging.Nop().WithComponent("optimizer"),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Optimize partitions tasks into ordered execution groups. The pipeline runs
// analysis, contention detection, strategy dispatch, validation, alternative
// comparison, and decision building; it fails only on an empty task set or a
// broken strategy selection, never on a merely poor plan.
func (o *Optimizer) Optimize(tasks []plan.Task, deps []plan.Dependency, ctx *plan.Context) (*Result, error) {
	if len(tasks) == 0 {
		return nil, errors.NewValidationError("no tasks to optimize").
			WithField("tasks").WithCause(errors.ErrEmptyTaskSet)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	effective := deps
	var analysis *analyze.Result
	if o.analyzer != nil {
		var err error
		analysis, err = o.analyzer.Analyze(tasks, deps, ctx)
		if err != nil {
			o.logger.Warn("dependency analysis failed, planning on declared edges only", "error", err)
		} else {
			effective = make([]plan.Dependency, 0, len(deps)+len(analysis.SuggestedDependencies))
			effective = append(effective, deps...)
			effective = append(effective, analysis.SuggestedDependencies...)
		}
	}

	contentions := o.detectContentions(tasks)

	strategy := o.cfg.Strategy
	if !isKnownStrategy(strategy) {
		o.logger.Warn("unknown strategy, falling back to adaptive_dynamic", "strategy", strategy)
		strategy = StrategyAdaptiveDynamic
	}
	groups, used, err := o.runStrategy(strategy, tasks, effective, ctx)
	if err != nil {
		return nil, err
	}

	validation := o.validate(tasks, effective, groups)
	metrics := o.computeMetrics(tasks, groups)
	alternatives := o.buildAlternatives(used, tasks, effective, ctx)
	confidence := o.planConfidence(metrics, validation, groups, contentions)

	result := &Result{
		Strategy:     used,
		Groups:       groups,
		Analysis:     analysis,
		Contentions:  contentions,
		Validation:   validation,
		Metrics:      metrics,
		Alternatives: alternatives,
		Confidence:   confidence,
	}
	result.Decision = o.buildDecision(result, tasks)

	for _, g := range groups {
		o.planned[g.ID] = plannedGroup{strategy: used, category: dominantCategory(tasks, g)}
	}

	o.logger.Info("plan computed",
		"strategy", used,
		"tasks", len(tasks),
		"groups", len(groups),
		"total_time", metrics.TotalTime,
		"confidence", confidence)
	if o.bus != nil {
		o.bus.Publish(event.NewPlanComputedEvent(used, len(tasks), len(groups), metrics.TotalTime, confidence))
	}
	return result, nil
}

func isKnownStrategy(s string) bool {
	switch s {
	case StrategyMaxParallelism, StrategyResourceBalanced, StrategyDependencyAware,
		StrategyPriorityGrouped, StrategyAdaptiveDynamic, StrategyMachineLearning:
		return true
	default:
		return false
	}
}

// buildAlternatives runs up to two other base strategies for comparison. A
// strategy that fails is logged and omitted; alternatives never fail the
// optimization.
func (o *Optimizer) buildAlternatives(used string, tasks []plan.Task, deps []plan.Dependency, ctx *plan.Context) []AlternativePlan {
	order := []string{
		StrategyDependencyAware,
		StrategyResourceBalanced,
		StrategyPriorityGrouped,
		StrategyMaxParallelism,
	}
	var alternatives []AlternativePlan
	for _, s := range order {
		if s == used || len(alternatives) == 2 {
			continue
		}
		groups, _, err := o.runStrategy(s, tasks, deps, ctx)
		if err != nil {
			o.logger.Warn("alternative strategy failed", "strategy", s, "error", err)
			continue
		}
		alternatives = append(alternatives, AlternativePlan{
			Strategy: s,
			Groups:   groups,
			Metrics:  o.computeMetrics(tasks, groups),
		})
	}
	return alternatives
}

// -----------------------------------------------------------------------------
// Validation and metrics
// -----------------------------------------------------------------------------

// validate checks the plan's structural invariants: exact coverage, respected
// dependency ordering, the concurrency bound, and pool capacity.
func (o *Optimizer) validate(tasks []plan.Task, deps []plan.Dependency, groups []plan.ExecutionGroup) Validation {
	var violations []string

	groupOf := make(map[string]int)
	for i, g := range groups {
		if g.Size() > o.cfg.MaxConcurrency {
			violations = append(violations, fmt.Sprintf(
				"group %d holds %d tasks, above the concurrency bound %d", i, g.Size(), o.cfg.MaxConcurrency))
		}
		for _, name := range sortedAllocationNames(g.Allocations) {
			pool, known := o.pools[name]
			if known && g.Allocations[name] > pool.Capacity {
				violations = append(violations, fmt.Sprintf(
					"group %d requests %.1f of %s, above the pool capacity %.1f",
					i, g.Allocations[name], name, pool.Capacity))
			}
		}
		for _, id := range g.TaskIDs {
			if prev, seen := groupOf[id]; seen {
				violations = append(violations, fmt.Sprintf(
					"task %s appears in groups %d and %d", id, prev, i))
				continue
			}
			groupOf[id] = i
		}
	}
	for _, t := range tasks {
		if _, ok := groupOf[t.ID]; !ok {
			violations = append(violations, fmt.Sprintf("task %s is missing from the plan", t.ID))
		}
	}

	for _, d := range deps {
		dependent, ok1 := groupOf[d.DependentID]
		prerequisite, ok2 := groupOf[d.DependsOnID]
		if !ok1 || !ok2 {
			continue
		}
		if prerequisite < dependent {
			continue
		}
		if prerequisite == dependent && d.Parallelizable {
			continue
		}
		violations = append(violations, fmt.Sprintf(
			"dependency %s is not honored by the group order", d.Key()))
	}

	return Validation{Valid: len(violations) == 0, Violations: violations}
}

// sortedAllocationNames keeps capacity violations in a stable order.
func sortedAllocationNames(allocations map[string]float64) []string {
	names := make([]string, 0, len(allocations))
	for name := range allocations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// computeMetrics summarizes a candidate plan.
func (o *Optimizer) computeMetrics(tasks []plan.Task, groups []plan.ExecutionGroup) Metrics {
	total := time.Duration(0)
	utilSum := 0.0
	for _, g := range groups {
		total += g.EstimatedDuration
		utilSum += o.groupUtilization(g)
	}

	factor := 0.0
	if len(tasks) > 1 && len(groups) > 0 {
		factor = float64(len(tasks)-len(groups)) / float64(len(tasks)-1)
		if factor < 0 {
			factor = 0
		}
	}
	meanUtil := 0.0
	if len(groups) > 0 {
		meanUtil = utilSum / float64(len(groups))
	}
	return Metrics{
		TotalTime:             total,
		ParallelizationFactor: factor,
		MeanUtilization:       meanUtil,
	}
}

// groupUtilization is the mean fractional usage of the pools the group
// touches. A group with no resource constraints reports zero.
func (o *Optimizer) groupUtilization(g plan.ExecutionGroup) float64 {
	if len(g.Allocations) == 0 {
		return 0
	}
	sum := 0.0
	counted := 0
	for name, alloc := range g.Allocations {
		pool, ok := o.pools[name]
		if !ok || pool.Capacity == 0 {
			continue
		}
		frac := alloc / pool.Capacity
		if frac > 1 {
			frac = 1
		}
		sum += frac
		counted++
	}
	if counted == 0 {
		return 0
	}
	return sum / float64(counted)
}

// planConfidence scores the selected plan: a 0.8 base, a parallelization
// bonus, a bonus for utilization in the healthy band, and a penalty per risk
// flag. A structurally invalid plan is forced to 0.3.
func (o *Optimizer) planConfidence(m Metrics, v Validation, groups []plan.ExecutionGroup, contentions []Contention) float64 {
	if !v.Valid {
		return 0.3
	}
	risks := len(contentions)
	for _, g := range groups {
		risks += len(g.Risks)
	}

	confidence := 0.8 + 0.1*m.ParallelizationFactor
	if m.MeanUtilization >= 0.6 && m.MeanUtilization <= 0.9 {
		confidence += 0.1
	}
	penalty := 0.02 * float64(risks)
	if penalty > 0.2 {
		penalty = 0.2
	}
	confidence -= penalty

	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}

// -----------------------------------------------------------------------------
// Decision
// -----------------------------------------------------------------------------

// buildDecision assembles the audit record for a computed plan.
func (o *Optimizer) buildDecision(r *Result, tasks []plan.Task) plan.Decision {
	priority := plan.PriorityLow
	for _, t := range tasks {
		if t.Priority.HigherThan(priority) {
			priority = t.Priority
		}
	}

	reasoning := fmt.Sprintf(
		"the %s strategy packs %d tasks into %d groups for an estimated %s of sequential group time, "+
			"with a parallelization factor of %.2f and mean pool utilization of %.0f%%",
		r.Strategy, len(tasks), len(r.Groups),
		r.Metrics.TotalTime.Round(time.Second),
		r.Metrics.ParallelizationFactor,
		r.Metrics.MeanUtilization*100)
	if len(r.Contentions) > 0 {
		reasoning += fmt.Sprintf("; %d resource contention(s) need resolution before execution", len(r.Contentions))
	}
	if !r.Validation.Valid {
		reasoning += fmt.Sprintf("; the plan carries %d validation violation(s)", len(r.Validation.Violations))
	}

	var alternatives []plan.Alternative
	for _, alt := range r.Alternatives {
		alternatives = append(alternatives, plan.Alternative{
			Choice:     fmt.Sprintf("use the %s strategy (%d groups, %s)", alt.Strategy, len(alt.Groups), alt.Metrics.TotalTime.Round(time.Second)),
			Confidence: 0.8 + 0.1*alt.Metrics.ParallelizationFactor,
			Reasoning: fmt.Sprintf("scored below the selected plan on time (%s vs %s) and parallelization (%.2f vs %.2f)",
				alt.Metrics.TotalTime.Round(time.Second), r.Metrics.TotalTime.Round(time.Second),
				alt.Metrics.ParallelizationFactor, r.Metrics.ParallelizationFactor),
		})
	}

	return plan.Decision{
		ID:         o.newID(),
		Choice:     fmt.Sprintf("partition %d tasks into %d parallel groups using %s", len(tasks), len(r.Groups), r.Strategy),
		Priority:   priority,
		Confidence: r.Confidence,
		Reasoning:  reasoning,
		Evidence: map[string]any{
			"strategy":               r.Strategy,
			"groups":                 len(r.Groups),
			"total_time":             r.Metrics.TotalTime.String(),
			"parallelization_factor": r.Metrics.ParallelizationFactor,
			"mean_utilization":       r.Metrics.MeanUtilization,
			"contentions":            len(r.Contentions),
			"valid":                  r.Validation.Valid,
		},
		ExpectedOutcome: fmt.Sprintf("execution completes in about %s across %d groups",
			r.Metrics.TotalTime.Round(time.Second), len(r.Groups)),
		Alternatives: alternatives,
		CreatedAt:    o.now(),
	}
}

// dominantCategory returns the most common category among the group's
// members, ties broken alphabetically.
func dominantCategory(tasks []plan.Task, g plan.ExecutionGroup) plan.Category {
	byID := make(map[string]plan.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	counts := make(map[plan.Category]int)
	for _, id := range g.TaskIDs {
		if t, ok := byID[id]; ok {
			counts[t.Category]++
		}
	}
	var best plan.Category
	bestCount := -1
	for c, n := range counts {
		if n > bestCount || (n == bestCount && c < best) {
			best, bestCount = c, n
		}
	}
	return best
}
