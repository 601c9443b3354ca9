// Package analyze infers missing task dependencies from multiple signal
// sources.
//
// The analyzer runs four independent detectors — semantic word-overlap,
// temporal proximity, exclusive-resource sharing, and category-pair pattern
// rules — over a task set and its known dependencies, merges their votes
// into confidence-scored suggestions, detects conflicts in the combined edge
// set, and estimates the performance impact of the result. Results are
// cached by a content hash of the input task and edge ids.
package analyze

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/parplan/parplan/config"
	"github.com/parplan/parplan/errors"
	"github.com/parplan/parplan/event"
	"github.com/parplan/parplan/internal/hash"
	"github.com/parplan/parplan/logging"
	"github.com/parplan/parplan/plan"
)

// Analyzer is the dependency analyzer component.
type Analyzer struct {
	mu       sync.Mutex
	cfg      config.AnalyzerConfig
	patterns *Registry
	cache    map[string]*Result
	history  map[string]*PatternStat // "dependentCat->prerequisiteCat"

	logger *logging.Logger
	bus    *event.Bus
	now    func() time.Time
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *logging.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l.WithComponent("analyzer")
		}
	}
}

// WithBus sets the event bus analysis completions are published to.
func WithBus(b *event.Bus) Option {
	return func(a *Analyzer) { a.bus = b }
}

// WithClock injects the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		if now != nil {
			a.now = now
		}
	}
}

// WithRegistry replaces the built-in pattern rule registry.
func WithRegistry(r *Registry) Option {
	return func(a *Analyzer) {
		if r != nil {
			a.patterns = r
		}
	}
}

// New creates an Analyzer. The configuration is validated eagerly: invalid
// weights or thresholds return a *errors.ConfigurationError here rather than
// failing on the first Analyze call. When cfg names a pattern rules file it
// is loaded on top of the built-in rules.
func New(cfg config.AnalyzerConfig, opts ...Option) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Analyzer{
		cfg:      cfg,
		patterns: DefaultRegistry(),
		cache:    make(map[string]*Result),
		history:  make(map[string]*PatternStat),
		logger:   logging.Nop().WithComponent("analyzer"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	if cfg.PatternRulesFile != "" {
		if err := a.patterns.LoadFile(cfg.PatternRulesFile); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Analyze infers likely missing dependencies among tasks given the already
// known edges. Suggestions below the auto-create threshold are dropped from
// SuggestedDependencies but kept in ConfidenceScores. Identical inputs are
// served from the cache.
func (a *Analyzer) Analyze(tasks []plan.Task, existing []plan.Dependency, ctx *plan.Context) (*Result, error) {
	if len(tasks) == 0 {
		return nil, errors.NewValidationError("no tasks to analyze").
			WithField("tasks").WithCause(errors.ErrEmptyTaskSet)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	key := cacheKey(tasks, existing)
	if cached, ok := a.cache[key]; ok {
		a.logger.Debug("analysis served from cache", "tasks", len(tasks))
		if a.bus != nil {
			a.bus.Publish(event.NewAnalysisCompletedEvent(
				len(tasks), len(cached.SuggestedDependencies), len(cached.Conflicts), true))
		}
		return cached, nil
	}

	signals := a.detect(tasks, existing, ctx)
	suggested, scores := a.merge(signals)

	combined := make([]plan.Dependency, 0, len(existing)+len(suggested))
	combined = append(combined, existing...)
	combined = append(combined, suggested...)

	result := &Result{
		SuggestedDependencies: suggested,
		ConfidenceScores:      scores,
		Conflicts:             a.findConflicts(tasks, combined),
		Impact:                a.assessImpact(tasks, suggested, combined),
		AnalyzedAt:            a.now(),
	}
	result.Optimizations = a.suggestOptimizations(result, suggested)

	a.cache[key] = result
	a.logger.Debug("analysis complete",
		"tasks", len(tasks),
		"suggestions", len(suggested),
		"conflicts", len(result.Conflicts))
	if a.bus != nil {
		a.bus.Publish(event.NewAnalysisCompletedEvent(
			len(tasks), len(suggested), len(result.Conflicts), false))
	}
	return result, nil
}

// cacheKey hashes the sorted task ids and sorted edge keys.
func cacheKey(tasks []plan.Task, existing []plan.Dependency) string {
	taskIDs := make([]string, 0, len(tasks))
	for _, t := range tasks {
		taskIDs = append(taskIDs, t.ID)
	}
	sort.Strings(taskIDs)

	edgeKeys := make([]string, 0, len(existing))
	for _, d := range existing {
		edgeKeys = append(edgeKeys, d.Key())
	}
	sort.Strings(edgeKeys)

	parts := make([]string, 0, len(taskIDs)+len(edgeKeys))
	parts = append(parts, taskIDs...)
	parts = append(parts, edgeKeys...)
	return hash.Signature("analysis", parts...)
}

// detect runs all four detectors and collects their votes.
func (a *Analyzer) detect(tasks []plan.Task, existing []plan.Dependency, ctx *plan.Context) []signal {
	known := make(map[string]bool, len(existing))
	for _, d := range existing {
		known[d.Key()] = true
	}

	var signals []signal
	signals = append(signals, a.detectSemantic(tasks, known)...)
	signals = append(signals, a.detectTemporal(tasks, known)...)
	signals = append(signals, a.detectResource(tasks, known)...)
	signals = append(signals, a.detectPattern(tasks, known)...)
	return signals
}

// candidate accumulates detector votes for one (dependent, dependsOn) pair.
type candidate struct {
	dependent      string
	dependsOn      string
	depType        plan.DependencyType
	bestScore      float64
	reasons        []string
	parallelizable bool
	minDelay       time.Duration
	perSource      map[string]float64
}

// merge combines the signals per edge key: reasons joined, parallelizable
// ANDed, minimum delay maxed, type taken from the strongest contributing
// signal, and confidence blended from the per-source scores by the
// configured weights and multiplied by the type multiplier.
func (a *Analyzer) merge(signals []signal) ([]plan.Dependency, map[string]float64) {
	candidates := make(map[string]*candidate)
	for _, s := range signals {
		key := s.dep.Key()
		c, ok := candidates[key]
		if !ok {
			c = &candidate{
				dependent:      s.dep.DependentID,
				dependsOn:      s.dep.DependsOnID,
				depType:        s.dep.Type,
				bestScore:      s.score,
				parallelizable: true,
				perSource:      make(map[string]float64),
			}
			candidates[key] = c
		}
		if s.score > c.bestScore || c.depType == "" {
			c.bestScore = s.score
			c.depType = s.dep.Type
		}
		if s.dep.Reason != "" {
			c.reasons = append(c.reasons, s.dep.Reason)
		}
		c.parallelizable = c.parallelizable && s.dep.Parallelizable
		if s.dep.MinDelay > c.minDelay {
			c.minDelay = s.dep.MinDelay
		}
		if s.score > c.perSource[s.source] {
			c.perSource[s.source] = s.score
		}
	}

	keys := make([]string, 0, len(candidates))
	for key := range candidates {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	scores := make(map[string]float64, len(candidates))
	var suggested []plan.Dependency
	for _, key := range keys {
		c := candidates[key]
		confidence := a.blend(c)
		scores[key] = confidence
		if confidence < a.cfg.AutoCreateThreshold {
			continue
		}
		suggested = append(suggested, plan.Dependency{
			DependentID:    c.dependent,
			DependsOnID:    c.dependsOn,
			Type:           c.depType,
			Reason:         joinReasons(c.reasons),
			Parallelizable: c.parallelizable,
			MinDelay:       c.minDelay,
			Confidence:     confidence,
		})
	}
	return suggested, scores
}

// blend computes the weighted mean of the contributing per-source scores,
// scaled by the dependency type multiplier and clamped to [0, 1].
func (a *Analyzer) blend(c *candidate) float64 {
	weightFor := map[string]float64{
		SourceSemantic: a.cfg.SemanticWeight,
		SourceTemporal: a.cfg.TemporalWeight,
		SourceResource: a.cfg.ResourceWeight,
		SourcePattern:  a.cfg.PatternWeight,
	}
	weighted := 0.0
	totalWeight := 0.0
	for source, score := range c.perSource {
		w := weightFor[source]
		weighted += w * score
		totalWeight += w
	}
	if totalWeight == 0 {
		return 0
	}
	confidence := weighted / totalWeight * c.depType.Multiplier()
	if confidence > 1 {
		return 1
	}
	if confidence < 0 {
		return 0
	}
	return confidence
}

func joinReasons(reasons []string) string {
	out := ""
	for i, r := range reasons {
		if i > 0 {
			out += "; "
		}
		out += r
	}
	return out
}

// assessImpact estimates the performance consequences of the combined edges.
func (a *Analyzer) assessImpact(tasks []plan.Task, suggested, combined []plan.Dependency) PerformanceImpact {
	total := time.Duration(0)
	for _, t := range tasks {
		total += t.EstimatedDuration
	}
	mean := time.Duration(0)
	if len(tasks) > 0 {
		mean = total / time.Duration(len(tasks))
	}

	layers := countLayers(tasks, combined)

	hasInbound := make(map[string]bool)
	for _, d := range suggested {
		hasInbound[d.DependentID] = true
	}
	free := 0
	for _, t := range tasks {
		if !hasInbound[t.ID] {
			free++
		}
	}
	potential := 0.0
	if len(tasks) > 0 {
		potential = float64(free) / float64(len(tasks))
	}

	// Tasks with heavy fan-in serialize the schedule around them.
	fanIn := make(map[string]int)
	for _, d := range combined {
		fanIn[d.DependentID]++
	}
	var bottlenecks []string
	for _, t := range tasks {
		if fanIn[t.ID] >= 3 {
			bottlenecks = append(bottlenecks, t.ID)
		}
	}
	sort.Strings(bottlenecks)

	return PerformanceImpact{
		CriticalPathEstimate:     time.Duration(layers) * mean,
		TotalDuration:            total,
		ParallelizationPotential: potential,
		ResourceUtilization:      0.7, // planning-time estimate; execution reports the truth
		Bottlenecks:              bottlenecks,
	}
}

// countLayers computes the number of topological layers under the combined
// edge set. Tasks stuck in a cycle are counted as one extra layer.
func countLayers(tasks []plan.Task, combined []plan.Dependency) int {
	ids := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		ids[t.ID] = true
	}
	deps := make(map[string][]string)
	for _, d := range combined {
		if ids[d.DependentID] && ids[d.DependsOnID] {
			deps[d.DependentID] = append(deps[d.DependentID], d.DependsOnID)
		}
	}

	placed := make(map[string]bool, len(tasks))
	layers := 0
	for len(placed) < len(tasks) {
		var ready []string
		for _, t := range tasks {
			if placed[t.ID] {
				continue
			}
			ok := true
			for _, dep := range deps[t.ID] {
				if !placed[dep] {
					ok = false
					break
				}
			}
			if ok {
				ready = append(ready, t.ID)
			}
		}
		if len(ready) == 0 {
			return layers + 1 // cycle: everything left is one stuck layer
		}
		for _, id := range ready {
			placed[id] = true
		}
		layers++
	}
	return layers
}

// suggestOptimizations derives free-text improvement notes from the result.
func (a *Analyzer) suggestOptimizations(result *Result, suggested []plan.Dependency) []string {
	var notes []string
	if result.Impact.ParallelizationPotential > 0.3 {
		notes = append(notes, fmt.Sprintf(
			"%.0f%% of tasks have no inbound dependency; run them in parallel",
			result.Impact.ParallelizationPotential*100))
	}
	soft := 0
	for _, d := range suggested {
		if d.Type == plan.DependencySoft {
			soft++
		}
	}
	if soft > 0 {
		notes = append(notes, fmt.Sprintf(
			"%d soft dependencies could be removed to increase parallelism", soft))
	}
	if result.Impact.ResourceUtilization < 0.6 {
		notes = append(notes, "resource utilization is low; consider reallocating capacity")
	}
	return notes
}

// -----------------------------------------------------------------------------
// Learning
// -----------------------------------------------------------------------------

// RecordAcceptedSuggestion updates the per-category-pair acceptance history.
// The history is unbounded and only exposed for inspection; it does not feed
// back into detector weights.
func (a *Analyzer) RecordAcceptedSuggestion(dependent, dependsOn plan.Category, confidence float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := dependent.String() + "->" + dependsOn.String()
	stat, ok := a.history[key]
	if !ok {
		stat = &PatternStat{}
		a.history[key] = stat
	}
	stat.MeanConfidence = (stat.MeanConfidence*float64(stat.Occurrences) + confidence) / float64(stat.Occurrences+1)
	stat.Occurrences++
}

// PatternHistory returns a copy of the acceptance history, keyed by
// "dependentCategory->prerequisiteCategory".
func (a *Analyzer) PatternHistory() map[string]PatternStat {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[string]PatternStat, len(a.history))
	for k, v := range a.history {
		out[k] = *v
	}
	return out
}
