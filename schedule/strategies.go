package schedule

import (
	"fmt"
	"sort"

	"github.com/parplan/parplan/errors"
	"github.com/parplan/parplan/plan"
)

// runStrategy dispatches to one of the six strategies and returns the groups
// plus the strategy that actually produced them. The set is closed: adding a
// strategy means extending this switch.
func (o *Optimizer) runStrategy(strategy string, tasks []plan.Task, deps []plan.Dependency, ctx *plan.Context) ([]plan.ExecutionGroup, string, error) {
	switch strategy {
	case StrategyMaxParallelism:
		return o.maxParallelism(tasks, deps), StrategyMaxParallelism, nil
	case StrategyResourceBalanced:
		return o.resourceBalanced(tasks, deps), StrategyResourceBalanced, nil
	case StrategyDependencyAware:
		return o.dependencyAware(tasks, deps), StrategyDependencyAware, nil
	case StrategyPriorityGrouped:
		return o.priorityGrouped(tasks, deps), StrategyPriorityGrouped, nil
	case StrategyAdaptiveDynamic:
		groups, selected, err := o.selectBestResult(tasks, deps, ctx)
		return groups, selected, err
	case StrategyMachineLearning:
		return o.machineLearning(tasks, deps, ctx)
	default:
		return nil, "", errors.NewComputationError(
			"strategy dispatch reached an unrecognized strategy", errors.ErrUnknownStrategy).
			WithOperation("runStrategy").WithPhase(strategy)
	}
}

// -----------------------------------------------------------------------------
// Layering
// -----------------------------------------------------------------------------

// prerequisiteIndex maps each task id to its prerequisites among the given
// tasks. Edges referencing tasks outside the set are dropped.
func prerequisiteIndex(tasks []plan.Task, deps []plan.Dependency) map[string][]string {
	ids := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		ids[t.ID] = true
	}
	index := make(map[string][]string)
	for _, d := range deps {
		if ids[d.DependentID] && ids[d.DependsOnID] {
			index[d.DependentID] = append(index[d.DependentID], d.DependsOnID)
		}
	}
	return index
}

// readyTasks returns the unplaced tasks whose prerequisites are all placed,
// sorted by priority (highest first) then id.
func readyTasks(tasks []plan.Task, prereqs map[string][]string, placed map[string]bool) []plan.Task {
	var ready []plan.Task
	for _, t := range tasks {
		if placed[t.ID] {
			continue
		}
		ok := true
		for _, p := range prereqs[t.ID] {
			if !placed[p] {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, t)
		}
	}
	sort.SliceStable(ready, func(i, j int) bool {
		if ready[i].Priority.Rank() != ready[j].Priority.Rank() {
			return ready[i].Priority.Rank() > ready[j].Priority.Rank()
		}
		return ready[i].ID < ready[j].ID
	})
	return ready
}

// unplacedTasks returns the tasks not yet placed, sorted by id.
func unplacedTasks(tasks []plan.Task, placed map[string]bool) []plan.Task {
	var out []plan.Task
	for _, t := range tasks {
		if !placed[t.ID] {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// -----------------------------------------------------------------------------
// Group construction
// -----------------------------------------------------------------------------

// newGroup builds an execution group for the given members. Allocations take
// the per-resource maximum across members, never the sum, because members run
// concurrently and each holds at most its own peak. Duration is the longest
// member; priority the highest; satisfied dependencies are the edges whose
// prerequisite sits in an earlier group.
func (o *Optimizer) newGroup(members []plan.Task, deps []plan.Dependency, placedBefore map[string]bool, risks []string) plan.ExecutionGroup {
	g := plan.ExecutionGroup{
		ID:       o.newID(),
		Priority: plan.PriorityLow,
		Risks:    risks,
	}

	allocations := make(map[string]float64)
	inGroup := make(map[string]bool, len(members))
	for _, t := range members {
		g.TaskIDs = append(g.TaskIDs, t.ID)
		inGroup[t.ID] = true
		if t.EstimatedDuration > g.EstimatedDuration {
			g.EstimatedDuration = t.EstimatedDuration
		}
		if t.Priority.HigherThan(g.Priority) {
			g.Priority = t.Priority
		}
		for _, rc := range t.Resources {
			if rc.MaxUnits > allocations[rc.Resource] {
				allocations[rc.Resource] = rc.MaxUnits
			}
		}
	}
	if len(allocations) > 0 {
		g.Allocations = allocations
	}

	for _, d := range deps {
		if inGroup[d.DependentID] && placedBefore[d.DependsOnID] {
			g.SatisfiedDependencies = append(g.SatisfiedDependencies, d.Key())
		}
	}
	sort.Strings(g.SatisfiedDependencies)

	for name, alloc := range allocations {
		if pool, ok := o.pools[name]; ok && alloc > pool.Capacity {
			g.Risks = append(g.Risks, fmt.Sprintf(
				"allocation of %s exceeds the %s pool capacity (%.1f > %.1f)",
				name, name, alloc, pool.Capacity))
		}
	}
	sort.Strings(g.Risks)

	g.Confidence = sizeDecayConfidence(len(members))
	return g
}

// sizeDecayConfidence scores a group by size: a lone task is near-certain,
// each extra concurrent member shaves a little off, floored at 0.4.
func sizeDecayConfidence(size int) float64 {
	c := 0.9 - 0.05*float64(size-1)
	if c < 0.4 {
		return 0.4
	}
	return c
}

// stallGroup sweeps the remaining tasks into one final group when layering
// stops making progress (a cycle in the effective edges). Coverage is
// preserved; the group carries a risk note instead of the plan failing.
func (o *Optimizer) stallGroup(tasks []plan.Task, deps []plan.Dependency, placed map[string]bool) plan.ExecutionGroup {
	remaining := unplacedTasks(tasks, placed)
	g := o.newGroup(remaining, deps, placed, []string{
		"tasks are mutually blocked by a dependency cycle; execute with manual ordering",
	})
	for _, t := range remaining {
		placed[t.ID] = true
	}
	return g
}

// -----------------------------------------------------------------------------
// max_parallelism
// -----------------------------------------------------------------------------

// maxParallelism runs as much as possible at once: every wave takes the full
// ready set and chunks it by the concurrency bound, ignoring resource
// headroom.
func (o *Optimizer) maxParallelism(tasks []plan.Task, deps []plan.Dependency) []plan.ExecutionGroup {
	prereqs := prerequisiteIndex(tasks, deps)
	placed := make(map[string]bool, len(tasks))
	var groups []plan.ExecutionGroup

	for len(placed) < len(tasks) {
		ready := readyTasks(tasks, prereqs, placed)
		if len(ready) == 0 {
			groups = append(groups, o.stallGroup(tasks, deps, placed))
			break
		}
		before := copySet(placed)
		for start := 0; start < len(ready); start += o.cfg.MaxConcurrency {
			end := start + o.cfg.MaxConcurrency
			if end > len(ready) {
				end = len(ready)
			}
			groups = append(groups, o.newGroup(ready[start:end], deps, before, nil))
		}
		for _, t := range ready {
			placed[t.ID] = true
		}
	}
	return groups
}

// -----------------------------------------------------------------------------
// resource_balanced
// -----------------------------------------------------------------------------

// resourceBalanced packs each ready wave into groups that respect pool
// headroom: a task joins the open group only while the group stays under the
// concurrency bound, under capacity times target utilization on every pool it
// uses, and alone on any non-shareable pool. A task too big for the headroom
// still gets placed, alone, so coverage never breaks.
func (o *Optimizer) resourceBalanced(tasks []plan.Task, deps []plan.Dependency) []plan.ExecutionGroup {
	prereqs := prerequisiteIndex(tasks, deps)
	placed := make(map[string]bool, len(tasks))
	var groups []plan.ExecutionGroup

	for len(placed) < len(tasks) {
		ready := readyTasks(tasks, prereqs, placed)
		if len(ready) == 0 {
			groups = append(groups, o.stallGroup(tasks, deps, placed))
			break
		}
		before := copySet(placed)
		groups = append(groups, o.packWave(ready, deps, before)...)
		for _, t := range ready {
			placed[t.ID] = true
		}
	}
	return groups
}

// packWave bin-packs one ready wave under the resource admission rules.
func (o *Optimizer) packWave(ready []plan.Task, deps []plan.Dependency, before map[string]bool) []plan.ExecutionGroup {
	var groups []plan.ExecutionGroup
	var current []plan.Task

	flush := func() {
		if len(current) > 0 {
			groups = append(groups, o.newGroup(current, deps, before, nil))
			current = nil
		}
	}

	for _, t := range ready {
		if len(current) > 0 && !o.admits(current, t) {
			flush()
		}
		current = append(current, t)
		if len(current) == o.cfg.MaxConcurrency {
			flush()
		}
	}
	flush()
	return groups
}

// admits reports whether task t can join the open group: the combined
// per-resource maximum must stay under capacity times target utilization, and
// a non-shareable pool admits only one user per group.
func (o *Optimizer) admits(current []plan.Task, t plan.Task) bool {
	for _, rc := range t.Resources {
		pool, known := o.pools[rc.Resource]
		if !known {
			continue
		}
		if !pool.Shareable {
			for _, member := range current {
				if member.Requirement(rc.Resource) > 0 {
					return false
				}
			}
		}
		peak := rc.MaxUnits
		for _, member := range current {
			if r := member.Requirement(rc.Resource); r > peak {
				peak = r
			}
		}
		if peak > pool.Capacity*o.cfg.TargetUtilization {
			return false
		}
	}
	return true
}

// -----------------------------------------------------------------------------
// dependency_aware
// -----------------------------------------------------------------------------

// dependencyAware computes full topological layers first, then bin-packs each
// layer under the resource admission rules. Layers never mix, so every
// dependency crosses a group boundary.
func (o *Optimizer) dependencyAware(tasks []plan.Task, deps []plan.Dependency) []plan.ExecutionGroup {
	prereqs := prerequisiteIndex(tasks, deps)
	placed := make(map[string]bool, len(tasks))
	var groups []plan.ExecutionGroup

	for len(placed) < len(tasks) {
		layer := readyTasks(tasks, prereqs, placed)
		if len(layer) == 0 {
			groups = append(groups, o.stallGroup(tasks, deps, placed))
			break
		}
		before := copySet(placed)
		groups = append(groups, o.packWave(layer, deps, before)...)
		for _, t := range layer {
			placed[t.ID] = true
		}
	}
	return groups
}

// -----------------------------------------------------------------------------
// priority_grouped
// -----------------------------------------------------------------------------

// priorityGrouped drains priority buckets from critical down to low. Within a
// bucket, tasks are layered over the bucket-internal dependencies and chunked
// by the concurrency bound; dependencies on higher-priority work are
// satisfied for free by the bucket order, and dependencies on lower-priority
// work surface later as validation violations.
func (o *Optimizer) priorityGrouped(tasks []plan.Task, deps []plan.Dependency) []plan.ExecutionGroup {
	placed := make(map[string]bool, len(tasks))
	var groups []plan.ExecutionGroup

	for _, priority := range plan.Priorities() {
		var bucket []plan.Task
		for _, t := range tasks {
			if t.Priority == priority {
				bucket = append(bucket, t)
			}
		}
		if len(bucket) == 0 {
			continue
		}

		prereqs := prerequisiteIndex(bucket, deps)
		bucketPlaced := make(map[string]bool, len(bucket))
		for len(bucketPlaced) < len(bucket) {
			ready := readyTasks(bucket, prereqs, bucketPlaced)
			if len(ready) == 0 {
				ready = unplacedTasks(bucket, bucketPlaced)
			}
			before := copySet(placed)
			for start := 0; start < len(ready); start += o.cfg.MaxConcurrency {
				end := start + o.cfg.MaxConcurrency
				if end > len(ready) {
					end = len(ready)
				}
				groups = append(groups, o.newGroup(ready[start:end], deps, before, nil))
			}
			for _, t := range ready {
				bucketPlaced[t.ID] = true
				placed[t.ID] = true
			}
		}
	}

	// Tasks with an unrecognized priority still need a home.
	if leftovers := unplacedTasks(tasks, placed); len(leftovers) > 0 {
		before := copySet(placed)
		for start := 0; start < len(leftovers); start += o.cfg.MaxConcurrency {
			end := start + o.cfg.MaxConcurrency
			if end > len(leftovers) {
				end = len(leftovers)
			}
			groups = append(groups, o.newGroup(leftovers[start:end], deps, before, nil))
		}
	}
	return groups
}

// -----------------------------------------------------------------------------
// adaptive_dynamic
// -----------------------------------------------------------------------------

// strategyWeight pairs a base strategy with its selection weight.
type strategyWeight struct {
	strategy string
	weight   float64
}

// selectBestResult runs the four base strategies and picks the one with the
// best weighted score. Weights favor dependency awareness, shifted toward
// resource balancing under high CPU load and toward raw parallelism under a
// deep pending queue. A base strategy that fails is skipped; zero surviving
// candidates is an internal error.
func (o *Optimizer) selectBestResult(tasks []plan.Task, deps []plan.Dependency, ctx *plan.Context) ([]plan.ExecutionGroup, string, error) {
	candidates := []strategyWeight{
		{StrategyDependencyAware, 0.4},
		{StrategyResourceBalanced, 0.3},
		{StrategyPriorityGrouped, 0.2},
		{StrategyMaxParallelism, 0.1},
	}
	for i := range candidates {
		if candidates[i].strategy == StrategyResourceBalanced && ctx.CPULoad() > 0.8 {
			candidates[i].weight += 0.2
		}
		if candidates[i].strategy == StrategyMaxParallelism && ctx.Pending() > 20 {
			candidates[i].weight += 0.15
		}
	}

	bestScore := -1.0
	var bestGroups []plan.ExecutionGroup
	var bestStrategy string
	for _, c := range candidates {
		groups, _, err := o.runStrategy(c.strategy, tasks, deps, ctx)
		if err != nil {
			o.logger.Warn("candidate strategy failed during selection", "strategy", c.strategy, "error", err)
			continue
		}
		m := o.computeMetrics(tasks, groups)
		timeScore := 1 - m.TotalTime.Hours()
		if timeScore < 0 {
			timeScore = 0
		}
		score := c.weight * (0.4*m.ParallelizationFactor + 0.3*timeScore + 0.3*m.MeanUtilization)
		o.logger.Debug("candidate scored", "strategy", c.strategy, "score", score)
		if score > bestScore {
			bestScore = score
			bestGroups = groups
			bestStrategy = c.strategy
		}
	}
	if bestStrategy == "" {
		return nil, "", errors.NewComputationError(
			"no strategy results to select from", errors.ErrNoStrategyResults).
			WithOperation("selectBestResult")
	}
	return bestGroups, bestStrategy, nil
}

// -----------------------------------------------------------------------------
// machine_learning
// -----------------------------------------------------------------------------

// machineLearning groups greedily by (category, priority) and scores each
// group from execution history. With fewer than five records there is nothing
// to learn from yet, so it delegates to adaptive_dynamic.
func (o *Optimizer) machineLearning(tasks []plan.Task, deps []plan.Dependency, ctx *plan.Context) ([]plan.ExecutionGroup, string, error) {
	if len(o.history) < minHistoryForML {
		o.logger.Info("insufficient execution history for learning, using adaptive selection",
			"records", len(o.history), "needed", minHistoryForML)
		return o.selectBestResult(tasks, deps, ctx)
	}

	ordered := make([]plan.Task, len(tasks))
	copy(ordered, tasks)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() > b.Priority.Rank()
		}
		return a.ID < b.ID
	})

	placed := make(map[string]bool, len(tasks))
	var groups []plan.ExecutionGroup
	var current []plan.Task

	flush := func() {
		if len(current) == 0 {
			return
		}
		before := copySet(placed)
		g := o.newGroup(current, deps, before, nil)
		g.Confidence = o.historyConfidence(g)
		groups = append(groups, g)
		for _, t := range current {
			placed[t.ID] = true
		}
		current = nil
	}

	for _, t := range ordered {
		if len(current) > 0 {
			last := current[len(current)-1]
			if last.Category != t.Category || last.Priority != t.Priority || len(current) == o.cfg.MaxConcurrency {
				flush()
			}
		}
		current = append(current, t)
	}
	flush()
	return groups, StrategyMachineLearning, nil
}

// historyConfidence scores a group from the closest execution record: any
// record sharing a task id contributes its observed efficiency, otherwise the
// size-decay default applies.
func (o *Optimizer) historyConfidence(g plan.ExecutionGroup) float64 {
	for i := len(o.history) - 1; i >= 0; i-- {
		record := o.history[i]
		for _, id := range record.TaskIDs {
			if g.Contains(id) {
				c := 2 - record.Efficiency
				if c < 0 {
					return 0
				}
				if c > 1 {
					return 1
				}
				return c
			}
		}
	}
	return sizeDecayConfidence(g.Size())
}

func copySet(set map[string]bool) map[string]bool {
	out := make(map[string]bool, len(set))
	for k, v := range set {
		out[k] = v
	}
	return out
}
