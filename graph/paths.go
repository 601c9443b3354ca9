package graph

import (
	"sort"
	"time"
)

// pathBottleneckThreshold marks a single task on a path as a bottleneck.
const pathBottleneckThreshold = 2 * time.Hour

// CriticalPath is one maximum-duration prerequisite chain ending at a sink.
type CriticalPath struct {
	// TaskIDs is the chain in execution order, root first.
	TaskIDs []string `json:"task_ids"`

	// TotalDuration is the summed estimated duration along the chain.
	TotalDuration time.Duration `json:"total_duration"`

	// ResourcePeaks maps resource names to the maximum single-task
	// requirement along the chain.
	ResourcePeaks map[string]float64 `json:"resource_peaks,omitempty"`

	// BottleneckIDs lists chain members whose own duration exceeds two hours.
	BottleneckIDs []string `json:"bottleneck_ids,omitempty"`

	// AvgFlexibility is the mean flexibility of the chain members.
	AvgFlexibility float64 `json:"avg_flexibility"`
}

// CriticalPaths computes, for every sink node (zero dependents), the
// maximum-duration root-to-sink prerequisite chain via dynamic programming
// over the DAG. Results are sorted by total duration descending and cached
// until the next mutation.
func (g *Graph) CriticalPaths() []CriticalPath {
	g.mu.Lock()
	defer g.mu.Unlock()

	paths := g.criticalPathsLocked()
	out := make([]CriticalPath, len(paths))
	copy(out, paths)
	return out
}

func (g *Graph) criticalPathsLocked() []CriticalPath {
	if g.pathsValid {
		return g.pathCache
	}

	type longest struct {
		duration time.Duration
		chain    []string
	}
	memo := make(map[string]longest, len(g.nodes))

	// longestTo(id) is the heaviest chain ending at id: the task's own
	// duration plus the heaviest chain among its prerequisites. The graph is
	// acyclic, so memoized recursion visits each node once.
	var longestTo func(id string) longest
	longestTo = func(id string) longest {
		if cached, ok := memo[id]; ok {
			return cached
		}
		n := g.nodes[id]
		best := longest{}
		// Deterministic tie-breaking: prerequisites in sorted order.
		deps := make([]string, len(n.dependencyIDs))
		copy(deps, n.dependencyIDs)
		sort.Strings(deps)
		for _, dep := range deps {
			if _, ok := g.nodes[dep]; !ok {
				continue
			}
			if cand := longestTo(dep); cand.duration > best.duration {
				best = cand
			}
		}
		chain := make([]string, 0, len(best.chain)+1)
		chain = append(chain, best.chain...)
		chain = append(chain, id)
		result := longest{duration: best.duration + n.task.EstimatedDuration, chain: chain}
		memo[id] = result
		return result
	}

	var paths []CriticalPath
	for _, id := range g.sortedIDsLocked() {
		if len(g.nodes[id].dependentIDs) != 0 {
			continue // not a sink
		}
		l := longestTo(id)
		paths = append(paths, g.describePathLocked(l.chain, l.duration))
	}

	sort.Slice(paths, func(i, j int) bool {
		if paths[i].TotalDuration != paths[j].TotalDuration {
			return paths[i].TotalDuration > paths[j].TotalDuration
		}
		return paths[i].TaskIDs[len(paths[i].TaskIDs)-1] < paths[j].TaskIDs[len(paths[j].TaskIDs)-1]
	})

	g.pathCache = paths
	g.pathsValid = true
	return paths
}

// describePathLocked annotates a chain with resource peaks, bottleneck
// members, and average flexibility.
func (g *Graph) describePathLocked(chain []string, total time.Duration) CriticalPath {
	peaks := make(map[string]float64)
	var bottlenecks []string
	flexibilitySum := 0.0
	for _, id := range chain {
		n := g.nodes[id]
		for _, rc := range n.task.Resources {
			if rc.MaxUnits > peaks[rc.Resource] {
				peaks[rc.Resource] = rc.MaxUnits
			}
		}
		if n.task.EstimatedDuration > pathBottleneckThreshold {
			bottlenecks = append(bottlenecks, id)
		}
		flexibilitySum += n.metadata.Flexibility
	}
	avgFlexibility := 0.0
	if len(chain) > 0 {
		avgFlexibility = flexibilitySum / float64(len(chain))
	}
	if len(peaks) == 0 {
		peaks = nil
	}
	return CriticalPath{
		TaskIDs:        chain,
		TotalDuration:  total,
		ResourcePeaks:  peaks,
		BottleneckIDs:  bottlenecks,
		AvgFlexibility: avgFlexibility,
	}
}

// -----------------------------------------------------------------------------
// Bottlenecks
// -----------------------------------------------------------------------------

// Bottleneck kinds.
const (
	BottleneckHighDegree   = "high_degree"
	BottleneckCriticalPath = "critical_path"
	BottleneckLongDuration = "long_duration"
)

// Bottleneck is one task flagged as a scheduling constraint, with the
// finding kinds that flagged it merged together.
type Bottleneck struct {
	TaskID       string   `json:"task_id"`
	Kinds        []string `json:"kinds"`
	Severity     float64  `json:"severity"`
	Impact       string   `json:"impact"`
	Remediations []string `json:"remediations,omitempty"`
}

// Bottlenecks unions three independently scored findings: high fan-in/out
// nodes (total degree above 5), members of the top-3 critical paths'
// bottleneck lists, and single tasks longer than four hours. Findings for
// the same task merge, keeping the maximum severity; the result is sorted by
// severity descending.
func (g *Graph) Bottlenecks() []Bottleneck {
	g.mu.Lock()
	defer g.mu.Unlock()

	found := g.bottlenecksLocked()
	out := make([]Bottleneck, len(found))
	copy(out, found)
	return out
}

func (g *Graph) bottlenecksLocked() []Bottleneck {
	merged := make(map[string]*Bottleneck)

	record := func(taskID, kind string, severity float64, impact string, remediations ...string) {
		b, ok := merged[taskID]
		if !ok {
			b = &Bottleneck{TaskID: taskID, Impact: impact}
			merged[taskID] = b
		}
		b.Kinds = append(b.Kinds, kind)
		if severity > b.Severity {
			b.Severity = severity
			b.Impact = impact
		}
		for _, r := range remediations {
			if !containsString(b.Remediations, r) {
				b.Remediations = append(b.Remediations, r)
			}
		}
	}

	// High fan-in/out nodes serialize everything around them.
	for _, id := range g.sortedIDsLocked() {
		n := g.nodes[id]
		degree := len(n.dependencyIDs) + len(n.dependentIDs)
		if degree > 5 {
			severity := float64(degree) / 10
			if severity > 1 {
				severity = 1
			}
			record(id, BottleneckHighDegree, severity,
				"many edges converge here; the surrounding tasks serialize on it",
				"split the task to spread its edges",
				"re-examine whether every edge is a real prerequisite")
		}
	}

	// Members of the top-3 critical paths' bottleneck lists, severity by
	// path rank.
	paths := g.criticalPathsLocked()
	rankSeverity := []float64{0.9, 0.8, 0.7}
	for rank, path := range paths {
		if rank >= len(rankSeverity) {
			break
		}
		for _, id := range path.BottleneckIDs {
			record(id, BottleneckCriticalPath, rankSeverity[rank],
				"sits on a critical path; any delay extends total execution time",
				"shorten or split the task",
				"move independent work off the critical path")
		}
	}

	// Long single tasks, severity scaled to an eight-hour cap.
	for _, id := range g.sortedIDsLocked() {
		n := g.nodes[id]
		if n.task.EstimatedDuration > longTaskThreshold {
			severity := n.task.EstimatedDuration.Hours() / 8
			if severity > 1 {
				severity = 1
			}
			record(id, BottleneckLongDuration, severity,
				"a single long-running task delays everything that waits on it",
				"split the task into smaller increments")
		}
	}

	out := make([]Bottleneck, 0, len(merged))
	for _, b := range merged {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Severity != out[j].Severity {
			return out[i].Severity > out[j].Severity
		}
		return out[i].TaskID < out[j].TaskID
	})
	return out
}

func containsString(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
