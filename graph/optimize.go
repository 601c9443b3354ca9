package graph

import (
	"fmt"
	"sort"
	"time"

	"github.com/parplan/parplan/internal/hash"
	"github.com/parplan/parplan/plan"
)

// Optimization suggestion types.
const (
	OptimizationSplitNode        = "split_node"
	OptimizationReorderExecution = "reorder_execution"
	OptimizationRemoveEdge       = "remove_edge"
	OptimizationMergeNodes       = "merge_nodes"
)

// mergeCandidateDuration is the upper bound for tasks considered small
// enough to merge.
const mergeCandidateDuration = 30 * time.Minute

// Optimization is one suggested structural change to the graph.
type Optimization struct {
	// Type is one of split_node, reorder_execution, remove_edge, merge_nodes.
	Type string `json:"type"`

	// TaskIDs lists the tasks the suggestion touches.
	TaskIDs []string `json:"task_ids"`

	// Description explains the suggestion.
	Description string `json:"description"`

	// TimeReduction estimates the execution time saved.
	TimeReduction time.Duration `json:"time_reduction"`

	// ResourceSavings estimates units of resource capacity freed.
	ResourceSavings float64 `json:"resource_savings"`
}

// Optimizations proposes structural changes: splitting or reordering the
// top bottlenecks, removing low-confidence edges, and merging small
// same-category tasks. Results are sorted by a composite of time reduction
// and resource savings, and cached by a content hash of the context and the
// graph's shape until the next mutation.
func (g *Graph) Optimizations(ctx *plan.Context) []Optimization {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := hash.Signature("graph-optimizations",
		ctx.Signature(),
		fmt.Sprintf("nodes=%d", len(g.nodes)),
		fmt.Sprintf("edges=%d", len(g.edges)),
		g.updatedAt.Format(time.RFC3339Nano),
	)
	if cached, ok := g.optCache[key]; ok {
		out := make([]Optimization, len(cached))
		copy(out, cached)
		return out
	}

	var suggestions []Optimization

	// Top-5 bottlenecks: split high-degree or long tasks, reorder
	// critical-path members.
	bottlenecks := g.bottlenecksLocked()
	if len(bottlenecks) > 5 {
		bottlenecks = bottlenecks[:5]
	}
	for _, b := range bottlenecks {
		n := g.nodes[b.TaskID]
		if n == nil {
			continue
		}
		if containsString(b.Kinds, BottleneckHighDegree) || containsString(b.Kinds, BottleneckLongDuration) {
			suggestions = append(suggestions, Optimization{
				Type:            OptimizationSplitNode,
				TaskIDs:         []string{b.TaskID},
				Description:     "split " + b.TaskID + " to relieve a bottleneck",
				TimeReduction:   n.task.EstimatedDuration / 2,
				ResourceSavings: b.Severity * 2,
			})
		}
		if containsString(b.Kinds, BottleneckCriticalPath) {
			suggestions = append(suggestions, Optimization{
				Type:            OptimizationReorderExecution,
				TaskIDs:         []string{b.TaskID},
				Description:     "schedule " + b.TaskID + " earlier to shorten the critical path",
				TimeReduction:   n.task.EstimatedDuration / 4,
				ResourceSavings: b.Severity,
			})
		}
	}

	// Low-confidence edges are removal candidates.
	edgeKeys := make([]string, 0, len(g.edges))
	for key := range g.edges {
		edgeKeys = append(edgeKeys, key)
	}
	sort.Strings(edgeKeys)
	for _, key := range edgeKeys {
		e := g.edges[key]
		if e.Confidence < 0.5 {
			suggestions = append(suggestions, Optimization{
				Type:    OptimizationRemoveEdge,
				TaskIDs: []string{e.DependentID, e.DependsOnID},
				Description: fmt.Sprintf("remove low-confidence edge %s (confidence %.2f)",
					key, e.Confidence),
				TimeReduction:   5 * time.Minute,
				ResourceSavings: 1 - e.Confidence,
			})
		}
	}

	// Small same-category tasks can merge to cut per-task overhead. Each
	// task joins at most one pair.
	byCategory := make(map[plan.Category][]string)
	for _, id := range g.sortedIDsLocked() {
		n := g.nodes[id]
		if n.task.EstimatedDuration > 0 && n.task.EstimatedDuration < mergeCandidateDuration {
			byCategory[n.task.Category] = append(byCategory[n.task.Category], id)
		}
	}
	categories := make([]plan.Category, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })
	for _, c := range categories {
		ids := byCategory[c]
		for i := 0; i+1 < len(ids); i += 2 {
			suggestions = append(suggestions, Optimization{
				Type:            OptimizationMergeNodes,
				TaskIDs:         []string{ids[i], ids[i+1]},
				Description:     "merge small " + c.String() + " tasks " + ids[i] + " and " + ids[i+1],
				TimeReduction:   10 * time.Minute,
				ResourceSavings: 0.5,
			})
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return composite(suggestions[i]) > composite(suggestions[j])
	})

	g.optCache[key] = suggestions
	out := make([]Optimization, len(suggestions))
	copy(out, suggestions)
	return out
}

// composite ranks a suggestion by its combined time and resource benefit.
func composite(o Optimization) float64 {
	return o.TimeReduction.Minutes() + o.ResourceSavings
}
