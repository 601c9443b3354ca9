package analyze

import (
	"fmt"
	"sort"

	"github.com/parplan/parplan/plan"
)

// findConflicts inspects the combined (existing plus suggested) edge set for
// circular, resource, temporal, and logical problems. Conflict detection is
// advisory: the result reports what it found and suggests resolutions, but
// never mutates the edge set.
func (a *Analyzer) findConflicts(tasks []plan.Task, combined []plan.Dependency) []Conflict {
	var conflicts []Conflict
	conflicts = append(conflicts, findCircular(combined)...)
	conflicts = append(conflicts, findResourceConflicts(tasks, combined)...)
	conflicts = append(conflicts, a.findTemporalConflicts(tasks, combined)...)
	conflicts = append(conflicts, findLogicalConflicts(combined)...)
	return conflicts
}

// -----------------------------------------------------------------------------
// Circular
// -----------------------------------------------------------------------------

// findCircular detects cycles in the combined edge set with a colored DFS and
// reports each cycle's actual path, first task repeated at the end. The
// suggested resolution removes the lowest-confidence edge on the path.
func findCircular(combined []plan.Dependency) []Conflict {
	deps := make(map[string][]string)
	edgeBy := make(map[string]plan.Dependency, len(combined))
	nodes := make(map[string]bool)
	for _, d := range combined {
		deps[d.DependentID] = append(deps[d.DependentID], d.DependsOnID)
		edgeBy[d.Key()] = d
		nodes[d.DependentID] = true
		nodes[d.DependsOnID] = true
	}
	for id := range deps {
		sort.Strings(deps[id])
	}

	ids := make([]string, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(nodes))

	var conflicts []Conflict
	var stack []string

	var visit func(id string)
	visit = func(id string) {
		color[id] = gray
		stack = append(stack, id)
		for _, next := range deps[id] {
			switch color[next] {
			case white:
				visit(next)
			case gray:
				// Back edge: the cycle is the stack from next onward.
				start := 0
				for i, s := range stack {
					if s == next {
						start = i
						break
					}
				}
				cycle := append(append([]string{}, stack[start:]...), next)
				conflicts = append(conflicts, circularConflict(cycle, edgeBy))
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
	}
	for _, id := range ids {
		if color[id] == white {
			visit(id)
		}
	}
	return conflicts
}

// circularConflict builds the conflict record for one cycle path, picking
// the weakest edge on the path as the removal candidate.
func circularConflict(cycle []string, edgeBy map[string]plan.Dependency) Conflict {
	weakestKey := ""
	weakest := 2.0
	for i := 0; i+1 < len(cycle); i++ {
		key := cycle[i] + "->" + cycle[i+1]
		if e, ok := edgeBy[key]; ok && e.Confidence < weakest {
			weakest = e.Confidence
			weakestKey = key
		}
	}

	resolutions := []string{"review the involved tasks and drop the incorrect ordering"}
	if weakestKey != "" {
		resolutions = append([]string{fmt.Sprintf(
			"remove the lowest-confidence edge %s (confidence %.2f)", weakestKey, weakest)},
			resolutions...)
	}
	return Conflict{
		Type:        ConflictCircular,
		TaskIDs:     cycle,
		Description: "tasks form a circular dependency and can never all become ready",
		Resolutions: resolutions,
	}
}

// -----------------------------------------------------------------------------
// Resource
// -----------------------------------------------------------------------------

// findResourceConflicts reports pairs of tasks that both require the same
// resource exclusively but have no ordering path between them in either
// direction, so a scheduler is free to run them concurrently.
func findResourceConflicts(tasks []plan.Task, combined []plan.Dependency) []Conflict {
	deps := make(map[string][]string)
	for _, d := range combined {
		deps[d.DependentID] = append(deps[d.DependentID], d.DependsOnID)
	}

	holders := make(map[string][]plan.Task)
	for _, t := range tasks {
		for _, resource := range t.ExclusiveResources() {
			holders[resource] = append(holders[resource], t)
		}
	}
	resources := make([]string, 0, len(holders))
	for r := range holders {
		resources = append(resources, r)
	}
	sort.Strings(resources)

	var conflicts []Conflict
	for _, resource := range resources {
		sharers := holders[resource]
		for i := 0; i < len(sharers); i++ {
			for j := i + 1; j < len(sharers); j++ {
				a, b := sharers[i], sharers[j]
				if reaches(deps, a.ID, b.ID) || reaches(deps, b.ID, a.ID) {
					continue
				}
				conflicts = append(conflicts, Conflict{
					Type:    ConflictResource,
					TaskIDs: []string{a.ID, b.ID},
					Description: fmt.Sprintf(
						"both require exclusive access to %s with no ordering between them", resource),
					Resolutions: []string{
						fmt.Sprintf("add a dependency so one of %s and %s waits for the other", a.ID, b.ID),
						fmt.Sprintf("make the %s requirement shareable for one of the tasks", resource),
					},
				})
			}
		}
	}
	return conflicts
}

// reaches reports whether from can reach to following dependency links.
func reaches(deps map[string][]string, from, to string) bool {
	seen := map[string]bool{from: true}
	stack := []string{from}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range deps[id] {
			if next == to {
				return true
			}
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

// -----------------------------------------------------------------------------
// Temporal
// -----------------------------------------------------------------------------

// findTemporalConflicts flags temporal edges that run against creation
// order: the prerequisite was created more than a temporal window after the
// dependent, so the claimed time ordering contradicts how the work arrived.
func (a *Analyzer) findTemporalConflicts(tasks []plan.Task, combined []plan.Dependency) []Conflict {
	byID := make(map[string]plan.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	var conflicts []Conflict
	for _, d := range combined {
		if d.Type != plan.DependencyTemporal {
			continue
		}
		dependent, ok1 := byID[d.DependentID]
		prerequisite, ok2 := byID[d.DependsOnID]
		if !ok1 || !ok2 {
			continue
		}
		lag := prerequisite.CreatedAt.Sub(dependent.CreatedAt)
		if lag <= a.cfg.TemporalWindow {
			continue
		}
		conflicts = append(conflicts, Conflict{
			Type:    ConflictTemporal,
			TaskIDs: []string{d.DependentID, d.DependsOnID},
			Description: fmt.Sprintf(
				"temporal edge %s points against creation order by %s", d.Key(), lag),
			Resolutions: []string{
				"reverse the edge to follow creation order",
				"downgrade the edge to soft if the time ordering is not real",
			},
		})
	}
	return conflicts
}

// -----------------------------------------------------------------------------
// Logical
// -----------------------------------------------------------------------------

// findLogicalConflicts reports contradictions in the edge set itself:
// mutual hard edges (each task strictly waits for the other) and self-edges
// that slipped in through input.
func findLogicalConflicts(combined []plan.Dependency) []Conflict {
	hard := make(map[string]bool)
	for _, d := range combined {
		if d.Type == plan.DependencyHard {
			hard[d.Key()] = true
		}
	}

	var conflicts []Conflict
	reported := make(map[string]bool)
	for _, d := range combined {
		if d.DependentID == d.DependsOnID {
			if !reported["self:"+d.DependentID] {
				reported["self:"+d.DependentID] = true
				conflicts = append(conflicts, Conflict{
					Type:        ConflictLogical,
					TaskIDs:     []string{d.DependentID},
					Description: "task depends on itself",
					Resolutions: []string{"remove the self-edge"},
				})
			}
			continue
		}
		if d.Type != plan.DependencyHard {
			continue
		}
		reverse := d.DependsOnID + "->" + d.DependentID
		if !hard[reverse] {
			continue
		}
		pairKey := d.Key()
		if d.DependsOnID < d.DependentID {
			pairKey = reverse
		}
		if reported[pairKey] {
			continue
		}
		reported[pairKey] = true
		conflicts = append(conflicts, Conflict{
			Type:        ConflictLogical,
			TaskIDs:     []string{d.DependentID, d.DependsOnID},
			Description: "tasks hold hard dependencies on each other",
			Resolutions: []string{
				"keep the edge matching the real workflow order and drop the other",
				"downgrade one side to soft if the ordering is advisory",
			},
		})
	}
	return conflicts
}
