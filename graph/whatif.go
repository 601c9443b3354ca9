package graph

import (
	"fmt"
	"time"

	"github.com/parplan/parplan/errors"
	"github.com/parplan/parplan/logging"
	"github.com/parplan/parplan/plan"
)

// Change kinds accepted by WhatIf.
const (
	ChangeAddDependency    = "add_dependency"
	ChangeRemoveDependency = "remove_dependency"
	ChangeModifyTask       = "modify_task"
)

// recommendationThreshold is the projected-time delta past which a change
// set is strongly recommended (or advised against).
const recommendationThreshold = time.Minute

// Change is one proposed modification for what-if simulation.
type Change struct {
	// Kind is add_dependency, remove_dependency, or modify_task.
	Kind string `json:"kind"`

	// Dependency is the edge to add, for add_dependency.
	Dependency *plan.Dependency `json:"dependency,omitempty"`

	// Confidence applies to add_dependency; zero defaults to 1.
	Confidence float64 `json:"confidence,omitempty"`

	// DependentID and DependsOnID name the edge to remove, for
	// remove_dependency.
	DependentID string `json:"dependent_id,omitempty"`
	DependsOnID string `json:"depends_on_id,omitempty"`

	// TaskID names the task to modify, for modify_task.
	TaskID string `json:"task_id,omitempty"`

	// NewDuration and NewPriority are the modifications to apply; nil
	// fields are left unchanged.
	NewDuration *time.Duration `json:"new_duration,omitempty"`
	NewPriority *plan.Priority `json:"new_priority,omitempty"`
}

// Projection is a before/after metric snapshot.
type Projection struct {
	// TotalExecutionTime is the longest critical path duration.
	TotalExecutionTime time.Duration `json:"total_execution_time"`

	// OverallRisk is the graph risk score, 0-1.
	OverallRisk float64 `json:"overall_risk"`

	// Flexibility is the graph flexibility score, 0-1.
	Flexibility float64 `json:"flexibility"`
}

// ChangeOutcome reports whether one change applied cleanly in simulation.
type ChangeOutcome struct {
	Change  Change `json:"change"`
	Applied bool   `json:"applied"`
	Error   string `json:"error,omitempty"`
}

// WhatIfResult compares the live graph with the simulated one.
type WhatIfResult struct {
	Before          Projection      `json:"before"`
	After           Projection      `json:"after"`
	Outcomes        []ChangeOutcome `json:"outcomes"`
	Recommendations []string        `json:"recommendations,omitempty"`
}

// WhatIf applies the proposed changes to a deep structural copy of the graph
// and compares before/after metrics. The live graph is never touched on any
// exit path: a change that fails in simulation is reported in its outcome
// and the remaining changes still apply to the copy.
func (g *Graph) WhatIf(changes []Change) (*WhatIfResult, error) {
	g.mu.Lock()
	before := g.projectionLocked()
	sim := g.deepCopyLocked()
	g.mu.Unlock()

	result := &WhatIfResult{Before: before}

	for _, change := range changes {
		outcome := ChangeOutcome{Change: change}
		if err := sim.applyChange(change); err != nil {
			outcome.Error = err.Error()
		} else {
			outcome.Applied = true
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	sim.mu.Lock()
	result.After = sim.projectionLocked()
	sim.mu.Unlock()

	result.Recommendations = recommend(result.Before, result.After)
	return result, nil
}

// applyChange applies one simulated change, dispatching on kind.
func (g *Graph) applyChange(change Change) error {
	switch change.Kind {
	case ChangeAddDependency:
		if change.Dependency == nil {
			return errors.NewValidationError("add_dependency change carries no dependency").
				WithField("dependency")
		}
		confidence := change.Confidence
		if confidence == 0 {
			confidence = 1
		}
		_, err := g.AddDependency(*change.Dependency, confidence)
		return err
	case ChangeRemoveDependency:
		return g.RemoveDependency(change.DependentID, change.DependsOnID)
	case ChangeModifyTask:
		return g.modifyTask(change)
	default:
		return errors.NewValidationError("unknown change kind").
			WithField("kind").WithValue(change.Kind)
	}
}

// modifyTask updates a task snapshot's duration and/or priority in the
// simulated graph and refreshes derived state.
func (g *Graph) modifyTask(change Change) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.nodes[change.TaskID]
	if !ok {
		return errors.NewNotFoundError("task", change.TaskID).WithCause(errors.ErrTaskNotFound)
	}
	if change.NewDuration != nil {
		n.task.EstimatedDuration = *change.NewDuration
	}
	if change.NewPriority != nil {
		n.task.Priority = *change.NewPriority
	}
	g.updatedAt = g.now()
	g.refreshLocked()
	return nil
}

// projectionLocked snapshots the metrics WhatIf compares.
func (g *Graph) projectionLocked() Projection {
	total := time.Duration(0)
	if paths := g.criticalPathsLocked(); len(paths) > 0 {
		total = paths[0].TotalDuration
	}
	return Projection{
		TotalExecutionTime: total,
		OverallRisk:        g.risk.overallRisk,
		Flexibility:        g.flexibilityScoreLocked(),
	}
}

// deepCopyLocked builds a structurally independent copy: fresh node map,
// fresh adjacency slices, fresh metadata maps, fresh edge values. The copy
// shares no mutable state with the original, so nothing that happens to it
// can be observed through the live graph.
func (g *Graph) deepCopyLocked() *Graph {
	cp := &Graph{
		nodes:             make(map[string]*node, len(g.nodes)),
		edges:             make(map[string]*plan.Dependency, len(g.edges)),
		flexibilityByTask: make(map[string]float64, len(g.flexibilityByTask)),
		optCache:          make(map[string][]Optimization),
		hasCycles:         g.hasCycles,
		updatedAt:         g.updatedAt,
		risk:              g.risk,
		logger:            logging.Nop().WithComponent("graph-whatif"),
		now:               g.now,
	}
	for id, n := range g.nodes {
		deps := make([]string, len(n.dependencyIDs))
		copy(deps, n.dependencyIDs)
		dependents := make([]string, len(n.dependentIDs))
		copy(dependents, n.dependentIDs)
		confidence := make(map[string]float64, len(n.metadata.ConfidenceIn))
		for k, v := range n.metadata.ConfidenceIn {
			confidence[k] = v
		}
		md := n.metadata
		md.ConfidenceIn = confidence
		cp.nodes[id] = &node{
			task:          n.task.Clone(),
			ctx:           n.ctx,
			dependencyIDs: deps,
			dependentIDs:  dependents,
			metadata:      md,
		}
	}
	for key, e := range g.edges {
		edge := *e
		cp.edges[key] = &edge
	}
	for k, v := range g.flexibilityByTask {
		cp.flexibilityByTask[k] = v
	}
	return cp
}

// recommend derives qualitative guidance from the projection deltas.
func recommend(before, after Projection) []string {
	var recs []string

	timeDelta := after.TotalExecutionTime - before.TotalExecutionTime
	switch {
	case timeDelta < -recommendationThreshold:
		recs = append(recs, fmt.Sprintf(
			"strongly recommended: projected execution time improves by %s", (-timeDelta).Round(time.Second)))
	case timeDelta > recommendationThreshold:
		recs = append(recs, fmt.Sprintf(
			"not recommended: projected execution time regresses by %s", timeDelta.Round(time.Second)))
	default:
		recs = append(recs, "neutral: projected execution time is essentially unchanged")
	}

	if after.OverallRisk < before.OverallRisk-0.05 {
		recs = append(recs, "risk decreases under the proposed changes")
	} else if after.OverallRisk > before.OverallRisk+0.05 {
		recs = append(recs, "risk increases under the proposed changes")
	}

	if after.Flexibility > before.Flexibility+0.05 {
		recs = append(recs, "scheduling flexibility improves")
	} else if after.Flexibility < before.Flexibility-0.05 {
		recs = append(recs, "scheduling flexibility degrades")
	}

	return recs
}
