package plan

import "time"

// -----------------------------------------------------------------------------
// Resource Pool
// -----------------------------------------------------------------------------

// ResourcePool is a named, capacity-bounded resource dimension that
// execution groups allocate against.
type ResourcePool struct {
	// Name identifies the pool (cpu, memory, network, disk, ...).
	Name string `json:"name"`

	// Capacity is the total units the pool offers.
	Capacity float64 `json:"capacity"`

	// Allocated is the number of units currently handed out. Exceeding
	// Capacity is surfaced as a risk, not enforced.
	Allocated float64 `json:"allocated"`

	// Shareable is false for pools whose units cannot be time-shared
	// between concurrent tasks (network links, disk spindles).
	Shareable bool `json:"shareable"`

	// CostPerUnit is the optional cost of one unit, for upgrade estimates.
	CostPerUnit float64 `json:"cost_per_unit,omitempty"`

	// PriorityMultiplier scales the pool's weight in contention decisions.
	PriorityMultiplier float64 `json:"priority_multiplier,omitempty"`
}

// Available returns the unallocated capacity, floored at zero.
func (p ResourcePool) Available() float64 {
	if p.Allocated >= p.Capacity {
		return 0
	}
	return p.Capacity - p.Allocated
}

// Overcommitted returns true when more units are allocated than the pool
// offers.
func (p ResourcePool) Overcommitted() bool {
	return p.Allocated > p.Capacity
}

// -----------------------------------------------------------------------------
// Execution Group
// -----------------------------------------------------------------------------

// ExecutionGroup is a set of tasks planned to run concurrently. Groups are
// immutable once produced; an external executor runs them in order.
type ExecutionGroup struct {
	// ID uniquely identifies the group.
	ID string `json:"id"`

	// TaskIDs lists the member tasks.
	TaskIDs []string `json:"task_ids"`

	// Allocations maps resource names to the group's peak requirement: the
	// maximum across members, never the sum, because members run
	// concurrently and release what they hold when they finish.
	Allocations map[string]float64 `json:"allocations,omitempty"`

	// EstimatedDuration is the expected wall time of the group: the longest
	// member duration.
	EstimatedDuration time.Duration `json:"estimated_duration"`

	// Priority is the highest member priority.
	Priority Priority `json:"priority"`

	// SatisfiedDependencies lists the edge keys (dependent->dependsOn) whose
	// prerequisite sits in an earlier group.
	SatisfiedDependencies []string `json:"satisfied_dependencies,omitempty"`

	// Confidence estimates how likely the grouping is sound, in [0, 1].
	Confidence float64 `json:"confidence"`

	// Risks lists free-text concerns about the group.
	Risks []string `json:"risks,omitempty"`
}

// Size returns the number of member tasks.
func (g ExecutionGroup) Size() int {
	return len(g.TaskIDs)
}

// Contains returns true if the group includes the given task.
func (g ExecutionGroup) Contains(taskID string) bool {
	for _, id := range g.TaskIDs {
		if id == taskID {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------
// Execution Record
// -----------------------------------------------------------------------------

// ExecutionRecord is the ground-truth outcome of an executed group, reported
// back by the external executor. Records feed the machine-learning strategy
// and the predictive model update.
type ExecutionRecord struct {
	// GroupID identifies the executed group.
	GroupID string `json:"group_id"`

	// TaskIDs lists the tasks that ran.
	TaskIDs []string `json:"task_ids"`

	// ResourcesUsed maps resource names to observed peak usage.
	ResourcesUsed map[string]float64 `json:"resources_used,omitempty"`

	// EstimatedDuration is what the plan predicted.
	EstimatedDuration time.Duration `json:"estimated_duration"`

	// ActualDuration is what actually happened.
	ActualDuration time.Duration `json:"actual_duration"`

	// Efficiency is actual/estimated capped at 2; values under 1 mean the
	// group beat its estimate.
	Efficiency float64 `json:"efficiency"`

	// Success is true if every member task completed.
	Success bool `json:"success"`

	// Bottlenecks lists free-text notes about what slowed the group down.
	Bottlenecks []string `json:"bottlenecks,omitempty"`

	// RecordedAt is when the outcome was reported.
	RecordedAt time.Time `json:"recorded_at"`
}
