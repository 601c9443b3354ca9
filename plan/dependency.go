package plan

import "time"

// -----------------------------------------------------------------------------
// Dependency Type
// -----------------------------------------------------------------------------

// DependencyType classifies the nature of a dependency edge.
type DependencyType string

const (
	// DependencyHard means the prerequisite must complete before the
	// dependent can start.
	DependencyHard DependencyType = "hard"

	// DependencySoft means the prerequisite should complete first, but the
	// ordering is advisory and the edge is a removal candidate.
	DependencySoft DependencyType = "soft"

	// DependencyResource means the two tasks contend for an exclusive
	// resource; the dependent waits for the resource, not for the work.
	DependencyResource DependencyType = "resource"

	// DependencyTemporal means the tasks are time-ordered: the dependent
	// starts after the prerequisite, possibly with a minimum delay.
	DependencyTemporal DependencyType = "temporal"
)

// String returns the string representation of the dependency type.
func (dt DependencyType) String() string {
	return string(dt)
}

// IsValid returns true if this is a recognized dependency type.
func (dt DependencyType) IsValid() bool {
	switch dt {
	case DependencyHard, DependencySoft, DependencyResource, DependencyTemporal:
		return true
	default:
		return false
	}
}

// Multiplier returns the confidence multiplier applied to suggestions of
// this type: hard edges keep full confidence, advisory and time-based edges
// are discounted.
func (dt DependencyType) Multiplier() float64 {
	switch dt {
	case DependencyHard:
		return 1.0
	case DependencyResource:
		return 0.9
	case DependencySoft:
		return 0.8
	case DependencyTemporal:
		return 0.7
	default:
		return 0.8
	}
}

// -----------------------------------------------------------------------------
// Dependency
// -----------------------------------------------------------------------------

// Dependency is a directed edge stating that one task waits on another.
// The pair (DependentID, DependsOnID) is unique per graph; re-adding an
// existing pair updates its confidence in place rather than duplicating.
type Dependency struct {
	// DependentID is the task that waits.
	DependentID string `json:"dependent_task_id"`

	// DependsOnID is the task it waits for.
	DependsOnID string `json:"depends_on_task_id"`

	// Type classifies the dependency.
	Type DependencyType `json:"type"`

	// Reason is free text explaining why the edge exists. Merged
	// suggestions join their reasons with "; ".
	Reason string `json:"reason,omitempty"`

	// Parallelizable is true when the two tasks may still overlap despite
	// the ordering preference.
	Parallelizable bool `json:"parallelizable"`

	// MinDelay is an optional minimum wait between the prerequisite
	// finishing and the dependent starting.
	MinDelay time.Duration `json:"min_delay,omitempty"`

	// Confidence estimates how likely the edge is correct, in [0, 1].
	Confidence float64 `json:"confidence"`
}

// Key returns the canonical identity of the edge's ordered pair.
func (d Dependency) Key() string {
	return d.DependentID + "->" + d.DependsOnID
}
