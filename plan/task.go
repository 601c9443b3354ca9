// Package plan defines the shared data model for the planning core.
//
// The planning core partitions a pool of autonomous work items ("tasks") with
// inferred or declared dependencies into resource-bounded concurrent
// execution groups. This package holds the types that cross component
// boundaries:
//   - Inputs: Task, ResourceConstraint, Dependency, Context
//   - Outputs: Decision, Alternative, ExecutionGroup
//   - Feedback: ExecutionRecord
//   - Resources: ResourcePool
//
// These are pure data types with no methods beyond basic accessors and
// copies, designed to be consumed by the graph, analyze, and schedule
// packages. Tasks are owned externally and read-only to the core; components
// copy what they keep.
package plan

import (
	"sort"
	"strings"
	"time"
)

// -----------------------------------------------------------------------------
// Priority
// -----------------------------------------------------------------------------

// Priority represents the urgency of a task, ordered from low to critical.
//
// Priority feeds impact scoring, dependency-direction inference (lower
// priority work waits for higher priority work), and the priority-grouped
// scheduling strategy.
type Priority string

const (
	// PriorityLow indicates work that can be deferred freely.
	PriorityLow Priority = "low"

	// PriorityMedium indicates routine work.
	PriorityMedium Priority = "medium"

	// PriorityHigh indicates work that should be scheduled ahead of routine work.
	PriorityHigh Priority = "high"

	// PriorityCritical indicates work that blocks everything else.
	// Critical tasks take the heaviest scheduling weight and the lowest
	// flexibility.
	PriorityCritical Priority = "critical"
)

// String returns the string representation of the priority.
func (p Priority) String() string {
	return string(p)
}

// IsValid returns true if this is a recognized priority value.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// Rank returns the ordinal position of the priority: low 0 through critical 3.
// Unknown values rank below low.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityMedium:
		return 1
	case PriorityHigh:
		return 2
	case PriorityCritical:
		return 3
	default:
		return -1
	}
}

// Score returns the normalized urgency of the priority in (0, 1]:
// low 0.25, medium 0.5, high 0.75, critical 1.0. Unknown values score 0.
func (p Priority) Score() float64 {
	switch p {
	case PriorityLow:
		return 0.25
	case PriorityMedium:
		return 0.5
	case PriorityHigh:
		return 0.75
	case PriorityCritical:
		return 1.0
	default:
		return 0
	}
}

// HigherThan returns true if p outranks other.
func (p Priority) HigherThan(other Priority) bool {
	return p.Rank() > other.Rank()
}

// Priorities returns all priorities ordered from critical to low, the order
// in which priority-grouped scheduling drains its buckets.
func Priorities() []Priority {
	return []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}
}

// -----------------------------------------------------------------------------
// Category
// -----------------------------------------------------------------------------

// Category classifies the kind of work a task performs.
//
// Categories drive impact weights, flexibility penalties, the semantic
// detector's relationship matrix, and the pattern detector's rules. Unknown
// categories are tolerated everywhere and simply take zero weights.
type Category string

const (
	// CategoryImplementation indicates feature or fix work on the codebase.
	CategoryImplementation Category = "implementation"

	// CategoryTesting indicates validation work: writing or running tests.
	CategoryTesting Category = "testing"

	// CategoryDocumentation indicates docs and write-up work.
	CategoryDocumentation Category = "documentation"

	// CategoryAnalysis indicates investigation and design work that usually
	// precedes implementation.
	CategoryAnalysis Category = "analysis"

	// CategoryRefactoring indicates restructuring work without behavior change.
	CategoryRefactoring Category = "refactoring"

	// CategoryDeployment indicates release and rollout work. Deployment
	// tasks carry the highest category weight and reduced flexibility.
	CategoryDeployment Category = "deployment"
)

// String returns the string representation of the category.
func (c Category) String() string {
	return string(c)
}

// IsValid returns true if this is a recognized category value.
func (c Category) IsValid() bool {
	switch c {
	case CategoryImplementation, CategoryTesting, CategoryDocumentation,
		CategoryAnalysis, CategoryRefactoring, CategoryDeployment:
		return true
	default:
		return false
	}
}

// -----------------------------------------------------------------------------
// Task
// -----------------------------------------------------------------------------

// ResourceConstraint declares a task's requirement against a named resource
// pool: how many units it needs and whether it needs them exclusively.
type ResourceConstraint struct {
	// Resource names the pool this constraint draws from (cpu, memory,
	// network, disk, ...).
	Resource string `json:"resource"`

	// MaxUnits is the peak number of units the task needs while running.
	MaxUnits float64 `json:"max_units"`

	// Exclusive marks the resource as unshareable while this task holds it.
	// Two tasks with an exclusive constraint on the same resource cannot run
	// concurrently.
	Exclusive bool `json:"exclusive"`
}

// Task is a unit of autonomous work. Tasks are owned by an external task
// store and are read-only to the planning core.
type Task struct {
	// ID uniquely identifies the task.
	ID string `json:"id"`

	// Name is a short, human-readable label. The semantic detector matches
	// word overlap across Name and Description.
	Name string `json:"name"`

	// Description carries the task's full text. Dependency keywords in the
	// description ("requires", "after", "blocks", ...) feed inference.
	Description string `json:"description,omitempty"`

	// Priority is the task's urgency classification.
	Priority Priority `json:"priority"`

	// Category classifies the kind of work.
	Category Category `json:"category"`

	// EstimatedDuration is the expected run time.
	EstimatedDuration time.Duration `json:"estimated_duration"`

	// Resources lists the task's resource constraints, if any.
	Resources []ResourceConstraint `json:"resources,omitempty"`

	// ValidationCriteria counts the acceptance criteria attached to the
	// task. Tasks with more than three lose scheduling flexibility.
	ValidationCriteria int `json:"validation_criteria,omitempty"`

	// CreatedAt is when the task was created in the external store.
	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	out := t
	if t.Resources != nil {
		out.Resources = make([]ResourceConstraint, len(t.Resources))
		copy(out.Resources, t.Resources)
	}
	return out
}

// Requirement returns the task's peak requirement against the named
// resource, or 0 if the task does not use it.
func (t Task) Requirement(resource string) float64 {
	for _, rc := range t.Resources {
		if rc.Resource == resource {
			return rc.MaxUnits
		}
	}
	return 0
}

// ExclusiveResources returns the sorted names of resources this task
// requires exclusively.
func (t Task) ExclusiveResources() []string {
	var names []string
	for _, rc := range t.Resources {
		if rc.Exclusive {
			names = append(names, rc.Resource)
		}
	}
	sort.Strings(names)
	return names
}

// Words returns the lowercased words of the task's name and description
// longer than two characters, for word-overlap similarity.
func (t Task) Words() []string {
	fields := strings.Fields(strings.ToLower(t.Name + " " + t.Description))
	var words []string
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?()[]{}\"'")
		if len(f) > 2 {
			words = append(words, f)
		}
	}
	return words
}
