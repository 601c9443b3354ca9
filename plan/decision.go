package plan

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// -----------------------------------------------------------------------------
// Decision
// -----------------------------------------------------------------------------

// Decision is an audit record of a choice made by the planning core: a
// dependency accepted into the graph, or a parallel execution plan selected.
// Every mutating or planning operation produces one.
type Decision struct {
	// ID uniquely identifies the decision.
	ID string `json:"id"`

	// Choice is a one-line statement of what was decided.
	Choice string `json:"choice"`

	// Priority is the urgency the decision inherits from the work it covers.
	Priority Priority `json:"priority"`

	// Confidence estimates how likely the choice is correct, in [0, 1].
	Confidence float64 `json:"confidence"`

	// Reasoning is generated natural-language justification for the choice.
	Reasoning string `json:"reasoning"`

	// Evidence maps metric names to the observed values the reasoning is
	// built on (impact scores, utilization, contention counts, ...).
	Evidence map[string]any `json:"evidence,omitempty"`

	// ExpectedOutcome states what should happen if the choice is right.
	ExpectedOutcome string `json:"expected_outcome,omitempty"`

	// Alternatives lists the choices that were considered and not taken.
	Alternatives []Alternative `json:"alternatives,omitempty"`

	// CreatedAt is when the decision was recorded.
	CreatedAt time.Time `json:"created_at"`
}

// Alternative is a choice that was considered and rejected, kept on the
// decision record for audit.
type Alternative struct {
	// Choice states the alternative.
	Choice string `json:"choice"`

	// Confidence estimates how well the alternative would have worked.
	Confidence float64 `json:"confidence"`

	// Reasoning explains why the alternative lost.
	Reasoning string `json:"reasoning,omitempty"`
}

// -----------------------------------------------------------------------------
// Decision Context
// -----------------------------------------------------------------------------

// Context is a snapshot of orchestrator state supplied with planning calls
// for context-sensitive scoring. All fields are optional; a nil *Context is
// treated as an empty snapshot everywhere.
type Context struct {
	// SystemLoad reports current load per resource name in [0, 1].
	SystemLoad map[string]float64 `json:"system_load,omitempty"`

	// PendingTasks is the number of tasks waiting in the external queue.
	PendingTasks int `json:"pending_tasks,omitempty"`

	// ActiveTasks is the number of tasks currently executing.
	ActiveTasks int `json:"active_tasks,omitempty"`

	// AvailableAgents and BusyAgents describe the external agent pool.
	AvailableAgents int `json:"available_agents,omitempty"`
	BusyAgents      int `json:"busy_agents,omitempty"`

	// BuildPassing, TestsPassing, and LintPassing report project health.
	// A failing build boosts the impact of implementation tasks; failing
	// tests boost testing tasks.
	BuildPassing bool `json:"build_passing"`
	TestsPassing bool `json:"tests_passing"`
	LintPassing  bool `json:"lint_passing"`

	// BudgetRemaining is the spend budget left, in the orchestrator's units.
	BudgetRemaining float64 `json:"budget_remaining,omitempty"`

	// SuccessRate is the historical fraction of tasks that succeeded.
	SuccessRate float64 `json:"success_rate,omitempty"`

	// Preferences carries user-supplied hints as opaque key-value pairs.
	Preferences map[string]string `json:"preferences,omitempty"`
}

// CPULoad returns the reported load of the cpu resource, or 0 when absent.
// Safe on a nil receiver.
func (c *Context) CPULoad() float64 {
	if c == nil {
		return 0
	}
	return c.SystemLoad["cpu"]
}

// Pending returns the pending-task count. Safe on a nil receiver.
func (c *Context) Pending() int {
	if c == nil {
		return 0
	}
	return c.PendingTasks
}

// Signature returns a stable serialized form of the context for cache keys.
// Map keys are emitted in sorted order so identical contexts always produce
// identical signatures. Safe on a nil receiver.
func (c *Context) Signature() string {
	if c == nil {
		return "ctx:none"
	}

	var b strings.Builder
	b.WriteString("ctx:")

	loadKeys := make([]string, 0, len(c.SystemLoad))
	for k := range c.SystemLoad {
		loadKeys = append(loadKeys, k)
	}
	sort.Strings(loadKeys)
	for _, k := range loadKeys {
		fmt.Fprintf(&b, "load.%s=%.3f;", k, c.SystemLoad[k])
	}

	fmt.Fprintf(&b, "pending=%d;active=%d;agents=%d/%d;",
		c.PendingTasks, c.ActiveTasks, c.AvailableAgents, c.BusyAgents)
	fmt.Fprintf(&b, "build=%t;tests=%t;lint=%t;",
		c.BuildPassing, c.TestsPassing, c.LintPassing)
	fmt.Fprintf(&b, "budget=%.2f;success=%.3f;", c.BudgetRemaining, c.SuccessRate)

	prefKeys := make([]string, 0, len(c.Preferences))
	for k := range c.Preferences {
		prefKeys = append(prefKeys, k)
	}
	sort.Strings(prefKeys)
	for _, k := range prefKeys {
		fmt.Fprintf(&b, "pref.%s=%s;", k, c.Preferences[k])
	}

	return b.String()
}
