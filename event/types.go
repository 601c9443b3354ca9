package event

import "time"

// Event is the interface that all events must implement.
// It provides a common way to identify and timestamp events.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "component.action" (e.g., "graph.task_added").
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Graph Events
// -----------------------------------------------------------------------------

// TaskAddedEvent is emitted when a task node is first inserted into the graph.
// Idempotent re-adds of an existing task do not emit this event.
type TaskAddedEvent struct {
	baseEvent
	TaskID      string  // Identifier of the inserted task
	Category    string  // Task category (implementation, testing, ...)
	Priority    string  // Task priority (low, medium, high, critical)
	ImpactScore float64 // Derived impact score, 0-20
}

// NewTaskAddedEvent creates a TaskAddedEvent.
func NewTaskAddedEvent(taskID, category, priority string, impactScore float64) TaskAddedEvent {
	return TaskAddedEvent{
		baseEvent:   newBaseEvent("graph.task_added"),
		TaskID:      taskID,
		Category:    category,
		Priority:    priority,
		ImpactScore: impactScore,
	}
}

// DependencyAddedEvent is emitted when a dependency edge is inserted, or when
// an existing edge's confidence is upserted in place.
type DependencyAddedEvent struct {
	baseEvent
	DependentID string  // Task that waits
	DependsOnID string  // Task it waits for
	Type        string  // hard, soft, resource, or temporal
	Confidence  float64 // Edge confidence, 0-1
	Upsert      bool    // True when an existing edge's confidence was updated
}

// NewDependencyAddedEvent creates a DependencyAddedEvent.
func NewDependencyAddedEvent(dependentID, dependsOnID, depType string, confidence float64, upsert bool) DependencyAddedEvent {
	return DependencyAddedEvent{
		baseEvent:   newBaseEvent("graph.dependency_added"),
		DependentID: dependentID,
		DependsOnID: dependsOnID,
		Type:        depType,
		Confidence:  confidence,
		Upsert:      upsert,
	}
}

// DependencyRemovedEvent is emitted when a dependency edge is removed.
type DependencyRemovedEvent struct {
	baseEvent
	DependentID string // Task that was waiting
	DependsOnID string // Task it was waiting for
}

// NewDependencyRemovedEvent creates a DependencyRemovedEvent.
func NewDependencyRemovedEvent(dependentID, dependsOnID string) DependencyRemovedEvent {
	return DependencyRemovedEvent{
		baseEvent:   newBaseEvent("graph.dependency_removed"),
		DependentID: dependentID,
		DependsOnID: dependsOnID,
	}
}

// -----------------------------------------------------------------------------
// Analyzer Events
// -----------------------------------------------------------------------------

// AnalysisCompletedEvent is emitted when a dependency analysis finishes,
// whether computed fresh or served from the analysis cache.
type AnalysisCompletedEvent struct {
	baseEvent
	TaskCount       int  // Number of tasks analyzed
	SuggestionCount int  // Suggestions that cleared the auto-create threshold
	ConflictCount   int  // Conflicts detected across all detectors
	CacheHit        bool // True when the result came from the cache
}

// NewAnalysisCompletedEvent creates an AnalysisCompletedEvent.
func NewAnalysisCompletedEvent(taskCount, suggestionCount, conflictCount int, cacheHit bool) AnalysisCompletedEvent {
	return AnalysisCompletedEvent{
		baseEvent:       newBaseEvent("analyzer.completed"),
		TaskCount:       taskCount,
		SuggestionCount: suggestionCount,
		ConflictCount:   conflictCount,
		CacheHit:        cacheHit,
	}
}

// -----------------------------------------------------------------------------
// Optimizer Events
// -----------------------------------------------------------------------------

// PlanComputedEvent is emitted when the optimizer has partitioned a task set
// into execution groups.
type PlanComputedEvent struct {
	baseEvent
	Strategy   string        // Strategy that produced the selected plan
	TaskCount  int           // Number of tasks planned
	GroupCount int           // Number of execution groups produced
	TotalTime  time.Duration // Estimated sequential time across groups
	Confidence float64       // Optimization confidence, 0-1
}

// NewPlanComputedEvent creates a PlanComputedEvent.
func NewPlanComputedEvent(strategy string, taskCount, groupCount int, totalTime time.Duration, confidence float64) PlanComputedEvent {
	return PlanComputedEvent{
		baseEvent:  newBaseEvent("optimizer.plan_computed"),
		Strategy:   strategy,
		TaskCount:  taskCount,
		GroupCount: groupCount,
		TotalTime:  totalTime,
		Confidence: confidence,
	}
}

// ExecutionRecordedEvent is emitted when an execution outcome is recorded,
// closing the learning loop for the machine-learning strategy.
type ExecutionRecordedEvent struct {
	baseEvent
	GroupID    string  // Executed group identifier
	Success    bool    // Whether the group completed successfully
	Efficiency float64 // actual/estimated duration ratio, capped at 2
}

// NewExecutionRecordedEvent creates an ExecutionRecordedEvent.
func NewExecutionRecordedEvent(groupID string, success bool, efficiency float64) ExecutionRecordedEvent {
	return ExecutionRecordedEvent{
		baseEvent:  newBaseEvent("optimizer.execution_recorded"),
		GroupID:    groupID,
		Success:    success,
		Efficiency: efficiency,
	}
}
