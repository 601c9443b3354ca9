// Package event provides a pub-sub event bus for decoupled observation of
// the planning core.
//
// This package lets callers watch what the Dependency Graph, the Dependency
// Analyzer, and the Parallel Optimizer do without wiring direct callbacks
// into them. Components publish events without knowing who will receive
// them, and subscribers register without knowing who will produce them.
//
// # Main Types
//
//   - [Event]: Interface that all events must implement, providing EventType() and Timestamp()
//   - [Bus]: Synchronous pub-sub event dispatcher with thread-safe operations
//   - [Handler]: Function type for event handlers (func(Event))
//
// # Event Categories
//
// Graph events:
//   - [TaskAddedEvent]: Emitted when a task node is first inserted
//   - [DependencyAddedEvent]: Emitted when a dependency edge is inserted or upserted
//   - [DependencyRemovedEvent]: Emitted when a dependency edge is removed
//
// Analyzer events:
//   - [AnalysisCompletedEvent]: Emitted when a dependency analysis finishes
//
// Optimizer events:
//   - [PlanComputedEvent]: Emitted when execution groups have been planned
//   - [ExecutionRecordedEvent]: Emitted when an execution outcome is recorded
//
// # Thread Safety
//
// The [Bus] type is safe for concurrent use. Multiple goroutines can publish
// and subscribe concurrently. Handlers are called synchronously and protected
// against panics - a panicking handler will not prevent other handlers from
// being called.
//
// # Basic Usage
//
//	bus := event.NewBus()
//
//	// Subscribe to specific event types
//	bus.Subscribe("graph.dependency_added", func(e event.Event) {
//	    added := e.(event.DependencyAddedEvent)
//	    log.Printf("edge %s -> %s", added.DependentID, added.DependsOnID)
//	})
//
//	// Subscribe to all events (useful for logging)
//	bus.SubscribeAll(func(e event.Event) {
//	    log.Printf("event: %s at %v", e.EventType(), e.Timestamp())
//	})
//
//	// Unsubscribe when done
//	id := bus.Subscribe("optimizer.plan_computed", handler)
//	bus.Unsubscribe(id)
//
// # Event Type Naming Convention
//
// Event types follow the pattern "component.action":
//   - graph.task_added, graph.dependency_added, graph.dependency_removed
//   - analyzer.completed
//   - optimizer.plan_computed, optimizer.execution_recorded
package event
