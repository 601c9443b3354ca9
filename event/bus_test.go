package event

import (
	"sync"
	"testing"
	"time"
)

func TestBus_Subscribe(t *testing.T) {
	bus := NewBus(nil)

	called := false
	id := bus.Subscribe("graph.task_added", func(e Event) {
		called = true
	})

	if id == "" {
		t.Error("Subscribe should return a non-empty ID")
	}

	if bus.SubscriptionCount() != 1 {
		t.Errorf("Expected 1 subscription, got %d", bus.SubscriptionCount())
	}

	if called {
		t.Error("Handler should not be called until an event is published")
	}
}

func TestBus_Publish(t *testing.T) {
	bus := NewBus(nil)

	var receivedEvent Event
	bus.Subscribe("graph.dependency_added", func(e Event) {
		receivedEvent = e
	})

	bus.Publish(NewDependencyAddedEvent("b", "a", "hard", 0.9, false))

	if receivedEvent == nil {
		t.Fatal("Handler should have received the event")
	}

	if receivedEvent.EventType() != "graph.dependency_added" {
		t.Errorf("Expected event type 'graph.dependency_added', got '%s'", receivedEvent.EventType())
	}

	added, ok := receivedEvent.(DependencyAddedEvent)
	if !ok {
		t.Fatalf("received event has type %T, want DependencyAddedEvent", receivedEvent)
	}
	if added.DependentID != "b" || added.DependsOnID != "a" {
		t.Errorf("edge = %s->%s, want b->a", added.DependentID, added.DependsOnID)
	}
	if added.Upsert {
		t.Error("Upsert = true, want false")
	}
}

func TestBus_PublishMultipleHandlers(t *testing.T) {
	bus := NewBus(nil)

	callCount := 0
	bus.Subscribe("graph.task_added", func(e Event) {
		callCount++
	})
	bus.Subscribe("graph.task_added", func(e Event) {
		callCount++
	})

	bus.Publish(NewTaskAddedEvent("t1", "implementation", "high", 12))

	if callCount != 2 {
		t.Errorf("Expected both handlers to be called, got %d calls", callCount)
	}
}

func TestBus_PublishNoMatchingHandlers(t *testing.T) {
	bus := NewBus(nil)

	bus.Subscribe("optimizer.plan_computed", func(e Event) {
		t.Error("Handler should not be called for non-matching event type")
	})

	// This should not panic or call the handler
	bus.Publish(NewTaskAddedEvent("t1", "testing", "low", 4))
}

func TestBus_SubscribeAll(t *testing.T) {
	bus := NewBus(nil)

	var events []string
	bus.SubscribeAll(func(e Event) {
		events = append(events, e.EventType())
	})

	bus.Publish(NewTaskAddedEvent("t1", "implementation", "high", 10))
	bus.Publish(NewDependencyAddedEvent("t2", "t1", "hard", 1.0, false))
	bus.Publish(NewDependencyRemovedEvent("t2", "t1"))

	if len(events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(events))
	}

	expected := []string{"graph.task_added", "graph.dependency_added", "graph.dependency_removed"}
	for i, e := range expected {
		if events[i] != e {
			t.Errorf("Expected event %d to be '%s', got '%s'", i, e, events[i])
		}
	}
}

func TestBus_SpecificHandlersBeforeWildcard(t *testing.T) {
	bus := NewBus(nil)

	var order []string
	bus.SubscribeAll(func(e Event) {
		order = append(order, "wildcard")
	})
	bus.Subscribe("analyzer.completed", func(e Event) {
		order = append(order, "specific")
	})

	bus.Publish(NewAnalysisCompletedEvent(3, 2, 0, false))

	if len(order) != 2 {
		t.Fatalf("Expected 2 handler calls, got %d", len(order))
	}
	if order[0] != "specific" || order[1] != "wildcard" {
		t.Errorf("call order = %v, want [specific wildcard]", order)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(nil)

	callCount := 0
	id := bus.Subscribe("optimizer.execution_recorded", func(e Event) {
		callCount++
	})

	bus.Publish(NewExecutionRecordedEvent("g1", true, 0.9))

	if !bus.Unsubscribe(id) {
		t.Error("Unsubscribe should return true for a known ID")
	}
	if bus.Unsubscribe(id) {
		t.Error("Unsubscribe should return false for an already-removed ID")
	}

	bus.Publish(NewExecutionRecordedEvent("g2", true, 1.1))

	if callCount != 1 {
		t.Errorf("Expected handler to be called once, got %d calls", callCount)
	}
}

func TestBus_PanickingHandlerDoesNotBlockOthers(t *testing.T) {
	bus := NewBus(nil)

	secondCalled := false
	bus.Subscribe("graph.task_added", func(e Event) {
		panic("handler bug")
	})
	bus.Subscribe("graph.task_added", func(e Event) {
		secondCalled = true
	})

	bus.Publish(NewTaskAddedEvent("t1", "analysis", "medium", 7))

	if !secondCalled {
		t.Error("second handler should run after the first panics")
	}
}

func TestBus_Clear(t *testing.T) {
	bus := NewBus(nil)

	bus.Subscribe("graph.task_added", func(e Event) {})
	bus.SubscribeAll(func(e Event) {})

	bus.Clear()

	if bus.SubscriptionCount() != 0 {
		t.Errorf("Expected 0 subscriptions after Clear, got %d", bus.SubscriptionCount())
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus(nil)

	var mu sync.Mutex
	count := 0
	bus.SubscribeAll(func(e Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(NewTaskAddedEvent("t", "implementation", "low", 3))
		}()
	}
	wg.Wait()

	if count != 10 {
		t.Errorf("Expected 10 deliveries, got %d", count)
	}
}

func TestEventTimestamps(t *testing.T) {
	before := time.Now()
	e := NewPlanComputedEvent("dependency_aware", 3, 3, 12*time.Minute, 0.9)
	after := time.Now()

	if e.Timestamp().Before(before) || e.Timestamp().After(after) {
		t.Errorf("Timestamp() = %v, want between %v and %v", e.Timestamp(), before, after)
	}
	if e.EventType() != "optimizer.plan_computed" {
		t.Errorf("EventType() = %q, want %q", e.EventType(), "optimizer.plan_computed")
	}
}
