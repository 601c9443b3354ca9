package graph

import (
	"testing"
	"time"

	"github.com/parplan/parplan/plan"
)

func TestWhatIfDoesNotTouchLiveGraph(t *testing.T) {
	g := chainGraph(t)
	statsBefore := g.Statistics()
	pathsBefore := g.CriticalPaths()

	newDuration := 10 * time.Hour
	result, err := g.WhatIf([]Change{
		{Kind: ChangeRemoveDependency, DependentID: "c", DependsOnID: "b"},
		{Kind: ChangeModifyTask, TaskID: "a", NewDuration: &newDuration},
	})
	if err != nil {
		t.Fatalf("WhatIf: %v", err)
	}

	for i, outcome := range result.Outcomes {
		if !outcome.Applied {
			t.Errorf("change %d not applied: %s", i, outcome.Error)
		}
	}
	if result.After.TotalExecutionTime == result.Before.TotalExecutionTime {
		t.Error("simulation changed durations but projections are identical")
	}

	statsAfter := g.Statistics()
	if statsAfter.EdgeCount != statsBefore.EdgeCount {
		t.Errorf("live edge count changed: %d -> %d", statsBefore.EdgeCount, statsAfter.EdgeCount)
	}
	if n, _ := g.Node("a"); n.Task.EstimatedDuration != 3*time.Hour {
		t.Errorf("live task a duration changed to %s", n.Task.EstimatedDuration)
	}
	pathsAfter := g.CriticalPaths()
	if len(pathsAfter) != len(pathsBefore) || pathsAfter[0].TotalDuration != pathsBefore[0].TotalDuration {
		t.Error("live critical paths changed after simulation")
	}
}

func TestWhatIfReportsFailedChange(t *testing.T) {
	g := chainGraph(t)

	// The first change is impossible (would close a cycle); the second still
	// applies to the simulation.
	result, err := g.WhatIf([]Change{
		{Kind: ChangeAddDependency, Dependency: &plan.Dependency{
			DependentID: "a", DependsOnID: "c", Type: plan.DependencyHard,
		}},
		{Kind: ChangeRemoveDependency, DependentID: "b", DependsOnID: "a"},
	})
	if err != nil {
		t.Fatalf("WhatIf: %v", err)
	}
	if len(result.Outcomes) != 2 {
		t.Fatalf("outcome count = %d, want 2", len(result.Outcomes))
	}
	if result.Outcomes[0].Applied {
		t.Error("cycle-closing change reported as applied")
	}
	if result.Outcomes[0].Error == "" {
		t.Error("failed change carries no error text")
	}
	if !result.Outcomes[1].Applied {
		t.Errorf("second change not applied: %s", result.Outcomes[1].Error)
	}
}

func TestWhatIfRecommendations(t *testing.T) {
	g := chainGraph(t)

	// Shrinking the longest task well past the threshold should yield a
	// strong recommendation.
	short := time.Minute
	result, err := g.WhatIf([]Change{
		{Kind: ChangeModifyTask, TaskID: "b", NewDuration: &short},
	})
	if err != nil {
		t.Fatalf("WhatIf: %v", err)
	}
	if len(result.Recommendations) == 0 {
		t.Fatal("no recommendations returned")
	}
	if result.After.TotalExecutionTime >= result.Before.TotalExecutionTime {
		t.Errorf("projected time did not improve: %s -> %s",
			result.Before.TotalExecutionTime, result.After.TotalExecutionTime)
	}
}

func TestWhatIfUnknownChangeKind(t *testing.T) {
	g := chainGraph(t)
	result, err := g.WhatIf([]Change{{Kind: "teleport_task"}})
	if err != nil {
		t.Fatalf("WhatIf: %v", err)
	}
	if result.Outcomes[0].Applied {
		t.Error("unknown change kind reported as applied")
	}
}
