package plan

import (
	"reflect"
	"testing"
	"time"
)

func TestPriority_Rank(t *testing.T) {
	tests := []struct {
		priority Priority
		want     int
	}{
		{PriorityLow, 0},
		{PriorityMedium, 1},
		{PriorityHigh, 2},
		{PriorityCritical, 3},
		{Priority("bogus"), -1},
	}

	for _, tt := range tests {
		t.Run(string(tt.priority), func(t *testing.T) {
			if got := tt.priority.Rank(); got != tt.want {
				t.Errorf("Rank() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPriority_Score(t *testing.T) {
	tests := []struct {
		priority Priority
		want     float64
	}{
		{PriorityLow, 0.25},
		{PriorityMedium, 0.5},
		{PriorityHigh, 0.75},
		{PriorityCritical, 1.0},
		{Priority(""), 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.priority), func(t *testing.T) {
			if got := tt.priority.Score(); got != tt.want {
				t.Errorf("Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPriority_HigherThan(t *testing.T) {
	if !PriorityCritical.HigherThan(PriorityHigh) {
		t.Error("critical should outrank high")
	}
	if PriorityLow.HigherThan(PriorityLow) {
		t.Error("a priority should not outrank itself")
	}
	if PriorityMedium.HigherThan(PriorityHigh) {
		t.Error("medium should not outrank high")
	}
}

func TestPriorities_Order(t *testing.T) {
	got := Priorities()
	want := []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Priorities() = %v, want %v", got, want)
	}
}

func TestCategory_IsValid(t *testing.T) {
	valid := []Category{
		CategoryImplementation, CategoryTesting, CategoryDocumentation,
		CategoryAnalysis, CategoryRefactoring, CategoryDeployment,
	}
	for _, c := range valid {
		if !c.IsValid() {
			t.Errorf("IsValid(%q) = false, want true", c)
		}
	}
	if Category("juggling").IsValid() {
		t.Error(`IsValid("juggling") = true, want false`)
	}
}

func TestTask_Clone(t *testing.T) {
	orig := Task{
		ID:        "t1",
		Name:      "implement parser",
		Priority:  PriorityHigh,
		Category:  CategoryImplementation,
		Resources: []ResourceConstraint{{Resource: "cpu", MaxUnits: 2}},
	}

	clone := orig.Clone()
	clone.Resources[0].MaxUnits = 99

	if orig.Resources[0].MaxUnits != 2 {
		t.Error("mutating the clone's resources leaked into the original")
	}
}

func TestTask_Requirement(t *testing.T) {
	task := Task{
		Resources: []ResourceConstraint{
			{Resource: "cpu", MaxUnits: 2},
			{Resource: "network", MaxUnits: 3, Exclusive: true},
		},
	}

	if got := task.Requirement("cpu"); got != 2 {
		t.Errorf("Requirement(cpu) = %v, want 2", got)
	}
	if got := task.Requirement("disk"); got != 0 {
		t.Errorf("Requirement(disk) = %v, want 0", got)
	}
}

func TestTask_ExclusiveResources(t *testing.T) {
	task := Task{
		Resources: []ResourceConstraint{
			{Resource: "network", MaxUnits: 3, Exclusive: true},
			{Resource: "cpu", MaxUnits: 2},
			{Resource: "disk", MaxUnits: 1, Exclusive: true},
		},
	}

	got := task.ExclusiveResources()
	want := []string{"disk", "network"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExclusiveResources() = %v, want %v", got, want)
	}

	if got := (Task{}).ExclusiveResources(); got != nil {
		t.Errorf("ExclusiveResources() on empty task = %v, want nil", got)
	}
}

func TestTask_Words(t *testing.T) {
	task := Task{
		Name:        "Implement API parser",
		Description: "Requires the schema; see docs.",
	}

	got := task.Words()
	want := []string{"implement", "api", "parser", "requires", "the", "schema", "see", "docs"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Words() = %v, want %v", got, want)
	}
}

func TestTask_Words_DropsShortWords(t *testing.T) {
	task := Task{Name: "do it to a db"}
	if got := task.Words(); got != nil {
		t.Errorf("Words() = %v, want nil (all words too short)", got)
	}
}

func TestDependencyType_Multiplier(t *testing.T) {
	tests := []struct {
		dt   DependencyType
		want float64
	}{
		{DependencyHard, 1.0},
		{DependencyResource, 0.9},
		{DependencySoft, 0.8},
		{DependencyTemporal, 0.7},
		{DependencyType("odd"), 0.8},
	}

	for _, tt := range tests {
		t.Run(string(tt.dt), func(t *testing.T) {
			if got := tt.dt.Multiplier(); got != tt.want {
				t.Errorf("Multiplier() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDependency_Key(t *testing.T) {
	dep := Dependency{DependentID: "b", DependsOnID: "a"}
	if got := dep.Key(); got != "b->a" {
		t.Errorf("Key() = %q, want %q", got, "b->a")
	}
}

func TestContext_Signature(t *testing.T) {
	t.Run("nil context", func(t *testing.T) {
		var c *Context
		if got := c.Signature(); got != "ctx:none" {
			t.Errorf("Signature() = %q, want %q", got, "ctx:none")
		}
	})

	t.Run("stable across map ordering", func(t *testing.T) {
		a := &Context{SystemLoad: map[string]float64{"cpu": 0.5, "disk": 0.1, "network": 0.9}}
		b := &Context{SystemLoad: map[string]float64{"network": 0.9, "disk": 0.1, "cpu": 0.5}}
		if a.Signature() != b.Signature() {
			t.Error("identical contexts produced different signatures")
		}
	})

	t.Run("sensitive to values", func(t *testing.T) {
		a := &Context{PendingTasks: 5}
		b := &Context{PendingTasks: 6}
		if a.Signature() == b.Signature() {
			t.Error("different contexts produced identical signatures")
		}
	})
}

func TestContext_NilAccessors(t *testing.T) {
	var c *Context
	if c.CPULoad() != 0 {
		t.Error("CPULoad() on nil context should be 0")
	}
	if c.Pending() != 0 {
		t.Error("Pending() on nil context should be 0")
	}
}

func TestResourcePool_Available(t *testing.T) {
	tests := []struct {
		name string
		pool ResourcePool
		want float64
	}{
		{"unallocated", ResourcePool{Capacity: 8}, 8},
		{"partially allocated", ResourcePool{Capacity: 8, Allocated: 3}, 5},
		{"fully allocated", ResourcePool{Capacity: 8, Allocated: 8}, 0},
		{"overcommitted", ResourcePool{Capacity: 8, Allocated: 10}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pool.Available(); got != tt.want {
				t.Errorf("Available() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResourcePool_Overcommitted(t *testing.T) {
	if (ResourcePool{Capacity: 4, Allocated: 4}).Overcommitted() {
		t.Error("exactly-full pool should not be overcommitted")
	}
	if !(ResourcePool{Capacity: 4, Allocated: 5}).Overcommitted() {
		t.Error("over-full pool should report overcommitted")
	}
}

func TestExecutionGroup_Contains(t *testing.T) {
	group := ExecutionGroup{TaskIDs: []string{"a", "b"}}

	if !group.Contains("a") {
		t.Error("Contains(a) = false, want true")
	}
	if group.Contains("c") {
		t.Error("Contains(c) = true, want false")
	}
	if group.Size() != 2 {
		t.Errorf("Size() = %d, want 2", group.Size())
	}
}

func TestExecutionRecord_Fields(t *testing.T) {
	rec := ExecutionRecord{
		GroupID:           "g1",
		EstimatedDuration: 10 * time.Minute,
		ActualDuration:    5 * time.Minute,
		Efficiency:        0.5,
		Success:           true,
	}

	if rec.Efficiency != 0.5 {
		t.Errorf("Efficiency = %v, want 0.5", rec.Efficiency)
	}
}
