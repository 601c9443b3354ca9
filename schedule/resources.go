package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/parplan/parplan/config"
	"github.com/parplan/parplan/plan"
)

// Resolution option kinds for a contention.
const (
	ResolutionSequence  = "sequence"
	ResolutionTimeSlice = "time_slice"
	ResolutionUpgrade   = "capacity_upgrade"
)

// timeSliceOverhead is the wall-time penalty assumed when contending tasks
// share a pool in slices instead of sequencing.
const timeSliceOverhead = 0.2

// ResolutionOption is one way to resolve a contention, with a rough cost.
type ResolutionOption struct {
	// Kind is sequence, time_slice, or capacity_upgrade.
	Kind string `json:"kind"`

	// Description explains the option.
	Description string `json:"description"`

	// TimeCost is the extra wall time the option introduces, if any.
	TimeCost time.Duration `json:"time_cost,omitempty"`

	// MonetaryCost is the estimated spend, for capacity upgrades.
	MonetaryCost float64 `json:"monetary_cost,omitempty"`
}

// Contention reports a resource the task set demands more of than the pool
// offers to concurrent users.
type Contention struct {
	// Resource names the contended pool.
	Resource string `json:"resource"`

	// TaskIDs lists the tasks competing for it, sorted.
	TaskIDs []string `json:"task_ids"`

	// Severity is total demand over capacity, capped at 1.
	Severity float64 `json:"severity"`

	// Options lists the resolution options.
	Options []ResolutionOption `json:"options"`
}

// poolsFromConfig materializes the pool registry.
func poolsFromConfig(pools []config.PoolConfig) map[string]plan.ResourcePool {
	out := make(map[string]plan.ResourcePool, len(pools))
	for _, p := range pools {
		out[p.Name] = plan.ResourcePool{
			Name:        p.Name,
			Capacity:    p.Capacity,
			Shareable:   p.Shareable,
			CostPerUnit: p.CostPerUnit,
		}
	}
	return out
}

// Pools returns a copy of the optimizer's resource pool registry.
func (o *Optimizer) Pools() []plan.ResourcePool {
	o.mu.Lock()
	defer o.mu.Unlock()

	names := make([]string, 0, len(o.pools))
	for name := range o.pools {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]plan.ResourcePool, 0, len(names))
	for _, name := range names {
		out = append(out, o.pools[name])
	}
	return out
}

// detectContentions finds resources where concurrent demand cannot be met:
// more than one task drawing on a non-shareable pool, or more than one task
// requiring exclusive access to any pool. Each contention carries three
// resolution options with cost estimates.
func (o *Optimizer) detectContentions(tasks []plan.Task) []Contention {
	demand := make(map[string]float64)
	competitors := make(map[string][]plan.Task)
	for _, t := range tasks {
		for _, rc := range t.Resources {
			if rc.MaxUnits <= 0 {
				continue
			}
			pool, known := o.pools[rc.Resource]
			contended := rc.Exclusive || (known && !pool.Shareable)
			if !contended {
				continue
			}
			demand[rc.Resource] += rc.MaxUnits
			competitors[rc.Resource] = append(competitors[rc.Resource], t)
		}
	}

	resources := make([]string, 0, len(competitors))
	for r := range competitors {
		resources = append(resources, r)
	}
	sort.Strings(resources)

	var contentions []Contention
	for _, resource := range resources {
		tasksOnResource := competitors[resource]
		if len(tasksOnResource) < 2 {
			continue
		}

		capacity := demand[resource] // unknown pool: severity saturates at 1
		if pool, ok := o.pools[resource]; ok {
			capacity = pool.Capacity
		}
		severity := 1.0
		if capacity > 0 {
			severity = demand[resource] / capacity
			if severity > 1 {
				severity = 1
			}
		}

		ids := make([]string, 0, len(tasksOnResource))
		totalDuration := time.Duration(0)
		longest := time.Duration(0)
		for _, t := range tasksOnResource {
			ids = append(ids, t.ID)
			totalDuration += t.EstimatedDuration
			if t.EstimatedDuration > longest {
				longest = t.EstimatedDuration
			}
		}
		sort.Strings(ids)

		contentions = append(contentions, Contention{
			Resource: resource,
			TaskIDs:  ids,
			Severity: severity,
			Options:  o.resolutionOptions(resource, capacity, demand[resource], totalDuration, longest),
		})
	}
	return contentions
}

// resolutionOptions builds the three standard ways out of a contention.
func (o *Optimizer) resolutionOptions(resource string, capacity, demand float64, totalDuration, longest time.Duration) []ResolutionOption {
	sequenceCost := totalDuration - longest
	if sequenceCost < 0 {
		sequenceCost = 0
	}

	sliceCost := time.Duration(float64(totalDuration) * timeSliceOverhead)

	shortfall := demand - capacity
	if shortfall < 0 {
		shortfall = 0
	}
	costPerUnit := 1.0
	if pool, ok := o.pools[resource]; ok && pool.CostPerUnit > 0 {
		costPerUnit = pool.CostPerUnit
	}

	return []ResolutionOption{
		{
			Kind:        ResolutionSequence,
			Description: fmt.Sprintf("run the tasks contending for %s one at a time", resource),
			TimeCost:    sequenceCost,
		},
		{
			Kind: ResolutionTimeSlice,
			Description: fmt.Sprintf("time-slice %s between the tasks, accepting about %.0f%% overhead",
				resource, timeSliceOverhead*100),
			TimeCost: sliceCost,
		},
		{
			Kind: ResolutionUpgrade,
			Description: fmt.Sprintf("add %.1f units of %s capacity to serve the full demand",
				shortfall, resource),
			MonetaryCost: shortfall * costPerUnit,
		},
	}
}
