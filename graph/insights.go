package graph

import (
	"time"

	"github.com/parplan/parplan/plan"
)

// Impact score components. The score is clamped to [0, maxImpactScore].
const (
	maxImpactScore = 20.0

	// longTaskThreshold marks a single task as a structural risk.
	longTaskThreshold = 4 * time.Hour

	// staleTaskAge is the age past which delaying a task costs extra.
	staleTaskAge = 24 * time.Hour
)

// priorityImpactBase returns the impact-score base for a priority.
func priorityImpactBase(p plan.Priority) float64 {
	switch p {
	case plan.PriorityLow:
		return 2
	case plan.PriorityMedium:
		return 5
	case plan.PriorityHigh:
		return 8
	case plan.PriorityCritical:
		return 10
	default:
		return 2
	}
}

// categoryImpactWeight returns the impact-score weight for a category.
// Unknown categories weigh nothing.
func categoryImpactWeight(c plan.Category) float64 {
	switch c {
	case plan.CategoryDocumentation:
		return 1
	case plan.CategoryAnalysis, plan.CategoryTesting, plan.CategoryRefactoring:
		return 2
	case plan.CategoryImplementation:
		return 3
	case plan.CategoryDeployment:
		return 4
	default:
		return 0
	}
}

// computeMetadata derives a node's decision metadata from its task snapshot
// and the context captured at AddTask time. The existing per-predecessor
// confidence map is carried through untouched.
func computeMetadata(task plan.Task, ctx *plan.Context, confidenceIn map[string]float64, now time.Time) Metadata {
	impact := priorityImpactBase(task.Priority) + categoryImpactWeight(task.Category)

	// Duration bonus, capped at four hours' worth.
	hours := task.EstimatedDuration.Hours()
	if hours > 4 {
		hours = 4
	}
	if hours > 0 {
		impact += hours
	}

	// Context boosts: a failing build makes implementation work urgent, and
	// failing tests make testing work urgent.
	if ctx != nil {
		if !ctx.BuildPassing && task.Category == plan.CategoryImplementation {
			impact += 3
		}
		if !ctx.TestsPassing && task.Category == plan.CategoryTesting {
			impact += 3
		}
	}
	if impact > maxImpactScore {
		impact = maxImpactScore
	}
	if impact < 0 {
		impact = 0
	}

	criticality := deriveCriticality(impact, task.Priority)

	flexibility := 1.0
	if task.Priority == plan.PriorityCritical {
		flexibility *= 0.5
	}
	switch task.Category {
	case plan.CategoryDeployment:
		flexibility *= 0.7
	case plan.CategoryAnalysis:
		flexibility *= 0.8
	}
	if task.ValidationCriteria > 3 {
		flexibility *= 0.85
	}
	if flexibility < 0.1 {
		flexibility = 0.1
	}

	delayCost := impact * 1000
	if !task.CreatedAt.IsZero() && now.Sub(task.CreatedAt) > staleTaskAge {
		delayCost *= 1.5
	}

	if confidenceIn == nil {
		confidenceIn = make(map[string]float64)
	}
	return Metadata{
		ImpactScore:  impact,
		Criticality:  criticality,
		Flexibility:  flexibility,
		DelayCost:    delayCost,
		ConfidenceIn: confidenceIn,
	}
}

// deriveCriticality thresholds the impact score, with the task's own
// priority as a floor at the critical and high levels.
func deriveCriticality(impact float64, priority plan.Priority) plan.Priority {
	switch {
	case impact >= 15 || priority == plan.PriorityCritical:
		return plan.PriorityCritical
	case impact >= 11 || priority == plan.PriorityHigh:
		return plan.PriorityHigh
	case impact >= 6:
		return plan.PriorityMedium
	default:
		return plan.PriorityLow
	}
}

// refreshLocked recomputes all derived graph state after a mutation: node
// metadata, the flexibility map, the cycle flag, and the risk assessment.
// Cached critical paths and optimizations are invalidated.
func (g *Graph) refreshLocked() {
	now := g.now()
	for _, n := range g.nodes {
		n.metadata = computeMetadata(n.task, n.ctx, n.metadata.ConfidenceIn, now)
	}

	g.flexibilityByTask = make(map[string]float64, len(g.nodes))
	for id, n := range g.nodes {
		g.flexibilityByTask[id] = n.metadata.Flexibility
	}

	g.hasCycles = g.sweepCyclesLocked()
	g.risk = g.assessRiskLocked()
	g.invalidateLocked()
}

// invalidateLocked discards cached derived results.
func (g *Graph) invalidateLocked() {
	g.pathsValid = false
	g.pathCache = nil
	g.optCache = make(map[string][]Optimization)
}

// sweepCyclesLocked runs a white/gray/black DFS over the dependsOn adjacency.
// The insertion-time guard keeps the graph acyclic, so this normally reports
// false; the sweep keeps the flag truthful rather than assumed.
func (g *Graph) sweepCyclesLocked() bool {
	const (
		white = 0 // unvisited
		gray  = 1 // on the current DFS path
		black = 2 // fully explored
	)
	color := make(map[string]int, len(g.nodes))

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = gray
		n := g.nodes[id]
		if n != nil {
			for _, dep := range n.dependencyIDs {
				switch color[dep] {
				case gray:
					return true
				case white:
					if visit(dep) {
						return true
					}
				}
			}
		}
		color[id] = black
		return false
	}

	for _, id := range g.sortedIDsLocked() {
		if color[id] == white && visit(id) {
			return true
		}
	}
	return false
}

// assessRiskLocked scores the graph's structural risk in [0, 1] and names
// the contributing factors with mitigations.
func (g *Graph) assessRiskLocked() riskAssessment {
	if len(g.nodes) == 0 {
		return riskAssessment{}
	}

	criticalitySum := 0.0
	flexibilitySum := 0.0
	highCriticality := 0
	longTasks := 0
	for _, n := range g.nodes {
		criticalitySum += n.metadata.Criticality.Score()
		flexibilitySum += n.metadata.Flexibility
		if n.metadata.Criticality == plan.PriorityHigh || n.metadata.Criticality == plan.PriorityCritical {
			highCriticality++
		}
		if n.task.EstimatedDuration > longTaskThreshold {
			longTasks++
		}
	}
	count := float64(len(g.nodes))
	meanCriticality := criticalitySum / count
	meanFlexibility := flexibilitySum / count
	density := g.edgeDensityLocked()

	overall := 0.4*meanCriticality + 0.3*density + 0.3*(1-meanFlexibility)
	if overall > 1 {
		overall = 1
	}
	if overall < 0 {
		overall = 0
	}

	var factors []RiskFactor
	if share := float64(highCriticality) / count; share > 0.5 {
		factors = append(factors, RiskFactor{
			Name:        "high_criticality_share",
			Description: "more than half of the tasks are high or critical criticality",
			Score:       share,
			Mitigation:  "re-examine priorities; not everything can be critical at once",
		})
	}
	if density > 0.7 {
		factors = append(factors, RiskFactor{
			Name:        "dense_dependencies",
			Description: "the dependency graph is densely connected, limiting parallelism",
			Score:       density,
			Mitigation:  "remove low-confidence edges or split heavily connected tasks",
		})
	}
	if longTasks > 0 {
		factors = append(factors, RiskFactor{
			Name:        "long_tasks",
			Description: "one or more tasks exceed four hours of estimated duration",
			Score:       float64(longTasks) / count,
			Mitigation:  "split long tasks so failures surface earlier",
		})
	}

	return riskAssessment{overallRisk: overall, factors: factors}
}
