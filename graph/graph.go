// Package graph maintains the mutable task dependency DAG.
//
// The graph owns the task/edge data model for the planning core: it enforces
// acyclicity at edge-insertion time, derives per-node decision metadata
// (impact, criticality, flexibility, delay cost), computes critical paths and
// bottlenecks, proposes structural optimizations, and supports reversible
// what-if simulation against a deep copy.
//
// A Graph is a single logical owner of its state. All public operations take
// an internal mutex, so a Graph is safe for concurrent use, but the intended
// discipline is one logical actor per instance: planning calls are
// deterministic given identical inputs and there is no cross-call
// transaction boundary.
package graph

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/parplan/parplan/errors"
	"github.com/parplan/parplan/event"
	"github.com/parplan/parplan/logging"
	"github.com/parplan/parplan/plan"
)

// Metadata is the decision metadata derived for every node when its task is
// added and refreshed after each mutation.
type Metadata struct {
	// ImpactScore estimates how much the task matters, in [0, 20]. It blends
	// priority, category weight, duration, and context boosts.
	ImpactScore float64 `json:"impact_score"`

	// Criticality is the derived urgency classification, thresholded off the
	// impact score and the task's own priority.
	Criticality plan.Priority `json:"criticality"`

	// Flexibility scores how freely the task can be rescheduled, in
	// [0.1, 1]. Critical, deployment, analysis, and heavily validated tasks
	// lose flexibility.
	Flexibility float64 `json:"flexibility"`

	// DelayCost estimates the cost of postponing the task.
	DelayCost float64 `json:"delay_cost"`

	// ConfidenceIn maps each prerequisite task id to the confidence of the
	// edge pointing at it.
	ConfidenceIn map[string]float64 `json:"confidence_in,omitempty"`
}

// Node is the public view of one graph node.
type Node struct {
	Task          plan.Task `json:"task"`
	DependencyIDs []string  `json:"dependency_ids,omitempty"`
	DependentIDs  []string  `json:"dependent_ids,omitempty"`
	Metadata      Metadata  `json:"metadata"`
}

// node is the internal mutable representation.
type node struct {
	task          plan.Task
	ctx           *plan.Context // context snapshot from AddTask, reused on refresh
	dependencyIDs []string      // tasks this node waits for
	dependentIDs  []string      // tasks waiting on this node
	metadata      Metadata
}

// riskAssessment summarizes structural risk across the whole graph.
type riskAssessment struct {
	overallRisk float64
	factors     []RiskFactor
}

// RiskFactor names one contributor to the graph's overall risk.
type RiskFactor struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
	Mitigation  string  `json:"mitigation,omitempty"`
}

// Graph is the dependency graph component.
type Graph struct {
	mu    sync.Mutex
	nodes map[string]*node
	edges map[string]*plan.Dependency // edge key -> edge

	hasCycles bool
	updatedAt time.Time

	flexibilityByTask map[string]float64
	risk              riskAssessment

	// Derived results, invalidated on every mutation.
	pathCache  []CriticalPath
	pathsValid bool
	optCache   map[string][]Optimization

	logger *logging.Logger
	bus    *event.Bus
	now    func() time.Time
}

// Option configures a Graph.
type Option func(*Graph)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *logging.Logger) Option {
	return func(g *Graph) {
		if l != nil {
			g.logger = l.WithComponent("graph")
		}
	}
}

// WithBus sets the event bus mutations are published to.
func WithBus(b *event.Bus) Option {
	return func(g *Graph) { g.bus = b }
}

// WithClock injects the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(g *Graph) {
		if now != nil {
			g.now = now
		}
	}
}

// New creates an empty dependency graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		nodes:             make(map[string]*node),
		edges:             make(map[string]*plan.Dependency),
		flexibilityByTask: make(map[string]float64),
		optCache:          make(map[string][]Optimization),
		logger:            logging.Nop().WithComponent("graph"),
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.updatedAt = g.now()
	return g
}

// -----------------------------------------------------------------------------
// Mutations
// -----------------------------------------------------------------------------

// AddTask inserts a task node, computing its decision metadata. The call is
// idempotent by task id: re-adding an existing id never duplicates the node
// or disturbs its adjacency, it only refreshes the stored task snapshot and
// context so the next metadata refresh sees current data.
func (g *Graph) AddTask(task plan.Task, ctx *plan.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if existing, ok := g.nodes[task.ID]; ok {
		existing.task = task.Clone()
		existing.ctx = ctx
		g.refreshLocked()
		return
	}

	n := &node{
		task:     task.Clone(),
		ctx:      ctx,
		metadata: Metadata{ConfidenceIn: make(map[string]float64)},
	}
	g.nodes[task.ID] = n
	g.updatedAt = g.now()
	g.refreshLocked()

	g.logger.Debug("task added",
		"task_id", task.ID,
		"impact", n.metadata.ImpactScore,
		"criticality", n.metadata.Criticality.String())
	if g.bus != nil {
		g.bus.Publish(event.NewTaskAddedEvent(
			task.ID, task.Category.String(), task.Priority.String(), n.metadata.ImpactScore))
	}
}

// AddDependency inserts a dependency edge, guarding the graph's acyclicity.
// It fails closed with a *errors.ValidationError — leaving the graph
// unchanged — when either endpoint is missing, the edge is a self-loop, or a
// dependency path from the prerequisite back to the dependent already exists
// (the edge would close a cycle).
//
// Re-adding an existing (dependent, dependsOn) pair degrades to a confidence
// update in place: the edge count does not change.
//
// On success it returns a Decision recording the reasoning, impact evidence,
// and the alternatives that were considered.
func (g *Graph) AddDependency(dep plan.Dependency, confidence float64) (*plan.Decision, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	dependent, ok := g.nodes[dep.DependentID]
	if !ok {
		return nil, errors.NewValidationError("dependent task does not exist").
			WithField("dependentTaskId").WithValue(dep.DependentID).
			WithCause(errors.ErrTaskNotFound)
	}
	dependsOn, ok := g.nodes[dep.DependsOnID]
	if !ok {
		return nil, errors.NewValidationError("prerequisite task does not exist").
			WithField("dependsOnTaskId").WithValue(dep.DependsOnID).
			WithCause(errors.ErrTaskNotFound)
	}
	if dep.DependentID == dep.DependsOnID {
		return nil, errors.NewValidationError("task cannot depend on itself").
			WithField("dependentTaskId").WithValue(dep.DependentID).
			WithCause(errors.ErrSelfDependency)
	}

	key := dep.Key()
	if existing, ok := g.edges[key]; ok {
		existing.Confidence = confidence
		dependent.metadata.ConfidenceIn[dep.DependsOnID] = confidence
		g.updatedAt = g.now()
		g.invalidateLocked()

		g.logger.Debug("dependency confidence updated", "edge", key, "confidence", confidence)
		if g.bus != nil {
			g.bus.Publish(event.NewDependencyAddedEvent(
				dep.DependentID, dep.DependsOnID, existing.Type.String(), confidence, true))
		}
		return g.buildDecisionLocked(dep, confidence, true), nil
	}

	// Cycle guard: if the prerequisite already (transitively) depends on the
	// dependent, this edge would close a cycle. Iterative DFS over the
	// dependsOn links starting at the prerequisite.
	if g.reachesLocked(dep.DependsOnID, dep.DependentID) {
		return nil, errors.NewValidationError("dependency would create a cycle").
			WithField("dependsOnTaskId").WithValue(dep.DependsOnID).
			WithCause(errors.ErrDependencyCycle)
	}

	stored := dep
	stored.Confidence = confidence
	g.edges[key] = &stored
	dependent.dependencyIDs = append(dependent.dependencyIDs, dep.DependsOnID)
	dependsOn.dependentIDs = append(dependsOn.dependentIDs, dep.DependentID)
	dependent.metadata.ConfidenceIn[dep.DependsOnID] = confidence
	g.updatedAt = g.now()
	g.refreshLocked()

	g.logger.Debug("dependency added", "edge", key, "type", dep.Type.String(), "confidence", confidence)
	if g.bus != nil {
		g.bus.Publish(event.NewDependencyAddedEvent(
			dep.DependentID, dep.DependsOnID, dep.Type.String(), confidence, false))
	}
	return g.buildDecisionLocked(dep, confidence, false), nil
}

// RemoveDependency removes the edge (dependentID, dependsOnID). It returns a
// *errors.NotFoundError when no such edge exists.
func (g *Graph) RemoveDependency(dependentID, dependsOnID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := dependentID + "->" + dependsOnID
	if _, ok := g.edges[key]; !ok {
		return errors.NewNotFoundError("dependency", key).WithCause(errors.ErrEdgeNotFound)
	}

	delete(g.edges, key)
	if n, ok := g.nodes[dependentID]; ok {
		n.dependencyIDs = removeString(n.dependencyIDs, dependsOnID)
		delete(n.metadata.ConfidenceIn, dependsOnID)
	}
	if n, ok := g.nodes[dependsOnID]; ok {
		n.dependentIDs = removeString(n.dependentIDs, dependentID)
	}
	g.updatedAt = g.now()
	g.refreshLocked()

	g.logger.Debug("dependency removed", "edge", key)
	if g.bus != nil {
		g.bus.Publish(event.NewDependencyRemovedEvent(dependentID, dependsOnID))
	}
	return nil
}

// reachesLocked reports whether target is reachable from start by following
// dependsOn links. Iterative DFS; the graph stays acyclic so no visit marker
// subtleties arise beyond plain de-duplication.
func (g *Graph) reachesLocked(start, target string) bool {
	stack := []string{start}
	visited := make(map[string]bool)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == target {
			return true
		}
		if visited[id] {
			continue
		}
		visited[id] = true
		if n, ok := g.nodes[id]; ok {
			stack = append(stack, n.dependencyIDs...)
		}
	}
	return false
}

// buildDecisionLocked assembles the audit record for an accepted edge.
func (g *Graph) buildDecisionLocked(dep plan.Dependency, confidence float64, upsert bool) *plan.Decision {
	dependent := g.nodes[dep.DependentID]
	dependsOn := g.nodes[dep.DependsOnID]

	choice := "add " + dep.Type.String() + " dependency " + dep.Key()
	reasoning := "task " + dep.DependentID + " waits for " + dep.DependsOnID
	if dep.Reason != "" {
		reasoning += ": " + dep.Reason
	}
	if upsert {
		choice = "update confidence of dependency " + dep.Key()
		reasoning = "edge already exists; confidence updated in place"
	}

	priority := dependent.task.Priority
	if dependsOn.task.Priority.HigherThan(priority) {
		priority = dependsOn.task.Priority
	}

	var alternatives []plan.Alternative
	if dep.Type == plan.DependencyHard {
		alternatives = append(alternatives, plan.Alternative{
			Choice:     "add as soft dependency instead",
			Confidence: confidence * 0.8,
			Reasoning:  "a soft edge preserves the ordering preference without blocking execution",
		})
	}
	alternatives = append(alternatives,
		plan.Alternative{
			Choice:     "defer until current work completes",
			Confidence: confidence * 0.6,
			Reasoning:  "delaying the edge avoids reshaping in-flight execution groups",
		},
		plan.Alternative{
			Choice:     "reject the dependency",
			Confidence: 1 - confidence,
			Reasoning:  "the relationship may be coincidental",
		},
	)

	return &plan.Decision{
		ID:         uuid.NewString(),
		Choice:     choice,
		Priority:   priority,
		Confidence: confidence,
		Reasoning:  reasoning,
		Evidence: map[string]any{
			"dependent_impact":    dependent.metadata.ImpactScore,
			"prerequisite_impact": dependsOn.metadata.ImpactScore,
			"overall_risk":        g.risk.overallRisk,
			"edge_count":          len(g.edges),
		},
		ExpectedOutcome: "task " + dep.DependentID + " is scheduled after " + dep.DependsOnID,
		Alternatives:    alternatives,
		CreatedAt:       g.now(),
	}
}

// -----------------------------------------------------------------------------
// Queries
// -----------------------------------------------------------------------------

// Node returns a copy of the named node, or false when absent.
func (g *Graph) Node(taskID string) (Node, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.nodes[taskID]
	if !ok {
		return Node{}, false
	}
	return g.publicNodeLocked(taskID, n), true
}

// TaskIDs returns the sorted ids of every node.
func (g *Graph) TaskIDs() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sortedIDsLocked()
}

// Dependencies returns a copy of every edge, sorted by key.
func (g *Graph) Dependencies() []plan.Dependency {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]plan.Dependency, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// FlexibilityScore returns the graph-wide scheduling flexibility in [0, 1]:
// the mean node flexibility penalized by edge density and by the presence of
// cycles.
func (g *Graph) FlexibilityScore() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.flexibilityScoreLocked()
}

func (g *Graph) flexibilityScoreLocked() float64 {
	if len(g.nodes) == 0 {
		return 0
	}
	sum := 0.0
	for _, n := range g.nodes {
		sum += n.metadata.Flexibility
	}
	score := sum/float64(len(g.nodes)) - g.edgeDensityLocked()*0.3
	if g.hasCycles {
		score -= 0.2
	}
	if score < 0 {
		return 0
	}
	return score
}

// edgeDensityLocked returns edges divided by the number of possible directed
// edges, n·(n−1).
func (g *Graph) edgeDensityLocked() float64 {
	n := len(g.nodes)
	if n < 2 {
		return 0
	}
	return float64(len(g.edges)) / float64(n*(n-1))
}

// Statistics is an aggregate snapshot of the graph for monitoring.
type Statistics struct {
	TaskCount         int       `json:"task_count"`
	EdgeCount         int       `json:"edge_count"`
	MeanConfidence    float64   `json:"mean_confidence"`
	FlexibilityScore  float64   `json:"flexibility_score"`
	OverallRisk       float64   `json:"overall_risk"`
	BottleneckCount   int       `json:"bottleneck_count"`
	CriticalPathCount int       `json:"critical_path_count"`
	HasCycles         bool      `json:"has_cycles"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Statistics returns aggregate counts and derived scores.
func (g *Graph) Statistics() Statistics {
	g.mu.Lock()
	defer g.mu.Unlock()

	meanConfidence := 0.0
	if len(g.edges) > 0 {
		sum := 0.0
		for _, e := range g.edges {
			sum += e.Confidence
		}
		meanConfidence = sum / float64(len(g.edges))
	}

	return Statistics{
		TaskCount:         len(g.nodes),
		EdgeCount:         len(g.edges),
		MeanConfidence:    meanConfidence,
		FlexibilityScore:  g.flexibilityScoreLocked(),
		OverallRisk:       g.risk.overallRisk,
		BottleneckCount:   len(g.bottlenecksLocked()),
		CriticalPathCount: len(g.criticalPathsLocked()),
		HasCycles:         g.hasCycles,
		UpdatedAt:         g.updatedAt,
	}
}

// RiskFactors returns the current risk factors, most severe first.
func (g *Graph) RiskFactors() []RiskFactor {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]RiskFactor, len(g.risk.factors))
	copy(out, g.risk.factors)
	return out
}

// -----------------------------------------------------------------------------
// Internal helpers
// -----------------------------------------------------------------------------

func (g *Graph) publicNodeLocked(id string, n *node) Node {
	deps := make([]string, len(n.dependencyIDs))
	copy(deps, n.dependencyIDs)
	dependents := make([]string, len(n.dependentIDs))
	copy(dependents, n.dependentIDs)
	confidence := make(map[string]float64, len(n.metadata.ConfidenceIn))
	for k, v := range n.metadata.ConfidenceIn {
		confidence[k] = v
	}
	md := n.metadata
	md.ConfidenceIn = confidence
	return Node{
		Task:          n.task.Clone(),
		DependencyIDs: deps,
		DependentIDs:  dependents,
		Metadata:      md,
	}
}

func (g *Graph) sortedIDsLocked() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func removeString(s []string, v string) []string {
	for i, x := range s {
		if x == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
