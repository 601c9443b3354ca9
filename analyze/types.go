package analyze

import (
	"time"

	"github.com/parplan/parplan/plan"
)

// Signal sources contributing to a suggestion's confidence.
const (
	SourceSemantic = "semantic"
	SourceTemporal = "temporal"
	SourceResource = "resource"
	SourcePattern  = "pattern"
)

// Conflict types.
const (
	ConflictCircular = "circular"
	ConflictResource = "resource"
	ConflictTemporal = "temporal"
	ConflictLogical  = "logical"
)

// Result is the output of one dependency analysis.
type Result struct {
	// SuggestedDependencies are the inferred edges whose blended confidence
	// cleared the auto-create threshold, sorted by key.
	SuggestedDependencies []plan.Dependency `json:"suggested_dependencies,omitempty"`

	// ConfidenceScores maps every candidate edge key to its blended
	// confidence, including candidates below the threshold, for
	// transparency into what was considered and rejected.
	ConfidenceScores map[string]float64 `json:"confidence_scores,omitempty"`

	// Conflicts lists problems found in the combined (existing plus
	// suggested) edge set.
	Conflicts []Conflict `json:"conflicts,omitempty"`

	// Impact estimates the performance consequences of the combined edges.
	Impact PerformanceImpact `json:"impact"`

	// Optimizations are free-text improvement notes.
	Optimizations []string `json:"optimizations,omitempty"`

	// AnalyzedAt is when the analysis was computed (not served from cache).
	AnalyzedAt time.Time `json:"analyzed_at"`
}

// Conflict is one problem detected in the combined edge set.
type Conflict struct {
	// Type is circular, resource, temporal, or logical.
	Type string `json:"type"`

	// TaskIDs lists the involved tasks. For circular conflicts this is the
	// actual cycle path, first task repeated at the end.
	TaskIDs []string `json:"task_ids"`

	// Description explains the conflict.
	Description string `json:"description"`

	// Resolutions lists ways to resolve it.
	Resolutions []string `json:"resolutions,omitempty"`
}

// PerformanceImpact estimates how the combined dependency set shapes
// execution.
type PerformanceImpact struct {
	// CriticalPathEstimate proxies the critical path as topological layer
	// count times mean task duration.
	CriticalPathEstimate time.Duration `json:"critical_path_estimate"`

	// TotalDuration is the summed estimated duration of all tasks.
	TotalDuration time.Duration `json:"total_duration"`

	// ParallelizationPotential is the fraction of tasks with no inbound
	// suggested edge, in [0, 1].
	ParallelizationPotential float64 `json:"parallelization_potential"`

	// ResourceUtilization is a fixed planning-time estimate.
	ResourceUtilization float64 `json:"resource_utilization"`

	// Bottlenecks lists tasks with three or more inbound edges in the
	// combined graph.
	Bottlenecks []string `json:"bottlenecks,omitempty"`
}

// PatternStat accumulates acceptance history for one category pair.
type PatternStat struct {
	// Occurrences counts accepted suggestions for the pair.
	Occurrences int `json:"occurrences"`

	// MeanConfidence is the running mean confidence of accepted suggestions.
	MeanConfidence float64 `json:"mean_confidence"`
}

// signal is one detector's vote for a candidate edge.
type signal struct {
	dep    plan.Dependency
	source string
	score  float64
}
