package analyze

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/parplan/parplan/plan"
)

// categoryRelation gives the base dependency strength for a
// (dependent category, prerequisite category) pair. Pairs absent from the
// matrix have no recognized workflow relationship.
var categoryRelation = map[plan.Category]map[plan.Category]float64{
	plan.CategoryTesting: {
		plan.CategoryImplementation: 0.8,
	},
	plan.CategoryDeployment: {
		plan.CategoryTesting:        0.7,
		plan.CategoryImplementation: 0.6,
	},
	plan.CategoryImplementation: {
		plan.CategoryAnalysis:    0.7,
		plan.CategoryRefactoring: 0.4,
	},
	plan.CategoryDocumentation: {
		plan.CategoryImplementation: 0.6,
	},
	plan.CategoryRefactoring: {
		plan.CategoryTesting:  0.5,
		plan.CategoryAnalysis: 0.5,
	},
}

// Keyword groups that force a dependency type when they appear in the
// dependent's text. Resource wins over temporal wins over hard; the default
// is soft.
var (
	resourceKeywords = []string{"resource", "exclusive", "lock", "contention"}
	temporalKeywords = []string{"after", "before", "once", "following"}
	hardKeywords     = []string{"requires", "depends", "blocks", "needs"}
)

// relationStrength returns the workflow strength of dependent waiting on
// prerequisite, or 0 when the category pair has no relationship.
func relationStrength(dependent, prerequisite plan.Category) float64 {
	return categoryRelation[dependent][prerequisite]
}

// categoriesRelated reports whether either direction of the pair has a
// workflow relationship.
func categoriesRelated(a, b plan.Category) bool {
	return relationStrength(a, b) > 0 || relationStrength(b, a) > 0
}

// -----------------------------------------------------------------------------
// Semantic detector
// -----------------------------------------------------------------------------

// detectSemantic suggests edges between textually similar tasks. For each
// unordered pair it computes word-overlap similarity; strictly above the
// similarity threshold it scores both possible directions and emits only the
// stronger one, provided that direction is strictly above the strength
// threshold.
func (a *Analyzer) detectSemantic(tasks []plan.Task, known map[string]bool) []signal {
	var signals []signal
	for i := 0; i < len(tasks); i++ {
		for j := i + 1; j < len(tasks); j++ {
			t1, t2 := tasks[i], tasks[j]
			similarity := jaccard(t1.Words(), t2.Words())
			if similarity <= a.cfg.SimilarityThreshold {
				continue
			}

			forward := dependencyStrength(t1, t2)  // t1 waits on t2
			backward := dependencyStrength(t2, t1) // t2 waits on t1

			dependent, prerequisite, strength := t1, t2, forward
			if backward > forward {
				dependent, prerequisite, strength = t2, t1, backward
			}
			if strength <= a.cfg.StrengthThreshold {
				continue
			}
			if edgeKnown(known, dependent.ID, prerequisite.ID) {
				continue
			}

			signals = append(signals, signal{
				dep: plan.Dependency{
					DependentID: dependent.ID,
					DependsOnID: prerequisite.ID,
					Type:        classifyType(dependent),
					Reason: fmt.Sprintf("semantic: %.0f%% word overlap between %q and %q",
						similarity*100, dependent.Name, prerequisite.Name),
					Parallelizable: true,
				},
				source: SourceSemantic,
				score:  clamp01(strength),
			})
		}
	}
	return signals
}

// dependencyStrength scores how plausibly dependent waits on prerequisite:
// the category relationship base, plus bonuses when the prerequisite
// outranks the dependent, when the dependent's text carries dependency
// keywords, and when the prerequisite is at least as long as the dependent.
func dependencyStrength(dependent, prerequisite plan.Task) float64 {
	strength := relationStrength(dependent.Category, prerequisite.Category)
	if prerequisite.Priority.HigherThan(dependent.Priority) {
		strength += 0.2
	}
	if hasAnyKeyword(dependent, hardKeywords) ||
		hasAnyKeyword(dependent, temporalKeywords) ||
		hasAnyKeyword(dependent, resourceKeywords) {
		strength += 0.3
	}
	if prerequisite.EstimatedDuration >= dependent.EstimatedDuration {
		strength += 0.1
	}
	return strength
}

// classifyType derives the edge type from the dependent's text:
// resource keywords win over temporal keywords win over hard keywords, and
// a task with none of them gets an advisory soft edge.
func classifyType(dependent plan.Task) plan.DependencyType {
	switch {
	case hasAnyKeyword(dependent, resourceKeywords):
		return plan.DependencyResource
	case hasAnyKeyword(dependent, temporalKeywords):
		return plan.DependencyTemporal
	case hasAnyKeyword(dependent, hardKeywords):
		return plan.DependencyHard
	default:
		return plan.DependencySoft
	}
}

func hasAnyKeyword(t plan.Task, keywords []string) bool {
	text := strings.ToLower(t.Name + " " + t.Description)
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// jaccard computes the Jaccard similarity of two word lists.
func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, w := range a {
		set[w] = true
	}
	union := make(map[string]bool, len(a)+len(b))
	for _, w := range a {
		union[w] = true
	}
	intersection := 0
	for _, w := range b {
		if !union[w] {
			union[w] = true
		} else if set[w] {
			set[w] = false // count each shared word once
			intersection++
		}
	}
	return float64(intersection) / float64(len(union))
}

// -----------------------------------------------------------------------------
// Temporal detector
// -----------------------------------------------------------------------------

// detectTemporal suggests time-ordered edges between tasks created in quick
// succession. Tasks are sorted by creation time; an adjacent pair within the
// temporal window, with related categories and enough combined urgency,
// yields a parallelizable temporal edge from the later task to the earlier
// one with a minimum delay capped at the configured maximum.
func (a *Analyzer) detectTemporal(tasks []plan.Task, known map[string]bool) []signal {
	ordered := make([]plan.Task, len(tasks))
	copy(ordered, tasks)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	var signals []signal
	for i := 0; i+1 < len(ordered); i++ {
		earlier, later := ordered[i], ordered[i+1]
		gap := later.CreatedAt.Sub(earlier.CreatedAt)
		if gap < 0 || gap > a.cfg.TemporalWindow {
			continue
		}
		if !categoriesRelated(later.Category, earlier.Category) {
			continue
		}
		urgency := (earlier.Priority.Score() + later.Priority.Score()) / 2
		if urgency < a.cfg.UrgencyThreshold {
			continue
		}
		if edgeKnown(known, later.ID, earlier.ID) {
			continue
		}

		proximity := 1.0
		if a.cfg.TemporalWindow > 0 {
			proximity = 1 - gap.Seconds()/a.cfg.TemporalWindow.Seconds()
		}
		minDelay := gap
		if minDelay > a.cfg.TemporalMaxDelay {
			minDelay = a.cfg.TemporalMaxDelay
		}

		signals = append(signals, signal{
			dep: plan.Dependency{
				DependentID: later.ID,
				DependsOnID: earlier.ID,
				Type:        plan.DependencyTemporal,
				Reason: fmt.Sprintf("temporal: created %s apart within the %s window",
					gap.Round(time.Second), a.cfg.TemporalWindow),
				Parallelizable: true,
				MinDelay:       minDelay,
			},
			source: SourceTemporal,
			score:  clamp01(0.5*urgency + 0.5*proximity),
		})
	}
	return signals
}

// -----------------------------------------------------------------------------
// Resource detector
// -----------------------------------------------------------------------------

// detectResource suggests ordering edges between tasks that both require the
// same resource exclusively. The lower-priority task waits; the edge is not
// parallelizable because the resource admits one holder at a time.
func (a *Analyzer) detectResource(tasks []plan.Task, known map[string]bool) []signal {
	holders := make(map[string][]plan.Task)
	for _, t := range tasks {
		for _, resource := range t.ExclusiveResources() {
			holders[resource] = append(holders[resource], t)
		}
	}

	resources := make([]string, 0, len(holders))
	for r := range holders {
		resources = append(resources, r)
	}
	sort.Strings(resources)

	var signals []signal
	for _, resource := range resources {
		sharers := holders[resource]
		for i := 0; i < len(sharers); i++ {
			for j := i + 1; j < len(sharers); j++ {
				waiter, holder := sharers[i], sharers[j]
				if holder.Priority.Rank() < waiter.Priority.Rank() ||
					(holder.Priority.Rank() == waiter.Priority.Rank() && holder.ID > waiter.ID) {
					waiter, holder = holder, waiter
				}
				if edgeKnown(known, waiter.ID, holder.ID) {
					continue
				}
				signals = append(signals, signal{
					dep: plan.Dependency{
						DependentID: waiter.ID,
						DependsOnID: holder.ID,
						Type:        plan.DependencyResource,
						Reason: fmt.Sprintf("resource: both require exclusive access to %s",
							resource),
						Parallelizable: false,
					},
					source: SourceResource,
					score:  0.9,
				})
			}
		}
	}
	return signals
}

// -----------------------------------------------------------------------------
// Pattern detector
// -----------------------------------------------------------------------------

// detectPattern applies the registry's category-pair rules to every ordered
// task pair. Rules below the pattern-match threshold are skipped.
func (a *Analyzer) detectPattern(tasks []plan.Task, known map[string]bool) []signal {
	var signals []signal
	for i := range tasks {
		for j := range tasks {
			if i == j {
				continue
			}
			dependent, prerequisite := tasks[i], tasks[j]
			rule, ok := a.patterns.Match(dependent, prerequisite)
			if !ok || rule.Confidence < a.cfg.PatternMatchThreshold {
				continue
			}
			if edgeKnown(known, dependent.ID, prerequisite.ID) {
				continue
			}
			signals = append(signals, signal{
				dep: plan.Dependency{
					DependentID: dependent.ID,
					DependsOnID: prerequisite.ID,
					Type:        rule.Type,
					Reason: fmt.Sprintf("pattern: %s usually follows %s",
						dependent.Category, prerequisite.Category),
					Parallelizable: true,
				},
				source: SourcePattern,
				score:  clamp01(rule.Confidence),
			})
		}
	}
	return signals
}

// edgeKnown reports whether the pair is already connected in either
// direction; suggesting the reverse of a declared edge would only manufacture
// a cycle.
func edgeKnown(known map[string]bool, dependent, dependsOn string) bool {
	return known[dependent+"->"+dependsOn] || known[dependsOn+"->"+dependent]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
