package graph

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/parplan/parplan/errors"
)

// Supported export formats.
const (
	FormatDot       = "dot"
	FormatJSON      = "json"
	FormatCytoscape = "cytoscape"
	FormatDagre     = "dagre"
)

// Export serializes the graph for external visualization tooling. Supported
// formats are dot, json, cytoscape, and dagre; anything else is a
// *errors.ComputationError. Export is pure presentation and never affects
// planning decisions.
func (g *Graph) Export(format string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch strings.ToLower(format) {
	case FormatDot:
		return g.exportDotLocked(), nil
	case FormatJSON:
		return g.exportJSONLocked()
	case FormatCytoscape:
		return g.exportCytoscapeLocked()
	case FormatDagre:
		return g.exportDagreLocked()
	default:
		return "", errors.NewComputationError(
			"export format "+format+" is not supported", errors.ErrUnsupportedFormat).
			WithOperation("Export")
	}
}

// exportDotLocked renders Graphviz dot. Edges point from prerequisite to
// dependent, matching execution order.
func (g *Graph) exportDotLocked() string {
	var b strings.Builder
	b.WriteString("digraph dependencies {\n")
	b.WriteString("  rankdir=LR;\n")
	for _, id := range g.sortedIDsLocked() {
		n := g.nodes[id]
		fmt.Fprintf(&b, "  %q [label=%q];\n", id,
			fmt.Sprintf("%s\n%s/%s", n.task.Name, n.task.Priority, n.task.Category))
	}
	for _, key := range g.sortedEdgeKeysLocked() {
		e := g.edges[key]
		fmt.Fprintf(&b, "  %q -> %q [label=%q];\n",
			e.DependsOnID, e.DependentID,
			fmt.Sprintf("%s %.2f", e.Type, e.Confidence))
	}
	b.WriteString("}\n")
	return b.String()
}

// exportJSONLocked renders the plain node/edge structure.
func (g *Graph) exportJSONLocked() (string, error) {
	type edgeJSON struct {
		Dependent  string  `json:"dependent"`
		DependsOn  string  `json:"depends_on"`
		Type       string  `json:"type"`
		Confidence float64 `json:"confidence"`
	}
	doc := struct {
		Nodes []Node     `json:"nodes"`
		Edges []edgeJSON `json:"edges"`
	}{}
	for _, id := range g.sortedIDsLocked() {
		doc.Nodes = append(doc.Nodes, g.publicNodeLocked(id, g.nodes[id]))
	}
	for _, key := range g.sortedEdgeKeysLocked() {
		e := g.edges[key]
		doc.Edges = append(doc.Edges, edgeJSON{
			Dependent:  e.DependentID,
			DependsOn:  e.DependsOnID,
			Type:       e.Type.String(),
			Confidence: e.Confidence,
		})
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", errors.NewComputationError("failed to marshal graph", err).WithOperation("Export")
	}
	return string(data), nil
}

// exportCytoscapeLocked renders Cytoscape.js elements.
func (g *Graph) exportCytoscapeLocked() (string, error) {
	type element struct {
		Data map[string]any `json:"data"`
	}
	doc := struct {
		Elements []element `json:"elements"`
	}{}
	for _, id := range g.sortedIDsLocked() {
		n := g.nodes[id]
		doc.Elements = append(doc.Elements, element{Data: map[string]any{
			"id":       id,
			"label":    n.task.Name,
			"priority": n.task.Priority.String(),
			"category": n.task.Category.String(),
		}})
	}
	for _, key := range g.sortedEdgeKeysLocked() {
		e := g.edges[key]
		doc.Elements = append(doc.Elements, element{Data: map[string]any{
			"id":         key,
			"source":     e.DependsOnID,
			"target":     e.DependentID,
			"type":       e.Type.String(),
			"confidence": e.Confidence,
		}})
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", errors.NewComputationError("failed to marshal graph", err).WithOperation("Export")
	}
	return string(data), nil
}

// exportDagreLocked renders the node/edge lists dagre-d3 consumes.
func (g *Graph) exportDagreLocked() (string, error) {
	type dagreNode struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	}
	type dagreEdge struct {
		Source string `json:"source"`
		Target string `json:"target"`
		Label  string `json:"label"`
	}
	doc := struct {
		Nodes []dagreNode `json:"nodes"`
		Edges []dagreEdge `json:"edges"`
	}{}
	for _, id := range g.sortedIDsLocked() {
		doc.Nodes = append(doc.Nodes, dagreNode{ID: id, Label: g.nodes[id].task.Name})
	}
	for _, key := range g.sortedEdgeKeysLocked() {
		e := g.edges[key]
		doc.Edges = append(doc.Edges, dagreEdge{
			Source: e.DependsOnID,
			Target: e.DependentID,
			Label:  e.Type.String(),
		})
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", errors.NewComputationError("failed to marshal graph", err).WithOperation("Export")
	}
	return string(data), nil
}

func (g *Graph) sortedEdgeKeysLocked() []string {
	keys := make([]string, 0, len(g.edges))
	for key := range g.edges {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
