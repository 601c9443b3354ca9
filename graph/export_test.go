package graph

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/parplan/parplan/errors"
)

func TestExportFormats(t *testing.T) {
	g := chainGraph(t)

	tests := []struct {
		format   string
		contains []string
	}{
		{FormatDot, []string{"digraph dependencies", `"a" -> "b"`, `"b" -> "c"`}},
		{FormatJSON, []string{`"nodes"`, `"edges"`, `"depends_on"`}},
		{FormatCytoscape, []string{`"elements"`, `"source"`, `"target"`}},
		{FormatDagre, []string{`"nodes"`, `"edges"`, `"label"`}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			out, err := g.Export(tt.format)
			if err != nil {
				t.Fatalf("Export(%s): %v", tt.format, err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("Export(%s) missing %q:\n%s", tt.format, want, out)
				}
			}
			if tt.format != FormatDot && !json.Valid([]byte(out)) {
				t.Errorf("Export(%s) is not valid JSON", tt.format)
			}
		})
	}
}

func TestExportUnsupportedFormat(t *testing.T) {
	g := chainGraph(t)
	_, err := g.Export("graphml")
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if !errors.Is(err, errors.ErrUnsupportedFormat) {
		t.Errorf("errors.Is(%v, ErrUnsupportedFormat) = false", err)
	}
	var cErr *errors.ComputationError
	if !errors.As(err, &cErr) {
		t.Errorf("error type = %T, want *ComputationError", err)
	}
}

func TestExportCaseInsensitive(t *testing.T) {
	g := chainGraph(t)
	if _, err := g.Export("DOT"); err != nil {
		t.Errorf("Export(DOT): %v", err)
	}
}
