package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("writes to the provided writer", func(t *testing.T) {
		var buf bytes.Buffer

		logger := New(&buf, LevelDebug)
		logger.Info("hello")

		if buf.Len() == 0 {
			t.Error("expected output in buffer, got none")
		}
	})

	t.Run("defaults to INFO level for invalid level string", func(t *testing.T) {
		var buf bytes.Buffer

		logger := New(&buf, "invalid")
		logger.Debug("should be filtered")
		logger.Info("should appear")

		lines := nonEmptyLines(buf.String())
		if len(lines) != 1 {
			t.Fatalf("expected 1 log line, got %d", len(lines))
		}
	})
}

func TestLogLevels(t *testing.T) {
	var buf bytes.Buffer

	logger := New(&buf, LevelDebug)

	// Log at all levels
	logger.Debug("debug message", "key", "value")
	logger.Info("info message", "key", "value")
	logger.Warn("warn message", "key", "value")
	logger.Error("error message", "key", "value")

	lines := nonEmptyLines(buf.String())
	if len(lines) != 4 {
		t.Fatalf("expected 4 log lines, got %d", len(lines))
	}

	// Verify each log line is valid JSON with expected fields
	expectedLevels := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	expectedMsgs := []string{"debug message", "info message", "warn message", "error message"}

	for i, line := range lines {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Errorf("line %d is not valid JSON: %v", i, err)
			continue
		}

		if entry["level"] != expectedLevels[i] {
			t.Errorf("line %d: expected level %s, got %v", i, expectedLevels[i], entry["level"])
		}
		if entry["msg"] != expectedMsgs[i] {
			t.Errorf("line %d: expected msg %s, got %v", i, expectedMsgs[i], entry["msg"])
		}
		if entry["key"] != "value" {
			t.Errorf("line %d: expected key=value, got key=%v", i, entry["key"])
		}
	}
}

func TestLogLevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	// Create logger at WARN level - should filter out DEBUG and INFO
	logger := New(&buf, LevelWarn)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	lines := nonEmptyLines(buf.String())
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(lines))
	}
	for _, line := range lines {
		if strings.Contains(line, "debug message") || strings.Contains(line, "info message") {
			t.Errorf("filtered message leaked into output: %s", line)
		}
	}
}

func TestChildLoggers(t *testing.T) {
	t.Run("WithComponent adds component to entries", func(t *testing.T) {
		var buf bytes.Buffer

		logger := New(&buf, LevelDebug).WithComponent("graph")
		logger.Info("node added")

		var entry map[string]any
		if err := json.Unmarshal([]byte(nonEmptyLines(buf.String())[0]), &entry); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if entry["component"] != "graph" {
			t.Errorf("component = %v, want %q", entry["component"], "graph")
		}
	})

	t.Run("WithStrategy stacks on existing attributes", func(t *testing.T) {
		var buf bytes.Buffer

		logger := New(&buf, LevelDebug).WithComponent("optimizer").WithStrategy("adaptive_dynamic")
		logger.Info("selected result")

		var entry map[string]any
		if err := json.Unmarshal([]byte(nonEmptyLines(buf.String())[0]), &entry); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if entry["component"] != "optimizer" {
			t.Errorf("component = %v, want %q", entry["component"], "optimizer")
		}
		if entry["strategy"] != "adaptive_dynamic" {
			t.Errorf("strategy = %v, want %q", entry["strategy"], "adaptive_dynamic")
		}
	})

	t.Run("child logger does not mutate parent", func(t *testing.T) {
		var buf bytes.Buffer

		parent := New(&buf, LevelDebug)
		_ = parent.WithComponent("analyzer")
		parent.Info("parent entry")

		var entry map[string]any
		if err := json.Unmarshal([]byte(nonEmptyLines(buf.String())[0]), &entry); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if _, ok := entry["component"]; ok {
			t.Error("parent logger picked up child attribute")
		}
	})

	t.Run("With accepts arbitrary pairs", func(t *testing.T) {
		var buf bytes.Buffer

		logger := New(&buf, LevelDebug).With("tasks", 3, "edges", 2)
		logger.Info("analyzed")

		var entry map[string]any
		if err := json.Unmarshal([]byte(nonEmptyLines(buf.String())[0]), &entry); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if entry["tasks"] != float64(3) {
			t.Errorf("tasks = %v, want 3", entry["tasks"])
		}
		if entry["edges"] != float64(2) {
			t.Errorf("edges = %v, want 2", entry["edges"])
		}
	})
}

func TestNop(t *testing.T) {
	// Must not panic and must accept all levels.
	logger := Nop()
	logger.Debug("debug")
	logger.Info("info", "k", "v")
	logger.Warn("warn")
	logger.Error("error")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"DEBUG", LevelDebug},
		{"debug", LevelDebug},
		{"Info", LevelInfo},
		{"WARN", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func nonEmptyLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(s), "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
