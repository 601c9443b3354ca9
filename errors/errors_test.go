package errors

import (
	"fmt"
	"testing"
)

// -----------------------------------------------------------------------------
// Severity Tests
// -----------------------------------------------------------------------------

func TestSeverity_String(t *testing.T) {
	tests := []struct {
		severity Severity
		want     string
	}{
		{SeverityDebug, "debug"},
		{SeverityInfo, "info"},
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{SeverityCritical, "critical"},
		{Severity(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.severity.String(); got != tt.want {
				t.Errorf("Severity.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

// -----------------------------------------------------------------------------
// ValidationError Tests
// -----------------------------------------------------------------------------

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ValidationError
		want string
	}{
		{
			name: "basic error",
			err:  NewValidationError("dependent task does not exist"),
			want: "validation error: dependent task does not exist",
		},
		{
			name: "with field",
			err:  NewValidationError("must not be empty").WithField("dependentTaskId"),
			want: "validation error [field=dependentTaskId]: must not be empty",
		},
		{
			name: "with field and value",
			err:  NewValidationError("unknown task").WithField("dependsOnTaskId").WithValue("t9"),
			want: "validation error [field=dependsOnTaskId, value=t9]: unknown task",
		},
		{
			name: "with cause",
			err:  NewValidationError("edge rejected").WithCause(ErrDependencyCycle),
			want: "validation error: edge rejected: dependency cycle detected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidationError_Is(t *testing.T) {
	err := NewValidationError("edge rejected").WithCause(ErrDependencyCycle)

	if !Is(err, &ValidationError{}) {
		t.Error("Is(&ValidationError{}) = false, want true")
	}
	if !Is(err, ErrDependencyCycle) {
		t.Error("Is(ErrDependencyCycle) = false, want true")
	}
	if !Is(err, ErrInvalidInput) {
		t.Error("Is(ErrInvalidInput) = false, want true")
	}
	if Is(err, ErrTaskNotFound) {
		t.Error("Is(ErrTaskNotFound) = true, want false")
	}
}

func TestValidationError_As(t *testing.T) {
	wrapped := fmt.Errorf("adding dependency: %w",
		NewValidationError("self-loop").WithField("dependentTaskId").WithValue("a"))

	var vErr *ValidationError
	if !As(wrapped, &vErr) {
		t.Fatal("As(*ValidationError) = false, want true")
	}
	if vErr.Field != "dependentTaskId" {
		t.Errorf("Field = %q, want %q", vErr.Field, "dependentTaskId")
	}
	if vErr.Value != "a" {
		t.Errorf("Value = %v, want %q", vErr.Value, "a")
	}
}

// -----------------------------------------------------------------------------
// NotFoundError Tests
// -----------------------------------------------------------------------------

func TestNotFoundError_Error(t *testing.T) {
	err := NewNotFoundError("task", "task-42")
	want := "task 'task-42' not found"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	withCause := NewNotFoundError("edge", "a->b").WithCause(ErrEdgeNotFound)
	want = "edge 'a->b' not found: dependency edge not found"
	if got := withCause.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestNotFoundError_Is(t *testing.T) {
	err := NewNotFoundError("task", "task-42").WithCause(ErrTaskNotFound)

	if !Is(err, &NotFoundError{}) {
		t.Error("Is(&NotFoundError{}) = false, want true")
	}
	if !Is(err, ErrTaskNotFound) {
		t.Error("Is(ErrTaskNotFound) = false, want true")
	}
}

// -----------------------------------------------------------------------------
// ComputationError Tests
// -----------------------------------------------------------------------------

func TestComputationError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ComputationError
		want string
	}{
		{
			name: "basic",
			err:  NewComputationError("unsupported export format", ErrUnsupportedFormat),
			want: "computation error: unsupported export format: unsupported export format",
		},
		{
			name: "with operation",
			err: NewComputationError("no strategy results to select from", ErrNoStrategyResults).
				WithOperation("optimizeParallelExecution"),
			want: "computation error [op=optimizeParallelExecution]: no strategy results to select from: no strategy results to select from",
		},
		{
			name: "with operation and phase",
			err: NewComputationError("empty selection", nil).
				WithOperation("optimize").WithPhase("selection"),
			want: "computation error [op=optimize, phase=selection]: empty selection",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestComputationError_NotUserFacing(t *testing.T) {
	err := NewComputationError("internal invariant violated", nil)
	if IsUserFacing(err) {
		t.Error("IsUserFacing() = true, want false for computation errors")
	}
	if got := GetSeverity(err); got != SeverityError {
		t.Errorf("GetSeverity() = %v, want %v", got, SeverityError)
	}
}

// -----------------------------------------------------------------------------
// ConfigurationError Tests
// -----------------------------------------------------------------------------

func TestConfigurationError_Error(t *testing.T) {
	err := NewConfigurationError("autoCreateThreshold", 1.7, "must be in [0,1]")
	want := "configuration error [field=autoCreateThreshold, value=1.7]: must be in [0,1]"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestConfigurationError_Is(t *testing.T) {
	err := NewConfigurationError("maxConcurrency", -1, "must be positive")

	if !Is(err, &ConfigurationError{}) {
		t.Error("Is(&ConfigurationError{}) = false, want true")
	}
	if !Is(err, ErrInvalidConfig) {
		t.Error("Is(ErrInvalidConfig) = false, want true")
	}
	if Is(err, ErrInvalidInput) {
		t.Error("Is(ErrInvalidInput) = true, want false")
	}
}

// -----------------------------------------------------------------------------
// Classification Helper Tests
// -----------------------------------------------------------------------------

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"validation", NewValidationError("bad edge"), true},
		{"not found", NewNotFoundError("task", "x"), true},
		{"configuration", NewConfigurationError("f", 1, "bad"), true},
		{"computation", NewComputationError("broken", nil), false},
		{"plain", New("plain error"), false},
		{"wrapped validation", Wrap(NewValidationError("bad edge"), "adding"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetSeverity(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Severity
	}{
		{"nil", nil, SeverityDebug},
		{"validation", NewValidationError("bad"), SeverityWarning},
		{"computation", NewComputationError("broken", nil), SeverityError},
		{"escalated", NewValidationError("bad").WithSeverity(SeverityCritical), SeverityCritical},
		{"plain", New("plain"), SeverityError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetSeverity(tt.err); got != tt.want {
				t.Errorf("GetSeverity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsValidation(t *testing.T) {
	if !IsValidation(NewValidationError("bad")) {
		t.Error("IsValidation(ValidationError) = false, want true")
	}
	if !IsValidation(Wrapf(NewValidationError("bad"), "op %s", "addDependency")) {
		t.Error("IsValidation(wrapped ValidationError) = false, want true")
	}
	if IsValidation(NewComputationError("broken", nil)) {
		t.Error("IsValidation(ComputationError) = true, want false")
	}
	if IsValidation(nil) {
		t.Error("IsValidation(nil) = true, want false")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) != nil")
	}

	base := ErrTaskNotFound
	wrapped := Wrap(base, "looking up dependent")
	want := "looking up dependent: task not found"
	if wrapped.Error() != want {
		t.Errorf("Wrap() = %q, want %q", wrapped.Error(), want)
	}
	if !Is(wrapped, ErrTaskNotFound) {
		t.Error("wrapped error lost its cause")
	}
}

func TestWrapf(t *testing.T) {
	if Wrapf(nil, "context %d", 1) != nil {
		t.Error("Wrapf(nil) != nil")
	}

	wrapped := Wrapf(ErrEdgeNotFound, "removing edge %s->%s", "a", "b")
	want := "removing edge a->b: dependency edge not found"
	if wrapped.Error() != want {
		t.Errorf("Wrapf() = %q, want %q", wrapped.Error(), want)
	}
}
