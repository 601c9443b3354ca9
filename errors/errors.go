// Package errors provides centralized error definitions and error handling
// utilities for the parplan planning core. It defines sentinel errors, the
// planner's semantic error types, constructors with context wrapping, and
// error classification helpers.
//
// # Error Types
//
// Four semantic error types cover every failure mode of the planning core:
//   - ValidationError: invalid input or state (missing endpoint, self-loop,
//     cycle-inducing edge)
//   - NotFoundError: operations referencing an unknown task or edge
//   - ComputationError: an internal invariant was violated (zero strategy
//     results to select from, unsupported export format)
//   - ConfigurationError: invalid numeric ranges at construction time
//
// # Usage
//
// Creating errors:
//
//	// Semantic error
//	err := errors.NewNotFoundError("task", "task-42")
//
//	// With context
//	err := errors.NewValidationError("dependency would create a cycle").
//		WithField("dependsOnTaskId").WithCause(errors.ErrDependencyCycle)
//
// Checking errors:
//
//	// Check for specific sentinel errors
//	if errors.Is(err, errors.ErrDependencyCycle) { ... }
//
//	// Check for error types
//	var vErr *errors.ValidationError
//	if errors.As(err, &vErr) { ... }
//
//	// Use classification helpers
//	if errors.IsUserFacing(err) { ... }
//
// # Error Classification
//
// Errors can be classified by severity and behavior:
//   - UserFacing: errors safe to display to users (vs internal errors)
//   - Severity: Debug, Info, Warning, Error, Critical
//
// Planning calls are deterministic given identical inputs, so no error in
// this package is retryable; retries belong to the external executor around
// the task-execution boundary, not around planning calls.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Graph-related sentinel errors
var (
	// ErrTaskNotFound indicates that a task could not be found in the graph.
	ErrTaskNotFound = New("task not found")
	// ErrEdgeNotFound indicates that a dependency edge could not be found.
	ErrEdgeNotFound = New("dependency edge not found")
	// ErrSelfDependency indicates a task depending on itself.
	ErrSelfDependency = New("task cannot depend on itself")
	// ErrDependencyCycle indicates a circular dependency between tasks.
	ErrDependencyCycle = New("dependency cycle detected")
)

// Analyzer-related sentinel errors
var (
	// ErrEmptyTaskSet indicates that an analysis was requested over zero tasks.
	ErrEmptyTaskSet = New("task set is empty")
)

// Optimizer-related sentinel errors
var (
	// ErrNoStrategyResults indicates that strategy selection had nothing to select from.
	ErrNoStrategyResults = New("no strategy results to select from")
	// ErrUnknownStrategy indicates an unrecognized optimization strategy.
	ErrUnknownStrategy = New("unknown optimization strategy")
	// ErrUnsupportedFormat indicates an unsupported graph export format.
	ErrUnsupportedFormat = New("unsupported export format")
)

// General sentinel errors
var (
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
	// ErrInvalidConfig indicates that configuration validation failed.
	ErrInvalidConfig = New("invalid configuration")
	// ErrOperationFailed indicates a general operation failure.
	ErrOperationFailed = New("operation failed")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// PlanError is the base interface for all planner errors.
// It extends the standard error interface with additional methods for
// error handling and classification.
type PlanError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	// This is used by errors.Is() for error comparison.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// ValidationError represents invalid input or state: a dependency whose
// endpoint is missing, a self-loop, or an edge that would close a cycle.
//
// Example:
//
//	err := errors.NewValidationError("dependent task does not exist")
//	err = err.WithField("dependentTaskId").WithValue("task-9")
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// WithSeverity sets the error severity.
func (e *ValidationError) WithSeverity(s Severity) *ValidationError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("task", "task-42")
//	fmt.Println(err) // "task 'task-42' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity:   SeverityWarning,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ComputationError represents a violated internal invariant: strategy
// selection received zero candidate results, or an export was requested in
// an unsupported format. These indicate a bug or misuse rather than bad
// user data, so they default to non-user-facing.
//
// Example:
//
//	err := errors.NewComputationError("no strategy results to select from", errors.ErrNoStrategyResults)
//	err = err.WithOperation("optimizeParallelExecution")
type ComputationError struct {
	baseError
	Operation string
	Phase     string
}

// NewComputationError creates a new ComputationError.
func NewComputationError(message string, cause error) *ComputationError {
	return &ComputationError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			userFacing: false,
		},
	}
}

// WithOperation adds the failing operation name to the error context.
func (e *ComputationError) WithOperation(op string) *ComputationError {
	e.Operation = op
	return e
}

// WithPhase adds a pipeline phase name to the error context.
func (e *ComputationError) WithPhase(phase string) *ComputationError {
	e.Phase = phase
	return e
}

// WithSeverity sets the error severity.
func (e *ComputationError) WithSeverity(s Severity) *ComputationError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *ComputationError) Error() string {
	var parts []string
	if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Operation))
	}
	if e.Phase != "" {
		parts = append(parts, fmt.Sprintf("phase=%s", e.Phase))
	}

	prefix := "computation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("computation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ComputationError) Is(target error) bool {
	if _, ok := target.(*ComputationError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ConfigurationError represents an invalid numeric range or malformed value
// detected during construction. Configuration is validated eagerly: a
// component constructor returns this error instead of deferring the failure
// to the first operation.
//
// Example:
//
//	err := errors.NewConfigurationError("autoCreateThreshold", 1.7, "must be in [0,1]")
//	fmt.Println(err) // "configuration error [field=autoCreateThreshold, value=1.7]: must be in [0,1]"
type ConfigurationError struct {
	baseError
	Field string
	Value any
}

// NewConfigurationError creates a new ConfigurationError.
func NewConfigurationError(field string, value any, message string) *ConfigurationError {
	return &ConfigurationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityError,
			userFacing: true,
		},
		Field: field,
		Value: value,
	}
}

// WithCause adds a cause to the error.
func (e *ConfigurationError) WithCause(cause error) *ConfigurationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ConfigurationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "configuration error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("configuration error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ConfigurationError) Is(target error) bool {
	if _, ok := target.(*ConfigurationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidConfig) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsUserFacing returns true if the error message is safe to display to end users.
// This checks for:
//   - Errors implementing PlanError with IsUserFacing() returning true
//   - ValidationError, NotFoundError, and ConfigurationError instances
//
// Example:
//
//	if errors.IsUserFacing(err) {
//	    displayToUser(err.Error())
//	} else {
//	    displayToUser("An internal error occurred")
//	    log.Error("internal error", "err", err)
//	}
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var planErr PlanError
	if As(err, &planErr) {
		return planErr.IsUserFacing()
	}

	var validation *ValidationError
	var notFound *NotFoundError
	var configuration *ConfigurationError

	if As(err, &validation) || As(err, &notFound) || As(err, &configuration) {
		return true
	}

	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement PlanError.
//
// Example:
//
//	switch errors.GetSeverity(err) {
//	case errors.SeverityCritical:
//	    alertOnCall(err)
//	case errors.SeverityError:
//	    log.Error("error occurred", "err", err)
//	case errors.SeverityWarning:
//	    log.Warn("warning", "err", err)
//	}
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var planErr PlanError
	if As(err, &planErr) {
		return planErr.Severity()
	}

	return SeverityError
}

// IsValidation returns true if the error is, wraps, or is caused by a
// ValidationError. Callers use this to distinguish fail-closed rejections
// (bad edges, cycles) from internal computation failures.
func IsValidation(err error) bool {
	if err == nil {
		return false
	}
	var validation *ValidationError
	return As(err, &validation)
}

// IsComputation returns true if the error is or wraps a ComputationError.
func IsComputation(err error) bool {
	if err == nil {
		return false
	}
	var computation *ComputationError
	return As(err, &computation)
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to analyze dependencies")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
//
// Example:
//
//	err := errors.Wrapf(baseErr, "failed to schedule group %d", idx)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
