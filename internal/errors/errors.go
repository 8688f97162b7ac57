// Package errors provides centralized error definitions and error handling
// utilities for the codex-sdd codebase. It defines domain-specific error
// types, sentinel errors, constructors with context wrapping, and
// classification helpers used at the command boundary.
//
// The package distinguishes four broad classes of failure:
//
//   - Fatal configuration errors (no enumerable repository, unsupported
//     state schema) abort immediately with no partial write.
//   - Fatal IO errors (unreadable file during hashing) abort the current
//     command.
//   - Subprocess failures (git, agent runner, test or coverage tools
//     returning non-success) abort the command but leave already-written
//     artifacts in place.
//   - Gate violations (unapproved change, missing required artifacts) are
//     reported before any state-mutating work begins.
//
// No error in this taxonomy is retried automatically.
package errors

import (
	"errors"
	"fmt"
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

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// State-related sentinel errors
var (
	// ErrChangeNotFound indicates that a change ID has no recorded state.
	ErrChangeNotFound = New("change not found")
	// ErrNotApproved indicates that a change has not passed the approval gate.
	ErrNotApproved = New("approval required")
	// ErrSchemaVersion indicates a state document with an unsupported schema.
	ErrSchemaVersion = New("unsupported state schema version")
	// ErrStateLocked indicates the state file is locked by another process.
	ErrStateLocked = New("state is locked by another process")
)

// Repository-related sentinel errors
var (
	// ErrNotGitRepository indicates that the directory is not a git repository.
	ErrNotGitRepository = New("not a git repository")
	// ErrBaseRefNotFound indicates that a base ref could not be resolved.
	ErrBaseRefNotFound = New("base ref not found")
	// ErrWorktreeMissing indicates that expected worktrees do not exist.
	ErrWorktreeMissing = New("worktrees do not exist")
)

// Gate-related sentinel errors
var (
	// ErrSpecUpdateRequired indicates a code change without a spec update.
	ErrSpecUpdateRequired = New("spec update required")
	// ErrArtifactsRequired indicates a code change missing the decision,
	// tasks, and test plan artifacts for a single change directory.
	ErrArtifactsRequired = New("artifacts required")
)

// -----------------------------------------------------------------------------
// Domain Error Types
// -----------------------------------------------------------------------------

// StateError represents an error in the durable state layer: loading,
// saving, locking, or gating on the state document.
type StateError struct {
	Op       string // operation that failed: "load", "save", "lock", ...
	ChangeID string // change involved, if any
	cause    error
}

// NewStateError creates a StateError wrapping the given cause.
func NewStateError(op string, cause error) *StateError {
	return &StateError{Op: op, cause: cause}
}

// WithChange attaches a change ID to the error for context.
func (e *StateError) WithChange(changeID string) *StateError {
	e.ChangeID = changeID
	return e
}

func (e *StateError) Error() string {
	if e.ChangeID != "" {
		return fmt.Sprintf("state %s (change %s): %v", e.Op, e.ChangeID, e.cause)
	}
	return fmt.Sprintf("state %s: %v", e.Op, e.cause)
}

func (e *StateError) Unwrap() error { return e.cause }

// SubprocessError represents a collaborator subprocess that returned
// non-success: git, the agent runner, or the test/coverage tools.
// Output holds captured text from the failed invocation, when available.
type SubprocessError struct {
	Tool   string // "git", "codex", "cargo", ...
	Args   []string
	Output string
	cause  error
}

// NewSubprocessError creates a SubprocessError for the given tool invocation.
func NewSubprocessError(tool string, args []string, output string, cause error) *SubprocessError {
	return &SubprocessError{Tool: tool, Args: args, Output: output, cause: cause}
}

func (e *SubprocessError) Error() string {
	msg := fmt.Sprintf("%s %v failed", e.Tool, e.Args)
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	if e.Output != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Output)
	}
	return msg
}

func (e *SubprocessError) Unwrap() error { return e.cause }

// GateError represents a workflow precondition failure. Gate errors are
// always reported before any state-mutating work begins for a command.
type GateError struct {
	Requirement string // human-readable description of the unmet requirement
	cause       error
}

// NewGateError creates a GateError with the given requirement description.
func NewGateError(requirement string, cause error) *GateError {
	return &GateError{Requirement: requirement, cause: cause}
}

func (e *GateError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Requirement, e.cause)
	}
	return e.Requirement
}

func (e *GateError) Unwrap() error { return e.cause }

func (e *GateError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// IsGateViolation reports whether err is a precondition failure rather than
// an execution failure. Callers use this to report the error without
// mentioning partial artifacts (none were written).
func IsGateViolation(err error) bool {
	var gateErr *GateError
	if As(err, &gateErr) {
		return true
	}
	return Is(err, ErrNotApproved) || Is(err, ErrChangeNotFound) ||
		Is(err, ErrSpecUpdateRequired) || Is(err, ErrArtifactsRequired)
}

// IsSubprocessFailure reports whether err originated from an external
// collaborator returning non-success.
func IsSubprocessFailure(err error) bool {
	var spErr *SubprocessError
	return As(err, &spErr)
}

// Wrap wraps an error with a message using %w semantics. Returns nil if
// err is nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted message. Returns nil if err is nil.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
