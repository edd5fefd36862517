package domain

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// Error Kinds
// =============================================================================

var (
	ErrConfigNotFound         = errors.New("config file not found")
	ErrInvalidConfig          = errors.New("invalid configuration")
	ErrInvalidContainer       = errors.New("container not defined")
	ErrDependencyUnresolvable = errors.New("dependency cannot be resolved")
	ErrDependencyCycle        = errors.New("circular dependency detected")
	ErrMissingLink            = errors.New("link target not defined")
	ErrInvalidState           = errors.New("container is not in a valid state for this command")
	ErrRuntime                = errors.New("container runtime call failed")
)

// InvalidContainerError names every requested container that is not defined.
type InvalidContainerError struct {
	Names []string
}

func (e *InvalidContainerError) Error() string {
	quoted := make([]string, len(e.Names))
	for i, n := range e.Names {
		quoted[i] = "'" + n + "'"
	}
	if len(quoted) == 1 {
		return fmt.Sprintf("container %s not defined", quoted[0])
	}
	return fmt.Sprintf("containers %s not defined", strings.Join(quoted, ", "))
}

func (e *InvalidContainerError) Unwrap() error {
	return ErrInvalidContainer
}

// DependencyError reports a dependency graph that cannot be linearized.
type DependencyError struct {
	Container string   // Container whose dependencies failed to resolve
	Missing   []string // Undefined link targets, when Err is ErrMissingLink
	Cycle     []string // Path that closes a cycle, when Err is ErrDependencyCycle
	Err       error
}

func (e *DependencyError) Error() string {
	switch {
	case len(e.Cycle) > 0:
		return fmt.Sprintf("%s: %s", e.Err, strings.Join(e.Cycle, " -> "))
	case len(e.Missing) > 0:
		return fmt.Sprintf("container '%s' links to undefined %s", e.Container, strings.Join(e.Missing, ", "))
	default:
		return fmt.Sprintf("container '%s': %s", e.Container, e.Err)
	}
}

func (e *DependencyError) Unwrap() []error {
	return []error{ErrDependencyUnresolvable, e.Err}
}

// StateError is a plan-time refusal: the live state of the named containers
// does not allow the command.
type StateError struct {
	Command    string
	Containers []string
	Reason     string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: '%s' %s", e.Command, strings.Join(e.Containers, "', '"), e.Reason)
}

func (e *StateError) Unwrap() error {
	return ErrInvalidState
}

// RuntimeError wraps a failure returned by the container runtime.
type RuntimeError struct {
	Op        string
	Container string
	Err       error
}

func (e *RuntimeError) Error() string {
	if e.Container != "" {
		return fmt.Sprintf("%s '%s': %v", e.Op, e.Container, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RuntimeError) Unwrap() []error {
	return []error{ErrRuntime, e.Err}
}

// NewRuntimeError creates a RuntimeError.
func NewRuntimeError(op, container string, err error) *RuntimeError {
	return &RuntimeError{Op: op, Container: container, Err: err}
}
