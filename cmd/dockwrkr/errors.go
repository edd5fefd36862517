package main

import (
	"errors"
	"fmt"

	"github.com/artpar/dockwrkr/internal/core/domain"
	"github.com/artpar/dockwrkr/internal/shell/docker"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess      = 0
	ExitConfigError  = 1
	ExitCommandError = 2
	ExitDockerError  = 3
)

// CommandError carries the exit code for a failed invocation.
type CommandError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// exitCodeFor classifies err.
func exitCodeFor(err error) int {
	var cmdErr *CommandError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &cmdErr):
		return cmdErr.ExitCode
	case errors.Is(err, domain.ErrConfigNotFound),
		errors.Is(err, domain.ErrInvalidConfig),
		errors.Is(err, domain.ErrDependencyUnresolvable):
		return ExitConfigError
	case errors.Is(err, docker.ErrConnectionFailed),
		errors.Is(err, domain.ErrRuntime):
		return ExitDockerError
	default:
		return ExitCommandError
	}
}
