// Package orchestrator executes lifecycle commands against a container
// runtime. It reads live state, asks internal/core/plan what to do and
// dispatches the resulting runtime calls.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/artpar/dockwrkr/internal/core/domain"
	"github.com/artpar/dockwrkr/internal/core/graph"
	"github.com/artpar/dockwrkr/internal/core/outcome"
	"github.com/artpar/dockwrkr/internal/core/plan"
	"github.com/artpar/dockwrkr/internal/core/status"
	"github.com/artpar/dockwrkr/internal/shell/pidfile"
)

// =============================================================================
// Runtime Interface
// =============================================================================

// Runtime is the set of container primitives the orchestrator relies on.
// Containers are addressed by name.
type Runtime interface {
	CreateContainer(ctx context.Context, def domain.ContainerDefinition, basePath, configFile string) error
	StartContainer(ctx context.Context, name string) error
	StopContainer(ctx context.Context, name string, grace time.Duration) error
	RemoveContainer(ctx context.Context, name string) error
	PullImage(ctx context.Context, image string) error

	// ExistingContainers returns the subset of names known to the runtime.
	ExistingContainers(ctx context.Context, names []string) (map[string]bool, error)

	// ReadStatus inspects names, all of which must exist.
	ReadStatus(ctx context.Context, names []string) (domain.StateMap, error)

	// ManagedContainers lists every container this tool created, oldest first.
	ManagedContainers(ctx context.Context) ([]string, error)
}

// =============================================================================
// Orchestrator
// =============================================================================

// Options tune command execution.
type Options struct {
	// FailFast stops dispatching a command at its first failing container.
	// By default every container is attempted and the first failure is
	// reported.
	FailFast bool

	// Now is the clock used for status uptimes. Defaults to time.Now.
	Now func() time.Time
}

// Selection names the containers a command targets.
type Selection struct {
	Names []string
	All   bool
}

// Orchestrator runs lifecycle commands for one project.
type Orchestrator struct {
	project *domain.Project
	runtime Runtime
	logger  *slog.Logger
	pids    *pidfile.Dir
	opts    Options
}

// New creates an orchestrator for project.
func New(project *domain.Project, runtime Runtime, logger *slog.Logger, opts Options) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		project: project,
		runtime: runtime,
		logger:  logger,
		pids:    pidfile.New(project.PidsDir),
		opts:    opts,
	}
}

// =============================================================================
// Commands
// =============================================================================

// Start creates and starts the selected containers in dependency order.
func (o *Orchestrator) Start(ctx context.Context, sel Selection) outcome.Outcome[[]domain.Result] {
	return o.withState(ctx, sel, func(order []string, state domain.StateMap) outcome.Outcome[[]domain.Result] {
		return o.execute(ctx, plan.Start(order, state), 0)
	})
}

// Stop stops the selected running containers, dependents first.
func (o *Orchestrator) Stop(ctx context.Context, sel Selection, grace time.Duration) outcome.Outcome[[]domain.Result] {
	return o.withState(ctx, sel, func(order []string, state domain.StateMap) outcome.Outcome[[]domain.Result] {
		return o.execute(ctx, plan.Stop(order, state), grace)
	})
}

// Remove removes the selected containers, dependents first. Running
// containers are refused unless force is set.
func (o *Orchestrator) Remove(ctx context.Context, sel Selection, grace time.Duration, force bool) outcome.Outcome[[]domain.Result] {
	return o.withState(ctx, sel, func(order []string, state domain.StateMap) outcome.Outcome[[]domain.Result] {
		return o.executePlanned(ctx, outcome.Try(func() (plan.Plan, error) {
			return plan.Remove(order, state, force)
		}), grace)
	})
}

// Restart restarts running containers and starts stopped ones. Every
// selected container must exist.
func (o *Orchestrator) Restart(ctx context.Context, sel Selection, grace time.Duration) outcome.Outcome[[]domain.Result] {
	return o.withState(ctx, sel, func(order []string, state domain.StateMap) outcome.Outcome[[]domain.Result] {
		return o.executePlanned(ctx, outcome.Try(func() (plan.Plan, error) {
			return plan.Restart(order, state)
		}), grace)
	})
}

// Recreate force-removes the selected containers and starts them again from
// their definitions. Live state is re-read between the two phases.
func (o *Orchestrator) Recreate(ctx context.Context, sel Selection, grace time.Duration) outcome.Outcome[[]domain.Result] {
	return outcome.Bind(o.targets(sel), func(order []string) outcome.Outcome[[]domain.Result] {
		removed := outcome.Bind(o.readStates(ctx, order), func(state domain.StateMap) outcome.Outcome[[]domain.Result] {
			p := plan.ForceRemove(order, state)
			p.Command = "recreate"
			return o.execute(ctx, p, grace)
		})
		return outcome.Bind(removed, func(removedResults []domain.Result) outcome.Outcome[[]domain.Result] {
			started := outcome.Bind(o.readStates(ctx, order), func(state domain.StateMap) outcome.Outcome[[]domain.Result] {
				return o.execute(ctx, plan.Start(order, state), 0)
			})
			return outcome.Map(started, func(startedResults []domain.Result) []domain.Result {
				return append(removedResults, startedResults...)
			})
		})
	})
}

// Pull pulls the images of the selected containers. Live state is ignored.
func (o *Orchestrator) Pull(ctx context.Context, sel Selection) outcome.Outcome[[]domain.Result] {
	return outcome.Bind(o.targets(sel), func(order []string) outcome.Outcome[[]domain.Result] {
		return o.execute(ctx, plan.Pull(order, o.project), 0)
	})
}

// Reset force-removes every container this tool manages, including ones no
// longer defined in the project.
func (o *Orchestrator) Reset(ctx context.Context, grace time.Duration) outcome.Outcome[[]domain.Result] {
	managed := outcome.Try(func() ([]string, error) {
		names, err := o.runtime.ManagedContainers(ctx)
		if err != nil {
			return nil, domain.NewRuntimeError("list", "", err)
		}
		return names, nil
	})
	return outcome.Bind(managed, func(names []string) outcome.Outcome[[]domain.Result] {
		o.logger.Debug("managed containers", "count", len(names))
		return outcome.Bind(o.readStates(ctx, names), func(state domain.StateMap) outcome.Outcome[[]domain.Result] {
			return o.execute(ctx, plan.Reset(names, state), grace)
		})
	})
}

// Status reports one row per selected container in the requested order. With
// no names, or All, every definition is reported in dependency order.
// Containers absent from the runtime get placeholder rows.
func (o *Orchestrator) Status(ctx context.Context, sel Selection) outcome.Outcome[[]status.Row] {
	if len(sel.Names) == 0 {
		sel.All = true
	}
	return outcome.Bind(o.targets(sel), func(order []string) outcome.Outcome[[]status.Row] {
		names := order
		if !sel.All {
			names = sel.Names
		}
		return outcome.Map(o.readStates(ctx, names), func(state domain.StateMap) []status.Row {
			return status.Rows(names, state, o.opts.Now())
		})
	})
}

// =============================================================================
// Targets And State
// =============================================================================

// targets validates the selection and returns it in dependency order. Every
// unknown name is reported at once.
func (o *Orchestrator) targets(sel Selection) outcome.Outcome[[]string] {
	names := sel.Names
	if sel.All {
		names = o.project.Names()
	}
	if undefined := o.project.Undefined(names); len(undefined) > 0 {
		return outcome.Fail[[]string](&domain.InvalidContainerError{Names: undefined})
	}
	order, err := graph.ResolveOrder(o.project.Definitions)
	if err != nil {
		return outcome.Fail[[]string](err)
	}
	return outcome.OK(graph.Subset(order, names))
}

// readStates lists which names exist and inspects those that do. Names
// absent from the map do not exist.
func (o *Orchestrator) readStates(ctx context.Context, names []string) outcome.Outcome[domain.StateMap] {
	if len(names) == 0 {
		return outcome.OK(domain.StateMap{})
	}
	return outcome.Try(func() (domain.StateMap, error) {
		existing, err := o.runtime.ExistingContainers(ctx, names)
		if err != nil {
			return nil, domain.NewRuntimeError("list", "", err)
		}
		present := make([]string, 0, len(existing))
		for _, n := range names {
			if existing[n] {
				present = append(present, n)
			}
		}
		if len(present) == 0 {
			return domain.StateMap{}, nil
		}
		state, err := o.runtime.ReadStatus(ctx, present)
		if err != nil {
			return nil, domain.NewRuntimeError("inspect", "", err)
		}
		return state, nil
	})
}

func (o *Orchestrator) withState(ctx context.Context, sel Selection, fn func([]string, domain.StateMap) outcome.Outcome[[]domain.Result]) outcome.Outcome[[]domain.Result] {
	return outcome.Bind(o.targets(sel), func(order []string) outcome.Outcome[[]domain.Result] {
		return outcome.Bind(o.readStates(ctx, order), func(state domain.StateMap) outcome.Outcome[[]domain.Result] {
			return fn(order, state)
		})
	})
}
