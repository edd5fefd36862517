// Package plan decides, per command, which runtime calls each container
// needs given its live state.
//
// This is part of the Functional Core - every function here is pure. The
// imperative shell (internal/shell/orchestrator) executes the resulting steps.
//
// # Decision Table
//
//	command  | absent          | running           | stopped
//	---------+-----------------+-------------------+---------
//	start    | create, start   | warn              | start
//	stop     | warn            | stop              | warn
//	remove   | skip            | stop, remove (*)  | remove
//	restart  | refuse          | stop, start       | start
//
//	(*) refused unless force is set
//
// Stop and remove walk the reverse of the dependency order so dependents
// go down before the containers they link to. Start and restart walk it
// forward.
package plan

import (
	"fmt"
	"strings"

	"github.com/artpar/dockwrkr/internal/core/domain"
	"github.com/artpar/dockwrkr/internal/core/graph"
)

// =============================================================================
// Plan Types
// =============================================================================

// Action is a single runtime primitive.
type Action string

const (
	ActionCreate Action = "create"
	ActionStart  Action = "start"
	ActionStop   Action = "stop"
	ActionRemove Action = "remove"
	ActionPull   Action = "pull"
)

// Step is the ordered list of actions for one container. Actions within a
// step run in order and stop at the first failure.
type Step struct {
	Container   string
	Image       string // Only set for pull steps
	Actions     []Action
	Description string
}

// Summary joins the step's actions, e.g. "stop+remove".
func (s Step) Summary() string {
	parts := make([]string, len(s.Actions))
	for i, a := range s.Actions {
		parts[i] = string(a)
	}
	return strings.Join(parts, "+")
}

// Warning is an idempotent no-op: the container is already in the
// requested state. Warnings are never errors.
type Warning struct {
	Container string
	Message   string
}

// Plan is the work a command needs, in execution order.
type Plan struct {
	Command  string
	Steps    []Step
	Warnings []Warning
}

// Empty reports whether the plan schedules no runtime calls.
func (p Plan) Empty() bool {
	return len(p.Steps) == 0
}

func (p *Plan) add(name string, description string, actions ...Action) {
	p.Steps = append(p.Steps, Step{Container: name, Actions: actions, Description: description})
}

func (p *Plan) warn(name, format string) {
	p.Warnings = append(p.Warnings, Warning{Container: name, Message: fmt.Sprintf(format, name)})
}

// =============================================================================
// Commands
// =============================================================================

// Start creates missing containers and starts stopped ones, in dependency
// order.
func Start(order []string, state domain.StateMap) Plan {
	p := Plan{Command: "start"}
	for _, name := range order {
		switch {
		case !state.Has(name):
			p.add(name, fmt.Sprintf("'%s' has been created and started", name), ActionCreate, ActionStart)
		case state.Running(name):
			p.warn(name, "'%s' is already running")
		default:
			p.add(name, fmt.Sprintf("'%s' has been started", name), ActionStart)
		}
	}
	return p
}

// Stop stops running containers, dependents first.
func Stop(order []string, state domain.StateMap) Plan {
	p := Plan{Command: "stop"}
	for _, name := range graph.Reverse(order) {
		switch {
		case !state.Has(name):
			p.warn(name, "container '%s' does not exist")
		case state.Running(name):
			p.add(name, fmt.Sprintf("'%s' has been stopped", name), ActionStop)
		default:
			p.warn(name, "'%s' is not running")
		}
	}
	return p
}

// Remove removes existing containers, dependents first. Running containers
// are stopped first when force is set; otherwise the whole plan is refused
// and the error names every running container.
func Remove(order []string, state domain.StateMap, force bool) (Plan, error) {
	if !force {
		var running []string
		for _, name := range graph.Reverse(order) {
			if state.Running(name) {
				running = append(running, name)
			}
		}
		if len(running) > 0 {
			return Plan{}, &domain.StateError{
				Command:    "remove",
				Containers: running,
				Reason:     "is running and force was not specified",
			}
		}
	}
	return ForceRemove(order, state), nil
}

// ForceRemove stops and removes running containers and removes stopped
// ones, dependents first. Absent containers are skipped.
func ForceRemove(order []string, state domain.StateMap) Plan {
	p := Plan{Command: "remove"}
	for _, name := range graph.Reverse(order) {
		switch {
		case !state.Has(name):
			continue
		case state.Running(name):
			p.add(name, fmt.Sprintf("'%s' has been stopped and removed", name), ActionStop, ActionRemove)
		default:
			p.add(name, fmt.Sprintf("'%s' has been removed", name), ActionRemove)
		}
	}
	return p
}

// Restart stops and starts running containers and starts stopped ones, in
// dependency order. A container that does not exist refuses the whole plan.
func Restart(order []string, state domain.StateMap) (Plan, error) {
	p := Plan{Command: "restart"}
	var absent []string
	for _, name := range order {
		switch {
		case !state.Has(name):
			absent = append(absent, name)
		case state.Running(name):
			p.add(name, fmt.Sprintf("'%s' has been restarted", name), ActionStop, ActionStart)
		default:
			p.add(name, fmt.Sprintf("'%s' has been started", name), ActionStart)
		}
	}
	if len(absent) > 0 {
		return Plan{}, &domain.StateError{
			Command:    "restart",
			Containers: absent,
			Reason:     "does not exist",
		}
	}
	return p, nil
}

// Reset force-removes every managed container the runtime reports, in the
// reverse of the runtime's listing. Definitions are not consulted.
func Reset(managed []string, state domain.StateMap) Plan {
	p := ForceRemove(managed, state)
	p.Command = "reset"
	return p
}

// Pull pulls the image of every container regardless of live state.
func Pull(order []string, project *domain.Project) Plan {
	p := Plan{Command: "pull"}
	for _, name := range order {
		def, ok := project.Lookup(name)
		if !ok {
			continue
		}
		p.Steps = append(p.Steps, Step{
			Container:   name,
			Image:       def.Image,
			Actions:     []Action{ActionPull},
			Description: fmt.Sprintf("'%s' (%s) has been pulled", name, def.Image),
		})
	}
	return p
}
