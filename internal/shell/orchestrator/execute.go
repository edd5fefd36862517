package orchestrator

import (
	"context"
	"time"

	"github.com/artpar/dockwrkr/internal/core/domain"
	"github.com/artpar/dockwrkr/internal/core/outcome"
	"github.com/artpar/dockwrkr/internal/core/plan"
)

// =============================================================================
// Plan Execution
// =============================================================================

func (o *Orchestrator) executePlanned(ctx context.Context, planned outcome.Outcome[plan.Plan], grace time.Duration) outcome.Outcome[[]domain.Result] {
	return outcome.Bind(planned, func(p plan.Plan) outcome.Outcome[[]domain.Result] {
		return o.execute(ctx, p, grace)
	})
}

// execute logs the plan's warnings and dispatches one chain of runtime calls
// per step.
func (o *Orchestrator) execute(ctx context.Context, p plan.Plan, grace time.Duration) outcome.Outcome[[]domain.Result] {
	for _, w := range p.Warnings {
		o.logger.Warn(w.Message, "command", p.Command, "container", w.Container)
	}

	o.logger.Debug("dispatching plan",
		"command", p.Command,
		"steps", len(p.Steps),
		"warnings", len(p.Warnings),
		"fail_fast", o.opts.FailFast,
	)

	steps := make([]func() outcome.Outcome[domain.Result], 0, len(p.Steps))
	for _, step := range p.Steps {
		steps = append(steps, func() outcome.Outcome[domain.Result] {
			return o.runStep(ctx, p.Command, step, grace)
		})
	}

	return outcome.Dispatch(steps, o.opts.FailFast)
}

// runStep issues the step's actions in order, stopping at the first failure.
func (o *Orchestrator) runStep(ctx context.Context, command string, step plan.Step, grace time.Duration) outcome.Outcome[domain.Result] {
	chain := outcome.Done()
	for _, action := range step.Actions {
		chain = outcome.Bind(chain, func(outcome.Unit) outcome.Outcome[outcome.Unit] {
			return o.perform(ctx, step, action, grace)
		})
	}

	return outcome.Map(chain, func(outcome.Unit) domain.Result {
		return domain.Result{
			Container:   step.Container,
			Action:      step.Summary(),
			Description: step.Description,
		}
	}).Then(func(r domain.Result) {
		o.logger.Info(r.Description, "command", command, "container", r.Container, "action", r.Action)
	}).Else(func(err error) {
		o.logger.Error("step failed", "command", command, "container", step.Container, "error", err)
	})
}

func (o *Orchestrator) perform(ctx context.Context, step plan.Step, action plan.Action, grace time.Duration) outcome.Outcome[outcome.Unit] {
	name := step.Container

	switch action {
	case plan.ActionCreate:
		def, ok := o.project.Lookup(name)
		if !ok {
			return outcome.Fail[outcome.Unit](&domain.InvalidContainerError{Names: []string{name}})
		}
		return o.call(action, name, func() error {
			return o.runtime.CreateContainer(ctx, def, o.project.BasePath(), o.project.ConfigFile)
		})

	case plan.ActionStart:
		return o.call(action, name, func() error {
			return o.runtime.StartContainer(ctx, name)
		}).Then(func(outcome.Unit) {
			o.recordPid(ctx, name)
		})

	case plan.ActionStop:
		return o.call(action, name, func() error {
			return o.runtime.StopContainer(ctx, name, grace)
		}).Then(func(outcome.Unit) {
			o.clearPid(name)
		})

	case plan.ActionRemove:
		return o.call(action, name, func() error {
			return o.runtime.RemoveContainer(ctx, name)
		}).Then(func(outcome.Unit) {
			o.clearPid(name)
		})

	case plan.ActionPull:
		return o.call(action, name, func() error {
			return o.runtime.PullImage(ctx, step.Image)
		})
	}

	return outcome.Fail[outcome.Unit](domain.NewRuntimeError(string(action), name, domain.ErrInvalidState))
}

// call captures a runtime call, tagging any failure with the action and
// container.
func (o *Orchestrator) call(action plan.Action, name string, fn func() error) outcome.Outcome[outcome.Unit] {
	o.logger.Debug("runtime call", "action", string(action), "container", name)
	return outcome.TryDo(func() error {
		if err := fn(); err != nil {
			return domain.NewRuntimeError(string(action), name, err)
		}
		return nil
	})
}

// =============================================================================
// Pid Files
// =============================================================================

// Pid file failures never fail the command.

func (o *Orchestrator) recordPid(ctx context.Context, name string) {
	if !o.pids.Enabled() {
		return
	}
	state, err := o.runtime.ReadStatus(ctx, []string{name})
	if err != nil {
		o.logger.Warn("failed to read pid", "container", name, "error", err)
		return
	}
	if err := o.pids.Write(name, state.StatusOf(name).PID); err != nil {
		o.logger.Warn("failed to write pid file", "container", name, "error", err)
	}
}

func (o *Orchestrator) clearPid(name string) {
	if err := o.pids.Remove(name); err != nil {
		o.logger.Warn("failed to remove pid file", "container", name, "error", err)
	}
}
