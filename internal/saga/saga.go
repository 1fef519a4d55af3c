// Package saga runs named flows of idempotent steps. A failing step stops the
// flow; because every step is safe to repeat, the caller recovers by running
// the same flow again from the top.
package saga

import (
	"context"
	"fmt"
	"time"

	"bankops/pkg/logger"
)

type Step[S any] struct {
	Name    string
	Execute func(ctx context.Context, state S) error
}

func NewStep[S any](name string, execute func(ctx context.Context, state S) error) Step[S] {
	return Step[S]{Name: name, Execute: execute}
}

type Flow[S any] struct {
	name  string
	steps []Step[S]
}

func NewFlow[S any](name string, steps ...Step[S]) *Flow[S] {
	return &Flow[S]{name: name, steps: steps}
}

func (f *Flow[S]) Name() string {
	return f.name
}

func (f *Flow[S]) Steps() []Step[S] {
	return f.steps
}

// StepError identifies the step that stopped a flow. It unwraps to the step's error.
type StepError struct {
	Flow string
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: step %s failed: %v", e.Flow, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

type Engine[S any] struct {
	flows map[string]*Flow[S]
	log   *logger.Logger
}

func NewEngine[S any](log *logger.Logger, flows ...*Flow[S]) *Engine[S] {
	m := make(map[string]*Flow[S], len(flows))
	for _, f := range flows {
		m[f.Name()] = f
	}
	return &Engine[S]{flows: m, log: log}
}

func (e *Engine[S]) Run(ctx context.Context, flowName string, state S) error {
	f, exists := e.flows[flowName]
	if !exists {
		return fmt.Errorf("unsupported flow: %v", flowName)
	}

	start := time.Now()
	for _, step := range f.Steps() {
		if err := ctx.Err(); err != nil {
			return &StepError{Flow: f.name, Step: step.Name, Err: err}
		}
		if err := step.Execute(ctx, state); err != nil {
			e.log.Warn("Saga step failed",
				"flow", f.name,
				"step", step.Name,
				"error", err,
			)
			return &StepError{Flow: f.name, Step: step.Name, Err: err}
		}
		e.log.Debug("Saga step completed", "flow", f.name, "step", step.Name)
	}

	e.log.Debug("Saga completed", "flow", f.name, "duration", time.Since(start))
	return nil
}
