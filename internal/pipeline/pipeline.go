// Package pipeline implements the Pipeline Runtime (spec.md §4.E): a
// linked list of typed stages built by name through a factory registry,
// with order-preserving parallel fan-out over sequence-typed input.
// Grounded on workflow/interfaces.go's executor-registry shape (named
// factories producing a typed processing step) and
// pkg/agent/workflowagent/parallel.go's errgroup-based fan-out pattern,
// adapted from a sub-agent broadcast to a per-element worker pool gather.
package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/mentals-ai/mentals/internal/errs"
)

// DefaultMaxParallelism bounds the fan-out worker pool when a Pipeline is
// built without an explicit limit.
const DefaultMaxParallelism = 8

// Stage is one named step of a Pipeline: it declares the type tags it
// accepts and produces, and processes a single element of that type.
type Stage interface {
	Name() string
	InputType() string
	OutputType() string
	Process(ctx context.Context, input any) (any, error)
}

// Handle is the opaque value that flows between stages: a runtime type
// tag plus either a single Value or, when IsSequence is true, a Values
// slice that fan-out/gather operate over element-wise.
type Handle struct {
	Type       string
	Value      any
	Values     []any
	IsSequence bool
}

// Single wraps a scalar value under the given type tag.
func Single(typeTag string, value any) Handle {
	return Handle{Type: typeTag, Value: value}
}

// Sequence wraps an ordered slice of values under the given type tag.
func Sequence(typeTag string, values []any) Handle {
	return Handle{Type: typeTag, Values: values, IsSequence: true}
}

// Empty reports whether the handle carries no usable payload — a nil
// scalar, or a zero-length sequence.
func (h Handle) Empty() bool {
	if h.IsSequence {
		return len(h.Values) == 0
	}
	return h.Value == nil
}

// Factory constructs a named Stage instance. Registered factories let a
// Pipeline be built by name, matching spec.md §4.E's "built by name
// through a factory registry".
type Factory func() Stage

// Registry maps stage names to factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty stage Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a named factory. A duplicate name overwrites the prior
// registration, matching the teacher's registry overwrite semantics.
func (r *Registry) Register(name string, factory Factory) {
	r.factories[name] = factory
}

// Build composes a Pipeline from an ordered list of registered stage
// names, with the given maximum fan-out parallelism (<=0 selects
// DefaultMaxParallelism).
func (r *Registry) Build(names []string, maxParallelism int) (*Pipeline, error) {
	if maxParallelism <= 0 {
		maxParallelism = DefaultMaxParallelism
	}

	stages := make([]Stage, 0, len(names))
	for _, name := range names {
		factory, ok := r.factories[name]
		if !ok {
			return nil, fmt.Errorf("pipeline: stage %q is not registered", name)
		}
		stages = append(stages, factory())
	}

	return &Pipeline{stages: stages, maxParallelism: maxParallelism}, nil
}

// Pipeline is an ordered, linked sequence of stages (spec.md §4.E).
type Pipeline struct {
	stages         []Stage
	maxParallelism int
}

// ResultHandler receives the outcome of an asynchronously-executed run.
type ResultHandler func(original Handle, result Handle, err error)

// Execute runs the pipeline synchronously to completion.
//
// Stage order is the pipeline's declared order. Before invoking a stage,
// the runtime checks the incoming handle's type tag against the stage's
// declared input type; a mismatch is a fatal error that halts the run
// (errs.DispatchError). If the handle is a sequence and the stage is not
// the tail stage, the runtime fans out: Process is invoked once per
// element, bounded by maxParallelism, and results are gathered back into
// a sequence in input order (P8). If any stage produces an empty
// result, the pipeline halts and returns an empty Handle.
func (p *Pipeline) Execute(ctx context.Context, input Handle) (Handle, error) {
	current := input

	for i, stage := range p.stages {
		if current.Type != stage.InputType() {
			return Handle{}, errs.NewDispatchError(stage.Name(), stage.InputType(), current.Type)
		}

		isTail := i == len(p.stages)-1

		var next Handle
		var err error
		if current.IsSequence && !isTail {
			next, err = p.fanOut(ctx, stage, current)
		} else {
			next, err = p.runOne(ctx, stage, current)
		}
		if err != nil {
			return Handle{}, fmt.Errorf("pipeline: stage %q: %w", stage.Name(), err)
		}
		if next.Empty() {
			return Handle{}, nil
		}
		current = next
	}

	return current, nil
}

// runOne invokes a stage on a single (non-fanned-out) handle.
func (p *Pipeline) runOne(ctx context.Context, stage Stage, h Handle) (Handle, error) {
	if h.IsSequence {
		out := make([]any, 0, len(h.Values))
		for _, v := range h.Values {
			result, err := stage.Process(ctx, v)
			if err != nil {
				return Handle{}, err
			}
			out = append(out, result)
		}
		return Sequence(stage.OutputType(), out), nil
	}

	result, err := stage.Process(ctx, h.Value)
	if err != nil {
		return Handle{}, err
	}
	return Single(stage.OutputType(), result), nil
}

// fanOut invokes stage once per element of h.Values in parallel, bounded
// by maxParallelism, and gathers results back in input order.
func (p *Pipeline) fanOut(ctx context.Context, stage Stage, h Handle) (Handle, error) {
	results := make([]any, len(h.Values))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxParallelism)

	for i, v := range h.Values {
		i, v := i, v
		g.Go(func() error {
			result, err := stage.Process(gctx, v)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Handle{}, err
	}

	return Sequence(stage.OutputType(), results), nil
}

// ExecuteAsync enqueues a run on a new goroutine and, on completion,
// invokes handler with the original input and the run's outcome.
func (p *Pipeline) ExecuteAsync(ctx context.Context, input Handle, handler ResultHandler) {
	go func() {
		result, err := p.Execute(ctx, input)
		if handler != nil {
			handler(input, result, err)
		}
	}()
}
