// Package toolregistry implements the Tool Registry & Dispatcher (spec.md
// §4.H): a name → handler map plus synchronous and async-batch dispatch
// over a shared executor handle. Grounded on tools/registry.go's
// name-keyed registry shape and tools/interfaces.go's ToolCall/ToolResult
// split, narrowed to the single `(handle, params) → result string`
// handler signature spec.md §4.H actually names, and on
// pkg/agent/workflowagent/parallel.go's errgroup-based bounded fan-out
// (already adapted once for internal/pipeline) for async_batch_call.
package toolregistry

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// DefaultMaxParallelism bounds async_batch_call's worker pool.
const DefaultMaxParallelism = 8

// Handle is the opaque executor handle passed to every tool handler. The
// Agent Executor supplies a concrete value (typically itself, or a
// narrow view onto its short_term_memory and capabilities); handlers
// type-assert onto the capabilities they need.
type Handle any

// HandlerFunc is a registered tool's implementation: (executor handle,
// params) → result string.
type HandlerFunc func(handle Handle, params map[string]any) (string, error)

// ToolCall carries a dispatch request and, once dispatched, its result
// (spec.md §4.H). ID is assigned monotonically at construction.
type ToolCall struct {
	ID     int64
	Name   string
	Params map[string]any
	Result string
	Err    error
}

// Registry is the name → handler map plus a monotonic ToolCall id
// counter, spec.md §4.H's Tool Registry & Dispatcher.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	nextID   int64
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{handlers: make(map[string]HandlerFunc)}
}

// Register inserts or replaces the handler for name.
func (r *Registry) Register(name string, handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = handler
}

// Has reports whether name is a registered handler.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[name]
	return ok
}

// NewToolCall allocates a ToolCall with the next monotonic id.
func (r *Registry) NewToolCall(name string, params map[string]any) *ToolCall {
	return &ToolCall{ID: atomic.AddInt64(&r.nextID, 1), Name: name, Params: params}
}

func (r *Registry) handler(name string) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Call synchronously dispatches tc against its registered handler,
// storing and returning the result. An unknown name dispatches to no
// handler and returns the empty string (spec.md §4.H), not an error —
// the Agent Executor treats "unknown tool name" as recoverable (§7),
// falling back to reasoning-step enrichment rather than failing here.
func (r *Registry) Call(handle Handle, tc *ToolCall) string {
	h, ok := r.handler(tc.Name)
	if !ok {
		tc.Result = ""
		return ""
	}
	result, err := h(handle, tc.Params)
	tc.Result = result
	tc.Err = err
	return result
}

// AsyncBatchCall submits every call in batch to a bounded worker pool and
// blocks until all have completed, preserving submission order and each
// call's id. Call AsyncResults on the returned slice only after this
// returns; it exists as a separate step to mirror spec.md §4.H's
// "results are harvested by async_results() in submission order" shape.
func (r *Registry) AsyncBatchCall(handle Handle, batch []*ToolCall) []*ToolCall {
	g := new(errgroup.Group)
	g.SetLimit(DefaultMaxParallelism)

	for _, tc := range batch {
		tc := tc
		g.Go(func() error {
			r.Call(handle, tc)
			return nil
		})
	}
	g.Wait()

	return batch
}

// AsyncResults returns each call's result string, in submission order,
// for a batch previously passed to AsyncBatchCall.
func AsyncResults(batch []*ToolCall) []string {
	out := make([]string, len(batch))
	for i, tc := range batch {
		out[i] = tc.Result
	}
	return out
}
