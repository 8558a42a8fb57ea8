// Package errs defines the component-tagged error taxonomy of spec.md §7.
// The parser (internal/genfile) returns ParseError and the pipeline runtime
// returns DispatchError; no package in this module constructs
// ResolutionError or TransportError.
package errs

import "fmt"

// Component names used by the tagged error types below.
const (
	ComponentParser      = "parser"
	ComponentExecutor    = "executor"
	ComponentPipeline    = "pipeline"
	ComponentMemory      = "memory"
	ComponentToolReg     = "tool_registry"
	ComponentVectorStore = "vector_store"
)

// ParseError signals a malformed agent file, JSON block, or TOML document.
// Fatal for the enclosing call.
type ParseError struct {
	Path    string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[parser:%s] %s: %v", e.Path, e.Message, e.Err)
	}
	return fmt.Sprintf("[parser:%s] %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Err }

func NewParseError(path, message string, err error) *ParseError {
	return &ParseError{Path: path, Message: message, Err: err}
}

// ResolutionError signals that an `use` label resolved to neither a native
// tool nor a known instruction. Fatal at init_agent / update-state (I4).
type ResolutionError struct {
	Instruction string
	Label       string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("[executor:%s] use-label %q resolves to neither an instruction nor a native tool", e.Instruction, e.Label)
}

func NewResolutionError(instruction, label string) *ResolutionError {
	return &ResolutionError{Instruction: instruction, Label: label}
}

// TransportError wraps an error raised by the LLM or vector-store
// transport layer. Propagates out of the originating call; the executor
// converts it into a terminating run with empty output (§7).
type TransportError struct {
	Component string
	Op        string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("[%s:%s] transport error: %v", e.Component, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func NewTransportError(component, op string, err error) *TransportError {
	return &TransportError{Component: component, Op: op, Err: err}
}

// DispatchError signals a pipeline stage received a handle whose runtime
// type tag does not match its declared input type. Fatal for the pipeline
// run (§7).
type DispatchError struct {
	Stage    string
	Expected string
	Got      string
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("[pipeline:%s] type mismatch: expected %s, got %s", e.Stage, e.Expected, e.Got)
}

func NewDispatchError(stage, expected, got string) *DispatchError {
	return &DispatchError{Stage: stage, Expected: expected, Got: got}
}
