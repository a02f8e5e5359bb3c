package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseMemory  Phase = "memory"  // guarded linear memory access
	PhaseRequest Phase = "request" // host request bridge
	PhaseProgram Phase = "program" // program stack
	PhaseHost    Phase = "host"    // host-side dispatch
	PhaseEngine  Phase = "engine"  // wazero hosting
	PhaseTrace   Phase = "trace"   // exchange recording
	PhaseConfig  Phase = "config"  // session scripts and settings
)

// Kind categorizes the error
type Kind string

const (
	KindOutOfBounds    Kind = "out_of_bounds"
	KindEmptyStack     Kind = "empty_stack"
	KindProtocolDesync Kind = "protocol_desync"
	KindInvalidInput   Kind = "invalid_input"
	KindNotFound       Kind = "not_found"
	KindUnsupported    Kind = "unsupported"
	KindInstantiation  Kind = "instantiation"
	KindStorage        Kind = "storage"
	KindEncoding       Kind = "encoding"
	KindInternal       Kind = "internal"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Access describes a rejected linear memory access.
type Access struct {
	Ptr    uint32
	Length uint32
	Pages  uint32
}

// OutOfBounds creates the recoverable memory bounds error
func OutOfBounds(ptr, length, pages uint32) *Error {
	return &Error{
		Phase:  PhaseMemory,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("memory access out of bounds: ptr=%d, len=%d, pages=%d", ptr, length, pages),
		Value:  Access{Ptr: ptr, Length: length, Pages: pages},
	}
}

// EmptyStack creates the fatal error for touching an empty program stack
func EmptyStack(op string) *Error {
	return &Error{
		Phase:  PhaseProgram,
		Kind:   KindEmptyStack,
		Detail: fmt.Sprintf("%s: no program", op),
	}
}

// ProtocolDesync creates the fatal error for a host/guest request mismatch
func ProtocolDesync(detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseRequest,
		Kind:   KindProtocolDesync,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Instantiation creates an instantiation error
func Instantiation(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseEngine,
		Kind:   KindInstantiation,
		Detail: detail,
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
