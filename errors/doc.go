// Package errors provides structured error types for the userhost module.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
//
// Two classes matter to callers. Out-of-bounds memory accesses are ordinary
// returned errors that abort only the current guest operation. Empty program
// stacks and request/response desynchronization are fatal: they are raised
// with Fatal (a panic carrying *Error) and never retried.
//
//	err := errors.New(errors.PhaseHost, errors.KindInvalidInput).
//		Detail("payload too short: %d bytes", len(payload)).
//		Build()
//
// A harness that needs to observe which invariant failed wraps execution in
// CatchFatal and inspects the Kind:
//
//	err := errors.CatchFatal(func() { programs.Pop() })
//	// err.(*errors.Error).Kind == errors.KindEmptyStack
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
