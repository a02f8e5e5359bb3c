package errors

import stderrors "errors"

// IsFatal reports whether err is an invariant violation that must halt the
// program rather than be surfaced as a failed call.
func IsFatal(err error) bool {
	var e *Error
	if !stderrors.As(err, &e) {
		return false
	}
	return e.Kind == KindEmptyStack || e.Kind == KindProtocolDesync || e.Kind == KindInternal
}

// Fatal aborts the current execution with err. It never returns.
func Fatal(err *Error) {
	panic(err)
}

// CatchFatal runs fn and converts a fatal *Error panic into a returned error.
// Any other panic value is re-raised unchanged.
func CatchFatal(fn func()) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if e, ok := r.(*Error); ok && IsFatal(e) {
			err = e
			return
		}
		panic(r)
	}()
	fn()
	return nil
}
