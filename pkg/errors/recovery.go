package errors

import (
	"fmt"
	"runtime/debug"

	"gonum.org/v1/gonum/mat"
)

// PanicError is an error created from a recovered panic. gonum reports
// shape mismatches by panicking, so linear algebra entry points recover
// them into this type instead of crashing the caller.
type PanicError struct {
	// PanicValue is the original value passed to panic()
	PanicValue interface{}

	// StackTrace contains the stack trace at the time of panic
	StackTrace string

	// Operation identifies where the panic was recovered
	Operation string
}

// Error implements the error interface for PanicError.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Operation, e.PanicValue)
}

// Unwrap exposes a panicking error value, if any.
func (e *PanicError) Unwrap() error {
	if err, ok := e.PanicValue.(error); ok {
		return err
	}
	return nil
}

// IsShapeError reports whether the panic came from a gonum dimension check.
func (e *PanicError) IsShapeError() bool {
	v, ok := e.PanicValue.(mat.Error)
	return ok && (v == mat.ErrShape || v == mat.ErrSquare)
}

// String provides detailed information including stack trace.
func (e *PanicError) String() string {
	return fmt.Sprintf("panic in %s: %v\nStack trace:\n%s",
		e.Operation, e.PanicValue, e.StackTrace)
}

// NewPanicError creates a new PanicError with the given operation context and panic value.
func NewPanicError(operation string, panicValue interface{}) *PanicError {
	return &PanicError{
		PanicValue: panicValue,
		StackTrace: string(debug.Stack()),
		Operation:  operation,
	}
}

// Recover is used with defer to convert a panic into an error assigned to
// *err. An existing error is kept and wrapped with the panic information.
//
//	func PenalizedWLS(...) (res *WLSResult, err error) {
//	    defer Recover(&err, "PenalizedWLS")
//	    ...
//	}
func Recover(err *error, operation string) {
	if r := recover(); r != nil {
		if *err != nil {
			*err = fmt.Errorf("panic in %s: %v (original error: %w)", operation, r, *err)
			return
		}
		*err = NewPanicError(operation, r)
	}
}

// SafeExecute runs fn and converts any panic into a PanicError.
func SafeExecute(operation string, fn func() error) (err error) {
	defer Recover(&err, operation)
	return fn()
}
