// Package errors provides structured error types for the ffi-engine library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: location path, observed/expected type names,
// and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseCall, errors.KindTypeMismatch).
//		Path("arg", "1").
//		GoType("string").
//		Want("int32").
//		Detail("cannot pass string through an integer register").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.UnsupportedBinding(errors.PhaseBind, path, "dereference")
//	err := errors.ArityMismatch(2, 3)
//
// All errors implement the standard error interface and support errors.Is/As.
// Bind-time errors (PhaseBind) are never retried; call-time errors surface
// synchronously to the caller with the underlying cause unmasked.
package errors
