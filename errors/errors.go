package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseBind      Phase = "bind"      // callable construction
	PhaseCall      Phase = "call"      // argument shape checks
	PhaseMarshal   Phase = "marshal"   // managed to native
	PhaseUnmarshal Phase = "unmarshal" // native to managed
	PhaseAlloc     Phase = "alloc"     // temp buffer allocation
	PhaseNative    Phase = "native"    // the downcall itself
	PhaseLoad      Phase = "load"      // backend module loading
)

// Kind categorizes the error
type Kind string

const (
	KindUnsupportedBinding Kind = "unsupported_binding"
	KindArityMismatch      Kind = "arity_mismatch"
	KindTypeMismatch       Kind = "type_mismatch"
	KindSlotOutOfRange     Kind = "slot_out_of_range"
	KindAllocation         Kind = "allocation"
	KindOutOfBounds        Kind = "out_of_bounds"
	KindInvalidData        Kind = "invalid_data"
	KindNotFound           Kind = "not_found"
	KindNotInitialized     Kind = "not_initialized"
)

// Error is the structured error type used throughout the engine
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	GoType string
	Want   string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.Want != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.Want != "" {
			b.WriteString("got ")
			b.WriteString(e.GoType)
			b.WriteString(", want ")
			b.WriteString(e.Want)
		} else if e.GoType != "" {
			b.WriteString("got ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("want ")
			b.WriteString(e.Want)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.Want != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
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

// Path sets the location path (e.g. argument index, binding position)
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the observed Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// Want sets the expected type or shape
func (b *Builder) Want(t string) *Builder {
	b.err.Want = t
	return b
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

// Convenience constructors for common error patterns

// UnsupportedBinding creates a bind-time error naming the offending binding kind
func UnsupportedBinding(phase Phase, path []string, tag string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupportedBinding,
		Path:   path,
		Detail: fmt.Sprintf("no adapter for binding kind %s", tag),
	}
}

// ArityMismatch creates a call-time argument count error
func ArityMismatch(want, got int) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindArityMismatch,
		Detail: fmt.Sprintf("expected %d arguments, got %d", want, got),
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, goType, want string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Path:   path,
		GoType: goType,
		Want:   want,
	}
}

// SlotOutOfRange creates an error for a storage slot outside its class
func SlotOutOfRange(path []string, class, index, limit int) *Error {
	return &Error{
		Phase:  PhaseBind,
		Kind:   KindSlotOutOfRange,
		Path:   path,
		Detail: fmt.Sprintf("slot %d in class %d out of range (class has %d)", index, class, limit),
		Value:  index,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(size, align uint64, cause error) *Error {
	return &Error{
		Phase:  PhaseAlloc,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
		Cause:  cause,
	}
}

// OutOfBounds creates a memory bounds error
func OutOfBounds(phase Phase, addr, length, limit uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("access [%#x, %#x) outside memory of %d bytes", addr, addr+length, limit),
		Value:  addr,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %s not found", what, name),
	}
}

// NotInitialized creates a not-initialized error for a missing collaborator
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
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
