package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseValidate  Phase = "validate"  // creation config checks
	PhaseLoad      Phase = "load"      // engine module loading
	PhaseQueue     Phase = "queue"     // task submission and execution
	PhaseEngine    Phase = "engine"    // calls into the key engine
	PhaseDecode    Phase = "decode"    // engine result decoding
	PhaseLifecycle Phase = "lifecycle" // wallet open/closed state
	PhaseRPC       Phase = "rpc"       // remote wallet RPC
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidConfig  Kind = "invalid_config"
	KindClosed         Kind = "closed"
	KindUnsupported    Kind = "unsupported"
	KindNotFound       Kind = "not_found"
	KindEngine         Kind = "engine"
	KindQueueClosed    Kind = "queue_closed"
	KindPanic          Kind = "panic"
	KindInvalidData    Kind = "invalid_data"
	KindMissingExport  Kind = "missing_export"
	KindAllocation     Kind = "allocation"
	KindOutOfBounds    Kind = "out_of_bounds"
	KindNotInitialized Kind = "not_initialized"
	KindInstantiation  Kind = "instantiation"
)

// Sentinels for errors.Is checks. They carry no phase, so they match
// any error of the same kind.
var (
	ErrInvalidConfig = &Error{Kind: KindInvalidConfig}
	ErrClosed        = &Error{Kind: KindClosed}
	ErrUnsupported   = &Error{Kind: KindUnsupported}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrEngine        = &Error{Kind: KindEngine}
	ErrQueueClosed   = &Error{Kind: KindQueueClosed}
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Op     string
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

	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(e.Op)
	}

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

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

// Is reports whether target matches this error.
// A target without a phase matches on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase != "" && t.Phase != e.Phase {
		return false
	}
	return e.Kind == t.Kind
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

// Op sets the operation name
func (b *Builder) Op(op string) *Builder {
	b.err.Op = op
	return b
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
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

// InvalidConfig creates a creation-config error for the given field
func InvalidConfig(field string, rule any, detail string) *Error {
	var path []string
	if field != "" {
		path = []string{field}
	}
	return &Error{
		Phase:  PhaseValidate,
		Kind:   KindInvalidConfig,
		Path:   path,
		Value:  rule,
		Detail: detail,
	}
}

// Closed creates an error for an operation on a closed wallet
func Closed(op string) *Error {
	return &Error{
		Phase:  PhaseLifecycle,
		Kind:   KindClosed,
		Op:     op,
		Detail: "wallet is closed",
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(op, why string) *Error {
	return &Error{
		Phase:  PhaseLifecycle,
		Kind:   KindUnsupported,
		Op:     op,
		Detail: why,
	}
}

// NotFound creates a not-found error
func NotFound(op, what, name string, cause error) *Error {
	return &Error{
		Phase:  PhaseEngine,
		Kind:   KindNotFound,
		Op:     op,
		Detail: fmt.Sprintf("%s %q not found", what, name),
		Cause:  cause,
	}
}

// Engine wraps a failure reported by the key engine
func Engine(op, detail string) *Error {
	return &Error{
		Phase:  PhaseEngine,
		Kind:   KindEngine,
		Op:     op,
		Detail: detail,
	}
}

// QueueClosed creates an error for a submission after the queue stopped
func QueueClosed(op string) *Error {
	return &Error{
		Phase:  PhaseQueue,
		Kind:   KindQueueClosed,
		Op:     op,
		Detail: "task queue is closed",
	}
}

// Panic converts a recovered panic value into an error
func Panic(op string, v any) *Error {
	if err, ok := v.(error); ok {
		return &Error{
			Phase:  PhaseQueue,
			Kind:   KindPanic,
			Op:     op,
			Detail: "task panicked",
			Cause:  err,
			Value:  v,
		}
	}
	return &Error{
		Phase:  PhaseQueue,
		Kind:   KindPanic,
		Op:     op,
		Detail: fmt.Sprintf("task panicked: %v", v),
		Value:  v,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, op, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Op:     op,
		Detail: detail,
	}
}

// MissingExport creates an error for a guest module lacking a required export
func MissingExport(name string) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindMissingExport,
		Detail: fmt.Sprintf("guest does not export %q", name),
		Value:  name,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(op string, size uint32, cause error) *Error {
	return &Error{
		Phase:  PhaseEngine,
		Kind:   KindAllocation,
		Op:     op,
		Detail: fmt.Sprintf("failed to allocate %d bytes", size),
		Cause:  cause,
	}
}

// OutOfBounds creates a guest memory access error
func OutOfBounds(op string, offset, length uint32) *Error {
	return &Error{
		Phase:  PhaseEngine,
		Kind:   KindOutOfBounds,
		Op:     op,
		Detail: fmt.Sprintf("memory range [%d, +%d) out of bounds", offset, length),
	}
}

// NotInitialized creates a not-initialized error for a missing component
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// Instantiation creates an instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInstantiation,
		Detail: "instantiate engine module",
		Cause:  cause,
	}
}

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// RPC wraps a remote wallet RPC failure
func RPC(op string, cause error) *Error {
	return &Error{
		Phase:  PhaseRPC,
		Kind:   KindEngine,
		Op:     op,
		Detail: "wallet rpc call failed",
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

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return "", false
		}
		err = u.Unwrap()
	}
	return "", false
}
