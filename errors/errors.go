package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which lifecycle step produced the error
type Phase string

const (
	PhaseInit      Phase = "init"      // engine startup
	PhaseExit      Phase = "exit"      // engine teardown
	PhaseConfig    Phase = "config"    // helper path and option handling
	PhaseAllocator Phase = "allocator" // allocator override
	PhaseRegister  Phase = "register"  // foreign predicate registration
	PhaseLoad      Phase = "load"      // source file loading
	PhaseEngine    Phase = "engine"    // backend operations
	PhaseTrace     Phase = "trace"     // tracing subsystem
)

// Kind categorizes the error
type Kind string

const (
	KindAlreadyRunning       Kind = "already_running"
	KindInvalidConfiguration Kind = "invalid_configuration"
	KindConflict             Kind = "conflict"
	KindNotInitialized       Kind = "not_initialized"
	KindRegistration         Kind = "registration"
	KindInvalidInput         Kind = "invalid_input"
	KindUnsupported          Kind = "unsupported"
	KindLoadFailed           Kind = "load_failed"
)

// Sentinels match errors of the same Kind raised in any phase.
var (
	ErrAlreadyRunning       = &Error{Kind: KindAlreadyRunning}
	ErrInvalidConfiguration = &Error{Kind: KindInvalidConfiguration}
	ErrConflict             = &Error{Kind: KindConflict}
	ErrNotInitialized       = &Error{Kind: KindNotInitialized}
)

// Error is the structured error type used throughout the runtime
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, " "))
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

// Is reports whether target matches this error. A target without a phase
// matches on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
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

// Path sets the offending argument vector or file path
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

// AlreadyRunning creates an error for a mutation attempted while the engine runs
func AlreadyRunning(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAlreadyRunning,
		Detail: "engine already running",
	}
}

// InvalidConfiguration creates an error for a startup the engine refused
func InvalidConfiguration(argv []string, detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseInit,
		Kind:   KindInvalidConfiguration,
		Path:   argv,
		Detail: detail,
		Cause:  cause,
	}
}

// Conflict creates an allocator slot conflict error
func Conflict(slot string) *Error {
	return &Error{
		Phase:  PhaseAllocator,
		Kind:   KindConflict,
		Detail: fmt.Sprintf("%s slot already fixed to a different function", slot),
		Value:  slot,
	}
}

// NotInitialized creates a not-initialized error
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// Registration creates a registration error
func Registration(namespace, name string, arity int, cause error) *Error {
	return &Error{
		Phase:  PhaseRegister,
		Kind:   KindRegistration,
		Detail: fmt.Sprintf("register %s:%s/%d", namespace, name, arity),
		Cause:  cause,
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

// LoadFailed creates a source loading error
func LoadFailed(path string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindLoadFailed,
		Path:   []string{path},
		Detail: "load source file",
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
