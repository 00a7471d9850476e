package engine

import (
	"context"
	"fmt"

	prologruntime "github.com/wippyai/prolog-runtime"
)

// Engine is the low-level contract of an embedded logic engine.
//
// The call order mirrors a C embedding API: extensions are registered
// before Initialise, Initialise consumes a complete argument vector and
// Cleanup tears the engine down. An Engine hosts at most one running
// instance; Initialise after a Cleanup starts a fresh one.
type Engine interface {
	// RegisterExtensions declares foreign predicates in module. They become
	// callable on the next Initialise and are dropped by Cleanup. Declaring
	// the same module again replaces its table.
	RegisterExtensions(module string, exts []Extension) error

	// Initialise starts the engine. argv[0] identifies the engine's own
	// image; the remaining tokens are engine options.
	Initialise(ctx context.Context, argv []string) error

	// IsInitialised reports whether the engine is live.
	IsInitialised() bool

	// Consult loads a source file into the running engine.
	Consult(ctx context.Context, path string) error

	// Cleanup stops the engine and releases its resources.
	Cleanup(ctx context.Context) error
}

// AllocatorAware is implemented by engines that manage their own memory and
// accept host allocation functions. UseAllocator is called before Initialise.
type AllocatorAware interface {
	Engine
	UseAllocator(a prologruntime.Allocator)
}

// SourceConsulter is implemented by engines that can load source text that
// has no file of its own. name identifies the source in diagnostics.
type SourceConsulter interface {
	Engine
	ConsultSource(ctx context.Context, name string, src []byte) error
}

// Flags are the capability flags attached to a foreign predicate.
type Flags uint8

const (
	// Varargs marks a predicate receiving its arguments as a vector.
	Varargs Flags = 1 << iota
	// NoTrace hides the predicate from the engine's execution tracer.
	NoTrace
)

// NonTraceable is the flag set used for predicates that must stay invisible
// to the tracer, so tracing the tracer cannot recurse.
const NonTraceable = Varargs | NoTrace

// Has reports whether all bits of f2 are set.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

func (f Flags) String() string {
	switch f {
	case 0:
		return "none"
	case Varargs:
		return "varargs"
	case NoTrace:
		return "notrace"
	case NonTraceable:
		return "varargs|notrace"
	}
	return fmt.Sprintf("flags(%d)", uint8(f))
}

// Args gives a foreign predicate access to the arguments of one call.
type Args interface {
	// Arity returns the number of arguments.
	Arity() int
	// Text returns the written form of argument i. Atoms, integers and
	// module:name/arity indicators are supported.
	Text(i int) (string, bool)
	// UnifyAtom unifies argument i with the atom name.
	UnifyAtom(i int, name string) bool
}

// Foreign implements a predicate natively. It reports success or failure.
type Foreign func(args Args) bool

// Extension describes one foreign predicate.
type Extension struct {
	Name  string
	Arity int
	Func  Foreign
	Flags Flags
}

// Indicator returns name/arity.
func (e Extension) Indicator() string {
	return fmt.Sprintf("%s/%d", e.Name, e.Arity)
}
