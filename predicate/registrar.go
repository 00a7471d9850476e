package predicate

import (
	"go.uber.org/zap"

	"github.com/wippyai/prolog-runtime/engine"
	"github.com/wippyai/prolog-runtime/errors"
	"github.com/wippyai/prolog-runtime/trace"
)

// Module is the namespace foreign predicates are registered in.
const Module = "libprolog"

// Registrar declares the runtime's foreign predicates in an engine.
type Registrar struct {
	tracker    *Tracker
	tracer     *trace.Tracer
	table      []engine.Extension
	registered bool
}

// NewRegistrar binds the predicate table to tracker and tracer.
func NewRegistrar(tracker *Tracker, tracer *trace.Tracer) *Registrar {
	r := &Registrar{tracker: tracker, tracer: tracer}
	r.table = []engine.Extension{
		// load-time error detection
		{Name: "loading", Arity: 0, Func: r.loading, Flags: engine.NonTraceable},
		{Name: "mark_error", Arity: 0, Func: r.markError, Flags: engine.NonTraceable},
		{Name: "clear_errors", Arity: 0, Func: r.clearErrors, Flags: engine.NonTraceable},
		{Name: "has_errors", Arity: 0, Func: r.hasErrors, Flags: engine.NonTraceable},
		// rule/predicate tracing
		{Name: "trace_predicate", Arity: 1, Func: r.tracePredicate, Flags: engine.NonTraceable},
		{Name: "trace_predicate", Arity: 2, Func: r.tracePredicate, Flags: engine.NonTraceable},
		{Name: "trace_config", Arity: 3, Func: r.traceConfig, Flags: engine.NonTraceable},
	}
	return r
}

// Table returns a copy of the predicate table.
func (r *Registrar) Table() []engine.Extension {
	return append([]engine.Extension(nil), r.table...)
}

// RegisterAll declares the whole table in Module.
func (r *Registrar) RegisterAll(eng engine.Engine) error {
	if err := eng.RegisterExtensions(Module, r.Table()); err != nil {
		return errors.New(errors.PhaseRegister, errors.KindRegistration).
			Detail("register %d predicates in %s", len(r.table), Module).
			Cause(err).
			Build()
	}
	r.registered = true
	engine.Logger().Debug("foreign predicates registered",
		zap.String("module", Module), zap.Int("count", len(r.table)))
	return nil
}

// Registered reports whether RegisterAll succeeded since the last Release.
func (r *Registrar) Registered() bool {
	return r.registered
}

// Release forgets the registration. The engine drops the predicates
// themselves on cleanup.
func (r *Registrar) Release() {
	r.registered = false
}

func (r *Registrar) loading(engine.Args) bool {
	return r.tracker.Loading()
}

func (r *Registrar) markError(engine.Args) bool {
	r.tracker.MarkError()
	return true
}

func (r *Registrar) clearErrors(engine.Args) bool {
	r.tracker.ClearErrors()
	return true
}

func (r *Registrar) hasErrors(engine.Args) bool {
	return r.tracker.HasErrors()
}

// tracePredicate implements trace_predicate(+Pred) and
// trace_predicate(+Pred, -Setting).
func (r *Registrar) tracePredicate(args engine.Args) bool {
	if args.Arity() != 1 && args.Arity() != 2 {
		return false
	}
	pred, ok := args.Text(0)
	if !ok {
		return false
	}
	mode, traced := r.tracer.Traced(pred)
	if !traced {
		return false
	}
	if args.Arity() == 1 {
		return true
	}
	return args.UnifyAtom(1, mode.String())
}

// traceConfig implements trace_config(+Pred, +Port, -Format).
func (r *Registrar) traceConfig(args engine.Args) bool {
	if args.Arity() != 3 {
		return false
	}
	pred, ok := args.Text(0)
	if !ok {
		return false
	}
	port, ok := args.Text(1)
	if !ok {
		return false
	}
	format, ok := r.tracer.PortFormat(pred, port)
	if !ok {
		return false
	}
	return args.UnifyAtom(2, format.String())
}
