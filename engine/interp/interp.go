// Package interp implements engine.Engine on top of a pure Go Prolog
// interpreter.
//
// The interpreter has no module system, so extensions registered in any
// module share one flat predicate namespace. Stack size options are
// validated and recorded but the interpreter grows its stacks on demand.
package interp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ichiban/prolog"
	plengine "github.com/ichiban/prolog/engine"
	"go.uber.org/zap"

	"github.com/wippyai/prolog-runtime/engine"
	"github.com/wippyai/prolog-runtime/errors"
)

// MaxArity is the largest arity a foreign predicate may have.
const MaxArity = 3

// Config holds the interpreter's standard streams.
type Config struct {
	Stdin  io.Reader
	Stdout io.Writer
}

// Engine is a Prolog interpreter behind the engine.Engine contract.
type Engine struct {
	cfg     Config
	pending map[string][]engine.Extension
	order   []string
	interp  *prolog.Interpreter
	opts    engine.Options
}

var _ engine.SourceConsulter = (*Engine)(nil)

// New creates an engine. A nil cfg uses empty input and discarded output.
func New(cfg *Config) *Engine {
	e := &Engine{pending: make(map[string][]engine.Extension)}
	if cfg != nil {
		e.cfg = *cfg
	}
	return e
}

// RegisterExtensions queues exts for the next Initialise, replacing any
// table queued earlier for module.
func (e *Engine) RegisterExtensions(module string, exts []engine.Extension) error {
	for _, ext := range exts {
		if ext.Name == "" || ext.Func == nil {
			return errors.InvalidInput(errors.PhaseRegister, fmt.Sprintf("incomplete extension %q in %s", ext.Indicator(), module))
		}
		if ext.Arity < 0 || ext.Arity > MaxArity {
			return errors.Unsupported(errors.PhaseRegister, fmt.Sprintf("%s:%s arity above %d", module, ext.Indicator(), MaxArity))
		}
	}
	if _, ok := e.pending[module]; !ok {
		e.order = append(e.order, module)
	}
	e.pending[module] = append([]engine.Extension(nil), exts...)
	return nil
}

// Initialise validates argv, creates the interpreter, binds queued
// extensions and loads the boot file when -x is given.
func (e *Engine) Initialise(ctx context.Context, argv []string) error {
	if e.interp != nil {
		return errors.AlreadyRunning(errors.PhaseEngine)
	}
	opts, err := engine.ParseArgv(argv)
	if err != nil {
		return errors.Wrap(errors.PhaseEngine, errors.KindInvalidInput, err, "parse argument vector")
	}

	in := e.cfg.Stdin
	if in == nil {
		in = bytes.NewReader(nil)
	}
	out := e.cfg.Stdout
	if out == nil {
		out = io.Discard
	}
	p := prolog.New(in, out)

	for _, module := range e.order {
		for _, ext := range e.pending[module] {
			bind(p, ext)
		}
	}

	e.interp = p
	e.opts = opts

	if opts.BootFile != "" {
		if err := e.Consult(ctx, opts.BootFile); err != nil {
			e.interp = nil
			return errors.Wrap(errors.PhaseEngine, errors.KindLoadFailed, err, "load boot file")
		}
	}

	engine.Logger().Debug("interpreter started",
		zap.String("image", opts.Image),
		zap.String("boot", opts.BootFile),
		zap.Int("local_kb", opts.LocalKB),
		zap.Int("global_kb", opts.GlobalKB),
		zap.Int("trail_kb", opts.TrailKB))
	return nil
}

// IsInitialised reports whether an interpreter is live.
func (e *Engine) IsInitialised() bool {
	return e.interp != nil
}

// Options returns the decoded argument vector of the live interpreter.
func (e *Engine) Options() engine.Options {
	return e.opts
}

// Consult reads path and executes it as Prolog text.
func (e *Engine) Consult(ctx context.Context, path string) error {
	if e.interp == nil {
		return errors.NotInitialized(errors.PhaseLoad, "interpreter")
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return e.ConsultSource(ctx, path, src)
}

// ConsultSource executes src as Prolog text.
func (e *Engine) ConsultSource(ctx context.Context, name string, src []byte) error {
	if e.interp == nil {
		return errors.NotInitialized(errors.PhaseLoad, "interpreter")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.interp.Exec(string(src)); err != nil {
		return fmt.Errorf("consult %s: %w", name, err)
	}
	return nil
}

// Exec runs Prolog text in the live interpreter.
func (e *Engine) Exec(text string) error {
	if e.interp == nil {
		return errors.NotInitialized(errors.PhaseEngine, "interpreter")
	}
	return e.interp.Exec(text)
}

// Succeeds reports whether goal has at least one solution. The closing
// period is optional.
func (e *Engine) Succeeds(goal string) (bool, error) {
	if e.interp == nil {
		return false, errors.NotInitialized(errors.PhaseEngine, "interpreter")
	}
	sols, err := e.interp.Query(clause(goal))
	if err != nil {
		return false, err
	}
	defer sols.Close()
	ok := sols.Next()
	return ok, sols.Err()
}

// clause terminates goal with a period when it lacks one. The
// interpreter parses nothing without it.
func clause(goal string) string {
	goal = strings.TrimSpace(goal)
	if strings.HasSuffix(goal, ".") {
		return goal
	}
	return goal + "."
}

// Cleanup drops the interpreter and every queued extension.
func (e *Engine) Cleanup(context.Context) error {
	e.interp = nil
	e.opts = engine.Options{}
	e.pending = make(map[string][]engine.Extension)
	e.order = nil
	return nil
}

func bind(p *prolog.Interpreter, ext engine.Extension) {
	name := plengine.NewAtom(ext.Name)
	call := func(k plengine.Cont, env *plengine.Env, terms ...plengine.Term) *plengine.Promise {
		a := &args{terms: terms, env: env}
		if !ext.Func(a) {
			return plengine.Bool(false)
		}
		return k(a.env)
	}

	switch ext.Arity {
	case 0:
		p.Register0(name, func(_ *plengine.VM, k plengine.Cont, env *plengine.Env) *plengine.Promise {
			return call(k, env)
		})
	case 1:
		p.Register1(name, func(_ *plengine.VM, a0 plengine.Term, k plengine.Cont, env *plengine.Env) *plengine.Promise {
			return call(k, env, a0)
		})
	case 2:
		p.Register2(name, func(_ *plengine.VM, a0, a1 plengine.Term, k plengine.Cont, env *plengine.Env) *plengine.Promise {
			return call(k, env, a0, a1)
		})
	case 3:
		p.Register3(name, func(_ *plengine.VM, a0, a1, a2 plengine.Term, k plengine.Cont, env *plengine.Env) *plengine.Promise {
			return call(k, env, a0, a1, a2)
		})
	}
}

// args adapts interpreter terms to engine.Args. Successful unifications
// extend env, which becomes the environment of the continuation.
type args struct {
	env   *plengine.Env
	terms []plengine.Term
}

func (a *args) Arity() int {
	return len(a.terms)
}

func (a *args) Text(i int) (string, bool) {
	if i < 0 || i >= len(a.terms) {
		return "", false
	}
	return text(a.terms[i], a.env)
}

func (a *args) UnifyAtom(i int, name string) bool {
	if i < 0 || i >= len(a.terms) {
		return false
	}
	env, ok := a.env.Unify(a.terms[i], plengine.NewAtom(name))
	if !ok {
		return false
	}
	a.env = env
	return true
}

// text writes atoms, integers and module:name/arity indicators.
func text(t plengine.Term, env *plengine.Env) (string, bool) {
	switch t := env.Resolve(t).(type) {
	case plengine.Atom:
		return t.String(), true
	case plengine.Integer:
		return strconv.FormatInt(int64(t), 10), true
	case plengine.Compound:
		op := t.Functor().String()
		if t.Arity() != 2 || (op != "/" && op != ":") {
			return "", false
		}
		l, ok := text(t.Arg(0), env)
		if !ok {
			return "", false
		}
		r, ok := text(t.Arg(1), env)
		if !ok {
			return "", false
		}
		return l + op + r, true
	}
	return "", false
}
