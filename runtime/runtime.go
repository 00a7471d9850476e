package runtime

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	prologruntime "github.com/wippyai/prolog-runtime"
	"github.com/wippyai/prolog-runtime/engine"
	"github.com/wippyai/prolog-runtime/errors"
	"github.com/wippyai/prolog-runtime/internal/argv"
	"github.com/wippyai/prolog-runtime/internal/selfpath"
	"github.com/wippyai/prolog-runtime/predicate"
	ptrace "github.com/wippyai/prolog-runtime/trace"
)

const (
	// DefaultLibrary is the shared object searched for in the mapping listing.
	DefaultLibrary = "libprolog.so"
	// DefaultHelperPath is the helper source loaded when no boot file is
	// given. When no file exists there the bundled helper is loaded.
	DefaultHelperPath = "/usr/share/prolog-runtime/libprolog.pl"
	// MaxPathLen bounds helper paths.
	MaxPathLen = 4096
)

const instrumentationName = "github.com/wippyai/prolog-runtime/runtime"

// InitOptions are the startup parameters of Init. Stack sizes are in
// kilobytes; zero selects the default of 16.
type InitOptions struct {
	// Identity names the caller. It is accepted for compatibility and ignored.
	Identity string

	LocalKB  int
	GlobalKB int
	TrailKB  int
	// ArgumentKB is accepted and ignored.
	ArgumentKB int

	// BootFile is a precompiled program loaded instead of the helper source.
	BootFile string
}

// Config holds configuration for runtime creation
type Config struct {
	// Library is the shared object name given to self-location.
	// Empty means DefaultLibrary.
	Library string

	// HelperPath is the initial helper source. Empty means DefaultHelperPath.
	HelperPath string

	// ProcRoot and PID select the mapping listing. Empty ProcRoot means
	// the procfs mount point; zero PID means the current process.
	ProcRoot string
	PID      int

	// TraceOutput receives trace command feedback. Nil discards it.
	TraceOutput io.Writer

	// Registerer receives lifecycle metrics. Nil keeps them unregistered.
	Registerer prometheus.Registerer

	// TracerProvider creates lifecycle spans. Nil uses the global provider.
	TracerProvider trace.TracerProvider
}

// Runtime manages the lifecycle of one embedded engine.
type Runtime struct {
	eng       engine.Engine
	cfg       Config
	tracker   *predicate.Tracker
	tracer    *ptrace.Tracer
	registrar *predicate.Registrar
	metrics   *metrics
	spans     trace.Tracer

	alloc       allocatorBridge
	helper      string
	self        selfpath.Location
	session     *session
	mu          sync.Mutex
	initialized bool
}

// New creates an uninitialized runtime driving eng.
func New(eng engine.Engine, cfg *Config) *Runtime {
	r := &Runtime{eng: eng}
	if cfg != nil {
		r.cfg = *cfg
	}
	if r.cfg.Library == "" {
		r.cfg.Library = DefaultLibrary
	}
	r.helper = r.cfg.HelperPath
	if r.helper == "" {
		r.helper = DefaultHelperPath
	}

	tp := r.cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	r.spans = tp.Tracer(instrumentationName)
	r.metrics = newMetrics(r.cfg.Registerer)

	r.tracker = predicate.NewTracker()
	r.tracer = ptrace.New(r.cfg.TraceOutput)
	r.registrar = predicate.NewRegistrar(r.tracker, r.tracer)
	return r
}

// Init starts the engine. Startup is all-or-nothing: on any failure the
// runtime is left uninitialized with nothing registered.
func (r *Runtime) Init(ctx context.Context, opts InitOptions) (err error) {
	ctx, span := r.spans.Start(ctx, "prolog.Init", trace.WithAttributes(
		attribute.String("prolog.boot_file", opts.BootFile),
		attribute.Int("prolog.local_kb", opts.LocalKB),
		attribute.Int("prolog.global_kb", opts.GlobalKB),
		attribute.Int("prolog.trail_kb", opts.TrailKB),
	))
	defer func() {
		r.metrics.inits.WithLabelValues(result(err)).Inc()
		endSpan(span, err)
	}()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return errors.AlreadyRunning(errors.PhaseInit)
	}

	r.tracker.Reset()

	if err := r.tracer.Init(); err != nil {
		return err
	}
	if err := r.registrar.RegisterAll(r.eng); err != nil {
		r.tracer.Exit()
		return err
	}

	if aware, ok := r.eng.(engine.AllocatorAware); ok {
		aware.UseAllocator(r.alloc.allocator())
	}

	r.self = r.locate()
	vector := argv.Build(r.self.Path, argv.Options{
		BootFile: opts.BootFile,
		LocalKB:  opts.LocalKB,
		GlobalKB: opts.GlobalKB,
		TrailKB:  opts.TrailKB,
	})
	span.SetAttributes(attribute.StringSlice("prolog.argv", vector))

	s, err := start(ctx, r.eng, vector)
	if err != nil {
		r.release()
		engine.Logger().Warn("engine refused startup", zap.Strings("argv", vector), zap.Error(err))
		return errors.InvalidConfiguration(vector, "engine refused the argument vector", err)
	}

	// a boot file carries the helper predicates itself
	if opts.BootFile == "" {
		if err := r.loadHelper(ctx); err != nil {
			s.close(ctx)
			r.release()
			engine.Logger().Warn("helper load failed", zap.String("helper", r.helper), zap.Error(err))
			return errors.InvalidConfiguration(vector, "load helper "+r.helper, err)
		}
	}

	r.session = s
	r.initialized = true
	r.metrics.up.Set(1)
	engine.Logger().Debug("engine initialized",
		zap.Strings("argv", vector),
		zap.Bool("self_resolved", r.self.Resolved))
	return nil
}

// Exit tears the engine down. It never fails and is a no-op when the
// runtime is not initialized.
func (r *Runtime) Exit(ctx context.Context) {
	ctx, span := r.spans.Start(ctx, "prolog.Exit")
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return
	}
	if r.eng.IsInitialised() {
		r.session.close(ctx)
	}
	r.session = nil
	r.release()
	r.initialized = false

	r.metrics.exits.Inc()
	r.metrics.up.Set(0)
	engine.Logger().Debug("engine exited")
}

// IsInitialized reports whether the engine is running.
func (r *Runtime) IsInitialized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.initialized
}

// SetHelper replaces the helper source loaded by Init. The path must
// exist; the error from checking it is returned unchanged and the previous
// path is kept.
func (r *Runtime) SetHelper(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return errors.AlreadyRunning(errors.PhaseConfig)
	}
	if len(path) > MaxPathLen {
		return &fs.PathError{Op: "stat", Path: path, Err: syscall.ENAMETOOLONG}
	}
	if _, err := os.Stat(path); err != nil {
		return err
	}
	r.helper = path
	return nil
}

// Helper returns the helper source path.
func (r *Runtime) Helper() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.helper
}

// SetAllocator installs host memory functions. Set slots of a are merged
// in; replacing a slot fixed earlier with a different function fails with
// a conflict and changes nothing.
//
// Functions are compared by code pointer. Method values of one method on
// different receivers, or closures of one literal over different state,
// count as the same function: installing one is accepted and the slot
// keeps the function fixed first.
func (r *Runtime) SetAllocator(a prologruntime.Allocator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return errors.AlreadyRunning(errors.PhaseAllocator)
	}
	return r.alloc.install(a)
}

// Self returns the engine image location used by the last Init.
func (r *Runtime) Self() selfpath.Location {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.self
}

// Load consults a source file in the running engine. The load fails when
// the file cannot be consulted or when errors were marked while loading.
func (r *Runtime) Load(ctx context.Context, path string) (err error) {
	ctx, span := r.spans.Start(ctx, "prolog.Load", trace.WithAttributes(attribute.String("prolog.path", path)))
	defer func() {
		r.metrics.loads.WithLabelValues(result(err)).Inc()
		endSpan(span, err)
	}()

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return errors.NotInitialized(errors.PhaseLoad, "engine")
	}
	return r.load(ctx, path)
}

func (r *Runtime) load(ctx context.Context, path string) error {
	return r.track(path, func() error { return r.eng.Consult(ctx, path) })
}

// loadHelper loads the helper source. The default path falls back to the
// bundled helper when nothing is installed there.
func (r *Runtime) loadHelper(ctx context.Context) error {
	if r.helper == DefaultHelperPath {
		if _, err := os.Stat(r.helper); stderrors.Is(err, fs.ErrNotExist) {
			engine.Logger().Debug("using bundled helper", zap.String("helper", r.helper))
			return r.track(r.helper, func() error { return r.consultBundled(ctx) })
		}
	}
	return r.load(ctx, r.helper)
}

// track runs consult as a load of path: error markers are cleared first
// and any marked while it runs fail the load.
func (r *Runtime) track(path string, consult func() error) error {
	r.tracker.ClearErrors()
	r.tracker.StartLoading()
	err := consult()
	r.tracker.DoneLoading()

	if err != nil {
		return errors.LoadFailed(path, err)
	}
	if r.tracker.HasErrors() {
		return errors.LoadFailed(path, fmt.Errorf("%d errors marked while loading", r.tracker.Errors()))
	}
	return nil
}

// Trace runs trace commands, for example "enable; lists:% on".
func (r *Runtime) Trace(commands string) error {
	return r.tracer.Set(commands)
}

// TraceShow writes the trace settings of pred, or all settings when pred
// is empty.
func (r *Runtime) TraceShow(w io.Writer, pred string) {
	r.tracer.Show(w, pred)
}

// Tracer exposes the tracing subsystem.
func (r *Runtime) Tracer() *ptrace.Tracer {
	return r.tracer
}

// Errors returns the number of errors marked since the last load started.
func (r *Runtime) Errors() int64 {
	return r.tracker.Errors()
}

func (r *Runtime) locate() selfpath.Location {
	if r.cfg.ProcRoot == "" && r.cfg.PID == 0 {
		return selfpath.Resolve(r.cfg.Library)
	}
	root := r.cfg.ProcRoot
	if root == "" {
		root = selfpath.DefaultProcRoot
	}
	pid := r.cfg.PID
	if pid == 0 {
		pid = os.Getpid()
	}
	return selfpath.ResolveFrom(root, pid, r.cfg.Library)
}

// release drops predicate registration, load tracking state and the
// tracer settings.
func (r *Runtime) release() {
	if r.registrar.Registered() {
		r.registrar.Release()
		engine.Logger().Debug("foreign predicates released", zap.String("module", predicate.Module))
	}
	r.tracker.Reset()
	r.tracer.Exit()
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
