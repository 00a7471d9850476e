package wasm

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	prologruntime "github.com/wippyai/prolog-runtime"
	"github.com/wippyai/prolog-runtime/engine"
	"github.com/wippyai/prolog-runtime/errors"
)

// ModuleName is the instance name of the engine image.
const ModuleName = "prolog"

// Config holds configuration for engine creation
type Config struct {
	// Image is the compiled engine. When nil the image is read from argv[0].
	Image []byte

	Stdout io.Writer
	Stderr io.Writer

	// MemoryLimitPages caps guest memory in 64KB pages. 0 keeps the wazero default.
	MemoryLimitPages uint32
}

// Engine hosts a WebAssembly engine image.
type Engine struct {
	cfg     Config
	pending map[string][]engine.Extension
	order   []string
	alloc   prologruntime.Allocator

	runtime wazero.Runtime
	guest   guest
	opts    engine.Options
}

var _ engine.AllocatorAware = (*Engine)(nil)

// New creates an engine.
func New(cfg *Config) *Engine {
	e := &Engine{pending: make(map[string][]engine.Extension)}
	if cfg != nil {
		e.cfg = *cfg
	}
	return e
}

// RegisterExtensions queues exts as exports of a host module named module,
// replacing any table queued earlier for it.
func (e *Engine) RegisterExtensions(module string, exts []engine.Extension) error {
	if module == "" {
		return errors.InvalidInput(errors.PhaseRegister, "empty module name")
	}
	for _, ext := range exts {
		if ext.Name == "" || ext.Func == nil {
			return errors.InvalidInput(errors.PhaseRegister, fmt.Sprintf("incomplete extension %q in %s", ext.Indicator(), module))
		}
	}
	if _, ok := e.pending[module]; !ok {
		e.order = append(e.order, module)
	}
	e.pending[module] = append([]engine.Extension(nil), exts...)
	return nil
}

// UseAllocator backs guest memory with a. It applies from the next Initialise.
func (e *Engine) UseAllocator(a prologruntime.Allocator) {
	e.alloc = a
}

// Initialise compiles and instantiates the image with argv as its WASI
// arguments, then calls pl_initialise.
func (e *Engine) Initialise(ctx context.Context, argv []string) error {
	if e.runtime != nil {
		return errors.AlreadyRunning(errors.PhaseEngine)
	}
	opts, err := engine.ParseArgv(argv)
	if err != nil {
		return errors.Wrap(errors.PhaseEngine, errors.KindInvalidInput, err, "parse argument vector")
	}

	image := e.cfg.Image
	if image == nil {
		image, err = os.ReadFile(opts.Image)
		if err != nil {
			return errors.Wrap(errors.PhaseEngine, errors.KindLoadFailed, err, "read engine image")
		}
	}

	rcfg := wazero.NewRuntimeConfig()
	if e.cfg.MemoryLimitPages > 0 {
		rcfg = rcfg.WithMemoryLimitPages(e.cfg.MemoryLimitPages)
	}
	r := wazero.NewRuntimeWithConfig(ctx, rcfg)

	mod, err := e.start(ctx, r, image, argv)
	if err != nil {
		if cerr := r.Close(ctx); cerr != nil {
			engine.Logger().Warn("close runtime after failed start", zap.Error(cerr))
		}
		return err
	}
	e.runtime = r
	e.guest = guest{mod: mod}
	e.opts = opts

	if opts.BootFile != "" {
		if err := e.Consult(ctx, opts.BootFile); err != nil {
			_ = e.Cleanup(ctx)
			return errors.Wrap(errors.PhaseEngine, errors.KindLoadFailed, err, "load boot file")
		}
	}

	engine.Logger().Debug("wasm engine started",
		zap.String("image", opts.Image),
		zap.Strings("argv", argv),
		zap.Bool("host_allocator", !e.alloc.IsZero()))
	return nil
}

func (e *Engine) start(ctx context.Context, r wazero.Runtime, image []byte, argv []string) (api.Module, error) {
	if err := instantiateWASI(ctx, r); err != nil {
		return nil, errors.Wrap(errors.PhaseEngine, errors.KindLoadFailed, err, "instantiate WASI")
	}
	for _, module := range e.order {
		if _, err := e.hostModule(r, module).Instantiate(ctx); err != nil {
			return nil, errors.Registration(module, "*", 0, err)
		}
	}

	compiled, err := r.CompileModule(ctx, image)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseEngine, errors.KindLoadFailed, err, "compile engine image")
	}

	mcfg := wazero.NewModuleConfig().
		WithName(ModuleName).
		WithArgs(argv...).
		WithStartFunctions("_initialize")
	if e.cfg.Stdout != nil {
		mcfg = mcfg.WithStdout(e.cfg.Stdout)
	}
	if e.cfg.Stderr != nil {
		mcfg = mcfg.WithStderr(e.cfg.Stderr)
	}

	ictx := ctx
	if !e.alloc.IsZero() {
		ictx = experimental.WithMemoryAllocator(ctx, memoryAllocator{alloc: e.alloc})
	}
	mod, err := r.InstantiateModule(ictx, compiled, mcfg)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseEngine, errors.KindLoadFailed, err, "instantiate engine image")
	}

	ok, err := guest{mod: mod}.call(ctx, ExportInitialise)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseEngine, errors.KindInvalidConfiguration, err, "initialise engine")
	}
	if uint32(ok) == 0 {
		return nil, errors.New(errors.PhaseEngine, errors.KindInvalidConfiguration).
			Detail("%s rejected the argument vector", ExportInitialise).
			Value(argv).
			Build()
	}
	return mod, nil
}

// hostModule exports each extension of module as "name/arity".
func (e *Engine) hostModule(r wazero.Runtime, module string) wazero.HostModuleBuilder {
	builder := r.NewHostModuleBuilder(module)
	for _, ext := range e.pending[module] {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, caller api.Module, stack []uint64) {
				arity := int(int32(stack[1]))
				if arity != ext.Arity {
					stack[0] = 0
					return
				}
				a := &args{ctx: ctx, g: guest{mod: caller}, term: uint32(stack[0]), arity: arity}
				if ext.Func(a) {
					stack[0] = 1
				} else {
					stack[0] = 0
				}
			}), foreignParams, foreignResults).
			WithName(ext.Indicator()).
			Export(ext.Indicator())
	}
	return builder
}

// IsInitialised reports whether an image instance is live.
func (e *Engine) IsInitialised() bool {
	return e.runtime != nil
}

// Options returns the decoded argument vector of the live instance.
func (e *Engine) Options() engine.Options {
	return e.opts
}

// Consult copies the file into guest memory and calls pl_consult.
func (e *Engine) Consult(ctx context.Context, path string) error {
	if e.runtime == nil {
		return errors.NotInitialized(errors.PhaseLoad, "wasm engine")
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	ptr, err := e.guest.write(ctx, src)
	if err != nil {
		return fmt.Errorf("consult %s: %w", path, err)
	}
	ok, err := e.guest.call(ctx, ExportConsult, uint64(ptr), uint64(len(src)))
	if err != nil {
		return fmt.Errorf("consult %s: %w", path, err)
	}
	if uint32(ok) == 0 {
		return fmt.Errorf("consult %s: engine reported failure", path)
	}
	return nil
}

// Cleanup calls pl_cleanup when exported, closes the runtime and drops
// registered extensions.
func (e *Engine) Cleanup(ctx context.Context) error {
	e.pending = make(map[string][]engine.Extension)
	e.order = nil
	if e.runtime == nil {
		return nil
	}

	if e.guest.has(ExportCleanup) {
		if _, err := e.guest.call(ctx, ExportCleanup, 0); err != nil {
			engine.Logger().Warn("engine cleanup failed", zap.Error(err))
		}
	}
	err := e.runtime.Close(ctx)
	e.runtime = nil
	e.guest = guest{}
	e.opts = engine.Options{}
	return err
}

func instantiateWASI(ctx context.Context, r wazero.Runtime) error {
	builder := r.NewHostModuleBuilder(wasi_snapshot_preview1.ModuleName)
	wasi_snapshot_preview1.NewFunctionExporter().ExportFunctions(builder)
	_, err := builder.Instantiate(ctx)
	return err
}
