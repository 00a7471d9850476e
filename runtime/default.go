package runtime

import (
	"context"
	"sync"

	prologruntime "github.com/wippyai/prolog-runtime"
	"github.com/wippyai/prolog-runtime/engine/interp"
)

var (
	defaultRuntime *Runtime
	defaultOnce    sync.Once
)

// Default returns the process-wide runtime. It drives the pure Go
// interpreter and is created on first use.
func Default() *Runtime {
	defaultOnce.Do(func() {
		defaultRuntime = New(interp.New(nil), nil)
	})
	return defaultRuntime
}

// Init starts the process-wide engine.
func Init(ctx context.Context, opts InitOptions) error {
	return Default().Init(ctx, opts)
}

// Exit tears the process-wide engine down.
func Exit(ctx context.Context) {
	Default().Exit(ctx)
}

// SetHelper sets the helper source of the process-wide runtime.
func SetHelper(path string) error {
	return Default().SetHelper(path)
}

// SetAllocator installs host memory functions in the process-wide runtime.
func SetAllocator(a prologruntime.Allocator) error {
	return Default().SetAllocator(a)
}

// IsInitialized reports whether the process-wide engine is running.
func IsInitialized() bool {
	return Default().IsInitialized()
}
