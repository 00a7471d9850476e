// Package prologruntime embeds a Prolog engine in a Go host and manages its
// lifecycle.
//
// A host starts the engine once, loads source files into it, and tears it
// down again. Startup locates the engine image, builds the engine's
// argument vector, registers host predicates and loads a helper source or
// a precompiled boot file.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	prologruntime/       Root package with the host Allocator override
//	├── runtime/         Init, Exit, Load and the process-wide default runtime
//	├── engine/          Engine contract, argument parsing and logging
//	│   ├── interp/      Pure Go interpreter backend
//	│   └── wasm/        wazero backend hosting a WebAssembly engine image
//	├── predicate/       Host predicates and load error tracking
//	├── trace/           Rule/predicate trace settings and commands
//	├── config/          TOML, YAML and environment configuration
//	├── errors/          Structured error types
//	└── cmd/plrun/       Command line runner and trace console
//
// # Quick Start
//
//	rt := runtime.New(interp.New(nil), &runtime.Config{HelperPath: "lib.pl"})
//	if err := rt.Init(ctx, runtime.InitOptions{GlobalKB: 64}); err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Exit(ctx)
//
//	if err := rt.Load(ctx, "app.pl"); err != nil {
//	    log.Fatal(err)
//	}
//
// Hosts that want a single engine per process use the package-level
// functions runtime.Init and runtime.Exit instead.
//
// # Thread Safety
//
// Runtime methods are safe for concurrent use; lifecycle operations are
// serialized. Engine backends are not, and are driven only through the
// runtime.
//
// # Memory
//
// An Allocator installed with SetAllocator is handed to backends that
// manage engine memory themselves. The wasm backend backs guest linear
// memory with it; the interpreter ignores it.
package prologruntime
