// Package runtime manages the lifecycle of an embedded logic engine.
//
// # Quick Start
//
//	rt := runtime.New(interp.New(nil), nil)
//	if err := rt.SetHelper("/opt/app/helper.pl"); err != nil {
//	    log.Fatal(err)
//	}
//	if err := rt.Init(ctx, runtime.InitOptions{GlobalKB: 32}); err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Exit(ctx)
//
//	if err := rt.Load(ctx, "rules.pl"); err != nil {
//	    log.Fatal(err)
//	}
//
// The package-level Init, Exit, SetHelper, SetAllocator and IsInitialized
// functions operate on Default().
//
// # Lifecycle
//
// A Runtime is either uninitialized or initialized. Init performs, in order:
//
//  1. clear load-time error markers
//  2. activate the tracing subsystem
//  3. register the foreign predicates of package predicate
//  4. locate the engine image and build the argument vector
//  5. start the engine
//  6. load the helper source unless a boot file was given
//
// Any failure after step 2 undoes the earlier steps, so a failed Init
// leaves the runtime exactly as it was. Exit reverses Init and never fails.
//
// SetHelper and SetAllocator are only accepted while uninitialized.
//
// # Errors
//
// Lifecycle errors are *errors.Error values matching the sentinels
// errors.ErrAlreadyRunning, errors.ErrInvalidConfiguration and
// errors.ErrConflict. SetHelper returns OS errors unchanged.
//
// # Observability
//
// Init, Exit and Load run in OpenTelemetry spans. When Config.Registerer is
// set, the runtime exports:
//
//	prolog_runtime_init_total{result}  init attempts by outcome
//	prolog_runtime_exit_total          teardowns
//	prolog_runtime_initialized         1 while initialized
//	prolog_runtime_load_total{result}  Load calls by outcome
package runtime
