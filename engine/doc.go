// Package engine defines the contract between the lifecycle controller and
// an embedded logic engine.
//
// # Backends
//
// Two backends implement Engine:
//
//	engine/interp - pure Go Prolog interpreter, foreign predicates bound natively
//	engine/wasm   - engine image compiled to WebAssembly, hosted by wazero
//
// # Call Order
//
//  1. RegisterExtensions() declares foreign predicates per module
//  2. UseAllocator() hands host memory functions to AllocatorAware engines
//  3. Initialise() starts the engine with a complete argument vector
//  4. Consult() loads source files into the live engine
//  5. Cleanup() stops the engine and drops registered extensions
//
// # Argument Vector
//
// argv[0] names the engine's own image. Options understood by the
// bundled backends:
//
//	-x <file>    boot from a precompiled program instead of the helper source
//	-q           no startup banners
//	-nosignals   leave signal handling to the host
//	-tty         no controlling terminal
//	-L<N>k       local stack size in kilobytes
//	-G<N>k       global stack size in kilobytes
//	-T<N>k       trail stack size in kilobytes
//	-A<N>k       argument stack size in kilobytes
//
// # Foreign Predicates
//
// An Extension binds name/arity to a Foreign function. Foreign functions
// see their arguments through Args, which exposes only what predicates of
// this runtime need: the written form of an argument and atom unification.
//
// # Thread Safety
//
// Engines are not safe for concurrent use. One caller owns the lifecycle.
package engine
