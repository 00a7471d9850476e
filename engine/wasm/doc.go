// Package wasm implements engine.Engine for engine images compiled to
// WebAssembly and hosted by wazero.
//
// # Image ABI
//
// The argument vector reaches the image as its WASI arguments. The image
// exports:
//
//	pl_initialise() i32                  start the engine, nonzero on success
//	pl_cleanup(status i32) i32           optional, called before the runtime closes
//	pl_alloc(size i32) i32               scratch buffer for host to guest copies
//	pl_consult(ptr, len i32) i32         load Prolog text
//	pl_term_text(term, buf, cap i32) i32 write an argument, returns its length
//	pl_unify_atom(term, ptr, len i32) i32
//	memory
//
// Only pl_initialise is mandatory. The others are needed by Consult and by
// foreign predicates that inspect their arguments.
//
// # Foreign Predicates
//
// Each module passed to RegisterExtensions becomes a host module whose
// exports are named "name/arity". The image imports them with the signature
// (term i32, arity i32, ctx i32) -> i32, where term is the handle of the
// first argument and the following arguments use consecutive handles.
//
// # Memory
//
// UseAllocator routes the image's linear memory through host functions via
// wazero's experimental memory allocator hook.
package wasm
