// Package predicate declares the foreign predicates the runtime exposes in
// the engine's libprolog module:
//
//	loading/0          succeeds while a source file is being loaded
//	mark_error/0       records a load-time error
//	clear_errors/0     forgets recorded errors
//	has_errors/0       succeeds when errors were recorded
//	trace_predicate/1  succeeds when the predicate is traced
//	trace_predicate/2  as above, unifying the predicate's trace mode
//	trace_config/3     unifies the format used at a trace port
//
// Every predicate is flagged engine.NonTraceable so the engine's tracer
// never traces the predicates it calls itself.
package predicate
