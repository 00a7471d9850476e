// Package trace implements the predicate tracing configuration consulted by
// the engine's trace_predicate/1, trace_predicate/2 and trace_config/3.
//
// # Commands
//
// Set accepts a ';' separated list of commands:
//
//	enable | disable          global trace flag
//	reset                     drop every setting
//	show [pred]               print settings
//	indent N                  indentation per level, 0..7
//	<pred> <action>[, ...]    per predicate settings
//
// Actions are on, off, suppress, transitive, defaults and clear, or a port
// format "<port> <detailed|short|suppress>" where port is call, redo,
// proven (exit), failed (fail) or all. The predicate "*" toggles tracing
// of all predicates. Predicates containing '%' are patterns over
// module:name/arity where '%' stands for any component.
//
// # Example
//
//	tr := trace.New(os.Stdout)
//	tr.Init()
//	tr.Set("enable; user:parent/2 on, call short; user:%/% transitive")
package trace
