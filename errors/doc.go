// Package errors provides structured error types for the prolog runtime.
//
// Errors are categorized by Phase (which lifecycle step failed) and Kind
// (error category). Use the Builder for structured construction:
//
//	err := errors.New(errors.PhaseInit, errors.KindInvalidConfiguration).
//		Path(argv...).
//		Detail("engine refused startup vector").
//		Build()
//
// Or the convenience constructors:
//
//	err := errors.AlreadyRunning(errors.PhaseConfig)
//	err := errors.Conflict("allocate")
//
// The package-level sentinels match on Kind regardless of phase:
//
//	if stderrors.Is(err, errors.ErrAlreadyRunning) { ... }
//
// Operating system failures (for example a missing helper file) are never
// wrapped; callers receive the *fs.PathError produced by the os package.
package errors
