package predicate

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/prolog-runtime/engine"
)

// Tracker records load-time errors reported by source files through
// mark_error/0, and whether a load is in progress.
type Tracker struct {
	loading atomic.Int64
	errors  atomic.Int64
}

// NewTracker creates a tracker with no load in progress and no errors.
func NewTracker() *Tracker {
	return &Tracker{}
}

// StartLoading marks the beginning of a file load.
func (t *Tracker) StartLoading() {
	t.loading.Add(1)
}

// DoneLoading marks the end of a file load.
func (t *Tracker) DoneLoading() {
	if t.loading.Add(-1) < 0 {
		engine.Logger().Error("unbalanced load tracking", zap.Int64("loading", t.loading.Load()))
		t.loading.Store(0)
	}
}

// Loading reports whether a file load is in progress.
func (t *Tracker) Loading() bool {
	return t.loading.Load() > 0
}

// MarkError records one error.
func (t *Tracker) MarkError() {
	t.errors.Add(1)
}

// ClearErrors forgets all recorded errors.
func (t *Tracker) ClearErrors() {
	t.errors.Store(0)
}

// HasErrors reports whether errors were recorded since the last clear.
func (t *Tracker) HasErrors() bool {
	return t.errors.Load() > 0
}

// Errors returns the number of recorded errors.
func (t *Tracker) Errors() int64 {
	return t.errors.Load()
}

// Reset clears errors and the loading state.
func (t *Tracker) Reset() {
	t.loading.Store(0)
	t.errors.Store(0)
}
