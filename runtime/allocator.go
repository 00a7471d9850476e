package runtime

import (
	"reflect"

	prologruntime "github.com/wippyai/prolog-runtime"
	"github.com/wippyai/prolog-runtime/errors"
)

// allocatorBridge holds the host allocator. A slot is fixed by the first
// function installed into it and never changes afterwards; installing a
// function with the same code again is accepted and keeps the fixed one.
type allocatorBridge struct {
	current prologruntime.Allocator
}

// install merges the set slots of candidate into the bridge. Nothing is
// changed when any slot conflicts.
func (b *allocatorBridge) install(candidate prologruntime.Allocator) error {
	switch {
	case conflicts(b.current.Allocate, candidate.Allocate):
		return errors.Conflict("allocate")
	case conflicts(b.current.Reallocate, candidate.Reallocate):
		return errors.Conflict("reallocate")
	case conflicts(b.current.Release, candidate.Release):
		return errors.Conflict("release")
	}

	fill(&b.current.Allocate, candidate.Allocate)
	fill(&b.current.Reallocate, candidate.Reallocate)
	fill(&b.current.Release, candidate.Release)
	return nil
}

// fill sets an empty slot.
func fill[F any](slot *F, fn F) {
	if reflect.ValueOf(*slot).IsNil() {
		*slot = fn
	}
}

func (b *allocatorBridge) allocator() prologruntime.Allocator {
	return b.current
}

// conflicts reports whether a fixed slot would be replaced by a different
// function. Functions compare by code pointer, so method values and
// closures sharing code but bound to different state compare equal.
func conflicts(fixed, candidate any) bool {
	fv, cv := reflect.ValueOf(fixed), reflect.ValueOf(candidate)
	if fv.IsNil() || cv.IsNil() {
		return false
	}
	return fv.Pointer() != cv.Pointer()
}
