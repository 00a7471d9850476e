package prologruntime

// AllocateFunc returns a buffer with zero length and at least capacity bytes
// of capacity. max is the largest length the buffer will ever be grown to.
type AllocateFunc func(capacity, max uint64) []byte

// ReallocateFunc grows buf to size bytes, returning nil when it cannot.
type ReallocateFunc func(buf []byte, size uint64) []byte

// ReleaseFunc returns a buffer obtained from AllocateFunc or ReallocateFunc.
type ReleaseFunc func(buf []byte)

// Allocator holds host-supplied memory management functions used by engine
// backends that manage their own memory. A nil slot keeps the backend default.
type Allocator struct {
	Allocate   AllocateFunc
	Reallocate ReallocateFunc
	Release    ReleaseFunc
}

// IsZero reports whether no slot is set.
func (a Allocator) IsZero() bool {
	return a.Allocate == nil && a.Reallocate == nil && a.Release == nil
}
