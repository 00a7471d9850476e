package wasm

import (
	"github.com/tetratelabs/wazero/experimental"

	prologruntime "github.com/wippyai/prolog-runtime"
)

// memoryAllocator backs guest linear memory with host allocation
// functions. Missing slots fall back to the Go heap.
type memoryAllocator struct {
	alloc prologruntime.Allocator
}

var _ experimental.MemoryAllocator = memoryAllocator{}

func (m memoryAllocator) Allocate(capacity, max uint64) experimental.LinearMemory {
	mem := &linearMemory{alloc: m.alloc}
	if m.alloc.Allocate != nil {
		mem.buf = m.alloc.Allocate(capacity, max)
		mem.owned = mem.buf != nil
	}
	if mem.buf == nil {
		mem.buf = make([]byte, 0, capacity)
	}
	mem.buf = mem.buf[:0]
	return mem
}

// linearMemory is one guest memory. owned marks buffers that came from
// the host functions and must go back through Release.
type linearMemory struct {
	alloc prologruntime.Allocator
	buf   []byte
	owned bool
}

// Reallocate grows the memory to size bytes, keeping its contents.
func (l *linearMemory) Reallocate(size uint64) []byte {
	if size <= uint64(cap(l.buf)) {
		l.buf = l.buf[:size]
		return l.buf
	}
	if l.alloc.Reallocate != nil {
		buf := l.alloc.Reallocate(l.buf, size)
		if uint64(cap(buf)) < size {
			return nil
		}
		l.buf = buf[:size]
		l.owned = true
		return l.buf
	}
	buf := make([]byte, size)
	copy(buf, l.buf)
	l.release()
	l.buf = buf
	l.owned = false
	return l.buf
}

func (l *linearMemory) Free() {
	l.release()
	l.buf = nil
	l.owned = false
}

func (l *linearMemory) release() {
	if l.owned && l.alloc.Release != nil {
		l.alloc.Release(l.buf)
	}
}
