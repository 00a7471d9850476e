package wasm

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
)

// Guest exports of an engine image.
const (
	ExportInitialise = "pl_initialise" // () -> i32, nonzero on success
	ExportCleanup    = "pl_cleanup"    // (status i32) -> i32
	ExportAlloc      = "pl_alloc"      // (size i32) -> ptr i32, scratch valid until the next host call
	ExportConsult    = "pl_consult"    // (ptr, len i32) -> i32, nonzero on success
	ExportTermText   = "pl_term_text"  // (term, buf, cap i32) -> len i32, negative when not writable
	ExportUnifyAtom  = "pl_unify_atom" // (term, ptr, len i32) -> i32, nonzero on success
)

// MaxTextLen bounds the written form of a single predicate argument.
const MaxTextLen = 1024

// foreignParams is the signature of every foreign predicate import:
// (first term handle, arity, call context) -> success flag.
var (
	foreignParams  = []api.ValueType{api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32}
	foreignResults = []api.ValueType{api.ValueTypeI32}
)

// guest wraps the exported functions of an instantiated image.
type guest struct {
	mod api.Module
}

func (g guest) call(ctx context.Context, name string, params ...uint64) (uint64, error) {
	fn := g.mod.ExportedFunction(name)
	if fn == nil {
		return 0, fmt.Errorf("image does not export %s", name)
	}
	res, err := fn.Call(ctx, params...)
	if err != nil {
		return 0, fmt.Errorf("call %s: %w", name, err)
	}
	if len(res) == 0 {
		return 0, nil
	}
	return res[0], nil
}

func (g guest) has(name string) bool {
	return g.mod.ExportedFunction(name) != nil
}

// write copies data into a guest scratch buffer and returns its address.
func (g guest) write(ctx context.Context, data []byte) (uint32, error) {
	ptr, err := g.call(ctx, ExportAlloc, uint64(len(data)))
	if err != nil {
		return 0, err
	}
	if !g.mod.Memory().Write(uint32(ptr), data) {
		return 0, fmt.Errorf("scratch buffer at %#x out of range for %d bytes", uint32(ptr), len(data))
	}
	return uint32(ptr), nil
}

// args adapts one foreign call to engine.Args.
type args struct {
	ctx   context.Context
	g     guest
	term  uint32
	arity int
}

func (a *args) Arity() int {
	return a.arity
}

func (a *args) Text(i int) (string, bool) {
	if i < 0 || i >= a.arity {
		return "", false
	}
	buf, err := a.g.call(a.ctx, ExportAlloc, MaxTextLen)
	if err != nil {
		return "", false
	}
	n, err := a.g.call(a.ctx, ExportTermText, uint64(a.term+uint32(i)), buf, MaxTextLen)
	if err != nil || int32(n) < 0 || n > MaxTextLen {
		return "", false
	}
	b, ok := a.g.mod.Memory().Read(uint32(buf), uint32(n))
	if !ok {
		return "", false
	}
	return string(b), true
}

func (a *args) UnifyAtom(i int, name string) bool {
	if i < 0 || i >= a.arity {
		return false
	}
	ptr, err := a.g.write(a.ctx, []byte(name))
	if err != nil {
		return false
	}
	ok, err := a.g.call(a.ctx, ExportUnifyAtom, uint64(a.term+uint32(i)), uint64(ptr), uint64(len(name)))
	return err == nil && uint32(ok) != 0
}
