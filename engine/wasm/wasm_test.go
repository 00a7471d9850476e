package wasm

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	prologruntime "github.com/wippyai/prolog-runtime"
	"github.com/wippyai/prolog-runtime/engine"
	"github.com/wippyai/prolog-runtime/errors"
)

// Hand-assembled images. Each helper returns a complete binary module.

const (
	i32 = 0x7f

	opEnd      = 0x0b
	opCall     = 0x10
	opI32Const = 0x41
)

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

func sleb(v int32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func name(s string) []byte {
	return append(uleb(uint32(len(s))), s...)
}

func vec(entries ...[]byte) []byte {
	out := uleb(uint32(len(entries)))
	for _, e := range entries {
		out = append(out, e...)
	}
	return out
}

func section(id byte, payload []byte) []byte {
	out := []byte{id}
	out = append(out, uleb(uint32(len(payload)))...)
	return append(out, payload...)
}

func functype(params, results int) []byte {
	out := []byte{0x60}
	out = append(out, uleb(uint32(params))...)
	for i := 0; i < params; i++ {
		out = append(out, i32)
	}
	out = append(out, uleb(uint32(results))...)
	for i := 0; i < results; i++ {
		out = append(out, i32)
	}
	return out
}

func body(code ...byte) []byte {
	b := append([]byte{0x00}, code...) // no locals
	b = append(b, opEnd)
	return append(uleb(uint32(len(b))), b...)
}

func constI32(v int32) []byte {
	return append([]byte{opI32Const}, sleb(v)...)
}

func export(n string, kind byte, idx uint32) []byte {
	out := name(n)
	out = append(out, kind)
	return append(out, uleb(idx)...)
}

type fn struct {
	export string
	typ    uint32
	code   []byte
}

type imageSpec struct {
	imports []string // libprolog functions of type 2
	funcs   []fn
	memory  bool
	data    []byte // placed at dataOffset
}

const (
	typeNullary = 0 // () -> i32
	typeUnary   = 1 // (i32) -> i32
	typeForeign = 2 // (i32, i32, i32) -> i32
	typeBinary  = 3 // (i32, i32) -> i32

	scratch    = 1024
	dataOffset = 2048
)

func assemble(s imageSpec) []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	out = append(out, section(1, vec(functype(0, 1), functype(1, 1), functype(3, 1), functype(2, 1)))...)

	if len(s.imports) > 0 {
		var imps [][]byte
		for _, imp := range s.imports {
			e := append(name(predModule), name(imp)...)
			e = append(e, 0x00)
			e = append(e, uleb(typeForeign)...)
			imps = append(imps, e)
		}
		out = append(out, section(2, vec(imps...))...)
	}

	var types, exports, bodies [][]byte
	base := uint32(len(s.imports))
	for i, f := range s.funcs {
		types = append(types, uleb(f.typ))
		exports = append(exports, export(f.export, 0x00, base+uint32(i)))
		bodies = append(bodies, body(f.code...))
	}
	out = append(out, section(3, vec(types...))...)
	if s.memory {
		out = append(out, section(5, vec([]byte{0x00, 0x01}))...)
		exports = append(exports, export("memory", 0x02, 0))
	}
	out = append(out, section(7, vec(exports...))...)
	out = append(out, section(10, vec(bodies...))...)
	if s.data != nil {
		seg := []byte{0x00}
		seg = append(seg, constI32(dataOffset)...)
		seg = append(seg, opEnd)
		seg = append(seg, uleb(uint32(len(s.data)))...)
		seg = append(seg, s.data...)
		out = append(out, section(11, vec(seg))...)
	}
	return out
}

const predModule = "libprolog"

func initialiseReturning(v int32) fn {
	return fn{export: ExportInitialise, typ: typeNullary, code: constI32(v)}
}

func argv() []string {
	return []string{"libprolog.wasm", "-q", "-nosignals", "-tty", "-L16k", "-G16k", "-T16k"}
}

func TestInitialiseAndCleanup(t *testing.T) {
	ctx := context.Background()
	img := assemble(imageSpec{funcs: []fn{
		initialiseReturning(1),
		{export: ExportCleanup, typ: typeUnary, code: constI32(1)},
	}})

	e := New(&Config{Image: img})
	if e.IsInitialised() {
		t.Fatal("fresh engine must not be initialised")
	}
	if err := e.Initialise(ctx, argv()); err != nil {
		t.Fatalf("Initialise: %v", err)
	}
	if !e.IsInitialised() {
		t.Fatal("engine not initialised")
	}
	if got := e.Options().GlobalKB; got != 16 {
		t.Errorf("GlobalKB = %d, want 16", got)
	}
	if err := e.Initialise(ctx, argv()); !stderrors.Is(err, errors.ErrAlreadyRunning) {
		t.Errorf("second Initialise error = %v, want already running", err)
	}
	if err := e.Cleanup(ctx); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if e.IsInitialised() {
		t.Fatal("engine initialised after Cleanup")
	}
	if err := e.Initialise(ctx, argv()); err != nil {
		t.Fatalf("Initialise after Cleanup: %v", err)
	}
	_ = e.Cleanup(ctx)
}

func TestInitialiseFailures(t *testing.T) {
	tests := []struct {
		name  string
		image []byte
		argv  []string
		kind  errors.Kind
	}{
		{
			name:  "engine rejects",
			image: assemble(imageSpec{funcs: []fn{initialiseReturning(0)}}),
			argv:  argv(),
			kind:  errors.KindInvalidConfiguration,
		},
		{
			name:  "missing entry point",
			image: assemble(imageSpec{funcs: []fn{{export: "other", typ: typeNullary, code: constI32(1)}}}),
			argv:  argv(),
			kind:  errors.KindInvalidConfiguration,
		},
		{
			name:  "not wasm",
			image: []byte("not a module"),
			argv:  argv(),
			kind:  errors.KindLoadFailed,
		},
		{
			name:  "unresolved predicate import",
			image: assemble(imageSpec{imports: []string{"ping/0"}, funcs: []fn{initialiseReturning(1)}}),
			argv:  argv(),
			kind:  errors.KindLoadFailed,
		},
		{
			name:  "bad argv",
			image: assemble(imageSpec{funcs: []fn{initialiseReturning(1)}}),
			argv:  []string{"libprolog.wasm", "-L16"},
			kind:  errors.KindInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(&Config{Image: tt.image})
			err := e.Initialise(context.Background(), tt.argv)
			var rerr *errors.Error
			if !stderrors.As(err, &rerr) || rerr.Kind != tt.kind {
				t.Fatalf("Initialise error = %v, want kind %s", err, tt.kind)
			}
			if e.IsInitialised() {
				t.Error("engine live after failed Initialise")
			}
		})
	}
}

func TestImageFromArgv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "libprolog.wasm")
	img := assemble(imageSpec{funcs: []fn{initialiseReturning(1)}})
	if err := os.WriteFile(path, img, 0o600); err != nil {
		t.Fatal(err)
	}

	e := New(nil)
	if err := e.Initialise(context.Background(), []string{path, "-q"}); err != nil {
		t.Fatalf("Initialise: %v", err)
	}
	_ = e.Cleanup(context.Background())

	err := New(nil).Initialise(context.Background(), []string{filepath.Join(t.TempDir(), "none.wasm")})
	if !stderrors.Is(err, os.ErrNotExist) {
		t.Errorf("missing image error = %v, want not exist", err)
	}
}

// foreignImage calls libprolog:ping/2 from pl_initialise with term
// handle 7 and the given arity and returns its result.
func foreignImage(arity int32) []byte {
	call := append(append(append(constI32(7), constI32(arity)...), constI32(0)...), opCall, 0x00)
	return assemble(imageSpec{
		imports: []string{"ping/2"},
		memory:  true,
		data:    []byte("lists:append/3"),
		funcs: []fn{
			{export: ExportInitialise, typ: typeNullary, code: call},
			{export: ExportAlloc, typ: typeUnary, code: constI32(dataOffset)},
			{export: ExportTermText, typ: typeForeign, code: constI32(int32(len("lists:append/3")))},
			{export: ExportUnifyAtom, typ: typeForeign, code: constI32(1)},
		},
	})
}

func TestForeignPredicate(t *testing.T) {
	ctx := context.Background()
	var text string
	var unified bool
	var arity int
	ping := func(a engine.Args) bool {
		arity = a.Arity()
		text, _ = a.Text(0)
		unified = a.UnifyAtom(1, "on")
		return true
	}

	e := New(&Config{Image: foreignImage(2)})
	if err := e.RegisterExtensions(predModule, []engine.Extension{{Name: "ping", Arity: 2, Func: ping, Flags: engine.NonTraceable}}); err != nil {
		t.Fatalf("RegisterExtensions: %v", err)
	}
	if err := e.Initialise(ctx, argv()); err != nil {
		t.Fatalf("Initialise: %v", err)
	}
	defer e.Cleanup(ctx)

	if arity != 2 {
		t.Errorf("arity = %d, want 2", arity)
	}
	if text != "lists:append/3" {
		t.Errorf("Text(0) = %q", text)
	}
	if !unified {
		t.Error("UnifyAtom failed")
	}
	got, ok := e.guest.mod.Memory().Read(dataOffset, 2)
	if !ok || string(got) != "on" {
		t.Errorf("atom in guest memory = %q, want %q", got, "on")
	}
}

func TestForeignPredicateFailure(t *testing.T) {
	e := New(&Config{Image: foreignImage(2)})
	fail := func(engine.Args) bool { return false }
	if err := e.RegisterExtensions(predModule, []engine.Extension{{Name: "ping", Arity: 2, Func: fail}}); err != nil {
		t.Fatal(err)
	}
	err := e.Initialise(context.Background(), argv())
	if !stderrors.Is(err, errors.ErrInvalidConfiguration) {
		t.Errorf("Initialise error = %v, want invalid configuration", err)
	}
}

func TestForeignArityMismatch(t *testing.T) {
	called := false
	e := New(&Config{Image: foreignImage(3)})
	ping := func(engine.Args) bool { called = true; return true }
	if err := e.RegisterExtensions(predModule, []engine.Extension{{Name: "ping", Arity: 2, Func: ping}}); err != nil {
		t.Fatal(err)
	}
	err := e.Initialise(context.Background(), argv())
	if !stderrors.Is(err, errors.ErrInvalidConfiguration) {
		t.Errorf("Initialise error = %v, want invalid configuration", err)
	}
	if called {
		t.Error("ping/2 called with arity 3")
	}
}

func TestConsult(t *testing.T) {
	ctx := context.Background()
	img := assemble(imageSpec{
		memory: true,
		funcs: []fn{
			initialiseReturning(1),
			{export: ExportAlloc, typ: typeUnary, code: constI32(scratch)},
			{export: ExportConsult, typ: typeBinary, code: constI32(1)},
		},
	})
	src := "fact(a).\n"
	path := filepath.Join(t.TempDir(), "facts.pl")
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatal(err)
	}

	e := New(&Config{Image: img})
	if err := e.Consult(ctx, path); !stderrors.Is(err, errors.ErrNotInitialized) {
		t.Fatalf("Consult before Initialise = %v, want not initialized", err)
	}
	if err := e.Initialise(ctx, argv()); err != nil {
		t.Fatal(err)
	}
	defer e.Cleanup(ctx)

	if err := e.Consult(ctx, path); err != nil {
		t.Fatalf("Consult: %v", err)
	}
	got, ok := e.guest.mod.Memory().Read(scratch, uint32(len(src)))
	if !ok || string(got) != src {
		t.Errorf("guest received %q, want %q", got, src)
	}
}

func TestConsultRejected(t *testing.T) {
	ctx := context.Background()
	img := assemble(imageSpec{
		memory: true,
		funcs: []fn{
			initialiseReturning(1),
			{export: ExportAlloc, typ: typeUnary, code: constI32(scratch)},
			{export: ExportConsult, typ: typeBinary, code: constI32(0)},
		},
	})
	path := filepath.Join(t.TempDir(), "boot.prc")
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	e := New(&Config{Image: img})
	err := e.Initialise(ctx, []string{"libprolog.wasm", "-x", path, "-q"})
	var rerr *errors.Error
	if !stderrors.As(err, &rerr) || rerr.Kind != errors.KindLoadFailed {
		t.Fatalf("Initialise error = %v, want load failed", err)
	}
	if e.IsInitialised() {
		t.Error("engine live after rejected boot file")
	}
}

func TestHostAllocator(t *testing.T) {
	ctx := context.Background()
	var allocs int
	alloc := prologruntime.Allocator{
		Allocate: func(capacity, _ uint64) []byte {
			allocs++
			return make([]byte, 0, capacity)
		},
	}

	img := assemble(imageSpec{memory: true, funcs: []fn{initialiseReturning(1)}})
	e := New(&Config{Image: img})
	e.UseAllocator(alloc)
	if err := e.Initialise(ctx, argv()); err != nil {
		t.Fatalf("Initialise: %v", err)
	}
	if allocs == 0 {
		t.Error("guest memory not obtained from host allocator")
	}
	_ = e.Cleanup(ctx)
}

func TestLinearMemory(t *testing.T) {
	var released [][]byte
	a := prologruntime.Allocator{
		Allocate: func(capacity, _ uint64) []byte { return make([]byte, 0, capacity) },
		Release:  func(b []byte) { released = append(released, b) },
	}

	mem := memoryAllocator{alloc: a}.Allocate(8, 64)
	buf := mem.Reallocate(4)
	if len(buf) != 4 {
		t.Fatalf("len = %d, want 4", len(buf))
	}
	copy(buf, "abcd")

	buf = mem.Reallocate(16)
	if len(buf) != 16 || string(buf[:4]) != "abcd" {
		t.Fatalf("grown buffer = %q", buf)
	}
	if len(released) != 1 {
		t.Errorf("released %d buffers after heap growth, want 1", len(released))
	}

	// heap buffers never reach Release
	mem.Free()
	if len(released) != 1 {
		t.Errorf("released %d buffers after Free, want 1", len(released))
	}
}

func TestLinearMemoryHostReallocate(t *testing.T) {
	var sizes []uint64
	a := prologruntime.Allocator{
		Reallocate: func(b []byte, size uint64) []byte {
			sizes = append(sizes, size)
			if size > 32 {
				return nil
			}
			nb := make([]byte, size)
			copy(nb, b)
			return nb
		},
	}

	mem := memoryAllocator{alloc: a}.Allocate(0, 64)
	if buf := mem.Reallocate(16); len(buf) != 16 {
		t.Fatalf("len = %d, want 16", len(buf))
	}
	if buf := mem.Reallocate(48); buf != nil {
		t.Errorf("Reallocate past host limit = %d bytes, want nil", len(buf))
	}
	if len(sizes) != 2 {
		t.Errorf("host Reallocate called %d times, want 2", len(sizes))
	}
}
