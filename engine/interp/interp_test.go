package interp

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wippyai/prolog-runtime/engine"
	"github.com/wippyai/prolog-runtime/errors"
)

func writeFile(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func baseArgv() []string {
	return []string{"libprolog.so", "-q", "-nosignals", "-tty", "-L16k", "-G16k", "-T16k"}
}

func TestInitialiseAndCleanup(t *testing.T) {
	ctx := context.Background()
	e := New(nil)

	if e.IsInitialised() {
		t.Fatal("fresh engine must not be initialised")
	}
	if err := e.Initialise(ctx, baseArgv()); err != nil {
		t.Fatalf("Initialise: %v", err)
	}
	if !e.IsInitialised() {
		t.Fatal("engine not initialised after Initialise")
	}
	if got := e.Options().LocalKB; got != 16 {
		t.Errorf("LocalKB = %d, want 16", got)
	}

	err := e.Initialise(ctx, baseArgv())
	if !stderrors.Is(err, errors.ErrAlreadyRunning) {
		t.Errorf("second Initialise error = %v, want already running", err)
	}

	if err := e.Cleanup(ctx); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if e.IsInitialised() {
		t.Fatal("engine still initialised after Cleanup")
	}
	if err := e.Initialise(ctx, baseArgv()); err != nil {
		t.Fatalf("Initialise after Cleanup: %v", err)
	}
}

func TestInitialiseRejectsArgv(t *testing.T) {
	e := New(nil)
	err := e.Initialise(context.Background(), []string{"libprolog.so", "-bogus"})
	if err == nil {
		t.Fatal("expected error for unknown option")
	}
	var rerr *errors.Error
	if !stderrors.As(err, &rerr) || rerr.Kind != errors.KindInvalidInput {
		t.Errorf("error = %v, want invalid input", err)
	}
	if e.IsInitialised() {
		t.Error("engine must stay down after a rejected argv")
	}
}

func TestForeignPredicates(t *testing.T) {
	ctx := context.Background()
	marks := 0
	exts := []engine.Extension{
		{Name: "mark", Arity: 0, Func: func(engine.Args) bool { marks++; return true }},
		{Name: "never", Arity: 0, Func: func(engine.Args) bool { return false }},
		{Name: "echo", Arity: 2, Func: func(a engine.Args) bool {
			s, ok := a.Text(0)
			return ok && a.UnifyAtom(1, s)
		}},
	}

	e := New(nil)
	if err := e.RegisterExtensions("libprolog", exts); err != nil {
		t.Fatalf("RegisterExtensions: %v", err)
	}
	if err := e.Initialise(ctx, baseArgv()); err != nil {
		t.Fatalf("Initialise: %v", err)
	}

	tests := []struct {
		goal string
		want bool
	}{
		{goal: "mark", want: true},
		{goal: "never", want: false},
		{goal: "echo(foo, foo)", want: true},
		{goal: "echo(foo, bar)", want: false},
		{goal: "echo(append/3, X), X == 'append/3'", want: true},
		{goal: "echo(42, X), X == '42'", want: true},
		{goal: "echo(f(x), _)", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.goal, func(t *testing.T) {
			got, err := e.Succeeds(tt.goal)
			if err != nil {
				t.Fatalf("Succeeds(%q): %v", tt.goal, err)
			}
			if got != tt.want {
				t.Errorf("Succeeds(%q) = %v, want %v", tt.goal, got, tt.want)
			}
		})
	}
	if marks != 1 {
		t.Errorf("mark called %d times, want 1", marks)
	}
}

func TestSucceedsPeriod(t *testing.T) {
	e := New(nil)
	yes := []engine.Extension{{Name: "yes", Arity: 0, Func: func(engine.Args) bool { return true }}}
	if err := e.RegisterExtensions("libprolog", yes); err != nil {
		t.Fatalf("RegisterExtensions: %v", err)
	}
	if err := e.Initialise(context.Background(), baseArgv()); err != nil {
		t.Fatalf("Initialise: %v", err)
	}

	tests := []struct {
		goal string
		want bool
	}{
		{goal: "yes", want: true},
		{goal: "yes.", want: true},
		{goal: "  yes .\n", want: true},
		{goal: "\\+ yes", want: false},
		{goal: "X = 1.5, X > 1", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.goal, func(t *testing.T) {
			got, err := e.Succeeds(tt.goal)
			if err != nil {
				t.Fatalf("Succeeds(%q): %v", tt.goal, err)
			}
			if got != tt.want {
				t.Errorf("Succeeds(%q) = %v, want %v", tt.goal, got, tt.want)
			}
		})
	}
}

func TestRegisterExtensionsValidates(t *testing.T) {
	ok := func(engine.Args) bool { return true }
	tests := []struct {
		name string
		ext  engine.Extension
		kind errors.Kind
	}{
		{name: "no name", ext: engine.Extension{Arity: 0, Func: ok}, kind: errors.KindInvalidInput},
		{name: "no func", ext: engine.Extension{Name: "p", Arity: 0}, kind: errors.KindInvalidInput},
		{name: "arity too large", ext: engine.Extension{Name: "p", Arity: MaxArity + 1, Func: ok}, kind: errors.KindUnsupported},
		{name: "negative arity", ext: engine.Extension{Name: "p", Arity: -1, Func: ok}, kind: errors.KindUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(nil).RegisterExtensions("libprolog", []engine.Extension{tt.ext})
			var rerr *errors.Error
			if !stderrors.As(err, &rerr) || rerr.Kind != tt.kind {
				t.Errorf("RegisterExtensions error = %v, want kind %s", err, tt.kind)
			}
		})
	}
}

func TestCleanupDropsExtensions(t *testing.T) {
	ctx := context.Background()
	e := New(nil)
	exts := []engine.Extension{{Name: "ping", Arity: 0, Func: func(engine.Args) bool { return true }}}
	if err := e.RegisterExtensions("libprolog", exts); err != nil {
		t.Fatal(err)
	}
	if err := e.Initialise(ctx, baseArgv()); err != nil {
		t.Fatal(err)
	}
	if ok, err := e.Succeeds("ping"); err != nil || !ok {
		t.Fatalf("ping before cleanup = %v, %v", ok, err)
	}
	_ = e.Cleanup(ctx)

	if err := e.Initialise(ctx, baseArgv()); err != nil {
		t.Fatal(err)
	}
	// unknown procedures raise existence errors
	if ok, _ := e.Succeeds("ping"); ok {
		t.Error("ping survived Cleanup")
	}
}

func TestConsult(t *testing.T) {
	ctx := context.Background()
	e := New(nil)

	src := writeFile(t, "facts.pl", "parent(tom, bob).\nparent(bob, ann).\ngrand(X, Z) :- parent(X, Y), parent(Y, Z).\n")

	if err := e.Consult(ctx, src); !stderrors.Is(err, errors.ErrNotInitialized) {
		t.Fatalf("Consult before Initialise error = %v, want not initialized", err)
	}
	if err := e.Initialise(ctx, baseArgv()); err != nil {
		t.Fatal(err)
	}
	if err := e.Consult(ctx, src); err != nil {
		t.Fatalf("Consult: %v", err)
	}
	ok, err := e.Succeeds("grand(tom, ann)")
	if err != nil || !ok {
		t.Errorf("grand(tom, ann) = %v, %v", ok, err)
	}

	missing := filepath.Join(t.TempDir(), "missing.pl")
	if err := e.Consult(ctx, missing); !stderrors.Is(err, os.ErrNotExist) {
		t.Errorf("Consult missing error = %v, want not exist", err)
	}
}

func TestBootFile(t *testing.T) {
	ctx := context.Background()
	boot := writeFile(t, "boot.pl", "booted.\n")

	e := New(nil)
	argv := append([]string{"libprolog.so", "-x", boot}, baseArgv()[1:]...)
	if err := e.Initialise(ctx, argv); err != nil {
		t.Fatalf("Initialise: %v", err)
	}
	if got := e.Options().BootFile; got != boot {
		t.Errorf("BootFile = %q, want %q", got, boot)
	}
	if ok, err := e.Succeeds("booted"); err != nil || !ok {
		t.Errorf("booted = %v, %v", ok, err)
	}

	bad := New(nil)
	argv = []string{"libprolog.so", "-x", filepath.Join(t.TempDir(), "none.prc")}
	err := bad.Initialise(ctx, argv)
	var rerr *errors.Error
	if !stderrors.As(err, &rerr) || rerr.Kind != errors.KindLoadFailed {
		t.Errorf("missing boot error = %v, want load failed", err)
	}
	if bad.IsInitialised() {
		t.Error("engine live after failed boot")
	}
}

func TestConsultSource(t *testing.T) {
	ctx := context.Background()
	e := New(nil)
	if err := e.ConsultSource(ctx, "facts", []byte("fact(1).\n")); !stderrors.Is(err, errors.ErrNotInitialized) {
		t.Fatalf("ConsultSource before Initialise = %v, want not initialized", err)
	}
	if err := e.Initialise(ctx, baseArgv()); err != nil {
		t.Fatalf("Initialise: %v", err)
	}
	if err := e.ConsultSource(ctx, "facts", []byte("fact(1).\n")); err != nil {
		t.Fatalf("ConsultSource: %v", err)
	}
	if ok, err := e.Succeeds("fact(1)"); err != nil || !ok {
		t.Errorf("fact(1) = %v, %v", ok, err)
	}
	err := e.ConsultSource(ctx, "broken", []byte("fact(\n"))
	if err == nil || !strings.Contains(err.Error(), "broken") {
		t.Errorf("ConsultSource(broken) = %v, want error naming the source", err)
	}
}
