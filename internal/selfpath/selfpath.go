// Package selfpath locates the shared object hosting the embedded engine by
// scanning the process memory-mapping listing.
//
// The engine loads its own image as a resource during startup and expects
// argv[0] to name that image. When the engine is linked into a shared
// object rather than the executable, the executable path is wrong and the
// object's real path has to be recovered from /proc/<pid>/maps.
package selfpath

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/procfs"
	"go.uber.org/zap"

	"github.com/wippyai/prolog-runtime/engine"
)

// DefaultProcRoot is where the mapping listings are mounted.
const DefaultProcRoot = procfs.DefaultMountPoint

// Location is the outcome of a lookup. When Resolved is false, Path holds
// the requested name unchanged and callers use it as a literal path.
type Location struct {
	Path     string
	Resolved bool
}

// Resolve looks up target in the mapping listing of the current process.
func Resolve(target string) Location {
	return ResolveFrom(DefaultProcRoot, os.Getpid(), target)
}

// ResolveFrom looks up target in <procRoot>/<pid>/maps. A missing or
// unreadable listing degrades to the literal target.
func ResolveFrom(procRoot string, pid int, target string) Location {
	fallback := Location{Path: target}
	if target == "" {
		return fallback
	}

	fs, err := procfs.NewFS(procRoot)
	if err != nil {
		engine.Logger().Debug("mapping listing unavailable", zap.String("root", procRoot), zap.Error(err))
		return fallback
	}
	proc, err := fs.Proc(pid)
	if err != nil {
		engine.Logger().Debug("process entry unavailable", zap.Int("pid", pid), zap.Error(err))
		return fallback
	}
	maps, err := proc.ProcMaps()
	if err != nil {
		engine.Logger().Debug("mapping listing unreadable", zap.Int("pid", pid), zap.Error(err))
		return fallback
	}

	for _, m := range maps {
		if matches(m.Pathname, target) {
			return Location{Path: m.Pathname, Resolved: true}
		}
	}
	return fallback
}

// matches anchors target on whole trailing path segments of pathname, so
// "libprolog.so" never matches "/usr/lib/mylibprolog.so".
func matches(pathname, target string) bool {
	if pathname == "" || !strings.HasPrefix(pathname, "/") {
		return false
	}
	if pathname == target {
		return true
	}
	if strings.Contains(target, "/") {
		return strings.HasSuffix(pathname, "/"+strings.TrimPrefix(target, "/"))
	}
	return filepath.Base(pathname) == target
}
