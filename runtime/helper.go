package runtime

import (
	"context"
	_ "embed"
	"os"

	"github.com/wippyai/prolog-runtime/engine"
)

// bundledHelper is loaded in place of DefaultHelperPath when no file is
// installed there.
//
//go:embed libprolog.pl
var bundledHelper []byte

// BundledHelper returns a copy of the helper source shipped with the
// runtime.
func BundledHelper() []byte {
	return append([]byte(nil), bundledHelper...)
}

// consultBundled loads the bundled helper. Engines that only consult
// files get it through a temporary file.
func (r *Runtime) consultBundled(ctx context.Context) error {
	if sc, ok := r.eng.(engine.SourceConsulter); ok {
		return sc.ConsultSource(ctx, DefaultHelperPath, bundledHelper)
	}

	f, err := os.CreateTemp("", "libprolog-*.pl")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(bundledHelper); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return r.eng.Consult(ctx, f.Name())
}
