package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/prolog-runtime/config"
	"github.com/wippyai/prolog-runtime/engine"
	"github.com/wippyai/prolog-runtime/engine/interp"
	"github.com/wippyai/prolog-runtime/engine/wasm"
	"github.com/wippyai/prolog-runtime/errors"
	"github.com/wippyai/prolog-runtime/runtime"
)

// rootOptions holds global flags and the settings loaded from them.
type rootOptions struct {
	configPath string
	backend    string
	bootFile   string
	trace      string

	cfg    config.Config
	logger *zap.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "plrun",
		Short: "Run an embedded Prolog engine",
		Long: `plrun starts an embedded Prolog engine the way a host library does:
it locates the engine image, builds the startup argument vector, registers
the host predicates and loads the helper source or a boot file.

Settings come from --config (TOML or YAML), then PLRT_* environment
variables, then flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (.toml, .yaml)")
	cmd.PersistentFlags().StringVar(&opts.backend, "backend", "", "engine backend (interp|wasm)")
	cmd.PersistentFlags().StringVarP(&opts.bootFile, "boot", "x", "", "boot file loaded instead of the helper")
	cmd.PersistentFlags().StringVar(&opts.trace, "trace", "", "trace commands run after startup")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newCheckCommand(opts))
	cmd.AddCommand(newArgvCommand(opts))
	cmd.AddCommand(newLocateCommand(opts))
	cmd.AddCommand(newTraceCommand(opts))

	return cmd
}

func (o *rootOptions) load() error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.backend != "" {
		cfg.Backend = o.backend
	}
	if o.bootFile != "" {
		cfg.BootFile = o.bootFile
	}
	if o.trace != "" {
		cfg.Trace = o.trace
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := cfg.Logger()
	if err != nil {
		return err
	}
	engine.SetLogger(logger)

	o.cfg = cfg
	o.logger = logger
	return nil
}

// goalRunner is implemented by backends that can prove goals directly.
type goalRunner interface {
	Succeeds(goal string) (bool, error)
}

// newEngine builds the configured backend. Engine output goes to out.
func (o *rootOptions) newEngine(in io.Reader, out io.Writer) (engine.Engine, error) {
	switch o.cfg.Backend {
	case config.BackendInterp:
		return interp.New(&interp.Config{Stdin: in, Stdout: out}), nil
	case config.BackendWasm:
		wc := &wasm.Config{
			Stdout:           out,
			Stderr:           os.Stderr,
			MemoryLimitPages: o.cfg.MemoryLimitPages,
		}
		if o.cfg.Image != "" {
			image, err := os.ReadFile(o.cfg.Image)
			if err != nil {
				return nil, fmt.Errorf("read image: %w", err)
			}
			wc.Image = image
		}
		return wasm.New(wc), nil
	}
	return nil, errors.Unsupported(errors.PhaseConfig, "backend "+o.cfg.Backend)
}

// start creates a runtime over a fresh engine, initializes it and applies
// the configured trace commands.
func (o *rootOptions) start(cmd *cobra.Command) (*runtime.Runtime, engine.Engine, error) {
	eng, err := o.newEngine(cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		return nil, nil, err
	}
	rc := o.cfg.RuntimeConfig()
	rc.TraceOutput = cmd.ErrOrStderr()
	rt := runtime.New(eng, rc)

	if err := rt.Init(cmd.Context(), o.cfg.InitOptions()); err != nil {
		return nil, nil, err
	}
	if o.cfg.Trace != "" {
		if err := rt.Trace(o.cfg.Trace); err != nil {
			rt.Exit(cmd.Context())
			return nil, nil, err
		}
	}
	return rt, eng, nil
}
