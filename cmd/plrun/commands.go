package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wippyai/prolog-runtime/errors"
	"github.com/wippyai/prolog-runtime/internal/argv"
	"github.com/wippyai/prolog-runtime/internal/selfpath"
)

func newRunCommand(opts *rootOptions) *cobra.Command {
	var goals []string

	cmd := &cobra.Command{
		Use:   "run [file...]",
		Short: "Start the engine, load files and prove goals",
		Long: `Start the engine, load each file in order and prove each --goal.

Examples:
  plrun run app.pl
  plrun run facts.pl --goal 'member(X, [a,b])'
  plrun --backend wasm -c plrt.toml run app.pl`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, eng, err := opts.start(cmd)
			if err != nil {
				return err
			}
			defer rt.Exit(cmd.Context())

			for _, path := range args {
				if err := rt.Load(cmd.Context(), path); err != nil {
					return err
				}
			}
			if len(goals) == 0 {
				return nil
			}
			runner, ok := eng.(goalRunner)
			if !ok {
				return errors.Unsupported(errors.PhaseEngine, "goals on the "+opts.cfg.Backend+" backend")
			}
			for _, goal := range goals {
				ok, err := runner.Succeeds(goal)
				if err != nil {
					return fmt.Errorf("goal %s: %w", goal, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", goal, yesNo(ok))
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&goals, "goal", "g", nil, "goal to prove after loading (repeatable)")
	return cmd
}

func newCheckCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check file...",
		Short: "Load each file and report the ones that fail",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, _, err := opts.start(cmd)
			if err != nil {
				return err
			}
			defer rt.Exit(cmd.Context())

			failed := 0
			for _, path := range args {
				if err := rt.Load(cmd.Context(), path); err != nil {
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s: %v\n", path, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ok   %s\n", path)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(args))
			}
			return nil
		},
	}
}

func newArgvCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "argv",
		Short: "Print the startup argument vector",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc := opts.locate()
			for _, arg := range argv.Build(loc.Path, argv.Options{
				BootFile: opts.cfg.BootFile,
				LocalKB:  opts.cfg.LocalKB,
				GlobalKB: opts.cfg.GlobalKB,
				TrailKB:  opts.cfg.TrailKB,
			}) {
				fmt.Fprintln(cmd.OutOrStdout(), arg)
			}
			return nil
		},
	}
}

func newLocateCommand(opts *rootOptions) *cobra.Command {
	var pid int

	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Find the engine library in a process mapping listing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc := opts.locateIn(pid)
			status := "resolved"
			if !loc.Resolved {
				status = "literal"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", loc.Path, status)
			return nil
		},
	}

	cmd.Flags().IntVar(&pid, "pid", 0, "process to inspect (default: this one)")
	return cmd
}

func (o *rootOptions) locate() selfpath.Location {
	return o.locateIn(0)
}

func (o *rootOptions) locateIn(pid int) selfpath.Location {
	root := o.cfg.ProcRoot
	if root == "" {
		root = selfpath.DefaultProcRoot
	}
	if pid == 0 {
		pid = os.Getpid()
	}
	return selfpath.ResolveFrom(root, pid, o.cfg.Library)
}

func yesNo(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}
