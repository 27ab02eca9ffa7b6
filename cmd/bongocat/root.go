package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bongocat/internal/apprun"
	"bongocat/internal/audit"
	"bongocat/internal/logging"
	"bongocat/internal/proclock"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	var configFlag string
	var watchFlag bool
	var toggleFlag bool

	rootCmd := &cobra.Command{
		Use:           "bongocat",
		Short:         "Bongo cat keyboard overlay",
		Long:          "bongocat renders an animated cat overlay that reacts to keyboard input.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if toggleFlag {
				stopped, err := toggleRunningInstance(cmd)
				if err != nil {
					return err
				}
				if stopped {
					return nil
				}
				// No instance found: toggle falls through to a normal start.
			}

			code := apprun.Run(cmd.Context(), apprun.Options{
				ConfigPath:  configFlag,
				WatchConfig: watchFlag,
				Version:     version,
			})
			if code != apprun.ExitOK {
				return fmt.Errorf("bongocat exited with status %d", code)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.Flags().BoolVarP(&watchFlag, "watch-config", "w", false, "Reload the configuration when the file changes")
	rootCmd.Flags().BoolVarP(&toggleFlag, "toggle", "t", false, "Stop a running instance, or start one if none is running")

	rootCmd.AddCommand(newConfigCommand(&configFlag))
	rootCmd.AddCommand(newJournalCommand())
	tolerateUnknownFlags(rootCmd)

	return rootCmd
}

// tolerateUnknownFlags makes every command in the tree parse past flags it
// does not recognize instead of aborting.
func tolerateUnknownFlags(cmd *cobra.Command) {
	cmd.FParseErrWhitelist.UnknownFlags = true
	for _, sub := range cmd.Commands() {
		tolerateUnknownFlags(sub)
	}
}

// executeRoot dispatches the command tree. The parser tolerates unknown
// flags, which also strips them before any RunE can see them, so the raw
// arguments are scanned up front and each unrecognized flag is warned about.
func executeRoot(cmd *cobra.Command, args []string) error {
	warnUnknownFlags(cmd, args)
	cmd.SetArgs(args)
	return cmd.Execute()
}

func warnUnknownFlags(root *cobra.Command, args []string) {
	cmd, flags, err := root.Find(args)
	if err != nil {
		cmd, flags = root, args
	}
	for _, arg := range flags {
		if arg == "--" {
			return
		}
		switch {
		case strings.HasPrefix(arg, "--"):
			name, _, _ := strings.Cut(arg[2:], "=")
			if name == "help" || name == "version" {
				continue
			}
			if cmd.LocalFlags().Lookup(name) == nil && cmd.InheritedFlags().Lookup(name) == nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: unknown option --%s ignored\n", name)
			}
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			for _, r := range arg[1:] {
				short := string(r)
				if short == "h" || short == "v" {
					continue
				}
				f := cmd.LocalFlags().ShorthandLookup(short)
				if f == nil {
					f = cmd.InheritedFlags().ShorthandLookup(short)
				}
				if f == nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: unknown option -%s ignored\n", short)
					continue
				}
				if f.Value.Type() != "bool" {
					// The rest of this token is the flag's value.
					break
				}
			}
		}
	}
}

// toggleRunningInstance stops the instance recorded in the PID file. It
// reports whether an instance was found and stopped.
func toggleRunningInstance(cmd *cobra.Command) (bool, error) {
	pid, running := proclock.FindRunning(proclock.DefaultPath)
	if !running {
		fmt.Fprintln(cmd.OutOrStdout(), "No running instance found, starting.")
		return false, nil
	}

	graceful, err := proclock.Stop(pid, proclock.DefaultGracePeriod)
	if err != nil {
		return false, fmt.Errorf("stop running instance (pid %d): %w", pid, err)
	}
	recordToggle(cmd, pid, graceful)
	if graceful {
		fmt.Fprintf(cmd.OutOrStdout(), "Stopped running instance (pid %d).\n", pid)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Instance (pid %d) did not exit in time and was killed.\n", pid)
	}
	return true, nil
}

// recordToggle journals the stop so `bongocat journal` shows who ended the
// session. Best effort: a missing journal is not a toggle failure.
func recordToggle(cmd *cobra.Command, pid int, graceful bool) {
	j, err := audit.Open(apprun.DefaultJournalPath(), "", logging.NewNop())
	if err != nil {
		return
	}
	defer j.Close()
	j.Record(cmd.Context(), audit.EventToggleStop,
		fmt.Sprintf("pid=%d graceful=%t", pid, graceful))
}
