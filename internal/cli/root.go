// Package cli implements the waittrace command line.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/coral-mesh/waittrace/pkg/version"
)

// NewRootCmd builds the full command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "waittrace",
		Short: "Track outstanding kernel waits in an emulated guest",
		Long: `waittrace correlates the entry and exit hooks of blocking kernel calls
(KeWaitForSingleObject, KeWaitForMultipleObjects, ...) so you can see, at any
moment, which waits are outstanding and how often events were signalled.

Hook hits recorded from the emulator can be replayed into the tracer and
inspected with the same "waittrace dump|clear" commands the debug monitor
exposes.`,
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default ~/.waittrace/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override log level (debug, info, warn, error)")

	rootCmd.AddCommand(newReplayCmd(opts))
	rootCmd.AddCommand(newShellCmd(opts))
	rootCmd.AddCommand(newHooksCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Get()
			cmd.Printf("waittrace version %s\n", info.Version)
			cmd.Printf("Git commit: %s\n", info.GitCommit)
			cmd.Printf("Build date: %s\n", info.BuildDate)
			cmd.Printf("Go version: %s\n", info.GoVersion)
		},
	}
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
