package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/waittrace/internal/config"
	"github.com/coral-mesh/waittrace/internal/console"
	"github.com/coral-mesh/waittrace/internal/replay"
)

func newShellCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shell [trace.yaml]...",
		Short: "Open the debug console",
		Long: `Open an interactive debug console with the tracer command registered.

Any traces given are replayed first, so the console starts with their
outstanding waits and counters loaded.

Commands:
  waittrace [dump|clear]   Dump or clear the tracer state
  help                     List commands
  exit                     Leave the console`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The console prints command results itself.
			p, err := newPipeline(opts, io.Discard, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			for _, path := range args {
				trace, err := replay.Load(path)
				if err != nil {
					return err
				}
				if _, err := p.runner.Run(ctx, trace); err != nil {
					return fmt.Errorf("failed to replay %s: %w", path, err)
				}
			}

			registry := console.NewRegistry()
			name := p.tracer.CommandName()
			if err := registry.Register(name, "[dump|clear]", p.tracer.RunCommand); err != nil {
				return fmt.Errorf("failed to register %s command: %w", name, err)
			}
			defer registry.Unregister(name)

			shell := console.NewShell(p.logger, registry, console.ShellConfig{
				Prompt:      p.cfg.Console.Prompt,
				HistoryFile: config.ExpandHome(p.cfg.Console.HistoryFile),
				Stdout:      cmd.OutOrStdout(),
			})
			return shell.Run(ctx)
		},
	}

	return cmd
}
