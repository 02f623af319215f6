package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/waittrace/internal/replay"
)

func newReplayCmd(opts *globalOptions) *cobra.Command {
	var commands []string

	cmd := &cobra.Command{
		Use:   "replay <trace.yaml>...",
		Short: "Replay recorded hook hits into the tracer",
		Long: `Replay one or more recorded traces through the configured hooks, then run
tracer commands against the resulting state.

Traces are replayed in order into a single tracer, so waits entered in one
trace can be matched by exits in a later one.

Examples:
  waittrace replay boot.yaml
  waittrace replay boot.yaml --command dump --command clear --command dump`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPipeline(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			for _, path := range args {
				trace, err := replay.Load(path)
				if err != nil {
					return err
				}
				res, err := p.runner.Run(cmd.Context(), trace)
				if err != nil {
					return fmt.Errorf("failed to replay %s: %w", path, err)
				}
				p.logger.Debug().
					Str("trace", path).
					Int("instrumented", res.Instrumented).
					Msg("Trace loaded")
			}

			stats := p.dispatcher.Stats()
			p.logger.Debug().
				Int("instrumented", stats.Instrumented).
				Uint64("fired", stats.Fired).
				Uint64("dropped", stats.Dropped).
				Msg("Dispatcher stats")

			for _, c := range commands {
				p.tracer.RunCommand(c)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&commands, "command", []string{"dump"}, "Tracer command to run after replay (repeatable)")

	return cmd
}
