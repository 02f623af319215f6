package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/waittrace/internal/hooks"
)

func newHooksCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hooks",
		Short: "List hooked guest addresses",
		Long:  `List every guest address the configured hooks instrument, in address order.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			table, err := hooks.NewTable(cfg.HookSpecs())
			if err != nil {
				return fmt.Errorf("failed to build hook table: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ADDRESS\tROLE\tFUNCTION\tKIND\tARGS")
			for _, addr := range table.Addresses() {
				action, _ := table.Lookup(addr)
				fmt.Fprintf(w, "0x%08x\t%s\t%s\t%s\t%s\n",
					addr, action.Role, action.Spec.Function, action.Spec.Kind, formatOffsets(action.Spec.ArgOffsets))
			}
			return w.Flush()
		},
	}

	return cmd
}

func formatOffsets(offsets []uint32) string {
	if len(offsets) == 0 {
		return "-"
	}
	parts := make([]string, len(offsets))
	for i, off := range offsets {
		parts[i] = fmt.Sprintf("esp+%d", off)
	}
	return strings.Join(parts, ",")
}
