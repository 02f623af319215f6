package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/coral-mesh/waittrace/internal/config"
)

func newConfigCmd(opts *globalOptions) *cobra.Command {
	var (
		validateOnly bool
		writeDefault bool
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Print the configuration after defaults, the config file and WAITTRACE_*
environment overrides are applied.

Use --validate to only check it, or --init to write the defaults to
~/.waittrace/config.yaml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if writeDefault {
				loader := config.NewLoader()
				if err := loader.Save(config.DefaultConfig()); err != nil {
					return err
				}
				cmd.Printf("Wrote %s\n", loader.ConfigPath())
				return nil
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if validateOnly {
				cmd.Printf("Configuration is valid (%d hooks)\n", len(cfg.Hooks))
				return nil
			}

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&validateOnly, "validate", false, "Only validate the configuration")
	cmd.Flags().BoolVar(&writeDefault, "init", false, "Write the default configuration")
	cmd.MarkFlagsMutuallyExclusive("validate", "init")

	return cmd
}
