package cli

import (
	"io"

	"github.com/spf13/cobra"
)

// configCommand creates the config command.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "export [path]",
		Short: "Print the effective configuration as .depclean.yaml",
		Long: `Export merges defaults, the project's .depclean.yaml, DEPCLEAN_* environment
variables and command-line flags, and prints the result in the config file
format.`,
		Example: `  depclean config export > .depclean.yaml
  DEPCLEAN_WORKERS=4 depclean config export`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd, rootArg(args), nil)
			if err != nil {
				return err
			}
			return c.writeOutput(cmd, func(w io.Writer) error { return cfg.WriteYAML(w) })
		},
	})
	return cmd
}
