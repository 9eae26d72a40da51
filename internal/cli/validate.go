package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/depclean/pkg/pipeline"
)

// validateCommand creates the validate command.
func (c *CLI) validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [path]",
		Short: "Check that a directory looks like a Python project depclean can analyze",
		Long: `Validate inspects the project layout without analyzing any file. It exits 1
when the project has no Python files.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireFormat(textFormats...); err != nil {
				return err
			}
			root := rootArg(args)
			cfg, err := c.loadConfig(cmd, root, nil)
			if err != nil {
				return err
			}
			runner, err := c.newRunner(cmd.Context(), cfg, root, nil)
			if err != nil {
				return err
			}
			defer runner.Cache.Close()

			v, err := runner.Validate()
			if err != nil {
				return err
			}
			if c.structured() {
				if err := c.writeOutput(cmd, func(w io.Writer) error { return encode(w, c.flags.format, v) }); err != nil {
					return err
				}
			} else {
				c.printValidation(runner.Root(), v)
			}
			if !v.Valid {
				return fmt.Errorf("%w: project layout is not valid", ErrFindings)
			}
			return nil
		},
	}
}

func (c *CLI) printValidation(root string, v *pipeline.Validation) {
	ui := c.ui()
	if v.Valid {
		ui.success("%s is a valid Python project", root)
	}
	for _, e := range v.Errors {
		ui.failure("%s", e)
	}
	for _, w := range v.Warnings {
		ui.warning("%s", w)
	}
	ui.keyValue("Python files", fmt.Sprint(v.PythonFiles))
	for _, m := range v.Manifests {
		ui.keyValue("Manifest", m)
	}
	for _, r := range v.Recommendations {
		ui.info("%s", r)
	}
}
