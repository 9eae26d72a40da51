package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/depclean/pkg/report"
)

// graphCommand creates the graph command.
func (c *CLI) graphCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "graph [path]",
		Short: "Render the package usage graph as DOT or SVG",
		Long: `Graph writes which files use which packages. Unused declared packages are
drawn red, undeclared imports orange. The default format is DOT; pass -f svg to
render with Graphviz.`,
		Example: `  depclean graph | dot -Tpng > usage.png
  depclean graph -f svg -o usage.svg`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireFormat(report.FormatText, report.FormatDOT, report.FormatSVG); err != nil {
				return err
			}
			format := c.flags.format
			if format == report.FormatText {
				format = report.FormatDOT
			}

			rep, err := c.runScan(cmd, rootArg(args), nil)
			if err != nil {
				return err
			}
			return c.writeOutput(cmd, func(w io.Writer) error {
				return report.Write(w, rep, format, report.TextOptions{})
			})
		},
	}
}
