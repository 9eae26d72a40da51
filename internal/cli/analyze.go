package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/depclean/pkg/scan"
)

// analyzeFileCommand creates the analyze-file command.
func (c *CLI) analyzeFileCommand() *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "analyze-file <file.py>",
		Short: "Show the imports and unused imports of a single file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireFormat(textFormats...); err != nil {
				return err
			}
			cfg, err := c.loadConfig(cmd, root, nil)
			if err != nil {
				return err
			}
			runner, err := c.newRunner(cmd.Context(), cfg, root, nil)
			if err != nil {
				return err
			}
			defer runner.Cache.Close()

			a, err := runner.AnalyzeFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if c.structured() {
				return c.writeOutput(cmd, func(w io.Writer) error { return encode(w, c.flags.format, a) })
			}
			return c.writeOutput(cmd, func(w io.Writer) error { return writeAnalysisText(w, a) })
		},
	}

	cmd.Flags().StringVar(&root, "root", ".", "project root the file belongs to")
	return cmd
}

func writeAnalysisText(w io.Writer, a *scan.FileAnalysis) error {
	p := printer{w: w}
	p.title(a.Path)
	if !a.Parsed() {
		p.failure("cannot parse (line %d): %s", a.ErrorLine, a.Error)
		return nil
	}
	p.keyValue("Imports", fmt.Sprint(len(a.Imports)))
	p.keyValue("Unused", fmt.Sprint(len(a.Unused)))
	for _, imp := range a.Imports {
		p.detail("%d: %s", imp.Line, imp.String())
	}
	for _, u := range a.Unused {
		p.warning("%d: unused %s", u.Line, strings.Join(u.Names, ", "))
	}
	if len(a.Unused) == 0 {
		p.success("No unused imports")
	}
	return nil
}
