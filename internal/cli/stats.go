package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/matzehuels/depclean/pkg/config"
	"github.com/matzehuels/depclean/pkg/pipeline"
)

// statsCommand creates the stats command.
func (c *CLI) statsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [path]",
		Short: "Show the dependency health score and cleanup estimate",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireFormat(textFormats...); err != nil {
				return err
			}
			var st *pipeline.Stats
			err := c.withRunner(cmd, rootArg(args), nil, func(ctx context.Context, r *pipeline.Runner, _ *config.Config) error {
				var err error
				st, err = r.Stats(ctx)
				return err
			})
			if err != nil {
				return err
			}
			if c.structured() {
				return c.writeOutput(cmd, func(w io.Writer) error { return encode(w, c.flags.format, st) })
			}
			return c.writeOutput(cmd, func(w io.Writer) error { return writeStatsText(w, st) })
		},
	}
}

func writeStatsText(w io.Writer, st *pipeline.Stats) error {
	p := printer{w: w}
	p.title(fmt.Sprintf("Health %d/100 (%s)", st.Health.Score, st.Health.Grade))
	p.keyValue("Python files", humanize.Comma(int64(st.Counts.Files)))
	p.keyValue("Imported names", humanize.Comma(int64(st.Counts.Imports)))
	p.keyValue("Unused imports", humanize.Comma(int64(st.Counts.UnusedImports)))
	p.keyValue("Declared packages", humanize.Comma(int64(st.Counts.Declared)))
	p.keyValue("Unused packages", humanize.Comma(int64(st.Counts.UnusedPackages)))
	p.keyValue("Missing packages", humanize.Comma(int64(st.Counts.Missing)))
	p.keyValue("Duplicates", humanize.Comma(int64(st.Counts.Duplicates)))
	p.keyValue("Cleanup", fmt.Sprintf("%.2f%%", st.Impact.CleanupPercent))
	p.keyValue("Files affected", fmt.Sprint(len(st.Impact.AffectedFiles)))
	p.keyValue("Lines saved", humanize.Comma(int64(st.Impact.LinesSaved)))
	p.keyValue("Scan time", st.Scan.Duration.String())
	for _, rec := range st.Health.Recommendations {
		p.info("%s", rec)
	}
	return nil
}
