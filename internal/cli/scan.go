package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/depclean/pkg/config"
	"github.com/matzehuels/depclean/pkg/pipeline"
	"github.com/matzehuels/depclean/pkg/report"
)

// scanCommand creates the scan command.
func (c *CLI) scanCommand() *cobra.Command {
	var detailed bool

	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Report unused imports and dependency findings",
		Long: `Scan analyzes every Python file under path (default: the current directory),
reconciles the imports with the declared dependencies and prints a report.

Scan always exits 0 when the analysis completes; use check to gate CI.`,
		Example: `  depclean scan
  depclean scan ./service --detailed
  depclean scan -f json -o report.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := c.runScan(cmd, rootArg(args), nil)
			if err != nil {
				return err
			}
			if err := c.writeReport(cmd, rep, detailed); err != nil {
				return err
			}
			if !c.structured() && rep.Counts.UnusedImports > 0 {
				c.ui().nextStep("Preview the cleanup", "depclean fix --dry-run")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&detailed, "detailed", "d", false, "list every unused import and usage site")
	return cmd
}

// runScan loads configuration, builds a runner and scans root.
func (c *CLI) runScan(cmd *cobra.Command, root string, extra map[string]any) (*report.Report, error) {
	var rep *report.Report
	err := c.withRunner(cmd, root, extra, func(ctx context.Context, r *pipeline.Runner, _ *config.Config) error {
		var err error
		rep, err = r.Scan(ctx)
		return err
	})
	return rep, err
}

// withRunner runs fn with a runner for root while a spinner reports
// progress. The runner's cache is closed afterwards.
func (c *CLI) withRunner(cmd *cobra.Command, root string, extra map[string]any, fn func(context.Context, *pipeline.Runner, *config.Config) error) error {
	ctx := cmd.Context()
	cfg, err := c.loadConfig(cmd, root, extra)
	if err != nil {
		return err
	}

	spin := c.spinner(ctx, "Scanning "+root)
	runner, err := c.newRunner(ctx, cfg, root, spin.Progress)
	if err != nil {
		return err
	}
	defer runner.Cache.Close()

	prog := newProgress(c.Logger)
	spin.Start()
	err = fn(ctx, runner, cfg)
	spin.Stop()
	if err != nil {
		return err
	}
	prog.done("Scanned "+runner.Root(), "parsed", runner.ParseCount())
	return nil
}

// writeReport renders rep in the selected format.
func (c *CLI) writeReport(cmd *cobra.Command, rep *report.Report, detailed bool) error {
	if c.flags.format == report.FormatText {
		c.ui().scanStats(rep.Counts.Files, rep.Stats.Parsed, rep.Stats.CacheHits)
	}
	opts := report.TextOptions{Detailed: detailed, Color: c.colorOutput()}
	return c.writeOutput(cmd, func(w io.Writer) error {
		return report.Write(w, rep, c.flags.format, opts)
	})
}
