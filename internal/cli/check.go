package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/depclean/pkg/config"
	"github.com/matzehuels/depclean/pkg/pipeline"
	"github.com/matzehuels/depclean/pkg/report"
)

// checkCommand creates the check command.
func (c *CLI) checkCommand() *cobra.Command {
	var minScore int

	cmd := &cobra.Command{
		Use:   "check [path]",
		Short: "Exit non-zero when the project has dependency findings",
		Long: `Check scans like scan and exits 1 when any unused import, unused package,
missing package or duplicate declaration is found, or when the health score is
below --min-score. It exits 2 when the scan itself fails.`,
		Example: `  depclean check
  depclean check --min-score 80 -q`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireFormat(textFormats...); err != nil {
				return err
			}
			var res *pipeline.CheckResult
			err := c.withRunner(cmd, rootArg(args), nil, func(ctx context.Context, r *pipeline.Runner, _ *config.Config) error {
				var err error
				res, err = r.Check(ctx)
				return err
			})
			if err != nil {
				return err
			}

			reasons := res.Reasons
			if minScore > 0 && res.Report.Health.Score < minScore {
				reasons = append(reasons, fmt.Sprintf("health score %d below %d", res.Report.Health.Score, minScore))
			}

			if c.structured() {
				if err := c.writeOutput(cmd, func(w io.Writer) error {
					return report.Write(w, res.Report, c.flags.format, report.TextOptions{})
				}); err != nil {
					return err
				}
			}

			ui := c.ui()
			if len(reasons) == 0 {
				ui.success("No dependency findings (health %d/100, %s)", res.Report.Health.Score, res.Report.Health.Grade)
				return nil
			}
			ui.failure("Check failed: %s", strings.Join(reasons, ", "))
			for _, fi := range res.Report.UnusedImports {
				for _, u := range fi.Imports {
					ui.detail("%s:%d unused %s", fi.Path, u.Line, strings.Join(u.Names, ", "))
				}
			}
			for _, p := range res.Report.UnusedPackages {
				ui.detail("%s: %s declared but never imported", p.Entry.Manifest, p.Name)
			}
			for _, m := range res.Report.MissingPackages {
				ui.detail("%s imported but not declared", m.Module)
			}
			ui.nextStep("See the full report", "depclean scan --detailed")
			return ErrFindings
		},
	}

	cmd.Flags().IntVar(&minScore, "min-score", 0, "also fail when the health score is below this value")
	return cmd
}
