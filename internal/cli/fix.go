package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/depclean/pkg/config"
	"github.com/matzehuels/depclean/pkg/fix"
	"github.com/matzehuels/depclean/pkg/pipeline"
)

// fixOutput is the machine-readable fix result.
type fixOutput struct {
	DryRun  bool               `json:"dry_run" yaml:"dry_run"`
	Changes []fix.Change       `json:"changes" yaml:"changes"`
	Manual  []fix.ManualAction `json:"manual,omitempty" yaml:"manual,omitempty"`
	Stats   fix.Stats          `json:"stats" yaml:"stats"`
}

// fixCommand creates the fix command.
func (c *CLI) fixCommand() *cobra.Command {
	var (
		dryRun    bool
		noBackup  bool
		pattern   string
		manifests bool
	)

	cmd := &cobra.Command{
		Use:   "fix [path]",
		Short: "Remove unused imports (and optionally unused dependencies)",
		Long: `Fix removes the unused imports found by scan. Each modified file is backed up
next to the original unless --no-backup is given. A file that changed since it
was scanned is reported as a conflict and left untouched.

With --manifests, unused entries in requirements files and pyproject.toml
dependency arrays are removed too; anything else is listed for manual removal.`,
		Example: `  depclean fix --dry-run
  depclean fix --pattern 'src/**/*.py'
  depclean fix --manifests --no-backup`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireFormat(textFormats...); err != nil {
				return err
			}
			extra := map[string]any{}
			if noBackup {
				extra["backup"] = false
			}
			if cmd.Flags().Changed("manifests") {
				extra["manifests"] = manifests
			}

			var res *pipeline.FixResult
			err := c.withRunner(cmd, rootArg(args), extra, func(ctx context.Context, r *pipeline.Runner, cfg *config.Config) error {
				var err error
				res, err = r.Fix(ctx, pipeline.FixOptions{
					PlanOptions: fix.PlanOptions{Pattern: pattern, Manifests: cfg.Manifests},
					DryRun:      dryRun,
					Backup:      cfg.Backup,
				})
				return err
			})
			if res == nil || res.Result == nil {
				return err
			}

			out := fixOutput{
				DryRun:  res.Result.DryRun,
				Changes: res.Result.Changes,
				Manual:  res.Plan.Manual,
				Stats:   res.Result.Stats,
			}
			if c.structured() {
				if werr := c.writeOutput(cmd, func(w io.Writer) error { return encode(w, c.flags.format, out) }); werr != nil {
					return werr
				}
			} else {
				if werr := c.printFix(cmd, out); werr != nil {
					return werr
				}
			}
			return err
		},
	}

	fl := cmd.Flags()
	fl.BoolVarP(&dryRun, "dry-run", "n", false, "show the changes as diffs without writing")
	fl.BoolVar(&noBackup, "no-backup", false, "do not keep .bak copies of modified files")
	fl.StringVarP(&pattern, "pattern", "p", "", "only fix source files matching this glob (e.g. 'src/**/*.py')")
	fl.BoolVar(&manifests, "manifests", false, "also remove unused entries from dependency files")
	return cmd
}

// printFix renders the text result: diffs on the output for dry runs,
// status lines and totals on stderr.
func (c *CLI) printFix(cmd *cobra.Command, out fixOutput) error {
	ui := c.ui()
	if len(out.Changes) == 0 && len(out.Manual) == 0 {
		ui.success("Nothing to fix")
		return nil
	}

	if out.DryRun {
		if err := c.writeOutput(cmd, func(w io.Writer) error {
			for _, ch := range out.Changes {
				if ch.Diff == "" {
					continue
				}
				if _, err := io.WriteString(w, ch.Diff); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return err
		}
	}

	for _, ch := range out.Changes {
		switch ch.Status {
		case fix.StatusModified:
			if out.DryRun {
				ui.info("Would modify %s", ch.Path)
			} else {
				ui.success("Modified %s", ch.Path)
			}
			if ch.Backup != "" {
				ui.detail("backup: %s", ch.Backup)
			}
		case fix.StatusConflict:
			ui.warning("Skipped %s: %s", ch.Path, ch.Error)
		case fix.StatusFailed:
			ui.failure("Failed %s: %s", ch.Path, ch.Error)
		}
	}
	for _, m := range out.Manual {
		loc := m.Path
		if m.Line > 0 {
			loc = fmt.Sprintf("%s:%d", m.Path, m.Line)
		}
		ui.warning("%s: %s", loc, m.Reason)
	}

	verb := "modified"
	if out.DryRun {
		verb = "to modify"
	}
	ui.keyValue("Files "+verb, fmt.Sprint(out.Stats.Modified))
	ui.keyValue("Imports removed", fmt.Sprint(out.Stats.ImportsRemoved))
	if out.Stats.PackagesRemoved > 0 {
		ui.keyValue("Packages removed", fmt.Sprint(out.Stats.PackagesRemoved))
	}
	if !out.DryRun {
		ui.keyValue("Backups created", fmt.Sprint(out.Stats.Backups))
	}
	if out.Stats.Conflicts > 0 {
		ui.keyValue("Conflicts", fmt.Sprint(out.Stats.Conflicts))
	}
	if out.DryRun && out.Stats.Modified > 0 {
		ui.nextStep("Apply these changes", "depclean fix")
	}
	return nil
}
