package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/depclean/pkg/buildinfo"
	"github.com/matzehuels/depclean/pkg/errors"
	"github.com/matzehuels/depclean/pkg/observability"
	"github.com/matzehuels/depclean/pkg/report"
)

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "depclean finds and removes unused Python imports and dependencies",
		Long: `depclean scans a Python project for unused imports, declared packages that are
never imported and imported packages that are never declared, scores the
project's dependency health and can remove the dead imports for you.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case c.flags.verbose:
				c.SetLogLevel(LogDebug)
			case c.flags.quiet:
				c.SetLogLevel(LogError)
			}
			if err := validateGlobalFormat(c.flags.format); err != nil {
				return err
			}
			if c.flags.metricsFile != "" {
				c.metrics = observability.NewPrometheusHooks()
				c.metrics.Register()
			}
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)

	pf := root.PersistentFlags()
	pf.BoolVarP(&c.flags.verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVarP(&c.flags.quiet, "quiet", "q", false, "only log errors and suppress status output")
	pf.BoolVar(&c.flags.noColor, "no-color", false, "disable styled output")
	pf.StringVarP(&c.flags.format, "format", "f", report.FormatText, "output format: text, json, yaml (graph: dot, svg)")
	pf.StringVarP(&c.flags.output, "output", "o", "", "write output to a file instead of stdout")
	pf.StringVarP(&c.flags.config, "config", "c", "", "config file (default: .depclean.yaml in the project root)")
	pf.StringVar(&c.flags.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile on exit")
	pf.IntVarP(&c.flags.workers, "workers", "j", 0, "concurrent file analyses (0 = one per CPU)")
	pf.StringSliceVarP(&c.flags.exclude, "exclude", "e", nil, "additional directory names or glob patterns to skip")
	pf.StringVar(&c.flags.cache, "cache", "", "cache backend: file, redis, none")
	root.MarkFlagsMutuallyExclusive("verbose", "quiet")

	root.AddCommand(c.scanCommand())
	root.AddCommand(c.checkCommand())
	root.AddCommand(c.fixCommand())
	root.AddCommand(c.statsCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.analyzeFileCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// validateGlobalFormat accepts every report format; commands narrow it.
func validateGlobalFormat(format string) error {
	return report.ValidateFormat(format)
}

// textFormats are the formats accepted by commands that do not render graphs.
var textFormats = []string{report.FormatText, report.FormatJSON, report.FormatYAML}

// requireFormat fails unless the --format value is one of allowed.
func (c *CLI) requireFormat(allowed ...string) error {
	for _, f := range allowed {
		if c.flags.format == f {
			return nil
		}
	}
	return errors.New(errors.ErrCodeInvalidFormat, "format %q is not supported here (use one of %v)", c.flags.format, allowed)
}
