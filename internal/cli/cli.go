// Package cli implements the depclean command-line interface.
package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/depclean/pkg/cache"
	"github.com/matzehuels/depclean/pkg/config"
	"github.com/matzehuels/depclean/pkg/errors"
	"github.com/matzehuels/depclean/pkg/observability"
	"github.com/matzehuels/depclean/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "depclean"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
	LogError = log.ErrorLevel
)

// Process exit codes.
const (
	ExitClean       = 0
	ExitFindings    = 1
	ExitError       = 2
	ExitInterrupted = 130
)

// ErrFindings is returned by commands that gate on a clean project when
// the project is not clean. It maps to [ExitFindings].
var ErrFindings = stderrors.New("findings reported")

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitClean
	case stderrors.Is(err, context.Canceled):
		return ExitInterrupted
	case stderrors.Is(err, ErrFindings):
		return ExitFindings
	}
	return ExitError
}

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	stdout  io.Writer
	stderr  io.Writer
	flags   globalFlags
	metrics *observability.PrometheusHooks
}

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	verbose     bool
	quiet       bool
	noColor     bool
	format      string
	output      string
	config      string
	metricsFile string
	workers     int
	exclude     []string
	cache       string
}

// New creates a CLI that logs to w at the given level. Reports go to
// standard output.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		stdout: os.Stdout,
		stderr: w,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// Run executes the command line args and returns the process exit code.
// Errors are logged here; findings are not errors and are only reflected
// in the code.
func (c *CLI) Run(ctx context.Context, args []string) int {
	root := c.RootCommand()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)

	if c.metrics != nil && c.flags.metricsFile != "" {
		if werr := c.metrics.WriteTextfile(c.flags.metricsFile); werr != nil {
			c.Logger.Warn("metrics not written", "path", c.flags.metricsFile, "err", werr)
		}
		observability.Reset()
	}

	code := ExitCode(err)
	if code == ExitError {
		c.Logger.Error(errors.UserMessage(err), "code", errors.GetCode(err))
	}
	return code
}

// =============================================================================
// Runner Factory
// =============================================================================

// loadConfig reads the configuration for root, applying the global flags
// that were set explicitly and any command-specific overrides on top.
func (c *CLI) loadConfig(cmd *cobra.Command, root string, extra map[string]any) (*config.Config, error) {
	overrides := map[string]any{}
	fl := cmd.Flags()
	if fl.Changed("workers") {
		overrides["workers"] = c.flags.workers
	}
	if fl.Changed("exclude") {
		overrides["exclude"] = c.flags.exclude
	}
	if fl.Changed("cache") {
		overrides["cache.backend"] = c.flags.cache
	}
	for k, v := range extra {
		overrides[k] = v
	}

	cfg, err := config.Load(config.LoadOptions{Root: root, Path: c.flags.config, Overrides: overrides})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "load configuration")
	}
	if cfg.File != "" {
		c.Logger.Debug("config loaded", "file", cfg.File)
	}
	return cfg, nil
}

// newRunner creates a pipeline runner for root. The caller closes the
// runner's cache.
func (c *CLI) newRunner(ctx context.Context, cfg *config.Config, root string, progress func(done, total int)) (*pipeline.Runner, error) {
	opts, err := pipeline.OptionsFromConfig(root, cfg)
	if err != nil {
		return nil, err
	}
	opts.Progress = progress

	ttl, err := cfg.CacheTTL()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "cache.ttl")
	}

	backend := c.openCache(ctx, cfg)
	runner, err := pipeline.New(opts, backend, c.Logger, pipeline.WithTTL(ttl))
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return runner, nil
}

// openCache opens the configured backend, falling back to no persistence
// when it is unavailable.
func (c *CLI) openCache(ctx context.Context, cfg *config.Config) cache.Cache {
	backend, err := cache.Open(ctx, cfg.CacheOptions())
	if err != nil {
		c.Logger.Warn("cache unavailable, continuing without persistence", "backend", cfg.Cache.Backend, "err", err)
		return cache.NewNullCache()
	}
	return backend
}

// =============================================================================
// Output
// =============================================================================

// output returns where reports go: the --output file or standard output.
// The returned close func must be called once writing is done.
func (c *CLI) output(cmd *cobra.Command) (io.Writer, func() error, error) {
	if c.flags.output == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(c.flags.output)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeWriteFailed, err, "create %s", c.flags.output)
	}
	return f, f.Close, nil
}

// writeOutput renders to the report destination and announces the file
// when one was written.
func (c *CLI) writeOutput(cmd *cobra.Command, render func(io.Writer) error) error {
	w, closeFn, err := c.output(cmd)
	if err != nil {
		return err
	}
	if err := render(w); err != nil {
		_ = closeFn()
		return err
	}
	if err := closeFn(); err != nil {
		return fmt.Errorf("close %s: %w", c.flags.output, err)
	}
	if c.flags.output != "" {
		c.ui().file(c.flags.output)
	}
	return nil
}

// colorOutput reports whether text reports should be styled.
func (c *CLI) colorOutput() bool {
	if c.flags.noColor || c.flags.output != "" || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := c.stdout.(*os.File)
	return ok && isTerminal(f)
}

// ui returns the status printer for this invocation.
func (c *CLI) ui() printer {
	return printer{w: c.stderr, quiet: c.flags.quiet}
}

// rootArg returns the optional project directory argument.
func rootArg(args []string) string {
	if len(args) == 0 {
		return "."
	}
	return args[0]
}
