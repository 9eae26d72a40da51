package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/depclean/pkg/cache"
	"github.com/matzehuels/depclean/pkg/deps"
	"github.com/matzehuels/depclean/pkg/deps/python"
	"github.com/matzehuels/depclean/pkg/errors"
	"github.com/matzehuels/depclean/pkg/fingerprint"
	"github.com/matzehuels/depclean/pkg/fix"
	"github.com/matzehuels/depclean/pkg/identity"
	"github.com/matzehuels/depclean/pkg/reconcile"
	"github.com/matzehuels/depclean/pkg/report"
	"github.com/matzehuels/depclean/pkg/scan"
)

// Runner executes depclean operations against one project root.
//
// The Runner owns an analysis store shared by all its scans. It is safe to
// call Scan from several goroutines; Fix must not run concurrently with
// itself on the same root.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	opts    Options
	ttl     time.Duration
	scanner *scan.Scanner
	norm    *identity.Normalizer
	parsers []deps.ManifestParser
	now     func() time.Time
}

// RunnerOption customizes [New].
type RunnerOption func(*Runner)

// WithTTL sets the expiry of persisted analyses.
func WithTTL(ttl time.Duration) RunnerOption {
	return func(r *Runner) { r.ttl = ttl }
}

// WithClock replaces time.Now for report stamps and backup names.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

// New validates opts and prepares a Runner. A nil cache disables
// persistence; a nil logger selects log.Default.
func New(opts Options, c cache.Cache, logger *log.Logger, ropts ...RunnerOption) (*Runner, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}

	table := identity.DefaultTable()
	if opts.MappingsFile != "" {
		t, err := identity.LoadTableFile(table, opts.MappingsFile)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "load mappings")
		}
		table = t
	}

	r := &Runner{
		Cache:   c,
		Keyer:   cache.NewScopedKeyer(cache.NewDefaultKeyer(), cache.ProjectScope(opts.Root)),
		Logger:  logger,
		opts:    opts,
		norm:    identity.New(identity.Options{Table: table, Allowlist: opts.Allowlist}),
		parsers: python.Parsers(),
		now:     time.Now,
	}
	for _, o := range ropts {
		o(r)
	}

	store := scan.NewStore(
		scan.WithBackend(r.Cache),
		scan.WithKeyer(r.Keyer),
		scan.WithTTL(r.ttl),
		scan.WithStoreLogger(r.Logger),
	)
	r.scanner = scan.New(store, scan.Options{
		Workers:     r.opts.Workers,
		Exclude:     r.opts.Exclude,
		MaxFileSize: r.opts.MaxFileSize,
		Policy:      r.opts.Policy,
		Logger:      r.Logger,
		Progress:    r.opts.Progress,
	})
	return r, nil
}

// Root returns the absolute project root.
func (r *Runner) Root() string { return r.opts.Root }

// Normalizer returns the identity normalizer in use.
func (r *Runner) Normalizer() *identity.Normalizer { return r.norm }

// ParseCount returns how many files this Runner has parsed. Cache hits do
// not count.
func (r *Runner) ParseCount() int64 { return r.scanner.ParseCount() }

// Scan analyzes the project and reconciles it with its manifests.
func (r *Runner) Scan(ctx context.Context) (*report.Report, error) {
	start := time.Now()
	res, err := r.scanner.Scan(ctx, r.opts.Root)
	if err != nil {
		return nil, err
	}

	manifests, failed, err := r.Manifests(ctx)
	if err != nil {
		return nil, err
	}

	rep := reconcile.Reconcile(reconcile.Input{
		Scan:           res,
		Manifests:      manifests,
		ManifestErrors: failed,
		Normalizer:     r.norm,
		Now:            r.now,
	})
	r.Logger.Info("scan complete",
		"files", rep.Counts.Files,
		"unused_imports", rep.Counts.UnusedImports,
		"unused_packages", rep.Counts.UnusedPackages,
		"missing", rep.Counts.Missing,
		"duration", time.Since(start).Round(time.Millisecond))
	return rep, nil
}

// CheckResult is the outcome of [Runner.Check].
type CheckResult struct {
	Report *report.Report
	// Failed is set when the project has findings.
	Failed  bool
	Reasons []string
}

// Check scans and reports whether the project is clean.
func (r *Runner) Check(ctx context.Context) (*CheckResult, error) {
	rep, err := r.Scan(ctx)
	if err != nil {
		return nil, err
	}
	res := &CheckResult{Report: rep, Failed: rep.HasFindings()}
	c := rep.Counts
	for _, reason := range []struct {
		n    int
		what string
	}{
		{c.UnusedImports, "unused import(s)"},
		{c.UnusedPackages, "unused package(s)"},
		{c.Missing, "missing package(s)"},
		{c.Duplicates, "duplicate declaration(s)"},
	} {
		if reason.n > 0 {
			res.Reasons = append(res.Reasons, fmt.Sprintf("%d %s", reason.n, reason.what))
		}
	}
	return res, nil
}

// FixOptions configures [Runner.Fix].
type FixOptions struct {
	fix.PlanOptions
	DryRun bool
	Backup bool
}

// FixResult pairs a plan with the outcome of applying it.
type FixResult struct {
	Report *report.Report
	Plan   *fix.Plan
	Result *fix.Result
}

// Fix scans, plans and applies (or previews) the cleanup. Write failures
// are returned together with the partial result.
func (r *Runner) Fix(ctx context.Context, opts FixOptions) (*FixResult, error) {
	rep, err := r.Scan(ctx)
	if err != nil {
		return nil, err
	}
	plan, err := fix.BuildPlan(rep, opts.PlanOptions)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "build fix plan")
	}

	mode := fix.ModeApply
	if opts.DryRun {
		mode = fix.ModeDryRun
	}
	applier := &fix.Applier{Mode: mode, Backup: opts.Backup, Logger: r.Logger, Now: r.now}
	res, err := applier.Apply(ctx, plan)
	out := &FixResult{Report: rep, Plan: plan, Result: res}
	if err != nil {
		return out, err
	}
	r.Logger.Info("fix complete",
		"dry_run", opts.DryRun,
		"modified", res.Stats.Modified,
		"conflicts", res.Stats.Conflicts,
		"imports_removed", res.Stats.ImportsRemoved)
	return out, nil
}

// Stats is the summary shown by the stats command.
type Stats struct {
	Counts     report.Counts         `json:"counts" yaml:"counts"`
	Health     report.Health         `json:"health" yaml:"health"`
	Impact     report.Impact         `json:"impact" yaml:"impact"`
	Duplicates []report.Duplicate    `json:"duplicates,omitempty" yaml:"duplicates,omitempty"`
	Usage      []report.PackageUsage `json:"usage,omitempty" yaml:"usage,omitempty"`
	Scan       scan.Stats            `json:"scan" yaml:"scan"`
}

// Stats scans and returns the health summary.
func (r *Runner) Stats(ctx context.Context) (*Stats, error) {
	rep, err := r.Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{
		Counts:     rep.Counts,
		Health:     rep.Health,
		Impact:     rep.Impact,
		Duplicates: rep.Duplicates,
		Usage:      rep.Usage,
		Scan:       rep.Stats,
	}, nil
}

// AnalyzeFile analyzes one source file, bypassing discovery. path may be
// absolute or relative to the root.
func (r *Runner) AnalyzeFile(ctx context.Context, path string) (*scan.FileAnalysis, error) {
	rel, err := relPath(r.opts.Root, path)
	if err != nil {
		return nil, err
	}
	if filepath.Ext(rel) != ".py" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "not a Python file: %s", rel)
	}
	data, fp, err := fingerprint.File(filepath.Join(r.opts.Root, filepath.FromSlash(rel)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeNotFound, "file does not exist: %s", rel)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", rel)
	}
	policy := r.scanner.Options().Policy
	store := r.scanner.Store()
	a, _, err := store.GetOrAnalyze(ctx, store.Key(rel, fp), func() (*scan.FileAnalysis, error) {
		return scan.Analyze(ctx, rel, data, fp, *policy)
	})
	return a, err
}

// ClearCache drops every cached analysis, in memory and in the backend.
func (r *Runner) ClearCache(ctx context.Context) error {
	return r.scanner.Store().Reset(ctx)
}
