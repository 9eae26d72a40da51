package fix

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/depclean/pkg/errors"
	"github.com/matzehuels/depclean/pkg/fingerprint"
	"github.com/matzehuels/depclean/pkg/observability"
)

// Mode selects whether the applier writes.
type Mode int

const (
	ModeDryRun Mode = iota
	ModeApply
)

// Status is the outcome for one target.
type Status string

const (
	StatusModified  Status = "modified"
	StatusUnchanged Status = "unchanged"
	StatusConflict  Status = "conflict"
	StatusFailed    Status = "failed"
)

// Change reports what happened to one target. Dry runs produce the same
// changes an apply would, without writing.
type Change struct {
	Path     string     `json:"path" yaml:"path"`
	Kind     TargetKind `json:"kind" yaml:"kind"`
	Status   Status     `json:"status" yaml:"status"`
	Edits    []Edit     `json:"edits" yaml:"edits"`
	Diff     string     `json:"diff,omitempty" yaml:"diff,omitempty"`
	Backup   string     `json:"backup,omitempty" yaml:"backup,omitempty"`
	Error    string     `json:"error,omitempty" yaml:"error,omitempty"`
	Imports  int        `json:"imports,omitempty" yaml:"imports,omitempty"`
	Packages []string   `json:"packages,omitempty" yaml:"packages,omitempty"`
}

// Stats totals a fix run.
type Stats struct {
	Modified        int           `json:"modified" yaml:"modified"`
	Unchanged       int           `json:"unchanged" yaml:"unchanged"`
	Conflicts       int           `json:"conflicts" yaml:"conflicts"`
	Failed          int           `json:"failed" yaml:"failed"`
	ImportsRemoved  int           `json:"imports_removed" yaml:"imports_removed"`
	PackagesRemoved int           `json:"packages_removed" yaml:"packages_removed"`
	Backups         int           `json:"backups" yaml:"backups"`
	Duration        time.Duration `json:"duration" yaml:"duration"`
}

// Result is the outcome of [Applier.Apply].
type Result struct {
	DryRun  bool     `json:"dry_run" yaml:"dry_run"`
	Changes []Change `json:"changes" yaml:"changes"`
	Stats   Stats    `json:"stats" yaml:"stats"`
}

// Filter returns the changes with the given status.
func (r *Result) Filter(s Status) []Change {
	var out []Change
	for _, c := range r.Changes {
		if c.Status == s {
			out = append(out, c)
		}
	}
	return out
}

// Applier executes plans one target at a time.
type Applier struct {
	Mode Mode
	// Backup writes a timestamped copy of each file before rewriting it.
	Backup bool
	Logger *log.Logger
	// Now stamps backup names. Defaults to time.Now.
	Now func() time.Time

	write writeFunc
}

func (a *Applier) defaults() {
	if a.Logger == nil {
		a.Logger = log.New(io.Discard)
	}
	if a.Now == nil {
		a.Now = time.Now
	}
	if a.write == nil {
		a.write = os.WriteFile
	}
}

// Apply runs plan. Conflicts and failures are recorded per target and do
// not stop the run; the returned error joins every write failure, or is
// the context error when the run was interrupted between targets.
func (a *Applier) Apply(ctx context.Context, plan *Plan) (*Result, error) {
	a.defaults()
	dry := a.Mode == ModeDryRun
	res := &Result{DryRun: dry}
	start := time.Now()
	hooks := observability.Fix()
	hooks.OnFixStart(ctx, dry, len(plan.Targets))

	var errs []error
	for _, t := range plan.Targets {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		c, err := a.applyTarget(plan.Root, t, dry)
		if err != nil {
			errs = append(errs, err)
		}
		res.Changes = append(res.Changes, c)
		hooks.OnFileFixed(ctx, c.Path, string(c.Status))

		switch c.Status {
		case StatusModified:
			res.Stats.Modified++
			res.Stats.ImportsRemoved += c.Imports
			res.Stats.PackagesRemoved += len(c.Packages)
			if c.Backup != "" {
				res.Stats.Backups++
			}
		case StatusUnchanged:
			res.Stats.Unchanged++
		case StatusConflict:
			res.Stats.Conflicts++
			a.Logger.Warn("file changed since scan, skipped", "path", c.Path)
		case StatusFailed:
			res.Stats.Failed++
			a.Logger.Error("fix failed", "path", c.Path, "err", c.Error)
		}
	}

	res.Stats.Duration = time.Since(start)
	hooks.OnFixComplete(ctx, res.Stats.Modified, res.Stats.Failed, res.Stats.Duration)
	return res, stderrors.Join(errs...)
}

func (a *Applier) applyTarget(root string, t Target, dry bool) (Change, error) {
	c := Change{Path: t.Path, Kind: t.Kind, Edits: t.Edits, Imports: t.Imports, Packages: t.Packages}
	fail := func(err error) (Change, error) {
		c.Status = StatusFailed
		c.Error = errors.UserMessage(err)
		return c, err
	}

	if err := errors.ValidateRelativePath(t.Path); err != nil {
		return fail(err)
	}
	path := filepath.Join(root, filepath.FromSlash(t.Path))
	info, err := os.Stat(path)
	if err != nil {
		return fail(errors.Wrap(errors.ErrCodeNotFound, err, "stat %s", t.Path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fail(errors.Wrap(errors.ErrCodeNotFound, err, "read %s", t.Path))
	}
	if t.Hash == "" || fingerprint.Sum(data) != t.Hash {
		c.Status = StatusConflict
		c.Error = errors.New(errors.ErrCodeStalePlan, "%s changed since it was scanned", t.Path).Message
		return c, nil
	}

	out, err := Rewrite(data, t.Edits)
	if err != nil {
		return fail(errors.Wrap(errors.ErrCodeInternal, err, "rewrite %s", t.Path))
	}
	if bytes.Equal(out, data) {
		c.Status = StatusUnchanged
		return c, nil
	}
	c.Diff = UnifiedDiff(t.Path, data, out)
	if dry {
		c.Status = StatusModified
		return c, nil
	}

	if err := a.commit(path, data, out, info.Mode().Perm(), &c); err != nil {
		return fail(errors.Wrap(errors.ErrCodeWriteFailed, err, "write %s", t.Path))
	}
	c.Status = StatusModified
	a.Logger.Debug("fixed", "path", t.Path, "edits", len(t.Edits))
	return c, nil
}

// commit writes out under a safety net and restores the original when the
// write fails.
func (a *Applier) commit(path string, original, out []byte, perm fs.FileMode, c *Change) error {
	net, err := acquire(path, original, perm, a.Backup, a.Now())
	if err != nil {
		return err
	}
	c.Backup = net.backup
	if err := a.write(path, out, perm); err != nil {
		if rerr := net.restore(a.write); rerr != nil {
			return stderrors.Join(err, rerr)
		}
		return err
	}
	net.release()
	return nil
}
