// Package pipeline wires the scanner, manifest parsers, reconciliation and
// fix applier into the operations the CLI exposes.
//
// # Usage
//
//	runner, err := pipeline.New(pipeline.Options{Root: "."}, backend, logger)
//	if err != nil {
//	    return err // INVALID_PATH for a missing root
//	}
//	rep, err := runner.Scan(ctx)
//
// A Runner keeps its analysis store for its whole lifetime, so a second
// Scan only re-parses files whose content changed.
package pipeline

import (
	"os"
	"path/filepath"

	"github.com/matzehuels/depclean/pkg/config"
	"github.com/matzehuels/depclean/pkg/errors"
	"github.com/matzehuels/depclean/pkg/usage"
)

// Options configures a [Runner].
type Options struct {
	// Root is the project directory.
	Root string
	// Exclude adds patterns to the scanner's default excludes.
	Exclude []string
	// Workers bounds concurrent file analyses. Zero means one per CPU.
	Workers int
	// MaxFileSize is the per-file size ceiling in bytes.
	MaxFileSize int64
	// Allowlist names module roots treated as standard library.
	Allowlist []string
	// MappingsFile is a TOML mapping table merged over the embedded one.
	MappingsFile string
	// Policy tunes usage resolution. Nil selects usage.DefaultPolicy.
	Policy *usage.Policy
	// Progress receives scan progress.
	Progress func(done, total int)
}

// ValidateAndSetDefaults makes Root absolute and checks that it is a
// directory.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Root == "" {
		o.Root = "."
	}
	abs, err := filepath.Abs(o.Root)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve %s", o.Root)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return errors.New(errors.ErrCodeInvalidPath, "project root does not exist: %s", o.Root)
	}
	if !info.IsDir() {
		return errors.New(errors.ErrCodeInvalidPath, "project root is not a directory: %s", o.Root)
	}
	o.Root = abs
	if o.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "workers must be non-negative")
	}
	return nil
}

// OptionsFromConfig builds Options for root from cfg.
func OptionsFromConfig(root string, cfg *config.Config) (Options, error) {
	size, err := cfg.MaxFileSizeBytes()
	if err != nil {
		return Options{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "max_file_size")
	}
	mappings := cfg.MappingsFile
	if mappings != "" && !filepath.IsAbs(mappings) {
		mappings = filepath.Join(root, mappings)
	}
	policy := usage.Policy{InitReexports: cfg.InitReexports}
	return Options{
		Root:         root,
		Exclude:      cfg.Exclude,
		Workers:      cfg.Workers,
		MaxFileSize:  size,
		Allowlist:    cfg.Allowlist,
		MappingsFile: mappings,
		Policy:       &policy,
	}, nil
}

func relPath(root, path string) (string, error) {
	if filepath.IsAbs(path) {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return "", err
		}
		path = rel
	}
	path = filepath.ToSlash(filepath.Clean(path))
	if err := errors.ValidateRelativePath(path); err != nil {
		return "", err
	}
	return path, nil
}
