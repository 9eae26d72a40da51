package deps

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/matzehuels/depclean/pkg/errors"
)

// ManifestParser reads dependency declarations from local manifest files.
type ManifestParser interface {
	// Parse reads the manifest at path.
	Parse(path string, opts Options) (*ManifestResult, error)
	// Supports reports whether this parser handles the given filename.
	Supports(filename string) bool
	// Type returns the manifest type identifier (e.g., "pyproject", "poetry.lock").
	Type() string
	// IncludesTransitive reports whether the manifest contains the full
	// transitive closure (like lock files) or just direct dependencies.
	IncludesTransitive() bool
}

// ManifestResult holds the parsed entries of one manifest file.
type ManifestResult struct {
	Path               string         `json:"path" yaml:"path"`
	Type               string         `json:"type" yaml:"type"`
	IncludesTransitive bool           `json:"includes_transitive" yaml:"includes_transitive"`
	RootPackage        string         `json:"root_package,omitempty" yaml:"root_package,omitempty"`
	Entries            []PackageEntry `json:"entries" yaml:"entries"`
	Warnings           []string       `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	// Hashes maps every file read (the manifest and anything it includes)
	// to its content hash.
	Hashes map[string]string `json:"hashes" yaml:"hashes"`
}

// Warnf appends a formatted warning.
func (r *ManifestResult) Warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Files returns the paths in Hashes in sorted order.
func (r *ManifestResult) Files() []string {
	out := make([]string, 0, len(r.Hashes))
	for p := range r.Hashes {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// DetectManifest finds a parser that supports the given file path.
// Returns an error if no parser matches.
func DetectManifest(path string, parsers ...ManifestParser) (ManifestParser, error) {
	name := filepath.Base(path)
	for _, p := range parsers {
		if p.Supports(name) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("unsupported manifest: %s", name)
}

// ParseError records a manifest that could not be parsed. Code is
// UNSUPPORTED when no parser claims the file, PARSE_ERROR when the claiming
// parser failed.
type ParseError struct {
	Path string
	Code errors.Code
	Err  error
}

func (e *ParseError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// ParseAll parses every path with the first supporting parser. Failures are
// collected instead of aborting so that the remaining manifests still count.
func ParseAll(paths []string, opts Options, parsers ...ManifestParser) ([]*ManifestResult, []*ParseError) {
	opts = opts.WithDefaults()
	var (
		results []*ManifestResult
		failed  []*ParseError
	)
	for _, path := range paths {
		p, err := DetectManifest(path, parsers...)
		if err != nil {
			failed = append(failed, &ParseError{Path: opts.Rel(path), Code: errors.ErrCodeUnsupported, Err: err})
			continue
		}
		res, err := p.Parse(path, opts)
		if err != nil {
			opts.Logger("manifest %s: %v", path, err)
			failed = append(failed, &ParseError{Path: opts.Rel(path), Code: errors.ErrCodeParse, Err: err})
			continue
		}
		results = append(results, res)
	}
	return results, failed
}
