// Package report defines the result of a dependency analysis and its
// export formats.
//
// A [Report] is an immutable snapshot produced by the reconcile package.
// Everything derived from it, the [Health] score, the [Impact] estimate
// and every export, is a pure function of the report.
package report

import (
	"time"

	"github.com/matzehuels/depclean/pkg/deps"
	"github.com/matzehuels/depclean/pkg/pyast"
	"github.com/matzehuels/depclean/pkg/scan"
	"github.com/matzehuels/depclean/pkg/usage"
)

// Report is the outcome of one scan.
type Report struct {
	Root        string    `json:"root" yaml:"root"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`

	Files       []*scan.FileAnalysis `json:"-" yaml:"-"`
	Unparseable []FileError          `json:"unparseable,omitempty" yaml:"unparseable,omitempty"`
	Skipped     []scan.Skipped       `json:"skipped,omitempty" yaml:"skipped,omitempty"`

	Manifests        []ManifestSummary   `json:"manifests" yaml:"manifests"`
	ManifestWarnings []string            `json:"manifest_warnings,omitempty" yaml:"manifest_warnings,omitempty"`
	Declared         []deps.PackageEntry `json:"declared" yaml:"declared"`

	UnusedImports   []FileImports    `json:"unused_imports" yaml:"unused_imports"`
	UnusedPackages  []PackageFinding `json:"unused_packages" yaml:"unused_packages"`
	MissingPackages []MissingPackage `json:"missing_packages" yaml:"missing_packages"`
	Duplicates      []Duplicate      `json:"duplicates,omitempty" yaml:"duplicates,omitempty"`
	Usage           []PackageUsage   `json:"usage,omitempty" yaml:"usage,omitempty"`

	Counts Counts     `json:"counts" yaml:"counts"`
	Health Health     `json:"health" yaml:"health"`
	Impact Impact     `json:"impact" yaml:"impact"`
	Stats  scan.Stats `json:"stats" yaml:"stats"`
}

// FileError is a source file that could not be parsed.
type FileError struct {
	Path   string `json:"path" yaml:"path"`
	Line   int    `json:"line,omitempty" yaml:"line,omitempty"`
	Reason string `json:"reason" yaml:"reason"`
}

// ManifestSummary describes one parsed manifest.
type ManifestSummary struct {
	Path               string `json:"path" yaml:"path"`
	Type               string `json:"type" yaml:"type"`
	Entries            int    `json:"entries" yaml:"entries"`
	IncludesTransitive bool   `json:"includes_transitive,omitempty" yaml:"includes_transitive,omitempty"`
	RootPackage        string `json:"root_package,omitempty" yaml:"root_package,omitempty"`
	// Hashes maps the manifest and its includes to content hashes.
	Hashes map[string]string `json:"hashes" yaml:"hashes"`
}

// FileImports groups the unused imports of one file.
type FileImports struct {
	Path    string               `json:"path" yaml:"path"`
	Imports []usage.UnusedImport `json:"imports" yaml:"imports"`
}

// Count returns the number of unused bindings.
func (f FileImports) Count() int {
	n := 0
	for _, u := range f.Imports {
		n += len(u.Bindings)
	}
	return n
}

// PackageFinding is a declared distribution that no used import matches.
type PackageFinding struct {
	Name      string            `json:"name" yaml:"name"`
	Canonical string            `json:"canonical" yaml:"canonical"`
	Entry     deps.PackageEntry `json:"entry" yaml:"entry"`
	// Candidates are the import names that were looked for.
	Candidates []string `json:"candidates" yaml:"candidates"`
}

// MissingPackage is an imported root module with no declaring entry.
type MissingPackage struct {
	Module string   `json:"module" yaml:"module"`
	Files  []string `json:"files" yaml:"files"`
	// Suggestions are distributions known to provide Module.
	Suggestions []string `json:"suggestions,omitempty" yaml:"suggestions,omitempty"`
	// Locked is set when a lock file provides the module transitively.
	Locked bool `json:"locked,omitempty" yaml:"locked,omitempty"`
}

// Duplicate lists direct entries that normalize to the same distribution
// under different spellings.
type Duplicate struct {
	Canonical string              `json:"canonical" yaml:"canonical"`
	Names     []string            `json:"names" yaml:"names"`
	Entries   []deps.PackageEntry `json:"entries" yaml:"entries"`
}

// PackageUsage maps a declared distribution, or an undeclared import
// root, to the files that use it.
type PackageUsage struct {
	Package  string   `json:"package" yaml:"package"`
	Files    []string `json:"files" yaml:"files"`
	Declared bool     `json:"declared" yaml:"declared"`
}

// Counts are totals over the report.
type Counts struct {
	Files          int `json:"files" yaml:"files"`
	Parsed         int `json:"parsed" yaml:"parsed"`
	Unparseable    int `json:"unparseable" yaml:"unparseable"`
	Skipped        int `json:"skipped" yaml:"skipped"`
	Imports        int `json:"imports" yaml:"imports"`
	UnusedImports  int `json:"unused_imports" yaml:"unused_imports"`
	Declared       int `json:"declared" yaml:"declared"`
	UnusedPackages int `json:"unused_packages" yaml:"unused_packages"`
	Missing        int `json:"missing" yaml:"missing"`
	Duplicates     int `json:"duplicates" yaml:"duplicates"`
}

// HasFindings reports whether anything actionable was found.
func (r *Report) HasFindings() bool {
	return r.Counts.UnusedImports > 0 || r.Counts.UnusedPackages > 0 ||
		r.Counts.Missing > 0 || r.Counts.Duplicates > 0
}

// File returns the analysis of the file at rel, or nil.
func (r *Report) File(rel string) *scan.FileAnalysis {
	for _, f := range r.Files {
		if f.Path == rel {
			return f
		}
	}
	return nil
}

// Finalize fills Counts, Health and Impact from the findings.
func (r *Report) Finalize() {
	c := Counts{
		Files:          len(r.Files),
		Unparseable:    len(r.Unparseable),
		Skipped:        len(r.Skipped),
		UnusedPackages: len(r.UnusedPackages),
		Missing:        len(r.MissingPackages),
		Duplicates:     len(r.Duplicates),
	}
	for _, f := range r.Files {
		if !f.Parsed() {
			continue
		}
		c.Parsed++
		for _, imp := range f.Imports {
			if imp.Kind != pyast.KindFuture && !imp.Star {
				c.Imports += len(imp.Bindings())
			}
		}
	}
	for _, fi := range r.UnusedImports {
		c.UnusedImports += fi.Count()
	}
	for _, e := range r.Declared {
		if !e.Locked {
			c.Declared++
		}
	}
	r.Counts = c
	r.Health = ComputeHealth(r)
	r.Impact = EstimateImpact(r)
}
