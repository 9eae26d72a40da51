package deps

import (
	"path/filepath"
	"strings"
)

// Dependency groups. Optional extras and named groups use their own name.
const (
	GroupMain = "main"
	GroupDev  = "dev"
)

// Options configures manifest parsing.
type Options struct {
	// Root is the project root. Entry and include paths are reported
	// relative to it (slash separated) when set.
	Root string
	// Logger receives non-fatal diagnostics (optional).
	Logger func(string, ...any)
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.Logger == nil {
		opts.Logger = func(string, ...any) {}
	}
	return opts
}

// Rel returns path relative to o.Root in slash form, or path unchanged when
// Root is empty or path lies outside it.
func (o Options) Rel(path string) string {
	if o.Root == "" {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(o.Root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// PackageEntry is one declared (or locked) distribution in a manifest.
type PackageEntry struct {
	Name         string   `json:"name" yaml:"name"`
	Constraint   string   `json:"constraint,omitempty" yaml:"constraint,omitempty"`
	Extras       []string `json:"extras,omitempty" yaml:"extras,omitempty"`
	Marker       string   `json:"marker,omitempty" yaml:"marker,omitempty"`
	Manifest     string   `json:"manifest" yaml:"manifest"`
	ManifestType string   `json:"manifest_type" yaml:"manifest_type"`
	Group        string   `json:"group" yaml:"group"`
	Line         int      `json:"line" yaml:"line"`
	EndLine      int      `json:"end_line" yaml:"end_line"`
	// Removable is set when lines Line..EndLine hold nothing but this entry.
	Removable bool `json:"removable" yaml:"removable"`
	// Locked marks entries read from lock files. They describe the installed
	// closure, not declarations, and are never removed.
	Locked bool `json:"locked,omitempty" yaml:"locked,omitempty"`
}

// IsDev reports whether the entry belongs to a development-only group.
func (e PackageEntry) IsDev() bool {
	switch strings.ToLower(e.Group) {
	case GroupDev, "test", "tests", "testing", "lint", "docs", "typing":
		return true
	}
	return false
}
