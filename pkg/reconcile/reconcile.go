// Package reconcile cross-references source usage with declared
// dependencies and produces a [report.Report].
package reconcile

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/matzehuels/depclean/pkg/deps"
	"github.com/matzehuels/depclean/pkg/identity"
	"github.com/matzehuels/depclean/pkg/pyast"
	"github.com/matzehuels/depclean/pkg/report"
	"github.com/matzehuels/depclean/pkg/scan"
)

// Input is everything reconciliation needs.
type Input struct {
	Scan           *scan.Result
	Manifests      []*deps.ManifestResult
	ManifestErrors []*deps.ParseError
	// Normalizer resolves declared names. Defaults to identity.New with
	// the embedded table.
	Normalizer *identity.Normalizer
	// Now stamps the report. Defaults to time.Now.
	Now func() time.Time
}

// Reconcile builds the report. It never fails: unparseable files and
// broken manifests are recorded in the report and excluded from the
// analysis.
func Reconcile(in Input) *report.Report {
	norm := in.Normalizer
	if norm == nil {
		norm = identity.New(identity.Options{})
	}
	now := time.Now
	if in.Now != nil {
		now = in.Now
	}

	r := &report.Report{
		Root:        in.Scan.Root,
		GeneratedAt: now().UTC(),
		Files:       in.Scan.Files,
		Skipped:     in.Scan.Skipped,
		Stats:       in.Scan.Stats,
	}

	for _, f := range in.Scan.Files {
		if !f.Parsed() {
			r.Unparseable = append(r.Unparseable, report.FileError{Path: f.Path, Line: f.ErrorLine, Reason: f.Error})
			continue
		}
		if len(f.Unused) > 0 {
			r.UnusedImports = append(r.UnusedImports, report.FileImports{Path: f.Path, Imports: f.Unused})
		}
	}

	c := &reconciler{norm: norm, firstParty: firstParty(in.Scan.Files)}
	c.collectManifests(r, in.Manifests, in.ManifestErrors)
	c.collectImports(in.Scan.Files)

	c.unusedPackages(r)
	c.missingPackages(r)
	r.Duplicates = duplicates(c.direct)
	r.Usage = c.usageGraph()

	r.Finalize()
	return r
}

type reconciler struct {
	norm       *identity.Normalizer
	firstParty map[string]bool

	direct []deps.PackageEntry
	locked []deps.PackageEntry

	// root module -> files importing it, split by whether the import is used.
	used     map[string]map[string]bool
	imported map[string]map[string]bool
}

func (c *reconciler) collectManifests(r *report.Report, manifests []*deps.ManifestResult, failed []*deps.ParseError) {
	type entryKey struct {
		manifest string
		line     int
		name     string
	}
	seen := make(map[entryKey]bool)

	for _, m := range manifests {
		r.Manifests = append(r.Manifests, report.ManifestSummary{
			Path:               m.Path,
			Type:               m.Type,
			Entries:            len(m.Entries),
			IncludesTransitive: m.IncludesTransitive,
			RootPackage:        m.RootPackage,
			Hashes:             m.Hashes,
		})
		r.ManifestWarnings = append(r.ManifestWarnings, m.Warnings...)
		if m.RootPackage != "" {
			c.firstParty[identity.Fold(m.RootPackage)] = true
		}

		// Included requirements files are reached from several manifests.
		for _, e := range m.Entries {
			k := entryKey{e.Manifest, e.Line, e.Name}
			if seen[k] {
				continue
			}
			seen[k] = true
			r.Declared = append(r.Declared, e)
			if e.Locked {
				c.locked = append(c.locked, e)
			} else {
				c.direct = append(c.direct, e)
			}
		}
	}
	for _, pe := range failed {
		r.ManifestWarnings = append(r.ManifestWarnings, fmt.Sprintf("%s: not parsed: %v", pe.Path, pe.Err))
	}
	sort.Strings(r.ManifestWarnings)
}

func (c *reconciler) collectImports(files []*scan.FileAnalysis) {
	c.used = make(map[string]map[string]bool)
	c.imported = make(map[string]map[string]bool)
	add := func(m map[string]map[string]bool, root, file string) {
		if m[root] == nil {
			m[root] = make(map[string]bool)
		}
		m[root][file] = true
	}

	for _, f := range files {
		if !f.Parsed() {
			continue
		}
		wholly := make(map[int]bool)
		for _, u := range f.Unused {
			if u.Whole {
				wholly[u.Index] = true
			}
		}
		for i, imp := range f.Imports {
			if imp.Relative() || imp.Kind == pyast.KindFuture {
				continue
			}
			root := imp.Root()
			add(c.imported, root, f.Path)
			if !wholly[i] {
				add(c.used, root, f.Path)
			}
		}
	}
}

func (c *reconciler) unusedPackages(r *report.Report) {
	for _, e := range c.direct {
		id := c.norm.Normalize(e.Name)
		if c.matchesAny(id, c.used) {
			continue
		}
		r.UnusedPackages = append(r.UnusedPackages, report.PackageFinding{
			Name:       e.Name,
			Canonical:  id.Canonical,
			Entry:      e,
			Candidates: c.norm.CandidateImportNames(id),
		})
	}
	sort.SliceStable(r.UnusedPackages, func(i, j int) bool {
		a, b := r.UnusedPackages[i], r.UnusedPackages[j]
		if a.Canonical != b.Canonical {
			return a.Canonical < b.Canonical
		}
		if a.Entry.Manifest != b.Entry.Manifest {
			return a.Entry.Manifest < b.Entry.Manifest
		}
		return a.Entry.Line < b.Entry.Line
	})
}

func (c *reconciler) matchesAny(id identity.Identity, roots map[string]map[string]bool) bool {
	for root := range roots {
		if c.norm.Matches(id, root) {
			return true
		}
	}
	return false
}

func (c *reconciler) declaredBy(entries []deps.PackageEntry, root string) (deps.PackageEntry, bool) {
	for _, e := range entries {
		if c.norm.Matches(c.norm.Normalize(e.Name), root) {
			return e, true
		}
	}
	return deps.PackageEntry{}, false
}

// external reports whether root belongs to a third-party distribution.
func (c *reconciler) external(root string) bool {
	return !c.norm.IsStdlib(root) && !c.firstParty[identity.Fold(root)]
}

func (c *reconciler) missingPackages(r *report.Report) {
	for _, root := range sortedKeys(c.imported) {
		if !c.external(root) {
			continue
		}
		if _, ok := c.declaredBy(c.direct, root); ok {
			continue
		}
		_, locked := c.declaredBy(c.locked, root)
		r.MissingPackages = append(r.MissingPackages, report.MissingPackage{
			Module:      root,
			Files:       sortedKeys(c.imported[root]),
			Suggestions: c.norm.PackagesFor(root),
			Locked:      locked,
		})
	}
}

// duplicates groups direct entries by canonical name and keeps groups
// spelled in more than one way.
func duplicates(entries []deps.PackageEntry) []report.Duplicate {
	groups := make(map[string][]deps.PackageEntry)
	for _, e := range entries {
		k := identity.Canonical(e.Name)
		groups[k] = append(groups[k], e)
	}
	var out []report.Duplicate
	for _, k := range sortedKeys(groups) {
		names := make(map[string]bool)
		for _, e := range groups[k] {
			names[e.Name] = true
		}
		if len(names) < 2 {
			continue
		}
		out = append(out, report.Duplicate{Canonical: k, Names: sortedKeys(names), Entries: groups[k]})
	}
	return out
}

// usageGraph maps each used third-party root to its declaring package, or
// to itself when undeclared.
func (c *reconciler) usageGraph() []report.PackageUsage {
	byPkg := make(map[string]*report.PackageUsage)
	for root, files := range c.used {
		if !c.external(root) {
			continue
		}
		name, declared := root, false
		if e, ok := c.declaredBy(c.direct, root); ok {
			name, declared = e.Name, true
		}
		u := byPkg[name]
		if u == nil {
			u = &report.PackageUsage{Package: name, Declared: declared}
			byPkg[name] = u
		}
		for f := range files {
			u.Files = append(u.Files, f)
		}
	}

	out := make([]report.PackageUsage, 0, len(byPkg))
	for _, name := range sortedKeys(byPkg) {
		u := byPkg[name]
		sort.Strings(u.Files)
		u.Files = compactStrings(u.Files)
		out = append(out, *u)
	}
	return out
}

// firstParty returns the folded top-level module names of the project's
// own sources, treating src/ as a layout directory.
func firstParty(files []*scan.FileAnalysis) map[string]bool {
	out := make(map[string]bool)
	for _, f := range files {
		segs := strings.Split(f.Path, "/")
		if len(segs) > 1 && segs[0] == "src" {
			segs = segs[1:]
		}
		name := segs[0]
		if len(segs) == 1 {
			name = strings.TrimSuffix(name, path.Ext(name))
		}
		out[identity.Fold(name)] = true
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func compactStrings(s []string) []string {
	out := s[:0]
	for i, v := range s {
		if i == 0 || v != s[i-1] {
			out = append(out, v)
		}
	}
	return out
}
