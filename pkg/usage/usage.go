// Package usage decides which imported bindings a Python file actually uses.
//
// The model is syntactic. A binding is used when its local name is read
// anywhere in the file before the first module-level rebinding that follows
// the import, is listed in __all__, or heads a name in a string annotation.
// Whole-module bindings count whether they head an attribute access
// (json.dumps) or are passed around bare (func(json)).
//
// Dynamic lookups such as getattr(mod, "name"), importlib or template
// strings are invisible to this model. Code relying on them can lose an
// import it needs; such files should be excluded from fixing.
package usage

import (
	"path"
	"sort"

	"github.com/matzehuels/depclean/pkg/pyast"
)

// SiteKind tells how a binding was referenced.
type SiteKind string

const (
	SiteName       SiteKind = "name"
	SiteAttribute  SiteKind = "attribute"
	SiteExport     SiteKind = "export"
	SiteAnnotation SiteKind = "annotation"
)

// Site is one reference to an imported binding.
type Site struct {
	Binding string   `json:"binding" yaml:"binding"`
	Line    int      `json:"line" yaml:"line"`
	Kind    SiteKind `json:"kind" yaml:"kind"`
}

// UnusedImport describes an import declaration with unused bindings.
type UnusedImport struct {
	// Index points into File.Imports.
	Index  int    `json:"index" yaml:"index"`
	Module string `json:"module" yaml:"module"`
	Level  int    `json:"level,omitempty" yaml:"level,omitempty"`
	Line   int    `json:"line" yaml:"line"`
	// Names lists the unused imported names of a selective import, or the
	// module of a whole-module import.
	Names []string `json:"names" yaml:"names"`
	// Bindings lists the matching local names.
	Bindings []string `json:"bindings" yaml:"bindings"`
	// Whole is set when no binding of the declaration is used.
	Whole bool `json:"whole" yaml:"whole"`
}

// Result is the usage verdict for one file.
type Result struct {
	Sites  []Site         `json:"sites" yaml:"sites"`
	Used   []string       `json:"used" yaml:"used"`
	Unused []UnusedImport `json:"unused" yaml:"unused"`
}

// Policy tunes resolution.
type Policy struct {
	// InitReexports treats every top-level import of an __init__.py as a
	// re-export, and therefore used.
	InitReexports bool
}

// DefaultPolicy is used by [Resolve].
var DefaultPolicy = Policy{InitReexports: true}

// Resolve applies DefaultPolicy.
func Resolve(f *pyast.File) Result {
	return DefaultPolicy.Resolve(f)
}

// Resolve determines used and unused bindings of f.
func (p Policy) Resolve(f *pyast.File) Result {
	r := resolver{file: f, shadows: make(map[string][]int)}
	for _, s := range f.Shadows {
		r.shadows[s.Name] = append(r.shadows[s.Name], s.Offset)
	}
	for _, offs := range r.shadows {
		sort.Ints(offs)
	}

	initFile := p.InitReexports && path.Base(f.Path) == "__init__.py"

	var res Result
	used := make(map[string]struct{})
	for i, imp := range f.Imports {
		if imp.Star || imp.Kind == pyast.KindFuture {
			continue
		}
		reexport := initFile && f.Statements[imp.Stmt].TopLevel

		var unusedNames, unusedBindings []string
		if imp.Kind == pyast.KindModule {
			b := imp.Binding()
			if reexport || r.used(b, imp.Offset, &res) {
				used[b] = struct{}{}
			} else {
				unusedNames, unusedBindings = []string{imp.Module}, []string{b}
			}
		} else {
			for _, n := range imp.Names {
				b := n.Binding()
				if reexport || r.used(b, imp.Offset, &res) {
					used[b] = struct{}{}
				} else {
					unusedNames = append(unusedNames, n.Name)
					unusedBindings = append(unusedBindings, b)
				}
			}
		}
		if len(unusedBindings) == 0 {
			continue
		}
		res.Unused = append(res.Unused, UnusedImport{
			Index:    i,
			Module:   imp.Module,
			Level:    imp.Level,
			Line:     imp.Line,
			Names:    unusedNames,
			Bindings: unusedBindings,
			Whole:    imp.Kind == pyast.KindModule || len(unusedBindings) == len(imp.Names),
		})
	}

	res.Used = make([]string, 0, len(used))
	for b := range used {
		res.Used = append(res.Used, b)
	}
	sort.Strings(res.Used)
	sort.SliceStable(res.Sites, func(i, j int) bool {
		if res.Sites[i].Line != res.Sites[j].Line {
			return res.Sites[i].Line < res.Sites[j].Line
		}
		return res.Sites[i].Binding < res.Sites[j].Binding
	})
	res.Sites = dedupSites(res.Sites)
	return res
}

type resolver struct {
	file    *pyast.File
	shadows map[string][]int
}

// limit returns the offset of the first rebinding of name after an import
// at offset, or -1 when there is none.
func (r *resolver) limit(name string, offset int) int {
	for _, s := range r.shadows[name] {
		if s > offset {
			return s
		}
	}
	return -1
}

// used reports whether binding has a counting reference and records sites.
func (r *resolver) used(binding string, offset int, res *Result) bool {
	limit := r.limit(binding, offset)
	before := func(off int) bool { return limit < 0 || off < limit }

	found := false
	for _, ref := range r.file.Refs {
		if ref.Name != binding || !before(ref.Offset) {
			continue
		}
		kind := SiteName
		if ref.Attr {
			kind = SiteAttribute
		}
		res.Sites = append(res.Sites, Site{Binding: binding, Line: ref.Line, Kind: kind})
		found = true
	}
	for _, ref := range r.file.Exports {
		if ref.Name == binding {
			res.Sites = append(res.Sites, Site{Binding: binding, Line: ref.Line, Kind: SiteExport})
			found = true
		}
	}
	for _, ref := range r.file.StringRefs {
		if ref.Name == binding && before(ref.Offset) {
			res.Sites = append(res.Sites, Site{Binding: binding, Line: ref.Line, Kind: SiteAnnotation})
			found = true
		}
	}
	return found
}

// dedupSites drops repeats produced when several imports share a binding.
func dedupSites(sites []Site) []Site {
	seen := make(map[Site]struct{}, len(sites))
	out := sites[:0]
	for _, s := range sites {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
