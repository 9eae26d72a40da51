// Package fix turns a report into line-level edits and applies them.
//
// A [Plan] is computed from a [report.Report] without touching the disk.
// The [Applier] then rewrites each target after checking that its content
// still hashes to the value the plan was computed from. Every write is
// guarded by a safety net holding the original bytes (and, optionally, a
// timestamped backup file); a failed write restores the original before
// the error is reported.
//
// Fixing is atomic per file, not across files: a failure on one target
// leaves already rewritten siblings in place.
package fix

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar"

	"github.com/matzehuels/depclean/pkg/pyast"
	"github.com/matzehuels/depclean/pkg/report"
	"github.com/matzehuels/depclean/pkg/scan"
	"github.com/matzehuels/depclean/pkg/usage"
)

// TargetKind tells source files and manifests apart.
type TargetKind string

const (
	KindSource   TargetKind = "source"
	KindManifest TargetKind = "manifest"
)

// Op is the shape of an edit.
type Op string

const (
	// OpDeleteLines removes whole lines Line..EndLine, newline included.
	OpDeleteLines Op = "delete_lines"
	// OpReplace replaces bytes Start..End with Text.
	OpReplace Op = "replace"
)

// Edit is one change to a target.
type Edit struct {
	Op      Op     `json:"op" yaml:"op"`
	Line    int    `json:"line" yaml:"line"`
	EndLine int    `json:"end_line" yaml:"end_line"`
	Start   int    `json:"start,omitempty" yaml:"start,omitempty"`
	End     int    `json:"end,omitempty" yaml:"end,omitempty"`
	Text    string `json:"text,omitempty" yaml:"text,omitempty"`
	Summary string `json:"summary" yaml:"summary"`
}

// Target is a file to rewrite.
type Target struct {
	Path string     `json:"path" yaml:"path"`
	Kind TargetKind `json:"kind" yaml:"kind"`
	// Hash is the content hash the edits were computed against.
	Hash  string `json:"hash" yaml:"hash"`
	Edits []Edit `json:"edits" yaml:"edits"`

	Imports  int      `json:"imports,omitempty" yaml:"imports,omitempty"`
	Packages []string `json:"packages,omitempty" yaml:"packages,omitempty"`
}

// ManualAction is a finding the plan cannot fix automatically.
type ManualAction struct {
	Path   string `json:"path" yaml:"path"`
	Line   int    `json:"line,omitempty" yaml:"line,omitempty"`
	Reason string `json:"reason" yaml:"reason"`
}

// Plan is the set of edits derived from one report.
type Plan struct {
	Root    string         `json:"root" yaml:"root"`
	Targets []Target       `json:"targets" yaml:"targets"`
	Manual  []ManualAction `json:"manual,omitempty" yaml:"manual,omitempty"`
}

// Empty reports whether the plan changes nothing.
func (p *Plan) Empty() bool { return len(p.Targets) == 0 }

// PlanOptions selects what a plan covers.
type PlanOptions struct {
	// Pattern is a doublestar glob matched against root-relative source
	// paths. Empty matches everything.
	Pattern string
	// Manifests adds removal of unused package entries.
	Manifests bool
}

// BuildPlan computes the edits that remove every unused import in r and,
// when requested, every removable unused manifest entry.
func BuildPlan(r *report.Report, opts PlanOptions) (*Plan, error) {
	if opts.Pattern != "" {
		if _, err := doublestar.Match(opts.Pattern, ""); err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", opts.Pattern, err)
		}
	}

	p := &Plan{Root: r.Root}
	for _, fi := range r.UnusedImports {
		if opts.Pattern != "" {
			if ok, _ := doublestar.Match(opts.Pattern, fi.Path); !ok {
				continue
			}
		}
		f := r.File(fi.Path)
		if f == nil {
			continue
		}
		if !f.Editable() {
			p.Manual = append(p.Manual, ManualAction{
				Path:   f.Path,
				Reason: fmt.Sprintf("%s encoded file cannot be rewritten; remove %d unused import(s) by hand", f.Encoding, fi.Count()),
			})
			continue
		}
		if t, ok := sourceTarget(f, fi.Imports); ok {
			p.Targets = append(p.Targets, t)
		}
	}

	if opts.Manifests {
		p.Targets = append(p.Targets, manifestTargets(r, p)...)
	}

	sort.SliceStable(p.Targets, func(i, j int) bool { return p.Targets[i].Path < p.Targets[j].Path })
	sort.SliceStable(p.Manual, func(i, j int) bool {
		if p.Manual[i].Path != p.Manual[j].Path {
			return p.Manual[i].Path < p.Manual[j].Path
		}
		return p.Manual[i].Line < p.Manual[j].Line
	})
	return p, nil
}

// sourceTarget groups the unused declarations of f by statement and emits
// one edit per affected statement.
func sourceTarget(f *scan.FileAnalysis, unused []usage.UnusedImport) (Target, bool) {
	drop := make(map[int]map[string]bool) // import index -> unused bindings
	for _, u := range unused {
		if drop[u.Index] == nil {
			drop[u.Index] = make(map[string]bool)
		}
		for _, b := range u.Bindings {
			drop[u.Index][b] = true
		}
	}

	byStmt := make(map[int][]int)
	for i, imp := range f.Imports {
		byStmt[imp.Stmt] = append(byStmt[imp.Stmt], i)
	}

	type change struct {
		stmt          int
		kept, removed []string
	}
	var changes []change
	var whole []int
	for stmt := range f.Statements {
		decls := byStmt[stmt]
		touched := false
		for _, i := range decls {
			if len(drop[i]) > 0 {
				touched = true
			}
		}
		if !touched {
			continue
		}

		var kept []string
		var removed []string
		for _, i := range decls {
			imp := f.Imports[i]
			if imp.Kind == pyast.KindModule {
				if drop[i][imp.Binding()] {
					removed = append(removed, imp.Binding())
					continue
				}
				kept = append(kept, moduleClause(imp))
				continue
			}
			var names []pyast.Name
			for _, n := range imp.Names {
				if drop[i][n.Binding()] {
					removed = append(removed, n.Binding())
					continue
				}
				names = append(names, n)
			}
			if len(names) > 0 || imp.Star {
				kept = append(kept, pyast.FormatFrom(imp, names))
			}
		}
		if len(removed) == 0 {
			continue
		}
		changes = append(changes, change{stmt: stmt, kept: kept, removed: removed})
		if len(kept) == 0 {
			whole = append(whole, stmt)
		}
	}

	pass := pyast.PassNeeded(f.Statements, whole)
	t := Target{Path: f.Path, Kind: KindSource, Hash: f.Fingerprint.Hash}
	for _, c := range changes {
		t.Imports += len(c.removed)
		t.Edits = append(t.Edits, statementEdit(f.Statements[c.stmt], c.kept, c.removed, pass[c.stmt]))
	}
	return t, len(t.Edits) > 0
}

// statementEdit rewrites a statement to its kept clauses, or removes it.
// A removed statement becomes "pass" when its block or line needs one.
func statementEdit(st pyast.Statement, kept, removed []string, pass bool) Edit {
	summary := "remove unused " + strings.Join(removed, ", ")
	switch {
	case len(kept) > 0:
		return Edit{Op: OpReplace, Line: st.Line, EndLine: st.EndLine, Start: st.Start, End: st.End, Text: joinKept(kept), Summary: summary}
	case pass:
		return Edit{Op: OpReplace, Line: st.Line, EndLine: st.EndLine, Start: st.Start, End: st.End, Text: "pass", Summary: summary}
	}
	return Edit{Op: OpDeleteLines, Line: st.Line, EndLine: st.EndLine, Summary: summary}
}

func moduleClause(imp pyast.Import) string {
	if imp.Alias != "" {
		return imp.Module + " as " + imp.Alias
	}
	return imp.Module
}

// joinKept renders the surviving part of a statement. Module clauses of an
// "import a, b" statement share one "import" keyword.
func joinKept(kept []string) string {
	if strings.HasPrefix(kept[0], "from ") {
		return kept[0]
	}
	return "import " + strings.Join(kept, ", ")
}

func manifestTargets(r *report.Report, p *Plan) []Target {
	hashes := make(map[string]string)
	for _, m := range r.Manifests {
		for path, h := range m.Hashes {
			hashes[path] = h
		}
	}

	byPath := make(map[string]*Target)
	var order []string
	for _, pkg := range r.UnusedPackages {
		e := pkg.Entry
		if !e.Removable || e.Locked {
			p.Manual = append(p.Manual, ManualAction{
				Path:   e.Manifest,
				Line:   e.Line,
				Reason: fmt.Sprintf("remove %s by hand", pkg.Name),
			})
			continue
		}
		t := byPath[e.Manifest]
		if t == nil {
			t = &Target{Path: e.Manifest, Kind: KindManifest, Hash: hashes[e.Manifest]}
			byPath[e.Manifest] = t
			order = append(order, e.Manifest)
		}
		t.Packages = append(t.Packages, pkg.Name)
		t.Edits = append(t.Edits, Edit{
			Op:      OpDeleteLines,
			Line:    e.Line,
			EndLine: e.EndLine,
			Summary: "remove unused package " + pkg.Name,
		})
	}

	out := make([]Target, 0, len(order))
	for _, path := range order {
		out = append(out, *byPath[path])
	}
	return out
}
