package report

import (
	"math"

	"github.com/matzehuels/depclean/pkg/pyast"
)

// Impact estimates what a full cleanup would change.
type Impact struct {
	TotalFiles      int      `json:"total_files" yaml:"total_files"`
	FilesAffected   int      `json:"files_affected" yaml:"files_affected"`
	TotalImports    int      `json:"total_imports" yaml:"total_imports"`
	UnusedImports   int      `json:"unused_imports" yaml:"unused_imports"`
	UnusedPackages  int      `json:"unused_packages" yaml:"unused_packages"`
	CleanupPercent  float64  `json:"cleanup_percentage" yaml:"cleanup_percentage"`
	LinesSaved      int      `json:"estimated_lines_saved" yaml:"estimated_lines_saved"`
	AffectedFiles   []string `json:"affected_files,omitempty" yaml:"affected_files,omitempty"`
	ManifestsEdited int      `json:"manifests_affected" yaml:"manifests_affected"`
}

// EstimateImpact derives the cleanup estimate from r. Whole unused
// statements save their line span; partially unused ones save nothing.
func EstimateImpact(r *Report) Impact {
	c := r.Counts
	im := Impact{
		TotalFiles:     c.Files,
		TotalImports:   c.Imports,
		UnusedImports:  c.UnusedImports,
		UnusedPackages: c.UnusedPackages,
	}
	if c.Imports > 0 {
		im.CleanupPercent = math.Round(float64(c.UnusedImports)/float64(c.Imports)*10000) / 100
	}

	for _, fi := range r.UnusedImports {
		im.AffectedFiles = append(im.AffectedFiles, fi.Path)
		f := r.File(fi.Path)
		if f == nil {
			continue
		}
		whole := make(map[int]int) // statement -> removable declarations
		for _, u := range fi.Imports {
			if u.Whole {
				whole[f.Imports[u.Index].Stmt]++
			}
		}
		var removed []int
		for stmt, n := range whole {
			if n == declarationsIn(f.Imports, stmt) {
				removed = append(removed, stmt)
			}
		}
		pass := pyast.PassNeeded(f.Statements, removed)
		for _, stmt := range removed {
			im.LinesSaved += linesSaved(f.Statements[stmt], pass[stmt])
		}
	}
	im.FilesAffected = len(im.AffectedFiles)

	manifests := make(map[string]bool)
	for _, p := range r.UnusedPackages {
		if p.Entry.Removable {
			im.LinesSaved += p.Entry.EndLine - p.Entry.Line + 1
			manifests[p.Entry.Manifest] = true
		}
	}
	im.ManifestsEdited = len(manifests)
	return im
}

func declarationsIn(imports []pyast.Import, stmt int) int {
	n := 0
	for _, imp := range imports {
		if imp.Stmt == stmt {
			n++
		}
	}
	return n
}

// linesSaved is the line count a deleted statement frees. Statements that
// must become "pass" keep one line.
func linesSaved(st pyast.Statement, pass bool) int {
	n := st.EndLine - st.Line + 1
	if pass {
		n--
	}
	return n
}
