package report

import (
	"fmt"
	"math"
)

// Health summarizes dependency hygiene as a 0-100 score.
type Health struct {
	Score           int      `json:"score" yaml:"score"`
	Grade           string   `json:"grade" yaml:"grade"`
	Recommendations []string `json:"recommendations" yaml:"recommendations"`
}

// ComputeHealth scores r from its Counts:
//
//	100 - min(30, 50*unusedImportRatio) - min(30, 50*unusedPackageRatio) - min(40, 5*missing)
//
// rounded half to even and clamped at zero.
func ComputeHealth(r *Report) Health {
	c := r.Counts
	score := 100.0
	if c.Imports > 0 {
		score -= math.Min(30, float64(c.UnusedImports)/float64(c.Imports)*50)
	}
	if c.Declared > 0 {
		score -= math.Min(30, float64(c.UnusedPackages)/float64(c.Declared)*50)
	}
	score -= math.Min(40, float64(c.Missing)*5)

	s := max(0, int(math.RoundToEven(score)))
	return Health{
		Score:           s,
		Grade:           Grade(s),
		Recommendations: recommendations(c),
	}
}

// Grade maps a score to a letter.
func Grade(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	}
	return "F"
}

func recommendations(c Counts) []string {
	var out []string
	if c.UnusedImports > 0 {
		out = append(out, fmt.Sprintf("Remove %d unused import(s) with 'depclean fix'", c.UnusedImports))
	}
	if c.UnusedPackages > 0 {
		out = append(out, fmt.Sprintf("Remove %d unused package(s) from dependencies", c.UnusedPackages))
	}
	if c.Missing > 0 {
		out = append(out, fmt.Sprintf("Add %d missing package(s) to your dependency file", c.Missing))
	}
	if c.Duplicates > 0 {
		out = append(out, fmt.Sprintf("Merge %d duplicate declaration(s)", c.Duplicates))
	}
	if c.Unparseable > 0 {
		out = append(out, fmt.Sprintf("Fix syntax errors in %d file(s); they were not analyzed", c.Unparseable))
	}
	if len(out) == 0 {
		out = append(out, "Great job! Your dependencies are clean and healthy.")
	}
	return out
}
