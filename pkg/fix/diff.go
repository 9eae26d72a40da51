package fix

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const diffContext = 3

type diffLine struct {
	op   diffmatchpatch.Operation
	text string
}

// UnifiedDiff renders the line difference between before and after in
// unified format. It returns "" when the contents are equal.
func UnifiedDiff(path string, before, after []byte) string {
	if string(before) == string(after) {
		return ""
	}
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(string(before), string(after))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var ls []diffLine
	for _, d := range diffs {
		for _, l := range strings.SplitAfter(d.Text, "\n") {
			if l == "" {
				continue
			}
			ls = append(ls, diffLine{d.Type, strings.TrimSuffix(l, "\n")})
		}
	}

	var out strings.Builder
	fmt.Fprintf(&out, "--- a/%s\n+++ b/%s\n", path, path)
	for i := 0; i < len(ls); {
		for i < len(ls) && ls[i].op == diffmatchpatch.DiffEqual {
			i++
		}
		if i == len(ls) {
			break
		}
		start := max(0, i-diffContext)
		end := i
		for end < len(ls) {
			if ls[end].op != diffmatchpatch.DiffEqual {
				end++
				continue
			}
			run := end
			for run < len(ls) && ls[run].op == diffmatchpatch.DiffEqual {
				run++
			}
			if run == len(ls) || run-end > 2*diffContext {
				end = min(len(ls), end+diffContext)
				break
			}
			end = run
		}
		writeHunk(&out, ls, start, end)
		i = end
	}
	return out.String()
}

func writeHunk(out *strings.Builder, ls []diffLine, start, end int) {
	oldLine, newLine := 0, 0
	for _, l := range ls[:start] {
		if l.op != diffmatchpatch.DiffInsert {
			oldLine++
		}
		if l.op != diffmatchpatch.DiffDelete {
			newLine++
		}
	}
	oldCount, newCount := 0, 0
	for _, l := range ls[start:end] {
		if l.op != diffmatchpatch.DiffInsert {
			oldCount++
		}
		if l.op != diffmatchpatch.DiffDelete {
			newCount++
		}
	}
	fmt.Fprintf(out, "@@ -%s +%s @@\n", hunkRange(oldLine, oldCount), hunkRange(newLine, newCount))
	for _, l := range ls[start:end] {
		switch l.op {
		case diffmatchpatch.DiffDelete:
			out.WriteString("-")
		case diffmatchpatch.DiffInsert:
			out.WriteString("+")
		default:
			out.WriteString(" ")
		}
		out.WriteString(l.text)
		out.WriteString("\n")
	}
}

func hunkRange(before, count int) string {
	if count == 0 {
		return fmt.Sprintf("%d,0", before)
	}
	return fmt.Sprintf("%d,%d", before+1, count)
}
