package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/matzehuels/depclean/pkg/pyast"
	"github.com/matzehuels/depclean/pkg/scan"
	"github.com/matzehuels/depclean/pkg/usage"
)

type textStyles struct {
	title, dim, good, warn, bad, value lipgloss.Style
}

func newTextStyles(color bool) textStyles {
	if !color {
		plain := lipgloss.NewStyle()
		return textStyles{plain, plain, plain, plain, plain, plain}
	}
	return textStyles{
		title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("36")),
		dim:   lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		good:  lipgloss.NewStyle().Foreground(lipgloss.Color("35")),
		warn:  lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		bad:   lipgloss.NewStyle().Foreground(lipgloss.Color("167")),
		value: lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
	}
}

func (s textStyles) grade(g string) lipgloss.Style {
	switch g {
	case "A", "B":
		return s.good
	case "C", "D":
		return s.warn
	}
	return s.bad
}

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.SeparateHeader = true
	return tbl
}

// WriteText renders a human-readable report.
func WriteText(w io.Writer, r *Report, opts TextOptions) error {
	st := newTextStyles(opts.Color)
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", st.title.Render("depclean report"), st.dim.Render(r.Root))
	fmt.Fprintf(&b, "Health: %s %s\n\n",
		st.grade(r.Health.Grade).Render(fmt.Sprintf("%d/100", r.Health.Score)),
		st.grade(r.Health.Grade).Render("("+r.Health.Grade+")"))

	summary := newTable()
	summary.AppendHeader(table.Row{"Metric", "Count"})
	c := r.Counts
	for _, row := range []struct {
		name string
		n    int
	}{
		{"Python files", c.Files},
		{"Unparseable files", c.Unparseable},
		{"Skipped files", c.Skipped},
		{"Imported names", c.Imports},
		{"Unused imports", c.UnusedImports},
		{"Declared packages", c.Declared},
		{"Unused packages", c.UnusedPackages},
		{"Missing packages", c.Missing},
		{"Duplicate declarations", c.Duplicates},
	} {
		summary.AppendRow(table.Row{row.name, row.n})
	}
	b.WriteString(summary.Render())
	b.WriteString("\n")

	if len(r.UnusedImports) > 0 {
		section(&b, st, fmt.Sprintf("Unused imports (%d in %d files)", c.UnusedImports, len(r.UnusedImports)))
		for _, fi := range r.UnusedImports {
			if !opts.Detailed {
				fmt.Fprintf(&b, "  %s %s\n", fi.Path, st.dim.Render(fmt.Sprintf("(%d)", fi.Count())))
				continue
			}
			f := r.File(fi.Path)
			for _, u := range fi.Imports {
				fmt.Fprintf(&b, "  %s:%d  %s\n", fi.Path, u.Line, st.warn.Render(describeUnused(f, u)))
			}
		}
	}

	if len(r.UnusedPackages) > 0 {
		section(&b, st, fmt.Sprintf("Unused packages (%d)", len(r.UnusedPackages)))
		tbl := newTable()
		tbl.AppendHeader(table.Row{"Package", "Manifest", "Line", "Group", "Auto-fix"})
		for _, p := range r.UnusedPackages {
			fix := "yes"
			if !p.Entry.Removable {
				fix = "manual"
			}
			tbl.AppendRow(table.Row{p.Name, p.Entry.Manifest, p.Entry.Line, p.Entry.Group, fix})
		}
		b.WriteString(indent(tbl.Render()))
		b.WriteString("\n")
	}

	if len(r.MissingPackages) > 0 {
		section(&b, st, fmt.Sprintf("Missing packages (%d)", len(r.MissingPackages)))
		for _, m := range r.MissingPackages {
			line := "  " + st.bad.Render(m.Module)
			if len(m.Suggestions) > 0 {
				line += " " + st.dim.Render("provided by "+strings.Join(m.Suggestions, ", "))
			}
			if m.Locked {
				line += " " + st.dim.Render("(locked transitively)")
			}
			b.WriteString(line + "\n")
			if opts.Detailed {
				for _, f := range m.Files {
					fmt.Fprintf(&b, "    %s\n", st.dim.Render(f))
				}
			}
		}
	}

	if len(r.Duplicates) > 0 {
		section(&b, st, fmt.Sprintf("Duplicate declarations (%d)", len(r.Duplicates)))
		for _, d := range r.Duplicates {
			fmt.Fprintf(&b, "  %s: %s\n", d.Canonical, strings.Join(d.Names, ", "))
		}
	}

	if len(r.Unparseable) > 0 {
		section(&b, st, fmt.Sprintf("Unparseable files (%d)", len(r.Unparseable)))
		for _, e := range r.Unparseable {
			fmt.Fprintf(&b, "  %s:%d %s\n", e.Path, e.Line, st.dim.Render(e.Reason))
		}
	}
	if len(r.Skipped) > 0 {
		section(&b, st, fmt.Sprintf("Skipped files (%d)", len(r.Skipped)))
		for _, sk := range r.Skipped {
			fmt.Fprintf(&b, "  %s %s\n", sk.Path, st.dim.Render(skipDetail(sk)))
		}
	}
	if len(r.ManifestWarnings) > 0 {
		section(&b, st, "Manifest warnings")
		for _, wmsg := range r.ManifestWarnings {
			fmt.Fprintf(&b, "  %s\n", st.warn.Render(wmsg))
		}
	}

	section(&b, st, "Recommendations")
	for _, rec := range r.Health.Recommendations {
		fmt.Fprintf(&b, "  • %s\n", rec)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func section(b *strings.Builder, st textStyles, title string) {
	fmt.Fprintf(b, "\n%s\n", st.title.Render(title))
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}

func skipDetail(sk scan.Skipped) string {
	switch {
	case sk.Size > 0:
		return fmt.Sprintf("(%s, %s)", sk.Reason, humanize.IBytes(uint64(sk.Size)))
	case sk.Detail != "":
		return fmt.Sprintf("(%s: %s)", sk.Reason, sk.Detail)
	}
	return "(" + sk.Reason + ")"
}

// describeUnused renders the unused part of an import declaration.
func describeUnused(f *scan.FileAnalysis, u usage.UnusedImport) string {
	if f == nil || u.Index >= len(f.Imports) {
		return strings.Join(u.Names, ", ")
	}
	imp := f.Imports[u.Index]
	if imp.Kind == pyast.KindModule || u.Whole {
		return imp.String()
	}
	unused := make(map[string]bool, len(u.Bindings))
	for _, b := range u.Bindings {
		unused[b] = true
	}
	var names []pyast.Name
	for _, n := range imp.Names {
		if unused[n.Binding()] {
			names = append(names, n)
		}
	}
	return pyast.FormatFrom(imp, names)
}

func sortedSet(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
