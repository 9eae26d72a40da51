package report

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
)

// ToDOT renders the package usage graph: one node per distribution or
// undeclared import root, one node per file, and an edge from each file
// to what it uses. Unused declared packages appear as isolated red nodes
// and undeclared imports as orange ones.
func ToDOT(r *Report) string {
	var buf bytes.Buffer
	buf.WriteString("digraph depclean {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontname=\"Helvetica\"];\n")
	buf.WriteString("\n")

	files := make(map[string]bool)
	for _, u := range r.Usage {
		for _, f := range u.Files {
			files[f] = true
		}
	}
	for _, f := range sortedSet(files) {
		fmt.Fprintf(&buf, "  %q [shape=note, fillcolor=\"#f4f4f4\"];\n", f)
	}

	buf.WriteString("\n")
	for _, u := range r.Usage {
		fill := "\"#d9f2e6\""
		if !u.Declared {
			fill = "\"#ffd8a8\""
		}
		fmt.Fprintf(&buf, "  %q [label=%q, fillcolor=%s];\n", "pkg:"+u.Package, u.Package, fill)
	}
	for _, p := range r.UnusedPackages {
		fmt.Fprintf(&buf, "  %q [label=%q, fillcolor=\"#ffc9c9\", style=\"rounded,filled,dashed\"];\n", "pkg:"+p.Name, p.Name)
	}

	buf.WriteString("\n")
	for _, u := range r.Usage {
		for _, f := range u.Files {
			fmt.Fprintf(&buf, "  %q -> %q;\n", f, "pkg:"+u.Package)
		}
	}
	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
