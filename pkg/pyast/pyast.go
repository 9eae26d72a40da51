package pyast

import (
	"context"
	"fmt"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Kind classifies an import declaration.
type Kind string

const (
	KindModule    Kind = "module"    // import a.b [as c]
	KindSelective Kind = "selective" // from m import x [as y]
	KindFuture    Kind = "future"    // from __future__ import x
)

// Name is one name of a selective import.
type Name struct {
	Name  string `json:"name" yaml:"name"`
	Alias string `json:"alias,omitempty" yaml:"alias,omitempty"`
}

// Binding returns the local name the import introduces.
func (n Name) Binding() string {
	if n.Alias != "" {
		return n.Alias
	}
	return n.Name
}

// Import is one import declaration. "import a, b" yields two declarations
// sharing the same Stmt.
type Import struct {
	Module string `json:"module" yaml:"module"`
	Level  int    `json:"level,omitempty" yaml:"level,omitempty"`
	Kind   Kind   `json:"kind" yaml:"kind"`
	// Alias is the "as" name of a whole-module import.
	Alias string `json:"alias,omitempty" yaml:"alias,omitempty"`
	// Names lists the imported names of a selective import.
	Names   []Name `json:"names,omitempty" yaml:"names,omitempty"`
	Star    bool   `json:"star,omitempty" yaml:"star,omitempty"`
	Line    int    `json:"line" yaml:"line"`
	EndLine int    `json:"end_line" yaml:"end_line"`
	// Offset is the byte offset of the statement start.
	Offset int `json:"offset" yaml:"offset"`
	// Stmt indexes File.Statements.
	Stmt int `json:"stmt" yaml:"stmt"`
}

// Binding returns the local name of a whole-module import: the alias when
// present, otherwise the first dotted segment.
func (i Import) Binding() string {
	if i.Alias != "" {
		return i.Alias
	}
	return RootModule(i.Module)
}

// Bindings returns every local name the declaration introduces.
func (i Import) Bindings() []string {
	if i.Kind == KindModule {
		return []string{i.Binding()}
	}
	out := make([]string, 0, len(i.Names))
	for _, n := range i.Names {
		out = append(out, n.Binding())
	}
	return out
}

// Relative reports whether the import is relative to the current package.
func (i Import) Relative() bool { return i.Level > 0 }

// Root returns the first segment of the imported module, or "" for relative
// imports.
func (i Import) Root() string {
	if i.Relative() {
		return ""
	}
	return RootModule(i.Module)
}

// String renders the declaration in Python syntax.
func (i Import) String() string {
	switch i.Kind {
	case KindModule:
		if i.Alias != "" {
			return "import " + i.Module + " as " + i.Alias
		}
		return "import " + i.Module
	default:
		return FormatFrom(i, i.Names)
	}
}

// FormatFrom renders "from <module> import <names>" on one line.
func FormatFrom(i Import, names []Name) string {
	var b strings.Builder
	b.WriteString("from ")
	b.WriteString(strings.Repeat(".", i.Level))
	b.WriteString(i.Module)
	b.WriteString(" import ")
	if i.Star {
		b.WriteString("*")
		return b.String()
	}
	for k, n := range names {
		if k > 0 {
			b.WriteString(", ")
		}
		b.WriteString(n.Name)
		if n.Alias != "" {
			b.WriteString(" as ")
			b.WriteString(n.Alias)
		}
	}
	return b.String()
}

// Statement is the span of one import statement.
type Statement struct {
	Start   int `json:"start" yaml:"start"`
	End     int `json:"end" yaml:"end"`
	Line    int `json:"line" yaml:"line"`
	EndLine int `json:"end_line" yaml:"end_line"`
	// Block is the offset of the enclosing indented block, 0 at module level.
	Block int `json:"block,omitempty" yaml:"block,omitempty"`
	// Siblings counts the non-comment statements of Block, this one included.
	Siblings int `json:"siblings,omitempty" yaml:"siblings,omitempty"`
	// SharesLine is set when another statement or a block header sits on
	// one of the statement's lines.
	SharesLine bool `json:"shares_line,omitempty" yaml:"shares_line,omitempty"`
	// TopLevel is set for statements outside any function or class body.
	TopLevel bool `json:"top_level,omitempty" yaml:"top_level,omitempty"`
}

// PassNeeded returns which of the removed statements must be replaced by
// "pass" rather than deleted: those sharing a line with other code, and the
// last removed statement of every block that would otherwise be left empty.
// removed indexes stmts and lists statements that go away entirely.
func PassNeeded(stmts []Statement, removed []int) map[int]bool {
	out := make(map[int]bool)
	gone := make(map[int]int) // block -> removed statements
	last := make(map[int]int) // block -> last removed statement
	for _, i := range removed {
		st := stmts[i]
		if st.SharesLine {
			out[i] = true
			continue
		}
		if st.Block == 0 {
			continue
		}
		gone[st.Block]++
		if j, ok := last[st.Block]; !ok || stmts[j].Start < st.Start {
			last[st.Block] = i
		}
	}
	for block, n := range gone {
		if i := last[block]; n == stmts[i].Siblings {
			out[i] = true
		}
	}
	return out
}

// Ref is a read of a name.
type Ref struct {
	Name   string `json:"name" yaml:"name"`
	Line   int    `json:"line" yaml:"line"`
	Offset int    `json:"offset" yaml:"offset"`
	// Attr is set when the name heads an attribute access (name.attr).
	Attr bool `json:"attr,omitempty" yaml:"attr,omitempty"`
}

// Shadow is a module-level rebinding of a name.
type Shadow struct {
	Name   string `json:"name" yaml:"name"`
	Line   int    `json:"line" yaml:"line"`
	Offset int    `json:"offset" yaml:"offset"`
}

// File is the extraction result for one source file.
type File struct {
	Path       string      `json:"path" yaml:"path"`
	Encoding   string      `json:"encoding" yaml:"encoding"`
	Imports    []Import    `json:"imports" yaml:"imports"`
	Statements []Statement `json:"statements" yaml:"statements"`
	Refs       []Ref       `json:"refs" yaml:"refs"`
	Exports    []Ref       `json:"exports,omitempty" yaml:"exports,omitempty"`
	StringRefs []Ref       `json:"string_refs,omitempty" yaml:"string_refs,omitempty"`
	Shadows    []Shadow    `json:"shadows,omitempty" yaml:"shadows,omitempty"`
}

// Editable reports whether byte offsets in f refer to the raw file content.
func (f *File) Editable() bool {
	return f.Encoding == EncodingUTF8 || f.Encoding == EncodingUTF8BOM
}

// ParseError describes a file that could not be analyzed.
type ParseError struct {
	Path   string
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

var parsers = sync.Pool{
	New: func() any {
		p := sitter.NewParser()
		p.SetLanguage(python.GetLanguage())
		return p
	},
}

// ParseTree parses src with the Python grammar. The caller must Close the
// returned tree.
func ParseTree(ctx context.Context, src []byte) (*sitter.Tree, error) {
	p := parsers.Get().(*sitter.Parser)
	defer parsers.Put(p)
	tree, err := p.ParseCtx(ctx, nil, src)
	if err != nil {
		p.Reset()
		return nil, err
	}
	return tree, nil
}

// Parse extracts imports and references from src.
func Parse(path string, src []byte) (*File, error) {
	return ParseContext(context.Background(), path, src)
}

// ParseContext is Parse with a context that aborts long parses.
func ParseContext(ctx context.Context, path string, src []byte) (*File, error) {
	text, enc, base, err := Decode(src)
	if err != nil {
		return nil, &ParseError{Path: path, Reason: err.Error()}
	}

	tree, err := ParseTree(ctx, text)
	if err != nil {
		return nil, &ParseError{Path: path, Reason: err.Error()}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		line, reason := firstError(root)
		return nil, &ParseError{Path: path, Line: line, Reason: reason}
	}

	w := &walker{src: text, base: base, file: &File{Path: path, Encoding: enc}}
	w.walk(root, false)
	return w.file, nil
}

// firstError locates the first ERROR or MISSING node in document order.
func firstError(n *sitter.Node) (int, string) {
	if n.IsMissing() {
		return int(n.StartPoint().Row) + 1, "missing " + n.Type()
	}
	if n.Type() == "ERROR" {
		return int(n.StartPoint().Row) + 1, "syntax error"
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c != nil && (c.HasError() || c.IsMissing()) {
			return firstError(c)
		}
	}
	return int(n.StartPoint().Row) + 1, "syntax error"
}

// RootModule returns the first dotted segment of module.
func RootModule(module string) string {
	if i := strings.IndexByte(module, '.'); i >= 0 {
		return module[:i]
	}
	return module
}
