package pyast

import (
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

type walker struct {
	src  []byte
	base int
	file *File
}

func (w *walker) offset(n *sitter.Node) int { return int(n.StartByte()) + w.base }
func (w *walker) line(n *sitter.Node) int   { return int(n.StartPoint().Row) + 1 }
func (w *walker) text(n *sitter.Node) string {
	return n.Content(w.src)
}

// walk visits n. nested is set inside function and class bodies.
func (w *walker) walk(n *sitter.Node, nested bool) {
	w.visit(n, nested, false)
}

func (w *walker) visit(n *sitter.Node, nested, anno bool) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "import_statement", "import_from_statement", "future_import_statement":
		w.importStatement(n, nested)
		return

	case "comment", "global_statement", "nonlocal_statement":
		return

	case "identifier":
		w.identifier(n)
		return

	case "function_definition", "class_definition":
		if name := n.ChildByFieldName("name"); name != nil && !nested {
			w.shadow(name)
		}
		body := n.ChildByFieldName("body")
		ret := n.ChildByFieldName("return_type")
		w.eachChild(n, func(c *sitter.Node) {
			switch {
			case sameNode(c, body):
				w.visit(c, true, false)
			case sameNode(c, ret):
				w.visit(c, nested, true)
			default:
				w.visit(c, nested, anno)
			}
		})
		return

	case "parameters", "lambda_parameters":
		w.eachChild(n, func(c *sitter.Node) { w.parameter(c, nested) })
		return

	case "assignment":
		left := n.ChildByFieldName("left")
		if !nested && left != nil && left.Type() == "identifier" && w.text(left) == "__all__" {
			w.exports(n.ChildByFieldName("right"))
		}
		w.targets(left, nested, true)
		w.visit(n.ChildByFieldName("type"), nested, true)
		w.visit(n.ChildByFieldName("right"), nested, anno)
		return

	case "augmented_assignment":
		left := n.ChildByFieldName("left")
		if !nested && left != nil && left.Type() == "identifier" && w.text(left) == "__all__" {
			w.exports(n.ChildByFieldName("right"))
		}

	case "expression_statement":
		if !nested {
			w.allMutation(n)
		}

	case "for_statement":
		left := n.ChildByFieldName("left")
		w.targets(left, nested, true)
		w.eachChild(n, func(c *sitter.Node) {
			if !sameNode(c, left) {
				w.visit(c, nested, anno)
			}
		})
		return

	case "for_in_clause":
		left := n.ChildByFieldName("left")
		w.targets(left, nested, false)
		w.eachChild(n, func(c *sitter.Node) {
			if !sameNode(c, left) {
				w.visit(c, nested, anno)
			}
		})
		return

	case "as_pattern_target":
		w.targets(n.NamedChild(0), nested, true)
		return

	case "named_expression":
		w.visit(n.ChildByFieldName("value"), nested, anno)
		return

	case "keyword_argument":
		w.visit(n.ChildByFieldName("value"), nested, anno)
		return

	case "attribute":
		obj := n.ChildByFieldName("object")
		if obj != nil && obj.Type() == "identifier" {
			w.addRef(obj, true)
		} else {
			w.visit(obj, nested, anno)
		}
		return

	case "dotted_name":
		// Only reachable outside imports in older grammars (decorators).
		if first := n.NamedChild(0); first != nil && first.Type() == "identifier" {
			w.addRef(first, n.NamedChildCount() > 1)
		}
		return

	case "type":
		anno = true

	case "string":
		if anno {
			w.stringAnnotation(n)
		}
	}

	w.eachChild(n, func(c *sitter.Node) { w.visit(c, nested, anno) })
}

func (w *walker) eachChild(n *sitter.Node, fn func(*sitter.Node)) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c != nil {
			fn(c)
		}
	}
}

// identifier handles a bare identifier reached through the generic walk.
func (w *walker) identifier(n *sitter.Node) {
	if p := n.Parent(); p != nil {
		switch p.Type() {
		case "keyword_argument", "function_definition", "class_definition",
			"default_parameter", "typed_default_parameter":
			if sameNode(p.ChildByFieldName("name"), n) {
				return
			}
		case "typed_parameter", "list_splat_pattern", "dictionary_splat_pattern":
			return
		}
	}
	w.addRef(n, false)
}

func (w *walker) parameter(n *sitter.Node, nested bool) {
	switch n.Type() {
	case "identifier", "list_splat_pattern", "dictionary_splat_pattern", "keyword_separator", "positional_separator":
		return
	case "default_parameter":
		w.visit(n.ChildByFieldName("value"), nested, false)
	case "typed_default_parameter":
		w.visit(n.ChildByFieldName("type"), nested, true)
		w.visit(n.ChildByFieldName("value"), nested, false)
	case "typed_parameter":
		w.visit(n.ChildByFieldName("type"), nested, true)
	default:
		w.visit(n, nested, false)
	}
}

// targets handles the left side of a binding. Plain names are writes; the
// objects of attribute and subscript targets are reads.
func (w *walker) targets(n *sitter.Node, nested, shadow bool) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "identifier":
		if shadow && !nested {
			w.shadow(n)
		}
	case "pattern_list", "tuple_pattern", "list_pattern", "tuple", "list",
		"parenthesized_expression", "list_splat_pattern", "list_splat":
		w.eachChild(n, func(c *sitter.Node) { w.targets(c, nested, shadow) })
	default:
		w.visit(n, nested, false)
	}
}

func (w *walker) addRef(n *sitter.Node, attr bool) {
	w.file.Refs = append(w.file.Refs, Ref{
		Name:   w.text(n),
		Line:   w.line(n),
		Offset: w.offset(n),
		Attr:   attr,
	})
}

func (w *walker) shadow(n *sitter.Node) {
	w.file.Shadows = append(w.file.Shadows, Shadow{
		Name:   w.text(n),
		Line:   w.line(n),
		Offset: w.offset(n),
	})
}

// exports collects string literals from an __all__ value.
func (w *walker) exports(n *sitter.Node) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "string", "concatenated_string":
		if s, ok := StringValue(n, w.src); ok {
			w.file.Exports = append(w.file.Exports, Ref{Name: s, Line: w.line(n), Offset: w.offset(n)})
		}
	case "list", "tuple", "binary_operator", "parenthesized_expression", "set":
		w.eachChild(n, w.exports)
	}
}

// allMutation recognizes __all__.extend([...]) and __all__.append("x").
func (w *walker) allMutation(stmt *sitter.Node) {
	call := stmt.NamedChild(0)
	if call == nil || call.Type() != "call" {
		return
	}
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Type() != "attribute" {
		return
	}
	obj, attr := fn.ChildByFieldName("object"), fn.ChildByFieldName("attribute")
	if obj == nil || attr == nil || w.text(obj) != "__all__" {
		return
	}
	switch w.text(attr) {
	case "extend", "append":
		if args := call.ChildByFieldName("arguments"); args != nil {
			w.eachChild(args, w.exports)
		}
	}
}

var annotationNameRE = regexp.MustCompile(`(?:^|[^.\w])([A-Za-z_]\w*)`)

// stringAnnotation records the names a string annotation mentions, taking
// only the head of each dotted name.
func (w *walker) stringAnnotation(n *sitter.Node) {
	s, ok := StringValue(n, w.src)
	if !ok {
		return
	}
	for _, m := range annotationNameRE.FindAllStringSubmatch(s, -1) {
		w.file.StringRefs = append(w.file.StringRefs, Ref{
			Name:   m[1],
			Line:   w.line(n),
			Offset: w.offset(n),
			Attr:   true,
		})
	}
}

func (w *walker) importStatement(n *sitter.Node, nested bool) {
	stmt := w.statement(n, nested)
	idx := len(w.file.Statements)
	w.file.Statements = append(w.file.Statements, stmt)

	base := Import{
		Line:    stmt.Line,
		EndLine: stmt.EndLine,
		Offset:  stmt.Start,
		Stmt:    idx,
	}

	switch n.Type() {
	case "import_statement":
		w.eachChild(n, func(c *sitter.Node) {
			imp := base
			imp.Kind = KindModule
			switch c.Type() {
			case "dotted_name":
				imp.Module = dotted(w.text(c))
			case "aliased_import":
				imp.Module = dotted(w.text(c.ChildByFieldName("name")))
				imp.Alias = w.text(c.ChildByFieldName("alias"))
			default:
				return
			}
			w.file.Imports = append(w.file.Imports, imp)
		})

	case "import_from_statement", "future_import_statement":
		imp := base
		imp.Kind = KindSelective
		mod := n.ChildByFieldName("module_name")
		if n.Type() == "future_import_statement" {
			imp.Kind = KindFuture
			imp.Module = "__future__"
		} else if mod != nil {
			imp.Module, imp.Level = w.moduleName(mod)
		}
		w.eachChild(n, func(c *sitter.Node) {
			if sameNode(c, mod) {
				return
			}
			switch c.Type() {
			case "dotted_name":
				imp.Names = append(imp.Names, Name{Name: dotted(w.text(c))})
			case "aliased_import":
				imp.Names = append(imp.Names, Name{
					Name:  dotted(w.text(c.ChildByFieldName("name"))),
					Alias: w.text(c.ChildByFieldName("alias")),
				})
			case "wildcard_import":
				imp.Star = true
			}
		})
		w.file.Imports = append(w.file.Imports, imp)
	}
}

func (w *walker) moduleName(n *sitter.Node) (string, int) {
	if n.Type() != "relative_import" {
		return dotted(w.text(n)), 0
	}
	level, module := 0, ""
	w.eachChild(n, func(c *sitter.Node) {
		switch c.Type() {
		case "import_prefix":
			level = strings.Count(w.text(c), ".")
		case "dotted_name":
			module = dotted(w.text(c))
		}
	})
	return module, level
}

func (w *walker) statement(n *sitter.Node, nested bool) Statement {
	st := Statement{
		Start:    w.offset(n),
		End:      int(n.EndByte()) + w.base,
		Line:     w.line(n),
		EndLine:  int(n.EndPoint().Row) + 1,
		TopLevel: !nested,
	}
	if p := n.Parent(); p != nil && p.Type() == "block" {
		count := 0
		w.eachChild(p, func(c *sitter.Node) {
			if c.Type() != "comment" {
				count++
			}
		})
		st.Block = w.offset(p)
		st.Siblings = count
	}
	st.SharesLine = codeBefore(w.src, int(n.StartByte())) || codeAfter(w.src, int(n.EndByte()))
	return st
}

// codeBefore reports whether anything but indentation precedes pos on its line.
func codeBefore(src []byte, pos int) bool {
	for i := pos - 1; i >= 0 && src[i] != '\n'; i-- {
		if src[i] != ' ' && src[i] != '\t' && src[i] != '\f' {
			return true
		}
	}
	return false
}

// codeAfter reports whether another statement follows pos on its line.
// A trailing comment or a lone semicolon does not count.
func codeAfter(src []byte, pos int) bool {
	end := pos
	for end < len(src) && src[end] != '\n' {
		end++
	}
	rest := strings.TrimSpace(string(src[pos:end]))
	rest = strings.TrimSpace(strings.TrimPrefix(rest, ";"))
	return rest != "" && rest[0] != '#'
}

func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

// dotted removes whitespace that may appear inside a dotted name.
func dotted(s string) string {
	return strings.Join(strings.Fields(s), "")
}
