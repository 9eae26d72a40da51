package python

import (
	"context"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/matzehuels/depclean/pkg/deps"
	"github.com/matzehuels/depclean/pkg/fingerprint"
	"github.com/matzehuels/depclean/pkg/pyast"
)

// SetupPy reads the requirement lists passed to setup() in a setup.py. It
// never executes the script, so only literal lists, module-level list
// variables and their concatenations are understood.
type SetupPy struct{}

func (s *SetupPy) Type() string              { return "setup.py" }
func (s *SetupPy) IncludesTransitive() bool  { return false }
func (s *SetupPy) Supports(name string) bool { return name == "setup.py" }

func (s *SetupPy) Parse(path string, opts deps.Options) (*deps.ManifestResult, error) {
	opts = opts.WithDefaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rel := opts.Rel(path)
	res := &deps.ManifestResult{
		Path:   rel,
		Type:   s.Type(),
		Hashes: map[string]string{rel: fingerprint.Sum(data)},
	}

	src, _, _, err := pyast.Decode(data)
	if err != nil {
		return nil, err
	}
	tree, err := pyast.ParseTree(context.Background(), src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		res.Warnf("%s: syntax errors, requirements may be incomplete", rel)
	}

	sp := &setupParser{
		res:   res,
		src:   src,
		lines: strings.Split(string(src), "\n"),
		vars:  moduleAssignments(root, src),
	}
	call := findSetupCall(root, src)
	if call == nil {
		res.Warnf("%s: no setup() call found", rel)
		return res, nil
	}
	sp.call(call)
	return res, nil
}

type setupParser struct {
	res   *deps.ManifestResult
	src   []byte
	lines []string
	vars  map[string]*sitter.Node
	depth int
}

func (p *setupParser) call(call *sitter.Node) {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		kw := args.NamedChild(i)
		if kw.Type() != "keyword_argument" {
			continue
		}
		name := kw.ChildByFieldName("name")
		value := kw.ChildByFieldName("value")
		if name == nil || value == nil {
			continue
		}
		switch name.Content(p.src) {
		case "name":
			if v, ok := pyast.StringValue(p.resolve(value), p.src); ok {
				p.res.RootPackage = v
			}
		case "install_requires":
			p.list(value, deps.GroupMain)
		case "tests_require":
			p.list(value, "test")
		case "extras_require":
			p.extras(value)
		}
	}
}

// resolve follows an identifier to its module-level assignment.
func (p *setupParser) resolve(n *sitter.Node) *sitter.Node {
	for n != nil && n.Type() == "identifier" {
		v, ok := p.vars[n.Content(p.src)]
		if !ok {
			return n
		}
		n = v
	}
	return n
}

func (p *setupParser) list(n *sitter.Node, group string) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > 16 {
		return
	}

	n = p.resolve(n)
	switch n.Type() {
	case "list", "tuple":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			p.item(n.NamedChild(i), group)
		}
	case "binary_operator":
		p.list(n.ChildByFieldName("left"), group)
		p.list(n.ChildByFieldName("right"), group)
	case "parenthesized_expression":
		if n.NamedChildCount() > 0 {
			p.list(n.NamedChild(0), group)
		}
	default:
		p.res.Warnf("%s:%d: requirement list is not a literal", p.res.Path, int(n.StartPoint().Row)+1)
	}
}

func (p *setupParser) item(n *sitter.Node, group string) {
	spec, ok := pyast.StringValue(n, p.src)
	if !ok {
		if n.Type() != "comment" {
			p.res.Warnf("%s:%d: skipped non-literal requirement", p.res.Path, int(n.StartPoint().Row)+1)
		}
		return
	}
	line := int(n.StartPoint().Row) + 1
	end := int(n.EndPoint().Row) + 1
	req, ok := ParseRequirement(spec)
	if !ok {
		p.res.Warnf("%s:%d: cannot parse requirement %q", p.res.Path, line, spec)
		return
	}
	b := entryBuilder{res: p.res, typ: "setup.py"}
	removable := line == end && aloneOnLine(p.lines[line-1], n.Content(p.src))
	b.add(req, group, line, end, removable)
}

func (p *setupParser) extras(n *sitter.Node) {
	n = p.resolve(n)
	switch n.Type() {
	case "dictionary":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			pair := n.NamedChild(i)
			if pair.Type() != "pair" {
				continue
			}
			key, ok := pyast.StringValue(pair.ChildByFieldName("key"), p.src)
			if !ok {
				continue
			}
			p.list(pair.ChildByFieldName("value"), extraGroup(key))
		}
	case "call":
		// dict(test=[...])
		if fn := n.ChildByFieldName("function"); fn == nil || fn.Content(p.src) != "dict" {
			return
		}
		args := n.ChildByFieldName("arguments")
		for i := 0; args != nil && i < int(args.NamedChildCount()); i++ {
			kw := args.NamedChild(i)
			if kw.Type() == "keyword_argument" {
				p.list(kw.ChildByFieldName("value"), extraGroup(kw.ChildByFieldName("name").Content(p.src)))
			}
		}
	}
}

// extraGroup drops an environment marker from an extras key such as
// "test:python_version<'3.8'".
func extraGroup(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		key = key[:i]
	}
	return strings.TrimSpace(key)
}

func moduleAssignments(root *sitter.Node, src []byte) map[string]*sitter.Node {
	vars := make(map[string]*sitter.Node)
	for i := 0; i < int(root.NamedChildCount()); i++ {
		stmt := root.NamedChild(i)
		if stmt.Type() != "expression_statement" || stmt.NamedChildCount() == 0 {
			continue
		}
		a := stmt.NamedChild(0)
		if a.Type() != "assignment" {
			continue
		}
		left, right := a.ChildByFieldName("left"), a.ChildByFieldName("right")
		if left != nil && right != nil && left.Type() == "identifier" {
			vars[left.Content(src)] = right
		}
	}
	return vars
}

// findSetupCall returns the first call to setup() or <module>.setup().
func findSetupCall(n *sitter.Node, src []byte) *sitter.Node {
	if n.Type() == "call" {
		if fn := n.ChildByFieldName("function"); fn != nil {
			switch fn.Type() {
			case "identifier":
				if fn.Content(src) == "setup" {
					return n
				}
			case "attribute":
				if attr := fn.ChildByFieldName("attribute"); attr != nil && attr.Content(src) == "setup" {
					return n
				}
			}
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := findSetupCall(n.NamedChild(i), src); c != nil {
			return c
		}
	}
	return nil
}
