package pyast

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// StringValue returns the value of a string or concatenated_string literal.
// Formatted strings with interpolations are not static and report false.
func StringValue(n *sitter.Node, src []byte) (string, bool) {
	if n == nil {
		return "", false
	}
	switch n.Type() {
	case "concatenated_string":
		var b strings.Builder
		for i := 0; i < int(n.NamedChildCount()); i++ {
			s, ok := StringValue(n.NamedChild(i), src)
			if !ok {
				return "", false
			}
			b.WriteString(s)
		}
		return b.String(), true
	case "string":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if n.NamedChild(i).Type() == "interpolation" {
				return "", false
			}
		}
		return unquote(n.Content(src))
	}
	return "", false
}

// unquote strips the prefix and quotes of a Python string literal. Escape
// sequences are left as written, which is enough for package names.
func unquote(lit string) (string, bool) {
	i := 0
	for i < len(lit) && strings.IndexByte("rRbBuUfF", lit[i]) >= 0 {
		i++
	}
	lit = lit[i:]
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if len(lit) >= 2*len(q) && strings.HasPrefix(lit, q) && strings.HasSuffix(lit, q) {
			return lit[len(q) : len(lit)-len(q)], true
		}
	}
	return "", false
}
