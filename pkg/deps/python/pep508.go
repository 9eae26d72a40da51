package python

import (
	"regexp"
	"strings"
)

// Requirement is a parsed PEP 508 dependency specifier.
type Requirement struct {
	Name       string
	Extras     []string
	Constraint string
	URL        string
	Marker     string
}

var requirementRE = regexp.MustCompile(`^\s*([A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?)\s*(?:\[([^\]]*)\])?\s*(.*)$`)

// ParseRequirement parses a specifier such as
// `requests[socks]>=2.28; python_version >= "3.8"`.
func ParseRequirement(spec string) (Requirement, bool) {
	m := requirementRE.FindStringSubmatch(spec)
	if m == nil {
		return Requirement{}, false
	}
	r := Requirement{Name: m[1]}
	if m[2] != "" {
		for _, e := range strings.Split(m[2], ",") {
			if e = strings.TrimSpace(e); e != "" {
				r.Extras = append(r.Extras, e)
			}
		}
	}

	rest := strings.TrimSpace(m[3])
	if strings.HasPrefix(rest, "@") {
		rest = strings.TrimSpace(rest[1:])
		// A marker after a URL must be preceded by whitespace.
		if i := strings.Index(rest, " ;"); i >= 0 {
			r.Marker = strings.TrimSpace(rest[i+2:])
			rest = rest[:i]
		}
		r.URL = strings.TrimSpace(rest)
		return r, r.URL != ""
	}

	if i := strings.IndexByte(rest, ';'); i >= 0 {
		r.Marker = strings.TrimSpace(rest[i+1:])
		rest = rest[:i]
	}
	rest = strings.TrimSpace(rest)
	rest = strings.TrimSuffix(strings.TrimPrefix(rest, "("), ")")
	r.Constraint = strings.TrimSpace(rest)
	if r.Constraint != "" && !strings.ContainsAny(r.Constraint[:1], "<>=!~") {
		return Requirement{}, false
	}
	return r, true
}
