package python

import (
	"regexp"
	"strconv"
	"strings"
)

// tomlDoc recovers line numbers for decoded TOML values. BurntSushi/toml
// does not expose key positions, so sections and keys are located in the
// raw text.
type tomlDoc struct {
	lines    []string
	sections []tomlSection
	claimed  map[string]bool
}

type tomlSection struct {
	name       string
	start, end int // line indexes, header excluded, end exclusive
}

func newTomlDoc(data []byte) *tomlDoc {
	d := &tomlDoc{
		lines:   strings.Split(string(data), "\n"),
		claimed: make(map[string]bool),
	}
	cur := tomlSection{name: "", start: 0}
	for i, raw := range d.lines {
		line := strings.TrimSpace(raw)
		if !strings.HasPrefix(line, "[") {
			continue
		}
		name, ok := headerName(line)
		if !ok {
			continue
		}
		cur.end = i
		d.sections = append(d.sections, cur)
		cur = tomlSection{name: name, start: i + 1}
	}
	cur.end = len(d.lines)
	d.sections = append(d.sections, cur)
	return d
}

// headerName parses "[a.b]" or "[[a.b]]" into "a.b", dropping quotes and
// spaces around segments.
func headerName(line string) (string, bool) {
	if i := strings.Index(line, "#"); i >= 0 && !strings.Contains(line[:i], `"`) {
		line = strings.TrimSpace(line[:i])
	}
	line = strings.TrimPrefix(strings.TrimSuffix(line, "]]"), "[[")
	line = strings.TrimPrefix(strings.TrimSuffix(line, "]"), "[")
	if line == "" || strings.ContainsAny(line, "=[]") {
		return "", false
	}
	parts := strings.Split(line, ".")
	for i, p := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(p), `"'`)
	}
	return strings.Join(parts, "."), true
}

// sectionsNamed returns every section with the given name, in order.
// Array-of-tables headers produce one section per occurrence.
func (d *tomlDoc) sectionsNamed(name string) []tomlSection {
	var out []tomlSection
	for _, s := range d.sections {
		if s.name == name {
			out = append(out, s)
		}
	}
	return out
}

func keyPattern(key string) *regexp.Regexp {
	q := regexp.QuoteMeta(key)
	return regexp.MustCompile(`^\s*(?:` + q + `|"` + q + `"|'` + q + `')\s*=`)
}

// keySpan finds "key = ..." in section and returns 1-based start and end
// lines. Multi-line arrays and inline tables extend the span until their
// brackets balance.
func (d *tomlDoc) keySpan(section, key string) (int, int, bool) {
	for _, s := range d.sectionsNamed(section) {
		if start, end, ok := d.keySpanIn(s, key); ok {
			return start, end, true
		}
	}
	return 0, 0, false
}

// keySpanIn is keySpan restricted to one section occurrence.
func (d *tomlDoc) keySpanIn(s tomlSection, key string) (int, int, bool) {
	re := keyPattern(key)
	for i := s.start; i < s.end; i++ {
		if !re.MatchString(d.lines[i]) {
			continue
		}
		end := i
		depth := bracketDepth(d.lines[i][strings.Index(d.lines[i], "=")+1:])
		for depth > 0 && end+1 < s.end {
			end++
			depth += bracketDepth(d.lines[end])
		}
		return i + 1, end + 1, true
	}
	return 0, 0, false
}

// arrayItem locates the string element value of the array at key in
// section. removable is set when the element is alone on its line. A
// (line, literal) pair is returned at most once so repeated values map to
// distinct lines.
func (d *tomlDoc) arrayItem(section, key, value string) (line int, removable bool) {
	start, end, ok := d.keySpan(section, key)
	if !ok {
		return 0, false
	}
	literals := []string{`"` + value + `"`, `'` + value + `'`}
	for i := start - 1; i < end; i++ {
		for _, lit := range literals {
			claim := strconv.Itoa(i) + ":" + lit
			if d.claimed[claim] || !strings.Contains(d.lines[i], lit) {
				continue
			}
			d.claimed[claim] = true
			return i + 1, i+1 != start && aloneOnLine(d.lines[i], lit)
		}
	}
	return start, false
}

// aloneOnLine reports whether line holds only lit, an optional trailing
// comma and an optional comment.
func aloneOnLine(line, lit string) bool {
	rest := strings.TrimSpace(line)
	if !strings.HasPrefix(rest, lit) {
		return false
	}
	rest = strings.TrimSpace(strings.TrimPrefix(rest, lit))
	rest = strings.TrimSpace(strings.TrimPrefix(rest, ","))
	return rest == "" || rest[0] == '#'
}

// bracketDepth returns the net bracket depth change of a line, ignoring
// brackets in strings and comments.
func bracketDepth(line string) int {
	depth := 0
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == '\\' && quote == '"' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '#':
			return depth
		case c == '[' || c == '{':
			depth++
		case c == ']' || c == '}':
			depth--
		}
	}
	return depth
}
