package python

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/matzehuels/depclean/pkg/deps"
	"github.com/matzehuels/depclean/pkg/errors"
	"github.com/matzehuels/depclean/pkg/fingerprint"
)

// Requirements parses pip requirements files, following -r includes.
type Requirements struct{}

func (r *Requirements) Type() string             { return "requirements.txt" }
func (r *Requirements) IncludesTransitive() bool { return false }

func (r *Requirements) Supports(name string) bool {
	return strings.HasPrefix(name, "requirements") &&
		(strings.HasSuffix(name, ".txt") || strings.HasSuffix(name, ".in"))
}

func (r *Requirements) Parse(path string, opts deps.Options) (*deps.ManifestResult, error) {
	opts = opts.WithDefaults()
	res := &deps.ManifestResult{
		Path:   opts.Rel(path),
		Type:   r.Type(),
		Hashes: make(map[string]string),
	}
	if err := r.parseFile(path, res, map[string]bool{}, opts); err != nil {
		return nil, err
	}
	res.RootPackage = extractPyprojectName(filepath.Dir(path))
	return res, nil
}

func (r *Requirements) parseFile(path string, res *deps.ManifestResult, visited map[string]bool, opts deps.Options) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	visited[abs] = true

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	rel := opts.Rel(path)
	res.Hashes[rel] = fingerprint.Sum(data)
	group := requirementsGroup(path)

	for _, ll := range logicalLines(string(data)) {
		text := ll.text
		switch {
		case text == "":
			continue
		case isInclude(text):
			inc := includeTarget(text)
			if inc == "" {
				res.Warnf("%s:%d: empty include", rel, ll.start)
				continue
			}
			incPath := inc
			if !filepath.IsAbs(incPath) {
				incPath = filepath.Join(filepath.Dir(path), inc)
			}
			incAbs, _ := filepath.Abs(incPath)
			if visited[incAbs] {
				res.Warnf("%s:%d: include cycle through %s", rel, ll.start, inc)
				continue
			}
			if err := r.parseFile(incPath, res, visited, opts); err != nil {
				res.Warnf("%s:%d: include %s: %v", rel, ll.start, inc, err)
			}
			continue
		case text[0] == '-':
			// -c constraints, -e editables and index options declare nothing.
			continue
		case isLocalOrURL(text):
			continue
		}

		req, ok := ParseRequirement(text)
		if !ok {
			res.Warnf("%s:%d: cannot parse requirement %q", rel, ll.start, text)
			continue
		}
		if err := errors.ValidatePythonPackageName(req.Name); err != nil {
			res.Warnf("%s:%d: %s", rel, ll.start, errors.UserMessage(err))
			continue
		}
		res.Entries = append(res.Entries, deps.PackageEntry{
			Name:         req.Name,
			Constraint:   req.Constraint,
			Extras:       req.Extras,
			Marker:       req.Marker,
			Manifest:     rel,
			ManifestType: r.Type(),
			Group:        group,
			Line:         ll.start,
			EndLine:      ll.end,
			Removable:    true,
		})
	}
	return nil
}

type logicalLine struct {
	text       string
	start, end int
}

// logicalLines joins backslash continuations and strips comments. A '#'
// starts a comment at line start or after whitespace.
func logicalLines(content string) []logicalLine {
	var (
		out  []logicalLine
		buf  strings.Builder
		open bool
		cur  logicalLine
	)
	for i, raw := range strings.Split(content, "\n") {
		line := strings.TrimRight(raw, "\r")
		if !open {
			cur = logicalLine{start: i + 1}
			buf.Reset()
		}
		cur.end = i + 1
		line = stripComment(line)
		if strings.HasSuffix(line, `\`) {
			buf.WriteString(strings.TrimSuffix(line, `\`))
			buf.WriteByte(' ')
			open = true
			continue
		}
		buf.WriteString(line)
		open = false
		cur.text = strings.Join(strings.Fields(buf.String()), " ")
		out = append(out, cur)
	}
	if open {
		cur.text = strings.Join(strings.Fields(buf.String()), " ")
		out = append(out, cur)
	}
	return out
}

func stripComment(line string) string {
	for i := 0; i < len(line); i++ {
		if line[i] == '#' && (i == 0 || line[i-1] == ' ' || line[i-1] == '\t') {
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return strings.TrimRight(line, " \t")
}

func isInclude(text string) bool {
	return strings.HasPrefix(text, "-r") || strings.HasPrefix(text, "--requirement")
}

func includeTarget(text string) string {
	v := strings.TrimPrefix(strings.TrimPrefix(text, "--requirement"), "-r")
	v = strings.TrimPrefix(strings.TrimSpace(v), "=")
	return strings.TrimSpace(v)
}

var directURLRE = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*\s*(?:\[[^\]]*\])?\s*@`)

func isLocalOrURL(text string) bool {
	if directURLRE.MatchString(text) {
		return false
	}
	return strings.Contains(text, "://") ||
		strings.HasPrefix(text, "git+") ||
		strings.HasPrefix(text, ".") ||
		strings.HasPrefix(text, "/") ||
		strings.HasSuffix(text, ".whl") ||
		strings.HasSuffix(text, ".tar.gz") ||
		strings.HasSuffix(text, ".zip")
}

// requirementsGroup infers the dependency group from a file name such as
// requirements-dev.txt or requirements/test.in.
func requirementsGroup(path string) string {
	base := strings.ToLower(filepath.Base(path))
	base = strings.TrimSuffix(strings.TrimSuffix(base, ".txt"), ".in")
	base = strings.TrimPrefix(base, "requirements")
	tokens := strings.FieldsFunc(base, func(r rune) bool { return r == '-' || r == '_' || r == '.' })
	for _, t := range tokens {
		switch t {
		case "dev", "develop", "development":
			return deps.GroupDev
		case "test", "tests", "testing", "lint", "docs", "typing":
			return t
		}
	}
	return deps.GroupMain
}
