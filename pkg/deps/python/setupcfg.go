package python

import (
	"os"
	"regexp"
	"strings"

	"github.com/go-ini/ini"

	"github.com/matzehuels/depclean/pkg/deps"
	"github.com/matzehuels/depclean/pkg/errors"
	"github.com/matzehuels/depclean/pkg/fingerprint"
)

// SetupCfg parses the declarative setuptools configuration in setup.cfg.
type SetupCfg struct{}

func (s *SetupCfg) Type() string              { return "setup.cfg" }
func (s *SetupCfg) IncludesTransitive() bool  { return false }
func (s *SetupCfg) Supports(name string) bool { return name == "setup.cfg" }

var cfgLoadOptions = ini.LoadOptions{
	AllowPythonMultilineValues: true,
	IgnoreInlineComment:        true,
}

func (s *SetupCfg) Parse(path string, opts deps.Options) (*deps.ManifestResult, error) {
	opts = opts.WithDefaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := ini.LoadSources(cfgLoadOptions, data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "decode %s", opts.Rel(path))
	}

	rel := opts.Rel(path)
	res := &deps.ManifestResult{
		Path:   rel,
		Type:   s.Type(),
		Hashes: map[string]string{rel: fingerprint.Sum(data)},
	}
	if sec, err := cfg.GetSection("metadata"); err == nil {
		res.RootPackage = sec.Key("name").String()
	}

	doc := newCfgDoc(data)
	b := &entryBuilder{res: res, typ: s.Type()}
	if sec, err := cfg.GetSection("options"); err == nil {
		for _, kg := range []struct{ key, group string }{
			{"install_requires", deps.GroupMain},
			{"tests_require", "test"},
		} {
			if sec.HasKey(kg.key) {
				cfgValues(b, doc, "options", kg.key, sec.Key(kg.key).Value(), kg.group)
			}
		}
	}
	if sec, err := cfg.GetSection("options.extras_require"); err == nil {
		for _, key := range sec.Keys() {
			cfgValues(b, doc, "options.extras_require", key.Name(), key.Value(), extraGroup(key.Name()))
		}
	}
	b.sort()
	return res, nil
}

func cfgValues(b *entryBuilder, doc *cfgDoc, section, key, value, group string) {
	for _, spec := range strings.Split(value, "\n") {
		spec = stripComment(strings.TrimSpace(spec))
		if spec == "" {
			continue
		}
		if strings.HasPrefix(spec, "file:") {
			b.res.Warnf("%s: %s.%s reads %q, which is not followed", b.res.Path, section, key, spec)
			continue
		}
		line, removable := doc.valueLine(section, key, spec)
		req, ok := ParseRequirement(spec)
		if !ok {
			b.res.Warnf("%s:%d: cannot parse requirement %q", b.res.Path, line, spec)
			continue
		}
		b.add(req, group, line, line, removable)
	}
}

// cfgDoc locates values of INI keys in the raw text. Python-style
// multi-line values continue on indented lines.
type cfgDoc struct {
	lines   []string
	claimed map[int]bool
}

var cfgSectionRE = regexp.MustCompile(`^\s*\[([^\]]+)\]`)

func newCfgDoc(data []byte) *cfgDoc {
	return &cfgDoc{lines: strings.Split(string(data), "\n"), claimed: make(map[int]bool)}
}

// valueLine returns the 1-based line of spec within key's value and whether
// the line holds nothing else.
func (d *cfgDoc) valueLine(section, key, spec string) (int, bool) {
	start, end, ok := d.keySpan(section, key)
	if !ok {
		return 0, false
	}
	for i := start; i < end; i++ {
		if d.claimed[i] {
			continue
		}
		text := d.lines[i]
		if i == start {
			idx := strings.IndexAny(text, "=:")
			text = text[idx+1:]
		}
		if stripComment(strings.TrimSpace(text)) == spec {
			d.claimed[i] = true
			return i + 1, i != start
		}
	}
	return start + 1, false
}

func (d *cfgDoc) keySpan(section, key string) (int, int, bool) {
	keyRE := regexp.MustCompile(`^` + regexp.QuoteMeta(key) + `\s*[=:]`)
	in := false
	for i := 0; i < len(d.lines); i++ {
		line := d.lines[i]
		if m := cfgSectionRE.FindStringSubmatch(line); m != nil {
			in = strings.TrimSpace(m[1]) == section
			continue
		}
		if !in || !keyRE.MatchString(line) {
			continue
		}
		end := i + 1
		for end < len(d.lines) {
			next := d.lines[end]
			if strings.TrimSpace(next) != "" && next[0] != ' ' && next[0] != '\t' {
				break
			}
			end++
		}
		return i, end, true
	}
	return 0, 0, false
}
