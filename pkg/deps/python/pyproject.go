package python

import (
	"os"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/depclean/pkg/deps"
	"github.com/matzehuels/depclean/pkg/errors"
	"github.com/matzehuels/depclean/pkg/fingerprint"
)

// Pyproject parses pyproject.toml: PEP 621 project tables, PEP 735
// dependency groups and Poetry's tool tables.
type Pyproject struct{}

func (p *Pyproject) Type() string              { return "pyproject" }
func (p *Pyproject) IncludesTransitive() bool  { return false }
func (p *Pyproject) Supports(name string) bool { return name == "pyproject.toml" }

type pyprojectFile struct {
	Project struct {
		Name                 string              `toml:"name"`
		Dependencies         []string            `toml:"dependencies"`
		OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	} `toml:"project"`
	DependencyGroups map[string][]any `toml:"dependency-groups"`
	Tool             struct {
		Poetry struct {
			Name            string         `toml:"name"`
			Dependencies    map[string]any `toml:"dependencies"`
			DevDependencies map[string]any `toml:"dev-dependencies"`
			Group           map[string]struct {
				Dependencies map[string]any `toml:"dependencies"`
			} `toml:"group"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

func (p *Pyproject) Parse(path string, opts deps.Options) (*deps.ManifestResult, error) {
	opts = opts.WithDefaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file pyprojectFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "decode %s", opts.Rel(path))
	}

	rel := opts.Rel(path)
	res := &deps.ManifestResult{
		Path:        rel,
		Type:        p.Type(),
		RootPackage: file.Project.Name,
		Hashes:      map[string]string{rel: fingerprint.Sum(data)},
	}
	if res.RootPackage == "" {
		res.RootPackage = file.Tool.Poetry.Name
	}

	b := &entryBuilder{res: res, doc: newTomlDoc(data), typ: p.Type()}

	for _, spec := range file.Project.Dependencies {
		b.arraySpec("project", "dependencies", spec, deps.GroupMain)
	}
	for _, extra := range sortedKeys(file.Project.OptionalDependencies) {
		for _, spec := range file.Project.OptionalDependencies[extra] {
			b.arraySpec("project.optional-dependencies", extra, spec, extra)
		}
	}
	for _, group := range sortedKeys(file.DependencyGroups) {
		for _, item := range file.DependencyGroups[group] {
			// {include-group = "..."} tables reference other groups.
			if spec, ok := item.(string); ok {
				b.arraySpec("dependency-groups", group, spec, group)
			}
		}
	}

	poetry := file.Tool.Poetry
	b.poetryTable("tool.poetry.dependencies", poetry.Dependencies, deps.GroupMain)
	b.poetryTable("tool.poetry.dev-dependencies", poetry.DevDependencies, deps.GroupDev)
	for _, group := range sortedKeys(poetry.Group) {
		b.poetryTable("tool.poetry.group."+group+".dependencies", poetry.Group[group].Dependencies, group)
	}

	b.sort()
	return res, nil
}

// entryBuilder appends entries for TOML-based manifests, resolving lines
// through a tomlDoc.
type entryBuilder struct {
	res *deps.ManifestResult
	doc *tomlDoc
	typ string
}

func (b *entryBuilder) arraySpec(section, key, spec, group string) {
	line, removable := b.doc.arrayItem(section, key, spec)
	req, ok := ParseRequirement(spec)
	if !ok {
		b.res.Warnf("%s:%d: cannot parse requirement %q", b.res.Path, line, spec)
		return
	}
	b.add(req, group, line, line, removable)
}

// poetryTable handles Poetry-style tables where each key is a distribution
// and the value is a constraint string or a table with a version.
func (b *entryBuilder) poetryTable(section string, table map[string]any, group string) {
	for name, value := range table {
		if name == "python" {
			continue
		}
		req := Requirement{Name: name}
		switch v := value.(type) {
		case string:
			req.Constraint = poetryConstraint(v)
		case map[string]any:
			req.Constraint = poetryConstraint(stringField(v, "version"))
			req.Marker = stringField(v, "markers")
			if extras, ok := v["extras"].([]any); ok {
				for _, e := range extras {
					if s, ok := e.(string); ok {
						req.Extras = append(req.Extras, s)
					}
				}
			}
		}
		start, end, ok := b.doc.keySpan(section, name)
		b.add(req, group, start, end, ok)
	}
}

func (b *entryBuilder) add(req Requirement, group string, line, end int, removable bool) {
	if err := errors.ValidatePythonPackageName(req.Name); err != nil {
		b.res.Warnf("%s:%d: %s", b.res.Path, line, errors.UserMessage(err))
		return
	}
	b.res.Entries = append(b.res.Entries, deps.PackageEntry{
		Name:         req.Name,
		Constraint:   req.Constraint,
		Extras:       req.Extras,
		Marker:       req.Marker,
		Manifest:     b.res.Path,
		ManifestType: b.typ,
		Group:        group,
		Line:         line,
		EndLine:      end,
		Removable:    removable && line > 0,
	})
}

func (b *entryBuilder) sort() {
	sort.SliceStable(b.res.Entries, func(i, j int) bool {
		return b.res.Entries[i].Line < b.res.Entries[j].Line
	})
}

func poetryConstraint(v string) string {
	if v == "*" {
		return ""
	}
	return v
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
