package python

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/depclean/pkg/deps"
	"github.com/matzehuels/depclean/pkg/errors"
	"github.com/matzehuels/depclean/pkg/fingerprint"
)

// PoetryLock parses poetry.lock files. The lock holds the full transitive
// closure, so its entries are marked Locked and never proposed for removal.
type PoetryLock struct{}

func (p *PoetryLock) Type() string              { return "poetry.lock" }
func (p *PoetryLock) IncludesTransitive() bool  { return true }
func (p *PoetryLock) Supports(name string) bool { return name == "poetry.lock" }

func (p *PoetryLock) Parse(path string, opts deps.Options) (*deps.ManifestResult, error) {
	opts = opts.WithDefaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lock lockFile
	if err := toml.Unmarshal(data, &lock); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "decode %s", opts.Rel(path))
	}

	rel := opts.Rel(path)
	res := &deps.ManifestResult{
		Path:               rel,
		Type:               p.Type(),
		IncludesTransitive: true,
		RootPackage:        extractPyprojectName(filepath.Dir(path)),
		Hashes:             map[string]string{rel: fingerprint.Sum(data)},
	}

	doc := newTomlDoc(data)
	sections := doc.sectionsNamed("package")
	for i, pkg := range lock.Packages {
		line := 0
		if i < len(sections) {
			if l, _, ok := doc.keySpanIn(sections[i], "name"); ok {
				line = l
			}
		}
		res.Entries = append(res.Entries, deps.PackageEntry{
			Name:         pkg.Name,
			Constraint:   "==" + pkg.Version,
			Manifest:     rel,
			ManifestType: p.Type(),
			Group:        pkg.group(),
			Line:         line,
			EndLine:      line,
			Locked:       true,
		})
	}
	return res, nil
}

func extractPyprojectName(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "pyproject.toml"))
	if err != nil {
		return ""
	}
	var pyproject struct {
		Tool struct {
			Poetry struct {
				Name string `toml:"name"`
			} `toml:"poetry"`
		} `toml:"tool"`
		Project struct {
			Name string `toml:"name"`
		} `toml:"project"`
	}
	if err := toml.Unmarshal(data, &pyproject); err != nil {
		return ""
	}
	if pyproject.Tool.Poetry.Name != "" {
		return pyproject.Tool.Poetry.Name
	}
	return pyproject.Project.Name
}

type lockFile struct {
	Packages []lockPackage `toml:"package"`
}

type lockPackage struct {
	Name     string   `toml:"name"`
	Version  string   `toml:"version"`
	Category string   `toml:"category"`
	Groups   []string `toml:"groups"`
}

// group reads the legacy category field or, for Poetry 2 locks, the first
// listed group.
func (p lockPackage) group() string {
	switch {
	case p.Category != "":
		return strings.ToLower(p.Category)
	case len(p.Groups) > 0:
		return p.Groups[0]
	}
	return deps.GroupMain
}
