package python

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/depclean/pkg/deps"
	"github.com/matzehuels/depclean/pkg/errors"
	"github.com/matzehuels/depclean/pkg/fingerprint"
)

// Pipfile parses pipenv's Pipfile.
type Pipfile struct{}

func (p *Pipfile) Type() string              { return "Pipfile" }
func (p *Pipfile) IncludesTransitive() bool  { return false }
func (p *Pipfile) Supports(name string) bool { return name == "Pipfile" }

func (p *Pipfile) Parse(path string, opts deps.Options) (*deps.ManifestResult, error) {
	opts = opts.WithDefaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file struct {
		Packages    map[string]any `toml:"packages"`
		DevPackages map[string]any `toml:"dev-packages"`
	}
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "decode %s", opts.Rel(path))
	}

	rel := opts.Rel(path)
	res := &deps.ManifestResult{
		Path:   rel,
		Type:   p.Type(),
		Hashes: map[string]string{rel: fingerprint.Sum(data)},
	}
	b := &entryBuilder{res: res, doc: newTomlDoc(data), typ: p.Type()}
	b.poetryTable("packages", file.Packages, deps.GroupMain)
	b.poetryTable("dev-packages", file.DevPackages, deps.GroupDev)
	b.sort()
	return res, nil
}
