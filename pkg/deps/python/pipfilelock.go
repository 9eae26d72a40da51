package python

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/matzehuels/depclean/pkg/deps"
	"github.com/matzehuels/depclean/pkg/errors"
	"github.com/matzehuels/depclean/pkg/fingerprint"
)

// PipfileLock parses pipenv's Pipfile.lock. Entries are locked: they list
// the installed closure rather than direct declarations.
type PipfileLock struct{}

func (p *PipfileLock) Type() string              { return "Pipfile.lock" }
func (p *PipfileLock) IncludesTransitive() bool  { return true }
func (p *PipfileLock) Supports(name string) bool { return name == "Pipfile.lock" }

type pipfileLockEntry struct {
	Version string `json:"version"`
	Markers string `json:"markers"`
}

func (p *PipfileLock) Parse(path string, opts deps.Options) (*deps.ManifestResult, error) {
	opts = opts.WithDefaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lock struct {
		Default map[string]pipfileLockEntry `json:"default"`
		Develop map[string]pipfileLockEntry `json:"develop"`
	}
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "decode %s", opts.Rel(path))
	}

	rel := opts.Rel(path)
	res := &deps.ManifestResult{
		Path:               rel,
		Type:               p.Type(),
		IncludesTransitive: true,
		Hashes:             map[string]string{rel: fingerprint.Sum(data)},
	}
	lines := strings.Split(string(data), "\n")
	for _, section := range []struct {
		name    string
		group   string
		entries map[string]pipfileLockEntry
	}{
		{"default", deps.GroupMain, lock.Default},
		{"develop", deps.GroupDev, lock.Develop},
	} {
		from := jsonKeyLine(lines, section.name, 0)
		for _, name := range sortedKeys(section.entries) {
			e := section.entries[name]
			line := jsonKeyLine(lines, name, from)
			res.Entries = append(res.Entries, deps.PackageEntry{
				Name:         name,
				Constraint:   e.Version,
				Marker:       e.Markers,
				Manifest:     rel,
				ManifestType: p.Type(),
				Group:        section.group,
				Line:         line,
				EndLine:      line,
				Locked:       true,
			})
		}
	}
	b := &entryBuilder{res: res}
	b.sort()
	return res, nil
}

// jsonKeyLine returns the 1-based line of the first `"key":` at or after
// line from (1-based, exclusive), or 0.
func jsonKeyLine(lines []string, key string, from int) int {
	needle := `"` + key + `":`
	for i := from; i < len(lines); i++ {
		if strings.Contains(strings.ReplaceAll(lines[i], `" :`, `":`), needle) {
			return i + 1
		}
	}
	return 0
}
