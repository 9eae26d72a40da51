package identity

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/BurntSushi/toml"
)

//go:embed mappings.toml
var embeddedMappings []byte

// Table is an immutable distribution → import-name mapping.
type Table struct {
	Version int
	forward map[string][]string // canonical distribution → import names
	reverse map[string][]string // folded import root → canonical distributions
}

type tableFile struct {
	Version  int                 `toml:"version"`
	Packages map[string][]string `toml:"packages"`
}

// ParseTable decodes a mapping table in TOML form.
func ParseTable(data []byte) (*Table, error) {
	var f tableFile
	if _, err := toml.Decode(string(data), &f); err != nil {
		return nil, fmt.Errorf("decode mapping table: %w", err)
	}
	t := &Table{
		Version: f.Version,
		forward: make(map[string][]string, len(f.Packages)),
		reverse: make(map[string][]string),
	}
	t.merge(f.Packages)
	return t, nil
}

// LoadTableFile reads a user mapping file and merges it over base.
// Entries in the file replace base entries for the same distribution.
func LoadTableFile(base *Table, path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	user, err := ParseTable(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	merged := &Table{
		Version: base.Version,
		forward: make(map[string][]string, len(base.forward)+len(user.forward)),
		reverse: make(map[string][]string),
	}
	packages := make(map[string][]string, len(base.forward)+len(user.forward))
	for k, v := range base.forward {
		packages[k] = v
	}
	for k, v := range user.forward {
		packages[k] = v
	}
	merged.merge(packages)
	return merged, nil
}

func (t *Table) merge(packages map[string][]string) {
	for dist, mods := range packages {
		canon := Canonical(dist)
		t.forward[canon] = append([]string(nil), mods...)
	}
	for canon, mods := range t.forward {
		for _, m := range mods {
			root := Fold(rootModule(m))
			t.reverse[root] = append(t.reverse[root], canon)
		}
	}
	for root := range t.reverse {
		sort.Strings(t.reverse[root])
		t.reverse[root] = dedupSorted(t.reverse[root])
	}
}

// Lookup returns the import names recorded for a distribution.
func (t *Table) Lookup(dist string) ([]string, bool) {
	mods, ok := t.forward[Canonical(dist)]
	return mods, ok
}

// Distributions returns the canonical distributions that provide importRoot.
func (t *Table) Distributions(importRoot string) []string {
	return t.reverse[Fold(rootModule(importRoot))]
}

// Len returns the number of distributions in the table.
func (t *Table) Len() int { return len(t.forward) }

// DefaultTable returns the embedded table. It is parsed once.
var DefaultTable = sync.OnceValue(func() *Table {
	t, err := ParseTable(embeddedMappings)
	if err != nil {
		panic(err)
	}
	return t
})

func dedupSorted(s []string) []string {
	out := s[:0]
	for i, v := range s {
		if i == 0 || v != s[i-1] {
			out = append(out, v)
		}
	}
	return out
}
