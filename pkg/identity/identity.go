package identity

import (
	"regexp"
	"slices"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Identity is the normalized view of a declared distribution name.
type Identity struct {
	Declared   string   `json:"declared" yaml:"declared"`
	Canonical  string   `json:"canonical" yaml:"canonical"`
	Candidates []string `json:"candidates" yaml:"candidates"`
}

// DefaultCacheSize bounds the memoized Normalize results.
const DefaultCacheSize = 4096

// Options configures a [Normalizer].
type Options struct {
	// Table overrides the embedded mapping table.
	Table *Table
	// Allowlist lists extra module roots treated like the standard library.
	Allowlist []string
	// CacheSize bounds the LRU memo. Zero selects DefaultCacheSize.
	CacheSize int
}

// Normalizer resolves declared names to identities. It is safe for
// concurrent use.
type Normalizer struct {
	table *Table
	allow map[string]struct{}
	memo  *lru.Cache[string, Identity]
}

// New creates a Normalizer.
func New(opts Options) *Normalizer {
	if opts.Table == nil {
		opts.Table = DefaultTable()
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	memo, err := lru.New[string, Identity](opts.CacheSize)
	if err != nil {
		panic(err) // only fails for a non-positive size
	}
	allow := make(map[string]struct{}, len(opts.Allowlist))
	for _, a := range opts.Allowlist {
		allow[Fold(rootModule(a))] = struct{}{}
	}
	return &Normalizer{table: opts.Table, allow: allow, memo: memo}
}

// Table returns the mapping table in use.
func (n *Normalizer) Table() *Table { return n.table }

// Normalize returns the identity for a declared distribution name.
// The returned Candidates slice must not be modified.
func (n *Normalizer) Normalize(declared string) Identity {
	if id, ok := n.memo.Get(declared); ok {
		return id
	}

	name := stripExtras(declared)
	id := Identity{
		Declared:  declared,
		Canonical: Canonical(name),
	}

	seen := make(map[string]struct{})
	add := func(c string) {
		if c == "" {
			return
		}
		k := Fold(c)
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		id.Candidates = append(id.Candidates, c)
	}

	if mods, ok := n.table.Lookup(name); ok {
		for _, m := range mods {
			add(rootModule(m))
		}
	}
	add(heuristic(name))
	add(name)

	n.memo.Add(declared, id)
	return id
}

// CandidateImportNames returns the import roots an identity may be imported as.
func (n *Normalizer) CandidateImportNames(id Identity) []string {
	return slices.Clone(id.Candidates)
}

// Matches reports whether importRoot is one of id's candidates, comparing
// case- and separator-insensitively.
func (n *Normalizer) Matches(id Identity, importRoot string) bool {
	root := Fold(rootModule(importRoot))
	for _, c := range id.Candidates {
		if Fold(c) == root {
			return true
		}
	}
	return false
}

// PackagesFor returns canonical distribution names that may provide
// importRoot: table entries when known, otherwise the heuristic spellings.
func (n *Normalizer) PackagesFor(importRoot string) []string {
	if dists := n.table.Distributions(importRoot); len(dists) > 0 {
		return slices.Clone(dists)
	}
	folded := Fold(rootModule(importRoot))
	dashed := strings.ReplaceAll(folded, "_", "-")
	out := []string{dashed, "python-" + dashed}
	return out
}

// IsStdlib reports whether module belongs to the standard library or the
// user allowlist.
func (n *Normalizer) IsStdlib(module string) bool {
	if IsStdlibModule(module) {
		return true
	}
	_, ok := n.allow[Fold(rootModule(module))]
	return ok
}

var separatorRun = regexp.MustCompile(`[-_.]+`)

// Canonical returns the PEP 503 normalized form of a distribution name.
func Canonical(name string) string {
	return strings.ToLower(separatorRun.ReplaceAllString(strings.TrimSpace(name), "-"))
}

// Fold lower-cases name and folds every separator to "_", which is the form
// used to compare a distribution name with an import name.
func Fold(name string) string {
	return strings.ToLower(separatorRun.ReplaceAllString(name, "_"))
}

// heuristic derives the most likely import name from a distribution name.
func heuristic(name string) string {
	c := Canonical(name)
	if trimmed := strings.TrimPrefix(c, "python-"); trimmed != "" {
		c = trimmed
	}
	if trimmed := strings.TrimSuffix(c, "-python"); trimmed != "" {
		c = trimmed
	}
	return strings.ReplaceAll(c, "-", "_")
}

func stripExtras(name string) string {
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}

func rootModule(module string) string {
	if i := strings.IndexByte(module, '.'); i >= 0 {
		return module[:i]
	}
	return module
}
