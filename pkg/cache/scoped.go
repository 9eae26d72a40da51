package cache

// ScopedKeyer wraps a Keyer with a prefix so that several projects can share
// one backend without their relative paths colliding.
//
// Example usage:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), ProjectScope("/src/app"))
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// ProjectScope returns a short prefix derived from an absolute project root.
func ProjectScope(root string) string {
	return "project:" + Hash([]byte(root))[:16] + ":"
}

// AnalysisKey generates a prefixed key for a file analysis.
func (k *ScopedKeyer) AnalysisKey(path, fingerprint string) string {
	return k.prefix + k.inner.AnalysisKey(path, fingerprint)
}

// ManifestKey generates a prefixed key for a parsed manifest.
func (k *ScopedKeyer) ManifestKey(path, contentHash string) string {
	return k.prefix + k.inner.ManifestKey(path, contentHash)
}
