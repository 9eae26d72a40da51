package cache

import "fmt"

// AnalysisVersion is bumped whenever the persisted analysis encoding or the
// extraction rules change. Entries written under another version are never read.
const AnalysisVersion = 4

// Keyer derives cache keys for persisted artifacts.
type Keyer interface {
	// AnalysisKey keys a single file analysis by its root-relative path and
	// content fingerprint.
	AnalysisKey(path, fingerprint string) string

	// ManifestKey keys a parsed manifest by path and content hash.
	ManifestKey(path, contentHash string) string
}

// DefaultKeyer produces unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default key scheme.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// AnalysisKey returns "analysis/v<N>:<path>:<fingerprint>".
func (DefaultKeyer) AnalysisKey(path, fingerprint string) string {
	return fmt.Sprintf("analysis/v%d:%s:%s", AnalysisVersion, path, fingerprint)
}

// ManifestKey hashes its inputs since manifest paths may be long.
func (DefaultKeyer) ManifestKey(path, contentHash string) string {
	return hashKey(fmt.Sprintf("manifest/v%d", AnalysisVersion), path, contentHash)
}
