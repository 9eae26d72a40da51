// Package python parses Python dependency manifests into deps.PackageEntry
// values with line positions suitable for in-place removal.
package python

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/matzehuels/depclean/pkg/deps"
	"github.com/matzehuels/depclean/pkg/errors"
)

// Parsers returns one parser per supported manifest format. Direct
// declaration formats come first.
func Parsers() []deps.ManifestParser {
	return []deps.ManifestParser{
		&Pyproject{},
		&Requirements{},
		&SetupPy{},
		&SetupCfg{},
		&Pipfile{},
		&PoetryLock{},
		&PipfileLock{},
	}
}

// Discover lists the manifests directly under root. Files reached through
// -r includes (such as requirements/base.txt) are parsed by the including
// manifest.
func Discover(root string, parsers ...deps.ManifestParser) ([]string, error) {
	if len(parsers) == 0 {
		parsers = Parsers()
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !e.Type().IsRegular() {
			continue
		}
		if errors.ValidateManifestFilename(e.Name()) != nil {
			continue
		}
		if _, err := deps.DetectManifest(e.Name(), parsers...); err == nil {
			out = append(out, filepath.Join(root, e.Name()))
		}
	}

	sort.Strings(out)
	return out, nil
}
