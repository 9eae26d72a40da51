package scan

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar"
)

// DefaultExcludes are directory patterns never descended into.
var DefaultExcludes = []string{
	".venv", "venv", "__pycache__", ".git", "build", "dist", ".eggs",
	".tox", ".nox", ".mypy_cache", ".pytest_cache", "node_modules",
	"site-packages", "*.egg-info",
}

// DefaultMaxFileSize is the size ceiling above which files are skipped.
const DefaultMaxFileSize int64 = 1 << 20

// Skip reasons.
const (
	SkipTooLarge   = "too large"
	SkipUnreadable = "unreadable"
	SkipIrregular  = "not a regular file"
)

// Skipped is a file that was discovered but not analyzed.
type Skipped struct {
	Path   string `json:"path" yaml:"path"`
	Reason string `json:"reason" yaml:"reason"`
	Size   int64  `json:"size,omitempty" yaml:"size,omitempty"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

type candidate struct {
	abs, rel string
	size     int64
}

// excluded matches a directory against patterns by base name and by
// root-relative path, so both "build" and "src/**/generated" work.
func excluded(rel string, patterns []string) bool {
	name := filepath.Base(rel)
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
		if strings.Contains(p, "/") {
			if ok, _ := doublestar.Match(p, rel); ok {
				return true
			}
		}
	}
	return false
}

// discover collects *.py files below root in path order.
func discover(root string, patterns []string, maxSize int64) ([]candidate, []Skipped, error) {
	var (
		files   []candidate
		skipped []Skipped
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if err != nil {
			if path == root {
				return err
			}
			skipped = append(skipped, Skipped{Path: rel, Reason: SkipUnreadable, Detail: err.Error()})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && excluded(rel, patterns) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".py" {
			return nil
		}

		info, err := fileInfo(path, d)
		if err != nil {
			skipped = append(skipped, Skipped{Path: rel, Reason: SkipUnreadable, Detail: unwrapPathError(err)})
			return nil
		}
		if !info.Mode().IsRegular() {
			skipped = append(skipped, Skipped{Path: rel, Reason: SkipIrregular, Detail: info.Mode().Type().String()})
			return nil
		}
		if maxSize > 0 && info.Size() > maxSize {
			skipped = append(skipped, Skipped{Path: rel, Reason: SkipTooLarge, Size: info.Size()})
			return nil
		}
		files = append(files, candidate{abs: path, rel: rel, size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].rel < files[j].rel })
	return files, skipped, nil
}

// fileInfo stats d, following a symbolic link to its target.
func fileInfo(path string, d fs.DirEntry) (fs.FileInfo, error) {
	if d.Type()&fs.ModeSymlink != 0 {
		return os.Stat(path)
	}
	return d.Info()
}
