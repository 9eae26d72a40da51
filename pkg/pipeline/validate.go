package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/depclean/pkg/deps/python"
	"github.com/matzehuels/depclean/pkg/errors"
)

// LargeProjectFiles is the file count above which Validate suggests more
// workers.
const LargeProjectFiles = 1000

// Validation is the outcome of [Runner.Validate].
type Validation struct {
	Valid           bool     `json:"valid" yaml:"valid"`
	Errors          []string `json:"errors,omitempty" yaml:"errors,omitempty"`
	Warnings        []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Recommendations []string `json:"recommendations,omitempty" yaml:"recommendations,omitempty"`
	Manifests       []string `json:"manifests" yaml:"manifests"`
	PythonFiles     int      `json:"python_files" yaml:"python_files"`
}

// Validate checks the project layout without analyzing any file.
func (r *Runner) Validate() (*Validation, error) {
	v := &Validation{Valid: true}
	root := r.opts.Root

	paths, err := python.Discover(root, r.parsers...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "list manifests")
	}
	v.Manifests = make([]string, 0, len(paths))
	for _, p := range paths {
		v.Manifests = append(v.Manifests, filepath.Base(p))
	}
	if len(paths) == 0 {
		v.Warnings = append(v.Warnings, "No dependency file found (requirements.txt, pyproject.toml, setup.py, setup.cfg, Pipfile)")
		v.Recommendations = append(v.Recommendations, "Consider creating a requirements.txt or pyproject.toml to track dependencies")
	}

	files, _, err := r.scanner.Discover(root)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "list source files")
	}
	v.PythonFiles = len(files)
	if len(files) == 0 {
		v.Errors = append(v.Errors, "No Python files found in project")
		v.Valid = false
	}

	if info, err := os.Stat(filepath.Join(root, "venv")); err == nil && info.IsDir() {
		v.Warnings = append(v.Warnings, "Virtual environment directory 'venv' found in project root")
		v.Recommendations = append(v.Recommendations, "Consider renaming to '.venv' to follow common conventions")
	}

	if data, err := os.ReadFile(filepath.Join(root, ".gitignore")); err == nil && !strings.Contains(string(data), "__pycache__") {
		v.Recommendations = append(v.Recommendations, "Add __pycache__ to .gitignore to avoid committing cache files")
	}

	if len(files) > LargeProjectFiles {
		v.Recommendations = append(v.Recommendations,
			fmt.Sprintf("Large project (%d files). Consider increasing workers for faster scanning.", len(files)))
	}
	return v, nil
}
