package python

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/depclean/pkg/deps"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func entriesByName(res *deps.ManifestResult) map[string]deps.PackageEntry {
	m := make(map[string]deps.PackageEntry, len(res.Entries))
	for _, e := range res.Entries {
		m[e.Name] = e
	}
	return m
}

func TestRequirements_Supports(t *testing.T) {
	parser := &Requirements{}

	tests := []struct {
		filename string
		want     bool
	}{
		{"requirements.txt", true},
		{"requirements-dev.txt", true},
		{"requirements_prod.txt", true},
		{"requirements-test.txt", true},
		{"requirements.in", true},
		{"pyproject.toml", false},
		{"poetry.lock", false},
		{"Pipfile", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := parser.Supports(tt.filename); got != tt.want {
				t.Errorf("Supports(%q) = %v, want %v", tt.filename, got, tt.want)
			}
		})
	}
}

func TestRequirements_Parse(t *testing.T) {
	dir := t.TempDir()
	reqFile := writeFile(t, dir, "requirements.txt", `# Test requirements
requests[socks]>=2.28.0
click==8.1.0  # pinned
pydantic>=2.0; python_version >= "3.8"
httpx \
    >=0.24

-e ./local-package
git+https://github.com/user/repo.git
mylib @ https://example.com/mylib-1.0-py3-none-any.whl
-r requirements-dev.txt
`)
	writeFile(t, dir, "requirements-dev.txt", `pytest>=7
-r requirements.txt
`)

	parser := &Requirements{}
	result, err := parser.Parse(reqFile, deps.Options{Root: dir})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if got := len(result.Entries); got != 6 {
		t.Fatalf("len(Entries) = %d, want 6: %+v", got, result.Entries)
	}

	tests := []struct {
		name       string
		line, end  int
		constraint string
		group      string
		manifest   string
	}{
		{"requests", 2, 2, ">=2.28.0", deps.GroupMain, "requirements.txt"},
		{"click", 3, 3, "==8.1.0", deps.GroupMain, "requirements.txt"},
		{"pydantic", 4, 4, ">=2.0", deps.GroupMain, "requirements.txt"},
		{"httpx", 5, 6, ">=0.24", deps.GroupMain, "requirements.txt"},
		{"mylib", 10, 10, "", deps.GroupMain, "requirements.txt"},
		{"pytest", 1, 1, ">=7", deps.GroupDev, "requirements-dev.txt"},
	}
	entries := entriesByName(result)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ok := entries[tt.name]
			if !ok {
				t.Fatalf("entry %q not found", tt.name)
			}
			if e.Line != tt.line || e.EndLine != tt.end {
				t.Errorf("lines = %d-%d, want %d-%d", e.Line, e.EndLine, tt.line, tt.end)
			}
			if e.Constraint != tt.constraint {
				t.Errorf("Constraint = %q, want %q", e.Constraint, tt.constraint)
			}
			if e.Group != tt.group {
				t.Errorf("Group = %q, want %q", e.Group, tt.group)
			}
			if e.Manifest != tt.manifest {
				t.Errorf("Manifest = %q, want %q", e.Manifest, tt.manifest)
			}
			if !e.Removable {
				t.Error("Removable = false, want true")
			}
		})
	}

	if got := entries["requests"].Extras; len(got) != 1 || got[0] != "socks" {
		t.Errorf("requests extras = %v, want [socks]", got)
	}
	if got := entries["pydantic"].Marker; got != `python_version >= "3.8"` {
		t.Errorf("pydantic marker = %q", got)
	}
	if got := len(result.Hashes); got != 2 {
		t.Errorf("len(Hashes) = %d, want 2", got)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "cycle") {
		t.Errorf("Warnings = %v, want one include cycle warning", result.Warnings)
	}
}

func TestRequirements_MissingInclude(t *testing.T) {
	dir := t.TempDir()
	reqFile := writeFile(t, dir, "requirements.txt", "-r missing.txt\nflask\n")

	result, err := (&Requirements{}).Parse(reqFile, deps.Options{Root: dir})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(result.Entries) != 1 || result.Entries[0].Name != "flask" {
		t.Errorf("Entries = %+v, want [flask]", result.Entries)
	}
	if len(result.Warnings) != 1 {
		t.Errorf("Warnings = %v, want 1", result.Warnings)
	}
}

func TestRequirements_InvalidLine(t *testing.T) {
	dir := t.TempDir()
	reqFile := writeFile(t, dir, "requirements.txt", "flask\nnot a requirement\n")

	result, err := (&Requirements{}).Parse(reqFile, deps.Options{Root: dir})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(result.Entries) != 1 {
		t.Errorf("len(Entries) = %d, want 1", len(result.Entries))
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "requirements.txt:2") {
		t.Errorf("Warnings = %v", result.Warnings)
	}
}

func TestRequirementsGroup(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"requirements.txt", deps.GroupMain},
		{"requirements-dev.txt", deps.GroupDev},
		{"requirements_test.txt", "test"},
		{"requirements/docs.in", "docs"},
		{"requirements-prod.txt", deps.GroupMain},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := requirementsGroup(tt.path); got != tt.want {
				t.Errorf("requirementsGroup(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestRequirements_Type(t *testing.T) {
	parser := &Requirements{}
	if got := parser.Type(); got != "requirements.txt" {
		t.Errorf("Type() = %q, want %q", got, "requirements.txt")
	}
}

func TestRequirements_IncludesTransitive(t *testing.T) {
	parser := &Requirements{}
	if parser.IncludesTransitive() {
		t.Error("IncludesTransitive() = true, want false")
	}
}
