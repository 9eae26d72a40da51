package python

import (
	"testing"

	"github.com/matzehuels/depclean/pkg/deps"
)

type wantEntry struct {
	name       string
	line       int
	group      string
	constraint string
	removable  bool
}

func checkEntries(t *testing.T, got []deps.PackageEntry, want []wantEntry) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("len(Entries) = %d, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		e := got[i]
		if e.Name != w.name {
			t.Errorf("Entries[%d].Name = %q, want %q", i, e.Name, w.name)
			continue
		}
		if e.Line != w.line {
			t.Errorf("%s: Line = %d, want %d", w.name, e.Line, w.line)
		}
		if e.Group != w.group {
			t.Errorf("%s: Group = %q, want %q", w.name, e.Group, w.group)
		}
		if e.Constraint != w.constraint {
			t.Errorf("%s: Constraint = %q, want %q", w.name, e.Constraint, w.constraint)
		}
		if e.Removable != w.removable {
			t.Errorf("%s: Removable = %v, want %v", w.name, e.Removable, w.removable)
		}
	}
}

func TestPyproject_Parse(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "pyproject.toml", `[project]
name = "demo"
dependencies = [
    "requests>=2.0",
    "click",  # cli
]

[project.optional-dependencies]
test = ["pytest>=7", "coverage"]

[dependency-groups]
lint = [
    "ruff",
    {include-group = "test"},
]

[tool.poetry.dependencies]
python = "^3.10"
numpy = { version = "^1.26", extras = ["blas"] }

[tool.poetry.group.dev.dependencies]
black = "*"
`)

	result, err := (&Pyproject{}).Parse(path, deps.Options{Root: dir})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if result.RootPackage != "demo" {
		t.Errorf("RootPackage = %q, want demo", result.RootPackage)
	}

	checkEntries(t, result.Entries, []wantEntry{
		{"requests", 4, deps.GroupMain, ">=2.0", true},
		{"click", 5, deps.GroupMain, "", true},
		{"pytest", 9, "test", ">=7", false},
		{"coverage", 9, "test", "", false},
		{"ruff", 13, "lint", "", true},
		{"numpy", 19, deps.GroupMain, "^1.26", true},
		{"black", 22, "dev", "", true},
	})

	numpy := entriesByName(result)["numpy"]
	if len(numpy.Extras) != 1 || numpy.Extras[0] != "blas" {
		t.Errorf("numpy extras = %v, want [blas]", numpy.Extras)
	}
}

func TestPyproject_PoetryMultilineValue(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "pyproject.toml", `[tool.poetry]
name = "demo"

[tool.poetry.dependencies]
python = "^3.10"
torch = [
    { version = "^2.1", markers = "sys_platform == 'darwin'" },
    { version = "^2.1", source = "pytorch" },
]
rich = "^13"
`)

	result, err := (&Pyproject{}).Parse(path, deps.Options{Root: dir})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	entries := entriesByName(result)
	torch := entries["torch"]
	if torch.Line != 6 || torch.EndLine != 9 || !torch.Removable {
		t.Errorf("torch = %+v, want lines 6-9 removable", torch)
	}
	if entries["rich"].Line != 10 {
		t.Errorf("rich line = %d, want 10", entries["rich"].Line)
	}
	if result.RootPackage != "demo" {
		t.Errorf("RootPackage = %q, want demo", result.RootPackage)
	}
}

func TestPyproject_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "pyproject.toml", "[project\nname = ")
	if _, err := (&Pyproject{}).Parse(path, deps.Options{}); err == nil {
		t.Error("expected error for invalid TOML")
	}
}

func TestPipfile_Parse(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "Pipfile", `[[source]]
url = "https://pypi.org/simple"

[packages]
requests = "*"
django = {version = ">=4", extras = ["bcrypt"]}

[dev-packages]
pytest = ">=7"

[requires]
python_version = "3.11"
`)

	result, err := (&Pipfile{}).Parse(path, deps.Options{Root: dir})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	checkEntries(t, result.Entries, []wantEntry{
		{"requests", 5, deps.GroupMain, "", true},
		{"django", 6, deps.GroupMain, ">=4", true},
		{"pytest", 9, deps.GroupDev, ">=7", true},
	})
}
