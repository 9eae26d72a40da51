package python

import (
	"testing"

	"github.com/matzehuels/depclean/pkg/deps"
)

func TestPoetryLock_Supports(t *testing.T) {
	parser := &PoetryLock{}

	tests := []struct {
		filename string
		want     bool
	}{
		{"poetry.lock", true},
		{"Poetry.lock", false},
		{"requirements.txt", false},
		{"pyproject.toml", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := parser.Supports(tt.filename); got != tt.want {
				t.Errorf("Supports(%q) = %v, want %v", tt.filename, got, tt.want)
			}
		})
	}
}

func TestPoetryLock_Parse(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pyproject.toml", "[tool.poetry]\nname = \"demo\"\n")
	lockFile := writeFile(t, dir, "poetry.lock", `[[package]]
name = "requests"
version = "2.31.0"
description = "Python HTTP for Humans."
category = "main"
optional = false
python-versions = ">=3.7"

[package.dependencies]
certifi = ">=2017.4.17"
urllib3 = ">=1.21.1,<3"

[[package]]
name = "certifi"
version = "2024.2.2"
description = "Python package for providing Mozilla's CA Bundle."
category = "main"
optional = false
python-versions = ">=3.6"

[[package]]
name = "pytest"
version = "7.4.0"
groups = ["dev"]

[metadata]
lock-version = "2.0"
python-versions = "^3.10"
content-hash = "abc123"
`)

	parser := &PoetryLock{}
	result, err := parser.Parse(lockFile, deps.Options{Root: dir})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if result.RootPackage != "demo" {
		t.Errorf("RootPackage = %q, want demo", result.RootPackage)
	}
	if got := len(result.Entries); got != 3 {
		t.Fatalf("len(Entries) = %d, want 3", got)
	}

	tests := []struct {
		name    string
		line    int
		version string
		group   string
	}{
		{"requests", 2, "==2.31.0", deps.GroupMain},
		{"certifi", 14, "==2024.2.2", deps.GroupMain},
		{"pytest", 22, "==7.4.0", deps.GroupDev},
	}
	entries := entriesByName(result)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := entries[tt.name]
			if e.Line != tt.line {
				t.Errorf("Line = %d, want %d", e.Line, tt.line)
			}
			if e.Constraint != tt.version {
				t.Errorf("Constraint = %q, want %q", e.Constraint, tt.version)
			}
			if e.Group != tt.group {
				t.Errorf("Group = %q, want %q", e.Group, tt.group)
			}
			if !e.Locked || e.Removable {
				t.Errorf("Locked = %v, Removable = %v, want locked and not removable", e.Locked, e.Removable)
			}
		})
	}
}

func TestPoetryLock_Type(t *testing.T) {
	parser := &PoetryLock{}
	if got := parser.Type(); got != "poetry.lock" {
		t.Errorf("Type() = %q, want %q", got, "poetry.lock")
	}
}

func TestPoetryLock_IncludesTransitive(t *testing.T) {
	parser := &PoetryLock{}
	if !parser.IncludesTransitive() {
		t.Error("IncludesTransitive() = false, want true")
	}
}

func TestPipfileLock_Parse(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "Pipfile.lock", `{
    "_meta": {"hash": {"sha256": "x"}},
    "default": {
        "requests": {
            "version": "==2.31.0"
        },
        "certifi": {"version": "==2024.2.2"}
    },
    "develop": {
        "pytest": {"version": "==7.4.0", "markers": "python_version >= '3.8'"}
    }
}
`)

	result, err := (&PipfileLock{}).Parse(path, deps.Options{Root: dir})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	want := []struct {
		name  string
		line  int
		group string
	}{
		{"requests", 4, deps.GroupMain},
		{"certifi", 7, deps.GroupMain},
		{"pytest", 10, deps.GroupDev},
	}
	if len(result.Entries) != len(want) {
		t.Fatalf("len(Entries) = %d, want %d", len(result.Entries), len(want))
	}
	for i, w := range want {
		e := result.Entries[i]
		if e.Name != w.name || e.Line != w.line || e.Group != w.group || !e.Locked {
			t.Errorf("Entries[%d] = %+v, want %s line %d group %s locked", i, e, w.name, w.line, w.group)
		}
	}
	if !result.IncludesTransitive {
		t.Error("IncludesTransitive = false, want true")
	}
}

func TestPipfileLock_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "Pipfile.lock", "{not json")
	if _, err := (&PipfileLock{}).Parse(path, deps.Options{}); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
