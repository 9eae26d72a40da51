package deps

import (
	"errors"
	"path/filepath"
	"testing"

	errs "github.com/matzehuels/depclean/pkg/errors"
)

type mockManifestParserForDetect struct {
	typeName     string
	supportsFunc func(string) bool
	parseErr     error
}

func (m *mockManifestParserForDetect) Type() string { return m.typeName }
func (m *mockManifestParserForDetect) Supports(filename string) bool {
	if m.supportsFunc != nil {
		return m.supportsFunc(filename)
	}
	return false
}
func (m *mockManifestParserForDetect) IncludesTransitive() bool { return false }
func (m *mockManifestParserForDetect) Parse(path string, opts Options) (*ManifestResult, error) {
	if m.parseErr != nil {
		return nil, m.parseErr
	}
	return &ManifestResult{Path: opts.Rel(path), Type: m.typeName}, nil
}

func TestDetectManifest(t *testing.T) {
	poetry := &mockManifestParserForDetect{
		typeName: "poetry",
		supportsFunc: func(f string) bool {
			return f == "pyproject.toml"
		},
	}
	requirements := &mockManifestParserForDetect{
		typeName: "requirements",
		supportsFunc: func(f string) bool {
			return f == "requirements.txt"
		},
	}

	tests := []struct {
		name     string
		path     string
		parsers  []ManifestParser
		wantType string
		wantErr  bool
	}{
		{
			name:     "matches poetry",
			path:     "/some/path/pyproject.toml",
			parsers:  []ManifestParser{poetry, requirements},
			wantType: "poetry",
			wantErr:  false,
		},
		{
			name:     "matches requirements",
			path:     "/project/requirements.txt",
			parsers:  []ManifestParser{poetry, requirements},
			wantType: "requirements",
			wantErr:  false,
		},
		{
			name:    "no match",
			path:    "/project/unknown.yaml",
			parsers: []ManifestParser{poetry, requirements},
			wantErr: true,
		},
		{
			name:    "no parsers",
			path:    "/project/anything.txt",
			parsers: []ManifestParser{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser, err := DetectManifest(tt.path, tt.parsers...)
			if tt.wantErr {
				if err == nil {
					t.Error("DetectManifest() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("DetectManifest() unexpected error: %v", err)
			}
			if parser.Type() != tt.wantType {
				t.Errorf("DetectManifest().Type() = %q, want %q", parser.Type(), tt.wantType)
			}
		})
	}
}

func TestDetectManifestFirstMatch(t *testing.T) {
	// Test that first matching parser is returned
	p1 := &mockManifestParserForDetect{
		typeName: "first",
		supportsFunc: func(f string) bool {
			return f == "test.txt"
		},
	}
	p2 := &mockManifestParserForDetect{
		typeName: "second",
		supportsFunc: func(f string) bool {
			return f == "test.txt"
		},
	}

	parser, err := DetectManifest("/path/test.txt", p1, p2)
	if err != nil {
		t.Fatalf("DetectManifest() error: %v", err)
	}
	if parser.Type() != "first" {
		t.Errorf("DetectManifest() should return first matching parser, got %q", parser.Type())
	}
}

func TestParseAllCollectsFailures(t *testing.T) {
	root := t.TempDir()
	good := &mockManifestParserForDetect{
		typeName:     "requirements",
		supportsFunc: func(f string) bool { return f == "requirements.txt" },
	}
	bad := &mockManifestParserForDetect{
		typeName:     "pyproject",
		supportsFunc: func(f string) bool { return f == "pyproject.toml" },
		parseErr:     errors.New("toml: bad key"),
	}

	paths := []string{
		filepath.Join(root, "requirements.txt"),
		filepath.Join(root, "pyproject.toml"),
		filepath.Join(root, "unknown.cfg"),
	}
	results, failed := ParseAll(paths, Options{Root: root}, good, bad)

	if len(results) != 1 || results[0].Path != "requirements.txt" {
		t.Fatalf("results = %+v, want one requirements.txt result", results)
	}
	if len(failed) != 2 {
		t.Fatalf("failed = %d, want 2", len(failed))
	}
	if failed[0].Path != "pyproject.toml" {
		t.Errorf("failed[0].Path = %q, want pyproject.toml", failed[0].Path)
	}
	if !errors.Is(failed[0], bad.parseErr) {
		t.Error("ParseError should unwrap to the parser error")
	}
	if failed[0].Code != errs.ErrCodeParse {
		t.Errorf("failed[0].Code = %q, want %q", failed[0].Code, errs.ErrCodeParse)
	}
	if failed[1].Code != errs.ErrCodeUnsupported {
		t.Errorf("failed[1].Code = %q, want %q", failed[1].Code, errs.ErrCodeUnsupported)
	}
}

func TestOptionsRel(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "src", "app")
	opts := Options{Root: root}

	tests := []struct {
		path string
		want string
	}{
		{filepath.Join(root, "requirements", "dev.txt"), "requirements/dev.txt"},
		{filepath.Join(root, "Pipfile"), "Pipfile"},
		{filepath.Join(string(filepath.Separator), "other", "x.txt"), "/other/x.txt"},
	}
	for _, tt := range tests {
		if got := opts.Rel(tt.path); got != tt.want {
			t.Errorf("Rel(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}

	if got := (Options{}).Rel("a/b.txt"); got != "a/b.txt" {
		t.Errorf("Rel without root = %q", got)
	}
}

func TestPackageEntryIsDev(t *testing.T) {
	tests := []struct {
		group string
		want  bool
	}{
		{GroupMain, false},
		{GroupDev, true},
		{"test", true},
		{"Docs", true},
		{"postgres", false},
	}
	for _, tt := range tests {
		if got := (PackageEntry{Group: tt.group}).IsDev(); got != tt.want {
			t.Errorf("IsDev(%q) = %v, want %v", tt.group, got, tt.want)
		}
	}
}
