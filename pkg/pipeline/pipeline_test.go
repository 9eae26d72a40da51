package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/depclean/pkg/cache"
	"github.com/matzehuels/depclean/pkg/config"
	"github.com/matzehuels/depclean/pkg/errors"
	"github.com/matzehuels/depclean/pkg/fix"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func quietLogger() *log.Logger {
	l := log.New(os.Stderr)
	l.SetLevel(log.FatalLevel)
	return l
}

func newRunner(t *testing.T, root string, c cache.Cache) *Runner {
	t.Helper()
	r, err := New(Options{Root: root}, c, quietLogger())
	require.NoError(t, err)
	return r
}

func TestNewRejectsBadRoot(t *testing.T) {
	_, err := New(Options{Root: filepath.Join(t.TempDir(), "missing")}, nil, quietLogger())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidPath))

	file := filepath.Join(t.TempDir(), "f.py")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = New(Options{Root: file}, nil, quietLogger())
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidPath))

	_, err = New(Options{Root: t.TempDir(), MappingsFile: "/nonexistent.toml"}, nil, quietLogger())
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidConfig))
}

func TestScanUnusedImports(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/utils.py": "import os\nimport sys\n",
		"src/main.py":  "import json\n\nprint(json.dumps({}))\n",
	})
	rep, err := newRunner(t, root, nil).Scan(context.Background())
	require.NoError(t, err)

	require.Len(t, rep.UnusedImports, 1)
	assert.Equal(t, "src/utils.py", rep.UnusedImports[0].Path)
	var names []string
	for _, u := range rep.UnusedImports[0].Imports {
		names = append(names, u.Names...)
	}
	assert.Equal(t, []string{"os", "sys"}, names)
	assert.NotNil(t, rep.File("src/main.py"))
	assert.Empty(t, rep.File("src/main.py").Unused)
}

func TestScanPackageFindings(t *testing.T) {
	root := writeTree(t, map[string]string{
		"requirements.txt": "pillow\nPackage-Name\npackage_name\n",
		"app.py":           "import package_name\npackage_name.go()\n",
	})
	rep, err := newRunner(t, root, nil).Scan(context.Background())
	require.NoError(t, err)

	require.Len(t, rep.UnusedPackages, 1)
	assert.Equal(t, "pillow", rep.UnusedPackages[0].Name)
	assert.Contains(t, rep.UnusedPackages[0].Candidates, "PIL")

	require.Len(t, rep.Duplicates, 1)
	assert.Equal(t, []string{"Package-Name", "package_name"}, rep.Duplicates[0].Names)
}

func TestScanReusesAnalyses(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.py": "import os\n",
		"b.py": "import sys\nsys.exit()\n",
	})
	r := newRunner(t, root, nil)
	ctx := context.Background()

	_, err := r.Scan(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, r.ParseCount())

	_, err = r.Scan(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, r.ParseCount())

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.py"), []byte("import os\nos.getcwd()\n"), 0o644))
	rep, err := r.Scan(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, r.ParseCount())
	assert.Empty(t, rep.UnusedImports)
}

func TestScanPersistentCache(t *testing.T) {
	root := writeTree(t, map[string]string{
		"requirements.txt": "-r base.txt\nrequests\n",
		"base.txt":         "flask\n",
		"a.py":             "import requests\nrequests.get('x')\n",
	})
	fc, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	first, err := newRunner(t, root, fc).Scan(ctx)
	require.NoError(t, err)

	r2 := newRunner(t, root, fc)
	second, err := r2.Scan(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, r2.ParseCount())
	assert.Equal(t, first.Declared, second.Declared)
	assert.Equal(t, 1, second.Stats.CacheHits)

	// Changing an included file invalidates the cached manifest.
	require.NoError(t, os.WriteFile(filepath.Join(root, "base.txt"), []byte("flask\ndjango\n"), 0o644))
	third, err := newRunner(t, root, fc).Scan(ctx)
	require.NoError(t, err)
	assert.Len(t, third.Declared, 3)

	require.NoError(t, r2.ClearCache(ctx))
	r3 := newRunner(t, root, fc)
	_, err = r3.Scan(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, r3.ParseCount())
}

func TestCheck(t *testing.T) {
	ctx := context.Background()
	clean := writeTree(t, map[string]string{
		"requirements.txt": "requests\n",
		"a.py":             "import requests\nrequests.get('x')\n",
	})
	res, err := newRunner(t, clean, nil).Check(ctx)
	require.NoError(t, err)
	assert.False(t, res.Failed)
	assert.Empty(t, res.Reasons)

	dirty := writeTree(t, map[string]string{
		"requirements.txt": "requests\nflask\n",
		"a.py":             "import os\nimport requests, numpy\nrequests.get(numpy)\n",
	})
	res, err = newRunner(t, dirty, nil).Check(ctx)
	require.NoError(t, err)
	assert.True(t, res.Failed)
	assert.Equal(t, []string{"1 unused import(s)", "1 unused package(s)", "1 missing package(s)"}, res.Reasons)
}

func TestFix(t *testing.T) {
	root := writeTree(t, map[string]string{
		"requirements.txt": "requests\nflask\n",
		"a.py":             "import os\nimport requests\nrequests.get('x')\n",
	})
	r := newRunner(t, root, nil)
	ctx := context.Background()

	dry, err := r.Fix(ctx, FixOptions{PlanOptions: fix.PlanOptions{Manifests: true}, DryRun: true, Backup: true})
	require.NoError(t, err)
	assert.True(t, dry.Result.DryRun)
	assert.Equal(t, 2, dry.Result.Stats.Modified)
	data, _ := os.ReadFile(filepath.Join(root, "a.py"))
	assert.Equal(t, "import os\nimport requests\nrequests.get('x')\n", string(data))

	res, err := r.Fix(ctx, FixOptions{PlanOptions: fix.PlanOptions{Manifests: true}, Backup: false})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Result.Stats.ImportsRemoved)
	assert.Equal(t, 1, res.Result.Stats.PackagesRemoved)
	data, _ = os.ReadFile(filepath.Join(root, "a.py"))
	assert.Equal(t, "import requests\nrequests.get('x')\n", string(data))
	data, _ = os.ReadFile(filepath.Join(root, "requirements.txt"))
	assert.Equal(t, "requests\n", string(data))

	again, err := r.Fix(ctx, FixOptions{PlanOptions: fix.PlanOptions{Manifests: true}})
	require.NoError(t, err)
	assert.True(t, again.Plan.Empty())
	assert.Equal(t, 0, again.Result.Stats.Modified)
}

func TestStats(t *testing.T) {
	root := writeTree(t, map[string]string{
		"requirements.txt": "requests\n",
		"a.py":             "import requests\nrequests.get('x')\n",
	})
	st, err := newRunner(t, root, nil).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100, st.Health.Score)
	assert.Equal(t, "A", st.Health.Grade)
	require.Len(t, st.Usage, 1)
	assert.Equal(t, "requests", st.Usage[0].Package)
}

func TestValidate(t *testing.T) {
	root := writeTree(t, map[string]string{
		"venv/bin/activate": "",
		".gitignore":        "*.pyc\n",
		"notes.txt":         "",
	})
	v, err := newRunner(t, root, nil).Validate()
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Equal(t, []string{"No Python files found in project"}, v.Errors)
	assert.Len(t, v.Warnings, 2)
	assert.Contains(t, v.Recommendations, "Add __pycache__ to .gitignore to avoid committing cache files")
	assert.Empty(t, v.Manifests)

	root = writeTree(t, map[string]string{
		"pyproject.toml": "[project]\nname = \"x\"\n",
		"x/__init__.py":  "",
	})
	v, err = newRunner(t, root, nil).Validate()
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Empty(t, v.Warnings)
	assert.Equal(t, []string{"pyproject.toml"}, v.Manifests)
	assert.Equal(t, 1, v.PythonFiles)
}

func TestAnalyzeFile(t *testing.T) {
	root := writeTree(t, map[string]string{
		"pkg/mod.py": "import os\nimport re\nre.compile('x')\n",
		"README.md":  "",
	})
	r := newRunner(t, root, nil)
	ctx := context.Background()

	a, err := r.AnalyzeFile(ctx, "pkg/mod.py")
	require.NoError(t, err)
	assert.Equal(t, []string{"re"}, a.Used)
	require.Len(t, a.Unused, 1)

	b, err := r.AnalyzeFile(ctx, filepath.Join(root, "pkg", "mod.py"))
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = r.AnalyzeFile(ctx, "README.md")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
	_, err = r.AnalyzeFile(ctx, "pkg/missing.py")
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
	_, err = r.AnalyzeFile(ctx, "../outside.py")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidPath))
}

func TestMappingsAndAllowlist(t *testing.T) {
	root := writeTree(t, map[string]string{
		"mappings.toml":    "version = 1\n[packages]\nacme-client = [\"acme\"]\n",
		"requirements.txt": "acme-client\n",
		"a.py":             "import acme\nimport corp_tools\nacme.run(corp_tools)\n",
	})
	cfg := config.Default()
	cfg.MappingsFile = "mappings.toml"
	cfg.Allowlist = []string{"corp_tools"}
	opts, err := OptionsFromConfig(root, cfg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "mappings.toml"), opts.MappingsFile)
	assert.EqualValues(t, 1<<20, opts.MaxFileSize)

	r, err := New(opts, nil, quietLogger())
	require.NoError(t, err)
	rep, err := r.Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rep.UnusedPackages)
	assert.Empty(t, rep.MissingPackages)
}
