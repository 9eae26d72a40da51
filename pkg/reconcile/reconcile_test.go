package reconcile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/depclean/pkg/deps"
	"github.com/matzehuels/depclean/pkg/deps/python"
	"github.com/matzehuels/depclean/pkg/identity"
	"github.com/matzehuels/depclean/pkg/report"
	"github.com/matzehuels/depclean/pkg/scan"
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

func reconcileTree(t *testing.T, root string, norm *identity.Normalizer) *report.Report {
	t.Helper()
	res, err := scan.New(nil, scan.Options{}).Scan(context.Background(), root)
	require.NoError(t, err)

	paths, err := python.Discover(root)
	require.NoError(t, err)
	manifests, failed := deps.ParseAll(paths, deps.Options{Root: root}, python.Parsers()...)

	return Reconcile(Input{
		Scan:           res,
		Manifests:      manifests,
		ManifestErrors: failed,
		Normalizer:     norm,
		Now:            func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) },
	})
}

const mainPy = `from __future__ import annotations
import os
import requests
import yaml
import numpy as np
from urllib3 import PoolManager
from . import helpers
from app import config


def run():
    requests.get("x")
    PoolManager()
    return helpers, config
`

func sampleProject(t *testing.T) string {
	return writeTree(t, map[string]string{
		"requirements.txt": "requests>=2\nPyYAML\nflask\nDjango\ndjango\n",
		"poetry.lock":      "[[package]]\nname = \"urllib3\"\nversion = \"2.2.1\"\n",
		"app/__init__.py":  "",
		"app/helpers.py":   "",
		"app/config.py":    "",
		"app/main.py":      mainPy,
	})
}

func TestReconcile(t *testing.T) {
	r := reconcileTree(t, sampleProject(t), nil)

	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), r.GeneratedAt)

	require.Len(t, r.UnusedImports, 1)
	assert.Equal(t, "app/main.py", r.UnusedImports[0].Path)
	assert.Equal(t, 3, r.UnusedImports[0].Count())

	var unused []string
	for _, p := range r.UnusedPackages {
		unused = append(unused, p.Name)
	}
	assert.Equal(t, []string{"Django", "django", "flask", "PyYAML"}, unused)

	require.Len(t, r.MissingPackages, 2)
	assert.Equal(t, "numpy", r.MissingPackages[0].Module)
	assert.False(t, r.MissingPackages[0].Locked)
	assert.Equal(t, []string{"app/main.py"}, r.MissingPackages[0].Files)
	assert.NotEmpty(t, r.MissingPackages[0].Suggestions)
	assert.Equal(t, "urllib3", r.MissingPackages[1].Module)
	assert.True(t, r.MissingPackages[1].Locked)

	require.Len(t, r.Duplicates, 1)
	assert.Equal(t, "django", r.Duplicates[0].Canonical)
	assert.Equal(t, []string{"Django", "django"}, r.Duplicates[0].Names)

	require.Len(t, r.Usage, 2)
	assert.Equal(t, report.PackageUsage{Package: "requests", Files: []string{"app/main.py"}, Declared: true}, r.Usage[0])
	assert.Equal(t, "urllib3", r.Usage[1].Package)
	assert.False(t, r.Usage[1].Declared)

	assert.Equal(t, report.Counts{
		Files:          4,
		Parsed:         4,
		Imports:        7,
		UnusedImports:  3,
		Declared:       5,
		UnusedPackages: 4,
		Missing:        2,
		Duplicates:     1,
	}, r.Counts)
	assert.Equal(t, 39, r.Health.Score)
	assert.Equal(t, "F", r.Health.Grade)
	assert.Len(t, r.Manifests, 2)
	assert.Len(t, r.Declared, 6)
}

func TestReconcileIsolatesFailures(t *testing.T) {
	root := writeTree(t, map[string]string{
		"requirements.txt": "requests\n",
		"pyproject.toml":   "[project\n",
		"ok.py":            "import requests\nrequests.get('x')\n",
		"broken.py":        "import yaml\ndef (:\n",
	})
	r := reconcileTree(t, root, nil)

	require.Len(t, r.Unparseable, 1)
	assert.Equal(t, "broken.py", r.Unparseable[0].Path)
	// yaml is only imported by the broken file, so it is not reported.
	assert.Empty(t, r.MissingPackages)
	assert.Empty(t, r.UnusedPackages)
	require.Len(t, r.ManifestWarnings, 1)
	assert.Contains(t, r.ManifestWarnings[0], "pyproject.toml")
	assert.Equal(t, 100, r.Health.Score)
	assert.False(t, r.HasFindings())
}

func TestReconcileFirstParty(t *testing.T) {
	root := writeTree(t, map[string]string{
		"pyproject.toml":       "[project]\nname = \"my-tool\"\ndependencies = []\n",
		"src/mylib/__init__.py": "",
		"src/mylib/core.py":    "from mylib import util\nimport my_tool\nimport scripts\nutil, my_tool, scripts\n",
		"scripts.py":           "",
	})
	r := reconcileTree(t, root, nil)
	assert.Empty(t, r.MissingPackages)
}

func TestReconcileAllowlist(t *testing.T) {
	root := writeTree(t, map[string]string{
		"requirements.txt": "",
		"a.py":             "import internal_sdk\ninternal_sdk.run()\n",
	})
	r := reconcileTree(t, root, identity.New(identity.Options{Allowlist: []string{"internal_sdk"}}))
	assert.Empty(t, r.MissingPackages)

	r = reconcileTree(t, root, nil)
	require.Len(t, r.MissingPackages, 1)
	assert.Equal(t, "internal_sdk", r.MissingPackages[0].Module)
}

func TestReconcileIncludedEntriesCountOnce(t *testing.T) {
	root := writeTree(t, map[string]string{
		"requirements.txt":     "-r requirements-dev.txt\nrequests\n",
		"requirements-dev.txt": "pytest\n",
		"a.py":                 "import requests, pytest\nrequests, pytest\n",
	})
	r := reconcileTree(t, root, nil)
	assert.Len(t, r.Declared, 2)
	assert.Empty(t, r.UnusedPackages)
	assert.Empty(t, r.Duplicates)
}

func TestDuplicates(t *testing.T) {
	entries := []deps.PackageEntry{
		{Name: "ruamel.yaml", Line: 1},
		{Name: "ruamel-yaml", Line: 2},
		{Name: "requests", Line: 3},
		{Name: "requests", Line: 4},
	}
	got := duplicates(entries)
	require.Len(t, got, 1)
	assert.Equal(t, "ruamel-yaml", got[0].Canonical)
	assert.Equal(t, []string{"ruamel-yaml", "ruamel.yaml"}, got[0].Names)
	assert.Len(t, got[0].Entries, 2)
}

func TestFirstParty(t *testing.T) {
	files := []*scan.FileAnalysis{
		{Path: "setup.py"},
		{Path: "src/pkg/mod.py"},
		{Path: "tools/gen.py"},
		{Path: "My-Mod.py"},
	}
	got := firstParty(files)
	for _, name := range []string{"setup", "pkg", "tools", "my_mod"} {
		assert.True(t, got[name], name)
	}
	assert.False(t, got["src"])
}
