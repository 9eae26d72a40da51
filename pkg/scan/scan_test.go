package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/depclean/pkg/cache"
	"github.com/matzehuels/depclean/pkg/fingerprint"
	"github.com/matzehuels/depclean/pkg/usage"
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

func sampleTree(t *testing.T) string {
	return writeTree(t, map[string]string{
		"utils.py":              "import os\nimport sys\nimport json\n\ndef f():\n    return json.dumps({})\n",
		"pkg/__init__.py":       "from .core import Engine\n",
		"pkg/core.py":           "from typing import Any, List\n\nx: List[int] = []\n",
		"bad.py":                "def broken(:\n",
		"big.py":                "# " + strings.Repeat("x", 200) + "\n",
		".venv/lib/site.py":     "import requests\n",
		"demo.egg-info/meta.py": "import x\n",
		"README.md":             "not python\n",
	})
}

func paths(files []*FileAnalysis) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func TestScan(t *testing.T) {
	root := sampleTree(t)
	s := New(nil, Options{Workers: 3, MaxFileSize: 128})

	res, err := s.Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"bad.py", "pkg/__init__.py", "pkg/core.py", "utils.py"}, paths(res.Files))
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "big.py", res.Skipped[0].Path)
	assert.Equal(t, SkipTooLarge, res.Skipped[0].Reason)

	assert.Equal(t, 5, res.Stats.Discovered)
	assert.Equal(t, 4, res.Stats.Analyzed)
	assert.Equal(t, 4, res.Stats.Parsed)
	assert.Equal(t, 0, res.Stats.CacheHits)
	assert.Equal(t, 1, res.Stats.Skipped)
	assert.Equal(t, 1, res.Stats.Errors)

	unparseable := res.Unparseable()
	require.Len(t, unparseable, 1)
	assert.Equal(t, "bad.py", unparseable[0].Path)
	assert.Equal(t, 1, unparseable[0].ErrorLine)
	assert.Empty(t, unparseable[0].Imports)

	utils := res.Files[3]
	require.Len(t, utils.Unused, 2)
	assert.Equal(t, "os", utils.Unused[0].Module)
	assert.Equal(t, "sys", utils.Unused[1].Module)
	assert.Equal(t, []string{"json"}, utils.Used)
	assert.True(t, utils.Editable())
	assert.False(t, utils.Fingerprint.IsZero())

	// __init__.py re-exports count as usage under the default policy.
	assert.Empty(t, res.Files[1].Unused)
}

func TestScanPolicy(t *testing.T) {
	root := writeTree(t, map[string]string{"pkg/__init__.py": "from .core import Engine\n"})
	s := New(nil, Options{Policy: &usage.Policy{}})

	res, err := s.Scan(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	assert.Len(t, res.Files[0].Unused, 1)
}

func TestScanReusesAnalyses(t *testing.T) {
	root := sampleTree(t)
	s := New(nil, Options{MaxFileSize: 128})

	_, err := s.Scan(context.Background(), root)
	require.NoError(t, err)
	assert.EqualValues(t, 4, s.ParseCount())

	res, err := s.Scan(context.Background(), root)
	require.NoError(t, err)
	assert.EqualValues(t, 4, s.ParseCount())
	assert.Equal(t, 4, res.Stats.CacheHits)
	assert.Equal(t, 0, res.Stats.Parsed)

	// Editing one file invalidates only that file.
	require.NoError(t, os.WriteFile(filepath.Join(root, "utils.py"), []byte("import os\nos.getcwd()\n"), 0o644))
	res, err = s.Scan(context.Background(), root)
	require.NoError(t, err)
	assert.EqualValues(t, 5, s.ParseCount())
	assert.Equal(t, 1, res.Stats.Parsed)
	assert.Empty(t, res.Files[3].Unused)
}

func TestScanPersistence(t *testing.T) {
	root := sampleTree(t)
	backend, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)

	first := New(NewStore(WithBackend(backend)), Options{MaxFileSize: 128})
	want, err := first.Scan(context.Background(), root)
	require.NoError(t, err)

	second := New(NewStore(WithBackend(backend)), Options{MaxFileSize: 128})
	got, err := second.Scan(context.Background(), root)
	require.NoError(t, err)

	assert.EqualValues(t, 0, second.ParseCount())
	assert.Equal(t, 4, got.Stats.CacheHits)
	for i := range want.Files {
		assert.Equal(t, want.Files[i].Unused, got.Files[i].Unused)
		assert.Equal(t, want.Files[i].Imports, got.Files[i].Imports)
		assert.True(t, want.Files[i].Fingerprint.SameContent(got.Files[i].Fingerprint))
	}
}

func TestStoreCorruptEntry(t *testing.T) {
	backend, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	store := NewStore(WithBackend(backend))
	fp := fingerprint.Of([]byte("import os\n"), time.Unix(0, 0))
	key := store.Key("a.py", fp)
	require.NoError(t, backend.Set(ctx, key, []byte{formatLZ4, 9, 0, 0, 0, 1, 2}, 0))

	_, ok := store.Get(ctx, key)
	assert.False(t, ok)

	// The corrupt entry is dropped and the file analyzed cold.
	_, found, err := backend.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	a, hit, err := store.GetOrAnalyze(ctx, key, func() (*FileAnalysis, error) {
		return Analyze(ctx, "a.py", []byte("import os\n"), fp, usage.DefaultPolicy)
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, a.Unused, 1)
}

func TestStoreDeduplicates(t *testing.T) {
	store := NewStore()
	var calls atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, _, err := store.GetOrAnalyze(context.Background(), "k", func() (*FileAnalysis, error) {
				calls.Add(1)
				time.Sleep(20 * time.Millisecond)
				return &FileAnalysis{Path: "a.py"}, nil
			})
			assert.NoError(t, err)
		}()
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, 1, store.Len())
}

func TestStoreReset(t *testing.T) {
	store := NewStore()
	store.Put(context.Background(), "k", &FileAnalysis{Path: "a.py"})
	require.Equal(t, 1, store.Len())
	require.NoError(t, store.Reset(context.Background()))
	assert.Equal(t, 0, store.Len())
}

func TestScanCanceled(t *testing.T) {
	root := sampleTree(t)
	s := New(nil, Options{Workers: 2, MaxFileSize: 128})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := s.Scan(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)

	// Whatever was published is complete.
	for _, key := range storeKeys(s.Store()) {
		a, ok := s.Store().Get(context.Background(), key)
		require.True(t, ok)
		assert.NotEmpty(t, a.Path)
		assert.False(t, a.Fingerprint.IsZero())
	}
}

func TestAnalyzeFileOutlivesCancel(t *testing.T) {
	var src strings.Builder
	src.WriteString("import os\n")
	for i := range 20000 {
		fmt.Fprintf(&src, "v%d = os.sep\n", i)
	}
	root := writeTree(t, map[string]string{"long.py": src.String()})
	s := New(nil, Options{Workers: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := s.analyzeFile(ctx, candidate{abs: filepath.Join(root, "long.py"), rel: "long.py"})
	require.NotNil(t, out.analysis)
	assert.True(t, out.analysis.Parsed())
	assert.Equal(t, []string{"os"}, out.analysis.Used)
	assert.Equal(t, 1, s.Store().Len())
}

func TestScanCanceledMidway(t *testing.T) {
	root := sampleTree(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reported int
	s := New(nil, Options{
		Workers:     1,
		MaxFileSize: 128,
		Progress: func(done, _ int) {
			reported = done
			cancel()
		},
	})

	_, err := s.Scan(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
	assert.GreaterOrEqual(t, s.Store().Len(), reported)
	for _, key := range storeKeys(s.Store()) {
		a, ok := s.Store().Get(context.Background(), key)
		require.True(t, ok)
		assert.False(t, a.Fingerprint.IsZero())
	}
}

func TestDiscoverSymlinks(t *testing.T) {
	root := writeTree(t, map[string]string{
		"real.py":    "import os\n",
		"data/x.txt": "x\n",
	})
	if err := os.Symlink(filepath.Join(root, "real.py"), filepath.Join(root, "link.py")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	require.NoError(t, os.Symlink(filepath.Join(root, "data"), filepath.Join(root, "dir.py")))
	require.NoError(t, os.Symlink(filepath.Join(root, "missing.py"), filepath.Join(root, "dangling.py")))

	files, skipped, err := New(nil, Options{}).Discover(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"link.py", "real.py"}, files)

	reasons := map[string]string{}
	for _, sk := range skipped {
		reasons[sk.Path] = sk.Reason
	}
	assert.Equal(t, map[string]string{
		"dangling.py": SkipUnreadable,
		"dir.py":      SkipIrregular,
	}, reasons)
}

func storeKeys(s *Store) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	return keys
}

func TestScanProgress(t *testing.T) {
	root := sampleTree(t)
	var calls, last, total int
	s := New(nil, Options{
		Workers:     4,
		MaxFileSize: 128,
		Progress: func(done, n int) {
			calls++
			last, total = done, n
		},
	})

	_, err := s.Scan(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 4, calls)
	assert.Equal(t, 4, last)
	assert.Equal(t, 4, total)
}

func TestScanMissingRoot(t *testing.T) {
	_, err := New(nil, Options{}).Scan(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestExcluded(t *testing.T) {
	patterns := append(append([]string{}, DefaultExcludes...), "src/**/generated")
	tests := []struct {
		rel  string
		want bool
	}{
		{".venv", true},
		{"sub/__pycache__", true},
		{"demo.egg-info", true},
		{"src/a/b/generated", true},
		{"src", false},
		{"generated", false},
		{"builder", false},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			assert.Equal(t, tt.want, excluded(tt.rel, patterns))
		})
	}
}

func TestCodec(t *testing.T) {
	a := &FileAnalysis{
		Path:   "pkg/mod.py",
		Used:   []string{"json"},
		Unused: []usage.UnusedImport{{Module: "os", Line: 1, Names: []string{"os"}, Bindings: []string{"os"}, Whole: true}},
	}
	data, err := encodeAnalysis(a)
	require.NoError(t, err)

	got, err := decodeAnalysis(data)
	require.NoError(t, err)
	assert.Equal(t, a, got)

	for name, bad := range map[string][]byte{
		"short":          {1, 2},
		"unknown format": {7, 0, 0, 0, 0},
		"bad length":     append([]byte{formatRaw, 99, 0, 0, 0}, []byte(`{"path":"a"}`)...),
		"bad json":       append([]byte{formatRaw, 3, 0, 0, 0}, []byte("{{{")...),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := decodeAnalysis(bad)
			assert.ErrorIs(t, err, cache.ErrCorrupt)
		})
	}
}
