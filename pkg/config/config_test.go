package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/depclean/pkg/cache"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(LoadOptions{Root: t.TempDir()})
	require.NoError(t, err)

	assert.Equal(t, DefaultWorkers, cfg.Workers)
	assert.Equal(t, DefaultMaxFileSize, cfg.MaxFileSize)
	assert.Equal(t, cache.BackendFile, cfg.Cache.Backend)
	assert.True(t, cfg.Backup)
	assert.True(t, cfg.InitReexports)
	assert.False(t, cfg.Manifests)
	assert.Empty(t, cfg.File)

	size, err := cfg.MaxFileSizeBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(1<<20), size)
	assert.Equal(t, Default(), cfg)
}

func TestLoadProjectFile(t *testing.T) {
	root := t.TempDir()
	content := `
exclude: [migrations, "*_pb2.py"]
workers: 3
max_file_size: 256KiB
allowlist: [internal_sdk]
backup: false
cache:
  backend: none
  ttl: 24h
`
	require.NoError(t, os.WriteFile(filepath.Join(root, ".depclean.yaml"), []byte(content), 0o644))

	cfg, err := Load(LoadOptions{Root: root})
	require.NoError(t, err)

	assert.Equal(t, []string{"migrations", "*_pb2.py"}, cfg.Exclude)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, []string{"internal_sdk"}, cfg.Allowlist)
	assert.False(t, cfg.Backup)
	assert.Equal(t, cache.BackendNone, cfg.CacheOptions().Backend)
	assert.Equal(t, filepath.Join(root, ".depclean.yaml"), cfg.File)

	size, err := cfg.MaxFileSizeBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(256<<10), size)
	ttl, err := cfg.CacheTTL()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, ttl)
}

func TestLoadPrecedence(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".depclean.yaml"), []byte("workers: 2\ncache:\n  backend: none\n"), 0o644))
	t.Setenv("DEPCLEAN_WORKERS", "5")
	t.Setenv("DEPCLEAN_CACHE_REDIS_ADDR", "redis:6379")

	cfg, err := Load(LoadOptions{Root: root})
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Workers)
	assert.Equal(t, "redis:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, cache.BackendNone, cfg.Cache.Backend)

	cfg, err = Load(LoadOptions{Root: root, Overrides: map[string]any{"workers": 7, "cache.backend": "file"}})
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Workers)
	assert.Equal(t, cache.BackendFile, cfg.Cache.Backend)
}

func TestLoadExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ci.yaml")
	require.NoError(t, os.WriteFile(path, []byte("manifests: true\n"), 0o644))

	cfg, err := Load(LoadOptions{Path: path})
	require.NoError(t, err)
	assert.True(t, cfg.Manifests)

	_, err = Load(LoadOptions{Path: filepath.Join(dir, "missing.yaml")})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"defaults", func(*Config) {}, nil},
		{"negative workers", func(c *Config) { c.Workers = -1 }, ErrInvalidWorkers},
		{"bad size", func(c *Config) { c.MaxFileSize = "lots" }, ErrInvalidMaxFileSize},
		{"zero size", func(c *Config) { c.MaxFileSize = "0" }, ErrInvalidMaxFileSize},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "memcached" }, ErrInvalidCacheBackend},
		{"bad ttl", func(c *Config) { c.Cache.TTL = "soon" }, ErrInvalidCacheTTL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("DEPCLEAN_MAX_FILE_SIZE", "huge")
	_, err := Load(LoadOptions{Root: t.TempDir()})
	assert.ErrorIs(t, err, ErrInvalidMaxFileSize)
}

func TestWriteYAML(t *testing.T) {
	cfg := Default()
	cfg.Exclude = []string{"build"}

	var buf bytes.Buffer
	require.NoError(t, cfg.WriteYAML(&buf))

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "1MiB", got["max_file_size"])
	assert.Equal(t, []any{"build"}, got["exclude"])
	assert.Contains(t, got, "cache")

	// The export reads back as a config file.
	dir := t.TempDir()
	path := filepath.Join(dir, "exported.yaml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	back, err := Load(LoadOptions{Path: path})
	require.NoError(t, err)
	back.File = ""
	assert.Equal(t, cfg, back)
}
