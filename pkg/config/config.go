// Package config loads depclean settings from defaults, an optional
// .depclean.yaml file, DEPCLEAN_* environment variables and command-line
// overrides, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/depclean/pkg/cache"
)

// Defaults.
const (
	DefaultWorkers      = 0 // one per CPU
	DefaultMaxFileSize  = "1MiB"
	DefaultCacheBackend = cache.BackendFile
	DefaultBackup       = true
)

// Config is the effective configuration. Field tags use mapstructure for
// viper unmarshalling and yaml for export.
type Config struct {
	Exclude       []string    `mapstructure:"exclude" yaml:"exclude"`
	Workers       int         `mapstructure:"workers" yaml:"workers"`
	MaxFileSize   string      `mapstructure:"max_file_size" yaml:"max_file_size"`
	Cache         CacheConfig `mapstructure:"cache" yaml:"cache"`
	Allowlist     []string    `mapstructure:"allowlist" yaml:"allowlist"`
	MappingsFile  string      `mapstructure:"mappings_file" yaml:"mappings_file"`
	InitReexports bool        `mapstructure:"init_reexports" yaml:"init_reexports"`
	Backup        bool        `mapstructure:"backup" yaml:"backup"`
	Manifests     bool        `mapstructure:"manifests" yaml:"manifests"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-" yaml:"-"`
}

// CacheConfig selects the analysis cache backend.
type CacheConfig struct {
	Backend   string `mapstructure:"backend" yaml:"backend"`
	Dir       string `mapstructure:"dir" yaml:"dir"`
	RedisAddr string `mapstructure:"redis_addr" yaml:"redis_addr"`
	TTL       string `mapstructure:"ttl" yaml:"ttl"`
}

// Sentinel errors for configuration validation.
var (
	// ErrInvalidWorkers indicates a negative worker count.
	ErrInvalidWorkers = errors.New("workers must be non-negative")
	// ErrInvalidMaxFileSize indicates an unparseable or zero size.
	ErrInvalidMaxFileSize = errors.New("max_file_size must be a positive size such as 512KiB or 2MB")
	// ErrInvalidCacheBackend indicates an unknown cache backend.
	ErrInvalidCacheBackend = errors.New("cache.backend must be one of file, redis, none")
	// ErrInvalidCacheTTL indicates an unparseable cache TTL.
	ErrInvalidCacheTTL = errors.New("cache.ttl must be a duration such as 24h")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return ErrInvalidWorkers
	}
	if _, err := c.MaxFileSizeBytes(); err != nil {
		return err
	}
	switch c.Cache.Backend {
	case "", cache.BackendFile, cache.BackendRedis, cache.BackendNone:
	default:
		return ErrInvalidCacheBackend
	}
	if _, err := c.CacheTTL(); err != nil {
		return err
	}
	return nil
}

// MaxFileSizeBytes parses MaxFileSize.
func (c *Config) MaxFileSizeBytes() (int64, error) {
	n, err := humanize.ParseBytes(c.MaxFileSize)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMaxFileSize, c.MaxFileSize)
	}
	return int64(n), nil
}

// CacheOptions converts the cache section for [cache.Open].
func (c *Config) CacheOptions() cache.Options {
	return cache.Options{
		Backend:   c.Cache.Backend,
		Dir:       c.Cache.Dir,
		RedisAddr: c.Cache.RedisAddr,
	}
}

// WriteYAML writes the configuration in the .depclean.yaml format.
func (c *Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}
