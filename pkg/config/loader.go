package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".depclean"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for depclean settings.
const envPrefix = "DEPCLEAN"

// LoadOptions tells [Load] where to look.
type LoadOptions struct {
	// Root is searched for .depclean.yaml when Path is empty.
	Root string
	// Path names an explicit config file, which must exist.
	Path string
	// Overrides are applied last, typically from command-line flags that
	// were set explicitly. Keys use the dotted config names.
	Overrides map[string]any
}

// Load reads the configuration. A missing .depclean.yaml is not an error;
// defaults are used.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()
	applyDefaults(v)

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.Path != "" {
		v.SetConfigFile(opts.Path)
	} else {
		v.SetConfigName(configName)
		root := opts.Root
		if root == "" {
			root = "."
		}
		v.AddConfigPath(root)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.Path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	for k, val := range opts.Overrides {
		v.Set(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	v := viper.New()
	applyDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("exclude", []string{})
	v.SetDefault("workers", DefaultWorkers)
	v.SetDefault("max_file_size", DefaultMaxFileSize)
	v.SetDefault("cache.backend", DefaultCacheBackend)
	v.SetDefault("cache.dir", "")
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.ttl", "")
	v.SetDefault("allowlist", []string{})
	v.SetDefault("mappings_file", "")
	v.SetDefault("init_reexports", true)
	v.SetDefault("backup", DefaultBackup)
	v.SetDefault("manifests", false)
}

// CacheTTL parses Cache.TTL. Empty means entries never expire.
func (c *Config) CacheTTL() (time.Duration, error) {
	if c.Cache.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Cache.TTL)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCacheTTL, c.Cache.TTL)
	}
	return d, nil
}
