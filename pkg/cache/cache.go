// Package cache provides pluggable byte caches used to persist file analyses
// across runs.
//
// Three backends are available: [FileCache] (the default, one JSON entry per
// key under a sharded directory), [RedisCache] for shared CI caches, and
// [NullCache] which disables persistence. Values are opaque bytes; callers
// own their encoding.
//
// Keys are produced by a [Keyer] so that a change of the analysis format
// (see [AnalysisVersion]) invalidates every persisted entry at once.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values by key.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Clearer is implemented by backends that can drop all of their entries.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Backend names accepted by [Open].
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Options configures [Open].
type Options struct {
	Backend   string // file, redis or none
	Dir       string // FileCache directory
	RedisAddr string // host:port for the redis backend
	Prefix    string // redis key prefix
}

// Open returns the backend selected by opts.Backend. An empty backend name
// selects the file cache.
func Open(ctx context.Context, opts Options) (Cache, error) {
	switch opts.Backend {
	case "", BackendFile:
		c, err := NewFileCache(opts.Dir)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendRedis:
		c, err := NewRedisCache(ctx, RedisOptions{Addr: opts.RedisAddr, Prefix: opts.Prefix})
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendNone:
		return NewNullCache(), nil
	default:
		return nil, &UnknownBackendError{Name: opts.Backend}
	}
}

// UnknownBackendError is returned by [Open] for an unrecognized backend name.
type UnknownBackendError struct{ Name string }

func (e *UnknownBackendError) Error() string {
	return "unknown cache backend: " + e.Name
}
