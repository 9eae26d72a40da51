package scan

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/depclean/pkg/cache"
	"github.com/matzehuels/depclean/pkg/fingerprint"
	"github.com/matzehuels/depclean/pkg/observability"
)

const keyTypeAnalysis = "analysis"

// Store is the shared analysis cache. The map is guarded by a single
// RWMutex; per-key work is deduplicated through a singleflight group so
// no two goroutines analyze the same key at once.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*FileAnalysis
	group   singleflight.Group

	backend cache.Cache
	keyer   cache.Keyer
	ttl     time.Duration
	logger  *log.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithBackend persists analyses to c.
func WithBackend(c cache.Cache) StoreOption { return func(s *Store) { s.backend = c } }

// WithKeyer overrides the key scheme, for example with a project-scoped keyer.
func WithKeyer(k cache.Keyer) StoreOption { return func(s *Store) { s.keyer = k } }

// WithTTL sets the expiry of persisted entries.
func WithTTL(ttl time.Duration) StoreOption { return func(s *Store) { s.ttl = ttl } }

// WithStoreLogger sets the logger for persistence diagnostics.
func WithStoreLogger(l *log.Logger) StoreOption { return func(s *Store) { s.logger = l } }

// NewStore returns an empty in-memory store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		entries: make(map[string]*FileAnalysis),
		backend: cache.NewNullCache(),
		keyer:   cache.NewDefaultKeyer(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard)
	}
	return s
}

// Key returns the cache key of a file version.
func (s *Store) Key(rel string, fp fingerprint.Fingerprint) string {
	return s.keyer.AnalysisKey(rel, fp.String())
}

// Len returns the number of analyses held in memory.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Get returns the analysis for key from memory or the persistent backend.
func (s *Store) Get(ctx context.Context, key string) (*FileAnalysis, bool) {
	s.mu.RLock()
	a, ok := s.entries[key]
	s.mu.RUnlock()
	if ok {
		observability.Cache().OnCacheHit(ctx, keyTypeAnalysis)
		return a, true
	}

	data, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		s.logger.Debug("cache read failed", "key", key, "err", err)
	}
	if !ok || err != nil {
		observability.Cache().OnCacheMiss(ctx, keyTypeAnalysis)
		return nil, false
	}
	a, err = decodeAnalysis(data)
	if err != nil {
		s.logger.Warn("dropping corrupt cache entry", "key", key, "err", err)
		_ = s.backend.Delete(ctx, key)
		observability.Cache().OnCacheMiss(ctx, keyTypeAnalysis)
		return nil, false
	}

	s.mu.Lock()
	s.entries[key] = a
	s.mu.Unlock()
	observability.Cache().OnCacheHit(ctx, keyTypeAnalysis)
	return a, true
}

// Put publishes a complete analysis. Persistence ignores cancellation of
// ctx so that finished work survives an interrupted scan.
func (s *Store) Put(ctx context.Context, key string, a *FileAnalysis) {
	s.mu.Lock()
	s.entries[key] = a
	s.mu.Unlock()

	data, err := encodeAnalysis(a)
	if err != nil {
		s.logger.Debug("encode analysis failed", "path", a.Path, "err", err)
		return
	}
	if err := s.backend.Set(context.WithoutCancel(ctx), key, data, s.ttl); err != nil {
		s.logger.Debug("cache write failed", "path", a.Path, "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyTypeAnalysis, len(data))
}

// GetOrAnalyze returns the analysis for key, running analyze on a miss.
// hit reports whether the result came from the cache. Errors from analyze
// are returned as is and nothing is stored.
func (s *Store) GetOrAnalyze(ctx context.Context, key string, analyze func() (*FileAnalysis, error)) (a *FileAnalysis, hit bool, err error) {
	if a, ok := s.Get(ctx, key); ok {
		return a, true, nil
	}
	v, err, _ := s.group.Do(key, func() (any, error) {
		s.mu.RLock()
		a, ok := s.entries[key]
		s.mu.RUnlock()
		if ok {
			return a, nil
		}
		a, err := analyze()
		if err != nil {
			return nil, err
		}
		s.Put(ctx, key, a)
		return a, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*FileAnalysis), false, nil
}

// Reset drops the in-memory entries and, when the backend supports it,
// the persisted ones.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.entries = make(map[string]*FileAnalysis)
	s.mu.Unlock()

	if c, ok := s.backend.(cache.Clearer); ok {
		return c.Clear(ctx)
	}
	return nil
}
