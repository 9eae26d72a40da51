// Package observability provides hooks for metrics and tracing.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers register hooks at startup
// to receive events about scans, cache operations, and fix application.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, never by libraries, which keeps the analysis
// packages free of any metrics framework. [PrometheusHooks] is the bundled
// implementation used by the CLI's --metrics-file flag.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    hooks := observability.NewPrometheusHooks()
//	    observability.SetScanHooks(hooks)
//	    observability.SetCacheHooks(hooks)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Scan().OnScanStart(ctx, root, len(files))
//	// ... analyze ...
//	observability.Scan().OnScanComplete(ctx, root, analyzed, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Scan Hooks
// =============================================================================

// ScanHooks receives events from the scan orchestrator.
type ScanHooks interface {
	// OnScanStart is called once discovery has finished.
	OnScanStart(ctx context.Context, root string, files int)

	// OnFileAnalyzed is called after a file was parsed and resolved.
	// Cache hits do not produce this event.
	OnFileAnalyzed(ctx context.Context, path string, duration time.Duration, err error)

	// OnScanComplete is called when the scan returns, successfully or not.
	OnScanComplete(ctx context.Context, root string, analyzed int, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// Fix Hooks
// =============================================================================

// FixHooks receives events from the fix applier.
type FixHooks interface {
	// OnFixStart is called before the first target is processed.
	OnFixStart(ctx context.Context, dryRun bool, targets int)

	// OnFileFixed is called once per target with its final status
	// (modified, unchanged, conflict, failed).
	OnFileFixed(ctx context.Context, path, status string)

	// OnFixComplete is called after the last target.
	OnFixComplete(ctx context.Context, modified, failed int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopScanHooks is a no-op implementation of ScanHooks.
type NoopScanHooks struct{}

func (NoopScanHooks) OnScanStart(context.Context, string, int)                          {}
func (NoopScanHooks) OnFileAnalyzed(context.Context, string, time.Duration, error)      {}
func (NoopScanHooks) OnScanComplete(context.Context, string, int, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopFixHooks is a no-op implementation of FixHooks.
type NoopFixHooks struct{}

func (NoopFixHooks) OnFixStart(context.Context, bool, int)                   {}
func (NoopFixHooks) OnFileFixed(context.Context, string, string)             {}
func (NoopFixHooks) OnFixComplete(context.Context, int, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	scanHooks  ScanHooks  = NoopScanHooks{}
	cacheHooks CacheHooks = NoopCacheHooks{}
	fixHooks   FixHooks   = NoopFixHooks{}
	hooksMu    sync.RWMutex
)

// SetScanHooks registers custom scan hooks.
// This should be called once at application startup before any scan.
func SetScanHooks(h ScanHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		scanHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetFixHooks registers custom fix hooks.
func SetFixHooks(h FixHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		fixHooks = h
	}
}

// Scan returns the registered scan hooks.
func Scan() ScanHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return scanHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Fix returns the registered fix hooks.
func Fix() FixHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return fixHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	scanHooks = NoopScanHooks{}
	cacheHooks = NoopCacheHooks{}
	fixHooks = NoopFixHooks{}
}
