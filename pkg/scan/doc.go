// Package scan walks a Python project, analyzes every source file
// concurrently and caches the results by content fingerprint.
//
// # Discovery
//
// Directories matching an exclude pattern (see [DefaultExcludes]) are
// skipped. Files larger than [Options.MaxFileSize] are reported as skipped
// and never parsed.
//
// # Caching
//
// A [Store] keeps analyses in memory keyed by path and fingerprint, and
// optionally persists them to a [cache.Cache] as lz4-compressed JSON.
// Concurrent requests for the same key are collapsed so a file is parsed
// at most once. Analyses are immutable once published.
//
// # Cancellation
//
// When the context is canceled the scanner stops handing out files, lets
// in-flight analyses finish and returns the context error. Only complete
// analyses are ever stored.
package scan
