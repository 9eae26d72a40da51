package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/matzehuels/depclean/pkg/deps"
	"github.com/matzehuels/depclean/pkg/deps/python"
	"github.com/matzehuels/depclean/pkg/errors"
	"github.com/matzehuels/depclean/pkg/fingerprint"
	"github.com/matzehuels/depclean/pkg/observability"
)

const keyTypeManifest = "manifest"

// Manifests discovers and parses the project's manifests. Parsed results
// are cached under the content hash of the manifest; a hit is only used
// when every included file still hashes the same.
func (r *Runner) Manifests(ctx context.Context) ([]*deps.ManifestResult, []*deps.ParseError, error) {
	paths, err := python.Discover(r.opts.Root, r.parsers...)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "list manifests")
	}
	opts := deps.Options{
		Root:   r.opts.Root,
		Logger: func(format string, args ...any) { r.Logger.Debugf(format, args...) },
	}

	var (
		results []*deps.ManifestResult
		failed  []*deps.ParseError
	)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		rel := opts.Rel(path)
		data, err := os.ReadFile(path)
		if err != nil {
			failed = append(failed, &deps.ParseError{Path: rel, Code: errors.ErrCodeInvalidManifest, Err: err})
			continue
		}
		key := r.Keyer.ManifestKey(rel, fingerprint.Sum(data))
		if res, ok := r.cachedManifest(ctx, key); ok {
			results = append(results, res)
			continue
		}

		ok, bad := deps.ParseAll([]string{path}, opts, r.parsers...)
		for _, pe := range bad {
			r.Logger.Debug("manifest not parsed", "path", pe.Path, "code", pe.Code, "err", pe.Err)
		}
		failed = append(failed, bad...)
		for _, res := range ok {
			results = append(results, res)
			r.storeManifest(ctx, key, res)
		}
	}
	return results, failed, nil
}

func (r *Runner) cachedManifest(ctx context.Context, key string) (*deps.ManifestResult, bool) {
	hooks := observability.Cache()
	data, ok, err := r.Cache.Get(ctx, key)
	if err != nil || !ok {
		hooks.OnCacheMiss(ctx, keyTypeManifest)
		return nil, false
	}
	var res deps.ManifestResult
	if err := json.Unmarshal(data, &res); err != nil {
		r.Logger.Warn("dropping corrupt cache entry", "key", key, "err", err)
		_ = r.Cache.Delete(ctx, key)
		hooks.OnCacheMiss(ctx, keyTypeManifest)
		return nil, false
	}
	for rel, hash := range res.Hashes {
		b, err := os.ReadFile(filepath.Join(r.opts.Root, filepath.FromSlash(rel)))
		if err != nil || fingerprint.Sum(b) != hash {
			hooks.OnCacheMiss(ctx, keyTypeManifest)
			return nil, false
		}
	}
	hooks.OnCacheHit(ctx, keyTypeManifest)
	return &res, true
}

func (r *Runner) storeManifest(ctx context.Context, key string, res *deps.ManifestResult) {
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := r.Cache.Set(context.WithoutCancel(ctx), key, data, r.ttl); err != nil {
		r.Logger.Debug("cache write failed", "manifest", res.Path, "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyTypeManifest, len(data))
}
