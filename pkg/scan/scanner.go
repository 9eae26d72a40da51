package scan

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/depclean/pkg/fingerprint"
	"github.com/matzehuels/depclean/pkg/observability"
	"github.com/matzehuels/depclean/pkg/usage"
)

// Options configures a Scanner.
type Options struct {
	// Workers is the number of concurrent analyses. Defaults to GOMAXPROCS.
	Workers int
	// Exclude adds directory patterns to DefaultExcludes.
	Exclude []string
	// MaxFileSize is the size ceiling in bytes. Defaults to DefaultMaxFileSize.
	MaxFileSize int64
	// Policy controls usage resolution. Defaults to usage.DefaultPolicy.
	Policy *usage.Policy
	// Logger receives debug output. Defaults to a discarding logger.
	Logger *log.Logger
	// Progress is called after each file with the number of files done and
	// the total. Calls are serialized.
	Progress func(done, total int)
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.Policy == nil {
		p := usage.DefaultPolicy
		opts.Policy = &p
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return opts
}

// Excludes returns the effective exclude patterns.
func (o Options) Excludes() []string {
	out := make([]string, 0, len(DefaultExcludes)+len(o.Exclude))
	out = append(out, DefaultExcludes...)
	return append(out, o.Exclude...)
}

// Stats summarizes one scan.
type Stats struct {
	Discovered int           `json:"discovered" yaml:"discovered"`
	Analyzed   int           `json:"analyzed" yaml:"analyzed"`
	Parsed     int           `json:"parsed" yaml:"parsed"`
	CacheHits  int           `json:"cache_hits" yaml:"cache_hits"`
	Skipped    int           `json:"skipped" yaml:"skipped"`
	Errors     int           `json:"errors" yaml:"errors"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
}

// Result is the outcome of a completed scan.
type Result struct {
	Root    string          `json:"root" yaml:"root"`
	Files   []*FileAnalysis `json:"files" yaml:"files"`
	Skipped []Skipped       `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Stats   Stats           `json:"stats" yaml:"stats"`
}

// Unparseable returns the files that failed to parse.
func (r *Result) Unparseable() []*FileAnalysis {
	var out []*FileAnalysis
	for _, f := range r.Files {
		if !f.Parsed() {
			out = append(out, f)
		}
	}
	return out
}

// Scanner analyzes project trees. A Scanner may be reused; its Store keeps
// analyses across scans so unchanged files are not parsed again.
type Scanner struct {
	opts   Options
	store  *Store
	parses atomic.Int64
}

// New returns a Scanner backed by store. A nil store selects a fresh
// in-memory store.
func New(store *Store, opts Options) *Scanner {
	if store == nil {
		store = NewStore()
	}
	return &Scanner{opts: opts.WithDefaults(), store: store}
}

// Discover lists the root-relative paths of the files a scan of root would
// analyze, and those it would skip.
func (s *Scanner) Discover(root string) ([]string, []Skipped, error) {
	files, skipped, err := discover(root, s.opts.Excludes(), s.opts.MaxFileSize)
	if err != nil {
		return nil, nil, err
	}
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.rel
	}
	return out, skipped, nil
}

// Options returns the effective options.
func (s *Scanner) Options() Options { return s.opts }

// Store returns the scanner's analysis cache.
func (s *Scanner) Store() *Store { return s.store }

// ParseCount returns the number of parses performed over the scanner's
// lifetime. Cache hits do not count.
func (s *Scanner) ParseCount() int64 { return s.parses.Load() }

type outcome struct {
	analysis *FileAnalysis
	skipped  *Skipped
	hit      bool
	parsed   bool
}

// Scan analyzes every Python file under root.
func (s *Scanner) Scan(ctx context.Context, root string) (*Result, error) {
	start := time.Now()
	logger := s.opts.Logger

	files, skipped, err := discover(root, s.opts.Excludes(), s.opts.MaxFileSize)
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", root, err)
	}
	logger.Debug("discovered files", "root", root, "files", len(files), "skipped", len(skipped))
	observability.Scan().OnScanStart(ctx, root, len(files))

	outcomes := make([]outcome, len(files))
	jobs := make(chan int)

	var (
		wg     sync.WaitGroup
		pmu    sync.Mutex
		done   int
		report = func() {
			if s.opts.Progress == nil {
				return
			}
			pmu.Lock()
			done++
			s.opts.Progress(done, len(files))
			pmu.Unlock()
		}
	)
	for range s.opts.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = s.analyzeFile(ctx, files[i])
				report()
			}
		}()
	}

dispatch:
	for i := range files {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		observability.Scan().OnScanComplete(ctx, root, 0, time.Since(start), err)
		return nil, err
	}

	res := &Result{Root: root, Skipped: skipped}
	res.Stats.Discovered = len(files) + len(skipped)
	for _, o := range outcomes {
		switch {
		case o.skipped != nil:
			res.Skipped = append(res.Skipped, *o.skipped)
		case o.analysis != nil:
			res.Files = append(res.Files, o.analysis)
			res.Stats.Analyzed++
			if o.hit {
				res.Stats.CacheHits++
			}
			if o.parsed {
				res.Stats.Parsed++
			}
			if !o.analysis.Parsed() {
				res.Stats.Errors++
			}
		}
	}
	sort.Slice(res.Files, func(i, j int) bool { return res.Files[i].Path < res.Files[j].Path })
	sort.Slice(res.Skipped, func(i, j int) bool { return res.Skipped[i].Path < res.Skipped[j].Path })
	res.Stats.Skipped = len(res.Skipped)
	res.Stats.Duration = time.Since(start)

	logger.Debug("scan complete",
		"analyzed", res.Stats.Analyzed,
		"parsed", res.Stats.Parsed,
		"cache_hits", res.Stats.CacheHits,
		"errors", res.Stats.Errors,
		"duration", res.Stats.Duration)
	observability.Scan().OnScanComplete(ctx, root, res.Stats.Analyzed, res.Stats.Duration, nil)
	return res, nil
}

// analyzeFile never panics; a panic inside the parser becomes a per-file
// error.
func (s *Scanner) analyzeFile(ctx context.Context, c candidate) (out outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.opts.Logger.Error("analysis panicked", "path", c.rel, "panic", r)
			out = outcome{analysis: &FileAnalysis{Path: c.rel, Error: fmt.Sprintf("internal error: %v", r)}}
		}
		var err error
		if out.analysis != nil && !out.analysis.Parsed() {
			err = fmt.Errorf("%s", out.analysis.Error)
		}
		observability.Scan().OnFileAnalyzed(ctx, c.rel, time.Since(start), err)
	}()

	data, fp, err := fingerprint.File(c.abs)
	if err != nil {
		return outcome{skipped: &Skipped{Path: c.rel, Reason: SkipUnreadable, Detail: unwrapPathError(err)}}
	}
	if fp.Size > s.opts.MaxFileSize {
		return outcome{skipped: &Skipped{Path: c.rel, Reason: SkipTooLarge, Size: fp.Size}}
	}

	// A dispatched analysis runs to completion and is published even when
	// the scan is cancelled meanwhile.
	actx := context.WithoutCancel(ctx)
	parsed := false
	a, hit, err := s.store.GetOrAnalyze(actx, s.store.Key(c.rel, fp), func() (*FileAnalysis, error) {
		parsed = true
		s.parses.Add(1)
		return Analyze(actx, c.rel, data, fp, *s.opts.Policy)
	})
	if err != nil {
		return outcome{}
	}
	if hit {
		s.opts.Logger.Debug("cache hit", "path", c.rel)
	}
	return outcome{analysis: a, hit: hit, parsed: parsed}
}

func unwrapPathError(err error) string {
	if pe, ok := err.(*os.PathError); ok {
		return pe.Err.Error()
	}
	return err.Error()
}
