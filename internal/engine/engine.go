// Package engine runs the whole extraction pipeline: probe, extract,
// normalize, reconcile with the cache, compose the action stamp.
package engine

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/sergeknystautas/revstamp/internal/cache"
	"github.com/sergeknystautas/revstamp/internal/normalize"
	"github.com/sergeknystautas/revstamp/internal/probe"
	"github.com/sergeknystautas/revstamp/internal/reconcile"
	"github.com/sergeknystautas/revstamp/internal/record"
	"github.com/sergeknystautas/revstamp/internal/stamp"
	"github.com/sergeknystautas/revstamp/internal/vcs"
)

// Options configure one pipeline run.
type Options struct {
	// Dir is where probing starts. Empty means the current directory.
	Dir string
	// CachePath overrides the default cache location.
	CachePath string
	// NoCache disables both reading and writing the cache.
	NoCache bool
	// ReadOnly reads the cache for fallbacks but never writes it.
	ReadOnly bool
	// ForceCache skips probing and uses the cache as if no VCS were present.
	ForceCache bool
	// Extra is a user supplied VCS_EXTRA.
	Extra          string
	CountUntracked bool
	// Generated lists files revstamp itself writes, such as the output file.
	// They never count as untracked changes.
	Generated []string
	Jobs      int
	// Runner runs VCS commands. Nil uses an ExecRunner with the default
	// timeout.
	Runner vcs.Runner
	Logger *zap.Logger
}

// Result is the composed record together with how it was obtained.
type Result struct {
	Record    record.Record
	Probe     probe.Result
	Draft     record.Draft
	CachePath string
	// FromCache is true when a cached record contributed any field.
	FromCache bool
}

// Run executes the pipeline once. Extraction problems never fail the run;
// only an unusable start directory or runner configuration does.
func Run(ctx context.Context, opts Options) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("engine")

	found := probe.None
	if !opts.ForceCache {
		var err error
		found, err = probe.Detect(opts.Dir)
		if err != nil {
			return Result{}, fmt.Errorf("probe %s: %w", displayDir(opts.Dir), err)
		}
	}
	log.Debug("probed working copy",
		zap.String("vcs", string(found.Type)),
		zap.String("root", found.Root),
		zap.Bool("force_cache", opts.ForceCache))

	cachePath := opts.CachePath
	if cachePath == "" {
		base := found.Root
		if base == "" {
			base = opts.Dir
		}
		cachePath = cache.DefaultPath(base)
	}
	var cached *record.Record
	if !opts.NoCache {
		cached = cache.Load(cachePath, logger)
	}

	draft := record.NoVCS()
	if found.Type != record.TypeNone {
		run := opts.Runner
		if run == nil {
			r, err := vcs.NewExecRunner(vcs.DefaultTimeout, nil, logger)
			if err != nil {
				return Result{}, err
			}
			run = r
		}
		ext, err := vcs.New(found.Type, found.Root, run, vcs.Options{
			CountUntracked: opts.CountUntracked,
			Exclude:        generatedFiles(cachePath, opts.Generated),
		})
		if err != nil {
			return Result{}, err
		}
		draft = normalize.Normalize(ctx, ext, found.Root, normalize.Options{
			Jobs:   opts.Jobs,
			Extra:  opts.Extra,
			Logger: logger,
		})
	}

	rec := reconcile.Reconcile(draft, cached)
	if opts.Extra != "" {
		rec.Extra = record.Some(opts.Extra)
	}
	if found.Type == record.TypeNone && cached == nil {
		// nothing to identify the build with
		rec.ActionStamp = record.Null
	} else {
		rec = stamp.Compose(rec)
	}

	res := Result{
		Record:    rec,
		Probe:     found,
		Draft:     draft,
		CachePath: cachePath,
		FromCache: cached != nil && usedCache(draft, *cached),
	}
	if found.Type == record.TypeNone && cached == nil {
		log.Warn("no version control found and no cache; emitting an empty record",
			zap.String("cache", cachePath))
	}

	// the cache is only refreshed from a live working copy
	if !opts.NoCache && !opts.ReadOnly && found.Type != record.TypeNone {
		if err := cache.Save(cachePath, rec); err != nil {
			log.Warn("cannot save cache", zap.String("path", cachePath), zap.Error(err))
		}
	}
	return res, nil
}

// generatedFiles returns the absolute paths of the cache and the other files
// revstamp writes.
func generatedFiles(cachePath string, extra []string) []string {
	var out []string
	for _, p := range append([]string{cachePath}, extra...) {
		if p == "" {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			out = append(out, abs)
		}
	}
	return out
}

func usedCache(d record.Draft, cached record.Record) bool {
	if d.Type == record.TypeNone {
		return true
	}
	return cached.Type == d.Type && len(d.Unavailable()) > 0
}

func displayDir(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}
