// Package normalize turns extractor answers into a record draft in which
// every field carries its availability.
package normalize

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sergeknystautas/revstamp/internal/record"
	"github.com/sergeknystautas/revstamp/internal/vcs"
)

// DefaultJobs is how many extractor queries run at once when Options.Jobs is
// not set.
const DefaultJobs = 4

// Options control a single normalization.
type Options struct {
	// Jobs bounds concurrent extractor queries. 1 runs them in order.
	Jobs int
	// Extra, when non-empty, is used as VCS_EXTRA instead of the extractor's
	// describe output.
	Extra  string
	Logger *zap.Logger
}

type normalizer struct {
	ext  vcs.Extractor
	caps vcs.Capability
	log  *zap.Logger
}

// Normalize queries ext for every field and returns the draft. It never
// fails: errors become Unavailable fields and are logged.
func Normalize(ctx context.Context, ext vcs.Extractor, root string, opts Options) record.Draft {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	n := &normalizer{ext: ext, caps: ext.Capabilities(), log: log.Named("normalize")}

	d := record.Draft{
		Type:     ext.Type(),
		Basename: record.Have(record.Some(filepath.Base(root))),
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = DefaultJobs
	}
	var g errgroup.Group
	g.SetLimit(jobs)

	// every task writes its own fields of d
	g.Go(func() error {
		d.FullHash = text(query(ctx, n, record.SymFullHash, vcs.CapRevisionID, ext.RevisionID))
		d.ShortHash = n.shortHash(d.FullHash)
		return nil
	})
	g.Go(func() error {
		d.Num = query(ctx, n, record.SymNum, vcs.CapOrdinal, ext.RevisionOrdinal)
		return nil
	})
	if n.caps.Has(vcs.CapTick) {
		g.Go(func() error {
			d.Tick = query(ctx, n, record.SymTick, vcs.CapTick, ext.Tick)
			return nil
		})
	}
	g.Go(func() error {
		d.Branch = text(query(ctx, n, record.SymBranch, vcs.CapBranch, ext.Branch))
		return nil
	})
	g.Go(func() error {
		d.Tag, d.TagOpenPGP = n.tag(ctx)
		return nil
	})
	g.Go(func() error {
		d.Date = date(query(ctx, n, record.SymDate, vcs.CapDate, ext.CommitDate))
		return nil
	})
	g.Go(func() error {
		d.WCModified = query(ctx, n, record.SymWCModified, vcs.CapModified, ext.Modified)
		return nil
	})
	g.Go(func() error {
		d.UUID = text(query(ctx, n, record.SymUUID, vcs.CapUUID, ext.RepositoryUUID))
		return nil
	})
	g.Go(func() error {
		d.CommitOpenPGP = text(query(ctx, n, record.SymCommitOpenPGP, vcs.CapCommitSignature, ext.CommitSignature))
		return nil
	})
	g.Go(func() error {
		if opts.Extra != "" {
			d.Extra = record.Have(record.Some(opts.Extra))
			return nil
		}
		d.Extra = text(query(ctx, n, record.SymExtra, vcs.CapDescribe, ext.Describe))
		return nil
	})
	_ = g.Wait()

	if !n.caps.Has(vcs.CapTick) {
		// the ordinal only grows for VCSs without a separate counter
		d.Tick = d.Num
	}

	if missing := d.Unavailable(); len(missing) > 0 {
		n.log.Info("some fields could not be extracted", zap.Strings("symbols", missing))
	}
	return d
}

// query asks ext one question, mapping the outcome onto a field.
func query[T any](ctx context.Context, n *normalizer, sym string, want vcs.Capability, fn func(context.Context) (T, error)) record.Field[T] {
	if !n.caps.Has(want) {
		return record.Lacking[T]()
	}
	v, err := fn(ctx)
	switch {
	case err == nil:
		return record.Have(v)
	case errors.Is(err, vcs.ErrUnsupported):
		return record.Lacking[T]()
	default:
		n.log.Warn("extraction failed",
			zap.String("symbol", sym),
			zap.String("vcs", string(n.ext.Type())),
			zap.Error(err))
		return record.Failed[T]()
	}
}

// tag selects one tag and, when the VCS can check it, its signature.
func (n *normalizer) tag(ctx context.Context) (record.Field[record.Text], record.Field[record.Text]) {
	tags := query(ctx, n, record.SymTag, vcs.CapTag, n.ext.Tags)
	var tag record.Field[record.Text]
	switch tags.State {
	case record.Present:
		tag = text(record.Have(vcs.SelectTag(tags.Value)))
	case record.Unsupported:
		tag = record.Lacking[record.Text]()
	default:
		tag = record.Failed[record.Text]()
	}

	switch {
	case !n.caps.Has(vcs.CapTagSignature):
		return tag, record.Lacking[record.Text]()
	case tag.State != record.Present:
		return tag, record.Field[record.Text]{State: tag.State}
	case !tag.Value.Valid:
		return tag, record.Have(record.Null)
	}
	sig := query(ctx, n, record.SymTagOpenPGP, vcs.CapTagSignature, func(ctx context.Context) (string, error) {
		return n.ext.TagSignature(ctx, tag.Value.Value)
	})
	return tag, text(sig)
}

// shortHash derives the short hash, sharing the full hash's availability.
func (n *normalizer) shortHash(full record.Field[record.Text]) record.Field[record.Text] {
	if full.State != record.Present || !full.Value.Valid {
		return full
	}
	return record.Have(record.Some(n.ext.ShortHash(full.Value.Value)))
}

// text maps an empty answer to null.
func text(f record.Field[string]) record.Field[record.Text] {
	out := record.Field[record.Text]{State: f.State}
	if f.State == record.Present && f.Value != "" {
		out.Value = record.Some(f.Value)
	}
	return out
}

// date formats a commit time as RFC 3339 in its own offset.
func date(f record.Field[time.Time]) record.Field[record.Text] {
	out := record.Field[record.Text]{State: f.State}
	if f.State == record.Present && !f.Value.IsZero() {
		out.Value = record.Some(f.Value.Format(time.RFC3339))
	}
	return out
}
