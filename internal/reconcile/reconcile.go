// Package reconcile merges a freshly extracted draft with the cached record
// from an earlier run.
package reconcile

import (
	"github.com/sergeknystautas/revstamp/internal/record"
)

// Reconcile produces the canonical record (without action stamp) from draft
// and the cached record, which may be nil.
//
// With no VCS the cache is taken whole. Otherwise each present field is kept,
// unsupported fields are null, and unavailable fields fall back to the cache
// only when it was written for the same VCS. The tick never drops below the
// cached tick of the same repository.
func Reconcile(draft record.Draft, cached *record.Record) record.Record {
	if draft.Type == record.TypeNone || draft.Type == "" {
		if cached == nil {
			return record.Empty()
		}
		out := *cached
		out.ActionStamp = record.Null
		if out.Type == "" {
			out.Type = record.TypeNone
		}
		return out
	}

	var fallback record.Record
	if cached != nil && cached.Type == draft.Type {
		fallback = *cached
	}

	out := record.Record{
		Type:          draft.Type,
		Basename:      pick(draft.Basename, fallback.Basename),
		UUID:          pick(draft.UUID, fallback.UUID),
		Num:           pick(draft.Num, fallback.Num),
		Date:          pick(draft.Date, fallback.Date),
		Branch:        pick(draft.Branch, fallback.Branch),
		Tag:           pick(draft.Tag, fallback.Tag),
		TagOpenPGP:    pick(draft.TagOpenPGP, fallback.TagOpenPGP),
		Tick:          pick(draft.Tick, fallback.Tick),
		Extra:         pick(draft.Extra, fallback.Extra),
		FullHash:      pick(draft.FullHash, fallback.FullHash),
		CommitOpenPGP: pick(draft.CommitOpenPGP, fallback.CommitOpenPGP),
		ShortHash:     pick(draft.ShortHash, fallback.ShortHash),
		WCModified:    pick(draft.WCModified, fallback.WCModified),
	}

	if cached != nil && SameRepository(out, *cached) && cached.Tick > out.Tick {
		out.Tick = cached.Tick
	}
	if !out.FullHash.Valid {
		out.ShortHash = record.Null
	}
	return out
}

// SameRepository reports whether two records describe the same repository:
// same VCS and same UUID, or same basename when either UUID is null.
func SameRepository(a, b record.Record) bool {
	if a.Type != b.Type {
		return false
	}
	if a.UUID.Valid && b.UUID.Valid {
		return a.UUID.Value == b.UUID.Value
	}
	return a.Basename.Valid && b.Basename.Valid && a.Basename.Value == b.Basename.Value
}

func pick[T any](f record.Field[T], cached T) T {
	switch f.State {
	case record.Present:
		return f.Value
	case record.Unavailable:
		return cached
	default:
		var zero T
		return zero
	}
}
