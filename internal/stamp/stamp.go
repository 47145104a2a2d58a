// Package stamp composes the single-line action stamp that identifies a
// build in logs and artifact names.
package stamp

import (
	"strconv"
	"strings"

	"github.com/sergeknystautas/revstamp/internal/record"
)

const (
	// Separator joins the stamp components.
	Separator = "-"
	// Placeholder stands in for a null component.
	Placeholder = "unknown"
	// ModifiedMarker follows the short hash when the working copy has
	// uncommitted changes.
	ModifiedMarker = "+"
)

// Format returns the action stamp for r:
//
//	{basename}-{branch}-{tag or num}-{short_hash}{+}-{date}
//
// The tag is used when set, else the revision number.
func Format(r record.Record) string {
	rev := r.Tag.Or(strconv.Itoa(r.Num))

	hash := r.ShortHash.Or(Placeholder)
	if r.WCModified {
		hash += ModifiedMarker
	}

	return strings.Join([]string{
		r.Basename.Or(Placeholder),
		r.Branch.Or(Placeholder),
		rev,
		hash,
		r.Date.Or(Placeholder),
	}, Separator)
}

// Compose returns r with its action stamp set.
func Compose(r record.Record) record.Record {
	r.ActionStamp = record.Some(Format(r))
	return r
}
