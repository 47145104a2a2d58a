package vcs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sergeknystautas/revstamp/internal/record"
)

const bzrShortLen = 16

// bzrDateLayout is the {date} form of bzr version-info.
const bzrDateLayout = "2006-01-02 15:04:05 -0700"

// Bazaar extracts metadata with the bzr (or brz) command line.
type Bazaar struct {
	unsupported
	root string
	run  Runner
}

// NewBazaar returns a bzr extractor for the working copy at root.
func NewBazaar(root string, run Runner) *Bazaar {
	return &Bazaar{root: root, run: run}
}

func (b *Bazaar) Type() record.Type { return record.TypeBzr }
func (b *Bazaar) Root() string { return b.root }

func (b *Bazaar) Capabilities() Capability {
	return CapRevisionID | CapOrdinal | CapTick | CapBranch | CapTag | CapDate | CapModified
}

func (b *Bazaar) bzr(ctx context.Context, args ...string) (string, error) {
	return runTrimmed(ctx, b.run, b.root, "bzr", args...)
}

func (b *Bazaar) versionInfo(ctx context.Context, field string) (string, error) {
	return b.bzr(ctx, "version-info", "--custom", "--template={"+field+"}")
}

func (b *Bazaar) RevisionID(ctx context.Context) (string, error) {
	out, err := b.versionInfo(ctx, "revision_id")
	if err != nil {
		return "", err
	}
	if out == "null:" {
		return "", nil
	}
	if out == "" || strings.ContainsAny(out, " \t\n") {
		return "", fmt.Errorf("%w: revision id %q", ErrUnparseable, out)
	}
	return out, nil
}

func (b *Bazaar) RevisionOrdinal(ctx context.Context) (int, error) {
	out, err := b.bzr(ctx, "revno")
	if err != nil {
		return 0, err
	}
	return parseCount(out)
}

// Tick counts mainline and merged revisions together.
func (b *Bazaar) Tick(ctx context.Context) (int, error) {
	out, err := b.bzr(ctx, "log", "--include-merged", "--line")
	if err != nil {
		return 0, err
	}
	return len(lines(out)), nil
}

// Branch is the branch nickname.
func (b *Bazaar) Branch(ctx context.Context) (string, error) {
	return b.bzr(ctx, "nick")
}

// Tags lists tags on the last mainline revision. Output lines are
// "<tag> <revno>".
func (b *Bazaar) Tags(ctx context.Context) ([]string, error) {
	out, err := b.bzr(ctx, "tags", "-r", "-1")
	if err != nil {
		return nil, err
	}
	var tags []string
	for _, l := range lines(out) {
		if f := strings.Fields(l); len(f) > 0 {
			tags = append(tags, f[0])
		}
	}
	return tags, nil
}

func (b *Bazaar) CommitDate(ctx context.Context) (time.Time, error) {
	out, err := b.versionInfo(ctx, "date")
	if err != nil {
		return time.Time{}, err
	}
	return parseDate(bzrDateLayout, out)
}

// Modified lists versioned changes only; unknown files never count.
func (b *Bazaar) Modified(ctx context.Context) (bool, error) {
	out, err := b.bzr(ctx, "status", "--short", "--no-pending", "--versioned")
	if err != nil {
		return false, err
	}
	return out != "", nil
}

// ShortHash keeps the random suffix of a revision id such as
// "jane@example.com-20240101120000-a1b2c3d4e5f6g7h8", cut to a fixed length.
func (b *Bazaar) ShortHash(full string) string {
	if i := strings.LastIndex(full, "-"); i >= 0 && i+1 < len(full) {
		return prefix(full[i+1:], bzrShortLen)
	}
	return prefix(full, bzrShortLen)
}
