package vcs

import (
	"context"
	"time"

	"github.com/sergeknystautas/revstamp/internal/record"
)

// Sapling extracts metadata with the sl command line. Its revsets and
// templates are Mercurial's; branches are bookmarks. Local revision numbers
// are disabled by default (ui.ignorerevnum), so nothing relies on {rev} or
// on revision 0.
type Sapling struct {
	unsupported
	root string
	run  Runner
}

// NewSapling returns a Sapling extractor for the working copy at root.
func NewSapling(root string, run Runner) *Sapling {
	return &Sapling{root: root, run: run}
}

func (s *Sapling) Type() record.Type { return record.TypeSapling }
func (s *Sapling) Root() string { return s.root }

func (s *Sapling) Capabilities() Capability {
	return CapRevisionID | CapOrdinal | CapTick | CapBranch | CapTag | CapDate |
		CapModified | CapUUID
}

func (s *Sapling) sl(ctx context.Context, args ...string) (string, error) {
	return runTrimmed(ctx, s.run, s.root, "sl", args...)
}

func (s *Sapling) RevisionID(ctx context.Context) (string, error) {
	return logNode(ctx, s.sl, ".")
}

// RevisionOrdinal counts the ancestors of the working-copy parent.
func (s *Sapling) RevisionOrdinal(ctx context.Context) (int, error) {
	return countAncestors(ctx, s.sl)
}

func (s *Sapling) Tick(ctx context.Context) (int, error) {
	return countAncestors(ctx, s.sl)
}

// Branch is the active bookmark, "" when none is active.
func (s *Sapling) Branch(ctx context.Context) (string, error) {
	return s.sl(ctx, "log", "-r", ".", "-T", "{activebookmark}")
}

func (s *Sapling) Tags(ctx context.Context) ([]string, error) {
	return logTags(ctx, s.sl)
}

func (s *Sapling) CommitDate(ctx context.Context) (time.Time, error) {
	return logDate(ctx, s.sl)
}

func (s *Sapling) Modified(ctx context.Context) (bool, error) {
	out, err := s.sl(ctx, "status", "--modified", "--added", "--removed", "--deleted")
	if err != nil {
		return false, err
	}
	return out != "", nil
}

// RepositoryUUID is the node of the first root changeset.
func (s *Sapling) RepositoryUUID(ctx context.Context) (string, error) {
	return logNode(ctx, s.sl, "first(roots(all()))")
}

func (s *Sapling) ShortHash(full string) string {
	return prefix(full, hgShortLen)
}
