package vcs

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sergeknystautas/revstamp/internal/record"
)

const hgShortLen = 12

// nullNode is the identifier Mercurial and Sapling report before the first commit.
var nullNode = strings.Repeat("0", 40)

// Mercurial extracts metadata with the hg command line.
type Mercurial struct {
	unsupported
	root string
	run  Runner
}

// NewMercurial returns an hg extractor for the working copy at root.
func NewMercurial(root string, run Runner) *Mercurial {
	return &Mercurial{root: root, run: run}
}

func (h *Mercurial) Type() record.Type { return record.TypeHg }
func (h *Mercurial) Root() string { return h.root }

func (h *Mercurial) Capabilities() Capability {
	return CapRevisionID | CapOrdinal | CapTick | CapBranch | CapTag | CapDate |
		CapModified | CapUUID | CapDescribe
}

func (h *Mercurial) hg(ctx context.Context, args ...string) (string, error) {
	return runTrimmed(ctx, h.run, h.root, "hg", args...)
}

func (h *Mercurial) RevisionID(ctx context.Context) (string, error) {
	return logNode(ctx, h.hg, ".")
}

func (h *Mercurial) RevisionOrdinal(ctx context.Context) (int, error) {
	return logRev(ctx, h.hg)
}

// Tick counts the ancestors of the working-copy parent. Unlike the local
// revision number it does not depend on the order changesets were pulled.
func (h *Mercurial) Tick(ctx context.Context) (int, error) {
	return countAncestors(ctx, h.hg)
}

func (h *Mercurial) Branch(ctx context.Context) (string, error) {
	return h.hg(ctx, "branch")
}

func (h *Mercurial) Tags(ctx context.Context) ([]string, error) {
	return logTags(ctx, h.hg)
}

func (h *Mercurial) CommitDate(ctx context.Context) (time.Time, error) {
	return logDate(ctx, h.hg)
}

// Modified counts modified, added, removed and deleted tracked files.
func (h *Mercurial) Modified(ctx context.Context) (bool, error) {
	out, err := h.hg(ctx, "status", "--modified", "--added", "--removed", "--deleted")
	if err != nil {
		return false, err
	}
	return out != "", nil
}

// RepositoryUUID is the node of revision 0, shared by every clone.
func (h *Mercurial) RepositoryUUID(ctx context.Context) (string, error) {
	return logNode(ctx, h.hg, "0")
}

// Describe returns "<latesttag>-<distance>-m<short node>", or "" when no tag
// precedes the working-copy parent.
func (h *Mercurial) Describe(ctx context.Context) (string, error) {
	out, err := h.hg(ctx, "log", "-r", ".", "-T", "{latesttag}\\n{latesttagdistance}\\n{node|short}")
	if err != nil {
		return "", err
	}
	parts := strings.Split(out, "\n")
	if len(parts) != 3 {
		return "", fmt.Errorf("%w: latesttag output %q", ErrUnparseable, out)
	}
	if parts[0] == "" || parts[0] == "null" {
		return "", nil
	}
	// a colon-joined list when several tags sit on the same changeset
	tag := SelectTag(strings.Split(parts[0], ":"))
	return fmt.Sprintf("%s-%s-m%s", tag, parts[1], parts[2]), nil
}

func (h *Mercurial) ShortHash(full string) string {
	return prefix(full, hgShortLen)
}

// Helpers shared by the Mercurial-family extractors. run is bound to the
// binary and working copy.

type runFunc func(ctx context.Context, args ...string) (string, error)

func runTrimmed(ctx context.Context, r Runner, dir, name string, args ...string) (string, error) {
	out, err := r.Run(ctx, dir, name, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Stdout), nil
}

// logNode returns the node of rev, or "" for an empty repository.
func logNode(ctx context.Context, run runFunc, rev string) (string, error) {
	out, err := run(ctx, "log", "-r", rev, "-T", "{node}")
	if err != nil {
		return "", err
	}
	if out == "" || out == nullNode {
		return "", nil
	}
	return checkHash(out, 40)
}

func logRev(ctx context.Context, run runFunc) (int, error) {
	out, err := run(ctx, "log", "-r", ".", "-T", "{rev}")
	if err != nil {
		return 0, err
	}
	n, convErr := strconv.Atoi(out)
	if convErr != nil {
		return 0, fmt.Errorf("%w: revision number %q", ErrUnparseable, out)
	}
	if n < 0 {
		// working copy at the null revision
		return 0, nil
	}
	return n, nil
}

func countAncestors(ctx context.Context, run runFunc) (int, error) {
	out, err := run(ctx, "log", "-r", "ancestors(.)", "-T", "x")
	if err != nil {
		return 0, err
	}
	if strings.Trim(out, "x") != "" {
		return 0, fmt.Errorf("%w: ancestor count output %q", ErrUnparseable, prefix(out, 40))
	}
	return len(out), nil
}

func logTags(ctx context.Context, run runFunc) ([]string, error) {
	out, err := run(ctx, "log", "-r", ".", "-T", "{join(tags, '\\n')}")
	if err != nil {
		return nil, err
	}
	var tags []string
	for _, t := range lines(out) {
		if t != "tip" {
			tags = append(tags, t)
		}
	}
	return tags, nil
}

func logDate(ctx context.Context, run runFunc) (time.Time, error) {
	out, err := run(ctx, "log", "-r", ".", "-T", "{date|rfc3339date}")
	if err != nil {
		return time.Time{}, err
	}
	return parseDate(time.RFC3339, out)
}
