package vcs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sergeknystautas/revstamp/internal/record"
)

const fossilShortLen = 10

// Fossil extracts metadata with the fossil command line. Most answers come
// from the key/value listing of fossil info.
type Fossil struct {
	unsupported
	root string
	run  Runner
}

// NewFossil returns a fossil extractor for the checkout at root.
func NewFossil(root string, run Runner) *Fossil {
	return &Fossil{root: root, run: run}
}

func (f *Fossil) Type() record.Type { return record.TypeFossil }
func (f *Fossil) Root() string { return f.root }

func (f *Fossil) Capabilities() Capability {
	return CapRevisionID | CapOrdinal | CapTick | CapBranch | CapTag | CapDate |
		CapModified | CapUUID
}

func (f *Fossil) fossil(ctx context.Context, args ...string) (string, error) {
	return runTrimmed(ctx, f.run, f.root, "fossil", args...)
}

func (f *Fossil) info(ctx context.Context) (map[string]string, error) {
	out, err := f.fossil(ctx, "info")
	if err != nil {
		return nil, err
	}
	return keyValues(out), nil
}

// checkout splits the "checkout:" value: "<hash> <YYYY-MM-DD> <HH:MM:SS> UTC".
func (f *Fossil) checkout(ctx context.Context) ([]string, error) {
	kv, err := f.info(ctx)
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(kv["checkout"])
	if len(fields) < 4 {
		return nil, fmt.Errorf("%w: checkout line %q", ErrUnparseable, kv["checkout"])
	}
	return fields, nil
}

func (f *Fossil) RevisionID(ctx context.Context) (string, error) {
	fields, err := f.checkout(ctx)
	if err != nil {
		return "", err
	}
	return checkHash(fields[0], 40, 64)
}

// RevisionOrdinal counts the checkout and its primary-parent ancestors, so
// older checkouts get smaller numbers.
func (f *Fossil) RevisionOrdinal(ctx context.Context) (int, error) {
	hash, err := f.RevisionID(ctx)
	if err != nil {
		return 0, err
	}
	out, err := f.fossil(ctx, "sql", fossilAncestorQuery(hash))
	if err != nil {
		return 0, err
	}
	return parseCount(out)
}

// fossilAncestorQuery walks the primary parent links from hash. hash has
// been validated as hex.
func fossilAncestorQuery(hash string) string {
	return "WITH RECURSIVE anc(rid) AS (" +
		"SELECT rid FROM blob WHERE uuid='" + hash + "' " +
		"UNION SELECT pid FROM plink JOIN anc ON plink.cid=anc.rid WHERE plink.isprim" +
		") SELECT count(*) FROM anc;"
}

// Tick is the repository-wide check-in count, which only grows as check-ins
// arrive.
func (f *Fossil) Tick(ctx context.Context) (int, error) {
	kv, err := f.info(ctx)
	if err != nil {
		return 0, err
	}
	return parseCount(kv["check-ins"])
}

func (f *Fossil) Branch(ctx context.Context) (string, error) {
	return f.fossil(ctx, "branch", "current")
}

// Tags are the comma-separated tags of the checkout minus its branch, since
// fossil records the branch as a tag too.
func (f *Fossil) Tags(ctx context.Context) ([]string, error) {
	kv, err := f.info(ctx)
	if err != nil {
		return nil, err
	}
	branch, err := f.Branch(ctx)
	if err != nil {
		return nil, err
	}
	var tags []string
	for _, t := range strings.Split(kv["tags"], ",") {
		t = strings.TrimSpace(t)
		if t != "" && t != branch {
			tags = append(tags, t)
		}
	}
	return tags, nil
}

func (f *Fossil) CommitDate(ctx context.Context) (time.Time, error) {
	fields, err := f.checkout(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return parseDate("2006-01-02 15:04:05 MST", strings.Join(fields[1:4], " "))
}

// Modified reports edits to managed files; extra files are not listed by
// fossil changes.
func (f *Fossil) Modified(ctx context.Context) (bool, error) {
	out, err := f.fossil(ctx, "changes")
	if err != nil {
		return false, err
	}
	return out != "", nil
}

// RepositoryUUID is the project code shared by every clone.
func (f *Fossil) RepositoryUUID(ctx context.Context) (string, error) {
	kv, err := f.info(ctx)
	if err != nil {
		return "", err
	}
	return checkHash(kv["project-code"], 40, 64)
}

func (f *Fossil) ShortHash(full string) string {
	return prefix(full, fossilShortLen)
}
