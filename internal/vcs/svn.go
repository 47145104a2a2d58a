package vcs

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sergeknystautas/revstamp/internal/record"
)

// Subversion extracts metadata with the svn command line (1.9 or later for
// --show-item).
type Subversion struct {
	unsupported
	root string
	run  Runner
	// countUntracked makes unversioned files mark the working copy modified.
	countUntracked bool
	// exclude holds generated files, such as the cache, that are never
	// counted as untracked.
	exclude map[string]bool
}

// NewSubversion returns an svn extractor for the working copy at root.
// Unversioned entries matching one of the absolute paths in exclude are
// ignored.
func NewSubversion(root string, run Runner, countUntracked bool, exclude ...string) *Subversion {
	s := &Subversion{root: root, run: run, countUntracked: countUntracked, exclude: make(map[string]bool)}
	for _, p := range exclude {
		s.exclude[filepath.Clean(p)] = true
	}
	return s
}

func (s *Subversion) Type() record.Type { return record.TypeSVN }
func (s *Subversion) Root() string { return s.root }

func (s *Subversion) Capabilities() Capability {
	return CapRevisionID | CapOrdinal | CapTick | CapBranch | CapTag | CapDate |
		CapModified | CapUUID
}

func (s *Subversion) item(ctx context.Context, item string) (string, error) {
	return runTrimmed(ctx, s.run, s.root, "svn", "info", "--show-item", item, "--no-newline", ".")
}

// RevisionID is the last changed revision in decimal; Subversion has no hash.
func (s *Subversion) RevisionID(ctx context.Context) (string, error) {
	n, err := s.RevisionOrdinal(ctx)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(n), nil
}

func (s *Subversion) RevisionOrdinal(ctx context.Context) (int, error) {
	out, err := s.item(ctx, "last-changed-revision")
	if err != nil {
		return 0, err
	}
	return parseCount(out)
}

// Tick is the working-copy revision, the repository-wide commit counter.
func (s *Subversion) Tick(ctx context.Context) (int, error) {
	out, err := s.item(ctx, "revision")
	if err != nil {
		return 0, err
	}
	return parseCount(out)
}

func (s *Subversion) Branch(ctx context.Context) (string, error) {
	rel, err := s.item(ctx, "relative-url")
	if err != nil {
		return "", err
	}
	branch, _ := splitSVNPath(rel)
	return branch, nil
}

func (s *Subversion) Tags(ctx context.Context) ([]string, error) {
	rel, err := s.item(ctx, "relative-url")
	if err != nil {
		return nil, err
	}
	if _, tag := splitSVNPath(rel); tag != "" {
		return []string{tag}, nil
	}
	return nil, nil
}

func (s *Subversion) CommitDate(ctx context.Context) (time.Time, error) {
	out, err := s.item(ctx, "last-changed-date")
	if err != nil {
		return time.Time{}, err
	}
	return parseDate(time.RFC3339Nano, out)
}

// Modified looks at svn status. Unversioned ("?") entries count only when
// countUntracked is set; ignored files and externals never count.
func (s *Subversion) Modified(ctx context.Context) (bool, error) {
	args := []string{"status", "--ignore-externals"}
	if !s.countUntracked {
		args = append(args, "--quiet")
	}
	out, err := runTrimmed(ctx, s.run, s.root, "svn", args...)
	if err != nil {
		return false, err
	}
	for _, l := range lines(out) {
		switch {
		case strings.HasPrefix(l, "X"), strings.HasPrefix(l, "Performing status"):
			continue
		case strings.HasPrefix(l, "?") && (!s.countUntracked || s.generated(l)):
			continue
		case strings.HasPrefix(l, "I"):
			continue
		}
		return true, nil
	}
	return false, nil
}

// generated reports whether a status line names an excluded file. Paths
// start at column 8 and are relative to the root svn ran in.
func (s *Subversion) generated(line string) bool {
	if len(line) <= 8 {
		return false
	}
	path := strings.TrimSpace(line[8:])
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.root, path)
	}
	return s.exclude[filepath.Clean(path)]
}

func (s *Subversion) RepositoryUUID(ctx context.Context) (string, error) {
	out, err := s.item(ctx, "repos-uuid")
	if err != nil {
		return "", err
	}
	return validUUID(out)
}

func (s *Subversion) ShortHash(full string) string {
	return full
}

// splitSVNPath reads the conventional trunk/branches/tags layout from a
// repository-relative URL such as ^/project/branches/feature/src.
func splitSVNPath(rel string) (branch, tag string) {
	rel = strings.TrimPrefix(strings.TrimSpace(rel), "^")
	parts := strings.Split(strings.Trim(rel, "/"), "/")
	for i, p := range parts {
		switch p {
		case "trunk":
			return "trunk", ""
		case "branches":
			if i+1 < len(parts) {
				return parts[i+1], ""
			}
		case "tags":
			if i+1 < len(parts) {
				return "", parts[i+1]
			}
		}
	}
	return "", ""
}
