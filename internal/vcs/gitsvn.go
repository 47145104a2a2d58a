package vcs

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sergeknystautas/revstamp/internal/record"
)

// GitSVN is a git working copy bridged to Subversion with git-svn. Revision
// numbers and the repository UUID come from the Subversion side.
type GitSVN struct {
	*Git
}

// NewGitSVN returns a git-svn extractor for the working copy at root.
func NewGitSVN(root string, run Runner) *GitSVN {
	return &GitSVN{Git: NewGit(root, run)}
}

func (g *GitSVN) Type() record.Type { return record.TypeGitSVN }

// RevisionOrdinal is the Subversion revision HEAD was imported from.
func (g *GitSVN) RevisionOrdinal(ctx context.Context) (int, error) {
	out, err := g.git(ctx, "svn", "find-rev", "HEAD")
	if err != nil {
		return 0, err
	}
	if out == "" {
		return 0, fmt.Errorf("%w: HEAD has no Subversion revision", ErrUnparseable)
	}
	return parseCount(out)
}

func (g *GitSVN) RepositoryUUID(ctx context.Context) (string, error) {
	out, err := g.git(ctx, "svn", "info")
	if err != nil {
		return "", err
	}
	return validUUID(keyValues(out)["Repository UUID"])
}

// validUUID accepts only a well-formed UUID, as Subversion assigns.
func validUUID(s string) (string, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: repository UUID %q: %v", ErrUnparseable, s, err)
	}
	return id.String(), nil
}
