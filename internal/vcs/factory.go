package vcs

import (
	"fmt"

	"github.com/sergeknystautas/revstamp/internal/record"
)

// Options tune extractor behaviour that differs between users.
type Options struct {
	// CountUntracked makes unversioned files mark an svn working copy as
	// modified. Other VCSs ignore it.
	CountUntracked bool
	// Exclude lists absolute paths of generated files that are never
	// reported as untracked changes.
	Exclude []string
}

// New returns the extractor for typ rooted at root.
func New(typ record.Type, root string, run Runner, opts Options) (Extractor, error) {
	if run == nil {
		return nil, fmt.Errorf("vcs: nil runner")
	}
	switch typ {
	case record.TypeGit:
		return NewGit(root, run), nil
	case record.TypeGitSVN:
		return NewGitSVN(root, run), nil
	case record.TypeHg:
		return NewMercurial(root, run), nil
	case record.TypeSapling:
		return NewSapling(root, run), nil
	case record.TypeSVN:
		return NewSubversion(root, run, opts.CountUntracked, opts.Exclude...), nil
	case record.TypeBzr:
		return NewBazaar(root, run), nil
	case record.TypeFossil:
		return NewFossil(root, run), nil
	default:
		return nil, fmt.Errorf("vcs: no extractor for %q", typ)
	}
}
