// Package vcs provides one extractor per version control system. Every
// extractor answers the same fixed set of questions about a working copy and
// reports up front which of them its VCS can answer at all, so callers never
// switch on the VCS name.
package vcs

import (
	"context"
	"errors"
	"time"

	"github.com/sergeknystautas/revstamp/internal/record"
)

// ErrUnsupported is returned by an extractor for a question its VCS has no
// concept of. It is distinct from a failure.
var ErrUnsupported = errors.New("not supported by this VCS")

// ErrUnparseable is returned when a command succeeded but its output did not
// have the expected shape.
var ErrUnparseable = errors.New("unparseable VCS output")

// Capability is a bit set of the questions an extractor can answer.
type Capability uint16

const (
	CapRevisionID Capability = 1 << iota
	CapOrdinal
	CapTick
	CapBranch
	CapTag
	CapDate
	CapModified
	CapUUID
	CapTagSignature
	CapCommitSignature
	CapDescribe
)

// Has reports whether every bit of want is set.
func (c Capability) Has(want Capability) bool {
	return c&want == want
}

// Extractor answers metadata questions for one working copy.
//
// Methods return ErrUnsupported when the matching capability is absent. An
// empty string with a nil error is a real answer meaning "none" (no tag on
// this revision, detached HEAD, unsigned commit).
type Extractor interface {
	// Type is the VCS this extractor speaks to.
	Type() record.Type
	// Root is the working-copy root the extractor runs in.
	Root() string
	// Capabilities reports which questions are answerable.
	Capabilities() Capability

	// RevisionID returns the full native identifier of the current revision.
	RevisionID(ctx context.Context) (string, error)
	// RevisionOrdinal returns the native revision number or commit count.
	RevisionOrdinal(ctx context.Context) (int, error)
	// Tick returns a counter that grows with every revision added to history.
	Tick(ctx context.Context) (int, error)
	// Branch returns the current branch name.
	Branch(ctx context.Context) (string, error)
	// Tags returns every tag naming the current revision, unordered.
	Tags(ctx context.Context) ([]string, error)
	// CommitDate returns the commit time of the current revision.
	CommitDate(ctx context.Context) (time.Time, error)
	// Modified reports uncommitted changes to tracked files.
	Modified(ctx context.Context) (bool, error)
	// RepositoryUUID returns the repository identifier.
	RepositoryUUID(ctx context.Context) (string, error)
	// TagSignature returns the signature status of the given tag.
	TagSignature(ctx context.Context, tag string) (string, error)
	// CommitSignature returns the signature status of the current revision.
	CommitSignature(ctx context.Context) (string, error)
	// Describe returns a distance-from-tag descriptor.
	Describe(ctx context.Context) (string, error)
	// ShortHash derives the short form of a full revision identifier.
	ShortHash(full string) string
}

// unsupported supplies ErrUnsupported answers; extractors embed it and
// override what their VCS supports.
type unsupported struct{}

func (unsupported) RevisionID(context.Context) (string, error) { return "", ErrUnsupported }
func (unsupported) RevisionOrdinal(context.Context) (int, error) { return 0, ErrUnsupported }
func (unsupported) Tick(context.Context) (int, error) { return 0, ErrUnsupported }
func (unsupported) Branch(context.Context) (string, error) { return "", ErrUnsupported }
func (unsupported) Tags(context.Context) ([]string, error) { return nil, ErrUnsupported }
func (unsupported) CommitDate(context.Context) (time.Time, error) {
	return time.Time{}, ErrUnsupported
}
func (unsupported) Modified(context.Context) (bool, error) { return false, ErrUnsupported }
func (unsupported) RepositoryUUID(context.Context) (string, error) { return "", ErrUnsupported }
func (unsupported) TagSignature(context.Context, string) (string, error) {
	return "", ErrUnsupported
}
func (unsupported) CommitSignature(context.Context) (string, error) { return "", ErrUnsupported }
func (unsupported) Describe(context.Context) (string, error) { return "", ErrUnsupported }
