package vcs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sergeknystautas/revstamp/internal/record"
)

func TestGitFixture(t *testing.T) {
	dir := gitTestWorkTree(t)
	gitCommit(t, dir, "second.txt")
	g := NewGit(dir, execRunner(t))
	ctx := context.Background()

	assert.Equal(t, record.TypeGit, g.Type())
	assert.Equal(t, dir, g.Root())

	id, err := g.RevisionID(ctx)
	require.NoError(t, err)
	assert.Equal(t, runGit(t, dir, "rev-parse", "HEAD"), id)
	assert.Len(t, g.ShortHash(id), 7)

	num, err := g.RevisionOrdinal(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, num)

	tick, err := g.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, tick)

	branch, err := g.Branch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "main", branch)

	date, err := g.CommitDate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01T12:00:00+02:00", date.Format(time.RFC3339))

	root, err := g.RepositoryUUID(ctx)
	require.NoError(t, err)
	assert.Equal(t, runGit(t, dir, "rev-list", "--max-parents=0", "HEAD"), root)

	sig, err := g.CommitSignature(ctx)
	require.NoError(t, err)
	assert.Empty(t, sig, "unsigned commit")
}

func TestGitTickCountsMergedCommits(t *testing.T) {
	dir := gitTestWorkTree(t)
	runGit(t, dir, "checkout", "-b", "feature")
	gitCommit(t, dir, "a.txt")
	gitCommit(t, dir, "b.txt")
	runGit(t, dir, "checkout", "main")
	gitCommit(t, dir, "c.txt")
	runGit(t, dir, "merge", "--no-ff", "-m", "merge feature", "feature")

	g := NewGit(dir, execRunner(t))
	ctx := context.Background()

	num, err := g.RevisionOrdinal(ctx)
	require.NoError(t, err)
	tick, err := g.Tick(ctx)
	require.NoError(t, err)

	// initial, c, merge on the first-parent chain; a and b as well in the tick
	assert.Equal(t, 3, num)
	assert.Equal(t, 5, tick)
}

func TestGitDetachedHead(t *testing.T) {
	dir := gitTestWorkTree(t)
	gitCommit(t, dir, "second.txt")
	runGit(t, dir, "checkout", "--detach", "HEAD~1")

	branch, err := NewGit(dir, execRunner(t)).Branch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, branch)
}

func TestGitModified(t *testing.T) {
	dir := gitTestWorkTree(t)
	g := NewGit(dir, execRunner(t))
	ctx := context.Background()

	mod, err := g.Modified(ctx)
	require.NoError(t, err)
	assert.False(t, mod)

	writeFile(t, dir, "untracked.txt", "x")
	writeFile(t, dir, ".gitignore", "ignored.txt\n")
	mod, err = g.Modified(ctx)
	require.NoError(t, err)
	assert.False(t, mod, "untracked files do not count")

	writeFile(t, dir, "README.md", "edited")
	mod, err = g.Modified(ctx)
	require.NoError(t, err)
	assert.True(t, mod)

	runGit(t, dir, "checkout", "--", "README.md")
	require.NoError(t, os.Remove(filepath.Join(dir, "README.md")))
	mod, err = g.Modified(ctx)
	require.NoError(t, err)
	assert.True(t, mod, "deletions count")
}

func TestGitTagsAndDescribe(t *testing.T) {
	dir := gitTestWorkTree(t)
	g := NewGit(dir, execRunner(t))
	ctx := context.Background()

	tags, err := g.Tags(ctx)
	require.NoError(t, err)
	assert.Empty(t, tags)

	desc, err := g.Describe(ctx)
	require.NoError(t, err)
	assert.Empty(t, desc, "no tags reachable")

	runGit(t, dir, "tag", "v1.2.0")
	runGit(t, dir, "tag", "-a", "-m", "release", "v1.10.0")
	runGit(t, dir, "tag", "nightly")

	tags, err = g.Tags(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"v1.2.0", "v1.10.0", "nightly"}, tags)
	assert.Equal(t, "v1.10.0", SelectTag(tags))

	gitCommit(t, dir, "after.txt")
	desc, err = g.Describe(ctx)
	require.NoError(t, err)
	id, err := g.RevisionID(ctx)
	require.NoError(t, err)
	assert.Contains(t, desc, "-1-g"+id[:7])
}

func TestGitTagSignatureUnsigned(t *testing.T) {
	dir := gitTestWorkTree(t)
	runGit(t, dir, "tag", "light")
	runGit(t, dir, "tag", "-a", "-m", "annotated", "heavy")
	g := NewGit(dir, execRunner(t))
	ctx := context.Background()

	for _, tag := range []string{"light", "heavy"} {
		sig, err := g.TagSignature(ctx, tag)
		require.NoError(t, err, tag)
		assert.Empty(t, sig, tag)
	}
}

func TestGitEmptyRepositoryFails(t *testing.T) {
	requireGit(t)
	dir := t.TempDir()
	runGit(t, dir, "init", "-b", "main")

	_, err := NewGit(dir, execRunner(t)).RevisionID(context.Background())
	require.Error(t, err)
	var cerr *CommandError
	assert.True(t, errors.As(err, &cerr))
}

func TestGitScriptedSignatures(t *testing.T) {
	run := newScripted(map[string]scripted{
		"git log -1 --format=%G?:%GF HEAD": ok("G:ABCDEF0123\n"),
		"git verify-tag --raw v1": {
			exit:   0,
			stderr: "[GNUPG:] NEWSIG\n[GNUPG:] GOODSIG 0123 Jane <j@example.com>\n[GNUPG:] VALIDSIG ABCDEF0123 2024-01-01\n",
		},
		"git verify-tag --raw v2": fail(1, "[GNUPG:] BADSIG 0123 Jane\n"),
		"git verify-tag --raw v3": fail(1, "error: no signature found\n"),
		"git verify-tag --raw v4": fail(128, "fatal: tag 'v4' not found.\n"),
	})
	g := NewGit("/repo", run)
	ctx := context.Background()

	sig, err := g.CommitSignature(ctx)
	require.NoError(t, err)
	assert.Equal(t, "good:ABCDEF0123", sig)

	sig, err = g.TagSignature(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "good:ABCDEF0123", sig)

	sig, err = g.TagSignature(ctx, "v2")
	require.NoError(t, err)
	assert.Equal(t, "bad", sig)

	sig, err = g.TagSignature(ctx, "v3")
	require.NoError(t, err)
	assert.Empty(t, sig)

	_, err = g.TagSignature(ctx, "v4")
	assert.Error(t, err)
}

func TestGitScriptedMalformed(t *testing.T) {
	run := newScripted(map[string]scripted{
		"git rev-parse --verify HEAD":              ok("not-a-hash\n"),
		"git rev-list --count --first-parent HEAD": ok("many\n"),
		"git log -1 --format=%cI HEAD":             ok("Fri Mar 1 12:00:00 2024\n"),
		"git log -1 --format=%G?:%GF HEAD":         ok("Q:\n"),
		"git symbolic-ref --short -q HEAD":         fail(128, "fatal: not a git repository\n"),
		"git rev-list --max-parents=0 HEAD":        ok(""),
	})
	g := NewGit("/repo", run)
	ctx := context.Background()

	_, err := g.RevisionID(ctx)
	assert.ErrorIs(t, err, ErrUnparseable)
	_, err = g.RevisionOrdinal(ctx)
	assert.ErrorIs(t, err, ErrUnparseable)
	_, err = g.CommitDate(ctx)
	assert.ErrorIs(t, err, ErrUnparseable)
	_, err = g.CommitSignature(ctx)
	assert.ErrorIs(t, err, ErrUnparseable)
	_, err = g.RepositoryUUID(ctx)
	assert.ErrorIs(t, err, ErrUnparseable)

	_, err = g.Branch(ctx)
	var cerr *CommandError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, 128, cerr.ExitCode)
}

func TestGitRootCommitIsStable(t *testing.T) {
	a := "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	b := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	run := newScripted(map[string]scripted{
		"git rev-list --max-parents=0 HEAD": ok(a + "\n" + b + "\n"),
	})
	id, err := NewGit("/repo", run).RepositoryUUID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, b, id)
}

func TestGitSVN(t *testing.T) {
	run := newScripted(map[string]scripted{
		"git svn find-rev HEAD": ok("1234\n"),
		"git svn info": ok("Path: .\nURL: https://svn.example.com/repo/trunk\n" +
			"Repository UUID: 6B0D2B3C-1F1A-4E2B-9B1D-3A7C8E9F0A1B\nRevision: 1234\n"),
	})
	g := NewGitSVN("/repo", run)
	ctx := context.Background()

	assert.Equal(t, record.TypeGitSVN, g.Type())
	num, err := g.RevisionOrdinal(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1234, num)

	id, err := g.RepositoryUUID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "6b0d2b3c-1f1a-4e2b-9b1d-3a7c8e9f0a1b", id)
}

func TestGitSVNUnmappedHead(t *testing.T) {
	run := newScripted(map[string]scripted{
		"git svn find-rev HEAD": ok("\n"),
		"git svn info":          ok("Repository UUID: not-a-uuid\n"),
	})
	g := NewGitSVN("/repo", run)
	_, err := g.RevisionOrdinal(context.Background())
	assert.ErrorIs(t, err, ErrUnparseable)
	_, err = g.RepositoryUUID(context.Background())
	assert.ErrorIs(t, err, ErrUnparseable)
}

func TestParseGPGStatus(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"good without fingerprint", "[GNUPG:] GOODSIG 01 x", "good"},
		{"good with fingerprint", "[GNUPG:] GOODSIG 01 x\n[GNUPG:] VALIDSIG FPR 2024", "good:FPR"},
		{"bad", "[GNUPG:] BADSIG 01 x", "bad"},
		{"expired key", "[GNUPG:] EXPKEYSIG 01 x", "expired-key"},
		{"revoked", "[GNUPG:] REVKEYSIG 01 x", "revoked"},
		{"no pubkey", "[GNUPG:] ERRSIG 01 1 8 00 1 9\n[GNUPG:] NO_PUBKEY 01", "unknown"},
		{"noise", "gpg: Signature made today\nerror: whatever", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseGPGStatus(tt.in))
		})
	}
}
