package vcs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sergeknystautas/revstamp/internal/record"
)

func svnScript(relURL, status string) map[string]scripted {
	item := func(name string) string {
		return "svn info --show-item " + name + " --no-newline ."
	}
	m := make(map[string]scripted)
	m[item("last-changed-revision")] = ok("1200")
	m[item("revision")] = ok("1234")
	m[item("relative-url")] = ok(relURL)
	m[item("last-changed-date")] = ok("2024-03-01T10:00:00.123456Z")
	m[item("repos-uuid")] = ok("13f79535-47bb-0310-9956-ffa450edef68")
	m["svn status --ignore-externals --quiet"] = ok(status)
	m["svn status --ignore-externals"] = ok(status)
	return m
}

func TestSubversion(t *testing.T) {
	s := NewSubversion("/wc", newScripted(svnScript("^/project/branches/feature-x/src", "")), false)
	ctx := context.Background()

	assert.Equal(t, record.TypeSVN, s.Type())

	id, err := s.RevisionID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1200", id)
	assert.Equal(t, "1200", s.ShortHash(id))

	num, err := s.RevisionOrdinal(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1200, num)

	tick, err := s.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1234, tick)

	branch, err := s.Branch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "feature-x", branch)

	tags, err := s.Tags(ctx)
	require.NoError(t, err)
	assert.Empty(t, tags)

	date, err := s.CommitDate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01T10:00:00Z", date.Format(time.RFC3339))

	id, err = s.RepositoryUUID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "13f79535-47bb-0310-9956-ffa450edef68", id)

	_, err = s.Describe(ctx)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestSplitSVNPath(t *testing.T) {
	tests := []struct {
		rel    string
		branch string
		tag    string
	}{
		{"^/trunk", "trunk", ""},
		{"^/project/trunk/lib", "trunk", ""},
		{"^/branches/release-1.x", "release-1.x", ""},
		{"^/tags/v1.0.0/docs", "", "v1.0.0"},
		{"^/vendor/stuff", "", ""},
		{"^/branches", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			branch, tag := splitSVNPath(tt.rel)
			assert.Equal(t, tt.branch, branch)
			assert.Equal(t, tt.tag, tag)
		})
	}
}

func TestSubversionTagCheckout(t *testing.T) {
	s := NewSubversion("/wc", newScripted(svnScript("^/tags/v2.1.0", "")), false)
	tags, err := s.Tags(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"v2.1.0"}, tags)
}

func TestSubversionModified(t *testing.T) {
	tests := []struct {
		name           string
		status         string
		countUntracked bool
		want           bool
	}{
		{"clean", "", false, false},
		{"edited", "M       main.c\n", false, true},
		{"externals only", "X       vendor/lib\n\nPerforming status on external item at 'vendor/lib':\n", false, false},
		{"untracked ignored by default", "?       notes.txt\n", false, false},
		{"untracked counted on request", "?       notes.txt\n", true, true},
		{"ignored never counts", "I       build\n", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSubversion("/wc", newScripted(svnScript("^/trunk", tt.status)), tt.countUntracked)
			mod, err := s.Modified(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, mod)
		})
	}
}

func TestSubversionSkipsGeneratedFiles(t *testing.T) {
	status := "?       autorevision.cache\n?       src/rev.h\n"
	s := NewSubversion("/wc", newScripted(svnScript("^/trunk", status)), true,
		"/wc/autorevision.cache", "/wc/src/rev.h")
	mod, err := s.Modified(context.Background())
	require.NoError(t, err)
	assert.False(t, mod)

	status += "?       notes.txt\n"
	s = NewSubversion("/wc", newScripted(svnScript("^/trunk", status)), true, "/wc/autorevision.cache")
	mod, err = s.Modified(context.Background())
	require.NoError(t, err)
	assert.True(t, mod)
}

func TestSubversionMalformed(t *testing.T) {
	script := svnScript("^/trunk", "")
	script["svn info --show-item repos-uuid --no-newline ."] = ok("nope")
	script["svn info --show-item last-changed-date --no-newline ."] = ok("Fri, 01 Mar 2024")
	s := NewSubversion("/wc", newScripted(script), false)

	_, err := s.RepositoryUUID(context.Background())
	assert.ErrorIs(t, err, ErrUnparseable)
	_, err = s.CommitDate(context.Background())
	assert.ErrorIs(t, err, ErrUnparseable)
}

func TestBazaar(t *testing.T) {
	revID := "jane@example.com-20240301120000-a1b2c3d4e5f6g7h8i9"
	script := map[string]scripted{}
	script["bzr version-info --custom --template={revision_id}"] = ok(revID)
	script["bzr version-info --custom --template={date}"] = ok("2024-03-01 12:00:00 +0200")
	script["bzr revno"] = ok("17\n")
	script["bzr log --include-merged --line"] = ok("17: jane 2024-03-01 merge\n16.1.1: jane 2024-02-01 fix\n16: jane 2024-01-01 first\n")
	script["bzr nick"] = ok("trunk\n")
	script["bzr tags -r -1"] = ok("release-1.0          17\n1.0.0                17\n")
	script["bzr status --short --no-pending --versioned"] = ok(" M  setup.py\n")
	b := NewBazaar("/branch", newScripted(script))
	ctx := context.Background()

	assert.Equal(t, record.TypeBzr, b.Type())
	assert.False(t, b.Capabilities().Has(CapUUID))

	id, err := b.RevisionID(ctx)
	require.NoError(t, err)
	assert.Equal(t, revID, id)
	assert.Equal(t, "a1b2c3d4e5f6g7h8", b.ShortHash(id))

	num, err := b.RevisionOrdinal(ctx)
	require.NoError(t, err)
	assert.Equal(t, 17, num)

	tick, err := b.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, tick)

	branch, err := b.Branch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "trunk", branch)

	tags, err := b.Tags(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", SelectTag(tags))

	date, err := b.CommitDate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01T12:00:00+02:00", date.Format(time.RFC3339))

	mod, err := b.Modified(ctx)
	require.NoError(t, err)
	assert.True(t, mod)

	_, err = b.RepositoryUUID(ctx)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestBazaarEmptyBranch(t *testing.T) {
	b := NewBazaar("/branch", newScripted(map[string]scripted{
		"bzr version-info --custom --template={revision_id}": ok("null:"),
	}))
	id, err := b.RevisionID(context.Background())
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestFossil(t *testing.T) {
	hash := "5e3a2c1f0b9d8e7f6a5b4c3d2e1f0a9b8c7d6e5f"
	info := "project-name: demo\n" +
		"repository:   /home/u/demo.fossil\n" +
		"local-root:   /home/u/demo/\n" +
		"project-code: 0aa1bb2cc3dd4ee5ff6aa7bb8cc9dd0ee1ff2aa3\n" +
		"checkout:     " + hash + " 2024-03-01 10:00:00 UTC\n" +
		"parent:       0000000000000000000000000000000000000000 2024-02-01 09:00:00 UTC\n" +
		"tags:         trunk, release, v1.4.0\n" +
		"comment:      ship it (user: u)\n" +
		"check-ins:    88\n"
	script := map[string]scripted{}
	script["fossil info"] = ok(info)
	script["fossil sql "+fossilAncestorQuery(hash)] = ok("41\n")
	script["fossil branch current"] = ok("trunk\n")
	script["fossil changes"] = ok("")
	f := NewFossil("/co", newScripted(script))
	ctx := context.Background()

	assert.Equal(t, record.TypeFossil, f.Type())
	assert.True(t, f.Capabilities().Has(CapTick))

	id, err := f.RevisionID(ctx)
	require.NoError(t, err)
	assert.Equal(t, hash, id)
	assert.Equal(t, "5e3a2c1f0b", f.ShortHash(id))

	num, err := f.RevisionOrdinal(ctx)
	require.NoError(t, err)
	assert.Equal(t, 41, num)

	tick, err := f.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 88, tick)

	branch, err := f.Branch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "trunk", branch)

	tags, err := f.Tags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"release", "v1.4.0"}, tags)

	date, err := f.CommitDate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01T10:00:00Z", date.UTC().Format(time.RFC3339))

	mod, err := f.Modified(ctx)
	require.NoError(t, err)
	assert.False(t, mod)

	code, err := f.RepositoryUUID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0aa1bb2cc3dd4ee5ff6aa7bb8cc9dd0ee1ff2aa3", code)
}

func TestFossilOrdinalFollowsCheckout(t *testing.T) {
	checkout := func(hash string) string {
		return "checkout:     " + hash + " 2024-03-01 10:00:00 UTC\ncheck-ins:    88\n"
	}
	newer := "5e3a2c1f0b9d8e7f6a5b4c3d2e1f0a9b8c7d6e5f"
	older := "1111111111111111111111111111111111111111"
	num := func(hash, count string) int {
		t.Helper()
		script := map[string]scripted{}
		script["fossil info"] = ok(checkout(hash))
		script["fossil sql "+fossilAncestorQuery(hash)] = ok(count)
		f := NewFossil("/co", newScripted(script))
		n, err := f.RevisionOrdinal(context.Background())
		require.NoError(t, err)
		return n
	}
	assert.Equal(t, 41, num(newer, "41\n"))
	assert.Equal(t, 12, num(older, "12\n"))
	assert.Contains(t, fossilAncestorQuery(older), "uuid='"+older+"'")
}

func TestFossilMissingCheckout(t *testing.T) {
	f := NewFossil("/co", newScripted(map[string]scripted{
		"fossil info": ok("project-name: demo\n"),
	}))
	_, err := f.RevisionID(context.Background())
	assert.ErrorIs(t, err, ErrUnparseable)
}
