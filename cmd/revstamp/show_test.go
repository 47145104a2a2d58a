package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sergeknystautas/revstamp/internal/engine"
	"github.com/sergeknystautas/revstamp/internal/probe"
	"github.com/sergeknystautas/revstamp/internal/record"
)

func TestPrintResultMarksFallbacks(t *testing.T) {
	draft := record.Draft{
		Type:   record.TypeHg,
		Branch: record.Failed[record.Text](),
		Tag:    record.Have(record.Some("1.0")),
	}
	res := engine.Result{
		Probe: probe.Result{Type: record.TypeHg, Root: "/work/widget"},
		Draft: draft,
		Record: record.Record{
			Type:       record.TypeHg,
			Branch:     record.Some("default"),
			Tag:        record.Some("1.0"),
			WCModified: true,
		},
		FromCache: true,
	}

	var buf bytes.Buffer
	printResult(newTermStyle(&buf), res)
	out := buf.String()

	assert.Contains(t, out, "hg working copy at /work/widget")
	assert.Regexp(t, `VCS_BRANCH\s+default cached`, out)
	assert.Regexp(t, `VCS_TAG\s+1\.0\n`, out)
	assert.Contains(t, out, "uncommitted changes")
	assert.NotContains(t, out, "\x1b[", "no colour when not a terminal")
}

func TestPrintResultUnavailableWithoutCache(t *testing.T) {
	res := engine.Result{
		Probe:  probe.Result{Type: record.TypeGit, Root: "/work/widget"},
		Draft:  record.Draft{Type: record.TypeGit, Date: record.Failed[record.Text]()},
		Record: record.Record{Type: record.TypeGit},
	}
	var buf bytes.Buffer
	printResult(newTermStyle(&buf), res)
	assert.Regexp(t, `VCS_DATE\s+\(null\) unavailable`, buf.String())
}

func TestKeyValuePadding(t *testing.T) {
	var buf bytes.Buffer
	newTermStyle(&buf).KeyValue("A", "1", 4)
	assert.Equal(t, "  A     1\n", buf.String())
}

func TestAbsPath(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	got := absPath(filepath.Join(dir, "out.h"))
	assert.Equal(t, filepath.Join(dir, "out.h"), got)
	assert.True(t, strings.HasPrefix(absPath("relative.h"), "/"))
}
