package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleRecord() Record {
	return Record{
		Type:          TypeGit,
		Basename:      Some("widget"),
		UUID:          Some("0f3c1a9e2b7d4c5a8e6f0a1b2c3d4e5f6a7b8c9d"),
		Num:           42,
		Date:          Some("2024-03-01T10:20:30+01:00"),
		Branch:        Some("main"),
		Tag:           Some("v1.2.0"),
		TagOpenPGP:    Null,
		Tick:          57,
		Extra:         Some("v1.2.0-0-g1234567"),
		ActionStamp:   Some("widget-main-v1.2.0-1234567+-2024-03-01T10:20:30+01:00"),
		FullHash:      Some("1234567890abcdef1234567890abcdef12345678"),
		CommitOpenPGP: Some("good:ABCDEF"),
		ShortHash:     Some("1234567"),
		WCModified:    true,
	}
}

func TestSymbolsOrderMatchesNames(t *testing.T) {
	syms := sampleRecord().Symbols()
	names := SymbolNames()
	require.Len(t, syms, len(names))
	for i, s := range syms {
		assert.Equal(t, names[i], s.Name)
	}
}

func TestSymbolsIntegerEncoding(t *testing.T) {
	r := sampleRecord()

	num, ok := r.Lookup(SymNum)
	require.True(t, ok)
	assert.True(t, num.Integer)
	assert.Equal(t, "42", num.Value.Value)

	mod, ok := r.Lookup(SymWCModified)
	require.True(t, ok)
	assert.Equal(t, "1", mod.Value.Value)

	r.WCModified = false
	mod, _ = r.Lookup(SymWCModified)
	assert.Equal(t, "0", mod.Value.Value)
}

func TestLookupUnknown(t *testing.T) {
	_, ok := Empty().Lookup("VCS_NOPE")
	assert.False(t, ok)
}

func TestEmptyRecordTypeIsNone(t *testing.T) {
	typ, ok := Empty().Lookup(SymType)
	require.True(t, ok)
	assert.Equal(t, "none", typ.Value.Value)

	var zero Record
	typ, _ = zero.Lookup(SymType)
	assert.Equal(t, "none", typ.Value.Value)
}

func TestYAMLRoundTrip(t *testing.T) {
	for name, r := range map[string]Record{
		"full":  sampleRecord(),
		"empty": Empty(),
	} {
		t.Run(name, func(t *testing.T) {
			data, err := yaml.Marshal(r)
			require.NoError(t, err)

			var back Record
			require.NoError(t, yaml.Unmarshal(data, &back))
			assert.Equal(t, r, back)
		})
	}
}

func TestYAMLNullsAreExplicit(t *testing.T) {
	data, err := yaml.Marshal(Empty())
	require.NoError(t, err)
	assert.Contains(t, string(data), "VCS_UUID: null")
	assert.Contains(t, string(data), "VCS_TYPE: none")
	assert.Contains(t, string(data), "VCS_WC_MODIFIED: 0")
}

func TestYAMLIgnoresUnknownKeys(t *testing.T) {
	in := "VCS_TYPE: hg\nVCS_NUM: 7\nVCS_FUTURE_FIELD: something\n"
	var r Record
	require.NoError(t, yaml.Unmarshal([]byte(in), &r))
	assert.Equal(t, TypeHg, r.Type)
	assert.Equal(t, 7, r.Num)
	assert.False(t, r.Branch.Valid)
}

func TestYAMLRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"negative num":  "VCS_TYPE: git\nVCS_NUM: -1\n",
		"negative tick": "VCS_TYPE: git\nVCS_TICK: -3\n",
		"modified 2":    "VCS_TYPE: git\nVCS_WC_MODIFIED: 2\n",
		"unknown type":  "VCS_TYPE: cvs\nVCS_NUM: 4\n",
		"sequence":      "- VCS_TYPE\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			var r Record
			assert.Error(t, yaml.Unmarshal([]byte(in), &r))
		})
	}
}

func TestParseType(t *testing.T) {
	typ, ok := ParseType("git-svn")
	assert.True(t, ok)
	assert.Equal(t, TypeGitSVN, typ)

	_, ok = ParseType("cvs")
	assert.False(t, ok)
}

func TestDraftUnavailable(t *testing.T) {
	d := Draft{
		Type:     TypeGit,
		Basename: Have(Some("widget")),
		UUID:     Lacking[Text](),
		Num:      Failed[int](),
		Date:     Have(Some("2024-01-01T00:00:00Z")),
	}
	got := d.Unavailable()
	assert.Contains(t, got, SymNum)
	assert.NotContains(t, got, SymUUID)
	assert.NotContains(t, got, SymBasename)
	// zero-valued fields default to unavailable
	assert.Contains(t, got, SymBranch)
}

func TestTextOr(t *testing.T) {
	assert.Equal(t, "x", Null.Or("x"))
	assert.Equal(t, "", Some("").Or("x"))
}
