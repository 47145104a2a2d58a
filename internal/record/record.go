// Package record defines the canonical revision record handed to output
// renderers and persisted as the fallback cache, plus the partially filled
// draft produced while extracting it.
package record

import "strconv"

// Type identifies the version control system that supplied a record.
type Type string

const (
	TypeNone    Type = "none"
	TypeGit     Type = "git"
	TypeGitSVN  Type = "git-svn"
	TypeHg      Type = "hg"
	TypeSapling Type = "sapling"
	TypeSVN     Type = "svn"
	TypeBzr     Type = "bzr"
	TypeFossil  Type = "fossil"
)

var knownTypes = []Type{TypeNone, TypeGit, TypeGitSVN, TypeHg, TypeSapling, TypeSVN, TypeBzr, TypeFossil}

// ParseType maps a VCS_TYPE value back to a Type.
func ParseType(s string) (Type, bool) {
	for _, t := range knownTypes {
		if string(t) == s {
			return t, true
		}
	}
	return TypeNone, false
}

// Text is a nullable string. The zero value is null.
type Text struct {
	Value string
	Valid bool
}

// Some returns a non-null Text.
func Some(s string) Text {
	return Text{Value: s, Valid: true}
}

// Null is the null Text.
var Null = Text{}

// Or returns the value, or fallback when null.
func (t Text) Or(fallback string) string {
	if !t.Valid {
		return fallback
	}
	return t.Value
}

// Record is the canonical revision record. It is built fresh on every
// invocation and not mutated after the composer has produced the action stamp.
type Record struct {
	Type          Type
	Basename      Text
	UUID          Text
	Num           int
	Date          Text
	Branch        Text
	Tag           Text
	TagOpenPGP    Text
	Tick          int
	Extra         Text
	ActionStamp   Text
	FullHash      Text
	CommitOpenPGP Text
	ShortHash     Text
	WCModified    bool
}

// Empty returns the fully degraded record: no VCS, every field null or zero.
func Empty() Record {
	return Record{Type: TypeNone}
}

// Symbol names, in the order renderers emit them.
const (
	SymType          = "VCS_TYPE"
	SymBasename      = "VCS_BASENAME"
	SymUUID          = "VCS_UUID"
	SymNum           = "VCS_NUM"
	SymDate          = "VCS_DATE"
	SymBranch        = "VCS_BRANCH"
	SymTag           = "VCS_TAG"
	SymTagOpenPGP    = "VCS_TAG_OPENPGP"
	SymTick          = "VCS_TICK"
	SymExtra         = "VCS_EXTRA"
	SymActionStamp   = "VCS_ACTION_STAMP"
	SymFullHash      = "VCS_FULL_HASH"
	SymCommitOpenPGP = "VCS_COMMIT_OPENPGP"
	SymShortHash     = "VCS_SHORT_HASH"
	SymWCModified    = "VCS_WC_MODIFIED"
)

// SymbolNames lists every symbol in emission order.
func SymbolNames() []string {
	return []string{
		SymType, SymBasename, SymUUID, SymNum, SymDate, SymBranch, SymTag,
		SymTagOpenPGP, SymTick, SymExtra, SymActionStamp, SymFullHash,
		SymCommitOpenPGP, SymShortHash, SymWCModified,
	}
}

// Symbol is one named value of a record as seen by renderers.
// Integer symbols are always valid.
type Symbol struct {
	Name    string
	Value   Text
	Integer bool
}

// Symbols flattens the record into its ordered symbol list.
func (r Record) Symbols() []Symbol {
	return []Symbol{
		{Name: SymType, Value: Some(string(r.typeOrNone()))},
		{Name: SymBasename, Value: r.Basename},
		{Name: SymUUID, Value: r.UUID},
		{Name: SymNum, Value: Some(strconv.Itoa(r.Num)), Integer: true},
		{Name: SymDate, Value: r.Date},
		{Name: SymBranch, Value: r.Branch},
		{Name: SymTag, Value: r.Tag},
		{Name: SymTagOpenPGP, Value: r.TagOpenPGP},
		{Name: SymTick, Value: Some(strconv.Itoa(r.Tick)), Integer: true},
		{Name: SymExtra, Value: r.Extra},
		{Name: SymActionStamp, Value: r.ActionStamp},
		{Name: SymFullHash, Value: r.FullHash},
		{Name: SymCommitOpenPGP, Value: r.CommitOpenPGP},
		{Name: SymShortHash, Value: r.ShortHash},
		{Name: SymWCModified, Value: Some(boolInt(r.WCModified)), Integer: true},
	}
}

// Lookup returns a single symbol by name.
func (r Record) Lookup(name string) (Symbol, bool) {
	for _, s := range r.Symbols() {
		if s.Name == name {
			return s, true
		}
	}
	return Symbol{}, false
}

func (r Record) typeOrNone() Type {
	if r.Type == "" {
		return TypeNone
	}
	return r.Type
}

func boolInt(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
