package record

// Availability tells a field that was computed apart from one the VCS has no
// concept of and one that could not be computed this time.
type Availability uint8

const (
	// Unavailable means extraction failed; the reconciler may substitute a
	// cached value.
	Unavailable Availability = iota
	// Present means the value was extracted.
	Present
	// Unsupported means the VCS has no such concept; the field stays null.
	Unsupported
)

func (a Availability) String() string {
	switch a {
	case Present:
		return "present"
	case Unsupported:
		return "unsupported"
	default:
		return "unavailable"
	}
}

// Field is a value tagged with its availability.
type Field[T any] struct {
	Value T
	State Availability
}

// Have returns a present field.
func Have[T any](v T) Field[T] {
	return Field[T]{Value: v, State: Present}
}

// Lacking returns a field the VCS does not support.
func Lacking[T any]() Field[T] {
	return Field[T]{State: Unsupported}
}

// Failed returns a field whose extraction failed.
func Failed[T any]() Field[T] {
	return Field[T]{State: Unavailable}
}

// Draft is the normalizer's output: every canonical field except the action
// stamp, each with its availability. A present text field may still be null
// (no tag on this revision, detached HEAD); that is a real answer and is not
// replaced from the cache.
type Draft struct {
	Type          Type
	Basename      Field[Text]
	UUID          Field[Text]
	Num           Field[int]
	Date          Field[Text]
	Branch        Field[Text]
	Tag           Field[Text]
	TagOpenPGP    Field[Text]
	Tick          Field[int]
	Extra         Field[Text]
	FullHash      Field[Text]
	CommitOpenPGP Field[Text]
	ShortHash     Field[Text]
	WCModified    Field[bool]
}

// NoVCS is the draft for a directory the probe could not attribute to a VCS.
// Every field is unavailable so the whole record can come from the cache.
func NoVCS() Draft {
	return Draft{Type: TypeNone}
}

// Unavailable lists the symbols whose extraction failed.
func (d Draft) Unavailable() []string {
	var out []string
	check := func(name string, a Availability) {
		if a == Unavailable {
			out = append(out, name)
		}
	}
	check(SymBasename, d.Basename.State)
	check(SymUUID, d.UUID.State)
	check(SymNum, d.Num.State)
	check(SymDate, d.Date.State)
	check(SymBranch, d.Branch.State)
	check(SymTag, d.Tag.State)
	check(SymTagOpenPGP, d.TagOpenPGP.State)
	check(SymTick, d.Tick.State)
	check(SymExtra, d.Extra.State)
	check(SymFullHash, d.FullHash.State)
	check(SymCommitOpenPGP, d.CommitOpenPGP.State)
	check(SymShortHash, d.ShortHash.State)
	check(SymWCModified, d.WCModified.State)
	return out
}
