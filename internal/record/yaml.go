package record

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// yamlRecord is the self-describing on-disk shape: symbol names as keys, null
// for null text. Keys this version does not know are ignored on read.
type yamlRecord struct {
	Type          *string `yaml:"VCS_TYPE"`
	Basename      *string `yaml:"VCS_BASENAME"`
	UUID          *string `yaml:"VCS_UUID"`
	Num           *int    `yaml:"VCS_NUM"`
	Date          *string `yaml:"VCS_DATE"`
	Branch        *string `yaml:"VCS_BRANCH"`
	Tag           *string `yaml:"VCS_TAG"`
	TagOpenPGP    *string `yaml:"VCS_TAG_OPENPGP"`
	Tick          *int    `yaml:"VCS_TICK"`
	Extra         *string `yaml:"VCS_EXTRA"`
	ActionStamp   *string `yaml:"VCS_ACTION_STAMP"`
	FullHash      *string `yaml:"VCS_FULL_HASH"`
	CommitOpenPGP *string `yaml:"VCS_COMMIT_OPENPGP"`
	ShortHash     *string `yaml:"VCS_SHORT_HASH"`
	WCModified    *int    `yaml:"VCS_WC_MODIFIED"`
}

func textPtr(t Text) *string {
	if !t.Valid {
		return nil
	}
	v := t.Value
	return &v
}

func ptrText(p *string) Text {
	if p == nil {
		return Null
	}
	return Some(*p)
}

func intPtr(v int) *int {
	return &v
}

// MarshalYAML implements yaml.Marshaler.
func (r Record) MarshalYAML() (interface{}, error) {
	typ := string(r.typeOrNone())
	modified := 0
	if r.WCModified {
		modified = 1
	}
	return yamlRecord{
		Type:          &typ,
		Basename:      textPtr(r.Basename),
		UUID:          textPtr(r.UUID),
		Num:           intPtr(r.Num),
		Date:          textPtr(r.Date),
		Branch:        textPtr(r.Branch),
		Tag:           textPtr(r.Tag),
		TagOpenPGP:    textPtr(r.TagOpenPGP),
		Tick:          intPtr(r.Tick),
		Extra:         textPtr(r.Extra),
		ActionStamp:   textPtr(r.ActionStamp),
		FullHash:      textPtr(r.FullHash),
		CommitOpenPGP: textPtr(r.CommitOpenPGP),
		ShortHash:     textPtr(r.ShortHash),
		WCModified:    &modified,
	}, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *Record) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("record: expected a mapping, got %s", kindName(node.Kind))
	}
	var w yamlRecord
	if err := node.Decode(&w); err != nil {
		return err
	}

	out := Record{Type: TypeNone}
	if w.Type != nil && *w.Type != "" {
		typ, ok := ParseType(*w.Type)
		if !ok {
			return fmt.Errorf("record: unknown %s %q", SymType, *w.Type)
		}
		out.Type = typ
	}
	if w.Num != nil {
		if *w.Num < 0 {
			return fmt.Errorf("record: %s must not be negative, got %d", SymNum, *w.Num)
		}
		out.Num = *w.Num
	}
	if w.Tick != nil {
		if *w.Tick < 0 {
			return fmt.Errorf("record: %s must not be negative, got %d", SymTick, *w.Tick)
		}
		out.Tick = *w.Tick
	}
	if w.WCModified != nil {
		switch *w.WCModified {
		case 0:
		case 1:
			out.WCModified = true
		default:
			return fmt.Errorf("record: %s must be 0 or 1, got %d", SymWCModified, *w.WCModified)
		}
	}
	out.Basename = ptrText(w.Basename)
	out.UUID = ptrText(w.UUID)
	out.Date = ptrText(w.Date)
	out.Branch = ptrText(w.Branch)
	out.Tag = ptrText(w.Tag)
	out.TagOpenPGP = ptrText(w.TagOpenPGP)
	out.Extra = ptrText(w.Extra)
	out.ActionStamp = ptrText(w.ActionStamp)
	out.FullHash = ptrText(w.FullHash)
	out.CommitOpenPGP = ptrText(w.CommitOpenPGP)
	out.ShortHash = ptrText(w.ShortHash)

	*r = out
	return nil
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown node"
	}
}
