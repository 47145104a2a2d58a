package vcs

import (
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// SelectTag picks one tag when several name the same revision. The rule is
// the same for every VCS:
//
//  1. tags that parse as semantic versions (a leading "v" is allowed) come
//     first, highest version wins, equal versions fall back to byte order;
//  2. every other tag follows in ascending byte order.
//
// Returns "" when tags is empty.
func SelectTag(tags []string) string {
	ordered := OrderTags(tags)
	if len(ordered) == 0 {
		return ""
	}
	return ordered[0]
}

// OrderTags returns tags sorted by the SelectTag rule with blanks and
// duplicates removed.
func OrderTags(tags []string) []string {
	type entry struct {
		name string
		ver  *semver.Version
	}
	seen := make(map[string]bool, len(tags))
	entries := make([]entry, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		e := entry{name: t}
		if v, err := semver.NewVersion(t); err == nil {
			e.ver = v
		}
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		switch {
		case a.ver != nil && b.ver == nil:
			return true
		case a.ver == nil && b.ver != nil:
			return false
		case a.ver != nil && b.ver != nil:
			if c := a.ver.Compare(b.ver); c != 0 {
				return c > 0
			}
		}
		return a.name < b.name
	})

	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.name
	}
	return out
}
