package vcs

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseCount parses a non-negative decimal count.
func parseCount(s string) (int, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: expected a count, got %q", ErrUnparseable, s)
	}
	return n, nil
}

// parseDate parses s with exactly one layout. Anything else is reported as
// unparseable rather than guessed at.
func parseDate(layout, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q does not match %q", ErrUnparseable, s, layout)
	}
	return t, nil
}

// isHex reports whether s is lowercase or uppercase hexadecimal.
func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// checkHash validates a hexadecimal revision id of one of the given lengths.
func checkHash(s string, lengths ...int) (string, error) {
	s = strings.TrimSpace(s)
	if isHex(s) {
		for _, n := range lengths {
			if len(s) == n {
				return strings.ToLower(s), nil
			}
		}
	}
	return "", fmt.Errorf("%w: %q is not a revision hash", ErrUnparseable, s)
}

// prefix returns the first n bytes of s.
func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// keyValues parses "key: value" lines, as printed by svn info and fossil info.
func keyValues(s string) map[string]string {
	out := make(map[string]string)
	for _, l := range lines(s) {
		k, v, ok := strings.Cut(l, ":")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		if _, dup := out[k]; dup {
			continue
		}
		out[k] = strings.TrimSpace(v)
	}
	return out
}
