// Package version provides the application version.
package version

import "fmt"

// Version, Commit and Date are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/sergeknystautas/revstamp/internal/version.Version=1.2.3" ./cmd/revstamp
//
// A build can stamp itself: `revstamp -s VCS_SHORT_HASH` yields Commit.
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// String formats the version for `revstamp version`.
func String() string {
	s := "revstamp " + Version
	if Commit != "" {
		s += fmt.Sprintf(" (%s", Commit)
		if Date != "" {
			s += ", " + Date
		}
		s += ")"
	}
	return s
}
