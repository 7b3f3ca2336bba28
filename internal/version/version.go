// Package version provides application version information.
// The values can be set at build time using ldflags:
//
//	go build -ldflags "-X github.com/ramonehamilton/deck-engine/internal/version.Version=v1.2.3"
package version

import (
	"fmt"
	"runtime/debug"
)

var (
	// Version is the application version. It defaults to "dev".
	Version = "dev"

	// Commit is the VCS revision, filled from build info when not set.
	Commit = ""
)

// GetVersion returns the current application version.
func GetVersion() string {
	return Version
}

func init() {
	if Commit != "" {
		return
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 7 {
				Commit = s.Value[:7]
			}
		}
	}
}

// String formats the version for display.
func String() string {
	if Commit == "" {
		return Version
	}
	return fmt.Sprintf("%s (%s)", Version, Commit)
}
