// Package version holds build metadata injected with -ldflags -X.
package version

import (
	"fmt"
	"runtime/debug"
)

// Set by the linker.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// vcsRevisionKey is the build setting holding the VCS commit.
const vcsRevisionKey = "vcs.revision"

// InitBinaryVersion fills Version and Commit from the module build info when
// the linker did not set them, as for `go install` builds.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	if Commit != "unknown" {
		return
	}

	for _, setting := range info.Settings {
		if setting.Key == vcsRevisionKey && setting.Value != "" {
			Commit = setting.Value
		}
	}
}

// String formats the metadata for the version command.
func String(binary string) string {
	return fmt.Sprintf("%s %s (commit: %s, built: %s)", binary, Version, Commit, Date)
}
