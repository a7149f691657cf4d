package utils

import (
	"runtime"
	"runtime/debug"
)

// Stamped at release with -ldflags "-X github.com/papercomputeco/keepsake/pkg/utils.Version=...".
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)

// Build describes the running binary.
type Build struct {
	Version   string `json:"version"`
	Sha       string `json:"sha"`
	Time      string `json:"built_at"`
	GoVersion string `json:"go_version"`
}

// CurrentBuild returns the stamped build values. Unstamped binaries built
// from a checkout fall back to the VCS revision and time embedded by the
// toolchain.
func CurrentBuild() Build {
	b := Build{Version: Version, Sha: Sha, Time: Buildtime, GoVersion: runtime.Version()}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return b
	}
	for _, s := range info.Settings {
		switch {
		case s.Key == "vcs.revision" && b.Sha == "HEAD":
			b.Sha = s.Value
		case s.Key == "vcs.time" && b.Time == "dev":
			b.Time = s.Value
		}
	}
	return b
}
