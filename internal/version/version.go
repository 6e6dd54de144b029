// Package version holds build metadata for authgate, set via -ldflags.
package version

import "runtime/debug"

var (
	// Version is the semantic version.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "none"
	// BuildDate is the build timestamp.
	BuildDate = "unknown"
)

// String returns formatted version information.
func String() string {
	return Version + " (commit: " + Commit + ", built: " + BuildDate + ")"
}

// Module returns the main module version recorded by the Go toolchain, for
// binaries installed with go install where ldflags are not set.
func Module() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" {
		return Version
	}
	return info.Main.Version
}
