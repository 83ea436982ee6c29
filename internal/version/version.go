package version

import "fmt"

// PackageVersion is the RCAS release described by the built-in manifest.
const PackageVersion = "0.1.0"

var (
	// Version of rcas-setup. Overridden via ldflags.
	Version = "0.1.0"
	// Commit is the short git SHA of the build.
	Commit = "none"
	// BuildTime is the UTC build timestamp.
	BuildTime = "unknown"
)

// Short returns the tool version.
func Short() string {
	return Version
}

// Full returns the tool version with build metadata and the packaged RCAS version.
func Full() string {
	return fmt.Sprintf("rcas-setup %s (commit: %s, built at: %s), RCAS %s", Version, Commit, BuildTime, PackageVersion)
}
