// Package version holds build metadata for rcas-setup.
//
// Version, Commit and BuildTime are set through -ldflags at release time.
// PackageVersion is the version of the RCAS distribution this tool describes
// by default and is independent of the tool's own version.
package version
