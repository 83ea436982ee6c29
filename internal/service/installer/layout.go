package installer

import (
	"path/filepath"

	"github.com/yzharold/RCAS/internal/domain/distribution"
)

const (
	libDirName = "rcas"
	dirMode    = 0o755
)

// Layout resolves installation paths under a prefix.
type Layout struct {
	Prefix string
	BinDir string
	LibDir string
}

// NewLayout returns the layout rooted at prefix.
func NewLayout(prefix string) Layout {
	prefix = filepath.Clean(prefix)

	return Layout{
		Prefix: prefix,
		BinDir: filepath.Join(prefix, "bin"),
		LibDir: filepath.Join(prefix, "lib", libDirName),
	}
}

// RecordPath is where the install record lives.
func (l Layout) RecordPath() string {
	return filepath.Join(l.LibDir, distribution.RecordFilename)
}

// PayloadPath maps a slash-separated payload path into the library directory.
func (l Layout) PayloadPath(p string) string {
	return filepath.Join(l.LibDir, filepath.FromSlash(p))
}

// LauncherPath is the executable registered for alias.
func (l Layout) LauncherPath(alias string) string {
	return filepath.Join(l.BinDir, alias)
}

func (l Layout) markerPath() string {
	return filepath.Join(l.Prefix, markerFilename)
}
