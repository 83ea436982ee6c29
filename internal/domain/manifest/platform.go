package manifest

import (
	"strings"
)

const pythonClassifierPrefix = "Programming Language :: Python :: "

// unixLike lists GOOS values covered by the "Unix" and "POSIX" platforms.
//
//nolint:gochecknoglobals // Read-only lookup table.
var unixLike = map[string]struct{}{
	"linux":     {},
	"darwin":    {},
	"freebsd":   {},
	"netbsd":    {},
	"openbsd":   {},
	"dragonfly": {},
	"solaris":   {},
	"illumos":   {},
	"aix":       {},
}

// Runtimes returns the interpreter versions declared through Python
// classifiers ("2.7", "3"), in declaration order.
func (m *Manifest) Runtimes() []string {
	var runtimes []string

	for _, classifier := range m.Classifiers {
		rest, ok := strings.CutPrefix(classifier, pythonClassifierPrefix)
		if !ok {
			continue
		}

		rest = strings.TrimSpace(rest)
		if rest == "" || !isVersion(rest) {
			continue
		}

		runtimes = append(runtimes, rest)
	}

	return runtimes
}

// SupportsPlatform reports whether goos satisfies the declared platforms.
// An empty list, or an "any" entry, accepts every OS.
func SupportsPlatform(platforms []string, goos string) bool {
	if len(platforms) == 0 {
		return true
	}

	goos = strings.ToLower(goos)

	for _, platform := range platforms {
		switch p := strings.ToLower(strings.TrimSpace(platform)); p {
		case "any", "all":
			return true
		case "unix", "posix":
			if _, ok := unixLike[goos]; ok {
				return true
			}
		case "macos", "osx", "mac os x":
			if goos == "darwin" {
				return true
			}
		default:
			if p == goos {
				return true
			}
		}
	}

	return false
}

// RuntimeSupported reports whether an interpreter version such as "2.7.18"
// satisfies one of the declared runtimes. "2.7" matches 2.7.x and "2"
// matches 2.x. An empty list accepts every version.
func RuntimeSupported(runtimes []string, version string) bool {
	if len(runtimes) == 0 {
		return true
	}

	got := strings.Split(strings.TrimSpace(version), ".")

	for _, runtime := range runtimes {
		want := strings.Split(runtime, ".")
		if len(want) > len(got) {
			continue
		}

		matched := true

		for i := range want {
			if want[i] != got[i] {
				matched = false
				break
			}
		}

		if matched {
			return true
		}
	}

	return false
}

func isVersion(s string) bool {
	for _, part := range strings.Split(s, ".") {
		if part == "" {
			return false
		}

		for _, r := range part {
			if r < '0' || r > '9' {
				return false
			}
		}
	}

	return true
}
