package manifest

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/yzharold/RCAS/internal/version"
)

// ConsoleScriptsGroup is the entry point group that becomes executables on install.
const ConsoleScriptsGroup = "console_scripts"

// Manifest is the declarative description of a distributable package.
type Manifest struct {
	Name            string   `toml:"name"`
	Version         string   `toml:"version"`
	Description     string   `toml:"description"`
	LongDescription string   `toml:"long_description"`
	Author          string   `toml:"author"`
	AuthorEmail     string   `toml:"author_email"`
	Maintainer      string   `toml:"maintainer"`
	MaintainerEmail string   `toml:"maintainer_email"`
	Credits         []string `toml:"credits"`
	Copyright       string   `toml:"copyright"`
	License         string   `toml:"license"`
	URL             string   `toml:"url"`
	Keywords        []string `toml:"keywords"`
	Platforms       []string `toml:"platforms"`
	Classifiers     []string `toml:"classifiers"`
	ZipSafe         bool     `toml:"zip_safe"`
	// Packages are importable package paths ("RCAS", "RCAS.sub").
	Packages []string `toml:"packages"`
	// EntryPoints maps a group to "alias = module.path:callable" specs.
	EntryPoints map[string][]string `toml:"entry_points"`
	// PackageData maps a package to glob patterns relative to its directory.
	PackageData map[string][]string `toml:"package_data"`
}

var (
	errNameRequired        = errors.New("package name is required")
	errVersionRequired     = errors.New("package version is required")
	errPackagesRequired    = errors.New("at least one package is required")
	errDuplicateAlias      = errors.New("console script alias declared more than once")
	errUndeclaredPackage   = errors.New("package is not declared")
	errInvalidPattern      = errors.New("invalid package data pattern")
	errInvalidPackageName  = errors.New("invalid package name")
	errInvalidVersionValue = errors.New("version must not contain whitespace")
)

const rcasAuthor = "RCAS development team"

// Default returns the manifest of the RCAS release.
func Default() *Manifest {
	return &Manifest{
		Name:    "RCAS",
		Version: version.PackageVersion,

		Description: "RNA Centric Annotation System",
		LongDescription: "RCAS: RNA Centric Annotation System provides intuitive reports\n" +
			"and publication ready graphics.\n\n" +
			"https://github.com/BIMSBbioinfo/RCAS.git\n",
		Author:          rcasAuthor,
		AuthorEmail:     "dilmurat.yusuf@gmail.com",
		Maintainer:      "Dilmurat Yusuf",
		MaintainerEmail: "dilmurat.yusuf@gmail.com",
		Credits:         []string{"Dilmurat Yusuf", "Bora Uyar", "Ricardo Wurmus", "Altuna Akalin"},
		Copyright:       "Copyright (c) 2016--, " + rcasAuthor,
		License:         "MIT",
		URL:             "https://github.com/BIMSBbioinfo/RCAS.git",
		Keywords:        []string{"Bioinformatics", "Clip-Seq", "Peaks", "Annotation"},
		Platforms:       []string{"Linux"},
		Classifiers: []string{
			"Development Status :: 4 - Beta",
			"Environment :: Console",
			"License :: OSI Approved :: MIT License",
			"Programming Language :: Python :: 2.7",
			"Operating System :: Unix",
			"Intended Audience :: Science/Research",
			"Topic :: Scientific/Engineering :: Bio-Informatics",
		},
		ZipSafe:  false,
		Packages: []string{"RCAS"},
		EntryPoints: map[string][]string{
			ConsoleScriptsGroup: {"RCAS = RCAS.RCAS:main"},
		},
		PackageData: map[string][]string{
			"RCAS": {
				"data/gmt/*.gmt",
				"data/meme/*.meme",
				"data/custom.css",
				"data/header.html",
				"data/img/*",
				"data/snakefiles/*",
				"libexec/*.R",
				"libexec/*.py",
				"libexec/rcas.Rmd",
				"libexec/generate_report.sh",
			},
		},
	}
}

// Validate checks that the manifest describes a buildable package.
func (m *Manifest) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return errNameRequired
	}

	if strings.TrimSpace(m.Version) == "" {
		return errVersionRequired
	}

	if strings.ContainsAny(m.Version, " \t\n") {
		return fmt.Errorf("%w: %q", errInvalidVersionValue, m.Version)
	}

	if len(m.Packages) == 0 {
		return errPackagesRequired
	}

	for _, pkg := range m.Packages {
		if !validPackageName(pkg) {
			return fmt.Errorf("%w: %q", errInvalidPackageName, pkg)
		}
	}

	scripts, err := m.ConsoleScripts()
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(scripts))
	for _, ep := range scripts {
		if _, dup := seen[ep.Alias]; dup {
			return fmt.Errorf("%w: %s", errDuplicateAlias, ep.Alias)
		}

		seen[ep.Alias] = struct{}{}

		if !m.HasPackage(ep.Package()) {
			return fmt.Errorf("entry point %s: %w: %s", ep.Alias, errUndeclaredPackage, ep.Package())
		}
	}

	for pkg, patterns := range m.PackageData {
		if !m.HasPackage(pkg) {
			return fmt.Errorf("package data: %w: %s", errUndeclaredPackage, pkg)
		}

		for _, pattern := range patterns {
			if err = validatePattern(pattern); err != nil {
				return fmt.Errorf("package data %s: %w", pkg, err)
			}
		}
	}

	return nil
}

// HasPackage reports whether pkg is one of the declared packages.
func (m *Manifest) HasPackage(pkg string) bool {
	for _, p := range m.Packages {
		if p == pkg {
			return true
		}
	}

	return false
}

// PackageDir converts a dotted package name to its slash-separated directory.
func PackageDir(pkg string) string {
	return strings.ReplaceAll(pkg, ".", "/")
}

// Summary returns the one-line description, falling back to the name.
func (m *Manifest) Summary() string {
	if m.Description != "" {
		return m.Description
	}

	return m.Name
}

func validPackageName(pkg string) bool {
	if pkg == "" {
		return false
	}

	for _, part := range strings.Split(pkg, ".") {
		if !isIdentifier(part) {
			return false
		}
	}

	return true
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}

	return true
}

// validatePattern rejects patterns that would reach outside the package directory.
func validatePattern(pattern string) error {
	if pattern == "" || strings.HasPrefix(pattern, "/") || strings.Contains(pattern, "\\") {
		return fmt.Errorf("%w: %q", errInvalidPattern, pattern)
	}

	if _, err := path.Match(pattern, ""); err != nil {
		return fmt.Errorf("%w: %q: %w", errInvalidPattern, pattern, err)
	}

	for _, segment := range strings.Split(pattern, "/") {
		if segment == ".." || segment == "." || segment == "" {
			return fmt.Errorf("%w: %q", errInvalidPattern, pattern)
		}
	}

	return nil
}
