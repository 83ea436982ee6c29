package sourcetree

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yzharold/RCAS/internal/domain/manifest"
)

// Kind tells module files apart from bundled resources.
type Kind string

const (
	// KindModule is an importable source file of a package.
	KindModule Kind = "module"
	// KindData is a resource selected by a package data glob.
	KindData Kind = "data"
)

// File is a source file selected for distribution.
type File struct {
	// Path is slash-separated and relative to the source root, e.g. "RCAS/data/custom.css".
	Path string
	Kind Kind
	Size int64
	Mode fs.FileMode
}

var (
	// ErrPackageNotFound is returned when a declared package has no directory.
	ErrPackageNotFound = errors.New("package directory not found")
	// ErrEntryModuleNotFound is returned when an entry point names a missing module.
	ErrEntryModuleNotFound = errors.New("entry point module not found")
	// ErrNoMatch is returned when a package data glob selects no file.
	ErrNoMatch = errors.New("pattern matched no files")
)

// Collect lists the files a distribution of m built from root must contain.
func Collect(ctx context.Context, root string, m *manifest.Manifest) ([]File, error) {
	files := make(map[string]File)

	for _, pkg := range m.Packages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := collectModules(root, pkg, files); err != nil {
			return nil, err
		}
	}

	scripts, err := m.ConsoleScripts()
	if err != nil {
		return nil, err
	}

	for _, ep := range scripts {
		if _, ok := files[ep.ModulePath()]; !ok {
			return nil, fmt.Errorf("%s: %w: %s", ep.Alias, ErrEntryModuleNotFound, ep.ModulePath())
		}
	}

	for _, pkg := range sortedKeys(m.PackageData) {
		for _, pattern := range m.PackageData[pkg] {
			if err = ctx.Err(); err != nil {
				return nil, err
			}

			if err = collectPattern(root, pkg, pattern, files); err != nil {
				return nil, err
			}
		}
	}

	result := make([]File, 0, len(files))
	for _, f := range files {
		result = append(result, f)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Path < result[j].Path
	})

	return result, nil
}

// collectModules adds the *.py files directly inside the package directory.
// Subpackages must be declared on their own.
func collectModules(root, pkg string, files map[string]File) error {
	dir := manifest.PackageDir(pkg)

	entries, err := os.ReadDir(filepath.Join(root, filepath.FromSlash(dir)))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrPackageNotFound, dir)
	} else if err != nil {
		return fmt.Errorf("read package %s: %w", pkg, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || isHidden(entry.Name()) || path.Ext(entry.Name()) != ".py" {
			continue
		}

		if err = addFile(root, path.Join(dir, entry.Name()), KindModule, files); err != nil {
			return err
		}
	}

	return nil
}

// collectPattern adds regular, non-hidden files matched by pattern relative to the package directory.
func collectPattern(root, pkg, pattern string, files map[string]File) error {
	dir := manifest.PackageDir(pkg)

	matches, err := filepath.Glob(filepath.Join(root, filepath.FromSlash(dir), filepath.FromSlash(pattern)))
	if err != nil {
		return fmt.Errorf("glob %s/%s: %w", dir, pattern, err)
	}

	added := 0

	for _, match := range matches {
		rel, err := filepath.Rel(root, match)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", match, err)
		}

		rel = filepath.ToSlash(rel)
		if hasHiddenSegment(strings.TrimPrefix(rel, dir+"/")) {
			continue
		}

		info, err := os.Stat(match)
		if err != nil {
			return fmt.Errorf("stat %s: %w", rel, err)
		}

		if !info.Mode().IsRegular() {
			continue
		}

		if existing, ok := files[rel]; ok && existing.Kind == KindModule {
			added++

			continue
		}

		files[rel] = File{Path: rel, Kind: KindData, Size: info.Size(), Mode: info.Mode().Perm()}
		added++
	}

	if added == 0 {
		return fmt.Errorf("%s/%s: %w", dir, pattern, ErrNoMatch)
	}

	return nil
}

func addFile(root, rel string, kind Kind, files map[string]File) error {
	info, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return fmt.Errorf("stat %s: %w", rel, err)
	}

	if !info.Mode().IsRegular() {
		return nil
	}

	files[rel] = File{Path: rel, Kind: kind, Size: info.Size(), Mode: info.Mode().Perm()}

	return nil
}

// isHidden mirrors shell globbing, where "*" does not select dotfiles.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func hasHiddenSegment(rel string) bool {
	for _, segment := range strings.Split(rel, "/") {
		if isHidden(segment) {
			return true
		}
	}

	return false
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}
