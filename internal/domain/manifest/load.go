package manifest

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

var errUnknownKeys = errors.New("unknown manifest keys")

// Load reads a TOML manifest and overlays the keys it defines on Default.
// Tables such as entry_points and package_data replace the defaults as a whole.
func Load(path string) (*Manifest, error) {
	var raw Manifest

	meta, err := toml.DecodeFile(filepath.Clean(path), &raw)
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}

		return nil, fmt.Errorf("%w: %s", errUnknownKeys, strings.Join(keys, ", "))
	}

	m := Default()
	overlay(m, &raw, meta)

	return m, nil
}

// Encode writes m as TOML.
func Encode(w io.Writer, m *Manifest) error {
	if err := toml.NewEncoder(w).Encode(m); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	return nil
}

//nolint:cyclop,funlen // One branch per manifest key.
func overlay(dst, src *Manifest, meta toml.MetaData) {
	if meta.IsDefined("name") {
		dst.Name = strings.TrimSpace(src.Name)
	}

	if meta.IsDefined("version") {
		dst.Version = strings.TrimSpace(src.Version)
	}

	if meta.IsDefined("description") {
		dst.Description = src.Description
	}

	if meta.IsDefined("long_description") {
		dst.LongDescription = src.LongDescription
	}

	if meta.IsDefined("author") {
		dst.Author = src.Author
	}

	if meta.IsDefined("author_email") {
		dst.AuthorEmail = src.AuthorEmail
	}

	if meta.IsDefined("maintainer") {
		dst.Maintainer = src.Maintainer
	}

	if meta.IsDefined("maintainer_email") {
		dst.MaintainerEmail = src.MaintainerEmail
	}

	if meta.IsDefined("credits") {
		dst.Credits = src.Credits
	}

	if meta.IsDefined("copyright") {
		dst.Copyright = src.Copyright
	}

	if meta.IsDefined("license") {
		dst.License = src.License
	}

	if meta.IsDefined("url") {
		dst.URL = src.URL
	}

	if meta.IsDefined("keywords") {
		dst.Keywords = src.Keywords
	}

	if meta.IsDefined("platforms") {
		dst.Platforms = src.Platforms
	}

	if meta.IsDefined("classifiers") {
		dst.Classifiers = src.Classifiers
	}

	if meta.IsDefined("zip_safe") {
		dst.ZipSafe = src.ZipSafe
	}

	if meta.IsDefined("packages") {
		dst.Packages = src.Packages
	}

	if meta.IsDefined("entry_points") {
		dst.EntryPoints = src.EntryPoints
	}

	if meta.IsDefined("package_data") {
		dst.PackageData = src.PackageData
	}
}
