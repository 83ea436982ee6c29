package distribution

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/yzharold/RCAS/internal/domain/manifest"
	"github.com/yzharold/RCAS/internal/repository/sourcetree"
)

const (
	// DescriptorFilename is the descriptor's name inside a distribution directory.
	DescriptorFilename = "rcas-dist.yaml"

	// SchemaVersion is bumped on incompatible descriptor changes.
	SchemaVersion = 1

	// DefaultFileMode is applied to installed resources.
	DefaultFileMode fs.FileMode = 0o644
	// ExecutableFileMode is applied to installed scripts and launchers.
	ExecutableFileMode fs.FileMode = 0o755
)

// Descriptor describes a built distribution.
type Descriptor struct {
	Schema      int                   `yaml:"schema"`
	ID          string                `yaml:"id"`
	Name        string                `yaml:"name"`
	Version     string                `yaml:"version"`
	Summary     string                `yaml:"summary"`
	License     string                `yaml:"license,omitempty"`
	URL         string                `yaml:"url,omitempty"`
	Platforms   []string              `yaml:"platforms,omitempty"`
	Runtimes    []string              `yaml:"runtimes,omitempty"`
	EntryPoints []manifest.EntryPoint `yaml:"entry_points"`
	Archive     Archive               `yaml:"archive"`
	Files       []File                `yaml:"files"`
}

// Archive names the payload and its checksum.
type Archive struct {
	Name     string `yaml:"name"`
	Checksum string `yaml:"checksum"`
	Size     int64  `yaml:"size"`
}

// File is one payload entry.
type File struct {
	Path     string          `yaml:"path"`
	Kind     sourcetree.Kind `yaml:"kind"`
	Size     int64           `yaml:"size"`
	Mode     fs.FileMode     `yaml:"mode"`
	Checksum string          `yaml:"checksum"`
}

var (
	errDescriptorNotSet   = errors.New("descriptor is not set")
	errUnsupportedSchema  = errors.New("unsupported descriptor schema")
	errMissingField       = errors.New("descriptor field is missing")
	errNoEntryPoints      = errors.New("descriptor declares no entry points")
	errUnsafePath         = errors.New("unsafe payload path")
	errDuplicatePath      = errors.New("duplicate payload path")
	errBadChecksum        = errors.New("invalid checksum encoding")
	errIDMismatch         = errors.New("descriptor id does not match its content")
	errUnsortedPayload    = errors.New("payload is not sorted by path")
	errEntryModuleMissing = errors.New("entry point module is not part of the payload")
)

// ArchiveName returns the archive file name for a package release.
func ArchiveName(name, version string) string {
	return name + "-" + version + ".tar.gz"
}

// NewDescriptor builds a descriptor for m. Files must already carry checksums;
// they are sorted by path. The archive fields and ID are set by Seal.
func NewDescriptor(m *manifest.Manifest, files []File) (*Descriptor, error) {
	scripts, err := m.ConsoleScripts()
	if err != nil {
		return nil, err
	}

	sorted := append([]File(nil), files...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Path < sorted[j].Path
	})

	return &Descriptor{
		Schema:      SchemaVersion,
		Name:        m.Name,
		Version:     m.Version,
		Summary:     m.Summary(),
		License:     m.License,
		URL:         m.URL,
		Platforms:   append([]string(nil), m.Platforms...),
		Runtimes:    m.Runtimes(),
		EntryPoints: scripts,
		Files:       sorted,
	}, nil
}

// Seal records the archive and derives the content ID.
func (d *Descriptor) Seal(archive Archive) {
	d.Archive = archive
	d.ID = d.ComputeID().String()
}

// ComputeID derives a version 5 UUID from the name, version, entry points and payload checksums.
func (d *Descriptor) ComputeID() uuid.UUID {
	namespace := uuid.NewSHA1(uuid.NameSpaceURL, []byte("rcas-setup:"+d.Name))

	var b strings.Builder

	b.WriteString(d.Name)
	b.WriteByte('\n')
	b.WriteString(d.Version)
	b.WriteByte('\n')

	for _, ep := range d.EntryPoints {
		b.WriteString(ep.String())
		b.WriteByte('\n')
	}

	for _, f := range d.Files {
		b.WriteString(f.Path)
		b.WriteByte(' ')
		b.WriteString(f.Checksum)
		b.WriteByte('\n')
	}

	b.WriteString(d.Archive.Checksum)

	return uuid.NewSHA1(namespace, []byte(b.String()))
}

// Lookup returns the payload entry at p.
func (d *Descriptor) Lookup(p string) (File, bool) {
	i := sort.Search(len(d.Files), func(i int) bool {
		return d.Files[i].Path >= p
	})

	if i < len(d.Files) && d.Files[i].Path == p {
		return d.Files[i], true
	}

	return File{}, false
}

// Validate checks that the descriptor is complete and self-consistent.
//
//nolint:cyclop // Flat list of independent checks.
func (d *Descriptor) Validate() error {
	if d == nil {
		return errDescriptorNotSet
	}

	if d.Schema != SchemaVersion {
		return fmt.Errorf("%w: %d", errUnsupportedSchema, d.Schema)
	}

	for field, value := range map[string]string{
		"name":             d.Name,
		"version":          d.Version,
		"id":               d.ID,
		"archive.name":     d.Archive.Name,
		"archive.checksum": d.Archive.Checksum,
	} {
		if value == "" {
			return fmt.Errorf("%w: %s", errMissingField, field)
		}
	}

	if len(d.EntryPoints) == 0 {
		return errNoEntryPoints
	}

	if err := ValidatePath(d.Archive.Name); err != nil || strings.Contains(d.Archive.Name, "/") {
		return fmt.Errorf("%w: %s", errUnsafePath, d.Archive.Name)
	}

	if _, err := DecodeChecksum(d.Archive.Checksum); err != nil {
		return fmt.Errorf("archive: %w", err)
	}

	for i, f := range d.Files {
		if err := ValidatePath(f.Path); err != nil {
			return err
		}

		if i > 0 {
			switch prev := d.Files[i-1].Path; {
			case prev == f.Path:
				return fmt.Errorf("%w: %s", errDuplicatePath, f.Path)
			case prev > f.Path:
				return fmt.Errorf("%w: %s", errUnsortedPayload, f.Path)
			}
		}

		if _, err := DecodeChecksum(f.Checksum); err != nil {
			return fmt.Errorf("%s: %w", f.Path, err)
		}
	}

	for _, ep := range d.EntryPoints {
		if _, ok := d.Lookup(ep.ModulePath()); !ok {
			return fmt.Errorf("%s: %w: %s", ep.Alias, errEntryModuleMissing, ep.ModulePath())
		}
	}

	if d.ComputeID().String() != d.ID {
		return errIDMismatch
	}

	return nil
}

// ValidatePath rejects absolute paths and paths escaping their root.
func ValidatePath(p string) error {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "\\") || path.Clean(p) != p {
		return fmt.Errorf("%w: %q", errUnsafePath, p)
	}

	for _, segment := range strings.Split(p, "/") {
		if segment == ".." {
			return fmt.Errorf("%w: %q", errUnsafePath, p)
		}
	}

	return nil
}

// EncodeChecksum renders a digest for YAML.
func EncodeChecksum(sum []byte) string {
	return base64.StdEncoding.EncodeToString(sum)
}

// DecodeChecksum parses a digest produced by EncodeChecksum.
func DecodeChecksum(s string) ([]byte, error) {
	sum, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errBadChecksum, err)
	}

	if len(sum) != sourcetree.ChecksumFunction.Size() {
		return nil, fmt.Errorf("%w: %d bytes", errBadChecksum, len(sum))
	}

	return sum, nil
}

// Encode writes d as YAML.
func Encode(w io.Writer, d *Descriptor) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode descriptor: %w", err)
	}

	return enc.Close()
}

// Decode reads and validates a descriptor.
func Decode(r io.Reader) (*Descriptor, error) {
	var d Descriptor

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("decode descriptor: %w", err)
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}

	return &d, nil
}

// LoadDir decodes the descriptor of the distribution directory dir.
func LoadDir(dir string) (*Descriptor, error) {
	f, err := os.Open(filepath.Join(dir, DescriptorFilename))
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = f.Close()
	}()

	return Decode(f)
}
