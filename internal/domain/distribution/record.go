package distribution

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// RecordFilename is the record's name inside the installation library directory.
const RecordFilename = "INSTALLED.yaml"

// Record lists everything an installation wrote, so it can be verified and removed.
type Record struct {
	Name         string          `yaml:"name"`
	Version      string          `yaml:"version"`
	DescriptorID string          `yaml:"descriptor_id"`
	Source       string          `yaml:"source"`
	Prefix       string          `yaml:"prefix"`
	LibDir       string          `yaml:"lib_dir"`
	Interpreter  string          `yaml:"interpreter"`
	InstalledAt  time.Time       `yaml:"installed_at"`
	Launchers    []string        `yaml:"launchers"`
	Files        []InstalledFile `yaml:"files"`
}

// InstalledFile is a file written by an installation.
type InstalledFile struct {
	// Path is absolute.
	Path     string      `yaml:"path"`
	Mode     fs.FileMode `yaml:"mode"`
	Checksum string      `yaml:"checksum"`
}

var errRecordIncomplete = errors.New("install record is incomplete")

// Sort orders files by path.
func (r *Record) Sort() {
	sort.Slice(r.Files, func(i, j int) bool {
		return r.Files[i].Path < r.Files[j].Path
	})
	sort.Strings(r.Launchers)
}

// EncodeRecord writes r as YAML.
func EncodeRecord(w io.Writer, r *Record) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	return enc.Close()
}

// DecodeRecord reads a record and checks its identifying fields.
func DecodeRecord(rd io.Reader) (*Record, error) {
	var r Record
	if err := yaml.NewDecoder(rd).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}

	if r.Name == "" || r.Version == "" || r.Prefix == "" || r.LibDir == "" {
		return nil, errRecordIncomplete
	}

	return &r, nil
}
