package installer

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/yzharold/RCAS/internal/domain/distribution"
)

const recordFileMode = 0o644

// loadRecord reads the install record of layout.
func loadRecord(layout Layout) (*distribution.Record, error) {
	f, err := os.Open(layout.RecordPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w under %s", ErrNotInstalled, layout.Prefix)
	} else if err != nil {
		return nil, fmt.Errorf("open install record: %w", err)
	}

	defer func() {
		_ = f.Close()
	}()

	return distribution.DecodeRecord(f)
}

// saveRecord writes the install record.
func saveRecord(layout Layout, record *distribution.Record) error {
	var buf bytes.Buffer
	if err := distribution.EncodeRecord(&buf, record); err != nil {
		return err
	}

	if err := os.MkdirAll(layout.LibDir, dirMode); err != nil {
		return err
	}

	return os.WriteFile(layout.RecordPath(), buf.Bytes(), recordFileMode)
}
