package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yzharold/RCAS/internal/domain/distribution"
	"github.com/yzharold/RCAS/internal/logger"
)

// Uninstall removes every recorded file of the installation under prefix,
// the record itself and directories left empty. It returns the removed record.
func Uninstall(ctx context.Context, prefix string) (*distribution.Record, error) {
	ctx = logger.WithName(ctx, "rcas-uninstaller")

	if prefix == "" {
		return nil, errPrefixRequired
	}

	prefix, err := filepath.Abs(prefix)
	if err != nil {
		return nil, fmt.Errorf("resolve prefix: %w", err)
	}

	layout := NewLayout(prefix)

	record, err := loadRecord(layout)
	if err != nil {
		return nil, err
	}

	l, err := acquireLock(ctx, layout)
	if err != nil {
		return nil, err
	}

	defer l.release()

	for _, f := range record.Files {
		if !withinPrefix(layout.Prefix, f.Path) {
			logger.WarnKV(ctx, "Skipping recorded file outside the prefix", "path", f.Path)

			continue
		}

		if err = os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove %s: %w", f.Path, err)
		}

		logger.DebugKV(ctx, "Removed file", "path", f.Path)
		removeEmptyParents(filepath.Dir(f.Path), layout.Prefix)
	}

	if err = os.Remove(layout.RecordPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove install record: %w", err)
	}

	removeEmptyParents(layout.LibDir, layout.Prefix)

	logger.InfoKV(ctx, "Uninstalled", "name", record.Name, "version", record.Version, "files", len(record.Files))

	return record, nil
}
