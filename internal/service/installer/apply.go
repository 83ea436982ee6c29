package installer

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/yzharold/RCAS/internal/repository/sourcetree"
)

// applyFile atomically replaces target with data after verifying data against checksum.
// It reports whether target was created by this call.
func applyFile(target string, data []byte, mode fs.FileMode, checksum []byte) (bool, error) {
	if err := os.MkdirAll(filepath.Dir(target), dirMode); err != nil {
		return false, fmt.Errorf("create directory for %s: %w", target, err)
	}

	created := false

	// go-update moves the existing target aside before renaming the new file in.
	if _, err := os.Stat(target); errors.Is(err, os.ErrNotExist) {
		f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY, mode)
		if err != nil {
			return false, fmt.Errorf("create %s: %w", target, err)
		}

		if err = f.Close(); err != nil {
			return true, fmt.Errorf("create %s: %w", target, err)
		}

		created = true
	} else if err != nil {
		return false, fmt.Errorf("stat %s: %w", target, err)
	}

	options := goupdate.Options{
		TargetPath: target,
		TargetMode: mode,
		Checksum:   checksum,
		Hash:       sourcetree.ChecksumFunction,
	}

	if err := goupdate.Apply(bytes.NewReader(data), options); err != nil {
		return created, fmt.Errorf("apply %s: %w", target, err)
	}

	// The umask may have narrowed the mode of the new file.
	if err := os.Chmod(target, mode); err != nil {
		return created, fmt.Errorf("chmod %s: %w", target, err)
	}

	dir, base := filepath.Split(target)
	for _, leftover := range []string{target + ".old", filepath.Join(dir, "."+base+".old")} {
		if _, err := os.Stat(leftover); err == nil {
			_ = os.Remove(leftover)
		}
	}

	return created, nil
}

// savedFile is the content of a file before an installation overwrote it.
type savedFile struct {
	data []byte
	mode fs.FileMode
}

func readSavedFile(path string) (savedFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return savedFile{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return savedFile{}, err
	}

	return savedFile{data: data, mode: info.Mode().Perm()}, nil
}

// restoreFile puts saved content back in place.
func restoreFile(path string, saved savedFile) error {
	sum, err := sourcetree.Checksum(bytes.NewReader(saved.data))
	if err != nil {
		return err
	}

	_, err = applyFile(path, saved.data, saved.mode, sum)

	return err
}

// removeEmptyParents removes dir and its parents while they are empty and below stop.
func removeEmptyParents(dir, stop string) {
	stop = filepath.Clean(stop)

	for dir = filepath.Clean(dir); dir != stop && len(dir) > len(stop); dir = filepath.Dir(dir) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}

		if err = os.Remove(dir); err != nil {
			return
		}
	}
}
