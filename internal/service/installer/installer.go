package installer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/yzharold/RCAS/internal/domain/distribution"
	"github.com/yzharold/RCAS/internal/domain/manifest"
	"github.com/yzharold/RCAS/internal/logger"
	"github.com/yzharold/RCAS/internal/repository/archive"
	"github.com/yzharold/RCAS/internal/repository/sourcetree"
)

// InstallOptions are inputs of Install.
type InstallOptions struct {
	// Source is a distribution directory or an http(s) URL of one.
	Source string
	// Prefix is the installation root.
	Prefix string
	// Interpreter runs the console scripts; resolved through PATH.
	Interpreter string
	// SkipRuntimeCheck installs without probing the interpreter version.
	SkipRuntimeCheck bool
	// Force replaces an installation whose commands are currently running.
	Force bool
	// Timeout bounds the interpreter version check and HTTP response headers.
	Timeout time.Duration
}

var (
	// ErrInstallRunning is returned while another install holds the prefix.
	ErrInstallRunning = errors.New("another installation is running")
	// ErrUnsupportedPlatform is returned when the host OS is not a declared platform.
	ErrUnsupportedPlatform = errors.New("platform not supported")
	// ErrIncompatibleRuntime is returned when the interpreter version is not declared.
	ErrIncompatibleRuntime = errors.New("incompatible interpreter version")
	// ErrAliasInUse is returned when a command being replaced is running.
	ErrAliasInUse = errors.New("command is running")
	// ErrNotInstalled is returned when the prefix holds no install record.
	ErrNotInstalled = errors.New("no installation found")

	errInterpreterRequired = errors.New("interpreter is required")
	errPrefixRequired      = errors.New("prefix is required")
	errSourceRequired      = errors.New("source is required")
	errArchiveChecksum     = errors.New("archive checksum mismatch")
	errUnexpectedFile      = errors.New("archive contains a file not listed in the descriptor")
	errMissingFile         = errors.New("archive is missing a file listed in the descriptor")
	errFileChecksum        = errors.New("file checksum mismatch")
)

const defaultTimeout = 10 * time.Second

// installer holds the state of one installation. Callers use Install.
type installer struct {
	opts        *InstallOptions
	layout      Layout
	src         source
	lock        *lock
	desc        *distribution.Descriptor
	interpreter string
	// tempDir holds the downloaded archive.
	tempDir string
	// payload maps payload paths to their verified contents.
	payload map[string][]byte
	// created lists files that did not exist before this run, for rollback.
	created []string
	// replaced keeps the previous contents of overwritten files, for rollback.
	replaced map[string]savedFile
	// previous is the record of the installation being replaced, if any.
	previous *distribution.Record
}

// Install installs the distribution at opts.Source under opts.Prefix.
func Install(ctx context.Context, opts *InstallOptions) (*distribution.Record, error) {
	ctx = logger.WithName(ctx, "rcas-installer")

	inst, err := newInstaller(ctx, opts)
	if err != nil {
		return nil, err
	}

	defer inst.cleanup(ctx)

	record, err := inst.Run(ctx)
	if err != nil {
		logger.ErrorKV(ctx, "Installation failed", "error", err)
		inst.rollback(ctx)

		return nil, err
	}

	logger.InfoKV(ctx, "Installation completed", "name", record.Name, "version", record.Version, "prefix", record.Prefix)

	return record, nil
}

func newInstaller(ctx context.Context, opts *InstallOptions) (*installer, error) {
	switch {
	case opts.Source == "":
		return nil, errSourceRequired
	case opts.Prefix == "":
		return nil, errPrefixRequired
	case opts.Interpreter == "":
		return nil, errInterpreterRequired
	}

	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	prefix, err := filepath.Abs(opts.Prefix)
	if err != nil {
		return nil, fmt.Errorf("resolve prefix: %w", err)
	}

	src, err := newSource(opts.Source, opts.Timeout)
	if err != nil {
		return nil, err
	}

	layout := NewLayout(prefix)

	l, err := acquireLock(ctx, layout)
	if err != nil {
		return nil, err
	}

	return &installer{
		opts:     opts,
		layout:   layout,
		src:      src,
		lock:     l,
		payload:  make(map[string][]byte),
		replaced: make(map[string]savedFile),
	}, nil
}

// Run performs the installation steps in order.
func (i *installer) Run(ctx context.Context) (*distribution.Record, error) {
	logger.InfoKV(ctx, "Fetching distribution descriptor", "source", i.src.String())

	if err := i.fetchDescriptor(ctx); err != nil {
		return nil, fmt.Errorf("fetch descriptor: %w", err)
	}

	ctx = logger.WithKV(ctx, "name", i.desc.Name, "version", i.desc.Version)

	if err := i.checkHost(ctx); err != nil {
		return nil, err
	}

	if err := i.loadPrevious(ctx); err != nil {
		return nil, err
	}

	logger.Info(ctx, "Downloading distribution archive")

	if err := i.downloadPayload(ctx); err != nil {
		return nil, fmt.Errorf("download archive: %w", err)
	}

	logger.InfoKV(ctx, "Installing package files", "lib_dir", i.layout.LibDir)

	record, err := i.applyPayload(ctx)
	if err != nil {
		return nil, fmt.Errorf("install files: %w", err)
	}

	logger.InfoKV(ctx, "Registering console scripts", "bin_dir", i.layout.BinDir)

	if err = i.writeLaunchers(ctx, record); err != nil {
		return nil, fmt.Errorf("register console scripts: %w", err)
	}

	if err = i.commitRecord(record); err != nil {
		return nil, fmt.Errorf("save install record: %w", err)
	}

	// Files of the replaced installation are only removed once the new record is in place.
	i.pruneStale(ctx, record)

	return record, nil
}

func (i *installer) fetchDescriptor(ctx context.Context) error {
	body, err := i.src.Open(ctx, distribution.DescriptorFilename)
	if err != nil {
		return err
	}

	defer func() {
		_ = body.Close()
	}()

	i.desc, err = distribution.Decode(body)

	return err
}

// checkHost verifies platform, interpreter and that no replaced command is running.
func (i *installer) checkHost(ctx context.Context) error {
	if !manifest.SupportsPlatform(i.desc.Platforms, runtime.GOOS) {
		return fmt.Errorf("%w: %s requires %s", ErrUnsupportedPlatform, runtime.GOOS, strings.Join(i.desc.Platforms, ", "))
	}

	interpreter, err := exec.LookPath(i.opts.Interpreter)
	switch {
	case err == nil:
		i.interpreter = interpreter
	case i.opts.SkipRuntimeCheck:
		logger.WarnKV(ctx, "Interpreter not found, launchers will resolve it at run time", "interpreter", i.opts.Interpreter)
		i.interpreter = i.opts.Interpreter
	default:
		return fmt.Errorf("%w: %w", ErrIncompatibleRuntime, err)
	}

	if !i.opts.SkipRuntimeCheck {
		version, err := detectRuntime(ctx, i.interpreter, i.opts.Timeout)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrIncompatibleRuntime, err)
		}

		if !manifest.RuntimeSupported(i.desc.Runtimes, version) {
			return fmt.Errorf("%w: %s is %s, %s requires %s",
				ErrIncompatibleRuntime, i.interpreter, version, i.desc.Name, strings.Join(i.desc.Runtimes, ", "))
		}

		logger.InfoKV(ctx, "Interpreter accepted", "interpreter", i.interpreter, "runtime", version)
	}

	launchers := make([]string, 0, len(i.desc.EntryPoints))
	for _, ep := range i.desc.EntryPoints {
		launchers = append(launchers, i.layout.LauncherPath(ep.Alias))
	}

	pids, err := launchersRunning(launchers)
	if err != nil {
		logger.WarnKV(ctx, "Unable to inspect running processes", "error", err)

		return nil
	}

	if len(pids) > 0 {
		if !i.opts.Force {
			return fmt.Errorf("%w: %s (pids %v)", ErrAliasInUse, strings.Join(launchers, ", "), pids)
		}

		logger.WarnKV(ctx, "Replacing commands that are running", "pids", pids)
	}

	return nil
}

func (i *installer) loadPrevious(ctx context.Context) error {
	previous, err := loadRecord(i.layout)
	switch {
	case errors.Is(err, ErrNotInstalled):
		return nil
	case err != nil:
		return err
	}

	logger.InfoKV(ctx, "Replacing existing installation", "installed_version", previous.Version)
	i.previous = previous

	return nil
}

// downloadPayload copies the archive to a temporary directory, checks its
// checksum and reads every entry into memory after verifying it.
func (i *installer) downloadPayload(ctx context.Context) error {
	tempDir, err := os.MkdirTemp("", "rcas-installer-")
	if err != nil {
		return err
	}

	i.tempDir = tempDir
	archivePath := filepath.Join(tempDir, i.desc.Archive.Name)

	if err = i.download(ctx, archivePath); err != nil {
		return err
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}

	defer func() {
		_ = f.Close()
	}()

	err = archive.Read(f, func(e archive.Entry, r io.Reader) error {
		file, ok := i.desc.Lookup(e.Path)
		if !ok {
			return fmt.Errorf("%w: %s", errUnexpectedFile, e.Path)
		}

		data, err := io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("read %s: %w", e.Path, err)
		}

		if err = checkContent(file, data); err != nil {
			return err
		}

		i.payload[e.Path] = data
		logger.DebugKV(ctx, "Verified payload file", "path", e.Path, "size", len(data))

		return nil
	})
	if err != nil {
		return err
	}

	for _, file := range i.desc.Files {
		if _, ok := i.payload[file.Path]; !ok {
			return fmt.Errorf("%w: %s", errMissingFile, file.Path)
		}
	}

	return nil
}

// download writes the archive to path and checks its checksum.
func (i *installer) download(ctx context.Context, path string) error {
	body, err := i.src.Open(ctx, i.desc.Archive.Name)
	if err != nil {
		return err
	}

	defer func() {
		_ = body.Close()
	}()

	out, err := os.Create(path)
	if err != nil {
		return err
	}

	hasher := sourcetree.ChecksumFunction.New()

	if _, err = io.Copy(io.MultiWriter(out, hasher), body); err != nil {
		_ = out.Close()

		return err
	}

	if err = out.Close(); err != nil {
		return err
	}

	if distribution.EncodeChecksum(hasher.Sum(nil)) != i.desc.Archive.Checksum {
		return fmt.Errorf("%w: %s", errArchiveChecksum, i.desc.Archive.Name)
	}

	return nil
}

func checkContent(file distribution.File, data []byte) error {
	sum, err := sourcetree.Checksum(bytes.NewReader(data))
	if err != nil {
		return err
	}

	if distribution.EncodeChecksum(sum) != file.Checksum {
		return fmt.Errorf("%w: %s", errFileChecksum, file.Path)
	}

	return nil
}

// applyPayload writes every payload file into the library directory.
func (i *installer) applyPayload(ctx context.Context) (*distribution.Record, error) {
	record := &distribution.Record{
		Name:         i.desc.Name,
		Version:      i.desc.Version,
		DescriptorID: i.desc.ID,
		Source:       i.src.String(),
		Prefix:       i.layout.Prefix,
		LibDir:       i.layout.LibDir,
		Interpreter:  i.interpreter,
		InstalledAt:  time.Now().UTC().Truncate(time.Second),
		Files:        make([]distribution.InstalledFile, 0, len(i.desc.Files)+len(i.desc.EntryPoints)),
	}

	for _, file := range i.desc.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		checksum, err := distribution.DecodeChecksum(file.Checksum)
		if err != nil {
			return nil, err
		}

		target := i.layout.PayloadPath(file.Path)
		mode := archive.Mode(file.Mode)

		if err = i.apply(target, i.payload[file.Path], mode, checksum); err != nil {
			return nil, err
		}

		record.Files = append(record.Files, distribution.InstalledFile{
			Path:     target,
			Mode:     mode,
			Checksum: file.Checksum,
		})
	}

	return record, nil
}

// writeLaunchers registers one executable per console script.
func (i *installer) writeLaunchers(ctx context.Context, record *distribution.Record) error {
	for _, ep := range i.desc.EntryPoints {
		script := renderLauncher(ep, i.desc.Name, i.desc.Version, i.layout.LibDir, i.interpreter)

		sum, err := sourcetree.Checksum(bytes.NewReader(script))
		if err != nil {
			return err
		}

		target := i.layout.LauncherPath(ep.Alias)

		if err = i.apply(target, script, distribution.ExecutableFileMode, sum); err != nil {
			return err
		}

		logger.InfoKV(ctx, "Registered command", "alias", ep.Alias, "entry_point", ep.String(), "path", target)

		record.Launchers = append(record.Launchers, target)
		record.Files = append(record.Files, distribution.InstalledFile{
			Path:     target,
			Mode:     distribution.ExecutableFileMode,
			Checksum: distribution.EncodeChecksum(sum),
		})
	}

	record.Sort()

	return nil
}

// pruneStale removes files of the replaced installation that the new one does not contain.
func (i *installer) pruneStale(ctx context.Context, record *distribution.Record) {
	if i.previous == nil {
		return
	}

	current := make(map[string]struct{}, len(record.Files))
	for _, f := range record.Files {
		current[f.Path] = struct{}{}
	}

	for _, f := range i.previous.Files {
		if _, ok := current[f.Path]; ok {
			continue
		}

		if !withinPrefix(i.layout.Prefix, f.Path) {
			logger.WarnKV(ctx, "Skipping recorded file outside the prefix", "path", f.Path)

			continue
		}

		if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.WarnKV(ctx, "Unable to remove stale file", "path", f.Path, "error", err)

			continue
		}

		logger.DebugKV(ctx, "Removed stale file", "path", f.Path)
		removeEmptyParents(filepath.Dir(f.Path), i.layout.Prefix)
	}
}

// apply installs one file, remembering what it replaces so rollback can undo it.
func (i *installer) apply(target string, data []byte, mode fs.FileMode, checksum []byte) error {
	if _, seen := i.replaced[target]; !seen {
		saved, err := readSavedFile(target)
		switch {
		case err == nil:
			i.replaced[target] = saved
		case !errors.Is(err, os.ErrNotExist):
			return fmt.Errorf("back up %s: %w", target, err)
		}
	}

	created, err := applyFile(target, data, mode, checksum)
	if created {
		i.created = append(i.created, target)
	}

	return err
}

// commitRecord writes the record, backing up the one it replaces.
func (i *installer) commitRecord(record *distribution.Record) error {
	path := i.layout.RecordPath()

	if _, seen := i.replaced[path]; !seen {
		saved, err := readSavedFile(path)
		switch {
		case err == nil:
			i.replaced[path] = saved
		case errors.Is(err, os.ErrNotExist):
			i.created = append(i.created, path)
		default:
			return fmt.Errorf("back up %s: %w", path, err)
		}
	}

	return saveRecord(i.layout, record)
}

// rollback removes files created by a failed run and restores the files it overwrote.
func (i *installer) rollback(ctx context.Context) {
	for _, path := range i.created {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.WarnKV(ctx, "Unable to roll back file", "path", path, "error", err)

			continue
		}

		removeEmptyParents(filepath.Dir(path), i.layout.Prefix)
	}

	for path, saved := range i.replaced {
		if err := restoreFile(path, saved); err != nil {
			logger.WarnKV(ctx, "Unable to restore file", "path", path, "error", err)

			continue
		}

		logger.DebugKV(ctx, "Restored file", "path", path)
	}
}

// cleanup removes temporary artifacts and releases the marker.
func (i *installer) cleanup(ctx context.Context) {
	if i.tempDir != "" {
		_ = os.RemoveAll(i.tempDir)
	}

	i.lock.release()

	logger.Debug(ctx, "Installer stopped")
}

func withinPrefix(prefix, path string) bool {
	rel, err := filepath.Rel(prefix, path)

	return err == nil && rel != "." && !strings.HasPrefix(rel, "..")
}
