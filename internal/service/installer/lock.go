package installer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/yzharold/RCAS/internal/logger"
)

const (
	// markerFilename marks an installation in progress under the prefix.
	markerFilename = ".rcas-install.lock"

	// markerLifetime is the age after which a marker is considered abandoned.
	markerLifetime = 30 * time.Second

	// installerExecutable is the process name of this tool.
	installerExecutable = "rcas-setup"

	// commLength is how many bytes of a process name Linux keeps.
	commLength = 15

	procRoot = "/proc"
)

var errInvalidMarkerPID = errors.New("invalid pid in install marker")

// lock is the install marker held for the duration of an install or uninstall.
type lock struct {
	path string
}

// acquireLock creates the marker under the prefix, recovering abandoned markers.
func acquireLock(ctx context.Context, layout Layout) (*lock, error) {
	if err := os.MkdirAll(layout.Prefix, dirMode); err != nil {
		return nil, fmt.Errorf("create prefix: %w", err)
	}

	path := layout.markerPath()

	if isInstallRunning(ctx, path) {
		return nil, ErrInstallRunning
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if errors.Is(err, os.ErrExist) {
		return nil, ErrInstallRunning
	} else if err != nil {
		return nil, fmt.Errorf("create install marker: %w", err)
	}

	_, err = f.WriteString(strconv.Itoa(os.Getpid()))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(path)

		return nil, fmt.Errorf("write install marker: %w", err)
	}

	return &lock{path: path}, nil
}

// release removes the marker.
func (l *lock) release() {
	if l == nil {
		return
	}

	_ = os.Remove(l.path)
}

// isInstallRunning checks the marker and removes it when it looks abandoned.
// A marker naming a live rcas-setup process always blocks. A marker whose
// process is gone is abandoned at once; any other marker blocks until it
// is older than markerLifetime.
func isInstallRunning(ctx context.Context, path string) bool {
	logger.Debug(ctx, "Checking for an install marker")

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false
	}

	if err != nil {
		logger.Warnf(ctx, "Unable to read install marker: %v", err)

		return false
	}

	fresh := time.Since(info.ModTime()) <= markerLifetime

	switch owner, err := markerOwner(path); {
	case err != nil:
		// The owner may still be writing its pid.
		if fresh {
			return true
		}
	case owner == nil:
		logger.Debug(ctx, "Install marker owner is gone")
	case truncateComm(owner.Executable()) == truncateComm(installerExecutable):
		logger.DebugKV(ctx, "Install marker owner is running", "pid", owner.Pid())

		return true
	case fresh:
		return true
	}

	logger.InfoKV(ctx, "Removing abandoned install marker", "path", path)

	return os.Remove(path) != nil
}

// markerOwner returns the process whose pid is stored in the marker,
// or nil when that process no longer exists.
//
//nolint:ireturn // go-ps exposes processes as an interface.
func markerOwner(path string) (ps.Process, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("parse install marker: %w", err)
	}

	if pid <= 0 {
		return nil, fmt.Errorf("%w: %d", errInvalidMarkerPID, pid)
	}

	process, err := ps.FindProcess(pid)
	if err != nil {
		return nil, fmt.Errorf("find process %d: %w", pid, err)
	}

	return process, nil
}

// launchersRunning returns the pids of processes running one of the launchers.
// Processes are matched by name and, where procfs is available, by the
// launcher path on their command line.
func launchersRunning(launchers []string) ([]int, error) {
	names := make([]string, 0, len(launchers))
	paths := make(map[string]struct{}, len(launchers))

	for _, launcher := range launchers {
		names = append(names, filepath.Base(launcher))
		paths[filepath.Clean(launcher)] = struct{}{}
	}

	candidates, err := processRunning(names...)
	if err != nil || !procfsAvailable() {
		return candidates, err
	}

	var pids []int

	for _, pid := range candidates {
		if runsLauncher(pid, paths) {
			pids = append(pids, pid)
		}
	}

	return pids, nil
}

func procfsAvailable() bool {
	_, err := os.Stat(filepath.Join(procRoot, "self", "cmdline"))

	return err == nil
}

// runsLauncher reports whether an argument of the process resolves to one of paths.
// A shell running a script has the script path as an argument.
func runsLauncher(pid int, paths map[string]struct{}) bool {
	procDir := filepath.Join(procRoot, strconv.Itoa(pid))

	cmdline, err := os.ReadFile(filepath.Join(procDir, "cmdline"))
	if err != nil {
		return false
	}

	cwd, _ := os.Readlink(filepath.Join(procDir, "cwd"))

	for _, arg := range bytes.Split(cmdline, []byte{0}) {
		candidate := string(arg)
		if candidate == "" {
			continue
		}

		if !filepath.IsAbs(candidate) {
			if cwd == "" {
				continue
			}

			candidate = filepath.Join(cwd, candidate)
		}

		if _, ok := paths[filepath.Clean(candidate)]; ok {
			return true
		}
	}

	return false
}

// processRunning returns the pids of processes, other than this one, whose
// executable name matches one of names.
func processRunning(names ...string) ([]int, error) {
	processList, err := ps.Processes()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		wanted[truncateComm(name)] = struct{}{}
	}

	self := os.Getpid()

	var pids []int

	for _, process := range processList {
		if process.Pid() == self {
			continue
		}

		if _, ok := wanted[truncateComm(process.Executable())]; ok {
			pids = append(pids, process.Pid())
		}
	}

	return pids, nil
}

func truncateComm(name string) string {
	if len(name) > commLength {
		return name[:commLength]
	}

	return name
}
