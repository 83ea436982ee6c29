package installer

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yzharold/RCAS/internal/service/packager"
	"github.com/yzharold/RCAS/internal/testutil"
)

// buildDist packages the fixture tree, optionally with a TOML manifest, and returns the dist directory.
func buildDist(t *testing.T, manifestTOML string) string {
	t.Helper()

	return buildDistWithFiles(t, manifestTOML, nil)
}

// buildDistWithFiles is buildDist with some fixture files replaced by files.
func buildDistWithFiles(t *testing.T, manifestTOML string, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	src := testutil.WriteRCASTree(t, filepath.Join(dir, "src"))
	out := filepath.Join(dir, "dist")

	for rel, contents := range files {
		require.NoError(t, os.WriteFile(filepath.Join(src, filepath.FromSlash(rel)), []byte(contents), 0o644))
	}

	opts := &packager.Options{SourceDir: src, OutputDir: out}

	if manifestTOML != "" {
		opts.ManifestPath = filepath.Join(dir, "rcas.toml")
		require.NoError(t, os.WriteFile(opts.ManifestPath, []byte(manifestTOML), 0o600))
	}

	_, err := packager.Run(context.Background(), opts)
	require.NoError(t, err)

	return out
}

// fakeInterpreter writes a shell script that reports the given Python version
// and otherwise echoes its environment and arguments.
func fakeInterpreter(t *testing.T, version string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "python")
	script := "#!/bin/sh\n" +
		"if [ \"$1\" = \"--version\" ]; then\n" +
		"  echo \"Python " + version + "\" >&2\n" +
		"  exit 0\n" +
		"fi\n" +
		"echo \"PYTHONPATH=$PYTHONPATH\"\n" +
		"echo \"ARGS=$*\"\n"

	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	require.NoError(t, os.Chmod(path, 0o755))

	return path
}

// sleepingInterpreter reports version 2.7.18 and otherwise blocks for a minute.
func sleepingInterpreter(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "python")
	script := "#!/bin/sh\n" +
		"if [ \"$1\" = \"--version\" ]; then echo \"Python 2.7.18\" >&2; exit 0; fi\n" +
		"sleep 60\n"

	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	require.NoError(t, os.Chmod(path, 0o755))

	return path
}

// startProcess starts path in its own process group, killed when the test ends.
func startProcess(t *testing.T, path string) *exec.Cmd {
	t.Helper()

	cmd := exec.Command(path)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	require.NoError(t, cmd.Start())

	t.Cleanup(func() {
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		_ = cmd.Wait()
	})

	return cmd
}

// fakeSetup starts a long-running process named like the installer binary.
func fakeSetup(t *testing.T) *exec.Cmd {
	t.Helper()

	path := filepath.Join(t.TempDir(), installerExecutable)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nwhile :; do sleep 1; done\n"), 0o755))
	require.NoError(t, os.Chmod(path, 0o755))

	return startProcess(t, path)
}

// deadPID returns the pid of a process that has already exited.
func deadPID(t *testing.T) int {
	t.Helper()

	cmd := exec.Command("true")
	require.NoError(t, cmd.Run())

	return cmd.Process.Pid
}

// writeMarker creates the install marker of layout holding pid, aged by age.
func writeMarker(t *testing.T, layout Layout, pid int, age time.Duration) {
	t.Helper()

	require.NoError(t, os.MkdirAll(layout.Prefix, 0o755))
	require.NoError(t, os.WriteFile(layout.markerPath(), []byte(strconv.Itoa(pid)), 0o600))

	modTime := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(layout.markerPath(), modTime, modTime))
}

func installOptions(t *testing.T, source, interpreter string) *InstallOptions {
	t.Helper()

	return &InstallOptions{
		Source:      source,
		Prefix:      filepath.Join(t.TempDir(), "prefix"),
		Interpreter: interpreter,
	}
}
