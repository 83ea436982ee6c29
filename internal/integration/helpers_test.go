package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/yzharold/RCAS/internal/service/packager"
	"github.com/yzharold/RCAS/internal/service/server"
	"github.com/yzharold/RCAS/internal/testutil"
)

// build packages the fixture tree with an optional TOML manifest and returns the dist directory.
func build(t *testing.T, manifestTOML string) string {
	t.Helper()

	dir := t.TempDir()
	options := &packager.Options{
		SourceDir: testutil.WriteRCASTree(t, filepath.Join(dir, "src")),
		OutputDir: filepath.Join(dir, "dist"),
	}

	if manifestTOML != "" {
		options.ManifestPath = filepath.Join(dir, "rcas.toml")
		require.NoError(t, os.WriteFile(options.ManifestPath, []byte(manifestTOML), 0o600))
	}

	_, err := packager.Run(context.Background(), options)
	require.NoError(t, err)

	return options.OutputDir
}

// startServer serves distDir on a free port and returns its base URL.
// The server is stopped when the test ends.
func startServer(t *testing.T, distDir string) string {
	t.Helper()

	// Create cancellable context for server lifecycle.
	ctx, cancel := context.WithCancel(context.Background())
	addrs := make(chan string, 1)
	done := make(chan error, 1)

	// Start server in background goroutine.
	go func() {
		done <- server.Run(ctx, &server.Options{
			DistDir:        distDir,
			ListenAddress:  "127.0.0.1:0",
			AccessLogLevel: zapcore.DebugLevel,
			OnListen:       func(addr string) { addrs <- addr },
		})
	}()

	select {
	case addr := <-addrs:
		t.Cleanup(func() {
			cancel()
			require.NoError(t, <-done)
		})

		return "http://" + addr
	case err := <-done:
		cancel()
		t.Fatalf("server exited: %v", err)
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("server did not start")
	}

	return ""
}

// fakePython writes an interpreter stand-in reporting version and echoing its arguments.
func fakePython(t *testing.T, version string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "python2.7")
	script := "#!/bin/sh\n" +
		"if [ \"$1\" = \"--version\" ]; then echo \"Python " + version + "\" >&2; exit 0; fi\n" +
		"shift 2\n" +
		"echo \"$*\"\n" +
		"exit 3\n"

	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	require.NoError(t, os.Chmod(path, 0o755))

	return path
}
