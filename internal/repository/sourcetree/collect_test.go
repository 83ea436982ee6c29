package sourcetree

import (
	"bytes"
	"context"
	"crypto/sha512"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yzharold/RCAS/internal/domain/manifest"
	"github.com/yzharold/RCAS/internal/testutil"
)

// TestCollect_DefaultManifest resolves the RCAS layout and checks kinds, ordering and exclusions.
func TestCollect_DefaultManifest(t *testing.T) {
	t.Parallel()

	root := testutil.WriteRCASTree(t, t.TempDir())

	files, err := Collect(context.Background(), root, manifest.Default())
	require.NoError(t, err)

	byPath := make(map[string]File, len(files))
	paths := make([]string, 0, len(files))

	for _, f := range files {
		byPath[f.Path] = f
		paths = append(paths, f.Path)
	}

	require.IsIncreasing(t, paths)
	require.Equal(t, KindModule, byPath["RCAS/RCAS.py"].Kind)
	require.Equal(t, KindModule, byPath["RCAS/__init__.py"].Kind)
	require.Equal(t, KindData, byPath["RCAS/libexec/anot.py"].Kind)
	require.Equal(t, KindData, byPath["RCAS/data/img/logo.png"].Kind)
	require.Equal(t, os.FileMode(0o755), byPath["RCAS/libexec/generate_report.sh"].Mode)

	require.NotContains(t, byPath, "RCAS/data/img/.DS_Store")
	require.NotContains(t, byPath, "docs/index.md")
	require.Len(t, files, 12)
}

// TestCollect_EmptyGlobFails removes the only match of a pattern and expects ErrNoMatch.
func TestCollect_EmptyGlobFails(t *testing.T) {
	t.Parallel()

	root := testutil.WriteRCASTree(t, t.TempDir())
	require.NoError(t, os.Remove(filepath.Join(root, "RCAS", "data", "meme", "jaspar.meme")))

	_, err := Collect(context.Background(), root, manifest.Default())
	require.ErrorIs(t, err, ErrNoMatch)
	require.Contains(t, err.Error(), "data/meme/*.meme")
}

// TestCollect_HiddenOnlyMatchFails ensures dotfiles do not satisfy a glob.
func TestCollect_HiddenOnlyMatchFails(t *testing.T) {
	t.Parallel()

	root := testutil.WriteRCASTree(t, t.TempDir())
	require.NoError(t, os.Remove(filepath.Join(root, "RCAS", "data", "img", "logo.png")))

	_, err := Collect(context.Background(), root, manifest.Default())
	require.ErrorIs(t, err, ErrNoMatch)
}

// TestCollect_MissingEntryModule checks that the entry-point module must live in the package directory.
func TestCollect_MissingEntryModule(t *testing.T) {
	t.Parallel()

	root := testutil.WriteRCASTree(t, t.TempDir())
	require.NoError(t, os.Remove(filepath.Join(root, "RCAS", "RCAS.py")))

	_, err := Collect(context.Background(), root, manifest.Default())
	require.ErrorIs(t, err, ErrEntryModuleNotFound)
}

// TestCollect_MissingPackage reports a declared package without a directory.
func TestCollect_MissingPackage(t *testing.T) {
	t.Parallel()

	_, err := Collect(context.Background(), t.TempDir(), manifest.Default())
	require.ErrorIs(t, err, ErrPackageNotFound)
}

// TestCollect_Canceled stops on a canceled context.
func TestCollect_Canceled(t *testing.T) {
	t.Parallel()

	root := testutil.WriteRCASTree(t, t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Collect(ctx, root, manifest.Default())
	require.ErrorIs(t, err, context.Canceled)
}

// TestChecksum matches the SHA-512 of known input.
func TestChecksum(t *testing.T) {
	t.Parallel()

	want := sha512.Sum512([]byte("RCAS"))

	got, err := Checksum(bytes.NewReader([]byte("RCAS")))
	require.NoError(t, err)
	require.Equal(t, want[:], got)

	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("RCAS"), 0o600))

	got, err = FileChecksum(path)
	require.NoError(t, err)
	require.Equal(t, want[:], got)

	_, err = FileChecksum(filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
