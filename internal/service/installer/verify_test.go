package installer

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerify_DetectsChanges(t *testing.T) {
	t.Parallel()

	opts := installOptions(t, buildDist(t, ""), fakeInterpreter(t, "2.7.18"))

	_, err := Install(context.Background(), opts)
	require.NoError(t, err)

	layout := NewLayout(opts.Prefix)
	modified := layout.PayloadPath("RCAS/data/header.html")
	missing := layout.PayloadPath("RCAS/data/img/logo.png")

	require.NoError(t, os.WriteFile(modified, []byte("<div>changed</div>\n"), 0o644))
	require.NoError(t, os.Remove(missing))

	report, err := Verify(context.Background(), opts.Prefix)
	require.ErrorIs(t, err, ErrInstallationCorrupt)
	require.NotNil(t, report)
	require.False(t, report.OK())
	require.Equal(t, 13, report.Checked)
	require.Equal(t, []string{modified}, report.Modified)
	require.Equal(t, []string{missing}, report.Missing)
}

func TestVerify_NotInstalled(t *testing.T) {
	t.Parallel()

	_, err := Verify(context.Background(), t.TempDir())
	require.ErrorIs(t, err, ErrNotInstalled)

	_, err = Verify(context.Background(), "")
	require.ErrorIs(t, err, errPrefixRequired)
}

func TestUninstall_RemovesEverything(t *testing.T) {
	t.Parallel()

	opts := installOptions(t, buildDist(t, ""), fakeInterpreter(t, "2.7.18"))

	_, err := Install(context.Background(), opts)
	require.NoError(t, err)

	layout := NewLayout(opts.Prefix)

	// A foreign file next to the launcher must survive.
	foreign := layout.LauncherPath("other-tool")
	require.NoError(t, os.WriteFile(foreign, []byte("#!/bin/sh\n"), 0o755))

	record, err := Uninstall(context.Background(), opts.Prefix)
	require.NoError(t, err)
	require.Equal(t, "0.1.0", record.Version)

	require.NoFileExists(t, layout.LauncherPath("RCAS"))
	require.NoFileExists(t, layout.RecordPath())
	require.NoDirExists(t, layout.LibDir)
	require.NoFileExists(t, layout.markerPath())
	require.FileExists(t, foreign)
	require.DirExists(t, layout.Prefix)

	_, err = Uninstall(context.Background(), opts.Prefix)
	require.ErrorIs(t, err, ErrNotInstalled)
}
