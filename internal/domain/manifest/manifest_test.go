package manifest

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestDefault_IsValid verifies the built-in RCAS record passes validation.
func TestDefault_IsValid(t *testing.T) {
	t.Parallel()

	m := Default()
	require.NoError(t, m.Validate())
	require.Equal(t, "RCAS", m.Name)
	require.Equal(t, []string{"Linux"}, m.Platforms)
	require.Len(t, m.PackageData["RCAS"], 10)
	require.Equal(t, []string{"2.7"}, m.Runtimes())
}

// TestDefault_SingleConsoleScript checks that the RCAS alias resolves to exactly one callable
// living in the declared package.
func TestDefault_SingleConsoleScript(t *testing.T) {
	t.Parallel()

	scripts, err := Default().ConsoleScripts()
	require.NoError(t, err)
	require.Len(t, scripts, 1)

	ep := scripts[0]
	require.Equal(t, "RCAS", ep.Alias)
	require.Equal(t, "RCAS.RCAS", ep.Module)
	require.Equal(t, "main", ep.Callable)
	require.Equal(t, "RCAS", ep.Package())
	require.Equal(t, "RCAS/RCAS.py", ep.ModulePath())
	require.Equal(t, "RCAS = RCAS.RCAS:main", ep.String())
}

// TestParseEntryPoint covers well-formed and malformed declarations.
func TestParseEntryPoint(t *testing.T) {
	t.Parallel()

	ep, err := ParseEntryPoint(ConsoleScriptsGroup, "  rcas-report=RCAS.report:run ")
	require.NoError(t, err)
	require.Equal(t, "rcas-report", ep.Alias)
	require.Equal(t, "RCAS.report", ep.Module)
	require.Equal(t, "run", ep.Callable)

	for _, spec := range []string{
		"RCAS RCAS.RCAS:main",
		"RCAS = RCAS.RCAS",
		" = RCAS.RCAS:main",
		"RCAS = RCAS..RCAS:main",
		"RCAS = RCAS.RCAS:",
		"bin/RCAS = RCAS.RCAS:main",
	} {
		_, err = ParseEntryPoint(ConsoleScriptsGroup, spec)
		require.ErrorIs(t, err, errMalformedEntryPoint, spec)
	}
}

// TestValidate_Rejects covers each validation rule.
func TestValidate_Rejects(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		mutate func(m *Manifest)
		err    error
	}{
		"no name":     {func(m *Manifest) { m.Name = " " }, errNameRequired},
		"no version":  {func(m *Manifest) { m.Version = "" }, errVersionRequired},
		"spaced ver":  {func(m *Manifest) { m.Version = "0.1 beta" }, errInvalidVersionValue},
		"no packages": {func(m *Manifest) { m.Packages = nil }, errPackagesRequired},
		"bad package": {func(m *Manifest) { m.Packages = []string{"RC-AS"} }, errInvalidPackageName},
		"duplicate": {func(m *Manifest) {
			m.EntryPoints[ConsoleScriptsGroup] = append(m.EntryPoints[ConsoleScriptsGroup], "RCAS = RCAS.cli:main")
		}, errDuplicateAlias},
		"foreign entry": {func(m *Manifest) { m.EntryPoints[ConsoleScriptsGroup] = []string{"RCAS = Other.RCAS:main"} }, errUndeclaredPackage},
		"foreign data":  {func(m *Manifest) { m.PackageData["Other"] = []string{"*.txt"} }, errUndeclaredPackage},
		"escaping glob": {func(m *Manifest) { m.PackageData["RCAS"] = []string{"../secrets/*"} }, errInvalidPattern},
		"absolute glob": {func(m *Manifest) { m.PackageData["RCAS"] = []string{"/etc/*"} }, errInvalidPattern},
		"broken glob":   {func(m *Manifest) { m.PackageData["RCAS"] = []string{"data/[gmt"} }, errInvalidPattern},
	}

	for name, tc := range cases {
		tc := tc

		t.Run(name, func(t *testing.T) {
			t.Parallel()

			m := Default()
			tc.mutate(m)
			require.ErrorIs(t, m.Validate(), tc.err)
		})
	}
}

// TestSupportsPlatform checks platform name matching against GOOS values.
func TestSupportsPlatform(t *testing.T) {
	t.Parallel()

	require.True(t, SupportsPlatform([]string{"Linux"}, "linux"))
	require.False(t, SupportsPlatform([]string{"Linux"}, "windows"))
	require.False(t, SupportsPlatform([]string{"Linux"}, "darwin"))
	require.True(t, SupportsPlatform([]string{"Unix"}, "darwin"))
	require.True(t, SupportsPlatform([]string{"any"}, "windows"))
	require.True(t, SupportsPlatform(nil, "plan9"))
}

// TestRuntimeSupported checks version prefix matching.
func TestRuntimeSupported(t *testing.T) {
	t.Parallel()

	require.True(t, RuntimeSupported([]string{"2.7"}, "2.7.18"))
	require.True(t, RuntimeSupported([]string{"2.7"}, "2.7"))
	require.False(t, RuntimeSupported([]string{"2.7"}, "3.11.4"))
	require.False(t, RuntimeSupported([]string{"2.7"}, "2.6.9"))
	require.False(t, RuntimeSupported([]string{"2.7"}, "2"))
	require.True(t, RuntimeSupported([]string{"3"}, "3.12.1"))
	require.True(t, RuntimeSupported(nil, "3.12.1"))
}

// TestRuntimes_IgnoresNonVersionClassifiers ensures only numeric Python classifiers are used.
func TestRuntimes_IgnoresNonVersionClassifiers(t *testing.T) {
	t.Parallel()

	m := &Manifest{Classifiers: []string{
		"Programming Language :: Python :: 2 :: Only",
		"Programming Language :: Python :: 2.7",
		"Programming Language :: Python :: Implementation :: CPython",
		"Environment :: Console",
	}}
	require.Equal(t, []string{"2.7"}, m.Runtimes())
}

// TestLoad_OverlaysDefaults writes a partial TOML manifest and checks only defined keys change.
func TestLoad_OverlaysDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rcas.toml")
	contents := `
version = "0.2.0"
platforms = ["Linux", "Unix"]

[package_data]
RCAS = ["data/custom.css"]
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	m, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "RCAS", m.Name)
	require.Equal(t, "0.2.0", m.Version)
	require.Equal(t, []string{"Linux", "Unix"}, m.Platforms)
	require.Equal(t, map[string][]string{"RCAS": {"data/custom.css"}}, m.PackageData)
	require.Equal(t, Default().EntryPoints, m.EntryPoints)
	require.NoError(t, m.Validate())
}

// TestLoad_RejectsUnknownKeys guards against misspelled keys being silently ignored.
func TestLoad_RejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rcas.toml")
	require.NoError(t, os.WriteFile(path, []byte("verison = \"0.2.0\"\n"), 0o600))

	_, err := Load(path)
	require.ErrorIs(t, err, errUnknownKeys)
}

// TestEncode_LoadsBack encodes the default manifest and reads it back unchanged.
func TestEncode_LoadsBack(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, Default()))

	path := filepath.Join(t.TempDir(), "rcas.toml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	m, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Default(), m)
}
