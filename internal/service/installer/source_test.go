package installer

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewSource(t *testing.T) {
	t.Parallel()

	src, err := newSource("https://mirror.example.org/rcas/0.1.0/", time.Second)
	require.NoError(t, err)
	require.IsType(t, &httpSource{}, src)

	src, err = newSource("dist", time.Second)
	require.NoError(t, err)
	require.IsType(t, dirSource(""), src)
	require.True(t, filepath.IsAbs(src.String()))
}

func TestDirSource_Open(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rcas-dist.yaml"), []byte("name: RCAS\n"), 0o644))

	src := dirSource(dir)

	// Names never escape the directory.
	body, err := src.Open(context.Background(), "../../rcas-dist.yaml")
	require.NoError(t, err)

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())
	require.Equal(t, "name: RCAS\n", string(data))

	_, err = src.Open(context.Background(), "missing.tar.gz")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestHTTPSource_Open(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/dist/rcas-dist.yaml" {
			http.NotFound(w, r)

			return
		}

		_, _ = w.Write([]byte("name: RCAS\n"))
	}))
	t.Cleanup(server.Close)

	src, err := newSource(server.URL+"/dist/", time.Second)
	require.NoError(t, err)

	body, err := src.Open(context.Background(), "rcas-dist.yaml")
	require.NoError(t, err)

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())
	require.Equal(t, "name: RCAS\n", string(data))

	_, err = src.Open(context.Background(), "RCAS-0.1.0.tar.gz")
	require.ErrorIs(t, err, errBadHTTPStatus)
}
