package dist

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/yzharold/RCAS/internal/domain/distribution"
	"github.com/yzharold/RCAS/internal/logger"
	"github.com/yzharold/RCAS/internal/service/packager"
	"github.com/yzharold/RCAS/internal/testutil"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func setupRouter(t *testing.T, accessLog *bytes.Buffer) (string, *gin.Engine) {
	t.Helper()

	dir := t.TempDir()
	out := filepath.Join(dir, "dist")

	_, err := packager.Run(context.Background(), &packager.Options{
		SourceDir: testutil.WriteRCASTree(t, filepath.Join(dir, "src")),
		OutputDir: out,
	})
	require.NoError(t, err)

	desc, err := distribution.LoadDir(out)
	require.NoError(t, err)

	ctx := logger.ToContext(context.Background(), logger.New(zapcore.DebugLevel, accessLog))

	return out, NewRouter(ctx, New(out, desc), zapcore.InfoLevel)
}

func get(r *gin.Engine, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func TestHealth(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	_, r := setupRouter(t, &buf)

	w := get(r, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, w.Header().Get(headerRequestID))

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, map[string]string{"status": "ok", "name": "RCAS", "version": "0.1.0"}, body)

	require.Contains(t, buf.String(), "Request served")
	require.Contains(t, buf.String(), "/healthz")
}

func TestFile_ServesDistribution(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	dir, r := setupRouter(t, &buf)

	for _, name := range []string{"rcas-dist.yaml", "RCAS-0.1.0.tar.gz"} {
		want, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)

		w := get(r, "/dist/"+name)
		require.Equal(t, http.StatusOK, w.Code, name)
		require.Equal(t, want, w.Body.Bytes(), name)
	}
}

func TestFile_RejectsOtherNames(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	dir, r := setupRouter(t, &buf)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "secret.txt"), []byte("x"), 0o600))

	for _, target := range []string{"/dist/secret.txt", "/dist/INSTALLED.yaml", "/other"} {
		w := get(r, target)
		require.Equal(t, http.StatusNotFound, w.Code, target)
	}
}

func TestAccessLog_Silenced(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	ctx := logger.ToContext(context.Background(), logger.New(zapcore.DebugLevel, &buf))

	r := NewRouter(ctx, New(t.TempDir(), &distribution.Descriptor{Name: "RCAS", Version: "0.1.0"}), zapcore.WarnLevel)

	w := get(r, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, buf.String())
}

func TestRequestID_Propagated(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	_, r := setupRouter(t, &buf)

	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	req.Header.Set(headerRequestID, "abc-123")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, "abc-123", w.Header().Get(headerRequestID))
}
