package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/yzharold/RCAS/internal/logger"
)

// source yields distribution files by name.
type source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	String() string
}

var errBadHTTPStatus = errors.New("unexpected http status")

// newSource picks an HTTP source for http(s) URLs and a directory source otherwise.
func newSource(location string, timeout time.Duration) (source, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		base, err := url.Parse(location)
		if err != nil {
			return nil, fmt.Errorf("parse source url: %w", err)
		}

		return &httpSource{
			base: base,
			client: &http.Client{
				Transport: &http.Transport{
					Proxy:                 http.ProxyFromEnvironment,
					ResponseHeaderTimeout: timeout,
				},
			},
		}, nil
	}

	dir, err := filepath.Abs(location)
	if err != nil {
		return nil, fmt.Errorf("resolve source dir: %w", err)
	}

	return dirSource(dir), nil
}

// dirSource reads a distribution directory produced by the packager.
type dirSource string

func (d dirSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(string(d), filepath.Base(name)))
	if err != nil {
		return nil, err
	}

	return f, nil
}

func (d dirSource) String() string {
	return string(d)
}

// httpSource downloads files from a distribution folder served over HTTP.
type httpSource struct {
	base   *url.URL
	client *http.Client
}

func (h *httpSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	fileURL := *h.base
	// path.Join normalizes duplicate slashes between the base path and the name.
	fileURL.Path = path.Join("/", h.base.Path, path.Base(name))
	finalURL := fileURL.String()

	logger.Debugf(ctx, "Requesting %s", finalURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, http.NoBody)
	if err != nil {
		return nil, err
	}

	response, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}

	if response.StatusCode != http.StatusOK {
		_ = response.Body.Close()

		return nil, fmt.Errorf("%s, %s: %w", finalURL, response.Status, errBadHTTPStatus)
	}

	return response.Body, nil
}

func (h *httpSource) String() string {
	return h.base.String()
}
