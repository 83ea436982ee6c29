// Package server serves a built distribution over HTTP for remote installs.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/yzharold/RCAS/internal/api/http/dist"
	"github.com/yzharold/RCAS/internal/domain/distribution"
	"github.com/yzharold/RCAS/internal/logger"
)

// Options controls the distribution server.
type Options struct {
	// DistDir is the distribution directory written by the packager.
	DistDir string
	// ListenAddress is the TCP address to bind, e.g. "127.0.0.1:8080" or ":0".
	ListenAddress string
	// AccessLogLevel filters the per-request log lines.
	AccessLogLevel zapcore.Level
	// ShutdownTimeout bounds graceful shutdown; zero means defaultShutdownTimeout.
	ShutdownTimeout time.Duration
	// OnListen, if set, receives the bound address once the server accepts connections.
	OnListen func(addr string)
}

const (
	defaultShutdownTimeout = 10 * time.Second
	readHeaderTimeout      = 10 * time.Second
)

// ErrNoListenAddress indicates missing server configuration.
var ErrNoListenAddress = errors.New("no listen address configured")

// Run serves opts.DistDir and blocks until ctx is canceled or the server fails.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "rcas-server")

	if opts.ListenAddress == "" {
		return ErrNoListenAddress
	}

	desc, err := distribution.LoadDir(opts.DistDir)
	if err != nil {
		return fmt.Errorf("load distribution: %w", err)
	}

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", opts.ListenAddress, err)
	}

	srv := &http.Server{
		Handler:           dist.NewRouter(ctx, dist.New(opts.DistDir, desc), opts.AccessLogLevel),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	address := lis.Addr().String()
	logger.InfoKV(ctx, "Distribution server listening",
		"listen_address", address, "name", desc.Name, "version", desc.Version, "dist_dir", opts.DistDir)

	if opts.OnListen != nil {
		opts.OnListen(address)
	}

	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}

	// done is closed after Shutdown returns so Run blocks until the server fully stops.
	done := make(chan error, 1)

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		done <- srv.Shutdown(shutdownCtx)
	}()

	if err = srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve HTTP: %w", err)
	}

	if err = <-done; err != nil {
		return fmt.Errorf("shutdown HTTP server: %w", err)
	}

	logger.Info(ctx, "HTTP server stopped")

	return nil
}
