// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package httpfront

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// ServerOptions configures Serve.
type ServerOptions struct {
	ReadHeaderTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown after ctx ends.
	// Defaults to 10s.
	ShutdownTimeout time.Duration

	Logger *slog.Logger
}

// Serve serves handler on listener until ctx is cancelled, then shuts
// down gracefully. Hijacked connections such as WebSockets are not
// waited for; close the gateway for those. Returns nil after a clean
// shutdown.
func Serve(ctx context.Context, listener net.Listener, handler http.Handler, options ServerOptions) error {
	if options.ShutdownTimeout <= 0 {
		options.ShutdownTimeout = 10 * time.Second
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: options.ReadHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Serve(listener) }()
	logger.Info("http server listening", "address", listener.Addr().String())

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), options.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	logger.Info("http server stopped")
	return nil
}
