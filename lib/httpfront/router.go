// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package httpfront

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bureau-foundation/switchboard/lib/gateway"
)

// Options configures NewRouter.
type Options struct {
	// Gateway is mounted at Prefix. Nil serves no WebSocket endpoint.
	Gateway *gateway.Gateway

	// Prefix is the gateway channel and mount prefix. Defaults to
	// gateway.DefaultChannel.
	Prefix string

	// Htdocs is served as static files under "/". Empty disables it.
	Htdocs string

	// Redirects maps exact request paths to 301 targets.
	Redirects map[string]string

	// Debug adds request logging.
	Debug bool

	Logger *slog.Logger
}

// NewRouter builds the HTTP handler for a switchboard server.
func NewRouter(options Options) http.Handler {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if options.Debug {
		r.Use(RequestLogger(logger))
	}
	r.Use(middleware.Recoverer)
	if len(options.Redirects) > 0 {
		r.Use(Redirect301(options.Redirects))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]any{"status": "ok"}
		if options.Gateway != nil {
			status["connections"] = options.Gateway.Connections("")
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(status)
	})

	if options.Gateway != nil {
		options.Gateway.InstallHandlers(r, gateway.HandlerOptions{Prefix: options.Prefix})
	}

	if options.Htdocs != "" {
		r.Handle("/*", http.FileServer(http.Dir(options.Htdocs)))
	}
	return r
}

// Redirect301 answers requests whose path is a key of redirects with a
// permanent redirect to the mapped target. Other requests pass through.
func Redirect301(redirects map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if target, ok := redirects[r.URL.Path]; ok && target != "" {
				http.Redirect(w, r, target, http.StatusMovedPermanently)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger logs one line per request at info level, or warn for
// server errors.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(recorder, r)

			status := recorder.Status()
			if status == 0 {
				status = http.StatusOK
			}
			attributes := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", recorder.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"request_id", middleware.GetReqID(r.Context()),
			}
			if status >= http.StatusInternalServerError {
				logger.Warn("http request", attributes...)
				return
			}
			logger.Info("http request", attributes...)
		})
	}
}
