// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

package supervisor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/arguslabs/argus/internal/config"
	"github.com/arguslabs/argus/internal/logging"
)

// HTTPServer wraps net/http.Server as a suture.Service. Serve blocks
// until ctx is cancelled, then shuts the listener down gracefully within
// the configured timeout.
type HTTPServer struct {
	server          *http.Server
	shutdownTimeout time.Duration
}

// NewHTTPServer creates the supervised HTTP server around the given
// handler.
func NewHTTPServer(cfg *config.ServerConfig, handler http.Handler) *HTTPServer {
	return &HTTPServer{
		server: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       cfg.Timeout,
			WriteTimeout:      cfg.Timeout,
			IdleTimeout:       2 * cfg.Timeout,
		},
		shutdownTimeout: 10 * time.Second,
	}
}

// Serve satisfies suture.Service.
func (s *HTTPServer) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", s.server.Addr).Msg("http server listening")
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("http server shutdown incomplete")
		}
		logging.Info().Msg("http server stopped")
		return ctx.Err()
	}
}
