// internal/server/timeouts.go
//
// HTTP server helper with robust timeouts.
//
//   • ReadHeaderTimeout – abort slow-loris headers (10 s)
//   • WriteTimeout      – cap total response time; must outlast the
//                         upstream call a handler waits on
//   • IdleTimeout       – close idle keep-alives (60 s)
//
// Run serves until ctx is cancelled, then drains in-flight requests.

package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ShutdownGrace bounds the drain after ctx is cancelled.
const ShutdownGrace = 20 * time.Second

// New constructs an *http.Server.  upstreamTimeout extends WriteTimeout so
// a slow backend call is not cut off by the server first.
func New(addr string, handler http.Handler, upstreamTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      upstreamTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// Run serves srv until ctx is done, then shuts it down gracefully.
func Run(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		zap.S().Infow("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownGrace)
	defer cancel()
	zap.S().Infow("shutting down", "grace", ShutdownGrace)
	return srv.Shutdown(shutdownCtx)
}
