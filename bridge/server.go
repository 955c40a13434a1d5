// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const (
	// serverShutdownTimeout bounds the graceful drain of in-flight
	// webhook deliveries when the listener stops.
	serverShutdownTimeout = 5 * time.Second

	// SNS deliveries are small and arrive on fresh connections; a
	// peer that takes longer than this is not SNS.
	serverReadTimeout  = 30 * time.Second
	serverWriteTimeout = 30 * time.Second
)

// webhookServer runs the HTTP listener the topic delivers to. The
// listener is bound inside Serve so that ":0" works; Ready closes
// once the port is known and Addr is valid.
type webhookServer struct {
	addr    string
	handler http.Handler
	logger  *slog.Logger

	ready    chan struct{}
	listener net.Listener
}

func newWebhookServer(addr string, handler http.Handler, logger *slog.Logger) *webhookServer {
	return &webhookServer{
		addr:    addr,
		handler: handler,
		logger:  logger,
		ready:   make(chan struct{}),
	}
}

// Serve binds the listener and serves until ctx is canceled, then
// drains in-flight requests. Ready closes as soon as the bind
// succeeds. Returns nil on a clean stop, the bind or serve error
// otherwise.
func (s *webhookServer) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("bridge: listening on %s: %w", s.addr, err)
	}
	s.listener = listener
	close(s.ready)
	s.logger.Info("webhook listener bound", "addr", listener.Addr().String())

	server := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			server.Close()
			return fmt.Errorf("bridge: stopping webhook listener: %w", err)
		}
		// Serve has returned ErrServerClosed by now; collect it so
		// the goroutine is gone before we report the stop.
		<-serveErr
		s.logger.Info("webhook listener stopped")
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("bridge: webhook listener failed: %w", err)
	}
}

// Ready is closed once the listener is bound and Addr is valid.
func (s *webhookServer) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound listener address. Only valid after Ready.
func (s *webhookServer) Addr() net.Addr {
	return s.listener.Addr()
}
