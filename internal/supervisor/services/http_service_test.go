// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

// stubServer blocks in ListenAndServe until Shutdown is called, like
// *http.Server, unless listenErr makes the listener fail straight away.
type stubServer struct {
	listenErr   error
	shutdownErr error
	closed      chan struct{}
	deadline    chan time.Duration
}

func newStubServer() *stubServer {
	return &stubServer{
		closed:   make(chan struct{}),
		deadline: make(chan time.Duration, 1),
	}
}

func (s *stubServer) ListenAndServe() error {
	if s.listenErr != nil {
		return s.listenErr
	}
	<-s.closed
	return http.ErrServerClosed
}

func (s *stubServer) Shutdown(ctx context.Context) error {
	if dl, ok := ctx.Deadline(); ok {
		s.deadline <- time.Until(dl)
	} else {
		s.deadline <- 0
	}
	close(s.closed)
	return s.shutdownErr
}

var _ suture.Service = (*HTTPServerService)(nil)

func TestHTTPServerService_DefaultShutdownTimeout(t *testing.T) {
	if got := NewHTTPServerService(newStubServer(), 0).shutdownTimeout; got != 10*time.Second {
		t.Errorf("shutdownTimeout = %v, want 10s", got)
	}
	if got := NewHTTPServerService(newStubServer(), 3*time.Second).shutdownTimeout; got != 3*time.Second {
		t.Errorf("shutdownTimeout = %v, want 3s", got)
	}
}

func TestHTTPServerService_CancelShutsDownGracefully(t *testing.T) {
	srv := newStubServer()
	svc := NewHTTPServerService(srv, 2*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()
	cancel()

	select {
	case err := <-done:
		// ErrServerClosed from the listener must not leak out.
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	left := <-srv.deadline
	if left <= 0 || left > 2*time.Second {
		t.Errorf("shutdown deadline %v away, want within (0, 2s]", left)
	}
}

func TestHTTPServerService_ListenerFailure(t *testing.T) {
	srv := newStubServer()
	srv.listenErr = errors.New("bind: address already in use")

	err := NewHTTPServerService(srv, time.Second).Serve(context.Background())
	if !errors.Is(err, srv.listenErr) {
		t.Errorf("Serve() = %v, want wrapped listener error", err)
	}
}

func TestHTTPServerService_ShutdownFailure(t *testing.T) {
	srv := newStubServer()
	srv.shutdownErr = errors.New("connections still open")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewHTTPServerService(srv, time.Second).Serve(ctx)
	if !errors.Is(err, srv.shutdownErr) {
		t.Errorf("Serve() = %v, want wrapped shutdown error", err)
	}
}
