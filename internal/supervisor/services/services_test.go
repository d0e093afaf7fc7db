// Domus - Real Estate Marketplace Platform
// Copyright 2026 Nyk B. (nybras)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nybras/domus

package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

type fakeServer struct {
	listenErr   error
	listenCh    chan struct{} // closed to unblock ListenAndServe
	shutdownErr error
	shutdowns   int
}

func (f *fakeServer) ListenAndServe() error {
	if f.listenCh != nil {
		<-f.listenCh
	}
	if f.listenErr != nil {
		return f.listenErr
	}
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(context.Context) error {
	f.shutdowns++
	if f.listenCh != nil {
		close(f.listenCh)
	}
	return f.shutdownErr
}

func TestHTTPServiceShutsDownOnCancel(t *testing.T) {
	srv := &fakeServer{listenCh: make(chan struct{})}
	svc := NewHTTPService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	if srv.shutdowns != 1 {
		t.Errorf("shutdowns = %d, want 1", srv.shutdowns)
	}
}

func TestHTTPServicePropagatesListenError(t *testing.T) {
	bindErr := errors.New("listen tcp: address already in use")
	svc := NewHTTPService(&fakeServer{listenErr: bindErr}, time.Second)

	err := svc.Serve(context.Background())
	if !errors.Is(err, bindErr) {
		t.Errorf("Serve = %v, want wrapped %v", err, bindErr)
	}
}

func TestHTTPServicePropagatesShutdownError(t *testing.T) {
	shutdownErr := errors.New("connections still draining")
	srv := &fakeServer{listenCh: make(chan struct{}), shutdownErr: shutdownErr}
	svc := NewHTTPService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.Serve(ctx); !errors.Is(err, shutdownErr) {
		t.Errorf("Serve = %v, want wrapped %v", err, shutdownErr)
	}
}

func TestRunnerService(t *testing.T) {
	var gotCtx context.Context
	want := errors.New("loop exited")
	svc := NewRunnerService("chat-hub", func(ctx context.Context) error {
		gotCtx = ctx
		return want
	})

	if svc.String() != "chat-hub" {
		t.Errorf("String() = %q", svc.String())
	}
	ctx := context.Background()
	if err := svc.Serve(ctx); !errors.Is(err, want) {
		t.Errorf("Serve = %v, want %v", err, want)
	}
	if gotCtx != ctx {
		t.Error("run loop did not receive the supervisor context")
	}
}
