// Domus - Real Estate Marketplace Platform
// Copyright 2026 Nyk B. (nybras)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nybras/domus

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"

	"github.com/nybras/domus/internal/logging"
)

const natsReadyTimeout = 10 * time.Second

// NATSServerService runs an embedded NATS server with JetStream enabled
// under supervision. Single-node deployments use it to avoid operating a
// separate broker; multi-node deployments point at an external cluster
// instead and never start this service.
type NATSServerService struct {
	opts   *natsserver.Options
	server *natsserver.Server
}

// NewNATSServerService prepares an embedded server listening on a random
// local port, storing JetStream state under storeDir.
func NewNATSServerService(storeDir string) *NATSServerService {
	return &NATSServerService{
		opts: &natsserver.Options{
			Host:      "127.0.0.1",
			Port:      -1, // random available port
			JetStream: true,
			StoreDir:  storeDir,
			NoSigs:    true,
			NoLog:     true,
		},
	}
}

// ClientURL returns the connection URL once the server is running.
func (s *NATSServerService) ClientURL() string {
	if s.server == nil {
		return ""
	}
	return s.server.ClientURL()
}

// WaitReady blocks until the server accepts connections or the timeout
// elapses. Callers connect only after this returns nil.
func (s *NATSServerService) WaitReady() error {
	deadline := time.Now().Add(natsReadyTimeout)
	for time.Now().Before(deadline) {
		if s.server != nil && s.server.ReadyForConnections(100*time.Millisecond) {
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return errors.New("embedded nats server not ready within timeout")
}

// Serve implements suture.Service.
func (s *NATSServerService) Serve(ctx context.Context) error {
	server, err := natsserver.NewServer(s.opts)
	if err != nil {
		return fmt.Errorf("create embedded nats server: %w", err)
	}
	s.server = server

	go server.Start()
	if !server.ReadyForConnections(natsReadyTimeout) {
		server.Shutdown()
		return errors.New("embedded nats server failed to start")
	}

	logging.Info().Str("url", server.ClientURL()).Msg("embedded nats server started")

	<-ctx.Done()
	server.Shutdown()
	server.WaitForShutdown()
	return ctx.Err()
}

func (s *NATSServerService) String() string { return "nats-server" }
