// Domus - Real Estate Marketplace Platform
// Copyright 2026 Nyk B. (nybras)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nybras/domus

// Command server runs the Domus marketplace backend: the REST API, the
// real-time chat hub, and the recommendation engine, all supervised by a
// suture tree.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nybras/domus/internal/api"
	"github.com/nybras/domus/internal/auth"
	"github.com/nybras/domus/internal/authz"
	"github.com/nybras/domus/internal/chat"
	"github.com/nybras/domus/internal/config"
	"github.com/nybras/domus/internal/logging"
	"github.com/nybras/domus/internal/recommend"
	"github.com/nybras/domus/internal/storage"
	"github.com/nybras/domus/internal/supervisor"
	"github.com/nybras/domus/internal/supervisor/services"
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		logging.Fatal().Err(err).Msg("server exited with error")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("addr", cfg.Server.Addr()).
		Msg("starting domus")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Development mode may run without a configured secret; sessions then
	// survive only as long as the process.
	if cfg.Security.JWTSecret == "" {
		cfg.Security.JWTSecret = randomSecret()
		logging.Warn().Msg("no jwt secret configured, generated an ephemeral one")
	}

	store, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		return err
	}
	enforcer, err := authz.NewEnforcer()
	if err != nil {
		return err
	}

	engine := recommend.NewEngine(store, store, recommend.Config{
		DefaultLimit:  cfg.Recommend.DefaultLimit,
		MaxLimit:      cfg.Recommend.MaxLimit,
		MaxCandidates: cfg.Recommend.MaxCandidates,
		CacheTTL:      cfg.Recommend.CacheTTL,
		CacheSize:     cfg.Recommend.CacheSize,
	})

	hub := chat.NewHub(chat.Config{
		SendBuffer:     cfg.Chat.SendBuffer,
		EventRate:      cfg.Chat.EventRate,
		EventBurst:     cfg.Chat.EventBurst,
		MaxMessageSize: cfg.Chat.MaxMessageSize,
	})
	persister := chat.NewPersister(store)

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddMessagingService(services.NewRunnerService("chat-hub", hub.RunWithContext))

	var natsService *services.NATSServerService
	if cfg.NATS.Enabled && cfg.NATS.EmbeddedServer {
		natsService = services.NewNATSServerService(cfg.NATS.StoreDir)
		tree.AddMessagingService(natsService)
	}

	// The tree starts serving here; the bridge and HTTP server are added
	// once their upstream dependencies (the embedded broker) are ready.
	treeErr := tree.ServeBackground(ctx)

	var bridge *chat.Bridge
	if cfg.NATS.Enabled {
		url := cfg.NATS.URL
		if natsService != nil {
			if err := natsService.WaitReady(); err != nil {
				stop()
				<-treeErr
				return err
			}
			url = natsService.ClientURL()
		}

		publisher, subscriber, err := chat.NewNATSPubSub(url, logging.NewWatermillAdapter())
		if err != nil {
			stop()
			<-treeErr
			return err
		}
		bridge = chat.NewBridge(hub, publisher, subscriber, cfg.NATS.Topic)
		defer bridge.Close()
		tree.AddMessagingService(services.NewRunnerService("chat-bridge", bridge.Run))
	}

	server := api.NewServer(cfg, store, engine, hub, persister, jwtManager)
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.NewRouter(enforcer),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	tree.AddAPIService(services.NewHTTPService(httpServer, cfg.Server.ShutdownTimeout))

	logging.Info().Msg("domus started")
	err = <-treeErr
	logging.Info().Msg("domus stopped")
	return err
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		logging.Fatal().Err(err).Msg("failed to generate session secret")
	}
	return hex.EncodeToString(buf)
}
