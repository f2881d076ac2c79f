// Package server provides the public entry point for initializing the
// Laila chat service.
//
// This package exists in pkg/ (not internal/) so the serverless adapters
// can import it and mount the handler behind their own listeners:
//
//	srv, err := server.New(ctx)
//	http.ListenAndServe(":8080", srv.Handler)
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/lailabot/laila/internal/api"
	"github.com/lailabot/laila/internal/api/handlers"
	"github.com/lailabot/laila/internal/audit"
	"github.com/lailabot/laila/internal/chat"
	"github.com/lailabot/laila/internal/completion"
	"github.com/lailabot/laila/internal/config"
	"github.com/lailabot/laila/internal/embeddings"
	"github.com/lailabot/laila/internal/memory"
	"github.com/lailabot/laila/internal/offline"
	"github.com/lailabot/laila/internal/session"
	"github.com/lailabot/laila/internal/telemetry"
	"github.com/lailabot/laila/pkg/contracts"
	"github.com/lailabot/laila/pkg/models"

	"github.com/rs/zerolog/log"
)

// Server holds the initialized Laila service.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Chat is the orchestrator, exposed for embedding in other runtimes.
	Chat *chat.Service

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc should be called on graceful shutdown to flush
	// telemetry and release driver connections.
	ShutdownFunc func(context.Context) error
}

// New initializes the service from environment configuration.
func New(ctx context.Context) (*Server, error) {
	return NewWithConfig(ctx, config.Load())
}

// NewWithConfig initializes the service with an explicit configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	telemetryShutdown, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	client, err := completionClient(cfg.Provider)
	if err != nil {
		return nil, err
	}

	opts := []chat.Option{chat.WithDefaultMode(cfg.Provider.DefaultMode)}

	var memStore *memory.Store
	if cfg.MemoryEnabled() {
		embedder, err := embeddings.New(cfg.Provider)
		if err != nil {
			return nil, fmt.Errorf("init embeddings: %w", err)
		}
		memStore, err = memory.New(ctx, cfg.Memory)
		if err != nil {
			return nil, fmt.Errorf("init memory store: %w", err)
		}
		opts = append(opts, chat.WithEmbedder(embedder), chat.WithMemoryStore(memStore))
	} else {
		log.Info().Msg("memory driver not configured, running without retrieval")
	}

	sessions, err := session.New(cfg.Session)
	if err != nil {
		return nil, fmt.Errorf("init sessions: %w", err)
	}
	if sessions != nil {
		opts = append(opts, chat.WithSessions(sessions))
	}

	sink, err := audit.New(cfg.Audit)
	if err != nil {
		return nil, fmt.Errorf("init audit sink: %w", err)
	}
	opts = append(opts, chat.WithAudit(sink))

	svc := chat.NewService(client, opts...)
	router := api.NewRouter(cfg, handlers.New(svc))

	return &Server{
		Handler:      router,
		Chat:         svc,
		Port:         cfg.Port,
		ShutdownFunc: shutdownFunc(telemetryShutdown, memStore, sessions),
	}, nil
}

// completionClient builds the provider client, or the offline responder
// when the operator opted out of external calls. A missing API key is
// not fatal at startup: the driverless client fails each chat request
// with a 500 while health and diagnostics stay reachable.
func completionClient(cfg config.ProviderConfig) (*completion.Client, error) {
	if cfg.Offline {
		log.Info().Msg("🔌 Offline mode: using the canned responder")
		return completion.NewClient(models.CompletionOptions{Model: "laila-offline"}, offline.NewDriver()), nil
	}
	if cfg.APIKey == "" {
		log.Error().Msg("provider API key not configured, chat requests will fail")
		return completion.NewClient(models.CompletionOptions{Model: cfg.CompletionModel}), nil
	}
	client, err := completion.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init completion client: %w", err)
	}
	return client, nil
}

func shutdownFunc(telemetryShutdown func(context.Context) error, memStore *memory.Store, sessions contracts.SessionStore) func(context.Context) error {
	return func(ctx context.Context) error {
		if memStore != nil {
			if err := memStore.Close(); err != nil {
				log.Warn().Err(err).Msg("memory store close failed")
			}
		}
		if sessions != nil {
			if err := sessions.Close(); err != nil {
				log.Warn().Err(err).Msg("session store close failed")
			}
		}
		return telemetryShutdown(ctx)
	}
}
