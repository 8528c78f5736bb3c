package gateway

import (
	"context"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/fieldboss/go/internal/feed"
	"github.com/mcdev12/fieldboss/go/internal/metrics"
	"github.com/mcdev12/fieldboss/go/internal/models"
	"github.com/mcdev12/fieldboss/go/internal/timers"
	"github.com/rs/zerolog/log"
)

// Service shares one timer table with remote viewers. It serves the store
// over Connect and streams change events over WebSocket.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	eventConsumer     *EventConsumer
	storeService      *timers.Service
}

// Config holds configuration for the gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
}

func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
	}
}

// NewService creates a gateway over store, broadcasting events from source
func NewService(config Config, store timers.Store, source feed.Feed, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	connectionManager := NewConnectionManager(config.ConnectionConfig, clock)

	return &Service{
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager),
		eventConsumer:     NewEventConsumer(connectionManager, source, clock),
		storeService:      timers.NewService(store),
	}
}

// Start runs the connection manager and event consumer until ctx is done
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting timer gateway service")

	go s.connectionManager.Start(ctx)
	return s.eventConsumer.Start(ctx)
}

// RegisterRoutes registers the store, WebSocket, health and metrics routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	path, handler := s.storeService.Handler()
	mux.Handle(path, handler)

	s.wsHandler.RegisterRoutes(mux)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
	mux.Handle("/metrics", metrics.Handler())

	log.Info().Msg("gateway routes registered")
}

// Broadcast pushes an event to viewers directly, bypassing the feed.
func (s *Service) Broadcast(ev models.ChangeEvent) {
	s.connectionManager.Broadcast(ev)
}

func (s *Service) Stats() ConnectionStats {
	return s.connectionManager.Stats()
}
