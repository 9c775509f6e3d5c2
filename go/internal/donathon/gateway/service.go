package gateway

import (
	"context"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Service bundles the overlay hub with its HTTP handlers
type Service struct {
	hub          *Hub
	wsHandler    *WebSocketHandler
	stateHandler *StateHandler
}

// NewService creates the gateway. The state provider is usually the overlay bridge.
func NewService(config ConnectionConfig, clock clockwork.Clock, provider StateProvider) *Service {
	hub := NewHub(config, clock)
	return &Service{
		hub:          hub,
		wsHandler:    NewWebSocketHandler(hub),
		stateHandler: NewStateHandler(provider),
	}
}

// SetStateProvider replaces the provider behind /api/overlay/state. The bridge
// needs the hub as its renderer, so it is usually attached after construction.
func (s *Service) SetStateProvider(provider StateProvider) {
	s.stateHandler.stateProvider = provider
}

// Hub returns the renderer that paints connected overlay pages
func (s *Service) Hub() *Hub {
	return s.hub
}

// Start runs the hub until ctx is cancelled
func (s *Service) Start(ctx context.Context) {
	log.Info().Msg("starting overlay gateway")
	s.hub.Start(ctx)
	log.Info().Msg("overlay gateway stopped")
}

// RegisterRoutes registers the WebSocket and state routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterStateRoutes(mux)
	log.Info().Msg("overlay gateway routes registered")
}
