package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/mcdev12/donathon/go/internal/donathon/overlay"
	"github.com/rs/zerolog/log"
)

// StateProvider returns the current overlay read model
type StateProvider interface {
	View() overlay.View
}

// StateHandler handles HTTP requests for overlay state
type StateHandler struct {
	stateProvider StateProvider
}

// NewStateHandler creates a new state handler
func NewStateHandler(provider StateProvider) *StateHandler {
	return &StateHandler{stateProvider: provider}
}

// HandleGetState handles GET /api/overlay/state
func (h *StateHandler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.stateProvider.View()); err != nil {
		log.Error().Err(err).Msg("failed to encode overlay state response")
	}
}

// RegisterStateRoutes registers state-related HTTP routes
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/overlay/state", h.HandleGetState)
}
