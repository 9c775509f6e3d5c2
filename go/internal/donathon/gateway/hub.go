package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/donathon/go/internal/donathon/overlay"
	"github.com/mcdev12/donathon/go/internal/donathon/timer"
	"github.com/rs/zerolog/log"
)

// ErrBroadcastFull is returned by render calls when the broadcast buffer is saturated
var ErrBroadcastFull = errors.New("broadcast channel full")

// Hub manages overlay page connections and broadcasts render commands to them.
// It implements overlay.Renderer and overlay.DisplayRenderer.
type Hub struct {
	connections map[*Connection]bool
	mu          sync.RWMutex

	// last frame per type, replayed to pages that connect late
	last   map[FrameType][]byte
	lastMu sync.Mutex

	upgrader    websocket.Upgrader
	config      ConnectionConfig
	clock       clockwork.Clock
	broadcastCh chan []byte
}

// Connection is a single overlay page
type Connection struct {
	ID          string
	Conn        *websocket.Conn
	Send        chan []byte
	ConnectedAt time.Time
	hub         *Hub
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	CheckOrigin     func(r *http.Request) bool
}

// ConnectionStats summarizes the connected pages
type ConnectionStats struct {
	TotalConnections int       `json:"total_connections"`
	OldestConnection time.Time `json:"oldest_connection,omitempty"`
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  256,
		CheckOrigin: func(r *http.Request) bool {
			// overlay pages are loaded by streaming software from arbitrary origins
			return true
		},
	}
}

// NewHub creates a hub. Start must be running for render calls to reach pages.
func NewHub(config ConnectionConfig, clock clockwork.Clock) *Hub {
	if config.SendBufferSize <= 0 {
		config.SendBufferSize = 256
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Hub{
		connections: make(map[*Connection]bool),
		last:        make(map[FrameType][]byte),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		clock:       clock,
		broadcastCh: make(chan []byte, 1000),
	}
}

// Start processes broadcasts until ctx is cancelled, then closes every connection
func (h *Hub) Start(ctx context.Context) {
	log.Info().Msg("overlay hub started")

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			log.Info().Msg("overlay hub shutting down")
			return
		case frame := <-h.broadcastCh:
			h.handleBroadcast(frame)
		}
	}
}

// UpgradeConnection upgrades an HTTP request to an overlay page connection
func (h *Hub) UpgradeConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	c := &Connection{
		ID:          uuid.New().String(),
		Conn:        conn,
		Send:        make(chan []byte, h.config.SendBufferSize),
		ConnectedAt: h.clock.Now(),
		hub:         h,
	}

	h.register(c)

	go c.writePump()
	go c.readPump()

	log.Info().
		Str("connection_id", c.ID).
		Str("remote_addr", r.RemoteAddr).
		Msg("overlay page connected")
	return nil
}

// register adds the connection and queues the cached frames so the page
// starts from the current picture. lastMu is held until the connection is
// visible to handleBroadcast so no frame falls between replay and broadcast.
func (h *Hub) register(c *Connection) {
	h.lastMu.Lock()
	for _, t := range replayOrder {
		if frame, ok := h.last[t]; ok {
			c.Send <- frame
		}
	}

	h.mu.Lock()
	h.connections[c] = true
	total := len(h.connections)
	h.mu.Unlock()
	h.lastMu.Unlock()

	log.Debug().
		Str("connection_id", c.ID).
		Int("total_connections", total).
		Msg("connection registered")
}

func (h *Hub) unregister(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.connections[c]; !ok {
		return
	}
	delete(h.connections, c)
	close(c.Send)

	log.Info().Str("connection_id", c.ID).Msg("overlay page disconnected")
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.connections))
	for c := range h.connections {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		h.unregister(c)
	}
}

// Stats returns statistics about connected pages
func (h *Hub) Stats() ConnectionStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := ConnectionStats{TotalConnections: len(h.connections)}
	for c := range h.connections {
		if stats.OldestConnection.IsZero() || c.ConnectedAt.Before(stats.OldestConnection) {
			stats.OldestConnection = c.ConnectedAt
		}
	}
	return stats
}

func (h *Hub) SetStatusIcon(status timer.Status) error {
	return h.broadcast(FrameStatusIcon, status)
}

func (h *Hub) SetTimerText(text string) error {
	return h.broadcast(FrameTimerText, text)
}

func (h *Hub) SetPointsText(text string) error {
	return h.broadcast(FramePointsText, text)
}

func (h *Hub) SetDisplayConfig(cfg overlay.DisplayConfig) error {
	return h.broadcast(FrameDisplayConfig, cfg)
}

func (h *Hub) ShowNotification(html string) error {
	return h.broadcast(FrameShowNotification, html)
}

func (h *Hub) HideNotification() error {
	return h.broadcast(FrameHideNotification, nil)
}

// broadcast caches the frame for replay and queues it for every page
func (h *Hub) broadcast(t FrameType, value any) error {
	frame, err := newFrame(t, value, h.clock.Now())
	if err != nil {
		return fmt.Errorf("failed to marshal %s frame: %w", t, err)
	}

	h.lastMu.Lock()
	switch t {
	case FrameHideNotification:
		delete(h.last, FrameShowNotification)
	default:
		h.last[t] = frame
	}
	h.lastMu.Unlock()

	select {
	case h.broadcastCh <- frame:
		return nil
	default:
		log.Warn().Str("frame", string(t)).Msg("broadcast channel full, dropping frame")
		return ErrBroadcastFull
	}
}

// handleBroadcast sends under the read lock. unregister closes Send only
// while holding the write lock, so no send can hit a closed channel.
func (h *Hub) handleBroadcast(frame []byte) {
	var slow []*Connection

	h.mu.RLock()
	for c := range h.connections {
		select {
		case c.Send <- frame:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		log.Warn().
			Str("connection_id", c.ID).
			Msg("connection send buffer full, closing connection")
		h.unregister(c)
		c.Conn.Close()
	}
}

func (c *Connection) writePump() {
	cfg := c.hub.config
	ticker := c.hub.clock.NewTicker(cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.hub.unregister(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to write frame")
				return
			}

		case <-ticker.Chan():
			c.Conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump keeps the read deadline alive; pages never send commands
func (c *Connection) readPump() {
	cfg := c.hub.config
	defer func() {
		c.hub.unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(cfg.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("unexpected WebSocket close error")
			}
			return
		}

		log.Debug().
			Str("connection_id", c.ID).
			Int("bytes", len(message)).
			Msg("ignoring message from overlay page")
		c.Conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	}
}
