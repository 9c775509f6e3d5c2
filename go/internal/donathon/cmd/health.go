package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type healthStatus struct {
	Healthy        bool     `json:"healthy"`
	NATSConnected  *bool    `json:"nats_connected,omitempty"`
	RedisConnected *bool    `json:"redis_connected,omitempty"`
	QueueLength    int      `json:"queue_length"`
	Connections    int      `json:"overlay_connections"`
	Errors         []string `json:"errors,omitempty"`
}

type healthChecker struct {
	nats        interface{ Connected() bool }
	redis       *redis.Client
	queueLength func() int
	connections func() int
}

func (h *healthChecker) check(ctx context.Context) healthStatus {
	status := healthStatus{
		Healthy:     true,
		QueueLength: h.queueLength(),
		Connections: h.connections(),
	}

	if h.nats != nil {
		connected := h.nats.Connected()
		status.NATSConnected = &connected
		if !connected {
			status.Healthy = false
			status.Errors = append(status.Errors, "NATS disconnected")
		}
	}

	if h.redis != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		connected := true
		if err := h.redis.Ping(ctx).Err(); err != nil {
			connected = false
			status.Healthy = false
			status.Errors = append(status.Errors, "redis ping failed: "+err.Error())
		}
		status.RedisConnected = &connected
	}

	return status
}

func (h *healthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := h.check(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(status); err != nil {
		log.Error().Err(err).Msg("failed to write health check response")
	}
}
