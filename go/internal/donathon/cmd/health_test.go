package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubNATS bool

func (s stubNATS) Connected() bool { return bool(s) }

func TestHealthChecker(t *testing.T) {
	tests := []struct {
		name       string
		nats       interface{ Connected() bool }
		wantStatus int
		wantErrors int
	}{
		{name: "headless", wantStatus: http.StatusOK},
		{name: "nats up", nats: stubNATS(true), wantStatus: http.StatusOK},
		{name: "nats down", nats: stubNATS(false), wantStatus: http.StatusServiceUnavailable, wantErrors: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &healthChecker{
				nats:        tt.nats,
				queueLength: func() int { return 3 },
				connections: func() int { return 1 },
			}

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)

			var status healthStatus
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
			assert.Equal(t, tt.wantStatus == http.StatusOK, status.Healthy)
			assert.Equal(t, 3, status.QueueLength)
			assert.Equal(t, 1, status.Connections)
			assert.Len(t, status.Errors, tt.wantErrors)
		})
	}
}
