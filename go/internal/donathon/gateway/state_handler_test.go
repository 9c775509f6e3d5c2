package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/donathon/go/internal/donathon/overlay"
	"github.com/mcdev12/donathon/go/internal/donathon/timer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticView overlay.View

func (s staticView) View() overlay.View { return overlay.View(s) }

func TestStateHandler(t *testing.T) {
	view := overlay.View{
		Status:        timer.StatusRunning,
		DisplayStatus: timer.StatusStopped,
		TimerText:     "00:00:00",
		Points:        12,
		PointsText:    "12 points",
		TotalSeconds:  60,
		Display:       overlay.DefaultDisplayConfig(),
		QueueLength:   2,
	}

	mux := http.NewServeMux()
	NewStateHandler(staticView(view)).RegisterStateRoutes(mux)

	tests := []struct {
		name       string
		method     string
		wantStatus int
	}{
		{name: "get", method: http.MethodGet, wantStatus: http.StatusOK},
		{name: "post rejected", method: http.MethodPost, wantStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/overlay/state", nil)
			rec := httptest.NewRecorder()

			mux.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "RUNNING", body["status"])
			assert.Equal(t, "STOPPED", body["display_status"])
			assert.Equal(t, "12 points", body["points_text"])
			assert.Equal(t, float64(2), body["queue_length"])
			assert.Contains(t, body, "display")
		})
	}
}

func TestService_RoutesAndProvider(t *testing.T) {
	svc := NewService(DefaultConnectionConfig(), clockwork.NewRealClock(), staticView(overlay.View{PointsText: "1 points"}))
	svc.SetStateProvider(staticView(overlay.View{PointsText: "2 points"}))

	mux := http.NewServeMux()
	svc.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/overlay/state", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"points_text":"2 points"`)
	assert.NotNil(t, svc.Hub())
}
