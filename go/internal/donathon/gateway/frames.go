package gateway

import (
	"encoding/json"
	"time"
)

// FrameType names a render command sent to overlay pages
type FrameType string

const (
	FrameStatusIcon       FrameType = "status_icon"
	FrameTimerText        FrameType = "timer_text"
	FramePointsText       FrameType = "points_text"
	FrameDisplayConfig    FrameType = "display_config"
	FrameShowNotification FrameType = "show_notification"
	FrameHideNotification FrameType = "hide_notification"
)

// replayOrder is the order cached frames are sent to a newly connected page
var replayOrder = []FrameType{
	FrameStatusIcon,
	FrameTimerText,
	FramePointsText,
	FrameDisplayConfig,
	FrameShowNotification,
}

// Frame is a single render command
type Frame struct {
	Type   FrameType       `json:"type"`
	Value  json.RawMessage `json:"value,omitempty"`
	SentAt time.Time       `json:"sent_at"`
}

func newFrame(t FrameType, value any, now time.Time) ([]byte, error) {
	f := Frame{Type: t, SentAt: now}
	if value != nil {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		f.Value = raw
	}
	return json.Marshal(f)
}
