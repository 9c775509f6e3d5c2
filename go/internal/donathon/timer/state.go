package timer

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// MaxSeconds is the largest budget a State can express as a time.Duration.
// Larger TotalSeconds values saturate to it.
const MaxSeconds = math.MaxInt64 / int64(time.Second)

// Status represents the stored lifecycle status of the donathon timer
type Status string

const (
	StatusRunning Status = "RUNNING"
	StatusPaused  Status = "PAUSED"
	StatusStopped Status = "STOPPED"
)

// ErrInvalidStatus is returned when a status string is not one of the known values
var ErrInvalidStatus = errors.New("invalid timer status")

// ParseStatus parses a stored status value. Only the exact upper-case names are accepted.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusRunning, StatusPaused, StatusStopped:
		return Status(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

// Active reports whether the countdown needs a live tick
func (s Status) Active() bool {
	return s == StatusRunning || s == StatusPaused
}

// State is the absolute timer state as pushed by the host's key-value store.
// Remaining time is never stored here; it is derived by Reconcile.
type State struct {
	Status       Status     `json:"status"`
	TotalSeconds int64      `json:"total_seconds"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	PausedAt     *time.Time `json:"paused_at,omitempty"`
	Points       int64      `json:"points"`
}

// NewState returns the zero state: STOPPED with every field cleared
func NewState() State {
	return State{Status: StatusStopped}
}

// Reset clears every timer field and moves the state to STOPPED
func (s *State) Reset() {
	*s = NewState()
}

// Budget returns the total countdown budget as a duration
func (s State) Budget() time.Duration {
	if s.TotalSeconds > MaxSeconds {
		return time.Duration(MaxSeconds) * time.Second
	}
	return time.Duration(s.TotalSeconds) * time.Second
}
