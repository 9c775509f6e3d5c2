package overlay

import (
	"time"

	"github.com/mcdev12/donathon/go/internal/donathon/timer"
)

// View is a point-in-time read model of the overlay
type View struct {
	Status        timer.Status  `json:"status"`
	DisplayStatus timer.Status  `json:"display_status"`
	RemainingMs   int64         `json:"remaining_ms"`
	TimerText     string        `json:"timer_text"`
	Points        int64         `json:"points"`
	PointsText    string        `json:"points_text"`
	TotalSeconds  int64         `json:"total_seconds"`
	StartedAt     *time.Time    `json:"started_at,omitempty"`
	PausedAt      *time.Time    `json:"paused_at,omitempty"`
	Display       DisplayConfig `json:"display"`
	QueueLength   int           `json:"queue_length"`
	Ticking       bool          `json:"ticking"`
	GeneratedAt   time.Time     `json:"generated_at"`
}

// View reconciles the current state and returns it as a read model
func (b *Bridge) View() View {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	res := timer.Reconcile(b.store.timer, now)

	return View{
		Status:        b.store.timer.Status,
		DisplayStatus: res.Status,
		RemainingMs:   res.Remaining.Milliseconds(),
		TimerText:     timer.FormatClock(res.Remaining),
		Points:        b.store.timer.Points,
		PointsText:    b.pointsText(),
		TotalSeconds:  b.store.timer.TotalSeconds,
		StartedAt:     b.store.timer.StartedAt,
		PausedAt:      b.store.timer.PausedAt,
		Display:       b.store.display,
		QueueLength:   b.notifier.Len(),
		Ticking:       b.tickStop != nil,
		GeneratedAt:   now,
	}
}
