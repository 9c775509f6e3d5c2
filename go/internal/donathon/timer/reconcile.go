package timer

import (
	"fmt"
	"math"
	"time"
)

// Result is the display-ready outcome of a reconciliation
type Result struct {
	// Status is the effective display status. It may be STOPPED while the
	// stored status is still RUNNING once the budget has run out.
	Status Status `json:"display_status"`
	// Remaining is never negative.
	Remaining time.Duration `json:"remaining"`
}

// Reconcile derives the display status and remaining time from absolute
// timestamps. It is a pure function of its inputs: calling it on every tick,
// after every update, or after a reload reconstructs the same value without
// accumulating drift.
func Reconcile(state State, now time.Time) Result {
	if state.Status == StatusStopped {
		return Result{Status: StatusStopped}
	}

	reference := now
	if state.Status == StatusPaused && state.PausedAt != nil {
		reference = *state.PausedAt
	}

	var elapsed time.Duration
	if state.StartedAt != nil {
		elapsed = reference.Sub(*state.StartedAt)
	}

	remaining := state.Budget() - elapsed
	if elapsed < 0 && remaining < 0 {
		// start time in the future on a saturated budget
		remaining = time.Duration(math.MaxInt64)
	}

	// Expiry is detected lazily here rather than through a separate event.
	if state.Status == StatusRunning && remaining <= 0 {
		return Result{Status: StatusStopped}
	}

	if remaining < 0 {
		remaining = 0
	}
	return Result{Status: state.Status, Remaining: remaining}
}

// FormatClock renders a duration as HH:MM:SS, truncating partial seconds.
// Hours are not capped at 99.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	hours := ms / 3_600_000
	minutes := (ms % 3_600_000) / 60_000
	seconds := (ms % 60_000) / 1000
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
