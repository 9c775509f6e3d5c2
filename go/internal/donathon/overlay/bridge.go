package overlay

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/donathon/go/internal/donathon/message"
	"github.com/mcdev12/donathon/go/internal/donathon/metrics"
	"github.com/mcdev12/donathon/go/internal/donathon/timer"
	"github.com/rs/zerolog/log"
)

const (
	// TickInterval drives the live countdown while the timer is RUNNING or PAUSED
	TickInterval = time.Second
	// DefaultRenderDebounce collapses bursts of store updates into one paint
	DefaultRenderDebounce = 100 * time.Millisecond
	DefaultPointsLabel    = "points"
)

// Notifier accepts rendered notification payloads for sequential display
type Notifier interface {
	Enqueue(payload string)
	Len() int
}

// Options configures a Bridge
type Options struct {
	PointsLabel    string
	RenderDebounce time.Duration
	Templates      message.Templates
}

// DefaultOptions returns the bridge defaults with the built-in templates
func DefaultOptions() Options {
	return Options{
		PointsLabel:    DefaultPointsLabel,
		RenderDebounce: DefaultRenderDebounce,
		Templates:      message.DefaultTemplates(),
	}
}

// Event is a domain event pushed by the host
type Event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Platform returns the platform the event originated from, if any
func (e Event) Platform() string {
	p, _ := e.Data["platform"].(string)
	return p
}

// Bridge receives the host's signals and drives the reconciler, the
// notification sequencer and the renderer. It is the only owner of the
// overlay state; every mutation and paint happens under its mutex.
type Bridge struct {
	clock       clockwork.Clock
	renderer    Renderer
	notifier    Notifier
	metrics     metrics.Collector
	templates   message.Templates
	pointsLabel string
	debounce    time.Duration

	mu       sync.Mutex
	store    store
	tickStop chan struct{}
	pending  clockwork.Timer
	closed   bool
}

// NewBridge creates a bridge in the initial STOPPED state with no active tick
func NewBridge(renderer Renderer, notifier Notifier, clock clockwork.Clock, m metrics.Collector, opts Options) *Bridge {
	if m == nil {
		m = metrics.NoOpCollector{}
	}
	if opts.Templates == nil {
		opts.Templates = message.DefaultTemplates()
	}
	if opts.PointsLabel == "" {
		opts.PointsLabel = DefaultPointsLabel
	}

	return &Bridge{
		clock:       clock,
		renderer:    renderer,
		notifier:    notifier,
		metrics:     m,
		templates:   opts.Templates,
		pointsLabel: opts.PointsLabel,
		debounce:    opts.RenderDebounce,
		store: store{
			timer:   timer.NewState(),
			display: DefaultDisplayConfig(),
		},
	}
}

// HandleSnapshot loads a full userstore delivered on (re)connection. The
// timer state is replaced wholesale, so missing or invalid timer keys fall
// back to their zero value. Display keys that are missing or invalid keep
// their previous value. Unknown keys are ignored.
func (b *Bridge) HandleSnapshot(userstore map[string]string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.store.timer.Reset()

	loaded, rejected := 0, 0
	for key, raw := range userstore {
		if !IsKnownKey(key) {
			continue
		}
		if err := b.store.apply(key, raw); err != nil {
			rejected++
			b.metrics.RecordStoreUpdate("snapshot", false)
			log.Debug().Err(err).Str("key", key).Msg("discarding snapshot value")
			continue
		}
		loaded++
		b.metrics.RecordStoreUpdate("snapshot", true)
	}

	log.Info().
		Int("loaded", loaded).
		Int("rejected", rejected).
		Str("status", string(b.store.timer.Status)).
		Msg("userstore snapshot applied")

	if b.store.timer.Status.Active() {
		b.startTickerLocked()
	} else {
		b.stopTickerLocked()
	}
	b.requestPaintLocked()
}

// HandleDelta applies a single key/value update. Invalid values are discarded
// and the previous value is kept; the returned error is informational only.
func (b *Bridge) HandleDelta(key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.store.apply(key, value); err != nil {
		if errors.Is(err, ErrUnknownKey) {
			return err
		}
		b.metrics.RecordStoreUpdate("delta", false)
		log.Debug().Err(err).Str("key", key).Msg("discarding userstore update")
		return err
	}
	b.metrics.RecordStoreUpdate("delta", true)

	if key == StatusKey {
		if b.store.timer.Status == timer.StatusStopped {
			b.store.timer.Reset()
			b.stopTickerLocked()
		} else {
			b.startTickerLocked()
		}
		log.Info().Str("status", string(b.store.timer.Status)).Msg("timer status changed")
	}

	b.requestPaintLocked()
	return nil
}

// HandleEvent formats a domain event with the matching template and queues it
// for display. Events that are not celebrations are ignored.
func (b *Bridge) HandleEvent(event Event) error {
	kind, err := message.ParseKind(event.Type)
	if err != nil {
		log.Debug().Str("type", event.Type).Msg("ignoring event")
		return err
	}

	payload, err := b.templates.Format(kind, event.Platform(), event.Data)
	if err != nil {
		b.metrics.RecordEventReceived(string(kind), false)
		log.Warn().Err(err).Str("kind", string(kind)).Msg("no template for event")
		return err
	}

	b.notifier.Enqueue(payload)
	b.metrics.RecordEventReceived(string(kind), true)

	log.Debug().
		Str("kind", string(kind)).
		Str("platform", event.Platform()).
		Int("queued", b.notifier.Len()).
		Msg("notification queued")
	return nil
}

// Refresh reconciles against the current time and paints immediately
func (b *Bridge) Refresh() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.paintLocked()
}

// State returns a copy of the stored timer state
func (b *Bridge) State() timer.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.store.timer
}

// Display returns the current display configuration
func (b *Bridge) Display() DisplayConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.store.display
}

// Ticking reports whether the periodic countdown tick is active
func (b *Bridge) Ticking() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tickStop != nil
}

// Close cancels the tick and any pending paint
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.stopTickerLocked()
	if b.pending != nil {
		b.pending.Stop()
		b.pending = nil
	}
}

func (b *Bridge) pointsText() string {
	return fmt.Sprintf("%d %s", b.store.timer.Points, b.pointsLabel)
}

// paintLocked pushes the reconciled state to the renderer. Renderer failures
// are logged and never propagated.
func (b *Bridge) paintLocked() {
	res := timer.Reconcile(b.store.timer, b.clock.Now())
	success := true

	if err := b.renderer.SetStatusIcon(res.Status); err != nil {
		success = false
		log.Warn().Err(err).Msg("failed to render status icon")
	}
	if err := b.renderer.SetTimerText(timer.FormatClock(res.Remaining)); err != nil {
		success = false
		log.Warn().Err(err).Msg("failed to render timer")
	}
	if err := b.renderer.SetPointsText(b.pointsText()); err != nil {
		success = false
		log.Warn().Err(err).Msg("failed to render points")
	}
	if dr, ok := b.renderer.(DisplayRenderer); ok {
		if err := dr.SetDisplayConfig(b.store.display); err != nil {
			success = false
			log.Warn().Err(err).Msg("failed to render display config")
		}
	}

	b.metrics.RecordPaint(success)
}

// requestPaintLocked schedules a trailing-edge debounced paint. With no
// debounce configured it paints synchronously.
func (b *Bridge) requestPaintLocked() {
	if b.debounce <= 0 {
		b.paintLocked()
		return
	}
	if b.pending != nil {
		b.pending.Reset(b.debounce)
		return
	}
	b.pending = b.clock.AfterFunc(b.debounce, b.flushPaint)
}

func (b *Bridge) flushPaint() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = nil
	if b.closed {
		return
	}
	b.paintLocked()
}

func (b *Bridge) startTickerLocked() {
	if b.tickStop != nil || b.closed {
		return
	}
	stop := make(chan struct{})
	b.tickStop = stop

	go b.tick(b.clock.NewTicker(TickInterval), stop)
	log.Debug().Dur("interval", TickInterval).Msg("countdown tick started")
}

// stopTickerLocked is idempotent
func (b *Bridge) stopTickerLocked() {
	if b.tickStop == nil {
		return
	}
	close(b.tickStop)
	b.tickStop = nil
	log.Debug().Msg("countdown tick stopped")
}

func (b *Bridge) tick(ticker clockwork.Ticker, stop <-chan struct{}) {
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			b.mu.Lock()
			if b.tickStop != stop {
				b.mu.Unlock()
				return
			}
			b.paintLocked()
			b.mu.Unlock()
		}
	}
}
