package sequencer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/donathon/go/internal/donathon/metrics"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultShowDuration is how long a notification stays visible
	DefaultShowDuration = 2251 * time.Millisecond
	// DefaultGapDuration is the pause between hiding one notification and showing the next
	DefaultGapDuration = 250 * time.Millisecond
)

// ErrAlreadyRunning is returned by Run when another drain loop is active
var ErrAlreadyRunning = errors.New("sequencer drain loop already running")

// Renderer is the part of the overlay renderer the sequencer drives
type Renderer interface {
	ShowNotification(html string) error
	HideNotification() error
}

// Config holds the notification timing
type Config struct {
	ShowDuration time.Duration
	GapDuration  time.Duration
}

// DefaultConfig returns the standard show/gap timing
func DefaultConfig() Config {
	return Config{
		ShowDuration: DefaultShowDuration,
		GapDuration:  DefaultGapDuration,
	}
}

// Sequencer displays queued notifications one at a time, in arrival order.
// Nothing is dropped, coalesced or reordered; a burst simply takes longer to
// get through.
type Sequencer struct {
	renderer Renderer
	clock    clockwork.Clock
	metrics  metrics.Collector
	config   Config

	mu      sync.Mutex
	queue   []string
	active  bool
	running bool

	wakeCh chan struct{}
}

// New creates a sequencer. Call Run to start the drain loop.
func New(renderer Renderer, clock clockwork.Clock, m metrics.Collector, config Config) *Sequencer {
	if m == nil {
		m = metrics.NoOpCollector{}
	}
	return &Sequencer{
		renderer: renderer,
		clock:    clock,
		metrics:  m,
		config:   config,
		wakeCh:   make(chan struct{}, 1),
	}
}

// Enqueue appends a rendered payload to the tail of the queue and wakes the
// drain loop if it is idle. It never blocks.
func (s *Sequencer) Enqueue(payload string) {
	s.mu.Lock()
	s.queue = append(s.queue, payload)
	depth := len(s.queue)
	s.mu.Unlock()

	s.metrics.RecordQueueDepth(depth)

	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

// Len returns the number of payloads waiting to be shown
func (s *Sequencer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Active reports whether a payload is currently on screen
func (s *Sequencer) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Run drains the queue until ctx is cancelled. Only one Run may be active at
// a time; a second call returns ErrAlreadyRunning immediately.
func (s *Sequencer) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	log.Info().
		Dur("show", s.config.ShowDuration).
		Dur("gap", s.config.GapDuration).
		Msg("notification sequencer started")

	for {
		if err := s.drain(ctx); err != nil {
			log.Info().Int("pending", s.Len()).Msg("notification sequencer shutting down")
			return nil
		}

		select {
		case <-ctx.Done():
			log.Info().Int("pending", s.Len()).Msg("notification sequencer shutting down")
			return nil
		case <-s.wakeCh:
		}
	}
}

// drain presents payloads until the queue is empty. The queue length is
// re-checked after every cycle so payloads enqueued mid-cycle are picked up.
func (s *Sequencer) drain(ctx context.Context) error {
	for {
		payload, ok := s.pop()
		if !ok {
			return nil
		}
		if err := s.present(ctx, payload); err != nil {
			return err
		}
	}
}

func (s *Sequencer) pop() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return "", false
	}
	payload := s.queue[0]
	s.queue[0] = ""
	s.queue = s.queue[1:]
	s.active = true

	s.metrics.RecordQueueDepth(len(s.queue))
	return payload, true
}

// present runs one show/hide cycle. Renderer failures are logged and the
// timing still advances so a missing display target never stalls the queue.
func (s *Sequencer) present(ctx context.Context, payload string) error {
	start := s.clock.Now()
	success := true

	if err := s.renderer.ShowNotification(payload); err != nil {
		success = false
		log.Warn().Err(err).Msg("failed to show notification")
	}

	if err := s.sleep(ctx, s.config.ShowDuration); err != nil {
		s.hide()
		return err
	}

	if !s.hide() {
		success = false
	}

	s.metrics.RecordNotificationShown(success, s.clock.Since(start))

	return s.sleep(ctx, s.config.GapDuration)
}

func (s *Sequencer) hide() bool {
	err := s.renderer.HideNotification()

	s.mu.Lock()
	s.active = false
	s.mu.Unlock()

	if err != nil {
		log.Warn().Err(err).Msg("failed to hide notification")
		return false
	}
	return true
}

func (s *Sequencer) sleep(ctx context.Context, d time.Duration) error {
	timer := s.clock.NewTimer(d)
	select {
	case <-timer.Chan():
		return nil
	case <-ctx.Done():
		stopAndDrainTimer(timer)
		return ctx.Err()
	}
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
