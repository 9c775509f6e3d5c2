package sequencer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/donathon/go/internal/donathon/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	op      string
	payload string
	at      time.Time
}

type recordingRenderer struct {
	clock clockwork.Clock

	mu      sync.Mutex
	calls   []call
	showErr error
	hideErr error
}

func (r *recordingRenderer) ShowNotification(html string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{op: "show", payload: html, at: r.clock.Now()})
	return r.showErr
}

func (r *recordingRenderer) HideNotification() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{op: "hide", at: r.clock.Now()})
	return r.hideErr
}

func (r *recordingRenderer) snapshot() []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]call(nil), r.calls...)
}

type fakeClock interface {
	BlockUntilContext(ctx context.Context, n int) error
	Advance(d time.Duration)
}

// advanceCycles walks the fake clock through n full show/gap cycles,
// waiting for the drain loop to park on each timer first.
func advanceCycles(t *testing.T, ctx context.Context, clock fakeClock, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(DefaultShowDuration)
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(DefaultGapDuration)
	}
}

func startSequencer(t *testing.T, r Renderer, clock clockwork.Clock) (*Sequencer, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	seq := New(r, clock, metrics.NoOpCollector{}, DefaultConfig())
	go func() { _ = seq.Run(ctx) }()
	return seq, ctx
}

func TestSequencer_StrictSequentialOrder(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := &recordingRenderer{clock: clock}
	seq, ctx := startSequencer(t, rec, clock)

	start := clock.Now()
	payloads := []string{"first", "second", "third"}
	for _, p := range payloads {
		seq.Enqueue(p)
	}

	advanceCycles(t, ctx, clock, len(payloads))

	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 2*len(payloads) && seq.Len() == 0 && !seq.Active()
	}, time.Second, 5*time.Millisecond)

	calls := rec.snapshot()
	cycle := DefaultShowDuration + DefaultGapDuration
	for i, p := range payloads {
		show, hide := calls[2*i], calls[2*i+1]

		assert.Equal(t, "show", show.op)
		assert.Equal(t, p, show.payload)
		assert.Equal(t, "hide", hide.op)

		assert.Equal(t, start.Add(time.Duration(i)*cycle), show.at)
		assert.Equal(t, DefaultShowDuration, hide.at.Sub(show.at))
	}

	assert.GreaterOrEqual(t, clock.Now().Sub(start), time.Duration(len(payloads))*2501*time.Millisecond)
}

func TestSequencer_PicksUpPayloadsEnqueuedMidCycle(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := &recordingRenderer{clock: clock}
	seq, ctx := startSequencer(t, rec, clock)

	seq.Enqueue("a")
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.True(t, seq.Active())

	// arrives while "a" is on screen
	seq.Enqueue("b")
	assert.Equal(t, 1, seq.Len())

	clock.Advance(DefaultShowDuration)
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(DefaultGapDuration)
	advanceCycles(t, ctx, clock, 1)

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 4 }, time.Second, 5*time.Millisecond)
	calls := rec.snapshot()
	assert.Equal(t, "a", calls[0].payload)
	assert.Equal(t, "b", calls[2].payload)
}

func TestSequencer_WakesAfterIdle(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := &recordingRenderer{clock: clock}
	seq, ctx := startSequencer(t, rec, clock)

	seq.Enqueue("one")
	advanceCycles(t, ctx, clock, 1)
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, time.Second, 5*time.Millisecond)

	seq.Enqueue("two")
	advanceCycles(t, ctx, clock, 1)
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 4 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "two", rec.snapshot()[2].payload)
}

func TestSequencer_RendererFailureDoesNotStall(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := &recordingRenderer{
		clock:   clock,
		showErr: errors.New("display target missing"),
		hideErr: errors.New("display target missing"),
	}
	seq, ctx := startSequencer(t, rec, clock)

	seq.Enqueue("x")
	seq.Enqueue("y")
	advanceCycles(t, ctx, clock, 2)

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 4 && seq.Len() == 0 }, time.Second, 5*time.Millisecond)
	calls := rec.snapshot()
	assert.Equal(t, "y", calls[2].payload)
	assert.Equal(t, DefaultShowDuration+DefaultGapDuration, calls[2].at.Sub(calls[0].at))
}

func TestSequencer_SingleDrainLoop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := &recordingRenderer{clock: clock}
	seq, ctx := startSequencer(t, rec, clock)

	seq.Enqueue("busy")
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	err := seq.Run(ctx)
	assert.True(t, errors.Is(err, ErrAlreadyRunning))
}

func TestSequencer_RunStopsOnCancel(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := &recordingRenderer{clock: clock}
	seq := New(rec, clock, nil, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- seq.Run(ctx) }()

	seq.Enqueue("pending")
	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	// the visible notification is taken down on shutdown
	calls := rec.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, "hide", calls[1].op)
	assert.False(t, seq.Active())
}
