package bus

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mcdev12/donathon/go/internal/donathon/message"
	"github.com/mcdev12/donathon/go/internal/donathon/metrics"
	"github.com/mcdev12/donathon/go/internal/donathon/overlay"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTarget struct {
	calls     []string
	snapshots []map[string]string
	deltaErr  error
	eventErr  error
}

func (r *recordingTarget) HandleSnapshot(userstore map[string]string) {
	r.calls = append(r.calls, "snapshot")
	r.snapshots = append(r.snapshots, userstore)
}

func (r *recordingTarget) HandleDelta(key, value string) error {
	r.calls = append(r.calls, fmt.Sprintf("delta %s=%s", key, value))
	return r.deltaErr
}

func (r *recordingTarget) HandleEvent(event overlay.Event) error {
	r.calls = append(r.calls, "event "+event.Type)
	return r.eventErr
}

func TestDispatcher_PreservesOrder(t *testing.T) {
	target := &recordingTarget{}
	d := NewDispatcher(target, nil)

	require.NoError(t, d.Dispatch("donathon.connected", []byte(`{"userstore":{"k":"v"}}`)))
	require.NoError(t, d.Dispatch("donathon.userstore", []byte(`{"key":"a","value":"1"}`)))
	require.NoError(t, d.Dispatch("donathon.event", []byte(`{"type":"donate","data":{}}`)))
	require.NoError(t, d.Dispatch("donathon.userstore", []byte(`{"key":"b","value":2}`)))

	assert.Equal(t, []string{"snapshot", "delta a=1", "event donate", "delta b=2"}, target.calls)
	assert.Equal(t, map[string]string{"k": "v"}, target.snapshots[0])
}

func TestDispatcher_TargetRejectionsAreNotBusErrors(t *testing.T) {
	tests := []struct {
		name     string
		deltaErr error
		eventErr error
		subject  string
		data     string
	}{
		{name: "unknown key", deltaErr: overlay.ErrUnknownKey, subject: "donathon.userstore", data: `{"key":"x","value":"1"}`},
		{name: "invalid value", deltaErr: overlay.ErrInvalidValue, subject: "donathon.userstore", data: `{"key":"x","value":"abc"}`},
		{name: "unknown kind", eventErr: message.ErrUnknownKind, subject: "donathon.event", data: `{"type":"message"}`},
		{name: "other event failure", eventErr: errors.New("boom"), subject: "donathon.event", data: `{"type":"donate"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := &recordingTarget{deltaErr: tt.deltaErr, eventErr: tt.eventErr}
			d := NewDispatcher(target, nil)

			assert.NoError(t, d.Dispatch(tt.subject, []byte(tt.data)))
			assert.Len(t, target.calls, 1)
		})
	}
}

func TestDispatcher_MalformedRecordsFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewPrometheusCollector(reg)
	target := &recordingTarget{}
	d := NewDispatcher(target, m)

	err := d.Dispatch("donathon.userstore", []byte(`not json`))
	assert.True(t, errors.Is(err, ErrMalformed))

	err = d.Dispatch("donathon.unknown", []byte(`{}`))
	assert.True(t, errors.Is(err, ErrUnknownSubject))

	require.NoError(t, d.Dispatch("donathon.userstore", []byte(`{"key":"a","value":"1"}`)))

	assert.Len(t, target.calls, 1)

	count, err := testutil.GatherAndCount(reg, "donathon_bus_messages_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

type fakeHash struct {
	store map[string]string
	err   error
	keys  []string
}

func (f *fakeHash) HGetAll(_ context.Context, key string) *redis.MapStringStringCmd {
	f.keys = append(f.keys, key)
	return redis.NewMapStringStringResult(f.store, f.err)
}

func TestRedisSnapshotSource(t *testing.T) {
	ctx := context.Background()

	t.Run("loads hash into target", func(t *testing.T) {
		hash := &fakeHash{store: map[string]string{"plugin-donathon-timer:points": "4"}}
		target := &recordingTarget{}
		src := NewRedisSnapshotSource(hash, "")

		require.NoError(t, src.Load(ctx, NewDispatcher(target, nil)))
		assert.Equal(t, []string{DefaultSnapshotKey}, hash.keys)
		require.Len(t, target.snapshots, 1)
		assert.Equal(t, "4", target.snapshots[0]["plugin-donathon-timer:points"])
	})

	t.Run("empty hash is not applied", func(t *testing.T) {
		target := &recordingTarget{}
		src := NewRedisSnapshotSource(&fakeHash{store: map[string]string{}}, "custom")

		require.NoError(t, src.Load(ctx, NewDispatcher(target, nil)))
		assert.Empty(t, target.calls)
	})

	t.Run("read error", func(t *testing.T) {
		target := &recordingTarget{}
		src := NewRedisSnapshotSource(&fakeHash{err: errors.New("connection refused")}, "custom")

		err := src.Load(ctx, NewDispatcher(target, nil))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "custom")
		assert.Empty(t, target.calls)
	})
}
