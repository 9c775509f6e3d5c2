package overlay

import (
	"errors"
	"testing"
	"time"

	"github.com/mcdev12/donathon/go/internal/donathon/timer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInt(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int64
		wantErr bool
	}{
		{name: "plain", raw: "42", want: 42},
		{name: "zero", raw: "0", want: 0},
		{name: "surrounding whitespace", raw: " 17 ", want: 17},
		{name: "negative clamps", raw: "-5", want: 0},
		{name: "empty", raw: "", wantErr: true},
		{name: "letters", raw: "abc", wantErr: true},
		{name: "decimal", raw: "1.5", wantErr: true},
		{name: "trailing garbage", raw: "12px", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInt(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidValue))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Run("epoch millis", func(t *testing.T) {
		got, err := ParseTimestamp("1700000000123")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, int64(1700000000123), got.UnixMilli())
	})

	for _, raw := range []string{"", "  ", "0", "-1"} {
		t.Run("unset "+raw, func(t *testing.T) {
			got, err := ParseTimestamp(raw)
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}

	t.Run("invalid", func(t *testing.T) {
		_, err := ParseTimestamp("yesterday")
		assert.True(t, errors.Is(err, ErrInvalidValue))
	})
}

func TestStoreApply(t *testing.T) {
	s := store{timer: timer.NewState(), display: DefaultDisplayConfig()}

	require.NoError(t, s.apply(StatusKey, "PAUSED"))
	require.NoError(t, s.apply(SecondsKey, "90"))
	require.NoError(t, s.apply(StartedAtKey, "1000"))
	require.NoError(t, s.apply(SponsorshipMinutesToAddKey, "10"))
	require.NoError(t, s.apply(DoubleModeKey, "true"))

	assert.Equal(t, timer.StatusPaused, s.timer.Status)
	assert.Equal(t, 90*time.Second, s.timer.Budget())
	require.NotNil(t, s.timer.StartedAt)
	assert.Equal(t, int64(1000), s.timer.StartedAt.UnixMilli())
	assert.Equal(t, int64(10), s.display.SponsorshipMinutesToAdd)
	assert.True(t, s.display.DoubleMode)

	err := s.apply("plugin-donathon-timer:nope", "1")
	assert.True(t, errors.Is(err, ErrUnknownKey))

	err = s.apply(StartedAtKey, "soon")
	assert.True(t, errors.Is(err, ErrInvalidValue))
	assert.Equal(t, int64(1000), s.timer.StartedAt.UnixMilli())

	require.NoError(t, s.apply(DoubleModeKey, "false"))
	assert.False(t, s.display.DoubleMode)
}

func TestIsKnownKey(t *testing.T) {
	assert.True(t, IsKnownKey(PausedAtKey))
	assert.True(t, IsKnownKey(DoubleModeKey))
	assert.False(t, IsKnownKey("pause_timestamp"))
	assert.False(t, IsKnownKey(KeyPrefix))
}

func TestDefaultDisplayConfig(t *testing.T) {
	cfg := DefaultDisplayConfig()

	assert.Equal(t, int64(100), cfg.TwitchBitsPointsThreshold)
	assert.Equal(t, int64(7), cfg.DonatePointsThreshold)
	assert.Equal(t, int64(5), cfg.SponsorshipMinutesToAdd)
	assert.Equal(t, int64(7), cfg.TwitchBitsMinutesToAdd)
	assert.False(t, cfg.DoubleMode)
}

func TestMultiRenderer(t *testing.T) {
	failing := &fakeRenderer{failWith: errors.New("boom")}
	healthy := &fakeRenderer{}
	m := MultiRenderer{failing, healthy, LogRenderer{}}

	err := m.SetTimerText("00:01:00")
	assert.EqualError(t, err, "boom")
	assert.Equal(t, []string{"00:01:00"}, healthy.timers)

	require.Error(t, m.SetDisplayConfig(DefaultDisplayConfig()))
	assert.Len(t, healthy.displays, 1)

	require.NoError(t, MultiRenderer{healthy, LogRenderer{}}.ShowNotification("hi"))
}
