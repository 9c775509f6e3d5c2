package overlay

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mcdev12/donathon/go/internal/donathon/timer"
)

// KeyPrefix namespaces every userstore key owned by the donathon plugin
const KeyPrefix = "plugin-donathon-timer:"

// Timer keys
const (
	StatusKey    = KeyPrefix + "status"
	PointsKey    = KeyPrefix + "points"
	SecondsKey   = KeyPrefix + "seconds"
	StartedAtKey = KeyPrefix + "started_at"
	PausedAtKey  = KeyPrefix + "pause_timestamp"
)

// Display configuration keys
const (
	SponsorshipPointsThresholdKey  = KeyPrefix + "sponsorship_points_threshold"
	SponsorshipPointsToAddKey      = KeyPrefix + "sponsorship_points_to_add"
	TwitchBitsPointsThresholdKey   = KeyPrefix + "twitch_bits_points_threshold"
	TwitchBitsPointsToAddKey       = KeyPrefix + "twitch_bits_points_to_add"
	DonatePointsThresholdKey       = KeyPrefix + "donate_points_threshold"
	DonatePointsToAddKey           = KeyPrefix + "donate_points_to_add"
	SponsorshipMinutesThresholdKey = KeyPrefix + "sponsorship_minutes_threshold"
	SponsorshipMinutesToAddKey     = KeyPrefix + "sponsorship_minutes_to_add"
	TwitchBitsMinutesThresholdKey  = KeyPrefix + "twitch_bits_minutes_threshold"
	TwitchBitsMinutesToAddKey      = KeyPrefix + "twitch_bits_minutes_to_add"
	DonateMinutesThresholdKey      = KeyPrefix + "donate_minutes_threshold"
	DonateMinutesToAddKey          = KeyPrefix + "donate_minutes_to_add"
	DoubleModeKey                  = KeyPrefix + "is_double_mode"
)

var (
	ErrUnknownKey   = errors.New("unknown userstore key")
	ErrInvalidValue = errors.New("invalid userstore value")
)

// field is a single recognized userstore key. apply validates raw and, only on
// success, writes it into the store.
type field struct {
	apply func(s *store, raw string) error
}

// store is everything the bridge knows from the host's userstore
type store struct {
	timer   timer.State
	display DisplayConfig
}

var fields = map[string]field{
	StatusKey: {apply: func(s *store, raw string) error {
		status, err := timer.ParseStatus(raw)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}
		s.timer.Status = status
		return nil
	}},
	PointsKey:    {apply: counter(func(s *store) *int64 { return &s.timer.Points })},
	SecondsKey:   {apply: counter(func(s *store) *int64 { return &s.timer.TotalSeconds })},
	StartedAtKey: {apply: timestamp(func(s *store) **time.Time { return &s.timer.StartedAt })},
	PausedAtKey:  {apply: timestamp(func(s *store) **time.Time { return &s.timer.PausedAt })},

	SponsorshipPointsThresholdKey:  {apply: counter(func(s *store) *int64 { return &s.display.SponsorshipPointsThreshold })},
	SponsorshipPointsToAddKey:      {apply: counter(func(s *store) *int64 { return &s.display.SponsorshipPointsToAdd })},
	TwitchBitsPointsThresholdKey:   {apply: counter(func(s *store) *int64 { return &s.display.TwitchBitsPointsThreshold })},
	TwitchBitsPointsToAddKey:       {apply: counter(func(s *store) *int64 { return &s.display.TwitchBitsPointsToAdd })},
	DonatePointsThresholdKey:       {apply: counter(func(s *store) *int64 { return &s.display.DonatePointsThreshold })},
	DonatePointsToAddKey:           {apply: counter(func(s *store) *int64 { return &s.display.DonatePointsToAdd })},
	SponsorshipMinutesThresholdKey: {apply: counter(func(s *store) *int64 { return &s.display.SponsorshipMinutesThreshold })},
	SponsorshipMinutesToAddKey:     {apply: counter(func(s *store) *int64 { return &s.display.SponsorshipMinutesToAdd })},
	TwitchBitsMinutesThresholdKey:  {apply: counter(func(s *store) *int64 { return &s.display.TwitchBitsMinutesThreshold })},
	TwitchBitsMinutesToAddKey:      {apply: counter(func(s *store) *int64 { return &s.display.TwitchBitsMinutesToAdd })},
	DonateMinutesThresholdKey:      {apply: counter(func(s *store) *int64 { return &s.display.DonateMinutesThreshold })},
	DonateMinutesToAddKey:          {apply: counter(func(s *store) *int64 { return &s.display.DonateMinutesToAdd })},

	DoubleModeKey: {apply: func(s *store, raw string) error {
		switch raw {
		case "true":
			s.display.DoubleMode = true
		case "false":
			s.display.DoubleMode = false
		default:
			return fmt.Errorf("%w: boolean %q", ErrInvalidValue, raw)
		}
		return nil
	}},
}

// apply validates and writes one key. The store is left untouched on error.
func (s *store) apply(key, raw string) error {
	f, ok := fields[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return f.apply(s, raw)
}

// IsKnownKey reports whether key is a userstore key the overlay understands
func IsKnownKey(key string) bool {
	_, ok := fields[key]
	return ok
}

// ParseInt parses a strict base-10 integer. Negative values are clamped to 0.
func ParseInt(raw string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: integer %q", ErrInvalidValue, raw)
	}
	if n < 0 {
		n = 0
	}
	return n, nil
}

// ParseTimestamp parses epoch milliseconds. An empty value or anything <= 0
// means the timestamp is unset.
func ParseTimestamp(raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp %q", ErrInvalidValue, raw)
	}
	if ms <= 0 {
		return nil, nil
	}
	t := time.UnixMilli(ms)
	return &t, nil
}

func counter(target func(s *store) *int64) func(s *store, raw string) error {
	return func(s *store, raw string) error {
		n, err := ParseInt(raw)
		if err != nil {
			return err
		}
		*target(s) = n
		return nil
	}
}

func timestamp(target func(s *store) **time.Time) func(s *store, raw string) error {
	return func(s *store, raw string) error {
		t, err := ParseTimestamp(raw)
		if err != nil {
			return err
		}
		*target(s) = t
		return nil
	}
}
