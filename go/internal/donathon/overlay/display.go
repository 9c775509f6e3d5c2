package overlay

// DisplayConfig holds the thresholds and increments shown on the configuration
// display. The values are informational; points and minutes are awarded by the
// host.
type DisplayConfig struct {
	SponsorshipPointsThreshold int64 `json:"sponsorship_points_threshold"`
	SponsorshipPointsToAdd     int64 `json:"sponsorship_points_to_add"`
	TwitchBitsPointsThreshold  int64 `json:"twitch_bits_points_threshold"`
	TwitchBitsPointsToAdd      int64 `json:"twitch_bits_points_to_add"`
	DonatePointsThreshold      int64 `json:"donate_points_threshold"`
	DonatePointsToAdd          int64 `json:"donate_points_to_add"`

	SponsorshipMinutesThreshold int64 `json:"sponsorship_minutes_threshold"`
	SponsorshipMinutesToAdd     int64 `json:"sponsorship_minutes_to_add"`
	TwitchBitsMinutesThreshold  int64 `json:"twitch_bits_minutes_threshold"`
	TwitchBitsMinutesToAdd      int64 `json:"twitch_bits_minutes_to_add"`
	DonateMinutesThreshold      int64 `json:"donate_minutes_threshold"`
	DonateMinutesToAdd          int64 `json:"donate_minutes_to_add"`

	DoubleMode bool `json:"double_mode"`
}

// DefaultDisplayConfig returns the values shown before the host sends any
func DefaultDisplayConfig() DisplayConfig {
	return DisplayConfig{
		SponsorshipPointsThreshold: 1,
		SponsorshipPointsToAdd:     1,
		TwitchBitsPointsThreshold:  100,
		TwitchBitsPointsToAdd:      1,
		DonatePointsThreshold:      7,
		DonatePointsToAdd:          1,

		SponsorshipMinutesThreshold: 1,
		SponsorshipMinutesToAdd:     5,
		TwitchBitsMinutesThreshold:  100,
		TwitchBitsMinutesToAdd:      7,
		DonateMinutesThreshold:      1,
		DonateMinutesToAdd:          1,
	}
}
