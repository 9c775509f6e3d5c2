package message

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies the celebratory event that produced a notification
type Kind string

const (
	KindDonate      Kind = "donate"
	KindSponsor     Kind = "sponsor"
	KindSponsorGift Kind = "sponsor_gift"
)

const (
	PlatformTwitch  = "twitch"
	PlatformYouTube = "youtube"
	PlatformOther   = "other"
)

// hostEventPrefix is how the host namespaces its event types ("unichat:donate")
const hostEventPrefix = "unichat:"

var ErrUnknownKind = errors.New("unknown event kind")

// ParseKind accepts both bare and host-prefixed event type names
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.TrimPrefix(s, hostEventPrefix)); k {
	case KindDonate, KindSponsor, KindSponsorGift:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// NormalizePlatform maps anything that is not twitch or youtube onto "other"
func NormalizePlatform(p string) string {
	switch p {
	case PlatformTwitch, PlatformYouTube:
		return p
	default:
		return PlatformOther
	}
}

// Templates maps an event kind and platform to a message template
type Templates map[Kind]map[string]string

// DefaultTemplates is the built-in message set used when the operator does not
// provide one.
func DefaultTemplates() Templates {
	return Templates{
		KindDonate: {
			PlatformTwitch: "{author_display_name} cheered {value} bits!",
			PlatformOther:  "{author_display_name} donated {currency} {value}!",
		},
		KindSponsor: {
			PlatformTwitch:  "{author_display_name} subscribed at tier {tier} for {months} months!",
			PlatformYouTube: "{author_display_name} became a {tier} member for {months} months!",
			PlatformOther:   "{author_display_name} is now a sponsor for {months} months!",
		},
		KindSponsorGift: {
			PlatformTwitch:  "{author_display_name} gifted {count} tier {tier} subs!",
			PlatformYouTube: "{author_display_name} gifted {count} memberships!",
			PlatformOther:   "{author_display_name} gifted {count} sponsorships!",
		},
	}
}

// Lookup returns the template for kind on platform, falling back to the
// kind's "other" template.
func (t Templates) Lookup(kind Kind, platform string) (string, bool) {
	byPlatform, ok := t[kind]
	if !ok {
		return "", false
	}
	if tmpl, ok := byPlatform[NormalizePlatform(platform)]; ok {
		return tmpl, true
	}
	tmpl, ok := byPlatform[PlatformOther]
	return tmpl, ok
}

// Merge returns a copy of t with every non-empty template from overrides applied on top
func (t Templates) Merge(overrides Templates) Templates {
	merged := make(Templates, len(t))
	for kind, byPlatform := range t {
		merged[kind] = make(map[string]string, len(byPlatform))
		for platform, tmpl := range byPlatform {
			merged[kind][platform] = tmpl
		}
	}

	for kind, byPlatform := range overrides {
		if merged[kind] == nil {
			merged[kind] = make(map[string]string, len(byPlatform))
		}
		for platform, tmpl := range byPlatform {
			if tmpl == "" {
				continue
			}
			merged[kind][platform] = tmpl
		}
	}
	return merged
}

// Format renders the notification for an event of kind on platform
func (t Templates) Format(kind Kind, platform string, data map[string]any) (string, error) {
	tmpl, ok := t.Lookup(kind, platform)
	if !ok {
		return "", fmt.Errorf("%w: no template for %s", ErrUnknownKind, kind)
	}
	return Render(tmpl, data), nil
}
